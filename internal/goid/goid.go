// Package goid looks up the id of the running goroutine.
//
// The id is parsed from the first line of runtime.Stack, which costs around a
// microsecond. Callers use it only on debug paths.
package goid

import "runtime"

// Current returns the id of the calling goroutine, or 0 if it cannot be parsed.
func Current() int64 {
	// "goroutine 123 [running]:\n..." fits easily.
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	return parse(buf[:n])
}

// parse extracts the id from "goroutine 123 [running]:...".
func parse(buf []byte) int64 {
	const prefix = "goroutine "

	if len(buf) < len(prefix) || string(buf[:len(prefix)]) != prefix {
		return 0
	}

	var id int64
	for _, c := range buf[len(prefix):] {
		if c < '0' || c > '9' {
			break
		}
		id = id*10 + int64(c-'0')
	}
	return id
}
