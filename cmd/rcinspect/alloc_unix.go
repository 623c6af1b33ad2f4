//go:build unix

package main

import (
	"context"

	"github.com/wippyai/rc"
	"github.com/wippyai/rc/alloc"
)

func openMmap(size int) (rc.Allocator, func(context.Context) error, error) {
	m, err := alloc.NewMmap(size)
	if err != nil {
		return nil, nil, err
	}
	return m, func(context.Context) error { return m.Close() }, nil
}
