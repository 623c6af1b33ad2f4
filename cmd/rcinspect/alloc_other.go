//go:build !unix

package main

import (
	"context"

	"github.com/wippyai/rc"
	"github.com/wippyai/rc/errors"
)

func openMmap(int) (rc.Allocator, func(context.Context) error, error) {
	return nil, nil, errors.Unsupported(errors.PhaseAlloc, "", "mmap allocator needs a unix system")
}
