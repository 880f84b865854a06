//go:build windows

package ptybridge

import (
	"context"
	"errors"
)

// Run is not supported on Windows.
func (b Bridge) Run(ctx context.Context, c Command) (*Result, error) {
	return nil, errors.New("ptybridge: pseudo-terminals are not supported on windows")
}
