// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package swapvm

import (
	"encoding/binary"
	"fmt"
)

const maxSaltLen = 32

func validateSalt(args []byte) error {
	if len(args) == 0 || len(args) > maxSaltLen {
		return fmt.Errorf("%w: salt of %d bytes", ErrInvalidArgs, len(args))
	}
	return nil
}

// opSalt only makes otherwise identical programs hash differently
func opSalt(*Context, []byte) error {
	return nil
}

func opDeadline(ctx *Context, args []byte) error {
	chain := ctx.engine.chain
	if chain == nil {
		return fmt.Errorf("%w: chain context", ErrMissingCollaborator)
	}
	deadline := binary.BigEndian.Uint64(args)
	if now := chain.Timestamp(); now > deadline {
		return fmt.Errorf("%w: deadline %d, now %d", ErrExpired, deadline, now)
	}
	return nil
}
