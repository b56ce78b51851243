// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package swapvm

import "errors"

// Decode errors
var (
	ErrMalformedProgram = errors.New("malformed program")
	ErrUnknownOpcode    = errors.New("unknown or disabled opcode")
	ErrInvalidArgs      = errors.New("invalid instruction arguments")
	ErrProgramTooLarge  = errors.New("program too large")
	ErrInvalidLayout    = errors.New("invalid instruction layout")
)

// Precondition errors
var (
	ErrInvalidRequest       = errors.New("invalid request")
	ErrSameToken            = errors.New("tokenIn equals tokenOut")
	ErrZeroAmount           = errors.New("zero amount")
	ErrTokenMismatch        = errors.New("program tokens do not match request")
	ErrBalancesNotSet       = errors.New("balances not set before swap")
	ErrZeroBalance          = errors.New("zero balance")
	ErrFeeTooHigh           = errors.New("fee exceeds maximum")
	ErrDirectionNotAllowed  = errors.New("trade direction not allowed")
	ErrExpired              = errors.New("order expired")
	ErrMissingCollaborator  = errors.New("required collaborator not configured")
	ErrSwapNotExecuted      = errors.New("no swap instruction executed")
	ErrOutOfGas             = errors.New("out of gas")
	ErrZeroAmountIn         = errors.New("amountIn resolved to zero")
	ErrZeroAmountOut        = errors.New("amountOut resolved to zero")
	ErrOutputExceedsBalance = errors.New("amountOut exceeds balanceOut")
	ErrFeeUnsolvable        = errors.New("fee gross-up did not converge")
)
