// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package settlement moves tokens once a swap program has priced a trade.
// The pricing engine hands a finished Request to a Settler; nothing is
// transferred on any failure path before that point.
package settlement

import (
	"errors"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
)

// Settlement errors
var (
	ErrInvalidRequest = errors.New("invalid settlement request")
	ErrTransferFailed = errors.New("transfer failed")
)

// Request is a priced trade ready to settle. The taker pays AmountIn of
// TokenIn to the maker and receives AmountOut of TokenOut.
type Request struct {
	Maker         common.Address
	Taker         common.Address
	TokenIn       common.Address
	TokenOut      common.Address
	AmountIn      *uint256.Int
	AmountOut     *uint256.Int
	OrderHash     [32]byte
	MakerHookData []byte
	TakerHookData []byte
}

// Validate checks the request is complete
func (r *Request) Validate() error {
	if r.AmountIn == nil || r.AmountOut == nil {
		return ErrInvalidRequest
	}
	if r.TokenIn == r.TokenOut {
		return ErrInvalidRequest
	}
	return nil
}

// Settler settles priced trades
type Settler interface {
	Settle(req *Request) error
}

// Transferer moves balances between accounts
type Transferer interface {
	Transfer(token, from, to common.Address, amount *uint256.Int) error
}
