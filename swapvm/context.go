// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package swapvm

import (
	"bytes"
	"slices"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/swapvm/fixedpoint"
)

// Mode selects whether an execution may touch mutating collaborators
type Mode uint8

const (
	// ModeQuote is read-only
	ModeQuote Mode = iota
	// ModeSwap settles and commits pending effects
	ModeSwap
)

func (m Mode) String() string {
	switch m {
	case ModeQuote:
		return "quote"
	case ModeSwap:
		return "swap"
	default:
		return "unknown"
	}
}

// FeeKind identifies the instruction that charged a fee
type FeeKind uint8

const (
	FeeFlat FeeKind = iota + 1
	FeeProgressive
	FeeProtocol
	FeeDynamicProtocol
	FeeGasPrice
)

func (k FeeKind) String() string {
	switch k {
	case FeeFlat:
		return "flat"
	case FeeProgressive:
		return "progressive"
	case FeeProtocol:
		return "protocol"
	case FeeDynamicProtocol:
		return "dynamic-protocol"
	case FeeGasPrice:
		return "gas-price"
	default:
		return "unknown"
	}
}

// FeeCharge is one fee taken from the input token. Reinvested fees stay in
// the reserves and have a zero Recipient.
type FeeCharge struct {
	Kind      FeeKind
	Token     common.Address
	Amount    *uint256.Int
	Recipient common.Address
}

// Extracted reports whether the fee leaves the reserves
func (f FeeCharge) Extracted() bool {
	return f.Kind == FeeProtocol || f.Kind == FeeDynamicProtocol
}

// Context is the call-scoped state threaded through a program's
// instructions. It is built fresh per execution and discarded afterwards.
type Context struct {
	Mode Mode

	OrderID  [32]byte
	Maker    common.Address
	Taker    common.Address
	TokenIn  common.Address
	TokenOut common.Address
	// ZeroForOne is true when TokenIn is token0 of the canonical pair
	ZeroForOne bool

	IsExactIn bool
	// Amount is the caller's quantity: input when IsExactIn, else output
	Amount *uint256.Int

	BalanceIn  *uint256.Int
	BalanceOut *uint256.Int

	// AmountIn and AmountOut are set by the swap instruction
	AmountIn  *uint256.Int
	AmountOut *uint256.Int

	Fees []FeeCharge

	// working is the amount handed to the curve. Exact-in fees shrink it;
	// exact-out leaves it at the requested output.
	working *uint256.Int
	// finalizers run in reverse order once an exact-out curve has priced
	// the net input
	finalizers []func(*Context) error
	// effects are committed only in ModeSwap, after settlement
	effects []func() error

	balancesSet bool
	swapped     bool
	gasUsed     uint64

	engine *Engine
}

func newContext(e *Engine, req *Request, mode Mode) *Context {
	return &Context{
		Mode:       mode,
		OrderID:    req.OrderID,
		Maker:      req.Maker,
		Taker:      req.Taker,
		TokenIn:    req.TokenIn,
		TokenOut:   req.TokenOut,
		ZeroForOne: bytes.Compare(req.TokenIn[:], req.TokenOut[:]) < 0,
		IsExactIn:  req.IsExactIn,
		Amount:     req.Amount.Clone(),
		working:    req.Amount.Clone(),
		engine:     e,
	}
}

// setBalances orients canonical reserves to the trade direction
func (c *Context) setBalances(balance0, balance1 *uint256.Int) {
	if c.ZeroForOne {
		c.BalanceIn, c.BalanceOut = balance0.Clone(), balance1.Clone()
	} else {
		c.BalanceIn, c.BalanceOut = balance1.Clone(), balance0.Clone()
	}
	c.balancesSet = true
}

// charge records a fee against the input token
func (c *Context) charge(kind FeeKind, amount *uint256.Int, recipient common.Address) {
	if amount.IsZero() {
		return
	}
	c.Fees = append(c.Fees, FeeCharge{
		Kind:      kind,
		Token:     c.TokenIn,
		Amount:    amount.Clone(),
		Recipient: recipient,
	})
}

// finalize runs the exact-out fee finalizers, last registered first, and
// restores program order in the recorded charges
func (c *Context) finalize() error {
	start := len(c.Fees)
	for i := len(c.finalizers) - 1; i >= 0; i-- {
		if err := c.finalizers[i](c); err != nil {
			return err
		}
	}
	slices.Reverse(c.Fees[start:])
	return nil
}

// extractedFees sums the fees that leave the reserves
func (c *Context) extractedFees() (*uint256.Int, error) {
	total := new(uint256.Int)
	for _, f := range c.Fees {
		if !f.Extracted() {
			continue
		}
		var err error
		if total, err = fixedpoint.Add(total, f.Amount); err != nil {
			return nil, err
		}
	}
	return total, nil
}
