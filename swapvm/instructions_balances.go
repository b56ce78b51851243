// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package swapvm

import (
	"bytes"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/swapvm/balances"
	"github.com/luxfi/swapvm/fixedpoint"
)

// staticBalancesArgs is token0(20) bal0(32) token1(20) bal1(32)
const staticBalancesArgs = 104

func decodeStaticBalances(args []byte) (token0 common.Address, bal0 *uint256.Int, token1 common.Address, bal1 *uint256.Int) {
	token0 = common.BytesToAddress(args[:20])
	bal0 = new(uint256.Int).SetBytes(args[20:52])
	token1 = common.BytesToAddress(args[52:72])
	bal1 = new(uint256.Int).SetBytes(args[72:104])
	return token0, bal0, token1, bal1
}

func validateStaticBalances(args []byte) error {
	if err := argsLen(staticBalancesArgs)(args); err != nil {
		return err
	}
	token0, _, token1, _ := decodeStaticBalances(args)
	if bytes.Compare(token0[:], token1[:]) >= 0 {
		return fmt.Errorf("%w: tokens not in canonical order", ErrInvalidArgs)
	}
	return nil
}

func opStaticBalances(ctx *Context, args []byte) error {
	token0, bal0, token1, bal1 := decodeStaticBalances(args)
	want0, want1 := balances.SortTokens(ctx.TokenIn, ctx.TokenOut)
	if token0 != want0 || token1 != want1 {
		return fmt.Errorf("%w: program pair %s/%s", ErrTokenMismatch, token0, token1)
	}
	ctx.setBalances(bal0, bal1)
	return nil
}

// opDynamicBalances reads live reserves. When the source can be written, a
// swap registers the post-trade reserves as a pending effect.
func opDynamicBalances(ctx *Context, args []byte) error {
	source := ctx.engine.source
	if source == nil {
		return fmt.Errorf("%w: balance source", ErrMissingCollaborator)
	}
	var namespace [32]byte
	copy(namespace[:], args)
	key := balances.PairKey(namespace, ctx.TokenIn, ctx.TokenOut)

	bal0, bal1, err := source.Balances(key)
	if err != nil {
		return fmt.Errorf("failed to read balances: %w", err)
	}
	ctx.setBalances(bal0, bal1)

	store, ok := source.(balances.Store)
	if !ok || ctx.Mode != ModeSwap {
		return nil
	}
	ctx.effects = append(ctx.effects, func() error {
		return writeBackBalances(ctx, store, key)
	})
	return nil
}

func writeBackBalances(ctx *Context, store balances.Store, key [32]byte) error {
	extracted, err := ctx.extractedFees()
	if err != nil {
		return err
	}
	newIn, err := fixedpoint.Add(ctx.BalanceIn, ctx.AmountIn)
	if err != nil {
		return err
	}
	if newIn, err = fixedpoint.Sub(newIn, extracted); err != nil {
		return err
	}
	newOut, err := fixedpoint.Sub(ctx.BalanceOut, ctx.AmountOut)
	if err != nil {
		return err
	}
	if ctx.ZeroForOne {
		return store.SetBalances(key, newIn, newOut)
	}
	return store.SetBalances(key, newOut, newIn)
}
