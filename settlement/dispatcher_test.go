// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package settlement

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"
)

var (
	tokenA = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	tokenB = common.HexToAddress("0x00000000000000000000000000000000000000bb")
)

type balanceKey struct {
	token, owner common.Address
}

// ledger is an in-memory Transferer
type ledger struct {
	balances map[balanceKey]uint64
	failOut  bool
}

func newLedger() *ledger {
	return &ledger{balances: make(map[balanceKey]uint64)}
}

func (l *ledger) Transfer(token, from, to common.Address, amount *uint256.Int) error {
	if l.failOut && token == tokenB {
		return errors.New("frozen")
	}
	v := amount.Uint64()
	if l.balances[balanceKey{token, from}] < v {
		return errors.New("insufficient balance")
	}
	l.balances[balanceKey{token, from}] -= v
	l.balances[balanceKey{token, to}] += v
	return nil
}

func hookAddress(t *testing.T, p HookPermissions, salt byte) common.Address {
	t.Helper()
	addr := GenerateHookAddress(common.HexToAddress("0x1234"), [32]byte{salt}, p)
	require.NoError(t, ValidateHookAddress(addr, p))
	return addr
}

func setup(t *testing.T) (*ledger, *HookRegistry, *Request) {
	all := HookPermissions{PreTransferIn: true, PostTransferIn: true, PreTransferOut: true, PostTransferOut: true}
	maker := hookAddress(t, all, 1)
	taker := hookAddress(t, all, 2)

	l := newLedger()
	l.balances[balanceKey{tokenA, taker}] = 100
	l.balances[balanceKey{tokenB, maker}] = 100

	req := &Request{
		Maker:         maker,
		Taker:         taker,
		TokenIn:       tokenA,
		TokenOut:      tokenB,
		AmountIn:      uint256.NewInt(10),
		AmountOut:     uint256.NewInt(7),
		MakerHookData: []byte("maker"),
		TakerHookData: []byte("taker"),
	}
	return l, NewHookRegistry(), req
}

func TestDispatcherHookOrder(t *testing.T) {
	l, hooks, req := setup(t)

	var calls []string
	record := func(who string) Hook {
		return HookFunc(func(point HookFlags, r *Request, data []byte) error {
			calls = append(calls, who+":"+point.String()+":"+string(data))
			return nil
		})
	}
	all := HookPermissions{PreTransferIn: true, PostTransferIn: true, PreTransferOut: true, PostTransferOut: true}
	require.NoError(t, hooks.RegisterHook(req.Maker, all, record("maker")))
	require.NoError(t, hooks.RegisterHook(req.Taker, all, record("taker")))

	require.NoError(t, NewDispatcher(l, hooks, nil).Settle(req))
	require.Equal(t, []string{
		"maker:preTransferIn:maker", "taker:preTransferIn:taker",
		"maker:postTransferIn:maker", "taker:postTransferIn:taker",
		"maker:preTransferOut:maker", "taker:preTransferOut:taker",
		"maker:postTransferOut:maker", "taker:postTransferOut:taker",
	}, calls)

	require.Equal(t, uint64(90), l.balances[balanceKey{tokenA, req.Taker}])
	require.Equal(t, uint64(10), l.balances[balanceKey{tokenA, req.Maker}])
	require.Equal(t, uint64(93), l.balances[balanceKey{tokenB, req.Maker}])
	require.Equal(t, uint64(7), l.balances[balanceKey{tokenB, req.Taker}])
}

func TestDispatcherHookFailureLeavesNoTransfer(t *testing.T) {
	for _, point := range HookOrder() {
		t.Run(point.String(), func(t *testing.T) {
			l, hooks, req := setup(t)
			failing := HookFunc(func(p HookFlags, _ *Request, _ []byte) error {
				if p == point {
					return errors.New("rejected")
				}
				return nil
			})
			all := HookPermissions{PreTransferIn: true, PostTransferIn: true, PreTransferOut: true, PostTransferOut: true}
			require.NoError(t, hooks.RegisterHook(req.Taker, all, failing))

			err := NewDispatcher(l, hooks, nil).Settle(req)
			require.ErrorIs(t, err, ErrHookCallFailed)

			require.Equal(t, uint64(100), l.balances[balanceKey{tokenA, req.Taker}])
			require.Equal(t, uint64(0), l.balances[balanceKey{tokenA, req.Maker}])
			require.Equal(t, uint64(100), l.balances[balanceKey{tokenB, req.Maker}])
			require.Equal(t, uint64(0), l.balances[balanceKey{tokenB, req.Taker}])
		})
	}
}

func TestDispatcherTransferFailure(t *testing.T) {
	l, hooks, req := setup(t)
	l.failOut = true

	err := NewDispatcher(l, hooks, nil).Settle(req)
	require.ErrorIs(t, err, ErrTransferFailed)
	require.Equal(t, uint64(100), l.balances[balanceKey{tokenA, req.Taker}])
	require.Equal(t, uint64(0), l.balances[balanceKey{tokenA, req.Maker}])
}

func TestDispatcherInvalidRequest(t *testing.T) {
	l, hooks, req := setup(t)
	req.TokenOut = req.TokenIn
	require.ErrorIs(t, NewDispatcher(l, hooks, nil).Settle(req), ErrInvalidRequest)

	req.TokenOut = tokenB
	req.AmountOut = nil
	require.ErrorIs(t, NewDispatcher(l, hooks, nil).Settle(req), ErrInvalidRequest)
}
