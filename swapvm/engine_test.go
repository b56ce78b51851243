// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package swapvm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/geth/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/swapvm/balances"
	"github.com/luxfi/swapvm/curves"
	"github.com/luxfi/swapvm/fixedpoint"
	"github.com/luxfi/swapvm/metrics"
	"github.com/luxfi/swapvm/settlement"
)

var (
	token0       = common.HexToAddress("0x1000000000000000000000000000000000000000")
	token1       = common.HexToAddress("0x2000000000000000000000000000000000000000")
	token2       = common.HexToAddress("0x3000000000000000000000000000000000000000")
	maker        = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	taker        = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	feeRecipient = common.HexToAddress("0x00000000000000000000000000000000000000cc")
)

func wad(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), fixedpoint.WAD)
}

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := New(DefaultConfig(), opts...)
	require.NoError(t, err)
	return e
}

func exactIn(p Program, tokenIn, tokenOut common.Address, amount *uint256.Int) *Request {
	return &Request{
		Program:   p,
		OrderID:   [32]byte{7},
		Maker:     maker,
		Taker:     taker,
		TokenIn:   tokenIn,
		TokenOut:  tokenOut,
		Amount:    amount,
		IsExactIn: true,
	}
}

func exactOut(p Program, tokenIn, tokenOut common.Address, amount *uint256.Int) *Request {
	req := exactIn(p, tokenIn, tokenOut, amount)
	req.IsExactIn = false
	return req
}

// pool starts a program over static 1000/1000 reserves
func pool() *Builder {
	return NewBuilder().StaticBalances(token0, wad(1000), token1, wad(1000))
}

type testChain struct {
	baseFee *uint256.Int
	now     uint64
}

func (c testChain) BaseFee() *uint256.Int { return c.baseFee }
func (c testChain) Timestamp() uint64     { return c.now }

type settlerFunc func(*settlement.Request) error

func (f settlerFunc) Settle(req *settlement.Request) error { return f(req) }

func splineKnots() []curves.Knot {
	return []curves.Knot{
		{Q: new(uint256.Int), P: wad(1)},
		{Q: wad(100), P: wad(1)},
		{Q: wad(200), P: wad(2)},
	}
}

func equivalencePrograms() map[string]Program {
	half := fixedpoint.MustWad("500000000000000000")
	return map[string]Program{
		"constant product": pool().ConstantProductSwap(30).MustBuild(),
		"flat fee":         pool().FlatFee(25).ConstantProductSwap(0).MustBuild(),
		"progressive fee":  pool().ProgressiveFee(100).ConstantProductSwap(0).MustBuild(),
		"protocol fee":     pool().ProtocolFee(10, feeRecipient).ConstantProductSwap(5).MustBuild(),
		"stacked fees":     pool().FlatFee(30).ProgressiveFee(50).ProtocolFee(10, feeRecipient).ConstantProductSwap(0).MustBuild(),
		"stateless":        pool().StatelessSwap(2, 1, 30).MustBuild(),
		"pegged": pool().PeggedSwap(PeggedParams{
			Norm0: wad(1000), Norm1: wad(1000), LinearWidth: half.Uint64(),
		}).MustBuild(),
		"pegged reinvest": pool().PeggedSwapReinvest(PeggedParams{
			Norm0: wad(1000), Norm1: wad(1000), LinearWidth: half.Uint64(),
			PriceMin: half, PriceMax: wad(2),
		}, 10).MustBuild(),
		"concentrated":    pool().ConcentratedSwap(half, wad(2), 30).MustBuild(),
		"spline":          pool().SplineSwap(wad(1100), splineKnots()).MustBuild(),
		"strict additive": pool().StrictAdditiveSwap(997_000_000_000_000_000).MustBuild(),
		"limit":           pool().LimitSwap(LimitBoth).Salt([]byte("order-1")).MustBuild(),
	}
}

func TestQuoteSwapEquivalence(t *testing.T) {
	e := newTestEngine(t)
	for name, p := range equivalencePrograms() {
		for _, dir := range []struct {
			name    string
			in, out common.Address
		}{{"0for1", token0, token1}, {"1for0", token1, token0}} {
			for _, isExactIn := range []bool{true, false} {
				req := exactIn(p, dir.in, dir.out, wad(10))
				req.IsExactIn = isExactIn
				t.Run(fmt.Sprintf("%s/%s/exactIn=%t", name, dir.name, isExactIn), func(t *testing.T) {
					quote, err := e.Quote(req)
					require.NoError(t, err)
					swap, err := e.Swap(req)
					require.NoError(t, err)
					require.Equal(t, quote, swap)

					require.False(t, quote.AmountIn.IsZero())
					require.False(t, quote.AmountOut.IsZero())
					if isExactIn {
						require.True(t, quote.AmountIn.Eq(wad(10)))
					} else {
						require.True(t, quote.AmountOut.Eq(wad(10)))
					}
				})
			}
		}
	}
}

func TestExactOutCoversExactIn(t *testing.T) {
	e := newTestEngine(t)
	for name, p := range equivalencePrograms() {
		t.Run(name, func(t *testing.T) {
			out, err := e.Quote(exactOut(p, token0, token1, wad(10)))
			require.NoError(t, err)

			in, err := e.Quote(exactIn(p, token0, token1, out.AmountIn))
			require.NoError(t, err)
			require.GreaterOrEqual(t, in.AmountOut.Cmp(wad(10)), 0)
		})
	}
}

func TestConstantProductExample(t *testing.T) {
	e := newTestEngine(t)

	res, err := e.Quote(exactIn(pool().ConstantProductSwap(0).MustBuild(), token0, token1, wad(10)))
	require.NoError(t, err)
	require.Equal(t, "9900990099009900990", res.AmountOut.Dec())
	require.True(t, res.AmountIn.Eq(wad(10)))
	require.Equal(t, GasStaticBalances+GasConstantProduct, res.GasUsed)
	require.Empty(t, res.Fees)

	withFee, err := e.Quote(exactIn(pool().ConstantProductSwap(30).MustBuild(), token0, token1, wad(10)))
	require.NoError(t, err)
	require.Negative(t, withFee.AmountOut.Cmp(res.AmountOut))
}

func TestFlatFeeExample(t *testing.T) {
	e := newTestEngine(t)
	p := pool().FlatFee(30).ConstantProductSwap(0).MustBuild()

	res, err := e.Quote(exactIn(p, token0, token1, wad(10)))
	require.NoError(t, err)
	require.Equal(t, "9871580343970612988", res.AmountOut.Dec())
	require.Equal(t, []FeeCharge{{
		Kind:   FeeFlat,
		Token:  token0,
		Amount: uint256.NewInt(30_000_000_000_000_000),
	}}, res.Fees)

	res, err = e.Quote(exactOut(p, token0, token1, uint256.MustFromDecimal("9900990099009900990")))
	require.NoError(t, err)
	require.Equal(t, "10030090270812437312", res.AmountIn.Dec())
	require.Len(t, res.Fees, 1)
	require.Equal(t, "30090270812437312", res.Fees[0].Amount.Dec())
}

func TestReverseOrientation(t *testing.T) {
	e := newTestEngine(t)
	p := NewBuilder().
		StaticBalances(token0, wad(1000), token1, wad(2000)).
		ConstantProductSwap(0).
		MustBuild()

	res, err := e.Quote(exactIn(p, token1, token0, wad(10)))
	require.NoError(t, err)
	require.Equal(t, "4975124378109452736", res.AmountOut.Dec())
}

func TestPeggedExample(t *testing.T) {
	e := newTestEngine(t)
	p := NewBuilder().
		StaticBalances(token0, wad(100_000), token1, wad(100_000)).
		PeggedSwap(PeggedParams{Norm0: wad(100_000), Norm1: wad(100_000)}).
		MustBuild()

	res, err := e.Quote(exactIn(p, token0, token1, wad(10_000)))
	require.NoError(t, err)

	want := uint256.MustFromDecimal("9523539268060618796000")
	diff := new(uint256.Int)
	if res.AmountOut.Cmp(want) > 0 {
		diff.Sub(res.AmountOut, want)
	} else {
		diff.Sub(want, res.AmountOut)
	}
	require.LessOrEqual(t, diff.Cmp(uint256.NewInt(1_000_000_000_000_000)), 0, "out %s", res.AmountOut.Dec())
}

func TestExactOutFullBalanceAborts(t *testing.T) {
	e := newTestEngine(t)
	programs := equivalencePrograms()
	for _, name := range []string{"constant product", "stateless", "pegged", "concentrated", "spline", "strict additive"} {
		t.Run(name, func(t *testing.T) {
			_, err := e.Quote(exactOut(programs[name], token0, token1, wad(1000)))
			require.ErrorIs(t, err, curves.ErrReserveDepleted)
			require.ErrorIs(t, err, fixedpoint.ErrDivisionByZero)
		})
	}
}

func TestStrictAdditiveSplitThroughStore(t *testing.T) {
	store := balances.NewDBStore(memdb.New())
	ns := [32]byte{9}
	key := balances.PairKey(ns, token0, token1)
	require.NoError(t, store.SetBalances(key, wad(1000), wad(1000)))

	e := newTestEngine(t, WithBalanceSource(store))
	p := NewBuilder().DynamicBalances(ns).StrictAdditiveSwap(997_000_000_000_000_000).MustBuild()

	single, err := e.Quote(exactIn(p, token0, token1, wad(4000)))
	require.NoError(t, err)

	total := new(uint256.Int)
	for i := 0; i < 4; i++ {
		res, err := e.Swap(exactIn(p, token0, token1, wad(1000)))
		require.NoError(t, err)
		total.Add(total, res.AmountOut)
	}

	diff := new(uint256.Int)
	if total.Cmp(single.AmountOut) > 0 {
		diff.Sub(total, single.AmountOut)
	} else {
		diff.Sub(single.AmountOut, total)
	}
	tolerance := new(uint256.Int).Div(single.AmountOut, uint256.NewInt(1000))
	require.LessOrEqual(t, diff.Cmp(tolerance), 0)
}

func TestDynamicBalancesWriteBack(t *testing.T) {
	store := balances.NewDBStore(memdb.New())
	ns := [32]byte{1}
	key := balances.PairKey(ns, token0, token1)
	require.NoError(t, store.SetBalances(key, wad(1000), wad(2000)))

	e := newTestEngine(t, WithBalanceSource(store))
	p := NewBuilder().
		DynamicBalances(ns).
		FlatFee(30).
		ProtocolFee(10, feeRecipient).
		ConstantProductSwap(0).
		MustBuild()

	for _, tt := range []struct {
		name    string
		in, out common.Address
	}{{"0for1", token0, token1}, {"1for0", token1, token0}} {
		t.Run(tt.name, func(t *testing.T) {
			before0, before1, err := store.Balances(key)
			require.NoError(t, err)

			req := exactIn(p, tt.in, tt.out, wad(10))
			quote, err := e.Quote(req)
			require.NoError(t, err)

			// Quote leaves the store alone
			got0, got1, err := store.Balances(key)
			require.NoError(t, err)
			require.True(t, got0.Eq(before0))
			require.True(t, got1.Eq(before1))

			swap, err := e.Swap(req)
			require.NoError(t, err)
			require.Equal(t, quote, swap)

			require.Len(t, swap.Fees, 2)
			protocol := swap.Fees[1]
			require.Equal(t, FeeProtocol, protocol.Kind)
			require.Equal(t, feeRecipient, protocol.Recipient)
			require.True(t, protocol.Extracted())
			require.False(t, swap.Fees[0].Extracted())

			balIn, balOut := before0, before1
			if tt.in == token1 {
				balIn, balOut = before1, before0
			}
			wantIn := new(uint256.Int).Add(balIn, swap.AmountIn)
			wantIn.Sub(wantIn, protocol.Amount)
			wantOut := new(uint256.Int).Sub(balOut, swap.AmountOut)

			got0, got1, err = store.Balances(key)
			require.NoError(t, err)
			gotIn, gotOut := got0, got1
			if tt.in == token1 {
				gotIn, gotOut = got1, got0
			}
			require.True(t, gotIn.Eq(wantIn), "in %s want %s", gotIn.Dec(), wantIn.Dec())
			require.True(t, gotOut.Eq(wantOut), "out %s want %s", gotOut.Dec(), wantOut.Dec())
		})
	}
}

func TestSettlement(t *testing.T) {
	store := balances.NewDBStore(memdb.New())
	ns := [32]byte{2}
	key := balances.PairKey(ns, token0, token1)
	require.NoError(t, store.SetBalances(key, wad(1000), wad(1000)))
	p := NewBuilder().DynamicBalances(ns).ConstantProductSwap(0).MustBuild()

	var settled []*settlement.Request
	fail := false
	settler := settlerFunc(func(req *settlement.Request) error {
		settled = append(settled, req)
		if fail {
			return errors.New("hook reverted")
		}
		return nil
	})
	e := newTestEngine(t, WithBalanceSource(store), WithSettler(settler))

	req := exactIn(p, token0, token1, wad(10))
	req.MakerHookData = []byte("m")
	req.TakerHookData = []byte("t")

	_, err := e.Quote(req)
	require.NoError(t, err)
	require.Empty(t, settled)

	fail = true
	_, err = e.Swap(req)
	require.ErrorContains(t, err, "hook reverted")
	require.Len(t, settled, 1)
	b0, b1, err := store.Balances(key)
	require.NoError(t, err)
	require.True(t, b0.Eq(wad(1000)))
	require.True(t, b1.Eq(wad(1000)))

	fail = false
	res, err := e.Swap(req)
	require.NoError(t, err)
	require.Len(t, settled, 2)
	got := settled[1]
	require.Equal(t, maker, got.Maker)
	require.Equal(t, taker, got.Taker)
	require.Equal(t, token0, got.TokenIn)
	require.Equal(t, token1, got.TokenOut)
	require.Equal(t, req.OrderID, got.OrderHash)
	require.True(t, got.AmountIn.Eq(res.AmountIn))
	require.True(t, got.AmountOut.Eq(res.AmountOut))
	require.Equal(t, []byte("m"), got.MakerHookData)
	require.Equal(t, []byte("t"), got.TakerHookData)

	b0, _, err = store.Balances(key)
	require.NoError(t, err)
	require.True(t, b0.Eq(wad(1010)))
}

// tokenLedger is an in-memory settlement.Transferer
type tokenLedger map[[2]common.Address]*uint256.Int

func (l tokenLedger) balance(token, owner common.Address) *uint256.Int {
	if b, ok := l[[2]common.Address{token, owner}]; ok {
		return b
	}
	return new(uint256.Int)
}

func (l tokenLedger) Transfer(token, from, to common.Address, amount *uint256.Int) error {
	fromBal := l.balance(token, from)
	if fromBal.Lt(amount) {
		return errors.New("insufficient balance")
	}
	l[[2]common.Address{token, from}] = new(uint256.Int).Sub(fromBal, amount)
	l[[2]common.Address{token, to}] = new(uint256.Int).Add(l.balance(token, to), amount)
	return nil
}

func TestSwapThroughDispatcher(t *testing.T) {
	ledger := tokenLedger{{token0, taker}: wad(10)}
	hooks := settlement.NewHookRegistry()
	var points []settlement.HookFlags
	hookAddr := settlement.GenerateHookAddress(maker, [32]byte{1}, settlement.HookPermissions{
		PreTransferIn:   true,
		PostTransferOut: true,
	})
	require.NoError(t, hooks.RegisterHook(hookAddr, settlement.DecodeHookPermissions(settlement.AddressFlags(hookAddr)),
		settlement.HookFunc(func(point settlement.HookFlags, _ *settlement.Request, _ []byte) error {
			points = append(points, point)
			return nil
		})))

	e := newTestEngine(t, WithSettler(settlement.NewDispatcher(ledger, hooks, nil)))
	req := exactIn(pool().ConstantProductSwap(0).MustBuild(), token0, token1, wad(10))
	req.Maker = hookAddr

	ledger[[2]common.Address{token1, hookAddr}] = wad(1000)
	res, err := e.Swap(req)
	require.NoError(t, err)

	require.True(t, ledger.balance(token0, taker).IsZero())
	require.True(t, ledger.balance(token0, hookAddr).Eq(wad(10)))
	require.True(t, ledger.balance(token1, taker).Eq(res.AmountOut))
	require.Equal(t, []settlement.HookFlags{settlement.HookPreTransferIn, settlement.HookPostTransferOut}, points)
}

func TestRequestValidation(t *testing.T) {
	e := newTestEngine(t)
	p := pool().ConstantProductSwap(0).MustBuild()

	tests := []struct {
		name    string
		req     *Request
		wantErr error
	}{
		{"nil", nil, ErrInvalidRequest},
		{"same token", exactIn(p, token0, token0, wad(1)), ErrSameToken},
		{"zero amount", exactIn(p, token0, token1, new(uint256.Int)), ErrZeroAmount},
		{"nil amount", exactIn(p, token0, token1, nil), ErrZeroAmount},
		{"foreign token", exactIn(p, token0, token2, wad(1)), ErrTokenMismatch},
		{"zero output", exactIn(p, token0, token1, uint256.NewInt(1)), ErrZeroAmountOut},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Quote(tt.req)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestZeroBalances(t *testing.T) {
	e := newTestEngine(t)
	p := NewBuilder().StaticBalances(token0, new(uint256.Int), token1, wad(1)).ConstantProductSwap(0).MustBuild()
	_, err := e.Quote(exactIn(p, token0, token1, wad(1)))
	require.ErrorIs(t, err, ErrZeroBalance)
}

func TestDecodeErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxProgramSize = 256
	e, err := New(cfg)
	require.NoError(t, err)

	nonCanonical := make([]byte, 0, staticBalancesArgs)
	nonCanonical = append(nonCanonical, token1[:]...)
	nonCanonical = appendUint256(nonCanonical, wad(1))
	nonCanonical = append(nonCanonical, token0[:]...)
	nonCanonical = appendUint256(nonCanonical, wad(1))

	tests := []struct {
		name    string
		program Program
		wantErr error
	}{
		{"too large", make(Program, 257), ErrProgramTooLarge},
		{"truncated", Program{byte(FlatFee), 0x00, 0x05}, ErrMalformedProgram},
		{"unknown opcode", NewBuilder().Raw(0x50, nil).MustBuild(), ErrUnknownOpcode},
		{"invalid selector", NewBuilder().Raw(0x00, nil).MustBuild(), ErrUnknownOpcode},
		{"unassigned fee selector", NewBuilder().Raw(0x1f, nil).MustBuild(), ErrUnknownOpcode},
		{"fee args", NewBuilder().Raw(FlatFee, []byte{1, 2, 3}).MustBuild(), ErrInvalidArgs},
		{"non-canonical balances", NewBuilder().Raw(StaticBalances, nonCanonical).MustBuild(), ErrInvalidArgs},
		{"zero weight", pool().StatelessSwap(0, 1, 0).MustBuild(), ErrInvalidArgs},
		{"zero norm", pool().PeggedSwap(PeggedParams{Norm0: wad(1)}).MustBuild(), ErrInvalidArgs},
		{"empty range", pool().ConcentratedSwap(wad(2), wad(1), 0).MustBuild(), ErrInvalidArgs},
		{"one knot", pool().SplineSwap(wad(1), splineKnots()[:1]).MustBuild(), ErrInvalidArgs},
		{"decreasing knots", pool().SplineSwap(wad(1000), []curves.Knot{
			{Q: new(uint256.Int), P: wad(2)}, {Q: wad(1), P: wad(1)},
		}).MustBuild(), ErrInvalidArgs},
		{"alpha above one", pool().StrictAdditiveSwap(1_000_000_000_000_000_001).MustBuild(), ErrInvalidArgs},
		{"limit direction", pool().LimitSwap(3).MustBuild(), ErrInvalidArgs},
		{"empty salt", pool().Salt(nil).ConstantProductSwap(0).MustBuild(), ErrInvalidArgs},
		{"zero gas baseline", pool().GasPriceAdjustedFee(0, 1, 1).ConstantProductSwap(0).MustBuild(), ErrInvalidArgs},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Decode(tt.program)
			require.ErrorIs(t, err, tt.wantErr)

			_, err = e.Quote(exactIn(tt.program, token0, token1, wad(1)))
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLayout(t *testing.T) {
	e := newTestEngine(t)
	static := func(b *Builder) *Builder {
		return b.StaticBalances(token0, wad(1000), token1, wad(1000))
	}

	tests := []struct {
		name    string
		program Program
		valid   bool
	}{
		{"minimal", static(NewBuilder()).ConstantProductSwap(0).MustBuild(), true},
		{"control anywhere", static(NewBuilder().Salt([]byte{1})).Salt([]byte{2}).ConstantProductSwap(0).Deadline(1).MustBuild(), true},
		{"dynamic fee first", static(NewBuilder().DynamicProtocolFee()).FlatFee(1).ConstantProductSwap(0).MustBuild(), true},
		{"empty", Program{}, false},
		{"no swap", static(NewBuilder()).FlatFee(1).MustBuild(), false},
		{"no balances", NewBuilder().ConstantProductSwap(0).MustBuild(), false},
		{"two balances", static(static(NewBuilder())).ConstantProductSwap(0).MustBuild(), false},
		{"two swaps", static(NewBuilder()).ConstantProductSwap(0).LimitSwap(LimitBoth).MustBuild(), false},
		{"fee before balances", static(NewBuilder().FlatFee(1)).ConstantProductSwap(0).MustBuild(), false},
		{"fee after swap", static(NewBuilder()).ConstantProductSwap(0).FlatFee(1).MustBuild(), false},
		{"dynamic fee after balances", static(NewBuilder()).DynamicProtocolFee().ConstantProductSwap(0).MustBuild(), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Decode(tt.program)
			if tt.valid {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidLayout)
		})
	}
}

func TestGasMetering(t *testing.T) {
	e := newTestEngine(t)
	p := pool().FlatFee(1).ConstantProductSwap(0).MustBuild()
	need := GasStaticBalances + GasFee + GasConstantProduct

	req := exactIn(p, token0, token1, wad(1))
	req.GasLimit = need
	res, err := e.Quote(req)
	require.NoError(t, err)
	require.Equal(t, need, res.GasUsed)

	req.GasLimit = need - 1
	_, err = e.Quote(req)
	require.ErrorIs(t, err, ErrOutOfGas)

	// The configured default applies when the request sets none
	cfg := DefaultConfig()
	cfg.DefaultGasLimit = GasStaticBalances
	small, err := New(cfg)
	require.NoError(t, err)
	_, err = small.Quote(exactIn(p, token0, token1, wad(1)))
	require.ErrorIs(t, err, ErrOutOfGas)

	// Zero everywhere means unmetered
	cfg.DefaultGasLimit = 0
	unmetered, err := New(cfg)
	require.NoError(t, err)
	res, err = unmetered.Quote(exactIn(p, token0, token1, wad(1)))
	require.NoError(t, err)
	require.Equal(t, need, res.GasUsed)
}

func TestDeadline(t *testing.T) {
	p := pool().ConstantProductSwap(0).Deadline(100).MustBuild()
	req := exactIn(p, token0, token1, wad(1))

	_, err := newTestEngine(t).Quote(req)
	require.ErrorIs(t, err, ErrMissingCollaborator)

	_, err = newTestEngine(t, WithChainContext(testChain{now: 100})).Quote(req)
	require.NoError(t, err)

	_, err = newTestEngine(t, WithChainContext(testChain{now: 101})).Swap(req)
	require.ErrorIs(t, err, ErrExpired)
}

func TestLimitDirection(t *testing.T) {
	e := newTestEngine(t)
	sells0 := NewBuilder().
		StaticBalances(token0, wad(1000), token1, wad(2000)).
		LimitSwap(LimitSellToken0).
		MustBuild()

	_, err := e.Quote(exactIn(sells0, token0, token1, wad(1)))
	require.ErrorIs(t, err, ErrDirectionNotAllowed)

	// Taker pays 2000 token1 per 1000 token0
	res, err := e.Quote(exactIn(sells0, token1, token0, wad(20)))
	require.NoError(t, err)
	require.True(t, res.AmountOut.Eq(wad(10)))

	// The whole inventory can be taken
	res, err = e.Quote(exactOut(sells0, token1, token0, wad(1000)))
	require.NoError(t, err)
	require.True(t, res.AmountIn.Eq(wad(2000)))

	sells1 := NewBuilder().
		StaticBalances(token0, wad(1000), token1, wad(2000)).
		LimitSwap(LimitSellToken1).
		MustBuild()
	_, err = e.Quote(exactIn(sells1, token1, token0, wad(1)))
	require.ErrorIs(t, err, ErrDirectionNotAllowed)
	_, err = e.Quote(exactIn(sells1, token0, token1, wad(1)))
	require.NoError(t, err)
}

func TestMissingBalanceSource(t *testing.T) {
	p := NewBuilder().DynamicBalances([32]byte{}).ConstantProductSwap(0).MustBuild()
	_, err := newTestEngine(t).Quote(exactIn(p, token0, token1, wad(1)))
	require.ErrorIs(t, err, ErrMissingCollaborator)
}

func TestEngineMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)
	e := newTestEngine(t, WithMetrics(m))

	p := pool().ConstantProductSwap(0).MustBuild()
	_, err = e.Quote(exactIn(p, token0, token1, wad(1)))
	require.NoError(t, err)
	_, err = e.Quote(exactIn(p, token0, token0, wad(1)))
	require.Error(t, err)

	n, err := testutil.GatherAndCount(reg, "swapvm_executions_total")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	n, err = testutil.GatherAndCount(reg, "swapvm_instructions_total")
	require.NoError(t, err)
	require.Equal(t, 2, n)
}
