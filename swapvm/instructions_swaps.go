// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package swapvm

import (
	"encoding/binary"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/luxfi/swapvm/curves"
	"github.com/luxfi/swapvm/fixedpoint"
)

const (
	// peggedArgsLen is norm0(32) norm1(32) linearWidth(8) priceMin(32) priceMax(32)
	peggedArgsLen       = 136
	statelessArgsLen    = 18
	concentratedArgsLen = 66
	knotLen             = 64
)

// runCurve prices the trade and closes the exact-out fee chain
func runCurve(ctx *Context, curve curves.Curve) error {
	if !ctx.balancesSet {
		return ErrBalancesNotSet
	}
	if ctx.BalanceIn.IsZero() || ctx.BalanceOut.IsZero() {
		return ErrZeroBalance
	}

	if ctx.IsExactIn {
		out, err := curve.PriceForExactIn(ctx.BalanceIn, ctx.BalanceOut, ctx.working)
		if err != nil {
			return err
		}
		ctx.AmountIn = ctx.Amount.Clone()
		ctx.AmountOut = out
	} else {
		in, err := curve.PriceForExactOut(ctx.BalanceIn, ctx.BalanceOut, ctx.working)
		if err != nil {
			return err
		}
		ctx.AmountIn = in
		ctx.AmountOut = ctx.Amount.Clone()
		if err := ctx.finalize(); err != nil {
			return err
		}
	}
	ctx.swapped = true
	return nil
}

func curveFee(ctx *Context, args []byte) (uint64, error) {
	feeBps := binary.BigEndian.Uint16(args)
	if err := checkFeeRate(ctx, feeBps); err != nil {
		return 0, err
	}
	return uint64(feeBps), nil
}

func word(args []byte, i int) *uint256.Int {
	return new(uint256.Int).SetBytes(args[i*32 : (i+1)*32])
}

// orientRange converts a token1-per-token0 range to output per input
func orientRange(ctx *Context, priceMin, priceMax *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	if ctx.ZeroForOne {
		return priceMin, priceMax, nil
	}
	return curves.InvertPriceRange(priceMin, priceMax)
}

func opConstantProductSwap(ctx *Context, args []byte) error {
	feeBps, err := curveFee(ctx, args)
	if err != nil {
		return err
	}
	return runCurve(ctx, curves.ConstantProduct{FeeBps: feeBps})
}

func validateStatelessSwap(args []byte) error {
	if err := argsLen(statelessArgsLen)(args); err != nil {
		return err
	}
	if binary.BigEndian.Uint64(args[:8]) == 0 || binary.BigEndian.Uint64(args[8:16]) == 0 {
		return fmt.Errorf("%w: zero weight", ErrInvalidArgs)
	}
	return nil
}

func opStatelessSwap(ctx *Context, args []byte) error {
	feeBps, err := curveFee(ctx, args[16:])
	if err != nil {
		return err
	}
	w0, w1 := binary.BigEndian.Uint64(args[:8]), binary.BigEndian.Uint64(args[8:16])
	if !ctx.ZeroForOne {
		w0, w1 = w1, w0
	}
	return runCurve(ctx, curves.Stateless{WeightIn: w0, WeightOut: w1, FeeBps: feeBps})
}

type peggedArgs struct {
	norm0, norm1       *uint256.Int
	linearWidth        *uint256.Int
	priceMin, priceMax *uint256.Int
}

func decodePegged(args []byte) peggedArgs {
	return peggedArgs{
		norm0:       word(args, 0),
		norm1:       word(args, 1),
		linearWidth: uint256.NewInt(binary.BigEndian.Uint64(args[64:72])),
		priceMin:    new(uint256.Int).SetBytes(args[72:104]),
		priceMax:    new(uint256.Int).SetBytes(args[104:136]),
	}
}

func validatePegged(n int) validationFunc {
	return func(args []byte) error {
		if err := argsLen(n)(args); err != nil {
			return err
		}
		p := decodePegged(args)
		if p.norm0.IsZero() || p.norm1.IsZero() {
			return fmt.Errorf("%w: zero normaliser", ErrInvalidArgs)
		}
		if !p.priceMax.IsZero() && p.priceMin.Cmp(p.priceMax) > 0 {
			return fmt.Errorf("%w: price range inverted", ErrInvalidArgs)
		}
		return nil
	}
}

func peggedCurve(ctx *Context, args []byte) (curves.Pegged, error) {
	p := decodePegged(args)
	priceMin, priceMax, err := orientRange(ctx, p.priceMin, p.priceMax)
	if err != nil {
		return curves.Pegged{}, err
	}
	c := curves.Pegged{
		NormIn:      p.norm0,
		NormOut:     p.norm1,
		LinearWidth: p.linearWidth,
		PriceMin:    priceMin,
		PriceMax:    priceMax,
	}
	if !ctx.ZeroForOne {
		c.NormIn, c.NormOut = p.norm1, p.norm0
	}
	return c, nil
}

func opPeggedSwap(ctx *Context, args []byte) error {
	c, err := peggedCurve(ctx, args)
	if err != nil {
		return err
	}
	return runCurve(ctx, c)
}

func opPeggedSwapReinvest(ctx *Context, args []byte) error {
	c, err := peggedCurve(ctx, args)
	if err != nil {
		return err
	}
	if c.FeeBps, err = curveFee(ctx, args[peggedArgsLen:]); err != nil {
		return err
	}
	return runCurve(ctx, c)
}

func validateConcentratedSwap(args []byte) error {
	if err := argsLen(concentratedArgsLen)(args); err != nil {
		return err
	}
	priceMin, priceMax := word(args, 0), word(args, 1)
	if !priceMax.IsZero() && priceMin.Cmp(priceMax) >= 0 {
		return fmt.Errorf("%w: empty price range", ErrInvalidArgs)
	}
	return nil
}

func opConcentratedSwap(ctx *Context, args []byte) error {
	feeBps, err := curveFee(ctx, args[64:])
	if err != nil {
		return err
	}
	priceMin, priceMax, err := orientRange(ctx, word(args, 0), word(args, 1))
	if err != nil {
		return err
	}
	return runCurve(ctx, curves.Concentrated{PriceMin: priceMin, PriceMax: priceMax, FeeBps: feeBps})
}

func decodeSpline(args []byte) curves.Spline {
	s := curves.Spline{Inventory: word(args, 0)}
	for off := 32; off+knotLen <= len(args); off += knotLen {
		s.Knots = append(s.Knots, curves.Knot{
			Q: new(uint256.Int).SetBytes(args[off : off+32]),
			P: new(uint256.Int).SetBytes(args[off+32 : off+knotLen]),
		})
	}
	return s
}

func validateSplineSwap(args []byte) error {
	if len(args) < 32+2*knotLen || (len(args)-32)%knotLen != 0 {
		return fmt.Errorf("%w: spline args of %d bytes", ErrInvalidArgs, len(args))
	}
	if err := decodeSpline(args).Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgs, err)
	}
	return nil
}

// opSplineSwap prices token0 as the base; the taker pays base when selling
// token0 into the pool
func opSplineSwap(ctx *Context, args []byte) error {
	s := decodeSpline(args)
	s.BaseIsIn = ctx.ZeroForOne
	return runCurve(ctx, s)
}

func validateStrictAdditiveSwap(args []byte) error {
	if err := argsLen(8)(args); err != nil {
		return err
	}
	alpha := binary.BigEndian.Uint64(args)
	if alpha == 0 || alpha > fixedpoint.WAD.Uint64() {
		return fmt.Errorf("%w: alpha %d outside (0, 1e18]", ErrInvalidArgs, alpha)
	}
	return nil
}

func opStrictAdditiveSwap(ctx *Context, args []byte) error {
	alpha := uint256.NewInt(binary.BigEndian.Uint64(args))
	return runCurve(ctx, curves.StrictAdditive{Alpha: alpha})
}

func validateLimitSwap(args []byte) error {
	if err := argsLen(1)(args); err != nil {
		return err
	}
	if LimitDirection(args[0]) > LimitBoth {
		return fmt.Errorf("%w: limit direction %d", ErrInvalidArgs, args[0])
	}
	return nil
}

// opLimitSwap fills at the fixed price balanceOut/balanceIn. The direction
// names the token the maker sells.
func opLimitSwap(ctx *Context, args []byte) error {
	switch LimitDirection(args[0]) {
	case LimitSellToken0:
		if ctx.ZeroForOne {
			return fmt.Errorf("%w: order only sells token0", ErrDirectionNotAllowed)
		}
	case LimitSellToken1:
		if !ctx.ZeroForOne {
			return fmt.Errorf("%w: order only sells token1", ErrDirectionNotAllowed)
		}
	}
	return runCurve(ctx, curves.Limit{})
}
