// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package swapvm

import (
	"encoding/binary"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/swapvm/curves"
	"github.com/luxfi/swapvm/fixedpoint"
)

const (
	protocolFeeArgs    = 22
	gasPriceFeeArgsLen = 12
	maxGrossUpRetries  = 64
)

var (
	bpsDenominator      = uint256.NewInt(curves.FeeDenominator)
	validateProtocolFee = argsLen(protocolFeeArgs)
)

func checkFeeRate(ctx *Context, feeBps uint16) error {
	if feeBps > ctx.engine.cfg.MaxFeeBps {
		return fmt.Errorf("%w: %d bps above %d", ErrFeeTooHigh, feeBps, ctx.engine.cfg.MaxFeeBps)
	}
	return nil
}

// applyRateFee takes feeBps of the input. Exact-in deducts it from the
// working amount now; exact-out grosses up the priced input afterwards.
func applyRateFee(ctx *Context, kind FeeKind, feeBps uint16, recipient common.Address) error {
	if err := checkFeeRate(ctx, feeBps); err != nil {
		return err
	}
	if feeBps == 0 {
		return nil
	}
	if ctx.IsExactIn {
		fee, err := curves.FeeAmount(ctx.working, uint64(feeBps))
		if err != nil {
			return err
		}
		ctx.working = fixedpoint.SubFloor(ctx.working, fee)
		ctx.charge(kind, fee, recipient)
		return nil
	}
	ctx.finalizers = append(ctx.finalizers, func(c *Context) error {
		gross, err := curves.GrossUp(c.AmountIn, uint64(feeBps))
		if err != nil {
			return err
		}
		c.charge(kind, new(uint256.Int).Sub(gross, c.AmountIn), recipient)
		c.AmountIn = gross
		return nil
	})
	return nil
}

func opFlatFee(ctx *Context, args []byte) error {
	return applyRateFee(ctx, FeeFlat, binary.BigEndian.Uint16(args), common.Address{})
}

func opProtocolFee(ctx *Context, args []byte) error {
	return applyRateFee(ctx, FeeProtocol, binary.BigEndian.Uint16(args), common.BytesToAddress(args[2:22]))
}

func opDynamicProtocolFee(ctx *Context, _ []byte) error {
	provider := ctx.engine.feeProvider
	if provider == nil {
		return fmt.Errorf("%w: fee provider", ErrMissingCollaborator)
	}
	feeBps, recipient, err := provider.FeeBpsAndRecipient(ctx.OrderID, ctx.Maker, ctx.Taker, ctx.TokenIn, ctx.TokenOut, ctx.IsExactIn)
	if err != nil {
		return fmt.Errorf("failed to fetch protocol fee: %w", err)
	}
	return applyRateFee(ctx, FeeDynamicProtocol, feeBps, recipient)
}

// progressiveFee is ceil(a^2 * f / (10000 * (x + a))): the rate grows with
// the trade's share of the post-trade input reserve.
func progressiveFee(x, a *uint256.Int, feeBps uint16) (*uint256.Int, error) {
	af, err := fixedpoint.Mul(a, uint256.NewInt(uint64(feeBps)))
	if err != nil {
		return nil, err
	}
	xa, err := fixedpoint.Add(x, a)
	if err != nil {
		return nil, err
	}
	denom, err := fixedpoint.Mul(xa, bpsDenominator)
	if err != nil {
		return nil, err
	}
	return fixedpoint.MulDivUp(a, af, denom)
}

// progressiveGrossUp finds the smallest g with g - progressiveFee(x, g) >= net.
// The closed form root of (B-f)g^2 + B(x-n)g - Bnx = 0 seeds the search.
func progressiveGrossUp(x, net *uint256.Int, feeBps uint16) (*uint256.Int, error) {
	d := uint256.NewInt(curves.FeeDenominator - uint64(feeBps))

	var diff *uint256.Int
	netAbove := net.Cmp(x) >= 0
	if netAbove {
		diff = new(uint256.Int).Sub(net, x)
	} else {
		diff = new(uint256.Int).Sub(x, net)
	}
	bDiff, err := fixedpoint.Mul(diff, bpsDenominator)
	if err != nil {
		return nil, err
	}
	bDiffSq, err := fixedpoint.Mul(bDiff, bDiff)
	if err != nil {
		return nil, err
	}
	nx, err := fixedpoint.Mul(net, x)
	if err != nil {
		return nil, err
	}
	cross, err := fixedpoint.Mul(nx, new(uint256.Int).Mul(d, uint256.NewInt(4*curves.FeeDenominator)))
	if err != nil {
		return nil, err
	}
	disc, err := fixedpoint.Add(bDiffSq, cross)
	if err != nil {
		return nil, err
	}
	root := fixedpoint.SqrtDown(disc)

	var num *uint256.Int
	if netAbove {
		if num, err = fixedpoint.Add(bDiff, root); err != nil {
			return nil, err
		}
	} else {
		num = fixedpoint.SubFloor(root, bDiff)
	}
	g := new(uint256.Int).Div(num, new(uint256.Int).Lsh(d, 1))
	if g.Cmp(net) < 0 {
		g.Set(net)
	}

	for i := 0; i < maxGrossUpRetries; i++ {
		fee, err := progressiveFee(x, g, feeBps)
		if err != nil {
			return nil, err
		}
		if fixedpoint.SubFloor(g, fee).Cmp(net) >= 0 {
			return g, nil
		}
		g.AddUint64(g, 1)
	}
	return nil, fmt.Errorf("%w: net %s", ErrFeeUnsolvable, net.Dec())
}

func opProgressiveFee(ctx *Context, args []byte) error {
	feeBps := binary.BigEndian.Uint16(args)
	if err := checkFeeRate(ctx, feeBps); err != nil {
		return err
	}
	if !ctx.balancesSet {
		return ErrBalancesNotSet
	}
	if feeBps == 0 {
		return nil
	}
	if ctx.IsExactIn {
		fee, err := progressiveFee(ctx.BalanceIn, ctx.working, feeBps)
		if err != nil {
			return err
		}
		ctx.working = fixedpoint.SubFloor(ctx.working, fee)
		ctx.charge(FeeProgressive, fee, common.Address{})
		return nil
	}
	ctx.finalizers = append(ctx.finalizers, func(c *Context) error {
		gross, err := progressiveGrossUp(c.BalanceIn, c.AmountIn, feeBps)
		if err != nil {
			return err
		}
		c.charge(FeeProgressive, new(uint256.Int).Sub(gross, c.AmountIn), common.Address{})
		c.AmountIn = gross
		return nil
	})
	return nil
}

type gasPriceFeeArgs struct {
	baseline    uint64
	sensitivity uint16
	maxAdjust   uint16
}

func decodeGasPriceFee(args []byte) gasPriceFeeArgs {
	return gasPriceFeeArgs{
		baseline:    binary.BigEndian.Uint64(args[:8]),
		sensitivity: binary.BigEndian.Uint16(args[8:10]),
		maxAdjust:   binary.BigEndian.Uint16(args[10:12]),
	}
}

func validateGasPriceAdjustedFee(args []byte) error {
	if err := argsLen(gasPriceFeeArgsLen)(args); err != nil {
		return err
	}
	if decodeGasPriceFee(args).baseline == 0 {
		return fmt.Errorf("%w: zero baseline", ErrInvalidArgs)
	}
	return nil
}

// gasPriceRate is min(maxAdjust, (baseFee - baseline) * sensitivity / baseline),
// and zero at or below the baseline
func gasPriceRate(p gasPriceFeeArgs, baseFee *uint256.Int) (uint16, error) {
	baseline := uint256.NewInt(p.baseline)
	if baseFee == nil || baseFee.Cmp(baseline) <= 0 {
		return 0, nil
	}
	excess := new(uint256.Int).Sub(baseFee, baseline)
	rate, err := fixedpoint.MulDivDown(excess, uint256.NewInt(uint64(p.sensitivity)), baseline)
	if err != nil {
		return 0, err
	}
	if rate.CmpUint64(uint64(p.maxAdjust)) > 0 {
		return p.maxAdjust, nil
	}
	return uint16(rate.Uint64()), nil
}

func opGasPriceAdjustedFee(ctx *Context, args []byte) error {
	chain := ctx.engine.chain
	if chain == nil {
		return fmt.Errorf("%w: chain context", ErrMissingCollaborator)
	}
	p := decodeGasPriceFee(args)
	if err := checkFeeRate(ctx, p.maxAdjust); err != nil {
		return err
	}
	rate, err := gasPriceRate(p, chain.BaseFee())
	if err != nil {
		return err
	}
	return applyRateFee(ctx, FeeGasPrice, rate, common.Address{})
}
