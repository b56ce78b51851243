// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package curves implements the pricing models a swap program can invoke.
// Every model solves one side of a trade from oriented reserves: balanceIn is
// the reserve of the token the taker pays, balanceOut the reserve of the token
// the taker receives.
//
// Rounding always favors the maker. Exact-in solutions floor the output and
// exact-out solutions ceil the input.
package curves

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/luxfi/swapvm/fixedpoint"
)

// FeeDenominator is the basis-point denominator shared by every fee parameter
const FeeDenominator uint64 = 10_000

// Curve errors
var (
	ErrZeroReserves         = errors.New("zero reserves")
	ErrReserveDepleted      = fmt.Errorf("%w: requested output depletes reserve", fixedpoint.ErrDivisionByZero)
	ErrInsufficientReserves = errors.New("insufficient reserves")
	ErrPriceOutOfRange      = errors.New("post-trade price out of range")
	ErrInvalidParams        = errors.New("invalid curve parameters")
)

// Curve is a pricing model bound to its parameters and oriented for one
// trade direction.
type Curve interface {
	// PriceForExactIn returns the output for a given input
	PriceForExactIn(balanceIn, balanceOut, amountIn *uint256.Int) (*uint256.Int, error)
	// PriceForExactOut returns the input required for a given output
	PriceForExactOut(balanceIn, balanceOut, amountOut *uint256.Int) (*uint256.Int, error)
}

var bps = uint256.NewInt(FeeDenominator)

func checkReserves(balanceIn, balanceOut *uint256.Int) error {
	if balanceIn.IsZero() || balanceOut.IsZero() {
		return ErrZeroReserves
	}
	return nil
}

func checkFee(feeBps uint64) error {
	if feeBps >= FeeDenominator {
		return fmt.Errorf("%w: fee %d bps", ErrInvalidParams, feeBps)
	}
	return nil
}

// FeeAmount returns ceil(amount * feeBps / 10000)
func FeeAmount(amount *uint256.Int, feeBps uint64) (*uint256.Int, error) {
	if feeBps == 0 {
		return new(uint256.Int), nil
	}
	return fixedpoint.MulDivUp(amount, uint256.NewInt(feeBps), bps)
}

// DeductFee returns amount minus its fee, the fee rounded up
func DeductFee(amount *uint256.Int, feeBps uint64) (*uint256.Int, error) {
	if err := checkFee(feeBps); err != nil {
		return nil, err
	}
	fee, err := FeeAmount(amount, feeBps)
	if err != nil {
		return nil, err
	}
	return fixedpoint.SubFloor(amount, fee), nil
}

// GrossUp returns the smallest input g with DeductFee(g) >= net:
// ceil(net * 10000 / (10000 - feeBps)).
func GrossUp(net *uint256.Int, feeBps uint64) (*uint256.Int, error) {
	if err := checkFee(feeBps); err != nil {
		return nil, err
	}
	if feeBps == 0 {
		return net.Clone(), nil
	}
	return fixedpoint.MulDivUp(net, bps, uint256.NewInt(FeeDenominator-feeBps))
}

// InvertPriceRange converts an out-per-in price range to the opposite trade
// direction. A zero bound means unbounded and stays unbounded on the other side.
func InvertPriceRange(priceMin, priceMax *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	invMin := new(uint256.Int)
	invMax := new(uint256.Int)
	var err error
	if !priceMax.IsZero() {
		if invMin, err = fixedpoint.MulDivUp(fixedpoint.WAD, fixedpoint.WAD, priceMax); err != nil {
			return nil, nil, err
		}
	}
	if !priceMin.IsZero() {
		if invMax, err = fixedpoint.MulDivDown(fixedpoint.WAD, fixedpoint.WAD, priceMin); err != nil {
			return nil, nil, err
		}
	}
	return invMin, invMax, nil
}

// checkPriceRange rejects a price outside [priceMin, priceMax]. Zero bounds
// are open.
func checkPriceRange(price, priceMin, priceMax *uint256.Int) error {
	if priceMin != nil && !priceMin.IsZero() && price.Cmp(priceMin) < 0 {
		return fmt.Errorf("%w: %s below %s", ErrPriceOutOfRange, price.Dec(), priceMin.Dec())
	}
	if priceMax != nil && !priceMax.IsZero() && price.Cmp(priceMax) > 0 {
		return fmt.Errorf("%w: %s above %s", ErrPriceOutOfRange, price.Dec(), priceMax.Dec())
	}
	return nil
}
