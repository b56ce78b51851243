// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package curves

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/luxfi/swapvm/fixedpoint"
)

// Pegged is a stable-asset curve over normalised coordinates u = x/NormIn and
// v = y/NormOut with invariant
//
//	I(u, v) = sqrt(u) + sqrt(v) + LinearWidth * (u + v)
//
// The square-root terms keep prices bounded away from zero near depletion; the
// linear term flattens the curve around the peg. A wider LinearWidth means
// less slippage near balance.
//
// PriceMin and PriceMax bound the post-trade marginal price, expressed as
// output per input in WAD. Zero leaves a side open. FeeBps > 0 reinvests the
// fee into the reserves.
type Pegged struct {
	NormIn      *uint256.Int
	NormOut     *uint256.Int
	LinearWidth *uint256.Int
	PriceMin    *uint256.Int
	PriceMax    *uint256.Int
	FeeBps      uint64
}

func (p Pegged) validate() error {
	if p.NormIn == nil || p.NormOut == nil || p.NormIn.IsZero() || p.NormOut.IsZero() {
		return fmt.Errorf("%w: zero normaliser", ErrInvalidParams)
	}
	if p.LinearWidth == nil {
		return fmt.Errorf("%w: missing linear width", ErrInvalidParams)
	}
	if p.PriceMin != nil && p.PriceMax != nil && !p.PriceMax.IsZero() && p.PriceMin.Cmp(p.PriceMax) > 0 {
		return fmt.Errorf("%w: price range inverted", ErrInvalidParams)
	}
	return checkFee(p.FeeBps)
}

// Invariant returns I for the given reserves, rounded down
func (p Pegged) Invariant(balanceIn, balanceOut *uint256.Int) (*uint256.Int, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	u, err := fixedpoint.MulDivDown(balanceIn, fixedpoint.WAD, p.NormIn)
	if err != nil {
		return nil, err
	}
	v, err := fixedpoint.MulDivDown(balanceOut, fixedpoint.WAD, p.NormOut)
	if err != nil {
		return nil, err
	}
	return p.invariant(u, v, false)
}

func (p Pegged) invariant(u, v *uint256.Int, roundUp bool) (*uint256.Int, error) {
	sqrt := fixedpoint.SqrtWadDown
	mul := fixedpoint.MulWadDown
	if roundUp {
		sqrt = fixedpoint.SqrtWadUp
		mul = fixedpoint.MulWadUp
	}
	su, err := sqrt(u)
	if err != nil {
		return nil, err
	}
	sv, err := sqrt(v)
	if err != nil {
		return nil, err
	}
	uv, err := fixedpoint.Add(u, v)
	if err != nil {
		return nil, err
	}
	lin, err := mul(p.LinearWidth, uv)
	if err != nil {
		return nil, err
	}
	total, err := fixedpoint.Add(su, sv)
	if err != nil {
		return nil, err
	}
	return fixedpoint.Add(total, lin)
}

// solve returns the coordinate c and its square root s satisfying
// sqrt(c) + w*c = inv - sqrt(known) - w*known, both rounded up. The quadratic
// w*s^2 + s - M = 0 is solved as s = 2M / (1 + sqrt(1 + 4wM)).
func (p Pegged) solve(inv, known *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	sk, err := fixedpoint.SqrtWadDown(known)
	if err != nil {
		return nil, nil, err
	}
	lin, err := fixedpoint.MulWadDown(p.LinearWidth, known)
	if err != nil {
		return nil, nil, err
	}
	used, err := fixedpoint.Add(sk, lin)
	if err != nil {
		return nil, nil, err
	}
	if used.Cmp(inv) >= 0 {
		return nil, nil, ErrInsufficientReserves
	}
	m := new(uint256.Int).Sub(inv, used)

	s := m.Clone()
	if !p.LinearWidth.IsZero() {
		m4, err := fixedpoint.Mul(m, uint256.NewInt(4))
		if err != nil {
			return nil, nil, err
		}
		wm, err := fixedpoint.MulWadDown(p.LinearWidth, m4)
		if err != nil {
			return nil, nil, err
		}
		root, err := fixedpoint.SqrtWadDown(new(uint256.Int).Add(fixedpoint.WAD, wm))
		if err != nil {
			return nil, nil, err
		}
		m2, err := fixedpoint.Mul(m, uint256.NewInt(2))
		if err != nil {
			return nil, nil, err
		}
		if s, err = fixedpoint.MulDivUp(m2, fixedpoint.WAD, new(uint256.Int).Add(fixedpoint.WAD, root)); err != nil {
			return nil, nil, err
		}
	}
	c, err := fixedpoint.MulWadUp(s, s)
	if err != nil {
		return nil, nil, err
	}
	return c, s, nil
}

// coordinates returns (u, v) rounded up for the pre-trade invariant
func (p Pegged) coordinates(balanceIn, balanceOut *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	u, err := fixedpoint.MulDivUp(balanceIn, fixedpoint.WAD, p.NormIn)
	if err != nil {
		return nil, nil, err
	}
	v, err := fixedpoint.MulDivUp(balanceOut, fixedpoint.WAD, p.NormOut)
	if err != nil {
		return nil, nil, err
	}
	return u, v, nil
}

func (p Pegged) PriceForExactIn(balanceIn, balanceOut, amountIn *uint256.Int) (*uint256.Int, error) {
	if err := checkReserves(balanceIn, balanceOut); err != nil {
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	u, v, err := p.coordinates(balanceIn, balanceOut)
	if err != nil {
		return nil, err
	}
	inv, err := p.invariant(u, v, true)
	if err != nil {
		return nil, err
	}
	net, err := DeductFee(amountIn, p.FeeBps)
	if err != nil {
		return nil, err
	}
	newIn, err := fixedpoint.Add(balanceIn, net)
	if err != nil {
		return nil, err
	}
	newU, err := fixedpoint.MulDivDown(newIn, fixedpoint.WAD, p.NormIn)
	if err != nil {
		return nil, err
	}
	newV, sv, err := p.solve(inv, newU)
	if err != nil {
		return nil, err
	}
	newOut, err := fixedpoint.MulDivUp(newV, p.NormOut, fixedpoint.WAD)
	if err != nil {
		return nil, err
	}
	su, err := fixedpoint.SqrtWadDown(newU)
	if err != nil {
		return nil, err
	}
	if err := p.checkPrice(su, sv); err != nil {
		return nil, err
	}
	return fixedpoint.SubFloor(balanceOut, newOut), nil
}

func (p Pegged) PriceForExactOut(balanceIn, balanceOut, amountOut *uint256.Int) (*uint256.Int, error) {
	if err := checkReserves(balanceIn, balanceOut); err != nil {
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	if amountOut.Cmp(balanceOut) >= 0 {
		return nil, ErrReserveDepleted
	}
	u, v, err := p.coordinates(balanceIn, balanceOut)
	if err != nil {
		return nil, err
	}
	inv, err := p.invariant(u, v, true)
	if err != nil {
		return nil, err
	}
	newV, err := fixedpoint.MulDivDown(new(uint256.Int).Sub(balanceOut, amountOut), fixedpoint.WAD, p.NormOut)
	if err != nil {
		return nil, err
	}
	newU, su, err := p.solve(inv, newV)
	if err != nil {
		return nil, err
	}
	newIn, err := fixedpoint.MulDivUp(newU, p.NormIn, fixedpoint.WAD)
	if err != nil {
		return nil, err
	}
	sv, err := fixedpoint.SqrtWadDown(newV)
	if err != nil {
		return nil, err
	}
	if err := p.checkPrice(su, sv); err != nil {
		return nil, err
	}
	return GrossUp(fixedpoint.SubFloor(newIn, balanceIn), p.FeeBps)
}

// checkPrice evaluates the marginal output-per-input price at the given root
// coordinates and rejects it when outside the configured range:
//
//	price = (NormOut/NormIn) * sv*(1 + 2w*su) / (su*(1 + 2w*sv))
func (p Pegged) checkPrice(su, sv *uint256.Int) error {
	if (p.PriceMin == nil || p.PriceMin.IsZero()) && (p.PriceMax == nil || p.PriceMax.IsZero()) {
		return nil
	}
	if su.IsZero() {
		return ErrPriceOutOfRange
	}
	w2 := new(uint256.Int).Lsh(p.LinearWidth, 1)
	numW, err := fixedpoint.MulWadDown(w2, su)
	if err != nil {
		return err
	}
	denW, err := fixedpoint.MulWadDown(w2, sv)
	if err != nil {
		return err
	}
	ratio, err := fixedpoint.MulDivDown(sv, new(uint256.Int).Add(fixedpoint.WAD, numW), su)
	if err != nil {
		return err
	}
	ratio, err = fixedpoint.MulDivDown(ratio, fixedpoint.WAD, new(uint256.Int).Add(fixedpoint.WAD, denW))
	if err != nil {
		return err
	}
	price, err := fixedpoint.MulDivDown(ratio, p.NormOut, p.NormIn)
	if err != nil {
		return err
	}
	return checkPriceRange(price, p.PriceMin, p.PriceMax)
}
