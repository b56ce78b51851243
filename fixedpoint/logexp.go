// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package fixedpoint

import (
	"math/big"

	"github.com/holiman/uint256"
)

// MaxPowRelativeError bounds the relative error of the internal power
// evaluation (1e-14, in WAD). PowDown and PowUp widen their result by this
// amount plus one unit so the true value always lies inside [PowDown, PowUp].
var MaxPowRelativeError = uint256.NewInt(10_000)

// Internal transcendental math runs at 36 decimals on signed big integers.
var (
	scale36 = new(big.Int).Exp(big.NewInt(10), big.NewInt(36), nil)
	wadBig  = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

	// ln(2) * 1e36, floored
	ln2Scaled, _ = new(big.Int).SetString("693147180559945309417232121458176568", 10)

	// exp() results above 2^maxExpShift are rejected before shifting
	maxExpShift = 200
)

// lnScaled returns ln(x / 1e36) * 1e36 for x > 0.
// The argument is reduced to m in [1, 2) and ln(m) = 2*atanh((m-1)/(m+1)).
func lnScaled(x *big.Int) *big.Int {
	k := x.BitLen() - scale36.BitLen()
	m := new(big.Int)
	if k >= 0 {
		m.Rsh(x, uint(k))
	} else {
		m.Lsh(x, uint(-k))
	}
	twoScale := new(big.Int).Lsh(scale36, 1)
	for m.Cmp(twoScale) >= 0 {
		m.Rsh(m, 1)
		k++
	}
	for m.Cmp(scale36) < 0 {
		m.Lsh(m, 1)
		k--
	}

	// z = (m - 1) / (m + 1) in [0, 1/3)
	num := new(big.Int).Sub(m, scale36)
	den := new(big.Int).Add(m, scale36)
	z := new(big.Int).Mul(num, scale36)
	z.Quo(z, den)
	z2 := new(big.Int).Mul(z, z)
	z2.Quo(z2, scale36)

	sum := new(big.Int)
	term := new(big.Int).Set(z)
	for n := int64(1); term.Sign() != 0; n += 2 {
		sum.Add(sum, new(big.Int).Quo(term, big.NewInt(n)))
		term.Mul(term, z2)
		term.Quo(term, scale36)
	}
	sum.Lsh(sum, 1)

	result := new(big.Int).Mul(big.NewInt(int64(k)), ln2Scaled)
	return result.Add(result, sum)
}

// expScaled returns exp(y / 1e36) * 1e36. The argument is reduced as
// y = k*ln2 + r with r in [0, ln2) and exp(r) is summed as a Taylor series.
func expScaled(y *big.Int) (*big.Int, error) {
	k := new(big.Int)
	r := new(big.Int)
	// Euclidean division: r >= 0, so k = floor(y / ln2)
	k.DivMod(y, ln2Scaled, r)
	if k.Sign() > 0 && (!k.IsInt64() || k.Int64() > int64(maxExpShift)) {
		return nil, ErrOverflow
	}
	if !k.IsInt64() || k.Int64() < -int64(maxExpShift) {
		return new(big.Int), nil
	}
	shift := k.Int64()

	sum := new(big.Int).Set(scale36)
	term := new(big.Int).Set(scale36)
	for n := int64(1); ; n++ {
		term.Mul(term, r)
		term.Quo(term, scale36)
		term.Quo(term, big.NewInt(n))
		if term.Sign() == 0 {
			break
		}
		sum.Add(sum, term)
	}
	if shift >= 0 {
		return sum.Lsh(sum, uint(shift)), nil
	}
	return sum.Rsh(sum, uint(-shift)), nil
}

// Ln returns ln(x) for a WAD value x > 0 as a signed WAD value (truncated toward zero).
func Ln(x *uint256.Int) (*big.Int, error) {
	if x.IsZero() {
		return nil, ErrInvalidInput
	}
	v := new(big.Int).Mul(x.ToBig(), wadBig)
	l := lnScaled(v)
	return l.Quo(l, wadBig), nil
}

// Exp returns exp(y) for a signed WAD value y as a WAD value (floored).
func Exp(y *big.Int) (*uint256.Int, error) {
	e, err := expScaled(new(big.Int).Mul(y, wadBig))
	if err != nil {
		return nil, err
	}
	e.Quo(e, wadBig)
	z, overflow := uint256.FromBig(e)
	if overflow {
		return nil, ErrOverflow
	}
	return z, nil
}

// powScaled evaluates base^exp for WAD operands and returns the result at 36
// decimals. base must be non-zero.
func powScaled(base, exp *uint256.Int) (*big.Int, error) {
	lnBase := lnScaled(new(big.Int).Mul(base.ToBig(), wadBig))
	lnBase.Mul(lnBase, exp.ToBig())
	lnBase.Quo(lnBase, wadBig)
	return expScaled(lnBase)
}

// powFast handles the exponents and bases that have exact answers
func powFast(base, exp *uint256.Int, roundUp bool) (*uint256.Int, bool, error) {
	switch {
	case exp.IsZero():
		return WAD.Clone(), true, nil
	case base.IsZero():
		return new(uint256.Int), true, nil
	case base.Eq(WAD):
		return WAD.Clone(), true, nil
	case exp.Eq(WAD):
		return base.Clone(), true, nil
	case exp.Eq(new(uint256.Int).Lsh(WAD, 1)):
		if roundUp {
			z, err := MulWadUp(base, base)
			return z, true, err
		}
		z, err := MulWadDown(base, base)
		return z, true, err
	}
	return nil, false, nil
}

// powError returns the outward widening applied to a power result
func powError(raw *uint256.Int) (*uint256.Int, error) {
	e, err := MulWadUp(raw, MaxPowRelativeError)
	if err != nil {
		return nil, err
	}
	return e.AddUint64(e, 1), nil
}

// PowDown returns a lower bound of base^exp for WAD operands
func PowDown(base, exp *uint256.Int) (*uint256.Int, error) {
	if z, ok, err := powFast(base, exp, false); ok {
		return z, err
	}
	scaled, err := powScaled(base, exp)
	if err != nil {
		return nil, err
	}
	scaled.Quo(scaled, wadBig)
	raw, overflow := uint256.FromBig(scaled)
	if overflow {
		return nil, ErrOverflow
	}
	margin, err := powError(raw)
	if err != nil {
		return nil, err
	}
	return SubFloor(raw, margin), nil
}

// PowUp returns an upper bound of base^exp for WAD operands
func PowUp(base, exp *uint256.Int) (*uint256.Int, error) {
	if z, ok, err := powFast(base, exp, true); ok {
		return z, err
	}
	scaled, err := powScaled(base, exp)
	if err != nil {
		return nil, err
	}
	q, rem := new(big.Int).QuoRem(scaled, wadBig, new(big.Int))
	if rem.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	raw, overflow := uint256.FromBig(q)
	if overflow {
		return nil, ErrOverflow
	}
	margin, err := powError(raw)
	if err != nil {
		return nil, err
	}
	return Add(raw, margin)
}
