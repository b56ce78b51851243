// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package curves

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/luxfi/swapvm/fixedpoint"
)

// Knot is one breakpoint of a spline: at Q units of base sold the marginal
// price is P quote per base (WAD).
type Knot struct {
	Q *uint256.Int
	P *uint256.Int
}

// Spline prices the base token along a piecewise-linear marginal price in the
// quantity sold, q = Inventory - baseBalance. Buying base moves q up the
// knots, selling base moves it down; quote amounts are the exact area under
// the price line. Trades that would leave [Knots[0].Q, Knots[n-1].Q] abort.
//
// BaseIsIn orients the curve: true when the taker pays the base token.
type Spline struct {
	Inventory *uint256.Int
	Knots     []Knot
	BaseIsIn  bool
}

// Validate checks the knot layout: at least two knots starting at q = 0,
// strictly increasing q, non-decreasing positive prices, and a last knot
// within inventory.
func (s Spline) Validate() error {
	if s.Inventory == nil || len(s.Knots) < 2 {
		return fmt.Errorf("%w: spline needs inventory and two knots", ErrInvalidParams)
	}
	if !s.Knots[0].Q.IsZero() {
		return fmt.Errorf("%w: first knot must be at zero", ErrInvalidParams)
	}
	if s.Knots[0].P.IsZero() {
		return fmt.Errorf("%w: zero starting price", ErrInvalidParams)
	}
	for i := 1; i < len(s.Knots); i++ {
		if s.Knots[i].Q.Cmp(s.Knots[i-1].Q) <= 0 {
			return fmt.Errorf("%w: knot %d not increasing", ErrInvalidParams, i)
		}
		if s.Knots[i].P.Cmp(s.Knots[i-1].P) < 0 {
			return fmt.Errorf("%w: knot %d price decreasing", ErrInvalidParams, i)
		}
	}
	if s.Knots[len(s.Knots)-1].Q.Cmp(s.Inventory) > 0 {
		return fmt.Errorf("%w: last knot beyond inventory", ErrInvalidParams)
	}
	return nil
}

// sold returns the current position on the spline
func (s Spline) sold(baseBalance *uint256.Int) (*uint256.Int, error) {
	if baseBalance.Cmp(s.Inventory) > 0 {
		return nil, fmt.Errorf("%w: base balance above inventory", ErrPriceOutOfRange)
	}
	q := new(uint256.Int).Sub(s.Inventory, baseBalance)
	if q.Cmp(s.Knots[len(s.Knots)-1].Q) > 0 {
		return nil, fmt.Errorf("%w: inventory beyond last knot", ErrPriceOutOfRange)
	}
	return q, nil
}

// segment returns the index i with Knots[i].Q <= q < Knots[i+1].Q. With
// upper set, q equal to a knot resolves to the segment ending there.
func (s Spline) segment(q *uint256.Int, upper bool) int {
	last := len(s.Knots) - 2
	for i := 0; i <= last; i++ {
		end := s.Knots[i+1].Q
		if q.Cmp(end) < 0 || (upper && q.Eq(end)) {
			return i
		}
	}
	return last
}

// priceAt interpolates the marginal price at q inside segment i
func (s Spline) priceAt(i int, q *uint256.Int, roundUp bool) (*uint256.Int, error) {
	k0, k1 := s.Knots[i], s.Knots[i+1]
	dp := new(uint256.Int).Sub(k1.P, k0.P)
	if dp.IsZero() {
		return k0.P.Clone(), nil
	}
	dq := new(uint256.Int).Sub(k1.Q, k0.Q)
	offset := new(uint256.Int).Sub(q, k0.Q)
	div := fixedpoint.MulDivDown
	if roundUp {
		div = fixedpoint.MulDivUp
	}
	step, err := div(dp, offset, dq)
	if err != nil {
		return nil, err
	}
	return fixedpoint.Add(k0.P, step)
}

// area returns the quote amount for moving between q0 < q1 within segment i
func (s Spline) area(i int, q0, q1 *uint256.Int, roundUp bool) (*uint256.Int, error) {
	p0, err := s.priceAt(i, q0, roundUp)
	if err != nil {
		return nil, err
	}
	p1, err := s.priceAt(i, q1, roundUp)
	if err != nil {
		return nil, err
	}
	sum, err := fixedpoint.Add(p0, p1)
	if err != nil {
		return nil, err
	}
	width := new(uint256.Int).Sub(q1, q0)
	denom := new(uint256.Int).Lsh(fixedpoint.WAD, 1)
	if roundUp {
		return fixedpoint.MulDivUp(width, sum, denom)
	}
	return fixedpoint.MulDivDown(width, sum, denom)
}

// integral returns the quote amount for moving from q0 to q1 (q0 <= q1)
func (s Spline) integral(q0, q1 *uint256.Int, roundUp bool) (*uint256.Int, error) {
	total := new(uint256.Int)
	cur := q0.Clone()
	for i := s.segment(q0, false); cur.Cmp(q1) < 0; i++ {
		end := fixedpoint.Min(s.Knots[i+1].Q, q1)
		a, err := s.area(i, cur, end, roundUp)
		if err != nil {
			return nil, err
		}
		if total, err = fixedpoint.Add(total, a); err != nil {
			return nil, err
		}
		cur = end
	}
	return total, nil
}

// buyBase returns the base amount a quote budget buys starting at q, rounded down
func (s Spline) buyBase(q, budget *uint256.Int) (*uint256.Int, error) {
	bought := new(uint256.Int)
	cur := q.Clone()
	remaining := budget.Clone()
	last := s.Knots[len(s.Knots)-1].Q
	for i := s.segment(q, false); !remaining.IsZero(); i++ {
		if cur.Cmp(last) >= 0 {
			return nil, fmt.Errorf("%w: budget exceeds spline", ErrPriceOutOfRange)
		}
		end := s.Knots[i+1].Q
		cost, err := s.area(i, cur, end, true)
		if err != nil {
			return nil, err
		}
		if remaining.Cmp(cost) >= 0 {
			remaining.Sub(remaining, cost)
			bought.Add(bought, new(uint256.Int).Sub(end, cur))
			cur = end
			continue
		}

		// Solve budget = p*d + k*d^2/2 with k = dp/dq:
		// d = 2*budget / (p + sqrt(p^2 + 2*k*budget))
		p, err := s.priceAt(i, cur, true)
		if err != nil {
			return nil, err
		}
		d, err := s.solveSegment(i, p, remaining, true)
		if err != nil {
			return nil, err
		}
		bought.Add(bought, fixedpoint.Min(d, new(uint256.Int).Sub(end, cur)))
		break
	}
	return bought, nil
}

// sellBase returns the base amount needed to receive proceeds starting at q,
// rounded up
func (s Spline) sellBase(q, proceeds *uint256.Int) (*uint256.Int, error) {
	sold := new(uint256.Int)
	cur := q.Clone()
	remaining := proceeds.Clone()
	for i := s.segment(q, true); !remaining.IsZero(); i-- {
		if cur.IsZero() || i < 0 {
			return nil, fmt.Errorf("%w: proceeds exceed spline", ErrPriceOutOfRange)
		}
		start := s.Knots[i].Q
		value, err := s.area(i, start, cur, false)
		if err != nil {
			return nil, err
		}
		if remaining.Cmp(value) > 0 {
			remaining.Sub(remaining, value)
			sold.Add(sold, new(uint256.Int).Sub(cur, start))
			cur = start
			continue
		}

		// Solve proceeds = p*d - k*d^2/2 walking down from price p:
		// d = 2*proceeds / (p + sqrt(p^2 - 2*k*proceeds))
		p, err := s.priceAt(i, cur, false)
		if err != nil {
			return nil, err
		}
		d, err := s.solveSegment(i, p, remaining, false)
		if err != nil {
			return nil, err
		}
		sold.Add(sold, fixedpoint.Min(d, new(uint256.Int).Sub(cur, start)))
		break
	}
	return sold, nil
}

// solveSegment solves the per-segment quadratic for the base quantity moved
// by amount of quote. Buying rounds the quantity down, selling rounds it up.
func (s Spline) solveSegment(i int, p, amount *uint256.Int, buying bool) (*uint256.Int, error) {
	k0, k1 := s.Knots[i], s.Knots[i+1]
	dp := new(uint256.Int).Sub(k1.P, k0.P)
	dq := new(uint256.Int).Sub(k1.Q, k0.Q)

	pp, err := fixedpoint.Mul(p, p)
	if err != nil {
		return nil, err
	}
	twoA, err := fixedpoint.Mul(amount, uint256.NewInt(2))
	if err != nil {
		return nil, err
	}
	// 2*k*amount in WAD^2: 2*dp*amount*WAD/dq
	dpA, err := fixedpoint.Mul(dp, twoA)
	if err != nil {
		return nil, err
	}

	var root *uint256.Int
	if buying {
		term, err := fixedpoint.MulDivUp(dpA, fixedpoint.WAD, dq)
		if err != nil {
			return nil, err
		}
		disc, err := fixedpoint.Add(pp, term)
		if err != nil {
			return nil, err
		}
		root = fixedpoint.SqrtUp(disc)
	} else {
		term, err := fixedpoint.MulDivUp(dpA, fixedpoint.WAD, dq)
		if err != nil {
			return nil, err
		}
		root = fixedpoint.SqrtDown(fixedpoint.SubFloor(pp, term))
	}

	denom, err := fixedpoint.Add(p, root)
	if err != nil {
		return nil, err
	}
	if buying {
		return fixedpoint.MulDivDown(twoA, fixedpoint.WAD, denom)
	}
	return fixedpoint.MulDivUp(twoA, fixedpoint.WAD, denom)
}

func (s Spline) PriceForExactIn(balanceIn, balanceOut, amountIn *uint256.Int) (*uint256.Int, error) {
	if err := checkReserves(balanceIn, balanceOut); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if s.BaseIsIn {
		q, err := s.sold(balanceIn)
		if err != nil {
			return nil, err
		}
		if amountIn.Cmp(q) > 0 {
			return nil, fmt.Errorf("%w: sell exceeds position", ErrPriceOutOfRange)
		}
		out, err := s.integral(new(uint256.Int).Sub(q, amountIn), q, false)
		if err != nil {
			return nil, err
		}
		if out.Cmp(balanceOut) > 0 {
			return nil, ErrInsufficientReserves
		}
		return out, nil
	}
	q, err := s.sold(balanceOut)
	if err != nil {
		return nil, err
	}
	return s.buyBase(q, amountIn)
}

func (s Spline) PriceForExactOut(balanceIn, balanceOut, amountOut *uint256.Int) (*uint256.Int, error) {
	if err := checkReserves(balanceIn, balanceOut); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if amountOut.Cmp(balanceOut) >= 0 {
		return nil, ErrReserveDepleted
	}
	if s.BaseIsIn {
		q, err := s.sold(balanceIn)
		if err != nil {
			return nil, err
		}
		return s.sellBase(q, amountOut)
	}
	q, err := s.sold(balanceOut)
	if err != nil {
		return nil, err
	}
	end, err := fixedpoint.Add(q, amountOut)
	if err != nil {
		return nil, err
	}
	if end.Cmp(s.Knots[len(s.Knots)-1].Q) > 0 {
		return nil, fmt.Errorf("%w: buy exceeds spline", ErrPriceOutOfRange)
	}
	return s.integral(q, end, true)
}
