// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package swapvm

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/swapvm/curves"
)

// LimitDirection selects which side of the pair a limit order sells
type LimitDirection byte

const (
	LimitSellToken0 LimitDirection = iota
	LimitSellToken1
	LimitBoth
)

// PeggedParams are the pegged-curve arguments against the canonical pair
// order. Prices are token1 per token0 in WAD; zero leaves a side open.
type PeggedParams struct {
	Norm0       *uint256.Int
	Norm1       *uint256.Int
	LinearWidth uint64
	PriceMin    *uint256.Int
	PriceMax    *uint256.Int
}

// Builder assembles a Program entry by entry
type Builder struct {
	buf bytes.Buffer
	err error
}

// NewBuilder creates an empty program builder
func NewBuilder() *Builder {
	return &Builder{}
}

// Raw appends an entry with arbitrary arguments
func (b *Builder) Raw(op OpCode, args []byte) *Builder {
	if b.err != nil {
		return b
	}
	if len(args) > MaxArgsLen {
		b.err = fmt.Errorf("%w: %s args of %d bytes", ErrInvalidArgs, op, len(args))
		return b
	}
	var hdr [headerLen]byte
	hdr[0] = byte(op)
	binary.BigEndian.PutUint16(hdr[1:], uint16(len(args)))
	b.buf.Write(hdr[:])
	b.buf.Write(args)
	return b
}

// Build returns the encoded program
func (b *Builder) Build() (Program, error) {
	if b.err != nil {
		return nil, b.err
	}
	return Program(bytes.Clone(b.buf.Bytes())), nil
}

// MustBuild is Build for programs known to be well formed
func (b *Builder) MustBuild() Program {
	p, err := b.Build()
	if err != nil {
		panic(err)
	}
	return p
}

// StaticBalances embeds reserves for a pair. The tokens may be given in any
// order; they are stored canonically.
func (b *Builder) StaticBalances(tokenA common.Address, balanceA *uint256.Int, tokenB common.Address, balanceB *uint256.Int) *Builder {
	if bytes.Compare(tokenA[:], tokenB[:]) > 0 {
		tokenA, tokenB = tokenB, tokenA
		balanceA, balanceB = balanceB, balanceA
	}
	args := make([]byte, 0, 104)
	args = append(args, tokenA[:]...)
	args = appendUint256(args, balanceA)
	args = append(args, tokenB[:]...)
	args = appendUint256(args, balanceB)
	return b.Raw(StaticBalances, args)
}

// DynamicBalances reads reserves from the balance source under a namespace
func (b *Builder) DynamicBalances(namespace [32]byte) *Builder {
	return b.Raw(DynamicBalances, namespace[:])
}

func (b *Builder) FlatFee(feeBps uint16) *Builder {
	return b.Raw(FlatFee, binary.BigEndian.AppendUint16(nil, feeBps))
}

func (b *Builder) ProgressiveFee(feeBps uint16) *Builder {
	return b.Raw(ProgressiveFee, binary.BigEndian.AppendUint16(nil, feeBps))
}

func (b *Builder) ProtocolFee(feeBps uint16, recipient common.Address) *Builder {
	args := binary.BigEndian.AppendUint16(nil, feeBps)
	return b.Raw(ProtocolFee, append(args, recipient[:]...))
}

func (b *Builder) DynamicProtocolFee() *Builder {
	return b.Raw(DynamicProtocolFee, nil)
}

func (b *Builder) GasPriceAdjustedFee(baselineWei uint64, sensitivityBps, maxAdjustBps uint16) *Builder {
	args := binary.BigEndian.AppendUint64(nil, baselineWei)
	args = binary.BigEndian.AppendUint16(args, sensitivityBps)
	args = binary.BigEndian.AppendUint16(args, maxAdjustBps)
	return b.Raw(GasPriceAdjustedFee, args)
}

func (b *Builder) ConstantProductSwap(feeBps uint16) *Builder {
	return b.Raw(ConstantProductSwap, binary.BigEndian.AppendUint16(nil, feeBps))
}

func (b *Builder) StatelessSwap(weight0, weight1 uint64, feeBps uint16) *Builder {
	args := binary.BigEndian.AppendUint64(nil, weight0)
	args = binary.BigEndian.AppendUint64(args, weight1)
	args = binary.BigEndian.AppendUint16(args, feeBps)
	return b.Raw(StatelessSwap, args)
}

func (b *Builder) PeggedSwap(p PeggedParams) *Builder {
	return b.Raw(PeggedSwap, appendPegged(nil, p))
}

func (b *Builder) PeggedSwapReinvest(p PeggedParams, feeBps uint16) *Builder {
	return b.Raw(PeggedSwapReinvest, binary.BigEndian.AppendUint16(appendPegged(nil, p), feeBps))
}

func (b *Builder) ConcentratedSwap(priceMin, priceMax *uint256.Int, feeBps uint16) *Builder {
	args := appendUint256(nil, priceMin)
	args = appendUint256(args, priceMax)
	return b.Raw(ConcentratedSwap, binary.BigEndian.AppendUint16(args, feeBps))
}

// SplineSwap encodes the inventory of token0 and the price knots
func (b *Builder) SplineSwap(inventory0 *uint256.Int, knots []curves.Knot) *Builder {
	args := appendUint256(nil, inventory0)
	for _, k := range knots {
		args = appendUint256(args, k.Q)
		args = appendUint256(args, k.P)
	}
	return b.Raw(SplineSwap, args)
}

// StrictAdditiveSwap takes alpha as a WAD value in (0, 1e18]
func (b *Builder) StrictAdditiveSwap(alpha uint64) *Builder {
	return b.Raw(StrictAdditiveSwap, binary.BigEndian.AppendUint64(nil, alpha))
}

func (b *Builder) LimitSwap(dir LimitDirection) *Builder {
	return b.Raw(LimitSwap, []byte{byte(dir)})
}

func (b *Builder) Salt(salt []byte) *Builder {
	return b.Raw(Salt, salt)
}

func (b *Builder) Deadline(unixSeconds uint64) *Builder {
	return b.Raw(Deadline, binary.BigEndian.AppendUint64(nil, unixSeconds))
}

func appendUint256(dst []byte, v *uint256.Int) []byte {
	if v == nil {
		v = new(uint256.Int)
	}
	word := v.Bytes32()
	return append(dst, word[:]...)
}

func appendPegged(dst []byte, p PeggedParams) []byte {
	dst = appendUint256(dst, p.Norm0)
	dst = appendUint256(dst, p.Norm1)
	dst = binary.BigEndian.AppendUint64(dst, p.LinearWidth)
	dst = appendUint256(dst, p.PriceMin)
	return appendUint256(dst, p.PriceMax)
}
