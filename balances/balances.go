// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package balances supplies live pair reserves to swap programs. Reserves are
// keyed by pair and always stored in canonical token order.
package balances

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/database"
	"github.com/luxfi/geth/common"
	"github.com/zeebo/blake3"
)

// valueLen is balance0(32) || balance1(32)
const valueLen = 64

var keyPrefix = []byte("swapvm/balances/")

var errCorruptValue = errors.New("corrupt balance record")

// Source reads pair reserves in canonical order (token0 < token1)
type Source interface {
	Balances(key [32]byte) (balance0, balance1 *uint256.Int, err error)
}

// Store is a Source that can also write reserves back
type Store interface {
	Source
	SetBalances(key [32]byte, balance0, balance1 *uint256.Int) error
}

// SortTokens returns the pair in canonical order
func SortTokens(tokenA, tokenB common.Address) (common.Address, common.Address) {
	if bytes.Compare(tokenA[:], tokenB[:]) > 0 {
		return tokenB, tokenA
	}
	return tokenA, tokenB
}

// PairKey identifies a pair's reserves within a namespace:
// BLAKE3(namespace || token0 || token1). Token order does not matter.
func PairKey(namespace [32]byte, tokenA, tokenB common.Address) [32]byte {
	token0, token1 := SortTokens(tokenA, tokenB)
	h := blake3.New()
	h.Write(namespace[:])
	h.Write(token0[:])
	h.Write(token1[:])

	var key [32]byte
	h.Digest().Read(key[:])
	return key
}

// DBStore keeps reserves in a key-value database
type DBStore struct {
	db database.Database
}

// NewDBStore wraps a database
func NewDBStore(db database.Database) *DBStore {
	return &DBStore{db: db}
}

func dbKey(key [32]byte) []byte {
	return append(append(make([]byte, 0, len(keyPrefix)+32), keyPrefix...), key[:]...)
}

// Balances returns zero reserves for unknown pairs
func (s *DBStore) Balances(key [32]byte) (*uint256.Int, *uint256.Int, error) {
	value, err := s.db.Get(dbKey(key))
	if errors.Is(err, database.ErrNotFound) {
		return new(uint256.Int), new(uint256.Int), nil
	}
	if err != nil {
		return nil, nil, err
	}
	if len(value) != valueLen {
		return nil, nil, fmt.Errorf("%w: %d bytes", errCorruptValue, len(value))
	}
	return new(uint256.Int).SetBytes(value[:32]), new(uint256.Int).SetBytes(value[32:]), nil
}

func (s *DBStore) SetBalances(key [32]byte, balance0, balance1 *uint256.Int) error {
	value := make([]byte, valueLen)
	balance0.WriteToSlice(value[:32])
	balance1.WriteToSlice(value[32:])
	return s.db.Put(dbKey(key), value)
}
