// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package swapvm

import (
	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
)

// FeeProvider supplies the protocol fee for DynamicProtocolFee. It is read
// in both modes and must not mutate state.
type FeeProvider interface {
	FeeBpsAndRecipient(
		orderID [32]byte,
		maker, taker, tokenIn, tokenOut common.Address,
		isExactIn bool,
	) (feeBps uint16, recipient common.Address, err error)
}

// FeeProviderFunc adapts a function to FeeProvider
type FeeProviderFunc func(orderID [32]byte, maker, taker, tokenIn, tokenOut common.Address, isExactIn bool) (uint16, common.Address, error)

func (f FeeProviderFunc) FeeBpsAndRecipient(orderID [32]byte, maker, taker, tokenIn, tokenOut common.Address, isExactIn bool) (uint16, common.Address, error) {
	return f(orderID, maker, taker, tokenIn, tokenOut, isExactIn)
}

// ChainContext exposes the block environment
type ChainContext interface {
	// BaseFee is the current network base fee in wei
	BaseFee() *uint256.Int
	// Timestamp is the current block time in unix seconds
	Timestamp() uint64
}
