// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package contract defines the interfaces between stateful precompiled
// contracts and the EVM that hosts them: the state access surface, the
// block context, and the module configuration hooks.
package contract

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/tracing"
	"github.com/luxfi/geth/core/types"

	"github.com/luxfi/curve/precompileconfig"
)

// StateDB is the subset of the EVM state database exposed to stateful
// precompiles. Balance mutations carry a tracing reason and return the
// previous balance; SetState returns the previous value.
type StateDB interface {
	GetState(common.Address, common.Hash) common.Hash
	SetState(common.Address, common.Hash, common.Hash) common.Hash

	GetBalance(common.Address) *uint256.Int
	AddBalance(common.Address, *uint256.Int, tracing.BalanceChangeReason) uint256.Int
	SubBalance(common.Address, *uint256.Int, tracing.BalanceChangeReason) uint256.Int

	GetBalanceMultiCoin(common.Address, common.Hash) *big.Int
	AddBalanceMultiCoin(common.Address, common.Hash, *big.Int)
	SubBalanceMultiCoin(common.Address, common.Hash, *big.Int)

	GetNonce(common.Address) uint64
	SetNonce(common.Address, uint64, tracing.NonceChangeReason)

	CreateAccount(common.Address)
	Exist(common.Address) bool

	AddLog(*types.Log)
	Logs() []*types.Log

	GetPredicateStorageSlots(addr common.Address, index int) ([]byte, bool)
	TxHash() common.Hash

	Snapshot() int
	RevertToSnapshot(int)
}

// ConfigurationBlockContext is the block context available while a
// precompile is being configured at its activation boundary.
type ConfigurationBlockContext interface {
	Number() *big.Int
	Timestamp() uint64
}

// BlockContext is the block context available during precompile execution.
type BlockContext interface {
	ConfigurationBlockContext
}

// AccessibleState is everything a precompile may touch during Run.
type AccessibleState interface {
	GetStateDB() StateDB
	GetBlockContext() BlockContext
	GetChainConfig() precompileconfig.ChainConfig
}

// StatefulPrecompiledContract is the interface every precompile implements.
type StatefulPrecompiledContract interface {
	Run(
		accessibleState AccessibleState,
		caller common.Address,
		addr common.Address,
		input []byte,
		suppliedGas uint64,
		readOnly bool,
	) (ret []byte, remainingGas uint64, err error)

	RequiredGas(input []byte) uint64
}

// Configurator configures a precompile's initial state when its config is
// activated by a network upgrade.
type Configurator interface {
	MakeConfig() precompileconfig.Config
	Configure(
		chainConfig precompileconfig.ChainConfig,
		precompileConfig precompileconfig.Config,
		state StateDB,
		blockContext ConfigurationBlockContext,
	) error
}
