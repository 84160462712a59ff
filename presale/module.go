// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package presale

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/tracing"
	"github.com/luxfi/geth/core/types"

	"github.com/luxfi/curve/contract"
	"github.com/luxfi/curve/curve"
	"github.com/luxfi/curve/modules"
	"github.com/luxfi/curve/precompileconfig"
)

var _ contract.Configurator = (*configurator)(nil)
var _ contract.StatefulPrecompiledContract = (*LaunchpadContract)(nil)

// ConfigKey is the key used in json config files to specify this precompile config.
const ConfigKey = "launchpadConfig"

// ContractAddress is the precompile address (LP-9220 LXLaunchpad).
var ContractAddress = common.HexToAddress(LXLaunchpadAddress)

// LaunchpadPrecompile is the singleton instance. It shares the market
// ledger with the LXCurve precompile so escrow purchases settle on the
// same curves the public trades against.
var LaunchpadPrecompile = &LaunchpadContract{escrow: NewEscrow(curve.CurvePrecompile.Ledger())}

// Module is the precompile module (LXLaunchpad at 0x9220)
var Module = modules.Module{
	ConfigKey:    ConfigKey,
	Address:      ContractAddress,
	Contract:     LaunchpadPrecompile,
	Configurator: &configurator{},
}

// Method selectors for LXLaunchpad
const (
	SelectorCreateSale uint32 = 0x01000000 // createSale(address,uint256)
	SelectorContribute uint32 = 0x02000000 // contribute(address,uint256)
	SelectorOpenMarket uint32 = 0x03000000 // openMarket(address)
	SelectorRedeem     uint32 = 0x04000000 // redeem(address,address)

	SelectorGetSale         uint32 = 0x10000000 // getSale(address)
	SelectorGetContribution uint32 = 0x11000000 // getContribution(address,address)
)

type configurator struct{}

func init() {
	if err := modules.RegisterModule(Module); err != nil {
		panic(err)
	}
}

func (*configurator) MakeConfig() precompileconfig.Config {
	return new(Config)
}

func (*configurator) Configure(
	chainConfig precompileconfig.ChainConfig,
	cfg precompileconfig.Config,
	state contract.StateDB,
	blockContext contract.ConfigurationBlockContext,
) error {
	config, ok := cfg.(*Config)
	if !ok {
		return fmt.Errorf("expected config type %T, got %T: %v", &Config{}, cfg, cfg)
	}

	LaunchpadPrecompile.escrow.SetMinSaleDuration(config.MinSaleDuration)
	return nil
}

// Config implements the precompileconfig.Config interface
type Config struct {
	Upgrade precompileconfig.Upgrade `json:"upgrade,omitempty"`

	// MinSaleDuration is the shortest sale window the escrow accepts,
	// in seconds. Zero allows any window that ends in the future.
	MinSaleDuration uint64 `json:"minSaleDuration,omitempty"`
}

func (c *Config) Key() string {
	return ConfigKey
}

func (c *Config) Timestamp() *uint64 {
	return c.Upgrade.Timestamp()
}

func (c *Config) IsDisabled() bool {
	return c.Upgrade.Disable
}

func (c *Config) Equal(cfg precompileconfig.Config) bool {
	other, ok := cfg.(*Config)
	if !ok {
		return false
	}
	return c.Upgrade.Equal(&other.Upgrade) && c.MinSaleDuration == other.MinSaleDuration
}

func (c *Config) Verify(chainConfig precompileconfig.ChainConfig) error {
	return nil
}

// LaunchpadContract implements the pre-sale escrow precompile
type LaunchpadContract struct {
	escrow *Escrow
}

// Run executes the precompile
func (c *LaunchpadContract) Run(
	accessibleState contract.AccessibleState,
	caller common.Address,
	addr common.Address,
	input []byte,
	suppliedGas uint64,
	readOnly bool,
) (ret []byte, remainingGas uint64, err error) {
	if len(input) < 4 {
		return nil, suppliedGas, contract.ErrInputTooShort
	}

	selector := binary.BigEndian.Uint32(input[:4])
	data := input[4:]

	switch selector {
	case SelectorCreateSale:
		return c.runCreateSale(accessibleState, caller, data, suppliedGas, readOnly)
	case SelectorContribute:
		return c.runContribute(accessibleState, caller, data, suppliedGas, readOnly)
	case SelectorOpenMarket:
		return c.runOpenMarket(accessibleState, caller, data, suppliedGas, readOnly)
	case SelectorRedeem:
		return c.runRedeem(accessibleState, caller, data, suppliedGas, readOnly)
	case SelectorGetSale:
		return c.runGetSale(accessibleState, data, suppliedGas)
	case SelectorGetContribution:
		return c.runGetContribution(accessibleState, data, suppliedGas)
	default:
		return nil, suppliedGas, fmt.Errorf("unknown method selector: %x", selector)
	}
}

func (c *LaunchpadContract) runCreateSale(
	state contract.AccessibleState,
	caller common.Address,
	input []byte,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrCannotReadOnly
	}
	remainingGas, err := contract.DeductGas(suppliedGas, GasSaleCreate)
	if err != nil {
		return nil, 0, err
	}
	if len(input) < 2*contract.WordLength {
		return nil, remainingGas, contract.ErrInputTooShort
	}

	stateDB := state.GetStateDB()
	snapshot := stateDB.Snapshot()
	if err := c.escrow.CreateSale(newStateAdapter(state), wordAddr(input, 0), caller, wordTimestamp(input, 1)); err != nil {
		stateDB.RevertToSnapshot(snapshot)
		return nil, remainingGas, err
	}
	return contract.PackedBool(true), remainingGas, nil
}

func (c *LaunchpadContract) runContribute(
	state contract.AccessibleState,
	caller common.Address,
	input []byte,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrCannotReadOnly
	}
	remainingGas, err := contract.DeductGas(suppliedGas, GasContribute)
	if err != nil {
		return nil, 0, err
	}
	if len(input) < 2*contract.WordLength {
		return nil, remainingGas, contract.ErrInputTooShort
	}

	stateDB := state.GetStateDB()
	snapshot := stateDB.Snapshot()
	if err := c.escrow.Contribute(newStateAdapter(state), wordAddr(input, 0), caller, wordBig(input, 1)); err != nil {
		stateDB.RevertToSnapshot(snapshot)
		return nil, remainingGas, err
	}
	return contract.PackedBool(true), remainingGas, nil
}

func (c *LaunchpadContract) runOpenMarket(
	state contract.AccessibleState,
	caller common.Address,
	input []byte,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrCannotReadOnly
	}
	remainingGas, err := contract.DeductGas(suppliedGas, GasSaleOpen)
	if err != nil {
		return nil, 0, err
	}
	if len(input) < contract.WordLength {
		return nil, remainingGas, contract.ErrInputTooShort
	}

	stateDB := state.GetStateDB()
	snapshot := stateDB.Snapshot()
	tokensReceived, err := c.escrow.OpenMarket(newStateAdapter(state), wordAddr(input, 0), caller)
	if err != nil {
		stateDB.RevertToSnapshot(snapshot)
		return nil, remainingGas, err
	}
	return contract.PackedWord(tokensReceived.Bytes()), remainingGas, nil
}

func (c *LaunchpadContract) runRedeem(
	state contract.AccessibleState,
	caller common.Address,
	input []byte,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrCannotReadOnly
	}
	remainingGas, err := contract.DeductGas(suppliedGas, GasRedeem)
	if err != nil {
		return nil, 0, err
	}
	if len(input) < 2*contract.WordLength {
		return nil, remainingGas, contract.ErrInputTooShort
	}

	stateDB := state.GetStateDB()
	snapshot := stateDB.Snapshot()
	amount, err := c.escrow.Redeem(newStateAdapter(state), wordAddr(input, 0), caller, wordAddr(input, 1))
	if err != nil {
		stateDB.RevertToSnapshot(snapshot)
		return nil, remainingGas, err
	}
	return contract.PackedWord(amount.Bytes()), remainingGas, nil
}

func (c *LaunchpadContract) runGetSale(
	state contract.AccessibleState,
	input []byte,
	suppliedGas uint64,
) ([]byte, uint64, error) {
	remainingGas, err := contract.DeductGas(suppliedGas, GasSaleLookup)
	if err != nil {
		return nil, 0, err
	}
	if len(input) < contract.WordLength {
		return nil, remainingGas, contract.ErrInputTooShort
	}

	s, err := c.escrow.GetSale(newStateAdapter(state), wordAddr(input, 0))
	if err != nil {
		return nil, remainingGas, err
	}
	return EncodeSaleState(s), remainingGas, nil
}

func (c *LaunchpadContract) runGetContribution(
	state contract.AccessibleState,
	input []byte,
	suppliedGas uint64,
) ([]byte, uint64, error) {
	remainingGas, err := contract.DeductGas(suppliedGas, GasSaleLookup)
	if err != nil {
		return nil, 0, err
	}
	if len(input) < 2*contract.WordLength {
		return nil, remainingGas, contract.ErrInputTooShort
	}

	contributed := c.escrow.GetContribution(newStateAdapter(state), wordAddr(input, 0), wordAddr(input, 1))
	return contract.PackedWord(contributed.Bytes()), remainingGas, nil
}

// RequiredGas returns the gas required for the precompile input
func (c *LaunchpadContract) RequiredGas(input []byte) uint64 {
	if len(input) < 4 {
		return GasSaleOpen
	}

	selector := binary.BigEndian.Uint32(input[:4])
	switch selector {
	case SelectorCreateSale:
		return GasSaleCreate
	case SelectorContribute:
		return GasContribute
	case SelectorOpenMarket:
		return GasSaleOpen
	case SelectorRedeem:
		return GasRedeem
	case SelectorGetSale, SelectorGetContribution:
		return GasSaleLookup
	default:
		return GasSaleOpen
	}
}

// EncodeSaleState encodes sale state for return: creator, endTimestamp,
// flags, totalContributed, tokensReceived. Five words.
func EncodeSaleState(s *Sale) []byte {
	result := make([]byte, 0, 5*contract.WordLength)

	result = append(result, contract.PackedWord(s.Creator.Bytes())...)
	result = append(result, contract.PackedWord(new(big.Int).SetUint64(s.EndTimestamp).Bytes())...)

	var flags byte
	if s.Ended {
		flags |= flagEnded
	}
	result = append(result, contract.PackedWord([]byte{flags})...)

	result = append(result, contract.PackedWord(s.TotalContributed.Bytes())...)
	result = append(result, contract.PackedWord(s.TokensReceived.Bytes())...)
	return result
}

// Input word helpers. Callers bounds-check input length first.

func wordBig(input []byte, i int) *big.Int {
	return new(big.Int).SetBytes(input[i*contract.WordLength : (i+1)*contract.WordLength])
}

func wordAddr(input []byte, i int) common.Address {
	return common.BytesToAddress(input[i*contract.WordLength : (i+1)*contract.WordLength])
}

// wordTimestamp reads a timestamp word, clamping values beyond uint64 to
// the far future.
func wordTimestamp(input []byte, i int) uint64 {
	t := wordBig(input, i)
	if !t.IsUint64() {
		return math.MaxUint64
	}
	return t.Uint64()
}

// stateAdapter narrows contract.StateDB plus the block context to the
// engine's StateDB interface.
type stateAdapter struct {
	stateDB contract.StateDB
	block   contract.BlockContext
}

func newStateAdapter(state contract.AccessibleState) *stateAdapter {
	return &stateAdapter{
		stateDB: state.GetStateDB(),
		block:   state.GetBlockContext(),
	}
}

func (a *stateAdapter) GetState(addr common.Address, key common.Hash) common.Hash {
	return a.stateDB.GetState(addr, key)
}

func (a *stateAdapter) SetState(addr common.Address, key common.Hash, value common.Hash) {
	a.stateDB.SetState(addr, key, value)
}

func (a *stateAdapter) GetBalance(addr common.Address) *uint256.Int {
	return a.stateDB.GetBalance(addr)
}

func (a *stateAdapter) AddBalance(addr common.Address, amount *uint256.Int) {
	a.stateDB.AddBalance(addr, amount, tracing.BalanceChangeUnspecified)
}

func (a *stateAdapter) SubBalance(addr common.Address, amount *uint256.Int) {
	a.stateDB.SubBalance(addr, amount, tracing.BalanceChangeUnspecified)
}

func (a *stateAdapter) AddLog(log *types.Log) {
	a.stateDB.AddLog(log)
}

func (a *stateAdapter) GetBlockNumber() uint64 {
	return a.block.Number().Uint64()
}

func (a *stateAdapter) GetTimestamp() uint64 {
	return a.block.Timestamp()
}
