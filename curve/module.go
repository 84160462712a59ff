// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package curve

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
	"github.com/luxfi/curve/modules"
	"github.com/luxfi/curve/precompileconfig"
)

var _ contract.Configurator = (*configurator)(nil)
var _ contract.StatefulPrecompiledContract = (*CurveContract)(nil)

// ConfigKey is the key used in json config files to specify this precompile config.
const ConfigKey = "curveConfig"

// ContractAddress is the precompile address (LP-9210 LXCurve).
var ContractAddress = common.HexToAddress(LXCurveAddress)

// CurvePrecompile is the singleton instance
var CurvePrecompile = &CurveContract{ledger: NewLedger()}

// Module is the precompile module (LXCurve at 0x9210)
var Module = modules.Module{
	ConfigKey:    ConfigKey,
	Address:      ContractAddress,
	Contract:     CurvePrecompile,
	Configurator: &configurator{},
}

// Method selectors for LXCurve
const (
	SelectorCreateMarket uint32 = 0x01000000 // createMarket(bytes32,address,uint256,uint256)
	SelectorBuy          uint32 = 0x02000000 // buy(address,uint256,uint256,uint256,address,address)
	SelectorSell         uint32 = 0x03000000 // sell(address,uint256,uint256,uint256,address,address)
	SelectorHeal         uint32 = 0x04000000 // heal(address,uint256)
	SelectorBurn         uint32 = 0x05000000 // burn(address,uint256)
	SelectorBorrow       uint32 = 0x06000000 // borrow(address,address,uint256)
	SelectorRepay        uint32 = 0x07000000 // repay(address,address,uint256)
	SelectorOpenMarket   uint32 = 0x08000000 // openMarket(address)
	SelectorTransfer     uint32 = 0x09000000 // transfer(address,address,uint256)
	SelectorSetOwnerFee  uint32 = 0x0a000000 // setOwnerFeeActive(address,bool)
	SelectorSetOwner     uint32 = 0x0b000000 // setMarketOwner(address,address)

	SelectorBalanceOf        uint32 = 0x10000000 // balanceOf(address,address)
	SelectorGetMarket        uint32 = 0x11000000 // getMarket(address)
	SelectorGetMarketPrice   uint32 = 0x12000000 // getMarketPrice(address)
	SelectorGetFloorPrice    uint32 = 0x13000000 // getFloorPrice(address)
	SelectorGetCredit        uint32 = 0x14000000 // getAccountCredit(address,address)
	SelectorGetTransferrable uint32 = 0x15000000 // getAccountTransferrable(address,address)
	SelectorGetDebt          uint32 = 0x16000000 // getAccountDebt(address,address)
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

	if config.Treasury != (common.Address{}) {
		CurvePrecompile.ledger.SetTreasury(config.Treasury)
	}

	return nil
}

// Config implements the precompileconfig.Config interface
type Config struct {
	Upgrade  precompileconfig.Upgrade `json:"upgrade,omitempty"`
	Treasury common.Address           `json:"treasury,omitempty"`
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
	return c.Upgrade.Equal(&other.Upgrade) && c.Treasury == other.Treasury
}

func (c *Config) Verify(chainConfig precompileconfig.ChainConfig) error {
	return nil
}

// CurveContract implements the launch-market precompile
type CurveContract struct {
	ledger *Ledger
}

// Ledger exposes the market engine to sibling precompiles, such as the
// pre-sale escrow that performs the bootstrap buy.
func (c *CurveContract) Ledger() *Ledger {
	return c.ledger
}

// Run executes the precompile
func (c *CurveContract) Run(
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
	case SelectorCreateMarket:
		return c.runCreateMarket(accessibleState, caller, data, suppliedGas, readOnly)
	case SelectorBuy:
		return c.runBuy(accessibleState, caller, data, suppliedGas, readOnly)
	case SelectorSell:
		return c.runSell(accessibleState, caller, data, suppliedGas, readOnly)
	case SelectorHeal:
		return c.runHeal(accessibleState, caller, data, suppliedGas, readOnly)
	case SelectorBurn:
		return c.runBurn(accessibleState, caller, data, suppliedGas, readOnly)
	case SelectorBorrow:
		return c.runBorrow(accessibleState, caller, data, suppliedGas, readOnly)
	case SelectorRepay:
		return c.runRepay(accessibleState, caller, data, suppliedGas, readOnly)
	case SelectorOpenMarket:
		return c.runOpenMarket(accessibleState, caller, data, suppliedGas, readOnly)
	case SelectorTransfer:
		return c.runTransfer(accessibleState, caller, data, suppliedGas, readOnly)
	case SelectorSetOwnerFee:
		return c.runSetOwnerFee(accessibleState, caller, data, suppliedGas, readOnly)
	case SelectorSetOwner:
		return c.runSetOwner(accessibleState, caller, data, suppliedGas, readOnly)
	case SelectorBalanceOf, SelectorGetCredit, SelectorGetTransferrable, SelectorGetDebt:
		return c.runAccountView(accessibleState, selector, data, suppliedGas)
	case SelectorGetMarket, SelectorGetMarketPrice, SelectorGetFloorPrice:
		return c.runMarketView(accessibleState, selector, data, suppliedGas)
	default:
		return nil, suppliedGas, fmt.Errorf("unknown method selector: %x", selector)
	}
}

func (c *CurveContract) runCreateMarket(
	state contract.AccessibleState,
	caller common.Address,
	input []byte,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrCannotReadOnly
	}
	remainingGas, err := contract.DeductGas(suppliedGas, GasMarketCreate)
	if err != nil {
		return nil, 0, err
	}
	if len(input) < 4*contract.WordLength {
		return nil, remainingGas, contract.ErrInputTooShort
	}

	params := MarketParams{
		Symbol:       wordSymbol(input, 0),
		Escrow:       wordAddr(input, 1),
		VirtualQuote: wordBig(input, 2),
		TokenSupply:  wordBig(input, 3),
	}

	stateDB := state.GetStateDB()
	snapshot := stateDB.Snapshot()
	token, err := c.ledger.CreateMarket(newStateAdapter(state), caller, params)
	if err != nil {
		stateDB.RevertToSnapshot(snapshot)
		return nil, remainingGas, err
	}
	return contract.PackedWord(token.Bytes()), remainingGas, nil
}

func (c *CurveContract) runBuy(
	state contract.AccessibleState,
	caller common.Address,
	input []byte,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrCannotReadOnly
	}
	remainingGas, err := contract.DeductGas(suppliedGas, GasBuy)
	if err != nil {
		return nil, 0, err
	}
	if len(input) < 6*contract.WordLength {
		return nil, remainingGas, contract.ErrInputTooShort
	}

	stateDB := state.GetStateDB()
	snapshot := stateDB.Snapshot()
	tokenOut, err := c.ledger.Buy(
		newStateAdapter(state),
		wordAddr(input, 0), // token
		caller,
		wordBig(input, 1),      // quoteIn
		wordBig(input, 2),      // minTokenOut
		wordDeadline(input, 3), // deadline
		wordAddr(input, 4),     // to
		wordAddr(input, 5),     // provider
	)
	if err != nil {
		stateDB.RevertToSnapshot(snapshot)
		return nil, remainingGas, err
	}
	return contract.PackedWord(tokenOut.Bytes()), remainingGas, nil
}

func (c *CurveContract) runSell(
	state contract.AccessibleState,
	caller common.Address,
	input []byte,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrCannotReadOnly
	}
	remainingGas, err := contract.DeductGas(suppliedGas, GasSell)
	if err != nil {
		return nil, 0, err
	}
	if len(input) < 6*contract.WordLength {
		return nil, remainingGas, contract.ErrInputTooShort
	}

	stateDB := state.GetStateDB()
	snapshot := stateDB.Snapshot()
	quoteOut, err := c.ledger.Sell(
		newStateAdapter(state),
		wordAddr(input, 0), // token
		caller,
		wordBig(input, 1),      // tokenIn
		wordBig(input, 2),      // minQuoteOut
		wordDeadline(input, 3), // deadline
		wordAddr(input, 4),     // to
		wordAddr(input, 5),     // provider
	)
	if err != nil {
		stateDB.RevertToSnapshot(snapshot)
		return nil, remainingGas, err
	}
	return contract.PackedWord(quoteOut.Bytes()), remainingGas, nil
}

func (c *CurveContract) runHeal(
	state contract.AccessibleState,
	caller common.Address,
	input []byte,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrCannotReadOnly
	}
	remainingGas, err := contract.DeductGas(suppliedGas, GasHeal)
	if err != nil {
		return nil, 0, err
	}
	if len(input) < 2*contract.WordLength {
		return nil, remainingGas, contract.ErrInputTooShort
	}

	stateDB := state.GetStateDB()
	snapshot := stateDB.Snapshot()
	if err := c.ledger.Heal(newStateAdapter(state), wordAddr(input, 0), caller, wordBig(input, 1)); err != nil {
		stateDB.RevertToSnapshot(snapshot)
		return nil, remainingGas, err
	}
	return contract.PackedBool(true), remainingGas, nil
}

func (c *CurveContract) runBurn(
	state contract.AccessibleState,
	caller common.Address,
	input []byte,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrCannotReadOnly
	}
	remainingGas, err := contract.DeductGas(suppliedGas, GasBurn)
	if err != nil {
		return nil, 0, err
	}
	if len(input) < 2*contract.WordLength {
		return nil, remainingGas, contract.ErrInputTooShort
	}

	stateDB := state.GetStateDB()
	snapshot := stateDB.Snapshot()
	if err := c.ledger.Burn(newStateAdapter(state), wordAddr(input, 0), caller, wordBig(input, 1)); err != nil {
		stateDB.RevertToSnapshot(snapshot)
		return nil, remainingGas, err
	}
	return contract.PackedBool(true), remainingGas, nil
}

func (c *CurveContract) runBorrow(
	state contract.AccessibleState,
	caller common.Address,
	input []byte,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrCannotReadOnly
	}
	remainingGas, err := contract.DeductGas(suppliedGas, GasBorrow)
	if err != nil {
		return nil, 0, err
	}
	if len(input) < 3*contract.WordLength {
		return nil, remainingGas, contract.ErrInputTooShort
	}

	stateDB := state.GetStateDB()
	snapshot := stateDB.Snapshot()
	if err := c.ledger.Borrow(newStateAdapter(state), wordAddr(input, 0), caller, wordAddr(input, 1), wordBig(input, 2)); err != nil {
		stateDB.RevertToSnapshot(snapshot)
		return nil, remainingGas, err
	}
	return contract.PackedBool(true), remainingGas, nil
}

func (c *CurveContract) runRepay(
	state contract.AccessibleState,
	caller common.Address,
	input []byte,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrCannotReadOnly
	}
	remainingGas, err := contract.DeductGas(suppliedGas, GasRepay)
	if err != nil {
		return nil, 0, err
	}
	if len(input) < 3*contract.WordLength {
		return nil, remainingGas, contract.ErrInputTooShort
	}

	stateDB := state.GetStateDB()
	snapshot := stateDB.Snapshot()
	if err := c.ledger.Repay(newStateAdapter(state), wordAddr(input, 0), caller, wordAddr(input, 1), wordBig(input, 2)); err != nil {
		stateDB.RevertToSnapshot(snapshot)
		return nil, remainingGas, err
	}
	return contract.PackedBool(true), remainingGas, nil
}

func (c *CurveContract) runOpenMarket(
	state contract.AccessibleState,
	caller common.Address,
	input []byte,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrCannotReadOnly
	}
	remainingGas, err := contract.DeductGas(suppliedGas, GasMarketOpen)
	if err != nil {
		return nil, 0, err
	}
	if len(input) < contract.WordLength {
		return nil, remainingGas, contract.ErrInputTooShort
	}

	stateDB := state.GetStateDB()
	snapshot := stateDB.Snapshot()
	if err := c.ledger.OpenMarket(newStateAdapter(state), wordAddr(input, 0), caller); err != nil {
		stateDB.RevertToSnapshot(snapshot)
		return nil, remainingGas, err
	}
	return contract.PackedBool(true), remainingGas, nil
}

func (c *CurveContract) runTransfer(
	state contract.AccessibleState,
	caller common.Address,
	input []byte,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrCannotReadOnly
	}
	remainingGas, err := contract.DeductGas(suppliedGas, GasTokenTransfer)
	if err != nil {
		return nil, 0, err
	}
	if len(input) < 3*contract.WordLength {
		return nil, remainingGas, contract.ErrInputTooShort
	}

	stateDB := state.GetStateDB()
	snapshot := stateDB.Snapshot()
	if err := c.ledger.TransferToken(newStateAdapter(state), wordAddr(input, 0), caller, wordAddr(input, 1), wordBig(input, 2)); err != nil {
		stateDB.RevertToSnapshot(snapshot)
		return nil, remainingGas, err
	}
	return contract.PackedBool(true), remainingGas, nil
}

func (c *CurveContract) runSetOwnerFee(
	state contract.AccessibleState,
	caller common.Address,
	input []byte,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrCannotReadOnly
	}
	remainingGas, err := contract.DeductGas(suppliedGas, GasOwnerFeeSet)
	if err != nil {
		return nil, 0, err
	}
	if len(input) < 2*contract.WordLength {
		return nil, remainingGas, contract.ErrInputTooShort
	}

	active := wordBig(input, 1).Sign() != 0
	stateDB := state.GetStateDB()
	snapshot := stateDB.Snapshot()
	if err := c.ledger.SetOwnerFeeActive(newStateAdapter(state), wordAddr(input, 0), caller, active); err != nil {
		stateDB.RevertToSnapshot(snapshot)
		return nil, remainingGas, err
	}
	return contract.PackedBool(true), remainingGas, nil
}

func (c *CurveContract) runSetOwner(
	state contract.AccessibleState,
	caller common.Address,
	input []byte,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrCannotReadOnly
	}
	remainingGas, err := contract.DeductGas(suppliedGas, GasOwnerFeeSet)
	if err != nil {
		return nil, 0, err
	}
	if len(input) < 2*contract.WordLength {
		return nil, remainingGas, contract.ErrInputTooShort
	}

	stateDB := state.GetStateDB()
	snapshot := stateDB.Snapshot()
	if err := c.ledger.SetMarketOwner(newStateAdapter(state), wordAddr(input, 0), caller, wordAddr(input, 1)); err != nil {
		stateDB.RevertToSnapshot(snapshot)
		return nil, remainingGas, err
	}
	return contract.PackedBool(true), remainingGas, nil
}

func (c *CurveContract) runAccountView(
	state contract.AccessibleState,
	selector uint32,
	input []byte,
	suppliedGas uint64,
) ([]byte, uint64, error) {
	remainingGas, err := contract.DeductGas(suppliedGas, GasMarketLookup)
	if err != nil {
		return nil, 0, err
	}
	if len(input) < 2*contract.WordLength {
		return nil, remainingGas, contract.ErrInputTooShort
	}

	adapter := newStateAdapter(state)
	token := wordAddr(input, 0)
	account := wordAddr(input, 1)

	var value *big.Int
	switch selector {
	case SelectorBalanceOf:
		value = c.ledger.BalanceOf(adapter, token, account)
	case SelectorGetDebt:
		value = c.ledger.GetAccountDebt(adapter, token, account)
	case SelectorGetCredit:
		value, err = c.ledger.GetAccountCredit(adapter, token, account)
	case SelectorGetTransferrable:
		value, err = c.ledger.GetAccountTransferrable(adapter, token, account)
	}
	if err != nil {
		return nil, remainingGas, err
	}
	return contract.PackedWord(value.Bytes()), remainingGas, nil
}

func (c *CurveContract) runMarketView(
	state contract.AccessibleState,
	selector uint32,
	input []byte,
	suppliedGas uint64,
) ([]byte, uint64, error) {
	remainingGas, err := contract.DeductGas(suppliedGas, GasMarketLookup)
	if err != nil {
		return nil, 0, err
	}
	if len(input) < contract.WordLength {
		return nil, remainingGas, contract.ErrInputTooShort
	}

	adapter := newStateAdapter(state)
	token := wordAddr(input, 0)

	switch selector {
	case SelectorGetMarket:
		m, err := c.ledger.GetMarket(adapter, token)
		if err != nil {
			return nil, remainingGas, err
		}
		return EncodeMarketState(m), remainingGas, nil
	case SelectorGetMarketPrice:
		price, err := c.ledger.GetMarketPrice(adapter, token)
		if err != nil {
			return nil, remainingGas, err
		}
		return contract.PackedWord(price.Bytes()), remainingGas, nil
	default:
		floor, err := c.ledger.GetFloorPrice(adapter, token)
		if err != nil {
			return nil, remainingGas, err
		}
		return contract.PackedWord(floor.Bytes()), remainingGas, nil
	}
}

// RequiredGas returns the gas required for the precompile input
func (c *CurveContract) RequiredGas(input []byte) uint64 {
	if len(input) < 4 {
		return GasBuy
	}

	selector := binary.BigEndian.Uint32(input[:4])
	switch selector {
	case SelectorCreateMarket:
		return GasMarketCreate
	case SelectorBuy:
		return GasBuy
	case SelectorSell:
		return GasSell
	case SelectorHeal:
		return GasHeal
	case SelectorBurn:
		return GasBurn
	case SelectorBorrow:
		return GasBorrow
	case SelectorRepay:
		return GasRepay
	case SelectorOpenMarket:
		return GasMarketOpen
	case SelectorTransfer:
		return GasTokenTransfer
	case SelectorSetOwnerFee, SelectorSetOwner:
		return GasOwnerFeeSet
	case SelectorBalanceOf, SelectorGetMarket, SelectorGetMarketPrice,
		SelectorGetFloorPrice, SelectorGetCredit, SelectorGetTransferrable, SelectorGetDebt:
		return GasMarketLookup
	default:
		return GasBuy
	}
}

// EncodeMarketState encodes market state for return: symbol, creator, owner,
// escrow, flags, maxSupply, reserveTokenSupply, reserveVirtualQuote,
// reserveRealQuote, totalDebt. Ten words.
func EncodeMarketState(m *Market) []byte {
	result := make([]byte, 0, 10*contract.WordLength)

	var symbolWord [contract.WordLength]byte
	copy(symbolWord[:], m.Symbol)
	result = append(result, symbolWord[:]...)

	result = append(result, contract.PackedWord(m.Creator.Bytes())...)
	result = append(result, contract.PackedWord(m.Owner.Bytes())...)
	result = append(result, contract.PackedWord(m.Escrow.Bytes())...)

	var flags byte
	if m.Open {
		flags |= flagOpen
	}
	if m.OwnerFeeActive {
		flags |= flagOwnerFeeActive
	}
	result = append(result, contract.PackedWord([]byte{flags})...)

	result = append(result, contract.PackedWord(m.MaxSupply.Bytes())...)
	result = append(result, contract.PackedWord(m.ReserveTokenSupply.Bytes())...)
	result = append(result, contract.PackedWord(m.ReserveVirtualQuote.Bytes())...)
	result = append(result, contract.PackedWord(m.ReserveRealQuote.Bytes())...)
	result = append(result, contract.PackedWord(m.TotalDebt.Bytes())...)
	return result
}

// Input word helpers. Callers bounds-check input length first.

func wordBig(input []byte, i int) *big.Int {
	return new(big.Int).SetBytes(input[i*contract.WordLength : (i+1)*contract.WordLength])
}

func wordAddr(input []byte, i int) common.Address {
	return common.BytesToAddress(input[i*contract.WordLength : (i+1)*contract.WordLength])
}

func wordSymbol(input []byte, i int) string {
	word := input[i*contract.WordLength : (i+1)*contract.WordLength]
	end := len(word)
	for end > 0 && word[end-1] == 0 {
		end--
	}
	return string(word[:end])
}

// wordDeadline reads a deadline word, clamping values beyond uint64 to the
// far future.
func wordDeadline(input []byte, i int) uint64 {
	d := wordBig(input, i)
	if !d.IsUint64() {
		return math.MaxUint64
	}
	return d.Uint64()
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
