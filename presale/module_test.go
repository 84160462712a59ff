// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package presale

import (
	"encoding/binary"
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/tracing"
	ethtypes "github.com/luxfi/geth/core/types"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/curve/contract"
	"github.com/luxfi/curve/curve"
	"github.com/luxfi/curve/modules"
	"github.com/luxfi/curve/precompileconfig"
)

// vmStateDB implements contract.StateDB with copy-on-snapshot semantics so
// the dispatch rollback path can be exercised for real.
type vmStateDB struct {
	storage   map[common.Address]map[common.Hash]common.Hash
	balances  map[common.Address]*uint256.Int
	nonces    map[common.Address]uint64
	logs      []*ethtypes.Log
	snapshots []vmSnapshot
}

type vmSnapshot struct {
	storage  map[common.Address]map[common.Hash]common.Hash
	balances map[common.Address]*uint256.Int
	logCount int
}

func newVMStateDB() *vmStateDB {
	return &vmStateDB{
		storage:  make(map[common.Address]map[common.Hash]common.Hash),
		balances: make(map[common.Address]*uint256.Int),
		nonces:   make(map[common.Address]uint64),
	}
}

func (m *vmStateDB) GetState(addr common.Address, key common.Hash) common.Hash {
	if m.storage[addr] == nil {
		return common.Hash{}
	}
	return m.storage[addr][key]
}

func (m *vmStateDB) SetState(addr common.Address, key, value common.Hash) common.Hash {
	if m.storage[addr] == nil {
		m.storage[addr] = make(map[common.Hash]common.Hash)
	}
	prev := m.storage[addr][key]
	m.storage[addr][key] = value
	return prev
}

func (m *vmStateDB) GetBalance(addr common.Address) *uint256.Int {
	if bal, ok := m.balances[addr]; ok {
		return bal.Clone()
	}
	return uint256.NewInt(0)
}

func (m *vmStateDB) AddBalance(addr common.Address, amount *uint256.Int, _ tracing.BalanceChangeReason) uint256.Int {
	if m.balances[addr] == nil {
		m.balances[addr] = uint256.NewInt(0)
	}
	prev := m.balances[addr].Clone()
	m.balances[addr] = new(uint256.Int).Add(m.balances[addr], amount)
	return *prev
}

func (m *vmStateDB) SubBalance(addr common.Address, amount *uint256.Int, _ tracing.BalanceChangeReason) uint256.Int {
	if m.balances[addr] == nil {
		m.balances[addr] = uint256.NewInt(0)
	}
	prev := m.balances[addr].Clone()
	m.balances[addr] = new(uint256.Int).Sub(m.balances[addr], amount)
	return *prev
}

func (m *vmStateDB) GetBalanceMultiCoin(common.Address, common.Hash) *big.Int {
	return big.NewInt(0)
}

func (m *vmStateDB) AddBalanceMultiCoin(common.Address, common.Hash, *big.Int) {}
func (m *vmStateDB) SubBalanceMultiCoin(common.Address, common.Hash, *big.Int) {}

func (m *vmStateDB) GetNonce(addr common.Address) uint64 { return m.nonces[addr] }
func (m *vmStateDB) SetNonce(addr common.Address, nonce uint64, _ tracing.NonceChangeReason) {
	m.nonces[addr] = nonce
}

func (m *vmStateDB) CreateAccount(common.Address) {}
func (m *vmStateDB) Exist(common.Address) bool    { return true }
func (m *vmStateDB) AddLog(log *ethtypes.Log)     { m.logs = append(m.logs, log) }
func (m *vmStateDB) Logs() []*ethtypes.Log        { return m.logs }
func (m *vmStateDB) TxHash() common.Hash          { return common.Hash{} }
func (m *vmStateDB) GetPredicateStorageSlots(common.Address, int) ([]byte, bool) {
	return nil, false
}

func (m *vmStateDB) Snapshot() int {
	storage := make(map[common.Address]map[common.Hash]common.Hash, len(m.storage))
	for addr, slots := range m.storage {
		copied := make(map[common.Hash]common.Hash, len(slots))
		for k, v := range slots {
			copied[k] = v
		}
		storage[addr] = copied
	}
	balances := make(map[common.Address]*uint256.Int, len(m.balances))
	for addr, bal := range m.balances {
		balances[addr] = bal.Clone()
	}
	m.snapshots = append(m.snapshots, vmSnapshot{storage: storage, balances: balances, logCount: len(m.logs)})
	return len(m.snapshots) - 1
}

func (m *vmStateDB) RevertToSnapshot(id int) {
	snap := m.snapshots[id]
	m.storage = snap.storage
	m.balances = snap.balances
	m.logs = m.logs[:snap.logCount]
	m.snapshots = m.snapshots[:id]
}

type testBlockContext struct {
	number    *big.Int
	timestamp uint64
}

func (c *testBlockContext) Number() *big.Int  { return c.number }
func (c *testBlockContext) Timestamp() uint64 { return c.timestamp }

type testAccessibleState struct {
	stateDB *vmStateDB
	block   *testBlockContext
}

func newTestAccessibleState() *testAccessibleState {
	return &testAccessibleState{
		stateDB: newVMStateDB(),
		block:   &testBlockContext{number: big.NewInt(1), timestamp: 1000},
	}
}

func (s *testAccessibleState) GetStateDB() contract.StateDB            { return s.stateDB }
func (s *testAccessibleState) GetBlockContext() contract.BlockContext { return s.block }
func (s *testAccessibleState) GetChainConfig() precompileconfig.ChainConfig {
	return nil
}

func setVMBalance(state *testAccessibleState, addr common.Address, amount *big.Int) {
	u256, _ := uint256.FromBig(amount)
	state.stateDB.balances[addr] = u256
}

func packInput(selector uint32, words ...[]byte) []byte {
	input := make([]byte, 4, 4+len(words)*contract.WordLength)
	binary.BigEndian.PutUint32(input, selector)
	for _, w := range words {
		input = append(input, contract.PackedWord(w)...)
	}
	return input
}

// newTestLaunchpad wires a fresh launchpad to a fresh market ledger and
// creates a closed market whose escrow is the launchpad precompile.
func newTestLaunchpad(t *testing.T, state *testAccessibleState) (*LaunchpadContract, *curve.Ledger, common.Address) {
	t.Helper()
	l := curve.NewLedger()
	lp := &LaunchpadContract{escrow: NewEscrow(l)}
	token, err := l.CreateMarket(newStateAdapter(state), testCreator, curve.MarketParams{
		Symbol:       "LAUNCH",
		Escrow:       ContractAddress,
		VirtualQuote: testVirtual,
		TokenSupply:  testSupply,
	})
	require.NoError(t, err)
	return lp, l, token
}

// =========================================================================
// Dispatch Tests
// =========================================================================

func TestLaunchpadContract_Lifecycle(t *testing.T) {
	state := newTestAccessibleState()
	lp, l, token := newTestLaunchpad(t, state)

	// Register the sale.
	input := packInput(SelectorCreateSale, token.Bytes(), new(big.Int).SetUint64(testSaleEnd).Bytes())
	ret, remaining, err := lp.Run(state, testCreator, ContractAddress, input, GasSaleCreate, false)
	require.NoError(t, err)
	require.Equal(t, uint64(0), remaining)
	require.Equal(t, contract.PackedBool(true), ret)

	// Contribute 1 quote.
	amount := bigInt("1000000000000000000")
	setVMBalance(state, testAlice, amount)
	input = packInput(SelectorContribute, token.Bytes(), amount.Bytes())
	ret, remaining, err = lp.Run(state, testAlice, ContractAddress, input, GasContribute, false)
	require.NoError(t, err)
	require.Equal(t, uint64(0), remaining)
	require.Equal(t, contract.PackedBool(true), ret)
	require.True(t, state.stateDB.GetBalance(testAlice).IsZero())
	require.Equal(t, uint256.MustFromBig(amount), state.stateDB.GetBalance(ContractAddress))

	// Contribution is visible through the view, in read-only mode.
	input = packInput(SelectorGetContribution, token.Bytes(), testAlice.Bytes())
	ret, _, err = lp.Run(state, testOther, ContractAddress, input, GasSaleLookup, true)
	require.NoError(t, err)
	require.Equal(t, amount, new(big.Int).SetBytes(ret))

	// Finalize after the window: bootstrap buy plus market open.
	state.block.timestamp = testSaleEnd
	input = packInput(SelectorOpenMarket, token.Bytes())
	ret, remaining, err = lp.Run(state, testOther, ContractAddress, input, GasSaleOpen, false)
	require.NoError(t, err)
	require.Equal(t, uint64(0), remaining)
	tokensReceived := new(big.Int).SetBytes(ret)
	require.Positive(t, tokensReceived.Sign())

	m, err := l.GetMarket(newStateAdapter(state), token)
	require.NoError(t, err)
	require.True(t, m.Open)
	require.Equal(t, 0, m.TotalSupply().Cmp(tokensReceived))

	// Redeem the sole contribution.
	input = packInput(SelectorRedeem, token.Bytes(), testAlice.Bytes())
	ret, remaining, err = lp.Run(state, testAlice, ContractAddress, input, GasRedeem, false)
	require.NoError(t, err)
	require.Equal(t, uint64(0), remaining)
	require.Equal(t, tokensReceived, new(big.Int).SetBytes(ret))
	require.Equal(t, 0, l.BalanceOf(newStateAdapter(state), token, testAlice).Cmp(tokensReceived))

	// Sale state reflects the finalized, fully redeemed sale.
	input = packInput(SelectorGetSale, token.Bytes())
	ret, _, err = lp.Run(state, testOther, ContractAddress, input, GasSaleLookup, true)
	require.NoError(t, err)
	require.Len(t, ret, 5*contract.WordLength)
	require.Equal(t, testCreator, common.BytesToAddress(ret[:contract.WordLength]))
	end := new(big.Int).SetBytes(ret[contract.WordLength : 2*contract.WordLength])
	require.Equal(t, testSaleEnd, end.Uint64())
	require.Equal(t, flagEnded, ret[3*contract.WordLength-1]&flagEnded)
	total := new(big.Int).SetBytes(ret[3*contract.WordLength : 4*contract.WordLength])
	require.Equal(t, amount, total)
	received := new(big.Int).SetBytes(ret[4*contract.WordLength : 5*contract.WordLength])
	require.Equal(t, tokensReceived, received)

	input = packInput(SelectorGetContribution, token.Bytes(), testAlice.Bytes())
	ret, _, err = lp.Run(state, testOther, ContractAddress, input, GasSaleLookup, true)
	require.NoError(t, err)
	require.Zero(t, new(big.Int).SetBytes(ret).Sign())
}

func TestLaunchpadContract_ReadOnlyRejected(t *testing.T) {
	state := newTestAccessibleState()
	lp, _, token := newTestLaunchpad(t, state)

	selectors := []uint32{SelectorCreateSale, SelectorContribute, SelectorOpenMarket, SelectorRedeem}
	for _, selector := range selectors {
		input := packInput(selector, token.Bytes(), token.Bytes())
		ret, remaining, err := lp.Run(state, testCreator, ContractAddress, input, GasSaleOpen, true)
		require.ErrorIs(t, err, contract.ErrCannotReadOnly, "selector %x", selector)
		require.Nil(t, ret)
		require.Equal(t, GasSaleOpen, remaining)
	}
}

func TestLaunchpadContract_OutOfGas(t *testing.T) {
	state := newTestAccessibleState()
	lp, _, token := newTestLaunchpad(t, state)

	input := packInput(SelectorContribute, token.Bytes(), big.NewInt(1).Bytes())
	ret, remaining, err := lp.Run(state, testAlice, ContractAddress, input, GasContribute-1, false)
	require.ErrorIs(t, err, contract.ErrOutOfGas)
	require.Nil(t, ret)
	require.Equal(t, uint64(0), remaining)
}

func TestLaunchpadContract_BadInput(t *testing.T) {
	state := newTestAccessibleState()
	lp, _, token := newTestLaunchpad(t, state)

	// Too short for a selector.
	_, _, err := lp.Run(state, testCreator, ContractAddress, []byte{0x01, 0x02}, GasSaleCreate, false)
	require.ErrorIs(t, err, contract.ErrInputTooShort)

	// Truncated arguments.
	input := packInput(SelectorCreateSale, token.Bytes())
	_, _, err = lp.Run(state, testCreator, ContractAddress, input, GasSaleCreate, false)
	require.ErrorIs(t, err, contract.ErrInputTooShort)

	// Unknown selector.
	input = packInput(0xff000000, token.Bytes())
	_, _, err = lp.Run(state, testCreator, ContractAddress, input, GasSaleOpen, false)
	require.ErrorContains(t, err, "unknown method selector")
}

// TestLaunchpadContract_RevertOnFailure drives the finalize path into a
// late failure: the bootstrap buy succeeds, then the market open is
// rejected because the market is already open. The snapshot must roll the
// buy back.
func TestLaunchpadContract_RevertOnFailure(t *testing.T) {
	state := newTestAccessibleState()
	lp, l, token := newTestLaunchpad(t, state)

	input := packInput(SelectorCreateSale, token.Bytes(), new(big.Int).SetUint64(testSaleEnd).Bytes())
	_, _, err := lp.Run(state, testCreator, ContractAddress, input, GasSaleCreate, false)
	require.NoError(t, err)

	amount := bigInt("1000000000000000000")
	setVMBalance(state, testAlice, amount)
	input = packInput(SelectorContribute, token.Bytes(), amount.Bytes())
	_, _, err = lp.Run(state, testAlice, ContractAddress, input, GasContribute, false)
	require.NoError(t, err)

	// Open the market behind the escrow's back.
	require.NoError(t, l.OpenMarket(newStateAdapter(state), token, ContractAddress))

	state.block.timestamp = testSaleEnd
	input = packInput(SelectorOpenMarket, token.Bytes())
	_, _, err = lp.Run(state, testOther, ContractAddress, input, GasSaleOpen, false)
	require.ErrorIs(t, err, curve.ErrMarketAlreadyOpen)

	// The bootstrap buy was rolled back: the pot is still in escrow and
	// the curve never saw the quote.
	require.Equal(t, uint256.MustFromBig(amount), state.stateDB.GetBalance(ContractAddress))
	require.True(t, state.stateDB.GetBalance(common.HexToAddress(curve.LXCurveAddress)).IsZero())
	require.Zero(t, l.BalanceOf(newStateAdapter(state), token, ContractAddress).Sign())

	m, err := l.GetMarket(newStateAdapter(state), token)
	require.NoError(t, err)
	require.Zero(t, m.ReserveRealQuote.Sign())
	require.Equal(t, 0, m.ReserveTokenSupply.Cmp(testSupply))

	s, err := lp.escrow.GetSale(newStateAdapter(state), token)
	require.NoError(t, err)
	require.False(t, s.Ended)
}

func TestLaunchpadContract_RequiredGas(t *testing.T) {
	lp := LaunchpadPrecompile

	tests := []struct {
		selector uint32
		want     uint64
	}{
		{SelectorCreateSale, GasSaleCreate},
		{SelectorContribute, GasContribute},
		{SelectorOpenMarket, GasSaleOpen},
		{SelectorRedeem, GasRedeem},
		{SelectorGetSale, GasSaleLookup},
		{SelectorGetContribution, GasSaleLookup},
		{0xff000000, GasSaleOpen},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, lp.RequiredGas(packInput(tt.selector)), "selector %x", tt.selector)
	}
	require.Equal(t, GasSaleOpen, lp.RequiredGas(nil))
}

// =========================================================================
// Module and Config Tests
// =========================================================================

func TestModule_Registration(t *testing.T) {
	require.Equal(t, ContractAddress, Module.Address)
	require.Equal(t, ConfigKey, Module.ConfigKey)

	registered, ok := modules.GetPrecompileModule(ConfigKey)
	require.True(t, ok)
	require.Equal(t, ContractAddress, registered.Address)

	byAddress, ok := modules.GetPrecompileModuleByAddress(ContractAddress)
	require.True(t, ok)
	require.Equal(t, ConfigKey, byAddress.ConfigKey)
}

func TestConfig(t *testing.T) {
	ts := uint64(1234)
	config := &Config{
		Upgrade:         precompileconfig.Upgrade{BlockTimestamp: &ts},
		MinSaleDuration: 3600,
	}

	require.Equal(t, ConfigKey, config.Key())
	require.Equal(t, &ts, config.Timestamp())
	require.False(t, config.IsDisabled())
	require.NoError(t, config.Verify(nil))

	same := &Config{
		Upgrade:         precompileconfig.Upgrade{BlockTimestamp: &ts},
		MinSaleDuration: 3600,
	}
	require.True(t, config.Equal(same))

	otherTS := uint64(5678)
	require.False(t, config.Equal(&Config{
		Upgrade:         precompileconfig.Upgrade{BlockTimestamp: &otherTS},
		MinSaleDuration: 3600,
	}))
	require.False(t, config.Equal(&Config{
		Upgrade:         precompileconfig.Upgrade{BlockTimestamp: &ts},
		MinSaleDuration: 60,
	}))
	require.False(t, config.Equal(nil))

	disabled := &Config{Upgrade: precompileconfig.Upgrade{BlockTimestamp: &ts, Disable: true}}
	require.True(t, disabled.IsDisabled())

	madeConfig := (&configurator{}).MakeConfig()
	require.Equal(t, ConfigKey, madeConfig.Key())
}

type badConfig struct{}

func (badConfig) Key() string                               { return "bad" }
func (badConfig) Timestamp() *uint64                        { return nil }
func (badConfig) IsDisabled() bool                          { return false }
func (badConfig) Equal(precompileconfig.Config) bool        { return false }
func (badConfig) Verify(precompileconfig.ChainConfig) error { return nil }

func TestConfigure(t *testing.T) {
	state := newTestAccessibleState()

	err := (&configurator{}).Configure(nil, &Config{MinSaleDuration: 600}, state.stateDB, state.block)
	require.NoError(t, err)
	require.Equal(t, uint64(600), LaunchpadPrecompile.escrow.minDuration())

	err = (&configurator{}).Configure(nil, badConfig{}, state.stateDB, state.block)
	require.ErrorContains(t, err, "expected config type")

	// Zero resets the minimum.
	err = (&configurator{}).Configure(nil, &Config{}, state.stateDB, state.block)
	require.NoError(t, err)
	require.Equal(t, uint64(0), LaunchpadPrecompile.escrow.minDuration())
}
