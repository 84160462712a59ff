// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package curve

import (
	"math/big"
	"sync"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/types"
	"github.com/zeebo/blake3"

	"github.com/luxfi/curve/wad"
)

// StateDB is the EVM state access the market engine needs.
// The precompile dispatch adapts the full VM state to this interface.
type StateDB interface {
	GetState(addr common.Address, key common.Hash) common.Hash
	SetState(addr common.Address, key common.Hash, value common.Hash)
	GetBalance(addr common.Address) *uint256.Int
	AddBalance(addr common.Address, amount *uint256.Int)
	SubBalance(addr common.Address, amount *uint256.Int)
	AddLog(log *types.Log)
	GetBlockNumber() uint64
	GetTimestamp() uint64
}

// Ledger implements the launch-market engine behind the LXCurve precompile.
// All market, balance, and debt state lives in EVM storage under the
// precompile address; the Ledger itself only carries configuration, so a
// state rollback by the host never leaves it stale.
type Ledger struct {
	mu sync.RWMutex

	// locked prevents reentrancy attacks
	locked bool

	// treasury receives the protocol share of swap fees
	treasury common.Address

	// resolver supplies the owner and treasury fee recipients per market
	resolver FeeRecipientResolver
}

// NewLedger creates a new market engine with the default fee recipients.
func NewLedger() *Ledger {
	l := &Ledger{}
	l.resolver = ledgerRecipients{ledger: l}
	return l
}

// SetTreasury sets the protocol fee recipient.
func (l *Ledger) SetTreasury(treasury common.Address) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.treasury = treasury
}

// SetFeeRecipientResolver replaces the fee recipient lookup.
func (l *Ledger) SetFeeRecipientResolver(resolver FeeRecipientResolver) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.resolver = resolver
}

// lock acquires the reentrancy guard for a state-mutating entrypoint.
func (l *Ledger) lock() error {
	l.mu.Lock()
	if l.locked {
		l.mu.Unlock()
		return ErrReentrant
	}
	l.locked = true
	l.mu.Unlock()
	return nil
}

func (l *Ledger) unlock() {
	l.mu.Lock()
	l.locked = false
	l.mu.Unlock()
}

// deriveTokenAddress computes the market's token address from its creator
// and symbol. The same pair always derives the same address, which is what
// makes duplicate creation detectable.
func deriveTokenAddress(creator common.Address, symbol string) common.Address {
	h := blake3.New()
	h.Write(tokenPrefix)
	h.Write(creator.Bytes())
	h.Write([]byte(symbol))
	var digest [32]byte
	h.Digest().Read(digest[:])
	return common.BytesToAddress(digest[12:])
}

// =========================================================================
// Market Lifecycle
// =========================================================================

// CreateMarket deploys a new bonding-curve market. The full token supply
// starts on the curve and the virtual quote reserve sets the launch floor
// price. The market stays closed to the public until OpenMarket.
func (l *Ledger) CreateMarket(stateDB StateDB, creator common.Address, params MarketParams) (common.Address, error) {
	if creator == (common.Address{}) {
		return common.Address{}, ErrInvalidParams
	}
	if len(params.Symbol) == 0 || len(params.Symbol) > MaxSymbolLength {
		return common.Address{}, ErrInvalidParams
	}
	if params.TokenSupply == nil || params.TokenSupply.Sign() <= 0 {
		return common.Address{}, ErrInvalidParams
	}
	if params.VirtualQuote == nil || params.VirtualQuote.Sign() <= 0 {
		return common.Address{}, ErrInvalidParams
	}

	token := deriveTokenAddress(creator, params.Symbol)
	if getWord(stateDB, marketFieldKey(token, fieldMaxSupply)).Sign() != 0 {
		return common.Address{}, ErrMarketExists
	}

	escrow := params.Escrow
	if escrow == (common.Address{}) {
		escrow = creator
	}

	m := &Market{
		Token:               token,
		Creator:             creator,
		Owner:               creator,
		Escrow:              escrow,
		Symbol:              params.Symbol,
		Open:                false,
		OwnerFeeActive:      true,
		MaxSupply:           new(big.Int).Set(params.TokenSupply),
		ReserveTokenSupply:  new(big.Int).Set(params.TokenSupply),
		ReserveVirtualQuote: new(big.Int).Set(params.VirtualQuote),
		ReserveRealQuote:    big.NewInt(0),
		TotalDebt:           big.NewInt(0),
	}
	l.saveMarket(stateDB, m)

	l.emitMarketCreated(stateDB, token, creator, m.MaxSupply, m.ReserveVirtualQuote)
	return token, nil
}

// OpenMarket enables public trading. Only the market's escrow may call it,
// exactly once, after performing its bootstrap buy.
func (l *Ledger) OpenMarket(stateDB StateDB, token, caller common.Address) error {
	m, err := l.getMarket(stateDB, token)
	if err != nil {
		return err
	}
	if caller != m.Escrow {
		return ErrNotAuthorized
	}
	if m.Open {
		return ErrMarketAlreadyOpen
	}

	m.Open = true
	l.saveMarket(stateDB, m)

	l.emitMarketOpened(stateDB, token, caller)
	return nil
}

// =========================================================================
// Swaps
// =========================================================================

// Buy swaps quoteIn native quote for tokens along the constant-product curve.
// While the market is closed only the escrow may buy (the bootstrap purchase).
// The curve output rounds against the buyer so the reserve product never
// shrinks; the fee remainder left by stakeholder payouts heals the reserves.
func (l *Ledger) Buy(
	stateDB StateDB,
	token common.Address,
	caller common.Address,
	quoteIn *big.Int,
	minTokenOut *big.Int,
	deadline uint64,
	to common.Address,
	provider common.Address,
) (*big.Int, error) {
	if err := l.lock(); err != nil {
		return nil, err
	}
	defer l.unlock()

	if quoteIn.Sign() <= 0 {
		return nil, ErrZeroInput
	}
	m, err := l.getMarket(stateDB, token)
	if err != nil {
		return nil, err
	}
	if deadline != 0 && deadline < stateDB.GetTimestamp() {
		return nil, ErrExpired
	}
	if !m.Open && caller != m.Escrow {
		return nil, ErrMarketClosed
	}

	fee := wad.FeeOf(quoteIn, FeeBps)
	net := new(big.Int).Sub(quoteIn, fee)

	x0 := m.QuoteReserve()
	y0 := m.ReserveTokenSupply
	x1 := new(big.Int).Add(x0, net)
	y1, err := wad.MulDivUp(x0, y0, x1)
	if err != nil {
		return nil, err
	}
	tokenOut := new(big.Int).Sub(y0, y1)
	if tokenOut.Cmp(minTokenOut) < 0 {
		return nil, ErrSlippageExceeded
	}

	if err := l.pullQuote(stateDB, caller, quoteIn); err != nil {
		return nil, err
	}

	m.ReserveRealQuote = new(big.Int).Add(m.ReserveRealQuote, net)
	m.ReserveTokenSupply = y1
	l.mintToken(stateDB, token, to, tokenOut)

	remainder := l.distributeQuoteFee(stateDB, m, provider, fee)
	if remainder.Sign() > 0 {
		if err := l.healQuoteReserves(m, remainder); err != nil {
			return nil, err
		}
	}
	l.saveMarket(stateDB, m)

	l.emitMarketBuy(stateDB, token, caller, to, quoteIn, tokenOut)
	return tokenOut, nil
}

// Sell swaps tokenIn tokens back into native quote. The entire input is
// burned; stakeholder fee shares are re-minted and the remainder shrinks
// MaxSupply through the burn shift. The real reserve can never be drawn
// below zero because the post-swap quote reserve is checked against the
// virtual floor component.
func (l *Ledger) Sell(
	stateDB StateDB,
	token common.Address,
	caller common.Address,
	tokenIn *big.Int,
	minQuoteOut *big.Int,
	deadline uint64,
	to common.Address,
	provider common.Address,
) (*big.Int, error) {
	if err := l.lock(); err != nil {
		return nil, err
	}
	defer l.unlock()

	if tokenIn.Sign() <= 0 {
		return nil, ErrZeroInput
	}
	m, err := l.getMarket(stateDB, token)
	if err != nil {
		return nil, err
	}
	if deadline != 0 && deadline < stateDB.GetTimestamp() {
		return nil, ErrExpired
	}
	if !m.Open {
		return nil, ErrMarketClosed
	}

	fee := wad.FeeOf(tokenIn, FeeBps)
	net := new(big.Int).Sub(tokenIn, fee)

	x0 := m.QuoteReserve()
	y0 := m.ReserveTokenSupply
	y1 := new(big.Int).Add(y0, net)
	x1, err := wad.MulDivUp(x0, y0, y1)
	if err != nil {
		return nil, err
	}
	quoteOut := new(big.Int).Sub(x0, x1)
	if quoteOut.Cmp(minQuoteOut) < 0 {
		return nil, ErrSlippageExceeded
	}
	if x1.Cmp(m.ReserveVirtualQuote) < 0 {
		return nil, ErrReserveUnderflow
	}

	if err := l.burnToken(stateDB, m, caller, tokenIn); err != nil {
		return nil, err
	}

	m.ReserveTokenSupply = y1
	m.ReserveRealQuote = new(big.Int).Sub(x1, m.ReserveVirtualQuote)

	remainder := l.distributeTokenFee(stateDB, m, provider, fee)
	if remainder.Sign() > 0 {
		if err := l.burnTokenReserves(m, remainder); err != nil {
			return nil, err
		}
	}
	l.saveMarket(stateDB, m)

	l.payQuote(stateDB, to, quoteOut)

	l.emitMarketSell(stateDB, token, caller, to, tokenIn, quoteOut)
	return quoteOut, nil
}

// =========================================================================
// Reserve Shifts
// =========================================================================

// Heal donates native quote to the reserves, raising the floor price.
func (l *Ledger) Heal(stateDB StateDB, token, caller common.Address, amountQuote *big.Int) error {
	if err := l.lock(); err != nil {
		return err
	}
	defer l.unlock()

	if amountQuote.Sign() <= 0 {
		return ErrZeroInput
	}
	m, err := l.getMarket(stateDB, token)
	if err != nil {
		return err
	}
	if m.MaxSupply.Cmp(m.ReserveTokenSupply) <= 0 {
		return ErrInvalidShift
	}

	if err := l.pullQuote(stateDB, caller, amountQuote); err != nil {
		return err
	}
	if err := l.healQuoteReserves(m, amountQuote); err != nil {
		return err
	}
	l.saveMarket(stateDB, m)

	l.emitMarketHeal(stateDB, token, caller, amountQuote)
	return nil
}

// Burn destroys caller tokens and contracts MaxSupply along with the
// proportional curve-side reserve, raising the floor price. A burn of the
// whole circulating supply is rejected; at least one token stays live.
func (l *Ledger) Burn(stateDB StateDB, token, caller common.Address, amountToken *big.Int) error {
	if err := l.lock(); err != nil {
		return err
	}
	defer l.unlock()

	if amountToken.Sign() <= 0 {
		return ErrZeroInput
	}
	m, err := l.getMarket(stateDB, token)
	if err != nil {
		return err
	}
	if m.MaxSupply.Cmp(m.ReserveTokenSupply) <= 0 {
		return ErrInvalidShift
	}

	if err := l.burnToken(stateDB, m, caller, amountToken); err != nil {
		return err
	}
	if err := l.burnTokenReserves(m, amountToken); err != nil {
		return err
	}
	l.saveMarket(stateDB, m)

	l.emitMarketBurn(stateDB, token, caller, amountToken)
	return nil
}

// healQuoteReserves applies a quote inflow that is not a swap. The virtual
// reserve grows by the inflow scaled to the curve-side share of supply, so
// reserveVirtualQuote/maxSupply strictly increases for any positive amount.
func (l *Ledger) healQuoteReserves(m *Market, amountQuote *big.Int) error {
	headroom := new(big.Int).Sub(m.MaxSupply, m.ReserveTokenSupply)
	if headroom.Sign() <= 0 {
		return ErrInvalidShift
	}
	virtualAdd, err := wad.MulDivDown(m.ReserveTokenSupply, amountQuote, headroom)
	if err != nil {
		return err
	}
	m.ReserveRealQuote = new(big.Int).Add(m.ReserveRealQuote, amountQuote)
	m.ReserveVirtualQuote = new(big.Int).Add(m.ReserveVirtualQuote, virtualAdd)
	return nil
}

// burnTokenReserves is the mirror shift for tokens leaving circulation
// outside a swap. It removes the proportional curve-side reserve and
// contracts MaxSupply by both amounts. Shifting the entire circulating
// supply would zero MaxSupply, whose slot marks market existence, and
// strand the real reserve, so at least one token must stay outstanding.
func (l *Ledger) burnTokenReserves(m *Market, amountToken *big.Int) error {
	headroom := new(big.Int).Sub(m.MaxSupply, m.ReserveTokenSupply)
	if amountToken.Cmp(headroom) >= 0 {
		return ErrInvalidShift
	}
	reserveBurn, err := wad.MulDivDown(m.ReserveTokenSupply, amountToken, headroom)
	if err != nil {
		return err
	}
	m.ReserveTokenSupply = new(big.Int).Sub(m.ReserveTokenSupply, reserveBurn)
	m.MaxSupply = new(big.Int).Sub(m.MaxSupply, new(big.Int).Add(amountToken, reserveBurn))
	return nil
}

// =========================================================================
// View Functions
// =========================================================================

// GetMarket returns the full market state for a token.
func (l *Ledger) GetMarket(stateDB StateDB, token common.Address) (*Market, error) {
	return l.getMarket(stateDB, token)
}

// GetMarketPrice returns the wad-scaled spot price, quote per token.
func (l *Ledger) GetMarketPrice(stateDB StateDB, token common.Address) (*big.Int, error) {
	m, err := l.getMarket(stateDB, token)
	if err != nil {
		return nil, err
	}
	if m.ReserveTokenSupply.Sign() == 0 {
		return big.NewInt(0), nil
	}
	return wad.MulDivDown(m.QuoteReserve(), wad.Wad, m.ReserveTokenSupply)
}

// GetFloorPrice returns the wad-scaled floor price, quote per token. The
// floor only moves up: heals grow the numerator, burns shrink the
// denominator.
func (l *Ledger) GetFloorPrice(stateDB StateDB, token common.Address) (*big.Int, error) {
	m, err := l.getMarket(stateDB, token)
	if err != nil {
		return nil, err
	}
	return wad.MulDivDown(m.ReserveVirtualQuote, wad.Wad, m.MaxSupply)
}
