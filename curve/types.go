// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package curve implements the LX launch-market precompile for Lux EVMs:
// virtual constant-product bonding curves with a monotonically rising floor
// price, oracle-free credit lines against token balances, and fee-funded
// reserve healing. Each market is an independent ledger keyed by its token
// address; quote value is the chain's native coin.
package curve

import (
	"errors"
	"math/big"

	"github.com/luxfi/geth/common"
)

// Precompile addresses for LX launch components
// LP-aligned format: 0x0000000000000000000000000000000000LPNUM
// See LP-9015 for canonical specification
const (
	LXCurveAddress = "0x0000000000000000000000000000000000009210" // LP-9210 LXCurve (launch markets)
)

// Gas costs for launch-market operations
const (
	GasMarketCreate  uint64 = 50_000 // Create new market
	GasBuy           uint64 = 15_000 // Buy along the curve
	GasSell          uint64 = 15_000 // Sell along the curve
	GasHeal          uint64 = 10_000 // Donate quote to reserves
	GasBurn          uint64 = 10_000 // Burn tokens with supply shift
	GasBorrow        uint64 = 20_000 // Borrow against balance
	GasRepay         uint64 = 15_000 // Repay debt
	GasTokenTransfer uint64 = 8_000  // Ledger token transfer
	GasMarketOpen    uint64 = 10_000 // Open market for public trading
	GasOwnerFeeSet   uint64 = 5_000  // Toggle owner fee share
	GasMarketLookup  uint64 = 100    // Market state lookup
)

// Swap fee and stakeholder shares, all in basis points. Shares are fractions
// of the fee, not of the swap amount; whatever they leave undistributed is
// returned to the curve as a reserve shift.
const (
	FeeBps           uint16 = 100  // 1% swap fee
	ProviderShareBps uint16 = 1500 // 15% of the fee
	OwnerShareBps    uint16 = 1500 // 15% of the fee
	TreasuryShareBps uint16 = 1500 // 15% of the fee
)

// MaxSymbolLength bounds market symbols to a single storage word.
const MaxSymbolLength = 32

// Errors - swaps
var (
	ErrZeroInput         = errors.New("zero input amount")
	ErrExpired           = errors.New("deadline expired")
	ErrMarketClosed      = errors.New("market not open")
	ErrMarketAlreadyOpen = errors.New("market already open")
	ErrSlippageExceeded  = errors.New("slippage exceeded")
	ErrReserveUnderflow  = errors.New("real reserve underflow")
	ErrInvalidShift      = errors.New("reserve shift requires supply headroom")
)

// Errors - credit
var (
	ErrCreditExceeded = errors.New("credit limit exceeded")
	ErrDebtUnderflow  = errors.New("repay exceeds outstanding debt")
	ErrTransferLocked = errors.New("amount exceeds unlocked balance")
)

// Errors - market administration
var (
	ErrMarketNotFound      = errors.New("market not found")
	ErrMarketExists        = errors.New("market already exists")
	ErrInvalidParams       = errors.New("invalid market parameters")
	ErrNotAuthorized       = errors.New("not authorized")
	ErrReentrant           = errors.New("reentrancy detected")
	ErrInsufficientBalance = errors.New("insufficient token balance")
	ErrInsufficientPayment = errors.New("insufficient quote balance")
)

// MarketParams configures a new market at creation time.
type MarketParams struct {
	Symbol string // Token symbol, at most 32 bytes

	// Escrow is the pre-sale contract authorized to perform the bootstrap
	// buy and open the market. Zero means the creator fills that role.
	Escrow common.Address

	VirtualQuote *big.Int // Initial phantom quote reserve; sets the launch floor price
	TokenSupply  *big.Int // Initial max supply, fully held by the curve
}

// Market is the per-token ledger. The floor price reserveVirtualQuote/maxSupply
// never decreases: reserveVirtualQuote only grows (heal) and maxSupply only
// shrinks (burn shift).
type Market struct {
	Token   common.Address // Derived token address, the market key
	Creator common.Address
	Owner   common.Address // Owner fee recipient, initially the creator
	Escrow  common.Address // Only caller allowed to buy before open and to open
	Symbol  string

	Open           bool // Public trading enabled
	OwnerFeeActive bool // Owner share of fees enabled

	MaxSupply           *big.Int // Upper bound on circulating supply, non-increasing
	ReserveTokenSupply  *big.Int // Curve-side token reserve (y), starts at MaxSupply
	ReserveVirtualQuote *big.Int // Phantom quote reserve, non-decreasing
	ReserveRealQuote    *big.Int // Quote actually received by the curve
	TotalDebt           *big.Int // Sum of all outstanding borrows
}

// TotalSupply returns the circulating token supply. Every mint moves tokens
// off the curve reserve and every burn shifts MaxSupply down with it, so the
// difference is exact.
func (m *Market) TotalSupply() *big.Int {
	return new(big.Int).Sub(m.MaxSupply, m.ReserveTokenSupply)
}

// QuoteReserve returns the full constant-product x reserve, virtual plus real.
func (m *Market) QuoteReserve() *big.Int {
	return new(big.Int).Add(m.ReserveVirtualQuote, m.ReserveRealQuote)
}
