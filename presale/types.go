// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package presale implements the LX launchpad precompile: a pre-sale escrow
// that collects native quote for a closed launch market, performs the one
// bootstrap buy against the curve when the sale window ends, and lets
// contributors redeem their pro-rata share of the purchased tokens.
package presale

import (
	"errors"
	"math/big"

	"github.com/luxfi/geth/common"
)

// Precompile addresses for LX launch components
// LP-aligned format: 0x0000000000000000000000000000000000LPNUM
// See LP-9015 for canonical specification
const (
	LXLaunchpadAddress = "0x0000000000000000000000000000000000009220" // LP-9220 LXLaunchpad (pre-sale escrow)
)

// Gas costs for launchpad operations
const (
	GasSaleCreate uint64 = 30_000 // Register a sale for a closed market
	GasContribute uint64 = 10_000 // Contribute quote to a sale
	GasSaleOpen   uint64 = 60_000 // Bootstrap buy plus market open
	GasRedeem     uint64 = 15_000 // Redeem pro-rata tokens
	GasSaleLookup uint64 = 100    // Sale state lookup
)

// Errors - sale lifecycle
var (
	ErrSaleExists   = errors.New("sale already exists")
	ErrSaleNotFound = errors.New("sale not found")
	ErrSaleClosed   = errors.New("sale window closed")
	ErrSaleActive   = errors.New("sale window still active")
	ErrSaleEnded    = errors.New("sale already finalized")
	ErrSaleTooShort = errors.New("sale window below minimum duration")
)

// Errors - contributions
var (
	ErrZeroContribution    = errors.New("zero contribution amount")
	ErrNothingToRedeem     = errors.New("nothing to redeem")
	ErrInsufficientPayment = errors.New("insufficient quote balance")
)

// Errors - wiring
var (
	ErrNotAuthorized  = errors.New("not authorized")
	ErrEscrowMismatch = errors.New("market escrow is not the launchpad")
)

// Sale is the per-token pre-sale ledger. Contributions accumulate until
// EndTimestamp; the finalize step buys once with the whole pot and flips
// Ended. TotalContributed stays fixed after that so every redemption is
// computed against the same denominator.
type Sale struct {
	Token   common.Address // Market token, the sale key
	Creator common.Address // Market creator who registered the sale

	EndTimestamp uint64 // Contributions accepted strictly before this time
	Ended        bool   // Bootstrap buy done, market opened

	TotalContributed *big.Int // Sum of all contributions, fixed once ended
	TokensReceived   *big.Int // Tokens bought by the bootstrap purchase
}
