// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package presale

import (
	"math/big"
	"sync"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/curve/curve"
	"github.com/luxfi/curve/wad"
)

// Escrow implements the pre-sale engine behind the LXLaunchpad precompile.
// Sale and contribution state lives in EVM storage under the precompile
// address; the Escrow itself only carries configuration. The market engine
// is shared with the LXCurve precompile so the bootstrap buy and redemption
// transfers run through the same ledger the public trades use.
type Escrow struct {
	mu sync.RWMutex

	ledger *curve.Ledger

	// minSaleDuration is the smallest allowed gap between sale creation
	// and its end timestamp, in seconds
	minSaleDuration uint64
}

// NewEscrow creates a pre-sale engine bound to a market ledger.
func NewEscrow(ledger *curve.Ledger) *Escrow {
	return &Escrow{ledger: ledger}
}

// SetMinSaleDuration sets the minimum sale window length in seconds.
func (e *Escrow) SetMinSaleDuration(seconds uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.minSaleDuration = seconds
}

// CreateSale registers a pre-sale for a closed market. Only the market
// creator may register one, the market must name the launchpad as its
// escrow, and the window must end at least minSaleDuration after now.
func (e *Escrow) CreateSale(stateDB curve.StateDB, token, caller common.Address, endTimestamp uint64) error {
	m, err := e.ledger.GetMarket(stateDB, token)
	if err != nil {
		return err
	}
	if m.Escrow != presaleAddr {
		return ErrEscrowMismatch
	}
	if caller != m.Creator {
		return ErrNotAuthorized
	}
	if m.Open {
		return curve.ErrMarketAlreadyOpen
	}
	if getWord(stateDB, saleFieldKey(token, fieldEndTime)).Sign() != 0 {
		return ErrSaleExists
	}

	now := stateDB.GetTimestamp()
	if endTimestamp <= now || endTimestamp-now < e.minDuration() {
		return ErrSaleTooShort
	}

	e.saveSale(stateDB, &Sale{
		Token:            token,
		Creator:          caller,
		EndTimestamp:     endTimestamp,
		Ended:            false,
		TotalContributed: big.NewInt(0),
		TokensReceived:   big.NewInt(0),
	})

	e.emitSaleCreated(stateDB, token, caller, endTimestamp)
	return nil
}

// Contribute escrows native quote toward the sale. Contributions are
// accepted strictly before the end timestamp and accumulate per account.
func (e *Escrow) Contribute(stateDB curve.StateDB, token, caller common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroContribution
	}
	s, err := e.getSale(stateDB, token)
	if err != nil {
		return err
	}
	if s.Ended {
		return ErrSaleEnded
	}
	if stateDB.GetTimestamp() >= s.EndTimestamp {
		return ErrSaleClosed
	}

	if err := e.pullQuote(stateDB, caller, amount); err != nil {
		return err
	}

	contributed := e.getContribution(stateDB, token, caller)
	e.setContribution(stateDB, token, caller, new(big.Int).Add(contributed, amount))
	s.TotalContributed = new(big.Int).Add(s.TotalContributed, amount)
	e.saveSale(stateDB, s)

	e.emitContributed(stateDB, token, caller, amount)
	return nil
}

// OpenMarket finalizes the sale once the window has passed: the whole pot
// buys tokens in one bootstrap purchase and the market opens for public
// trading. Anyone may crank it; the caller gets nothing beyond the events.
// A sale that collected nothing still opens its market, with zero tokens
// to redeem.
func (e *Escrow) OpenMarket(stateDB curve.StateDB, token, caller common.Address) (*big.Int, error) {
	s, err := e.getSale(stateDB, token)
	if err != nil {
		return nil, err
	}
	if s.Ended {
		return nil, ErrSaleEnded
	}
	if stateDB.GetTimestamp() < s.EndTimestamp {
		return nil, ErrSaleActive
	}

	if s.TotalContributed.Sign() > 0 {
		tokensOut, err := e.ledger.Buy(
			stateDB,
			token,
			presaleAddr,
			s.TotalContributed,
			big.NewInt(0),
			0,
			presaleAddr,
			common.Address{},
		)
		if err != nil {
			return nil, err
		}
		s.TokensReceived = tokensOut
	}

	if err := e.ledger.OpenMarket(stateDB, token, presaleAddr); err != nil {
		return nil, err
	}

	s.Ended = true
	e.saveSale(stateDB, s)
	return s.TokensReceived, nil
}

// Redeem pays an account its pro-rata share of the bootstrap tokens:
// tokensReceived * contributed / totalContributed, rounded down. Rounding
// dust stays in the escrow permanently. Anyone may redeem for an account;
// tokens always go to the account that contributed.
func (e *Escrow) Redeem(stateDB curve.StateDB, token, caller, account common.Address) (*big.Int, error) {
	s, err := e.getSale(stateDB, token)
	if err != nil {
		return nil, err
	}
	if !s.Ended {
		return nil, ErrSaleActive
	}
	contributed := e.getContribution(stateDB, token, account)
	if contributed.Sign() == 0 {
		return nil, ErrNothingToRedeem
	}

	amount, err := wad.MulDivDown(s.TokensReceived, contributed, s.TotalContributed)
	if err != nil {
		return nil, err
	}

	e.setContribution(stateDB, token, account, big.NewInt(0))
	if amount.Sign() > 0 {
		if err := e.ledger.TransferToken(stateDB, token, presaleAddr, account, amount); err != nil {
			return nil, err
		}
	}

	e.emitRedeemed(stateDB, token, account, caller, amount)
	return amount, nil
}

// GetSale returns the sale state for a token.
func (e *Escrow) GetSale(stateDB curve.StateDB, token common.Address) (*Sale, error) {
	return e.getSale(stateDB, token)
}

// GetContribution returns the outstanding contribution for an account.
// Redeemed contributions read as zero.
func (e *Escrow) GetContribution(stateDB curve.StateDB, token, account common.Address) *big.Int {
	return e.getContribution(stateDB, token, account)
}

func (e *Escrow) minDuration() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.minSaleDuration
}

// pullQuote moves native quote from a contributor into the escrow.
func (e *Escrow) pullQuote(stateDB curve.StateDB, from common.Address, amount *big.Int) error {
	amountU256, overflow := uint256.FromBig(amount)
	if overflow {
		return ErrInsufficientPayment
	}
	if stateDB.GetBalance(from).Cmp(amountU256) < 0 {
		return ErrInsufficientPayment
	}
	stateDB.SubBalance(from, amountU256)
	stateDB.AddBalance(presaleAddr, amountU256)
	return nil
}
