// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package curve

import (
	"math/big"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/curve/wad"
)

// FeeRecipientResolver supplies the owner and treasury fee recipients for a
// market. Tests substitute deterministic resolvers.
type FeeRecipientResolver interface {
	FeeRecipients(stateDB StateDB, m *Market) (owner, treasury common.Address)
}

// ledgerRecipients is the default resolver: the market's recorded owner and
// the engine-wide treasury.
type ledgerRecipients struct {
	ledger *Ledger
}

func (r ledgerRecipients) FeeRecipients(stateDB StateDB, m *Market) (common.Address, common.Address) {
	return m.Owner, r.ledger.treasury
}

// feeShare is one stakeholder entitlement within a fee split.
type feeShare struct {
	to  common.Address
	bps uint16
}

// splitFee pays each stakeholder min(share, remaining) in order and returns
// the undistributed remainder. Zero-address stakeholders are skipped, so
// every unit of the fee either reaches a named party or flows back into the
// curve as a reserve shift.
func splitFee(fee *big.Int, shares []feeShare, pay func(common.Address, *big.Int)) *big.Int {
	remaining := new(big.Int).Set(fee)
	for _, s := range shares {
		if s.to == (common.Address{}) || remaining.Sign() == 0 {
			continue
		}
		cut := wad.FeeOf(fee, s.bps)
		if cut.Cmp(remaining) > 0 {
			cut = new(big.Int).Set(remaining)
		}
		if cut.Sign() == 0 {
			continue
		}
		pay(s.to, cut)
		remaining.Sub(remaining, cut)
	}
	return remaining
}

// marketShares resolves the stakeholder order for a swap: the per-call
// provider first, then the market owner, then the protocol treasury. An
// inactive owner fee resolves to the zero address and is skipped.
func (l *Ledger) marketShares(stateDB StateDB, m *Market, provider common.Address) []feeShare {
	owner, treasury := l.resolver.FeeRecipients(stateDB, m)
	if !m.OwnerFeeActive {
		owner = common.Address{}
	}
	return []feeShare{
		{to: provider, bps: ProviderShareBps},
		{to: owner, bps: OwnerShareBps},
		{to: treasury, bps: TreasuryShareBps},
	}
}

// distributeQuoteFee pays buy-side fee shares in native quote out of the
// curve balance and returns the remainder for healing.
func (l *Ledger) distributeQuoteFee(stateDB StateDB, m *Market, provider common.Address, fee *big.Int) *big.Int {
	if fee.Sign() == 0 {
		return big.NewInt(0)
	}
	return splitFee(fee, l.marketShares(stateDB, m, provider), func(to common.Address, amount *big.Int) {
		l.payQuote(stateDB, to, amount)
	})
}

// distributeTokenFee pays sell-side fee shares by re-minting tokens, since
// the full sell input was already burned, and returns the remainder for the
// burn shift.
func (l *Ledger) distributeTokenFee(stateDB StateDB, m *Market, provider common.Address, fee *big.Int) *big.Int {
	if fee.Sign() == 0 {
		return big.NewInt(0)
	}
	return splitFee(fee, l.marketShares(stateDB, m, provider), func(to common.Address, amount *big.Int) {
		l.mintToken(stateDB, m.Token, to, amount)
	})
}

// SetOwnerFeeActive toggles the owner share of swap fees. Only the market
// owner may call it.
func (l *Ledger) SetOwnerFeeActive(stateDB StateDB, token, caller common.Address, active bool) error {
	m, err := l.getMarket(stateDB, token)
	if err != nil {
		return err
	}
	if caller != m.Owner {
		return ErrNotAuthorized
	}

	m.OwnerFeeActive = active
	l.saveMarket(stateDB, m)

	l.emitOwnerFeeSet(stateDB, token, active)
	return nil
}

// SetMarketOwner hands the owner fee entitlement to a new address. Only the
// current owner may call it; the zero address is rejected so the owner slot
// never silently disables itself.
func (l *Ledger) SetMarketOwner(stateDB StateDB, token, caller, newOwner common.Address) error {
	m, err := l.getMarket(stateDB, token)
	if err != nil {
		return err
	}
	if caller != m.Owner {
		return ErrNotAuthorized
	}
	if newOwner == (common.Address{}) {
		return ErrInvalidParams
	}

	m.Owner = newOwner
	l.saveMarket(stateDB, m)

	l.emitOwnerChanged(stateDB, token, newOwner)
	return nil
}
