// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package curve

import (
	"math/big"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/curve/wad"
)

// GetAccountCredit returns the quote amount an account may still borrow
// against its token balance. The limit is the extra virtual reserve that
// would hold the floor price steady if the account's tokens left the supply,
// which the monotonic floor guarantees is always recoverable.
func (l *Ledger) GetAccountCredit(stateDB StateDB, token, account common.Address) (*big.Int, error) {
	m, err := l.getMarket(stateDB, token)
	if err != nil {
		return nil, err
	}
	return l.accountCredit(stateDB, m, account), nil
}

// GetAccountTransferrable returns the token balance not locked as collateral.
// With zero debt the full balance moves freely.
func (l *Ledger) GetAccountTransferrable(stateDB StateDB, token, account common.Address) (*big.Int, error) {
	m, err := l.getMarket(stateDB, token)
	if err != nil {
		return nil, err
	}
	return l.accountTransferrable(stateDB, m, account), nil
}

// Borrow draws amountQuote from the real reserve against the caller's token
// balance. No curve state moves; only the debt ledger and the quote balance.
func (l *Ledger) Borrow(stateDB StateDB, token, caller, to common.Address, amountQuote *big.Int) error {
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

	if amountQuote.Cmp(l.accountCredit(stateDB, m, caller)) > 0 {
		return ErrCreditExceeded
	}
	// Outstanding debt may never exceed the recorded real reserve.
	available := new(big.Int).Sub(m.ReserveRealQuote, m.TotalDebt)
	if amountQuote.Cmp(available) > 0 {
		return ErrCreditExceeded
	}

	debt := l.getDebt(stateDB, token, caller)
	l.setDebt(stateDB, token, caller, new(big.Int).Add(debt, amountQuote))
	m.TotalDebt = new(big.Int).Add(m.TotalDebt, amountQuote)
	l.saveMarket(stateDB, m)

	l.payQuote(stateDB, to, amountQuote)

	l.emitMarketBorrow(stateDB, token, caller, to, amountQuote)
	return nil
}

// Repay retires amountQuote of to's debt, paid by the caller. Overpayment is
// rejected rather than capped so the caller learns the real debt.
func (l *Ledger) Repay(stateDB StateDB, token, caller, to common.Address, amountQuote *big.Int) error {
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

	debt := l.getDebt(stateDB, token, to)
	if amountQuote.Cmp(debt) > 0 {
		return ErrDebtUnderflow
	}

	if err := l.pullQuote(stateDB, caller, amountQuote); err != nil {
		return err
	}

	l.setDebt(stateDB, token, to, new(big.Int).Sub(debt, amountQuote))
	m.TotalDebt = new(big.Int).Sub(m.TotalDebt, amountQuote)
	l.saveMarket(stateDB, m)

	l.emitMarketRepay(stateDB, token, caller, to, amountQuote)
	return nil
}

// accountCredit computes the remaining borrow limit for an account.
func (l *Ledger) accountCredit(stateDB StateDB, m *Market, account common.Address) *big.Int {
	balance := l.getTokenBalance(stateDB, m.Token, account)
	if balance.Sign() == 0 || balance.Cmp(m.MaxSupply) >= 0 {
		return big.NewInt(0)
	}

	denom := new(big.Int).Sub(m.MaxSupply, balance)
	requiredVirtual, err := wad.MulDivDown(m.ReserveVirtualQuote, m.MaxSupply, denom)
	if err != nil {
		// A limit too large for the wad domain is not lendable.
		return big.NewInt(0)
	}
	limit := new(big.Int).Sub(requiredVirtual, m.ReserveVirtualQuote)

	debt := l.getDebt(stateDB, m.Token, account)
	if limit.Cmp(debt) <= 0 {
		return big.NewInt(0)
	}
	return limit.Sub(limit, debt)
}

// accountTransferrable computes the unlocked portion of an account's balance.
// Debt is in the native 18-decimal quote, already at wad scale.
func (l *Ledger) accountTransferrable(stateDB StateDB, m *Market, account common.Address) *big.Int {
	balance := l.getTokenBalance(stateDB, m.Token, account)
	debt := l.getDebt(stateDB, m.Token, account)
	if debt.Sign() == 0 {
		return balance
	}
	if m.ReserveVirtualQuote.Sign() == 0 {
		return big.NewInt(0)
	}

	requiredVirtual := new(big.Int).Add(m.ReserveVirtualQuote, debt)
	nonLocked, err := wad.MulDivDown(m.ReserveVirtualQuote, m.MaxSupply, requiredVirtual)
	if err != nil {
		return big.NewInt(0)
	}
	locked := new(big.Int).Sub(m.MaxSupply, nonLocked)

	if balance.Cmp(locked) <= 0 {
		return big.NewInt(0)
	}
	return new(big.Int).Sub(balance, locked)
}
