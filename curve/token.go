// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package curve

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
)

// BalanceOf returns the token balance of an account.
func (l *Ledger) BalanceOf(stateDB StateDB, token, account common.Address) *big.Int {
	return l.getTokenBalance(stateDB, token, account)
}

// GetAccountDebt returns the outstanding borrowed quote for an account.
func (l *Ledger) GetAccountDebt(stateDB StateDB, token, account common.Address) *big.Int {
	return l.getDebt(stateDB, token, account)
}

// TransferToken moves tokens between accounts. Transfers of collateral locked
// by outstanding debt are rejected; the lock is the only enforcement the
// credit line has, so it applies to every balance-reducing path.
func (l *Ledger) TransferToken(stateDB StateDB, token, caller, to common.Address, amount *big.Int) error {
	if amount.Sign() <= 0 {
		return ErrZeroInput
	}
	if to == (common.Address{}) {
		return ErrInvalidParams
	}

	m, err := l.getMarket(stateDB, token)
	if err != nil {
		return err
	}

	if err := l.burnToken(stateDB, m, caller, amount); err != nil {
		return err
	}
	l.mintToken(stateDB, token, to, amount)

	l.emitTokenTransfer(stateDB, token, caller, to, amount)
	return nil
}

// mintToken credits tokens to an account. Minting is ungated; supply bounds
// are enforced by the curve math that produces the amounts.
func (l *Ledger) mintToken(stateDB StateDB, token, to common.Address, amount *big.Int) {
	if amount.Sign() == 0 {
		return
	}
	balance := l.getTokenBalance(stateDB, token, to)
	l.setTokenBalance(stateDB, token, to, new(big.Int).Add(balance, amount))
}

// burnToken debits tokens from an account, enforcing the collateral lock.
func (l *Ledger) burnToken(stateDB StateDB, m *Market, from common.Address, amount *big.Int) error {
	balance := l.getTokenBalance(stateDB, m.Token, from)
	if balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	if amount.Cmp(l.accountTransferrable(stateDB, m, from)) > 0 {
		return ErrTransferLocked
	}
	l.setTokenBalance(stateDB, m.Token, from, new(big.Int).Sub(balance, amount))
	return nil
}

// pullQuote moves native quote from an account into the curve.
func (l *Ledger) pullQuote(stateDB StateDB, from common.Address, amount *big.Int) error {
	amountU256, overflow := uint256.FromBig(amount)
	if overflow {
		return ErrInsufficientPayment
	}
	if stateDB.GetBalance(from).Cmp(amountU256) < 0 {
		return ErrInsufficientPayment
	}
	stateDB.SubBalance(from, amountU256)
	stateDB.AddBalance(curveAddr, amountU256)
	return nil
}

// payQuote moves native quote from the curve to an account. Callers bound the
// amount by reserve or debt math before paying, so no balance check here.
func (l *Ledger) payQuote(stateDB StateDB, to common.Address, amount *big.Int) {
	if amount.Sign() == 0 {
		return
	}
	amountU256, _ := uint256.FromBig(amount)
	stateDB.SubBalance(curveAddr, amountU256)
	stateDB.AddBalance(to, amountU256)
}
