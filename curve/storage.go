// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package curve

import (
	"bytes"
	"math/big"

	"github.com/luxfi/geth/common"
	"github.com/zeebo/blake3"
)

// Precompile address as bytes (LP-9210 LXCurve)
var curveAddr = common.HexToAddress(LXCurveAddress)

// Storage key prefixes for market state
var (
	marketPrefix  = []byte("curve/mkt")  // Per-market field slots
	balancePrefix = []byte("curve/bal")  // Token balances
	debtPrefix    = []byte("curve/debt") // Credit-line debt
	tokenPrefix   = []byte("curve/tok")  // Token address derivation
)

// Per-market storage fields, one slot each
const (
	fieldSymbol byte = iota + 1
	fieldCreator
	fieldOwner
	fieldEscrow
	fieldFlags
	fieldMaxSupply
	fieldReserveToken
	fieldReserveVirtual
	fieldReserveReal
	fieldTotalDebt
)

// Flag bits packed into the last byte of the flags slot
const (
	flagOpen           byte = 1 << 0
	flagOwnerFeeActive byte = 1 << 1
)

// makeStorageKey generates a storage key from prefix and identifier
func makeStorageKey(prefix []byte, id []byte) common.Hash {
	h := blake3.New()
	h.Write(prefix)
	h.Write(id)
	var key common.Hash
	h.Digest().Read(key[:])
	return key
}

func marketFieldKey(token common.Address, field byte) common.Hash {
	return makeStorageKey(marketPrefix, append(token.Bytes(), field))
}

func accountStorageKey(prefix []byte, token common.Address, account common.Address) common.Hash {
	id := make([]byte, 0, 40)
	id = append(id, token.Bytes()...)
	id = append(id, account.Bytes()...)
	return makeStorageKey(prefix, id)
}

func getWord(stateDB StateDB, key common.Hash) *big.Int {
	h := stateDB.GetState(curveAddr, key)
	return new(big.Int).SetBytes(h[:])
}

func setWord(stateDB StateDB, key common.Hash, value *big.Int) {
	stateDB.SetState(curveAddr, key, common.BigToHash(value))
}

func getAddr(stateDB StateDB, key common.Hash) common.Address {
	h := stateDB.GetState(curveAddr, key)
	return common.BytesToAddress(h[:])
}

func setAddr(stateDB StateDB, key common.Hash, addr common.Address) {
	stateDB.SetState(curveAddr, key, common.BytesToHash(addr.Bytes()))
}

// getMarket loads a market from state. The MaxSupply slot doubles as the
// existence marker since markets are never created with zero supply.
func (l *Ledger) getMarket(stateDB StateDB, token common.Address) (*Market, error) {
	maxSupply := getWord(stateDB, marketFieldKey(token, fieldMaxSupply))
	if maxSupply.Sign() == 0 {
		return nil, ErrMarketNotFound
	}

	symbolWord := stateDB.GetState(curveAddr, marketFieldKey(token, fieldSymbol))
	flagsWord := stateDB.GetState(curveAddr, marketFieldKey(token, fieldFlags))
	flags := flagsWord[common.HashLength-1]

	return &Market{
		Token:               token,
		Creator:             getAddr(stateDB, marketFieldKey(token, fieldCreator)),
		Owner:               getAddr(stateDB, marketFieldKey(token, fieldOwner)),
		Escrow:              getAddr(stateDB, marketFieldKey(token, fieldEscrow)),
		Symbol:              string(bytes.TrimRight(symbolWord[:], "\x00")),
		Open:                flags&flagOpen != 0,
		OwnerFeeActive:      flags&flagOwnerFeeActive != 0,
		MaxSupply:           maxSupply,
		ReserveTokenSupply:  getWord(stateDB, marketFieldKey(token, fieldReserveToken)),
		ReserveVirtualQuote: getWord(stateDB, marketFieldKey(token, fieldReserveVirtual)),
		ReserveRealQuote:    getWord(stateDB, marketFieldKey(token, fieldReserveReal)),
		TotalDebt:           getWord(stateDB, marketFieldKey(token, fieldTotalDebt)),
	}, nil
}

func (l *Ledger) saveMarket(stateDB StateDB, m *Market) {
	var symbolWord common.Hash
	copy(symbolWord[:], m.Symbol)
	stateDB.SetState(curveAddr, marketFieldKey(m.Token, fieldSymbol), symbolWord)

	setAddr(stateDB, marketFieldKey(m.Token, fieldCreator), m.Creator)
	setAddr(stateDB, marketFieldKey(m.Token, fieldOwner), m.Owner)
	setAddr(stateDB, marketFieldKey(m.Token, fieldEscrow), m.Escrow)

	var flags byte
	if m.Open {
		flags |= flagOpen
	}
	if m.OwnerFeeActive {
		flags |= flagOwnerFeeActive
	}
	var flagsWord common.Hash
	flagsWord[common.HashLength-1] = flags
	stateDB.SetState(curveAddr, marketFieldKey(m.Token, fieldFlags), flagsWord)

	setWord(stateDB, marketFieldKey(m.Token, fieldMaxSupply), m.MaxSupply)
	setWord(stateDB, marketFieldKey(m.Token, fieldReserveToken), m.ReserveTokenSupply)
	setWord(stateDB, marketFieldKey(m.Token, fieldReserveVirtual), m.ReserveVirtualQuote)
	setWord(stateDB, marketFieldKey(m.Token, fieldReserveReal), m.ReserveRealQuote)
	setWord(stateDB, marketFieldKey(m.Token, fieldTotalDebt), m.TotalDebt)
}

func (l *Ledger) getTokenBalance(stateDB StateDB, token, account common.Address) *big.Int {
	return getWord(stateDB, accountStorageKey(balancePrefix, token, account))
}

func (l *Ledger) setTokenBalance(stateDB StateDB, token, account common.Address, amount *big.Int) {
	setWord(stateDB, accountStorageKey(balancePrefix, token, account), amount)
}

func (l *Ledger) getDebt(stateDB StateDB, token, account common.Address) *big.Int {
	return getWord(stateDB, accountStorageKey(debtPrefix, token, account))
}

func (l *Ledger) setDebt(stateDB StateDB, token, account common.Address, amount *big.Int) {
	setWord(stateDB, accountStorageKey(debtPrefix, token, account), amount)
}
