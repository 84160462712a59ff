// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package presale

import (
	"math/big"

	"github.com/luxfi/geth/common"
	"github.com/zeebo/blake3"

	"github.com/luxfi/curve/curve"
)

// Precompile address as bytes (LP-9220 LXLaunchpad)
var presaleAddr = common.HexToAddress(LXLaunchpadAddress)

// Storage key prefixes for sale state
var (
	salePrefix    = []byte("sale/mkt")     // Per-sale field slots
	contribPrefix = []byte("sale/contrib") // Per-account contributions
)

// Per-sale storage fields, one slot each
const (
	fieldCreator byte = iota + 1
	fieldEndTime
	fieldFlags
	fieldTotalContributed
	fieldTokensReceived
)

// Flag bits packed into the last byte of the flags slot
const (
	flagEnded byte = 1 << 0
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

func saleFieldKey(token common.Address, field byte) common.Hash {
	return makeStorageKey(salePrefix, append(token.Bytes(), field))
}

func contributionKey(token common.Address, account common.Address) common.Hash {
	id := make([]byte, 0, 40)
	id = append(id, token.Bytes()...)
	id = append(id, account.Bytes()...)
	return makeStorageKey(contribPrefix, id)
}

func getWord(stateDB curve.StateDB, key common.Hash) *big.Int {
	h := stateDB.GetState(presaleAddr, key)
	return new(big.Int).SetBytes(h[:])
}

func setWord(stateDB curve.StateDB, key common.Hash, value *big.Int) {
	stateDB.SetState(presaleAddr, key, common.BigToHash(value))
}

func getAddr(stateDB curve.StateDB, key common.Hash) common.Address {
	h := stateDB.GetState(presaleAddr, key)
	return common.BytesToAddress(h[:])
}

func setAddr(stateDB curve.StateDB, key common.Hash, addr common.Address) {
	stateDB.SetState(presaleAddr, key, common.BytesToHash(addr.Bytes()))
}

// getSale loads a sale from state. The EndTimestamp slot doubles as the
// existence marker since sales always end strictly after some block time.
func (e *Escrow) getSale(stateDB curve.StateDB, token common.Address) (*Sale, error) {
	end := getWord(stateDB, saleFieldKey(token, fieldEndTime))
	if end.Sign() == 0 {
		return nil, ErrSaleNotFound
	}

	flagsWord := stateDB.GetState(presaleAddr, saleFieldKey(token, fieldFlags))
	flags := flagsWord[len(flagsWord)-1]

	return &Sale{
		Token:            token,
		Creator:          getAddr(stateDB, saleFieldKey(token, fieldCreator)),
		EndTimestamp:     end.Uint64(),
		Ended:            flags&flagEnded != 0,
		TotalContributed: getWord(stateDB, saleFieldKey(token, fieldTotalContributed)),
		TokensReceived:   getWord(stateDB, saleFieldKey(token, fieldTokensReceived)),
	}, nil
}

// saveSale writes every sale field back to state.
func (e *Escrow) saveSale(stateDB curve.StateDB, s *Sale) {
	setAddr(stateDB, saleFieldKey(s.Token, fieldCreator), s.Creator)
	setWord(stateDB, saleFieldKey(s.Token, fieldEndTime), new(big.Int).SetUint64(s.EndTimestamp))

	var flags byte
	if s.Ended {
		flags |= flagEnded
	}
	var flagsWord common.Hash
	flagsWord[len(flagsWord)-1] = flags
	stateDB.SetState(presaleAddr, saleFieldKey(s.Token, fieldFlags), flagsWord)

	setWord(stateDB, saleFieldKey(s.Token, fieldTotalContributed), s.TotalContributed)
	setWord(stateDB, saleFieldKey(s.Token, fieldTokensReceived), s.TokensReceived)
}

func (e *Escrow) getContribution(stateDB curve.StateDB, token, account common.Address) *big.Int {
	return getWord(stateDB, contributionKey(token, account))
}

func (e *Escrow) setContribution(stateDB curve.StateDB, token, account common.Address, amount *big.Int) {
	setWord(stateDB, contributionKey(token, account), amount)
}
