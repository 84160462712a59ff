// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package curve

import (
	"fmt"
	"math/big"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/types"

	"github.com/luxfi/curve/contract"
)

// Event definitions for the launch-market precompile. Indexed fields follow
// ERC-20 indexer conventions: token first, then the acting account.
const eventsABI = `[
	{"type":"event","name":"MarketCreated","inputs":[{"name":"token","type":"address","indexed":true},{"name":"creator","type":"address","indexed":true},{"name":"maxSupply","type":"uint256","indexed":false},{"name":"virtualQuote","type":"uint256","indexed":false}]},
	{"type":"event","name":"MarketOpened","inputs":[{"name":"token","type":"address","indexed":true},{"name":"opener","type":"address","indexed":false}]},
	{"type":"event","name":"MarketBuy","inputs":[{"name":"token","type":"address","indexed":true},{"name":"buyer","type":"address","indexed":true},{"name":"to","type":"address","indexed":false},{"name":"quoteIn","type":"uint256","indexed":false},{"name":"tokenOut","type":"uint256","indexed":false}]},
	{"type":"event","name":"MarketSell","inputs":[{"name":"token","type":"address","indexed":true},{"name":"seller","type":"address","indexed":true},{"name":"to","type":"address","indexed":false},{"name":"tokenIn","type":"uint256","indexed":false},{"name":"quoteOut","type":"uint256","indexed":false}]},
	{"type":"event","name":"MarketHeal","inputs":[{"name":"token","type":"address","indexed":true},{"name":"healer","type":"address","indexed":true},{"name":"amountQuote","type":"uint256","indexed":false}]},
	{"type":"event","name":"MarketBurn","inputs":[{"name":"token","type":"address","indexed":true},{"name":"burner","type":"address","indexed":true},{"name":"amountToken","type":"uint256","indexed":false}]},
	{"type":"event","name":"MarketBorrow","inputs":[{"name":"token","type":"address","indexed":true},{"name":"borrower","type":"address","indexed":true},{"name":"to","type":"address","indexed":false},{"name":"amountQuote","type":"uint256","indexed":false}]},
	{"type":"event","name":"MarketRepay","inputs":[{"name":"token","type":"address","indexed":true},{"name":"payer","type":"address","indexed":true},{"name":"to","type":"address","indexed":false},{"name":"amountQuote","type":"uint256","indexed":false}]},
	{"type":"event","name":"TokenTransfer","inputs":[{"name":"token","type":"address","indexed":true},{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false}]},
	{"type":"event","name":"OwnerFeeSet","inputs":[{"name":"token","type":"address","indexed":true},{"name":"active","type":"bool","indexed":false}]},
	{"type":"event","name":"OwnerChanged","inputs":[{"name":"token","type":"address","indexed":true},{"name":"owner","type":"address","indexed":false}]}
]`

var curveABI = contract.ParseABI(eventsABI)

// emitLog packs and appends one event. The typed emit wrappers are the only
// callers, so a packing failure is a programming error and panics rather
// than dropping the log.
func (l *Ledger) emitLog(stateDB StateDB, name string, args ...interface{}) {
	topics, data, err := curveABI.PackEvent(name, args...)
	if err != nil {
		panic(fmt.Sprintf("failed to pack %s event: %v", name, err))
	}
	stateDB.AddLog(&types.Log{
		Address:     curveAddr,
		Topics:      topics,
		Data:        data,
		BlockNumber: stateDB.GetBlockNumber(),
	})
}

func (l *Ledger) emitMarketCreated(stateDB StateDB, token, creator common.Address, maxSupply, virtualQuote *big.Int) {
	l.emitLog(stateDB, "MarketCreated", token, creator, maxSupply, virtualQuote)
}

func (l *Ledger) emitMarketOpened(stateDB StateDB, token, opener common.Address) {
	l.emitLog(stateDB, "MarketOpened", token, opener)
}

func (l *Ledger) emitMarketBuy(stateDB StateDB, token, buyer, to common.Address, quoteIn, tokenOut *big.Int) {
	l.emitLog(stateDB, "MarketBuy", token, buyer, to, quoteIn, tokenOut)
}

func (l *Ledger) emitMarketSell(stateDB StateDB, token, seller, to common.Address, tokenIn, quoteOut *big.Int) {
	l.emitLog(stateDB, "MarketSell", token, seller, to, tokenIn, quoteOut)
}

func (l *Ledger) emitMarketHeal(stateDB StateDB, token, healer common.Address, amountQuote *big.Int) {
	l.emitLog(stateDB, "MarketHeal", token, healer, amountQuote)
}

func (l *Ledger) emitMarketBurn(stateDB StateDB, token, burner common.Address, amountToken *big.Int) {
	l.emitLog(stateDB, "MarketBurn", token, burner, amountToken)
}

func (l *Ledger) emitMarketBorrow(stateDB StateDB, token, borrower, to common.Address, amountQuote *big.Int) {
	l.emitLog(stateDB, "MarketBorrow", token, borrower, to, amountQuote)
}

func (l *Ledger) emitMarketRepay(stateDB StateDB, token, payer, to common.Address, amountQuote *big.Int) {
	l.emitLog(stateDB, "MarketRepay", token, payer, to, amountQuote)
}

func (l *Ledger) emitTokenTransfer(stateDB StateDB, token, from, to common.Address, amount *big.Int) {
	l.emitLog(stateDB, "TokenTransfer", token, from, to, amount)
}

func (l *Ledger) emitOwnerFeeSet(stateDB StateDB, token common.Address, active bool) {
	l.emitLog(stateDB, "OwnerFeeSet", token, active)
}

func (l *Ledger) emitOwnerChanged(stateDB StateDB, token, owner common.Address) {
	l.emitLog(stateDB, "OwnerChanged", token, owner)
}
