// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package presale

import (
	"fmt"
	"math/big"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/types"

	"github.com/luxfi/curve/contract"
	"github.com/luxfi/curve/curve"
)

// Event definitions for the launchpad precompile. The market engine emits
// its own MarketBuy and MarketOpened during the finalize step, so only the
// escrow-side facts are logged here.
const eventsABI = `[
	{"type":"event","name":"SaleCreated","inputs":[{"name":"token","type":"address","indexed":true},{"name":"creator","type":"address","indexed":true},{"name":"endTimestamp","type":"uint64","indexed":false}]},
	{"type":"event","name":"Contributed","inputs":[{"name":"token","type":"address","indexed":true},{"name":"contributor","type":"address","indexed":true},{"name":"amountQuote","type":"uint256","indexed":false}]},
	{"type":"event","name":"Redeemed","inputs":[{"name":"token","type":"address","indexed":true},{"name":"account","type":"address","indexed":true},{"name":"redeemer","type":"address","indexed":false},{"name":"amountToken","type":"uint256","indexed":false}]}
]`

var launchpadABI = contract.ParseABI(eventsABI)

// emitLog packs and appends one event. The typed emit wrappers are the only
// callers, so a packing failure is a programming error and panics rather
// than dropping the log.
func (e *Escrow) emitLog(stateDB curve.StateDB, name string, args ...interface{}) {
	topics, data, err := launchpadABI.PackEvent(name, args...)
	if err != nil {
		panic(fmt.Sprintf("failed to pack %s event: %v", name, err))
	}
	stateDB.AddLog(&types.Log{
		Address:     presaleAddr,
		Topics:      topics,
		Data:        data,
		BlockNumber: stateDB.GetBlockNumber(),
	})
}

func (e *Escrow) emitSaleCreated(stateDB curve.StateDB, token, creator common.Address, endTimestamp uint64) {
	e.emitLog(stateDB, "SaleCreated", token, creator, endTimestamp)
}

func (e *Escrow) emitContributed(stateDB curve.StateDB, token, contributor common.Address, amountQuote *big.Int) {
	e.emitLog(stateDB, "Contributed", token, contributor, amountQuote)
}

func (e *Escrow) emitRedeemed(stateDB curve.StateDB, token, account, redeemer common.Address, amountToken *big.Int) {
	e.emitLog(stateDB, "Redeemed", token, account, redeemer, amountToken)
}
