// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package contract

import (
	"fmt"
	"strings"

	"github.com/luxfi/crypto"
	"github.com/luxfi/geth/accounts/abi"
	"github.com/luxfi/geth/common"
)

// EventABI wraps a parsed ABI with log packing helpers. Precompiles emit
// their events through it instead of hand-encoding topics and data.
type EventABI struct {
	abi.ABI
}

// ParseABI parses the raw ABI JSON. The ABI strings are compile-time
// constants, so a parse failure is a programming error and panics.
func ParseABI(rawABI string) EventABI {
	parsed, err := abi.JSON(strings.NewReader(rawABI))
	if err != nil {
		panic(fmt.Sprintf("failed to parse ABI: %v", err))
	}
	return EventABI{ABI: parsed}
}

// PackEvent packs the named event's arguments into log topics and data.
// Indexed arguments become topics after the event signature; the rest are
// ABI-encoded into the data payload.
func (e EventABI) PackEvent(name string, args ...interface{}) ([]common.Hash, []byte, error) {
	event, ok := e.Events[name]
	if !ok {
		return nil, nil, fmt.Errorf("event %q not found", name)
	}
	if len(args) != len(event.Inputs) {
		return nil, nil, fmt.Errorf("event %q takes %d arguments, got %d", name, len(event.Inputs), len(args))
	}

	topics := make([]common.Hash, 0, len(event.Inputs)+1)
	if !event.Anonymous {
		topics = append(topics, event.ID)
	}

	var (
		dataArgs   abi.Arguments
		dataValues []interface{}
	)
	for i, input := range event.Inputs {
		if !input.Indexed {
			dataArgs = append(dataArgs, input)
			dataValues = append(dataValues, args[i])
			continue
		}
		topic, err := packTopic(args[i])
		if err != nil {
			return nil, nil, fmt.Errorf("event %q argument %d: %w", name, i, err)
		}
		topics = append(topics, topic)
	}

	data, err := dataArgs.Pack(dataValues...)
	if err != nil {
		return nil, nil, err
	}
	return topics, data, nil
}

// packTopic encodes one indexed argument as a log topic. Fixed-width values
// are left-padded into the word; dynamic values are hashed, matching how
// Solidity indexes them.
func packTopic(value interface{}) (common.Hash, error) {
	switch v := value.(type) {
	case common.Address:
		return common.BytesToHash(v.Bytes()), nil
	case common.Hash:
		return v, nil
	case []byte:
		return common.BytesToHash(crypto.Keccak256(v)), nil
	case string:
		return common.BytesToHash(crypto.Keccak256([]byte(v))), nil
	default:
		return common.Hash{}, fmt.Errorf("unsupported indexed type: %T", value)
	}
}
