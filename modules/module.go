// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package modules

import (
	"bytes"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/curve/contract"
)

// Module bundles everything the EVM needs to host one stateful precompile.
type Module struct {
	// ConfigKey is the key this module's config is registered under in the
	// chain upgrade JSON.
	ConfigKey string
	// Address is the precompile's fixed address.
	Address common.Address
	// Contract is the precompile implementation.
	Contract contract.StatefulPrecompiledContract
	// Configurator activates the module's config at its upgrade boundary.
	Configurator contract.Configurator
}

type moduleArray []Module

func (m moduleArray) Len() int { return len(m) }

func (m moduleArray) Swap(i, j int) { m[i], m[j] = m[j], m[i] }

func (m moduleArray) Less(i, j int) bool {
	return bytes.Compare(m[i].Address.Bytes(), m[j].Address.Bytes()) < 0
}
