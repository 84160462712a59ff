// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package precompileconfig defines the configuration surface shared by all
// stateful precompile modules: activation timestamps, disable switches, and
// the per-chain JSON config contract.
package precompileconfig

import "math/big"

// Config is implemented by every precompile module config. Each config is
// keyed by the module's ConfigKey in the chain's upgrade JSON.
type Config interface {
	// Key returns the JSON key this config is registered under.
	Key() string
	// Timestamp returns the activation timestamp, nil if never active.
	Timestamp() *uint64
	// IsDisabled returns true if this config disables the precompile.
	IsDisabled() bool
	// Equal reports whether this config is equivalent to [other].
	Equal(other Config) bool
	// Verify checks the config's internal consistency at chain startup.
	Verify(chainConfig ChainConfig) error
}

// ChainConfig exposes the host chain parameters precompile configs may
// consult during Verify.
type ChainConfig interface {
	ChainID() *big.Int
}

// Upgrade carries the activation metadata embedded in every module config.
type Upgrade struct {
	BlockTimestamp *uint64 `json:"blockTimestamp,omitempty"`
	Disable        bool    `json:"disable,omitempty"`
}

// Timestamp returns the upgrade's activation timestamp.
func (u *Upgrade) Timestamp() *uint64 {
	return u.BlockTimestamp
}

// Equal reports whether [u] and [other] describe the same upgrade.
func (u *Upgrade) Equal(other *Upgrade) bool {
	if other == nil {
		return false
	}
	if u.Disable != other.Disable {
		return false
	}
	return equalTimestamp(u.BlockTimestamp, other.BlockTimestamp)
}

func equalTimestamp(a, b *uint64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
