// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package registry catalogs the launch-family precompiles and their place
// in the LP address numbering scheme.
package registry

import (
	"fmt"
	"strings"

	"github.com/luxfi/geth/common"
)

// ============================================================================
// PRECOMPILE ADDRESS SCHEME - Aligned with LP Numbering (LP-0099)
// ============================================================================
//
// All Lux-native precompiles use trailing-significant 20-byte addresses:
//   Format: 0x0000000000000000000000000000000000PCII
//
// The address ends with the 16-bit LP number (PCII) for easy identification.
// The selector encodes:
//   0x 0000...0000 P C II
//                  │ │ └┴─ Item/function (8 bits, 256 items per family×chain)
//                  │ └──── Chain slot    (4 bits, 16 chains max, 11 assigned)
//                  └────── Family page   (4 bits, aligned with LP-Pxxx)
//
// P nibble = LP range first digit:
//   P=2 → LP-2xxx (PQ Identity)
//   P=3 → LP-3xxx (EVM/Crypto)
//   P=4 → LP-4xxx (Privacy/ZK)
//   P=5 → LP-5xxx (Threshold/MPC)
//   P=6 → LP-6xxx (Bridges)
//   P=7 → LP-7xxx (AI)
//   P=9 → LP-9xxx (DEX/Markets)
//
// C nibble = Chain slot:
//   C=0 → P-Chain
//   C=1 → X-Chain
//   C=2 → C-Chain (main EVM)
//   C=3 → Q-Chain
//   C=4 → A-Chain
//   C=5 → B-Chain
//   C=6 → Z-Chain
//   C=7 → M-Chain (reserved)
//   C=8 → Zoo
//   C=9 → Hanzo
//   C=A → SPC
//
// Example: LXCurve on C-Chain = markets page, item 0x10
//          Address = 0x0000000000000000000000000000000000009210 (LP-9210)

const (
	// =========================================================================
	// PAGE 9: DEX/MARKETS → LP-9xxx (addresses match LP numbers directly)
	// =========================================================================
	// LP-9000: DEX Core Trading Protocol (spec, not precompile)
	// LP-9010 through LP-9080 are allocated by the trading-engine LPs
	// (PoolManager, oracle, router, orderbook, vault, lending). The launch
	// family occupies the 0x92xx items.

	// Launch markets (LP-921x)
	LXCurve = "0x0000000000000000000000000000000000009210" // LP-9210 LXCurve (bonding-curve launch markets)

	// Launch escrow (LP-922x)
	LXLaunchpad = "0x0000000000000000000000000000000000009220" // LP-9220 LXLaunchpad (pre-sale escrow)
)

// PrecompileAddress calculates address from (P, C, II) nibbles
// P = Family page (aligned with LP-Pxxx), C = Chain slot, II = Item
// Returns trailing-significant format: 0x0000000000000000000000000000000000PCII
// The address ends with the LP number (e.g., 9210 for LP-9210 LXCurve)
func PrecompileAddress(p, c, ii uint8) common.Address {
	if p > 15 || c > 15 {
		return common.Address{}
	}
	// Build the 4-character selector: PCII (hex)
	selector := fmt.Sprintf("%x%x%02x", p, c, ii)
	// Pad with leading zeros to 40 hex chars (20 bytes)
	addr := "0000000000000000000000000000000000" + selector
	return common.HexToAddress("0x" + addr)
}

// ChainSlot returns the C-nibble for a chain name
func ChainSlot(chain string) uint8 {
	switch chain {
	case "P", "p":
		return 0
	case "X", "x":
		return 1
	case "C", "c":
		return 2
	case "Q", "q":
		return 3
	case "A", "a":
		return 4
	case "B", "b":
		return 5
	case "Z", "z":
		return 6
	case "M", "m":
		return 7
	case "Zoo", "zoo":
		return 8
	case "Hanzo", "hanzo":
		return 9
	case "SPC", "spc":
		return 0xA
	default:
		return 0xFF
	}
}

// FamilyPage returns the P-nibble for a family name (aligned with LP-Pxxx)
func FamilyPage(family string) uint8 {
	switch family {
	case "PQ", "pq":
		return 2 // LP-2xxx
	case "EVM", "evm", "Crypto", "crypto":
		return 3 // LP-3xxx
	case "Privacy", "privacy", "ZK", "zk":
		return 4 // LP-4xxx
	case "Threshold", "threshold", "MPC", "mpc":
		return 5 // LP-5xxx
	case "Bridge", "bridge":
		return 6 // LP-6xxx
	case "AI", "ai":
		return 7 // LP-7xxx
	case "DEX", "dex", "Markets", "markets":
		return 9 // LP-9xxx
	default:
		return 0xFF
	}
}

// ChainPrecompiles defines which launch precompiles are enabled per chain.
// Launch markets trade in the native coin, so they only make sense on the
// EVM chains.
var ChainPrecompiles = map[string][]string{
	// C-Chain (main EVM)
	"C": {
		LXCurve, LXLaunchpad,
	},

	// Zoo - launch markets with the same addresses as C-Chain
	"Zoo": {
		LXCurve, LXLaunchpad,
	},
}

// PrecompileInfo contains metadata about a precompile
type PrecompileInfo struct {
	Address     string
	Name        string
	Description string
	GasBase     uint64
	Chains      []string
	LPRange     string // LP number alignment
}

// AllPrecompiles lists the launch-family precompiles with their metadata
var AllPrecompiles = []PrecompileInfo{
	{LXCurve, "LX_CURVE", "Bonding-curve launch markets with credit lines", 50000, []string{"C", "Zoo"}, "LP-9210"},
	{LXLaunchpad, "LX_LAUNCHPAD", "Pre-sale escrow with pro-rata redemption", 30000, []string{"C", "Zoo"}, "LP-9220"},
}

// GetPrecompileAddress returns the address for a precompile by name
func GetPrecompileAddress(name string) common.Address {
	for _, p := range AllPrecompiles {
		if p.Name == name {
			return common.HexToAddress(p.Address)
		}
	}
	return common.Address{}
}

// GetChainPrecompiles returns all precompile addresses for a chain
func GetChainPrecompiles(chainLetter string) []common.Address {
	addrs, ok := ChainPrecompiles[chainLetter]
	if !ok {
		return nil
	}

	result := make([]common.Address, len(addrs))
	for i, addr := range addrs {
		result[i] = common.HexToAddress(addr)
	}
	return result
}

// IsPrecompileEnabled checks if a precompile is enabled for a chain
func IsPrecompileEnabled(chainLetter string, precompileAddr common.Address) bool {
	addrs := ChainPrecompiles[chainLetter]

	for _, addr := range addrs {
		if common.HexToAddress(addr) == precompileAddr {
			return true
		}
	}
	return false
}

// GetPrecompilesByFamily returns all precompiles on a family page
func GetPrecompilesByFamily(family string) []PrecompileInfo {
	page := FamilyPage(family)
	if page == 0xFF {
		return nil
	}

	prefix := "LP-" + string('0'+rune(page))
	var result []PrecompileInfo
	for _, p := range AllPrecompiles {
		if strings.HasPrefix(p.LPRange, prefix) {
			result = append(result, p)
		}
	}
	return result
}
