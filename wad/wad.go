// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package wad implements 18-decimal fixed-point multiply-divide primitives
// over the unsigned 256-bit domain, with the rounding direction chosen
// explicitly at each call site.
package wad

import (
	"errors"
	"math/big"
)

var (
	ErrArithmeticOverflow = errors.New("wad: arithmetic overflow")
	ErrDivideByZero       = errors.New("wad: divide by zero")
	ErrNegativeInput      = errors.New("wad: negative input")
)

var (
	// Wad is the 18-decimal fixed-point scale (1e18).
	Wad = big.NewInt(1_000_000_000_000_000_000)

	// BpsDen is the basis-point denominator (10000 = 100%).
	BpsDen = big.NewInt(10_000)

	one = big.NewInt(1)
)

// maxUint256Bits bounds every value in the ledger domain. Intermediate
// products are arbitrary precision; only results must fit.
const maxUint256Bits = 256

// MulDivDown returns floor(a*b/d). Operands live in the unsigned domain:
// a negative input fails with ErrNegativeInput, a zero divisor with
// ErrDivideByZero, and a quotient above 256 bits with
// ErrArithmeticOverflow.
func MulDivDown(a, b, d *big.Int) (*big.Int, error) {
	if a.Sign() < 0 || b.Sign() < 0 || d.Sign() < 0 {
		return nil, ErrNegativeInput
	}
	if d.Sign() == 0 {
		return nil, ErrDivideByZero
	}
	z := new(big.Int).Mul(a, b)
	z.Div(z, d)
	if z.BitLen() > maxUint256Bits {
		return nil, ErrArithmeticOverflow
	}
	return z, nil
}

// MulDivUp returns ceil(a*b/d). Same failure conditions as MulDivDown,
// including the case where rounding up pushes the result past 256 bits.
func MulDivUp(a, b, d *big.Int) (*big.Int, error) {
	if a.Sign() < 0 || b.Sign() < 0 || d.Sign() < 0 {
		return nil, ErrNegativeInput
	}
	if d.Sign() == 0 {
		return nil, ErrDivideByZero
	}
	p := new(big.Int).Mul(a, b)
	z, rem := new(big.Int).QuoRem(p, d, new(big.Int))
	if rem.Sign() != 0 {
		z.Add(z, one)
	}
	if z.BitLen() > maxUint256Bits {
		return nil, ErrArithmeticOverflow
	}
	return z, nil
}

// FeeOf returns floor(amount*bps/10000). The result never exceeds amount
// for bps <= 10000, so no overflow check is needed.
func FeeOf(amount *big.Int, bps uint16) *big.Int {
	fee := new(big.Int).Mul(amount, big.NewInt(int64(bps)))
	return fee.Div(fee, BpsDen)
}
