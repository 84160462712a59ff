// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wad

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMulDivDown(t *testing.T) {
	tests := []struct {
		name    string
		a, b, d int64
		want    int64
	}{
		{"exact", 10, 10, 4, 25},
		{"truncates", 10, 10, 3, 33},
		{"zero numerator", 0, 77, 5, 0},
		{"identity", 42, 1, 1, 42},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MulDivDown(big.NewInt(tt.a), big.NewInt(tt.b), big.NewInt(tt.d))
			require.NoError(t, err)
			require.Equal(t, tt.want, got.Int64())
		})
	}
}

func TestMulDivUp(t *testing.T) {
	tests := []struct {
		name    string
		a, b, d int64
		want    int64
	}{
		{"exact stays", 10, 10, 4, 25},
		{"rounds up", 10, 10, 3, 34},
		{"zero numerator", 0, 77, 5, 0},
		{"one wei remainder", 7, 1, 2, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MulDivUp(big.NewInt(tt.a), big.NewInt(tt.b), big.NewInt(tt.d))
			require.NoError(t, err)
			require.Equal(t, tt.want, got.Int64())
		})
	}
}

func TestMulDivNegativeInput(t *testing.T) {
	neg := big.NewInt(-1)
	for _, args := range [][3]*big.Int{
		{neg, big.NewInt(2), big.NewInt(3)},
		{big.NewInt(2), neg, big.NewInt(3)},
		{big.NewInt(2), big.NewInt(3), neg},
	} {
		_, err := MulDivDown(args[0], args[1], args[2])
		require.ErrorIs(t, err, ErrNegativeInput)

		_, err = MulDivUp(args[0], args[1], args[2])
		require.ErrorIs(t, err, ErrNegativeInput)
	}
}

func TestMulDivZeroDivisor(t *testing.T) {
	_, err := MulDivDown(big.NewInt(1), big.NewInt(1), new(big.Int))
	require.ErrorIs(t, err, ErrDivideByZero)

	_, err = MulDivUp(big.NewInt(1), big.NewInt(1), new(big.Int))
	require.ErrorIs(t, err, ErrDivideByZero)
}

func TestMulDivOverflow(t *testing.T) {
	maxU256 := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

	// Intermediate product above 256 bits is fine as long as the quotient fits.
	got, err := MulDivDown(maxU256, maxU256, maxU256)
	require.NoError(t, err)
	require.Zero(t, got.Cmp(maxU256))

	_, err = MulDivDown(maxU256, big.NewInt(2), big.NewInt(1))
	require.ErrorIs(t, err, ErrArithmeticOverflow)

	// Rounding up past the top of the domain overflows too.
	_, err = MulDivUp(maxU256, big.NewInt(3), big.NewInt(2))
	require.ErrorIs(t, err, ErrArithmeticOverflow)
}

func TestMulDivRoundingGap(t *testing.T) {
	// Down and up differ by at most one, and only when the division is inexact.
	a, b := big.NewInt(1_234_567), big.NewInt(7_654_321)
	for _, d := range []int64{1, 3, 7, 1_000_003} {
		down, err := MulDivDown(a, b, big.NewInt(d))
		require.NoError(t, err)
		up, err := MulDivUp(a, b, big.NewInt(d))
		require.NoError(t, err)

		gap := new(big.Int).Sub(up, down)
		exact := new(big.Int).Mod(new(big.Int).Mul(a, b), big.NewInt(d)).Sign() == 0
		if exact {
			require.Zero(t, gap.Sign())
		} else {
			require.Equal(t, int64(1), gap.Int64())
		}
	}
}

func TestMulDivUpPreservesProduct(t *testing.T) {
	// Rounding the swap output up keeps the post-trade product at or above
	// the pre-trade product, which is what makes the curve drain-proof.
	x0 := new(big.Int).Mul(big.NewInt(30), Wad)
	y0 := new(big.Int).Mul(big.NewInt(1_000_000_000), Wad)
	k := new(big.Int).Mul(x0, y0)

	for _, in := range []int64{1, 999, 1_000_000_000_000} {
		x1 := new(big.Int).Add(x0, big.NewInt(in))
		y1, err := MulDivUp(x0, y0, x1)
		require.NoError(t, err)
		require.True(t, new(big.Int).Mul(x1, y1).Cmp(k) >= 0)
	}
}

func TestFeeOf(t *testing.T) {
	require.Equal(t, big.NewInt(10_000_000_000_000_000), FeeOf(Wad, 100))
	require.Zero(t, FeeOf(big.NewInt(99), 100).Sign())
	require.Equal(t, int64(100), FeeOf(big.NewInt(10_001), 100).Int64())
	require.Zero(t, FeeOf(Wad, 0).Sign())
	require.Equal(t, Wad, FeeOf(Wad, 10_000))
}
