// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package contract

import "errors"

var (
	ErrOutOfGas       = errors.New("out of gas")
	ErrCannotReadOnly = errors.New("cannot execute state-changing operation in read-only call")
	ErrInputTooShort  = errors.New("input too short")
)

// WordLength is the width of an ABI word.
const WordLength = 32

// DeductGas charges requiredGas against suppliedGas.
func DeductGas(suppliedGas uint64, requiredGas uint64) (uint64, error) {
	if suppliedGas < requiredGas {
		return 0, ErrOutOfGas
	}
	return suppliedGas - requiredGas, nil
}

// PackedWord left-pads data into a single ABI word. Inputs longer than a
// word are truncated to their trailing bytes.
func PackedWord(data []byte) []byte {
	word := make([]byte, WordLength)
	if len(data) > WordLength {
		data = data[len(data)-WordLength:]
	}
	copy(word[WordLength-len(data):], data)
	return word
}

// PackedBool encodes a bool as a single ABI word.
func PackedBool(v bool) []byte {
	word := make([]byte, WordLength)
	if v {
		word[WordLength-1] = 1
	}
	return word
}
