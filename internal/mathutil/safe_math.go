// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package mathutil provides overflow-checked arithmetic over the
// 32-bit slot and epoch counters used by vrf.
//
// Narrowed to uint32 since the quantities it serves (GlobalSlot,
// Epoch) are 32-bit.
package mathutil

import (
	"errors"
	"math"
)

var (
	ErrOverflow  = errors.New("mathutil: overflow")
	ErrUnderflow = errors.New("mathutil: underflow")
)

// Add32 returns a + b with overflow detection.
func Add32(a, b uint32) (uint32, error) {
	if a > math.MaxUint32-b {
		return 0, ErrOverflow
	}
	return a + b, nil
}

// Sub32 returns a - b with underflow detection.
func Sub32(a, b uint32) (uint32, error) {
	if a < b {
		return 0, ErrUnderflow
	}
	return a - b, nil
}

// Mul32 returns a * b with overflow detection.
func Mul32(a, b uint32) (uint32, error) {
	if b != 0 && a > math.MaxUint32/b {
		return 0, ErrOverflow
	}
	return a * b, nil
}

// Min returns the minimum of two values.
func Min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Max returns the maximum of two values.
func Max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// SaturatingSub32 returns a - b, or 0 if that would underflow — the
// "clamp to the epoch boundary" behavior RetentionSlot wants rather
// than a propagated error.
func SaturatingSub32(a, b uint32) uint32 {
	if a < b {
		return 0
	}
	return a - b
}
