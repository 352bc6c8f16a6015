// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vrf

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/vrfnode/types"
)

func TestWonSlotsKeysAscending(t *testing.T) {
	w := make(WonSlots)
	w.Insert(50, WonSlotData{})
	w.Insert(10, WonSlotData{})
	w.Insert(30, WonSlotData{})

	require.Equal(t, []types.GlobalSlot{10, 30, 50}, w.Keys())
}

func TestWonSlotsCleanupOldIsIdempotent(t *testing.T) {
	w := make(WonSlots)
	w.Insert(5, WonSlotData{})
	w.Insert(15, WonSlotData{})
	w.Insert(25, WonSlotData{})

	w.CleanupOld(20)
	require.Equal(t, []types.GlobalSlot{25}, w.Keys())

	// Applying the same cleanup again must be a no-op (§8 round-trip property).
	w.CleanupOld(20)
	require.Equal(t, []types.GlobalSlot{25}, w.Keys())
}

func TestWonSlotsHasSlotOlderThan(t *testing.T) {
	w := make(WonSlots)
	require.False(t, w.HasSlotOlderThan(10))

	w.Insert(5, WonSlotData{})
	require.True(t, w.HasSlotOlderThan(10))

	w.CleanupOld(10)
	require.False(t, w.HasSlotOlderThan(10))
}

func TestRetentionSlot(t *testing.T) {
	require.Equal(t, types.GlobalSlot(0), RetentionSlot(0, 7140))
	require.Equal(t, types.GlobalSlot(0), RetentionSlot(1, 7140))
	require.Equal(t, types.GlobalSlot(7140), RetentionSlot(2, 7140))
}

func TestNewStateIsIdle(t *testing.T) {
	s := NewState()
	require.Equal(t, StatusIdle, s.Status.Kind())
	require.False(t, s.IsInitialized())
	require.False(t, s.IsEvaluating())
	require.False(t, s.CanCheckNextEvaluation())
}
