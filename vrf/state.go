// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package vrf implements the VRF leader-election evaluator: a
// deterministic state machine that, for each epoch the node can
// currently evaluate, enumerates every slot the node's delegated stake
// wins and records the result in won-slot order.
//
// Status is a tagged sum type advanced by a pure reducer; anything
// effectful (randomness, signing, persistence) is expressed as an
// Effect value queued for the outer runtime rather than called directly.
package vrf

import (
	"math"
	"time"

	"github.com/luxfi/vrfnode/internal/mathutil"
	"github.com/luxfi/vrfnode/types"
)

// EpochData is the staking snapshot one epoch evaluates against. The
// delegator table is nil until BeginDelegatorTableConstruction's
// companion FinalizeDelegatorTableConstruction installs it.
type EpochData struct {
	LedgerHash    types.Hash
	TotalCurrency uint64
	Seed          types.Hash
	Delegators    map[types.DelegatorIndex]DelegatorEntry
}

// HasDelegatorTable reports whether the delegator table has been
// constructed yet.
func (d EpochData) HasDelegatorTable() bool {
	return d.Delegators != nil
}

// DelegatorEntry is one row of the delegator table: a delegator's
// public key and the stake it delegates to the block producer being
// evaluated.
type DelegatorEntry struct {
	PublicKey types.PublicKey
	Stake     uint64
}

// EpochContextKind tags which epoch's staking data check_epoch_evaluability
// selected.
type EpochContextKind int

const (
	// EpochContextWaiting means neither the current nor the next
	// epoch's staking ledger is ready to evaluate yet.
	EpochContextWaiting EpochContextKind = iota
	// EpochContextCurrent means the current epoch has not yet been
	// evaluated and its staking data is ready.
	EpochContextCurrent
	// EpochContextNext means the current epoch is fully evaluated and
	// the next epoch's staking ledger has finalised.
	EpochContextNext
)

func (k EpochContextKind) String() string {
	switch k {
	case EpochContextCurrent:
		return "Current"
	case EpochContextNext:
		return "Next"
	default:
		return "Waiting"
	}
}

// EpochContext is the outcome of check_epoch_evaluability (§4.1).
type EpochContext struct {
	Kind EpochContextKind
	Data EpochData // zero value when Kind == EpochContextWaiting
}

// CurrentEvaluation snapshots the epoch, producer and progress of the
// evaluation loop currently in flight.
type CurrentEvaluation struct {
	EpochNumber               types.Epoch
	EpochData                 EpochData
	LatestEvaluatedGlobalSlot types.GlobalSlot
	ProducerPublicKey         types.PublicKey
}

// WonSlotData is what gets recorded for a slot the node's stake wins.
type WonSlotData struct {
	VRFOutput         types.Hash
	StakingLedgerHash types.Hash
	DelegatorIndex    types.DelegatorIndex
	Stake             uint64
}

// WonSlots is the ordered global_slot -> WonSlotData mapping (§3.1).
// Go maps have no intrinsic order, so Keys returns them sorted
// ascending on demand rather than carrying a separate ordered index.
type WonSlots map[types.GlobalSlot]WonSlotData

// Insert records a won slot. Keys are unique by construction (each
// global slot is evaluated at most once).
func (w WonSlots) Insert(slot types.GlobalSlot, data WonSlotData) {
	w[slot] = data
}

// Keys returns the recorded global slots in ascending order.
func (w WonSlots) Keys() []types.GlobalSlot {
	keys := make([]types.GlobalSlot, 0, len(w))
	for k := range w {
		keys = append(keys, k)
	}
	sortGlobalSlots(keys)
	return keys
}

// CleanupOld removes every won slot strictly below retention and
// returns how many were removed. Calling it again with the same
// retention is a no-op.
func (w WonSlots) CleanupOld(retention types.GlobalSlot) int {
	removed := 0
	for slot := range w {
		if slot < retention {
			delete(w, slot)
			removed++
		}
	}
	return removed
}

// HasSlotOlderThan reports whether any recorded slot is strictly below
// retention — the enabling condition for CleanupOldSlots.
func (w WonSlots) HasSlotOlderThan(retention types.GlobalSlot) bool {
	for slot := range w {
		if slot < retention {
			return true
		}
	}
	return false
}

func sortGlobalSlots(s []types.GlobalSlot) {
	// Insertion sort: won-slot sets are small (one epoch's worth at
	// most) so this avoids pulling in sort.Slice for a handful of
	// uint32s.
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// StatusKind discriminates the tagged status variants below.
type StatusKind int

const (
	StatusIdle StatusKind = iota
	StatusInitialisationPending
	StatusInitialised
	StatusReadinessCheck
	StatusDelegatorTableRequested
	StatusDelegatorTableConstructed
	StatusSlotSelection
	StatusEpochEvaluationPending
	StatusSlotRequested
	StatusSlotEvaluated
	StatusEpochBoundEvaluated
	StatusWaitingForNextEvaluation
)

func (k StatusKind) String() string {
	switch k {
	case StatusIdle:
		return "Idle"
	case StatusInitialisationPending:
		return "InitialisationPending"
	case StatusInitialised:
		return "Initialised"
	case StatusReadinessCheck:
		return "ReadinessCheck"
	case StatusDelegatorTableRequested:
		return "DelegatorTableRequested"
	case StatusDelegatorTableConstructed:
		return "DelegatorTableConstructed"
	case StatusSlotSelection:
		return "SlotSelection"
	case StatusEpochEvaluationPending:
		return "EpochEvaluationPending"
	case StatusSlotRequested:
		return "SlotRequested"
	case StatusSlotEvaluated:
		return "SlotEvaluated"
	case StatusEpochBoundEvaluated:
		return "EpochBoundEvaluated"
	case StatusWaitingForNextEvaluation:
		return "WaitingForNextEvaluation"
	default:
		return "Unknown"
	}
}

// Status is the evaluator's current status, a tagged sum type carrying
// only the fields meaningful for that tag. The spec's status list
// names both "ReadinessCheck" and "EpochContextChosen" as distinct
// states; this implementation merges them into one (ReadinessCheck
// carrying the resolved Context) because the source's own enabling
// conditions (is_readiness_check() && epoch_context() matches
// Current|Next) treat the epoch-context choice as part of the
// readiness check, never as a separately-addressable state.
type Status struct {
	kind StatusKind
	Time time.Time

	// Populated only for StatusReadinessCheck.
	Context EpochContext

	// Populated from StatusDelegatorTableRequested through
	// StatusSlotEvaluated: the epoch and producer an evaluation is
	// proceeding against. StatusEpochBoundEvaluated keeps only Epoch.
	Epoch       types.Epoch
	Producer    types.PublicKey
	Data        EpochData
	IsNextEpoch bool // true when evaluating the next, not current, epoch

	// Populated from StatusSlotSelection through StatusEpochBoundEvaluated.
	Current CurrentEvaluation

	// Populated only for StatusEpochBoundEvaluated.
	LatestEvaluatedGlobalSlot types.GlobalSlot
}

// Kind returns the status's tag.
func (s Status) Kind() StatusKind { return s.kind }

// newStatus builds a Status of the given kind at the given time; the
// reducer fills in whichever of the remaining fields that kind needs.
func newStatus(kind StatusKind, now time.Time) Status {
	return Status{kind: kind, Time: now}
}

// State is the full VRF evaluator state (§3.1).
type State struct {
	Status                Status
	WonSlots              WonSlots
	PerEpochLastBlockHeight map[types.Epoch]uint32
}

// NewState returns an idle evaluator state with empty won-slot and
// height bookkeeping.
func NewState() *State {
	return &State{
		Status:                  Status{kind: StatusIdle},
		WonSlots:                make(WonSlots),
		PerEpochLastBlockHeight: make(map[types.Epoch]uint32),
	}
}

// IsInitialized reports whether InitializeEvaluator has already fired.
func (s *State) IsInitialized() bool {
	return s.Status.kind != StatusIdle
}

// IsEvaluating reports whether a slot evaluation may currently be
// dispatched (EvaluateSlot's enabling condition).
func (s *State) IsEvaluating() bool {
	return s.Status.kind == StatusSlotSelection || s.Status.kind == StatusEpochEvaluationPending
}

// CanCheckNextEvaluation reports whether CheckEpochEvaluability may fire.
func (s *State) CanCheckNextEvaluation() bool {
	return s.Status.kind == StatusInitialised || s.Status.kind == StatusWaitingForNextEvaluation
}

// RetentionSlot is the first global slot still worth keeping a won-slot
// record for: the first slot of max(0, currentEpoch-1).
func RetentionSlot(currentEpoch types.Epoch, slotsPerEpoch uint32) types.GlobalSlot {
	retentionEpoch := mathutil.SaturatingSub32(uint32(currentEpoch), 1)
	slot, err := mathutil.Mul32(retentionEpoch, slotsPerEpoch)
	if err != nil {
		return types.GlobalSlot(math.MaxUint32)
	}
	return types.GlobalSlot(slot)
}
