// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vrf

import "github.com/luxfi/vrfnode/types"

// Action is one input to the evaluator's reducer. Every concrete action
// below carries its enabling condition as IsEnabled; actions whose precondition
// does not hold are dropped by Evaluator.Dispatch without mutating
// state (§7.1) — this is normal race resolution, not an error.
type Action interface {
	IsEnabled(s *State) bool
}

// InitializeEvaluator starts the evaluator from a chain tip. Enabled
// only before the first initialization.
type InitializeEvaluator struct {
	BestTipHeight uint32
}

func (InitializeEvaluator) IsEnabled(s *State) bool { return !s.IsInitialized() }

// FinalizeEvaluatorInitialization installs whatever per-epoch height
// bookkeeping was persisted from a previous run.
type FinalizeEvaluatorInitialization struct {
	// PreviousEpochAndHeight is nil when no prior run persisted anything.
	PreviousEpochAndHeight *EpochAndHeight
}

// EpochAndHeight pairs an epoch number with the last block height
// observed in it.
type EpochAndHeight struct {
	Epoch  types.Epoch
	Height uint32
}

func (FinalizeEvaluatorInitialization) IsEnabled(s *State) bool {
	return s.Status.Kind() == StatusInitialisationPending
}

// RecordLastBlockHeight updates the per-epoch last-block-height table
// used by CheckEpochEvaluability's "is the next epoch finalised yet"
// test. Enabled any time after initialization.
type RecordLastBlockHeight struct {
	Epoch  types.Epoch
	Height uint32
}

func (RecordLastBlockHeight) IsEnabled(s *State) bool { return s.IsInitialized() }

// CheckEpochEvaluability computes which epoch (if any) is ready to
// evaluate (§4.1). Enabled from Initialised or WaitingForNextEvaluation.
type CheckEpochEvaluability struct {
	CurrentEpoch           types.Epoch
	BestTipHeight          uint32
	BestTipSlot            uint32
	BestTipGlobalSlot      types.GlobalSlot
	NextEpochFirstSlot     types.GlobalSlot
	CurrentEpochEvaluated  bool
	StakingEpochData       EpochData
	NextEpochData          EpochData
	TransitionFrontierSize uint32
}

func (CheckEpochEvaluability) IsEnabled(s *State) bool { return s.CanCheckNextEvaluation() }

// InitializeEpochEvaluation snapshots the chosen epoch and producer
// once CheckEpochEvaluability resolved a Current or Next context.
// Enabled only while ReadinessCheck holds a non-Waiting context.
type InitializeEpochEvaluation struct {
	Producer     types.PublicKey
	CurrentEpoch types.Epoch
}

func (InitializeEpochEvaluation) IsEnabled(s *State) bool {
	return s.Status.Kind() == StatusReadinessCheck &&
		(s.Status.Context.Kind == EpochContextCurrent || s.Status.Context.Kind == EpochContextNext)
}

// WaitForNextEvaluation is the terminal transition taken when
// check_epoch_evaluability resolved Waiting.
type WaitForNextEvaluation struct{}

func (WaitForNextEvaluation) IsEnabled(s *State) bool {
	return s.Status.Kind() == StatusReadinessCheck
}

// BeginDelegatorTableConstruction requests the delegator table for the
// chosen epoch and producer from the ledger collaborator.
type BeginDelegatorTableConstruction struct{}

func (BeginDelegatorTableConstruction) IsEnabled(s *State) bool {
	return s.Status.Kind() == StatusDelegatorTableRequested
}

// FinalizeDelegatorTableConstruction installs the table the ledger
// collaborator computed.
type FinalizeDelegatorTableConstruction struct {
	Delegators map[types.DelegatorIndex]DelegatorEntry
}

func (FinalizeDelegatorTableConstruction) IsEnabled(s *State) bool {
	return s.Status.Kind() == StatusDelegatorTableRequested
}

// SelectInitialSlot computes the first global slot this evaluation run
// should attempt (§4.1).
type SelectInitialSlot struct {
	CurrentGlobalSlot  types.GlobalSlot
	NextEpochFirstSlot types.GlobalSlot
	// EpochFirstSlot is the first slot of the epoch being evaluated,
	// needed only when evaluating the Current epoch.
	EpochFirstSlot types.GlobalSlot
}

func (SelectInitialSlot) IsEnabled(s *State) bool {
	return s.Status.Kind() == StatusDelegatorTableConstructed
}

// BeginEpochEvaluation starts the per-slot evaluation loop.
type BeginEpochEvaluation struct{}

func (BeginEpochEvaluation) IsEnabled(s *State) bool {
	return s.Status.Kind() == StatusSlotSelection
}

// EvaluateSlot is the effectful request to try every delegator's VRF
// for the current evaluation's next slot. Enabled while the loop is
// active, whether just starting (SlotSelection) or continuing
// (EpochEvaluationPending).
type EvaluateSlot struct{}

func (EvaluateSlot) IsEnabled(s *State) bool { return s.IsEvaluating() }

// ProcessSlotEvaluationSuccess reports the crypto collaborator's result
// for the in-flight slot. The enabling condition is the heart of the
// evaluator's safety property: the reported slot and ledger hash must
// exactly match what was requested, or the action is dropped (§8,
// boundary scenario 3).
type ProcessSlotEvaluationSuccess struct {
	Output            VRFOutput
	StakingLedgerHash types.Hash
}

func (a ProcessSlotEvaluationSuccess) IsEnabled(s *State) bool {
	if s.Status.Kind() != StatusSlotRequested {
		return false
	}
	ce := s.Status.Current
	return ce.LatestEvaluatedGlobalSlot+1 == a.Output.GlobalSlot &&
		ce.EpochData.LedgerHash == a.StakingLedgerHash
}

// ProcessSlotEvaluationFailure reports that the crypto collaborator
// could not evaluate the in-flight slot. This is non-fatal (§4.1,
// §7): the slot is skipped and evaluation advances past it. The
// enabling condition only checks the slot number, since a failed
// evaluation carries no ledger hash to compare.
type ProcessSlotEvaluationFailure struct {
	GlobalSlot types.GlobalSlot
}

func (a ProcessSlotEvaluationFailure) IsEnabled(s *State) bool {
	return s.Status.Kind() == StatusSlotRequested &&
		s.Status.Current.LatestEvaluatedGlobalSlot+1 == a.GlobalSlot
}

// CheckEpochBounds decides whether the evaluation loop has reached the
// last slot of the epoch.
type CheckEpochBounds struct {
	LastSlotOfEpoch types.GlobalSlot
}

func (CheckEpochBounds) IsEnabled(s *State) bool {
	return s.Status.Kind() == StatusSlotEvaluated
}

// ContinueEpochEvaluation loops the evaluation back to EvaluateSlot for
// the next slot within the same epoch.
type ContinueEpochEvaluation struct{}

func (ContinueEpochEvaluation) IsEnabled(s *State) bool {
	return s.Status.Kind() == StatusEpochEvaluationPending || s.Status.Kind() == StatusEpochBoundEvaluated
}

// FinishEpochEvaluation closes out a fully-evaluated epoch.
type FinishEpochEvaluation struct{}

func (FinishEpochEvaluation) IsEnabled(s *State) bool {
	return s.Status.Kind() == StatusEpochBoundEvaluated
}

// CleanupOldSlots erases won-slot records below the retention slot for
// currentEpoch. Enabled only when at least one record is stale, so
// calling it repeatedly once the evaluator catches up is a no-op
// (§8 round-trip property).
type CleanupOldSlots struct {
	CurrentEpoch  types.Epoch
	SlotsPerEpoch uint32
}

func (a CleanupOldSlots) IsEnabled(s *State) bool {
	retention := RetentionSlot(a.CurrentEpoch, a.SlotsPerEpoch)
	return s.WonSlots.HasSlotOlderThan(retention)
}
