// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vrf

import "github.com/luxfi/vrfnode/types"

// SlotEvaluationTrial is one delegator's VRF input for a single global
// slot (§4.1 evaluate_slot). The cryptographic primitive itself is out
// of scope (§1 Non-goals): the outer runtime owns a collaborator that
// computes `eval(sk, seed, slot, delegator_stake, total_stake)` and
// reports the result back asynchronously via ProcessSlotEvaluationSuccess
// or ProcessSlotEvaluationFailure.
type SlotEvaluationTrial struct {
	ProducerSecretKey types.SecretKey
	EpochSeed         types.Hash
	DelegatorIndex    types.DelegatorIndex
	Stake             uint64
	TotalCurrency     uint64
	GlobalSlot        types.GlobalSlot
}

// VRFOutput is the asynchronous result of evaluating every delegator's
// trial for one global slot.
type VRFOutput struct {
	GlobalSlot     types.GlobalSlot
	IsWinning      bool
	Output         types.Hash
	DelegatorIndex types.DelegatorIndex
	Stake          uint64
}

// Effect is an action the evaluator asks the outer runtime to perform.
// The reducer never performs effects itself (§5) — it only appends
// them here for Evaluator.DrainEffects to hand to the runtime.
type Effect interface{ isVRFEffect() }

// EffectLoadPersistedHeights asks the persistence collaborator (out of
// scope per §1) for the previously recorded per-epoch last block
// heights; the reply arrives as a FinalizeEvaluatorInitialization action.
type EffectLoadPersistedHeights struct{}

func (EffectLoadPersistedHeights) isVRFEffect() {}

// EffectRequestDelegatorTable asks the ledger collaborator to build the
// delegator table for Producer against the named staking ledger; the
// reply arrives as a FinalizeDelegatorTableConstruction action.
type EffectRequestDelegatorTable struct {
	Epoch      types.Epoch
	Producer   types.PublicKey
	LedgerHash types.Hash
}

func (EffectRequestDelegatorTable) isVRFEffect() {}

// EffectEvaluateSlot asks the crypto collaborator to evaluate every
// trial for one global slot; the reply arrives as either
// ProcessSlotEvaluationSuccess or ProcessSlotEvaluationFailure.
type EffectEvaluateSlot struct {
	GlobalSlot types.GlobalSlot
	Trials     []SlotEvaluationTrial
}

func (EffectEvaluateSlot) isVRFEffect() {}
