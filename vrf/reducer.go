// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vrf

import (
	"fmt"
	"time"

	"github.com/luxfi/vrfnode/log"
	"github.com/luxfi/vrfnode/metrics"
	"github.com/luxfi/vrfnode/types"
)

// actionTypeName renders action's concrete type for structured log
// fields, e.g. "vrf.EvaluateSlot".
func actionTypeName(action Action) string {
	return fmt.Sprintf("%T", action)
}

// Evaluator owns the VRF leader-election state machine for one block
// producer. It is the library's entry point: the outer runtime calls
// Dispatch once per external or effect-completion event and drains the
// effects the reducer queued before delivering the next event,
// matching the action/effect split in §5.
type Evaluator struct {
	state         *State
	log           log.Logger
	metrics       *metrics.Metrics
	slotsPerEpoch uint32

	pending []Action // internal follow-up FIFO (§4.4)
	effects []Effect
}

// NewEvaluator returns an idle evaluator. slotsPerEpoch is the chain's
// fixed epoch length; it is stored on the evaluator, while
// CleanupOldSlots computes RetentionSlot from its own SlotsPerEpoch
// field. m may be nil, in which case won-slot/evaluation/failure/cleanup
// counts simply aren't recorded.
func NewEvaluator(logger log.Logger, slotsPerEpoch uint32, m *metrics.Metrics) *Evaluator {
	if logger == nil {
		logger = log.NewNoOp()
	}
	return &Evaluator{
		state:         NewState(),
		log:           logger,
		metrics:       m,
		slotsPerEpoch: slotsPerEpoch,
	}
}

// State returns a read-only snapshot of the evaluator's state. Callers
// must not mutate the returned value; per §5 the evaluator owns its
// state exclusively and consumers only read-only-snapshot WonSlots
// between dispatches.
func (e *Evaluator) State() *State { return e.state }

// DrainEffects returns and clears the effects queued since the last
// call, for the outer runtime to execute.
func (e *Evaluator) DrainEffects() []Effect {
	out := e.effects
	e.effects = nil
	return out
}

func (e *Evaluator) emit(eff Effect) { e.effects = append(e.effects, eff) }

func (e *Evaluator) bugCondition(msg string, keyvals ...any) {
	e.log.Error(msg, keyvals...)
	e.metrics.IncBugCondition("vrf")
}

// Dispatch applies action against the current state if its enabling
// condition holds, then drains any follow-up actions the reducer
// enqueued (§4.4). Disabled actions are dropped silently (§7.1).
func (e *Evaluator) Dispatch(action Action, now time.Time) {
	e.pending = append(e.pending, action)
	for len(e.pending) > 0 {
		next := e.pending[0]
		e.pending = e.pending[1:]
		e.apply(next, now)
	}
}

func (e *Evaluator) enqueue(a Action) { e.pending = append(e.pending, a) }

func (e *Evaluator) apply(action Action, now time.Time) {
	if !action.IsEnabled(e.state) {
		return
	}

	switch a := action.(type) {
	case InitializeEvaluator:
		e.state.Status = newStatus(StatusInitialisationPending, now)
		e.emit(EffectLoadPersistedHeights{})

	case FinalizeEvaluatorInitialization:
		if a.PreviousEpochAndHeight != nil {
			e.state.PerEpochLastBlockHeight[a.PreviousEpochAndHeight.Epoch] = a.PreviousEpochAndHeight.Height
		}
		e.state.Status = newStatus(StatusInitialised, now)

	case RecordLastBlockHeight:
		e.state.PerEpochLastBlockHeight[a.Epoch] = a.Height

	case CheckEpochEvaluability:
		ctx := e.computeEpochContext(a)
		st := newStatus(StatusReadinessCheck, now)
		st.Context = ctx
		e.state.Status = st

	case WaitForNextEvaluation:
		e.state.Status = newStatus(StatusWaitingForNextEvaluation, now)

	case InitializeEpochEvaluation:
		ctx := e.state.Status.Context
		isNext := ctx.Kind == EpochContextNext
		epoch := a.CurrentEpoch
		if isNext {
			epoch++
		}
		st := newStatus(StatusDelegatorTableRequested, now)
		st.Epoch = epoch
		st.Producer = a.Producer
		st.Data = ctx.Data
		st.IsNextEpoch = isNext
		e.state.Status = st
		e.emit(EffectRequestDelegatorTable{
			Epoch:      st.Epoch,
			Producer:   st.Producer,
			LedgerHash: st.Data.LedgerHash,
		})

	case BeginDelegatorTableConstruction:
		prev := e.state.Status
		e.emit(EffectRequestDelegatorTable{
			Epoch:      prev.Epoch,
			Producer:   prev.Producer,
			LedgerHash: prev.Data.LedgerHash,
		})

	case FinalizeDelegatorTableConstruction:
		prev := e.state.Status
		data := prev.Data
		data.Delegators = a.Delegators
		st := newStatus(StatusDelegatorTableConstructed, now)
		st.Epoch = prev.Epoch
		st.Producer = prev.Producer
		st.Data = data
		st.IsNextEpoch = prev.IsNextEpoch
		e.state.Status = st

	case SelectInitialSlot:
		prev := e.state.Status
		initial := selectInitialSlot(a, prev)
		st := newStatus(StatusSlotSelection, now)
		st.Epoch = prev.Epoch
		st.Producer = prev.Producer
		st.Data = prev.Data
		st.IsNextEpoch = prev.IsNextEpoch
		st.Current = CurrentEvaluation{
			EpochNumber:               prev.Epoch,
			EpochData:                 prev.Data,
			LatestEvaluatedGlobalSlot: initial,
			ProducerPublicKey:         prev.Producer,
		}
		e.state.Status = st

	case BeginEpochEvaluation:
		prev := e.state.Status
		st := newStatus(StatusEpochEvaluationPending, now)
		st.Epoch = prev.Epoch
		st.Producer = prev.Producer
		st.Data = prev.Data
		st.IsNextEpoch = prev.IsNextEpoch
		st.Current = prev.Current
		e.state.Status = st
		e.enqueue(EvaluateSlot{})

	case EvaluateSlot:
		prev := e.state.Status
		targetSlot := prev.Current.LatestEvaluatedGlobalSlot + 1
		trials := make([]SlotEvaluationTrial, 0, len(prev.Data.Delegators))
		for idx, entry := range prev.Data.Delegators {
			trials = append(trials, SlotEvaluationTrial{
				EpochSeed:      prev.Data.Seed,
				DelegatorIndex: idx,
				Stake:          entry.Stake,
				TotalCurrency:  prev.Data.TotalCurrency,
				GlobalSlot:     targetSlot,
			})
		}
		st := newStatus(StatusSlotRequested, now)
		st.Epoch = prev.Epoch
		st.Producer = prev.Producer
		st.Data = prev.Data
		st.IsNextEpoch = prev.IsNextEpoch
		st.Current = prev.Current
		e.state.Status = st
		e.metrics.IncSlotEvaluation()
		e.emit(EffectEvaluateSlot{GlobalSlot: targetSlot, Trials: trials})

	case ProcessSlotEvaluationSuccess:
		prev := e.state.Status
		current := prev.Current
		current.LatestEvaluatedGlobalSlot = a.Output.GlobalSlot
		if a.Output.IsWinning {
			e.state.WonSlots.Insert(a.Output.GlobalSlot, WonSlotData{
				VRFOutput:         a.Output.Output,
				StakingLedgerHash: a.StakingLedgerHash,
				DelegatorIndex:    a.Output.DelegatorIndex,
				Stake:             a.Output.Stake,
			})
			e.metrics.IncWonSlots()
		}
		st := newStatus(StatusSlotEvaluated, now)
		st.Epoch = prev.Epoch
		st.Producer = prev.Producer
		st.Data = prev.Data
		st.IsNextEpoch = prev.IsNextEpoch
		st.Current = current
		e.state.Status = st

	case ProcessSlotEvaluationFailure:
		prev := e.state.Status
		current := prev.Current
		current.LatestEvaluatedGlobalSlot = a.GlobalSlot
		st := newStatus(StatusSlotEvaluated, now)
		st.Epoch = prev.Epoch
		st.Producer = prev.Producer
		st.Data = prev.Data
		st.IsNextEpoch = prev.IsNextEpoch
		st.Current = current
		e.state.Status = st
		e.metrics.IncSlotFailures()

	case CheckEpochBounds:
		prev := e.state.Status
		if prev.Current.LatestEvaluatedGlobalSlot == a.LastSlotOfEpoch {
			st := newStatus(StatusEpochBoundEvaluated, now)
			st.Epoch = prev.Epoch
			st.Current = prev.Current
			st.LatestEvaluatedGlobalSlot = prev.Current.LatestEvaluatedGlobalSlot
			e.state.Status = st
			return
		}
		st := newStatus(StatusEpochEvaluationPending, now)
		st.Epoch = prev.Epoch
		st.Producer = prev.Producer
		st.Data = prev.Data
		st.IsNextEpoch = prev.IsNextEpoch
		st.Current = prev.Current
		e.state.Status = st
		e.enqueue(ContinueEpochEvaluation{})

	case ContinueEpochEvaluation:
		e.enqueue(EvaluateSlot{})

	case FinishEpochEvaluation:
		e.state.Status = newStatus(StatusWaitingForNextEvaluation, now)

	case CleanupOldSlots:
		retention := RetentionSlot(a.CurrentEpoch, a.SlotsPerEpoch)
		removed := e.state.WonSlots.CleanupOld(retention)
		e.metrics.AddCleanedSlots(removed)

	default:
		e.bugCondition("vrf: unhandled action", "action_type", actionTypeName(action))
	}
}

// computeEpochContext implements §4.1's three-way epoch-evaluability
// decision.
func (e *Evaluator) computeEpochContext(a CheckEpochEvaluability) EpochContext {
	if !a.CurrentEpochEvaluated {
		return EpochContext{Kind: EpochContextCurrent, Data: a.StakingEpochData}
	}

	previousEpoch := types.Epoch(0)
	if a.CurrentEpoch > 0 {
		previousEpoch = a.CurrentEpoch - 1
	}
	lastHeight, ok := e.state.PerEpochLastBlockHeight[previousEpoch]
	if ok && a.BestTipHeight >= lastHeight && a.BestTipHeight-lastHeight >= a.TransitionFrontierSize {
		return EpochContext{Kind: EpochContextNext, Data: a.NextEpochData}
	}
	return EpochContext{Kind: EpochContextWaiting}
}

// selectInitialSlot implements §4.1's initial-slot formula: evaluation
// of the next epoch always begins one slot before its first slot (so
// the following EvaluateSlot lands exactly on next_epoch_first_slot),
// while evaluation of the current epoch resumes from wherever the best
// tip already is, or the epoch's first slot if the chain hasn't reached
// it yet.
func selectInitialSlot(a SelectInitialSlot, prev Status) types.GlobalSlot {
	if prev.IsNextEpoch {
		return a.NextEpochFirstSlot - 1
	}
	if a.CurrentGlobalSlot > a.EpochFirstSlot {
		return a.CurrentGlobalSlot
	}
	return a.EpochFirstSlot
}
