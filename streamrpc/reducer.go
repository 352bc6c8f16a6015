// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package streamrpc

import (
	"fmt"
	"time"

	"github.com/luxfi/vrfnode/log"
	"github.com/luxfi/vrfnode/metrics"
)

// Channel owns one peer's streaming-RPC state and mirrors vrf.Evaluator's
// shape: a FIFO-draining Dispatch, effects collected for the outer
// runtime, bug conditions reported through the logger rather than
// panicking (§7.2).
type Channel struct {
	state   *ChannelState
	log     log.Logger
	metrics *metrics.Metrics

	pending []Action
	effects []Effect
}

// NewChannel returns a disabled channel. m may be nil, in which case
// sent/received-part and timeout counts simply aren't recorded.
func NewChannel(logger log.Logger, m *metrics.Metrics) *Channel {
	if logger == nil {
		logger = log.NewNoOp()
	}
	return &Channel{state: NewChannelState(), log: logger, metrics: m}
}

// State returns a read-only snapshot of the channel's state.
func (c *Channel) State() *ChannelState { return c.state }

// DrainEffects returns and clears the effects queued since the last call.
func (c *Channel) DrainEffects() []Effect {
	out := c.effects
	c.effects = nil
	return out
}

func (c *Channel) emit(eff Effect) { c.effects = append(c.effects, eff) }

func (c *Channel) bugCondition(format string, args ...any) {
	c.log.Error(fmt.Sprintf(format, args...))
}

func (c *Channel) enqueue(a Action) { c.pending = append(c.pending, a) }

// Dispatch applies action if its enabling condition holds, then drains
// any follow-up actions the reducer enqueued (§4.4).
func (c *Channel) Dispatch(action Action, now time.Time) {
	c.pending = append(c.pending, action)
	for len(c.pending) > 0 {
		next := c.pending[0]
		c.pending = c.pending[1:]
		c.apply(next, now)
	}
}

func (c *Channel) apply(action Action, now time.Time) {
	if !action.IsEnabled(c.state) {
		return
	}

	switch a := action.(type) {
	case Init:
		c.state.Kind = ChannelInit
		c.state.Time = now
		c.emit(EffectInitChannel{})

	case Pending:
		c.state.Kind = ChannelPending
		c.state.Time = now

	case Ready:
		c.state.Kind = ChannelReady
		c.state.Time = now
		c.state.Local = LocalState{Kind: LocalWaitingForRequest, Time: now}
		c.state.Remote = RemoteState{Kind: RemoteWaitingForRequest, Time: now}
		c.emit(EffectChannelReady{})

	case RequestSend:
		c.state.NextLocalRpcID++
		id := c.state.NextLocalRpcID
		c.state.Local = LocalState{
			Kind:     LocalRequested,
			Time:     now,
			ID:       id,
			Request:  a.Request,
			Progress: NewReceiveProgress(now),
		}
		c.emit(EffectMessageSend{Msg: Msg{Kind: MsgRequest, ID: id, Request: a.Request}})

	case Timeout:
		c.emit(EffectTimeoutNotify{ID: a.ID})
		c.metrics.IncRPCTimeouts()

	case ResponseNextPartGet:
		progress := &c.state.Local.Progress
		if !progress.setNextPending(now) {
			c.bugCondition("streamrpc: progress already pending for rpc %d", a.ID)
			return
		}
		c.emit(EffectMessageSend{Msg: Msg{Kind: MsgNext, ID: a.ID}})

	case ResponsePartReceived:
		progress := &c.state.Local.Progress
		if a.Part == nil {
			// Response(id, None): the sequence is over regardless of
			// how many canonical parts had already arrived.
			progress.finish(now)
			c.enqueue(ResponseReceived{ID: a.ID, Response: &progress.Assembled})
			return
		}
		if !progress.update(now, a.Part) {
			c.bugCondition("streamrpc: out-of-order or mismatched part for rpc %d", a.ID)
			return
		}
		c.metrics.IncRPCPartsReceived()
		if progress.isDone() {
			c.enqueue(ResponseReceived{ID: a.ID, Response: &progress.Assembled})
			return
		}
		c.enqueue(ResponseNextPartGet{ID: a.ID})

	case ResponseReceived:
		// a.Response may point into Local.Progress, which is replaced
		// below, so hand the runtime a copy.
		var response *StagedLedgerData
		if a.Response != nil {
			assembled := *a.Response
			response = &assembled
		}
		prev := c.state.Local
		c.state.Local = LocalState{Kind: LocalResponded, Time: now, ID: prev.ID, Request: prev.Request}
		c.emit(EffectResponseReceived{ID: a.ID, Response: response})

	case RequestReceived:
		c.state.Remote = RemoteState{
			Kind:     RemoteRequested,
			Time:     now,
			ID:       a.ID,
			Request:  a.Request,
			Progress: NewSendProgress(now),
		}
		c.emit(EffectReadLedgerData{ID: a.ID, SnapshotHash: a.Request})

	case ResponsePending:
		c.state.Remote.Progress.Kind = SendLedgerGetPending
		c.state.Remote.Progress.Time = now

	case ResponseSendInit:
		progress := &c.state.Remote.Progress
		if a.Data == nil {
			progress.Kind = SendSuccess
			progress.Time = now
			c.emit(EffectMessageSend{Msg: Msg{Kind: MsgResponse, ID: a.ID, Part: nil}})
			c.enqueue(ResponseSent{ID: a.ID})
			return
		}
		progress.Kind = SendLedgerGetSuccess
		progress.Time = now
		progress.Data = a.Data
		c.enqueue(ResponsePartNextSend{ID: a.ID})

	case ResponsePartNextSend:
		progress := &c.state.Remote.Progress
		part := progress.nextPart()
		if part == nil {
			progress.Kind = SendSuccess
			progress.Time = now
			c.emit(EffectMessageSend{Msg: Msg{Kind: MsgResponse, ID: a.ID, Part: nil}})
			c.enqueue(ResponseSent{ID: a.ID})
			return
		}
		c.enqueue(ResponsePartSend{ID: a.ID, Part: *part})

	case ResponsePartSend:
		progress := &c.state.Remote.Progress
		if !progress.advance(now) {
			c.bugCondition("streamrpc: unexpected send progress for rpc %d", a.ID)
			return
		}
		part := a.Part
		c.emit(EffectMessageSend{Msg: Msg{Kind: MsgResponse, ID: a.ID, Part: &part}})
		c.metrics.IncRPCPartsSent()
		c.enqueue(ResponseSent{ID: a.ID})

	case ResponseSent:
		prev := c.state.Remote
		c.state.Remote = RemoteState{Kind: RemoteResponded, Time: now, ID: prev.ID, Request: prev.Request, Progress: prev.Progress}
		c.state.RemoteLastResponded = now

	case NextReceived:
		prev := c.state.Remote
		c.state.Remote = RemoteState{Kind: RemoteRequested, Time: now, ID: prev.ID, Request: prev.Request, Progress: prev.Progress}
		c.enqueue(ResponsePartNextSend{ID: a.ID})

	default:
		c.bugCondition("streamrpc: unhandled action %T", action)
	}
}
