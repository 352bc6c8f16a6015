// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"fmt"

	"github.com/luxfi/vrfnode/log"
)

// Peer owns one peer's classical-RPC bookkeeping. Unlike vrf.Evaluator
// and streamrpc.Channel, this reducer has no follow-up actions to
// drain — every transition emits its effects directly (at most one,
// except PrunePending, which emits one per pruned query) — so
// Dispatch applies its action directly rather than running a FIFO.
type Peer struct {
	state *State
	log   log.Logger

	effects []Effect
}

// NewPeer returns bookkeeping for a peer with neither stream
// established yet.
func NewPeer(logger log.Logger) *Peer {
	if logger == nil {
		logger = log.NewNoOp()
	}
	return &Peer{state: NewState(), log: logger}
}

// State returns a read-only snapshot of the peer's bookkeeping.
func (p *Peer) State() *State { return p.state }

// DrainEffects returns and clears the effects queued since the last call.
func (p *Peer) DrainEffects() []Effect {
	out := p.effects
	p.effects = nil
	return out
}

func (p *Peer) emit(eff Effect) { p.effects = append(p.effects, eff) }

func (p *Peer) bugCondition(format string, args ...any) {
	p.log.Error(fmt.Sprintf(format, args...))
}

// Dispatch applies action if both its enabling condition and its
// stream selector resolve, else drops it (§7.1).
func (p *Peer) Dispatch(action Action) {
	if !action.IsEnabled(p.state) {
		return
	}
	streamID, resolved := p.state.resolve(action.Selector())
	if !resolved {
		return
	}

	switch a := action.(type) {
	case Init:
		if a.Incoming {
			p.state.IncomingStreamID = a.StreamID
			p.state.HasIncoming = true
		} else {
			p.state.OutgoingStreamID = a.StreamID
			p.state.HasOutgoing = true
		}

	case IncomingMessage:
		switch a.Message.Kind {
		case MessageQuery:
			p.emit(EffectQueryReceived{Header: a.Message.Query, Payload: a.Message.Payload})
		case MessageResponse:
			pending, ok := p.state.Pending[a.Message.Response.ID]
			if !ok {
				p.bugCondition("rpc: response for unknown query id %d", a.Message.Response.ID)
				return
			}
			delete(p.state.Pending, pending.Header.ID)
			p.emit(EffectResponseReceived{Header: a.Message.Response, Payload: a.Message.Payload})
		}

	case PrunePending:
		for id, pending := range p.state.Pending {
			if pending.StreamID == a.StreamID {
				delete(p.state.Pending, id)
				p.emit(EffectQueryPruned{ID: id})
			}
		}

	case OutgoingQuery:
		p.state.NextQueryID++
		header := a.Query
		header.ID = p.state.NextQueryID
		p.state.Pending[header.ID] = PendingQuery{Header: header, StreamID: streamID}
		p.emit(EffectWriteData{StreamID: streamID, Data: append(header.Encode(), a.Payload...)})

	case OutgoingResponse:
		p.emit(EffectWriteData{StreamID: streamID, Data: append(a.Response.Encode(), a.Payload...)})

	case OutgoingData:
		p.emit(EffectWriteData{StreamID: streamID, Data: a.Data, Fin: a.Fin})

	default:
		p.bugCondition("rpc: unhandled action %T", action)
	}
}
