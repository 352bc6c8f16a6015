// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import "github.com/luxfi/vrfnode/mux"

// StreamSelectorKind tags how an action locates its target stream,
// mirroring the source's RpcStreamId (Exact/AnyIncoming/AnyOutgoing).
type StreamSelectorKind int

const (
	SelectorExact StreamSelectorKind = iota
	SelectorAnyIncoming
	SelectorAnyOutgoing
)

// StreamSelection names the stream an action targets: a specific id,
// or "whichever dedicated stream this peer uses for incoming/outgoing
// classical RPC traffic."
type StreamSelection struct {
	Kind     StreamSelectorKind
	StreamID mux.StreamID // meaningful only when Kind == SelectorExact
}

func Exact(id mux.StreamID) StreamSelection {
	return StreamSelection{Kind: SelectorExact, StreamID: id}
}

func AnyIncoming() StreamSelection { return StreamSelection{Kind: SelectorAnyIncoming} }
func AnyOutgoing() StreamSelection { return StreamSelection{Kind: SelectorAnyOutgoing} }

// PendingQuery is one outgoing query awaiting its response.
type PendingQuery struct {
	Header   QueryHeader
	StreamID mux.StreamID
}

// State is one peer's classical-RPC bookkeeping (§6): the dedicated
// streams this peer uses in each direction, and the outgoing queries
// still awaiting a response.
type State struct {
	OutgoingStreamID mux.StreamID
	IncomingStreamID mux.StreamID
	HasOutgoing      bool
	HasIncoming      bool

	Pending     map[QueryID]PendingQuery
	NextQueryID QueryID
}

// NewState returns bookkeeping for a peer with neither stream
// established yet.
func NewState() *State {
	return &State{Pending: make(map[QueryID]PendingQuery)}
}

// resolve turns a StreamSelection into a concrete stream id, or false
// if the selected stream isn't established yet.
func (s *State) resolve(sel StreamSelection) (mux.StreamID, bool) {
	switch sel.Kind {
	case SelectorExact:
		return sel.StreamID, true
	case SelectorAnyOutgoing:
		return s.OutgoingStreamID, s.HasOutgoing
	case SelectorAnyIncoming:
		return s.IncomingStreamID, s.HasIncoming
	default:
		return 0, false
	}
}
