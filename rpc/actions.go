// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import "github.com/luxfi/vrfnode/mux"

// Action is one input to a peer's classical-RPC reducer; Selector
// names which stream it concerns, mirroring the source's
// P2pNetworkRpcAction::stream_id (§6).
type Action interface {
	IsEnabled(s *State) bool
	Selector() StreamSelection
}

// Init records that StreamID is now this peer's dedicated stream for
// the given direction.
type Init struct {
	StreamID mux.StreamID
	Incoming bool
}

func (a Init) IsEnabled(s *State) bool {
	if a.Incoming {
		return !s.HasIncoming
	}
	return !s.HasOutgoing
}

func (a Init) Selector() StreamSelection { return Exact(a.StreamID) }

// IncomingMessage reports one fully decoded message arriving on
// StreamID (the outer runtime owns buffering and header decoding,
// mirroring how streamrpc.Msg is handed to its reducer pre-decoded).
type IncomingMessage struct {
	StreamID mux.StreamID
	Message  Message
}

func (a IncomingMessage) IsEnabled(s *State) bool {
	return (s.HasIncoming && s.IncomingStreamID == a.StreamID) ||
		(s.HasOutgoing && s.OutgoingStreamID == a.StreamID)
}

func (a IncomingMessage) Selector() StreamSelection { return Exact(a.StreamID) }

// PrunePending drops every outstanding query addressed to StreamID,
// because the stream has been torn down and no response can arrive.
type PrunePending struct{ StreamID mux.StreamID }

func (a PrunePending) IsEnabled(s *State) bool { return true }

func (a PrunePending) Selector() StreamSelection { return Exact(a.StreamID) }

// OutgoingQuery issues a new classical RPC call. Enabled only once
// this peer's outgoing stream is established.
type OutgoingQuery struct {
	Query   QueryHeader
	Payload []byte
}

func (a OutgoingQuery) IsEnabled(s *State) bool { return s.HasOutgoing }

func (a OutgoingQuery) Selector() StreamSelection { return AnyOutgoing() }

// OutgoingResponse replies to a previously received query. Per the
// source, responses are written over the same outgoing-stream
// selector as queries — this peer owns exactly one write-direction
// stream regardless of message kind.
type OutgoingResponse struct {
	Response ResponseHeader
	Payload  []byte
}

func (a OutgoingResponse) IsEnabled(s *State) bool { return s.HasOutgoing }

func (a OutgoingResponse) Selector() StreamSelection { return AnyOutgoing() }

// OutgoingData writes a raw chunk directly to StreamID, optionally
// closing the local half afterward.
type OutgoingData struct {
	StreamID mux.StreamID
	Data     []byte
	Fin      bool
}

func (a OutgoingData) IsEnabled(s *State) bool {
	return (s.HasIncoming && s.IncomingStreamID == a.StreamID) ||
		(s.HasOutgoing && s.OutgoingStreamID == a.StreamID)
}

func (a OutgoingData) Selector() StreamSelection { return Exact(a.StreamID) }
