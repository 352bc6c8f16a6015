// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package mux implements the session-multiplexing transport (§3.4,
// §4.3): a framed stream multiplexer modelled on Yamux, providing
// independently flow-controlled streams over one ordered byte
// connection, with window accounting and go-away semantics.
//
// Follows the same tagged-state/pure-reducer shape streamrpc and vrf
// already establish in this module.
package mux

import "github.com/luxfi/vrfnode/types"

// defaultWindow is the initial per-stream credit in both directions,
// carried over from the source's YamuxStreamState::default (256 KiB).
const defaultWindow = 256 * 1024

// StreamState is one multiplexed stream's flow-control and lifecycle
// bookkeeping (§3.4).
type StreamState struct {
	Incoming     bool
	SynSent      bool
	Established  bool
	Readable     bool
	Writable     bool
	WindowTheirs int64
	WindowOurs   int64
	unackedBytes uint32 // consumed-but-not-yet-credited incoming bytes
}

// NewOutgoingStream starts a stream this session initiated: SYN not yet
// acknowledged, both halves open. window is the initial per-direction
// flow-control credit, normally the session's configured window.
func NewOutgoingStream(window int64) StreamState {
	return StreamState{
		SynSent:      true,
		Readable:     true,
		Writable:     true,
		WindowTheirs: window,
		WindowOurs:   window,
	}
}

// NewIncomingStream starts a stream the peer initiated via SYN,
// mirroring the source's YamuxStreamState::incoming.
func NewIncomingStream(window int64) StreamState {
	return StreamState{
		Incoming:     true,
		Readable:     true,
		Writable:     true,
		WindowTheirs: window,
		WindowOurs:   window,
	}
}

// Terminated records why the session has ended: either a GoAway
// (carrying the frame-level SessionError, if any) or a fatal parse
// error.
type Terminated struct {
	// ParseErr is set when termination was caused by a frame that
	// failed to parse; GoAwayErr is set (possibly to nil, meaning a
	// clean shutdown) when termination was a GoAway frame.
	ParseErr  error
	IsGoAway  bool
	GoAwayErr *SessionError
}

// SessionState is one peer's multiplexer session (§3.4): a byte buffer
// awaiting more header bytes, a queue of fully-parsed incoming frames
// still to be dispatched to their owning stream, and the stream table
// itself.
type SessionState struct {
	Buffer     []byte
	Incoming   []Frame
	Streams    map[StreamID]*StreamState
	Terminated *Terminated
	Init       bool

	// PendingPings records the opaque value of every outstanding Ping
	// we sent, so a later ACK can be matched; the source
	// leaves ping correlation to the caller, this module makes it
	// explicit state since §4.3 names it as a per-frame dispatch rule.
	PendingPings map[int32]struct{}
}

// NewSessionState returns a fresh, not-yet-initialized session.
func NewSessionState() *SessionState {
	return &SessionState{
		Streams:      make(map[StreamID]*StreamState),
		PendingPings: make(map[int32]struct{}),
	}
}

// NextStreamID returns the next available outgoing stream id for this
// session's side (client picks odd, server picks even), or false if the
// session isn't initialized yet or has already terminated (§3.4,
// boundary scenario 5).
func (s *SessionState) NextStreamID(client bool) (StreamID, bool) {
	if !s.Init || s.Terminated != nil {
		return 0, false
	}
	parityWanted := uint32(0)
	if client {
		parityWanted = 1
	}
	var max StreamID
	found := false
	for id := range s.Streams {
		if uint32(id)&1 != parityWanted {
			continue
		}
		if !found || id > max {
			max = id
			found = true
		}
	}
	if !found {
		if client {
			return 1, true
		}
		return 2, true
	}
	return max + 2, true
}

// PeerID identifies which remote peer owns this session, threaded
// through for logging and disconnect effects; unused by the pure state
// transitions themselves.
type PeerID = types.PeerID
