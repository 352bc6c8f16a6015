// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mux

// Action is one input to a session's reducer (§4.4).
type Action interface {
	IsEnabled(s *SessionState) bool
}

// InitSession marks the session ready to allocate stream ids.
type InitSession struct{}

func (InitSession) IsEnabled(s *SessionState) bool { return !s.Init && s.Terminated == nil }

// BytesReceived appends newly read connection bytes to the session's
// buffer, to be consumed by repeated ParseNextFrame dispatches.
type BytesReceived struct{ Data []byte }

func (BytesReceived) IsEnabled(s *SessionState) bool { return s.Terminated == nil }

// ParseNextFrame attempts to parse one complete frame from the front
// of the buffer (§3.4). Disabled once the session has terminated;
// not being able to parse a complete frame yet is handled inside the
// reducer (it just stops, it is not a disabled action).
type ParseNextFrame struct{}

func (ParseNextFrame) IsEnabled(s *SessionState) bool { return s.Terminated == nil }

// DispatchIncomingFrame applies the per-frame rules of §4.3 to the
// frame at the front of the incoming queue.
type DispatchIncomingFrame struct{}

func (DispatchIncomingFrame) IsEnabled(s *SessionState) bool {
	return s.Terminated == nil && len(s.Incoming) > 0
}

// OpenStream allocates a fresh outgoing stream id and sends SYN.
// Enabled only while the session can still allocate ids (§3.4
// next_stream_id).
type OpenStream struct{ Client bool }

func (a OpenStream) IsEnabled(s *SessionState) bool {
	_, ok := s.NextStreamID(a.Client)
	return ok
}

// SendData writes a Data frame on an established, writable stream.
// Enabled only while the peer's window for this stream has room
// (§5 backpressure).
type SendData struct {
	StreamID StreamID
	Data     []byte
}

func (a SendData) IsEnabled(s *SessionState) bool {
	st, ok := s.Streams[a.StreamID]
	return ok && st.Established && st.Writable && st.WindowTheirs > 0 && s.Terminated == nil
}

// CloseStream sends FIN on a writable stream's local half.
type CloseStream struct{ StreamID StreamID }

func (a CloseStream) IsEnabled(s *SessionState) bool {
	st, ok := s.Streams[a.StreamID]
	return ok && st.Writable && s.Terminated == nil
}

// ResetStream sends RST, closing both halves immediately.
type ResetStream struct{ StreamID StreamID }

func (a ResetStream) IsEnabled(s *SessionState) bool {
	_, ok := s.Streams[a.StreamID]
	return ok && s.Terminated == nil
}

// SendPing issues an unsolicited ping to stream 0.
type SendPing struct{ Opaque int32 }

func (SendPing) IsEnabled(s *SessionState) bool { return s.Terminated == nil }

// SendGoAway terminates the session locally.
type SendGoAway struct{ Err *SessionError }

func (SendGoAway) IsEnabled(s *SessionState) bool { return s.Terminated == nil }
