// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mux

import (
	"fmt"
	"time"

	"github.com/luxfi/vrfnode/log"
	"github.com/luxfi/vrfnode/metrics"
)

// windowUpdateFrame builds a bare WindowUpdate frame; SYN/FIN/RST/ACK
// handshakes that carry no payload are expressed as a zero-delta
// WindowUpdate with the relevant flag set, rather than being attached
// to the next Data frame.
func windowUpdateFrame(streamID StreamID, flags Flags, delta int32) Frame {
	return Frame{Type: FrameTypeWindowUpdate, Flags: flags, StreamID: streamID, Body: FrameBody{WindowDelta: delta}}
}

// Session owns one peer's multiplexer state, mirroring streamrpc.
// Channel and vrf.Evaluator's shape: a FIFO-draining Dispatch, effects
// collected for the outer runtime, bug conditions reported through the
// logger rather than panicking (§7.2).
type Session struct {
	state   *SessionState
	log     log.Logger
	metrics *metrics.Metrics
	window  int64

	pending []Action
	effects []Effect
}

// NewSession returns a fresh, uninitialized session. window is the
// initial per-stream flow-control credit granted in both directions to
// every stream this session opens or accepts (§3.4); a value <= 0
// falls back to defaultWindow (256 KiB), the source's own default. m
// may be nil, in which case frame/goaway/window-exhaustion counts
// simply aren't recorded.
func NewSession(logger log.Logger, window int64, m *metrics.Metrics) *Session {
	if logger == nil {
		logger = log.NewNoOp()
	}
	if window <= 0 {
		window = defaultWindow
	}
	return &Session{state: NewSessionState(), log: logger, metrics: m, window: window}
}

// State returns a read-only snapshot of the session's state.
func (m *Session) State() *SessionState { return m.state }

// DrainEffects returns and clears the effects queued since the last call.
func (m *Session) DrainEffects() []Effect {
	out := m.effects
	m.effects = nil
	return out
}

func (m *Session) emit(eff Effect) { m.effects = append(m.effects, eff) }

func (m *Session) bugCondition(format string, args ...any) {
	m.log.Error(fmt.Sprintf(format, args...))
}

func (m *Session) enqueue(a Action) { m.pending = append(m.pending, a) }

// Dispatch applies action if its enabling condition holds, then drains
// any follow-up actions the reducer enqueued (§4.4).
func (m *Session) Dispatch(action Action, now time.Time) {
	m.pending = append(m.pending, action)
	for len(m.pending) > 0 {
		next := m.pending[0]
		m.pending = m.pending[1:]
		m.apply(next, now)
	}
}

func (m *Session) apply(action Action, now time.Time) {
	if sd, ok := action.(SendData); ok {
		if st, exists := m.state.Streams[sd.StreamID]; exists && st.WindowTheirs <= 0 {
			m.metrics.IncWindowExhausted()
		}
	}
	if !action.IsEnabled(m.state) {
		return
	}

	switch a := action.(type) {
	case InitSession:
		m.state.Init = true

	case BytesReceived:
		m.state.Buffer = append(m.state.Buffer, a.Data...)
		m.enqueue(ParseNextFrame{})

	case ParseNextFrame:
		m.parseNextFrame(now)

	case DispatchIncomingFrame:
		frame := m.state.Incoming[0]
		m.state.Incoming = m.state.Incoming[1:]
		m.dispatchFrame(frame, now)

	case OpenStream:
		id, ok := m.state.NextStreamID(a.Client)
		if !ok {
			m.bugCondition("mux: no stream id available to open")
			return
		}
		m.state.Streams[id] = ptr(NewOutgoingStream(m.window))
		m.emit(EffectSendFrame{Frame: windowUpdateFrame(id, FlagSYN, 0)})

	case SendData:
		st := m.state.Streams[a.StreamID]
		st.WindowTheirs -= int64(len(a.Data))
		m.emit(EffectSendFrame{Frame: Frame{Type: FrameTypeData, StreamID: a.StreamID, Body: FrameBody{Data: a.Data}}})

	case CloseStream:
		st := m.state.Streams[a.StreamID]
		st.Writable = false
		m.emit(EffectSendFrame{Frame: windowUpdateFrame(a.StreamID, FlagFIN, 0)})
		m.closeIfDone(a.StreamID, now)

	case ResetStream:
		m.emit(EffectSendFrame{Frame: windowUpdateFrame(a.StreamID, FlagRST, 0)})
		delete(m.state.Streams, a.StreamID)
		m.emit(EffectStreamClosed{StreamID: a.StreamID})

	case SendPing:
		m.state.PendingPings[a.Opaque] = struct{}{}
		m.emit(EffectSendFrame{Frame: Ping(0, a.Opaque, false)})

	case SendGoAway:
		m.state.Terminated = &Terminated{IsGoAway: true, GoAwayErr: a.Err}
		m.emit(EffectSendFrame{Frame: Frame{Type: FrameTypeGoAway, Body: FrameBody{GoAwayResult: GoAwayResult{Err: a.Err}}}})
		m.emit(EffectDisconnect{Terminated: *m.state.Terminated})
		m.metrics.IncGoAways()

	default:
		m.bugCondition("mux: unhandled action %T", action)
	}
}

// parseNextFrame tries to parse one complete frame from the front of
// the buffer (§3.4). Incomplete buffers are not an error: parsing just
// stops until more bytes arrive. A parse violation is peer-fatal and
// terminates the session.
func (m *Session) parseNextFrame(now time.Time) {
	frame, consumed, ok, err := ParseFrame(m.state.Buffer)
	if err != nil {
		m.state.Terminated = &Terminated{ParseErr: err}
		m.emit(EffectDisconnect{Terminated: *m.state.Terminated})
		m.metrics.IncParseErrors()
		return
	}
	if !ok {
		return
	}
	m.state.Buffer = m.state.Buffer[consumed:]
	m.state.Incoming = append(m.state.Incoming, frame)
	m.metrics.IncFramesParsed()
	m.enqueue(DispatchIncomingFrame{})
	// More than one frame may already be buffered; keep draining.
	m.enqueue(ParseNextFrame{})
}

// dispatchFrame applies the per-frame rules of §4.3 to one parsed
// frame, in priority order: RST first (it closes unconditionally),
// then SYN/ACK/FIN, then the type-specific payload.
func (m *Session) dispatchFrame(f Frame, now time.Time) {
	if f.Flags&FlagRST != 0 {
		if _, ok := m.state.Streams[f.StreamID]; ok {
			delete(m.state.Streams, f.StreamID)
			m.emit(EffectStreamClosed{StreamID: f.StreamID})
		}
		return
	}

	if f.Flags&FlagSYN != 0 && f.StreamID != 0 {
		if _, exists := m.state.Streams[f.StreamID]; !exists {
			m.state.Streams[f.StreamID] = ptr(NewIncomingStream(m.window))
			m.emit(EffectStreamOpened{StreamID: f.StreamID})
			m.emit(EffectSendFrame{Frame: windowUpdateFrame(f.StreamID, FlagACK, 0)})
		}
	}

	if f.Flags&FlagACK != 0 {
		if st, ok := m.state.Streams[f.StreamID]; ok && st.SynSent && !st.Established {
			st.Established = true
			m.emit(EffectStreamEstablished{StreamID: f.StreamID})
		}
	}

	if f.Flags&FlagFIN != 0 {
		if st, ok := m.state.Streams[f.StreamID]; ok {
			st.Readable = false
		}
	}

	switch f.Type {
	case FrameTypeData:
		st, ok := m.state.Streams[f.StreamID]
		if !ok {
			m.bugCondition("mux: data frame for unknown stream %d", f.StreamID)
			return
		}
		st.WindowOurs -= int64(len(f.Body.Data))
		m.emit(EffectDataReceived{StreamID: f.StreamID, Data: f.Body.Data})
		st.unackedBytes += uint32(len(f.Body.Data))
		if int64(st.unackedBytes) > m.window/2 {
			delta := int32(st.unackedBytes)
			st.WindowOurs += int64(st.unackedBytes)
			st.unackedBytes = 0
			m.emit(EffectSendFrame{Frame: windowUpdateFrame(f.StreamID, 0, delta)})
		}

	case FrameTypeWindowUpdate:
		if st, ok := m.state.Streams[f.StreamID]; ok {
			st.WindowTheirs += int64(f.Body.WindowDelta)
		}

	case FrameTypePing:
		switch {
		case f.Flags&FlagSYN != 0 && f.StreamID == 0:
			m.emit(EffectSendFrame{Frame: Ping(0, f.Body.PingOpaque, true)})
		case f.Flags&FlagACK != 0:
			if _, ok := m.state.PendingPings[f.Body.PingOpaque]; ok {
				delete(m.state.PendingPings, f.Body.PingOpaque)
				m.emit(EffectPongReceived{Opaque: f.Body.PingOpaque})
			}
		}

	case FrameTypeGoAway:
		m.state.Terminated = &Terminated{IsGoAway: true, GoAwayErr: f.Body.GoAwayResult.Err}
		m.emit(EffectDisconnect{Terminated: *m.state.Terminated})
		m.metrics.IncGoAways()
	}

	m.closeIfDone(f.StreamID, now)
}

// closeIfDone removes and reports a stream once both halves are closed
// (readable == false and writable == false); a no-op for stream 0 or an
// already-absent stream.
func (m *Session) closeIfDone(id StreamID, now time.Time) {
	st, ok := m.state.Streams[id]
	if !ok || st.Readable || st.Writable {
		return
	}
	delete(m.state.Streams, id)
	m.emit(EffectStreamClosed{StreamID: id})
}

func ptr(s StreamState) *StreamState { return &s }
