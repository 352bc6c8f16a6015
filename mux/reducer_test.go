// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mux

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/vrfnode/metrics"
)

func newSession(t *testing.T) *Session {
	t.Helper()
	s := NewSession(nil, 0, nil)
	s.Dispatch(InitSession{}, time.Unix(0, 0))
	require.True(t, s.State().Init)
	return s
}

func TestFramesParsedAndGoAwaysAreCounted(t *testing.T) {
	m, err := metrics.NewMetrics(nil)
	require.NoError(t, err)
	s := NewSession(nil, 0, m)
	s.Dispatch(InitSession{}, time.Unix(0, 0))
	s.DrainEffects()
	now := time.Unix(0, 0)

	s.Dispatch(BytesReceived{Data: windowUpdateFrame(2, FlagSYN, 0).Encode()}, now)
	require.Equal(t, float64(1), testutil.ToFloat64(m.FramesParsed))

	frame := Frame{Type: FrameTypeGoAway, Body: FrameBody{GoAwayResult: GoAwayResult{}}}
	s.Dispatch(BytesReceived{Data: frame.Encode()}, now)
	require.Equal(t, float64(1), testutil.ToFloat64(m.GoAways))
}

func TestParseErrorsAreCounted(t *testing.T) {
	m, err := metrics.NewMetrics(nil)
	require.NoError(t, err)
	s := NewSession(nil, 0, m)
	s.Dispatch(InitSession{}, time.Unix(0, 0))
	s.DrainEffects()

	invalid := make([]byte, headerSize)
	invalid[0] = 7
	s.Dispatch(BytesReceived{Data: invalid}, time.Unix(0, 0))

	require.Equal(t, float64(1), testutil.ToFloat64(m.ParseErrors))
}

func drainSendFrames(s *Session) []Frame {
	var frames []Frame
	for _, eff := range s.DrainEffects() {
		if sf, ok := eff.(EffectSendFrame); ok {
			frames = append(frames, sf.Frame)
		}
	}
	return frames
}

func TestSynCreatesIncomingStreamAndSendsAck(t *testing.T) {
	s := newSession(t)
	now := time.Unix(0, 0)
	wire := windowUpdateFrame(2, FlagSYN, 0).Encode()

	s.Dispatch(BytesReceived{Data: wire}, now)

	st, ok := s.State().Streams[2]
	require.True(t, ok)
	require.True(t, st.Incoming)
	require.False(t, st.Established)

	var gotOpened bool
	var gotAck bool
	for _, eff := range s.DrainEffects() {
		switch v := eff.(type) {
		case EffectStreamOpened:
			require.Equal(t, StreamID(2), v.StreamID)
			gotOpened = true
		case EffectSendFrame:
			if v.Frame.Flags&FlagACK != 0 {
				gotAck = true
			}
		}
	}
	require.True(t, gotOpened)
	require.True(t, gotAck)
}

func TestAckEstablishesOutgoingStream(t *testing.T) {
	s := newSession(t)
	now := time.Unix(0, 0)

	s.Dispatch(OpenStream{Client: true}, now)
	require.Equal(t, StreamID(1), firstStreamID(t, s))
	s.DrainEffects()

	s.Dispatch(BytesReceived{Data: windowUpdateFrame(1, FlagACK, 0).Encode()}, now)

	require.True(t, s.State().Streams[1].Established)
	var gotEstablished bool
	for _, eff := range s.DrainEffects() {
		if v, ok := eff.(EffectStreamEstablished); ok {
			require.Equal(t, StreamID(1), v.StreamID)
			gotEstablished = true
		}
	}
	require.True(t, gotEstablished)
}

func firstStreamID(t *testing.T, s *Session) StreamID {
	t.Helper()
	for id := range s.State().Streams {
		return id
	}
	t.Fatal("no streams present")
	return 0
}

func TestFinThenCloseStreamClosesBothHalves(t *testing.T) {
	s := newSession(t)
	now := time.Unix(0, 0)
	s.Dispatch(OpenStream{Client: true}, now)
	s.DrainEffects()

	s.Dispatch(CloseStream{StreamID: 1}, now)
	require.False(t, s.State().Streams[1].Writable)
	s.DrainEffects()

	s.Dispatch(BytesReceived{Data: windowUpdateFrame(1, FlagFIN, 0).Encode()}, now)

	_, stillPresent := s.State().Streams[1]
	require.False(t, stillPresent, "stream must be removed once both halves are closed")

	var gotClosed bool
	for _, eff := range s.DrainEffects() {
		if v, ok := eff.(EffectStreamClosed); ok {
			require.Equal(t, StreamID(1), v.StreamID)
			gotClosed = true
		}
	}
	require.True(t, gotClosed)
}

func TestRstClosesStreamImmediately(t *testing.T) {
	s := newSession(t)
	now := time.Unix(0, 0)
	s.Dispatch(OpenStream{Client: true}, now)
	s.DrainEffects()

	s.Dispatch(BytesReceived{Data: windowUpdateFrame(1, FlagRST, 0).Encode()}, now)

	_, stillPresent := s.State().Streams[1]
	require.False(t, stillPresent)

	var gotClosed bool
	for _, eff := range s.DrainEffects() {
		if _, ok := eff.(EffectStreamClosed); ok {
			gotClosed = true
		}
	}
	require.True(t, gotClosed)
}

func TestDataDecrementsWindowAndGrantsCreditPastHalf(t *testing.T) {
	s := newSession(t)
	now := time.Unix(0, 0)
	s.Dispatch(BytesReceived{Data: windowUpdateFrame(2, FlagSYN, 0).Encode()}, now)
	s.DrainEffects()

	payload := make([]byte, defaultWindow/2+1)
	frame := Frame{Type: FrameTypeData, StreamID: 2, Body: FrameBody{Data: payload}}
	s.Dispatch(BytesReceived{Data: frame.Encode()}, now)

	st := s.State().Streams[2]
	require.Equal(t, int64(defaultWindow), st.WindowOurs, "crossing the half-window threshold grants the consumed credit back")

	var gotData bool
	var gotWindowUpdate bool
	for _, eff := range s.DrainEffects() {
		switch v := eff.(type) {
		case EffectDataReceived:
			require.Equal(t, StreamID(2), v.StreamID)
			require.Equal(t, payload, v.Data)
			gotData = true
		case EffectSendFrame:
			if v.Frame.Type == FrameTypeWindowUpdate && v.Frame.Body.WindowDelta > 0 {
				gotWindowUpdate = true
			}
		}
	}
	require.True(t, gotData)
	require.True(t, gotWindowUpdate, "consuming more than half the window must grant credit back")
}

func TestWindowUpdateAdjustsWindowTheirs(t *testing.T) {
	s := newSession(t)
	now := time.Unix(0, 0)
	s.Dispatch(OpenStream{Client: true}, now)
	s.DrainEffects()
	before := s.State().Streams[1].WindowTheirs

	s.Dispatch(BytesReceived{Data: windowUpdateFrame(1, 0, -1000).Encode()}, now)

	require.Equal(t, before-1000, s.State().Streams[1].WindowTheirs)
}

func TestPingSynRepliesWithAck(t *testing.T) {
	s := newSession(t)
	now := time.Unix(0, 0)

	s.Dispatch(BytesReceived{Data: Ping(0, 42, false).Encode()}, now)

	frames := drainSendFrames(s)
	require.Len(t, frames, 1)
	require.Equal(t, FrameTypePing, frames[0].Type)
	require.Equal(t, FlagACK, frames[0].Flags)
	require.Equal(t, int32(42), frames[0].Body.PingOpaque)
}

func TestPingAckCorrelatesPendingPing(t *testing.T) {
	s := newSession(t)
	now := time.Unix(0, 0)

	s.Dispatch(SendPing{Opaque: 99}, now)
	require.Contains(t, s.State().PendingPings, int32(99))
	s.DrainEffects()

	s.Dispatch(BytesReceived{Data: Ping(0, 99, true).Encode()}, now)

	require.NotContains(t, s.State().PendingPings, int32(99))
	var gotPong bool
	for _, eff := range s.DrainEffects() {
		if v, ok := eff.(EffectPongReceived); ok {
			require.Equal(t, int32(99), v.Opaque)
			gotPong = true
		}
	}
	require.True(t, gotPong)
}

func TestGoAwayTerminatesSession(t *testing.T) {
	s := newSession(t)
	now := time.Unix(0, 0)
	frame := Frame{Type: FrameTypeGoAway, Body: FrameBody{GoAwayResult: GoAwayResult{}}}

	s.Dispatch(BytesReceived{Data: frame.Encode()}, now)

	require.NotNil(t, s.State().Terminated)
	require.True(t, s.State().Terminated.IsGoAway)
	require.Nil(t, s.State().Terminated.GoAwayErr)

	_, ok := s.State().NextStreamID(true)
	require.False(t, ok, "no stream ids after go-away")

	var gotDisconnect bool
	for _, eff := range s.DrainEffects() {
		if _, ok := eff.(EffectDisconnect); ok {
			gotDisconnect = true
		}
	}
	require.True(t, gotDisconnect)
}

func TestParseErrorTerminatesSessionAndStopsParsing(t *testing.T) {
	s := newSession(t)
	now := time.Unix(0, 0)

	invalid := make([]byte, headerSize)
	invalid[0] = 7 // bad version
	valid := windowUpdateFrame(5, FlagSYN, 0).Encode()

	s.Dispatch(BytesReceived{Data: append(invalid, valid...)}, now)

	require.NotNil(t, s.State().Terminated)
	require.Error(t, s.State().Terminated.ParseErr)
	require.Empty(t, s.State().Incoming, "parsing must stop at the first violation")
	_, streamCreated := s.State().Streams[5]
	require.False(t, streamCreated, "bytes after a parse error are never consumed")
}
