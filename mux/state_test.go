// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mux

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNextStreamIDAllocation(t *testing.T) {
	// Boundary scenario 5 (§8).
	s := NewSessionState()
	s.Init = true
	for _, id := range []StreamID{1, 3, 5} {
		s.Streams[id] = &StreamState{}
	}

	client, ok := s.NextStreamID(true)
	require.True(t, ok)
	require.Equal(t, StreamID(7), client)

	server, ok := s.NextStreamID(false)
	require.True(t, ok)
	require.Equal(t, StreamID(2), server)
}

func TestNextStreamIDSeedsWhenEmpty(t *testing.T) {
	s := NewSessionState()
	s.Init = true

	client, ok := s.NextStreamID(true)
	require.True(t, ok)
	require.Equal(t, StreamID(1), client)

	server, ok := s.NextStreamID(false)
	require.True(t, ok)
	require.Equal(t, StreamID(2), server)
}

func TestNextStreamIDUnavailableBeforeInitOrAfterTerminate(t *testing.T) {
	s := NewSessionState()
	_, ok := s.NextStreamID(true)
	require.False(t, ok, "session not yet initialized")

	s.Init = true
	parseErr := SessionErrorProtocol
	s.Terminated = &Terminated{IsGoAway: true, GoAwayErr: &parseErr}
	_, ok = s.NextStreamID(true)
	require.False(t, ok, "session already terminated")
}
