// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package node

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/vrfnode/config"
	"github.com/luxfi/vrfnode/mux"
	"github.com/luxfi/vrfnode/types"
)

func TestAddPeerIsIdempotent(t *testing.T) {
	d := NewDispatcher(config.TestConfig(), nil, nil)
	peer := types.PeerID{1}

	d.AddPeer(peer)
	first := d.Mux(peer)
	d.AddPeer(peer)
	second := d.Mux(peer)

	require.Same(t, first, second, "re-adding a known peer must not replace its state")
	require.Len(t, d.Peers(), 1)
}

func TestRemovePeerDropsAllSubsystemState(t *testing.T) {
	d := NewDispatcher(config.TestConfig(), nil, nil)
	peer := types.PeerID{2}
	d.AddPeer(peer)

	d.RemovePeer(peer)

	require.Nil(t, d.Mux(peer))
	require.Nil(t, d.StreamRPC(peer))
	require.Nil(t, d.RPC(peer))
	require.Empty(t, d.Peers())
}

func TestDispatchMuxRoutesToCorrectPeer(t *testing.T) {
	d := NewDispatcher(config.TestConfig(), nil, nil)
	peer := types.PeerID{3}
	d.AddPeer(peer)

	d.DispatchMux(peer, mux.InitSession{}, time.Unix(0, 0))

	require.True(t, d.Mux(peer).State().Init)
}

func TestDispatchOnUnknownPeerIsANoOp(t *testing.T) {
	d := NewDispatcher(config.TestConfig(), nil, nil)
	unknown := types.PeerID{9}

	d.DispatchMux(unknown, mux.InitSession{}, time.Unix(0, 0))

	require.Nil(t, d.Mux(unknown))
}

func TestVRFIsSharedNotPerPeer(t *testing.T) {
	d := NewDispatcher(config.TestConfig(), nil, nil)
	require.NotNil(t, d.VRF())
	require.False(t, d.VRF().State().IsInitialized())
}
