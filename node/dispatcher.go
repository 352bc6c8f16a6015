// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package node wires the three core subsystems (vrf, streamrpc, mux,
// and the classical rpc layer built on top of mux) into one
// per-instance dispatcher (§4.4): every external input arrives as a
// tagged action carrying a timestamp, addressed to either the shared
// VRF evaluator or one peer's multiplexer session/streaming-RPC
// channel/RPC bookkeeping.
//
// Each reducer owns its state directly and applies it synchronously,
// rather than deferring the update to a separate handler.
package node

import (
	"time"

	"github.com/luxfi/vrfnode/config"
	"github.com/luxfi/vrfnode/internal/set"
	"github.com/luxfi/vrfnode/log"
	"github.com/luxfi/vrfnode/metrics"
	"github.com/luxfi/vrfnode/mux"
	"github.com/luxfi/vrfnode/rpc"
	"github.com/luxfi/vrfnode/streamrpc"
	"github.com/luxfi/vrfnode/types"
	"github.com/luxfi/vrfnode/vrf"
)

// peerState is everything this node owns per connected peer: one
// multiplexer session, one streaming-RPC channel, and one classical-
// RPC correlation table, matching §0's module layout.
type peerState struct {
	Mux       *mux.Session
	StreamRPC *streamrpc.Channel
	RPC       *rpc.Peer
}

// Dispatcher is the single per-node entry point every external input
// is routed through (§5: "the outer runtime ... must serialise actions
// through a single dispatch point per node instance"). It is not
// itself safe for concurrent use; the caller is responsible for that
// serialisation.
type Dispatcher struct {
	cfg     config.Config
	log     log.Logger
	metrics *metrics.Metrics

	vrf   *vrf.Evaluator
	peers map[types.PeerID]*peerState

	known set.Set[types.PeerID]
}

// NewDispatcher constructs a node with no peers yet and an idle VRF
// evaluator. m may be nil (metrics become no-ops).
func NewDispatcher(cfg config.Config, logger log.Logger, m *metrics.Metrics) *Dispatcher {
	if logger == nil {
		logger = log.NewNoOp()
	}
	return &Dispatcher{
		cfg:     cfg,
		log:     logger,
		metrics: m,
		vrf:     vrf.NewEvaluator(logger, cfg.SlotsPerEpoch, m),
		peers:   make(map[types.PeerID]*peerState),
		known:   set.NewSet[types.PeerID](0),
	}
}

// AddPeer registers a new peer, giving it fresh mux/streamrpc/rpc
// state. Re-adding an already-known peer is a no-op.
func (d *Dispatcher) AddPeer(id types.PeerID) {
	if d.known.Contains(id) {
		return
	}
	d.known.Add(id)
	d.peers[id] = &peerState{
		Mux:       mux.NewSession(d.log, d.cfg.DefaultStreamWindow, d.metrics),
		StreamRPC: streamrpc.NewChannel(d.log, d.metrics),
		RPC:       rpc.NewPeer(d.log),
	}
}

// RemovePeer drops all state for id; a disconnected peer's
// outstanding requests are the caller's responsibility to fail via
// rpc.PrunePending/streamrpc before calling this (§7.3).
func (d *Dispatcher) RemovePeer(id types.PeerID) {
	d.known.Remove(id)
	delete(d.peers, id)
	if d.metrics != nil {
		d.metrics.StreamsOpen.Set(float64(d.openStreamCount()))
	}
}

func (d *Dispatcher) openStreamCount() int {
	total := 0
	for _, p := range d.peers {
		total += len(p.Mux.State().Streams)
	}
	return total
}

// Peers returns every currently known peer id, in unspecified order.
func (d *Dispatcher) Peers() []types.PeerID { return d.known.List() }

// VRF returns the shared VRF evaluator, the one subsystem not
// partitioned per peer (§4.1).
func (d *Dispatcher) VRF() *vrf.Evaluator { return d.vrf }

// Mux returns peer id's multiplexer session, or nil if the peer is
// unknown.
func (d *Dispatcher) Mux(id types.PeerID) *mux.Session {
	if p, ok := d.peers[id]; ok {
		return p.Mux
	}
	return nil
}

// StreamRPC returns peer id's streaming-RPC channel, or nil if the
// peer is unknown.
func (d *Dispatcher) StreamRPC(id types.PeerID) *streamrpc.Channel {
	if p, ok := d.peers[id]; ok {
		return p.StreamRPC
	}
	return nil
}

// RPC returns peer id's classical-RPC bookkeeping, or nil if the peer
// is unknown.
func (d *Dispatcher) RPC(id types.PeerID) *rpc.Peer {
	if p, ok := d.peers[id]; ok {
		return p.RPC
	}
	return nil
}

// DispatchVRF routes action to the shared evaluator.
func (d *Dispatcher) DispatchVRF(action vrf.Action, now time.Time) {
	d.vrf.Dispatch(action, now)
}

// DispatchMux routes action to peer id's multiplexer session. A
// disconnect effect drawn from the resulting effects is handled by the
// caller; this method only applies the reducer step.
func (d *Dispatcher) DispatchMux(id types.PeerID, action mux.Action, now time.Time) {
	p, ok := d.peers[id]
	if !ok {
		d.log.Error("node: mux action for unknown peer", "peer_id", id)
		return
	}
	p.Mux.Dispatch(action, now)
	if d.metrics != nil {
		d.metrics.StreamsOpen.Set(float64(d.openStreamCount()))
	}
}

// DispatchStreamRPC routes action to peer id's streaming-RPC channel.
func (d *Dispatcher) DispatchStreamRPC(id types.PeerID, action streamrpc.Action, now time.Time) {
	p, ok := d.peers[id]
	if !ok {
		d.log.Error("node: streamrpc action for unknown peer", "peer_id", id)
		return
	}
	p.StreamRPC.Dispatch(action, now)
}

// DispatchRPC routes action to peer id's classical-RPC bookkeeping.
func (d *Dispatcher) DispatchRPC(id types.PeerID, action rpc.Action) {
	p, ok := d.peers[id]
	if !ok {
		d.log.Error("node: rpc action for unknown peer", "peer_id", id)
		return
	}
	p.RPC.Dispatch(action)
}
