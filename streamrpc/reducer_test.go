// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package streamrpc

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/vrfnode/metrics"
	"github.com/luxfi/vrfnode/types"
)

func readyChannel(t *testing.T) *Channel {
	t.Helper()
	ch := NewChannel(nil, nil)
	now := time.Unix(0, 0)
	ch.Dispatch(Init{}, now)
	ch.Dispatch(Pending{}, now)
	ch.Dispatch(Ready{}, now)
	require.Equal(t, ChannelReady, ch.State().Kind)
	return ch
}

func readyChannelWithMetrics(t *testing.T, m *metrics.Metrics) *Channel {
	t.Helper()
	ch := NewChannel(nil, m)
	now := time.Unix(0, 0)
	ch.Dispatch(Init{}, now)
	ch.Dispatch(Pending{}, now)
	ch.Dispatch(Ready{}, now)
	require.Equal(t, ChannelReady, ch.State().Kind)
	return ch
}

func TestRequestPartsSentAndReceivedAreCounted(t *testing.T) {
	m, err := metrics.NewMetrics(nil)
	require.NoError(t, err)

	requester := readyChannelWithMetrics(t, m)
	now := time.Unix(0, 0)
	requester.Dispatch(RequestSend{Request: Request{StagedLedgerPartsHash: types.Hash{1}}}, now)
	id := requester.State().Local.ID
	requester.DrainEffects()

	requester.Dispatch(ResponsePartReceived{ID: id, Part: &Part{Kind: PartBase, Data: []byte("base")}}, now)
	require.Equal(t, float64(1), testutil.ToFloat64(m.RPCPartsReceived))

	responder := readyChannelWithMetrics(t, m)
	responder.Dispatch(RequestReceived{ID: 7, Request: Request{StagedLedgerPartsHash: types.Hash{2}}}, now)
	responder.Dispatch(ResponsePending{ID: 7}, now)
	responder.Dispatch(ResponseSendInit{ID: 7, Data: &StagedLedgerData{Base: []byte("b")}}, now)

	require.Equal(t, float64(1), testutil.ToFloat64(m.RPCPartsSent))
}

func TestTimeoutIsCounted(t *testing.T) {
	m, err := metrics.NewMetrics(nil)
	require.NoError(t, err)
	ch := readyChannelWithMetrics(t, m)
	now := time.Unix(0, 0)
	ch.Dispatch(RequestSend{Request: Request{}}, now)
	id := ch.State().Local.ID
	ch.DrainEffects()

	ch.Dispatch(Timeout{ID: id}, now)

	require.Equal(t, float64(1), testutil.ToFloat64(m.RPCTimeouts))
}

func TestStreamingRpcFullSequence(t *testing.T) {
	// Boundary scenario 4 (§8): requester sends a request, receives
	// every canonical part in order, then the None terminator.
	ch := readyChannel(t)
	now := time.Unix(0, 0)
	req := Request{StagedLedgerPartsHash: types.Hash{1}}

	ch.Dispatch(RequestSend{Request: req}, now)
	require.Equal(t, LocalRequested, ch.State().Local.Kind)
	id := ch.State().Local.ID
	require.Equal(t, RpcID(1), id)

	parts := []*Part{
		{Kind: PartBase, Data: []byte("base")},
		{Kind: PartScanStateBase, Data: []byte("scan-base")},
		{Kind: PartPreviousIncompleteZkappUpdates, Data: []byte("zkapp")},
		{Kind: PartScanStateTree, TreeIndex: 0, Data: []byte("tree0")},
	}
	for _, part := range parts {
		ch.Dispatch(ResponsePartReceived{ID: id, Part: part}, now)
	}
	// Still requested: the assembled response isn't done until the
	// None terminator arrives.
	require.Equal(t, LocalRequested, ch.State().Local.Kind)

	ch.Dispatch(ResponsePartReceived{ID: id, Part: nil}, now)

	require.Equal(t, LocalResponded, ch.State().Local.Kind)
	require.Equal(t, id, ch.State().Local.ID)

	effects := ch.DrainEffects()
	var gotResponse bool
	for _, eff := range effects {
		if rr, ok := eff.(EffectResponseReceived); ok {
			gotResponse = true
			require.Equal(t, id, rr.ID)
			require.Equal(t, []byte("base"), rr.Response.Base)
			require.Equal(t, []byte("scan-base"), rr.Response.ScanStateBase)
			require.Equal(t, []byte("zkapp"), rr.Response.PreviousIncompleteZkappUpdates)
			require.Equal(t, [][]byte{[]byte("tree0")}, rr.Response.ScanStateTrees)
		}
	}
	require.True(t, gotResponse, "expected an EffectResponseReceived")
}

func TestRequestSendDisabledWhileAlreadyRequested(t *testing.T) {
	// §8 invariant: at most one Requested is present on local at a time.
	ch := readyChannel(t)
	now := time.Unix(0, 0)
	ch.Dispatch(RequestSend{Request: Request{}}, now)
	require.Equal(t, LocalRequested, ch.State().Local.Kind)
	before := ch.State().Local

	ch.Dispatch(RequestSend{Request: Request{StagedLedgerPartsHash: types.Hash{9}}}, now)

	require.Equal(t, before, ch.State().Local, "re-entrant RequestSend must be dropped, not overwrite the in-flight request")
}

func TestOutOfOrderPartIsBugConditionNotMutation(t *testing.T) {
	ch := readyChannel(t)
	now := time.Unix(0, 0)
	ch.Dispatch(RequestSend{Request: Request{}}, now)
	id := ch.State().Local.ID
	before := ch.State().Local.Progress

	// ScanStateBase arriving before Base is out of canonical order.
	ch.Dispatch(ResponsePartReceived{ID: id, Part: &Part{Kind: PartScanStateBase}}, now)

	require.Equal(t, before, ch.State().Local.Progress)
}

func TestResponderFullSequenceEmitsNoneTerminator(t *testing.T) {
	ch := readyChannel(t)
	now := time.Unix(0, 0)
	req := Request{StagedLedgerPartsHash: types.Hash{2}}

	ch.Dispatch(RequestReceived{ID: 7, Request: req}, now)
	require.Equal(t, RemoteRequested, ch.State().Remote.Kind)

	ch.Dispatch(ResponsePending{ID: 7}, now)
	data := &StagedLedgerData{
		Base:                           []byte("b"),
		ScanStateBase:                  []byte("sb"),
		PreviousIncompleteZkappUpdates: []byte("z"),
		ScanStateTrees:                 [][]byte{[]byte("t0"), []byte("t1")},
	}
	ch.Dispatch(ResponseSendInit{ID: 7, Data: data}, now)

	var sentParts []Msg
	drain := func() {
		for _, eff := range ch.DrainEffects() {
			if ms, ok := eff.(EffectMessageSend); ok && ms.Msg.Kind == MsgResponse {
				sentParts = append(sentParts, ms.Msg)
			}
		}
	}
	drain()

	// Pull the remaining parts one Next(id) at a time.
	for ch.State().Remote.Kind == RemoteResponded && !ch.State().Remote.Progress.isDone() {
		ch.Dispatch(NextReceived{ID: 7}, now)
		drain()
	}

	require.Len(t, sentParts, 6) // base, scan-base, zkapp, tree0, tree1, then the None terminator
	require.NotNil(t, sentParts[4].Part, "tree1 must be a real part")
	require.Nil(t, sentParts[5].Part, "final message must be the None terminator")
	require.True(t, ch.State().Remote.Progress.isDone())
	require.Equal(t, RemoteResponded, ch.State().Remote.Kind)
}
