// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/vrfnode/mux"
)

func established(t *testing.T) *Peer {
	t.Helper()
	p := NewPeer(nil)
	p.Dispatch(Init{StreamID: 1, Incoming: false})
	p.Dispatch(Init{StreamID: 2, Incoming: true})
	require.True(t, p.State().HasOutgoing)
	require.True(t, p.State().HasIncoming)
	return p
}

func TestOutgoingQueryAllocatesIDAndTracksPending(t *testing.T) {
	p := established(t)
	p.DrainEffects()

	p.Dispatch(OutgoingQuery{Query: QueryHeader{Tag: NewTag("get_blk"), Version: 1}, Payload: []byte("hi")})

	require.Len(t, p.State().Pending, 1)
	var id QueryID
	for k := range p.State().Pending {
		id = k
	}
	require.Equal(t, QueryID(1), id)

	effects := p.DrainEffects()
	require.Len(t, effects, 1)
	write, ok := effects[0].(EffectWriteData)
	require.True(t, ok)
	require.Equal(t, mux.StreamID(1), write.StreamID)
}

func TestIncomingResponseResolvesPendingQuery(t *testing.T) {
	p := established(t)
	p.Dispatch(OutgoingQuery{Query: QueryHeader{Tag: NewTag("get_blk")}, Payload: nil})
	p.DrainEffects()

	p.Dispatch(IncomingMessage{
		StreamID: 1,
		Message:  Message{Kind: MessageResponse, Response: ResponseHeader{ID: 1}, Payload: []byte("block")},
	})

	require.Empty(t, p.State().Pending)
	effects := p.DrainEffects()
	require.Len(t, effects, 1)
	rr, ok := effects[0].(EffectResponseReceived)
	require.True(t, ok)
	require.Equal(t, []byte("block"), rr.Payload)
}

func TestIncomingQuerySurfacesEffectQueryReceived(t *testing.T) {
	p := established(t)

	p.Dispatch(IncomingMessage{
		StreamID: 2,
		Message:  Message{Kind: MessageQuery, Query: QueryHeader{Tag: NewTag("ping"), ID: 9}, Payload: []byte("p")},
	})

	effects := p.DrainEffects()
	require.Len(t, effects, 1)
	qr, ok := effects[0].(EffectQueryReceived)
	require.True(t, ok)
	require.Equal(t, QueryID(9), qr.Header.ID)
}

func TestPrunePendingDropsQueriesOnTornDownStream(t *testing.T) {
	p := established(t)
	p.Dispatch(OutgoingQuery{Query: QueryHeader{Tag: NewTag("a")}})
	p.Dispatch(OutgoingQuery{Query: QueryHeader{Tag: NewTag("b")}})
	p.DrainEffects()
	require.Len(t, p.State().Pending, 2)

	p.Dispatch(PrunePending{StreamID: 1})

	require.Empty(t, p.State().Pending)
	effects := p.DrainEffects()
	require.Len(t, effects, 2)
}

func TestResponseForUnknownQueryIsBugConditionNotMutation(t *testing.T) {
	p := established(t)

	p.Dispatch(IncomingMessage{
		StreamID: 1,
		Message:  Message{Kind: MessageResponse, Response: ResponseHeader{ID: 404}},
	})

	require.Empty(t, p.DrainEffects())
	require.Empty(t, p.State().Pending)
}

func TestInitDisabledOnceStreamAlreadySet(t *testing.T) {
	p := established(t)
	before := p.State().OutgoingStreamID

	p.Dispatch(Init{StreamID: 99, Incoming: false})

	require.Equal(t, before, p.State().OutgoingStreamID)
}
