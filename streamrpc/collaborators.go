// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package streamrpc

// Msg is the wire payload carried on a streaming-RPC stream's Data
// frames (§6): Request(id, req), Next(id), or Response(id, part?).
type Msg struct {
	Kind    MsgKind
	ID      RpcID
	Request Request
	Part    *Part // nil means Response(id, None)
}

type MsgKind int

const (
	MsgRequest MsgKind = iota
	MsgNext
	MsgResponse
)

// Effect is an action the channel asks the outer runtime to perform:
// send a wire message, read ledger data, or notify one of the three
// named callbacks (§6).
type Effect interface{ isStreamRPCEffect() }

// EffectInitChannel asks the runtime to open the underlying stream;
// the reply arrives as a Pending action once the transport accepts it.
type EffectInitChannel struct{}

func (EffectInitChannel) isStreamRPCEffect() {}

// EffectMessageSend asks the runtime to write Msg to the peer's
// streaming-RPC stream.
type EffectMessageSend struct{ Msg Msg }

func (EffectMessageSend) isStreamRPCEffect() {}

// EffectChannelReady fires on_p2p_channels_streaming_rpc_ready.
type EffectChannelReady struct{}

func (EffectChannelReady) isStreamRPCEffect() {}

// EffectResponseReceived fires on_p2p_channels_streaming_rpc_response_received.
type EffectResponseReceived struct {
	ID       RpcID
	Response *StagedLedgerData // nil if the request ultimately failed
}

func (EffectResponseReceived) isStreamRPCEffect() {}

// EffectTimeoutNotify fires on_p2p_channels_streaming_rpc_timeout.
type EffectTimeoutNotify struct{ ID RpcID }

func (EffectTimeoutNotify) isStreamRPCEffect() {}

// EffectReadLedgerData asks the ledger-read collaborator for the full
// staged ledger snapshot a request named; the reply arrives as
// ResponseSendInit. Out of scope per §1 (ledger accounting); this
// effect only carries the hash so the runtime's own ledger component
// can look it up.
type EffectReadLedgerData struct {
	ID           RpcID
	SnapshotHash Request
}

func (EffectReadLedgerData) isStreamRPCEffect() {}
