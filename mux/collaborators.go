// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mux

// Effect is an action the session asks the outer runtime to perform:
// write bytes to the underlying connection, forward a Data payload up
// to the owning layer (streamrpc or rpc), or tear the session down.
type Effect interface{ isMuxEffect() }

// EffectSendFrame asks the runtime to write an encoded frame to the
// connection.
type EffectSendFrame struct{ Frame Frame }

func (EffectSendFrame) isMuxEffect() {}

// EffectStreamOpened reports a newly accepted incoming stream (SYN
// received) to the outer runtime, which owns routing a stream id to
// its RPC or streaming-RPC consumer.
type EffectStreamOpened struct{ StreamID StreamID }

func (EffectStreamOpened) isMuxEffect() {}

// EffectStreamEstablished reports an outgoing stream's SYN being
// acknowledged.
type EffectStreamEstablished struct{ StreamID StreamID }

func (EffectStreamEstablished) isMuxEffect() {}

// EffectStreamClosed reports a stream reaching a terminal state (both
// halves closed by FIN, or RST).
type EffectStreamClosed struct{ StreamID StreamID }

func (EffectStreamClosed) isMuxEffect() {}

// EffectDataReceived forwards a Data frame's payload to whichever
// layer owns StreamID.
type EffectDataReceived struct {
	StreamID StreamID
	Data     []byte
}

func (EffectDataReceived) isMuxEffect() {}

// EffectPongReceived reports a Ping ACK matching one of our
// outstanding pings.
type EffectPongReceived struct{ Opaque int32 }

func (EffectPongReceived) isMuxEffect() {}

// EffectDisconnect asks the runtime to tear down the connection:
// fired on a parse error or a GoAway (§7.3).
type EffectDisconnect struct {
	Terminated Terminated
}

func (EffectDisconnect) isMuxEffect() {}
