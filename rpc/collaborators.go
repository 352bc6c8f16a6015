// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import "github.com/luxfi/vrfnode/mux"

// Effect is an action this layer asks the outer runtime to perform, or
// a notification the runtime's query/response callbacks consume.
type Effect interface{ isRPCEffect() }

// EffectWriteData asks the runtime to write data to StreamID, sending
// FIN afterward if Fin is set.
type EffectWriteData struct {
	StreamID mux.StreamID
	Data     []byte
	Fin      bool
}

func (EffectWriteData) isRPCEffect() {}

// EffectQueryReceived surfaces a fully decoded incoming query to the
// handler the outer runtime registered for Header.Tag.
type EffectQueryReceived struct {
	Header  QueryHeader
	Payload []byte
}

func (EffectQueryReceived) isRPCEffect() {}

// EffectResponseReceived surfaces a fully decoded response matching an
// outstanding query.
type EffectResponseReceived struct {
	Header  ResponseHeader
	Payload []byte
}

func (EffectResponseReceived) isRPCEffect() {}

// EffectQueryPruned reports a pending query that will never get a
// response because its stream was torn down (PrunePending).
type EffectQueryPruned struct{ ID QueryID }

func (EffectQueryPruned) isRPCEffect() {}
