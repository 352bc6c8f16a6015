// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package rpc implements the classical call/response protocol (§6):
// a query/response exchange identified by QueryHeader/ResponseHeader,
// framed over a dedicated mux stream per peer.
//
// The wire encoding follows mux.Frame's fixed-header codec style: a
// short fixed-width header, network byte order, no variable-length
// prefixes.
package rpc

import (
	"encoding/binary"
	"fmt"
)

// QueryID correlates an outgoing QueryHeader to its ResponseHeader.
type QueryID uint64

const tagSize = 8

// QueryHeader tags one classical RPC call: an 8-byte ASCII method tag,
// a version, and a correlation id.
type QueryHeader struct {
	Tag     [tagSize]byte
	Version uint16
	ID      QueryID
}

// NewTag pads or truncates name to the fixed 8-byte tag field, the
// same fixed-width convention mina_p2p_messages uses for RPC tags.
func NewTag(name string) [tagSize]byte {
	var tag [tagSize]byte
	copy(tag[:], name)
	return tag
}

const queryHeaderSize = tagSize + 2 + 8

// Encode writes the fixed-width query header.
func (h QueryHeader) Encode() []byte {
	buf := make([]byte, queryHeaderSize)
	copy(buf[0:tagSize], h.Tag[:])
	binary.BigEndian.PutUint16(buf[tagSize:tagSize+2], h.Version)
	binary.BigEndian.PutUint64(buf[tagSize+2:], uint64(h.ID))
	return buf
}

// DecodeQueryHeader parses the fixed-width query header from the front
// of buf, returning the number of bytes consumed.
func DecodeQueryHeader(buf []byte) (QueryHeader, int, error) {
	if len(buf) < queryHeaderSize {
		return QueryHeader{}, 0, fmt.Errorf("rpc: short query header (%d bytes)", len(buf))
	}
	var h QueryHeader
	copy(h.Tag[:], buf[0:tagSize])
	h.Version = binary.BigEndian.Uint16(buf[tagSize : tagSize+2])
	h.ID = QueryID(binary.BigEndian.Uint64(buf[tagSize+2:]))
	return h, queryHeaderSize, nil
}

const responseHeaderSize = 8

// ResponseHeader carries only the correlation id; the payload that
// follows on the wire is opaque to this layer.
type ResponseHeader struct {
	ID QueryID
}

// Encode writes the fixed-width response header.
func (h ResponseHeader) Encode() []byte {
	buf := make([]byte, responseHeaderSize)
	binary.BigEndian.PutUint64(buf, uint64(h.ID))
	return buf
}

// DecodeResponseHeader parses the fixed-width response header from the
// front of buf, returning the number of bytes consumed.
func DecodeResponseHeader(buf []byte) (ResponseHeader, int, error) {
	if len(buf) < responseHeaderSize {
		return ResponseHeader{}, 0, fmt.Errorf("rpc: short response header (%d bytes)", len(buf))
	}
	return ResponseHeader{ID: QueryID(binary.BigEndian.Uint64(buf))}, responseHeaderSize, nil
}

// MessageKind tags which header a Message carries.
type MessageKind int

const (
	MessageQuery MessageKind = iota
	MessageResponse
)

// Message is one fully-decoded RPC message, either a query or a
// response, with its opaque payload.
type Message struct {
	Kind     MessageKind
	Query    QueryHeader
	Response ResponseHeader
	Payload  []byte
}
