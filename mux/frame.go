// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mux

import (
	"encoding/binary"
	"fmt"
)

// StreamID identifies one multiplexed stream within a session. Stream ids
// are partitioned by parity between the two endpoints: odd ids are chosen
// by the client side, even ids by the server side (§3.4).
type StreamID uint32

// FrameType tags the fixed 12-byte header's second byte.
type FrameType uint8

const (
	FrameTypeData FrameType = iota
	FrameTypeWindowUpdate
	FrameTypePing
	FrameTypeGoAway
)

// Flags are the bit flags carried in the header's flags field.
type Flags uint16

const (
	FlagSYN Flags = 1 << iota
	FlagACK
	FlagFIN
	FlagRST
)

const headerSize = 12

// knownFlags is every bit this implementation understands; any other bit
// set in a parsed header is a protocol violation (§3.4).
const knownFlags = FlagSYN | FlagACK | FlagFIN | FlagRST

// ParseError reports why a header or frame failed to parse. It is the Go
// counterpart of the source's YamuxFrameParseError, one variant per
// violation kind.
type ParseError struct {
	Kind  ParseErrorKind
	Value uint32
}

type ParseErrorKind int

const (
	ErrUnknownVersion ParseErrorKind = iota
	ErrUnknownFlags
	ErrUnknownType
	ErrUnknownErrorCode
)

func (e *ParseError) Error() string {
	switch e.Kind {
	case ErrUnknownVersion:
		return fmt.Sprintf("mux: unknown frame version %d", e.Value)
	case ErrUnknownFlags:
		return fmt.Sprintf("mux: unknown frame flags %#x", e.Value)
	case ErrUnknownType:
		return fmt.Sprintf("mux: unknown frame type %d", e.Value)
	case ErrUnknownErrorCode:
		return fmt.Sprintf("mux: unknown goaway code %d", e.Value)
	default:
		return "mux: frame parse error"
	}
}

// GoAwayResult is Ok(nil) for a clean shutdown or one of the two known
// error codes otherwise.
type GoAwayResult struct {
	Err *SessionError
}

// SessionError is the peer-fatal reason carried by a GoAway frame.
type SessionError int

const (
	SessionErrorProtocol SessionError = iota
	SessionErrorInternal
)

func (e SessionError) String() string {
	switch e {
	case SessionErrorProtocol:
		return "protocol"
	case SessionErrorInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// FrameBody is the type-specific payload of a Frame; exactly one of the
// embedded fields is meaningful for any given Frame, selected by Type.
type FrameBody struct {
	Data         []byte // FrameTypeData
	WindowDelta  int32  // FrameTypeWindowUpdate: signed credit delta
	PingOpaque   int32  // FrameTypePing
	GoAwayResult GoAwayResult
}

// Frame is one parsed Yamux-style multiplexer frame (§3.4, §6).
type Frame struct {
	Type     FrameType
	Flags    Flags
	StreamID StreamID
	Body     FrameBody
}

// Ping builds the Ping frame the reducer sends, mirroring the source's
// YamuxPing::into_frame: a response ping carries ACK; an unsolicited ping
// to stream 0 carries SYN; any other ping carries no flags.
func Ping(streamID StreamID, opaque int32, response bool) Frame {
	flags := Flags(0)
	switch {
	case response:
		flags = FlagACK
	case streamID == 0:
		flags = FlagSYN
	}
	return Frame{Type: FrameTypePing, Flags: flags, StreamID: streamID, Body: FrameBody{PingOpaque: opaque}}
}

// Encode serialises f into the fixed 12-byte-header wire format, followed
// by the payload when Type == FrameTypeData.
func (f Frame) Encode() []byte {
	dataLen := 0
	if f.Type == FrameTypeData {
		dataLen = len(f.Body.Data)
	}
	buf := make([]byte, headerSize+dataLen)
	buf[0] = 0 // version
	buf[1] = byte(f.Type)
	binary.BigEndian.PutUint16(buf[2:4], uint16(f.Flags))
	binary.BigEndian.PutUint32(buf[4:8], uint32(f.StreamID))

	switch f.Type {
	case FrameTypeData:
		binary.BigEndian.PutUint32(buf[8:12], uint32(len(f.Body.Data)))
		copy(buf[12:], f.Body.Data)
	case FrameTypeWindowUpdate:
		binary.BigEndian.PutUint32(buf[8:12], uint32(f.Body.WindowDelta))
	case FrameTypePing:
		binary.BigEndian.PutUint32(buf[8:12], uint32(f.Body.PingOpaque))
	case FrameTypeGoAway:
		binary.BigEndian.PutUint32(buf[8:12], goAwayCode(f.Body.GoAwayResult))
	}
	return buf
}

func goAwayCode(r GoAwayResult) uint32 {
	if r.Err == nil {
		return 0
	}
	switch *r.Err {
	case SessionErrorProtocol:
		return 1
	case SessionErrorInternal:
		return 2
	default:
		return 2
	}
}

// parseHeader reads the fixed 12-byte prefix of buf, validating version,
// flags and type, and for Data frames returns the payload length still to
// be read. It does not consume buf; the caller advances the buffer once a
// full frame (header + any payload) is available.
type parsedHeader struct {
	typ      FrameType
	flags    Flags
	streamID StreamID
	trailer  uint32 // length | difference | opaque | code, depending on typ
}

func parseHeader(buf []byte) (parsedHeader, error) {
	if buf[0] != 0 {
		return parsedHeader{}, &ParseError{Kind: ErrUnknownVersion, Value: uint32(buf[0])}
	}
	typ := FrameType(buf[1])
	if typ > FrameTypeGoAway {
		return parsedHeader{}, &ParseError{Kind: ErrUnknownType, Value: uint32(buf[1])}
	}
	flags := Flags(binary.BigEndian.Uint16(buf[2:4]))
	if flags&^knownFlags != 0 {
		return parsedHeader{}, &ParseError{Kind: ErrUnknownFlags, Value: uint32(flags)}
	}
	streamID := StreamID(binary.BigEndian.Uint32(buf[4:8]))
	trailer := binary.BigEndian.Uint32(buf[8:12])
	return parsedHeader{typ: typ, flags: flags, streamID: streamID, trailer: trailer}, nil
}

// ParseFrame attempts to parse one frame from the front of buf. It
// returns the frame, the number of bytes consumed, and ok == false when
// buf does not yet hold a complete frame (the caller should wait for more
// bytes, this is not an error). A non-nil error is always peer-fatal
// (§7.3) and parsing must stop.
func ParseFrame(buf []byte) (frame Frame, consumed int, ok bool, err error) {
	if len(buf) < headerSize {
		return Frame{}, 0, false, nil
	}
	h, perr := parseHeader(buf)
	if perr != nil {
		return Frame{}, 0, false, perr
	}

	switch h.typ {
	case FrameTypeData:
		total := headerSize + int(h.trailer)
		if len(buf) < total {
			return Frame{}, 0, false, nil
		}
		data := make([]byte, h.trailer)
		copy(data, buf[headerSize:total])
		return Frame{Type: FrameTypeData, Flags: h.flags, StreamID: h.streamID, Body: FrameBody{Data: data}}, total, true, nil

	case FrameTypeWindowUpdate:
		return Frame{Type: FrameTypeWindowUpdate, Flags: h.flags, StreamID: h.streamID, Body: FrameBody{WindowDelta: int32(h.trailer)}}, headerSize, true, nil

	case FrameTypePing:
		return Frame{Type: FrameTypePing, Flags: h.flags, StreamID: h.streamID, Body: FrameBody{PingOpaque: int32(h.trailer)}}, headerSize, true, nil

	case FrameTypeGoAway:
		var result GoAwayResult
		switch h.trailer {
		case 0:
			result = GoAwayResult{}
		case 1:
			protocolErr := SessionErrorProtocol
			result = GoAwayResult{Err: &protocolErr}
		case 2:
			internalErr := SessionErrorInternal
			result = GoAwayResult{Err: &internalErr}
		default:
			return Frame{}, 0, false, &ParseError{Kind: ErrUnknownErrorCode, Value: h.trailer}
		}
		return Frame{Type: FrameTypeGoAway, Flags: h.flags, StreamID: h.streamID, Body: FrameBody{GoAwayResult: result}}, headerSize, true, nil

	default:
		return Frame{}, 0, false, &ParseError{Kind: ErrUnknownType, Value: uint32(h.typ)}
	}
}
