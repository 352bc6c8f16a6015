// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQueryHeaderRoundTrip(t *testing.T) {
	h := QueryHeader{Tag: NewTag("get_blk"), Version: 3, ID: 42}
	wire := h.Encode()

	got, consumed, err := DecodeQueryHeader(wire)
	require.NoError(t, err)
	require.Equal(t, len(wire), consumed)
	require.Equal(t, h, got)
}

func TestResponseHeaderRoundTrip(t *testing.T) {
	h := ResponseHeader{ID: 7}
	wire := h.Encode()

	got, consumed, err := DecodeResponseHeader(wire)
	require.NoError(t, err)
	require.Equal(t, len(wire), consumed)
	require.Equal(t, h, got)
}

func TestNewTagTruncatesAndPads(t *testing.T) {
	short := NewTag("ab")
	require.Equal(t, byte(0), short[7])

	long := NewTag("this_is_too_long")
	require.Len(t, long, tagSize)
}

func TestDecodeQueryHeaderRejectsShortBuffer(t *testing.T) {
	_, _, err := DecodeQueryHeader(make([]byte, 3))
	require.Error(t, err)
}
