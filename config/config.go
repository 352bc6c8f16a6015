// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config carries the ambient knobs the three core subsystems
// (vrf, streamrpc, mux) need from the outside world, split into a
// plain Config struct and a separate validator.
package config

import "time"

// Config holds every externally-configurable knob this module's
// subsystems read. None of it is mutated by the reducers themselves —
// it is threaded in at construction time.
type Config struct {
	// TransitionFrontierSize bounds fork reorganisation depth and
	// gates next-epoch evaluation (§3.1, boundary scenario 2).
	TransitionFrontierSize uint32
	// SlotsPerEpoch is the fixed length of one VRF epoch.
	SlotsPerEpoch uint32
	// StreamingRPCTimeout is how long a requester waits for the next
	// part before firing Timeout{id} (§4.2 item 3).
	StreamingRPCTimeout time.Duration
	// DefaultStreamWindow is the initial per-stream flow-control
	// credit granted in both directions (§3.4).
	DefaultStreamWindow int64
}

// DefaultConfig returns the parameters this module ships with absent
// any override.
func DefaultConfig() Config {
	return Config{
		TransitionFrontierSize: 290,
		SlotsPerEpoch:          7140,
		StreamingRPCTimeout:    30 * time.Second,
		DefaultStreamWindow:    256 * 1024,
	}
}

// MainnetConfig returns the parameters used in production: it starts
// from DefaultConfig and sets TransitionFrontierSize and SlotsPerEpoch
// explicitly, to the same values DefaultConfig already uses.
func MainnetConfig() Config {
	c := DefaultConfig()
	c.TransitionFrontierSize = 290
	c.SlotsPerEpoch = 7140
	return c
}

// TestConfig returns parameters suited to fast unit tests: a short
// epoch and a tight timeout.
func TestConfig() Config {
	c := DefaultConfig()
	c.SlotsPerEpoch = 16
	c.TransitionFrontierSize = 4
	c.StreamingRPCTimeout = 200 * time.Millisecond
	return c
}
