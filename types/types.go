// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package types holds the identifier and key aliases shared by every
// subsystem in this repository, re-exporting github.com/luxfi/ids so
// no individual package rolls its own ID type.
package types

import (
	"github.com/luxfi/crypto/bls"
	"github.com/luxfi/ids"
)

type (
	// Hash identifies a ledger snapshot, an epoch seed, or a VRF output
	// digest. All three are 32-byte content hashes in the underlying
	// protocol, so they share one representation.
	Hash = ids.ID

	// PeerID identifies a session endpoint on the multiplexed transport.
	PeerID = ids.NodeID

	// PublicKey is a delegator's or block producer's BLS public key.
	PublicKey = bls.PublicKey

	// SecretKey is a block producer's BLS secret key, used only as an
	// opaque handle passed to the (injected) VRF crypto collaborator.
	SecretKey = bls.SecretKey
)

// EmptyHash is the zero value of Hash, used as a not-yet-set sentinel.
var EmptyHash = ids.Empty

// GlobalSlot is an absolute, chain-wide slot number.
type GlobalSlot uint32

// Epoch is a staking-epoch number.
type Epoch uint32

// DelegatorIndex enumerates delegators within one epoch's staking
// ledger, in the order the ledger snapshot lists them.
type DelegatorIndex uint32
