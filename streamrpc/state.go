// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package streamrpc implements the per-peer streaming-RPC channel: a
// pull-model request/response protocol for artifacts too large for a
// single frame (§4.2). A requester sends Request(id, req) then repeatedly
// Next(id); the responder answers with Response(id, Some(part)) for
// each canonical part, terminated by Response(id, None).
//
// Follows the tagged-state/pure-reducer shape this repository uses
// throughout: actions are applied to an immutable-by-convention state
// struct and emit effects rather than performing I/O directly.
package streamrpc

import (
	"time"

	"github.com/luxfi/vrfnode/types"
)

// RpcID correlates a request to its responses. Outbound ids are
// allocated locally and increase monotonically per peer; inbound ids
// are whatever the peer chose.
type RpcID uint64

// Request is the sole request payload this protocol carries. Only
// StagedLedgerParts exists in the source today; Hash names the staged
// ledger snapshot being requested.
type Request struct {
	StagedLedgerPartsHash types.Hash
}

// PartKind tags one canonical slice of a staged ledger snapshot.
type PartKind int

const (
	PartBase PartKind = iota
	PartScanStateBase
	PartPreviousIncompleteZkappUpdates
	PartScanStateTree
)

// Part is one wire-level response chunk. TreeIndex is meaningful only
// when Kind == PartScanStateTree.
type Part struct {
	Kind      PartKind
	TreeIndex int
	Data      []byte
}

// StagedLedgerData is the fully assembled snapshot, built up on the
// requester side one Part at a time and read in full on the responder
// side before streaming begins.
type StagedLedgerData struct {
	Base                           []byte
	ScanStateBase                  []byte
	PreviousIncompleteZkappUpdates []byte
	// ScanStateTrees holds the `trees.1` collection from the source.
	// See SendProgress.nextPart's doc comment for why `trees.0` is not
	// represented here.
	ScanStateTrees [][]byte
}

// ReceiveProgressKind is the requester-side canonical part sequence
// (§3.2).
type ReceiveProgressKind int

const (
	ReceiveBasePending ReceiveProgressKind = iota
	ReceiveBaseReceived
	ReceiveScanStateBaseReceived
	ReceivePreviousIncompleteZkappUpdatesReceived
	ReceiveScanStateTreesReceiving
	ReceiveSuccess
)

// ReceiveProgress is the requester's assembly state: which part is
// expected next (or pending), plus whatever has already arrived.
type ReceiveProgress struct {
	Kind      ReceiveProgressKind
	Time      time.Time
	TreeIndex int // meaningful only for ReceiveScanStateTreesReceiving
	Pending   bool
	Assembled StagedLedgerData
}

// NewReceiveProgress starts a fresh assembly at BasePending, the state
// RequestSend installs immediately.
func NewReceiveProgress(now time.Time) ReceiveProgress {
	return ReceiveProgress{Kind: ReceiveBasePending, Time: now, Pending: true}
}

// expectedPart returns the PartKind this progress is currently waiting
// on, and whether the sequence is already finished.
func (p ReceiveProgress) expectedPart() (PartKind, bool) {
	switch p.Kind {
	case ReceiveBasePending:
		return PartBase, false
	case ReceiveBaseReceived:
		return PartScanStateBase, false
	case ReceiveScanStateBaseReceived:
		return PartPreviousIncompleteZkappUpdates, false
	case ReceivePreviousIncompleteZkappUpdatesReceived, ReceiveScanStateTreesReceiving:
		return PartScanStateTree, false
	default:
		return 0, true
	}
}

// update advances progress by one received part. It reports false (a
// bug condition, §7.2) if part does not match the expected next part
// in the canonical order.
func (p *ReceiveProgress) update(now time.Time, part *Part) bool {
	expected, done := p.expectedPart()
	if done {
		return false
	}
	if part == nil {
		// Response(id, None) before the sequence reached Success.
		return false
	}
	if part.Kind != expected {
		return false
	}

	p.Time = now
	p.Pending = false
	switch p.Kind {
	case ReceiveBasePending:
		p.Assembled.Base = part.Data
		p.Kind = ReceiveBaseReceived
	case ReceiveBaseReceived:
		p.Assembled.ScanStateBase = part.Data
		p.Kind = ReceiveScanStateBaseReceived
	case ReceiveScanStateBaseReceived:
		p.Assembled.PreviousIncompleteZkappUpdates = part.Data
		p.Kind = ReceivePreviousIncompleteZkappUpdatesReceived
	case ReceivePreviousIncompleteZkappUpdatesReceived:
		if part.TreeIndex != 0 {
			return false
		}
		p.Assembled.ScanStateTrees = append(p.Assembled.ScanStateTrees, part.Data)
		p.TreeIndex = 1
		p.Kind = ReceiveScanStateTreesReceiving
	case ReceiveScanStateTreesReceiving:
		if part.TreeIndex != p.TreeIndex {
			return false
		}
		p.Assembled.ScanStateTrees = append(p.Assembled.ScanStateTrees, part.Data)
		p.TreeIndex++
	}
	return true
}

// setNextPending marks the currently-expected part as requested
// (ResponseNextPartGet), mirroring the source's set_next_pending. It
// reports false if a part is already pending.
func (p *ReceiveProgress) setNextPending(now time.Time) bool {
	if p.Pending {
		return false
	}
	p.Pending = true
	p.Time = now
	return true
}

// isDone reports whether progress has reached Success, which only
// finish sets (update never does).
func (p ReceiveProgress) isDone() bool { return p.Kind == ReceiveSuccess }

// finish transitions progress to Success once a Response(id, None) is
// observed, whichever parts had arrived before it.
func (p *ReceiveProgress) finish(now time.Time) {
	p.Kind = ReceiveSuccess
	p.Time = now
	p.Pending = false
}

// SendProgressKind is the responder-side canonical sequence mirroring
// ReceiveProgressKind (§3.2).
type SendProgressKind int

const (
	SendLedgerGetIdle SendProgressKind = iota
	SendLedgerGetPending
	SendLedgerGetSuccess
	SendBaseSent
	SendScanStateBaseSent
	SendPreviousIncompleteZkappUpdatesSent
	SendScanStateTreesSending
	SendSuccess
)

// SendProgress is the responder's per-request send state.
type SendProgress struct {
	Kind      SendProgressKind
	Time      time.Time
	TreeIndex int // meaningful only for SendScanStateTreesSending
	Data      *StagedLedgerData
}

// NewSendProgress starts a fresh responder progress at LedgerGetIdle,
// installed by RequestReceived.
func NewSendProgress(now time.Time) SendProgress {
	return SendProgress{Kind: SendLedgerGetIdle, Time: now}
}

// nextPart returns the part remote_next_msg would send for the
// current progress, or nil once every canonical part has already been
// sent — the caller (ResponsePartNextSend) treats nil as "send the
// Response(id, None) terminator instead".
//
// TODO: this only ever walks ScanStateTrees; a second, distinct tree
// collection is never folded into StagedLedgerData or this sequence.
// Left unaddressed rather than assumed to be interleaved or
// concatenated with ScanStateTrees.
func (p SendProgress) nextPart() *Part {
	if p.Data == nil {
		return nil
	}
	switch p.Kind {
	case SendLedgerGetSuccess:
		return &Part{Kind: PartBase, Data: p.Data.Base}
	case SendBaseSent:
		return &Part{Kind: PartScanStateBase, Data: p.Data.ScanStateBase}
	case SendScanStateBaseSent:
		return &Part{Kind: PartPreviousIncompleteZkappUpdates, Data: p.Data.PreviousIncompleteZkappUpdates}
	case SendPreviousIncompleteZkappUpdatesSent:
		if len(p.Data.ScanStateTrees) == 0 {
			return nil
		}
		return &Part{Kind: PartScanStateTree, TreeIndex: 0, Data: p.Data.ScanStateTrees[0]}
	case SendScanStateTreesSending:
		if p.TreeIndex >= len(p.Data.ScanStateTrees) {
			return nil
		}
		return &Part{Kind: PartScanStateTree, TreeIndex: p.TreeIndex, Data: p.Data.ScanStateTrees[p.TreeIndex]}
	default:
		return nil
	}
}

// advance moves progress one step forward after a part has actually
// been sent (ResponsePartSend). TreeIndex always counts trees already
// sent, so nextPart and advance agree on what "next" means.
func (p *SendProgress) advance(now time.Time) bool {
	switch p.Kind {
	case SendLedgerGetSuccess:
		p.Kind = SendBaseSent
	case SendBaseSent:
		p.Kind = SendScanStateBaseSent
	case SendScanStateBaseSent:
		p.Kind = SendPreviousIncompleteZkappUpdatesSent
	case SendPreviousIncompleteZkappUpdatesSent:
		p.Kind = SendScanStateTreesSending
		p.TreeIndex = 1
	case SendScanStateTreesSending:
		p.TreeIndex++
	default:
		return false
	}
	p.Time = now
	return true
}

// isDone reports whether every canonical part (and the None
// terminator) has already been sent.
func (p SendProgress) isDone() bool { return p.Kind == SendSuccess }

// LocalStateKind tags the requester-side channel state.
type LocalStateKind int

const (
	LocalWaitingForRequest LocalStateKind = iota
	LocalRequested
	LocalResponded
)

// LocalState is the requester side of one peer's channel.
type LocalState struct {
	Kind     LocalStateKind
	Time     time.Time
	ID       RpcID
	Request  Request
	Progress ReceiveProgress
}

// RemoteStateKind tags the responder-side channel state.
type RemoteStateKind int

const (
	RemoteWaitingForRequest RemoteStateKind = iota
	RemoteRequested
	RemoteResponded
)

// RemoteState is the responder side of one peer's channel.
type RemoteState struct {
	Kind     RemoteStateKind
	Time     time.Time
	ID       RpcID
	Request  Request
	Progress SendProgress
}

// ChannelStateKind tags the overall per-peer channel lifecycle.
type ChannelStateKind int

const (
	ChannelDisabled ChannelStateKind = iota
	ChannelInit
	ChannelPending
	ChannelReady
)

// ChannelState is one peer's streaming-RPC channel (§3.2).
type ChannelState struct {
	Kind                ChannelStateKind
	Time                time.Time
	Local               LocalState
	Remote              RemoteState
	RemoteLastResponded time.Time

	NextLocalRpcID RpcID
}

// NewChannelState starts a channel Disabled, the zero-value-as-
// initial-state convention this module uses throughout.
func NewChannelState() *ChannelState {
	return &ChannelState{Kind: ChannelDisabled}
}

// LocalDoneResponse reports the fully assembled response once the
// requester side's progress reaches Success, or nil otherwise.
func (c *ChannelState) LocalDoneResponse() *StagedLedgerData {
	if c.Local.Kind != LocalRequested || !c.Local.Progress.isDone() {
		return nil
	}
	return &c.Local.Progress.Assembled
}
