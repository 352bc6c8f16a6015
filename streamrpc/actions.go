// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package streamrpc

// Action is one input to a channel's reducer. Disabled actions are
// dropped without mutating state (§7.1); actions whose precondition
// signals a genuine protocol violation instead report a bug condition
// through the channel's logger and are still dropped without mutation
// (§7.2).
type Action interface {
	IsEnabled(c *ChannelState) bool
}

// Init starts channel bring-up for a newly-ready peer.
type Init struct{}

func (Init) IsEnabled(c *ChannelState) bool { return c.Kind == ChannelDisabled }

// Pending marks the underlying stream as opened, awaiting the
// transport's ready signal.
type Pending struct{}

func (Pending) IsEnabled(c *ChannelState) bool { return c.Kind == ChannelInit }

// Ready marks the channel usable in both directions.
type Ready struct{}

func (Ready) IsEnabled(c *ChannelState) bool { return c.Kind == ChannelPending }

// RequestSend issues an outbound request. Enabled only when the local
// side has nothing outstanding (§8: at most one Requested per side).
type RequestSend struct {
	Request Request
}

func (RequestSend) IsEnabled(c *ChannelState) bool {
	return c.Kind == ChannelReady && c.Local.Kind == LocalWaitingForRequest
}

// Timeout fires when no part has arrived within the configured
// deadline for id.
type Timeout struct{ ID RpcID }

func (a Timeout) IsEnabled(c *ChannelState) bool {
	return c.Kind == ChannelReady && c.Local.Kind == LocalRequested && c.Local.ID == a.ID
}

// ResponseNextPartGet requests the next part of an in-flight response.
type ResponseNextPartGet struct{ ID RpcID }

func (a ResponseNextPartGet) IsEnabled(c *ChannelState) bool {
	return c.Kind == ChannelReady && c.Local.Kind == LocalRequested && c.Local.ID == a.ID
}

// ResponsePartReceived reports one part arriving on the wire. A part
// out of canonical order is a bug condition (§4.2 invariants), not an
// enabling-condition rejection — the state shape check below only
// guards against a part arriving with no outstanding request at all.
type ResponsePartReceived struct {
	ID   RpcID
	Part *Part // nil signals Response(id, None)
}

func (a ResponsePartReceived) IsEnabled(c *ChannelState) bool {
	return c.Kind == ChannelReady && c.Local.Kind == LocalRequested && c.Local.ID == a.ID
}

// ResponseReceived surfaces the fully assembled response once
// progress is done.
type ResponseReceived struct {
	ID       RpcID
	Response *StagedLedgerData
}

func (a ResponseReceived) IsEnabled(c *ChannelState) bool {
	return c.Kind == ChannelReady && c.Local.Kind == LocalRequested && c.Local.ID == a.ID
}

// RequestReceived installs an inbound request on the responder side.
// Enabled only when the remote side has nothing outstanding.
type RequestReceived struct {
	ID      RpcID
	Request Request
}

func (RequestReceived) IsEnabled(c *ChannelState) bool {
	return c.Kind == ChannelReady && c.Remote.Kind == RemoteWaitingForRequest
}

// ResponsePending marks the ledger read as in flight.
type ResponsePending struct{ ID RpcID }

func (a ResponsePending) IsEnabled(c *ChannelState) bool {
	return c.Kind == ChannelReady && c.Remote.Kind == RemoteRequested && c.Remote.ID == a.ID
}

// ResponseSendInit installs the ledger collaborator's reply (data, or
// nil to signal the snapshot is unavailable/complete).
type ResponseSendInit struct {
	ID   RpcID
	Data *StagedLedgerData
}

func (a ResponseSendInit) IsEnabled(c *ChannelState) bool {
	return c.Kind == ChannelReady && c.Remote.Kind == RemoteRequested && c.Remote.ID == a.ID
}

// ResponsePartNextSend asks the pure remote_next_msg lookup for the
// next part to send.
type ResponsePartNextSend struct{ ID RpcID }

func (a ResponsePartNextSend) IsEnabled(c *ChannelState) bool {
	return c.Kind == ChannelReady && c.Remote.Kind == RemoteRequested && c.Remote.ID == a.ID
}

// ResponsePartSend advances send progress by one step and dispatches
// the wire message.
type ResponsePartSend struct {
	ID   RpcID
	Part Part
}

func (a ResponsePartSend) IsEnabled(c *ChannelState) bool {
	return c.Kind == ChannelReady && c.Remote.Kind == RemoteRequested && c.Remote.ID == a.ID
}

// ResponseSent transitions the remote side to Responded.
type ResponseSent struct{ ID RpcID }

func (a ResponseSent) IsEnabled(c *ChannelState) bool {
	return c.Kind == ChannelReady && c.Remote.Kind == RemoteRequested && c.Remote.ID == a.ID
}

// NextReceived reports the peer's Next(id) pull message arriving on
// the wire. It resumes the responder's per-part loop after the
// previous ResponsePartSend/ResponseSent round, and is itself
// ineffective once SendProgress has finished (every canonical part
// plus the terminating None already sent).
type NextReceived struct{ ID RpcID }

func (a NextReceived) IsEnabled(c *ChannelState) bool {
	return c.Kind == ChannelReady &&
		c.Remote.Kind == RemoteResponded &&
		c.Remote.ID == a.ID &&
		!c.Remote.Progress.isDone()
}
