// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package metrics wires the three core subsystems to Prometheus,
// wrapping a single prometheus.Registerer so every metric either
// registers cleanly or the construction fails loudly.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds every counter/gauge this module exposes, registered
// against a single prometheus.Registerer at construction time.
type Metrics struct {
	Registry prometheus.Registerer

	// VRF (§4.1)
	WonSlots       prometheus.Counter
	SlotEvaluation prometheus.Counter
	SlotFailures   prometheus.Counter
	CleanedSlots   prometheus.Counter

	// streamrpc (§4.2)
	RPCPartsSent     prometheus.Counter
	RPCPartsReceived prometheus.Counter
	RPCTimeouts      prometheus.Counter

	// mux (§3.4)
	FramesParsed    prometheus.Counter
	ParseErrors     prometheus.Counter
	GoAways         prometheus.Counter
	WindowExhausted prometheus.Counter
	StreamsOpen     prometheus.Gauge

	// cross-cutting (§7.2)
	BugConditions *prometheus.CounterVec
}

// NewMetrics constructs and registers every metric against reg. A nil
// reg is valid and yields a Metrics whose Register calls are no-ops.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Registry: reg,

		WonSlots:       prometheus.NewCounter(prometheus.CounterOpts{Name: "vrfnode_vrf_won_slots_total", Help: "VRF slots this node has won"}),
		SlotEvaluation: prometheus.NewCounter(prometheus.CounterOpts{Name: "vrfnode_vrf_slots_evaluated_total", Help: "VRF slots evaluated"}),
		SlotFailures:   prometheus.NewCounter(prometheus.CounterOpts{Name: "vrfnode_vrf_slot_failures_total", Help: "VRF slot evaluations that failed"}),
		CleanedSlots:   prometheus.NewCounter(prometheus.CounterOpts{Name: "vrfnode_vrf_cleaned_slots_total", Help: "Won slots cleaned up past retention"}),

		RPCPartsSent:     prometheus.NewCounter(prometheus.CounterOpts{Name: "vrfnode_streamrpc_parts_sent_total", Help: "Staged ledger parts sent"}),
		RPCPartsReceived: prometheus.NewCounter(prometheus.CounterOpts{Name: "vrfnode_streamrpc_parts_received_total", Help: "Staged ledger parts received"}),
		RPCTimeouts:      prometheus.NewCounter(prometheus.CounterOpts{Name: "vrfnode_streamrpc_timeouts_total", Help: "Streaming RPC requests that timed out"}),

		FramesParsed:    prometheus.NewCounter(prometheus.CounterOpts{Name: "vrfnode_mux_frames_parsed_total", Help: "Multiplexer frames parsed"}),
		ParseErrors:     prometheus.NewCounter(prometheus.CounterOpts{Name: "vrfnode_mux_parse_errors_total", Help: "Multiplexer frame parse errors"}),
		GoAways:         prometheus.NewCounter(prometheus.CounterOpts{Name: "vrfnode_mux_goaways_total", Help: "GoAway frames sent or received"}),
		WindowExhausted: prometheus.NewCounter(prometheus.CounterOpts{Name: "vrfnode_mux_window_exhausted_total", Help: "SendData drops due to an exhausted peer window"}),
		StreamsOpen:     prometheus.NewGauge(prometheus.GaugeOpts{Name: "vrfnode_mux_streams_open", Help: "Currently open multiplexed streams"}),

		BugConditions: prometheus.NewCounterVec(prometheus.CounterOpts{Name: "vrfnode_bug_conditions_total", Help: "Bug conditions reported by subsystem"}, []string{"subsystem"}),
	}

	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{
		m.WonSlots, m.SlotEvaluation, m.SlotFailures, m.CleanedSlots,
		m.RPCPartsSent, m.RPCPartsReceived, m.RPCTimeouts,
		m.FramesParsed, m.ParseErrors, m.GoAways, m.WindowExhausted, m.StreamsOpen,
		m.BugConditions,
	} {
		if err := m.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Register registers a single prometheus collector, a no-op when the
// Metrics wasn't built with a live registry.
func (m *Metrics) Register(collector prometheus.Collector) error {
	if m.Registry == nil {
		return nil
	}
	return m.Registry.Register(collector)
}

// The Inc*/Add* methods below are the call sites every reducer in this
// module reaches for. They're nil-receiver safe so subsystems that
// weren't given a *Metrics (tests, or a caller uninterested in
// observability) can call them unconditionally instead of guarding
// every call site.

func (m *Metrics) IncWonSlots() {
	if m != nil {
		m.WonSlots.Inc()
	}
}

func (m *Metrics) IncSlotEvaluation() {
	if m != nil {
		m.SlotEvaluation.Inc()
	}
}

func (m *Metrics) IncSlotFailures() {
	if m != nil {
		m.SlotFailures.Inc()
	}
}

func (m *Metrics) AddCleanedSlots(n int) {
	if m != nil {
		m.CleanedSlots.Add(float64(n))
	}
}

func (m *Metrics) IncRPCPartsSent() {
	if m != nil {
		m.RPCPartsSent.Inc()
	}
}

func (m *Metrics) IncRPCPartsReceived() {
	if m != nil {
		m.RPCPartsReceived.Inc()
	}
}

func (m *Metrics) IncRPCTimeouts() {
	if m != nil {
		m.RPCTimeouts.Inc()
	}
}

func (m *Metrics) IncFramesParsed() {
	if m != nil {
		m.FramesParsed.Inc()
	}
}

func (m *Metrics) IncParseErrors() {
	if m != nil {
		m.ParseErrors.Inc()
	}
}

func (m *Metrics) IncGoAways() {
	if m != nil {
		m.GoAways.Inc()
	}
}

func (m *Metrics) IncWindowExhausted() {
	if m != nil {
		m.WindowExhausted.Inc()
	}
}

// IncBugCondition records one bug condition reported by subsystem
// (§7.2: "vrf", "mux", "streamrpc", "rpc").
func (m *Metrics) IncBugCondition(subsystem string) {
	if m != nil {
		m.BugConditions.WithLabelValues(subsystem).Inc()
	}
}
