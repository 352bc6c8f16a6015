// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegistersAgainstLiveRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	m.WonSlots.Inc()
	m.BugConditions.WithLabelValues("vrf").Inc()

	families, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
}

func TestNewMetricsWithNilRegistryIsANoOp(t *testing.T) {
	m, err := NewMetrics(nil)
	require.NoError(t, err)
	require.NoError(t, m.Register(prometheus.NewCounter(prometheus.CounterOpts{Name: "x"})))
}

func TestNewMetricsRejectsDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetrics(reg)
	require.NoError(t, err)

	_, err = NewMetrics(reg)
	require.Error(t, err, "registering the same metric names twice must fail")
}
