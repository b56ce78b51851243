// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package metrics exposes swap engine execution metrics to Prometheus.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics holds the engine collectors
type Metrics struct {
	executions   *prometheus.CounterVec
	instructions *prometheus.CounterVec
	gas          *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "swapvm_executions_total",
			Help: "Program executions by mode and outcome.",
		}, []string{"mode", "outcome"}),
		instructions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "swapvm_instructions_total",
			Help: "Executed instructions by opcode.",
		}, []string{"opcode"}),
		gas: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "swapvm_gas_used",
			Help:    "Gas used per successful execution.",
			Buckets: prometheus.ExponentialBuckets(500, 2, 10),
		}, []string{"mode"}),
	}
	for _, c := range []prometheus.Collector{m.executions, m.instructions, m.gas} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveExecution records one finished execution
func (m *Metrics) ObserveExecution(mode string, err error, gasUsed uint64) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	m.executions.WithLabelValues(mode, outcome).Inc()
	if err == nil {
		m.gas.WithLabelValues(mode).Observe(float64(gasUsed))
	}
}

// ObserveInstruction records one executed instruction
func (m *Metrics) ObserveInstruction(opcode string) {
	if m == nil {
		return
	}
	m.instructions.WithLabelValues(opcode).Inc()
}
