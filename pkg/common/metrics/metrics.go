/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package metrics records transaction flow counters and durations. Metrics are
// go-kit instruments backed by prometheus, or discarded when disabled.
package metrics

import (
	kitmetrics "github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/securekey/fabric-txflow/pkg/common/logging"
)

var logger = logging.NewLogger("fabtxflow/metrics")

// Namespace prefixes every metric name
const Namespace = "fabtxflow"

// CounterOpts describes a counter
type CounterOpts struct {
	Subsystem  string
	Name       string
	Help       string
	LabelNames []string
}

// HistogramOpts describes a histogram. Buckets default to the prometheus defaults.
type HistogramOpts struct {
	Subsystem  string
	Name       string
	Help       string
	Buckets    []float64
	LabelNames []string
}

// Provider creates instruments
type Provider interface {
	NewCounter(opts CounterOpts) kitmetrics.Counter
	NewHistogram(opts HistogramOpts) kitmetrics.Histogram
}

// PrometheusProvider registers every instrument it creates with a prometheus registerer
type PrometheusProvider struct {
	registerer prometheus.Registerer
}

// NewPrometheusProvider returns a provider registering with r, or with the
// prometheus default registerer if r is nil.
func NewPrometheusProvider(r prometheus.Registerer) *PrometheusProvider {
	if r == nil {
		r = prometheus.DefaultRegisterer
	}
	return &PrometheusProvider{registerer: r}
}

// NewCounter creates and registers a counter vector
func (p *PrometheusProvider) NewCounter(opts CounterOpts) kitmetrics.Counter {
	cv := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: opts.Subsystem,
		Name:      opts.Name,
		Help:      opts.Help,
	}, opts.LabelNames)
	p.register(opts.Name, cv)
	return kitprometheus.NewCounter(cv)
}

// NewHistogram creates and registers a histogram vector
func (p *PrometheusProvider) NewHistogram(opts HistogramOpts) kitmetrics.Histogram {
	hv := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: opts.Subsystem,
		Name:      opts.Name,
		Help:      opts.Help,
		Buckets:   opts.Buckets,
	}, opts.LabelNames)
	p.register(opts.Name, hv)
	return kitprometheus.NewHistogram(hv)
}

// register tolerates a collector already registered by another client with the
// same options; the new instrument then reports into a private vector.
func (p *PrometheusProvider) register(name string, c prometheus.Collector) {
	if err := p.registerer.Register(c); err != nil {
		logger.Warnf("Metric %s not registered: %s", name, err)
	}
}

// DisabledProvider discards every observation
type DisabledProvider struct{}

// NewCounter returns a discarding counter
func (DisabledProvider) NewCounter(CounterOpts) kitmetrics.Counter {
	return discard.NewCounter()
}

// NewHistogram returns a discarding histogram
func (DisabledProvider) NewHistogram(HistogramOpts) kitmetrics.Histogram {
	return discard.NewHistogram()
}
