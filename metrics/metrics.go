// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package metrics exports dispatch handle counters to prometheus.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"code.hybscloud.com/dispatch"
)

const (
	metricsNamespace = "dispatch"
	handleSubsystem  = "handle"
	callSubsystem    = "call"
)

// StatsSource is anything that reports dispatch.Stats, usually a *dispatch.Handle.
type StatsSource interface {
	Stats() dispatch.Stats
}

type statDesc struct {
	desc  *prometheus.Desc
	kind  prometheus.ValueType
	value func(dispatch.Stats) float64
}

// Collector reads a snapshot of the source on every scrape.
type Collector struct {
	src   StatsSource
	descs []statDesc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector describes the counters of src. Every series carries the
// handle serial as the "handle" label.
func NewCollector(src StatsSource) *Collector {
	labels := prometheus.Labels{"handle": strconv.FormatUint(uint64(src.Stats().Serial), 10)}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(metricsNamespace, handleSubsystem, name), help, nil, labels)
	}
	gauge := func(name, help string, v func(dispatch.Stats) float64) statDesc {
		return statDesc{desc(name, help), prometheus.GaugeValue, v}
	}
	counter := func(name, help string, v func(dispatch.Stats) float64) statDesc {
		return statDesc{desc(name, help), prometheus.CounterValue, v}
	}
	return &Collector{
		src: src,
		descs: []statDesc{
			gauge("queue_capacity", "Maximum number of requests waiting for the worker",
				func(s dispatch.Stats) float64 { return float64(s.Capacity) }),
			gauge("queue_depth", "Requests waiting for the worker",
				func(s dispatch.Stats) float64 { return float64(s.Queued) }),
			counter("admitted_total", "Requests accepted into the queue",
				func(s dispatch.Stats) float64 { return float64(s.Admitted) }),
			counter("rejected_total", "Requests refused at admission",
				func(s dispatch.Stats) float64 { return float64(s.Rejected) }),
			counter("completed_total", "Requests executed by the worker",
				func(s dispatch.Stats) float64 { return float64(s.Completed) }),
			counter("dropped_total", "Admitted requests failed by shutdown",
				func(s dispatch.Stats) float64 { return float64(s.Dropped) }),
			gauge("pending_async", "Suspended protocols waiting for a completion",
				func(s dispatch.Stats) float64 { return float64(s.PendingAsync) }),
			counter("buffers_allocated_total", "Result buffers handed to consumers",
				func(s dispatch.Stats) float64 { return float64(s.Buffers.Allocated) }),
			counter("buffers_released_total", "Result buffers returned",
				func(s dispatch.Stats) float64 { return float64(s.Buffers.Released) }),
			counter("buffers_discarded_total", "Result buffers freed because nobody waited for them",
				func(s dispatch.Stats) float64 { return float64(s.Buffers.Discarded) }),
			gauge("buffers_outstanding", "Result buffers not yet returned",
				func(s dispatch.Stats) float64 { return float64(s.Buffers.Outstanding()) }),
			gauge("poisoned", "1 once the executor panicked",
				func(s dispatch.Stats) float64 { return flag(s.Poisoned) }),
			gauge("closed", "1 once the handle is closed",
				func(s dispatch.Stats) float64 { return flag(s.Closed) }),
		},
	}
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range c.descs {
		ch <- d.desc
	}
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.src.Stats()
	for _, d := range c.descs {
		ch <- prometheus.MustNewConstMetric(d.desc, d.kind, d.value(s))
	}
}

// CallObserver records caller-side latency per operation and result code.
type CallObserver struct {
	latency *prometheus.HistogramVec
	calls   *prometheus.CounterVec
}

// NewCallObserver registers its series with reg.
func NewCallObserver(reg prometheus.Registerer) *CallObserver {
	factory := promauto.With(reg)
	return &CallObserver{
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: callSubsystem,
				Name:      "duration_seconds",
				Help:      "Time from submission to completion",
				Buckets:   prometheus.ExponentialBuckets(50e-6, 4, 10),
			},
			[]string{"op"},
		),
		calls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: callSubsystem,
				Name:      "total",
				Help:      "Completed calls by result code",
			},
			[]string{"op", "code"},
		),
	}
}

// Observe records one call of op that ended with err after d.
func (o *CallObserver) Observe(op dispatch.Op, err error, d time.Duration) {
	o.latency.WithLabelValues(op.String()).Observe(d.Seconds())
	o.calls.WithLabelValues(op.String(), strconv.Itoa(int(dispatch.CodeOf(err)))).Inc()
}
