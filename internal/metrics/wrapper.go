package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Interfaces for metrics to avoid circular imports
type MetricsCounter interface {
	Inc()
}

type MetricsGauge interface {
	Set(float64)
	Add(float64)
}

type MetricsHistogram interface {
	Observe(float64)
}

// MetricsWrapper hands out narrow views of Metrics to the hub and loops.
// A nil wrapper is valid and returns no-op instruments.
type MetricsWrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *MetricsWrapper {
	return &MetricsWrapper{m: m}
}

func (w *MetricsWrapper) ConnectionsActive() MetricsGauge {
	if w == nil {
		return noop{}
	}
	return &GaugeWrapper{w.m.ConnectionsActive}
}

func (w *MetricsWrapper) ConnectionsTotal() MetricsCounter {
	if w == nil {
		return noop{}
	}
	return &CounterWrapper{w.m.ConnectionsTotal}
}

func (w *MetricsWrapper) MessagesSent() MetricsCounter {
	if w == nil {
		return noop{}
	}
	return &CounterWrapper{w.m.MessagesSent}
}

func (w *MetricsWrapper) MessagesFailed() MetricsCounter {
	if w == nil {
		return noop{}
	}
	return &CounterWrapper{w.m.MessagesFailed}
}

func (w *MetricsWrapper) BroadcastDuration() MetricsHistogram {
	if w == nil {
		return noop{}
	}
	return &HistogramWrapper{w.m.BroadcastDuration}
}

func (w *MetricsWrapper) EventPublished(eventType string) MetricsCounter {
	if w == nil {
		return noop{}
	}
	return &CounterWrapper{w.m.EventsPublished.WithLabelValues(eventType)}
}

func (w *MetricsWrapper) ForwardErrors() MetricsCounter {
	if w == nil {
		return noop{}
	}
	return &CounterWrapper{w.m.ForwardErrors}
}

func (w *MetricsWrapper) RefreshTicks() MetricsCounter {
	if w == nil {
		return noop{}
	}
	return &CounterWrapper{w.m.RefreshTicks}
}

func (w *MetricsWrapper) RefreshErrors() MetricsCounter {
	if w == nil {
		return noop{}
	}
	return &CounterWrapper{w.m.RefreshErrors}
}

func (w *MetricsWrapper) RefreshDuration() MetricsHistogram {
	if w == nil {
		return noop{}
	}
	return &HistogramWrapper{w.m.RefreshDuration}
}

// ObserveUpstream records a collaborator call; see Metrics.ObserveUpstream.
func (w *MetricsWrapper) ObserveUpstream(target string, seconds float64, err error) {
	if w == nil {
		return
	}
	w.m.ObserveUpstream(target, seconds, err)
}

// ObserveHTTP records one API request under its route template. Server
// errors also count towards ErrorsTotal.
func (w *MetricsWrapper) ObserveHTTP(route, method string, code int, seconds float64) {
	if w == nil {
		return
	}
	w.m.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	w.m.HTTPDuration.WithLabelValues(route).Observe(seconds)
	if code >= 500 {
		w.m.ErrorsTotal.Inc()
	}
}

type CounterWrapper struct {
	c prometheus.Counter
}

func (cw *CounterWrapper) Inc() {
	cw.c.Inc()
}

type GaugeWrapper struct {
	g prometheus.Gauge
}

func (gw *GaugeWrapper) Set(v float64) {
	gw.g.Set(v)
}

func (gw *GaugeWrapper) Add(v float64) {
	gw.g.Add(v)
}

type HistogramWrapper struct {
	h prometheus.Histogram
}

func (hw *HistogramWrapper) Observe(v float64) {
	hw.h.Observe(v)
}

type noop struct{}

func (noop) Inc()            {}
func (noop) Set(float64)     {}
func (noop) Add(float64)     {}
func (noop) Observe(float64) {}
