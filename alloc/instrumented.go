package alloc

import (
	"unsafe"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wippyai/rc"
)

// Instrumented wraps an allocator with prometheus metrics, labelled with the
// allocator name:
//
//	rc_alloc_blocks_total    blocks allocated
//	rc_alloc_frees_total     blocks freed
//	rc_alloc_failures_total  failed allocations
//	rc_alloc_live_bytes      bytes currently allocated
type Instrumented struct {
	inner     rc.Allocator
	allocs    prometheus.Counter
	frees     prometheus.Counter
	failures  prometheus.Counter
	liveBytes prometheus.Gauge
}

// NewInstrumented wraps inner and registers its metrics with reg.
func NewInstrumented(inner rc.Allocator, reg prometheus.Registerer, name string) (*Instrumented, error) {
	labels := prometheus.Labels{"allocator": name}
	m := &Instrumented{
		inner: inner,
		allocs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "rc",
			Subsystem:   "alloc",
			Name:        "blocks_total",
			Help:        "Control blocks allocated.",
			ConstLabels: labels,
		}),
		frees: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "rc",
			Subsystem:   "alloc",
			Name:        "frees_total",
			Help:        "Control blocks freed.",
			ConstLabels: labels,
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "rc",
			Subsystem:   "alloc",
			Name:        "failures_total",
			Help:        "Allocations the underlying allocator refused.",
			ConstLabels: labels,
		}),
		liveBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "rc",
			Subsystem:   "alloc",
			Name:        "live_bytes",
			Help:        "Bytes held by live control blocks.",
			ConstLabels: labels,
		}),
	}

	for _, c := range []prometheus.Collector{m.allocs, m.frees, m.failures, m.liveBytes} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Alloc allocates from the wrapped allocator.
func (m *Instrumented) Alloc(l rc.Layout) (unsafe.Pointer, error) {
	p, err := m.inner.Alloc(l)
	if err != nil {
		m.failures.Inc()
		return nil, err
	}
	m.allocs.Inc()
	m.liveBytes.Add(float64(l.Size))
	return p, nil
}

// Free frees through the wrapped allocator.
func (m *Instrumented) Free(p unsafe.Pointer, l rc.Layout) {
	m.frees.Inc()
	m.liveBytes.Sub(float64(l.Size))
	m.inner.Free(p, l)
}
