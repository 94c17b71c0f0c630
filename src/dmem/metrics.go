package dmem

import "github.com/prometheus/client_golang/prometheus"

// poolMetrics mirrors the four counters Report exposes as Prometheus
// gauges, so the same numbers read()-able via ReadReport can be scraped.
type poolMetrics struct {
	freeBytes   prometheus.Gauge
	maxUsage    prometheus.Gauge
	initialFree prometheus.Gauge
	usedCount   prometheus.Gauge
}

func newPoolMetrics(namespace, subsystem string) *poolMetrics {
	return &poolMetrics{
		freeBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "free_bytes",
			Help:      "Bytes currently free across all free blocks in the pool.",
		}),
		maxUsage: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "max_usage_bytes",
			Help:      "High-water mark of bytes used (including headers) since the pool was initialized.",
		}),
		initialFree: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "initial_free_bytes",
			Help:      "Bytes free immediately after initialization.",
		}),
		usedCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "used_block_count",
			Help:      "Number of blocks currently marked used.",
		}),
	}
}

func (m *poolMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.freeBytes, m.maxUsage, m.initialFree, m.usedCount}
}

func (m *poolMetrics) refresh(r Report) {
	m.freeBytes.Set(float64(r.FreeBytes))
	m.maxUsage.Set(float64(r.MaxUsage))
	m.initialFree.Set(float64(r.InitialFree))
	m.usedCount.Set(float64(r.UsedCount))
}

// EnableMetrics registers this pool's gauges with reg exactly once,
// guarded the way buildbarn's partitioningBlockAllocator guards its
// prometheus.MustRegister calls with a sync.Once — except here the guard
// is scoped per Pool instance (this core is parameterized by handle, not
// a single package-wide singleton) and a failed Register is returned
// rather than panicking.
func (p *Pool) EnableMetrics(reg prometheus.Registerer, namespace, subsystem string) error {
	var regErr error
	p.metricsOnce.Do(func() {
		m := newPoolMetrics(namespace, subsystem)
		for _, c := range m.collectors() {
			if err := reg.Register(c); err != nil {
				regErr = err
				return
			}
		}
		p.metrics = m
	})
	return regErr
}
