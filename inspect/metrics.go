package inspect

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	fiber "github.com/pmndrs/react-three-fiber-sub004"
)

const namespace = "fiber"

// Metrics exports committed snapshot figures as Prometheus collectors.
type Metrics struct {
	Instances     prometheus.Gauge
	Subscriptions prometheus.Gauge
	Suspended     prometheus.Gauge
	Roots         prometheus.Gauge
	Ticks         prometheus.Counter
	Frames        *prometheus.GaugeVec
	Hovered       *prometheus.GaugeVec

	mu       sync.Mutex
	lastTick uint64
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Instances: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "graph", Name: "instances",
			Help: "Live instances across all roots.",
		}),
		Subscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "scheduler", Name: "subscriptions",
			Help: "Registered frame subscriptions.",
		}),
		Suspended: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "graph", Name: "suspended",
			Help: "Subtrees waiting on a load.",
		}),
		Roots: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "graph", Name: "roots",
			Help: "Live root stores, portals included.",
		}),
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "scheduler", Name: "ticks_total",
			Help: "Scheduler ticks observed.",
		}),
		Frames: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "root", Name: "frames",
			Help: "Frames run by a root.",
		}, []string{"root"}),
		Hovered: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "events", Name: "hovered",
			Help: "Instances hovered on a root.",
		}, []string{"root"}),
	}
	reg.MustRegister(m.Instances, m.Subscriptions, m.Suspended, m.Roots, m.Ticks, m.Frames, m.Hovered)
	return m
}

// Observe updates the collectors from s. Roots missing from s are
// dropped from the per-root vectors. Safe for concurrent use.
func (m *Metrics) Observe(s *fiber.Snapshot) {
	if s == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Instances.Set(float64(s.Instances))
	m.Subscriptions.Set(float64(s.Subscriptions))
	m.Suspended.Set(float64(s.Suspended))
	m.Roots.Set(float64(len(s.Roots)))
	if s.Tick > m.lastTick {
		m.Ticks.Add(float64(s.Tick - m.lastTick))
		m.lastTick = s.Tick
	}
	m.Frames.Reset()
	m.Hovered.Reset()
	for _, r := range s.Roots {
		label := strconv.FormatUint(uint64(r.ID), 10)
		m.Frames.WithLabelValues(label).Set(float64(r.Frame))
		m.Hovered.WithLabelValues(label).Set(float64(r.Hovered))
	}
}
