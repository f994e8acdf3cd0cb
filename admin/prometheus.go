package admin

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusRegistry publishes hooks as Prometheus gauge functions labeled
// with node and partition.
type PrometheusRegistry struct {
	reg prometheus.Registerer

	mu         sync.Mutex
	collectors map[HookID]prometheus.Collector
}

var _ Registry = (*PrometheusRegistry)(nil)

// NewPrometheusRegistry creates a registry publishing to reg.
// If reg is nil, prometheus.DefaultRegisterer is used.
func NewPrometheusRegistry(reg prometheus.Registerer) *PrometheusRegistry {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &PrometheusRegistry{
		reg:        reg,
		collectors: make(map[HookID]prometheus.Collector),
	}
}

// Register implements Registry.
func (r *PrometheusRegistry) Register(id HookID, h Hook) error {
	if h.Value == nil {
		return fmt.Errorf("admin: hook %s has no value function", id)
	}
	help := h.Help
	if help == "" {
		help = "Index hook " + id.Base
	}
	g := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: metricName(id.Base),
		Help: help,
		ConstLabels: prometheus.Labels{
			"node":      strconv.Itoa(id.Node),
			"partition": strconv.Itoa(id.Partition),
		},
	}, h.Value)

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.reg.Register(g); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			// Keep the existing collector so the duplicate can still be
			// unregistered by whoever tracks the id.
			if _, ok := r.collectors[id]; !ok {
				r.collectors[id] = are.ExistingCollector
			}
			return fmt.Errorf("%w: %s", ErrHookConflict, id)
		}
		return fmt.Errorf("admin: register %s: %w", id, err)
	}
	r.collectors[id] = g
	return nil
}

// Unregister implements Registry.
func (r *PrometheusRegistry) Unregister(id HookID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.collectors[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrHookNotFound, id)
	}
	delete(r.collectors, id)
	if !r.reg.Unregister(c) {
		return fmt.Errorf("%w: %s", ErrHookNotFound, id)
	}
	return nil
}
