// Package health aggregates liveness probes for every dependency the
// consultation pipeline sits on: the external AI services, the feedback
// database and the Redis cache.
package health

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Probe checks one dependency. A nil error means the dependency is usable.
type Probe func(ctx context.Context) error

// Status values reported per component and overall.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// ComponentHealth is one dependency's probe result.
type ComponentHealth struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms"`
	Critical  bool   `json:"critical"`
}

// Report is the aggregate health view. Overall status is unhealthy when a
// critical component fails and degraded when only optional ones do; the
// pipeline keeps producing safe-template reports with the AI services down,
// so those are registered as non-critical.
type Report struct {
	Status     string                     `json:"status"`
	CheckedAt  time.Time                  `json:"checked_at"`
	Components map[string]ComponentHealth `json:"components"`
}

type probeEntry struct {
	name     string
	critical bool
	probe    Probe
}

// Checker runs registered probes concurrently with a per-probe timeout.
type Checker struct {
	logger  *logrus.Logger
	timeout time.Duration

	mu     sync.Mutex
	probes []probeEntry
}

// NewChecker creates a health checker. timeout bounds each probe.
func NewChecker(timeout time.Duration, logger *logrus.Logger) *Checker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Checker{
		logger:  logger,
		timeout: timeout,
	}
}

// Register adds a probe. Critical probes take the whole service unhealthy
// when they fail.
func (c *Checker) Register(name string, critical bool, probe Probe) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.probes = append(c.probes, probeEntry{name: name, critical: critical, probe: probe})
}

// Check runs all probes and aggregates the results.
func (c *Checker) Check(ctx context.Context) *Report {
	c.mu.Lock()
	probes := make([]probeEntry, len(c.probes))
	copy(probes, c.probes)
	c.mu.Unlock()

	report := &Report{
		Status:     StatusHealthy,
		CheckedAt:  time.Now().UTC(),
		Components: make(map[string]ComponentHealth, len(probes)),
	}

	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, entry := range probes {
		wg.Add(1)
		go func(entry probeEntry) {
			defer wg.Done()

			probeCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()

			start := time.Now()
			err := entry.probe(probeCtx)
			component := ComponentHealth{
				Status:    StatusHealthy,
				LatencyMs: time.Since(start).Milliseconds(),
				Critical:  entry.critical,
			}
			if err != nil {
				component.Status = StatusUnhealthy
				component.Error = err.Error()
				c.logger.WithError(err).WithField("component", entry.name).Warn("Health probe failed")
			}

			mu.Lock()
			report.Components[entry.name] = component
			mu.Unlock()
		}(entry)
	}
	wg.Wait()

	names := make([]string, 0, len(report.Components))
	for name := range report.Components {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		component := report.Components[name]
		if component.Status == StatusHealthy {
			continue
		}
		if component.Critical {
			report.Status = StatusUnhealthy
		} else if report.Status == StatusHealthy {
			report.Status = StatusDegraded
		}
	}

	return report
}
