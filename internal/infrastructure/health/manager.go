package health

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"trendgrid/internal/core"
)

// HealthManager aggregates health status from different components
type HealthManager struct {
	logger  core.ILogger
	mu      sync.RWMutex
	checks  map[string]func() error
	ready   atomic.Bool
	started time.Time
}

// NewHealthManager creates a new health manager
func NewHealthManager(logger core.ILogger) *HealthManager {
	hm := &HealthManager{
		checks:  make(map[string]func() error),
		started: time.Now(),
	}
	if logger != nil {
		hm.logger = logger.WithField("component", "health_manager")
	}
	return hm
}

// Register adds a new health check for a component
func (hm *HealthManager) Register(component string, check func() error) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.checks[component] = check
	if hm.logger != nil {
		hm.logger.Debug("Health check registered", "check", component)
	}
}

// GetStatus returns the current status of all registered components
func (hm *HealthManager) GetStatus() map[string]string {
	hm.mu.RLock()
	defer hm.mu.RUnlock()

	status := make(map[string]string, len(hm.checks))
	for component, check := range hm.checks {
		if err := check(); err != nil {
			status[component] = "Unhealthy: " + err.Error()
		} else {
			status[component] = "Healthy"
		}
	}
	return status
}

// IsHealthy returns true if all registered components are healthy
func (hm *HealthManager) IsHealthy() bool {
	hm.mu.RLock()
	defer hm.mu.RUnlock()

	for _, check := range hm.checks {
		if err := check(); err != nil {
			return false
		}
	}
	return true
}

// Components returns the registered component names in sorted order
func (hm *HealthManager) Components() []string {
	hm.mu.RLock()
	defer hm.mu.RUnlock()
	names := make([]string, 0, len(hm.checks))
	for name := range hm.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetReady marks the process as ready once startup checks have passed
func (hm *HealthManager) SetReady(ready bool) {
	hm.ready.Store(ready)
}

// Ready reports readiness: startup completed and every component healthy
func (hm *HealthManager) Ready() bool {
	return hm.ready.Load() && hm.IsHealthy()
}

// Uptime returns the time since the manager was created
func (hm *HealthManager) Uptime() time.Duration {
	return time.Since(hm.started)
}
