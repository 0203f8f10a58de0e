package observability

import (
	"context"
	"sort"
	"sync"
	"time"
)

// HealthStatus is the health of one component or the whole process.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthCheckResult is the outcome of a single check.
type HealthCheckResult struct {
	Name     string        `json:"name"`
	Status   HealthStatus  `json:"status"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// HealthChecker probes one component.
type HealthChecker func(ctx context.Context) HealthCheckResult

// OverallHealth aggregates every check.
type OverallHealth struct {
	Status    HealthStatus        `json:"status"`
	Timestamp time.Time           `json:"timestamp"`
	Checks    []HealthCheckResult `json:"checks"`
}

// HealthRegistry runs named health checks.
type HealthRegistry struct {
	mu       sync.RWMutex
	checkers map[string]HealthChecker
}

// NewHealthRegistry creates an empty registry.
func NewHealthRegistry() *HealthRegistry {
	return &HealthRegistry{checkers: make(map[string]HealthChecker)}
}

// Register adds or replaces a check.
func (r *HealthRegistry) Register(name string, checker HealthChecker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkers[name] = checker
}

// Check runs all checks concurrently and returns them sorted by name.
// The overall status is the worst individual status.
func (r *HealthRegistry) Check(ctx context.Context) OverallHealth {
	r.mu.RLock()
	names := make([]string, 0, len(r.checkers))
	for name := range r.checkers {
		names = append(names, name)
	}
	checkers := make([]HealthChecker, 0, len(names))
	sort.Strings(names)
	for _, name := range names {
		checkers = append(checkers, r.checkers[name])
	}
	r.mu.RUnlock()

	results := make([]HealthCheckResult, len(names))
	var wg sync.WaitGroup
	for i := range names {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			start := time.Now()
			res := checkers[i](ctx)
			res.Name = names[i]
			res.Duration = time.Since(start)
			results[i] = res
		}(i)
	}
	wg.Wait()

	overall := HealthStatusHealthy
	for _, res := range results {
		switch {
		case res.Status == HealthStatusUnhealthy:
			overall = HealthStatusUnhealthy
		case res.Status == HealthStatusDegraded && overall == HealthStatusHealthy:
			overall = HealthStatusDegraded
		}
	}

	return OverallHealth{Status: overall, Timestamp: time.Now(), Checks: results}
}

// PingChecker reports failing as the given status, healthy otherwise.
func PingChecker(ping func(ctx context.Context) error, failing HealthStatus) HealthChecker {
	return func(ctx context.Context) HealthCheckResult {
		if err := ping(ctx); err != nil {
			return HealthCheckResult{Status: failing, Message: err.Error()}
		}
		return HealthCheckResult{Status: HealthStatusHealthy}
	}
}
