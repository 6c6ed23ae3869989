// Package health runs named component checks and serves their combined
// status over HTTP.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"grimm.is/l2bridge/internal/clock"
)

// Status represents the health status of a component.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// DefaultTTL is how long a report is reused before checks run again.
const DefaultTTL = 5 * time.Second

// Check represents a single health check.
type Check struct {
	Name        string        `json:"name"`
	Status      Status        `json:"status"`
	Message     string        `json:"message,omitempty"`
	LastChecked time.Time     `json:"last_checked"`
	Duration    time.Duration `json:"duration_ms"`
}

// Report represents the overall health report.
type Report struct {
	Status    Status           `json:"status"`
	Checks    map[string]Check `json:"checks"`
	Timestamp time.Time        `json:"timestamp"`
}

// CheckFunc is a function that performs a health check.
type CheckFunc func(ctx context.Context) Check

// Checker performs health checks.
type Checker struct {
	mu     sync.RWMutex
	checks map[string]CheckFunc
	cache  *Report
	ttl    time.Duration
	clock  clock.Clock
}

// NewChecker creates a checker with no checks registered.
func NewChecker(clk clock.Clock) *Checker {
	return &Checker{
		checks: make(map[string]CheckFunc),
		ttl:    DefaultTTL,
		clock:  clock.OrReal(clk),
	}
}

// Register adds a health check.
func (c *Checker) Register(name string, fn CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = fn
	c.cache = nil
}

// Check runs all health checks and returns a report. The worst check
// status becomes the report status.
func (c *Checker) Check(ctx context.Context) Report {
	now := c.clock.Now()

	c.mu.RLock()
	if c.cache != nil && now.Sub(c.cache.Timestamp) < c.ttl {
		report := *c.cache
		c.mu.RUnlock()
		return report
	}
	checkFuncs := make(map[string]CheckFunc, len(c.checks))
	for name, fn := range c.checks {
		checkFuncs[name] = fn
	}
	c.mu.RUnlock()

	checks := make(map[string]Check, len(checkFuncs))
	overallStatus := StatusHealthy

	var wg sync.WaitGroup
	var mu sync.Mutex
	for name, fn := range checkFuncs {
		wg.Add(1)
		go func(name string, fn CheckFunc) {
			defer wg.Done()
			start := c.clock.Now()
			check := fn(ctx)
			check.Name = name
			check.LastChecked = start
			check.Duration = c.clock.Since(start)

			mu.Lock()
			checks[name] = check
			if check.Status == StatusUnhealthy {
				overallStatus = StatusUnhealthy
			} else if check.Status == StatusDegraded && overallStatus != StatusUnhealthy {
				overallStatus = StatusDegraded
			}
			mu.Unlock()
		}(name, fn)
	}
	wg.Wait()

	report := Report{
		Status:    overallStatus,
		Checks:    checks,
		Timestamp: now,
	}

	c.mu.Lock()
	c.cache = &report
	c.mu.Unlock()
	return report
}

// Handler returns an HTTP handler serving the JSON report.
func (c *Checker) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		report := c.Check(ctx)

		w.Header().Set("Content-Type", "application/json")
		if report.Status == StatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		json.NewEncoder(w).Encode(report)
	}
}

// LivenessHandler returns a simple liveness probe handler.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}
}

// ReadinessHandler returns a readiness probe handler.
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if c.Check(ctx).Status == StatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("NOT READY"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("READY"))
	}
}

// Mount registers the liveness, readiness and report handlers on mux.
func (c *Checker) Mount(mux *http.ServeMux) {
	mux.Handle("/healthz", c.Handler())
	mux.Handle("/livez", LivenessHandler())
	mux.Handle("/readyz", c.ReadinessHandler())
}

// Healthy returns a passing check.
func Healthy(format string, args ...any) Check {
	return Check{Status: StatusHealthy, Message: fmt.Sprintf(format, args...)}
}

// Degraded returns a degraded check.
func Degraded(format string, args ...any) Check {
	return Check{Status: StatusDegraded, Message: fmt.Sprintf(format, args...)}
}

// Unhealthy returns a failing check.
func Unhealthy(format string, args ...any) Check {
	return Check{Status: StatusUnhealthy, Message: fmt.Sprintf(format, args...)}
}

// CheckDir reports whether dir is writable. A failure is degraded.
func CheckDir(dir string) CheckFunc {
	return func(ctx context.Context) Check {
		f, err := os.CreateTemp(dir, ".health_check")
		if err != nil {
			return Degraded("%s not writable: %v", dir, err)
		}
		name := f.Name()
		f.Close()
		os.Remove(name)
		return Healthy("%s writable", filepath.Clean(dir))
	}
}
