package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const checkTimeout = 2 * time.Second

// Pinger is satisfied by *pgxpool.Pool and the in-memory user store.
type Pinger interface {
	Ping(ctx context.Context) error
}

type CheckResult struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

type HealthResult struct {
	Status string                 `json:"status"`
	Checks map[string]CheckResult `json:"checks,omitempty"`
}

// Checker pings named dependencies for the readiness probe and mirrors
// each result into the auth_health_check_up gauge.
type Checker struct {
	deps   map[string]Pinger
	logger *slog.Logger
	gauge  *prometheus.GaugeVec
}

func NewChecker(deps map[string]Pinger, logger *slog.Logger, reg prometheus.Registerer) *Checker {
	gauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "auth",
		Name:      "health_check_up",
		Help:      "Whether a dependency is reachable. 1 = up, 0 = down.",
	}, []string{"dependency"})
	reg.MustRegister(gauge)

	return &Checker{
		deps:   deps,
		logger: logger.With("component", "health"),
		gauge:  gauge,
	}
}

// Liveness never touches dependencies.
func (c *Checker) Liveness(_ context.Context) HealthResult {
	return HealthResult{Status: "up"}
}

// Readiness pings all dependencies in parallel; one failure marks the
// whole result down.
func (c *Checker) Readiness(ctx context.Context) HealthResult {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		result = HealthResult{Status: "up", Checks: make(map[string]CheckResult, len(c.deps))}
	)
	for name, dep := range c.deps {
		wg.Add(1)
		go func() {
			defer wg.Done()
			check := c.ping(ctx, name, dep)

			mu.Lock()
			defer mu.Unlock()
			result.Checks[name] = check
			if check.Status != "up" {
				result.Status = "down"
			}
		}()
	}
	wg.Wait()

	return result
}

func (c *Checker) ping(ctx context.Context, name string, dep Pinger) CheckResult {
	start := time.Now()
	err := dep.Ping(ctx)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		c.logger.WarnContext(ctx, "health check failed", "dependency", name, "error", err)
		c.gauge.WithLabelValues(name).Set(0)
		return CheckResult{Status: "down", LatencyMS: latency, Error: err.Error()}
	}
	c.gauge.WithLabelValues(name).Set(1)
	return CheckResult{Status: "up", LatencyMS: latency}
}

// WriteJSON renders r, with 503 when it is down.
func WriteJSON(w http.ResponseWriter, r HealthResult) {
	w.Header().Set("Content-Type", "application/json")
	if r.Status != "up" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(r)
}
