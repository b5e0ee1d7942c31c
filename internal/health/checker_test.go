package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ErlanBelekov/user-auth/internal/health"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

var (
	up   = pingerFunc(func(context.Context) error { return nil })
	down = pingerFunc(func(context.Context) error { return errors.New("connection refused") })
)

func newTestChecker(deps map[string]health.Pinger) (*health.Checker, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return health.NewChecker(deps, logger, reg), reg
}

func TestLiveness_IgnoresDependencies(t *testing.T) {
	c, _ := newTestChecker(map[string]health.Pinger{"postgres": down})

	result := c.Liveness(context.Background())
	if result.Status != "up" {
		t.Fatalf("expected status up, got %s", result.Status)
	}
	if result.Checks != nil {
		t.Fatalf("expected no checks, got %v", result.Checks)
	}
}

func TestReadiness_AllUp(t *testing.T) {
	c, reg := newTestChecker(map[string]health.Pinger{"postgres": up, "users": up})

	result := c.Readiness(context.Background())
	if result.Status != "up" {
		t.Fatalf("expected status up, got %s", result.Status)
	}
	if len(result.Checks) != 2 {
		t.Fatalf("checks = %v, want 2 entries", result.Checks)
	}

	want := `
# HELP auth_health_check_up Whether a dependency is reachable. 1 = up, 0 = down.
# TYPE auth_health_check_up gauge
auth_health_check_up{dependency="postgres"} 1
auth_health_check_up{dependency="users"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(want), "auth_health_check_up"); err != nil {
		t.Error(err)
	}
}

func TestReadiness_OneDownMarksResultDown(t *testing.T) {
	c, reg := newTestChecker(map[string]health.Pinger{"postgres": down, "users": up})

	result := c.Readiness(context.Background())
	if result.Status != "down" {
		t.Fatalf("expected status down, got %s", result.Status)
	}
	pg := result.Checks["postgres"]
	if pg.Status != "down" || pg.Error == "" {
		t.Fatalf("postgres check = %+v, want down with error", pg)
	}
	if result.Checks["users"].Status != "up" {
		t.Errorf("users check = %+v, want up", result.Checks["users"])
	}

	want := `
# HELP auth_health_check_up Whether a dependency is reachable. 1 = up, 0 = down.
# TYPE auth_health_check_up gauge
auth_health_check_up{dependency="postgres"} 0
auth_health_check_up{dependency="users"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(want), "auth_health_check_up"); err != nil {
		t.Error(err)
	}
}

func TestReadiness_PingSeesDeadline(t *testing.T) {
	var hasDeadline bool
	c, _ := newTestChecker(map[string]health.Pinger{"postgres": pingerFunc(func(ctx context.Context) error {
		_, hasDeadline = ctx.Deadline()
		return nil
	})})

	c.Readiness(context.Background())
	if !hasDeadline {
		t.Error("ping context has no deadline")
	}
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	health.WriteJSON(w, health.HealthResult{Status: "down"})
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}

	w = httptest.NewRecorder()
	health.WriteJSON(w, health.HealthResult{Status: "up"})
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	var got health.HealthResult
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil || got.Status != "up" {
		t.Errorf("body = %+v, err = %v", got, err)
	}
}
