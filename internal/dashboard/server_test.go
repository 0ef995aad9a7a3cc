package dashboard

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"authwatchd/internal/config"
	"authwatchd/internal/monitor"
	"authwatchd/internal/types"
)

type noRunner struct{}

func (noRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	return "", nil
}
func (noRunner) Available(name string) bool { return false }

func newTestServer(t *testing.T) *Server {
	t.Helper()

	path := filepath.Join(t.TempDir(), "auth.log")
	line := "Jun 26 09:30:01 host sshd[111]: Accepted password for root from 10.0.0.5 port 22 ssh2\n"
	if err := os.WriteFile(path, []byte(line), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg := config.Default()
	cfg.Input.LogFile = path
	mon, err := monitor.New(cfg, noRunner{})
	if err != nil {
		t.Fatalf("monitor.New: %v", err)
	}
	mon.Poll(context.Background())

	return NewServer(mon, nil, ":0")
}

func TestServer_EventsEndpoint(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/v1/events?limit=10", nil)
	rec := httptest.NewRecorder()
	s.handleEvents(rec, req)

	if rec.Code != 200 {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var events []types.LogEvent
	if err := json.Unmarshal(rec.Body.Bytes(), &events); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(events) != 1 || events[0].Source != "sshd" {
		t.Errorf("Unexpected events payload: %+v", events)
	}
}

func TestServer_CountsEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.handleCounts(rec, httptest.NewRequest("GET", "/api/v1/counts", nil))

	var counts map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &counts); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if counts["ssh_login"] != 1 {
		t.Errorf("Expected 1 ssh_login, got %d", counts["ssh_login"])
	}
}

func TestServer_SummaryEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.handleSummary(rec, httptest.NewRequest("GET", "/api/v1/summary", nil))

	var sum types.Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &sum); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sum.Status != "OK" {
		t.Errorf("Expected OK status, got %s", sum.Status)
	}
}

func TestServer_TailEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.handleTail(rec, httptest.NewRequest("GET", "/api/v1/tail?limit=5", nil))

	var lines []string
	if err := json.Unmarshal(rec.Body.Bytes(), &lines); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(lines) != 1 {
		t.Errorf("Expected 1 raw line, got %d", len(lines))
	}
}

func TestServer_HistoryDisabled(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.handleHistory(rec, httptest.NewRequest("GET", "/api/v1/history", nil))

	if rec.Code != 404 {
		t.Errorf("Expected 404 when history disabled, got %d", rec.Code)
	}
}
