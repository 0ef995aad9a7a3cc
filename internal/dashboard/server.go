package dashboard

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"authwatchd/internal/history"
	"authwatchd/internal/monitor"
)

// Server exposes the monitor's structured data as a JSON API. It renders
// nothing: presentation is a consumer concern.
type Server struct {
	mon     *monitor.Monitor
	hist    *history.Store // may be nil
	addr    string
	httpSrv *http.Server
}

// NewServer creates a dashboard API server. hist may be nil when alert
// history is disabled.
func NewServer(mon *monitor.Monitor, hist *history.Store, addr string) *Server {
	return &Server{
		mon:  mon,
		hist: hist,
		addr: addr,
	}
}

// Start serves the API until Shutdown is called. Blocks.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/events", s.handleEvents)
	mux.HandleFunc("/api/v1/alerts", s.handleAlerts)
	mux.HandleFunc("/api/v1/counts", s.handleCounts)
	mux.HandleFunc("/api/v1/logins", s.handleLogins)
	mux.HandleFunc("/api/v1/sudo", s.handleSudo)
	mux.HandleFunc("/api/v1/summary", s.handleSummary)
	mux.HandleFunc("/api/v1/tail", s.handleTail)
	mux.HandleFunc("/api/v1/history", s.handleHistory)

	s.httpSrv = &http.Server{Addr: s.addr, Handler: mux}
	log.Printf("[DASHBOARD] Starting on %s", s.addr)
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown() error {
	if s.httpSrv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpSrv.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func limitParam(r *http.Request, def int) int {
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.mon.RecentEvents(limitParam(r, 100)))
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.mon.ActiveAlerts())
}

func (s *Server) handleCounts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.mon.AlertCounts())
}

func (s *Server) handleLogins(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.mon.RecentFailedLogins())
}

func (s *Server) handleSudo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.mon.RecentSudoEvents())
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.mon.Summary())
}

func (s *Server) handleTail(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.mon.TailLines(r.Context(), limitParam(r, 10)))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.hist == nil {
		http.Error(w, "alert history disabled", http.StatusNotFound)
		return
	}
	alerts, err := s.hist.List(limitParam(r, 100))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, alerts)
}
