package detect

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"authwatchd/internal/types"
)

// Config holds the detection thresholds and windows. Zero values are
// replaced with the defaults in NewEngine.
type Config struct {
	FailedLoginThreshold int
	FailedLoginWindow    time.Duration
	SudoThreshold        int
	SudoCheckWindow      time.Duration
	SudoRetentionWindow  time.Duration
	DedupeWindow         time.Duration
}

func (c *Config) applyDefaults() {
	if c.FailedLoginThreshold == 0 {
		c.FailedLoginThreshold = 5
	}
	if c.FailedLoginWindow == 0 {
		c.FailedLoginWindow = 300 * time.Second
	}
	if c.SudoThreshold == 0 {
		c.SudoThreshold = 10
	}
	if c.SudoCheckWindow == 0 {
		c.SudoCheckWindow = 300 * time.Second
	}
	if c.SudoRetentionWindow == 0 {
		c.SudoRetentionWindow = 3600 * time.Second
	}
	if c.DedupeWindow == 0 {
		c.DedupeWindow = 300 * time.Second
	}
}

// sudoRecord is one tracked sudo invocation
type sudoRecord struct {
	ts       time.Time
	username string
	command  string
}

// Engine is the stateful sliding-window detector. It tracks failed-login
// timestamps per source IP and sudo invocations per user, raises
// deduplicated alerts when thresholds are crossed, and expires stale state
// on every sweep. All state is owned by one monitor instance and resets on
// restart.
type Engine struct {
	mu  sync.Mutex
	cfg Config

	failedLogins map[string][]time.Time
	authEvents   []types.FailedLogin
	sudoEvents   []sudoRecord
	alerts       []types.SecurityAlert

	reIP       *regexp.Regexp
	reUser     *regexp.Regexp
	reSudoUser *regexp.Regexp
	reCommand  *regexp.Regexp

	now func() time.Time
}

// NewEngine creates a detection engine with the given thresholds.
func NewEngine(cfg Config) *Engine {
	cfg.applyDefaults()
	return &Engine{
		cfg:          cfg,
		failedLogins: make(map[string][]time.Time),
		reIP:         regexp.MustCompile(`from\s+(\d+\.\d+\.\d+\.\d+)`),
		reUser:       regexp.MustCompile(`user\s+(\S+)`),
		reSudoUser:   regexp.MustCompile(`sudo(?:\[\d+\])?:\s+(\S+)`),
		reCommand:    regexp.MustCompile(`COMMAND=(.+)$`),
		now:          time.Now,
	}
}

// Process inspects one parsed event and records failed logins and sudo
// invocations. The two checks are independent: one line can feed both
// trackers. Alerts are raised by Sweep, not here.
func (e *Engine) Process(evt *types.LogEvent) {
	if evt == nil {
		return
	}
	line := evt.RawLine

	e.mu.Lock()
	defer e.mu.Unlock()

	if strings.Contains(line, "Failed password") || strings.Contains(line, "authentication failure") {
		ip := "unknown"
		if m := e.reIP.FindStringSubmatch(line); m != nil {
			ip = m[1]
		}
		username := "unknown"
		if m := e.reUser.FindStringSubmatch(line); m != nil {
			username = m[1]
		}

		e.failedLogins[ip] = append(e.failedLogins[ip], evt.Timestamp)
		e.authEvents = append(e.authEvents, types.FailedLogin{
			Timestamp: evt.Timestamp,
			SourceIP:  ip,
			Username:  username,
			Message:   fmt.Sprintf("Failed login for '%s' from %s", username, ip),
		})
	}

	if strings.Contains(line, "sudo") && strings.Contains(line, "COMMAND=") {
		username := "unknown"
		if m := e.reSudoUser.FindStringSubmatch(line); m != nil {
			username = m[1]
		}
		command := "unknown"
		if m := e.reCommand.FindStringSubmatch(line); m != nil {
			command = m[1]
		}

		e.sudoEvents = append(e.sudoEvents, sudoRecord{
			ts:       evt.Timestamp,
			username: username,
			command:  command,
		})
	}
}

// Sweep prunes state outside the tracking windows and evaluates the
// threshold detectors. Call once per polling tick.
func (e *Engine) Sweep() {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	e.prune(now)
	e.checkBruteForce(now)
	e.checkSudoAbuse(now)
}

// prune drops all state older than its window. Caller must hold the lock.
func (e *Engine) prune(now time.Time) {
	for ip, stamps := range e.failedLogins {
		kept := stamps[:0]
		for _, t := range stamps {
			if now.Sub(t) < e.cfg.FailedLoginWindow {
				kept = append(kept, t)
			}
		}
		if len(kept) == 0 {
			delete(e.failedLogins, ip)
		} else {
			e.failedLogins[ip] = kept
		}
	}

	authCutoff := now.Add(-e.cfg.FailedLoginWindow)
	kept := e.authEvents[:0]
	for _, ev := range e.authEvents {
		if ev.Timestamp.After(authCutoff) {
			kept = append(kept, ev)
		}
	}
	e.authEvents = kept

	sudoCutoff := now.Add(-e.cfg.SudoRetentionWindow)
	keptSudo := e.sudoEvents[:0]
	for _, ev := range e.sudoEvents {
		if ev.ts.After(sudoCutoff) {
			keptSudo = append(keptSudo, ev)
		}
	}
	e.sudoEvents = keptSudo

	// Alert retention is the longer horizon; dedupe uses the shorter one.
	retention := e.cfg.FailedLoginWindow
	if e.cfg.SudoRetentionWindow > retention {
		retention = e.cfg.SudoRetentionWindow
	}
	alertCutoff := now.Add(-retention)
	keptAlerts := e.alerts[:0]
	for _, a := range e.alerts {
		if a.Timestamp.After(alertCutoff) {
			keptAlerts = append(keptAlerts, a)
		}
	}
	e.alerts = keptAlerts
}

func (e *Engine) checkBruteForce(now time.Time) {
	for ip, stamps := range e.failedLogins {
		if len(stamps) < e.cfg.FailedLoginThreshold {
			continue
		}
		if e.alertExists(types.AlertBruteForce, ip, now) {
			continue
		}
		e.alerts = append(e.alerts, types.SecurityAlert{
			ID:        uuid.NewString(),
			Timestamp: now,
			Type:      types.AlertBruteForce,
			Key:       ip,
			Count:     len(stamps),
			Severity:  types.AlertHigh,
			Message:   fmt.Sprintf("Potential brute force from %s: %d failed logins", ip, len(stamps)),
		})
	}
}

func (e *Engine) checkSudoAbuse(now time.Time) {
	// The per-user check only runs once total tracked sudo activity is
	// non-trivial; below the gate no user is evaluated at all.
	if len(e.sudoEvents) <= e.cfg.SudoThreshold {
		return
	}

	byUser := make(map[string][]time.Time)
	for _, ev := range e.sudoEvents {
		byUser[ev.username] = append(byUser[ev.username], ev.ts)
	}

	for username, stamps := range byUser {
		recent := 0
		for _, t := range stamps {
			if now.Sub(t) < e.cfg.SudoCheckWindow {
				recent++
			}
		}
		if recent < e.cfg.SudoThreshold {
			continue
		}
		if e.alertExists(types.AlertSudoAbuse, username, now) {
			continue
		}
		e.alerts = append(e.alerts, types.SecurityAlert{
			ID:        uuid.NewString(),
			Timestamp: now,
			Type:      types.AlertSudoAbuse,
			Key:       username,
			Count:     recent,
			Severity:  types.AlertMedium,
			Message: fmt.Sprintf("Unusual sudo activity by %s: %d commands in %d min",
				username, recent, int(e.cfg.SudoCheckWindow.Minutes())),
		})
	}
}

// alertExists reports whether an equivalent alert was raised within the
// dedupe window. There is no stored quiet/alerting flag: the cooldown is
// re-derived from the alert's own timestamp on every sweep.
func (e *Engine) alertExists(typ types.AlertType, key string, now time.Time) bool {
	for _, a := range e.alerts {
		if a.Type == typ && a.Key == key && now.Sub(a.Timestamp) < e.cfg.DedupeWindow {
			return true
		}
	}
	return false
}

// ActiveAlerts returns the retained alerts ordered by severity rank, then
// newest first within equal severity.
func (e *Engine) ActiveAlerts() []types.SecurityAlert {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]types.SecurityAlert, len(e.alerts))
	copy(out, e.alerts)

	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].Severity.Rank(), out[j].Severity.Rank()
		if ri != rj {
			return ri < rj
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// RecentFailedLogins returns the tracked failed-login attempts, newest first.
func (e *Engine) RecentFailedLogins() []types.FailedLogin {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]types.FailedLogin, len(e.authEvents))
	copy(out, e.authEvents)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// RecentSudoEvents returns the tracked sudo executions, newest first.
func (e *Engine) RecentSudoEvents() []types.SudoEvent {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]types.SudoEvent, 0, len(e.sudoEvents))
	for _, ev := range e.sudoEvents {
		out = append(out, types.SudoEvent{
			Timestamp: ev.ts,
			Username:  ev.username,
			Command:   ev.command,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// Summary returns the current security status roll-up.
func (e *Engine) Summary() types.Summary {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := types.Summary{
		AlertCount:   len(e.alerts),
		FailedLogins: len(e.authEvents),
		SudoEvents:   len(e.sudoEvents),
		Status:       "OK",
	}
	for _, a := range e.alerts {
		if a.Severity == types.AlertHigh {
			s.Status = "ALERT"
			return s
		}
	}
	if len(e.alerts) > 0 {
		s.Status = "WARNING"
	}
	return s
}
