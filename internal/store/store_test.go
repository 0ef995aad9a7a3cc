package store

import (
	"fmt"
	"testing"
	"time"

	"authwatchd/internal/parser"
	"authwatchd/internal/types"
)

func testPatterns(t *testing.T) []parser.Compiled {
	t.Helper()
	p, err := parser.New(types.DefaultPatterns())
	if err != nil {
		t.Fatalf("parser.New: %v", err)
	}
	return p.Patterns()
}

func TestStore_EvictionKeepsNewest(t *testing.T) {
	s := New(100, testPatterns(t))

	base := time.Date(2025, time.June, 26, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 150; i++ {
		s.Append(types.LogEvent{
			Timestamp: base.Add(time.Duration(i) * time.Second),
			Message:   fmt.Sprintf("event %d", i),
		})
	}

	if s.Len() != 100 {
		t.Fatalf("Expected 100 retained events, got %d", s.Len())
	}

	recent := s.Recent(100)
	if len(recent) != 100 {
		t.Fatalf("Expected 100 recent events, got %d", len(recent))
	}
	if recent[0].Message != "event 149" {
		t.Errorf("Expected newest first, got %q", recent[0].Message)
	}
	if recent[99].Message != "event 50" {
		t.Errorf("Expected oldest retained to be event 50, got %q", recent[99].Message)
	}
}

func TestStore_RecentTieBreakByInsertion(t *testing.T) {
	s := New(10, testPatterns(t))

	ts := time.Date(2025, time.June, 26, 9, 0, 0, 0, time.UTC)
	s.Append(types.LogEvent{Timestamp: ts, Message: "first"})
	s.Append(types.LogEvent{Timestamp: ts, Message: "second"})
	s.Append(types.LogEvent{Timestamp: ts.Add(time.Second), Message: "newer"})

	recent := s.Recent(3)
	if recent[0].Message != "newer" {
		t.Errorf("Expected newer first, got %q", recent[0].Message)
	}
	// Stable sort keeps insertion order for equal timestamps.
	if recent[1].Message != "first" || recent[2].Message != "second" {
		t.Errorf("Expected insertion order for ties, got %q then %q", recent[1].Message, recent[2].Message)
	}
}

func TestStore_AlertCounts(t *testing.T) {
	s := New(100, testPatterns(t))

	now := time.Now()
	s.Append(types.LogEvent{
		Timestamp: now,
		RawLine:   "Jun 26 09:30:01 host sudo[222]: alice : TTY=pts/0 ; COMMAND=/bin/ls",
		IsAlert:   true,
	})
	s.Append(types.LogEvent{
		Timestamp: now,
		RawLine:   "Jun 26 09:30:02 host systemd[1]: Started something benign.",
		IsAlert:   false,
	})

	counts := s.AlertCounts()
	if counts["sudo_usage"] != 1 {
		t.Errorf("Expected 1 sudo_usage, got %d", counts["sudo_usage"])
	}
	if counts["ssh_login"] != 0 {
		t.Errorf("Expected 0 ssh_login, got %d", counts["ssh_login"])
	}
}

// A line matching several patterns is counted once per matching pattern,
// even though parse-time classification stops at the first match. The
// recount semantics are load-bearing for the displayed totals.
func TestStore_AlertCountsCountAllMatchingPatterns(t *testing.T) {
	s := New(100, testPatterns(t))

	// Matches failed_login and suspicious_ip (it contains an IPv4 address).
	s.Append(types.LogEvent{
		Timestamp: time.Now(),
		RawLine:   "Jun 26 09:30:01 host sshd[111]: Failed password for bob from 10.0.0.5 port 22 ssh2",
		IsAlert:   true,
	})

	counts := s.AlertCounts()
	if counts["failed_login"] != 1 {
		t.Errorf("Expected 1 failed_login, got %d", counts["failed_login"])
	}
	if counts["suspicious_ip"] != 1 {
		t.Errorf("Expected the same event counted under suspicious_ip, got %d", counts["suspicious_ip"])
	}
}

func TestStore_AlertCountsSkipNonAlerts(t *testing.T) {
	s := New(100, testPatterns(t))

	// IsAlert false: recount must skip it even though the line would match.
	s.Append(types.LogEvent{
		Timestamp: time.Now(),
		RawLine:   "Jun 26 09:30:01 host sshd[111]: Failed password for bob from 10.0.0.5",
		IsAlert:   false,
	})

	counts := s.AlertCounts()
	if counts["failed_login"] != 0 {
		t.Errorf("Expected non-alert events to be skipped, got %d", counts["failed_login"])
	}
}
