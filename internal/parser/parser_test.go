package parser

import (
	"strings"
	"testing"
	"time"

	"authwatchd/internal/types"
)

func newTestParser(t *testing.T) *Parser {
	t.Helper()
	p, err := New(types.DefaultPatterns())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func TestParse_SyslogTimestamp(t *testing.T) {
	p := newTestParser(t)

	evt := p.Parse("Jun 26 09:30:01 host sshd[111]: Failed password for invalid user bob from 10.0.0.5 port 4444 ssh2")
	if evt == nil {
		t.Fatal("Expected event, got nil")
	}

	if evt.Timestamp.Month() != time.June || evt.Timestamp.Day() != 26 {
		t.Errorf("Expected Jun 26, got %v", evt.Timestamp)
	}
	if evt.Timestamp.Year() != time.Now().Year() {
		t.Errorf("Expected current year, got %d", evt.Timestamp.Year())
	}
	if evt.Timestamp.Hour() != 9 || evt.Timestamp.Minute() != 30 || evt.Timestamp.Second() != 1 {
		t.Errorf("Expected 09:30:01, got %v", evt.Timestamp)
	}
	if evt.Source != "sshd" {
		t.Errorf("Expected source sshd, got %s", evt.Source)
	}
	if !strings.HasPrefix(evt.Message, "host sshd[111]:") {
		t.Errorf("Expected timestamp stripped from message, got %q", evt.Message)
	}
	if !evt.IsAlert {
		t.Error("Expected failed password line to be an alert")
	}
	if evt.Severity != types.SeverityError {
		t.Errorf("Expected ERROR severity, got %s", evt.Severity)
	}
}

func TestParse_SudoLine(t *testing.T) {
	p := newTestParser(t)

	evt := p.Parse("2023-06-26T09:30:01 host sudo[222]: alice : COMMAND=/bin/ls")
	if evt == nil {
		t.Fatal("Expected event, got nil")
	}
	if evt.Source != "sudo" {
		t.Errorf("Expected source sudo, got %s", evt.Source)
	}
	if evt.Severity != types.SeverityWarning {
		t.Errorf("Expected WARNING severity for sudo pattern, got %s", evt.Severity)
	}
	if !evt.IsAlert {
		t.Error("Expected sudo line to be an alert")
	}
	if evt.Timestamp.Year() != 2023 {
		t.Errorf("Expected ISO timestamp year 2023, got %d", evt.Timestamp.Year())
	}
}

func TestParse_SpaceSeparatedTimestamp(t *testing.T) {
	p := newTestParser(t)

	evt := p.Parse("2023-06-26 09:30:01 myhost cron[99]: session opened for user root")
	if evt == nil {
		t.Fatal("Expected event, got nil")
	}
	if evt.Timestamp.Year() != 2023 || evt.Timestamp.Hour() != 9 {
		t.Errorf("Unexpected timestamp: %v", evt.Timestamp)
	}
	if evt.Source != "cron" {
		t.Errorf("Expected source cron, got %s", evt.Source)
	}
}

func TestParse_NoTimestampUsesIngestionTime(t *testing.T) {
	p := newTestParser(t)
	fixed := time.Date(2025, time.June, 26, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	line := "some daemon output without any timestamp at all"
	evt := p.Parse(line)
	if evt == nil {
		t.Fatal("Expected event, got nil")
	}
	if !evt.Timestamp.Equal(fixed) {
		t.Errorf("Expected ingestion time %v, got %v", fixed, evt.Timestamp)
	}
	if evt.Message != line {
		t.Errorf("Expected message to be the full line, got %q", evt.Message)
	}
	if evt.Source != "system" {
		t.Errorf("Expected default source system, got %s", evt.Source)
	}
}

func TestParse_ShortOrEmptyLines(t *testing.T) {
	p := newTestParser(t)

	for _, line := range []string{"", "short", "123456789"} {
		if evt := p.Parse(line); evt != nil {
			t.Errorf("Expected nil for %q, got %+v", line, evt)
		}
	}
}

func TestParse_SSHAcceptedClassification(t *testing.T) {
	p := newTestParser(t)

	evt := p.Parse("Jun 26 09:30:01 host sshd[111]: Accepted password for root from 10.0.0.5 port 22 ssh2")
	if evt == nil {
		t.Fatal("Expected event, got nil")
	}
	if !evt.IsAlert {
		t.Error("Expected sshd Accepted line to be an alert")
	}
	// ssh_login is not a sudo-named pattern, so severity stays ERROR.
	if evt.Severity != types.SeverityError {
		t.Errorf("Expected ERROR severity, got %s", evt.Severity)
	}
}

func TestParse_PlainLineIsInfo(t *testing.T) {
	p := newTestParser(t)

	evt := p.Parse("Jun 26 09:30:01 host systemd[1]: Started Daily apt upgrade timer.")
	if evt == nil {
		t.Fatal("Expected event, got nil")
	}
	if evt.IsAlert {
		t.Error("Expected benign line not to be an alert")
	}
	if evt.Severity != types.SeverityInfo {
		t.Errorf("Expected INFO severity, got %s", evt.Severity)
	}
}

func TestParse_NeverPanics(t *testing.T) {
	p := newTestParser(t)

	inputs := []string{
		"",
		strings.Repeat("x", 1<<20),
		"\x00\x01\x02 binary garbage \xff\xfe that is long enough",
		strings.Repeat("Jun 26 09:30:01 ", 1000),
		"Jun 99 99:99:99 weird but long enough line",
	}
	for _, line := range inputs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("Parse panicked on %q: %v", line[:min(len(line), 40)], r)
				}
			}()
			p.Parse(line)
		}()
	}
}

func TestNew_InvalidPattern(t *testing.T) {
	_, err := New([]types.Pattern{{Name: "bad", Regex: "(["}})
	if err == nil {
		t.Fatal("Expected error for invalid regex, got nil")
	}
}

func TestParse_FirstPatternWins(t *testing.T) {
	p := newTestParser(t)

	// Matches both failed_login and suspicious_ip; the declared order makes
	// failed_login win, which keeps severity ERROR rather than anything else.
	evt := p.Parse("Jun 26 09:30:01 host sshd[111]: Failed password for bob from 10.0.0.5")
	if evt == nil {
		t.Fatal("Expected event, got nil")
	}
	if !evt.IsAlert || evt.Severity != types.SeverityError {
		t.Errorf("Expected first-match classification, got alert=%v severity=%s", evt.IsAlert, evt.Severity)
	}
}
