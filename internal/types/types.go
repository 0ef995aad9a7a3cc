package types

import "time"

// Severity classifies a parsed log event
type Severity string

const (
	SeverityInfo    Severity = "INFO"
	SeverityWarning Severity = "WARNING"
	SeverityError   Severity = "ERROR"
)

// AlertSeverity ranks a security alert. Lower rank sorts first.
type AlertSeverity string

const (
	AlertHigh   AlertSeverity = "high"
	AlertMedium AlertSeverity = "medium"
	AlertLow    AlertSeverity = "low"
)

// Rank returns the sort rank of the severity (high=0, medium=1, low=2).
func (s AlertSeverity) Rank() int {
	switch s {
	case AlertHigh:
		return 0
	case AlertMedium:
		return 1
	case AlertLow:
		return 2
	}
	return 3
}

// AlertType identifies which detector raised an alert
type AlertType string

const (
	AlertBruteForce AlertType = "brute_force"
	AlertSudoAbuse  AlertType = "sudo_abuse"
)

// LogEvent is one parsed log line. Immutable after creation.
type LogEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
	RawLine   string    `json:"raw_line"`
	IsAlert   bool      `json:"is_alert"`
}

// SecurityAlert is raised by the windowed detector when a threshold is crossed.
type SecurityAlert struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Type      AlertType     `json:"type"`
	Key       string        `json:"key"` // source IP or username
	Count     int           `json:"count"`
	Severity  AlertSeverity `json:"severity"`
	Message   string        `json:"message"`
}

// FailedLogin is one failed authentication attempt, kept for display.
type FailedLogin struct {
	Timestamp time.Time `json:"timestamp"`
	SourceIP  string    `json:"source_ip"`
	Username  string    `json:"username"`
	Message   string    `json:"message"`
}

// SudoEvent is one sudo command execution, kept for display.
type SudoEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Username  string    `json:"username"`
	Command   string    `json:"command"`
}

// Summary is a point-in-time security status roll-up.
type Summary struct {
	Status       string `json:"status"` // "OK", "WARNING", "ALERT"
	AlertCount   int    `json:"alert_count"`
	FailedLogins int    `json:"failed_logins"`
	SudoEvents   int    `json:"sudo_events"`
}

// Pattern is one named alert classifier, tested case-insensitively
// against the raw line. Order in the slice is the evaluation order.
type Pattern struct {
	Name  string `yaml:"name"`
	Regex string `yaml:"regex"`
}

// DefaultPatterns returns the built-in alert patterns in evaluation order.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{Name: "failed_login", Regex: `authentication failure|failed password|invalid user|Failed password`},
		{Name: "sudo_usage", Regex: `sudo(\[\d+\])?:.*COMMAND=`},
		{Name: "ssh_login", Regex: `sshd.*Accepted`},
		{Name: "authentication", Regex: `PAM:.*authentication`},
		{Name: "suspicious_ip", Regex: `(\b25[0-5]|\b2[0-4][0-9]|\b[01]?[0-9][0-9]?)(\.(25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)){3}`},
	}
}

// Config represents the application configuration
type Config struct {
	Input struct {
		LogFile         string `yaml:"log_file"`
		FallbackLogFile string `yaml:"fallback_log_file"`
		JournalUnit     string `yaml:"journal_unit"`
		Follow          bool   `yaml:"follow"` // stream the file instead of polling
	} `yaml:"input"`

	Monitor struct {
		MaxLines        int     `yaml:"max_lines"`
		RefreshInterval float64 `yaml:"refresh_interval"` // seconds
		LookbackBytes   int64   `yaml:"lookback_bytes"`
	} `yaml:"monitor"`

	Detection struct {
		FailedLoginThreshold int       `yaml:"failed_login_threshold"`
		FailedLoginWindow    int       `yaml:"failed_login_window"` // seconds
		SudoThreshold        int       `yaml:"sudo_threshold"`
		SudoCheckWindow      int       `yaml:"sudo_check_window"` // seconds
		SudoRetentionWindow  int       `yaml:"sudo_retention_window"`
		DedupeWindow         int       `yaml:"dedupe_window"`
		Patterns             []Pattern `yaml:"patterns"`
	} `yaml:"detection"`

	Notification struct {
		WebhookURL string `yaml:"webhook_url"`
	} `yaml:"notification"`

	Dashboard struct {
		Enabled bool   `yaml:"enabled"`
		Port    string `yaml:"port"`
	} `yaml:"dashboard"`

	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Port    string `yaml:"port"`
	} `yaml:"metrics"`

	Output struct {
		AuditLogPath string `yaml:"audit_log_path"`
		HistoryDB    string `yaml:"history_db"` // SQLite alert history, empty disables
	} `yaml:"output"`
}
