package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"authwatchd/internal/types"
)

// Load reads the configuration from the given path
func Load(path string) (*types.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	var cfg types.Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	applyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with all defaults applied and no file input.
func Default() *types.Config {
	var cfg types.Config
	applyDefaults(&cfg)
	return &cfg
}

// applyDefaults fills in zero-valued fields
func applyDefaults(cfg *types.Config) {
	if cfg.Input.LogFile == "" {
		cfg.Input.LogFile = "/var/log/auth.log"
	}
	if cfg.Input.JournalUnit == "" {
		cfg.Input.JournalUnit = "sshd.service"
	}

	if cfg.Monitor.MaxLines == 0 {
		cfg.Monitor.MaxLines = 100
	}
	if cfg.Monitor.RefreshInterval == 0 {
		cfg.Monitor.RefreshInterval = 1.0
	}
	if cfg.Monitor.LookbackBytes == 0 {
		cfg.Monitor.LookbackBytes = 10 * 1024
	}

	if cfg.Detection.FailedLoginThreshold == 0 {
		cfg.Detection.FailedLoginThreshold = 5
	}
	if cfg.Detection.FailedLoginWindow == 0 {
		cfg.Detection.FailedLoginWindow = 300
	}
	if cfg.Detection.SudoThreshold == 0 {
		cfg.Detection.SudoThreshold = 10
	}
	if cfg.Detection.SudoCheckWindow == 0 {
		cfg.Detection.SudoCheckWindow = 300
	}
	if cfg.Detection.SudoRetentionWindow == 0 {
		cfg.Detection.SudoRetentionWindow = 3600
	}
	if cfg.Detection.DedupeWindow == 0 {
		cfg.Detection.DedupeWindow = 300
	}
	if len(cfg.Detection.Patterns) == 0 {
		cfg.Detection.Patterns = types.DefaultPatterns()
	}

	if cfg.Dashboard.Port == "" {
		cfg.Dashboard.Port = ":8090"
	}
	if cfg.Metrics.Port == "" {
		cfg.Metrics.Port = ":9090"
	}
}

// Validate rejects misconfiguration. This is the only fatal error path:
// everything past construction degrades instead of failing.
func Validate(cfg *types.Config) error {
	for _, p := range cfg.Detection.Patterns {
		if p.Name == "" {
			return fmt.Errorf("pattern without name")
		}
		if _, err := regexp.Compile("(?i)" + p.Regex); err != nil {
			return fmt.Errorf("pattern %s: %w", p.Name, err)
		}
	}
	if cfg.Detection.FailedLoginThreshold < 1 {
		return fmt.Errorf("failed_login_threshold must be positive, got %d", cfg.Detection.FailedLoginThreshold)
	}
	if cfg.Detection.SudoThreshold < 1 {
		return fmt.Errorf("sudo_threshold must be positive, got %d", cfg.Detection.SudoThreshold)
	}
	if cfg.Detection.FailedLoginWindow < 1 || cfg.Detection.SudoCheckWindow < 1 ||
		cfg.Detection.SudoRetentionWindow < 1 || cfg.Detection.DedupeWindow < 1 {
		return fmt.Errorf("detection windows must be positive")
	}
	if cfg.Monitor.MaxLines < 1 {
		return fmt.Errorf("max_lines must be positive, got %d", cfg.Monitor.MaxLines)
	}
	if cfg.Monitor.RefreshInterval <= 0 {
		return fmt.Errorf("refresh_interval must be positive, got %v", cfg.Monitor.RefreshInterval)
	}
	return nil
}
