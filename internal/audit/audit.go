package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"authwatchd/internal/types"
)

// Logger appends raised alerts to a JSON-lines audit trail.
type Logger struct {
	mu       sync.Mutex
	filePath string
}

// NewLogger creates a new audit logger writing to filePath.
func NewLogger(filePath string) *Logger {
	return &Logger{
		filePath: filePath,
	}
}

// LogAlert writes one alert to the audit log in a thread-safe manner.
func (l *Logger) LogAlert(a types.SecurityAlert) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	if err := encoder.Encode(a); err != nil {
		return fmt.Errorf("failed to encode alert: %w", err)
	}

	return nil
}
