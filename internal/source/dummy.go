package source

import (
	"fmt"
	"time"
)

// DummyLines returns a deterministic batch of synthetic sshd sample lines,
// spaced one minute apart ending near now. Used when no real log source
// exists so the rest of the pipeline still has data to chew on.
func DummyLines(now time.Time) []string {
	base := now.Add(-5 * time.Minute)
	lines := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		ts := base.Add(time.Duration(i) * time.Minute).Format("Jan _2 15:04:05")
		if i%2 == 0 {
			lines = append(lines, fmt.Sprintf("%s host sshd[123]: Accepted password for user from 192.168.1.100 port 22 ssh2", ts))
		} else {
			lines = append(lines, fmt.Sprintf("%s host sshd[123]: Failed password for invalid user guest from 192.168.1.101 port 22 ssh2", ts))
		}
	}
	return lines
}
