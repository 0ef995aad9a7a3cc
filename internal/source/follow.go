package source

import (
	"fmt"
	"log"

	"github.com/nxadm/tail"
)

// Follower streams appended lines from a file as they arrive, instead of
// polling. Rotation-safe (reopens the file) and tolerant of the file not
// existing yet.
type Follower struct {
	path string
	t    *tail.Tail
}

// NewFollower creates a follower for path.
func NewFollower(path string) *Follower {
	return &Follower{path: path}
}

// Start begins following the file and returns a channel of lines.
func (f *Follower) Start() (<-chan string, error) {
	config := tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: false,
		Poll:      true, // fallback for filesystems without inotify
		Logger:    tail.DiscardingLogger,
	}

	log.Printf("[SOURCE] Following %s (waiting if not present)", f.path)

	t, err := tail.TailFile(f.path, config)
	if err != nil {
		return nil, fmt.Errorf("failed to tail file %s: %w", f.path, err)
	}
	f.t = t

	out := make(chan string)
	go func() {
		defer close(out)
		for line := range t.Lines {
			if line.Err != nil {
				continue
			}
			out <- line.Text
		}
	}()

	return out, nil
}

// Stop stops following the file.
func (f *Follower) Stop() error {
	if f.t != nil {
		return f.t.Stop()
	}
	return nil
}
