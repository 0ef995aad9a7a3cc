package source

import (
	"bufio"
	"context"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

const journalTimeout = 5 * time.Second

// Incremental reads only the bytes appended to a file since the last
// successful read. Offset tracking is by file size, not by a held-open
// handle: the file is opened and closed within each ReadNew call, which
// tolerates external rotation.
type Incremental struct {
	path     string
	lastSize int64
	lookback int64
}

// NewIncremental creates an incremental reader for path. lookback bounds
// how far behind the end of file a resumed read may start (default 10 KB).
func NewIncremental(path string, lookback int64) *Incremental {
	if lookback <= 0 {
		lookback = 10 * 1024
	}
	return &Incremental{path: path, lookback: lookback}
}

// ReadNew returns the lines appended since the previous call. A file that
// did not grow yields an empty batch; a file that shrank is treated as
// rotated (offset resets, content is reread on the next call). Acknowledged
// bytes are never reread: a resumed read starts at the previous size, and
// the lookback only caps how far a single read reaches back when the file
// grew by more than that. lastSize is updated unconditionally after every
// attempt so a failed read cannot cause a reprocessing storm. The returned
// error is for accounting; the batch is already safe to consume.
func (r *Incremental) ReadNew() ([]string, error) {
	info, err := os.Stat(r.path)
	if err != nil {
		return nil, err
	}
	size := info.Size()

	if size == r.lastSize {
		return nil, nil
	}
	if size < r.lastSize {
		log.Printf("[READER] %s shrank (%d -> %d bytes), assuming rotation", r.path, r.lastSize, size)
		r.lastSize = 0
		return nil, nil
	}

	prev := r.lastSize
	r.lastSize = size

	f, err := os.Open(r.path)
	if err != nil {
		log.Printf("[READER] Failed to open %s: %v", r.path, err)
		return nil, err
	}
	defer f.Close()

	skipFirst := false
	if prev > 0 {
		offset := prev
		if capped := size - r.lookback; capped > offset {
			// The jump past the acknowledged offset may land mid-line.
			offset = capped
			skipFirst = true
		}
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			log.Printf("[READER] Failed to seek %s: %v", r.path, err)
			return nil, err
		}
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var lines []string
	first := true
	for scanner.Scan() {
		if first {
			first = false
			if skipFirst {
				continue
			}
		}
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		log.Printf("[READER] Failed to read %s: %v", r.path, err)
		return lines, err
	}
	return lines, nil
}

// TailFile returns the last n lines of the file at path. Unreadable or
// missing files yield an empty slice, never an error.
func TailFile(path string, n int) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return nil
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}

// TailJournal returns the last n lines for the given unit via journalctl.
// Execution is bounded: a hang or non-zero exit yields an empty batch.
func TailJournal(ctx context.Context, runner Runner, unit string, n int) []string {
	ctx, cancel := context.WithTimeout(ctx, journalTimeout)
	defer cancel()

	args := []string{"-n", strconv.Itoa(n), "--no-pager"}
	if unit != "" {
		args = append(args, "-u", unit)
	}

	out, err := runner.Run(ctx, "journalctl", args...)
	if err != nil {
		log.Printf("[READER] journalctl failed: %v", err)
		return nil
	}
	out = strings.TrimRight(out, "\n")
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}
