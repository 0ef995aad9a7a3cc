package source

import (
	"log"
	"os"
)

// Kind identifies where log lines come from
type Kind string

const (
	KindFile    Kind = "file"
	KindJournal Kind = "journal"
	KindDummy   Kind = "dummy"
)

// Descriptor is the resolved log origin the reader will poll.
type Descriptor struct {
	Kind Kind
	Path string // set for KindFile
	Unit string // set for KindJournal
}

// Selector decides where log lines come from. Command availability is
// cached per instance, never globally.
type Selector struct {
	runner    Runner
	available map[string]bool
}

// NewSelector creates a selector using the given command runner.
func NewSelector(runner Runner) *Selector {
	return &Selector{
		runner:    runner,
		available: make(map[string]bool),
	}
}

// Select resolves the best available log source. It never fails: when no
// real source exists it degrades to the dummy source.
func (s *Selector) Select(logFile, fallbackFile, journalUnit string) Descriptor {
	if readable(logFile) {
		log.Printf("[SOURCE] Using log file: %s", logFile)
		return Descriptor{Kind: KindFile, Path: logFile}
	}

	if s.commandAvailable("journalctl") {
		log.Printf("[SOURCE] Using journalctl with unit: %s", journalUnit)
		return Descriptor{Kind: KindJournal, Unit: journalUnit}
	}

	if fallbackFile != "" {
		if _, err := os.Stat(fallbackFile); err == nil {
			log.Printf("[SOURCE] Using fallback log file: %s", fallbackFile)
			return Descriptor{Kind: KindFile, Path: fallbackFile}
		}
	}

	log.Printf("[SOURCE] No log source available, using dummy source")
	return Descriptor{Kind: KindDummy}
}

func (s *Selector) commandAvailable(name string) bool {
	if ok, cached := s.available[name]; cached {
		return ok
	}
	ok := s.runner.Available(name)
	s.available[name] = ok
	return ok
}

func readable(path string) bool {
	if path == "" {
		return false
	}
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	f.Close()
	return true
}
