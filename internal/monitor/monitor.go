package monitor

import (
	"context"
	"log"
	"os"
	"sync"
	"time"

	"authwatchd/internal/detect"
	"authwatchd/internal/metrics"
	"authwatchd/internal/parser"
	"authwatchd/internal/source"
	"authwatchd/internal/store"
	"authwatchd/internal/types"
)

// AlertHandler is invoked once for every newly raised alert.
type AlertHandler func(types.SecurityAlert)

// Monitor owns one complete ingestion pipeline: source selection, line
// reading, parsing, the event store and the windowed detector. All mutable
// state belongs to this instance; independent monitors share nothing.
type Monitor struct {
	cfg    *types.Config
	runner source.Runner

	selector *source.Selector
	parser   *parser.Parser
	store    *store.Store
	engine   *detect.Engine

	// srcMu guards the source state below; the poll goroutine and the
	// dashboard's tail handler both touch it.
	srcMu        sync.Mutex
	src          source.Descriptor
	selected     bool
	inc          *source.Incremental
	lastJournal  []string
	dummyEmitted bool

	onAlert     AlertHandler
	knownAlerts map[string]struct{}

	now func() time.Time
}

// New builds a monitor from a validated configuration. Pattern compilation
// happens here; an invalid pattern is the only fatal error.
func New(cfg *types.Config, runner source.Runner) (*Monitor, error) {
	p, err := parser.New(cfg.Detection.Patterns)
	if err != nil {
		return nil, err
	}

	engine := detect.NewEngine(detect.Config{
		FailedLoginThreshold: cfg.Detection.FailedLoginThreshold,
		FailedLoginWindow:    time.Duration(cfg.Detection.FailedLoginWindow) * time.Second,
		SudoThreshold:        cfg.Detection.SudoThreshold,
		SudoCheckWindow:      time.Duration(cfg.Detection.SudoCheckWindow) * time.Second,
		SudoRetentionWindow:  time.Duration(cfg.Detection.SudoRetentionWindow) * time.Second,
		DedupeWindow:         time.Duration(cfg.Detection.DedupeWindow) * time.Second,
	})

	return &Monitor{
		cfg:         cfg,
		runner:      runner,
		selector:    source.NewSelector(runner),
		parser:      p,
		store:       store.New(cfg.Monitor.MaxLines, p.Patterns()),
		engine:      engine,
		knownAlerts: make(map[string]struct{}),
		now:         time.Now,
	}, nil
}

// SetAlertHandler registers the sink for newly raised alerts. Must be
// called before Run.
func (m *Monitor) SetAlertHandler(h AlertHandler) {
	m.onAlert = h
}

// Source returns the currently selected source descriptor.
func (m *Monitor) Source() source.Descriptor {
	m.srcMu.Lock()
	defer m.srcMu.Unlock()
	return m.src
}

// Poll runs one tick: resolve the source if needed, read the newly
// appended lines, parse them into the store and the detector, then sweep.
// Nothing in here can abort the loop; failures degrade to empty batches or
// synthetic events.
func (m *Monitor) Poll(ctx context.Context) {
	m.srcMu.Lock()
	m.ensureSource()
	lines := m.readLines(ctx)
	m.srcMu.Unlock()

	for _, line := range lines {
		metrics.LinesRead.Inc()
		evt := m.parser.Parse(line)
		if evt == nil {
			continue
		}
		metrics.EventsParsed.Inc()
		if evt.Source == "parser" {
			metrics.ParseFailures.Inc()
		}
		m.store.Append(*evt)
		m.engine.Process(evt)
	}

	m.engine.Sweep()
	m.publishNewAlerts()
}

// ensureSource selects a source on the first tick and re-selects when a
// file source has disappeared. Caller must hold srcMu.
func (m *Monitor) ensureSource() {
	if m.selected {
		if m.src.Kind != source.KindFile {
			return
		}
		if _, err := os.Stat(m.src.Path); err == nil {
			return
		}
		log.Printf("[MONITOR] Log file %s disappeared, re-selecting source", m.src.Path)
	}

	m.src = m.selector.Select(m.cfg.Input.LogFile, m.cfg.Input.FallbackLogFile, m.cfg.Input.JournalUnit)
	m.selected = true
	m.lastJournal = nil
	m.dummyEmitted = false
	if m.src.Kind == source.KindFile {
		m.inc = source.NewIncremental(m.src.Path, m.cfg.Monitor.LookbackBytes)
	} else {
		m.inc = nil
	}
}

// readLines reads one batch from the active source. Caller must hold srcMu.
func (m *Monitor) readLines(ctx context.Context) []string {
	switch m.src.Kind {
	case source.KindFile:
		lines, err := m.inc.ReadNew()
		if err != nil {
			metrics.ReadFailures.Inc()
		}
		return lines
	case source.KindJournal:
		batch := source.TailJournal(ctx, m.runner, m.src.Unit, m.cfg.Monitor.MaxLines)
		if batch == nil {
			metrics.ReadFailures.Inc()
			return nil
		}
		fresh := diffNewLines(m.lastJournal, batch)
		m.lastJournal = batch
		return fresh
	case source.KindDummy:
		if m.dummyEmitted {
			return nil
		}
		m.dummyEmitted = true
		return source.DummyLines(m.now())
	}
	return nil
}

// diffNewLines returns the suffix of cur that was not already seen at the
// end of prev, so repeated bounded tails of the same stream do not feed
// duplicate lines into the pipeline.
func diffNewLines(prev, cur []string) []string {
	limit := len(prev)
	if len(cur) < limit {
		limit = len(cur)
	}
	for k := limit; k > 0; k-- {
		match := true
		for i := 0; i < k; i++ {
			if prev[len(prev)-k+i] != cur[i] {
				match = false
				break
			}
		}
		if match {
			return cur[k:]
		}
	}
	return cur
}

// publishNewAlerts hands alerts that were raised this tick to the
// registered handler, exactly once per alert.
func (m *Monitor) publishNewAlerts() {
	active := m.engine.ActiveAlerts()
	current := make(map[string]struct{}, len(active))
	for _, a := range active {
		current[a.ID] = struct{}{}
		if _, seen := m.knownAlerts[a.ID]; seen {
			continue
		}
		metrics.AlertsGenerated.WithLabelValues(string(a.Type)).Inc()
		log.Printf("[ALERT] %s %s key=%s count=%d: %s", a.Severity, a.Type, a.Key, a.Count, a.Message)
		if m.onAlert != nil {
			m.onAlert(a)
		}
	}
	m.knownAlerts = current
}

// Run drives the polling loop until the context is cancelled. The
// inter-tick wait is the only suspension point and is cancellable.
func (m *Monitor) Run(ctx context.Context) error {
	if m.cfg.Input.Follow {
		return m.runFollow(ctx)
	}
	return m.runPoll(ctx)
}

func (m *Monitor) runPoll(ctx context.Context) error {
	interval := time.Duration(m.cfg.Monitor.RefreshInterval * float64(time.Second))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.Poll(ctx)
		}
	}
}

// runFollow streams the configured file instead of polling it. The
// detector still sweeps on a ticker so windows expire even when the file
// is quiet.
func (m *Monitor) runFollow(ctx context.Context) error {
	follower := source.NewFollower(m.cfg.Input.LogFile)
	lines, err := follower.Start()
	if err != nil {
		log.Printf("[MONITOR] Follow mode unavailable (%v), falling back to polling", err)
		return m.runPoll(ctx)
	}
	defer follower.Stop()

	m.srcMu.Lock()
	m.src = source.Descriptor{Kind: source.KindFile, Path: m.cfg.Input.LogFile}
	m.selected = true
	m.srcMu.Unlock()

	interval := time.Duration(m.cfg.Monitor.RefreshInterval * float64(time.Second))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			metrics.LinesRead.Inc()
			evt := m.parser.Parse(line)
			if evt == nil {
				continue
			}
			metrics.EventsParsed.Inc()
			m.store.Append(*evt)
			m.engine.Process(evt)
		case <-ticker.C:
			m.engine.Sweep()
			m.publishNewAlerts()
		}
	}
}

// TailLines returns the last n raw lines from the active source using a
// bounded read. It does not advance offset tracking or feed the detector;
// it exists for the plain "recent logs" view.
func (m *Monitor) TailLines(ctx context.Context, n int) []string {
	m.srcMu.Lock()
	m.ensureSource()
	src := m.src
	m.srcMu.Unlock()

	switch src.Kind {
	case source.KindFile:
		return source.TailFile(src.Path, n)
	case source.KindJournal:
		return source.TailJournal(ctx, m.runner, src.Unit, n)
	case source.KindDummy:
		return source.DummyLines(m.now())
	}
	return nil
}

// RecentEvents returns up to n retained events, newest first.
func (m *Monitor) RecentEvents(n int) []types.LogEvent {
	return m.store.Recent(n)
}

// AlertCounts returns pattern-name counts over retained events.
func (m *Monitor) AlertCounts() map[string]int {
	return m.store.AlertCounts()
}

// ActiveAlerts returns the detector's retained alerts, sorted for display.
func (m *Monitor) ActiveAlerts() []types.SecurityAlert {
	return m.engine.ActiveAlerts()
}

// RecentFailedLogins returns the tracked failed-login attempts.
func (m *Monitor) RecentFailedLogins() []types.FailedLogin {
	return m.engine.RecentFailedLogins()
}

// RecentSudoEvents returns the tracked sudo executions.
func (m *Monitor) RecentSudoEvents() []types.SudoEvent {
	return m.engine.RecentSudoEvents()
}

// Summary returns the current security status roll-up.
func (m *Monitor) Summary() types.Summary {
	return m.engine.Summary()
}
