package parser

import (
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"authwatchd/internal/types"
)

const minLineLength = 10

// Compiled is one alert pattern with its compiled regex.
type Compiled struct {
	Name string
	Re   *regexp.Regexp
}

// Parser converts raw log lines into canonical LogEvents. All regexes are
// compiled once at construction; an invalid pattern fails here and nowhere
// else.
type Parser struct {
	patterns []Compiled

	reSyslogTS *regexp.Regexp
	reISOTS    *regexp.Regexp
	reSpaceTS  *regexp.Regexp
	reSource   *regexp.Regexp

	now func() time.Time
}

// New creates a parser for the given alert patterns, evaluated in slice order.
func New(patterns []types.Pattern) (*Parser, error) {
	p := &Parser{
		// Jun 26 09:30:01
		reSyslogTS: regexp.MustCompile(`^([A-Z][a-z]{2}\s+\d{1,2}\s+\d{2}:\d{2}:\d{2})`),
		// 2023-06-26T09:30:01
		reISOTS: regexp.MustCompile(`(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2})`),
		// 2023-06-26 09:30:01
		reSpaceTS: regexp.MustCompile(`(\d{4}-\d{2}-\d{2}\s+\d{2}:\d{2}:\d{2})`),
		// sshd[123]:
		reSource: regexp.MustCompile(`(\w+)(\[\d+\])?: `),
		now:      time.Now,
	}

	for _, pat := range patterns {
		re, err := regexp.Compile("(?i)" + pat.Regex)
		if err != nil {
			return nil, fmt.Errorf("pattern %s: %w", pat.Name, err)
		}
		p.patterns = append(p.patterns, Compiled{Name: pat.Name, Re: re})
	}
	return p, nil
}

// Patterns returns the compiled alert patterns in evaluation order.
func (p *Parser) Patterns() []Compiled {
	return p.patterns
}

// Parse converts one raw line into a LogEvent. Empty or implausibly short
// lines yield nil. Parse never panics: any internal failure is downgraded
// to a synthetic parser-error event so ingestion keeps going.
func (p *Parser) Parse(line string) (evt *types.LogEvent) {
	if len(line) < minLineLength {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("[PARSER] Error parsing log line: %v", r)
			excerpt := line
			if len(excerpt) > 50 {
				excerpt = excerpt[:50]
			}
			evt = &types.LogEvent{
				Timestamp: p.now(),
				Source:    "parser",
				Message:   fmt.Sprintf("Error parsing log: %s...", excerpt),
				Severity:  types.SeverityError,
				RawLine:   line,
			}
		}
	}()

	timestamp, message := p.extractTimestamp(line)

	source := "system"
	if m := p.reSource.FindStringSubmatch(message); m != nil {
		source = m[1]
	}

	severity := types.SeverityInfo
	isAlert := false
	for _, pat := range p.patterns {
		if pat.Re.MatchString(line) {
			isAlert = true
			if strings.Contains(pat.Name, "sudo") {
				severity = types.SeverityWarning
			} else {
				severity = types.SeverityError
			}
			break
		}
	}

	return &types.LogEvent{
		Timestamp: timestamp,
		Source:    source,
		Message:   message,
		Severity:  severity,
		RawLine:   line,
		IsAlert:   isAlert,
	}
}

// extractTimestamp tries the known timestamp grammars in order and returns
// the parsed time plus the line with the matched prefix stripped. When no
// grammar matches, ingestion time is used and the message is the full line.
func (p *Parser) extractTimestamp(line string) (time.Time, string) {
	if loc := p.reSyslogTS.FindStringSubmatchIndex(line); loc != nil {
		raw := line[loc[2]:loc[3]]
		// Syslog timestamps omit the year; assume the current one.
		normalized := strings.Join(strings.Fields(raw), " ")
		ts, err := time.ParseInLocation("2006 Jan 2 15:04:05",
			fmt.Sprintf("%d %s", p.now().Year(), normalized), time.Local)
		if err == nil {
			return ts, strings.TrimSpace(line[loc[1]:])
		}
	}

	if loc := p.reISOTS.FindStringSubmatchIndex(line); loc != nil {
		ts, err := time.ParseInLocation("2006-01-02T15:04:05", line[loc[2]:loc[3]], time.Local)
		if err == nil {
			return ts, strings.TrimSpace(line[loc[1]:])
		}
	}

	if loc := p.reSpaceTS.FindStringSubmatchIndex(line); loc != nil {
		raw := line[loc[2]:loc[3]]
		normalized := strings.Join(strings.Fields(raw), " ")
		ts, err := time.ParseInLocation("2006-01-02 15:04:05", normalized, time.Local)
		if err == nil {
			return ts, strings.TrimSpace(line[loc[1]:])
		}
	}

	return p.now(), line
}
