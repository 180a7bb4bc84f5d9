package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Patterns recognized in pip's output stream. The download pattern
// requires a sized fraction with a unit on both amounts; a bare
// "3.6/8.1MB" falls through to the simple percent pattern.
var (
	downloadPattern = regexp.MustCompile(`(\d+)%\|.*\| (\d+(?:\.\d+)?)([kKmMgG]i?B)/(\d+(?:\.\d+)?)([kKmMgG]i?B)`)
	percentPattern  = regexp.MustCompile(`(\d+)%`)
	stepPattern     = regexp.MustCompile(`(Building|Collecting|Installing|Processing)\s+(\S+)`)
)

type SignalKind string

const (
	SignalDownload  SignalKind = "download"
	SignalPercent   SignalKind = "percent"
	SignalStep      SignalKind = "step"
	SignalComplete  SignalKind = "complete"
	SignalSatisfied SignalKind = "satisfied"
)

// ProgressSignal is one structured progress event derived from a line
// of subprocess output. Percent already reflects the highest value
// observed this run, so applying signals in order never moves a task
// backwards.
type ProgressSignal struct {
	Kind    SignalKind
	Percent int
	Message string
}

type lineMatcher func(line string) (*ProgressSignal, bool)

// OutputParser classifies the line stream of one external command run
// into progress signals. One instance per run; it accumulates the
// highest percent seen and whether a sized download has started.
type OutputParser struct {
	highest         int
	downloadStarted bool
	matchers        []lineMatcher
}

// NewOutputParser builds a parser with its matcher chain. Evaluation
// is first-match-wins in this order: sized download fraction, bare
// percent, step verb, completion marker, already-satisfied marker.
func NewOutputParser() *OutputParser {
	p := &OutputParser{}
	p.matchers = []lineMatcher{
		p.matchDownload,
		p.matchPercent,
		p.matchStep,
		p.matchComplete,
		p.matchSatisfied,
	}
	return p
}

// Classify inspects one trimmed, non-empty output line. It returns nil
// when the line carries no progress information; such lines are still
// worth echoing, they just do not move the task.
func (p *OutputParser) Classify(line string) *ProgressSignal {
	for _, match := range p.matchers {
		if sig, matched := match(line); matched {
			return sig
		}
	}
	return nil
}

// Highest reports the top percent observed so far in this run.
func (p *OutputParser) Highest() int {
	return p.highest
}

func (p *OutputParser) matchDownload(line string) (*ProgressSignal, bool) {
	m := downloadPattern.FindStringSubmatch(line)
	if m == nil {
		return nil, false
	}

	percent, _ := strconv.Atoi(m[1])
	p.downloadStarted = true
	if percent > p.highest {
		p.highest = percent
	}

	return &ProgressSignal{
		Kind:    SignalDownload,
		Percent: p.highest,
		Message: fmt.Sprintf("downloading %s%s/%s%s (%d%%)", m[2], m[3], m[4], m[5], percent),
	}, true
}

func (p *OutputParser) matchPercent(line string) (*ProgressSignal, bool) {
	m := percentPattern.FindStringSubmatch(line)
	if m == nil {
		return nil, false
	}

	percent, _ := strconv.Atoi(m[1])
	// Only strictly increasing bare percents are reported, otherwise a
	// trailing "0%" from a second progress bar would drag the task
	// backwards.
	if percent <= p.highest {
		return nil, true
	}
	p.highest = percent

	return &ProgressSignal{
		Kind:    SignalPercent,
		Percent: p.highest,
		Message: fmt.Sprintf("processing: %d%%", percent),
	}, true
}

func (p *OutputParser) matchStep(line string) (*ProgressSignal, bool) {
	m := stepPattern.FindStringSubmatch(line)
	if m == nil {
		return nil, false
	}

	action, target := m[1], m[2]
	switch action {
	case "Collecting":
		if p.downloadStarted {
			return nil, true
		}
		if p.highest < 10 {
			p.highest = 10
		}
		return &ProgressSignal{Kind: SignalStep, Percent: p.highest, Message: "collecting " + target}, true
	case "Building":
		if p.highest < 30 {
			p.highest = 30
		}
		return &ProgressSignal{Kind: SignalStep, Percent: p.highest, Message: "building " + target}, true
	case "Installing":
		if p.highest < 70 {
			p.highest = 70
		}
		return &ProgressSignal{Kind: SignalStep, Percent: p.highest, Message: "installing " + target}, true
	}

	// Processing is recognized so the line is consumed, but it carries
	// no progress floor.
	return nil, true
}

func (p *OutputParser) matchComplete(line string) (*ProgressSignal, bool) {
	if !strings.Contains(line, "Successfully installed") {
		return nil, false
	}

	installed := strings.TrimSpace(strings.Replace(line, "Successfully installed", "", 1))
	p.highest = 100

	return &ProgressSignal{
		Kind:    SignalComplete,
		Percent: 100,
		Message: "successfully installed " + installed,
	}, true
}

func (p *OutputParser) matchSatisfied(line string) (*ProgressSignal, bool) {
	if !strings.Contains(line, "Requirement already satisfied") {
		return nil, false
	}

	rest := strings.TrimSpace(strings.Replace(line, "Requirement already satisfied:", "", 1))
	token := rest
	if fields := strings.Fields(rest); len(fields) > 0 {
		token = fields[0]
	}
	if p.highest < 50 {
		p.highest = 50
	}

	return &ProgressSignal{
		Kind:    SignalSatisfied,
		Percent: p.highest,
		Message: "requirement already satisfied: " + token,
	}, true
}
