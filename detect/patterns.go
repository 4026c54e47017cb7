package detect

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/dlclark/regexp2"

	"pdfsan/filters"
	"pdfsan/ir/raw"
	"pdfsan/report"
)

// CustomPattern is a caller-supplied scan pattern. Expressions use the
// regexp2 dialect, so backreferences and lookaround are available.
type CustomPattern struct {
	Name     string
	Expr     string
	Severity report.Severity
}

// builtinPattern pairs a compiled expression with its label. Built-in
// patterns target personally identifying information and always rank
// High.
type builtinPattern struct {
	name string
	re   *regexp.Regexp
}

var builtinPatterns = []builtinPattern{
	{"email address", regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)},
	{"phone number", regexp.MustCompile(`\+?[0-9]{0,2}[-. ]?\(?[0-9]{3}\)?[-. ]?[0-9]{3}[-. ]?[0-9]{4}\b`)},
	{"social security number", regexp.MustCompile(`\b[0-9]{3}-[0-9]{2}-[0-9]{4}\b`)},
	{"credit card number", regexp.MustCompile(`\b(?:[0-9]{4}[- ]?){3}[0-9]{4}\b`)},
	{"IPv4 address", regexp.MustCompile(`\b(?:[0-9]{1,3}\.){3}[0-9]{1,3}\b`)},
	{"URL", regexp.MustCompile(`https?://[^\s<>"')\]]+`)},
}

const customMatchTimeout = 250 * time.Millisecond

// PatternDetector matches built-in and custom regex patterns against
// decoded text-like string and stream content, including strings nested
// inside dictionaries. Matches are independent; one hit never stops the
// rest of the scan.
type PatternDetector struct {
	cfg    Config
	pipe   *filters.Pipeline
	custom []*compiledCustom

	broken     []report.Issue
	brokenOnce sync.Once
}

type compiledCustom struct {
	pattern CustomPattern
	re      *regexp2.Regexp
}

func NewPatternDetector(cfg Config, pipe *filters.Pipeline) *PatternDetector {
	d := &PatternDetector{cfg: cfg, pipe: pipe}
	for _, p := range cfg.CustomPatterns {
		re, err := regexp2.Compile(p.Expr, regexp2.None)
		if err != nil {
			d.broken = append(d.broken, report.Issue{
				Severity:    report.SeverityLow,
				Description: fmt.Sprintf("custom pattern %q does not compile", p.Name),
				Err:         err,
			})
			continue
		}
		re.MatchTimeout = customMatchTimeout
		d.custom = append(d.custom, &compiledCustom{pattern: p, re: re})
	}
	return d
}

func (d *PatternDetector) Name() string { return "patterns" }

func (d *PatternDetector) Detect(ctx context.Context, ref raw.ObjectRef, obj raw.Object) ([]report.Finding, []report.Issue) {
	var texts []string
	switch t := obj.(type) {
	case raw.Stream:
		if decoded, err := d.pipe.DecodeStream(ctx, t); err == nil && looksTextual(decoded) {
			texts = append(texts, string(decoded))
		}
		texts = append(texts, collectStrings(t.Dictionary())...)
	default:
		texts = collectStrings(obj)
	}

	var findings []report.Finding
	var issues []report.Issue
	// Compile failures are reported once per scan, not per object.
	d.brokenOnce.Do(func() { issues = append(issues, d.broken...) })
	for _, text := range texts {
		for _, p := range builtinPatterns {
			for _, loc := range p.re.FindAllStringIndex(text, -1) {
				findings = append(findings, report.Finding{
					Kind:        report.KindPattern,
					Ref:         refOf(ref),
					Description: p.name,
					Confidence:  0.95,
					Severity:    report.SeverityHigh,
					Context:     clip(text[loc[0]:loc[1]], d.cfg.ContextSize),
				})
			}
		}
		for _, c := range d.custom {
			m, err := c.re.FindStringMatch(text)
			for m != nil && err == nil {
				findings = append(findings, report.Finding{
					Kind:        report.KindPattern,
					Ref:         refOf(ref),
					Description: c.pattern.Name,
					Confidence:  0.9,
					Severity:    c.pattern.Severity,
					Context:     clip(m.String(), d.cfg.ContextSize),
				})
				m, err = c.re.FindNextMatch(m)
			}
			if err != nil {
				issues = append(issues, report.Issue{
					Severity:    report.SeverityLow,
					Ref:         refOf(ref),
					Description: fmt.Sprintf("custom pattern %q failed", c.pattern.Name),
					Err:         err,
				})
			}
		}
	}
	return findings, issues
}

// looksTextual reports whether decoded bytes are worth running text
// patterns over. Anything with a meaningful share of non-whitespace
// control bytes is treated as binary.
func looksTextual(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	control := 0
	for _, b := range data {
		if b < 32 && b != '\t' && b != '\n' && b != '\r' && b != '\f' {
			control++
		}
	}
	return control*20 < len(data)
}
