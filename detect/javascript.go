package detect

import (
	"context"
	"fmt"
	"strings"

	"github.com/dop251/goja"

	"pdfsan/filters"
	"pdfsan/ir/raw"
	"pdfsan/report"
)

// suspiciousMarkers are substrings common to obfuscated or
// exploit-style scripts. One marker is weak evidence; several together
// raise confidence.
var suspiciousMarkers = []string{
	"eval(",
	"unescape(",
	"String.fromCharCode",
	"getAnnots",
	"util.printf",
	"this.exportDataObject",
	"app.launchURL",
	"Collab.",
	"%u9090",
}

// JavaScriptDetector finds embedded scripts: JS entries in action
// dictionaries, and stream payloads that parse as JavaScript and carry
// suspicious markers. Scripts are compiled with goja to separate real
// code from text that merely mentions a marker; nothing is executed.
type JavaScriptDetector struct {
	cfg  Config
	pipe *filters.Pipeline
}

func NewJavaScriptDetector(cfg Config, pipe *filters.Pipeline) *JavaScriptDetector {
	return &JavaScriptDetector{cfg: cfg, pipe: pipe}
}

func (d *JavaScriptDetector) Name() string { return "javascript" }

func (d *JavaScriptDetector) Detect(ctx context.Context, ref raw.ObjectRef, obj raw.Object) ([]report.Finding, []report.Issue) {
	switch t := obj.(type) {
	case raw.Dictionary:
		js, ok := raw.DictStr(t, "JS")
		if !ok {
			return nil, nil
		}
		return d.analyze(ref, decodeText(js), true)
	case raw.Stream:
		decoded, err := d.pipe.DecodeStream(ctx, t)
		if err != nil || !looksTextual(decoded) {
			return nil, nil
		}
		src := string(decoded)
		if countMarkers(src) == 0 {
			return nil, nil
		}
		return d.analyze(ref, src, false)
	}
	return nil, nil
}

func (d *JavaScriptDetector) analyze(ref raw.ObjectRef, src string, declared bool) ([]report.Finding, []report.Issue) {
	markers := countMarkers(src)
	_, compileErr := goja.Compile("", src, false)

	// An undeclared stream only counts when it actually compiles.
	if !declared && compileErr != nil {
		return nil, nil
	}

	confidence := 0.6
	severity := report.SeverityMedium
	if markers > 0 {
		confidence = 0.75
		severity = report.SeverityHigh
	}
	if markers >= 2 {
		confidence = 0.95
	}
	desc := "embedded JavaScript"
	if markers > 0 {
		desc = fmt.Sprintf("embedded JavaScript with %d suspicious constructs", markers)
	}
	if compileErr != nil {
		// A declared script that does not parse is itself suspicious:
		// malformed code is a common obfuscation artifact.
		desc += " (does not parse)"
		confidence = 0.8
		severity = report.SeverityHigh
	}
	return []report.Finding{{
		Kind:        report.KindJavaScript,
		Ref:         refOf(ref),
		Description: desc,
		Confidence:  confidence,
		Severity:    severity,
		Context:     clip(strings.TrimSpace(src), d.cfg.ContextSize),
	}}, nil
}

func countMarkers(src string) int {
	n := 0
	for _, m := range suspiciousMarkers {
		if strings.Contains(src, m) {
			n++
		}
	}
	return n
}
