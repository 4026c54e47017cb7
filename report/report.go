// Package report defines the findings and issues emitted by sanitization
// and scanning. Records are purely additive: producing one never mutates
// the document being examined.
package report

import (
	"fmt"

	"pdfsan/ir/raw"
)

// Severity grades a finding or issue.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// Finding kinds produced by the built-in detectors.
const (
	KindSignature     = "signature"
	KindPattern       = "pattern"
	KindSteganography = "steganography"
	KindJavaScript    = "javascript"
	KindFont          = "font"
	KindHiddenText    = "hidden-text"
)

// Finding is one detection result.
type Finding struct {
	Kind        string
	Ref         *raw.ObjectRef // nil when not tied to one object
	Description string
	Confidence  float64 // 0..1
	Severity    Severity
	Context     string // surrounding bytes/text, truncated per config
}

// Issue records a non-fatal per-object failure. The pipeline collects
// issues and keeps going; only structural and configuration errors abort.
type Issue struct {
	Severity    Severity
	Ref         *raw.ObjectRef
	Description string
	Err         error
}

func (i Issue) String() string {
	loc := "document"
	if i.Ref != nil {
		loc = i.Ref.String()
	}
	if i.Err != nil {
		return fmt.Sprintf("[%s] %s: %s: %v", i.Severity, loc, i.Description, i.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", i.Severity, loc, i.Description)
}
