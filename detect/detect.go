// Package detect implements the forensic scanner: binary signature
// matching, PII and custom regex patterns, script and font inspection,
// and statistical steganography analysis. Detectors only read the
// document; every result is a report.Finding or report.Issue.
package detect

import (
	"context"
	"fmt"

	"pdfsan/filters"
	"pdfsan/ir/raw"
	"pdfsan/observability"
	"pdfsan/report"
)

// Config controls which surfaces are scanned and how findings are
// filtered.
type Config struct {
	ScanMetadata  bool
	ScanContent   bool
	ScanStructure bool
	ScanBinary    bool

	CustomPatterns []CustomPattern

	// ConfidenceThreshold drops findings scored below it. Zero keeps
	// everything.
	ConfidenceThreshold float64

	// ContextSize bounds the surrounding text captured per finding.
	ContextSize int

	// StatisticalThreshold gates steganography findings.
	StatisticalThreshold float64
}

// DefaultConfig scans everything with moderate thresholds.
func DefaultConfig() Config {
	return Config{
		ScanMetadata:         true,
		ScanContent:          true,
		ScanStructure:        true,
		ScanBinary:           true,
		ContextSize:          48,
		StatisticalThreshold: 0.7,
	}
}

// Detector examines one object and reports findings. Implementations
// must not mutate the object.
type Detector interface {
	Name() string
	Detect(ctx context.Context, ref raw.ObjectRef, obj raw.Object) ([]report.Finding, []report.Issue)
}

// Registry holds an ordered detector chain. Order is stable so scan
// output is deterministic.
type Registry struct {
	cfg       Config
	detectors []Detector
	logger    observability.Logger
}

// NewRegistry builds an empty registry.
func NewRegistry(cfg Config, logger observability.Logger) *Registry {
	if logger == nil {
		logger = observability.NopLogger{}
	}
	return &Registry{cfg: cfg, logger: logger}
}

// Register appends d to the chain.
func (r *Registry) Register(d Detector) { r.detectors = append(r.detectors, d) }

// NewDefaultRegistry wires the built-in detector chain. A nil pipe gets
// the default filter pipeline. Malformed custom patterns surface later
// as per-scan issues, not as a construction error.
func NewDefaultRegistry(cfg Config, pipe *filters.Pipeline, logger observability.Logger) *Registry {
	if pipe == nil {
		pipe = filters.NewDefaultPipeline(filters.Limits{})
	}
	r := NewRegistry(cfg, logger)
	if cfg.ScanBinary {
		r.Register(NewSignatureDetector(cfg))
	}
	if cfg.ScanContent || cfg.ScanMetadata || cfg.ScanStructure {
		r.Register(NewPatternDetector(cfg, pipe))
		r.Register(NewRichTextDetector(cfg))
	}
	if cfg.ScanStructure {
		r.Register(NewJavaScriptDetector(cfg, pipe))
		r.Register(NewFontDetector(pipe))
	}
	if cfg.ScanBinary {
		r.Register(NewStegoDetector(cfg, pipe))
	}
	return r
}

// ScanDocument runs every detector over every object. Findings below
// the confidence threshold are dropped. Detector failures never abort
// the scan; cancellation is honored between objects.
func (r *Registry) ScanDocument(ctx context.Context, doc *raw.Document) ([]report.Finding, []report.Issue, error) {
	var findings []report.Finding
	var issues []report.Issue
	for _, ref := range doc.SortedRefs() {
		if err := ctx.Err(); err != nil {
			return findings, issues, fmt.Errorf("detect: scan aborted: %w", err)
		}
		obj := doc.Objects[ref]
		for _, d := range r.detectors {
			fs, is := d.Detect(ctx, ref, obj)
			for _, f := range fs {
				if f.Confidence < r.cfg.ConfidenceThreshold {
					continue
				}
				findings = append(findings, f)
			}
			issues = append(issues, is...)
			if len(fs) > 0 {
				r.logger.Debug("detector matched",
					observability.String("detector", d.Name()),
					observability.String("object", ref.String()),
					observability.Int("findings", len(fs)))
			}
		}
	}
	return findings, issues, nil
}

// clip truncates s to the configured context size.
func clip(s string, size int) string {
	if size <= 0 || len(s) <= size {
		return s
	}
	return s[:size]
}

func refOf(ref raw.ObjectRef) *raw.ObjectRef {
	r := ref
	return &r
}
