package detect

import (
	"context"

	"pdfsan/filters"
	"pdfsan/ir/raw"
	"pdfsan/ocr"
	"pdfsan/report"
)

// OCRDetector recognizes text inside image streams and runs the
// built-in PII patterns over it. Text rendered into an image bypasses
// every string-level scan, so this is the only coverage for it. The
// detector is opt-in; wire it with whatever engine is available.
type OCRDetector struct {
	cfg    Config
	pipe   *filters.Pipeline
	engine ocr.Engine
}

func NewOCRDetector(cfg Config, pipe *filters.Pipeline, engine ocr.Engine) *OCRDetector {
	if engine == nil {
		engine = ocr.Noop{}
	}
	return &OCRDetector{cfg: cfg, pipe: pipe, engine: engine}
}

func (d *OCRDetector) Name() string { return "ocr" }

func (d *OCRDetector) Detect(ctx context.Context, ref raw.ObjectRef, obj raw.Object) ([]report.Finding, []report.Issue) {
	stream, ok := obj.(raw.Stream)
	if !ok || raw.DictName(stream.Dictionary(), "Subtype") != "Image" {
		return nil, nil
	}
	decoded, err := d.pipe.DecodeStream(ctx, stream)
	if err != nil {
		return nil, nil
	}
	in, err := ocr.InputFromImage(ref.String(), decoded)
	if err != nil {
		// Raw sample buffers have no container an engine accepts.
		return nil, nil
	}
	res, err := d.engine.Recognize(ctx, in)
	if err != nil {
		return nil, []report.Issue{{
			Severity:    report.SeverityLow,
			Ref:         refOf(ref),
			Description: "text recognition failed",
			Err:         err,
		}}
	}
	if res.PlainText == "" {
		return nil, nil
	}

	var findings []report.Finding
	for _, p := range builtinPatterns {
		for _, loc := range p.re.FindAllStringIndex(res.PlainText, -1) {
			findings = append(findings, report.Finding{
				Kind:        report.KindPattern,
				Ref:         refOf(ref),
				Description: p.name + " in rendered image text",
				Confidence:  0.95 * max(res.Confidence, 0.5),
				Severity:    report.SeverityHigh,
				Context:     clip(res.PlainText[loc[0]:loc[1]], d.cfg.ContextSize),
			})
		}
	}
	return findings, nil
}
