package detect

import (
	"context"

	"golang.org/x/image/font/sfnt"

	"pdfsan/filters"
	"pdfsan/ir/raw"
	"pdfsan/report"
)

// FontDetector validates embedded TrueType and CFF font programs.
// Fonts are a recurring exploit carrier; a payload that the sfnt parser
// rejects is flagged rather than trusted.
type FontDetector struct {
	pipe *filters.Pipeline
}

func NewFontDetector(pipe *filters.Pipeline) *FontDetector {
	return &FontDetector{pipe: pipe}
}

func (d *FontDetector) Name() string { return "fonts" }

func (d *FontDetector) Detect(ctx context.Context, ref raw.ObjectRef, obj raw.Object) ([]report.Finding, []report.Issue) {
	stream, ok := obj.(raw.Stream)
	if !ok || !isFontProgram(stream.Dictionary()) {
		return nil, nil
	}
	decoded, err := d.pipe.DecodeStream(ctx, stream)
	if err != nil {
		return nil, []report.Issue{{
			Severity:    report.SeverityLow,
			Ref:         refOf(ref),
			Description: "font program stream does not decode",
			Err:         err,
		}}
	}
	if _, err := sfnt.Parse(decoded); err != nil {
		return []report.Finding{{
			Kind:        report.KindFont,
			Ref:         refOf(ref),
			Description: "embedded font program fails validation",
			Confidence:  0.8,
			Severity:    report.SeverityMedium,
			Context:     err.Error(),
		}}, nil
	}
	return nil, nil
}

// isFontProgram recognizes the stream dictionary shapes used for
// embedded fonts: FontFile2 carries no Subtype, FontFile3 declares one.
func isFontProgram(dict raw.Dictionary) bool {
	switch raw.DictName(dict, "Subtype") {
	case "Type1C", "CIDFontType0C", "OpenType":
		return true
	}
	// TrueType programs (FontFile2) declare Length1 alone; Type1
	// programs also declare Length2 and are not sfnt-parseable.
	if _, ok := raw.DictInt(dict, "Length1"); ok {
		if _, type1 := raw.DictInt(dict, "Length2"); !type1 {
			return true
		}
	}
	return false
}
