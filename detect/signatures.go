package detect

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"

	"pdfsan/ir/raw"
	"pdfsan/report"
)

// signature is one embedded-payload magic sequence.
type signature struct {
	name     string
	magic    []byte
	severity report.Severity
}

// builtinSignatures covers the container and executable headers worth
// flagging inside stream payloads. Executables rank higher than image
// containers.
var builtinSignatures = []signature{
	{"JPEG image", []byte{0xFF, 0xD8, 0xFF}, report.SeverityLow},
	{"PNG image", []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, report.SeverityLow},
	{"ZIP archive", []byte{'P', 'K', 0x03, 0x04}, report.SeverityMedium},
	{"GZIP archive", []byte{0x1F, 0x8B, 0x08}, report.SeverityMedium},
	{"ELF executable", []byte{0x7F, 'E', 'L', 'F'}, report.SeverityCritical},
	{"Windows executable", []byte{'M', 'Z'}, report.SeverityCritical},
	{"embedded PDF", []byte("%PDF-"), report.SeverityMedium},
}

// SignatureDetector finds known magic byte sequences inside stream
// payloads. Matching is a sliding-window comparison over the raw data;
// a payload that IS the matched type (match at offset zero with an
// agreeing Subtype) is not reported.
type SignatureDetector struct {
	cfg Config
}

func NewSignatureDetector(cfg Config) *SignatureDetector {
	return &SignatureDetector{cfg: cfg}
}

func (d *SignatureDetector) Name() string { return "signatures" }

func (d *SignatureDetector) Detect(_ context.Context, ref raw.ObjectRef, obj raw.Object) ([]report.Finding, []report.Issue) {
	stream, ok := obj.(raw.Stream)
	if !ok {
		return nil, nil
	}
	data := stream.RawData()
	subtype := raw.DictName(stream.Dictionary(), "Subtype")

	var findings []report.Finding
	for _, sig := range builtinSignatures {
		off := 0
		for {
			i := bytes.Index(data[off:], sig.magic)
			if i < 0 {
				break
			}
			at := off + i
			off = at + 1
			if at == 0 && declaredPayload(subtype, sig.name) {
				continue
			}
			ctxStart := at
			ctxEnd := at + len(sig.magic) + 8
			if ctxEnd > len(data) {
				ctxEnd = len(data)
			}
			findings = append(findings, report.Finding{
				Kind:        report.KindSignature,
				Ref:         refOf(ref),
				Description: fmt.Sprintf("%s header at offset %d", sig.name, at),
				Confidence:  0.9,
				Severity:    sig.severity,
				Context:     clip(hex.EncodeToString(data[ctxStart:ctxEnd]), d.cfg.ContextSize),
			})
		}
	}
	return findings, nil
}

// declaredPayload reports whether a match at offset zero is just the
// stream's own declared content rather than an embedded payload.
func declaredPayload(subtype, sigName string) bool {
	switch subtype {
	case "Image":
		return sigName == "JPEG image" || sigName == "PNG image"
	}
	return false
}
