package contentstream

import (
	"context"
	"fmt"

	"pdfsan/filters"
	"pdfsan/ir/raw"
)

// ProcessingConfig controls which rewrites the sanitizer applies.
type ProcessingConfig struct {
	// RemoveOperators are dropped wherever they appear, operands included.
	// Typical entries: text positioning (Td, TD, T*) and redundant
	// graphics state when the caller does not need exact layout.
	RemoveOperators []string

	RemoveComments bool

	// CollapseGraphicsState folds adjacent identical q/Q/cm/gs pairs.
	CollapseGraphicsState bool

	// MergeTextShows concatenates consecutive Tj string operands.
	MergeTextShows bool
}

// ResourceUsage records which named resources the stream actually touches.
type ResourceUsage struct {
	Fonts    map[string]struct{}
	XObjects map[string]struct{}
}

func newResourceUsage() ResourceUsage {
	return ResourceUsage{
		Fonts:    make(map[string]struct{}),
		XObjects: make(map[string]struct{}),
	}
}

// collapsible graphics-state operators: an adjacent identical pair is
// redundant and folds to one occurrence.
var collapsiblePairs = map[string]bool{
	"q":  true,
	"Q":  true,
	"cm": true,
	"gs": true,
}

// Sanitize applies the configured policy to an operation list:
// removal set, adjacent-pair collapsing, Tj merging, and resource
// tracking. Input is not modified.
func Sanitize(ops []Operation, cfg ProcessingConfig) ([]Operation, ResourceUsage) {
	usage := newResourceUsage()

	remove := make(map[string]bool, len(cfg.RemoveOperators))
	for _, op := range cfg.RemoveOperators {
		remove[op] = true
	}

	out := make([]Operation, 0, len(ops))
	for _, op := range ops {
		if op.Operator == OpComment {
			if cfg.RemoveComments {
				continue
			}
			out = append(out, op)
			continue
		}
		if remove[op.Operator] {
			continue
		}

		switch op.Operator {
		case "Tf":
			if len(op.Operands) > 0 {
				if name, ok := op.Operands[0].(raw.Name); ok {
					usage.Fonts[name.Value()] = struct{}{}
				}
			}
		case "Do":
			if len(op.Operands) > 0 {
				if name, ok := op.Operands[0].(raw.Name); ok {
					usage.XObjects[name.Value()] = struct{}{}
				}
			}
		}

		if cfg.CollapseGraphicsState && len(out) > 0 && collapsiblePairs[op.Operator] {
			prev := out[len(out)-1]
			if prev.Operator == op.Operator && operandsEqual(prev.Operands, op.Operands) {
				continue
			}
		}

		if cfg.MergeTextShows && op.Operator == "Tj" && len(out) > 0 {
			prev := &out[len(out)-1]
			if prev.Operator == "Tj" && len(prev.Operands) == 1 && len(op.Operands) == 1 {
				prevStr, okPrev := prev.Operands[0].(raw.StringObj)
				curStr, okCur := op.Operands[0].(raw.StringObj)
				if okPrev && okCur {
					merged := append(append([]byte{}, prevStr.Bytes...), curStr.Bytes...)
					// prev.Operands aliases the caller's slice; replace the
					// whole header so the input stays untouched.
					prev.Operands = []raw.Object{raw.StringObj{Bytes: merged, Hex: prevStr.Hex && curStr.Hex}}
					continue
				}
			}
		}

		out = append(out, op)
	}
	return out, usage
}

// SanitizeStream runs the full per-stream path: decode FlateDecode if
// present, tokenize, sanitize, re-encode, and re-compress. It reports how
// many payload bytes the rewrite removed.
func SanitizeStream(ctx context.Context, stream *raw.StreamObj, pipe *filters.Pipeline, cfg ProcessingConfig) (ResourceUsage, int, error) {
	data := stream.Data
	flated := raw.DictName(stream.Dict, "Filter") == "FlateDecode"
	if flated {
		decoded, err := pipe.Decode(ctx, data, []string{"FlateDecode"}, nil)
		if err != nil {
			return ResourceUsage{}, 0, fmt.Errorf("decode content: %w", err)
		}
		data = decoded
	}

	if !IsContentStream(stream.Dict, data) {
		return newResourceUsage(), 0, nil
	}

	ops, err := Tokenize(data)
	if err != nil {
		return ResourceUsage{}, 0, fmt.Errorf("tokenize content: %w", err)
	}
	cleaned, usage := Sanitize(ops, cfg)
	out := Encode(cleaned)

	if flated {
		encoded, err := filters.NewFlateEncoder(0).Encode(ctx, out)
		if err != nil {
			return ResourceUsage{}, 0, fmt.Errorf("encode content: %w", err)
		}
		out = encoded
	}
	removed := len(stream.Data) - len(out)
	stream.SetData(out)
	return usage, removed, nil
}
