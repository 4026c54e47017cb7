// Package rewrite implements the object-graph rewriting stages: reference
// mapping, reachability pruning, deduplication, stream merging, dense
// renumbering and cross-reference reconstruction.
package rewrite

import (
	"context"
	"errors"
	"fmt"

	"pdfsan/ir/raw"
	"pdfsan/observability"
	"pdfsan/writer"
)

// ErrRootUnresolvable reports that the trailer root no longer resolves to
// an object. This is always fatal; no local recovery is possible.
var ErrRootUnresolvable = errors.New("trailer root does not resolve to an object")

// SizeEstimator is the serialization-size contract consumed by the
// cross-reference rebuilder. The writer's Serializer implements it by
// measuring its own canonical output.
type SizeEstimator interface {
	Measure(ref raw.ObjectRef, obj raw.Object) (int64, error)
}

type Config struct {
	PruneUnreachable   bool
	DeduplicateObjects bool
	MergeStreams       bool
	Compact            bool
	RebuildXRef        bool

	// MergeThreshold is the maximum data size of a stream considered for
	// merging. Zero means the 1024-byte default.
	MergeThreshold int

	// ConcatSafeFilters names the Filter values whose payloads the caller
	// accepts byte-concatenating. The empty string stands for unfiltered
	// streams. Merging is valid only for filters whose encoding survives
	// concatenation; the merger never guesses beyond this list.
	ConcatSafeFilters []string
}

// Stats aggregates per-run counters. All state is carried here explicitly;
// the package keeps no global counters.
type Stats struct {
	ObjectsRemoved    int
	ObjectsMerged     int
	StreamsMerged     int
	ObjectsRenumbered int
}

type Rewriter struct {
	config Config
	sizer  SizeEstimator
	logger observability.Logger
}

// New constructs a Rewriter. A nil sizer defaults to the writer's
// serializer; a nil logger defaults to the no-op logger.
func New(config Config, sizer SizeEstimator, logger observability.Logger) *Rewriter {
	if sizer == nil {
		sizer = writer.NewSerializer()
	}
	if logger == nil {
		logger = observability.NopLogger{}
	}
	if config.MergeThreshold <= 0 {
		config.MergeThreshold = 1024
	}
	if config.ConcatSafeFilters == nil {
		config.ConcatSafeFilters = []string{"", "FlateDecode"}
	}
	return &Rewriter{config: config, sizer: sizer, logger: logger}
}

// Run applies the enabled stages in order. Cancellation is honored at
// stage boundaries only; each stage either completes or leaves the
// document as the previous stage produced it.
func (rw *Rewriter) Run(ctx context.Context, doc *raw.Document) (Stats, error) {
	var stats Stats

	stages := []struct {
		name    string
		enabled bool
		run     func(*raw.Document, *Stats) error
	}{
		{"prune-unreachable", rw.config.PruneUnreachable, rw.pruneUnreachable},
		{"deduplicate", rw.config.DeduplicateObjects, rw.deduplicate},
		{"merge-streams", rw.config.MergeStreams, rw.mergeStreams},
		{"compact", rw.config.Compact, rw.compact},
		{"rebuild-xref", rw.config.RebuildXRef, rw.rebuildXRef},
	}

	for _, stage := range stages {
		if !stage.enabled {
			continue
		}
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if err := stage.run(doc, &stats); err != nil {
			return stats, fmt.Errorf("%s: %w", stage.name, err)
		}
		rw.logger.Debug("stage complete",
			observability.String("stage", stage.name),
			observability.Int("objects", len(doc.Objects)))
	}
	return stats, nil
}
