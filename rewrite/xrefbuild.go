package rewrite

import (
	"fmt"

	"pdfsan/ir/raw"
	"pdfsan/writer"
)

// RebuildXRef recomputes every object's byte offset and replaces all prior
// cross-reference tables with one new table. Offsets come from measuring
// the canonical serialization, so they match the downstream writer exactly.
// Callers that mutate the document after a rewrite run, such as the
// encryption stage adding its dictionary object, must call this again. A
// nil sizer defaults to the writer's serializer.
func RebuildXRef(doc *raw.Document, sizer SizeEstimator) error {
	if sizer == nil {
		sizer = writer.NewSerializer()
	}
	offset := int64(len(writer.Header(doc.Version)))
	refs := doc.SortedRefs()
	entries := make([]raw.XRefEntry, 0, len(refs))
	for _, ref := range refs {
		entries = append(entries, raw.XRefEntry{Ref: ref, Offset: offset, Type: raw.EntryInUse})
		size, err := sizer.Measure(ref, doc.Objects[ref])
		if err != nil {
			return fmt.Errorf("measure %s: %w", ref, err)
		}
		offset += size
	}
	doc.XRef = []raw.XRefTable{{Entries: entries}}
	return nil
}

func (rw *Rewriter) rebuildXRef(doc *raw.Document, _ *Stats) error {
	return RebuildXRef(doc, rw.sizer)
}
