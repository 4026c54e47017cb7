package rewrite

import (
	"fmt"

	"pdfsan/ir/raw"
)

// compact renumbers surviving objects to the dense range 1..N, generation
// zero, in ascending old-ref order, and rewrites every reference plus the
// trailer through the mapping. A pruned root is fatal.
func (rw *Rewriter) compact(doc *raw.Document, stats *Stats) error {
	old := doc.SortedRefs()
	mapping := make(map[raw.ObjectRef]raw.ObjectRef, len(old))
	for i, ref := range old {
		mapping[ref] = raw.ObjectRef{Num: i + 1, Gen: 0}
	}

	if _, ok := mapping[doc.Trailer.Root]; !ok {
		return fmt.Errorf("root %s: %w", doc.Trailer.Root, ErrRootUnresolvable)
	}

	replaceRefs(doc, mapping)

	renumbered := make(map[raw.ObjectRef]raw.Object, len(old))
	for _, ref := range old {
		renumbered[mapping[ref]] = doc.Objects[ref]
	}
	doc.Objects = renumbered
	stats.ObjectsRenumbered = len(renumbered)

	doc.Trailer.Root = mapping[doc.Trailer.Root]
	if doc.Trailer.Info != nil {
		if newInfo, ok := mapping[*doc.Trailer.Info]; ok {
			doc.Trailer.Info = &newInfo
		} else {
			// Info was pruned; drop the dangling trailer entry.
			doc.Trailer.Info = nil
		}
	}
	if ref, ok := doc.EncryptRef(); ok {
		if newRef, hit := mapping[ref]; hit {
			doc.Trailer.Encrypt = raw.RefObj{R: newRef}
		} else {
			doc.Trailer.Encrypt = nil
		}
	}

	dropDanglingRefs(doc)
	return nil
}

// dropDanglingRefs nulls out any reference whose target is absent from the
// object map. Parsers tolerate dangling references on input; compaction is
// the last point where they may exist.
func dropDanglingRefs(doc *raw.Document) {
	for _, obj := range doc.Objects {
		nullDangling(obj, doc.Objects)
	}
}

func nullDangling(obj raw.Object, objects map[raw.ObjectRef]raw.Object) {
	switch t := obj.(type) {
	case *raw.ArrayObj:
		for i, item := range t.Items {
			if ref, ok := item.(raw.Reference); ok {
				if _, present := objects[ref.Ref()]; !present {
					t.Items[i] = raw.NullObj{}
				}
				continue
			}
			nullDangling(item, objects)
		}
	case *raw.DictObj:
		for k, v := range t.KV {
			if ref, ok := v.(raw.Reference); ok {
				if _, present := objects[ref.Ref()]; !present {
					t.KV[k] = raw.NullObj{}
				}
				continue
			}
			nullDangling(v, objects)
		}
	case *raw.StreamObj:
		nullDangling(t.Dict, objects)
	}
}
