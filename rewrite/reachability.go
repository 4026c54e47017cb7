package rewrite

import "pdfsan/ir/raw"

// pruneUnreachable removes every object not reachable from the trailer
// roots. Work-list traversal with a visited set terminates on any finite
// graph, cycles included, and a single retain pass sweeps the losers.
// Running it twice in a row is a no-op: the surviving set is a fixed point.
func (rw *Rewriter) pruneUnreachable(doc *raw.Document, stats *Stats) error {
	refMap := BuildRefMap(doc)

	worklist := []raw.ObjectRef{doc.Trailer.Root}
	if doc.Trailer.Info != nil {
		worklist = append(worklist, *doc.Trailer.Info)
	}
	if encRef, ok := doc.EncryptRef(); ok {
		worklist = append(worklist, encRef)
	}
	// Direct trailer values (an inline Encrypt dict) may also hold refs.
	if doc.Trailer.Encrypt != nil {
		worklist = append(worklist, collectRefs(doc.Trailer.Encrypt)...)
	}

	visited := make(map[raw.ObjectRef]struct{}, len(doc.Objects))
	for len(worklist) > 0 {
		ref := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		if _, ok := visited[ref]; ok {
			continue
		}
		visited[ref] = struct{}{}
		worklist = append(worklist, refMap[ref]...)
	}

	for ref := range doc.Objects {
		if _, ok := visited[ref]; !ok {
			delete(doc.Objects, ref)
			stats.ObjectsRemoved++
		}
	}
	return nil
}
