package rewrite

import (
	"pdfsan/ir/raw"
)

// mergeStreams concatenates adjacent small streams whose dictionaries agree
// on Filter and Type. Only filters named in ConcatSafeFilters are touched:
// byte-concatenation changes the logical structure of any encoding that is
// not concatenation-compatible, and the merger refuses to guess.
func (rw *Rewriter) mergeStreams(doc *raw.Document, stats *Stats) error {
	var small []raw.ObjectRef
	for _, ref := range doc.SortedRefs() {
		s, ok := doc.Objects[ref].(raw.Stream)
		if !ok {
			continue
		}
		if int(s.Length()) < rw.config.MergeThreshold {
			small = append(small, ref)
		}
	}

	for i := 0; i+1 < len(small); {
		first, ok1 := doc.Objects[small[i]].(*raw.StreamObj)
		second, ok2 := doc.Objects[small[i+1]].(*raw.StreamObj)
		if !ok1 || !ok2 || !rw.mergeCompatible(first, second) {
			i++
			continue
		}

		first.SetData(append(first.Data, second.Data...))
		delete(doc.Objects, small[i+1])
		replaceRefs(doc, map[raw.ObjectRef]raw.ObjectRef{small[i+1]: small[i]})
		stats.StreamsMerged++

		// The grown first stream may absorb further neighbors; drop only
		// the consumed entry.
		small = append(small[:i+1], small[i+2:]...)
		if int(first.Length()) >= rw.config.MergeThreshold {
			i++
		}
	}
	return nil
}

func (rw *Rewriter) mergeCompatible(a, b *raw.StreamObj) bool {
	filterA := raw.DictName(a.Dict, "Filter")
	filterB := raw.DictName(b.Dict, "Filter")
	if filterA != filterB {
		return false
	}
	if raw.DictName(a.Dict, "Type") != raw.DictName(b.Dict, "Type") {
		return false
	}
	for _, safe := range rw.config.ConcatSafeFilters {
		if filterA == safe {
			return true
		}
	}
	return false
}
