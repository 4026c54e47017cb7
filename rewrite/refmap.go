package rewrite

import (
	"sort"

	"pdfsan/ir/raw"
)

// RefMap records, per object, the set of objects it references.
type RefMap map[raw.ObjectRef][]raw.ObjectRef

// BuildRefMap scans every object once, descending Array, Dictionary and
// stream-dictionary values and collecting each Reference's target. Objects
// with no outgoing references have no entry. Value trees cannot cycle, so
// the walk needs no visited set; object-graph cycles are the reachability
// stage's concern.
func BuildRefMap(doc *raw.Document) RefMap {
	m := make(RefMap)
	for ref, obj := range doc.Objects {
		targets := collectRefs(obj)
		if len(targets) > 0 {
			m[ref] = targets
		}
	}
	return m
}

// collectRefs returns the de-duplicated, sorted targets referenced from one
// object's value tree. The walk is iterative with an explicit stack so deep
// trees cannot overflow the call stack.
func collectRefs(root raw.Object) []raw.ObjectRef {
	seen := make(map[raw.ObjectRef]struct{})
	stack := []raw.Object{root}
	for len(stack) > 0 {
		obj := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		switch t := obj.(type) {
		case raw.Reference:
			seen[t.Ref()] = struct{}{}
		case raw.Array:
			for i := 0; i < t.Len(); i++ {
				if v, ok := t.Get(i); ok {
					stack = append(stack, v)
				}
			}
		case raw.Dictionary:
			for _, k := range t.Keys() {
				if v, ok := t.Get(k); ok {
					stack = append(stack, v)
				}
			}
		case raw.Stream:
			stack = append(stack, t.Dictionary())
		}
	}
	if len(seen) == 0 {
		return nil
	}
	out := make([]raw.ObjectRef, 0, len(seen))
	for ref := range seen {
		out = append(out, ref)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// replaceRefs rewrites every Reference in every object's value tree through
// the mapping. References absent from the mapping are left unchanged.
func replaceRefs(doc *raw.Document, mapping map[raw.ObjectRef]raw.ObjectRef) {
	for _, obj := range doc.Objects {
		replaceRefsIn(obj, mapping)
	}
}

func replaceRefsIn(obj raw.Object, mapping map[raw.ObjectRef]raw.ObjectRef) {
	switch t := obj.(type) {
	case *raw.ArrayObj:
		for i, item := range t.Items {
			if ref, ok := item.(raw.Reference); ok {
				if newRef, hit := mapping[ref.Ref()]; hit {
					t.Items[i] = raw.RefObj{R: newRef}
				}
				continue
			}
			replaceRefsIn(item, mapping)
		}
	case *raw.DictObj:
		for k, v := range t.KV {
			if ref, ok := v.(raw.Reference); ok {
				if newRef, hit := mapping[ref.Ref()]; hit {
					t.KV[k] = raw.RefObj{R: newRef}
				}
				continue
			}
			replaceRefsIn(v, mapping)
		}
	case *raw.StreamObj:
		replaceRefsIn(t.Dict, mapping)
	}
}
