package sanitize

import "pdfsan/ir/raw"

// hiddenKeys are the dictionary entries that carry content a viewer does
// not render: optional-content configuration and annotation rich text.
// Like the metadata list, this is enumerated, not heuristic.
var hiddenKeys = []string{"OCProperties", "OCGs", "OC", "RC"}

// StripHidden removes hidden-content carriers from every dictionary in
// the document and returns the number of keys removed.
func StripHidden(doc *raw.Document) int {
	removed := 0
	for _, obj := range doc.Objects {
		removed += stripHiddenFrom(obj)
	}
	return removed
}

func stripHiddenFrom(obj raw.Object) int {
	removed := 0
	switch t := obj.(type) {
	case raw.Dictionary:
		for _, key := range hiddenKeys {
			if _, ok := t.Get(raw.NameLiteral(key)); ok {
				t.Delete(raw.NameLiteral(key))
				removed++
			}
		}
		for _, k := range t.Keys() {
			if v, ok := t.Get(k); ok {
				removed += stripHiddenFrom(v)
			}
		}
	case raw.Array:
		for i := 0; i < t.Len(); i++ {
			if v, ok := t.Get(i); ok {
				removed += stripHiddenFrom(v)
			}
		}
	case raw.Stream:
		removed += stripHiddenFrom(t.Dictionary())
	}
	return removed
}
