// Package sanitize removes metadata keys and scrubs binary payloads from a
// document's objects.
package sanitize

import (
	"pdfsan/ir/raw"
)

// metadataKeys is the exact removal list. Nothing else is touched: removal
// here is enumerated, not heuristic.
var metadataKeys = []raw.NameObj{
	{Val: "Metadata"},
	{Val: "Info"},
	{Val: "PieceInfo"},
}

// StripMetadata clears the document-level metadata and removes the
// enumerated metadata keys from every dictionary, including stream
// dictionaries and nested direct dictionaries. Returns the number of keys
// removed.
func StripMetadata(doc *raw.Document) int {
	doc.Metadata = nil
	doc.Trailer.Info = nil

	removed := 0
	for _, obj := range doc.Objects {
		removed += stripDict(obj)
	}
	return removed
}

func stripDict(obj raw.Object) int {
	removed := 0
	switch t := obj.(type) {
	case *raw.DictObj:
		for _, key := range metadataKeys {
			if _, ok := t.Get(key); ok {
				t.Delete(key)
				removed++
			}
		}
		for _, v := range t.KV {
			removed += stripDict(v)
		}
	case *raw.ArrayObj:
		for _, item := range t.Items {
			removed += stripDict(item)
		}
	case *raw.StreamObj:
		removed += stripDict(t.Dict)
	}
	return removed
}
