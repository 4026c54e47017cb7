package detect

import (
	"golang.org/x/text/encoding/unicode"

	"pdfsan/ir/raw"
)

// decodeText converts a PDF string payload to UTF-8 text. Strings with
// a UTF-16BE byte order mark are decoded through x/text; everything
// else is treated as a byte-per-character encoding.
func decodeText(b []byte) string {
	if len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF {
		dec := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder()
		if out, err := dec.Bytes(b); err == nil {
			return string(out)
		}
	}
	return string(b)
}

// collectStrings gathers every string value reachable from obj,
// descending through arrays, dictionaries, and stream dictionaries.
// Traversal uses an explicit stack; object graphs can nest deeply.
func collectStrings(obj raw.Object) []string {
	if obj == nil {
		return nil
	}
	var out []string
	stack := []raw.Object{obj}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		switch t := cur.(type) {
		case raw.String:
			if v := t.Value(); len(v) > 0 {
				out = append(out, decodeText(v))
			}
		case raw.Array:
			for i := 0; i < t.Len(); i++ {
				if item, ok := t.Get(i); ok {
					stack = append(stack, item)
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
	return out
}
