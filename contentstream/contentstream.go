// Package contentstream tokenizes page-content operator streams into
// (operator, operands) pairs, applies a sanitization policy, and re-encodes
// the result.
package contentstream

import (
	"bytes"

	"pdfsan/ir/raw"
)

// Operation is one operator with the operands that preceded it. Comments
// and inline images travel as opaque operations with Raw set, so the
// encoder can reproduce them byte-exactly.
type Operation struct {
	Operator string
	Operands []raw.Object
	Raw      []byte // verbatim bytes for comments and inline images
}

// Operator names for the opaque operation kinds.
const (
	OpComment     = "%"
	OpInlineImage = "BI"
)

// contentOperators are the markers used to recognize a content stream by
// its decoded bytes.
var contentOperators = [][]byte{
	[]byte("BT"), []byte("ET"), []byte("re"), []byte(" m"), []byte(" l"),
	[]byte(" c"), []byte(" S"), []byte(" f"), []byte("Do"), []byte("Tj"),
}

// IsContentStream reports whether a stream should pass through the content
// sanitizer: Form and Image XObjects by Subtype, or anything whose decoded
// bytes contain recognizable page-content operators.
func IsContentStream(dict raw.Dictionary, decoded []byte) bool {
	switch raw.DictName(dict, "Subtype") {
	case "Form", "Image":
		return true
	}
	for _, op := range contentOperators {
		if bytes.Contains(decoded, op) {
			return true
		}
	}
	return false
}
