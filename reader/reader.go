// Package reader loads a PDF byte stream into a raw.Document. It does
// not trust the file's cross-reference table: the whole file is scanned
// for "N G obj" markers and the last trailer dictionary, the way an
// xref repair pass works. Sanitization rebuilds offsets anyway, so the
// original table carries no information worth honoring.
package reader

import (
	"bytes"
	"errors"
	"fmt"

	"pdfsan/ir/raw"
)

var (
	ErrNotPDF    = errors.New("reader: missing PDF header")
	ErrNoObjects = errors.New("reader: no indirect objects found")
)

// ReadDocument parses data into a document. Objects that fail to parse
// are skipped; loading succeeds as long as at least one object and a
// usable trailer root are found.
func ReadDocument(data []byte) (*raw.Document, error) {
	version, ok := headerVersion(data)
	if !ok {
		return nil, ErrNotPDF
	}
	doc := raw.NewDocument()
	doc.Version = version

	var lastTrailer *raw.DictObj
	lx := &lexer{data: data}
	for {
		markerPos, num, gen, kind := lx.nextMarker()
		if kind == markerEOF {
			break
		}
		if kind == markerTrailer {
			if obj, err := lx.parseValue(0); err == nil {
				if d, ok := obj.(*raw.DictObj); ok {
					lastTrailer = d
				}
			}
			continue
		}
		obj, err := lx.parseIndirect()
		if err != nil {
			// Repair-style scan: rewind just past the marker and keep
			// looking for the next object.
			lx.pos = markerPos + 1
			continue
		}
		doc.Objects[raw.ObjectRef{Num: num, Gen: gen}] = obj
	}

	if len(doc.Objects) == 0 {
		return nil, ErrNoObjects
	}
	applyTrailer(doc, lastTrailer)
	return doc, nil
}

func headerVersion(data []byte) (string, bool) {
	i := bytes.Index(data, []byte("%PDF-"))
	if i < 0 || i > 1024 {
		return "", false
	}
	rest := data[i+5:]
	end := 0
	for end < len(rest) && end < 8 && (rest[end] == '.' || rest[end] >= '0' && rest[end] <= '9') {
		end++
	}
	if end == 0 {
		return "", false
	}
	return string(rest[:end]), true
}

func applyTrailer(doc *raw.Document, trailer *raw.DictObj) {
	if trailer == nil {
		// Fall back to the lowest-numbered dictionary that looks like a
		// catalog.
		for _, ref := range doc.SortedRefs() {
			if d, ok := doc.Objects[ref].(*raw.DictObj); ok && raw.DictName(d, "Type") == "Catalog" {
				doc.Trailer.Root = ref
				return
			}
		}
		return
	}
	if v, ok := trailer.Get(raw.NameLiteral("Root")); ok {
		if r, ok := v.(raw.Reference); ok {
			doc.Trailer.Root = r.Ref()
		}
	}
	if v, ok := trailer.Get(raw.NameLiteral("Info")); ok {
		if r, ok := v.(raw.Reference); ok {
			ref := r.Ref()
			doc.Trailer.Info = &ref
		}
	}
	if v, ok := trailer.Get(raw.NameLiteral("Encrypt")); ok {
		doc.Trailer.Encrypt = v
	}
}

type markerKind int

const (
	markerEOF markerKind = iota
	markerObj
	markerTrailer
)

// nextMarker advances to the next "N G obj" header or "trailer"
// keyword. For an object header the lexer is left positioned after the
// obj keyword.
func (lx *lexer) nextMarker() (pos, num, gen int, kind markerKind) {
	for lx.pos < len(lx.data) {
		c := lx.data[lx.pos]
		switch {
		case c == 't' && lx.hasKeyword(lx.pos, "trailer"):
			pos = lx.pos
			lx.pos += len("trailer")
			return pos, 0, 0, markerTrailer
		case c >= '0' && c <= '9' && lx.atLineStart(lx.pos):
			if n, g, end, ok := lx.matchObjHeader(lx.pos); ok {
				pos = lx.pos
				lx.pos = end
				return pos, n, g, markerObj
			}
		}
		lx.pos++
	}
	return 0, 0, 0, markerEOF
}

func (lx *lexer) atLineStart(i int) bool {
	return i == 0 || lx.data[i-1] == '\n' || lx.data[i-1] == '\r'
}

func (lx *lexer) hasKeyword(i int, kw string) bool {
	if !lx.atLineStart(i) || i+len(kw) > len(lx.data) {
		return false
	}
	if string(lx.data[i:i+len(kw)]) != kw {
		return false
	}
	return i+len(kw) == len(lx.data) || isDelimiter(lx.data[i+len(kw)]) || isWhitespace(lx.data[i+len(kw)])
}

// matchObjHeader recognizes "N G obj" starting at i and returns the
// position just past the keyword.
func (lx *lexer) matchObjHeader(i int) (num, gen, end int, ok bool) {
	num, i, ok = readInt(lx.data, i)
	if !ok {
		return 0, 0, 0, false
	}
	i = skipSpaces(lx.data, i)
	gen, i, ok = readInt(lx.data, i)
	if !ok {
		return 0, 0, 0, false
	}
	i = skipSpaces(lx.data, i)
	if i+3 > len(lx.data) || string(lx.data[i:i+3]) != "obj" {
		return 0, 0, 0, false
	}
	i += 3
	if i < len(lx.data) && !isWhitespace(lx.data[i]) && !isDelimiter(lx.data[i]) {
		return 0, 0, 0, false
	}
	return num, gen, i, true
}

// parseIndirect parses the object body the lexer is positioned at,
// including a stream payload when one follows the dictionary.
func (lx *lexer) parseIndirect() (raw.Object, error) {
	obj, err := lx.parseValue(0)
	if err != nil {
		return nil, err
	}
	lx.skipWhitespace()
	if lx.hasAt(lx.pos, "stream") {
		dict, ok := obj.(*raw.DictObj)
		if !ok {
			return nil, fmt.Errorf("stream keyword after non-dictionary at %d", lx.pos)
		}
		return lx.parseStream(dict)
	}
	return obj, nil
}

func (lx *lexer) hasAt(i int, kw string) bool {
	return i+len(kw) <= len(lx.data) && string(lx.data[i:i+len(kw)]) == kw
}

// parseStream consumes the payload between the stream/endstream
// keywords. The declared Length is used when it fits; otherwise the
// payload runs to the next endstream marker.
func (lx *lexer) parseStream(dict *raw.DictObj) (raw.Object, error) {
	lx.pos += len("stream")
	if lx.pos < len(lx.data) && lx.data[lx.pos] == '\r' {
		lx.pos++
	}
	if lx.pos < len(lx.data) && lx.data[lx.pos] == '\n' {
		lx.pos++
	}
	start := lx.pos

	if n, ok := raw.DictInt(dict, "Length"); ok && n >= 0 {
		end := start + int(n)
		if end <= len(lx.data) && endstreamFollows(lx.data, end) {
			lx.pos = end
			lx.skipWhitespace()
			lx.pos += len("endstream")
			return raw.NewStream(dict, append([]byte(nil), lx.data[start:end]...)), nil
		}
	}
	idx := bytes.Index(lx.data[start:], []byte("endstream"))
	if idx < 0 {
		return nil, fmt.Errorf("unterminated stream at %d", start)
	}
	end := start + idx
	for end > start && (lx.data[end-1] == '\n' || lx.data[end-1] == '\r') {
		end--
	}
	lx.pos = start + idx + len("endstream")
	return raw.NewStream(dict, append([]byte(nil), lx.data[start:end]...)), nil
}

func endstreamFollows(data []byte, i int) bool {
	for i < len(data) && isWhitespace(data[i]) {
		i++
	}
	return i+len("endstream") <= len(data) && string(data[i:i+len("endstream")]) == "endstream"
}

func readInt(data []byte, i int) (val, next int, ok bool) {
	start := i
	for i < len(data) && data[i] >= '0' && data[i] <= '9' {
		val = val*10 + int(data[i]-'0')
		i++
	}
	return val, i, i > start
}

func skipSpaces(data []byte, i int) int {
	for i < len(data) && (data[i] == ' ' || data[i] == '\t') {
		i++
	}
	return i
}
