package sanitize

import (
	"bytes"
	"encoding/binary"

	"pdfsan/ir/raw"
)

// binarySubtypes are the stream subtypes the binary cleaner touches.
var binarySubtypes = map[string]bool{
	"Image":      true,
	"Form":       true,
	"ICCProfile": true,
	"JPXDecode":  true,
}

// CleanBinary scrubs binary stream payloads and string values across the
// document, descending into arrays and dictionaries, and returns the
// total bytes removed.
func CleanBinary(doc *raw.Document) int {
	removed := 0
	for _, ref := range doc.SortedRefs() {
		out, n := cleanValue(doc.Objects[ref])
		doc.Objects[ref] = out
		removed += n
	}
	return removed
}

// cleanValue returns the scrubbed value and the bytes removed. Strings
// are values, so a cleaned string is a replacement, not a mutation.
func cleanValue(obj raw.Object) (raw.Object, int) {
	switch t := obj.(type) {
	case *raw.StreamObj:
		removed := 0
		if binarySubtypes[raw.DictName(t.Dict, "Subtype")] {
			cleaned := CleanPayload(t.Data)
			if len(cleaned) < len(t.Data) {
				removed = len(t.Data) - len(cleaned)
				t.SetData(cleaned)
			}
		}
		_, n := cleanValue(t.Dict)
		return t, removed + n
	case raw.StringObj:
		if !hasControlBytes(t.Bytes) {
			return t, 0
		}
		cleaned := stripControlBytes(t.Bytes)
		return raw.StringObj{Bytes: cleaned, Hex: t.Hex}, len(t.Bytes) - len(cleaned)
	case *raw.ArrayObj:
		removed := 0
		for i, item := range t.Items {
			out, n := cleanValue(item)
			t.Items[i] = out
			removed += n
		}
		return t, removed
	case *raw.DictObj:
		removed := 0
		for k, v := range t.KV {
			out, n := cleanValue(v)
			t.KV[k] = out
			removed += n
		}
		return t, removed
	}
	return obj, 0
}

// CleanPayload applies the format-specific cleaner for recognized binary
// payloads: JPEG application/comment segments and post-EOI trailers are
// stripped, PNG ancillary text chunks are dropped. Unrecognized payloads
// pass through unchanged.
func CleanPayload(data []byte) []byte {
	switch {
	case bytes.HasPrefix(data, []byte{0xFF, 0xD8}):
		return cleanJPEG(data)
	case bytes.HasPrefix(data, []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}):
		return cleanPNG(data)
	}
	return data
}

// cleanJPEG removes APP1..APP15 and COM segments (EXIF, XMP, editor
// comments) and truncates anything after the EOI marker.
func cleanJPEG(data []byte) []byte {
	out := make([]byte, 0, len(data))
	out = append(out, data[:2]...) // SOI
	i := 2
	for i+4 <= len(data) {
		if data[i] != 0xFF {
			// Entropy-coded data; copy through to the end.
			out = append(out, data[i:]...)
			break
		}
		marker := data[i+1]
		if marker == 0xD9 { // EOI: drop any trailing bytes
			out = append(out, 0xFF, 0xD9)
			return out
		}
		if marker == 0xDA { // SOS: scan data follows, keep the rest
			out = append(out, data[i:]...)
			break
		}
		segLen := int(binary.BigEndian.Uint16(data[i+2 : i+4]))
		end := i + 2 + segLen
		if segLen < 2 || end > len(data) {
			out = append(out, data[i:]...)
			break
		}
		// APP1-APP15 carry EXIF/XMP/ICC metadata; COM is free text.
		if (marker >= 0xE1 && marker <= 0xEF) || marker == 0xFE {
			i = end
			continue
		}
		out = append(out, data[i:end]...)
		i = end
	}
	return out
}

// pngCriticalOrPixelChunks are kept; everything else ancillary that can
// carry text or timestamps is dropped.
var pngDroppedChunks = map[string]bool{
	"tEXt": true,
	"zTXt": true,
	"iTXt": true,
	"eXIf": true,
	"tIME": true,
}

func cleanPNG(data []byte) []byte {
	out := make([]byte, 0, len(data))
	out = append(out, data[:8]...) // signature
	i := 8
	for i+8 <= len(data) {
		chunkLen := int(binary.BigEndian.Uint32(data[i : i+4]))
		end := i + 12 + chunkLen // length + type + data + crc
		if end > len(data) {
			out = append(out, data[i:]...)
			break
		}
		typ := string(data[i+4 : i+8])
		if !pngDroppedChunks[typ] {
			out = append(out, data[i:end]...)
		}
		i = end
		if typ == "IEND" {
			break
		}
	}
	return out
}

func hasControlBytes(data []byte) bool {
	for _, c := range data {
		if c < 32 && !isASCIIWhitespace(c) {
			return true
		}
	}
	return false
}

func stripControlBytes(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for _, c := range data {
		if c < 32 && !isASCIIWhitespace(c) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func isASCIIWhitespace(c byte) bool {
	switch c {
	case '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}
