package writer

import (
	"bytes"
	"fmt"
	"io"

	"pdfsan/ir/raw"
)

// Header returns the file header for a PDF version, including the binary
// comment line. Offset computations and file assembly share this one
// definition.
func Header(version string) []byte {
	if version == "" {
		version = "1.7"
	}
	return []byte(fmt.Sprintf("%%PDF-%s\n%%\xE2\xE3\xCF\xD3\n", version))
}

// WriteDocument assembles the full file: header, every object in ascending
// ref order, a classic xref table, trailer, startxref and %%EOF. The byte
// offsets written into the xref section are measured from the same
// serializer output, so they are exact.
func WriteDocument(w io.Writer, doc *raw.Document) error {
	s := NewSerializer()
	var buf bytes.Buffer

	buf.Write(Header(doc.Version))

	refs := doc.SortedRefs()
	offsets := make(map[int]int64, len(refs))
	maxNum := 0
	for _, ref := range refs {
		offsets[ref.Num] = int64(buf.Len())
		b, err := s.SerializeObject(ref, doc.Objects[ref])
		if err != nil {
			return fmt.Errorf("serialize %s: %w", ref, err)
		}
		buf.Write(b)
		if ref.Num > maxNum {
			maxNum = ref.Num
		}
	}

	xrefOffset := int64(buf.Len())
	fmt.Fprintf(&buf, "xref\n0 %d\n", maxNum+1)
	buf.WriteString("0000000000 65535 f \n")
	for num := 1; num <= maxNum; num++ {
		if off, ok := offsets[num]; ok {
			fmt.Fprintf(&buf, "%010d 00000 n \n", off)
		} else {
			buf.WriteString("0000000000 65535 f \n")
		}
	}

	trailer := raw.Dict()
	trailer.Set(raw.NameLiteral("Size"), raw.NumberInt(int64(maxNum+1)))
	trailer.Set(raw.NameLiteral("Root"), raw.Ref(doc.Trailer.Root.Num, doc.Trailer.Root.Gen))
	if doc.Trailer.Info != nil {
		trailer.Set(raw.NameLiteral("Info"), raw.Ref(doc.Trailer.Info.Num, doc.Trailer.Info.Gen))
	}
	if doc.Trailer.Encrypt != nil {
		trailer.Set(raw.NameLiteral("Encrypt"), doc.Trailer.Encrypt)
	}
	buf.WriteString("trailer\n")
	if err := s.writeDict(&buf, trailer); err != nil {
		return err
	}
	fmt.Fprintf(&buf, "\nstartxref\n%d\n%%%%EOF\n", xrefOffset)

	_, err := w.Write(buf.Bytes())
	return err
}
