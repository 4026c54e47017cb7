package sanitize

import (
	"bytes"
	"encoding/binary"
	"testing"

	"pdfsan/ir/raw"
)

func TestStripMetadataEnumeratedKeys(t *testing.T) {
	doc := raw.NewDocument()
	dict := raw.Dict()
	dict.Set(raw.NameLiteral("Metadata"), raw.Ref(9, 0))
	dict.Set(raw.NameLiteral("Info"), raw.Str([]byte("x")))
	dict.Set(raw.NameLiteral("Unrelated"), raw.NumberInt(1))
	doc.Objects[raw.ObjectRef{Num: 1}] = dict
	doc.Metadata = &raw.DocumentMetadata{Producer: "tool"}

	removed := StripMetadata(doc)
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	if doc.Metadata != nil {
		t.Error("document metadata not cleared")
	}
	if _, ok := dict.Get(raw.NameLiteral("Unrelated")); !ok {
		t.Error("unrelated key removed")
	}
	if dict.Len() != 1 {
		t.Errorf("dict keys left = %d, want 1", dict.Len())
	}
}

func TestStripMetadataNested(t *testing.T) {
	doc := raw.NewDocument()
	inner := raw.Dict()
	inner.Set(raw.NameLiteral("PieceInfo"), raw.Dict())
	outer := raw.Dict()
	outer.Set(raw.NameLiteral("Child"), inner)
	streamDict := raw.Dict()
	streamDict.Set(raw.NameLiteral("Metadata"), raw.Ref(5, 0))
	doc.Objects[raw.ObjectRef{Num: 1}] = outer
	doc.Objects[raw.ObjectRef{Num: 2}] = raw.NewStream(streamDict, nil)

	if removed := StripMetadata(doc); removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
}

func TestCleanJPEGStripsAppSegments(t *testing.T) {
	// SOI, APP1 (EXIF-ish), DQT-ish segment, EOI, trailing junk.
	var img []byte
	img = append(img, 0xFF, 0xD8)
	app1 := []byte("Exif\x00\x00secret")
	img = append(img, 0xFF, 0xE1)
	img = binary.BigEndian.AppendUint16(img, uint16(len(app1)+2))
	img = append(img, app1...)
	img = append(img, 0xFF, 0xDB, 0x00, 0x04, 0x01, 0x02)
	img = append(img, 0xFF, 0xD9)
	img = append(img, []byte("trailing payload")...)

	out := cleanJPEG(img)
	if bytes.Contains(out, []byte("secret")) {
		t.Error("APP1 metadata survived")
	}
	if bytes.Contains(out, []byte("trailing")) {
		t.Error("post-EOI trailer survived")
	}
	if !bytes.Contains(out, []byte{0xFF, 0xDB}) {
		t.Error("structural segment removed")
	}
	if !bytes.HasSuffix(out, []byte{0xFF, 0xD9}) {
		t.Error("EOI missing")
	}
}

func TestCleanPNGDropsTextChunks(t *testing.T) {
	chunk := func(typ string, data []byte) []byte {
		var b []byte
		b = binary.BigEndian.AppendUint32(b, uint32(len(data)))
		b = append(b, typ...)
		b = append(b, data...)
		b = append(b, 0, 0, 0, 0) // crc, unchecked by the cleaner
		return b
	}
	var img []byte
	img = append(img, 0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A)
	img = append(img, chunk("IHDR", make([]byte, 13))...)
	img = append(img, chunk("tEXt", []byte("Author\x00me"))...)
	img = append(img, chunk("IDAT", []byte{1, 2, 3})...)
	img = append(img, chunk("IEND", nil)...)

	out := cleanPNG(img)
	if bytes.Contains(out, []byte("Author")) {
		t.Error("tEXt chunk survived")
	}
	for _, keep := range []string{"IHDR", "IDAT", "IEND"} {
		if !bytes.Contains(out, []byte(keep)) {
			t.Errorf("%s chunk removed", keep)
		}
	}
}

func TestCleanBinaryOnlyTargetsBinarySubtypes(t *testing.T) {
	doc := raw.NewDocument()
	mkStream := func(subtype string, data []byte) *raw.StreamObj {
		d := raw.Dict()
		d.Set(raw.NameLiteral("Subtype"), raw.NameLiteral(subtype))
		return raw.NewStream(d, data)
	}
	jpeg := append([]byte{0xFF, 0xD8, 0xFF, 0xD9}, []byte("junk")...)
	doc.Objects[raw.ObjectRef{Num: 1}] = mkStream("Image", append([]byte{}, jpeg...))
	doc.Objects[raw.ObjectRef{Num: 2}] = mkStream("TrueType", append([]byte{}, jpeg...))

	removed := CleanBinary(doc)
	if removed != 4 {
		t.Errorf("removed = %d, want 4", removed)
	}
	if got := doc.Objects[raw.ObjectRef{Num: 2}].(*raw.StreamObj).Data; len(got) != len(jpeg) {
		t.Error("non-binary subtype was modified")
	}
}

func TestCleanBinaryStrings(t *testing.T) {
	doc := raw.NewDocument()
	doc.Objects[raw.ObjectRef{Num: 1}] = raw.Str([]byte("ok\x00\x01 text\twith\nws"))
	doc.Objects[raw.ObjectRef{Num: 2}] = raw.Str([]byte("clean"))

	removed := CleanBinary(doc)
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	got := doc.Objects[raw.ObjectRef{Num: 1}].(raw.StringObj).Bytes
	if string(got) != "ok text\twith\nws" {
		t.Errorf("cleaned string = %q", got)
	}
}

func TestCleanBinaryNestedStrings(t *testing.T) {
	doc := raw.NewDocument()
	inner := raw.Dict()
	inner.Set(raw.NameLiteral("T"), raw.Str([]byte("field\x00name")))
	outer := raw.Dict()
	outer.Set(raw.NameLiteral("V"), inner)
	outer.Set(raw.NameLiteral("Opt"), raw.NewArray(raw.Str([]byte("a\x01b"))))
	doc.Objects[raw.ObjectRef{Num: 1}] = outer

	sd := raw.Dict()
	sd.Set(raw.NameLiteral("Title"), raw.Str([]byte("x\x02y")))
	doc.Objects[raw.ObjectRef{Num: 2}] = raw.NewStream(sd, []byte("payload"))

	removed := CleanBinary(doc)
	if removed != 3 {
		t.Errorf("removed = %d, want 3", removed)
	}
	v, _ := inner.Get(raw.NameLiteral("T"))
	if got := v.(raw.StringObj).Bytes; string(got) != "fieldname" {
		t.Errorf("dict string = %q", got)
	}
	arrObj, _ := outer.Get(raw.NameLiteral("Opt"))
	item, _ := arrObj.(*raw.ArrayObj).Get(0)
	if got := item.(raw.StringObj).Bytes; string(got) != "ab" {
		t.Errorf("array string = %q", got)
	}
	title, _ := sd.Get(raw.NameLiteral("Title"))
	if got := title.(raw.StringObj).Bytes; string(got) != "xy" {
		t.Errorf("stream dict string = %q", got)
	}
}

func TestStripHidden(t *testing.T) {
	doc := raw.NewDocument()
	catalog := raw.Dict()
	catalog.Set(raw.NameLiteral("OCProperties"), raw.Dict())
	catalog.Set(raw.NameLiteral("Pages"), raw.Ref(2, 0))
	doc.Objects[raw.ObjectRef{Num: 1, Gen: 0}] = catalog

	annot := raw.Dict()
	annot.Set(raw.NameLiteral("RC"), raw.Str([]byte("<span>rich</span>")))
	annot.Set(raw.NameLiteral("Contents"), raw.Str([]byte("visible")))
	doc.Objects[raw.ObjectRef{Num: 2, Gen: 0}] = annot

	if got := StripHidden(doc); got != 2 {
		t.Fatalf("StripHidden = %d, want 2", got)
	}
	if _, ok := catalog.Get(raw.NameLiteral("OCProperties")); ok {
		t.Fatal("OCProperties survived")
	}
	if _, ok := catalog.Get(raw.NameLiteral("Pages")); !ok {
		t.Fatal("Pages removed")
	}
	if _, ok := annot.Get(raw.NameLiteral("Contents")); !ok {
		t.Fatal("Contents removed")
	}
}
