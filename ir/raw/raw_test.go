package raw

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSortedRefs(t *testing.T) {
	doc := NewDocument()
	doc.Objects[ObjectRef{Num: 3, Gen: 0}] = NullObj{}
	doc.Objects[ObjectRef{Num: 1, Gen: 1}] = NullObj{}
	doc.Objects[ObjectRef{Num: 1, Gen: 0}] = NullObj{}
	doc.Objects[ObjectRef{Num: 2, Gen: 0}] = NullObj{}

	got := doc.SortedRefs()
	want := []ObjectRef{{Num: 1}, {Num: 1, Gen: 1}, {Num: 2}, {Num: 3}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SortedRefs mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve(t *testing.T) {
	doc := NewDocument()
	target := NewArray(NumberInt(1))
	doc.Objects[ObjectRef{Num: 5, Gen: 0}] = target

	if got, ok := doc.Resolve(Ref(5, 0)); !ok || got != Object(target) {
		t.Fatalf("Resolve(5 0 R) = %v, %v; want target array", got, ok)
	}
	if _, ok := doc.Resolve(Ref(9, 0)); ok {
		t.Fatal("dangling reference resolved")
	}
	// Direct objects resolve to themselves.
	n := NumberInt(7)
	if got, ok := doc.Resolve(n); !ok || got != Object(n) {
		t.Fatalf("Resolve(direct) = %v, %v", got, ok)
	}
}

func TestEncryptDict(t *testing.T) {
	doc := NewDocument()
	enc := Dict()
	enc.Set(NameLiteral("Filter"), NameLiteral("Standard"))

	doc.Trailer.Encrypt = enc
	if d, ok := doc.EncryptDict(); !ok || d.Len() != 1 {
		t.Fatal("direct encrypt dict not resolved")
	}

	doc.Objects[ObjectRef{Num: 4, Gen: 0}] = enc
	doc.Trailer.Encrypt = Ref(4, 0)
	if d, ok := doc.EncryptDict(); !ok || d.Len() != 1 {
		t.Fatal("indirect encrypt dict not resolved")
	}
	if ref, ok := doc.EncryptRef(); !ok || ref.Num != 4 {
		t.Fatalf("EncryptRef = %v, %v", ref, ok)
	}
}

func TestStreamSetData(t *testing.T) {
	s := NewStream(Dict(), []byte("abc"))
	s.SetData([]byte("abcdef"))
	if s.Length() != 6 {
		t.Fatalf("Length() = %d, want 6", s.Length())
	}
	if n, ok := DictInt(s.Dict, "Length"); !ok || n != 6 {
		t.Fatalf("dict Length = %d, %v", n, ok)
	}
}
