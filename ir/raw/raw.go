package raw

import (
	"fmt"
	"sort"
)

// ObjectRef uniquely identifies an indirect PDF object. A ref is never
// reused for a different logical object within one Document snapshot.
type ObjectRef struct {
	Num int
	Gen int
}

func (r ObjectRef) String() string { return fmt.Sprintf("%d %d R", r.Num, r.Gen) }

// Less orders refs by number, then generation. All graph stages that need a
// deterministic iteration order sort with it.
func (r ObjectRef) Less(other ObjectRef) bool {
	if r.Num != other.Num {
		return r.Num < other.Num
	}
	return r.Gen < other.Gen
}

// Object is the base interface for all PDF objects.
type Object interface {
	Type() string
}

// Dictionary represents a PDF dictionary object.
type Dictionary interface {
	Object
	Get(key Name) (Object, bool)
	Set(key Name, value Object)
	Delete(key Name)
	Keys() []Name
	Len() int
}

// Array represents a PDF array object.
type Array interface {
	Object
	Get(index int) (Object, bool)
	Len() int
	Append(obj Object)
}

// Stream represents a PDF stream: a dictionary plus a byte payload.
type Stream interface {
	Object
	Dictionary() Dictionary
	RawData() []byte
	Length() int64
}

// Name represents a PDF name object.
type Name interface {
	Object
	Value() string
}

// String represents a PDF string (literal or hex).
type String interface {
	Object
	Value() []byte
	IsHex() bool
}

// Number represents a PDF numeric value.
type Number interface {
	Object
	Int() int64
	Float() float64
	IsInteger() bool
}

// Boolean represents a PDF boolean.
type Boolean interface {
	Object
	Value() bool
}

// Null represents the PDF null object.
type Null interface{ Object }

// Reference is a non-owning logical pointer to an indirect object.
type Reference interface {
	Object
	Ref() ObjectRef
}

// EntryType classifies a cross-reference entry.
type EntryType int

const (
	EntryInUse EntryType = iota
	EntryFree
)

// XRefEntry maps one object to its byte offset in a fixed serialization of
// the document. Any structural mutation of the object map invalidates the
// offset.
type XRefEntry struct {
	Ref    ObjectRef
	Offset int64
	Type   EntryType
}

// XRefTable is one cross-reference section in final numbering order.
type XRefTable struct {
	Entries []XRefEntry
}

// Lookup returns the entry for an object number, if present.
func (t *XRefTable) Lookup(objNum int) (XRefEntry, bool) {
	for _, e := range t.Entries {
		if e.Ref.Num == objNum {
			return e, true
		}
	}
	return XRefEntry{}, false
}

// Trailer names the document's entry points.
type Trailer struct {
	Root    ObjectRef
	Info    *ObjectRef
	Encrypt Object // direct dict, Reference, or nil
}

// DocumentMetadata carries the Info-dictionary fields commonly present in a
// parsed document. Sanitization clears it wholesale.
type DocumentMetadata struct {
	Producer string
	Creator  string
	Title    string
	Author   string
	Subject  string
	Keywords []string
}

// Document is the arena for all indirect objects. Objects are owned
// exclusively by the map; cross-object links are Reference values, never
// in-memory pointers, so cyclic graphs are traversed with explicit
// visited-sets.
type Document struct {
	Objects  map[ObjectRef]Object
	Trailer  Trailer
	XRef     []XRefTable
	Version  string // e.g. "1.7"
	Metadata *DocumentMetadata
}

// NewDocument returns an empty document with an initialized object map.
func NewDocument() *Document {
	return &Document{Objects: make(map[ObjectRef]Object)}
}

// Resolve follows a Reference to its object. Non-reference objects are
// returned unchanged. A dangling reference resolves to nil, false.
func (d *Document) Resolve(obj Object) (Object, bool) {
	ref, ok := obj.(Reference)
	if !ok {
		return obj, obj != nil
	}
	target, ok := d.Objects[ref.Ref()]
	return target, ok
}

// SortedRefs returns every object ref in ascending (Num, Gen) order.
func (d *Document) SortedRefs() []ObjectRef {
	refs := make([]ObjectRef, 0, len(d.Objects))
	for ref := range d.Objects {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Less(refs[j]) })
	return refs
}

// EncryptRef returns the ref of the trailer's Encrypt dictionary when it is
// held indirectly.
func (d *Document) EncryptRef() (ObjectRef, bool) {
	if ref, ok := d.Trailer.Encrypt.(Reference); ok {
		return ref.Ref(), true
	}
	return ObjectRef{}, false
}

// EncryptDict resolves the trailer's Encrypt entry to a dictionary, direct
// or indirect.
func (d *Document) EncryptDict() (Dictionary, bool) {
	obj := d.Trailer.Encrypt
	if obj == nil {
		return nil, false
	}
	if ref, ok := obj.(Reference); ok {
		obj = d.Objects[ref.Ref()]
	}
	dict, ok := obj.(Dictionary)
	return dict, ok
}
