package raw

// Concrete object implementations.

// NameObj is a PDF name.
type NameObj struct{ Val string }

func (n NameObj) Type() string  { return "name" }
func (n NameObj) Value() string { return n.Val }

// NumberObj carries either an integer or a real value.
type NumberObj struct {
	I     int64
	F     float64
	IsInt bool
}

func (n NumberObj) Type() string { return "number" }
func (n NumberObj) Int() int64   { return n.I }
func (n NumberObj) Float() float64 {
	if n.IsInt {
		return float64(n.I)
	}
	return n.F
}
func (n NumberObj) IsInteger() bool { return n.IsInt }

// BoolObj is a PDF boolean.
type BoolObj struct{ V bool }

func (b BoolObj) Type() string { return "boolean" }
func (b BoolObj) Value() bool  { return b.V }

// NullObj is the PDF null object.
type NullObj struct{}

func (NullObj) Type() string { return "null" }

// StringObj is a PDF string. Hex marks the original notation so
// serialization can preserve it.
type StringObj struct {
	Bytes []byte
	Hex   bool
}

func (s StringObj) Type() string  { return "string" }
func (s StringObj) Value() []byte { return s.Bytes }
func (s StringObj) IsHex() bool   { return s.Hex }

// ArrayObj is an ordered sequence of objects.
type ArrayObj struct{ Items []Object }

func (a *ArrayObj) Type() string { return "array" }
func (a *ArrayObj) Get(i int) (Object, bool) {
	if i < 0 || i >= len(a.Items) {
		return nil, false
	}
	return a.Items[i], true
}
func (a *ArrayObj) Len() int        { return len(a.Items) }
func (a *ArrayObj) Append(o Object) { a.Items = append(a.Items, o) }

// DictObj maps name keys to objects. Keys are unordered and unique.
type DictObj struct{ KV map[string]Object }

func (d *DictObj) Type() string                { return "dict" }
func (d *DictObj) Get(key Name) (Object, bool) { o, ok := d.KV[key.Value()]; return o, ok }
func (d *DictObj) Set(key Name, value Object) {
	if d.KV == nil {
		d.KV = make(map[string]Object)
	}
	d.KV[key.Value()] = value
}
func (d *DictObj) Delete(key Name) { delete(d.KV, key.Value()) }
func (d *DictObj) Keys() []Name {
	keys := make([]Name, 0, len(d.KV))
	for k := range d.KV {
		keys = append(keys, NameObj{Val: k})
	}
	return keys
}
func (d *DictObj) Len() int { return len(d.KV) }

// StreamObj is a stream: dictionary plus payload. Data is mutated in place
// by sanitization stages; callers must keep the Length entry in sync.
type StreamObj struct {
	Dict *DictObj
	Data []byte
}

func (s *StreamObj) Type() string           { return "stream" }
func (s *StreamObj) Dictionary() Dictionary { return s.Dict }
func (s *StreamObj) RawData() []byte        { return s.Data }
func (s *StreamObj) Length() int64          { return int64(len(s.Data)) }

// SetData replaces the payload and updates the Length entry.
func (s *StreamObj) SetData(data []byte) {
	s.Data = data
	s.Dict.Set(NameObj{Val: "Length"}, NumberObj{I: int64(len(data)), IsInt: true})
}

// RefObj is an indirect reference.
type RefObj struct{ R ObjectRef }

func (r RefObj) Type() string   { return "ref" }
func (r RefObj) Ref() ObjectRef { return r.R }

// Helpers
func NameLiteral(v string) NameObj                    { return NameObj{Val: v} }
func NumberInt(i int64) NumberObj                     { return NumberObj{I: i, IsInt: true} }
func NumberFloat(f float64) NumberObj                 { return NumberObj{F: f} }
func Bool(v bool) BoolObj                             { return BoolObj{V: v} }
func Str(bytes []byte) StringObj                      { return StringObj{Bytes: bytes} }
func HexStr(bytes []byte) StringObj                   { return StringObj{Bytes: bytes, Hex: true} }
func NewArray(items ...Object) *ArrayObj              { return &ArrayObj{Items: items} }
func Dict() *DictObj                                  { return &DictObj{KV: make(map[string]Object)} }
func NewStream(dict *DictObj, data []byte) *StreamObj { return &StreamObj{Dict: dict, Data: data} }
func Ref(num, gen int) RefObj                         { return RefObj{R: ObjectRef{Num: num, Gen: gen}} }

// DictStr fetches a string-typed entry.
func DictStr(dict Dictionary, key string) ([]byte, bool) {
	if dict == nil {
		return nil, false
	}
	if v, ok := dict.Get(NameObj{Val: key}); ok {
		if s, ok := v.(String); ok {
			return s.Value(), true
		}
	}
	return nil, false
}

// DictName fetches a name-typed entry's value, or "".
func DictName(dict Dictionary, key string) string {
	if dict == nil {
		return ""
	}
	if v, ok := dict.Get(NameObj{Val: key}); ok {
		if n, ok := v.(Name); ok {
			return n.Value()
		}
	}
	return ""
}

// DictInt fetches an integer-typed entry.
func DictInt(dict Dictionary, key string) (int64, bool) {
	if dict == nil {
		return 0, false
	}
	if v, ok := dict.Get(NameObj{Val: key}); ok {
		if n, ok := v.(Number); ok {
			return n.Int(), true
		}
	}
	return 0, false
}
