package writer

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"

	"pdfsan/ir/raw"
)

// Serializer produces the canonical byte form of objects. It is the single
// source of truth for object sizes: cross-reference offsets are derived by
// measuring its output, never estimated separately.
type Serializer struct{}

func NewSerializer() *Serializer { return &Serializer{} }

// SerializeObject renders "N G obj ... endobj" for one indirect object.
// Output is deterministic: dictionary keys are emitted in sorted order.
func (s *Serializer) SerializeObject(ref raw.ObjectRef, obj raw.Object) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d %d obj\n", ref.Num, ref.Gen)
	if err := s.writeValue(&buf, obj); err != nil {
		return nil, err
	}
	buf.WriteString("\nendobj\n")
	return buf.Bytes(), nil
}

// Measure returns the exact serialized size of one indirect object.
func (s *Serializer) Measure(ref raw.ObjectRef, obj raw.Object) (int64, error) {
	b, err := s.SerializeObject(ref, obj)
	if err != nil {
		return 0, err
	}
	return int64(len(b)), nil
}

func (s *Serializer) writeValue(buf *bytes.Buffer, obj raw.Object) error {
	switch o := obj.(type) {
	case nil:
		buf.WriteString("null")
	case raw.NullObj:
		buf.WriteString("null")
	case raw.BoolObj:
		if o.V {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case raw.NumberObj:
		if o.IsInt {
			buf.WriteString(strconv.FormatInt(o.I, 10))
		} else {
			buf.WriteString(strconv.FormatFloat(o.F, 'f', -1, 64))
		}
	case raw.NameObj:
		writeName(buf, o.Val)
	case raw.StringObj:
		if o.Hex {
			buf.WriteByte('<')
			const digits = "0123456789ABCDEF"
			for _, b := range o.Bytes {
				buf.WriteByte(digits[b>>4])
				buf.WriteByte(digits[b&0xF])
			}
			buf.WriteByte('>')
		} else {
			writeLiteralString(buf, o.Bytes)
		}
	case raw.RefObj:
		fmt.Fprintf(buf, "%d %d R", o.R.Num, o.R.Gen)
	case *raw.ArrayObj:
		buf.WriteByte('[')
		for i, item := range o.Items {
			if i > 0 {
				buf.WriteByte(' ')
			}
			if err := s.writeValue(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case *raw.DictObj:
		if err := s.writeDict(buf, o); err != nil {
			return err
		}
	case *raw.StreamObj:
		if err := s.writeDict(buf, o.Dict); err != nil {
			return err
		}
		buf.WriteString("\nstream\n")
		buf.Write(o.Data)
		buf.WriteString("\nendstream")
	default:
		return fmt.Errorf("cannot serialize object of type %q", obj.Type())
	}
	return nil
}

func (s *Serializer) writeDict(buf *bytes.Buffer, d *raw.DictObj) error {
	buf.WriteString("<<")
	keys := make([]string, 0, len(d.KV))
	for k := range d.KV {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		buf.WriteByte(' ')
		writeName(buf, k)
		buf.WriteByte(' ')
		if err := s.writeValue(buf, d.KV[k]); err != nil {
			return err
		}
	}
	buf.WriteString(" >>")
	return nil
}

func writeName(buf *bytes.Buffer, name string) {
	buf.WriteByte('/')
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c <= 32 || c >= 127 || bytes.IndexByte([]byte("()<>[]{}/%#"), c) >= 0 {
			fmt.Fprintf(buf, "#%02X", c)
			continue
		}
		buf.WriteByte(c)
	}
}

func writeLiteralString(buf *bytes.Buffer, data []byte) {
	buf.WriteByte('(')
	for _, c := range data {
		switch c {
		case '(', ')', '\\':
			buf.WriteByte('\\')
			buf.WriteByte(c)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			buf.WriteByte(c)
		}
	}
	buf.WriteByte(')')
}
