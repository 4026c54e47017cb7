package contentstream

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"

	"pdfsan/ir/raw"
)

// Encode renders operations back to content-stream bytes. The output is
// re-parseable by Tokenize and deterministic for a given operation list.
func Encode(ops []Operation) []byte {
	var buf bytes.Buffer
	for _, op := range ops {
		if len(op.Raw) > 0 {
			buf.Write(op.Raw)
			buf.WriteByte('\n')
			continue
		}
		for _, operand := range op.Operands {
			encodeValue(&buf, operand)
			buf.WriteByte(' ')
		}
		buf.WriteString(op.Operator)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

func encodeValue(buf *bytes.Buffer, obj raw.Object) {
	switch o := obj.(type) {
	case raw.NumberObj:
		if o.IsInt {
			buf.WriteString(strconv.FormatInt(o.I, 10))
		} else {
			buf.WriteString(strconv.FormatFloat(o.F, 'f', -1, 64))
		}
	case raw.NameObj:
		buf.WriteByte('/')
		buf.WriteString(o.Val)
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
			buf.WriteByte('(')
			for _, c := range o.Bytes {
				switch c {
				case '(', ')', '\\':
					buf.WriteByte('\\')
					buf.WriteByte(c)
				case '\n':
					buf.WriteString(`\n`)
				case '\r':
					buf.WriteString(`\r`)
				default:
					buf.WriteByte(c)
				}
			}
			buf.WriteByte(')')
		}
	case raw.BoolObj:
		if o.V {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case raw.NullObj:
		buf.WriteString("null")
	case *raw.ArrayObj:
		buf.WriteByte('[')
		for i, item := range o.Items {
			if i > 0 {
				buf.WriteByte(' ')
			}
			encodeValue(buf, item)
		}
		buf.WriteByte(']')
	case *raw.DictObj:
		buf.WriteString("<<")
		keys := make([]string, 0, len(o.KV))
		for k := range o.KV {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			buf.WriteByte('/')
			buf.WriteString(k)
			buf.WriteByte(' ')
			encodeValue(buf, o.KV[k])
		}
		buf.WriteString(">>")
	default:
		fmt.Fprintf(buf, "null")
	}
}

// operandsEqual compares two operand lists by their encoded form.
func operandsEqual(a, b []raw.Object) bool {
	if len(a) != len(b) {
		return false
	}
	var ba, bb bytes.Buffer
	for i := range a {
		ba.Reset()
		bb.Reset()
		encodeValue(&ba, a[i])
		encodeValue(&bb, b[i])
		if !bytes.Equal(ba.Bytes(), bb.Bytes()) {
			return false
		}
	}
	return true
}
