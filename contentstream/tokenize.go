package contentstream

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"pdfsan/ir/raw"
)

// Tokenize parses decoded content-stream bytes into an ordered operation
// list. Operands accumulate until an operator token closes them off.
func Tokenize(data []byte) ([]Operation, error) {
	t := &tokenizer{data: data}
	return t.run()
}

type tokenizer struct {
	data []byte
	pos  int
}

func (t *tokenizer) run() ([]Operation, error) {
	var ops []Operation
	var operands []raw.Object
	for {
		t.skipWhitespace()
		if t.pos >= len(t.data) {
			break
		}
		c := t.data[t.pos]
		switch {
		case c == '%':
			start := t.pos
			t.skipToEOL()
			ops = append(ops, Operation{Operator: OpComment, Raw: t.data[start:t.pos]})
		case c == '/':
			name, err := t.readName()
			if err != nil {
				return nil, err
			}
			operands = append(operands, name)
		case c == '(':
			s, err := t.readLiteralString()
			if err != nil {
				return nil, err
			}
			operands = append(operands, s)
		case c == '<' && t.peek(1) == '<':
			d, err := t.readDict()
			if err != nil {
				return nil, err
			}
			operands = append(operands, d)
		case c == '<':
			s, err := t.readHexString()
			if err != nil {
				return nil, err
			}
			operands = append(operands, s)
		case c == '[':
			a, err := t.readArray()
			if err != nil {
				return nil, err
			}
			operands = append(operands, a)
		case c == ']' || c == '>' || c == '}' || c == ')':
			return nil, fmt.Errorf("unexpected %q at offset %d", c, t.pos)
		case c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9'):
			n, err := t.readNumber()
			if err != nil {
				return nil, err
			}
			operands = append(operands, n)
		default:
			word := t.readRegular()
			if word == "" {
				return nil, fmt.Errorf("unexpected byte 0x%02x at offset %d", c, t.pos)
			}
			switch word {
			case "true":
				operands = append(operands, raw.Bool(true))
			case "false":
				operands = append(operands, raw.Bool(false))
			case "null":
				operands = append(operands, raw.NullObj{})
			case "BI":
				img, err := t.readInlineImage()
				if err != nil {
					return nil, err
				}
				ops = append(ops, img)
				operands = nil
			default:
				ops = append(ops, Operation{Operator: word, Operands: operands})
				operands = nil
			}
		}
	}
	if len(operands) > 0 {
		return nil, fmt.Errorf("%d dangling operands at end of stream", len(operands))
	}
	return ops, nil
}

func isWhitespace(c byte) bool {
	switch c {
	case 0, '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func (t *tokenizer) peek(ahead int) byte {
	if t.pos+ahead >= len(t.data) {
		return 0
	}
	return t.data[t.pos+ahead]
}

func (t *tokenizer) skipWhitespace() {
	for t.pos < len(t.data) && isWhitespace(t.data[t.pos]) {
		t.pos++
	}
}

func (t *tokenizer) skipToEOL() {
	for t.pos < len(t.data) && t.data[t.pos] != '\n' && t.data[t.pos] != '\r' {
		t.pos++
	}
}

func (t *tokenizer) readRegular() string {
	start := t.pos
	for t.pos < len(t.data) && !isWhitespace(t.data[t.pos]) && !isDelimiter(t.data[t.pos]) {
		t.pos++
	}
	return string(t.data[start:t.pos])
}

func (t *tokenizer) readName() (raw.NameObj, error) {
	t.pos++ // consume '/'
	var out []byte
	for t.pos < len(t.data) && !isWhitespace(t.data[t.pos]) && !isDelimiter(t.data[t.pos]) {
		c := t.data[t.pos]
		if c == '#' && t.pos+2 < len(t.data) {
			if v, err := strconv.ParseUint(string(t.data[t.pos+1:t.pos+3]), 16, 8); err == nil {
				out = append(out, byte(v))
				t.pos += 3
				continue
			}
		}
		out = append(out, c)
		t.pos++
	}
	return raw.NameObj{Val: string(out)}, nil
}

func (t *tokenizer) readNumber() (raw.NumberObj, error) {
	start := t.pos
	if c := t.data[t.pos]; c == '+' || c == '-' {
		t.pos++
	}
	isReal := false
	for t.pos < len(t.data) {
		c := t.data[t.pos]
		if c == '.' {
			isReal = true
			t.pos++
			continue
		}
		if c < '0' || c > '9' {
			break
		}
		t.pos++
	}
	text := string(t.data[start:t.pos])
	if isReal {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return raw.NumberObj{}, fmt.Errorf("bad number %q: %w", text, err)
		}
		return raw.NumberFloat(f), nil
	}
	i, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return raw.NumberObj{}, fmt.Errorf("bad number %q: %w", text, err)
	}
	return raw.NumberInt(i), nil
}

func (t *tokenizer) readLiteralString() (raw.StringObj, error) {
	t.pos++ // consume '('
	var out []byte
	depth := 1
	for t.pos < len(t.data) {
		c := t.data[t.pos]
		switch c {
		case '\\':
			t.pos++
			if t.pos >= len(t.data) {
				return raw.StringObj{}, errors.New("unterminated string escape")
			}
			e := t.data[t.pos]
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '(', ')', '\\':
				out = append(out, e)
			case '\n':
				// line continuation
			default:
				if e >= '0' && e <= '7' {
					val := int(e - '0')
					for k := 0; k < 2 && t.pos+1 < len(t.data); k++ {
						nx := t.data[t.pos+1]
						if nx < '0' || nx > '7' {
							break
						}
						val = val*8 + int(nx-'0')
						t.pos++
					}
					out = append(out, byte(val))
				} else {
					out = append(out, e)
				}
			}
			t.pos++
		case '(':
			depth++
			out = append(out, c)
			t.pos++
		case ')':
			depth--
			if depth == 0 {
				t.pos++
				return raw.Str(out), nil
			}
			out = append(out, c)
			t.pos++
		default:
			out = append(out, c)
			t.pos++
		}
	}
	return raw.StringObj{}, errors.New("unterminated literal string")
}

func (t *tokenizer) readHexString() (raw.StringObj, error) {
	t.pos++ // consume '<'
	var digits []byte
	for t.pos < len(t.data) {
		c := t.data[t.pos]
		if c == '>' {
			t.pos++
			if len(digits)%2 == 1 {
				digits = append(digits, '0')
			}
			out := make([]byte, len(digits)/2)
			for i := 0; i < len(out); i++ {
				v, err := strconv.ParseUint(string(digits[2*i:2*i+2]), 16, 8)
				if err != nil {
					return raw.StringObj{}, err
				}
				out[i] = byte(v)
			}
			return raw.HexStr(out), nil
		}
		if !isWhitespace(c) {
			digits = append(digits, c)
		}
		t.pos++
	}
	return raw.StringObj{}, errors.New("unterminated hex string")
}

func (t *tokenizer) readArray() (*raw.ArrayObj, error) {
	t.pos++ // consume '['
	arr := raw.NewArray()
	for {
		t.skipWhitespace()
		if t.pos >= len(t.data) {
			return nil, errors.New("unterminated array")
		}
		if t.data[t.pos] == ']' {
			t.pos++
			return arr, nil
		}
		obj, err := t.readValue()
		if err != nil {
			return nil, err
		}
		arr.Append(obj)
	}
}

func (t *tokenizer) readDict() (*raw.DictObj, error) {
	t.pos += 2 // consume '<<'
	dict := raw.Dict()
	for {
		t.skipWhitespace()
		if t.pos >= len(t.data) {
			return nil, errors.New("unterminated dictionary")
		}
		if t.data[t.pos] == '>' && t.peek(1) == '>' {
			t.pos += 2
			return dict, nil
		}
		if t.data[t.pos] != '/' {
			return nil, fmt.Errorf("dictionary key must be a name at offset %d", t.pos)
		}
		key, err := t.readName()
		if err != nil {
			return nil, err
		}
		t.skipWhitespace()
		val, err := t.readValue()
		if err != nil {
			return nil, err
		}
		dict.Set(key, val)
	}
}

// readValue parses one operand value (used inside arrays and dicts).
func (t *tokenizer) readValue() (raw.Object, error) {
	if t.pos >= len(t.data) {
		return nil, errors.New("unexpected end of stream")
	}
	c := t.data[t.pos]
	switch {
	case c == '/':
		return t.readName()
	case c == '(':
		return t.readLiteralString()
	case c == '<' && t.peek(1) == '<':
		return t.readDict()
	case c == '<':
		return t.readHexString()
	case c == '[':
		return t.readArray()
	case c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9'):
		return t.readNumber()
	default:
		word := t.readRegular()
		switch word {
		case "true":
			return raw.Bool(true), nil
		case "false":
			return raw.Bool(false), nil
		case "null":
			return raw.NullObj{}, nil
		}
		return nil, fmt.Errorf("unexpected token %q in value position", word)
	}
}

// readInlineImage captures BI ... ID <binary> EI verbatim. The payload is
// opaque to the sanitizer.
func (t *tokenizer) readInlineImage() (Operation, error) {
	start := t.pos - 2 // include "BI"
	id := bytes.Index(t.data[t.pos:], []byte("ID"))
	if id < 0 {
		return Operation{}, errors.New("inline image missing ID")
	}
	scan := t.pos + id + 2
	for {
		ei := bytes.Index(t.data[scan:], []byte("EI"))
		if ei < 0 {
			return Operation{}, errors.New("inline image missing EI")
		}
		end := scan + ei
		// EI must be delimited to count as the terminator.
		if (end == 0 || isWhitespace(t.data[end-1])) &&
			(end+2 >= len(t.data) || isWhitespace(t.data[end+2]) || isDelimiter(t.data[end+2])) {
			t.pos = end + 2
			return Operation{Operator: OpInlineImage, Raw: t.data[start:t.pos]}, nil
		}
		scan = end + 2
	}
}
