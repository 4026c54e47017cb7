package reader

import (
	"fmt"
	"strconv"

	"pdfsan/ir/raw"
)

const maxDepth = 64

type lexer struct {
	data []byte
	pos  int
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

// skipWhitespace also swallows comments; a comment runs to end of line.
func (lx *lexer) skipWhitespace() {
	for lx.pos < len(lx.data) {
		c := lx.data[lx.pos]
		if isWhitespace(c) {
			lx.pos++
			continue
		}
		if c == '%' {
			for lx.pos < len(lx.data) && lx.data[lx.pos] != '\n' && lx.data[lx.pos] != '\r' {
				lx.pos++
			}
			continue
		}
		return
	}
}

// parseValue parses one object value at the current position.
func (lx *lexer) parseValue(depth int) (raw.Object, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("nesting exceeds %d at %d", maxDepth, lx.pos)
	}
	lx.skipWhitespace()
	if lx.pos >= len(lx.data) {
		return nil, fmt.Errorf("unexpected end of input")
	}
	c := lx.data[lx.pos]
	switch {
	case c == '<' && lx.hasAt(lx.pos, "<<"):
		return lx.parseDict(depth)
	case c == '<':
		return lx.parseHexString()
	case c == '(':
		return lx.parseLiteralString()
	case c == '[':
		return lx.parseArray(depth)
	case c == '/':
		return lx.parseName()
	case c == 't' && lx.hasAt(lx.pos, "true"):
		lx.pos += 4
		return raw.Bool(true), nil
	case c == 'f' && lx.hasAt(lx.pos, "false"):
		lx.pos += 5
		return raw.Bool(false), nil
	case c == 'n' && lx.hasAt(lx.pos, "null"):
		lx.pos += 4
		return raw.NullObj{}, nil
	case c == '+' || c == '-' || c == '.' || c >= '0' && c <= '9':
		return lx.parseNumberOrRef()
	}
	return nil, fmt.Errorf("unexpected byte %q at %d", c, lx.pos)
}

func (lx *lexer) parseDict(depth int) (raw.Object, error) {
	lx.pos += 2
	dict := raw.Dict()
	for {
		lx.skipWhitespace()
		if lx.hasAt(lx.pos, ">>") {
			lx.pos += 2
			return dict, nil
		}
		if lx.pos >= len(lx.data) {
			return nil, fmt.Errorf("unterminated dictionary")
		}
		if lx.data[lx.pos] != '/' {
			return nil, fmt.Errorf("dictionary key is not a name at %d", lx.pos)
		}
		key, err := lx.parseName()
		if err != nil {
			return nil, err
		}
		val, err := lx.parseValue(depth + 1)
		if err != nil {
			return nil, err
		}
		dict.Set(key, val)
	}
}

func (lx *lexer) parseArray(depth int) (raw.Object, error) {
	lx.pos++
	arr := raw.NewArray()
	for {
		lx.skipWhitespace()
		if lx.pos >= len(lx.data) {
			return nil, fmt.Errorf("unterminated array")
		}
		if lx.data[lx.pos] == ']' {
			lx.pos++
			return arr, nil
		}
		item, err := lx.parseValue(depth + 1)
		if err != nil {
			return nil, err
		}
		arr.Append(item)
	}
}

func (lx *lexer) parseName() (raw.NameObj, error) {
	lx.pos++
	var out []byte
	for lx.pos < len(lx.data) {
		c := lx.data[lx.pos]
		if isWhitespace(c) || isDelimiter(c) {
			break
		}
		if c == '#' && lx.pos+2 < len(lx.data) {
			if v, err := strconv.ParseUint(string(lx.data[lx.pos+1:lx.pos+3]), 16, 8); err == nil {
				out = append(out, byte(v))
				lx.pos += 3
				continue
			}
		}
		out = append(out, c)
		lx.pos++
	}
	return raw.NameLiteral(string(out)), nil
}

func (lx *lexer) parseLiteralString() (raw.Object, error) {
	lx.pos++
	var out []byte
	nesting := 1
	for lx.pos < len(lx.data) {
		c := lx.data[lx.pos]
		switch c {
		case '\\':
			if lx.pos+1 >= len(lx.data) {
				return nil, fmt.Errorf("dangling escape at %d", lx.pos)
			}
			lx.pos++
			e := lx.data[lx.pos]
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
			case '\r':
				if lx.pos+1 < len(lx.data) && lx.data[lx.pos+1] == '\n' {
					lx.pos++
				}
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for k := 0; k < 2 && lx.pos+1 < len(lx.data); k++ {
						nx := lx.data[lx.pos+1]
						if nx < '0' || nx > '7' {
							break
						}
						v = v*8 + int(nx-'0')
						lx.pos++
					}
					out = append(out, byte(v))
				} else {
					out = append(out, e)
				}
			}
			lx.pos++
		case '(':
			nesting++
			out = append(out, c)
			lx.pos++
		case ')':
			nesting--
			if nesting == 0 {
				lx.pos++
				return raw.Str(out), nil
			}
			out = append(out, c)
			lx.pos++
		default:
			out = append(out, c)
			lx.pos++
		}
	}
	return nil, fmt.Errorf("unterminated string")
}

func (lx *lexer) parseHexString() (raw.Object, error) {
	lx.pos++
	var digits []byte
	for lx.pos < len(lx.data) {
		c := lx.data[lx.pos]
		if c == '>' {
			lx.pos++
			if len(digits)%2 == 1 {
				digits = append(digits, '0')
			}
			out := make([]byte, len(digits)/2)
			for i := 0; i < len(out); i++ {
				v, err := strconv.ParseUint(string(digits[i*2:i*2+2]), 16, 8)
				if err != nil {
					return nil, fmt.Errorf("bad hex digit in string")
				}
				out[i] = byte(v)
			}
			return raw.HexStr(out), nil
		}
		if !isWhitespace(c) {
			digits = append(digits, c)
		}
		lx.pos++
	}
	return nil, fmt.Errorf("unterminated hex string")
}

// parseNumberOrRef disambiguates "N G R" references from plain numbers
// by lookahead; anything else leaves the position untouched past the
// first number.
func (lx *lexer) parseNumberOrRef() (raw.Object, error) {
	num, isInt, err := lx.scanNumber()
	if err != nil {
		return nil, err
	}
	if isInt && num.I >= 0 {
		save := lx.pos
		lx.skipWhitespace()
		if gen, ok := lx.tryInt(); ok {
			lx.skipWhitespace()
			if lx.pos < len(lx.data) && lx.data[lx.pos] == 'R' &&
				(lx.pos+1 == len(lx.data) || isWhitespace(lx.data[lx.pos+1]) || isDelimiter(lx.data[lx.pos+1])) {
				lx.pos++
				return raw.Ref(int(num.I), gen), nil
			}
		}
		lx.pos = save
	}
	return num, nil
}

func (lx *lexer) tryInt() (int, bool) {
	if lx.pos >= len(lx.data) || lx.data[lx.pos] < '0' || lx.data[lx.pos] > '9' {
		return 0, false
	}
	v, next, ok := readInt(lx.data, lx.pos)
	if !ok {
		return 0, false
	}
	if next < len(lx.data) && !isWhitespace(lx.data[next]) && !isDelimiter(lx.data[next]) {
		return 0, false
	}
	lx.pos = next
	return v, true
}

func (lx *lexer) scanNumber() (raw.NumberObj, bool, error) {
	start := lx.pos
	if lx.pos < len(lx.data) && (lx.data[lx.pos] == '+' || lx.data[lx.pos] == '-') {
		lx.pos++
	}
	isInt := true
	for lx.pos < len(lx.data) {
		c := lx.data[lx.pos]
		if c == '.' {
			isInt = false
			lx.pos++
			continue
		}
		if c < '0' || c > '9' {
			break
		}
		lx.pos++
	}
	text := string(lx.data[start:lx.pos])
	if text == "" || text == "+" || text == "-" {
		return raw.NumberObj{}, false, fmt.Errorf("malformed number at %d", start)
	}
	if isInt {
		v, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return raw.NumberObj{}, false, err
		}
		return raw.NumberObj{I: v, IsInt: true}, true, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return raw.NumberObj{}, false, err
	}
	return raw.NumberObj{F: f}, false, nil
}
