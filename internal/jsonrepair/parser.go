package jsonrepair

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// maxDepth bounds container nesting.
const maxDepth = 256

// parser is a forgiving recursive descent reader that emits canonical JSON.
// Every method either consumes input or reports that no value starts at the
// current position, so the loops always make progress.
type parser struct {
	src string
	pos int
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) peek() byte { return p.src[p.pos] }

func (p *parser) skipSpace() {
	for !p.eof() {
		switch p.peek() {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

// value parses one JSON value. It returns false when the value is missing,
// cut off before anything usable, or nested too deeply.
func (p *parser) value(depth int) (string, bool) {
	if depth > maxDepth {
		return "", false
	}
	p.skipSpace()
	if p.eof() {
		return "", false
	}
	switch c := p.peek(); {
	case c == '{':
		return p.object(depth)
	case c == '[':
		return p.array(depth)
	case c == '"' || c == '\'':
		s, _ := p.str()
		return s, true
	case c == '-' || (c >= '0' && c <= '9'):
		return p.number()
	case isWordByte(c):
		return p.word()
	default:
		return "", false
	}
}

func (p *parser) object(depth int) (string, bool) {
	var b strings.Builder
	b.WriteByte('{')
	p.pos++ // '{'
	members := 0
	for {
		p.skipSpace()
		if p.eof() {
			break
		}
		c := p.peek()
		if c == '}' || c == ']' {
			p.pos++
			break
		}
		if c == ',' {
			p.pos++
			continue
		}

		key, ok := p.key()
		if !ok {
			if p.eof() {
				break
			}
			p.pos++ // unexpected byte
			continue
		}

		p.skipSpace()
		if p.eof() {
			break
		}
		if p.peek() == ':' {
			p.pos++
		}
		val, ok := p.value(depth + 1)
		if !ok {
			if p.eof() {
				break
			}
			continue
		}

		if members > 0 {
			b.WriteByte(',')
		}
		b.WriteString(key)
		b.WriteByte(':')
		b.WriteString(val)
		members++
	}
	b.WriteByte('}')
	return b.String(), true
}

// key reads an object key, quoted or bare. A key cut off by the end of input
// is reported as missing.
func (p *parser) key() (string, bool) {
	c := p.peek()
	if c == '"' || c == '\'' {
		s, terminated := p.str()
		return s, terminated
	}
	start := p.pos
	for !p.eof() && isKeyByte(p.peek()) {
		p.pos++
	}
	if p.pos == start || p.eof() {
		return "", false
	}
	return quote(p.src[start:p.pos]), true
}

func (p *parser) array(depth int) (string, bool) {
	var b strings.Builder
	b.WriteByte('[')
	p.pos++ // '['
	items := 0
	for {
		p.skipSpace()
		if p.eof() {
			break
		}
		c := p.peek()
		if c == ']' || c == '}' {
			p.pos++
			break
		}
		if c == ',' {
			p.pos++
			continue
		}
		val, ok := p.value(depth + 1)
		if !ok {
			if p.eof() {
				break
			}
			p.pos++ // unexpected byte
			continue
		}
		if items > 0 {
			b.WriteByte(',')
		}
		b.WriteString(val)
		items++
	}
	b.WriteByte(']')
	return b.String(), true
}

// str reads a single or double quoted string and re-emits it double quoted.
// The second result is false when the input ended inside the string.
func (p *parser) str() (string, bool) {
	q := p.peek()
	p.pos++
	var b strings.Builder
	b.WriteByte('"')
	for !p.eof() {
		c := p.peek()
		switch {
		case c == q:
			p.pos++
			b.WriteByte('"')
			return b.String(), true
		case c == '\\':
			if esc, ok := p.escape(); ok {
				b.WriteString(esc)
			}
		case c == '"':
			// only reachable inside single quoted strings
			p.pos++
			b.WriteString(`\"`)
		case c == '\n':
			p.pos++
			b.WriteString(`\n`)
		case c == '\r':
			p.pos++
			b.WriteString(`\r`)
		case c == '\t':
			p.pos++
			b.WriteString(`\t`)
		case c < 0x20:
			p.pos++
		default:
			p.pos++
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String(), false
}

// escape consumes a backslash sequence. Incomplete or unknown sequences are dropped.
func (p *parser) escape() (string, bool) {
	p.pos++ // '\'
	if p.eof() {
		return "", false
	}
	c := p.peek()
	p.pos++
	switch c {
	case '"', '\\', '/', 'b', 'f', 'n', 'r', 't':
		return `\` + string(c), true
	case '\'':
		return "'", true
	case 'u':
		if p.pos+4 > len(p.src) {
			if isHex(p.src[p.pos:]) {
				// truncated mid escape
				p.pos = len(p.src)
			}
			return "", false
		}
		if !isHex(p.src[p.pos : p.pos+4]) {
			return "", false
		}
		seq := `\u` + p.src[p.pos:p.pos+4]
		p.pos += 4
		return seq, true
	default:
		return string(c), true
	}
}

// number reads a numeric token, trimming a dangling exponent or fraction
// marker left by truncation. Tokens that still do not form a JSON number, or
// that overflow a float64, are kept as strings.
func (p *parser) number() (string, bool) {
	start := p.pos
	for !p.eof() && isNumberByte(p.peek()) {
		p.pos++
	}
	tok := strings.TrimRight(p.src[start:p.pos], ".eE+-")
	if tok == "" {
		return "", false
	}
	if !json.Valid([]byte(tok)) {
		return quote(tok), true
	}
	if _, err := strconv.ParseFloat(tok, 64); errors.Is(err, strconv.ErrRange) {
		return quote(tok), true
	}
	return tok, true
}

// word reads a bare token: JSON literals, their Python spellings, prefixes
// of literals cut off by the end of input, or an unquoted string.
func (p *parser) word() (string, bool) {
	start := p.pos
	for !p.eof() && isWordByte(p.peek()) {
		p.pos++
	}
	w := p.src[start:p.pos]
	switch w {
	case "true", "True":
		return "true", true
	case "false", "False":
		return "false", true
	case "null", "None":
		return "null", true
	}
	if p.eof() {
		for _, lit := range []string{"true", "false", "null"} {
			if strings.HasPrefix(lit, w) {
				return lit, true
			}
		}
		// unquoted fragment at the truncation boundary
		return "", false
	}

	// unquoted string: extend up to the next structural delimiter
	for !p.eof() && !strings.ContainsRune(",}]\n", rune(p.peek())) {
		p.pos++
	}
	if p.eof() {
		return "", false
	}
	return quote(strings.TrimSpace(p.src[start:p.pos])), true
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func isWordByte(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKeyByte(c byte) bool {
	return isWordByte(c) || c == '-' || (c >= '0' && c <= '9')
}

func isNumberByte(c byte) bool {
	return (c >= '0' && c <= '9') || c == '-' || c == '+' || c == '.' || c == 'e' || c == 'E'
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}
