package jsdata

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// Object is a JS object literal with its keys kept in source order.
type Object struct {
	Keys   []string
	Fields map[string]any
}

// NewObject returns an empty Object.
func NewObject() *Object {
	return &Object{Fields: make(map[string]any)}
}

// Set adds or replaces a field. New keys are appended to Keys.
func (o *Object) Set(key string, v any) {
	if _, ok := o.Fields[key]; !ok {
		o.Keys = append(o.Keys, key)
	}
	o.Fields[key] = v
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (any, bool) {
	v, ok := o.Fields[key]
	return v, ok
}

// Var is one top-level `var NAME = value;` declaration.
type Var struct {
	Name  string
	Value any
}

// Script is the decoded content of a generated navigation file.
type Script struct {
	Vars []Var
}

// Lookup returns the value of the last declaration of name.
func (s *Script) Lookup(name string) (any, bool) {
	for i := len(s.Vars) - 1; i >= 0; i-- {
		if s.Vars[i].Name == name {
			return s.Vars[i].Value, true
		}
	}
	return nil, false
}

// LookupString returns a declaration that must hold a string.
func (s *Script) LookupString(name string) (string, bool) {
	v, ok := s.Lookup(name)
	if !ok {
		return "", false
	}
	str, ok := v.(string)
	return str, ok
}

// SyntaxError reports malformed input with its position.
type SyntaxError struct {
	Line int
	Col  int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("jsdata: line %d col %d: %s", e.Line, e.Col, e.Msg)
}

// Decode reads a sequence of variable declarations. Values decode to
// nil, bool, float64, string, []any or *Object.
func Decode(r io.Reader) (*Script, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return DecodeBytes(src)
}

// DecodeBytes is Decode over an in-memory source.
func DecodeBytes(src []byte) (*Script, error) {
	d := &decoder{src: src, line: 1, col: 1}
	script := &Script{}
	for {
		if err := d.skipSpace(); err != nil {
			return nil, err
		}
		if d.eof() {
			return script, nil
		}
		v, err := d.declaration()
		if err != nil {
			return nil, err
		}
		script.Vars = append(script.Vars, v)
	}
}

type decoder struct {
	src  []byte
	pos  int
	line int
	col  int
}

func (d *decoder) eof() bool {
	return d.pos >= len(d.src)
}

func (d *decoder) peek() byte {
	if d.eof() {
		return 0
	}
	return d.src[d.pos]
}

func (d *decoder) advance() byte {
	c := d.src[d.pos]
	d.pos++
	if c == '\n' {
		d.line++
		d.col = 1
	} else {
		d.col++
	}
	return c
}

func (d *decoder) errorf(format string, args ...any) error {
	return &SyntaxError{Line: d.line, Col: d.col, Msg: fmt.Sprintf(format, args...)}
}

// skipSpace consumes whitespace and comments.
func (d *decoder) skipSpace() error {
	for !d.eof() {
		c := d.peek()
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v':
			d.advance()
		case c == 0xEF && strings.HasPrefix(string(d.src[d.pos:]), "\ufeff"):
			d.pos += 3
		case c == '/' && d.pos+1 < len(d.src) && d.src[d.pos+1] == '/':
			for !d.eof() && d.peek() != '\n' {
				d.advance()
			}
		case c == '/' && d.pos+1 < len(d.src) && d.src[d.pos+1] == '*':
			d.advance()
			d.advance()
			closed := false
			for !d.eof() {
				if d.peek() == '*' && d.pos+1 < len(d.src) && d.src[d.pos+1] == '/' {
					d.advance()
					d.advance()
					closed = true
					break
				}
				d.advance()
			}
			if !closed {
				return d.errorf("unterminated block comment")
			}
		default:
			return nil
		}
	}
	return nil
}

func (d *decoder) expect(c byte) error {
	if err := d.skipSpace(); err != nil {
		return err
	}
	if d.eof() {
		return d.errorf("expected %q, got end of input", c)
	}
	if d.peek() != c {
		return d.errorf("expected %q, got %q", c, d.peek())
	}
	d.advance()
	return nil
}

func (d *decoder) declaration() (Var, error) {
	kw := d.identifier()
	switch kw {
	case "var", "let", "const":
	case "":
		return Var{}, d.errorf("expected declaration, got %q", d.peek())
	default:
		return Var{}, d.errorf("expected var declaration, got %q", kw)
	}
	if err := d.skipSpace(); err != nil {
		return Var{}, err
	}
	name := d.identifier()
	if name == "" {
		return Var{}, d.errorf("expected variable name")
	}
	if err := d.expect('='); err != nil {
		return Var{}, err
	}
	v, err := d.value()
	if err != nil {
		return Var{}, err
	}
	if err := d.skipSpace(); err != nil {
		return Var{}, err
	}
	if d.peek() == ';' {
		d.advance()
	}
	return Var{Name: name, Value: v}, nil
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func (d *decoder) identifier() string {
	if d.eof() || !isIdentStart(d.peek()) {
		return ""
	}
	start := d.pos
	for !d.eof() && isIdentPart(d.peek()) {
		d.advance()
	}
	return string(d.src[start:d.pos])
}

func (d *decoder) value() (any, error) {
	if err := d.skipSpace(); err != nil {
		return nil, err
	}
	if d.eof() {
		return nil, d.errorf("expected value, got end of input")
	}
	c := d.peek()
	switch {
	case c == '[':
		return d.array()
	case c == '{':
		return d.object()
	case c == '"' || c == '\'':
		return d.str()
	case c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9'):
		return d.number()
	case isIdentStart(c):
		line, col := d.line, d.col
		switch id := d.identifier(); id {
		case "null", "undefined":
			return nil, nil
		case "true":
			return true, nil
		case "false":
			return false, nil
		default:
			return nil, &SyntaxError{Line: line, Col: col, Msg: fmt.Sprintf("unexpected identifier %q", id)}
		}
	}
	return nil, d.errorf("unexpected character %q", c)
}

func (d *decoder) array() ([]any, error) {
	d.advance() // [
	out := []any{}
	for {
		if err := d.skipSpace(); err != nil {
			return nil, err
		}
		if d.eof() {
			return nil, d.errorf("unterminated array")
		}
		if d.peek() == ']' {
			d.advance()
			return out, nil
		}
		v, err := d.value()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		if err := d.skipSpace(); err != nil {
			return nil, err
		}
		switch d.peek() {
		case ',':
			d.advance()
		case ']':
		default:
			if d.eof() {
				return nil, d.errorf("unterminated array")
			}
			return nil, d.errorf("expected ',' or ']' in array, got %q", d.peek())
		}
	}
}

func (d *decoder) object() (*Object, error) {
	d.advance() // {
	obj := NewObject()
	for {
		if err := d.skipSpace(); err != nil {
			return nil, err
		}
		if d.eof() {
			return nil, d.errorf("unterminated object")
		}
		if d.peek() == '}' {
			d.advance()
			return obj, nil
		}
		key, err := d.key()
		if err != nil {
			return nil, err
		}
		if err := d.expect(':'); err != nil {
			return nil, err
		}
		v, err := d.value()
		if err != nil {
			return nil, err
		}
		obj.Set(key, v)
		if err := d.skipSpace(); err != nil {
			return nil, err
		}
		switch d.peek() {
		case ',':
			d.advance()
		case '}':
		default:
			if d.eof() {
				return nil, d.errorf("unterminated object")
			}
			return nil, d.errorf("expected ',' or '}' in object, got %q", d.peek())
		}
	}
}

func (d *decoder) key() (string, error) {
	c := d.peek()
	switch {
	case c == '"' || c == '\'':
		return d.str()
	case isIdentStart(c):
		return d.identifier(), nil
	case c >= '0' && c <= '9':
		start := d.pos
		for !d.eof() && d.peek() >= '0' && d.peek() <= '9' {
			d.advance()
		}
		return string(d.src[start:d.pos]), nil
	}
	return "", d.errorf("expected object key, got %q", c)
}

func (d *decoder) number() (float64, error) {
	line, col := d.line, d.col
	start := d.pos
	for !d.eof() {
		c := d.peek()
		if (c >= '0' && c <= '9') || c == '.' || c == '-' || c == '+' || c == 'e' || c == 'E' {
			d.advance()
			continue
		}
		break
	}
	f, err := strconv.ParseFloat(string(d.src[start:d.pos]), 64)
	if err != nil {
		return 0, &SyntaxError{Line: line, Col: col, Msg: fmt.Sprintf("invalid number %q", d.src[start:d.pos])}
	}
	return f, nil
}

func (d *decoder) str() (string, error) {
	quote := d.advance()
	var sb strings.Builder
	for {
		if d.eof() {
			return "", d.errorf("unterminated string")
		}
		c := d.advance()
		switch c {
		case quote:
			return sb.String(), nil
		case '\n':
			return "", d.errorf("newline in string literal")
		case '\\':
			if err := d.escape(&sb); err != nil {
				return "", err
			}
		default:
			sb.WriteByte(c)
		}
	}
}

func (d *decoder) escape(sb *strings.Builder) error {
	if d.eof() {
		return d.errorf("unterminated escape")
	}
	c := d.advance()
	switch c {
	case 'n':
		sb.WriteByte('\n')
	case 't':
		sb.WriteByte('\t')
	case 'r':
		sb.WriteByte('\r')
	case 'b':
		sb.WriteByte('\b')
	case 'f':
		sb.WriteByte('\f')
	case 'v':
		sb.WriteByte('\v')
	case '0':
		sb.WriteByte(0)
	case '\n':
		// line continuation
	case '\r':
		if d.peek() == '\n' {
			d.advance()
		}
	case 'x':
		r, err := d.hex(2)
		if err != nil {
			return err
		}
		sb.WriteRune(r)
	case 'u':
		r, err := d.hex(4)
		if err != nil {
			return err
		}
		if r >= 0xD800 && r < 0xDC00 && strings.HasPrefix(string(d.src[d.pos:]), `\u`) {
			// Only a low surrogate completes the pair; anything else is
			// left for the next escape.
			save := *d
			d.advance()
			d.advance()
			r2, err := d.hex(4)
			if err == nil && r2 >= 0xDC00 && r2 < 0xE000 {
				r = utf16.DecodeRune(r, r2)
			} else {
				*d = save
			}
		}
		if r == utf8.RuneError || utf16.IsSurrogate(r) {
			r = utf8.RuneError
		}
		sb.WriteRune(r)
	default:
		// \" \' \\ \/ and any other escaped character stand for themselves.
		sb.WriteByte(c)
	}
	return nil
}

func (d *decoder) hex(n int) (rune, error) {
	if d.pos+n > len(d.src) {
		return 0, d.errorf("short hex escape")
	}
	v, err := strconv.ParseUint(string(d.src[d.pos:d.pos+n]), 16, 32)
	if err != nil {
		return 0, d.errorf("invalid hex escape %q", d.src[d.pos:d.pos+n])
	}
	for range n {
		d.advance()
	}
	return rune(v), nil
}
