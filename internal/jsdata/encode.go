package jsdata

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Encode writes `var name =` followed by value in the layout Doxygen uses
// for its navigation files.
func Encode(w io.Writer, name string, value any) error {
	return EncodeScript(w, &Script{Vars: []Var{{Name: name, Value: value}}})
}

// EncodeScript writes every declaration of s, separated by blank lines.
func EncodeScript(w io.Writer, s *Script) error {
	bw := bufio.NewWriter(w)
	for i, v := range s.Vars {
		if i > 0 {
			bw.WriteString("\n")
		}
		switch v.Value.(type) {
		case []any, *Object:
			fmt.Fprintf(bw, "var %s =\n", v.Name)
			if err := writeValue(bw, v.Value, 0); err != nil {
				return fmt.Errorf("encode %s: %w", v.Name, err)
			}
		default:
			fmt.Fprintf(bw, "var %s = ", v.Name)
			if err := writeValue(bw, v.Value, 0); err != nil {
				return fmt.Errorf("encode %s: %w", v.Name, err)
			}
		}
		bw.WriteString(";\n")
	}
	return bw.Flush()
}

func writeValue(w *bufio.Writer, v any, depth int) error {
	switch x := v.(type) {
	case nil:
		w.WriteString("null")
	case bool:
		w.WriteString(strconv.FormatBool(x))
	case int:
		w.WriteString(strconv.Itoa(x))
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("unsupported number %v", x)
		}
		w.WriteString(strconv.FormatFloat(x, 'f', -1, 64))
	case string:
		w.WriteString(Quote(x))
	case []int:
		w.WriteByte('[')
		for i, n := range x {
			if i > 0 {
				w.WriteByte(',')
			}
			w.WriteString(strconv.Itoa(n))
		}
		w.WriteByte(']')
	case []any:
		return writeArray(w, x, depth)
	case *Object:
		return writeObject(w, x, depth)
	default:
		return fmt.Errorf("unsupported type %T", v)
	}
	return nil
}

// writeArray prints scalar-only arrays inline and nests composite ones,
// so `[ "label", "page.html", [ ...children... ] ]` keeps its children
// indented on their own lines.
func writeArray(w *bufio.Writer, arr []any, depth int) error {
	if len(arr) == 0 {
		w.WriteString("[]")
		return nil
	}
	last := len(arr) - 1
	composite := -1
	for i, el := range arr {
		if isComposite(el) {
			composite = i
			break
		}
	}
	switch {
	case composite == -1:
		w.WriteString("[ ")
		for i, el := range arr {
			if i > 0 {
				w.WriteString(", ")
			}
			if err := writeValue(w, el, depth); err != nil {
				return err
			}
		}
		w.WriteString(" ]")
	case composite == last && last > 0:
		w.WriteString("[ ")
		for _, el := range arr[:last] {
			if err := writeValue(w, el, depth); err != nil {
				return err
			}
			w.WriteString(", ")
		}
		if err := writeChildList(w, arr[last], depth); err != nil {
			return err
		}
		w.WriteString(" ]")
	default:
		w.WriteString("[\n")
		for i, el := range arr {
			w.WriteString(indent(depth + 1))
			if err := writeValue(w, el, depth+1); err != nil {
				return err
			}
			if i < last {
				w.WriteByte(',')
			}
			w.WriteByte('\n')
		}
		w.WriteString(indent(depth) + "]")
	}
	return nil
}

func writeChildList(w *bufio.Writer, v any, depth int) error {
	arr, ok := v.([]any)
	if !ok || len(arr) == 0 {
		return writeValue(w, v, depth)
	}
	w.WriteString("[\n")
	for i, el := range arr {
		w.WriteString(indent(depth + 1))
		if err := writeValue(w, el, depth+1); err != nil {
			return err
		}
		if i < len(arr)-1 {
			w.WriteByte(',')
		}
		w.WriteByte('\n')
	}
	w.WriteString(indent(depth) + "]")
	return nil
}

func writeObject(w *bufio.Writer, obj *Object, depth int) error {
	if len(obj.Keys) == 0 {
		w.WriteString("{}")
		return nil
	}
	w.WriteString("{\n")
	for i, k := range obj.Keys {
		w.WriteString(indent(depth))
		w.WriteString(Quote(k))
		w.WriteByte(':')
		if err := writeValue(w, obj.Fields[k], depth+1); err != nil {
			return err
		}
		if i < len(obj.Keys)-1 {
			w.WriteByte(',')
		}
		w.WriteByte('\n')
	}
	w.WriteString(indent(depth) + "}")
	return nil
}

func isComposite(v any) bool {
	switch v.(type) {
	case []any, *Object:
		return true
	}
	return false
}

func indent(depth int) string {
	return strings.Repeat("  ", depth)
}

// Quote returns s as a double-quoted JS string literal. Non-ASCII text is
// kept as UTF-8.
func Quote(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		case '\u2028', '\u2029':
			fmt.Fprintf(&sb, `\u%04x`, r)
		default:
			if r < 0x20 {
				fmt.Fprintf(&sb, `\u%04x`, r)
			} else {
				sb.WriteRune(r)
			}
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
