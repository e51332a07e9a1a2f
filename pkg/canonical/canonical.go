// Package canonical produces byte-exact canonical encodings of JSON-like
// values, following RFC 8785's shape (sorted keys, no insignificant
// whitespace, fixed number form) with one deliberate deviation: evidence
// values must never carry floats, so any fractional or exponent-form number
// is rejected rather than normalized.
package canonical

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// NonCanonicalizable is returned when a value contains a shape the
// canonicalizer refuses to encode: floats, functions, channels, complex
// numbers, or anything not reachable from a JSON decode.
type NonCanonicalizable struct {
	Path   string
	Reason string
}

func (e *NonCanonicalizable) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("non-canonicalizable value: %s", e.Reason)
	}
	return fmt.Sprintf("non-canonicalizable value at %s: %s", e.Path, e.Reason)
}

// Encode returns the canonical byte encoding of v. v may be any value
// accepted by encoding/json (structs, maps, slices, scalars) or an
// already-decoded interface{} tree (e.g. from a prior Decode call).
func Encode(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, &NonCanonicalizable{Reason: fmt.Sprintf("marshal: %v", err)}
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var tree interface{}
	if err := dec.Decode(&tree); err != nil {
		return nil, fmt.Errorf("canonical: decode: %w", err)
	}
	var buf bytes.Buffer
	if err := writeCanonical(&buf, tree, ""); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MustEncode is Encode but panics on error; reserved for call sites that
// have already validated the value (e.g. internal fixed-shape structs).
func MustEncode(v interface{}) []byte {
	b, err := Encode(v)
	if err != nil {
		panic(err)
	}
	return b
}

// Decode parses canonical (or any valid) JSON bytes into a generic tree
// with json.Number preserved, so a subsequent Encode round-trips exactly.
func Decode(b []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var tree interface{}
	if err := dec.Decode(&tree); err != nil {
		return nil, fmt.Errorf("canonical: decode: %w", err)
	}
	return tree, nil
}

func writeCanonical(buf *bytes.Buffer, v interface{}, path string) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
		return nil
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
		return nil
	case json.Number:
		return writeCanonicalNumber(buf, val, path)
	case string:
		writeCanonicalString(buf, val)
		return nil
	case []interface{}:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, item, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeCanonicalString(buf, k)
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k], path+"."+k); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	default:
		return &NonCanonicalizable{Path: path, Reason: fmt.Sprintf("unsupported type %T", v)}
	}
}

// writeCanonicalNumber rejects any number with a fractional part or an
// exponent — evidence values carry integers only; fractional quantities
// must be represented as strings or rationals by the caller.
func writeCanonicalNumber(buf *bytes.Buffer, n json.Number, path string) error {
	s := string(n)
	if strings.ContainsAny(s, ".eE") {
		return &NonCanonicalizable{Path: path, Reason: "floats are not permitted in evidence; use a string or rational encoding"}
	}
	neg := strings.HasPrefix(s, "-")
	digits := s
	if neg {
		digits = s[1:]
	}
	if digits == "" || (len(digits) > 1 && digits[0] == '0') {
		return &NonCanonicalizable{Path: path, Reason: "malformed integer literal"}
	}
	buf.WriteString(s)
	return nil
}

func writeCanonicalString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(buf, `\u%04x`, r)
			} else {
				buf.WriteRune(r)
			}
		}
	}
	buf.WriteByte('"')
}
