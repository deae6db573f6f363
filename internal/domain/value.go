package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// decimalRe matches the signed decimal form that bulletin values are coerced
// to float from, e.g. "12.5", "-3.25". Bare integers and exponents do not match.
var decimalRe = regexp.MustCompile(`^[-+]?\d+\.\d+$`)

// ValueKind tags the dynamic type held by a Value.
type ValueKind int

const (
	NullValue ValueKind = iota
	IntValue
	FloatValue
	TextValue
)

// Value is a loosely-typed scalar: null, integer, float, or text.
// The zero Value is null.
type Value struct {
	kind ValueKind
	i    int64
	f    float64
	s    string
}

func Int(i int64) Value     { return Value{kind: IntValue, i: i} }
func Float(f float64) Value { return Value{kind: FloatValue, f: f} }
func Text(s string) Value   { return Value{kind: TextValue, s: s} }
func Null() Value           { return Value{} }

// FloatPtr returns a float Value, or null when f is nil.
func FloatPtr(f *float64) Value {
	if f == nil {
		return Null()
	}
	return Float(*f)
}

// StringPtr returns a text Value, or null when s is nil.
func StringPtr(s *string) Value {
	if s == nil {
		return Null()
	}
	return Text(*s)
}

// CoerceValue applies the bulletin coercion rules: a signed decimal becomes a
// float, a run of ASCII digits becomes an integer, anything else stays text.
// Digit runs too large for int64 stay text.
func CoerceValue(raw string) Value {
	if decimalRe.MatchString(raw) {
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return Float(f)
		}
		return Text(raw)
	}
	if isDigits(raw) {
		if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return Int(i)
		}
	}
	return Text(raw)
}

func (v Value) Kind() ValueKind { return v.kind }
func (v Value) IsNull() bool    { return v.kind == NullValue }

// IsNumeric reports whether v holds an integer or a float.
func (v Value) IsNumeric() bool { return v.kind == IntValue || v.kind == FloatValue }

// Number returns v as a float64 when it is numeric.
func (v Value) Number() (float64, bool) {
	switch v.kind {
	case IntValue:
		return float64(v.i), true
	case FloatValue:
		return v.f, true
	default:
		return 0, false
	}
}

// String renders v the way it would appear as a JSON object key.
func (v Value) String() string {
	switch v.kind {
	case IntValue:
		return strconv.FormatInt(v.i, 10)
	case FloatValue:
		return formatFloat(v.f)
	case TextValue:
		return v.s
	default:
		return ""
	}
}

// Truthy mirrors the "present and non-empty" checks applied to station codes.
func (v Value) Truthy() bool {
	switch v.kind {
	case IntValue:
		return v.i != 0
	case FloatValue:
		return v.f != 0
	case TextValue:
		return v.s != ""
	default:
		return false
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case IntValue:
		return []byte(strconv.FormatInt(v.i, 10)), nil
	case FloatValue:
		return []byte(formatFloat(v.f)), nil
	case TextValue:
		return marshalNoEscape(v.s)
	default:
		return []byte("null"), nil
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0:
		return errors.New("empty value")
	case bytes.Equal(data, []byte("null")):
		*v = Null()
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Text(s)
	case bytes.Equal(data, []byte("true")), bytes.Equal(data, []byte("false")):
		*v = Text(string(data))
	case data[0] == '{' || data[0] == '[':
		return fmt.Errorf("unsupported value %.20q", data)
	default:
		*v = parseNumber(string(data))
	}
	return nil
}

// parseNumber keeps the integer/float distinction of a JSON number literal.
func parseNumber(lit string) Value {
	if !strings.ContainsAny(lit, ".eE") {
		if i, err := strconv.ParseInt(lit, 10, 64); err == nil {
			return Int(i)
		}
	}
	if f, err := strconv.ParseFloat(lit, 64); err == nil {
		return Float(f)
	}
	return Text(lit)
}

// formatFloat always keeps a fractional part so floats survive a round trip
// through JSON as floats ("12.0", not "12").
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEIN") {
		s += ".0"
	}
	return s
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
