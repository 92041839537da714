package vcf

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindMissing Kind = iota
	KindFlag
	KindInteger
	KindFloat
	KindString
	KindVector
)

func (k Kind) String() string {
	switch k {
	case KindMissing:
		return "Missing"
	case KindFlag:
		return "Flag"
	case KindInteger:
		return "Integer"
	case KindFloat:
		return "Float"
	case KindString:
		return "String"
	case KindVector:
		return "Vector"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Value is a decoded INFO or FORMAT value. The zero Value is Missing.
type Value struct {
	kind  Kind
	i     int64
	f     float64
	s     string
	elems []Value
}

// MissingValue returns the '.' value.
func MissingValue() Value { return Value{} }

// FlagValue returns the value of a present INFO flag.
func FlagValue() Value { return Value{kind: KindFlag} }

// IntValue wraps an Integer.
func IntValue(i int64) Value { return Value{kind: KindInteger, i: i} }

// FloatValue wraps a Float.
func FloatValue(f float64) Value { return Value{kind: KindFloat, f: f} }

// StringValue wraps a String or Character.
func StringValue(s string) Value { return Value{kind: KindString, s: s} }

// VectorValue builds a multi-valued field. Elements may be Missing.
func VectorValue(elems ...Value) Value {
	cp := make([]Value, len(elems))
	copy(cp, elems)
	return Value{kind: KindVector, elems: cp}
}

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// IsMissing reports whether v is '.'.
func (v Value) IsMissing() bool { return v.kind == KindMissing }

// Int returns the integer payload.
func (v Value) Int() (int64, bool) { return v.i, v.kind == KindInteger }

// Float returns the float payload. Integers are widened.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInteger:
		return float64(v.i), true
	}
	return 0, false
}

// Str returns the string payload.
func (v Value) Str() (string, bool) { return v.s, v.kind == KindString }

// Len returns the number of elements: 0 for Missing, 1 for scalars.
func (v Value) Len() int {
	switch v.kind {
	case KindMissing:
		return 0
	case KindVector:
		return len(v.elems)
	}
	return 1
}

// Elems returns the vector elements, or v itself for a scalar.
func (v Value) Elems() []Value {
	switch v.kind {
	case KindMissing:
		return nil
	case KindVector:
		return v.elems
	}
	return []Value{v}
}

// String renders v in VCF text form.
func (v Value) String() string { return EncodeValue(v) }

// EncodeValue renders a value as it appears on a record line. Flags encode to
// the empty string; the serializer emits the bare key for them.
func EncodeValue(v Value) string {
	switch v.kind {
	case KindMissing:
		return "."
	case KindFlag:
		return ""
	case KindInteger:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return formatFloat(v.f)
	case KindString:
		return v.s
	case KindVector:
		var b strings.Builder
		for i, e := range v.elems {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(EncodeValue(e))
		}
		return b.String()
	}
	return "."
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// DecodeValue converts a raw INFO or FORMAT token according to def. A strict
// arity whose count differs from the number of comma-separated slots is an
// ErrArityMismatch; advisory and unbounded arities accept what is present.
func DecodeValue(raw string, def *FieldDefinition, arity Arity) (Value, error) {
	if raw == "." {
		return MissingValue(), nil
	}
	if def == nil {
		return StringValue(raw), nil
	}
	if def.Type == Flag {
		return FlagValue(), nil
	}

	if def.scalar() {
		if def.Type != String && strings.IndexByte(raw, ',') >= 0 {
			return Value{}, fmt.Errorf("%w: %s expects 1 value, got %d",
				ErrArityMismatch, def.ID, strings.Count(raw, ",")+1)
		}
		return decodeScalar(raw, def)
	}

	parts := strings.Split(raw, ",")
	if arity.Strict() && len(parts) != arity.N {
		return Value{}, fmt.Errorf("%w: %s expects %d values, got %d",
			ErrArityMismatch, def.ID, arity.N, len(parts))
	}
	elems := make([]Value, len(parts))
	for i, p := range parts {
		e, err := decodeScalar(p, def)
		if err != nil {
			return Value{}, err
		}
		elems[i] = e
	}
	return Value{kind: KindVector, elems: elems}, nil
}

func decodeScalar(tok string, def *FieldDefinition) (Value, error) {
	if tok == "." {
		return MissingValue(), nil
	}
	switch def.Type {
	case Integer:
		i, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %s=%q is not an Integer", ErrTypeMismatch, def.ID, tok)
		}
		return IntValue(i), nil
	case Float:
		f, err := parseFloat(tok)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %s=%q is not a Float", ErrTypeMismatch, def.ID, tok)
		}
		return FloatValue(f), nil
	case Character:
		if utf8.RuneCountInString(tok) != 1 {
			return Value{}, fmt.Errorf("%w: %s=%q is not a Character", ErrTypeMismatch, def.ID, tok)
		}
		return StringValue(tok), nil
	}
	return StringValue(tok), nil
}

var errNotDecimal = errors.New("not a decimal float")

// parseFloat accepts the VCF Float grammar: an optionally signed decimal
// with optional exponent, or INF, INFINITY or NAN in any case. Go-only forms
// such as hex floats and digit separators are rejected.
func parseFloat(tok string) (float64, error) {
	if !isVCFFloat(tok) {
		return 0, errNotDecimal
	}
	return strconv.ParseFloat(tok, 64)
}

func isVCFFloat(tok string) bool {
	s := tok
	if len(s) > 0 && (s[0] == '+' || s[0] == '-') {
		s = s[1:]
	}
	switch strings.ToUpper(s) {
	case "INF", "INFINITY", "NAN":
		return true
	}

	digits := 0
	i := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
			digits++
		}
	}
	if digits == 0 {
		return false
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}
		exp := i
		for i < len(s) && isDigit(s[i]) {
			i++
		}
		if i == exp {
			return false
		}
	}
	return i == len(s)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
