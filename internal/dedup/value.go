package dedup

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind identifies the scalar type held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindText
	KindNumber
	KindDate
	KindBool
)

// String returns the lowercase kind name.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	case KindBool:
		return "bool"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a single cell. The zero Value is null.
//
// Raw carries the cell text as it was read, so writers can reproduce the
// source exactly. Equality ignores Raw and compares the typed payload only.
type Value struct {
	Kind Kind
	Raw  string
	Str  string
	Num  decimal.Decimal
	Time time.Time
	Bool bool
}

// Null returns a missing value.
func Null() Value { return Value{} }

// Text returns a text value.
func Text(s string) Value {
	return Value{Kind: KindText, Raw: s, Str: s}
}

// Number returns a numeric value.
func Number(d decimal.Decimal) Value {
	return Value{Kind: KindNumber, Raw: d.String(), Num: d}
}

// Int is a convenience for integer numbers.
func Int(i int64) Value {
	return Number(decimal.NewFromInt(i))
}

// Date returns a date value truncated to the day.
func Date(t time.Time) Value {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return Value{Kind: KindDate, Raw: d.Format("2006-01-02"), Time: d}
}

// Bool returns a boolean value.
func Bool(b bool) Value {
	return Value{Kind: KindBool, Raw: strconv.FormatBool(b), Bool: b}
}

// WithRaw returns a copy of v that renders as raw.
func (v Value) WithRaw(raw string) Value {
	v.Raw = raw
	return v
}

// IsNull reports whether v is missing.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// Equal reports whether v and o hold the same typed value.
// Null equals null.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNull:
		return true
	case KindText:
		return v.Str == o.Str
	case KindNumber:
		return v.Num.Equal(o.Num)
	case KindDate:
		return v.Time.Equal(o.Time)
	case KindBool:
		return v.Bool == o.Bool
	}
	return false
}

// String returns the display form of v.
func (v Value) String() string {
	if v.Raw != "" || v.Kind == KindNull {
		return v.Raw
	}
	switch v.Kind {
	case KindText:
		return v.Str
	case KindNumber:
		return v.Num.String()
	case KindDate:
		return v.Time.Format("2006-01-02")
	case KindBool:
		return strconv.FormatBool(v.Bool)
	}
	return ""
}

// Native returns v as a plain Go value suitable for typed writers:
// nil, string, float64, time.Time or bool.
func (v Value) Native() any {
	switch v.Kind {
	case KindText:
		return v.Str
	case KindNumber:
		f, _ := v.Num.Float64()
		return f
	case KindDate:
		return v.Time
	case KindBool:
		return v.Bool
	}
	return nil
}

// appendKey writes a canonical, unambiguous encoding of v to b.
// Values that are Equal produce identical encodings.
func (v Value) appendKey(b *strings.Builder) {
	var payload string
	switch v.Kind {
	case KindText:
		payload = v.Str
	case KindNumber:
		// String trims trailing zeros, so 1 and 1.0 encode the same.
		payload = v.Num.String()
	case KindDate:
		payload = v.Time.UTC().Format(time.RFC3339Nano)
	case KindBool:
		payload = strconv.FormatBool(v.Bool)
	}
	b.WriteByte(byte('0' + v.Kind))
	b.WriteString(strconv.Itoa(len(payload)))
	b.WriteByte(':')
	b.WriteString(payload)
}
