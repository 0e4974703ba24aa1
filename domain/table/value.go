package table

import (
	"strconv"
	"time"
)

// Kind identifies the resident type of a single cell.
type Kind int

const (
	KindNull Kind = iota
	KindNumeric
	KindText
	KindBool
	KindTime
)

// Value is a single typed cell. The zero value is the null cell.
type Value struct {
	kind Kind
	num  float64
	text string
	b    bool
	ts   time.Time
}

// Null returns the null cell.
func Null() Value {
	return Value{}
}

// Number creates a numeric cell.
func Number(f float64) Value {
	return Value{kind: KindNumeric, num: f}
}

// Text creates a text cell.
func Text(s string) Value {
	return Value{kind: KindText, text: s}
}

// Bool creates a boolean cell.
func Bool(b bool) Value {
	return Value{kind: KindBool, b: b}
}

// Time creates a temporal cell.
func Time(t time.Time) Value {
	return Value{kind: KindTime, ts: t}
}

// Kind returns the cell's resident kind.
func (v Value) Kind() Kind {
	return v.kind
}

// IsNull reports whether the cell is null.
func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// Float returns the numeric payload. The bool is false for non-numeric cells.
func (v Value) Float() (float64, bool) {
	return v.num, v.kind == KindNumeric
}

// Str returns the text payload. The bool is false for non-text cells.
func (v Value) Str() (string, bool) {
	return v.text, v.kind == KindText
}

// Boolean returns the bool payload. The second bool is false for non-bool cells.
func (v Value) Boolean() (bool, bool) {
	return v.b, v.kind == KindBool
}

// Timestamp returns the temporal payload. The bool is false for non-time cells.
func (v Value) Timestamp() (time.Time, bool) {
	return v.ts, v.kind == KindTime
}

// Native converts the cell to a JSON-representable Go value
// (float64, string, bool, time formatted as RFC 3339, or nil).
func (v Value) Native() interface{} {
	switch v.kind {
	case KindNumeric:
		return v.num
	case KindText:
		return v.text
	case KindBool:
		return v.b
	case KindTime:
		return v.ts.Format(time.RFC3339)
	default:
		return nil
	}
}

// Key returns a canonical encoding used for row fingerprints and
// exact-equality comparisons. Distinct kinds never collide.
func (v Value) Key() string {
	switch v.kind {
	case KindNumeric:
		return "n:" + strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindText:
		return "s:" + v.text
	case KindBool:
		if v.b {
			return "b:1"
		}
		return "b:0"
	case KindTime:
		return "d:" + v.ts.Format(time.RFC3339Nano)
	default:
		return "~"
	}
}

// Equal reports exact cell equality (same kind, same payload).
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNumeric:
		return v.num == o.num
	case KindText:
		return v.text == o.text
	case KindBool:
		return v.b == o.b
	case KindTime:
		return v.ts.Equal(o.ts)
	default:
		return true
	}
}
