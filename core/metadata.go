package core

import "strconv"

// Metadata is a free-form key-value annotation bag attached to collections,
// documents and chunks. Values are a closed sum (string, number, bool, null)
// rather than arbitrary dynamic types.
type Metadata map[string]Value

// ValueKind tags the active member of a Value.
type ValueKind int

const (
	// KindNull is an explicit null annotation.
	KindNull ValueKind = iota
	// KindString holds a string value.
	KindString
	// KindNumber holds a float64 value.
	KindNumber
	// KindBool holds a boolean value.
	KindBool
)

// Value is a tagged metadata value. Exactly one member is meaningful,
// selected by Kind; the others stay at their zero value.
type Value struct {
	Kind ValueKind
	Str  string
	Num  float64
	Bool bool
}

// String constructs a string Value.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// Number constructs a numeric Value.
func Number(n float64) Value { return Value{Kind: KindNumber, Num: n} }

// Bool constructs a boolean Value.
func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// Null constructs an explicit null Value.
func Null() Value { return Value{Kind: KindNull} }

// Display returns a human-readable rendering of the value for CLI and
// CSV output.
func (v Value) Display() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'g', -1, 64)
	case KindBool:
		if v.Bool {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}

// Clone returns a copy of the metadata map. Clone of nil is nil.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
