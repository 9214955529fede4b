package device

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ValueKind identifies which field of a Value is populated.
type ValueKind uint8

const (
	KindNone ValueKind = iota
	KindBool
	KindInt
	KindFloat
	KindText
)

// String returns the kind name.
func (k ValueKind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindText:
		return "text"
	default:
		return "none"
	}
}

// Sentinel text values carried by switch endpoints.
const (
	OnValue  = "ON"
	OffValue = "OFF"
)

// Value is an endpoint reading. An endpoint's type tag does not constrain
// which kind it holds: a SWITCH may report "ON", 1 or true, and a SENSOR
// may report a number or free text.
//
// The zero Value has KindNone and encodes as JSON null.
type Value struct {
	kind ValueKind
	b    bool
	i    int64
	f    float64
	s    string
}

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int returns an integer Value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a floating-point Value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Text returns a string Value.
func Text(s string) Value { return Value{kind: KindText, s: s} }

// Off is the value written when automation switches an endpoint off.
func Off() Value { return Text(OffValue) }

// Kind reports which kind v holds.
func (v Value) Kind() ValueKind { return v.kind }

// IsZero reports whether v is unset.
func (v Value) IsZero() bool { return v.kind == KindNone }

// BoolValue returns the boolean and whether v is a bool.
func (v Value) BoolValue() (bool, bool) { return v.b, v.kind == KindBool }

// IntValue returns the integer and whether v is an int.
func (v Value) IntValue() (int64, bool) { return v.i, v.kind == KindInt }

// FloatValue returns the float and whether v is a float.
func (v Value) FloatValue() (float64, bool) { return v.f, v.kind == KindFloat }

// TextValue returns the string and whether v is text.
func (v Value) TextValue() (string, bool) { return v.s, v.kind == KindText }

// IsOn reports whether v reads as "on": case-insensitive "ON" or "1",
// the number 1, or true.
func (v Value) IsOn() bool {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i == 1
	case KindFloat:
		return v.f == 1
	case KindText:
		s := strings.TrimSpace(v.s)
		return strings.EqualFold(s, OnValue) || s == "1"
	default:
		return false
	}
}

// IsOff reports whether v reads as "off": case-insensitive "OFF" or "0",
// the number 0, false, or unset.
func (v Value) IsOff() bool {
	switch v.kind {
	case KindBool:
		return !v.b
	case KindInt:
		return v.i == 0
	case KindFloat:
		return v.f == 0
	case KindText:
		s := strings.TrimSpace(v.s)
		return strings.EqualFold(s, OffValue) || s == "0"
	default:
		return true
	}
}

// Bit returns 1 when v IsOn and 0 otherwise.
func (v Value) Bit() int {
	if v.IsOn() {
		return 1
	}
	return 0
}

// Equal reports whether v and o hold the same kind and value.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindBool:
		return v.b == o.b
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindText:
		return v.s == o.s
	default:
		return true
	}
}

// String formats v for logs.
func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindText:
		return v.s
	default:
		return "<none>"
	}
}

// MarshalJSON encodes v as a bare JSON scalar.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindBool:
		return json.Marshal(v.b)
	case KindInt:
		return json.Marshal(v.i)
	case KindFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return nil, fmt.Errorf("device: cannot encode %v as JSON", v.f)
		}
		return json.Marshal(v.f)
	case KindText:
		return json.Marshal(v.s)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes a JSON scalar into v. Integral numbers become Int,
// other numbers Float. Objects and arrays are kept as their compact JSON
// text.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("device: decoding value: %w", err)
	}

	switch x := raw.(type) {
	case nil:
		*v = Value{}
	case bool:
		*v = Bool(x)
	case string:
		*v = Text(x)
	case json.Number:
		*v = numberValue(x)
	default:
		var buf bytes.Buffer
		if err := json.Compact(&buf, data); err != nil {
			return fmt.Errorf("device: compacting value: %w", err)
		}
		*v = Text(buf.String())
	}
	return nil
}

func numberValue(n json.Number) Value {
	if i, err := n.Int64(); err == nil {
		return Int(i)
	}
	if f, err := n.Float64(); err == nil {
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return Int(int64(f))
		}
		return Float(f)
	}
	return Text(n.String())
}

// ParseValue interprets raw bytes from the wire. Valid JSON is decoded as
// by UnmarshalJSON; anything else becomes Text of the trimmed input.
func ParseValue(raw []byte) Value {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return Text("")
	}
	if json.Valid(trimmed) {
		var v Value
		if err := v.UnmarshalJSON(trimmed); err == nil {
			return v
		}
	}
	return Text(string(trimmed))
}
