package device

import (
	"encoding/json"
	"math"
	"testing"
)

func TestValue_OnOff(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		on    bool
		off   bool
	}{
		{"text ON", Text("ON"), true, false},
		{"text on lower", Text("on"), true, false},
		{"text 1", Text("1"), true, false},
		{"text OFF", Text("OFF"), false, true},
		{"text off lower", Text("Off"), false, true},
		{"text 0", Text("0"), false, true},
		{"text other", Text("dim"), false, false},
		{"int 1", Int(1), true, false},
		{"int 0", Int(0), false, true},
		{"int 2", Int(2), false, false},
		{"float 1", Float(1), true, false},
		{"float 0", Float(0), false, true},
		{"float 0.5", Float(0.5), false, false},
		{"bool true", Bool(true), true, false},
		{"bool false", Bool(false), false, true},
		{"unset", Value{}, false, true},
		{"off sentinel", Off(), false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.value.IsOn(); got != tt.on {
				t.Errorf("IsOn() = %v, want %v", got, tt.on)
			}
			if got := tt.value.IsOff(); got != tt.off {
				t.Errorf("IsOff() = %v, want %v", got, tt.off)
			}
			wantBit := 0
			if tt.on {
				wantBit = 1
			}
			if got := tt.value.Bit(); got != wantBit {
				t.Errorf("Bit() = %d, want %d", got, wantBit)
			}
		})
	}
}

func TestValue_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		input string
		want  Value
	}{
		{`true`, Bool(true)},
		{`false`, Bool(false)},
		{`1`, Int(1)},
		{`-42`, Int(-42)},
		{`1.0`, Int(1)},
		{`1e3`, Int(1000)},
		{`23.5`, Float(23.5)},
		{`"ON"`, Text("ON")},
		{`null`, Value{}},
		{`{"a": 1}`, Text(`{"a":1}`)},
		{`[1, 2]`, Text(`[1,2]`)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var got Value
			if err := json.Unmarshal([]byte(tt.input), &got); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("Unmarshal(%s) = %v (%s), want %v (%s)",
					tt.input, got, got.Kind(), tt.want, tt.want.Kind())
			}
		})
	}
}

func TestValue_MarshalJSON(t *testing.T) {
	tests := []struct {
		value Value
		want  string
	}{
		{Value{}, `null`},
		{Bool(true), `true`},
		{Int(7), `7`},
		{Float(21.25), `21.25`},
		{Text("OFF"), `"OFF"`},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			b, err := json.Marshal(tt.value)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if string(b) != tt.want {
				t.Errorf("Marshal() = %s, want %s", b, tt.want)
			}
		})
	}

	if _, err := json.Marshal(Float(math.NaN())); err == nil {
		t.Error("Marshal(NaN) should fail")
	}
}

func TestValue_InStruct(t *testing.T) {
	type wrapper struct {
		V Value `json:"v"`
	}
	var w wrapper
	if err := json.Unmarshal([]byte(`{"v":null}`), &w); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !w.V.IsZero() {
		t.Errorf("null field = %v, want unset", w.V)
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		raw  string
		want Value
	}{
		{`ON`, Text("ON")},
		{`  OFF `, Text("OFF")},
		{`1`, Int(1)},
		{`"ON"`, Text("ON")},
		{`27.4`, Float(27.4)},
		{`not json {`, Text("not json {")},
		{``, Text("")},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := ParseValue([]byte(tt.raw)); !got.Equal(tt.want) {
				t.Errorf("ParseValue(%q) = %v (%s), want %v", tt.raw, got, got.Kind(), tt.want)
			}
		})
	}
}
