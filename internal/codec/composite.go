package codec

import (
	"bytes"
	"strconv"
)

type slotValue struct {
	slot  int
	value int
}

// Composite is a full-state outbound payload. It marshals as a JSON object
// with one deviceN key per slot in ascending slot order.
type Composite struct {
	slots []slotValue
}

// Get returns the value encoded for slot.
func (c Composite) Get(slot int) (int, bool) {
	for _, s := range c.slots {
		if s.slot == slot {
			return s.value, true
		}
	}
	return 0, false
}

// Len returns the number of slots.
func (c Composite) Len() int { return len(c.slots) }

// MarshalJSON writes the slots in order. encoding/json sorts map keys
// lexically, which would put device10 before device2.
func (c Composite) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, s := range c.slots {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('"')
		buf.WriteString(SlotPrefix)
		buf.WriteString(strconv.Itoa(s.slot))
		buf.WriteString(`":`)
		buf.WriteString(strconv.Itoa(s.value))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Bytes returns the wire encoding.
func (c Composite) Bytes() []byte {
	b, _ := c.MarshalJSON() //nolint:errcheck // never fails
	return b
}

// String returns the wire encoding as text.
func (c Composite) String() string { return string(c.Bytes()) }
