package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/nestwire/nestwire-core/internal/apperr"
	"github.com/nestwire/nestwire-core/internal/device"
)

// SlotPrefix is the key prefix of composite slots ("device1", "device2", ...).
const SlotPrefix = "device"

// DefaultSensorEndpoint receives opaque sensor reports.
const DefaultSensorEndpoint = 4

// DefaultSlots returns the conventional three-slot layout.
func DefaultSlots() []int { return []int{1, 2, 3} }

var (
	// ErrMalformedPayload is returned when an inbound payload cannot be
	// mapped to any endpoint.
	ErrMalformedPayload = fmt.Errorf("codec: malformed payload: %w", apperr.ErrValidation)

	// ErrInvalidSlots is returned by New for an unusable slot layout.
	ErrInvalidSlots = fmt.Errorf("codec: invalid slots: %w", apperr.ErrValidation)
)

// Kind classifies an inbound message.
type Kind int

const (
	// ControlEcho is a device reporting its switch state on its control topic.
	ControlEcho Kind = iota + 1
	// SensorStatus is a status or sensor report.
	SensorStatus
)

// String returns the kind name used in logs.
func (k Kind) String() string {
	switch k {
	case ControlEcho:
		return "control_echo"
	case SensorStatus:
		return "sensor_status"
	default:
		return "unknown"
	}
}

// Delta is one decoded endpoint update.
type Delta struct {
	EndpointID int
	Value      device.Value
}

// Codec encodes and decodes composite payloads for a fixed slot layout.
type Codec struct {
	slots    []int
	sensorID int
}

// New returns a Codec for the given slots, which must be positive and
// unique. They are kept in ascending order.
func New(slots []int, sensorEndpointID int) (*Codec, error) {
	if len(slots) == 0 {
		return nil, fmt.Errorf("%w: at least one slot is required", ErrInvalidSlots)
	}
	sorted := append([]int(nil), slots...)
	sort.Ints(sorted)
	for i, s := range sorted {
		if s < 1 {
			return nil, fmt.Errorf("%w: slot %d must be positive", ErrInvalidSlots, s)
		}
		if i > 0 && sorted[i-1] == s {
			return nil, fmt.Errorf("%w: duplicate slot %d", ErrInvalidSlots, s)
		}
	}
	if sensorEndpointID < 1 {
		return nil, fmt.Errorf("%w: sensor endpoint %d must be positive", ErrInvalidSlots, sensorEndpointID)
	}
	return &Codec{slots: sorted, sensorID: sensorEndpointID}, nil
}

// Default returns a Codec with slots 1..3 and sensor endpoint 4.
func Default() *Codec {
	c, _ := New(DefaultSlots(), DefaultSensorEndpoint) //nolint:errcheck // constant input
	return c
}

// Slots returns a copy of the slot layout.
func (c *Codec) Slots() []int { return append([]int(nil), c.slots...) }

// SensorEndpointID returns the endpoint opaque sensor reports are applied to.
func (c *Codec) SensorEndpointID() int { return c.sensorID }

// BuildCompositePayload returns the full-state payload that sets target to
// value. Other slots carry the stored bit of their endpoint; endpoints the
// device lacks encode as 0.
func (c *Codec) BuildCompositePayload(dev *device.Device, target, value int) Composite {
	out := Composite{slots: make([]slotValue, 0, len(c.slots))}
	for _, slot := range c.slots {
		v := 0
		if slot == target {
			v = value
		} else if ep, ok := dev.Endpoint(slot); ok {
			v = ep.Value.Bit()
		}
		out.slots = append(out.slots, slotValue{slot: slot, value: v})
	}
	return out
}

// Decode turns an inbound payload into endpoint deltas sorted by endpoint
// id. Control echoes must name at least one endpoint; sensor reports fall
// back to the sensor endpoint for anything that does not.
func (c *Codec) Decode(kind Kind, payload []byte) ([]Delta, error) {
	trimmed := bytes.TrimSpace(payload)

	var obj map[string]json.RawMessage
	isObject := json.Unmarshal(trimmed, &obj) == nil && obj != nil

	if isObject {
		if _, ok := obj["id"]; ok {
			d, err := decodeIDVal(obj)
			if err != nil {
				return nil, err
			}
			return []Delta{d}, nil
		}
		if deltas := decodeKeyed(obj); len(deltas) > 0 {
			return deltas, nil
		}
	}

	switch kind {
	case SensorStatus:
		return []Delta{{EndpointID: c.sensorID, Value: device.ParseValue(trimmed)}}, nil
	case ControlEcho:
		if !isObject {
			return nil, fmt.Errorf("%w: control echo is not a JSON object", ErrMalformedPayload)
		}
		return nil, fmt.Errorf("%w: no %sN or id fields", ErrMalformedPayload, SlotPrefix)
	default:
		return nil, fmt.Errorf("%w: unknown kind %d", ErrMalformedPayload, kind)
	}
}

func decodeIDVal(obj map[string]json.RawMessage) (Delta, error) {
	id, err := parseEndpointID(obj["id"])
	if err != nil {
		return Delta{}, err
	}
	raw, ok := obj["val"]
	if !ok || string(bytes.TrimSpace(raw)) == "null" {
		return Delta{}, fmt.Errorf("%w: missing val for endpoint %d", ErrMalformedPayload, id)
	}
	var v device.Value
	if err := v.UnmarshalJSON(raw); err != nil {
		return Delta{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return Delta{EndpointID: id, Value: v}, nil
}

// parseEndpointID accepts a JSON integer or a decimal string.
func parseEndpointID(raw json.RawMessage) (int, error) {
	var v device.Value
	if err := v.UnmarshalJSON(raw); err != nil {
		return 0, fmt.Errorf("%w: id: %v", ErrMalformedPayload, err)
	}
	var id int64
	switch v.Kind() {
	case device.KindInt:
		id, _ = v.IntValue()
	case device.KindText:
		s, _ := v.TextValue()
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
		if err != nil {
			return 0, fmt.Errorf("%w: id %q is not numeric", ErrMalformedPayload, s)
		}
		id = n
	default:
		return 0, fmt.Errorf("%w: id must be an integer, got %s", ErrMalformedPayload, v.Kind())
	}
	if id < 1 {
		return 0, fmt.Errorf("%w: id %d must be positive", ErrMalformedPayload, id)
	}
	return int(id), nil
}

// decodeKeyed extracts deviceN keys. Keys with a bad suffix or an
// undecodable value are skipped.
func decodeKeyed(obj map[string]json.RawMessage) []Delta {
	var deltas []Delta
	for key, raw := range obj {
		suffix, ok := strings.CutPrefix(key, SlotPrefix)
		if !ok {
			continue
		}
		id, err := strconv.Atoi(suffix)
		if err != nil || id < 1 {
			continue
		}
		var v device.Value
		if err := v.UnmarshalJSON(raw); err != nil || v.IsZero() {
			continue
		}
		deltas = append(deltas, Delta{EndpointID: id, Value: v})
	}
	sort.Slice(deltas, func(i, j int) bool { return deltas[i].EndpointID < deltas[j].EndpointID })
	return deltas
}
