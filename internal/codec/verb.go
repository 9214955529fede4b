package codec

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nestwire/nestwire-core/internal/device"
)

// Verb is a logical command on one endpoint.
type Verb string

const (
	VerbTurnOn   Verb = "TURN_ON"
	VerbTurnOff  Verb = "TURN_OFF"
	VerbSetValue Verb = "SET_VALUE"
)

// ErrInvalidVerb is returned for an unknown verb or a bad SET_VALUE payload.
var ErrInvalidVerb = fmt.Errorf("codec: invalid command: %w", ErrMalformedPayload)

// Valid reports whether v is a known verb.
func (v Verb) Valid() bool {
	switch v {
	case VerbTurnOn, VerbTurnOff, VerbSetValue:
		return true
	}
	return false
}

// TargetValue returns the slot value a verb encodes to: 1 for TURN_ON, 0
// for TURN_OFF and the integer payload for SET_VALUE.
func TargetValue(v Verb, payload string) (int, error) {
	switch v {
	case VerbTurnOn:
		return 1, nil
	case VerbTurnOff:
		return 0, nil
	case VerbSetValue:
		p := strings.TrimSpace(payload)
		if p == "" {
			return 0, fmt.Errorf("%w: SET_VALUE requires a payload", ErrInvalidVerb)
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0, fmt.Errorf("%w: SET_VALUE payload %q is not an integer", ErrInvalidVerb, p)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%w: unknown verb %q", ErrInvalidVerb, v)
	}
}

// StoredValue is the endpoint value recorded after a verb is sent: ON,
// the OFF sentinel, or the integer that was set.
func StoredValue(v Verb, target int) device.Value {
	switch v {
	case VerbTurnOn:
		return device.Text(device.OnValue)
	case VerbTurnOff:
		return device.Off()
	default:
		return device.Int(int64(target))
	}
}
