package bridge

import (
	"fmt"

	"github.com/nestwire/nestwire-core/internal/codec"
	"github.com/nestwire/nestwire-core/internal/device"
	"github.com/nestwire/nestwire-core/internal/infrastructure/config"
	"github.com/nestwire/nestwire-core/internal/infrastructure/mqtt"
)

// route is the classification of an inbound topic.
type route struct {
	kind  codec.Kind
	scope device.Scope
}

func suffixKind(suffix string) (codec.Kind, bool) {
	switch suffix {
	case mqtt.SuffixControl:
		return codec.ControlEcho, true
	case mqtt.SuffixStatus:
		return codec.SensorStatus, true
	default:
		return 0, false
	}
}

// classify maps a topic to a decode kind and a merge scope. The second
// result is false for topics outside the scheme.
func (b *Bridge) classify(topic string) (route, bool) {
	parts := mqtt.Split(topic)
	for _, p := range parts {
		if p == "" {
			return route{}, false
		}
	}

	switch len(parts) {
	case 2:
		kind, ok := suffixKind(parts[1])
		if !ok {
			return route{}, false
		}
		if b.topology == config.ScopeDevice {
			return route{kind: kind, scope: device.ByDevice(parts[0])}, true
		}
		return route{kind: kind, scope: device.ByRoom(parts[0])}, true

	case 3:
		if parts[0] == mqtt.PrefixDevices && parts[2] == mqtt.SuffixState {
			return route{kind: codec.SensorStatus, scope: device.ByDevice(parts[1])}, true
		}
		if b.topology != config.ScopeHouseRoom {
			return route{}, false
		}
		kind, ok := suffixKind(parts[2])
		if !ok {
			return route{}, false
		}
		return route{kind: kind, scope: device.ByHouseRoom(parts[0], parts[1])}, true
	}

	return route{}, false
}

// filters returns the subscriptions needed for the topology.
func (b *Bridge) filters() []string {
	topics := mqtt.Topics{}
	if b.topology != config.ScopeHouseRoom {
		return topics.Filters(1)
	}
	seen := make(map[string]bool)
	var out []string
	for _, f := range append(topics.Filters(2), topics.Filters(1)...) {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}

// TopicFor returns the control topic commands for dev are published on.
func (b *Bridge) TopicFor(dev *device.Device) (string, error) {
	topics := mqtt.Topics{}
	switch b.topology {
	case config.ScopeDevice:
		return topics.Control(dev.ID), nil
	case config.ScopeHouseRoom:
		if dev.Room() == "" {
			return "", fmt.Errorf("%w: device %s has no room", ErrNoRoute, dev.ID)
		}
		return topics.Control(dev.HouseID, dev.Room()), nil
	default:
		if dev.Room() == "" {
			return "", fmt.Errorf("%w: device %s has no room", ErrNoRoute, dev.ID)
		}
		return topics.Control(dev.Room()), nil
	}
}
