package mqtt

import "strings"

// TopicPrefixSystem is the base for nestwire-core's own status topics.
const TopicPrefixSystem = "nestwire/system"

// Topic suffixes and prefixes of the device-facing scheme.
const (
	SuffixControl = "device"
	SuffixStatus  = "status"
	PrefixDevices = "devices"
	SuffixState   = "state"
)

// Topics provides builders for the device-facing topic scheme.
//
//	topics := mqtt.Topics{}
//	topics.Control("room7")         // "room7/device"
//	topics.Control("h1", "room7")   // "h1/room7/device"
//	topics.DeviceState("d1")        // "devices/d1/state"
type Topics struct{}

// Control returns the control/echo topic below the given scope segments.
func (Topics) Control(scope ...string) string {
	return join(append(scope, SuffixControl))
}

// Status returns the status/sensor topic below the given scope segments.
func (Topics) Status(scope ...string) string {
	return join(append(scope, SuffixStatus))
}

// DeviceState returns the per-device state report topic.
func (Topics) DeviceState(deviceID string) string {
	return join([]string{PrefixDevices, deviceID, SuffixState})
}

// SystemStatus returns the retained online/offline topic for this process.
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// Filters returns the subscription filters for scope depth levels (1 for
// room or device scope, 2 for house+room). devices/+/state is always
// included.
func (Topics) Filters(levels int) []string {
	wild := make([]string, levels)
	for i := range wild {
		wild[i] = "+"
	}
	return []string{
		join(append(append([]string(nil), wild...), SuffixControl)),
		join(append(append([]string(nil), wild...), SuffixStatus)),
		join([]string{PrefixDevices, "+", SuffixState}),
	}
}

// Split returns the segments of topic with empty segments preserved, so
// that "a//device" does not collapse into "a/device".
func Split(topic string) []string {
	return strings.Split(topic, "/")
}

func join(parts []string) string {
	return strings.Join(parts, "/")
}
