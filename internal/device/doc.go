// Package device provides the device registry for nestwire-core.
//
// The registry owns device metadata and the per-endpoint state that the
// bridge, automation engine and command service read and write.
//
// # Architecture
//
//	┌───────────────────────────────────────────────────────────────┐
//	│                        Device Registry                         │
//	│                                                                │
//	│  ┌────────────────┐    ┌────────────────┐   ┌──────────────┐  │
//	│  │    Registry    │    │   Repository   │   │  Validation  │  │
//	│  │  (registry.go) │───▶│ (repository.go)│   │(validation.go│  │
//	│  │                │    │                │   │              │  │
//	│  │ • CRUD ops     │    │ • SQLite       │   │ • Names      │  │
//	│  │ • Merge update │    │ • json_set     │   │ • Endpoints  │  │
//	│  └────────────────┘    └────────────────┘   └──────────────┘  │
//	└───────────────────────────────────────────────────────────────┘
//
// # Endpoint state
//
// Endpoints live inside devices.endpoints as a JSON object keyed by the
// endpoint id. State writes go through UpdateEndpointValue, which patches
// one key with json_set in a single UPDATE:
//
//	res, err := reg.UpdateEndpointValue(ctx, device.ByRoom("room7"), 2, device.Text("ON"), now)
//	if err == nil && !res.Matched {
//	    // no device in room7 has endpoint 2
//	}
//
// Writers to different endpoints of one device therefore never overwrite
// each other.
//
// # Values
//
// Value is a tagged union of bool, int, float and text. IsOn and IsOff
// accept the loose forms devices report ("ON", "1", 1, true and so on).
//
// # Thread Safety
//
// Registry and Service are safe for concurrent use. SQLite is the only
// state; nothing is cached in process.
package device
