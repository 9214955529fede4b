// Package codec translates between logical endpoint commands and the
// composite payloads devices exchange over MQTT.
//
// Devices are addressed by room (or device) topic, not by endpoint, and
// the wire format has no partial update. Every outbound command therefore
// carries one bit per configured slot:
//
//	{"device1":0,"device2":1,"device3":0}
//
// The commanded slot takes the requested value; every other slot repeats
// the registry's last known state for that endpoint. A stale stored value
// is re-asserted on the wire, which is the accepted cost of the protocol.
//
// Inbound payloads are decoded into per-endpoint deltas. Control echoes
// use the keyed form above or {"id":N,"val":V}; sensor reports may also be
// an opaque scalar or non-JSON text, applied to the well-known sensor
// endpoint.
package codec
