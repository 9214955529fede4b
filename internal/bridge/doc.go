// Package bridge connects the device registry to the MQTT fabric.
//
// Inbound, it classifies each topic, decodes the payload with the codec and
// merge-updates every resulting endpoint. Outbound, it renders a composite
// command for a device and publishes it on the device's control topic.
//
// # Topology
//
// The topic scheme is a deployment choice (topology.scope):
//
//	room        <roomID>/device, <roomID>/status
//	device      <deviceID>/device, <deviceID>/status
//	house_room  <houseID>/<roomID>/device, <houseID>/<roomID>/status
//
// devices/<deviceID>/state is always accepted as a sensor report.
//
// # Failure handling
//
// HandleMessage never returns an error and never panics. Unrecognised
// topics and undecodable payloads are logged and dropped; storage errors are
// logged and the next delta is still applied.
package bridge
