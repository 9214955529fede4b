// Package mqtt provides MQTT client connectivity for nestwire-core.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support, restored on reconnect
//   - Last Will and Testament (LWT) for offline detection
//
// # Architecture
//
// Devices publish their state on room- or device-scoped topics and receive
// composite commands on the same topics. The bridge package owns the topic
// scheme; this package is transport only.
//
//	Devices ↔ MQTT Broker ↔ nestwire-core (bridge → registry)
//
// # Handler dispatch
//
// Order-matters is disabled, so paho runs every inbound message handler in
// its own goroutine. A slow handler on one topic never delays another.
// Handlers are wrapped with panic recovery.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe("+/device", 1, func(topic string, payload []byte) error {
//	    return nil
//	})
//
//	client.Publish("room7/device", []byte(`{"device1":1,"device2":0,"device3":0}`), 1, false)
package mqtt
