// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package broker defines the gateway's and field agent's view of the
// MQTT substrate (spec.md §6, "Broker adapter contract") and supplies
// a paho-backed implementation plus an in-memory fake for tests.
package broker

// MessageHandler is invoked once per inbound packet. topic is the full
// topic string; payload is the raw bytes (JSON for request/response
// topics, binary for mbnet); clientID identifies the publishing client
// where the adapter knows it: FakeAdapter passes the publishing
// adapter's id, MQTTAdapter always passes "".
type MessageHandler func(topic string, payload []byte, clientID string)

// Adapter is the opaque pub/sub substrate the gateway and field agent
// consume, per spec.md §1/§6. It never interprets payloads; framing,
// JSON encoding and the tag byte are the caller's concern.
type Adapter interface {
	// Connect establishes the broker connection and blocks until it is
	// ready or the implementation gives up with an error.
	Connect() error

	// Subscribe registers handler for topic (which may contain MQTT
	// wildcards, e.g. "+/+/request").
	Subscribe(topic string, handler MessageHandler) error

	// Publish sends payload on topic.
	Publish(topic string, payload []byte) error

	// Disconnect closes the connection.
	Disconnect()
}
