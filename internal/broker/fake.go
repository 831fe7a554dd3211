// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package broker

import (
	"strings"
	"sync"
)

// FakeAdapter is an in-process Adapter double: Publish on one instance
// delivers synchronously to every matching Subscribe handler on a peer
// wired via Pair, with no real network or broker involved. It exists
// for gateway/field-agent unit tests that need two ends of the
// request/response/mbnet exchange without a live MQTT server.
type FakeAdapter struct {
	clientID string

	mu       sync.Mutex
	peers    []*FakeAdapter
	handlers map[string]MessageHandler
}

// NewFakeAdapter returns a FakeAdapter identifying itself as clientID
// on Publish.
func NewFakeAdapter(clientID string) *FakeAdapter {
	return &FakeAdapter{
		clientID: clientID,
		handlers: make(map[string]MessageHandler),
	}
}

// Pair connects two FakeAdapters so each one's Publish calls are
// visible to the other's Subscribe handlers. A FakeAdapter's own
// handlers never see its own Publish calls.
func Pair(a, b *FakeAdapter) {
	a.mu.Lock()
	a.peers = append(a.peers, b)
	a.mu.Unlock()

	b.mu.Lock()
	b.peers = append(b.peers, a)
	b.mu.Unlock()
}

// Connect implements Adapter; there is nothing to dial.
func (f *FakeAdapter) Connect() error { return nil }

// Subscribe implements Adapter. topic may use "+" for any of its
// segments, matching the shapes this repository actually emits
// (<client>/<device>/request etc.).
func (f *FakeAdapter) Subscribe(topic string, handler MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[topic] = handler
	return nil
}

// Publish implements Adapter, fanning payload out to every peer whose
// subscription matches topic.
func (f *FakeAdapter) Publish(topic string, payload []byte) error {
	f.mu.Lock()
	peers := append([]*FakeAdapter(nil), f.peers...)
	f.mu.Unlock()

	for _, p := range peers {
		p.deliver(topic, payload, f.clientID)
	}
	return nil
}

func (f *FakeAdapter) deliver(topic string, payload []byte, clientID string) {
	f.mu.Lock()
	var matched []MessageHandler
	for sub, h := range f.handlers {
		if topicMatches(sub, topic) {
			matched = append(matched, h)
		}
	}
	f.mu.Unlock()

	for _, h := range matched {
		h(topic, payload, clientID)
	}
}

// Disconnect implements Adapter.
func (f *FakeAdapter) Disconnect() {}

func topicMatches(sub, topic string) bool {
	subParts := strings.Split(sub, "/")
	topicParts := strings.Split(topic, "/")
	if len(subParts) != len(topicParts) {
		return false
	}
	for i, s := range subParts {
		if s == "+" {
			continue
		}
		if s != topicParts[i] {
			return false
		}
	}
	return true
}
