// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package broker

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Config is the connection configuration for MQTTAdapter.
type Config struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string
	KeepAlive time.Duration
}

// MQTTAdapter implements Adapter over github.com/eclipse/paho.mqtt.golang,
// grounded in the connect/reconnect/subscribe idiom of the
// bcdiaconu-chint-mqtt-modbus-bridge and lachlan2k-huawei-solar-mqtt-relay
// reference files (see DESIGN.md).
type MQTTAdapter struct {
	cfg    Config
	client mqtt.Client

	mu        sync.RWMutex
	connected bool
}

// NewMQTTAdapter builds an adapter from cfg. It does not connect.
func NewMQTTAdapter(cfg Config) *MQTTAdapter {
	a := &MQTTAdapter{cfg: cfg}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.BrokerURL)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	keepAlive := cfg.KeepAlive
	if keepAlive <= 0 {
		keepAlive = 60 * time.Second
	}
	opts.SetKeepAlive(keepAlive)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(mqtt.Client) {
		a.mu.Lock()
		a.connected = true
		a.mu.Unlock()
		slog.Info("broker connected", "client_id", cfg.ClientID)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		a.mu.Lock()
		a.connected = false
		a.mu.Unlock()
		slog.Warn("broker connection lost", "client_id", cfg.ClientID, "err", err)
	})

	a.client = mqtt.NewClient(opts)
	return a
}

// Connect implements Adapter.
func (a *MQTTAdapter) Connect() error {
	if token := a.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("broker: connect: %w", token.Error())
	}
	for i := 0; i < 50; i++ {
		if a.IsConnected() {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("broker: timed out waiting for connection")
}

// IsConnected reports whether the adapter currently holds a live
// session.
func (a *MQTTAdapter) IsConnected() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.connected && a.client.IsConnected()
}

// Subscribe implements Adapter.
func (a *MQTTAdapter) Subscribe(topic string, handler MessageHandler) error {
	token := a.client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		handler(msg.Topic(), msg.Payload(), "")
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("broker: subscribe %s: %w", topic, token.Error())
	}
	return nil
}

// Publish implements Adapter.
func (a *MQTTAdapter) Publish(topic string, payload []byte) error {
	token := a.client.Publish(topic, 0, false, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("broker: publish %s: %w", topic, token.Error())
	}
	return nil
}

// Disconnect implements Adapter.
func (a *MQTTAdapter) Disconnect() {
	a.mu.Lock()
	a.connected = false
	a.mu.Unlock()
	if a.client.IsConnected() {
		a.client.Disconnect(250)
	}
}
