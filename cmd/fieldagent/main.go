// Copyright (c) 2025-2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/HadlerHT/Gateway-MQTT-Modbus/internal/broker"
	"github.com/HadlerHT/Gateway-MQTT-Modbus/internal/config"
	"github.com/HadlerHT/Gateway-MQTT-Modbus/internal/fieldagent"
)

func main() {
	cfg, err := config.LoadFieldAgentConfig(os.Args[1:])
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	config.SetupLogger(cfg.Log)
	slog.Info("starting modbus field agent", "device_id", cfg.DeviceID)

	adapter := broker.NewMQTTAdapter(broker.Config{
		BrokerURL: cfg.Broker.URL,
		ClientID:  cfg.Broker.ClientID,
		Username:  cfg.Broker.Username,
		Password:  cfg.Broker.Password,
		KeepAlive: cfg.Broker.KeepAlive,
	})

	agent := fieldagent.New(cfg.Broker.ClientID, cfg.DeviceID, adapter, fieldagent.SerialConfig{
		Device:   cfg.Serial.Device,
		BaudRate: cfg.Serial.BaudRate,
		DataBits: cfg.Serial.DataBits,
		Parity:   cfg.Serial.Parity,
		StopBits: cfg.Serial.StopBits,
	})
	if err := agent.Start(); err != nil {
		slog.Error("field agent failed to start", "err", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	slog.Info("shutting down...")
	agent.Stop()
	slog.Info("goodbye.")
}
