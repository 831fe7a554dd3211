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
	"github.com/HadlerHT/Gateway-MQTT-Modbus/internal/gateway"
)

func main() {
	cfg, err := config.LoadGatewayConfig(os.Args[1:])
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	config.SetupLogger(cfg.Log)
	slog.Info("starting modbus gateway", "name", cfg.Name)

	adapter := broker.NewMQTTAdapter(broker.Config{
		BrokerURL: cfg.Broker.URL,
		ClientID:  cfg.Broker.ClientID,
		Username:  cfg.Broker.Username,
		Password:  cfg.Broker.Password,
		KeepAlive: cfg.Broker.KeepAlive,
	})

	gw := gateway.New(cfg.Name, adapter, cfg.QueueMaxSize, cfg.QueueTimeout)
	if err := gw.Start(); err != nil {
		slog.Error("gateway failed to start", "err", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	slog.Info("shutting down...")
	gw.Stop()
	slog.Info("goodbye.")
}
