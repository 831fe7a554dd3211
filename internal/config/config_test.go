// Copyright (c) 2025-2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadGatewayConfigDefaults(t *testing.T) {
	cfg, err := LoadGatewayConfig(nil)
	if err != nil {
		t.Fatalf("LoadGatewayConfig: %v", err)
	}
	if cfg.Name != "gateway" {
		t.Fatalf("unexpected name: %q", cfg.Name)
	}
	if cfg.QueueMaxSize != 256 {
		t.Fatalf("unexpected queue max size: %d", cfg.QueueMaxSize)
	}
	if cfg.QueueTimeout != 3000*time.Millisecond {
		t.Fatalf("unexpected queue timeout: %v", cfg.QueueTimeout)
	}
}

func TestLoadGatewayConfigFlagsOverrideDefaults(t *testing.T) {
	cfg, err := LoadGatewayConfig([]string{
		"--name", "acme-gw",
		"--broker_url", "tcp://broker.example:1883",
		"--queue_max_size", "64",
	})
	if err != nil {
		t.Fatalf("LoadGatewayConfig: %v", err)
	}
	if cfg.Name != "acme-gw" || cfg.Broker.URL != "tcp://broker.example:1883" || cfg.QueueMaxSize != 64 {
		t.Fatalf("flags did not override config: %+v", cfg)
	}
}

func TestLoadGatewayConfigReadsYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	body := "name: yard-gw\nbroker_url: tcp://yard.example:1883\nqueue_max_size: 32\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadGatewayConfig([]string{"--config", path})
	if err != nil {
		t.Fatalf("LoadGatewayConfig: %v", err)
	}
	if cfg.Name != "yard-gw" || cfg.Broker.URL != "tcp://yard.example:1883" || cfg.QueueMaxSize != 32 {
		t.Fatalf("config file values not applied: %+v", cfg)
	}
}

func TestLoadGatewayConfigFlagOverridesYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	body := "name: yard-gw\nqueue_max_size: 32\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadGatewayConfig([]string{"--config", path, "--name", "flag-wins"})
	if err != nil {
		t.Fatalf("LoadGatewayConfig: %v", err)
	}
	if cfg.Name != "flag-wins" {
		t.Fatalf("expected flag to take precedence over config file, got %q", cfg.Name)
	}
}

func TestLoadFieldAgentConfigRequiresDeviceID(t *testing.T) {
	if _, err := LoadFieldAgentConfig(nil); err == nil {
		t.Fatal("expected error when device_id is not supplied")
	}
}

func TestLoadFieldAgentConfigFixesUpSerialDefaults(t *testing.T) {
	cfg, err := LoadFieldAgentConfig([]string{"--device_id", "dev1", "--parity", "n"})
	if err != nil {
		t.Fatalf("LoadFieldAgentConfig: %v", err)
	}
	if cfg.Serial.Parity != "N" {
		t.Fatalf("expected parity to be upper-cased, got %q", cfg.Serial.Parity)
	}
	if cfg.Serial.DataBits != 8 || cfg.Serial.StopBits != 1 {
		t.Fatalf("unexpected serial defaults: %+v", cfg.Serial)
	}
}
