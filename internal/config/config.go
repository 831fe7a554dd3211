// Copyright (c) 2025-2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package config loads the gateway's and field agent's configuration
// from flags and a config file, via viper and pflag. Environment
// variables are not read.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// LogConfig controls the slog handler both binaries start with.
type LogConfig struct {
	Level string `mapstructure:"log_level"`
	File  string `mapstructure:"log_file"`
}

// BrokerConfig is the MQTT connection both the gateway and the field
// agent dial, spec.md §6.
type BrokerConfig struct {
	URL       string        `mapstructure:"broker_url"`
	ClientID  string        `mapstructure:"client_id"`
	Username  string        `mapstructure:"broker_username"`
	Password  string        `mapstructure:"broker_password"`
	KeepAlive time.Duration `mapstructure:"broker_keepalive"`
}

// SerialConfig describes one UART, reused from the field agent's
// perspective; field names mirror the teacher's own SerialConfig.
type SerialConfig struct {
	Device   string `mapstructure:"device"`
	BaudRate int    `mapstructure:"baud_rate"`
	DataBits int    `mapstructure:"data_bits"`
	Parity   string `mapstructure:"parity"`
	StopBits int    `mapstructure:"stop_bits"`
}

// GatewayConfig is cmd/gateway's configuration.
type GatewayConfig struct {
	Name         string        `mapstructure:"name"`
	Broker       BrokerConfig  `mapstructure:",squash"`
	QueueMaxSize int           `mapstructure:"queue_max_size"`
	QueueTimeout time.Duration `mapstructure:"queue_timeout"`
	Log          LogConfig     `mapstructure:",squash"`
}

// FieldAgentConfig is cmd/fieldagent's configuration: one process, one
// UART, one logical device id.
type FieldAgentConfig struct {
	DeviceID string       `mapstructure:"device_id"`
	Broker   BrokerConfig `mapstructure:",squash"`
	Serial   SerialConfig `mapstructure:",squash"`
	Log      LogConfig    `mapstructure:",squash"`
}

func newViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/modbusgw/")
		v.AddConfigPath("$HOME/.modbusgw")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return v, nil
}

// LoadGatewayConfig loads cmd/gateway's configuration from flags and
// an optional config file, in that precedence order, falling back to
// the flag defaults.
func LoadGatewayConfig(args []string) (*GatewayConfig, error) {
	flags := pflag.NewFlagSet("gateway", pflag.ContinueOnError)

	configFile := flags.StringP("config", "c", "", "Configuration file path.")
	flags.String("name", "gateway", "Gateway instance name, used only in logs.")
	flags.String("broker_url", "tcp://localhost:1883", "MQTT broker URL.")
	flags.String("client_id", "modbus-gateway", "MQTT client id.")
	flags.String("broker_username", "", "MQTT username.")
	flags.String("broker_password", "", "MQTT password.")
	flags.Duration("broker_keepalive", 60*time.Second, "MQTT keep-alive interval.")
	flags.Int("queue_max_size", 256, "Per-device queue admission cap.")
	flags.Duration("queue_timeout", 3000*time.Millisecond, "Per-ADU response wait timeout.")
	flags.String("log_level", "info", "Log verbosity level (debug, info, warn, error).")
	flags.String("log_file", "", "Log file path ('' for STDOUT).")
	if err := flags.Parse(args); err != nil {
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}

	v, err := newViper(*configFile)
	if err != nil {
		return nil, err
	}
	if err := v.BindPFlags(flags); err != nil {
		return nil, fmt.Errorf("failed to bind pflags: %w", err)
	}

	var cfg GatewayConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.QueueMaxSize <= 0 {
		cfg.QueueMaxSize = 256
	}
	if cfg.QueueTimeout <= 0 {
		cfg.QueueTimeout = 3000 * time.Millisecond
	}
	return &cfg, nil
}

// LoadFieldAgentConfig loads cmd/fieldagent's configuration.
func LoadFieldAgentConfig(args []string) (*FieldAgentConfig, error) {
	flags := pflag.NewFlagSet("fieldagent", pflag.ContinueOnError)

	configFile := flags.StringP("config", "c", "", "Configuration file path.")
	flags.String("device_id", "", "Logical device id this agent serves (the <device> topic segment).")
	flags.String("broker_url", "tcp://localhost:1883", "MQTT broker URL.")
	flags.String("client_id", "modbus-field-agent", "MQTT client id.")
	flags.String("broker_username", "", "MQTT username.")
	flags.String("broker_password", "", "MQTT password.")
	flags.Duration("broker_keepalive", 60*time.Second, "MQTT keep-alive interval.")
	flags.StringP("device", "p", "/tmp/pts1", "Serial port device name.")
	flags.IntP("baud_rate", "s", 19200, "Serial port speed.")
	flags.Int("data_bits", 8, "Serial data bits.")
	flags.String("parity", "N", "Serial parity (N, E, O).")
	flags.Int("stop_bits", 1, "Serial stop bits.")
	flags.String("log_level", "info", "Log verbosity level (debug, info, warn, error).")
	flags.String("log_file", "", "Log file path ('' for STDOUT).")
	if err := flags.Parse(args); err != nil {
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}

	v, err := newViper(*configFile)
	if err != nil {
		return nil, err
	}
	if err := v.BindPFlags(flags); err != nil {
		return nil, fmt.Errorf("failed to bind pflags: %w", err)
	}

	var cfg FieldAgentConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	fixupSerial(&cfg.Serial)
	if cfg.DeviceID == "" {
		return nil, fmt.Errorf("device_id is required")
	}
	return &cfg, nil
}

func fixupSerial(s *SerialConfig) {
	s.Parity = strings.ToUpper(s.Parity)
	if s.DataBits == 0 {
		s.DataBits = 8
	}
	if s.StopBits == 0 {
		s.StopBits = 1
	}
}

// SetupLogger installs a slog handler from cfg as the process default.
func SetupLogger(cfg LogConfig) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.File != "" && cfg.File != "-" {
		f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Printf("Failed to open log file, falling back to stdout: %v\n", err)
			handler = slog.NewTextHandler(os.Stdout, opts)
		} else {
			handler = slog.NewTextHandler(f, opts)
		}
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
