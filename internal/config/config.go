// AreaNode - Sharded Game World Cache and Dispatch Node
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/areanode

// Package config loads and validates the node's configuration: the
// listening ports and worker count, the database connection, the broker
// link, logging, and the bearer-authentication secret. It uses koanf for
// layered loading (defaults, then an optional file, then environment
// variables) and go-playground/validator for struct-tag validation,
// following the same stack and layering order as the wider example pack.
package config

import "time"

// ServerConfig configures the area node's listeners and worker pool.
type ServerConfig struct {
	Workers int    `koanf:"workers" validate:"min=1"`
	TCPPort int    `koanf:"tcp_port" validate:"min=1,max=65535"`
	WSPort  int    `koanf:"ws_port" validate:"min=1,max=65535"`
	AreaID  uint64 `koanf:"area_id"`

	BoundsStartX  int32 `koanf:"bounds_start_x"`
	BoundsStartY  int32 `koanf:"bounds_start_y"`
	BoundsEndX    int32 `koanf:"bounds_end_x" validate:"gtfield=BoundsStartX"`
	BoundsEndY    int32 `koanf:"bounds_end_y" validate:"gtfield=BoundsStartY"`
	LOSRadius     int32 `koanf:"los_radius" validate:"min=0"`

	TickInterval   time.Duration `koanf:"tick_interval" validate:"min=1000000"`
	UpdatesPerTick int           `koanf:"updates_per_tick" validate:"min=1"`
}

// BrokerConfig configures the outbound broker link.
type BrokerConfig struct {
	Address string `koanf:"address"`
	Port    int    `koanf:"port" validate:"min=1,max=65535"`
}

// DatabaseConfig configures the transactional store.
type DatabaseConfig struct {
	Path string `koanf:"path" validate:"required"`
}

// LoggingConfig configures internal/logging.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// SecurityConfig configures bearer pre-authentication.
type SecurityConfig struct {
	JWTSecret          string        `koanf:"jwt_secret" validate:"omitempty,min=32"`
	RevokedCapacity    int           `koanf:"revoked_capacity" validate:"min=1"`
	RevokedTTL         time.Duration `koanf:"revoked_ttl" validate:"min=1000000"`
	InboundFramesPerSec float64      `koanf:"inbound_frames_per_sec" validate:"min=0"`
	InboundBurst       int           `koanf:"inbound_burst" validate:"min=1"`
}

// AdminConfig configures the liveness/readiness/metrics HTTP surface.
type AdminConfig struct {
	Addr string `koanf:"addr"`
}

// Config is the node's complete, validated configuration tree.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Broker   BrokerConfig   `koanf:"broker"`
	Database DatabaseConfig `koanf:"database"`
	Logging  LoggingConfig  `koanf:"log"`
	Security SecurityConfig `koanf:"auth"`
	Admin    AdminConfig    `koanf:"admin"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Workers:        4,
			TCPPort:        9100,
			WSPort:         9101,
			BoundsEndX:     1000,
			BoundsEndY:     1000,
			LOSRadius:      20,
			TickInterval:   100 * time.Millisecond,
			UpdatesPerTick: 50,
		},
		Broker: BrokerConfig{
			Address: "",
			Port:    9200,
		},
		Database: DatabaseConfig{
			Path: ":memory:",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Security: SecurityConfig{
			RevokedCapacity:     10000,
			RevokedTTL:          time.Hour,
			InboundFramesPerSec: 50,
			InboundBurst:        100,
		},
		Admin: AdminConfig{
			Addr: ":9110",
		},
	}
}
