package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/mcdev12/scoreboard/go/internal/matchstore/events"
	"github.com/mcdev12/scoreboard/go/internal/scoreboard/gateway"
	"github.com/mcdev12/scoreboard/go/internal/scoreboard/session"
	"github.com/mcdev12/scoreboard/go/internal/scoreboard/timer"
)

const defaultConfigPath = "scoreboard.yaml"

// Store drivers
const (
	driverMemory   = "memory"
	driverPostgres = "postgres"
	driverSQLite   = "sqlite"
)

type Config struct {
	Addr     string       `yaml:"addr" env:"SCOREBOARD_ADDR"`
	LogLevel string       `yaml:"log_level" env:"SCOREBOARD_LOG_LEVEL"`
	Timer    TimerConfig  `yaml:"timer" envPrefix:"SCOREBOARD_TIMER_"`
	Match    MatchConfig  `yaml:"match" envPrefix:"SCOREBOARD_MATCH_"`
	Store    StoreConfig  `yaml:"store" envPrefix:"SCOREBOARD_STORE_"`
	Events   EventsConfig `yaml:"events" envPrefix:"SCOREBOARD_EVENTS_"`
	WS       WSConfig     `yaml:"ws" envPrefix:"SCOREBOARD_WS_"`
}

type TimerConfig struct {
	DefaultDurationSec int64 `yaml:"default_duration_sec" env:"DEFAULT_DURATION_SEC"`
}

type MatchConfig struct {
	DefaultName    string        `yaml:"default_name" env:"DEFAULT_NAME"`
	PersistTimeout time.Duration `yaml:"persist_timeout" env:"PERSIST_TIMEOUT"`
}

type StoreConfig struct {
	Driver     string `yaml:"driver" env:"DRIVER"`
	SQLitePath string `yaml:"sqlite_path" env:"SQLITE_PATH"`
}

type EventsConfig struct {
	NATSURL       string `yaml:"nats_url" env:"NATS_URL"`
	Stream        string `yaml:"stream" env:"STREAM"`
	SubjectPrefix string `yaml:"subject_prefix" env:"SUBJECT_PREFIX"`
}

type WSConfig struct {
	WriteTimeout   time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	ReadTimeout    time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	PingInterval   time.Duration `yaml:"ping_interval" env:"PING_INTERVAL"`
	MaxMessageSize int64         `yaml:"max_message_size" env:"MAX_MESSAGE_SIZE"`
	SendBufferSize int           `yaml:"send_buffer_size" env:"SEND_BUFFER_SIZE"`
}

func defaultConfig() Config {
	ws := gateway.DefaultConnectionConfig()
	ev := events.DefaultJetStreamConfig()
	return Config{
		Addr:     ":8080",
		LogLevel: zerolog.InfoLevel.String(),
		Timer:    TimerConfig{DefaultDurationSec: timer.DefaultDurationSec},
		Match:    MatchConfig{DefaultName: session.DefaultName},
		Store:    StoreConfig{Driver: driverMemory, SQLitePath: "scoreboard.db"},
		Events:   EventsConfig{Stream: ev.StreamName, SubjectPrefix: ev.SubjectPrefix},
		WS: WSConfig{
			WriteTimeout:   ws.WriteTimeout,
			ReadTimeout:    ws.ReadTimeout,
			PingInterval:   ws.PingInterval,
			MaxMessageSize: ws.MaxMessageSize,
			SendBufferSize: ws.SendBufferSize,
		},
	}
}

func configPath() string {
	if p := os.Getenv("SCOREBOARD_CONFIG"); p != "" {
		return p
	}
	return defaultConfigPath
}

// loadConfig layers defaults, the optional YAML file at path, then the environment
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Debug().Str("path", path).Msg("no config file, using defaults and environment")
	case err != nil:
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	if port := os.Getenv("PORT"); port != "" && os.Getenv("SCOREBOARD_ADDR") == "" {
		cfg.Addr = ":" + port
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Store.Driver {
	case driverMemory, driverPostgres:
	case driverSQLite:
		if c.Store.SQLitePath == "" {
			return errors.New("store.sqlite_path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Timer.DefaultDurationSec <= 0 {
		return errors.New("timer.default_duration_sec must be positive")
	}
	if c.Match.PersistTimeout < 0 {
		return errors.New("match.persist_timeout must not be negative")
	}
	if c.WS.PingInterval <= 0 || c.WS.WriteTimeout <= 0 {
		return errors.New("ws.ping_interval and ws.write_timeout must be positive")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}
	return nil
}

func (c Config) connectionConfig() gateway.ConnectionConfig {
	cc := gateway.DefaultConnectionConfig()
	cc.WriteTimeout = c.WS.WriteTimeout
	cc.ReadTimeout = c.WS.ReadTimeout
	cc.PingInterval = c.WS.PingInterval
	cc.MaxMessageSize = c.WS.MaxMessageSize
	cc.SendBufferSize = c.WS.SendBufferSize
	return cc
}

func (c Config) sessionConfig() session.Config {
	return session.Config{
		DefaultDurationSec: c.Timer.DefaultDurationSec,
		DefaultName:        c.Match.DefaultName,
		PersistTimeout:     c.Match.PersistTimeout,
	}
}

func (c Config) jetStreamConfig() events.JetStreamConfig {
	js := events.DefaultJetStreamConfig()
	js.URL = c.Events.NATSURL
	js.StreamName = c.Events.Stream
	js.SubjectPrefix = c.Events.SubjectPrefix
	return js
}
