package configs

import (
	"fmt"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server      ServerConfig      `koanf:"server"`
	RateLimiter RateLimiterConfig `koanf:"rate_limiter"`
	Rooms       RoomsConfig       `koanf:"rooms"`
	WS          WSConfig          `koanf:"ws"`
	Tracing     TracingConfig     `koanf:"tracing"`
	Static      StaticConfig      `koanf:"static"`
}

type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type RateLimiterConfig struct {
	Enabled              bool          `koanf:"enabled"`
	RequestsPerTimeFrame int           `koanf:"requests_per_time_frame"`
	TimeFrame            time.Duration `koanf:"time_frame"`
}

// RoomsConfig bounds the in-memory document store. A room whose document
// has gone untouched for idle_expiry and that has no connected sessions is
// deleted by the sweep.
type RoomsConfig struct {
	Capacity      uint          `koanf:"capacity"`
	IdleExpiry    time.Duration `koanf:"idle_expiry"`
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

type WSConfig struct {
	ReadLimit  int64 `koanf:"read_limit"`
	SendBuffer int   `koanf:"send_buffer"`
}

type TracingConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Exporter    string  `koanf:"exporter"` // "otlp" or "jaeger"
	Endpoint    string  `koanf:"endpoint"`
	SampleRatio float64 `koanf:"sample_ratio"`
}

type StaticConfig struct {
	Dir string `koanf:"dir"` // editor assets; empty disables the file server
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":3000",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     time.Minute,
			ShutdownTimeout: 10 * time.Second,
		},
		RateLimiter: RateLimiterConfig{
			Enabled:              true,
			RequestsPerTimeFrame: 100,
			TimeFrame:            time.Minute,
		},
		Rooms: RoomsConfig{
			Capacity:      100,
			IdleExpiry:    time.Hour,
			SweepInterval: 5 * time.Minute,
		},
		WS: WSConfig{
			ReadLimit:  1 << 20,
			SendBuffer: 64,
		},
		Tracing: TracingConfig{
			Exporter:    "otlp",
			SampleRatio: 1.0,
		},
	}
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}
