// Package server parses exercise service flags and launches the service.
package server

import (
	"context"
	"flag"

	entrypoint "github.com/mkarsten/ironlog/internal/platform/cmd"
	server "github.com/mkarsten/ironlog/internal/server/app"
)

// Config holds server command configuration.
type Config struct {
	Port int `env:"IRONLOG_PORT" envDefault:"8080"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The exercise HTTP server port")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the exercise HTTP API service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceServer, func(context.Context) error {
		return server.Run(ctx, cfg.Port)
	})
}
