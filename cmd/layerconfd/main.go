// File: lixenwraith/layerconf/cmd/layerconfd/main.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lixenwraith/layerconf"
	"github.com/spf13/pflag"
)

// ServerConfig is the "server" module
type ServerConfig struct {
	Host         string        `yaml:"host" validate:"required,hostname|ip"`
	Port         int           `yaml:"port" validate:"min=1,max=65535"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	AllowOrigins []string      `yaml:"allowOrigins"`
}

// RetryConfig is the "retry" module
type RetryConfig struct {
	RetryCount int `yaml:"retryCount" validate:"min=0,max=100"`
	Timeout    int `yaml:"timeout" validate:"required"`
}

func main() {
	fs := pflag.NewFlagSet("layerconfd", pflag.ExitOnError)
	defaultsDir := fs.String("defaults", "config/defaults", "directory of default configuration files")
	overridesDir := fs.String("overrides", "config/overrides", "directory of override configuration files")
	envPrefix := fs.String("env-prefix", "APP__", "prefix of configuration environment variables")
	watch := fs.Bool("watch", true, "reload modules when their files change")
	debounce := fs.Duration("debounce", layerconf.DefaultDebounce, "quiet period before a changed file is reloaded")
	logLevel := fs.String("log-level", "info", "log level: debug, info, warn, error")
	_ = fs.Parse(os.Args[1:])

	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(*logLevel))); err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level %q\n", *logLevel)
		os.Exit(2)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	bus := layerconf.NewBus()
	defer bus.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := layerconf.NewBuilder().
		WithDefaultsPath(*defaultsDir).
		WithOverridesPath(*overridesDir).
		WithEnvPrefix(*envPrefix).
		WithHotReload(*watch).
		WithWatchOptions(layerconf.WatchOptions{Debounce: *debounce}).
		WithLogger(logger).
		WithPublisher(bus).
		WithModule("server", layerconf.NewStructSchema(ServerConfig{Host: "localhost", Port: 8080})).
		WithModule("retry", layerconf.NewStructSchema(RetryConfig{RetryCount: 3})).
		BuildAndStart(ctx)
	if err != nil {
		logger.Error("failed to start configuration", "error", err)
		os.Exit(1)
	}
	defer svc.Close()

	server, err := layerconf.ViewOf[ServerConfig](svc, "server")
	if err != nil {
		logger.Error("server module missing", "error", err)
		os.Exit(1)
	}
	logModules(logger, svc)

	updates, unsubscribe := bus.Subscribe(layerconf.TopicUpdated)
	defer unsubscribe()

	logger.Info("watching for configuration changes, press Ctrl+C to exit", "watching", svc.Watching())

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return

		case ev, ok := <-updates:
			if !ok {
				return
			}
			update := ev.Payload.(*layerconf.UpdateEvent)
			logger.Info("configuration updated",
				"key", update.Key,
				"version", update.Version,
				"changed", update.ChangedPaths)
			if update.Key == "server" {
				port, _ := server.Int64("port")
				logger.Info("server listener must move", "port", port)
			}

		case <-ticker.C:
			if cfg, err := server.Get(); err == nil {
				logger.Debug("server still configured", "addr", fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), "version", server.Version())
			}
		}
	}
}

func logModules(logger *slog.Logger, svc *layerconf.Service) {
	for _, key := range svc.Registry().Keys() {
		snap, ok := svc.Snapshot(key)
		if !ok {
			logger.Warn("module unavailable", "key", key, "state", svc.State(key).String())
			continue
		}
		logger.Info("module loaded", "key", key, "version", snap.Version, "value", fmt.Sprintf("%+v", snap.Value))
	}
}
