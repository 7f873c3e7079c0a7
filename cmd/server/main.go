// Command server starts the roomchat WebSocket relay.
//
// Flags control the listen address, allowed origins, frame size limit,
// per-connection send buffer, logging and the shutdown timeout. Defaults come
// from the environment (optionally loaded from a .env file).
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/Tyrowin/roomchat/internal/logging"
	"github.com/Tyrowin/roomchat/internal/relay"
	"github.com/Tyrowin/roomchat/internal/server"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "roomchat"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("error loading .env file", "err", err)
	}

	if err := newCommand(server.NewConfigFromEnv()).Run(context.Background(), os.Args); err != nil {
		slog.Error("roomchat exited", "err", err)
		os.Exit(1)
	}
}

// newCommand builds the CLI with flag defaults taken from defaults.
func newCommand(defaults *server.Config) *cli.Command {
	return &cli.Command{
		Name:    AppName,
		Usage:   "room-based WebSocket chat relay",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Value:   defaults.Port,
				Usage:   "listen address, e.g. :8080 or 127.0.0.1:8080 (env SERVER_PORT)",
			},
			&cli.StringSliceFlag{
				Name:  "allowed-origins",
				Value: defaults.AllowedOrigins,
				Usage: "origins allowed to open WebSockets, * for any (env ALLOWED_ORIGINS)",
			},
			&cli.Int64Flag{
				Name:  "max-message-size",
				Value: defaults.MaxMessageSize,
				Usage: "maximum inbound frame size in bytes (env MAX_MESSAGE_SIZE)",
			},
			&cli.IntFlag{
				Name:  "send-buffer",
				Value: defaults.SendBufferSize,
				Usage: "outbound envelopes buffered per connection (env SEND_BUFFER_SIZE)",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Value: defaults.LogFormat,
				Usage: "text or json (env LOG_FORMAT)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: defaults.LogLevel,
				Usage: "debug, info, warn or error (env LOG_LEVEL)",
			},
			&cli.DurationFlag{
				Name:  "shutdown-timeout",
				Value: defaults.ShutdownTimeout,
				Usage: "time allowed for graceful shutdown (env SHUTDOWN_TIMEOUT)",
			},
		},
		Action: run,
	}
}

// configFromCommand reads the parsed flags into a server configuration.
func configFromCommand(cmd *cli.Command) server.Config {
	return server.Config{
		Port:            cmd.String("port"),
		AllowedOrigins:  cmd.StringSlice("allowed-origins"),
		MaxMessageSize:  cmd.Int64("max-message-size"),
		SendBufferSize:  cmd.Int("send-buffer"),
		LogFormat:       cmd.String("log-format"),
		LogLevel:        cmd.String("log-level"),
		ShutdownTimeout: cmd.Duration("shutdown-timeout"),
	}.Sanitize()
}

// run starts the hub and the HTTP server and blocks until a shutdown signal
// has been handled or the listener fails.
func run(ctx context.Context, cmd *cli.Command) error {
	cfg := configFromCommand(cmd)

	logger, err := logging.New(os.Stdout, cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	logger.Info("starting", "app", AppName, "version", Version, "port", cfg.Port)

	metrics := relay.NewMetrics()
	hub := relay.NewHub(logger, metrics)
	go hub.Run()

	srv := server.New(cfg, hub, metrics, logger)
	httpServer := server.CreateServer(cfg.Port, srv.Routes())

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.StartServer(logger, httpServer)
	}()

	wait := gfshutdown.GracefulShutdown(ctx, cfg.ShutdownTimeout, map[string]gfshutdown.Operation{
		"http": func(ctx context.Context) error {
			return server.ShutdownServer(ctx, logger, httpServer)
		},
		"relay": func(ctx context.Context) error {
			if err := hub.Shutdown(ctx); err != nil {
				return err
			}
			return srv.WaitForClients(ctx)
		},
	})

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = hub.Shutdown(shutdownCtx)
			return fmt.Errorf("http server: %w", err)
		}
		return exitStatus(<-wait)

	case code := <-wait:
		return exitStatus(code)
	}
}

func exitStatus(code int) error {
	if code != 0 {
		return cli.Exit("shutdown did not complete cleanly", code)
	}
	return nil
}
