package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/Tyrowin/roomchat/internal/server"
)

func parse(t *testing.T, args ...string) server.Config {
	t.Helper()

	var got server.Config
	cmd := newCommand(server.NewConfig())
	cmd.Action = func(_ context.Context, c *cli.Command) error {
		got = configFromCommand(c)
		return nil
	}
	require.NoError(t, cmd.Run(context.Background(), append([]string{AppName}, args...)))
	return got
}

func TestConfigFromCommandDefaults(t *testing.T) {
	cfg := parse(t)

	assert.Equal(t, *server.NewConfig(), cfg)
}

func TestConfigFromCommandFlags(t *testing.T) {
	cfg := parse(t,
		"-p", "9000",
		"--allowed-origins", "http://a.example",
		"--allowed-origins", "http://b.example",
		"--max-message-size", "1024",
		"--send-buffer", "16",
		"--log-format", "json",
		"--log-level", "debug",
		"--shutdown-timeout", "3s",
	)

	assert.Equal(t, ":9000", cfg.Port)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, int64(1024), cfg.MaxMessageSize)
	assert.Equal(t, 16, cfg.SendBufferSize)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
}

func TestExitStatus(t *testing.T) {
	assert.NoError(t, exitStatus(0))

	err := exitStatus(1)
	var coder cli.ExitCoder
	require.ErrorAs(t, err, &coder)
	assert.Equal(t, 1, coder.ExitCode())
}
