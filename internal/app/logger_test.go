package app

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewLoggerLevel(t *testing.T) {
	info := NewLogger(&Config{LogFormat: "json"})
	require.False(t, info.Enabled(context.Background(), slog.LevelDebug))
	require.True(t, info.Enabled(context.Background(), slog.LevelInfo))

	debug := NewLogger(&Config{LogLevel: "DEBUG"})
	require.True(t, debug.Enabled(context.Background(), slog.LevelDebug))

	warn := NewLogger(&Config{LogLevel: "warn"})
	require.False(t, warn.Enabled(context.Background(), slog.LevelInfo))
	require.True(t, warn.Enabled(context.Background(), slog.LevelWarn))

	require.True(t, NewLogger(nil).Enabled(context.Background(), slog.LevelInfo))
}
