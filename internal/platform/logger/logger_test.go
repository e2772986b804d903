package logger_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/loamdb/loam/internal/config"
	"github.com/loamdb/loam/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup(t *testing.T) {
	tests := []struct {
		name          string
		logLevel      string
		expectedLevel slog.Level
	}{
		{name: "debug_level", logLevel: "debug", expectedLevel: slog.LevelDebug},
		{name: "info_level", logLevel: "info", expectedLevel: slog.LevelInfo},
		{name: "warn_level", logLevel: "warn", expectedLevel: slog.LevelWarn},
		{name: "error_level", logLevel: "error", expectedLevel: slog.LevelError},
		{name: "mixed_case", logLevel: "WARN", expectedLevel: slog.LevelWarn},
		{name: "unknown_falls_back_to_info", logLevel: "verbose", expectedLevel: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := logger.Setup(config.ServerConfig{LogLevel: tt.logLevel})
			require.NoError(t, err)
			require.NotNil(t, log)

			assert.True(t, log.Enabled(context.Background(), tt.expectedLevel))
			if tt.expectedLevel > slog.LevelDebug {
				assert.False(t, log.Enabled(context.Background(), tt.expectedLevel-1))
			}
		})
	}
}

func TestSetupInstallsDefault(t *testing.T) {
	log, err := logger.Setup(config.ServerConfig{LogLevel: "error"})
	require.NoError(t, err)

	assert.Equal(t, log, slog.Default())
}

func TestFromContextOrDefault(t *testing.T) {
	defaultLogger := slog.Default()
	customLogger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name     string
		ctx      context.Context
		expected *slog.Logger
	}{
		{
			name:     "nil_context_returns_default",
			ctx:      nil,
			expected: defaultLogger,
		},
		{
			name:     "context_without_logger_returns_default",
			ctx:      context.Background(),
			expected: defaultLogger,
		},
		{
			name:     "context_with_logger_returns_context_logger",
			ctx:      logger.WithLogger(context.Background(), customLogger),
			expected: customLogger,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := logger.FromContextOrDefault(tt.ctx, defaultLogger)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestWithLogger(t *testing.T) {
	t.Run("valid_logger", func(t *testing.T) {
		customLogger := slog.New(slog.NewTextHandler(io.Discard, nil))
		ctx := logger.WithLogger(context.Background(), customLogger)

		assert.Equal(t, customLogger, logger.FromContext(ctx))
	})

	t.Run("nil_logger_panics", func(t *testing.T) {
		assert.Panics(t, func() {
			logger.WithLogger(context.Background(), nil)
		})
	})
}
