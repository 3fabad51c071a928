package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(Config{ServiceName: "rent-manager", Level: "debug"})
	require.NoError(t, err)
	require.True(t, logger.Core().Enabled(zap.DebugLevel))

	_, err = NewLogger(Config{ServiceName: "rent-manager", Level: "loud"})
	require.Error(t, err)
}

func TestContextLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	base := zap.New(core)
	fallback := zap.NewNop()

	require.Same(t, fallback, FromContext(context.Background(), fallback))

	ctx := WithLogger(context.Background(), WithRequestID(base, "req-1"))
	FromContext(ctx, fallback).Info("hello")

	require.Equal(t, 1, logs.Len())
	require.Equal(t, "req-1", logs.All()[0].ContextMap()["request_id"])
}
