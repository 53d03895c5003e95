package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

// TestParseLogLevel verifies mapping from strings to zapcore.Level and handling of unknown values.
func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]zapcore.Level{
		"debug": zapcore.DebugLevel,
		"info":  zapcore.InfoLevel,
		"warn":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
		"fatal": zapcore.FatalLevel,
	}
	for s, lvl := range cases {
		got, ok := ParseLogLevel(s)
		require.True(t, ok)
		require.Equal(t, lvl, got)
	}

	_, ok := ParseLogLevel("unknown")
	require.False(t, ok)
}

// TestFromContext_Fallback ensures the global logger is returned for a bare context.
func TestFromContext_Fallback(t *testing.T) {
	t.Parallel()

	require.NotNil(t, FromContext(context.Background()))
	require.Same(t, Logger(), FromContext(context.Background()))
}

// TestWithName_Scoped ensures a named logger is carried by the returned context.
func TestWithName_Scoped(t *testing.T) {
	t.Parallel()

	ctx := WithName(context.Background(), "umu-launcher")
	require.NotSame(t, Logger(), FromContext(ctx))
}
