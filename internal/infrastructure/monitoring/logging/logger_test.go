package logging

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest/observer"
)

func TestObservedFields(t *testing.T) {
	core, logs := observer.New(parseLevel("debug"))
	l := NewLoggerFromCore(core)

	l.Info("enumeration finished",
		String("rule", "aromatic_hydroxylation"),
		Int("candidates", 4),
		Float64("score", 0.25),
		Bool("strict", true),
		Duration("took", 3*time.Millisecond),
	)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "enumeration finished", entries[0].Message)

	ctx := entries[0].ContextMap()
	assert.Equal(t, "aromatic_hydroxylation", ctx["rule"])
	assert.Equal(t, int64(4), ctx["candidates"])
	assert.Equal(t, 0.25, ctx["score"])
	assert.Equal(t, true, ctx["strict"])
}

func TestWithAndNamed(t *testing.T) {
	core, logs := observer.New(parseLevel("info"))
	l := NewLoggerFromCore(core).Named("pipeline").With(String("run_id", "r1"))

	l.Warn("candidate discarded")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "pipeline", entries[0].LoggerName)
	assert.Equal(t, "r1", entries[0].ContextMap()["run_id"])
}

func TestErrField(t *testing.T) {
	assert.Equal(t, "<nil>", Err(nil).Value)
	assert.Equal(t, "boom", Err(fmt.Errorf("boom")).Value)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"debug", "debug"},
		{"warn", "warn"},
		{"error", "error"},
		{"info", "info"},
		{"", "info"},
		{"bogus", "info"},
	}
	for _, tt := range tests {
		t.Run("level_"+tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in).String())
		})
	}
}

func TestNewLoggerDefaults(t *testing.T) {
	l, err := NewLogger(LogConfig{})
	require.NoError(t, err)
	require.NotNil(t, l)
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	// Must be safe to call every method without side effects.
	l.Debug("x")
	l.Info("x")
	l.Warn("x")
	l.Error("x")
	assert.Equal(t, l, l.With(String("k", "v")))
	assert.Equal(t, l, l.Named("n"))
}

func TestDefaultLogger(t *testing.T) {
	orig := Default()
	defer SetDefault(orig)

	l := NewNopLogger()
	SetDefault(l)
	assert.Equal(t, l, Default())

	// nil must be ignored.
	SetDefault(nil)
	assert.Equal(t, l, Default())
}
