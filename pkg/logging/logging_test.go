package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBuildLevels(t *testing.T) {
	cases := map[string]zap.AtomicLevel{
		"debug":   zap.NewAtomicLevelAt(zap.DebugLevel),
		"info":    zap.NewAtomicLevelAt(zap.InfoLevel),
		"warn":    zap.NewAtomicLevelAt(zap.WarnLevel),
		"error":   zap.NewAtomicLevelAt(zap.ErrorLevel),
		"verbose": zap.NewAtomicLevelAt(zap.InfoLevel),
	}
	for level, want := range cases {
		t.Run(level, func(t *testing.T) {
			l, err := Build(level, "console")
			require.NoError(t, err)
			assert.True(t, l.Core().Enabled(want.Level()))
			assert.False(t, l.Core().Enabled(want.Level()-1))
		})
	}
}

func TestBuildRejectsUnknownEncoding(t *testing.T) {
	_, err := Build("info", "xml")
	require.Error(t, err)
}

func TestNewReadsEnvironment(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("LOG_ENCODING", "console")
	l, err := New()
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zap.InfoLevel))
}
