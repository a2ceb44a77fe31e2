package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewConfigLevel(t *testing.T) {
	assert.Equal(t, zap.InfoLevel, NewConfig(false).Level.Level())
	assert.Equal(t, zap.DebugLevel, NewConfig(true).Level.Level())
	assert.True(t, NewConfig(false).DisableStacktrace)
}

func TestNew(t *testing.T) {
	logger := New("test", false)
	assert.NotNil(t, logger)
	assert.False(t, logger.Desugar().Core().Enabled(zapcore.DebugLevel))
	assert.True(t, New("test", true).Desugar().Core().Enabled(zapcore.DebugLevel))
}

func TestNewObserved(t *testing.T) {
	logger, logs := NewObserved()
	logger.Debugw("frame written", "id", "001-0")
	logger.Warnf("camera %s missing", "back_camera")

	entries := logs.All()
	assert.Len(t, entries, 2)
	assert.Equal(t, "frame written", entries[0].Message)
	assert.Equal(t, "001-0", entries[0].ContextMap()["id"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "camera back_camera missing", entries[1].Message)
}
