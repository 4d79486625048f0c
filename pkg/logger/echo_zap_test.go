package logger

import (
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var _ echo.Logger = (*EchoZapLogger)(nil)

func TestEchoZapLogger_Levels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewEchoZapLogger(zap.New(core))

	l.Debug("숨김")
	l.Infof("시작 %d", 8080)
	l.SetLevel(log.WARN)
	l.Info("숨김")
	l.Warnj(log.JSON{"route": "/webhook/emis"})
	l.SetLevel(log.OFF)
	l.Error("숨김")

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)
	assert.Equal(t, "시작 8080", entries[0].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "/webhook/emis", entries[1].ContextMap()["route"])
}

func TestEchoZapLogger_PrefixAndOutput(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewEchoZapLogger(zap.New(core))

	l.SetPrefix("echo")
	assert.Equal(t, "echo", l.Prefix())
	l.Print("hello")

	_, err := l.Output().Write([]byte("line from echo\n"))
	require.NoError(t, err)

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)
	assert.Equal(t, "echo", entries[0].LoggerName)
	assert.Equal(t, "line from echo", entries[1].Message)
}
