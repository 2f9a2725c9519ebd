package util

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestInitializeLogger_Levels(t *testing.T) {
	tests := []struct {
		lvl  LogLevel
		want zerolog.Level
	}{
		{TraceLevel, zerolog.TraceLevel},
		{DebugLevel, zerolog.DebugLevel},
		{InfoLevel, zerolog.InfoLevel},
		{WarnLevel, zerolog.WarnLevel},
		{ErrorLevel, zerolog.ErrorLevel},
		{42, zerolog.InfoLevel},
	}
	for _, tt := range tests {
		InitializeLoggerTo(&bytes.Buffer{}, tt.lvl)
		assert.Equal(t, tt.want, zerolog.GlobalLevel())
	}
	InitializeLoggerTo(&bytes.Buffer{}, InfoLevel)
}

func TestNewLogLogger_RoutesToZerolog(t *testing.T) {
	var buf bytes.Buffer
	InitializeLoggerTo(&buf, DebugLevel)
	defer InitializeLoggerTo(&bytes.Buffer{}, InfoLevel)

	l := NewLogLogger("bridge", InfoLevel)
	l.Printf("hello %s", "zk")

	out := buf.String()
	assert.Contains(t, out, "hello zk")
	assert.Contains(t, out, "bridge")
}

func TestValueOrDefault(t *testing.T) {
	assert.Equal(t, 3, ValueOrDefault(Pointer(3), 7))
	assert.Equal(t, 7, ValueOrDefault[int](nil, 7))
}
