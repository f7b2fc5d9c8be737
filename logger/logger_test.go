package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNewWithWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf, "info")

	log.Info().Msg("test message")
	log.Debug().Msg("hidden")

	assert.Contains(t, buf.String(), "test message")
	assert.NotContains(t, buf.String(), "hidden")
}

func TestNewWithWriter_UnknownLevel(t *testing.T) {
	log := NewWithWriter(&bytes.Buffer{}, "loud")
	assert.Equal(t, zerolog.InfoLevel, log.GetLevel())
}

func TestFromContext(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := WithContext(context.Background(), NewWithWriter(buf, "debug"))

	log := FromContext(ctx)
	log.Debug().Msg("test")

	assert.NotZero(t, buf.Len())
}

func TestFromContext_Default(t *testing.T) {
	log := FromContext(context.Background())
	assert.Equal(t, zerolog.Disabled, log.GetLevel())
}
