package app

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taiga-metrics-service/internal/config"
)

func TestNew_RequiresTaigaDSN(t *testing.T) {
	cfg := &config.Config{}
	a, err := New(context.Background(), cfg, NewLogger(cfg, io.Discard))
	assert.ErrorIs(t, err, config.ErrMissingDSN)
	assert.Nil(t, a)
}

func TestNewLogger_TagsService(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&config.Config{}, &buf)
	log.Info("hello")
	require.Contains(t, buf.String(), ServiceName)
}
