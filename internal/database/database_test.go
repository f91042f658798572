package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/ttsgateway/internal/config"
)

func TestPoolConfig(t *testing.T) {
	cfg, err := poolConfig(config.DatabaseConfig{
		URL:      "postgres://gw:pw@localhost:5432/tts",
		MaxConns: 4,
		MinConns: 10,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 4, cfg.MaxConns)
	assert.EqualValues(t, 4, cfg.MinConns)
	assert.Equal(t, applicationName, cfg.ConnConfig.RuntimeParams["application_name"])
}

func TestPoolConfig_KeepsApplicationName(t *testing.T) {
	cfg, err := poolConfig(config.DatabaseConfig{URL: "postgres://localhost/tts?application_name=reporting"})
	require.NoError(t, err)
	assert.Equal(t, "reporting", cfg.ConnConfig.RuntimeParams["application_name"])
}

func TestPoolConfig_BadURL(t *testing.T) {
	_, err := poolConfig(config.DatabaseConfig{URL: "postgres://%zz"})
	assert.ErrorContains(t, err, "parse database URL")
}

func TestNewPool_GivesUpAfterAttempts(t *testing.T) {
	cfg := config.DatabaseConfig{
		URL:             "postgres://gw@127.0.0.1:1/tts?connect_timeout=1",
		ConnectAttempts: 2,
		ConnectBackoff:  10 * time.Millisecond,
	}
	pool, err := NewPool(context.Background(), cfg, nil)
	assert.Nil(t, pool)
	assert.ErrorContains(t, err, "after 2 attempts")
}

func TestNewPool_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := config.DatabaseConfig{
		URL:             "postgres://gw@127.0.0.1:1/tts?connect_timeout=1",
		ConnectAttempts: 5,
		ConnectBackoff:  time.Hour,
	}
	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	_, err := NewPool(ctx, cfg, nil)
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 10*time.Second)
}
