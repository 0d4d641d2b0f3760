package cache

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magnet-design/magnet-core/internal/config"
)

func startMiniredis(t *testing.T) (*miniredis.Miniredis, *Client) {
	t.Helper()
	s := miniredis.RunT(t)
	client, err := NewClient(config.RedisConfig{URL: "redis://" + s.Addr(), PoolSize: 10})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return s, client
}

func TestNewClient_Success(t *testing.T) {
	_, client := startMiniredis(t)
	assert.NotNil(t, client)
}

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := NewClient(config.RedisConfig{URL: "://not-a-url"})
	assert.Error(t, err)
}

func TestClient_Health(t *testing.T) {
	s, client := startMiniredis(t)
	assert.NoError(t, client.Health(t.Context()))
	s.Close()
	assert.Error(t, client.Health(t.Context()))
}
