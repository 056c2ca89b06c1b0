package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*Manager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	cfg := DefaultConfig()
	cfg.Addr = mr.Addr()
	cfg.DefaultTTL = time.Minute

	m, err := NewManager(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m, mr
}

func TestManager_JSONRoundTrip(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	type payload struct {
		Campaign string `json:"campaign"`
		Count    int    `json:"count"`
	}

	require.NoError(t, m.SetJSON(ctx, "recalls:audi", payload{Campaign: "24V-123", Count: 2}, 0))

	var got payload
	require.NoError(t, m.GetJSON(ctx, "recalls:audi", &got))
	assert.Equal(t, "24V-123", got.Campaign)
	assert.Equal(t, 2, got.Count)
}

func TestManager_Miss(t *testing.T) {
	m, _ := newTestManager(t)

	var dest map[string]any
	err := m.GetJSON(context.Background(), "absent", &dest)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestManager_TTLAndDelete(t *testing.T) {
	m, mr := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.SetJSON(ctx, "k", "v", 30*time.Second))
	mr.FastForward(time.Minute)

	var dest string
	assert.ErrorIs(t, m.GetJSON(ctx, "k", &dest), ErrCacheMiss)

	require.NoError(t, m.SetJSON(ctx, "k2", "v", 0))
	require.NoError(t, m.Delete(ctx, "k2"))
	assert.ErrorIs(t, m.GetJSON(ctx, "k2", &dest), ErrCacheMiss)
}

func TestManager_BadAddr(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Addr = "127.0.0.1:1"

	_, err := NewManager(cfg, nil)
	assert.Error(t, err)
}
