package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/minerva/core/config"
	coretelegram "github.com/m3rciful/minerva/core/telegram"
	"github.com/m3rciful/minerva/internal/session"
)

func quiet(*coreconfig.Config) error { return nil }

func newTestConfig(t *testing.T) *Config {
	t.Helper()
	cfg := &Config{}
	cfg.HTTP.Listen = "127.0.0.1:0"
	require.NoError(t, cfg.Normalize())
	return cfg
}

func TestLoadDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  listen: ":8080"
logging:
  level: debug
session:
  timeout_seconds: 120
intent:
  reset_keyword: " Menu "
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTP.Listen)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 2*time.Minute, cfg.Timeout())
	assert.Equal(t, time.Hour, cfg.SweepAfter())
	assert.Equal(t, "menu", cfg.Intent.ResetKeyword)
	assert.Equal(t, 0.65, cfg.Thresholds().Strong)
	assert.Equal(t, 0.45, cfg.Thresholds().Moderate)
	assert.Equal(t, 3600, cfg.Delivery.CacheTTLSeconds)
	assert.EqualValues(t, 20<<20, cfg.Delivery.MaxBytes)
	assert.False(t, cfg.Database.Enabled)
	assert.Same(t, &cfg.Config, cfg.CoreConfig())
}

func TestNormalizeRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"sweep not above timeout", func(c *Config) { c.Session.TimeoutSeconds, c.Session.SweepAfterSeconds = 600, 300 }},
		{"negative timeout", func(c *Config) { c.Session.TimeoutSeconds = -1 }},
		{"threshold above one", func(c *Config) { c.Intent.StrongThreshold = 1.5 }},
		{"moderate above strong", func(c *Config) { c.Intent.StrongThreshold, c.Intent.ModerateThreshold = 0.5, 0.6 }},
		{"negative cache ttl", func(c *Config) { c.Delivery.CacheTTLSeconds = -1 }},
		{"database without host", func(c *Config) { c.Database.Enabled = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			tt.mutate(cfg)
			assert.Error(t, cfg.Normalize())
		})
	}
}

func TestNewWiresEngine(t *testing.T) {
	a, err := New(context.Background(), newTestConfig(t), Options{LoggerInit: quiet})
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Journal)
	reply, err := a.Engine.HandleMessage(context.Background(), "web:1", "cajero", time.Now())
	require.NoError(t, err)
	assert.Equal(t, session.State("cajero"), reply.State)

	url, err := a.Delivery.RedirectURL("cajero")
	require.NoError(t, err)
	assert.Contains(t, url, ".pdf")
}

func TestNewWithCatalogFile(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Catalog.Path = filepath.Join(t.TempDir(), "missing.yaml")
	_, err := New(context.Background(), cfg, Options{LoggerInit: quiet})
	assert.Error(t, err)
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Telegram.Token = "123:abc"
	a, err := New(context.Background(), cfg, Options{LoggerInit: quiet})
	require.NoError(t, err)
	defer a.Close()

	var tgStarted bool
	a.runTelegram = func(ctx context.Context, opts coretelegram.RunOptions) error {
		tgStarted = true
		assert.NotEmpty(t, opts.Routes)
		<-ctx.Done()
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.True(t, tgStarted)
}

func TestRunRequiresTransport(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, cfg.Normalize())
	a, err := New(context.Background(), cfg, Options{LoggerInit: quiet})
	require.NoError(t, err)
	defer a.Close()
	assert.Error(t, a.Run(context.Background()))
}

func TestSweepDropsIdleSessions(t *testing.T) {
	a, err := New(context.Background(), newTestConfig(t), Options{LoggerInit: quiet})
	require.NoError(t, err)
	defer a.Close()

	t0 := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	_, err = a.Engine.HandleMessage(context.Background(), "old", "cajero", t0)
	require.NoError(t, err)
	_, err = a.Engine.HandleMessage(context.Background(), "fresh", "cajero", t0.Add(50*time.Minute))
	require.NoError(t, err)

	a.now = func() time.Time { return t0.Add(61 * time.Minute) }
	assert.Equal(t, 1, a.sweep(context.Background()))
	assert.Equal(t, 1, a.Sessions.Len())
	assert.Equal(t, session.State("cajero"), a.Sessions.Get("fresh").State)
}
