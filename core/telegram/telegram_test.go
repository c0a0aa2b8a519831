package telegram

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/minerva/core/config"
	"github.com/m3rciful/minerva/core/telegram/commands"
)

func noop(tele.Context) error { return nil }

func TestBuildPoller(t *testing.T) {
	p := BuildPoller(PollerOptions{RunMode: " Webhook ", Webhook: WebhookOptions{Listen: "0.0.0.0", Port: 8443, URL: "https://bot.example.com/hook"}})
	wh, ok := p.(*tele.Webhook)
	require.True(t, ok)
	assert.Equal(t, "0.0.0.0:8443", wh.Listen)
	assert.Equal(t, "https://bot.example.com/hook", wh.Endpoint.PublicURL)
	assert.Equal(t, []string{"message"}, wh.AllowedUpdates)

	p = BuildPoller(PollerOptions{RunMode: coreconfig.RunModeLongpoll})
	lp, ok := p.(*tele.LongPoller)
	require.True(t, ok)
	assert.Equal(t, 10*time.Second, lp.Timeout)

	lp = BuildPoller(PollerOptions{LongPollTimeoutSeconds: 25}).(*tele.LongPoller)
	assert.Equal(t, 25*time.Second, lp.Timeout)
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		code  string
		retry bool
	}{
		{"flood", tele.FloodError{RetryAfter: 3}, "http_429", true},
		{"server", &tele.Error{Code: 502, Description: "Bad Gateway"}, "http_5xx", true},
		{"blocked", &tele.Error{Code: 403, Description: "Forbidden: bot was blocked by the user"}, "http_4xx", false},
		{"wrapped", fmt.Errorf("send: %w", &tele.Error{Code: 400}), "http_4xx", false},
		{"parsed", errors.New("telegram: chat not found (400)"), "http_4xx", false},
		{"deadline", context.DeadlineExceeded, "timeout", true},
		{"cancelled", context.Canceled, "cancelled", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, ClassifyError(tt.err))
			assert.Equal(t, tt.retry, ShouldRetry(tt.err))
		})
	}
	assert.Zero(t, StatusFromError(nil))
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("/start", commands.Command{Handler: noop, Description: "Empezar", Aliases: []string{"inicio"}})
	reg.RegisterCommand("/ayuda", commands.Command{Handler: noop, Description: "Ayuda"})
	reg.RegisterCommand("/debug", commands.Command{Handler: noop, Description: "Debug", Hidden: true})
	reg.RegisterCommand("nostart", commands.Command{Handler: noop, Description: "x"})
	reg.RegisterCommand("/empty", commands.Command{Handler: noop})
	reg.RegisterCommand("/inicio", commands.Command{Handler: noop, Description: "dup of alias"})

	assert.Len(t, reg.Commands(), 3)

	key, _, ok := reg.LookupCommand("inicio")
	require.True(t, ok)
	assert.Equal(t, "/start", key)
	key, _, ok = reg.LookupCommand("/ayuda")
	require.True(t, ok)
	assert.Equal(t, "/ayuda", key)
	_, _, ok = reg.LookupCommand("/nada")
	assert.False(t, ok)

	visible := reg.ListCommands(true)
	require.Len(t, visible, 2)
	assert.Equal(t, "ayuda", visible[0].Text)
	assert.Equal(t, "start", visible[1].Text)
	assert.Len(t, reg.ListCommands(false), 3)
}

func TestDefaultMiddlewares(t *testing.T) {
	names := func(mws []Middleware) []string {
		var out []string
		for _, mw := range mws {
			out = append(out, mw.Name)
		}
		return out
	}
	assert.Equal(t, []string{"recover", "logger"}, names(DefaultMiddlewares(nil, nil)))

	cfg := &coreconfig.Config{RateLimit: coreconfig.RateLimitConfig{IntervalMS: 500}}
	assert.Equal(t, []string{"recover", "rate_limit", "logger"}, names(DefaultMiddlewares(cfg, nil)))
}

func TestRunTelegramNeedsConfig(t *testing.T) {
	require.Error(t, RunTelegram(context.Background(), RunOptions{}))
}
