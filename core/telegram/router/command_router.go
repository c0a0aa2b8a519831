package router

import (
	"context"
	"log/slog"
	"sort"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/minerva/core/logger"
	tg "github.com/m3rciful/minerva/core/telegram"
)

// CommandRoutes binds every registered command and its aliases, each wrapped in a handler summary.
func CommandRoutes(reg *tg.Registry) []tg.Route {
	if reg == nil {
		return nil
	}

	names := make([]string, 0, len(reg.Commands()))
	for name := range reg.Commands() {
		names = append(names, name)
	}
	sort.Strings(names)

	var routes []tg.Route
	for _, name := range names {
		def := reg.Commands()[name]
		handlerName := normalizeHandlerName(name)
		h := def.Handler
		wrapped := func(c tele.Context) error {
			return handleWithSummary(c, handlerName, time.Now(), func() error { return h(c) })
		}
		routes = append(routes, tg.Route{Endpoint: name, Handler: wrapped})
		for _, alias := range def.Aliases {
			if alias == "" {
				continue
			}
			if alias[0] != '/' {
				alias = "/" + alias
			}
			routes = append(routes, tg.Route{Endpoint: alias, Handler: wrapped})
		}
	}

	logger.TWire.LogAttrs(context.Background(), slog.LevelInfo, "tg.wire",
		slog.String("event", "complete"),
		slog.Int("commands", len(names)),
		slog.Int("routes", len(routes)),
	)
	return routes
}
