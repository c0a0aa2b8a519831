package router

import (
	"time"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/minerva/core/telegram"
)

// TextOptions controls routing of plain text and non-text messages.
type TextOptions struct {
	// Text handles every text message that is not a registered command.
	Text tele.HandlerFunc
	// Unsupported handles stickers, photos, voice notes and other non-text messages.
	Unsupported tele.HandlerFunc
}

// TextRoutes builds handlers for text routing. Slash-prefixed text that telebot did not
// route as a command is resolved through reg before falling back to opts.Text.
func TextRoutes(reg *tg.Registry, opts TextOptions) []tg.Route {
	text := func(c tele.Context) error {
		start := time.Now()
		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(firstWord(c.Text())); ok && cmd.Handler != nil {
				return handleWithSummary(c, normalizeHandlerName(key), start, func() error {
					return cmd.Handler(c)
				})
			}
		}
		if opts.Text != nil {
			return handleWithSummary(c, "text", start, func() error {
				return opts.Text(c)
			})
		}
		logHandlerSummary(c, "text", start, "skip", nil)
		return nil
	}

	routes := []tg.Route{{Endpoint: tele.OnText, Handler: text}}
	if opts.Unsupported != nil {
		unsupported := func(c tele.Context) error {
			return handleWithSummary(c, "unsupported", time.Now(), func() error {
				return opts.Unsupported(c)
			})
		}
		for _, ep := range []string{tele.OnSticker, tele.OnPhoto, tele.OnVoice, tele.OnDocument, tele.OnVideo, tele.OnAudio, tele.OnLocation} {
			routes = append(routes, tg.Route{Endpoint: ep, Handler: unsupported})
		}
	}
	return routes
}

func firstWord(text string) string {
	for i, r := range text {
		if r == ' ' || r == '\n' || r == '@' {
			return text[:i]
		}
	}
	return text
}
