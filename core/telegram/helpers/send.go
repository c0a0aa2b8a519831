package helpers

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/minerva/core/dispatch"
	"github.com/m3rciful/minerva/core/logger"
)

const (
	keyMessages = "messages"
	keyKeyboard = "kb"
)

var globalDispatcher atomic.Pointer[dispatch.Dispatcher]

// SetDispatcher wires the asynchronous sender used by helper functions. nil sends inline.
func SetDispatcher(d *dispatch.Dispatcher) {
	globalDispatcher.Store(d)
}

func sendAsync(c tele.Context, action string, run func() error) error {
	disp := globalDispatcher.Load()
	if disp == nil {
		return run()
	}

	ctx := BuildContext(c)
	err := disp.Enqueue(ctx, action, func(context.Context) error { return run() })
	if errors.Is(err, dispatch.ErrQueueFull) || errors.Is(err, dispatch.ErrClosed) {
		logger.Warn(ctx, "tg.sender", "queue.fallback",
			slog.String("payload", action),
			slog.String("err", err.Error()),
		)
		return run()
	}
	return err
}

// SendText sends text to the current chat with optional send options.
func SendText(c tele.Context, text string, opts ...*tele.SendOptions) error {
	var sendOpts *tele.SendOptions
	if len(opts) > 0 {
		sendOpts = opts[0]
	}
	count(c, sendOpts != nil && sendOpts.ReplyMarkup != nil)
	return sendAsync(c, "send.text", func() error {
		if sendOpts != nil {
			return c.Send(text, sendOpts)
		}
		return c.Send(text)
	})
}

// SendHTML sends a message with HTML parse mode and optional reply markup.
func SendHTML(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	var rm *tele.ReplyMarkup
	if len(markup) > 0 {
		rm = markup[0]
	}
	return SendText(c, text, &tele.SendOptions{ParseMode: tele.ModeHTML, ReplyMarkup: rm})
}

// SendDocument uploads doc to the current chat.
func SendDocument(c tele.Context, doc *tele.Document) error {
	count(c, false)
	return sendAsync(c, "send.document", func() error {
		return c.Send(doc)
	})
}

func count(c tele.Context, withKeyboard bool) {
	n, _ := c.Get(keyMessages).(int)
	c.Set(keyMessages, n+1)
	if withKeyboard {
		c.Set(keyKeyboard, true)
	}
}

// Counters reports how many messages a handler queued for c and whether any carried a keyboard.
func Counters(c tele.Context) (int, bool) {
	n, _ := c.Get(keyMessages).(int)
	kb, _ := c.Get(keyKeyboard).(bool)
	return n, kb
}
