// Package bot adapts the dialogue engine to Telegram updates.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/minerva/core/config"
	"github.com/m3rciful/minerva/core/logger"
	coretelegram "github.com/m3rciful/minerva/core/telegram"
	"github.com/m3rciful/minerva/core/telegram/commands"
	tghelpers "github.com/m3rciful/minerva/core/telegram/helpers"
	"github.com/m3rciful/minerva/core/telegram/keyboard"
	"github.com/m3rciful/minerva/core/telegram/router"
	"github.com/m3rciful/minerva/internal/catalog"
	"github.com/m3rciful/minerva/internal/dialogue"
)

const (
	errorReply       = "⚠️ Ha ocurrido un error. Inténtalo de nuevo en unos minutos."
	unsupportedReply = "Solo puedo leer mensajes de texto ✍️.\n\n"
	rateLimitedReply = "Vas muy rápido 🙂. Espera un momento y vuelve a escribir."
	buttonsPerRow    = 2
)

// Engine is the part of the dialogue engine the bot drives.
type Engine interface {
	HandleMessage(ctx context.Context, userID, text string, now time.Time) (dialogue.Reply, error)
	Restart(ctx context.Context, userID string, now time.Time) dialogue.Reply
	Menu() string
}

// Bot holds the Telegram handlers.
type Bot struct {
	engine   Engine
	keyboard *tele.ReplyMarkup
	now      func() time.Time
}

// New builds the handlers and a reply keyboard with one button per catalog topic.
// Button labels are matched by the engine like typed text.
func New(engine Engine, reg *catalog.Registry) (*Bot, error) {
	if engine == nil || reg == nil {
		return nil, fmt.Errorf("bot: engine and registry are required")
	}
	topics := reg.Topics()
	labels := make([]string, 0, len(topics))
	for _, t := range topics {
		labels = append(labels, t.Label)
	}
	return &Bot{
		engine:   engine,
		keyboard: keyboard.ReplyButtons(keyboard.Chunk(labels, buttonsPerRow)...),
		now:      time.Now,
	}, nil
}

// Registry returns the bot commands: /start (alias /inicio) and /ayuda.
func (b *Bot) Registry() *coretelegram.Registry {
	reg := coretelegram.NewRegistry()
	reg.RegisterCommand("/start", commands.Command{
		Handler:     b.onStart,
		Description: "Volver al menú principal",
		Aliases:     []string{"/inicio"},
	})
	reg.RegisterCommand("/ayuda", commands.Command{
		Handler:     b.onHelp,
		Description: "Ver las opciones disponibles",
	})
	return reg
}

// Routes binds the commands of reg and the text handlers.
func (b *Bot) Routes(reg *coretelegram.Registry) []coretelegram.Route {
	routes := router.CommandRoutes(reg)
	return append(routes, router.TextRoutes(reg, router.TextOptions{
		Text:        b.onText,
		Unsupported: b.onUnsupported,
	})...)
}

// RunOptions assembles everything RunTelegram needs.
func (b *Bot) RunOptions(cfg *coreconfig.Config) coretelegram.RunOptions {
	reg := b.Registry()
	return coretelegram.RunOptions{
		Config:      cfg,
		Registry:    reg,
		Middlewares: coretelegram.DefaultMiddlewares(cfg, b.onLimited),
		Routes:      b.Routes(reg),
	}
}

func (b *Bot) onStart(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	reply := b.engine.Restart(ctx, tghelpers.UserID(c), b.now())
	return tghelpers.SendHTML(c, reply.Response, b.keyboard)
}

func (b *Bot) onHelp(c tele.Context) error {
	return tghelpers.SendHTML(c, b.engine.Menu(), b.keyboard)
}

func (b *Bot) onText(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	reply, err := b.engine.HandleMessage(ctx, tghelpers.UserID(c), c.Text(), b.now())
	if err != nil {
		if sendErr := tghelpers.SendText(c, errorReply); sendErr != nil {
			logger.Warn(ctx, "tg", "reply.error.fail", slog.String("err", sendErr.Error()))
		}
		return fmt.Errorf("bot: handle message: %w", err)
	}
	return tghelpers.SendHTML(c, reply.Response, b.keyboard)
}

func (b *Bot) onUnsupported(c tele.Context) error {
	return tghelpers.SendHTML(c, unsupportedReply+b.engine.Menu(), b.keyboard)
}

func (b *Bot) onLimited(c tele.Context) error {
	return tghelpers.SendText(c, rateLimitedReply)
}
