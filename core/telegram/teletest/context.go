// Package teletest provides an in-memory tele.Context for handler tests.
package teletest

import (
	"sync"

	tele "gopkg.in/telebot.v4"
)

// Sent is one message a handler sent through Context.Send.
type Sent struct {
	What any
	Opts []any
}

// Context implements the subset of tele.Context used by the bot handlers.
// Calling any other method panics on the nil embedded interface.
type Context struct {
	tele.Context

	update tele.Update

	mu    sync.Mutex
	store map[string]any
	sent  []Sent
	// SendErr is returned by Send when set.
	SendErr error
}

// NewText returns a context for a private text message from userID.
func NewText(updateID int, userID int64, text string) *Context {
	user := &tele.User{ID: userID, FirstName: "Test"}
	return &Context{
		update: tele.Update{
			ID: updateID,
			Message: &tele.Message{
				ID:     updateID,
				Sender: user,
				Chat:   &tele.Chat{ID: userID, Type: tele.ChatPrivate},
				Text:   text,
			},
		},
		store: make(map[string]any),
	}
}

// Update returns the wrapped update.
func (c *Context) Update() tele.Update { return c.update }

// Message returns the update message.
func (c *Context) Message() *tele.Message { return c.update.Message }

// Sender returns the message sender.
func (c *Context) Sender() *tele.User {
	if c.update.Message == nil {
		return nil
	}
	return c.update.Message.Sender
}

// Chat returns the message chat.
func (c *Context) Chat() *tele.Chat {
	if c.update.Message == nil {
		return nil
	}
	return c.update.Message.Chat
}

// Text returns the message text.
func (c *Context) Text() string {
	if c.update.Message == nil {
		return ""
	}
	return c.update.Message.Text
}

// Send records what was sent.
func (c *Context) Send(what any, opts ...any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SendErr != nil {
		return c.SendErr
	}
	c.sent = append(c.sent, Sent{What: what, Opts: opts})
	return nil
}

// Get returns a value stored with Set.
func (c *Context) Get(key string) any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store[key]
}

// Set stores a value for the lifetime of the context.
func (c *Context) Set(key string, val any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[key] = val
}

// Sent returns a copy of every message sent so far.
func (c *Context) Sent() []Sent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Sent(nil), c.sent...)
}

// LastText returns the text of the last sent message, or "".
func (c *Context) LastText() string {
	sent := c.Sent()
	if len(sent) == 0 {
		return ""
	}
	s, _ := sent[len(sent)-1].What.(string)
	return s
}
