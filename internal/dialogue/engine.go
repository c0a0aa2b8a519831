// Package dialogue implements the menu state machine that turns one user message
// into the next session state and a reply.
package dialogue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/minerva/core/logger"
	"github.com/m3rciful/minerva/internal/catalog"
	"github.com/m3rciful/minerva/internal/intent"
	"github.com/m3rciful/minerva/internal/session"
)

// DefaultTimeout is the idle period after which a conversation restarts.
const DefaultTimeout = 5 * time.Minute

// Outcome names the branch a turn went through.
type Outcome string

const (
	OutcomeTimeout       Outcome = "timeout"
	OutcomeReset         Outcome = "reset"
	OutcomeTopic         Outcome = "topic"
	OutcomeSuggestion    Outcome = "suggestion"
	OutcomeShortcut      Outcome = "shortcut"
	OutcomeOption        Outcome = "option"
	OutcomeMenu          Outcome = "menu"
	OutcomeNotUnderstood Outcome = "not_understood"
)

// Reply is what a transport shows the user. State is never session.StateEnd.
type Reply struct {
	State    session.State
	Response string
}

// Interaction describes one completed turn.
type Interaction struct {
	UserID  string
	Channel string
	Input   string
	From    session.State
	To      session.State
	Outcome Outcome
	Match   intent.Result
	At      time.Time
}

// Observer is notified after every completed turn, outside the session lock.
type Observer interface {
	Observe(ctx context.Context, in Interaction)
}

// Options tune the engine. Zero values fall back to the defaults.
type Options struct {
	Timeout      time.Duration
	ResetKeyword string
	Thresholds   intent.Thresholds
	Observer     Observer
}

// Engine is safe for concurrent use; all mutable state lives in the session store.
type Engine struct {
	reg     *catalog.Registry
	store   *session.Store
	matcher *intent.Matcher
	table   *Table
	menu    string
	opts    Options
}

// New builds an engine over reg and store and validates the transition table.
func New(reg *catalog.Registry, store *session.Store, opts Options) (*Engine, error) {
	if reg == nil || store == nil {
		return nil, errors.New("dialogue: registry and session store are required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	opts.ResetKeyword = intent.Normalize(opts.ResetKeyword)
	if opts.ResetKeyword == "" {
		opts.ResetKeyword = DefaultResetKeyword
	}
	if opts.Thresholds == (intent.Thresholds{}) {
		opts.Thresholds = intent.DefaultThresholds()
	}
	if opts.Thresholds.Moderate > opts.Thresholds.Strong {
		return nil, fmt.Errorf("dialogue: moderate threshold %.2f above strong threshold %.2f",
			opts.Thresholds.Moderate, opts.Thresholds.Strong)
	}
	table, err := BuildTable(reg)
	if err != nil {
		return nil, err
	}
	return &Engine{
		reg:     reg,
		store:   store,
		matcher: intent.NewMatcher(reg),
		table:   table,
		menu:    reg.StartMenu(),
		opts:    opts,
	}, nil
}

// Menu returns the start menu text.
func (e *Engine) Menu() string {
	return e.menu
}

// Timeout returns the configured idle timeout.
func (e *Engine) Timeout() time.Duration {
	return e.opts.Timeout
}

// turn is the pure result of one step before it is applied to the session.
type turn struct {
	to       session.State
	response string
	outcome  Outcome
	match    intent.Result
}

// HandleMessage processes one message of userID received at now. The whole turn runs
// under the user's session lock. On error the session is left unchanged.
func (e *Engine) HandleMessage(ctx context.Context, userID, text string, now time.Time) (Reply, error) {
	var (
		from session.State
		t    turn
	)
	err := e.store.Update(userID, func(s *session.Session) error {
		from = s.State
		var err error
		if t, err = e.step(*s, text, now); err != nil {
			return err
		}
		s.State = t.to
		s.LastActivity = now
		return nil
	})
	if err != nil {
		logger.Error(ctx, "dialogue", "dialogue.turn",
			slog.String("status", "fail"),
			slog.String("state_from", string(from)),
			slog.Any("err", err),
		)
		return Reply{}, err
	}

	if logger.ShouldSampleDebug() {
		logger.Debug(ctx, "dialogue", "dialogue.turn",
			slog.String("status", "ok"),
			slog.String("state_from", string(from)),
			slog.String("state_to", string(t.to)),
			slog.String("outcome", string(t.outcome)),
			slog.String("topic", string(t.match.Topic)),
			slog.String("match_kind", string(t.match.Kind)),
			slog.Float64("score", t.match.Score),
			slog.String("keyword", t.match.Keyword),
		)
	}
	if e.opts.Observer != nil {
		e.opts.Observer.Observe(ctx, Interaction{
			UserID:  userID,
			Channel: logger.ChannelFrom(ctx),
			Input:   text,
			From:    from,
			To:      t.to,
			Outcome: t.outcome,
			Match:   t.match,
			At:      now,
		})
	}
	return Reply{State: t.to, Response: t.response}, nil
}

// Restart puts userID back at the start menu, as the Telegram /start command does.
func (e *Engine) Restart(ctx context.Context, userID string, now time.Time) Reply {
	var from session.State
	_ = e.store.Update(userID, func(s *session.Session) error {
		from = s.State
		s.State = session.StateStart
		s.LastActivity = now
		return nil
	})
	if e.opts.Observer != nil {
		e.opts.Observer.Observe(ctx, Interaction{
			UserID:  userID,
			Channel: logger.ChannelFrom(ctx),
			From:    from,
			To:      session.StateStart,
			Outcome: OutcomeReset,
			At:      now,
		})
	}
	return Reply{State: session.StateStart, Response: e.menu}
}

// step decides the turn from the session snapshot alone.
func (e *Engine) step(s session.Session, text string, now time.Time) (turn, error) {
	if !s.LastActivity.IsZero() && now.Sub(s.LastActivity) > e.opts.Timeout {
		return turn{to: session.StateStart, response: timeoutNotice + e.menu, outcome: OutcomeTimeout}, nil
	}

	norm := intent.Normalize(text)
	if norm == e.opts.ResetKeyword {
		return e.startMenu(OutcomeReset), nil
	}

	node, ok := e.table.Node(s.State)
	if !ok || s.State == session.StateEnd {
		node, _ = e.table.Node(session.StateStart)
	}

	res := e.matcher.Match(text)
	strength := e.opts.Thresholds.Classify(res)

	if node.State == session.StateStart {
		switch strength {
		case intent.StrengthStrong:
			return e.enter(res.Topic, OutcomeTopic, res)
		case intent.StrengthModerate:
			topic, err := e.reg.Get(res.Topic)
			if err != nil {
				return turn{}, fmt.Errorf("dialogue: suggest %q: %w", res.Topic, err)
			}
			return turn{
				to:       session.StateStart,
				response: fmt.Sprintf(suggestionFormat, topic.Title) + e.menu,
				outcome:  OutcomeSuggestion,
				match:    res,
			}, nil
		}
		if next, ok := node.Options[norm]; ok {
			return e.follow(next, OutcomeShortcut, res)
		}
		t := e.startMenu(OutcomeMenu)
		t.match = res
		return t, nil
	}

	if strength == intent.StrengthStrong {
		return e.enter(res.Topic, OutcomeTopic, res)
	}
	if next, ok := node.Options[norm]; ok {
		return e.follow(next, OutcomeOption, res)
	}
	return turn{
		to:       node.State,
		response: notUnderstood + node.Help,
		outcome:  OutcomeNotUnderstood,
		match:    res,
	}, nil
}

// follow resolves a table target. Both sentinels land on the start menu.
func (e *Engine) follow(next session.State, outcome Outcome, res intent.Result) (turn, error) {
	if next == session.StateStart || next == session.StateEnd {
		t := e.startMenu(outcome)
		t.match = res
		return t, nil
	}
	return e.enter(catalog.Key(next), outcome, res)
}

func (e *Engine) enter(key catalog.Key, outcome Outcome, res intent.Result) (turn, error) {
	entry, err := e.reg.Lookup(key)
	if err != nil {
		return turn{}, fmt.Errorf("dialogue: enter %q: %w", key, err)
	}
	return turn{to: session.State(key), response: entry.Message, outcome: outcome, match: res}, nil
}

func (e *Engine) startMenu(outcome Outcome) turn {
	return turn{to: session.StateStart, response: e.menu, outcome: outcome}
}
