// Package journal records completed dialogue turns for reporting. It never stores
// session state; the session store stays in memory only.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/m3rciful/minerva/core/dispatch"
	"github.com/m3rciful/minerva/core/logger"
	"github.com/m3rciful/minerva/internal/dialogue"
)

// maxInputRunes bounds the stored user text.
const maxInputRunes = 256

// Entry is one row of the interactions table.
type Entry struct {
	ID        int64          `db:"id"`
	UserID    string         `db:"user_id"`
	Channel   string         `db:"channel"`
	Input     string         `db:"input"`
	StateFrom string         `db:"state_from"`
	StateTo   string         `db:"state_to"`
	Outcome   string         `db:"outcome"`
	Topic     sql.NullString `db:"topic"`
	MatchKind string         `db:"match_kind"`
	Score     float64        `db:"score"`
	Keyword   sql.NullString `db:"keyword"`
	CreatedAt time.Time      `db:"created_at"`
}

// FromInteraction converts a dialogue turn into a row.
func FromInteraction(in dialogue.Interaction) Entry {
	kind := string(in.Match.Kind)
	if kind == "" {
		kind = "none"
	}
	return Entry{
		UserID:    in.UserID,
		Channel:   in.Channel,
		Input:     logger.SanitizeLimit(in.Input, maxInputRunes),
		StateFrom: string(in.From),
		StateTo:   string(in.To),
		Outcome:   string(in.Outcome),
		Topic:     nullString(string(in.Match.Topic)),
		MatchKind: kind,
		Score:     in.Match.Score,
		Keyword:   nullString(in.Match.Keyword),
		CreatedAt: in.At.UTC(),
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Recorder persists entries.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// NopRecorder drops every entry. It is used when the database is disabled.
type NopRecorder struct{}

// Record implements Recorder.
func (NopRecorder) Record(context.Context, Entry) error { return nil }

// AsyncRecorder observes dialogue turns and writes them through a dispatcher, so the
// caller never waits on the database.
type AsyncRecorder struct {
	rec Recorder
	d   *dispatch.Dispatcher
}

// NewAsyncRecorder wires rec behind d.
func NewAsyncRecorder(rec Recorder, d *dispatch.Dispatcher) *AsyncRecorder {
	if rec == nil {
		rec = NopRecorder{}
	}
	return &AsyncRecorder{rec: rec, d: d}
}

// Observe implements dialogue.Observer. A saturated queue drops the entry.
func (a *AsyncRecorder) Observe(ctx context.Context, in dialogue.Interaction) {
	e := FromInteraction(in)
	err := a.d.Enqueue(ctx, "journal.record", func(ctx context.Context) error {
		return a.rec.Record(ctx, e)
	})
	if err == nil {
		return
	}
	status := "fail"
	if errors.Is(err, dispatch.ErrQueueFull) {
		status = "skip"
	}
	logger.Warn(ctx, "journal", "journal.enqueue",
		slog.String("status", status),
		slog.String("err", err.Error()),
	)
}
