package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

const insertEntry = `
INSERT INTO interactions
    (user_id, channel, input, state_from, state_to, outcome, topic, match_kind, score, keyword, created_at)
VALUES
    (:user_id, :channel, :input, :state_from, :state_to, :outcome, :topic, :match_kind, :score, :keyword, :created_at)`

const topicCounts = `
SELECT topic, COUNT(*) AS count
FROM interactions
WHERE topic IS NOT NULL AND state_to = topic AND created_at >= $1
GROUP BY topic
ORDER BY count DESC, topic`

const recentEntries = `
SELECT id, user_id, channel, input, state_from, state_to, outcome, topic, match_kind, score, keyword, created_at
FROM interactions
WHERE user_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2`

// TopicCount is the number of turns that landed on a topic.
type TopicCount struct {
	Topic string `db:"topic"`
	Count int64  `db:"count"`
}

// Store writes entries to Postgres.
type Store struct {
	db *sqlx.DB
}

// NewStore returns a store over db.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Record implements Recorder.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if _, err := s.db.NamedExecContext(ctx, insertEntry, e); err != nil {
		return fmt.Errorf("journal: insert interaction: %w", err)
	}
	return nil
}

// TopicCounts reports how often each topic was opened since the given time,
// most requested first.
func (s *Store) TopicCounts(ctx context.Context, since time.Time) ([]TopicCount, error) {
	var out []TopicCount
	if err := s.db.SelectContext(ctx, &out, topicCounts, since.UTC()); err != nil {
		return nil, fmt.Errorf("journal: topic counts: %w", err)
	}
	return out, nil
}

// Recent returns the latest entries of one user, newest first.
func (s *Store) Recent(ctx context.Context, userID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	var out []Entry
	if err := s.db.SelectContext(ctx, &out, recentEntries, userID, limit); err != nil {
		return nil, fmt.Errorf("journal: recent interactions: %w", err)
	}
	return out, nil
}
