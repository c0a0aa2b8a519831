package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnknownUserStartsAtStart(t *testing.T) {
	s := NewStore()

	got := s.Get("alice")
	assert.Equal(t, StateStart, got.State)
	assert.True(t, got.LastActivity.IsZero())
	assert.Equal(t, 0, s.Len(), "Get must not create sessions")

	err := s.Update("alice", func(sess *Session) error {
		assert.Equal(t, StateStart, sess.State)
		assert.Equal(t, "alice", sess.UserID)
		sess.State = "cajero"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, State("cajero"), s.Get("alice").State)
	assert.Equal(t, 1, s.Len())
}

func TestUpdateKeepsChangesOnError(t *testing.T) {
	s := NewStore()
	boom := errors.New("boom")

	err := s.Update("bob", func(sess *Session) error {
		sess.State = "general"
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, State("general"), s.Get("bob").State)
}

func TestUpdateSerializesSameUser(t *testing.T) {
	s := NewStore()
	const workers = 64

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_ = s.Update("carol", func(sess *Session) error {
				cur := sess.LastActivity
				time.Sleep(time.Microsecond)
				sess.LastActivity = cur.Add(time.Second)
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, time.Time{}.Add(workers*time.Second), s.Get("carol").LastActivity)
}

func TestDifferentUsersDoNotBlock(t *testing.T) {
	s := NewStore()
	entered := make(chan struct{})
	release := make(chan struct{})

	go func() {
		_ = s.Update("dave", func(sess *Session) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	done := make(chan struct{})
	go func() {
		_ = s.Update("erin", func(sess *Session) error {
			sess.State = "enfermeria"
			return nil
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("update for erin blocked behind dave")
	}
	close(release)
	assert.Equal(t, State("enfermeria"), s.Get("erin").State)
}

func TestReset(t *testing.T) {
	s := NewStore()
	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	_ = s.Update("frank", func(sess *Session) error {
		sess.State = "cajero"
		sess.LastActivity = now
		return nil
	})

	s.Reset("frank")

	got := s.Get("frank")
	assert.Equal(t, StateStart, got.State)
	assert.Equal(t, now, got.LastActivity)
}

func TestSweep(t *testing.T) {
	s := NewStore()
	base := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		at := base.Add(time.Duration(i) * 10 * time.Minute)
		_ = s.Update(id, func(sess *Session) error {
			sess.LastActivity = at
			return nil
		})
	}

	removed := s.Sweep(base.Add(15 * time.Minute))
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, base.Add(20*time.Minute), s.Get("new").LastActivity)
	assert.True(t, s.Get("old").LastActivity.IsZero())
}

func TestSweepSkipsBusySessions(t *testing.T) {
	s := NewStore()
	entered := make(chan struct{})
	release := make(chan struct{})
	finished := make(chan struct{})

	go func() {
		_ = s.Update("busy", func(sess *Session) error {
			close(entered)
			<-release
			return nil
		})
		close(finished)
	}()
	<-entered

	assert.Equal(t, 0, s.Sweep(time.Now()))
	close(release)
	<-finished
	assert.Equal(t, 1, s.Len())
}
