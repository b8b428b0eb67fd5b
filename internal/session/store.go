package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/m3rciful/meowbot/core/logger"
	"github.com/m3rciful/meowbot/core/telegram/state"
)

const component = "session"

// DefaultTTL bounds how long an abandoned flow survives in persistent backends.
const DefaultTTL = 24 * time.Hour

// Backend persists sessions. Update must apply fn atomically per user; a
// missing or expired session is presented to fn as Idle.
type Backend interface {
	Load(ctx context.Context, userID int64) (Session, error)
	Update(ctx context.Context, userID int64, fn func(*Session)) error
	Delete(ctx context.Context, userID int64) error
}

// Store applies the state rules on top of a Backend.
type Store struct {
	backend Backend
	now     func() time.Time
}

// New wraps b.
func New(b Backend) *Store {
	return &Store{backend: b, now: time.Now}
}

// Get returns the user's session. Backend failures are logged and answered
// with an Idle session.
func (s *Store) Get(ctx context.Context, userID int64) Session {
	sess, err := s.backend.Load(ctx, userID)
	if err != nil {
		logger.Warn(ctx, component, "session.load",
			slog.String("status", "fail"),
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		return idle(userID)
	}
	if sess.State == "" {
		sess.State = Idle
	}
	return sess
}

// CurrentState returns the user's state for routing.
func (s *Store) CurrentState(ctx context.Context, userID int64) state.State {
	return s.Get(ctx, userID).State
}

// SetState moves the user to st and applies patch to the existing scratch.
// Entering Idle discards the scratch.
func (s *Store) SetState(ctx context.Context, userID int64, st state.State, patch func(*Scratch)) error {
	return s.update(ctx, userID, "set_state", st, func(sess *Session) {
		if patch != nil {
			patch(&sess.Scratch)
		}
	})
}

// Begin starts a new top-level flow: the scratch is reset before patch runs,
// so whatever flow was in progress is discarded.
func (s *Store) Begin(ctx context.Context, userID int64, st state.State, patch func(*Scratch)) error {
	return s.update(ctx, userID, "begin", st, func(sess *Session) {
		sess.Scratch = Scratch{}
		if patch != nil {
			patch(&sess.Scratch)
		}
	})
}

// Clear resets the user to Idle with empty scratch.
func (s *Store) Clear(ctx context.Context, userID int64) error {
	err := s.backend.Delete(ctx, userID)
	s.log(ctx, userID, "clear", Idle, err)
	return err
}

func (s *Store) update(ctx context.Context, userID int64, op string, st state.State, fn func(*Session)) error {
	err := s.backend.Update(ctx, userID, func(sess *Session) {
		sess.UserID = userID
		fn(sess)
		sess.State = st
		if st == Idle {
			sess.Scratch = Scratch{}
		}
		sess.UpdatedAt = s.now().UTC()
	})
	s.log(ctx, userID, op, st, err)
	return err
}

func (s *Store) log(ctx context.Context, userID int64, op string, st state.State, err error) {
	if err != nil {
		logger.Warn(ctx, component, "session."+op,
			slog.String("status", "fail"),
			slog.Int64("user_id", userID),
			slog.String("state", string(st)),
			slog.String("err", err.Error()),
		)
		return
	}
	logger.Debug(ctx, component, "session."+op,
		slog.String("status", "ok"),
		slog.Int64("user_id", userID),
		slog.String("state", string(st)),
	)
}
