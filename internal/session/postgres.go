package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/meowbot/core/telegram/state"
)

// Postgres stores sessions in the sessions table created by the embedded
// migrations.
type Postgres struct {
	db  *sqlx.DB
	ttl time.Duration
	now func() time.Time
}

// NewPostgres builds a Postgres backend. A non-positive ttl selects DefaultTTL.
func NewPostgres(db *sqlx.DB, ttl time.Duration) *Postgres {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Postgres{db: db, ttl: ttl, now: time.Now}
}

type sessionRow struct {
	UserID    int64     `db:"user_id"`
	State     string    `db:"state"`
	Scratch   []byte    `db:"scratch"`
	UpdatedAt time.Time `db:"updated_at"`
	ExpiresAt time.Time `db:"expires_at"`
}

func (r sessionRow) session(now time.Time) (Session, error) {
	if !now.Before(r.ExpiresAt) {
		return idle(r.UserID), nil
	}
	sess := Session{UserID: r.UserID, State: state.State(r.State), UpdatedAt: r.UpdatedAt}
	if len(r.Scratch) > 0 {
		if err := json.Unmarshal(r.Scratch, &sess.Scratch); err != nil {
			return Session{}, fmt.Errorf("session: decode scratch: %w", err)
		}
	}
	return sess, nil
}

const (
	selectSession = `SELECT user_id, state, scratch, updated_at, expires_at FROM sessions WHERE user_id = $1`
	ensureSession = `INSERT INTO sessions (user_id, expires_at) VALUES ($1, $2) ON CONFLICT (user_id) DO NOTHING`
	saveSession   = `UPDATE sessions SET state = $2, scratch = $3, updated_at = $4, expires_at = $5 WHERE user_id = $1`
	deleteSession = `DELETE FROM sessions WHERE user_id = $1`
)

// Load reads the session; missing or expired rows are Idle.
func (p *Postgres) Load(ctx context.Context, userID int64) (Session, error) {
	var row sessionRow
	err := p.db.GetContext(ctx, &row, selectSession, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return idle(userID), nil
	}
	if err != nil {
		return Session{}, err
	}
	return row.session(p.now())
}

// Update locks the row with SELECT ... FOR UPDATE and writes fn's result in
// the same transaction.
func (p *Postgres) Update(ctx context.Context, userID int64, fn func(*Session)) (err error) {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := p.now()
	if _, err = tx.ExecContext(ctx, ensureSession, userID, now.Add(p.ttl)); err != nil {
		return err
	}
	var row sessionRow
	if err = tx.GetContext(ctx, &row, selectSession+" FOR UPDATE", userID); err != nil {
		return err
	}
	sess, decodeErr := row.session(now)
	if decodeErr != nil {
		sess = idle(userID)
	}
	fn(&sess)

	if sess.empty() {
		if _, err = tx.ExecContext(ctx, deleteSession, userID); err != nil {
			return err
		}
		return tx.Commit()
	}
	scratch, err := json.Marshal(sess.Scratch)
	if err != nil {
		return fmt.Errorf("session: encode scratch: %w", err)
	}
	if _, err = tx.ExecContext(ctx, saveSession, userID, string(sess.State), string(scratch), sess.UpdatedAt, now.Add(p.ttl)); err != nil {
		return err
	}
	return tx.Commit()
}

// Delete removes the row.
func (p *Postgres) Delete(ctx context.Context, userID int64) error {
	_, err := p.db.ExecContext(ctx, deleteSession, userID)
	return err
}

// PurgeExpired removes rows past their expiry and reports how many went.
func (p *Postgres) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := p.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, p.now())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
