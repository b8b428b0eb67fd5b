// Package broadcast fans one message out to every user of the backend.
// Sends are sequential with a fixed pause between them, failures are counted
// per recipient and never stop the run.
package broadcast

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/meowbot/core/logger"
)

const component = "broadcast"

const (
	DefaultDelay = 50 * time.Millisecond
	DefaultBatch = 50
)

var (
	// ErrInProgress is returned while another run targets the same audience.
	ErrInProgress = errors.New("broadcast: already running for this audience")
	// ErrNoRecipients is returned when the listing yields nobody to deliver to.
	ErrNoRecipients = errors.New("broadcast: no recipients")
)

// Sender delivers the payload to one chat.
type Sender interface {
	Send(ctx context.Context, chatID int64, payload string) error
}

// Progress is a snapshot of a running job.
type Progress struct {
	JobID  string
	Sent   int
	Failed int
	Total  int
}

// Done is the number of recipients processed so far.
func (p Progress) Done() int { return p.Sent + p.Failed }

// Result is the terminal outcome; Sent+Failed == Total.
type Result Progress

// Reporter receives best-effort progress. Its errors are logged and dropped.
type Reporter interface {
	Start(ctx context.Context, total int) error
	Progress(ctx context.Context, p Progress) error
	Finish(ctx context.Context, r Result) error
}

// Job describes one broadcast. An empty RoleFilter targets every user.
type Job struct {
	Payload    string
	RoleFilter string
}

// Options tune an Engine.
type Options struct {
	Delay time.Duration
	Batch int
	// Classify labels send errors for logs.
	Classify func(error) string
	// Sleep replaces the pause between sends in tests.
	Sleep func(time.Duration)
	NewID func() string
}

// Engine runs broadcast jobs.
type Engine struct {
	sender Sender
	opts   Options

	mu     sync.Mutex
	active map[string]string
}

// New builds an Engine sending through s.
func New(s Sender, opts Options) *Engine {
	if opts.Delay < 0 {
		opts.Delay = 0
	}
	if opts.Batch <= 0 {
		opts.Batch = DefaultBatch
	}
	if opts.Classify == nil {
		opts.Classify = func(error) string { return "unknown" }
	}
	if opts.Sleep == nil {
		opts.Sleep = time.Sleep
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Engine{sender: s, opts: opts, active: make(map[string]string)}
}

func (e *Engine) acquire(audience, id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, busy := e.active[audience]; busy {
		return false
	}
	e.active[audience] = id
	return true
}

func (e *Engine) release(audience string) {
	e.mu.Lock()
	delete(e.active, audience)
	e.mu.Unlock()
}

// Running reports whether a job for audience is in flight.
func (e *Engine) Running(audience string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.active[audience]
	return ok
}

// Run snapshots the recipients and delivers job.Payload to each of them.
// Once delivery starts it runs to completion even if ctx is cancelled.
func (e *Engine) Run(ctx context.Context, job Job, fetch PageFunc, rep Reporter) (Result, error) {
	id := e.opts.NewID()
	if !e.acquire(job.RoleFilter, id) {
		logger.Info(ctx, component, "broadcast.start",
			slog.String("status", "skip"),
			slog.String("role_filter", job.RoleFilter),
			slog.String("reason", "in_progress"),
		)
		return Result{JobID: id}, ErrInProgress
	}
	defer e.release(job.RoleFilter)

	recipients, err := Recipients(ctx, fetch)
	if err != nil {
		return Result{JobID: id}, err
	}
	if len(recipients) == 0 {
		return Result{JobID: id}, ErrNoRecipients
	}

	ctx = context.WithoutCancel(ctx)
	start := time.Now()
	p := Progress{JobID: id, Total: len(recipients)}
	logger.Info(ctx, component, "broadcast.start",
		slog.String("status", "ok"),
		slog.String("job_id", id),
		slog.String("role_filter", job.RoleFilter),
		slog.Int("total", p.Total),
	)
	e.report(ctx, id, "start", rep, func(r Reporter) error { return r.Start(ctx, p.Total) })

	for i, r := range recipients {
		if i > 0 && e.opts.Delay > 0 {
			e.opts.Sleep(e.opts.Delay)
		}
		if err := e.sender.Send(ctx, r.ChatID, job.Payload); err != nil {
			p.Failed++
			logger.Warn(ctx, component, "broadcast.send",
				slog.String("status", "fail"),
				slog.String("job_id", id),
				slog.Int64("chat_id", r.ChatID),
				slog.String("error_kind", e.opts.Classify(err)),
				slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			)
		} else {
			p.Sent++
		}
		if done := p.Done(); done%e.opts.Batch == 0 && done < p.Total {
			snap := p
			e.report(ctx, id, "progress", rep, func(r Reporter) error { return r.Progress(ctx, snap) })
		}
	}

	res := Result(p)
	logger.Info(ctx, component, "broadcast.done",
		slog.String("status", "ok"),
		slog.String("job_id", id),
		slog.Int("sent", res.Sent),
		slog.Int("failed", res.Failed),
		slog.Int("total", res.Total),
		slog.Duration("duration", time.Since(start)),
	)
	e.report(ctx, id, "finish", rep, func(r Reporter) error { return r.Finish(ctx, res) })
	return res, nil
}

func (e *Engine) report(ctx context.Context, id, stage string, rep Reporter, fn func(Reporter) error) {
	if rep == nil {
		return
	}
	if err := fn(rep); err != nil {
		logger.Debug(ctx, component, "broadcast.report",
			slog.String("status", "fail"),
			slog.String("job_id", id),
			slog.String("stage", stage),
			slog.String("err", err.Error()),
		)
	}
}
