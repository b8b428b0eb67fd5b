package flow

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/m3rciful/meowbot/core/logger"
	"github.com/m3rciful/meowbot/internal/backend"
	"github.com/m3rciful/meowbot/internal/broadcast"
	"github.com/m3rciful/meowbot/internal/session"
	"github.com/m3rciful/meowbot/internal/view"
)

// recipientsPerPage is the largest page the user listing serves.
const recipientsPerPage = 100

// AdminBroadcast composes a message and fans it out to every user.
type AdminBroadcast struct {
	*base
	engine Broadcaster
}

// Start enters composition for admins. Anyone else is ignored, though
// their flow in progress is still dropped.
func (a *AdminBroadcast) Start(ctx context.Context, u User) Response {
	if !a.isAdmin(ctx, u) {
		_ = a.sessions.Clear(ctx, u.ID)
		return Response{}
	}
	if err := a.sessions.Begin(ctx, u.ID, session.ComposingBroadcast, nil); err != nil {
		return reply(view.RetryLater, nil)
	}
	return reply(view.BroadcastPrompt, nil)
}

// Compose sends text to everyone and returns when the job is done. The
// reporter shows progress; the returned Response covers only the cases
// where no job ran.
func (a *AdminBroadcast) Compose(ctx context.Context, u User, text string, rep broadcast.Reporter) Response {
	if a.sessions.Get(ctx, u.ID).State != session.ComposingBroadcast {
		return Response{}
	}
	if strings.TrimSpace(text) == view.CancelCommand {
		return a.Cancel(ctx, u)
	}
	defer func() { _ = a.sessions.Clear(ctx, u.ID) }()
	if !a.isAdmin(ctx, u) {
		return Response{}
	}

	res, err := a.engine.Run(ctx, broadcast.Job{Payload: text}, a.recipients(u, ""), rep)
	switch {
	case errors.Is(err, broadcast.ErrInProgress):
		return reply(view.BroadcastBusy, nil)
	case errors.Is(err, broadcast.ErrNoRecipients):
		return reply(view.NoRecipients, nil)
	case err != nil:
		a.logFail(ctx, "broadcast.run", u, err)
		return reply(failure(err, view.NoRecipients), nil)
	}
	logger.Info(ctx, component, "flow.broadcast",
		slog.String("status", "ok"),
		slog.Int64("user_id", u.ID),
		slog.String("job_id", res.JobID),
		slog.Int("sent", res.Sent),
		slog.Int("failed", res.Failed),
	)
	return Response{}
}

// Cancel leaves composition.
func (a *AdminBroadcast) Cancel(ctx context.Context, u User) Response {
	_ = a.sessions.Clear(ctx, u.ID)
	return reply(view.BroadcastCancelled, view.AdminMenu())
}

// recipients pages through the user listing with the admin's token.
func (a *AdminBroadcast) recipients(u User, role string) broadcast.PageFunc {
	return func(ctx context.Context, n int) (broadcast.Page, error) {
		page, err := call(ctx, a.auth, u, func(ctx context.Context, token string) (backend.UserPage, error) {
			return a.api.Users(ctx, token, backend.UserQuery{Page: n, PerPage: recipientsPerPage, Role: role})
		})
		if err != nil {
			return broadcast.Page{}, err
		}
		out := broadcast.Page{LastPage: page.LastPage, Recipients: make([]broadcast.Recipient, 0, len(page.Data))}
		for _, usr := range page.Data {
			out.Recipients = append(out.Recipients, broadcast.Recipient{UserID: usr.ID, ChatID: usr.TelegramID})
		}
		return out, nil
	}
}
