package flow

import (
	"context"

	"github.com/m3rciful/meowbot/internal/session"
	"github.com/m3rciful/meowbot/internal/view"
)

// Location moves an existing subscription. It is a single-shot flow: the
// state is cleared once a location is applied, successful or not.
type Location struct{ *base }

// Start offers locations for subID.
func (l *Location) Start(ctx context.Context, u User, subID int64) Response {
	locs, err := call(ctx, l.auth, u, l.api.AvailableServers)
	if err != nil || len(locs) == 0 {
		if err != nil {
			l.logFail(ctx, "location.list", u, err)
		}
		return edit(failure(err, view.NoServers), nil)
	}
	if err := l.sessions.Begin(ctx, u.ID, session.ChangingLocation, func(s *session.Scratch) {
		s.SubscriptionID = subID
		s.Locations = locs
	}); err != nil {
		return notice(view.RetryNotice)
	}
	return edit(view.LocationChangePrompt(subID), view.NewLocationChoices(subID, locs))
}

// Apply moves the subscription to tag.
func (l *Location) Apply(ctx context.Context, u User, tag string) Response {
	sess := l.sessions.Get(ctx, u.ID)
	if sess.State != session.ChangingLocation {
		return notApplicable()
	}
	subID := sess.Scratch.SubscriptionID
	if subID <= 0 {
		return l.abort(ctx, u, true)
	}
	if !sess.Scratch.HasLocation(tag) {
		return notice(view.LocationNotFound)
	}
	_, err := call(ctx, l.auth, u, func(ctx context.Context, token string) (struct{}, error) {
		return struct{}{}, l.api.ChangeLocation(ctx, token, subID, tag)
	})
	_ = l.sessions.Clear(ctx, u.ID)
	if err != nil {
		l.logFail(ctx, "location.apply", u, err)
		return edit(failure(err, view.LocationChangeFailed), nil)
	}
	return edit(view.LocationChanged(subID, tag), nil)
}

