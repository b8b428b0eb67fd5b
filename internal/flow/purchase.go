package flow

import (
	"context"

	"github.com/m3rciful/meowbot/core/telegram/state"
	"github.com/m3rciful/meowbot/internal/backend"
	"github.com/m3rciful/meowbot/internal/session"
	"github.com/m3rciful/meowbot/internal/view"
)

// Purchase walks plan, location and confirmation. Prices always come from
// the catalog snapshot taken at Start.
type Purchase struct{ *base }

func inPurchase(st state.State) bool {
	switch st {
	case session.SelectingPlan, session.SelectingLocation, session.ConfirmingPurchase:
		return true
	}
	return false
}

// Start fetches the catalog once and offers it. Any flow in progress is
// dropped even when there is nothing to offer.
func (p *Purchase) Start(ctx context.Context, u User) Response {
	plans, err := p.api.Plans(ctx, "")
	if err != nil {
		p.logFail(ctx, "purchase.plans", u, err)
		_ = p.sessions.Clear(ctx, u.ID)
		return reply(failure(err, view.NoPlans), nil)
	}
	if len(plans) == 0 {
		_ = p.sessions.Clear(ctx, u.ID)
		return reply(view.NoPlans, nil)
	}
	if err := p.sessions.Begin(ctx, u.ID, session.SelectingPlan, func(s *session.Scratch) {
		s.Plans = plans
	}); err != nil {
		return reply(view.RetryLater, nil)
	}
	return reply(view.PlanPrompt, view.PlanChoices(plans))
}

// SelectPlan picks planID from the snapshot and offers locations.
func (p *Purchase) SelectPlan(ctx context.Context, u User, planID int64) Response {
	sess := p.sessions.Get(ctx, u.ID)
	if sess.State != session.SelectingPlan {
		return notApplicable()
	}
	if len(sess.Scratch.Plans) == 0 {
		return p.abort(ctx, u, true)
	}
	plan, ok := sess.Scratch.Plan(planID)
	if !ok {
		return notice(view.PlanNotFound)
	}
	locs, err := p.api.AvailableServers(ctx, "")
	if err != nil || len(locs) == 0 {
		if err != nil {
			p.logFail(ctx, "purchase.locations", u, err)
		}
		_ = p.sessions.Clear(ctx, u.ID)
		return edit(failure(err, view.NoServers), nil)
	}
	if err := p.sessions.SetState(ctx, u.ID, session.SelectingLocation, func(s *session.Scratch) {
		s.SelectedPlanID = plan.ID
		s.Locations = locs
		s.LocationTag = ""
	}); err != nil {
		return notice(view.RetryNotice)
	}
	return edit(view.LocationPrompt(plan), view.LocationChoices(locs))
}

// BackToPlans returns to the plan list without a new catalog fetch.
func (p *Purchase) BackToPlans(ctx context.Context, u User) Response {
	sess := p.sessions.Get(ctx, u.ID)
	if sess.State != session.SelectingLocation {
		return notApplicable()
	}
	if len(sess.Scratch.Plans) == 0 {
		return p.abort(ctx, u, true)
	}
	if err := p.sessions.SetState(ctx, u.ID, session.SelectingPlan, func(s *session.Scratch) {
		s.SelectedPlanID = 0
		s.Locations = nil
		s.LocationTag = ""
	}); err != nil {
		return notice(view.RetryNotice)
	}
	return edit(view.PlanPrompt, view.PlanChoices(sess.Scratch.Plans))
}

// SelectLocation records tag and asks for confirmation.
func (p *Purchase) SelectLocation(ctx context.Context, u User, tag string) Response {
	sess := p.sessions.Get(ctx, u.ID)
	if sess.State != session.SelectingLocation {
		return notApplicable()
	}
	plan, ok := sess.Scratch.Plan(sess.Scratch.SelectedPlanID)
	if !ok {
		return p.abort(ctx, u, true)
	}
	if !sess.Scratch.HasLocation(tag) {
		return notice(view.LocationNotFound)
	}
	if err := p.sessions.SetState(ctx, u.ID, session.ConfirmingPurchase, func(s *session.Scratch) {
		s.LocationTag = tag
	}); err != nil {
		return notice(view.RetryNotice)
	}
	return edit(view.OrderSummary(plan, tag), view.ConfirmPurchase())
}

// Confirm creates the subscription. The flow ends whatever the outcome.
func (p *Purchase) Confirm(ctx context.Context, u User) Response {
	sess := p.sessions.Get(ctx, u.ID)
	if sess.State != session.ConfirmingPurchase {
		return notApplicable()
	}
	plan, ok := sess.Scratch.Plan(sess.Scratch.SelectedPlanID)
	tag := sess.Scratch.LocationTag
	if !ok || tag == "" {
		return p.abort(ctx, u, true)
	}

	sub, err := call(ctx, p.auth, u, func(ctx context.Context, token string) (backend.Subscription, error) {
		return p.api.CreateSubscription(ctx, token, plan.ID, tag)
	})
	_ = p.sessions.Clear(ctx, u.ID)
	if err != nil {
		p.logFail(ctx, "purchase.confirm", u, err)
		return edit(failure(err, view.PurchaseFailed), nil)
	}
	r := edit(view.PurchaseDone(sub.ID, plan, tag), nil)
	r.Notice = view.PurchaseNotice
	return r
}

// Cancel abandons the purchase.
func (p *Purchase) Cancel(ctx context.Context, u User) Response {
	if !inPurchase(p.sessions.Get(ctx, u.ID).State) {
		return notApplicable()
	}
	_ = p.sessions.Clear(ctx, u.ID)
	return edit(view.PurchaseCancelled, nil)
}
