package flow

import (
	"context"
	"errors"

	"github.com/m3rciful/meowbot/internal/auth"
	"github.com/m3rciful/meowbot/internal/backend"
	"github.com/m3rciful/meowbot/internal/view"
)

// Services lists and manages the user's subscriptions.
type Services struct{ *base }

// List shows every subscription. asEdit redraws the current message.
func (s *Services) List(ctx context.Context, u User, asEdit bool) Response {
	subs, err := call(ctx, s.auth, u, s.api.Subscriptions)
	if err != nil {
		s.logFail(ctx, "services.list", u, err)
		if errors.Is(err, auth.ErrUnavailable) {
			return Response{Text: view.StartFirst, Edit: asEdit}
		}
		return Response{Text: failure(err, view.NoServicesShort), Edit: asEdit}
	}
	if len(subs) == 0 {
		if asEdit {
			return edit(view.NoServicesShort, nil)
		}
		return reply(view.NoServices, nil)
	}
	return Response{Text: view.ServiceListHeader(len(subs)), Keyboard: view.ServiceList(subs), Edit: asEdit}
}

func (s *Services) fetch(ctx context.Context, u User, subID int64) (backend.Subscription, error) {
	return call(ctx, s.auth, u, func(ctx context.Context, token string) (backend.Subscription, error) {
		return s.api.Subscription(ctx, token, subID)
	})
}

// Detail shows one subscription.
func (s *Services) Detail(ctx context.Context, u User, subID int64) Response {
	sub, err := s.fetch(ctx, u, subID)
	if err != nil {
		s.logFail(ctx, "services.detail", u, err)
		return notice(failure(err, view.ServiceNotFound))
	}
	return edit(view.ServiceDetail(sub, s.set.Now()), view.ServiceActions(subID))
}

// Link sends the subscription import link as a new message.
func (s *Services) Link(ctx context.Context, u User, subID int64) Response {
	sub, err := s.fetch(ctx, u, subID)
	if err != nil || sub.UUID == "" {
		if err != nil {
			s.logFail(ctx, "services.link", u, err)
		}
		return notice(failure(err, view.ServiceNotFound))
	}
	link := view.SubscriptionLink(s.set.PublicURL, sub.UUID)
	return Response{Text: view.LinkMessage(subID, link), Markdown: true}
}

// Renew checks the wallet against the plan price and asks to confirm.
func (s *Services) Renew(ctx context.Context, u User, subID int64) Response {
	sub, err := s.fetch(ctx, u, subID)
	if err != nil {
		s.logFail(ctx, "services.renew", u, err)
		return notice(failure(err, view.ServiceNotFound))
	}
	var (
		price backend.Amount
		plan  string
	)
	if sub.Plan != nil {
		price, plan = sub.Plan.PriceBase, sub.Plan.Name
	}
	id, err := s.auth.Identity(ctx, u.ID, u.Username)
	if err != nil {
		s.logFail(ctx, "services.renew", u, err)
		return notice(failure(err, view.GenericError))
	}
	if id.WalletBalance < price {
		return edit(view.RenewShortfallText(id.WalletBalance, price), view.RenewShortfall(subID))
	}
	return edit(view.RenewPrompt(subID, plan, price, id.WalletBalance), view.RenewConfirm(subID))
}

// ConfirmRenew renews the subscription.
func (s *Services) ConfirmRenew(ctx context.Context, u User, subID int64) Response {
	err := s.auth.Call(ctx, u.ID, u.Username, func(ctx context.Context, token string) error {
		return s.api.RenewSubscription(ctx, token, subID)
	})
	if err != nil {
		s.logFail(ctx, "services.confirm_renew", u, err)
		return edit(failure(err, view.RenewFailed), nil)
	}
	return edit(view.RenewDone(subID), nil)
}
