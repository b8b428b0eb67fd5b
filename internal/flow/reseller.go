package flow

import (
	"context"

	"github.com/m3rciful/meowbot/internal/backend"
	"github.com/m3rciful/meowbot/internal/view"
)

// Reseller serves the reseller keyboard over the reseller's sub-users.
type Reseller struct{ *base }

// tree loads the reseller identity and sub-users. ok is false for
// non-resellers; a listing failure yields an empty tree.
func (r *Reseller) tree(ctx context.Context, u User) (backend.Identity, []backend.User, bool) {
	id, ok := r.identity(ctx, u)
	if !ok || !id.IsReseller() {
		return backend.Identity{}, nil, false
	}
	users, err := call(ctx, r.auth, u, func(ctx context.Context, token string) ([]backend.User, error) {
		return r.api.ResellerUsers(ctx, token, id.ID)
	})
	if err != nil {
		r.logFail(ctx, "reseller.users", u, err)
	}
	return id, users, true
}

func userSet(users []backend.User) map[int64]struct{} {
	set := make(map[int64]struct{}, len(users))
	for _, usr := range users {
		set[usr.ID] = struct{}{}
	}
	return set
}

func (r *Reseller) subscriptions(ctx context.Context, u User, users []backend.User) []backend.Subscription {
	subs, err := call(ctx, r.auth, u, r.api.Subscriptions)
	if err != nil {
		r.logFail(ctx, "reseller.subscriptions", u, err)
		return nil
	}
	set := userSet(users)
	var out []backend.Subscription
	for _, s := range subs {
		if _, ok := set[s.UserID]; ok {
			out = append(out, s)
		}
	}
	return out
}

// Stats counts sub-users and their active subscriptions.
func (r *Reseller) Stats(ctx context.Context, u User) Response {
	id, users, ok := r.tree(ctx, u)
	if !ok {
		return Response{}
	}
	if len(users) == 0 {
		return reply(view.ResellerStatsEmpty, nil)
	}
	active := 0
	for _, s := range r.subscriptions(ctx, u, users) {
		if s.Active() {
			active++
		}
	}
	return reply(view.ResellerStats(len(users), active, id.WalletBalance), nil)
}

// Users lists the sub-users.
func (r *Reseller) Users(ctx context.Context, u User) Response {
	_, users, ok := r.tree(ctx, u)
	if !ok {
		return Response{}
	}
	if len(users) == 0 {
		return reply(view.ResellerUsersEmpty, nil)
	}
	return reply(view.ResellerUsers(users), nil)
}

// Subscriptions lists the sub-users' subscriptions.
func (r *Reseller) Subscriptions(ctx context.Context, u User) Response {
	_, users, ok := r.tree(ctx, u)
	if !ok {
		return Response{}
	}
	if len(users) == 0 {
		return reply(view.ResellerSubsEmpty, nil)
	}
	subs := r.subscriptions(ctx, u, users)
	if len(subs) == 0 {
		return reply(view.ResellerNoSubs, nil)
	}
	return reply(view.ResellerSubs(subs), nil)
}

// Transactions lists the sub-users' transactions.
func (r *Reseller) Transactions(ctx context.Context, u User) Response {
	_, users, ok := r.tree(ctx, u)
	if !ok {
		return Response{}
	}
	if len(users) == 0 {
		return reply(view.ResellerTxsEmpty, nil)
	}
	txs, err := call(ctx, r.auth, u, r.api.Transactions)
	if err != nil || len(txs) == 0 {
		if err != nil {
			r.logFail(ctx, "reseller.transactions", u, err)
		}
		return reply(view.ResellerNoTxs, nil)
	}
	set := userSet(users)
	var mine []backend.Transaction
	for _, tx := range txs {
		if _, ok := set[tx.UserID]; ok {
			mine = append(mine, tx)
		}
	}
	if len(mine) == 0 {
		return reply(view.ResellerNoSubTxs, nil)
	}
	return reply(view.ResellerTxs(mine), nil)
}

// Affiliate shows the marketing link and earnings.
func (r *Reseller) Affiliate(ctx context.Context, u User) Response {
	id, ok := r.identity(ctx, u)
	if !ok || !id.IsReseller() {
		return Response{}
	}
	if _, err := call(ctx, r.auth, u, r.api.AffiliateLink); err != nil {
		r.logFail(ctx, "reseller.affiliate", u, err)
		return reply(view.AffiliateFailed, nil)
	}
	bot := r.set.BotUsername()
	if bot == "" {
		return reply(view.AffiliateFailed, nil)
	}
	var stats *backend.AffiliateStats
	if s, err := call(ctx, r.auth, u, r.api.AffiliateStats); err == nil {
		stats = &s
	} else {
		r.logFail(ctx, "reseller.affiliate_stats", u, err)
	}
	text := view.Affiliate(view.ReferralLink(bot, id.ID), stats)
	return Response{Text: text, Markdown: true}
}
