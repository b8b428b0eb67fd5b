package flow

import (
	"context"

	"github.com/m3rciful/meowbot/internal/view"
)

// Admin serves the admin keyboard. Every action re-checks the role.
type Admin struct{ *base }

// Stats shows the dashboard summary.
func (a *Admin) Stats(ctx context.Context, u User) Response {
	if !a.isAdmin(ctx, u) {
		return Response{}
	}
	stats, err := call(ctx, a.auth, u, a.api.DashboardStats)
	if err != nil {
		a.logFail(ctx, "admin.stats", u, err)
		return reply(failure(err, view.StatsFailed), nil)
	}
	return reply(view.AdminStats(stats), nil)
}

// Pending lists transactions awaiting review.
func (a *Admin) Pending(ctx context.Context, u User, asEdit bool) Response {
	if !a.isAdmin(ctx, u) {
		if asEdit {
			return notice(view.NoAccess)
		}
		return Response{}
	}
	txs, err := call(ctx, a.auth, u, a.api.PendingTransactions)
	if err != nil {
		a.logFail(ctx, "admin.pending", u, err)
		return Response{Text: failure(err, view.NoPending), Edit: asEdit}
	}
	if len(txs) == 0 {
		return Response{Text: view.NoPending, Edit: asEdit}
	}
	return Response{Text: view.PendingHeader, Keyboard: view.PendingList(txs), Edit: asEdit}
}

// Review opens the decision card of txID.
func (a *Admin) Review(ctx context.Context, u User, txID int64) Response {
	if !a.isAdmin(ctx, u) {
		return notice(view.NoAccess)
	}
	return edit(view.ReviewPrompt(txID), view.ReviewTx(txID))
}

// Approve settles txID.
func (a *Admin) Approve(ctx context.Context, u User, txID int64) Response {
	if !a.isAdmin(ctx, u) {
		return notice(view.NoAccess)
	}
	err := a.auth.Call(ctx, u.ID, u.Username, func(ctx context.Context, token string) error {
		return a.api.ApproveTransaction(ctx, token, txID)
	})
	if err != nil {
		a.logFail(ctx, "admin.approve", u, err)
		return edit(failure(err, view.TxApproveFailed(txID)), nil)
	}
	return edit(view.TxApproved(txID), nil)
}

// Reject declines txID.
func (a *Admin) Reject(ctx context.Context, u User, txID int64) Response {
	if !a.isAdmin(ctx, u) {
		return notice(view.NoAccess)
	}
	err := a.auth.Call(ctx, u.ID, u.Username, func(ctx context.Context, token string) error {
		return a.api.RejectTransaction(ctx, token, txID)
	})
	if err != nil {
		a.logFail(ctx, "admin.reject", u, err)
		return edit(failure(err, view.TxRejectFailed(txID)), nil)
	}
	return edit(view.TxRejected(txID), nil)
}
