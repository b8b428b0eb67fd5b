package flow

import (
	"context"
	"errors"

	"github.com/m3rciful/meowbot/core/telegram/state"
	"github.com/m3rciful/meowbot/internal/auth"
	"github.com/m3rciful/meowbot/internal/backend"
	"github.com/m3rciful/meowbot/internal/session"
	"github.com/m3rciful/meowbot/internal/view"
)

// rialsPerToman converts the toman amounts users type into backend rials.
const rialsPerToman = 10

// Deposit tops up the wallet online or by manual card transfer.
type Deposit struct{ *base }

func inDeposit(st state.State) bool {
	switch st {
	case session.EnteringDepositAmount, session.SelectingGateway, session.UploadingProof:
		return true
	}
	return false
}

// Start asks for an amount.
func (d *Deposit) Start(ctx context.Context, u User) Response {
	if err := d.sessions.Begin(ctx, u.ID, session.EnteringDepositAmount, nil); err != nil {
		return notice(view.RetryNotice)
	}
	return edit(view.DepositPrompt(d.set.MinDeposit), nil)
}

// EnterAmount validates the typed amount. Bad input re-prompts in place.
func (d *Deposit) EnterAmount(ctx context.Context, u User, text string) Response {
	if d.sessions.Get(ctx, u.ID).State != session.EnteringDepositAmount {
		return notApplicable()
	}
	amount, ok := ParseAmount(text)
	if !ok {
		return reply(view.DepositNotNumber, nil)
	}
	if amount < d.set.MinDeposit {
		return reply(view.DepositTooSmall(d.set.MinDeposit), nil)
	}
	if err := d.sessions.SetState(ctx, u.ID, session.SelectingGateway, func(s *session.Scratch) {
		s.DepositAmount = amount
	}); err != nil {
		return reply(view.RetryLater, nil)
	}
	return reply(view.DepositAmount(amount), view.Gateways())
}

// SelectGateway relays a payment link or shows the transfer details.
func (d *Deposit) SelectGateway(ctx context.Context, u User, gateway string) Response {
	sess := d.sessions.Get(ctx, u.ID)
	if sess.State != session.SelectingGateway {
		return notApplicable()
	}
	amount := sess.Scratch.DepositAmount
	if amount < d.set.MinDeposit {
		return d.abort(ctx, u, true)
	}

	switch gateway {
	case backend.GatewayZibal:
		res, err := call(ctx, d.auth, u, func(ctx context.Context, token string) (backend.DepositResult, error) {
			return d.api.Deposit(ctx, token, amount*rialsPerToman, backend.GatewayZibal)
		})
		_ = d.sessions.Clear(ctx, u.ID)
		if err != nil || res.PaymentURL == "" {
			if err != nil {
				d.logFail(ctx, "deposit.online", u, err)
			}
			return edit(failure(err, view.PaymentLinkFailed), nil)
		}
		return edit(view.OnlinePayment(amount, res.PaymentURL), nil)

	case backend.GatewayCardToCard:
		if err := d.sessions.SetState(ctx, u.ID, session.UploadingProof, func(s *session.Scratch) {
			s.Gateway = backend.GatewayCardToCard
		}); err != nil {
			return notice(view.RetryNotice)
		}
		r := edit(view.CardTransfer(amount, d.set.CardNumber, d.set.CardHolder), nil)
		r.Markdown = true
		return r
	}
	return notApplicable()
}

// SubmitProof uploads the receipt returned by download. A failed upload
// keeps the state so the user can send the image again.
func (d *Deposit) SubmitProof(ctx context.Context, u User, download func(context.Context) ([]byte, error)) Response {
	sess := d.sessions.Get(ctx, u.ID)
	if sess.State != session.UploadingProof {
		return Response{}
	}
	amount := sess.Scratch.DepositAmount
	if amount <= 0 {
		return d.abort(ctx, u, false)
	}

	img, err := download(ctx)
	if err != nil || len(img) == 0 {
		if err != nil {
			d.logFail(ctx, "deposit.download", u, err)
		}
		return reply(view.ProofDownloadFailed, nil)
	}

	res, err := call(ctx, d.auth, u, func(ctx context.Context, token string) (backend.DepositResult, error) {
		return d.api.DepositWithProof(ctx, token, amount*rialsPerToman, img)
	})
	switch {
	case errors.Is(err, auth.ErrUnavailable):
		_ = d.sessions.Clear(ctx, u.ID)
		return reply(view.AuthStartAgain, nil)
	case err != nil:
		d.logFail(ctx, "deposit.proof", u, err)
		return reply(failure(err, view.DepositFileFailed), nil)
	}
	_ = d.sessions.Clear(ctx, u.ID)
	var txID int64
	if res.Transaction != nil {
		txID = res.Transaction.ID
	}
	return reply(view.DepositFiled(amount, txID), nil)
}

// Cancel abandons the deposit.
func (d *Deposit) Cancel(ctx context.Context, u User) Response {
	if !inDeposit(d.sessions.Get(ctx, u.ID).State) {
		return notApplicable()
	}
	_ = d.sessions.Clear(ctx, u.ID)
	return edit(view.DepositCancelled, nil)
}
