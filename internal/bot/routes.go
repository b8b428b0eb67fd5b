package bot

import (
	"context"
	"fmt"
	"strings"

	coretelegram "github.com/m3rciful/meowbot/core/telegram"
	"github.com/m3rciful/meowbot/core/telegram/callbacks"
	"github.com/m3rciful/meowbot/core/telegram/commands"
	tghelpers "github.com/m3rciful/meowbot/core/telegram/helpers"
	"github.com/m3rciful/meowbot/core/telegram/state"
	"github.com/m3rciful/meowbot/internal/flow"
	"github.com/m3rciful/meowbot/internal/session"
	"github.com/m3rciful/meowbot/internal/view"

	tele "gopkg.in/telebot.v4"
)

// action is a transport-free handler.
type action func(ctx context.Context, u flow.User) flow.Response

// idAction receives the numeric payload of a button.
type idAction func(ctx context.Context, u flow.User, id int64) flow.Response

// tagAction receives the string payload of a button.
type tagAction func(ctx context.Context, u flow.User, tag string) flow.Response

func sender(c tele.Context) (flow.User, bool) {
	s := c.Sender()
	if s == nil {
		return flow.User{}, false
	}
	return flow.User{ID: s.ID, Username: s.Username}, true
}

func (a *App) handle(fn action) tele.HandlerFunc {
	return func(c tele.Context) error {
		u, ok := sender(c)
		if !ok {
			return nil
		}
		return render(c, fn(tghelpers.BuildContext(c), u))
	}
}

// topLevel drops any flow in progress before fn runs.
func (a *App) topLevel(fn action) tele.HandlerFunc {
	return a.handle(func(ctx context.Context, u flow.User) flow.Response {
		a.flows.Reset(ctx, u)
		return fn(ctx, u)
	})
}

func (a *App) withID(fn idAction) tele.HandlerFunc {
	return func(c tele.Context) error {
		u, ok := sender(c)
		if !ok {
			return nil
		}
		id, err := callbacks.PayloadInt64(c)
		if err != nil || id <= 0 {
			return tghelpers.Respond(c, view.NotApplicable, false)
		}
		return render(c, fn(tghelpers.BuildContext(c), u, id))
	}
}

func (a *App) withTag(fn tagAction) tele.HandlerFunc {
	return func(c tele.Context) error {
		u, ok := sender(c)
		if !ok {
			return nil
		}
		tag := strings.TrimSpace(callbacks.Payload(c))
		if tag == "" {
			return tghelpers.Respond(c, view.NotApplicable, false)
		}
		return render(c, fn(tghelpers.BuildContext(c), u, tag))
	}
}

func static(fn func() flow.Response) action {
	return func(context.Context, flow.User) flow.Response { return fn() }
}

func (a *App) register(reg *coretelegram.Registry, m *state.Machine) error {
	f := a.flows

	reg.RegisterCommand("/start", commands.Command{
		Description: "شروع",
		Handler: func(c tele.Context) error {
			u, ok := sender(c)
			if !ok {
				return nil
			}
			var payload string
			if msg := c.Message(); msg != nil {
				payload = msg.Payload
			}
			return render(c, f.Menu.Start(tghelpers.BuildContext(c), u, payload))
		},
	})
	reg.RegisterCommand("/admin", commands.Command{Description: "پنل مدیریت", Hidden: true, Handler: a.topLevel(f.Menu.AdminPanel)})
	reg.RegisterCommand("/reseller", commands.Command{Description: "پنل نمایندگی", Hidden: true, Handler: a.topLevel(f.Menu.ResellerPanel)})
	reg.RegisterCommand(view.CancelCommand, commands.Command{Description: "لغو عملیات", Handler: a.handle(f.Menu.Cancel)})

	reg.RegisterLabel(view.LabelBuy, "buy", a.topLevel(f.Purchase.Start))
	reg.RegisterLabel(view.LabelServices, "services", a.topLevel(func(ctx context.Context, u flow.User) flow.Response {
		return f.Services.List(ctx, u, false)
	}))
	reg.RegisterLabel(view.LabelProfile, "profile", a.topLevel(f.Menu.Profile))
	reg.RegisterLabel(view.LabelTutorial, "tutorial", a.topLevel(static(f.Menu.Tutorials)))
	reg.RegisterLabel(view.LabelSupport, "support", a.topLevel(static(f.Menu.Support)))
	reg.RegisterLabel(view.LabelFreeTest, "free_test", a.topLevel(static(f.Menu.FreeTest)))
	reg.RegisterLabel(view.LabelBack, "back", a.topLevel(f.Menu.BackToMain))

	reg.RegisterLabel(view.LabelAdminStats, "admin_stats", a.topLevel(f.Admin.Stats))
	reg.RegisterLabel(view.LabelAdminPending, "admin_pending", a.topLevel(func(ctx context.Context, u flow.User) flow.Response {
		return f.Admin.Pending(ctx, u, false)
	}))
	reg.RegisterLabel(view.LabelAdminBroadcast, "admin_broadcast", a.topLevel(f.Broadcast.Start))

	reg.RegisterLabel(view.LabelResellerStats, "reseller_stats", a.topLevel(f.Reseller.Stats))
	reg.RegisterLabel(view.LabelResellerUsers, "reseller_users", a.topLevel(f.Reseller.Users))
	reg.RegisterLabel(view.LabelResellerSubs, "reseller_subs", a.topLevel(f.Reseller.Subscriptions))
	reg.RegisterLabel(view.LabelResellerTxs, "reseller_txs", a.topLevel(f.Reseller.Transactions))
	reg.RegisterLabel(view.LabelResellerAffiliate, "reseller_affiliate", a.topLevel(f.Reseller.Affiliate))

	m.Register(state.KindText, session.EnteringDepositAmount, func(c tele.Context) error {
		u, ok := sender(c)
		if !ok {
			return nil
		}
		return render(c, f.Deposit.EnterAmount(tghelpers.BuildContext(c), u, c.Text()))
	})
	m.Register(state.KindText, session.ComposingBroadcast, func(c tele.Context) error {
		u, ok := sender(c)
		if !ok {
			return nil
		}
		rep := newProgressReporter(c.Bot(), c.Recipient())
		return render(c, f.Broadcast.Compose(tghelpers.BuildContext(c), u, c.Text(), rep))
	})
	m.Register(state.KindPhoto, session.UploadingProof, func(c tele.Context) error {
		u, ok := sender(c)
		if !ok {
			return nil
		}
		download := func(context.Context) ([]byte, error) { return downloadPhoto(c.Bot(), c.Message()) }
		return render(c, f.Deposit.SubmitProof(tghelpers.BuildContext(c), u, download))
	})

	cbs := map[string]tele.HandlerFunc{
		view.ActPlan:            a.withID(f.Purchase.SelectPlan),
		view.ActLocation:        a.withTag(f.Purchase.SelectLocation),
		view.ActBackPlans:       a.handle(f.Purchase.BackToPlans),
		view.ActConfirmPurchase: a.handle(f.Purchase.Confirm),
		view.ActCancelPurchase:  a.handle(f.Purchase.Cancel),

		view.ActService:        a.withID(f.Services.Detail),
		view.ActGetLink:        a.withID(f.Services.Link),
		view.ActRenew:          a.withID(f.Services.Renew),
		view.ActConfirmRenew:   a.withID(f.Services.ConfirmRenew),
		view.ActChangeLocation: a.withID(f.Location.Start),
		view.ActNewLocation:    a.withTag(f.Location.Apply),
		view.ActBackServices: a.handle(func(ctx context.Context, u flow.User) flow.Response {
			return f.Services.List(ctx, u, true)
		}),

		view.ActDeposit:       a.handle(f.Deposit.Start),
		view.ActGateway:       a.withTag(f.Deposit.SelectGateway),
		view.ActCancelDeposit: a.handle(f.Deposit.Cancel),
		view.ActTxHistory:     a.handle(f.Menu.TxHistory),
		view.ActReferral:      a.handle(f.Menu.Referral),
		view.ActTutorial: a.withTag(func(_ context.Context, _ flow.User, p string) flow.Response {
			return f.Menu.Tutorial(p)
		}),

		view.ActAdminTx:   a.withID(f.Admin.Review),
		view.ActApproveTx: a.withID(f.Admin.Approve),
		view.ActRejectTx:  a.withID(f.Admin.Reject),
		view.ActBackPending: a.handle(func(ctx context.Context, u flow.User) flow.Response {
			return f.Admin.Pending(ctx, u, true)
		}),
	}
	for key, h := range cbs {
		if err := reg.RegisterCallback(key, h); err != nil {
			return fmt.Errorf("bot: %w", err)
		}
	}
	reg.SetCallbackNotFound(func(c tele.Context) error {
		return tghelpers.Respond(c, view.NotApplicable, false)
	})
	return nil
}
