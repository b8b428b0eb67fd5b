package flow

import (
	"context"
	"strconv"
	"strings"

	"github.com/m3rciful/meowbot/internal/session"
	"github.com/m3rciful/meowbot/internal/view"
)

// Menu serves commands and static pages.
type Menu struct{ *base }

// ParseReferral reads the /start payload. Only a positive integer counts.
func ParseReferral(payload string) int64 {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return 0
	}
	id, err := strconv.ParseInt(payload, 10, 64)
	if err != nil || id <= 0 {
		return 0
	}
	return id
}

// Start registers the user, with a referrer when payload names one.
func (m *Menu) Start(ctx context.Context, u User, payload string) Response {
	_ = m.sessions.Clear(ctx, u.ID)
	m.auth.Register(ctx, u.ID, u.Username, ParseReferral(payload))
	return reply(view.Welcome, view.MainMenu())
}

// AdminPanel opens the admin keyboard.
func (m *Menu) AdminPanel(ctx context.Context, u User) Response {
	if !m.isAdmin(ctx, u) {
		return reply(view.NoAccess, nil)
	}
	return reply(view.AdminPanel, view.AdminMenu())
}

// ResellerPanel opens the reseller keyboard.
func (m *Menu) ResellerPanel(ctx context.Context, u User) Response {
	id, ok := m.identity(ctx, u)
	if !ok || !id.IsReseller() {
		return reply(view.NoAccess, nil)
	}
	return reply(view.ResellerPanel, view.ResellerMenu())
}

// Cancel ends whatever flow is active.
func (m *Menu) Cancel(ctx context.Context, u User) Response {
	st := m.sessions.Get(ctx, u.ID).State
	_ = m.sessions.Clear(ctx, u.ID)
	if st == session.ComposingBroadcast {
		return reply(view.BroadcastCancelled, view.AdminMenu())
	}
	return reply(view.Cancelled, view.MainMenu())
}

// BackToMain shows the main keyboard.
func (m *Menu) BackToMain(ctx context.Context, u User) Response {
	_ = m.sessions.Clear(ctx, u.ID)
	return reply(view.MainMenuText, view.MainMenu())
}

// Profile shows the identity card.
func (m *Menu) Profile(ctx context.Context, u User) Response {
	id, err := m.auth.Identity(ctx, u.ID, u.Username)
	if err != nil {
		m.logFail(ctx, "profile", u, err)
		return reply(failure(err, view.ProfileFailed), nil)
	}
	return reply(view.Profile(id), view.ProfileActions())
}

// TxHistory lists recent transactions.
func (m *Menu) TxHistory(ctx context.Context, u User) Response {
	txs, err := call(ctx, m.auth, u, m.api.Transactions)
	if err != nil {
		m.logFail(ctx, "tx_history", u, err)
		return edit(failure(err, view.TxHistoryEmpty), nil)
	}
	if len(txs) == 0 {
		return edit(view.TxHistoryEmpty, nil)
	}
	return edit(view.TxHistory(txs), nil)
}

// Referral shows the user's invite link.
func (m *Menu) Referral(ctx context.Context, u User) Response {
	id, ok := m.identity(ctx, u)
	bot := m.set.BotUsername()
	if !ok || bot == "" {
		return notice(view.GenericError)
	}
	return Response{Text: view.Referral(view.ReferralLink(bot, id.ID)), Markdown: true, Edit: true}
}

// Tutorials offers the platform guides.
func (m *Menu) Tutorials() Response { return reply(view.TutorialMenu, view.Tutorials()) }

// Tutorial shows one guide.
func (m *Menu) Tutorial(platform string) Response { return edit(view.Tutorial(platform), nil) }

// Support shows the support contact.
func (m *Menu) Support() Response { return reply(view.Support(m.set.SupportUsername), nil) }

// FreeTest explains the free trial.
func (m *Menu) FreeTest() Response { return reply(view.FreeTest, nil) }
