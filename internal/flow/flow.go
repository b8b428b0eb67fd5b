// Package flow holds the conversation controllers. Each operation checks the
// user's session state, talks to the backend through the token cache and
// returns a Response for the router to render. Nothing here touches the chat
// transport.
package flow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/m3rciful/meowbot/core/logger"
	"github.com/m3rciful/meowbot/core/telegram/state"
	"github.com/m3rciful/meowbot/internal/auth"
	"github.com/m3rciful/meowbot/internal/backend"
	"github.com/m3rciful/meowbot/internal/broadcast"
	"github.com/m3rciful/meowbot/internal/session"
	"github.com/m3rciful/meowbot/internal/view"
)

const component = "flow"

// User identifies the chat user behind an event.
type User struct {
	ID       int64
	Username string
}

// Response is what the user should see. An empty Response sends nothing.
type Response struct {
	Text     string
	Markdown bool
	Keyboard *view.Keyboard
	// Edit replaces the message a button belongs to instead of sending a new one.
	Edit bool
	// Notice answers the button press.
	Notice string
	Alert  bool
}

// Silent reports whether nothing is to be shown.
func (r Response) Silent() bool { return r.Text == "" && r.Notice == "" }

func reply(text string, kb *view.Keyboard) Response { return Response{Text: text, Keyboard: kb} }

func edit(text string, kb *view.Keyboard) Response {
	return Response{Text: text, Keyboard: kb, Edit: true}
}

func notice(text string) Response { return Response{Notice: text} }

func notApplicable() Response { return notice(view.NotApplicable) }

// Sessions is the session store.
type Sessions interface {
	Get(ctx context.Context, userID int64) session.Session
	SetState(ctx context.Context, userID int64, st state.State, patch func(*session.Scratch)) error
	Begin(ctx context.Context, userID int64, st state.State, patch func(*session.Scratch)) error
	Clear(ctx context.Context, userID int64) error
}

// Auth is the token cache.
type Auth interface {
	Register(ctx context.Context, userID int64, username string, parentID int64) (string, bool)
	Call(ctx context.Context, userID int64, username string, fn func(ctx context.Context, token string) error) error
	Identity(ctx context.Context, userID int64, username string) (backend.Identity, error)
}

// Backend lists the business calls the controllers make.
type Backend interface {
	Plans(ctx context.Context, token string) ([]backend.Plan, error)
	AvailableServers(ctx context.Context, token string) ([]backend.Location, error)
	CreateSubscription(ctx context.Context, token string, planID int64, tag string) (backend.Subscription, error)
	Subscriptions(ctx context.Context, token string) ([]backend.Subscription, error)
	Subscription(ctx context.Context, token string, subID int64) (backend.Subscription, error)
	RenewSubscription(ctx context.Context, token string, subID int64) error
	ChangeLocation(ctx context.Context, token string, subID int64, tag string) error
	Deposit(ctx context.Context, token string, amountRials int64, gateway string) (backend.DepositResult, error)
	DepositWithProof(ctx context.Context, token string, amountRials int64, image []byte) (backend.DepositResult, error)
	Transactions(ctx context.Context, token string) ([]backend.Transaction, error)
	PendingTransactions(ctx context.Context, token string) ([]backend.Transaction, error)
	ApproveTransaction(ctx context.Context, token string, txID int64) error
	RejectTransaction(ctx context.Context, token string, txID int64) error
	Users(ctx context.Context, token string, q backend.UserQuery) (backend.UserPage, error)
	ResellerUsers(ctx context.Context, token string, resellerID int64) ([]backend.User, error)
	AffiliateLink(ctx context.Context, token string) (backend.AffiliateLink, error)
	AffiliateStats(ctx context.Context, token string) (backend.AffiliateStats, error)
	DashboardStats(ctx context.Context, token string) (backend.DashboardStats, error)
}

// Broadcaster runs one fan-out job to completion.
type Broadcaster interface {
	Run(ctx context.Context, job broadcast.Job, fetch broadcast.PageFunc, rep broadcast.Reporter) (broadcast.Result, error)
}

// Settings are the deployment values the texts need.
type Settings struct {
	MinDeposit      int64
	CardNumber      string
	CardHolder      string
	SupportUsername string
	PublicURL       string
	// BotUsername is resolved lazily, the bot learns it only after start.
	BotUsername func() string
	Now         func() time.Time
}

// Deps wires the controllers.
type Deps struct {
	Sessions  Sessions
	Auth      Auth
	API       Backend
	Broadcast Broadcaster
	Settings  Settings
}

type base struct {
	sessions Sessions
	auth     Auth
	api      Backend
	set      Settings
}

// Flows groups every controller.
type Flows struct {
	Purchase  *Purchase
	Deposit   *Deposit
	Location  *Location
	Broadcast *AdminBroadcast
	Menu      *Menu
	Services  *Services
	Admin     *Admin
	Reseller  *Reseller
}

// New builds all controllers over d.
func New(d Deps) *Flows {
	if d.Settings.Now == nil {
		d.Settings.Now = time.Now
	}
	if d.Settings.BotUsername == nil {
		d.Settings.BotUsername = func() string { return "" }
	}
	if d.Settings.MinDeposit <= 0 {
		d.Settings.MinDeposit = DefaultMinDeposit
	}
	b := &base{sessions: d.Sessions, auth: d.Auth, api: d.API, set: d.Settings}
	return &Flows{
		Purchase:  &Purchase{b},
		Deposit:   &Deposit{b},
		Location:  &Location{b},
		Broadcast: &AdminBroadcast{base: b, engine: d.Broadcast},
		Menu:      &Menu{b},
		Services:  &Services{b},
		Admin:     &Admin{b},
		Reseller:  &Reseller{b},
	}
}

// Reset drops whatever flow the user is in. Top-level actions call it.
func (f *Flows) Reset(ctx context.Context, u User) {
	_ = f.Menu.sessions.Clear(ctx, u.ID)
}

// call runs fn with a live token of u and returns its value.
func call[T any](ctx context.Context, a Auth, u User, fn func(ctx context.Context, token string) (T, error)) (T, error) {
	var out T
	err := a.Call(ctx, u.ID, u.Username, func(ctx context.Context, token string) error {
		var err error
		out, err = fn(ctx, token)
		return err
	})
	return out, err
}

// failure turns an external-call error into the text shown to the user.
// Business rejections are relayed verbatim.
func failure(err error, fallback string) string {
	switch {
	case err == nil:
		return fallback
	case errors.Is(err, auth.ErrUnavailable):
		return view.AuthUnavailable
	case backend.IsTransport(err), errors.Is(err, context.DeadlineExceeded):
		return view.RetryLater
	}
	if msg, ok := backend.RejectionMessage(err); ok {
		return msg
	}
	return fallback
}

func (b *base) logFail(ctx context.Context, op string, u User, err error) {
	logger.Warn(ctx, component, "flow."+op,
		slog.String("status", "fail"),
		slog.Int64("user_id", u.ID),
		slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
	)
}

// identity looks the caller up freshly. ok is false on any failure.
func (b *base) identity(ctx context.Context, u User) (backend.Identity, bool) {
	id, err := b.auth.Identity(ctx, u.ID, u.Username)
	if err != nil {
		b.logFail(ctx, "identity", u, err)
		return backend.Identity{}, false
	}
	return id, true
}

func (b *base) isAdmin(ctx context.Context, u User) bool {
	id, ok := b.identity(ctx, u)
	return ok && id.IsAdmin()
}

// abort ends a flow whose scratch lost a prerequisite.
func (b *base) abort(ctx context.Context, u User, asEdit bool) Response {
	_ = b.sessions.Clear(ctx, u.ID)
	logger.Info(ctx, component, "flow.abort",
		slog.String("status", "fail"),
		slog.Int64("user_id", u.ID),
		slog.String("reason", "missing_scratch"),
	)
	return Response{Text: view.SessionLost, Edit: asEdit}
}
