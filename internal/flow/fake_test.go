package flow

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/m3rciful/meowbot/internal/auth"
	"github.com/m3rciful/meowbot/internal/backend"
	"github.com/m3rciful/meowbot/internal/broadcast"
	"github.com/m3rciful/meowbot/internal/session"
)

// fakeAPI is an in-memory backend. Tokens are "tok-<n>"; only the latest
// one issued is accepted unless revoked.
type fakeAPI struct {
	mu        sync.Mutex
	calls     map[string]int
	registers []backend.RegisterRequest
	issued    int
	valid     map[string]bool
	rejectAll bool

	role      string
	balance   backend.Amount
	plans     []backend.Plan
	locations []backend.Location
	subs      map[int64]backend.Subscription
	users     []backend.User

	created   []string
	deposits  []int64
	proofs    [][]byte
	moves     []string
	plansErr  error
	createErr error
	proofErr  error
	moveErr   error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		calls: map[string]int{},
		valid: map[string]bool{},
		role:  backend.RoleUser,
		subs:  map[int64]backend.Subscription{},
	}
}

func (f *fakeAPI) hit(name string) {
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()
}

func (f *fakeAPI) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeAPI) authorize(token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rejectAll || !f.valid[token] {
		return fmt.Errorf("test: %w", backend.ErrUnauthorized)
	}
	return nil
}

func (f *fakeAPI) Register(_ context.Context, in backend.RegisterRequest) (string, error) {
	f.hit("register")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registers = append(f.registers, in)
	f.issued++
	tok := "tok-" + strconv.Itoa(f.issued)
	f.valid[tok] = true
	return tok, nil
}

func (f *fakeAPI) Me(_ context.Context, token string) (backend.Identity, error) {
	f.hit("me")
	if err := f.authorize(token); err != nil {
		return backend.Identity{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return backend.Identity{ID: 77, Role: f.role, WalletBalance: f.balance}, nil
}

func (f *fakeAPI) Plans(context.Context, string) ([]backend.Plan, error) {
	f.hit("plans")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.plansErr != nil {
		return nil, f.plansErr
	}
	return append([]backend.Plan(nil), f.plans...), nil
}

func (f *fakeAPI) AvailableServers(context.Context, string) ([]backend.Location, error) {
	f.hit("servers")
	return f.locations, nil
}

func (f *fakeAPI) CreateSubscription(_ context.Context, token string, planID int64, tag string) (backend.Subscription, error) {
	f.hit("create")
	if err := f.authorize(token); err != nil {
		return backend.Subscription{}, err
	}
	if f.createErr != nil {
		return backend.Subscription{}, f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, fmt.Sprintf("%d@%s", planID, tag))
	return backend.Subscription{ID: 500 + int64(len(f.created))}, nil
}

func (f *fakeAPI) Subscriptions(_ context.Context, token string) ([]backend.Subscription, error) {
	f.hit("subscriptions")
	if err := f.authorize(token); err != nil {
		return nil, err
	}
	var out []backend.Subscription
	for _, s := range f.subs {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeAPI) Subscription(_ context.Context, token string, id int64) (backend.Subscription, error) {
	f.hit("subscription")
	if err := f.authorize(token); err != nil {
		return backend.Subscription{}, err
	}
	s, ok := f.subs[id]
	if !ok {
		return backend.Subscription{}, &backend.APIError{Status: 404, Endpoint: "subscriptions"}
	}
	return s, nil
}

func (f *fakeAPI) RenewSubscription(_ context.Context, token string, _ int64) error {
	f.hit("renew")
	return f.authorize(token)
}

func (f *fakeAPI) ChangeLocation(_ context.Context, token string, subID int64, tag string) error {
	f.hit("change_location")
	if err := f.authorize(token); err != nil {
		return err
	}
	f.moves = append(f.moves, fmt.Sprintf("%d@%s", subID, tag))
	return f.moveErr
}

func (f *fakeAPI) Deposit(_ context.Context, token string, rials int64, _ string) (backend.DepositResult, error) {
	f.hit("deposit")
	if err := f.authorize(token); err != nil {
		return backend.DepositResult{}, err
	}
	f.deposits = append(f.deposits, rials)
	return backend.DepositResult{PaymentURL: "https://pay.example/123"}, nil
}

func (f *fakeAPI) DepositWithProof(_ context.Context, token string, rials int64, img []byte) (backend.DepositResult, error) {
	f.hit("deposit_proof")
	if err := f.authorize(token); err != nil {
		return backend.DepositResult{}, err
	}
	if f.proofErr != nil {
		return backend.DepositResult{}, f.proofErr
	}
	f.deposits = append(f.deposits, rials)
	f.proofs = append(f.proofs, img)
	return backend.DepositResult{Transaction: &backend.Transaction{ID: 901}}, nil
}

func (f *fakeAPI) Transactions(context.Context, string) ([]backend.Transaction, error) {
	f.hit("transactions")
	return nil, nil
}

func (f *fakeAPI) PendingTransactions(context.Context, string) ([]backend.Transaction, error) {
	f.hit("pending")
	return []backend.Transaction{{ID: 1, Amount: 100000}}, nil
}

func (f *fakeAPI) ApproveTransaction(_ context.Context, token string, _ int64) error {
	f.hit("approve")
	return f.authorize(token)
}

func (f *fakeAPI) RejectTransaction(_ context.Context, token string, _ int64) error {
	f.hit("reject")
	return f.authorize(token)
}

func (f *fakeAPI) Users(_ context.Context, token string, q backend.UserQuery) (backend.UserPage, error) {
	f.hit("users")
	if err := f.authorize(token); err != nil {
		return backend.UserPage{}, err
	}
	last := (len(f.users) + q.PerPage - 1) / q.PerPage
	lo := (q.Page - 1) * q.PerPage
	hi := min(lo+q.PerPage, len(f.users))
	if lo >= len(f.users) {
		return backend.UserPage{LastPage: last}, nil
	}
	return backend.UserPage{Data: f.users[lo:hi], LastPage: last}, nil
}

func (f *fakeAPI) ResellerUsers(context.Context, string, int64) ([]backend.User, error) {
	f.hit("reseller_users")
	return f.users, nil
}

func (f *fakeAPI) AffiliateLink(context.Context, string) (backend.AffiliateLink, error) {
	f.hit("affiliate_link")
	return backend.AffiliateLink{}, nil
}

func (f *fakeAPI) AffiliateStats(context.Context, string) (backend.AffiliateStats, error) {
	f.hit("affiliate_stats")
	return backend.AffiliateStats{ReferralsCount: 3, TotalEarnings: 50000}, nil
}

func (f *fakeAPI) DashboardStats(context.Context, string) (backend.DashboardStats, error) {
	f.hit("dashboard")
	return backend.DashboardStats{TotalUsers: 1200}, nil
}

type chatSender struct {
	mu   sync.Mutex
	bad  map[int64]bool
	sent []int64
}

func (s *chatSender) Send(_ context.Context, chatID int64, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, chatID)
	if s.bad[chatID] {
		return errors.New("telegram: chat not found (400)")
	}
	return nil
}

type harness struct {
	flows    *Flows
	api      *fakeAPI
	sessions *session.Store
	sender   *chatSender
}

var alice = User{ID: 1001, Username: "alice"}

func newHarness(t *testing.T) *harness {
	t.Helper()
	api := newFakeAPI()
	store := session.New(session.NewMemory(time.Hour, nil))
	sender := &chatSender{bad: map[int64]bool{}}
	engine := broadcast.New(sender, broadcast.Options{Sleep: func(time.Duration) {}})
	flows := New(Deps{
		Sessions:  store,
		Auth:      auth.New(auth.NewMemoryStore(nil), api, 0),
		API:       api,
		Broadcast: engine,
		Settings: Settings{
			CardNumber:      "6037-0000-0000-0000",
			CardHolder:      "Meow_Holder",
			SupportUsername: "@meow_support",
			PublicURL:       "https://sub.example.com",
			BotUsername:     func() string { return "meow_bot" },
			Now:             func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) },
		},
	})
	return &harness{flows: flows, api: api, sessions: store, sender: sender}
}

func (h *harness) state(t *testing.T, u User) session.Session {
	t.Helper()
	return h.sessions.Get(context.Background(), u.ID)
}

func fivePlans() []backend.Plan {
	plans := make([]backend.Plan, 5)
	for i := range plans {
		plans[i] = backend.Plan{
			ID:           int64(i + 1),
			Name:         "Plan " + strconv.Itoa(i+1),
			DurationDays: 30,
			PriceBase:    backend.Amount(100000 * (i + 1)),
		}
	}
	return plans
}
