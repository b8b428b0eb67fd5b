package flow

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/m3rciful/meowbot/internal/backend"
	"github.com/m3rciful/meowbot/internal/broadcast"
	"github.com/m3rciful/meowbot/internal/session"
	"github.com/m3rciful/meowbot/internal/view"
)

func TestParseReferral(t *testing.T) {
	cases := map[string]int64{
		"":        0,
		"   ":     0,
		"42":      42,
		" 42 ":    42,
		"-5":      0,
		"0":       0,
		"abc":     0,
		"ref_123": 0,
	}
	for in, want := range cases {
		if got := ParseReferral(in); got != want {
			t.Errorf("ParseReferral(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestStartRegistersOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if err := h.sessions.Begin(ctx, alice.ID, session.SelectingGateway, func(s *session.Scratch) { s.DepositAmount = 5 }); err != nil {
		t.Fatalf("begin: %v", err)
	}

	r := h.flows.Menu.Start(ctx, alice, "")
	if r.Text != view.Welcome || r.Keyboard == nil || !r.Keyboard.Reply {
		t.Fatalf("response = %+v", r)
	}
	if len(h.api.registers) != 1 || h.api.registers[0].ParentID != 0 || h.api.registers[0].TelegramID != alice.ID {
		t.Fatalf("registers = %+v", h.api.registers)
	}
	if !idle(h.state(t, alice)) {
		t.Fatal("session not reset")
	}
}

func TestStartWithReferrer(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.flows.Menu.Start(ctx, alice, "555")
	h.flows.Menu.Start(ctx, User{ID: 2002}, "2002")
	if got := h.api.registers[0].ParentID; got != 555 {
		t.Fatalf("parent = %d", got)
	}
	if got := h.api.registers[1].ParentID; got != 0 {
		t.Fatalf("self referral kept: %d", got)
	}
}

func TestCancelReturnsToMenu(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.flows.Deposit.Start(ctx, alice)

	r := h.flows.Menu.Cancel(ctx, alice)
	if r.Text != view.Cancelled || r.Keyboard == nil {
		t.Fatalf("response = %+v", r)
	}
	if !idle(h.state(t, alice)) {
		t.Fatal("state kept")
	}
}

func TestPanelsCheckRoleEveryTime(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if r := h.flows.Menu.AdminPanel(ctx, alice); r.Text != view.NoAccess {
		t.Fatalf("user got %+v", r)
	}
	h.api.role = backend.RoleAdmin
	if r := h.flows.Menu.AdminPanel(ctx, alice); r.Text != view.AdminPanel {
		t.Fatalf("admin got %+v", r)
	}
	h.api.role = backend.RoleUser
	if r := h.flows.Menu.AdminPanel(ctx, alice); r.Text != view.NoAccess {
		t.Fatalf("demoted admin got %+v", r)
	}
}

func TestLocationChange(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.api.locations = []backend.Location{{Tag: "de"}, {Tag: "fi"}}

	r := h.flows.Location.Start(ctx, alice, 42)
	if _, ok := r.Keyboard.Find(view.ActNewLocation); !ok {
		t.Fatalf("start = %+v", r)
	}
	if st := h.state(t, alice); st.State != session.ChangingLocation || st.Scratch.SubscriptionID != 42 {
		t.Fatalf("session = %+v", st)
	}

	if r := h.flows.Location.Apply(ctx, alice, "us"); r.Notice != view.LocationNotFound {
		t.Fatalf("unknown tag = %+v", r)
	}
	r = h.flows.Location.Apply(ctx, alice, "fi")
	if r.Text != view.LocationChanged(42, "fi") {
		t.Fatalf("apply = %+v", r)
	}
	if len(h.api.moves) != 1 || h.api.moves[0] != "42@fi" {
		t.Fatalf("moves = %v", h.api.moves)
	}
	if !idle(h.state(t, alice)) {
		t.Fatal("state kept")
	}
}

func TestLocationChangeFailureClears(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.api.locations = []backend.Location{{Tag: "de"}}
	h.api.moveErr = &backend.APIError{Status: 500}

	h.flows.Location.Start(ctx, alice, 7)
	if r := h.flows.Location.Apply(ctx, alice, "de"); r.Text != view.LocationChangeFailed {
		t.Fatalf("apply = %+v", r)
	}
	if !idle(h.state(t, alice)) {
		t.Fatal("state kept after failure")
	}
}

func TestLocationChangeNoServers(t *testing.T) {
	h := newHarness(t)
	if r := h.flows.Location.Start(context.Background(), alice, 7); r.Text != view.NoServers {
		t.Fatalf("start = %+v", r)
	}
	if !idle(h.state(t, alice)) {
		t.Fatal("state moved")
	}
}

func TestRenewShortfall(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.api.subs[9] = backend.Subscription{ID: 9, Plan: &backend.Plan{Name: "Gold", PriceBase: 200000}}
	h.api.balance = 50000

	r := h.flows.Services.Renew(ctx, alice, 9)
	if _, ok := r.Keyboard.Find(view.ActDeposit); !ok {
		t.Fatalf("shortfall = %+v", r)
	}
	h.api.balance = 250000
	r = h.flows.Services.Renew(ctx, alice, 9)
	if _, ok := r.Keyboard.Find(view.ActConfirmRenew); !ok {
		t.Fatalf("confirm = %+v", r)
	}
	if r := h.flows.Services.ConfirmRenew(ctx, alice, 9); r.Text != view.RenewDone(9) {
		t.Fatalf("renew = %+v", r)
	}
}

type recordingReporter struct {
	mu       sync.Mutex
	total    int
	progress []broadcast.Progress
	result   broadcast.Result
}

func (r *recordingReporter) Start(_ context.Context, total int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total = total
	return nil
}

func (r *recordingReporter) Progress(_ context.Context, p broadcast.Progress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, p)
	return nil
}

func (r *recordingReporter) Finish(_ context.Context, res broadcast.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.result = res
	return nil
}

func TestBroadcastIgnoresNonAdmins(t *testing.T) {
	h := newHarness(t)
	if r := h.flows.Broadcast.Start(context.Background(), alice); !r.Silent() {
		t.Fatalf("response = %+v", r)
	}
	if !idle(h.state(t, alice)) {
		t.Fatal("state moved")
	}
}

func TestBroadcastFanOut(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.api.role = backend.RoleAdmin
	for i := 1; i <= 120; i++ {
		h.api.users = append(h.api.users, backend.User{ID: int64(i), TelegramID: int64(10000 + i)})
	}
	h.sender.bad[10045] = true

	if r := h.flows.Broadcast.Start(ctx, alice); r.Text != view.BroadcastPrompt {
		t.Fatalf("start = %+v", r)
	}
	rep := &recordingReporter{}
	if r := h.flows.Broadcast.Compose(ctx, alice, "maintenance tonight", rep); !r.Silent() {
		t.Fatalf("compose = %+v", r)
	}
	if rep.total != 120 || rep.result.Sent != 119 || rep.result.Failed != 1 || rep.result.Total != 120 {
		t.Fatalf("reporter = %+v", rep)
	}
	if len(h.sender.sent) != 120 {
		t.Fatalf("sent = %d", len(h.sender.sent))
	}
	if h.api.count("users") != 2 {
		t.Fatalf("pages fetched = %d", h.api.count("users"))
	}
	if !idle(h.state(t, alice)) {
		t.Fatal("state kept")
	}
}

func TestBroadcastNoRecipients(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.api.role = backend.RoleAdmin
	h.flows.Broadcast.Start(ctx, alice)
	if r := h.flows.Broadcast.Compose(ctx, alice, "hello", &recordingReporter{}); r.Text != view.NoRecipients {
		t.Fatalf("compose = %+v", r)
	}
	if !idle(h.state(t, alice)) {
		t.Fatal("state kept")
	}
}

func TestBroadcastCancelCommand(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.api.role = backend.RoleAdmin
	h.api.users = []backend.User{{ID: 1, TelegramID: 1}}
	h.flows.Broadcast.Start(ctx, alice)

	r := h.flows.Broadcast.Compose(ctx, alice, " /cancel ", &recordingReporter{})
	if r.Text != view.BroadcastCancelled {
		t.Fatalf("compose = %+v", r)
	}
	if len(h.sender.sent) != 0 || !idle(h.state(t, alice)) {
		t.Fatal("cancel still broadcast")
	}
}

func TestAdminActionsRequireRole(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if r := h.flows.Admin.Approve(ctx, alice, 1); r.Notice != view.NoAccess {
		t.Fatalf("approve = %+v", r)
	}
	if h.api.count("approve") != 0 {
		t.Fatal("approved without role")
	}
	h.api.role = backend.RoleAdmin
	if r := h.flows.Admin.Approve(ctx, alice, 1); r.Text != view.TxApproved(1) {
		t.Fatalf("approve = %+v", r)
	}
}

func TestReferralNeedsBotName(t *testing.T) {
	h := newHarness(t)
	r := h.flows.Menu.Referral(context.Background(), alice)
	if !r.Markdown || !strings.Contains(r.Text, "meow") {
		t.Fatalf("referral = %+v", r)
	}
}

func idle(s session.Session) bool {
	return s.State == session.Idle && s.Scratch.IsZero()
}
