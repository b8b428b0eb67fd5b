package flow

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/m3rciful/meowbot/internal/backend"
	"github.com/m3rciful/meowbot/internal/session"
	"github.com/m3rciful/meowbot/internal/view"
)

func startPurchase(t *testing.T, h *harness) {
	t.Helper()
	h.api.plans = fivePlans()
	h.api.locations = []backend.Location{{Tag: "de", Emoji: "🇩🇪"}, {Tag: "nl", Emoji: "🇳🇱"}}
	r := h.flows.Purchase.Start(context.Background(), alice)
	if r.Text != view.PlanPrompt || r.Keyboard == nil {
		t.Fatalf("start = %+v", r)
	}
}

func TestPurchaseUnknownPlanMakesNoMutation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	startPurchase(t, h)

	r := h.flows.Purchase.SelectPlan(ctx, alice, 7)
	if r.Notice != view.PlanNotFound || r.Text != "" {
		t.Fatalf("select 7 = %+v", r)
	}
	if got := h.state(t, alice).State; got != session.SelectingPlan {
		t.Fatalf("state = %q, want selecting_plan", got)
	}
	for _, name := range []string{"create", "servers", "deposit", "change_location", "renew"} {
		if n := h.api.count(name); n != 0 {
			t.Errorf("%s calls = %d", name, n)
		}
	}
}

func TestPurchaseConfirmUsesSnapshotPrice(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	startPurchase(t, h)

	r := h.flows.Purchase.SelectPlan(ctx, alice, 3)
	if !r.Edit || !strings.Contains(r.Text, "300,000") {
		t.Fatalf("select 3 = %+v", r)
	}
	// The catalog changes behind the user's back; the snapshot must win.
	h.api.plans[2].PriceBase = 999999

	r = h.flows.Purchase.SelectLocation(ctx, alice, "de")
	if !strings.Contains(r.Text, "300,000") || strings.Contains(r.Text, "999,999") {
		t.Fatalf("summary = %q", r.Text)
	}
	if st := h.state(t, alice); st.State != session.ConfirmingPurchase || st.Scratch.LocationTag != "de" {
		t.Fatalf("session = %+v", st)
	}

	r = h.flows.Purchase.Confirm(ctx, alice)
	if r.Notice != view.PurchaseNotice || !strings.Contains(r.Text, "#501") {
		t.Fatalf("confirm = %+v", r)
	}
	if len(h.api.created) != 1 || h.api.created[0] != "3@de" {
		t.Fatalf("created = %v", h.api.created)
	}
	if h.api.count("plans") != 1 {
		t.Fatalf("catalog fetched %d times", h.api.count("plans"))
	}
	st := h.state(t, alice)
	if st.State != session.Idle || !st.Scratch.IsZero() {
		t.Fatalf("session after confirm = %+v", st)
	}
}

func TestPurchaseUnknownLocation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	startPurchase(t, h)
	h.flows.Purchase.SelectPlan(ctx, alice, 1)

	r := h.flows.Purchase.SelectLocation(ctx, alice, "mars")
	if r.Notice != view.LocationNotFound {
		t.Fatalf("response = %+v", r)
	}
	if got := h.state(t, alice).State; got != session.SelectingLocation {
		t.Fatalf("state = %q", got)
	}
}

func TestPurchaseBackToPlansKeepsSnapshot(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	startPurchase(t, h)
	h.flows.Purchase.SelectPlan(ctx, alice, 2)

	r := h.flows.Purchase.BackToPlans(ctx, alice)
	if r.Text != view.PlanPrompt || len(r.Keyboard.Rows) != 6 {
		t.Fatalf("back = %+v", r)
	}
	st := h.state(t, alice)
	if st.State != session.SelectingPlan || st.Scratch.SelectedPlanID != 0 || len(st.Scratch.Plans) != 5 {
		t.Fatalf("session = %+v", st)
	}
	if h.api.count("plans") != 1 {
		t.Fatal("catalog re-fetched")
	}
}

func TestPurchaseConfirmFailures(t *testing.T) {
	cases := []struct {
		name  string
		setup func(*fakeAPI)
		want  string
	}{
		{
			name:  "business rejection relayed verbatim",
			setup: func(f *fakeAPI) { f.createErr = &backend.APIError{Status: 422, Message: "Insufficient balance"} },
			want:  "Insufficient balance",
		},
		{
			name:  "rejection without message",
			setup: func(f *fakeAPI) { f.createErr = &backend.APIError{Status: 500} },
			want:  view.PurchaseFailed,
		},
		{
			name:  "transport",
			setup: func(f *fakeAPI) { f.createErr = &backend.TransportError{Endpoint: "subscriptions", Err: fmt.Errorf("i/o timeout")} },
			want:  view.RetryLater,
		},
		{
			name:  "auth unavailable",
			setup: func(f *fakeAPI) { f.rejectAll = true },
			want:  view.AuthUnavailable,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			ctx := context.Background()
			startPurchase(t, h)
			h.flows.Purchase.SelectPlan(ctx, alice, 1)
			h.flows.Purchase.SelectLocation(ctx, alice, "nl")
			tc.setup(h.api)

			r := h.flows.Purchase.Confirm(ctx, alice)
			if r.Text != tc.want {
				t.Fatalf("text = %q, want %q", r.Text, tc.want)
			}
			if got := h.state(t, alice).State; got != session.Idle {
				t.Fatalf("state = %q", got)
			}
		})
	}
}

func TestPurchaseAuthRetriesOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	startPurchase(t, h)
	h.flows.Purchase.SelectPlan(ctx, alice, 1)
	h.flows.Purchase.SelectLocation(ctx, alice, "nl")
	h.api.rejectAll = true

	h.flows.Purchase.Confirm(ctx, alice)
	// Initial token, then exactly one forced refresh.
	if got := h.api.count("register"); got != 2 {
		t.Fatalf("register calls = %d, want 2", got)
	}
	if got := h.api.count("create"); got != 2 {
		t.Fatalf("create calls = %d, want 2", got)
	}
}

func TestPurchaseMissingScratchAborts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if err := h.sessions.SetState(ctx, alice.ID, session.ConfirmingPurchase, nil); err != nil {
		t.Fatalf("set state: %v", err)
	}
	r := h.flows.Purchase.Confirm(ctx, alice)
	if r.Text != view.SessionLost {
		t.Fatalf("response = %+v", r)
	}
	if h.state(t, alice).State != session.Idle || h.api.count("create") != 0 {
		t.Fatal("flow not aborted cleanly")
	}
}

func TestPurchaseEmptyCatalog(t *testing.T) {
	h := newHarness(t)
	r := h.flows.Purchase.Start(context.Background(), alice)
	if r.Text != view.NoPlans {
		t.Fatalf("response = %+v", r)
	}
	if h.state(t, alice).State != session.Idle {
		t.Fatal("state changed on empty catalog")
	}
}

func TestPurchaseStepsOutOfOrder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for name, r := range map[string]Response{
		"plan":     h.flows.Purchase.SelectPlan(ctx, alice, 1),
		"location": h.flows.Purchase.SelectLocation(ctx, alice, "de"),
		"confirm":  h.flows.Purchase.Confirm(ctx, alice),
		"cancel":   h.flows.Purchase.Cancel(ctx, alice),
	} {
		if r.Notice != view.NotApplicable || r.Text != "" {
			t.Errorf("%s in idle = %+v", name, r)
		}
	}
}

func TestSelectPlanWithoutSnapshotAborts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.api.locations = []backend.Location{{Tag: "de"}}
	if err := h.sessions.SetState(ctx, alice.ID, session.SelectingPlan, nil); err != nil {
		t.Fatal(err)
	}

	r := h.flows.Purchase.SelectPlan(ctx, alice, 1)
	if r.Text != view.SessionLost {
		t.Fatalf("response = %+v", r)
	}
	if st := h.state(t, alice); !idle(st) {
		t.Fatalf("session = %+v", st)
	}
	if n := h.api.count("servers"); n != 0 {
		t.Fatalf("servers fetched %d times", n)
	}
}
