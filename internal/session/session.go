// Package session keeps the per-user conversation state: one typed state
// plus the scratch fields the active flow needs. Returning to Idle always
// empties the scratch.
package session

import (
	"time"

	"github.com/m3rciful/meowbot/core/telegram/state"
	"github.com/m3rciful/meowbot/internal/backend"
)

// Flow steps.
const (
	Idle                  = state.StateIdle
	SelectingPlan         state.State = "selecting_plan"
	SelectingLocation     state.State = "selecting_location"
	ConfirmingPurchase    state.State = "confirming_purchase"
	EnteringDepositAmount state.State = "entering_deposit_amount"
	SelectingGateway      state.State = "selecting_gateway"
	UploadingProof        state.State = "uploading_proof"
	ComposingBroadcast    state.State = "composing_broadcast"
	ChangingLocation      state.State = "changing_location"
)

// Scratch holds ephemeral flow data.
type Scratch struct {
	// Plans is the catalog snapshot taken when the purchase flow started.
	Plans          []backend.Plan     `json:"plans,omitempty"`
	Locations      []backend.Location `json:"locations,omitempty"`
	SelectedPlanID int64              `json:"selected_plan_id,omitempty"`
	LocationTag    string             `json:"location_tag,omitempty"`
	DepositAmount  int64              `json:"deposit_amount,omitempty"`
	Gateway        string             `json:"gateway,omitempty"`
	SubscriptionID int64              `json:"subscription_id,omitempty"`
}

// IsZero reports whether no field is set.
func (s Scratch) IsZero() bool {
	return len(s.Plans) == 0 && len(s.Locations) == 0 &&
		s.SelectedPlanID == 0 && s.LocationTag == "" &&
		s.DepositAmount == 0 && s.Gateway == "" && s.SubscriptionID == 0
}

// Plan finds id in the catalog snapshot.
func (s Scratch) Plan(id int64) (backend.Plan, bool) {
	for _, p := range s.Plans {
		if p.ID == id {
			return p, true
		}
	}
	return backend.Plan{}, false
}

// HasLocation reports whether tag was offered.
func (s Scratch) HasLocation(tag string) bool {
	for _, l := range s.Locations {
		if l.Tag == tag {
			return true
		}
	}
	return false
}

// Session is one user's conversation state.
type Session struct {
	UserID    int64       `json:"user_id"`
	State     state.State `json:"state"`
	Scratch   Scratch     `json:"scratch"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func idle(userID int64) Session {
	return Session{UserID: userID, State: Idle}
}

// empty reports whether the session carries nothing worth storing.
func (s Session) empty() bool {
	return (s.State == Idle || s.State == "") && s.Scratch.IsZero()
}
