package state

import "context"

// State identifies a finite-state-machine step used in conversations.
type State string

const (
	// StateIdle indicates there is no active conversation with the user.
	StateIdle State = "idle"
)

// Getter reports the current step of a user conversation.
type Getter interface {
	CurrentState(ctx context.Context, userID int64) State
}
