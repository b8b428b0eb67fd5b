package state

import (
	"context"
	"sync"

	tele "gopkg.in/telebot.v4"
)

// Kind separates handlers by the input they accept in a given state.
type Kind int

const (
	// KindText handles plain text messages.
	KindText Kind = iota
	// KindPhoto handles photo messages.
	KindPhoto
)

type handlerKey struct {
	kind  Kind
	state State
}

// Machine maps (kind, state) pairs to handlers.
type Machine struct {
	getter Getter

	mu       sync.RWMutex
	handlers map[handlerKey]tele.HandlerFunc
}

// NewMachine builds a Machine reading states from g.
func NewMachine(g Getter) *Machine {
	return &Machine{getter: g, handlers: make(map[handlerKey]tele.HandlerFunc)}
}

// Register associates a state with its handler for the given input kind.
func (m *Machine) Register(kind Kind, st State, h tele.HandlerFunc) {
	if h == nil || st == StateIdle {
		return
	}
	m.mu.Lock()
	m.handlers[handlerKey{kind, st}] = h
	m.mu.Unlock()
}

// Lookup returns the user's current state and the handler bound to it.
// ok is false when the user is idle or nothing accepts this kind of input.
func (m *Machine) Lookup(ctx context.Context, kind Kind, userID int64) (State, tele.HandlerFunc, bool) {
	if m == nil || m.getter == nil {
		return StateIdle, nil, false
	}
	st := m.getter.CurrentState(ctx, userID)
	if st == StateIdle || st == "" {
		return StateIdle, nil, false
	}
	m.mu.RLock()
	h, ok := m.handlers[handlerKey{kind, st}]
	m.mu.RUnlock()
	return st, h, ok
}
