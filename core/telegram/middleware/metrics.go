package middleware

import (
	"sync/atomic"

	tele "gopkg.in/telebot.v4"
)

const countersKey = "send_counters"

// Counters describes what a handler sent back for one update.
type Counters struct {
	Messages int
	Edits    int
	Keyboard bool
}

type counters struct {
	messages atomic.Int32
	edits    atomic.Int32
	keyboard atomic.Bool
}

func (n *counters) add(edit bool, opts []interface{}) {
	if edit {
		n.edits.Add(1)
	} else {
		n.messages.Add(1)
	}
	if withMarkup(opts) {
		n.keyboard.Store(true)
	}
}

// countingContext counts outbound sends and edits made through the context.
type countingContext struct {
	tele.Context
	n *counters
}

func withMarkup(opts []interface{}) bool {
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.SendOptions:
			if v != nil && v.ReplyMarkup != nil {
				return true
			}
		case *tele.ReplyMarkup:
			if v != nil {
				return true
			}
		}
	}
	return false
}

func (c countingContext) Send(what interface{}, opts ...interface{}) error {
	err := c.Context.Send(what, opts...)
	if err == nil {
		c.n.add(false, opts)
	}
	return err
}

func (c countingContext) Reply(what interface{}, opts ...interface{}) error {
	err := c.Context.Reply(what, opts...)
	if err == nil {
		c.n.add(false, opts)
	}
	return err
}

func (c countingContext) Edit(what interface{}, opts ...interface{}) error {
	err := c.Context.Edit(what, opts...)
	if err == nil {
		c.n.add(true, opts)
	}
	return err
}

// MessageMetricsMiddleware attaches per-update send counters to the context.
// Sends queued on the async dispatcher are counted when they complete, which
// may be after the handler summary has been logged.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if _, wrapped := c.(countingContext); wrapped {
			return next(c)
		}
		n := &counters{}
		c.Set(countersKey, n)
		return next(countingContext{Context: c, n: n})
	}
}

// GetCounters returns the counters of the update, zero when uninstrumented.
func GetCounters(c tele.Context) Counters {
	if n, ok := c.Get(countersKey).(*counters); ok && n != nil {
		return Counters{
			Messages: int(n.messages.Load()),
			Edits:    int(n.edits.Load()),
			Keyboard: n.keyboard.Load(),
		}
	}
	return Counters{}
}
