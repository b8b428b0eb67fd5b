package state

import tele "gopkg.in/telebot.v4"

// Serialize runs updates of one sender strictly one after another.
// Updates without a sender pass through untouched.
func Serialize(l *Locker) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if l == nil || user == nil {
				return next(c)
			}
			unlock := l.Lock(user.ID)
			defer unlock()
			return next(c)
		}
	}
}
