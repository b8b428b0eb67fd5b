package router

import (
	"time"

	tg "github.com/m3rciful/meowbot/core/telegram"
	tghelpers "github.com/m3rciful/meowbot/core/telegram/helpers"
	"github.com/m3rciful/meowbot/core/telegram/middleware"
	"github.com/m3rciful/meowbot/core/telegram/state"

	tele "gopkg.in/telebot.v4"
)

// TextOptions controls fallback behaviour for text and photo updates.
type TextOptions struct {
	UnknownText  tele.HandlerFunc
	UnknownPhoto tele.HandlerFunc
}

// TextRoutes builds handlers for text and photo routing.
//
// Text is matched against menu labels first, so pressing a menu button
// always wins over whatever conversation step the user is in. Anything else
// goes to the handler bound to the user's current state.
func TextRoutes(m *state.Machine, reg *tg.Registry, opts TextOptions) []tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		text := c.Text()

		if reg != nil {
			if label, ok := reg.LookupLabel(text); ok {
				return handleWithSummary(c, "label."+normalizeHandlerName(label.Name), start, "", "", func() error {
					return label.Handler(c)
				})
			}
		}

		if user := c.Sender(); user != nil {
			ctx := tghelpers.BuildContext(c)
			if st, h, ok := m.Lookup(ctx, state.KindText, user.ID); ok {
				return handleWithSummary(c, "state."+string(st), start, "", "", func() error {
					return h(c)
				})
			}
		}

		if reg != nil {
			if fb := reg.TextFallback(); fb != nil {
				return handleWithSummary(c, "fallback", start, "", "", func() error {
					return fb(c)
				})
			}
		}

		if opts.UnknownText != nil {
			return handleWithSummary(c, "unknown_text", start, "", "", func() error {
				return opts.UnknownText(c)
			})
		}

		logHandlerSummary(c, "unknown_text", start, "skip", "not_applicable", nil)
		return nil
	}

	photoHandler := func(c tele.Context) error {
		start := time.Now()
		if user := c.Sender(); user != nil {
			ctx := tghelpers.BuildContext(c)
			if st, h, ok := m.Lookup(ctx, state.KindPhoto, user.ID); ok {
				return handleWithSummary(c, "state."+string(st)+".photo", start, "", "", func() error {
					return h(c)
				})
			}
		}
		if opts.UnknownPhoto != nil {
			return handleWithSummary(c, "unexpected_photo", start, "", "", func() error {
				return opts.UnknownPhoto(c)
			})
		}
		logHandlerSummary(c, "unexpected_photo", start, "skip", "not_applicable", nil)
		return nil
	}

	return []tg.Route{
		{
			Endpoint: tele.OnText,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
		},
		{
			Endpoint: tele.OnPhoto,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(photoHandler)),
		},
	}
}
