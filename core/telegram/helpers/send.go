package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/meowbot/core/logger"
	"github.com/m3rciful/meowbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

const answeredKey = "cb_answered"

var globalDispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher wires the asynchronous sender used by helper functions.
func SetDispatcher(d *sender.Dispatcher) {
	globalDispatcher.Store(d)
}

func currentDispatcher() *sender.Dispatcher {
	return globalDispatcher.Load()
}

func sendAsync(c tele.Context, action, endpoint string, run func() error) error {
	disp := currentDispatcher()
	if disp == nil {
		return run()
	}

	ctx := BuildContext(c)
	if err := disp.Enqueue(ctx, action, endpoint, run); err != nil {
		if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
			logger.Warn(ctx, "tg.sender", "queue.fallback",
				slog.String("action", action),
				slog.String("endpoint", endpoint),
				slog.String("err", err.Error()),
			)
			return run()
		}
		return err
	}
	return nil
}

func options(mode tele.ParseMode, markup *tele.ReplyMarkup) *tele.SendOptions {
	return &tele.SendOptions{ParseMode: mode, ReplyMarkup: markup}
}

// SendText sends raw text (no parse mode) to the current recipient.
func SendText(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	opts := options(tele.ModeDefault, first(markup))
	return sendAsync(c, "send.text", "sendMessage", func() error {
		return c.Send(text, opts)
	})
}

// SendMD sends a message with Markdown parse mode and optional reply markup.
func SendMD(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	opts := options(tele.ModeMarkdown, first(markup))
	return sendAsync(c, "send.md", "sendMessage", func() error {
		return c.Send(text, opts)
	})
}

// EditText replaces the text of the message the callback belongs to.
func EditText(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	opts := options(tele.ModeDefault, first(markup))
	return sendAsync(c, "edit.text", "editMessageText", func() error {
		return c.Edit(text, opts)
	})
}

// EditMD edits a message with Markdown parse mode and optional reply markup.
func EditMD(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	opts := options(tele.ModeMarkdown, first(markup))
	return sendAsync(c, "edit.md", "editMessageText", func() error {
		return c.Edit(text, opts)
	})
}

// Respond answers the current callback query once. Later calls are no-ops.
func Respond(c tele.Context, text string, alert bool) error {
	if c.Callback() == nil || Answered(c) {
		return nil
	}
	c.Set(answeredKey, true)
	if text == "" {
		return c.Respond()
	}
	return c.Respond(&tele.CallbackResponse{Text: text, ShowAlert: alert})
}

// Answered reports whether the current callback was already answered.
func Answered(c tele.Context) bool {
	v, _ := c.Get(answeredKey).(bool)
	return v
}

func first(markup []*tele.ReplyMarkup) *tele.ReplyMarkup {
	if len(markup) > 0 {
		return markup[0]
	}
	return nil
}
