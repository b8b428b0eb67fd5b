package bot

import (
	tghelpers "github.com/m3rciful/meowbot/core/telegram/helpers"
	"github.com/m3rciful/meowbot/core/telegram/keyboard"
	"github.com/m3rciful/meowbot/internal/flow"
	"github.com/m3rciful/meowbot/internal/view"

	tele "gopkg.in/telebot.v4"
)

// markup converts a view keyboard. Inline buttons carry the action as the
// callback unique and the payload as its data.
func markup(kb *view.Keyboard) *tele.ReplyMarkup {
	if kb == nil || len(kb.Rows) == 0 {
		return nil
	}
	if kb.Reply {
		rows := make([][]string, 0, len(kb.Rows))
		for _, r := range kb.Rows {
			labels := make([]string, 0, len(r))
			for _, b := range r {
				labels = append(labels, b.Text)
			}
			rows = append(rows, labels)
		}
		return keyboard.ReplyButtons(rows...)
	}
	rows := make([][]keyboard.InlineBtn, 0, len(kb.Rows))
	for _, r := range kb.Rows {
		btns := make([]keyboard.InlineBtn, 0, len(r))
		for _, b := range r {
			btns = append(btns, keyboard.InlineBtn{Text: b.Text, Unique: b.Action, Data: b.Payload})
		}
		rows = append(rows, btns)
	}
	return keyboard.InlineButtonsRows(rows...)
}

// render shows r. Edits apply only to button presses and never carry a
// reply keyboard, which Telegram cannot attach to an edited message.
func render(c tele.Context, r flow.Response) error {
	if r.Notice != "" {
		_ = tghelpers.Respond(c, r.Notice, r.Alert)
	}
	if r.Text == "" {
		return nil
	}
	mk := markup(r.Keyboard)
	if r.Edit && c.Callback() != nil && (r.Keyboard == nil || !r.Keyboard.Reply) {
		if r.Markdown {
			return tghelpers.EditMD(c, r.Text, mk)
		}
		return tghelpers.EditText(c, r.Text, mk)
	}
	if r.Markdown {
		return tghelpers.SendMD(c, r.Text, mk)
	}
	return tghelpers.SendText(c, r.Text, mk)
}
