package keyboard

import "testing"

func TestInlineButtonsRowsLayout(t *testing.T) {
	markup := InlineButtonsRows(
		[]InlineBtn{{Text: "Plan A", Unique: "plan", Data: "5"}},
		[]InlineBtn{{Text: "Back", Unique: "back_plans"}, {Text: "Cancel", Unique: "cancel_purchase"}},
	)
	if len(markup.InlineKeyboard) != 2 || len(markup.InlineKeyboard[1]) != 2 {
		t.Fatalf("unexpected layout: %+v", markup.InlineKeyboard)
	}
	btn := markup.InlineKeyboard[0][0]
	if btn.Unique != "plan" || btn.Text != "Plan A" {
		t.Fatalf("unexpected button: %+v", btn)
	}
}

func TestReplyButtons(t *testing.T) {
	markup := ReplyButtons([]string{"a", "b"}, []string{"c"})
	if !markup.ResizeKeyboard {
		t.Fatal("expected resized keyboard")
	}
	if len(markup.ReplyKeyboard) != 2 || markup.ReplyKeyboard[0][1].Text != "b" {
		t.Fatalf("unexpected keyboard: %+v", markup.ReplyKeyboard)
	}
}
