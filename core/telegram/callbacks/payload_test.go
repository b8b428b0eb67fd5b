package callbacks

import (
	"testing"

	tele "gopkg.in/telebot.v4"
)

func TestParse(t *testing.T) {
	cases := []struct {
		cb          *tele.Callback
		key, params string
	}{
		{nil, "", ""},
		{&tele.Callback{Data: "\fplan|7"}, "plan", "7"},
		{&tele.Callback{Data: "\fback_plans"}, "back_plans", ""},
		{&tele.Callback{Data: "\ftutorial|ios|extra"}, "tutorial", "ios|extra"},
		{&tele.Callback{Unique: "service", Data: "12"}, "service", "12"},
	}
	for _, tc := range cases {
		key, payload := Parse(tc.cb)
		if key != tc.key || payload != tc.params {
			t.Errorf("Parse(%+v) = (%q, %q), want (%q, %q)", tc.cb, key, payload, tc.key, tc.params)
		}
	}
}
