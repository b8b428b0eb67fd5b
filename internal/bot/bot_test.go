package bot

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/m3rciful/meowbot/internal/broadcast"
	"github.com/m3rciful/meowbot/internal/config"
	"github.com/m3rciful/meowbot/internal/flow"
	"github.com/m3rciful/meowbot/internal/view"

	tele "gopkg.in/telebot.v4"
)

const testToken = "123:abc"

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Telegram.Token = testToken
	if err := config.Normalize(cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	return cfg
}

// fakeTelegram records which Bot API methods were called.
type fakeTelegram struct {
	mu      sync.Mutex
	methods []string
}

func (f *fakeTelegram) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	f.mu.Lock()
	f.methods = append(f.methods, method)
	f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	if method == "answerCallbackQuery" {
		_, _ = io.WriteString(w, `{"ok":true,"result":true}`)
		return
	}
	_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":5,"date":1,"chat":{"id":42,"type":"private"}}}`)
}

func (f *fakeTelegram) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.methods...)
}

func fakeBot(t *testing.T) (*tele.Bot, *fakeTelegram) {
	t.Helper()
	api := &fakeTelegram{}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	b, err := tele.NewBot(tele.Settings{Token: testToken, URL: srv.URL, Offline: true})
	if err != nil {
		t.Fatalf("bot: %v", err)
	}
	return b, api
}

func callbackContext(b *tele.Bot) tele.Context {
	user := &tele.User{ID: 42, Username: "alice"}
	chat := &tele.Chat{ID: 42, Type: tele.ChatPrivate}
	return tele.NewContext(b, tele.Update{ID: 7, Callback: &tele.Callback{
		ID:      "cb1",
		Sender:  user,
		Message: &tele.Message{ID: 5, Chat: chat},
		Unique:  view.ActPlan,
		Data:    "3",
	}})
}

func TestMarkupInline(t *testing.T) {
	mk := markup(view.ServiceActions(9))
	if len(mk.InlineKeyboard) != 3 || len(mk.InlineKeyboard[1]) != 2 {
		t.Fatalf("layout = %+v", mk.InlineKeyboard)
	}
	b := mk.InlineKeyboard[0][0]
	if b.Unique != view.ActGetLink || b.Data != "9" {
		t.Fatalf("button = %+v", b)
	}
	if markup(nil) != nil || markup(&view.Keyboard{}) != nil {
		t.Fatal("empty keyboard rendered")
	}
}

func TestMarkupReply(t *testing.T) {
	mk := markup(view.MainMenu())
	if !mk.ResizeKeyboard || len(mk.ReplyKeyboard) != 3 {
		t.Fatalf("markup = %+v", mk)
	}
	if mk.ReplyKeyboard[0][0].Text != view.LabelBuy {
		t.Fatalf("first key = %q", mk.ReplyKeyboard[0][0].Text)
	}
}

func TestRender(t *testing.T) {
	cases := []struct {
		name string
		resp flow.Response
		want []string
	}{
		{"silent", flow.Response{}, nil},
		{"edit", flow.Response{Text: "x", Edit: true}, []string{"editMessageText"}},
		{"edit with reply keyboard sends", flow.Response{Text: "x", Edit: true, Keyboard: view.MainMenu()}, []string{"sendMessage"}},
		{"send", flow.Response{Text: "x", Markdown: true}, []string{"sendMessage"}},
		{"notice only", flow.Response{Notice: "n"}, []string{"answerCallbackQuery"}},
		{"notice and edit", flow.Response{Notice: "n", Text: "x", Edit: true}, []string{"answerCallbackQuery", "editMessageText"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, api := fakeBot(t)
			if err := render(callbackContext(b), tc.resp); err != nil {
				t.Fatalf("render: %v", err)
			}
			got := api.calls()
			if len(got) != len(tc.want) {
				t.Fatalf("calls = %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("calls = %v, want %v", got, tc.want)
				}
			}
		})
	}
}

func TestRegisterWiresEveryAction(t *testing.T) {
	app, err := New(testConfig(t), nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	opts, err := app.TelegramRunOptions()
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	reg := opts.Registry
	actions := []string{
		view.ActPlan, view.ActLocation, view.ActBackPlans, view.ActConfirmPurchase, view.ActCancelPurchase,
		view.ActService, view.ActGetLink, view.ActRenew, view.ActConfirmRenew, view.ActChangeLocation,
		view.ActNewLocation, view.ActBackServices, view.ActDeposit, view.ActGateway, view.ActCancelDeposit,
		view.ActTxHistory, view.ActReferral, view.ActTutorial, view.ActAdminTx, view.ActApproveTx,
		view.ActRejectTx, view.ActBackPending,
	}
	for _, act := range actions {
		if _, ok := reg.GetCallback(act); !ok {
			t.Errorf("callback %q not registered", act)
		}
	}
	for _, kb := range []*view.Keyboard{view.MainMenu(), view.AdminMenu(), view.ResellerMenu()} {
		for _, label := range kb.Labels() {
			if _, ok := reg.LookupLabel(label); !ok {
				t.Errorf("label %q not registered", label)
			}
		}
	}
	for _, cmd := range []string{"/start", "/admin", "/reseller", "/cancel"} {
		if _, _, ok := reg.LookupCommand(cmd); !ok {
			t.Errorf("command %s not registered", cmd)
		}
	}
	if len(opts.Routes) < 4 || opts.OnStart == nil || opts.OnStop == nil {
		t.Fatalf("options = %+v", opts)
	}
}

func TestNewChecksStorageHandles(t *testing.T) {
	cfg := testConfig(t)
	cfg.Session.Backend = config.StoreRedis
	if _, err := New(cfg, nil); err == nil {
		t.Fatal("redis session backend accepted without a client")
	}
	cfg = testConfig(t)
	cfg.Tokens.Store = config.StoreRedis
	if _, err := New(cfg, nil); err == nil {
		t.Fatal("redis token store accepted without a client")
	}
}

func TestAttachCapturesUsername(t *testing.T) {
	app, err := New(testConfig(t), nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	b, _ := fakeBot(t)
	b.Me = &tele.User{Username: "meow_bot"}
	app.attach(b)
	if app.username() != "meow_bot" {
		t.Fatalf("username = %q", app.username())
	}
	if app.out.bot.Load() != b {
		t.Fatal("sender not attached")
	}
}

func TestChatSenderBeforeStart(t *testing.T) {
	var s chatSender
	if err := s.Send(context.Background(), 1, "hi"); !errors.Is(err, errNotStarted) {
		t.Fatalf("err = %v", err)
	}
}

type fakeMessenger struct {
	sendErr error
	log     []string
}

func (m *fakeMessenger) Send(_ tele.Recipient, what interface{}, _ ...interface{}) (*tele.Message, error) {
	m.log = append(m.log, "send:"+what.(string))
	if m.sendErr != nil {
		return nil, m.sendErr
	}
	return &tele.Message{ID: 11, Chat: &tele.Chat{ID: 42}}, nil
}

func (m *fakeMessenger) Edit(_ tele.Editable, what interface{}, _ ...interface{}) (*tele.Message, error) {
	m.log = append(m.log, "edit:"+what.(string))
	return nil, nil
}

func TestProgressReporterEditsOneMessage(t *testing.T) {
	ctx := context.Background()
	m := &fakeMessenger{}
	r := newProgressReporter(m, tele.ChatID(42))
	_ = r.Start(ctx, 120)
	_ = r.Progress(ctx, broadcast.Progress{Sent: 50, Total: 120})
	_ = r.Finish(ctx, broadcast.Result{Sent: 119, Failed: 1, Total: 120})

	want := []string{
		"send:" + view.BroadcastStarted(120),
		"edit:" + view.BroadcastProgress(broadcast.Progress{Sent: 50, Total: 120}),
		"edit:" + view.BroadcastDone(broadcast.Result{Sent: 119, Failed: 1, Total: 120}),
	}
	if strings.Join(m.log, "\n") != strings.Join(want, "\n") {
		t.Fatalf("log = %q", m.log)
	}
}

func TestProgressReporterFallsBackToSend(t *testing.T) {
	ctx := context.Background()
	m := &fakeMessenger{sendErr: errors.New("flood")}
	r := newProgressReporter(m, tele.ChatID(42))
	if err := r.Start(ctx, 3); err == nil {
		t.Fatal("start error swallowed")
	}
	m.sendErr = nil
	_ = r.Finish(ctx, broadcast.Result{Sent: 3, Total: 3})
	if len(m.log) != 2 || !strings.HasPrefix(m.log[1], "send:") {
		t.Fatalf("log = %q", m.log)
	}
}

type fakeFiles []byte

func (f fakeFiles) File(*tele.File) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f)), nil
}

func TestDownloadPhoto(t *testing.T) {
	msg := &tele.Message{Photo: &tele.Photo{File: tele.File{FileID: "f"}}}
	data, err := downloadPhoto(fakeFiles("jpeg"), msg)
	if err != nil || string(data) != "jpeg" {
		t.Fatalf("download = %q, %v", data, err)
	}
	if _, err := downloadPhoto(fakeFiles("x"), &tele.Message{}); err == nil {
		t.Fatal("missing photo accepted")
	}
	if _, err := downloadPhoto(make(fakeFiles, maxProofBytes+1), msg); err == nil {
		t.Fatal("oversized photo accepted")
	}
}
