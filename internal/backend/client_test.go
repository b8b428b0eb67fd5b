package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Options{BaseURL: srv.URL + "/", Timeout: 2 * time.Second, HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestRegisterOmitsEmptyFields(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/auth/register" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"token":"tok-1","user":{"id":3}}`)
	})

	tok, err := c.Register(context.Background(), RegisterRequest{TelegramID: 42})
	if err != nil || tok != "tok-1" {
		t.Fatalf("register = %q, %v", tok, err)
	}
	if len(body) != 1 || body["telegram_id"] != float64(42) {
		t.Fatalf("body = %v", body)
	}
}

func TestErrorTaxonomy(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/me":
			w.WriteHeader(http.StatusUnauthorized)
		case "/api/subscriptions":
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = io.WriteString(w, `{"message":"موجودی کافی نیست"}`)
		case "/api/resellers/9/users":
			w.WriteHeader(http.StatusForbidden)
			_, _ = io.WriteString(w, `{"message":"You may only access your own reseller profile"}`)
		case "/api/plans":
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, `<html>oops</html>`)
		}
	})
	ctx := context.Background()

	if _, err := c.Me(ctx, "bad"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("me err = %v", err)
	}

	_, err := c.CreateSubscription(ctx, "t", 1, "de")
	msg, ok := RejectionMessage(err)
	if !ok || msg != "موجودی کافی نیست" {
		t.Fatalf("rejection = %q %v (%v)", msg, ok, err)
	}
	var ae *APIError
	if !errors.As(err, &ae) || ae.Status != 422 || ae.Code() != "backend_422" {
		t.Fatalf("api error = %#v", err)
	}

	_, err = c.ResellerUsers(ctx, "t", 9)
	if errors.Is(err, ErrUnauthorized) {
		t.Fatalf("403 mapped to unauthorized: %v", err)
	}
	if msg, ok := RejectionMessage(err); !ok || msg != "You may only access your own reseller profile" {
		t.Fatalf("403 rejection = %q %v (%v)", msg, ok, err)
	}

	_, err = c.Plans(ctx, "")
	if _, ok := RejectionMessage(err); ok {
		t.Fatal("html body must not yield a message")
	}
	if IsTransport(err) {
		t.Fatal("status error reported as transport")
	}
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := New(Options{BaseURL: url, Timeout: time.Second, HTTPClient: &http.Client{}})
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.Plans(context.Background(), "")
	if !IsTransport(err) {
		t.Fatalf("err = %v, want transport", err)
	}
}

func TestTimeoutIsTransport(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() { close(release); srv.Close() })

	c, err := New(Options{BaseURL: srv.URL, Timeout: 50 * time.Millisecond, HTTPClient: srv.Client()})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Plans(context.Background(), ""); !IsTransport(err) {
		t.Fatalf("err = %v, want transport", err)
	}
}

func TestDecodeShapes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("auth header = %q", got)
		}
		switch r.URL.Path {
		case "/api/subscriptions":
			_, _ = io.WriteString(w, `{"data":[{"id":1,"status":"active","server":{"name":"DE-1"}},{"id":2,"status":"expired"}]}`)
		case "/api/plans":
			_, _ = io.WriteString(w, `[{"id":5,"name":"Gold","duration_days":30,"traffic_bytes":0,"price_base":"150000.00"}]`)
		case "/api/auth/me":
			_, _ = io.WriteString(w, `{"id":9,"role":"admin","wallet_balance":"2500.5"}`)
		case "/api/servers/available":
			_, _ = io.WriteString(w, `{"locations":[{"tag":"de","emoji":"🇩🇪"}]}`)
		}
	})
	ctx := context.Background()

	subs, err := c.Subscriptions(ctx, "tok")
	if err != nil || len(subs) != 2 || !subs[0].Active() || subs[0].Server.Name != "DE-1" || subs[1].Server != nil {
		t.Fatalf("subs = %+v, %v", subs, err)
	}
	plans, err := c.Plans(ctx, "tok")
	if err != nil || len(plans) != 1 || plans[0].PriceBase.Int64() != 150000 {
		t.Fatalf("plans = %+v, %v", plans, err)
	}
	me, err := c.Me(ctx, "tok")
	if err != nil || !me.IsAdmin() || me.ID != 9 || me.WalletBalance != 2500.5 {
		t.Fatalf("me = %+v, %v", me, err)
	}
	locs, err := c.AvailableServers(ctx, "tok")
	if err != nil || len(locs) != 1 || locs[0].Tag != "de" {
		t.Fatalf("locations = %+v, %v", locs, err)
	}
}

func TestUsersQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("has_telegram") != "1" || q.Get("per_page") != "100" || q.Get("page") != "3" || q.Get("role") != "reseller" {
			t.Errorf("query = %v", q)
		}
		_, _ = io.WriteString(w, `{"data":[{"id":1,"telegram_id":100}],"last_page":4}`)
	})
	page, err := c.Users(context.Background(), "tok", UserQuery{Page: 3, Role: "reseller"})
	if err != nil || page.LastPage != 4 || len(page.Data) != 1 || page.Data[0].TelegramID != 100 {
		t.Fatalf("page = %+v, %v", page, err)
	}
}

func TestDepositWithProofMultipart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			t.Errorf("content type = %q", r.Header.Get("Content-Type"))
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse: %v", err)
			return
		}
		if r.FormValue("amount") != "500000" || r.FormValue("gateway") != "card_to_card" {
			t.Errorf("form = %v", r.MultipartForm.Value)
		}
		f, hdr, err := r.FormFile("proof_image")
		if err != nil {
			t.Errorf("file: %v", err)
			return
		}
		data, _ := io.ReadAll(f)
		if hdr.Filename != "proof.jpg" || string(data) != "jpeg-bytes" || hdr.Header.Get("Content-Type") != "image/jpeg" {
			t.Errorf("file = %q %q", hdr.Filename, data)
		}
		_, _ = io.WriteString(w, `{"transaction":{"id":77,"status":"pending","amount":500000}}`)
	})
	res, err := c.DepositWithProof(context.Background(), "tok", 500000, []byte("jpeg-bytes"))
	if err != nil || res.Transaction == nil || res.Transaction.ID != 77 {
		t.Fatalf("deposit = %+v, %v", res, err)
	}
}

func TestAmountDecoding(t *testing.T) {
	cases := map[string]float64{`12`: 12, `"12.50"`: 12.5, `null`: 0, `""`: 0}
	for in, want := range cases {
		var a Amount
		if err := json.Unmarshal([]byte(in), &a); err != nil || float64(a) != want {
			t.Errorf("%s -> %v, %v", in, a, err)
		}
	}
	var a Amount
	if err := json.Unmarshal([]byte(`"abc"`), &a); err == nil {
		t.Error("expected error for non-numeric string")
	}
}

func TestExpiresAt(t *testing.T) {
	s := Subscription{ExpireDate: "2026-11-01T10:00:00.000000Z"}
	ts, ok := s.ExpiresAt()
	if !ok || ts.Year() != 2026 || ts.Month() != time.November {
		t.Fatalf("expires = %v %v", ts, ok)
	}
	if _, ok := (Subscription{}).ExpiresAt(); ok {
		t.Fatal("empty date parsed")
	}
}

func TestNewRejectsRelativeURL(t *testing.T) {
	if _, err := New(Options{BaseURL: "laravel"}); err == nil {
		t.Fatal("expected error")
	}
}
