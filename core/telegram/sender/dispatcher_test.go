package sender

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/m3rciful/meowbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

func TestDispatcherKeepsPerChatOrder(t *testing.T) {
	d := NewDispatcher(Options{Workers: 4, QueueSize: 128})
	ctx := logger.WithUpdateMeta(context.Background(), 1, 10, 42)

	var (
		mu  sync.Mutex
		got []int
	)
	for i := 0; i < 50; i++ {
		i := i
		if err := d.Enqueue(ctx, "send.text", "sendMessage", func() error {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			return nil
		}); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	d.Close()

	if len(got) != 50 {
		t.Fatalf("expected 50 jobs, got %d", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("job %d ran at position %d", v, i)
		}
	}
}

func TestDispatcherRetriesTransientErrors(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 2, RetryBackoff: time.Millisecond})
	calls := 0
	done := make(chan struct{})
	err := d.Enqueue(context.Background(), "send.text", "sendMessage", func() error {
		calls++
		if calls < 3 {
			return &net.OpError{Op: "dial", Err: errors.New("refused")}
		}
		close(done)
		return nil
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not succeed")
	}
	d.Close()
	if d.ErrorCount() != 0 {
		t.Fatalf("unexpected errors: %d", d.ErrorCount())
	}
}

func TestDispatcherCountsPermanentFailures(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 3})
	calls := 0
	_ = d.Enqueue(context.Background(), "send.text", "sendMessage", func() error {
		calls++
		return tele.ErrBlockedByUser
	})
	d.Close()
	if calls != 1 {
		t.Fatalf("permanent errors must not be retried, got %d calls", calls)
	}
	if d.ErrorCount() != 1 {
		t.Fatalf("expected 1 failure, got %d", d.ErrorCount())
	}
}

func TestEnqueueAfterClose(t *testing.T) {
	d := NewDispatcher(Options{})
	d.Close()
	if err := d.Enqueue(context.Background(), "a", "b", func() error { return nil }); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("expected ErrQueueClosed, got %v", err)
	}
}

func TestClassifyAndSanitize(t *testing.T) {
	if kind := ClassifyError(tele.ErrBlockedByUser); kind != "blocked" {
		t.Fatalf("blocked kind = %q", kind)
	}
	if kind := ClassifyError(&net.OpError{Op: "dial", Err: errors.New("x")}); kind != "dial" {
		t.Fatalf("dial kind = %q", kind)
	}
	if kind := ClassifyError(context.DeadlineExceeded); kind != "timeout" {
		t.Fatalf("timeout kind = %q", kind)
	}
	msg := SanitizeError(errors.New(`Post "https://api.telegram.org/bot123456:AAbb-CC_dd/sendMessage": EOF`))
	if msg != `Post "https://api.telegram.org/bot<redacted>/sendMessage": EOF` {
		t.Fatalf("sanitized = %q", msg)
	}
}
