package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/m3rciful/meowbot/internal/broadcast"
	"github.com/m3rciful/meowbot/internal/view"

	tele "gopkg.in/telebot.v4"
)

// maxProofBytes bounds a downloaded receipt image.
const maxProofBytes = 10 << 20

var errNotStarted = errors.New("bot: not started")

type messenger interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error)
}

type fileGetter interface {
	File(file *tele.File) (io.ReadCloser, error)
}

// chatSender delivers broadcast payloads straight through the bot API,
// bypassing the per-chat dispatcher queue.
type chatSender struct {
	bot atomic.Pointer[tele.Bot]
}

func (s *chatSender) Send(_ context.Context, chatID int64, payload string) error {
	b := s.bot.Load()
	if b == nil {
		return errNotStarted
	}
	_, err := b.Send(tele.ChatID(chatID), payload)
	return err
}

// progressReporter keeps one status message in the admin's chat and edits
// it as the job advances.
type progressReporter struct {
	api messenger
	to  tele.Recipient

	mu  sync.Mutex
	msg *tele.Message
}

func newProgressReporter(api messenger, to tele.Recipient) *progressReporter {
	return &progressReporter{api: api, to: to}
}

func (r *progressReporter) Start(_ context.Context, total int) error {
	m, err := r.api.Send(r.to, view.BroadcastStarted(total))
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.msg = m
	r.mu.Unlock()
	return nil
}

func (r *progressReporter) Progress(_ context.Context, p broadcast.Progress) error {
	return r.show(view.BroadcastProgress(p))
}

func (r *progressReporter) Finish(_ context.Context, res broadcast.Result) error {
	return r.show(view.BroadcastDone(res))
}

func (r *progressReporter) show(text string) error {
	r.mu.Lock()
	msg := r.msg
	r.mu.Unlock()
	if msg == nil {
		_, err := r.api.Send(r.to, text)
		return err
	}
	_, err := r.api.Edit(msg, text)
	return err
}

// downloadPhoto reads the largest size of the photo attached to m.
func downloadPhoto(api fileGetter, m *tele.Message) ([]byte, error) {
	if m == nil || m.Photo == nil {
		return nil, errors.New("bot: no photo attached")
	}
	rc, err := api.File(&m.Photo.File)
	if err != nil {
		return nil, fmt.Errorf("bot: get file: %w", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, maxProofBytes+1))
	if err != nil {
		return nil, fmt.Errorf("bot: read file: %w", err)
	}
	if len(data) > maxProofBytes {
		return nil, fmt.Errorf("bot: photo larger than %d bytes", maxProofBytes)
	}
	return data, nil
}
