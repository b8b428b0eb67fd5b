package broadcast

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/m3rciful/meowbot/core/logger"
)

// maxPages stops pagination against a listing that never reports its end.
const maxPages = 10000

// Recipient is one user that may receive the broadcast.
type Recipient struct {
	UserID int64
	ChatID int64
}

// Page is one page of the user listing.
type Page struct {
	Recipients []Recipient
	LastPage   int
}

// PageFunc fetches page n, starting at 1.
type PageFunc func(ctx context.Context, n int) (Page, error)

// Recipients walks the listing until a page reports it is the last one or
// comes back empty. A failure on the first page is an error; a failure later
// keeps what was collected. Rows without a chat id are dropped and repeated
// chat ids are kept once.
func Recipients(ctx context.Context, fetch PageFunc) ([]Recipient, error) {
	var (
		out  []Recipient
		seen = make(map[int64]struct{})
	)
	for n := 1; n <= maxPages; n++ {
		page, err := fetch(ctx, n)
		if err != nil {
			if n == 1 {
				return nil, fmt.Errorf("broadcast: fetch recipients: %w", err)
			}
			logger.Warn(ctx, component, "broadcast.recipients",
				slog.String("status", "fail"),
				slog.Int("page", n),
				slog.Int("collected", len(out)),
				slog.String("err", err.Error()),
			)
			break
		}
		if len(page.Recipients) == 0 {
			break
		}
		for _, r := range page.Recipients {
			if r.ChatID == 0 {
				continue
			}
			if _, dup := seen[r.ChatID]; dup {
				continue
			}
			seen[r.ChatID] = struct{}{}
			out = append(out, r)
		}
		if n >= page.LastPage {
			break
		}
	}
	return out, nil
}
