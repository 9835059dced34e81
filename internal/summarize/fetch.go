package summarize

import (
	"context"
	"fmt"
	"time"
)

// MaxPageSize is the largest page the history source serves.
const MaxPageSize = 100

// FetchOptions bounds a history scan.
type FetchOptions struct {
	// From is inclusive, To exclusive.
	From        time.Time
	To          time.Time
	MaxMessages int
	IncludeBots bool
}

// FetchResult holds the accepted messages in page order (newest first)
// and the distinct author ids among them.
type FetchResult struct {
	Messages        []Message
	UniqueAuthorIDs map[string]struct{}
	Pages           int
}

// Participants returns the number of distinct authors.
func (r FetchResult) Participants() int {
	return len(r.UniqueAuthorIDs)
}

// FetchMessages pages backward from the newest message until the window is
// exhausted, the history ends, or MaxMessages messages are accepted.
// A page that crosses the lower bound is still scanned to its end.
func FetchMessages(ctx context.Context, src PageSource, opts FetchOptions) (FetchResult, error) {
	res := FetchResult{UniqueAuthorIDs: make(map[string]struct{})}
	if opts.MaxMessages <= 0 {
		return res, nil
	}

	beforeID := ""
	for len(res.Messages) < opts.MaxMessages {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		limit := opts.MaxMessages - len(res.Messages)
		if limit > MaxPageSize {
			limit = MaxPageSize
		}

		page, err := src.FetchPage(ctx, beforeID, limit)
		if err != nil {
			return res, fmt.Errorf("fetch history page %d: %w", res.Pages+1, err)
		}
		res.Pages++
		if len(page) == 0 {
			break
		}

		exhausted := false
		for _, msg := range page {
			if !msg.CreatedAt.Before(opts.To) {
				continue
			}
			if msg.CreatedAt.Before(opts.From) {
				exhausted = true
				continue
			}
			if msg.Author != nil && msg.Author.Bot && !opts.IncludeBots {
				continue
			}
			res.Messages = append(res.Messages, msg)
			if msg.Author != nil && msg.Author.ID != "" {
				res.UniqueAuthorIDs[msg.Author.ID] = struct{}{}
			}
			if len(res.Messages) >= opts.MaxMessages {
				break
			}
		}
		if len(res.Messages) >= opts.MaxMessages {
			break
		}

		beforeID = page[len(page)-1].ID
		if beforeID == "" || exhausted {
			break
		}
	}
	return res, nil
}
