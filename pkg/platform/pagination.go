package platform

import (
	"context"
	"math/rand"
	"time"

	"socialharvest/pkg/logger"
	"socialharvest/pkg/retry"
)

// FetchPage returns one page of items plus the cursor for the next page.
// An empty next cursor means the last page has been reached.
type FetchPage[T any] func(ctx context.Context, cursor string) (items []T, nextCursor string, err error)

// PageDelay bounds the randomized pause inserted between pages.
type PageDelay struct {
	Min time.Duration
	Max time.Duration
}

// DefaultPageDelay spaces pages one to three seconds apart.
var DefaultPageDelay = PageDelay{Min: time.Second, Max: 3 * time.Second}

func (d PageDelay) pick() time.Duration {
	if d.Max <= d.Min {
		return d.Min
	}
	return d.Min + time.Duration(rand.Int63n(int64(d.Max-d.Min)))
}

// Paginate drives a fetch-page function until the page comes back empty,
// the cursor runs out, or maxItems have accumulated. The cap is never
// exceeded. A first-page failure propagates; once items are in hand a
// later page failure stops collection and returns the partial batch.
// The inter-page pause honors ctx, so cancellation aborts between pages
// rather than after the run.
func Paginate[T any](ctx context.Context, fetch FetchPage[T], maxItems int, delay PageDelay, log logger.Logger) ([]T, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	if maxItems <= 0 {
		return nil, nil
	}

	var all []T
	cursor := ""

	for len(all) < maxItems {
		items, next, err := fetch(ctx, cursor)
		if err != nil {
			if len(all) == 0 {
				return nil, err
			}
			log.WarnWithFields("pagination stopped early", map[string]interface{}{
				"collected": len(all),
				"error":     err.Error(),
			})
			return all, nil
		}

		if len(items) == 0 {
			break
		}
		all = append(all, items...)
		if len(all) >= maxItems {
			all = all[:maxItems]
			break
		}
		if next == "" {
			break
		}
		cursor = next

		if err := retry.Wait(ctx, delay.pick()); err != nil {
			return all, err
		}
	}

	return all, nil
}
