package platform

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialharvest/pkg/errors"
	"socialharvest/pkg/logger"
)

var testDelay = PageDelay{Min: time.Millisecond, Max: 2 * time.Millisecond}

func TestPaginateNeverExceedsCap(t *testing.T) {
	var calls int
	fetch := func(ctx context.Context, cursor string) ([]int, string, error) {
		calls++
		return make([]int, 10), fmt.Sprintf("cursor-%d", calls), nil
	}

	items, err := Paginate(context.Background(), fetch, 25, testDelay, logger.NewTestLogger())
	require.NoError(t, err)
	assert.Len(t, items, 25)
	assert.Equal(t, 3, calls)
}

func TestPaginateStopsOnEmptyPage(t *testing.T) {
	var calls int
	fetch := func(ctx context.Context, cursor string) ([]int, string, error) {
		calls++
		if calls == 1 {
			return []int{1, 2, 3, 4, 5}, "more", nil
		}
		return nil, "more", nil
	}

	items, err := Paginate(context.Background(), fetch, 100, testDelay, logger.NewTestLogger())
	require.NoError(t, err)
	assert.Len(t, items, 5)
	assert.Equal(t, 2, calls)
}

func TestPaginateStopsOnAbsentCursor(t *testing.T) {
	var calls int
	fetch := func(ctx context.Context, cursor string) ([]int, string, error) {
		calls++
		return []int{1, 2, 3}, "", nil
	}

	items, err := Paginate(context.Background(), fetch, 100, testDelay, logger.NewTestLogger())
	require.NoError(t, err)
	assert.Len(t, items, 3)
	assert.Equal(t, 1, calls)
}

func TestPaginateFirstPageErrorPropagates(t *testing.T) {
	rateLimited := &errors.Error{
		Type:       errors.ErrorTypeRateLimited,
		Message:    "rate limited by platform, retry after 45s",
		RetryAfter: 45,
	}
	fetch := func(ctx context.Context, cursor string) ([]int, string, error) {
		return nil, "", rateLimited
	}

	items, err := Paginate(context.Background(), fetch, 100, testDelay, logger.NewTestLogger())
	assert.Nil(t, items)
	require.Error(t, err)

	// The typed error survives the helper untouched
	assert.True(t, errors.IsRateLimited(err))
	assert.Equal(t, 45, errors.RetryAfterSeconds(err))
}

func TestPaginateKeepsPartialOnLaterError(t *testing.T) {
	var calls int
	fetch := func(ctx context.Context, cursor string) ([]int, string, error) {
		calls++
		if calls == 1 {
			return make([]int, 10), "next", nil
		}
		return nil, "", fmt.Errorf("server error: 502")
	}

	items, err := Paginate(context.Background(), fetch, 100, testDelay, logger.NewTestLogger())
	require.NoError(t, err)
	assert.Len(t, items, 10)
}

func TestPaginateAbortsOnCancelledPause(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	fetch := func(ctx context.Context, cursor string) ([]int, string, error) {
		return make([]int, 5), "next", nil
	}

	slow := PageDelay{Min: 200 * time.Millisecond, Max: 200 * time.Millisecond}
	items, err := Paginate(ctx, fetch, 100, slow, logger.NewTestLogger())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Len(t, items, 5)
}

func TestPaginateZeroCap(t *testing.T) {
	fetch := func(ctx context.Context, cursor string) ([]int, string, error) {
		t.Fatal("fetch should not run with a zero cap")
		return nil, "", nil
	}

	items, err := Paginate(context.Background(), fetch, 0, testDelay, logger.NewTestLogger())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestPaginatePassesCursorThrough(t *testing.T) {
	var cursors []string
	fetch := func(ctx context.Context, cursor string) ([]int, string, error) {
		cursors = append(cursors, cursor)
		switch cursor {
		case "":
			return []int{1}, "page-2", nil
		case "page-2":
			return []int{2}, "page-3", nil
		default:
			return []int{3}, "", nil
		}
	}

	items, err := Paginate(context.Background(), fetch, 100, testDelay, logger.NewTestLogger())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, items)
	assert.Equal(t, []string{"", "page-2", "page-3"}, cursors)
}

func TestPageDelayPick(t *testing.T) {
	d := PageDelay{Min: time.Second, Max: 3 * time.Second}
	for i := 0; i < 100; i++ {
		got := d.pick()
		assert.GreaterOrEqual(t, got, time.Second)
		assert.Less(t, got, 3*time.Second)
	}

	fixed := PageDelay{Min: time.Second, Max: time.Second}
	assert.Equal(t, time.Second, fixed.pick())
}
