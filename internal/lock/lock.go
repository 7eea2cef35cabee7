// Package lock serialises mutations per room and per reservation.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

var ErrTimeout = errors.New("lock: wait timed out")

// Locker acquires a set of named locks as a unit. Keys are taken in sorted
// order so two callers asking for overlapping sets cannot deadlock.
// The returned release func is safe to call more than once.
type Locker interface {
	Acquire(ctx context.Context, keys ...string) (release func(), err error)
}

func RoomKey(id uuid.UUID) string        { return "room:" + id.String() }
func ReservationKey(id uuid.UUID) string { return "reservation:" + id.String() }

// normalizeKeys sorts keys and drops duplicates and empties.
func normalizeKeys(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func withWait(ctx context.Context, wait time.Duration) (context.Context, context.CancelFunc) {
	if wait <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, wait)
}

func timeoutErr(key string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrTimeout, key)
	}
	return fmt.Errorf("lock %s: %w", key, err)
}
