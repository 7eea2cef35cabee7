package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestLocal_SerialisesSameKey(t *testing.T) {
	l := NewLocal(time.Second)
	key := RoomKey(uuid.New())

	var (
		inside  int32
		maxSeen int32
		wg      sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(context.Background(), key)
			if err != nil {
				t.Errorf("Acquire: %v", err)
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxSeen)
				if n <= m || atomic.CompareAndSwapInt32(&maxSeen, m, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Fatalf("max concurrent holders = %d, want 1", maxSeen)
	}
}

func TestLocal_TimesOut(t *testing.T) {
	l := NewLocal(20 * time.Millisecond)
	key := RoomKey(uuid.New())

	release, err := l.Acquire(context.Background(), key)
	if err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	defer release()

	if _, err := l.Acquire(context.Background(), key); !errors.Is(err, ErrTimeout) {
		t.Fatalf("second Acquire: got %v, want ErrTimeout", err)
	}
}

func TestLocal_PartialFailureReleasesHeldKeys(t *testing.T) {
	l := NewLocal(20 * time.Millisecond)
	a, b := "a", "b"

	releaseB, err := l.Acquire(context.Background(), b)
	if err != nil {
		t.Fatalf("Acquire b: %v", err)
	}

	if _, err := l.Acquire(context.Background(), a, b); !errors.Is(err, ErrTimeout) {
		t.Fatalf("Acquire a+b: got %v, want ErrTimeout", err)
	}

	// a must have been released by the failed call.
	releaseA, err := l.Acquire(context.Background(), a)
	if err != nil {
		t.Fatalf("Acquire a after failure: %v", err)
	}
	releaseA()
	releaseB()
}

func TestLocal_DuplicateKeysAndDoubleRelease(t *testing.T) {
	l := NewLocal(time.Second)

	release, err := l.Acquire(context.Background(), "x", "x", "")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	release()
	release()

	release2, err := l.Acquire(context.Background(), "x")
	if err != nil {
		t.Fatalf("re-Acquire: %v", err)
	}
	release2()

	if len(l.locks) != 0 {
		t.Fatalf("expected lock table to be empty, got %d entries", len(l.locks))
	}
}

func TestNormalizeKeys(t *testing.T) {
	got := normalizeKeys([]string{"room:b", "", "reservation:z", "room:a", "room:b"})
	want := []string{"reservation:z", "room:a", "room:b"}
	if len(got) != len(want) {
		t.Fatalf("normalizeKeys = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("normalizeKeys = %v, want %v", got, want)
		}
	}
}
