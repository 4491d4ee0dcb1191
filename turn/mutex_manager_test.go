package turn

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMutexManagerExclusive(t *testing.T) {
	m := NewMutexManager()
	ctx := context.Background()

	if err := m.Acquire(ctx); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if !m.Busy() {
		t.Fatal("Busy should be true while held")
	}

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := m.Acquire(waitCtx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("second Acquire = %v, want deadline exceeded", err)
	}

	m.Release()
	m.Release()
	if m.Busy() {
		t.Fatal("Busy should be false after Release")
	}
}

func TestDoReleases(t *testing.T) {
	m := NewMutexManager()
	boom := errors.New("boom")

	err := Do(context.Background(), m, func(ctx context.Context) error {
		if !m.Busy() {
			t.Error("turn should be held inside Do")
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Do = %v, want boom", err)
	}
	if m.Busy() {
		t.Fatal("Do should release the turn")
	}
}
