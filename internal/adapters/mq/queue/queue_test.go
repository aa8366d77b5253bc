package queue

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/okian/conftix/internal/domain/model"
)

func job(id string) Job {
	return model.SubmissionRecord{RequestID: id, FullName: "Jane Doe", Email: "jane@example.com", GitHub: "@janedoe"}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	if err := q.Enqueue(ctx, job("req-1")); err != nil {
		t.Errorf("expected enqueue to succeed, got %v", err)
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	got := <-q.Dequeue(ctx)
	if got.RequestID != "req-1" {
		t.Errorf("expected req-1, got %v", got.RequestID)
	}
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	for _, id := range []string{"req-1", "req-2"} {
		if err := q.Enqueue(ctx, job(id)); err != nil {
			t.Errorf("expected enqueue to succeed, got %v", err)
		}
	}

	err := q.Dispatch(ctx, job("req-3"))
	if !errors.Is(err, ErrFull) {
		t.Errorf("expected ErrFull when full, got %v", err)
	}
	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_CancelledContext(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := q.Enqueue(ctx, job("req-1")); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(100))
	ctx := context.Background()
	producers, perProducer := 10, 100

	done := make(chan bool, producers)
	for i := 0; i < producers; i++ {
		go func(id int) {
			for j := 0; j < perProducer; j++ {
				for q.Enqueue(ctx, job(fmt.Sprintf("req-%d-%d", id, j))) != nil {
					time.Sleep(time.Millisecond)
				}
			}
			done <- true
		}(i)
	}

	consumed := make(chan string, producers*perProducer)
	for i := 0; i < producers; i++ {
		go func() {
			for j := range q.Dequeue(ctx) {
				consumed <- j.RequestID
			}
		}()
	}

	for i := 0; i < producers; i++ {
		<-done
	}

	deadline := time.After(2 * time.Second)
	for n := 0; n < producers*perProducer; n++ {
		select {
		case <-consumed:
		case <-deadline:
			t.Fatalf("consumed only %d jobs", n)
		}
	}
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected final length 0, got %d", l)
	}
}

func TestInMemoryQueue_GracefulShutdown(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	if err := q.Enqueue(ctx, job("req-1")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if q.IsClosed() {
		t.Error("expected queue to be open initially")
	}
	if err := q.Close(); err != nil {
		t.Errorf("expected close to succeed, got error: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed after Close()")
	}
	if err := q.Enqueue(ctx, job("req-2")); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed after closing, got %v", err)
	}

	// Jobs queued before Close are still delivered, then the channel closes.
	ch := q.Dequeue(ctx)
	var got []string
	timeout := time.After(time.Second)
	for {
		select {
		case j, ok := <-ch:
			if !ok {
				if len(got) != 1 || got[0] != "req-1" {
					t.Errorf("expected [req-1] drained, got %v", got)
				}
				if err := q.Close(); err != nil {
					t.Errorf("expected second close to succeed, got error: %v", err)
				}
				return
			}
			got = append(got, j.RequestID)
		case <-timeout:
			t.Fatal("expected dequeue channel to be closed within timeout")
		}
	}
}
