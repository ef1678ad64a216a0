package containers

import "testing"

func TestRingQueueFIFOOrder(t *testing.T) {
	rq := NewRingQueue[int](4)

	for i := 1; i <= 4; i++ {
		if err := rq.Enqueue(i); err != nil {
			t.Fatalf("Enqueue(%d): %v", i, err)
		}
	}
	if err := rq.Enqueue(5); err != ErrQueueFull {
		t.Errorf("Enqueue on a full queue = %v, want ErrQueueFull", err)
	}

	for i := 1; i <= 4; i++ {
		got, err := rq.Dequeue()
		if err != nil {
			t.Fatalf("Dequeue: %v", err)
		}
		if got != i {
			t.Errorf("Dequeue = %d, want %d", got, i)
		}
	}
	if _, err := rq.Dequeue(); err != ErrQueueEmpty {
		t.Errorf("Dequeue on an empty queue = %v, want ErrQueueEmpty", err)
	}
}

func TestRingQueueWrapsAround(t *testing.T) {
	rq := NewRingQueue[string](2)

	// interleave enough to force the indices past the buffer end
	for i := 0; i < 5; i++ {
		if err := rq.Enqueue("a"); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
		if err := rq.Enqueue("b"); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
		if got, _ := rq.Dequeue(); got != "a" {
			t.Fatalf("Dequeue = %q, want \"a\"", got)
		}
		if got, _ := rq.Dequeue(); got != "b" {
			t.Fatalf("Dequeue = %q, want \"b\"", got)
		}
	}
	if !rq.IsEmpty() {
		t.Error("queue not empty after draining")
	}
}

func TestRingQueuePeek(t *testing.T) {
	rq := NewRingQueue[int](2)
	if _, err := rq.Peek(); err != ErrQueueEmpty {
		t.Errorf("Peek on empty = %v, want ErrQueueEmpty", err)
	}

	rq.Enqueue(7)
	got, err := rq.Peek()
	if err != nil || got != 7 {
		t.Errorf("Peek = (%d, %v), want (7, nil)", got, err)
	}
	if rq.Len() != 1 {
		t.Errorf("Len after Peek = %d, want 1", rq.Len())
	}
}
