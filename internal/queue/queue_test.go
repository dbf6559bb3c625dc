package queue

import (
	"sync"
	"testing"
)

// row stands in for a database row
type row struct {
	Car  int
	Tick int
}

func rows(ticks ...int) []row {
	out := make([]row, len(ticks))
	for i, t := range ticks {
		out[i] = row{Tick: t}
	}
	return out
}

func ticks(rs []row) []int {
	out := make([]int, len(rs))
	for i, r := range rs {
		out[i] = r.Tick
	}
	return out
}

func equal(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestQueue_New(t *testing.T) {
	q := New[row]()
	if !q.Empty() {
		t.Error("expected empty queue")
	}
	if q.Dropped() != 0 {
		t.Errorf("expected no drops, got %d", q.Dropped())
	}
}

func TestQueue_PushPop(t *testing.T) {
	q := New[row]()

	if _, ok := q.Pop(); ok {
		t.Error("pop on an empty queue should report false")
	}

	q.Push(rows(1, 2)...)
	first, ok := q.Pop()
	if !ok || first.Tick != 1 {
		t.Errorf("expected tick 1, got %+v (ok=%v)", first, ok)
	}
	if q.Len() != 1 {
		t.Errorf("expected length 1, got %d", q.Len())
	}
}

func TestQueue_Drain(t *testing.T) {
	q := New[row]()
	q.Push(rows(1, 2, 3)...)

	got := q.Drain()
	if !equal(ticks(got), []int{1, 2, 3}) {
		t.Errorf("unexpected rows: %v", ticks(got))
	}
	if !q.Empty() {
		t.Error("expected empty queue after Drain")
	}

	// the drained slice is not shared with later pushes
	q.Push(rows(9)...)
	if got[0].Tick != 1 {
		t.Errorf("drained batch changed: %v", ticks(got))
	}
}

func TestQueue_RequeueKeepsOrder(t *testing.T) {
	q := New[row]()
	q.Push(rows(1, 2)...)
	batch := q.Drain()
	q.Push(rows(3)...)

	q.Requeue(batch)
	if got := ticks(q.Drain()); !equal(got, []int{1, 2, 3}) {
		t.Errorf("expected the failed batch first, got %v", got)
	}

	q.Requeue(nil)
	if !q.Empty() {
		t.Error("requeue of nothing should leave the queue empty")
	}
}

func TestQueue_BoundedDropsOldest(t *testing.T) {
	q := NewBounded[row](3)
	q.Push(rows(1, 2)...)
	q.Push(rows(3, 4, 5)...)

	if q.Len() != 3 {
		t.Errorf("expected length 3, got %d", q.Len())
	}
	if q.Dropped() != 2 {
		t.Errorf("expected 2 drops, got %d", q.Dropped())
	}
	if got := ticks(q.Drain()); !equal(got, []int{3, 4, 5}) {
		t.Errorf("expected the newest rows, got %v", got)
	}
}

func TestQueue_BoundedRequeue(t *testing.T) {
	q := NewBounded[row](3)
	q.Push(rows(1, 2)...)
	batch := q.Drain()
	q.Push(rows(3, 4)...)

	q.Requeue(batch)
	if q.Dropped() != 1 {
		t.Errorf("expected 1 drop, got %d", q.Dropped())
	}
	if got := ticks(q.Drain()); !equal(got, []int{2, 3, 4}) {
		t.Errorf("unexpected rows: %v", got)
	}
}

func TestQueue_Concurrent(t *testing.T) {
	q := New[row]()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(car int) {
			defer wg.Done()
			q.Push(row{Car: car})
		}(i)
	}
	wg.Wait()

	if q.Len() != 100 {
		t.Errorf("expected 100 items, got %d", q.Len())
	}

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Pop()
		}()
	}
	wg.Wait()

	if q.Len() != 50 {
		t.Errorf("expected 50 items after pops, got %d", q.Len())
	}
}

func TestQueue_ConcurrentDrain(t *testing.T) {
	q := New[row]()
	for i := 0; i < 100; i++ {
		q.Push(row{Tick: i})
	}

	var wg sync.WaitGroup
	results := make(chan []row, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- q.Drain()
		}()
	}
	wg.Wait()
	close(results)

	total := 0
	for r := range results {
		total += len(r)
	}
	if total != 100 {
		t.Errorf("expected total 100 items, got %d", total)
	}
}
