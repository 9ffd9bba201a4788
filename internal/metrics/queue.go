package metrics

// fifo is a slice-backed queue with O(1) amortized pop from the head.
// The backing array is compacted once the consumed prefix dominates.
type fifo[T any] struct {
	items []T
	head  int
}

func (q *fifo[T]) push(v T) {
	q.items = append(q.items, v)
}

func (q *fifo[T]) len() int {
	return len(q.items) - q.head
}

// peek returns the head element. It must not be called on an empty queue.
func (q *fifo[T]) peek() T {
	return q.items[q.head]
}

func (q *fifo[T]) pop() T {
	v := q.items[q.head]
	var zero T
	q.items[q.head] = zero
	q.head++
	if q.head > 32 && q.head*2 >= len(q.items) {
		n := copy(q.items, q.items[q.head:])
		q.items = q.items[:n]
		q.head = 0
	}
	return v
}

// drain returns the remaining elements in order and empties the queue.
func (q *fifo[T]) drain() []T {
	out := make([]T, q.len())
	copy(out, q.items[q.head:])
	q.items = nil
	q.head = 0
	return out
}
