package bus

import "sync"

// queue hands events to one consumer goroutine in arrival order. push never
// blocks.
type queue struct {
	mu      sync.Mutex
	pending []Event
	stopped bool

	wake chan struct{}
	done chan struct{}
	once sync.Once
}

func newQueue() *queue {
	return &queue{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

func (q *queue) push(e Event) {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.pending = append(q.pending, e)
	q.mu.Unlock()
	q.signal()
}

func (q *queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *queue) run(h Handler) {
	defer close(q.done)
	for {
		q.mu.Lock()
		batch := q.pending
		q.pending = nil
		stopped := q.stopped
		q.mu.Unlock()

		for _, e := range batch {
			h(e)
		}
		if stopped {
			return
		}
		<-q.wake
	}
}

func (q *queue) stop() {
	q.once.Do(func() {
		q.mu.Lock()
		q.stopped = true
		q.mu.Unlock()
		q.signal()
	})
	<-q.done
}
