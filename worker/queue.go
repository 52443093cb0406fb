package worker

import (
	"sync"
	"time"

	"github.com/pkg/errors"
)

// ErrTimeout is returned by asyncQueue.get when the deadline elapses
// before an item becomes available.
var ErrTimeout = errors.New("worker: get timed out")

// asyncQueue is a single-consumer, multiple-producer FIFO: put never
// blocks or fails, get takes an optional deadline. Only one goroutine
// may call get at a time; a second concurrent caller is undefined
// behaviour.
type asyncQueue struct {
	mu     sync.Mutex
	items  []interface{}
	notify chan struct{}
}

func newAsyncQueue() *asyncQueue {
	return &asyncQueue{notify: make(chan struct{}, 1)}
}

// put enqueues item and wakes a waiting consumer. Never blocks.
func (q *asyncQueue) put(item interface{}) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// get returns the next item, waiting forever if deadline <= 0, or
// until deadline elapses (ErrTimeout) otherwise.
func (q *asyncQueue) get(deadline time.Duration) (interface{}, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			item := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return item, nil
		}
		q.mu.Unlock()

		if deadline <= 0 {
			<-q.notify
			continue
		}

		timer := time.NewTimer(deadline)
		select {
		case <-q.notify:
			timer.Stop()
			continue
		case <-timer.C:
			return nil, ErrTimeout
		}
	}
}
