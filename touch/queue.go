package touch

import (
	"sync"
	"time"

	"github.com/dkovalev/touchcal/model"
)

// MaxEvents bounds the queue; the oldest element is dropped on overflow so
// the reader never blocks.
const MaxEvents = 32

// waitSlice caps any single blocking interval so shutdown latency stays
// bounded even for wait(-1).
const waitSlice = time.Second

type eventQueue struct {
	mu       sync.Mutex
	events   []model.TouchEvent
	callback func(model.TouchEvent)
	signal   chan struct{}
	stop     chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		signal: make(chan struct{}, 1),
		stop:   make(chan struct{}),
	}
}

// reset prepares the queue for a fresh Start, keeping the registered
// callback.
func (q *eventQueue) reset() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.events = q.events[:0]
	select {
	case <-q.stop:
		q.stop = make(chan struct{})
	default:
	}

	select {
	case <-q.signal:
	default:
	}
}

// shutdown wakes every waiter; in-flight waits return empty.
func (q *eventQueue) shutdown() {
	q.mu.Lock()
	defer q.mu.Unlock()

	select {
	case <-q.stop:
	default:
		close(q.stop)
	}
}

func (q *eventQueue) stopped() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	select {
	case <-q.stop:
		return true
	default:
		return false
	}
}

func (q *eventQueue) setCallback(fn func(model.TouchEvent)) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.callback = fn
}

func (q *eventQueue) push(ev model.TouchEvent) {
	q.mu.Lock()

	if len(q.events) >= MaxEvents {
		q.events = q.events[1:]
	}

	q.events = append(q.events, ev)
	cb := q.callback

	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}

	if cb != nil {
		cb(ev)
	}
}

func (q *eventQueue) poll() (model.TouchEvent, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return model.TouchEvent{}, false
	}

	head := q.events[0]
	q.events = q.events[1:]

	return head, true
}

// wait blocks until an event arrives, the timeout elapses or the queue is
// shut down. A negative timeout blocks in bounded slices.
func (q *eventQueue) wait(timeoutMs int) (model.TouchEvent, bool) {
	var deadline time.Time
	if timeoutMs >= 0 {
		deadline = time.Now().Add(time.Duration(timeoutMs) * time.Millisecond)
	}

	for {
		if q.stopped() {
			return model.TouchEvent{}, false
		}

		if ev, ok := q.poll(); ok {
			return ev, true
		}

		slice := waitSlice
		if timeoutMs >= 0 {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return model.TouchEvent{}, false
			}

			if remaining < slice {
				slice = remaining
			}
		}

		q.mu.Lock()
		stop := q.stop
		q.mu.Unlock()

		timer := time.NewTimer(slice)
		select {
		case <-q.signal:
			timer.Stop()
		case <-stop:
			timer.Stop()

			return model.TouchEvent{}, false
		case <-timer.C:
		}
	}
}

func (q *eventQueue) clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.events = q.events[:0]
}
