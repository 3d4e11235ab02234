package race

import (
	"context"
	"sync"
	"time"
)

// DefaultWriteTimeout bounds each room write sent by a Racer.
const DefaultWriteTimeout = 5 * time.Second

type opKind int

const (
	opProgress opKind = iota
	opFinish
	opStart
)

type op struct {
	kind opKind
	room string
	run  func(ctx context.Context) error
}

type opResult struct {
	kind opKind
	room string
	err  error
}

// outbox sends room writes in order on a background goroutine. A queued
// progress push is replaced by a newer one. Results are collected by the
// owner with take.
type outbox struct {
	timeout time.Duration

	mu      sync.Mutex
	idle    *sync.Cond
	queue   []op
	busy    bool
	results []opResult
}

func newOutbox(timeout time.Duration) *outbox {
	o := &outbox{timeout: timeout}
	o.idle = sync.NewCond(&o.mu)
	return o
}

func (o *outbox) push(next op) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if n := len(o.queue); n > 0 && next.kind == opProgress && o.queue[n-1].kind == opProgress {
		o.queue[n-1] = next
	} else {
		o.queue = append(o.queue, next)
	}
	if !o.busy {
		o.busy = true
		go o.drain()
	}
}

func (o *outbox) drain() {
	for {
		o.mu.Lock()
		if len(o.queue) == 0 {
			o.busy = false
			o.idle.Broadcast()
			o.mu.Unlock()
			return
		}
		next := o.queue[0]
		o.queue = o.queue[1:]
		o.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
		err := next.run(ctx)
		cancel()

		o.mu.Lock()
		o.results = append(o.results, opResult{kind: next.kind, room: next.room, err: err})
		o.mu.Unlock()
	}
}

// take returns and clears the results gathered so far.
func (o *outbox) take() []opResult {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := o.results
	o.results = nil
	return out
}

// discard drops queued writes and pending results. A write already in
// flight still completes.
func (o *outbox) discard() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.queue = nil
	o.results = nil
}

// wait blocks until every queued write has been sent.
func (o *outbox) wait() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for o.busy {
		o.idle.Wait()
	}
}
