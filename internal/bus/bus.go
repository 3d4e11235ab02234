// Package bus fans out room change notifications to watchers.
package bus

import (
	"context"
	"sync"
)

// Bus delivers "room changed" signals. Notifications carry no payload;
// subscribers re-read the room from the store.
type Bus interface {
	Publish(ctx context.Context, roomID string) error
	Subscribe(ctx context.Context, roomID string) (<-chan struct{}, error)
}

// LocalBus is an in-process bus. Sends never block: a subscriber that has
// not consumed its previous signal simply keeps the pending one.
type LocalBus struct {
	mu   sync.Mutex
	subs map[string]map[chan struct{}]struct{}
}

// NewLocalBus returns an empty in-process bus.
func NewLocalBus() *LocalBus {
	return &LocalBus{subs: map[string]map[chan struct{}]struct{}{}}
}

// Publish signals every subscriber of roomID.
func (b *LocalBus) Publish(_ context.Context, roomID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[roomID] {
		notify(ch)
	}
	return nil
}

// Subscribe registers for roomID until ctx is done, then closes the channel.
func (b *LocalBus) Subscribe(ctx context.Context, roomID string) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)
	b.mu.Lock()
	if b.subs[roomID] == nil {
		b.subs[roomID] = map[chan struct{}]struct{}{}
	}
	b.subs[roomID][ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs[roomID], ch)
		if len(b.subs[roomID]) == 0 {
			delete(b.subs, roomID)
		}
		b.mu.Unlock()
		close(ch)
	}()
	return ch, nil
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
