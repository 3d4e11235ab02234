package bus

import (
	"context"
	"testing"
	"time"
)

func TestLocalBusDeliversToRoomSubscribers(t *testing.T) {
	b := NewLocalBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := b.Subscribe(ctx, "room-a")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	other, err := b.Subscribe(ctx, "room-b")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := b.Publish(ctx, "room-a"); err != nil {
		t.Fatalf("publish: %v", err)
	}
	select {
	case <-a:
	case <-time.After(time.Second):
		t.Fatalf("expected notification for room-a")
	}
	select {
	case <-other:
		t.Fatalf("room-b must not be notified")
	default:
	}
}

func TestLocalBusPublishNeverBlocks(t *testing.T) {
	b := NewLocalBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, _ := b.Subscribe(ctx, "r")
	for i := 0; i < 100; i++ {
		if err := b.Publish(ctx, "r"); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}
	<-ch
	select {
	case <-ch:
		t.Fatalf("expected coalesced notifications")
	default:
	}
}

func TestLocalBusClosesOnCancel(t *testing.T) {
	b := NewLocalBus()
	ctx, cancel := context.WithCancel(context.Background())
	ch, _ := b.Subscribe(ctx, "r")
	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatalf("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatalf("channel not closed after cancel")
	}
}

func TestSubject(t *testing.T) {
	if got := Subject("abc"); got != "typeracer.rooms.abc" {
		t.Fatalf("unexpected subject %q", got)
	}
}
