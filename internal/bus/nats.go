package bus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

const subjectPrefix = "typeracer.rooms."

// NATSConfig holds connection settings for NATSBus.
type NATSConfig struct {
	URL           string
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultNATSConfig returns reconnect-forever defaults for url.
func DefaultNATSConfig(url string) NATSConfig {
	if url == "" {
		url = nats.DefaultURL
	}
	return NATSConfig{
		URL:           url,
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// NATSBus publishes room changes on NATS so several server processes
// sharing one database can notify each other's watchers.
type NATSBus struct {
	nc  *nats.Conn
	log zerolog.Logger
}

// NewNATSBus connects to NATS.
func NewNATSBus(cfg NATSConfig, logger zerolog.Logger) (*NATSBus, error) {
	opts := []nats.Option{
		nats.Name("typeracer"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			logger.Error().Err(err).Msg("NATS error")
		}),
	}
	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	logger.Info().Str("url", nc.ConnectedUrl()).Msg("connected to NATS")
	return &NATSBus{nc: nc, log: logger}, nil
}

// Subject returns the NATS subject for a room.
func Subject(roomID string) string {
	return subjectPrefix + roomID
}

// Publish sends an empty notification on the room subject.
func (b *NATSBus) Publish(_ context.Context, roomID string) error {
	if err := b.nc.Publish(Subject(roomID), nil); err != nil {
		return fmt.Errorf("publish room change: %w", err)
	}
	return nil
}

// Subscribe listens on the room subject until ctx is done.
func (b *NATSBus) Subscribe(ctx context.Context, roomID string) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)
	var mu sync.Mutex
	closed := false
	sub, err := b.nc.Subscribe(Subject(roomID), func(*nats.Msg) {
		mu.Lock()
		defer mu.Unlock()
		if !closed {
			notify(ch)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe room changes: %w", err)
	}
	go func() {
		<-ctx.Done()
		if err := sub.Unsubscribe(); err != nil {
			b.log.Debug().Err(err).Str("room", roomID).Msg("unsubscribe failed")
		}
		mu.Lock()
		closed = true
		close(ch)
		mu.Unlock()
	}()
	return ch, nil
}

// Close drains and closes the connection.
func (b *NATSBus) Close() error {
	return b.nc.Drain()
}
