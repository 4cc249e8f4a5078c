package service

import (
	"context"
	"encoding/json"
	"sync"

	"anoa.com/clubportal/pkg/docstore"
	"anoa.com/clubportal/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const DefaultChangeChannel = "docstore:changes"

// Broker fans committed store changes out to synchronizers. The store
// publishes through Notify; synchronizers consume through Subscribe.
type Broker interface {
	docstore.Notifier
	Subscribe(ctx context.Context) (<-chan docstore.Change, func(), error)
}

type localBroker struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan docstore.Change
}

// NewLocalBroker delivers changes inside this process only.
func NewLocalBroker() Broker {
	return &localBroker{subs: make(map[int]chan docstore.Change)}
}

func (b *localBroker) Notify(_ context.Context, change docstore.Change) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- change:
		default:
			logger.Warn("live: dropping change for %s, subscriber is behind", change.Path)
		}
	}
}

func (b *localBroker) Subscribe(_ context.Context) (<-chan docstore.Change, func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan docstore.Change, 256)
	b.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}
	return ch, cancel, nil
}

type redisBroker struct {
	client  *redis.Client
	channel string
}

// NewRedisBroker shares changes between every instance connected to the
// same redis. Pub/sub is at-most-once; the scheduled resync covers losses.
func NewRedisBroker(client *redis.Client, channel string) Broker {
	if channel == "" {
		channel = DefaultChangeChannel
	}
	return &redisBroker{client: client, channel: channel}
}

func (b *redisBroker) Notify(ctx context.Context, change docstore.Change) {
	payload, err := json.Marshal(change)
	if err != nil {
		logger.Error("live: encode change %s: %v", change.Path, err)
		return
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		logger.Error("live: publish change %s: %v", change.Path, err)
	}
}

func (b *redisBroker) Subscribe(ctx context.Context) (<-chan docstore.Change, func(), error) {
	pubsub := b.client.Subscribe(ctx, b.channel)

	// Wait for confirmation that subscription is created
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, err
	}

	out := make(chan docstore.Change, 256)
	done := make(chan struct{})
	go func() {
		defer close(out)
		msgs := pubsub.Channel()
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var change docstore.Change
				if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
					logger.Warn("live: ignoring malformed change: %v", err)
					continue
				}
				select {
				case out <- change:
				case <-done:
					return
				}
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = pubsub.Close()
		})
	}
	return out, cancel, nil
}
