package notify

import (
	"context"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Publisher is the per-room change-notification channel. Every committed
// session update is published as the full record; subscribers receive
// at-least-once, latest-wins delivery (intermediate states may be coalesced
// by Redis or by a slow consumer, and observers must tolerate that).
type Publisher struct {
	rdb *redis.Client
}

func NewPublisher(rdb *redis.Client) *Publisher {
	return &Publisher{rdb: rdb}
}

func channelFor(roomCode string) string {
	return "match_session:" + roomCode
}

// Publish pushes the given payload (the full session record, JSON-encoded)
// to every subscriber of the room.
func (p *Publisher) Publish(ctx context.Context, roomCode string, payload []byte) error {
	return p.rdb.Publish(ctx, channelFor(roomCode), payload).Err()
}

// Subscription is a live per-room subscription handle.
type Subscription struct {
	pubsub *redis.PubSub
	cancel context.CancelFunc
	once   sync.Once
}

// Subscribe starts delivering every published update for the room to
// onUpdate. Delivery stops when Unsubscribe is called or ctx is cancelled.
func (p *Publisher) Subscribe(ctx context.Context, roomCode string, onUpdate func(payload []byte), onError func(err error)) *Subscription {
	subCtx, cancel := context.WithCancel(ctx)
	pubsub := p.rdb.Subscribe(subCtx, channelFor(roomCode))

	sub := &Subscription{pubsub: pubsub, cancel: cancel}

	go func() {
		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				onUpdate([]byte(msg.Payload))
			}
		}
	}()

	// Surface subscription failures once, via the pubsub receive path.
	go func() {
		if _, err := pubsub.Receive(subCtx); err != nil && subCtx.Err() == nil {
			log.Printf("[NOTIFY] subscription error for room %s: %v", roomCode, err)
			if onError != nil {
				onError(err)
			}
		}
	}()

	return sub
}

// Unsubscribe stops delivery. Safe to call multiple times and on teardown.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.cancel()
		if err := s.pubsub.Close(); err != nil {
			log.Printf("[NOTIFY] pubsub close: %v", err)
		}
	})
}
