package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	redisclient "github.com/vertexautomation/site-server/internal/redis"
)

type AuthEventType string

const (
	AuthEventSignedIn       AuthEventType = "SIGNED_IN"
	AuthEventSignedOut      AuthEventType = "SIGNED_OUT"
	AuthEventTokenRefreshed AuthEventType = "TOKEN_REFRESHED"
)

// AuthEvent is a session state change. SessionID lets a listener tell its own
// session apart from the user's other sessions.
type AuthEvent struct {
	Type      AuthEventType `json:"type"`
	UserID    string        `json:"userId"`
	SessionID string        `json:"sessionId"`
	At        time.Time     `json:"at"`
}

type AuthEventPublisher interface {
	Publish(ctx context.Context, event AuthEvent) error
}

type authSubscriber struct {
	userID string
	events chan AuthEvent
}

// AuthEventBroker fans session events out over Redis pub/sub so every replica
// sees sign-outs made on any other.
type AuthEventBroker struct {
	redis  *redis.Client
	mu     sync.RWMutex
	subs   map[*authSubscriber]struct{}
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

func NewAuthEventBroker(client *redis.Client) *AuthEventBroker {
	ctx, cancel := context.WithCancel(context.Background())
	return &AuthEventBroker{
		redis:  client,
		subs:   make(map[*authSubscriber]struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (b *AuthEventBroker) Publish(ctx context.Context, event AuthEvent) error {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.redis.Publish(ctx, redisclient.AuthEventsChannel, data).Err()
}

// Subscribe delivers events for userID until ctx is done. An empty userID
// receives every event. The channel is closed when the subscription ends.
func (b *AuthEventBroker) Subscribe(ctx context.Context, userID string) <-chan AuthEvent {
	b.once.Do(func() {
		ready := make(chan struct{})
		go b.listen(ready)
		<-ready
	})

	sub := &authSubscriber{userID: userID, events: make(chan AuthEvent, 16)}
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-b.ctx.Done():
		}
		b.mu.Lock()
		if _, ok := b.subs[sub]; ok {
			delete(b.subs, sub)
			close(sub.events)
		}
		b.mu.Unlock()
	}()

	return sub.events
}

func (b *AuthEventBroker) listen(ready chan<- struct{}) {
	pubsub := b.redis.Subscribe(b.ctx, redisclient.AuthEventsChannel)
	defer pubsub.Close()

	// Wait for the subscription to be confirmed so events published right
	// after Subscribe returns are not missed.
	if _, err := pubsub.Receive(b.ctx); err != nil {
		log.Error().Err(err).Msg("auth events subscribe failed")
	}
	close(ready)

	ch := pubsub.Channel()
	for {
		select {
		case <-b.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var event AuthEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Error().Err(err).Msg("failed to unmarshal auth event")
				continue
			}
			b.broadcast(event)
		}
	}
}

func (b *AuthEventBroker) broadcast(event AuthEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs {
		if sub.userID != "" && sub.userID != event.UserID {
			continue
		}
		select {
		case sub.events <- event:
		default:
			log.Warn().Str("userId", event.UserID).Msg("auth event buffer full, dropping event")
		}
	}
}

func (b *AuthEventBroker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *AuthEventBroker) Close() {
	b.cancel()
}
