package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/ishflow/ishflow-backend/internal/modules/notification/domain"
	"github.com/redis/go-redis/v9"
)

const channelPrefix = "notifications:"

func channelFor(userID uuid.UUID) string {
	return channelPrefix + userID.String()
}

func userFromChannel(channel string) (uuid.UUID, error) {
	raw, ok := strings.CutPrefix(channel, channelPrefix)
	if !ok {
		return uuid.Nil, fmt.Errorf("unexpected channel %q", channel)
	}
	return uuid.Parse(raw)
}

// Publisher announces inserted notifications on the owning user's channel.
type Publisher struct {
	client *redis.Client
}

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

func (p *Publisher) Publish(ctx context.Context, n domain.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, channelFor(n.UserID), payload).Err()
}

// Subscriber implements domain.Subscriber on top of redis pub/sub. Each
// Subscribe opens a dedicated PubSub whose lifetime is owned by the
// returned handle.
type Subscriber struct {
	client *redis.Client
}

func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{client: client}
}

func (s *Subscriber) Subscribe(ctx context.Context, userID uuid.UUID, handler func(domain.Notification)) (domain.Subscription, error) {
	pubsub := s.client.Subscribe(ctx, channelFor(userID))
	// Force the SUBSCRIBE round-trip so a dead broker fails here, not
	// silently in the receive loop.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, err
	}

	go func() {
		for msg := range pubsub.Channel() {
			var n domain.Notification
			if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
				log.Printf("[Notification] bad payload on %s: %v", msg.Channel, err)
				continue
			}
			handler(n)
		}
	}()

	return subscription{pubsub: pubsub}, nil
}

type subscription struct {
	pubsub *redis.PubSub
}

func (s subscription) Close() error {
	return s.pubsub.Close()
}

// HubSink is where the bridge delivers payloads; satisfied by the
// websocket hub.
type HubSink interface {
	SendToUser(userID uuid.UUID, payload []byte)
}

// HubBridge pattern-subscribes every user channel and unicasts payloads
// into the local hub, so a notification created on any instance reaches
// the websocket connections held by this one.
type HubBridge struct {
	client *redis.Client
	sink   HubSink
}

func NewHubBridge(client *redis.Client, sink HubSink) *HubBridge {
	return &HubBridge{client: client, sink: sink}
}

// Run blocks relaying messages until ctx is cancelled.
func (b *HubBridge) Run(ctx context.Context) {
	pubsub := b.client.PSubscribe(ctx, channelPrefix+"*")
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			userID, err := userFromChannel(msg.Channel)
			if err != nil {
				log.Printf("[Notification] bridge: %v", err)
				continue
			}
			b.sink.SendToUser(userID, []byte(msg.Payload))
		}
	}
}
