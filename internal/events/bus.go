// Package events fans display events out from chat controllers to the
// page connections subscribed to a session.
package events

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	rstream "github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/strombreaker/widget/internal/logging"
	chatService "github.com/zhouzirui/strombreaker/widget/internal/service/chat"
)

const metadataEventType = "event_type"

// Config selects the transport. An empty RedisAddr keeps events in process.
type Config struct {
	RedisAddr  string
	RedisGroup string
}

// Bus publishes controller events per session topic.
type Bus struct {
	publisher message.Publisher
	subscribe func(ctx context.Context, topic string) (<-chan *message.Message, error)
	closers   []func() error
}

// Topic returns the topic carrying a session's events.
func Topic(sessionID string) string { return "widget:" + sessionID }

// NewBus builds an in-process bus, or a Redis Streams bus when cfg.RedisAddr is set.
func NewBus(cfg Config) (*Bus, error) {
	logger := logging.Watermill(log.Logger.With().Str("component", "events").Logger())

	if strings.TrimSpace(cfg.RedisAddr) == "" {
		// Publish waits for every subscriber's ack so events arrive in emit order
		ch := gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer:            256,
			BlockPublishUntilSubscriberAck: true,
		}, logger)
		return &Bus{
			publisher: ch,
			subscribe: ch.Subscribe,
			closers:   []func() error{ch.Close},
		}, nil
	}

	return newRedisBus(cfg, logger)
}

func newRedisBus(cfg Config, logger watermill.LoggerAdapter) (*Bus, error) {
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	marshaler := rstream.DefaultMarshallerUnmarshaller{}

	pub, err := rstream.NewPublisher(rstream.PublisherConfig{
		Client:     client,
		Marshaller: marshaler,
	}, logger)
	if err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "events: redis publisher")
	}

	group := cfg.RedisGroup
	if group == "" {
		group = "widget"
	}

	// every page connection reads the whole stream, so each one gets its own
	// consumer group positioned at the tail
	subscribe := func(ctx context.Context, topic string) (<-chan *message.Message, error) {
		consumer := watermill.NewShortUUID()
		sub, err := rstream.NewSubscriber(rstream.SubscriberConfig{
			Client:        client,
			Unmarshaller:  marshaler,
			ConsumerGroup: group + ":" + consumer,
			Consumer:      consumer,
			OldestId:      "$",
		}, logger)
		if err != nil {
			return nil, errors.Wrap(err, "events: redis subscriber")
		}
		ch, err := sub.Subscribe(ctx, topic)
		if err != nil {
			_ = sub.Close()
			return nil, err
		}
		go func() {
			<-ctx.Done()
			if err := sub.Close(); err != nil {
				log.Warn().Err(err).Str("component", "events").Str("topic", topic).Msg("subscriber close failed")
			}
		}()
		return ch, nil
	}

	log.Info().Str("component", "events").Str("addr", cfg.RedisAddr).Str("group", group).Msg("using redis streams")
	return &Bus{
		publisher: pub,
		subscribe: subscribe,
		closers:   []func() error{pub.Close, client.Close},
	}, nil
}

// Publish sends one event to its session topic.
func (b *Bus) Publish(ev chatService.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "events: encode")
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(metadataEventType, string(ev.Type))
	return b.publisher.Publish(Topic(ev.SessionID), msg)
}

// Subscribe streams the events of a session until ctx is done. Only events
// published after the call are delivered.
func (b *Bus) Subscribe(ctx context.Context, sessionID string) (<-chan chatService.Event, error) {
	messages, err := b.subscribe(ctx, Topic(sessionID))
	if err != nil {
		return nil, err
	}

	out := make(chan chatService.Event, 64)
	go func() {
		defer close(out)
		for msg := range messages {
			var ev chatService.Event
			if err := json.Unmarshal(msg.Payload, &ev); err != nil {
				log.Warn().Err(err).Str("component", "events").Str("session_id", sessionID).Msg("dropping undecodable event")
				msg.Ack()
				continue
			}
			msg.Ack()
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Sink returns a listener publishing a controller's events on the bus.
func (b *Bus) Sink() chatService.Listener {
	return chatService.ListenerFunc(func(ev chatService.Event) {
		if err := b.Publish(ev); err != nil {
			log.Warn().Err(err).Str("component", "events").Str("session_id", ev.SessionID).Str("type", string(ev.Type)).Msg("publish failed")
		}
	})
}

// Close releases the transport.
func (b *Bus) Close() error {
	var first error
	for _, closeFn := range b.closers {
		if err := closeFn(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
