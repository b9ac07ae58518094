package watermilldb

import (
	"context"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/ark-network/giveaway/internal/core/domain"
	log "github.com/sirupsen/logrus"
)

const outputChannelBuffer = 256

type eventRepository struct {
	publisher  message.Publisher
	subscriber message.Subscriber

	subscriptions  map[string][]context.CancelFunc // topic -> subscriptions
	subscriberLock *sync.Mutex
}

// NewEventRepository returns an in-process event bus backed by a watermill
// go channel. The optional config is a watermill.LoggerAdapter.
func NewEventRepository(config ...interface{}) (domain.EventRepository, error) {
	var logger watermill.LoggerAdapter = watermill.NewStdLogger(false, false)
	if len(config) > 0 && config[0] != nil {
		l, ok := config[0].(watermill.LoggerAdapter)
		if !ok {
			return nil, fmt.Errorf("invalid logger")
		}
		logger = l
	}

	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer:            outputChannelBuffer,
		BlockPublishUntilSubscriberAck: true,
	}, logger)
	return NewWatermillEventRepository(pubsub, pubsub), nil
}

func NewWatermillEventRepository(
	publisher message.Publisher, subscriber message.Subscriber,
) domain.EventRepository {
	return &eventRepository{
		publisher:      publisher,
		subscriber:     subscriber,
		subscriptions:  make(map[string][]context.CancelFunc),
		subscriberLock: &sync.Mutex{},
	}
}

func (e *eventRepository) ClearRegisteredHandlers(topics ...string) {
	e.subscriberLock.Lock()
	defer e.subscriberLock.Unlock()

	if len(topics) == 0 {
		for topic := range e.subscriptions {
			topics = append(topics, topic)
		}
	}

	for _, topic := range topics {
		for _, cancel := range e.subscriptions[topic] {
			cancel()
		}
		delete(e.subscriptions, topic)
	}
}

func (e *eventRepository) Close() {
	e.ClearRegisteredHandlers()
	//nolint:errcheck
	e.publisher.Close()
	if interface{}(e.subscriber) != interface{}(e.publisher) {
		//nolint:errcheck
		e.subscriber.Close()
	}
}

func (e *eventRepository) RegisterEventsHandler(topic string, handler func(events []domain.Event)) {
	e.subscriberLock.Lock()
	defer e.subscriberLock.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	messages, err := e.subscriber.Subscribe(ctx, topic)
	if err != nil {
		cancel()
		log.WithError(err).Warnf("failed to subscribe to %s events", topic)
		return
	}

	e.subscriptions[topic] = append(e.subscriptions[topic], cancel)

	go func() {
		for msg := range messages {
			// ack first, Save blocks until every subscriber acks
			msg.Ack()

			event, err := fromWatermillMessage(msg)
			if err != nil {
				log.WithError(err).Warnf("dropped malformed %s event", topic)
				continue
			}
			handler([]domain.Event{event})
		}
	}()
}

func (e *eventRepository) Save(
	_ context.Context, topic string, id string, events []domain.Event,
) error {
	if len(events) <= 0 {
		return nil
	}

	watermillMessages, err := toWatermillMessages(events)
	if err != nil {
		return err
	}
	for _, msg := range watermillMessages {
		msg.Metadata.Set("id", id)
	}

	return e.publisher.Publish(topic, watermillMessages...)
}
