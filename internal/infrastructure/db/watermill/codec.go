package watermilldb

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ark-network/giveaway/internal/core/domain"
)

const eventTypeKey = "event_type"

func toWatermillMessages(events []domain.Event) ([]*message.Message, error) {
	watermillMessages := make([]*message.Message, 0, len(events))
	for _, event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s event: %w", event.GetType(), err)
		}

		msg := message.NewMessage(watermill.NewUUID(), payload)
		msg.Metadata.Set(eventTypeKey, strconv.Itoa(int(event.GetType())))
		watermillMessages = append(watermillMessages, msg)
	}

	return watermillMessages, nil
}

func fromWatermillMessage(msg *message.Message) (domain.Event, error) {
	rawType := msg.Metadata.Get(eventTypeKey)
	t, err := strconv.Atoi(rawType)
	if err != nil {
		return nil, fmt.Errorf("invalid event type %q", rawType)
	}

	switch eventType := domain.EventType(t); eventType {
	case domain.EventTypeRoundCreated:
		return decode[domain.RoundCreated](msg.Payload)
	case domain.EventTypeEntryRegistered:
		return decode[domain.EntryRegistered](msg.Payload)
	case domain.EventTypeRoundClosed:
		return decode[domain.RoundClosed](msg.Payload)
	case domain.EventTypeDrawRequested:
		return decode[domain.DrawRequested](msg.Payload)
	case domain.EventTypeRoundSettled:
		return decode[domain.RoundSettled](msg.Payload)
	case domain.EventTypePrizeDelivered:
		return decode[domain.PrizeDelivered](msg.Payload)
	case domain.EventTypePrizeDeliveryFailed:
		return decode[domain.PrizeDeliveryFailed](msg.Payload)
	case domain.EventTypeTreasuryWithdrawn:
		return decode[domain.TreasuryWithdrawn](msg.Payload)
	case domain.EventTypeTokenAllowanceChanged:
		return decode[domain.TokenAllowanceChanged](msg.Payload)
	default:
		return nil, fmt.Errorf("unknown event type %d", t)
	}
}

func decode[T domain.Event](payload []byte) (domain.Event, error) {
	var event T
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, err
	}
	return event, nil
}
