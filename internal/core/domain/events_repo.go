package domain

import "context"

type EventType int

const (
	EventTypeUndefined EventType = iota

	// Round
	EventTypeRoundCreated
	EventTypeEntryRegistered
	EventTypeRoundClosed
	EventTypeDrawRequested
	EventTypeRoundSettled
	EventTypePrizeDelivered
	EventTypePrizeDeliveryFailed
	EventTypeTreasuryWithdrawn
)

const (
	// Token
	EventTypeTokenAllowanceChanged EventType = iota + 100
)

func (t EventType) String() string {
	switch t {
	case EventTypeRoundCreated:
		return "round_created"
	case EventTypeEntryRegistered:
		return "entry_registered"
	case EventTypeRoundClosed:
		return "round_closed"
	case EventTypeDrawRequested:
		return "draw_requested"
	case EventTypeRoundSettled:
		return "round_settled"
	case EventTypePrizeDelivered:
		return "prize_delivered"
	case EventTypePrizeDeliveryFailed:
		return "prize_delivery_failed"
	case EventTypeTreasuryWithdrawn:
		return "treasury_withdrawn"
	case EventTypeTokenAllowanceChanged:
		return "token_allowance_changed"
	default:
		return "undefined"
	}
}

type Event interface {
	GetTopic() string
	GetType() EventType
}

type EventRepository interface {
	Save(ctx context.Context, topic, id string, events []Event) error
	RegisterEventsHandler(topic string, handler func(events []Event))
	ClearRegisteredHandlers(topic ...string)
	Close()
}
