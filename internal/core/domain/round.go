package domain

import (
	"fmt"
)

const (
	UndefinedStage RoundStage = iota
	ActiveStage
	ClosedStage
	DrawingStage
	SettledStage
)

const maxDescriptionLen = 32

type RoundStage int

func (s RoundStage) String() string {
	switch s {
	case ActiveStage:
		return "ACTIVE"
	case ClosedStage:
		return "CLOSED"
	case DrawingStage:
		return "DRAWING"
	case SettledStage:
		return "SETTLED"
	default:
		return "UNDEFINED"
	}
}

type Entry struct {
	Index       uint64
	Participant string
	Token       string
	Amount      uint64
}

type Winner struct {
	Tier        Tier
	Participant string
	EntryIndex  uint64
	ItemId      string
	Delivered   bool
	DeliveryErr string
}

type Round struct {
	Id           uint64
	Deadline     int64
	Description  string
	Stage        RoundStage
	Entries      []Entry
	TreasurySize uint64
	Deposits     map[string]uint64
	RequestId    string
	Fee          uint64
	RandomValue  []byte
	Winners      []Winner
	Withdrawn    bool
	WithdrawnTo  string
	// Withdrawals tracks amounts already sent out of the treasury, per token.
	Withdrawals map[string]uint64
	CreatedAt   int64
	ClosedAt    int64
	SettledAt   int64
	Version     uint
	changes     []Event
}

func NewRound(id uint64, deadline int64, description string, now int64) (*Round, error) {
	if deadline <= now {
		return nil, ErrInvalidDeadline
	}
	if len(description) > maxDescriptionLen {
		return nil, ErrInvalidDescription
	}

	r := &Round{}
	r.raise(RoundCreated{
		Id:          id,
		Deadline:    deadline,
		Description: description,
		Timestamp:   now,
	})
	return r, nil
}

func NewRoundFromEvents(events []Event) *Round {
	r := &Round{}

	for _, event := range events {
		r.On(event)
	}

	r.changes = append([]Event{}, events...)

	return r
}

func (r *Round) Events() []Event {
	return r.changes
}

func (r *Round) On(event Event) {
	switch e := event.(type) {
	case RoundCreated:
		r.Id = e.Id
		r.Deadline = e.Deadline
		r.Description = e.Description
		r.Stage = ActiveStage
		r.CreatedAt = e.Timestamp
		r.Entries = make([]Entry, 0)
		r.Deposits = make(map[string]uint64)
		r.Withdrawals = make(map[string]uint64)
	case EntryRegistered:
		if r.Deposits == nil {
			r.Deposits = make(map[string]uint64)
		}
		r.Entries = append(r.Entries, e.Entry)
		r.TreasurySize++
		r.Deposits[e.Entry.Token] += e.Entry.Amount
	case RoundClosed:
		r.Stage = ClosedStage
		r.ClosedAt = e.Timestamp
	case DrawRequested:
		r.Stage = DrawingStage
		r.RequestId = e.RequestId
		r.Fee = e.Fee
	case RoundSettled:
		r.Stage = SettledStage
		r.RandomValue = append([]byte{}, e.RandomValue...)
		r.Winners = append([]Winner{}, e.Winners...)
		r.SettledAt = e.Timestamp
	case PrizeDelivered:
		if w := r.winner(e.Tier); w != nil {
			w.ItemId = e.ItemId
			w.Delivered = true
			w.DeliveryErr = ""
		}
	case PrizeDeliveryFailed:
		if w := r.winner(e.Tier); w != nil {
			w.DeliveryErr = e.Err
		}
	case TreasuryWithdrawn:
		if r.Withdrawals == nil {
			r.Withdrawals = make(map[string]uint64)
		}
		for token, amount := range e.Amounts {
			r.Withdrawals[token] += amount
		}
		r.Withdrawn = true
		r.WithdrawnTo = e.To
	}

	r.Version++
}

// State returns the stage observed at now: an active round whose deadline
// has passed is reported as closed.
func (r *Round) State(now int64) RoundStage {
	if r.Stage == ActiveStage && now >= r.Deadline {
		return ClosedStage
	}
	return r.Stage
}

func (r *Round) IsSettled() bool {
	return r.Stage == SettledStage
}

func (r *Round) Register(participant, token string, amount uint64, now int64) (*Entry, error) {
	if r.State(now) != ActiveStage {
		return nil, ErrRoundNotActive
	}
	if len(participant) <= 0 || len(token) <= 0 {
		return nil, ErrInvalidAddress
	}

	entry := Entry{
		Index:       r.TreasurySize,
		Participant: participant,
		Token:       token,
		Amount:      amount,
	}
	r.raise(EntryRegistered{Id: r.Id, Entry: entry})

	return &entry, nil
}

// CanRequestDraw reports whether the round may move to drawing at now.
func (r *Round) CanRequestDraw(now int64) error {
	switch r.State(now) {
	case ActiveStage:
		return ErrStillActive
	case DrawingStage:
		return ErrAlreadyDrawing
	case SettledStage:
		return ErrAlreadySettled
	case ClosedStage:
	default:
		return fmt.Errorf("round %d in undefined stage", r.Id)
	}
	if r.TreasurySize == 0 {
		return ErrNoParticipants
	}
	return nil
}

func (r *Round) RequestDraw(requestId string, fee uint64, now int64) ([]Event, error) {
	if err := r.CanRequestDraw(now); err != nil {
		return nil, err
	}
	if len(requestId) <= 0 {
		return nil, fmt.Errorf("missing randomness request id")
	}

	events := make([]Event, 0, 2)
	if r.Stage != ClosedStage {
		events = append(events, RoundClosed{Id: r.Id, Timestamp: now})
	}
	events = append(events, DrawRequested{
		Id:        r.Id,
		RequestId: requestId,
		Fee:       fee,
		Timestamp: now,
	})
	for _, event := range events {
		r.raise(event)
	}

	return events, nil
}

// Settle fixes the winners of a drawing round from the given random value.
func (r *Round) Settle(randomValue []byte, now int64) (*RoundSettled, error) {
	if r.Stage != DrawingStage {
		return nil, ErrNotDrawing
	}
	if len(randomValue) <= 0 {
		return nil, fmt.Errorf("missing random value")
	}

	event := RoundSettled{
		Id:          r.Id,
		RandomValue: append([]byte{}, randomValue...),
		Winners:     ResolveWinners(randomValue, r.Entries),
		Timestamp:   now,
	}
	r.raise(event)

	return &event, nil
}

// SettleEmpty settles an expired round with no entries without drawing.
func (r *Round) SettleEmpty(now int64) ([]Event, error) {
	switch r.State(now) {
	case ActiveStage:
		return nil, ErrStillActive
	case DrawingStage:
		return nil, ErrAlreadyDrawing
	case SettledStage:
		return nil, ErrAlreadySettled
	}
	if r.TreasurySize > 0 {
		return nil, ErrRoundNotEmpty
	}

	events := make([]Event, 0, 2)
	if r.Stage != ClosedStage {
		events = append(events, RoundClosed{Id: r.Id, Timestamp: now})
	}
	events = append(events, RoundSettled{
		Id:        r.Id,
		Winners:   []Winner{},
		Timestamp: now,
	})
	for _, event := range events {
		r.raise(event)
	}

	return events, nil
}

func (r *Round) RecordDelivery(tier Tier, itemId string) (Event, error) {
	w, err := r.settledWinner(tier)
	if err != nil {
		return nil, err
	}
	event := PrizeDelivered{
		Id:        r.Id,
		Tier:      tier,
		Recipient: w.Participant,
		ItemId:    itemId,
	}
	r.raise(event)
	return event, nil
}

func (r *Round) RecordDeliveryFailure(tier Tier, cause error) (Event, error) {
	w, err := r.settledWinner(tier)
	if err != nil {
		return nil, err
	}
	event := PrizeDeliveryFailed{
		Id:        r.Id,
		Tier:      tier,
		Recipient: w.Participant,
		Err:       cause.Error(),
	}
	r.raise(event)
	return event, nil
}

// PendingDeliveries returns the winners whose prize item has not been
// delivered yet.
func (r *Round) PendingDeliveries() []Winner {
	pending := make([]Winner, 0)
	for _, w := range r.Winners {
		if !w.Delivered {
			pending = append(pending, w)
		}
	}
	return pending
}

func (r *Round) CanWithdraw() error {
	if r.Stage != SettledStage {
		return ErrRoundNotSettled
	}
	if r.Withdrawn {
		return ErrAlreadyWithdrawn
	}
	return nil
}

// PendingWithdrawals returns, per token, the escrowed amount not sent out yet.
func (r *Round) PendingWithdrawals() map[string]uint64 {
	pending := make(map[string]uint64)
	for token, amount := range r.Deposits {
		if sent := r.Withdrawals[token]; amount > sent {
			pending[token] = amount - sent
		}
	}
	return pending
}

// RecordPartialWithdrawal keeps track of a treasury transfer that succeeded
// while others of the same withdrawal failed.
func (r *Round) RecordPartialWithdrawal(token string, amount uint64) {
	if r.Withdrawals == nil {
		r.Withdrawals = make(map[string]uint64)
	}
	r.Withdrawals[token] += amount
}

func (r *Round) Withdraw(to string, amounts map[string]uint64, now int64) (Event, error) {
	if err := r.CanWithdraw(); err != nil {
		return nil, err
	}
	event := TreasuryWithdrawn{
		Id:        r.Id,
		To:        to,
		Amounts:   amounts,
		Timestamp: now,
	}
	r.raise(event)
	return event, nil
}

// Clone returns a deep copy of the round without its uncommitted events.
func (r *Round) Clone() *Round {
	c := *r
	c.Entries = append([]Entry{}, r.Entries...)
	c.Winners = append([]Winner{}, r.Winners...)
	c.RandomValue = append([]byte{}, r.RandomValue...)
	c.Deposits = make(map[string]uint64, len(r.Deposits))
	for k, v := range r.Deposits {
		c.Deposits[k] = v
	}
	c.Withdrawals = make(map[string]uint64, len(r.Withdrawals))
	for k, v := range r.Withdrawals {
		c.Withdrawals[k] = v
	}
	c.changes = nil
	return &c
}

func (r *Round) winner(tier Tier) *Winner {
	for i := range r.Winners {
		if r.Winners[i].Tier == tier {
			return &r.Winners[i]
		}
	}
	return nil
}

func (r *Round) settledWinner(tier Tier) (*Winner, error) {
	if r.Stage != SettledStage {
		return nil, ErrRoundNotSettled
	}
	w := r.winner(tier)
	if w == nil {
		return nil, fmt.Errorf("no winner for tier %s in round %d", tier, r.Id)
	}
	return w, nil
}

func (r *Round) raise(event Event) {
	if r.changes == nil {
		r.changes = make([]Event, 0)
	}
	r.changes = append(r.changes, event)
	r.On(event)
}
