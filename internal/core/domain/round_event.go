package domain

const RoundTopic = "round"

func (e RoundCreated) GetTopic() string        { return RoundTopic }
func (e EntryRegistered) GetTopic() string     { return RoundTopic }
func (e RoundClosed) GetTopic() string         { return RoundTopic }
func (e DrawRequested) GetTopic() string       { return RoundTopic }
func (e RoundSettled) GetTopic() string        { return RoundTopic }
func (e PrizeDelivered) GetTopic() string      { return RoundTopic }
func (e PrizeDeliveryFailed) GetTopic() string { return RoundTopic }
func (e TreasuryWithdrawn) GetTopic() string   { return RoundTopic }

func (e TokenAllowanceChanged) GetTopic() string { return TokenTopic }

func (e RoundCreated) GetType() EventType        { return EventTypeRoundCreated }
func (e EntryRegistered) GetType() EventType     { return EventTypeEntryRegistered }
func (e RoundClosed) GetType() EventType         { return EventTypeRoundClosed }
func (e DrawRequested) GetType() EventType       { return EventTypeDrawRequested }
func (e RoundSettled) GetType() EventType        { return EventTypeRoundSettled }
func (e PrizeDelivered) GetType() EventType      { return EventTypePrizeDelivered }
func (e PrizeDeliveryFailed) GetType() EventType { return EventTypePrizeDeliveryFailed }
func (e TreasuryWithdrawn) GetType() EventType   { return EventTypeTreasuryWithdrawn }

func (e TokenAllowanceChanged) GetType() EventType { return EventTypeTokenAllowanceChanged }

type RoundCreated struct {
	Id          uint64
	Deadline    int64
	Description string
	Timestamp   int64
}

type EntryRegistered struct {
	Id    uint64
	Entry Entry
}

type RoundClosed struct {
	Id        uint64
	Timestamp int64
}

type DrawRequested struct {
	Id        uint64
	RequestId string
	Fee       uint64
	Timestamp int64
}

type RoundSettled struct {
	Id          uint64
	RandomValue []byte
	Winners     []Winner
	Timestamp   int64
}

type PrizeDelivered struct {
	Id        uint64
	Tier      Tier
	Recipient string
	ItemId    string
}

type PrizeDeliveryFailed struct {
	Id        uint64
	Tier      Tier
	Recipient string
	Err       string
}

type TreasuryWithdrawn struct {
	Id        uint64
	To        string
	Amounts   map[string]uint64
	Timestamp int64
}

type TokenAllowanceChanged struct {
	Token     string
	Allowed   bool
	Timestamp int64
}
