package application

import (
	"context"

	"github.com/ark-network/giveaway/internal/core/domain"
	"github.com/ark-network/giveaway/internal/core/ports"
)

type Service interface {
	Start() error
	Stop()
	Participate(
		ctx context.Context, caller, token string, amount uint64,
	) (*domain.Entry, error)
	CloseAndRequestDraw(ctx context.Context, caller string, roundId uint64) (string, error)
	FulfillRandomness(ctx context.Context, caller string, f ports.Fulfillment) error
	GetLatestRound(ctx context.Context) (*RoundInfo, error)
	GetRound(ctx context.Context, roundId uint64) (*RoundInfo, error)
	IsTokenAllowed(ctx context.Context, token string) (bool, error)
	GetInfo(ctx context.Context) (*ServiceInfo, error)
}

type AdminService interface {
	CreateRound(
		ctx context.Context, caller string, deadline int64, description string,
	) (uint64, error)
	SetAllowedToken(ctx context.Context, caller, token string, allowed bool) error
	WithdrawTreasury(
		ctx context.Context, caller string, roundId uint64, to string,
	) (map[string]uint64, error)
	CloseEmptyRound(ctx context.Context, caller string, roundId uint64) error
	RetryPrizeDelivery(
		ctx context.Context, caller string, roundId uint64,
	) ([]DeliveryResult, error)
	ListRounds(ctx context.Context, caller string) ([]RoundInfo, error)
	ListAllowedTokens(ctx context.Context, caller string) ([]domain.AllowedToken, error)
}

// Addresses are the identities the engine works with.
type Addresses struct {
	Engine     string
	Admin      string
	FeeAccount string
}

type RoundInfo struct {
	Id           uint64
	Deadline     int64
	Description  string
	State        domain.RoundStage
	TreasurySize uint64
	Participants []domain.Entry
	Deposits     map[string]uint64
	RequestId    string
	Winners      []domain.Winner
	Withdrawn    bool
	CreatedAt    int64
	SettledAt    int64
}

func newRoundInfo(round *domain.Round, now int64) *RoundInfo {
	deposits := make(map[string]uint64, len(round.Deposits))
	for token, amount := range round.Deposits {
		deposits[token] = amount
	}
	return &RoundInfo{
		Id:           round.Id,
		Deadline:     round.Deadline,
		Description:  round.Description,
		State:        round.State(now),
		TreasurySize: round.TreasurySize,
		Participants: append([]domain.Entry{}, round.Entries...),
		Deposits:     deposits,
		RequestId:    round.RequestId,
		Winners:      append([]domain.Winner{}, round.Winners...),
		Withdrawn:    round.Withdrawn,
		CreatedAt:    round.CreatedAt,
		SettledAt:    round.SettledAt,
	}
}

type ServiceInfo struct {
	EngineAddress string
	AdminAddress  string
	OracleAddress string
	OracleFee     uint64
	FeeToken      string
	Vaults        []VaultInfo
}

type VaultInfo struct {
	Tier      domain.Tier
	Remaining int
}

type DeliveryResult struct {
	Tier      domain.Tier
	Recipient string
	ItemId    string
	Err       string
}
