package domain

import "context"

type RoundRepository interface {
	AddOrUpdateRound(ctx context.Context, round Round) error
	GetRoundWithId(ctx context.Context, id uint64) (*Round, error)
	GetRoundWithRequestId(ctx context.Context, requestId string) (*Round, error)
	GetLatestRound(ctx context.Context) (*Round, error)
	GetRoundIds(ctx context.Context) ([]uint64, error)
	Close()
}
