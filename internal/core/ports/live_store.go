package ports

import "github.com/ark-network/giveaway/internal/core/domain"

type LiveStore interface {
	CurrentRound() CurrentRoundStore
}

// CurrentRoundStore caches the latest round, the one that may still be
// active or drawing.
type CurrentRoundStore interface {
	Upsert(fn func(r *domain.Round) *domain.Round) error
	Get() *domain.Round
}
