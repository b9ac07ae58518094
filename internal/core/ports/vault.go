package ports

import (
	"context"

	"github.com/ark-network/giveaway/internal/core/domain"
)

// PrizeVault holds the prize items of one tier. Only the engine is allowed to
// move items out of it.
type PrizeVault interface {
	Tier() domain.Tier
	TransferPrizeItem(ctx context.Context, recipient string) (string, error)
	Remaining(ctx context.Context) (int, error)
}
