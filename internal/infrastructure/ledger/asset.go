package ledger

import (
	"context"
	"fmt"

	"github.com/ark-network/giveaway/internal/core/domain"
	"github.com/ark-network/giveaway/internal/core/ports"
)

type assetProvider struct {
	ledger  *Ledger
	spender string
}

// NewAssetProvider returns handles to the ledger tokens that act on behalf
// of the given spender, usually the engine account.
func NewAssetProvider(ledger *Ledger, spender string) (ports.AssetProvider, error) {
	addr, err := domain.NormalizeAddress(spender)
	if err != nil {
		return nil, fmt.Errorf("invalid spender: %w", err)
	}
	return &assetProvider{ledger, addr}, nil
}

func (p *assetProvider) Asset(_ context.Context, token string) (ports.FungibleAsset, error) {
	addr, err := domain.NormalizeAddress(token)
	if err != nil {
		return nil, err
	}

	p.ledger.lock.RLock()
	_, ok := p.ledger.tokens[addr]
	p.ledger.lock.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %s", ErrUnknownToken, addr)
	}

	return &asset{p.ledger, addr, p.spender}, nil
}

type asset struct {
	ledger  *Ledger
	token   string
	spender string
}

func (a *asset) Address() string {
	return a.token
}

func (a *asset) TransferFrom(
	_ context.Context, owner, recipient string, amount uint64,
) error {
	return a.ledger.transferFrom(a.token, a.spender, owner, recipient, amount)
}

func (a *asset) Transfer(_ context.Context, recipient string, amount uint64) error {
	return a.ledger.transfer(a.token, a.spender, recipient, amount)
}

func (a *asset) BalanceOf(ctx context.Context, owner string) (uint64, error) {
	return a.ledger.BalanceOf(ctx, a.token, owner)
}
