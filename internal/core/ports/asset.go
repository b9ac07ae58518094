package ports

import "context"

// FungibleAsset is a handle on a fungible token bound to the engine as
// spender and sender.
type FungibleAsset interface {
	Address() string
	TransferFrom(ctx context.Context, owner, recipient string, amount uint64) error
	Transfer(ctx context.Context, recipient string, amount uint64) error
	BalanceOf(ctx context.Context, owner string) (uint64, error)
}

type AssetProvider interface {
	Asset(ctx context.Context, token string) (FungibleAsset, error)
}
