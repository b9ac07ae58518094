package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/ark-network/giveaway/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

const tokenStoreDir = "tokens"

type allowedTokenRepository struct {
	store *badgerhold.Store
}

func NewAllowedTokenRepository(config ...interface{}) (domain.AllowedTokenRepository, error) {
	store, err := openStore(tokenStoreDir, config...)
	if err != nil {
		return nil, fmt.Errorf("failed to open allowed token store: %s", err)
	}
	return &allowedTokenRepository{store}, nil
}

func (r *allowedTokenRepository) Upsert(_ context.Context, token domain.AllowedToken) error {
	return r.store.Upsert(token.Token, token)
}

func (r *allowedTokenRepository) Get(
	_ context.Context, token string,
) (*domain.AllowedToken, error) {
	var allowedToken domain.AllowedToken
	if err := r.store.Get(token, &allowedToken); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &allowedToken, nil
}

func (r *allowedTokenRepository) List(_ context.Context) ([]domain.AllowedToken, error) {
	var tokens []domain.AllowedToken
	if err := r.store.Find(&tokens, nil); err != nil {
		return nil, err
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i].Token < tokens[j].Token })
	return tokens, nil
}

func (r *allowedTokenRepository) Close() {
	r.store.Close()
}
