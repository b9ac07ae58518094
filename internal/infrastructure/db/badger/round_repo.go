package badgerdb

import (
	"context"
	"fmt"

	"github.com/ark-network/giveaway/internal/core/domain"
	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"
)

const roundStoreDir = "rounds"

type roundRepository struct {
	store *badgerhold.Store
}

func NewRoundRepository(config ...interface{}) (domain.RoundRepository, error) {
	store, err := openStore(roundStoreDir, config...)
	if err != nil {
		return nil, fmt.Errorf("failed to open round store: %s", err)
	}
	return &roundRepository{store}, nil
}

func (r *roundRepository) AddOrUpdateRound(
	ctx context.Context, round domain.Round,
) error {
	return r.addOrUpdateRound(ctx, round)
}

func (r *roundRepository) GetRoundWithId(
	ctx context.Context, id uint64,
) (*domain.Round, error) {
	query := badgerhold.Where("Id").Eq(id)
	rounds, err := r.findRound(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(rounds) <= 0 {
		return nil, fmt.Errorf("%w: round with id %d", domain.ErrRoundNotFound, id)
	}
	return &rounds[0], nil
}

func (r *roundRepository) GetRoundWithRequestId(
	ctx context.Context, requestId string,
) (*domain.Round, error) {
	query := badgerhold.Where("RequestId").Eq(requestId)
	rounds, err := r.findRound(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(rounds) <= 0 {
		return nil, fmt.Errorf(
			"%w: round with request id %s", domain.ErrRoundNotFound, requestId,
		)
	}
	return &rounds[0], nil
}

func (r *roundRepository) GetLatestRound(ctx context.Context) (*domain.Round, error) {
	query := (&badgerhold.Query{}).SortBy("Id").Reverse().Limit(1)
	rounds, err := r.findRound(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(rounds) <= 0 {
		return nil, nil
	}
	return &rounds[0], nil
}

func (r *roundRepository) GetRoundIds(ctx context.Context) ([]uint64, error) {
	rounds, err := r.findRound(ctx, (&badgerhold.Query{}).SortBy("Id"))
	if err != nil {
		return nil, err
	}

	ids := make([]uint64, 0, len(rounds))
	for _, round := range rounds {
		ids = append(ids, round.Id)
	}
	return ids, nil
}

func (r *roundRepository) Close() {
	r.store.Close()
}

func (r *roundRepository) findRound(
	ctx context.Context, query *badgerhold.Query,
) ([]domain.Round, error) {
	var rounds []domain.Round
	var err error

	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		err = r.store.TxFind(tx, &rounds, query)
	} else {
		err = r.store.Find(&rounds, query)
	}

	return rounds, err
}

func (r *roundRepository) addOrUpdateRound(
	ctx context.Context, round domain.Round,
) (err error) {
	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		err = r.store.TxUpsert(tx, round.Id, round)
	} else {
		err = r.store.Upsert(round.Id, round)
	}
	return
}
