package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/ark-network/giveaway/internal/core/domain"
	"github.com/ark-network/giveaway/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

// roundRegistry owns every round record. The latest round, the only one that
// can be active or drawing, is kept in the live store as the current round.
type roundRegistry struct {
	repoManager ports.RepoManager
	current     ports.CurrentRoundStore
}

func newRoundRegistry(
	repoManager ports.RepoManager, liveStore ports.LiveStore,
) *roundRegistry {
	return &roundRegistry{repoManager, liveStore.CurrentRound()}
}

func (r *roundRegistry) restore(ctx context.Context) error {
	latest, err := r.repoManager.Rounds().GetLatestRound(ctx)
	if err != nil {
		return fmt.Errorf("failed to get latest round: %w", err)
	}
	if latest == nil {
		return nil
	}
	return r.current.Upsert(func(_ *domain.Round) *domain.Round {
		return latest.Clone()
	})
}

// currentRoundId returns the id of the latest round, if any.
func (r *roundRegistry) currentRoundId(ctx context.Context) (uint64, bool, error) {
	latest, err := r.latest(ctx)
	if err != nil {
		return 0, false, err
	}
	if latest == nil {
		return 0, false, nil
	}
	return latest.Id, true, nil
}

// latest returns a private copy of the latest round, nil if none exists.
func (r *roundRegistry) latest(ctx context.Context) (*domain.Round, error) {
	if round := r.current.Get(); round != nil {
		return round.Clone(), nil
	}
	round, err := r.repoManager.Rounds().GetLatestRound(ctx)
	if err != nil {
		return nil, err
	}
	if round == nil {
		return nil, nil
	}
	return round.Clone(), nil
}

func (r *roundRegistry) get(ctx context.Context, id uint64) (*domain.Round, error) {
	if round := r.current.Get(); round != nil && round.Id == id {
		return round.Clone(), nil
	}
	round, err := r.repoManager.Rounds().GetRoundWithId(ctx, id)
	if err != nil {
		return nil, err
	}
	return round.Clone(), nil
}

func (r *roundRegistry) getByRequest(ctx context.Context, requestId string) (*domain.Round, error) {
	if len(requestId) <= 0 {
		return nil, domain.ErrUnknownRequest
	}
	if round := r.current.Get(); round != nil && round.RequestId == requestId {
		return round.Clone(), nil
	}
	round, err := r.repoManager.Rounds().GetRoundWithRequestId(ctx, requestId)
	if err != nil {
		if errors.Is(err, domain.ErrRoundNotFound) {
			return nil, domain.ErrUnknownRequest
		}
		return nil, err
	}
	return round.Clone(), nil
}

func (r *roundRegistry) nextId(ctx context.Context) (uint64, error) {
	id, ok, err := r.currentRoundId(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 1, nil
	}
	return id + 1, nil
}

// save persists the round, refreshes the current round and publishes the
// round's uncommitted events.
func (r *roundRegistry) save(ctx context.Context, round *domain.Round) error {
	if err := r.repoManager.Rounds().AddOrUpdateRound(ctx, *round); err != nil {
		return fmt.Errorf("failed to store round %d: %w", round.Id, err)
	}

	snapshot := round.Clone()
	if err := r.current.Upsert(func(current *domain.Round) *domain.Round {
		if current != nil && current.Id > snapshot.Id {
			return current
		}
		return snapshot
	}); err != nil {
		log.WithError(err).Warnf("failed to cache round %d", round.Id)
	}

	if events := round.Events(); len(events) > 0 {
		if err := r.repoManager.Events().Save(
			ctx, domain.RoundTopic, strconv.FormatUint(round.Id, 10), events,
		); err != nil {
			log.WithError(err).Warnf("failed to publish events of round %d", round.Id)
		}
	}
	return nil
}

func (r *roundRegistry) list(ctx context.Context) ([]*domain.Round, error) {
	ids, err := r.repoManager.Rounds().GetRoundIds(ctx)
	if err != nil {
		return nil, err
	}
	rounds := make([]*domain.Round, 0, len(ids))
	for _, id := range ids {
		round, err := r.get(ctx, id)
		if err != nil {
			return nil, err
		}
		rounds = append(rounds, round)
	}
	return rounds, nil
}
