package redislivestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ark-network/giveaway/internal/core/domain"
	"github.com/ark-network/giveaway/internal/core/ports"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const currentRoundKey = "currentRoundStore:round"

type currentRoundStore struct {
	rdb          *redis.Client
	numOfRetries int
}

func NewCurrentRoundStore(rdb *redis.Client, numOfRetries int) ports.CurrentRoundStore {
	if numOfRetries <= 0 {
		numOfRetries = 1
	}
	return &currentRoundStore{rdb: rdb, numOfRetries: numOfRetries}
}

func (s *currentRoundStore) Upsert(fn func(m *domain.Round) *domain.Round) error {
	ctx := context.Background()

	var err error
	for attempt := 0; attempt < s.numOfRetries; attempt++ {
		err = s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			var round *domain.Round
			data, err := tx.Get(ctx, currentRoundKey).Bytes()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			if err == nil {
				var r domain.Round
				if err := json.Unmarshal(data, &r); err == nil {
					round = &r
				}
			}

			updated := fn(round)
			val, err := json.Marshal(updated)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, currentRoundKey, val, 0)
				return nil
			})
			return err
		}, currentRoundKey)
		if err == nil {
			return nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	return fmt.Errorf("failed to update current round: %w", err)
}

func (s *currentRoundStore) Get() *domain.Round {
	ctx := context.Background()
	data, err := s.rdb.Get(ctx, currentRoundKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.WithError(err).Warn("failed to get current round")
		}
		return nil
	}
	var round domain.Round
	if err := json.Unmarshal(data, &round); err != nil {
		return nil
	}
	// a null payload marks a cleared store
	if round.Id == 0 {
		return nil
	}
	return &round
}
