package inmemorylivestore

import (
	"sync"

	"github.com/ark-network/giveaway/internal/core/domain"
	"github.com/ark-network/giveaway/internal/core/ports"
)

func NewLiveStore() ports.LiveStore {
	return &inMemoryLiveStore{
		currentRoundStore: NewCurrentRoundStore(),
	}
}

func (s *inMemoryLiveStore) CurrentRound() ports.CurrentRoundStore { return s.currentRoundStore }

type inMemoryLiveStore struct {
	currentRoundStore ports.CurrentRoundStore
}

type currentRoundStore struct {
	lock  sync.RWMutex
	round *domain.Round
}

func NewCurrentRoundStore() ports.CurrentRoundStore {
	return &currentRoundStore{}
}

func (s *currentRoundStore) Upsert(fn func(m *domain.Round) *domain.Round) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.round = fn(s.round)
	return nil
}

func (s *currentRoundStore) Get() *domain.Round {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.round
}
