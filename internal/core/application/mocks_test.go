package application_test

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ark-network/giveaway/internal/core/domain"
	"github.com/ark-network/giveaway/internal/core/ports"
	"github.com/stretchr/testify/mock"
)

type mockedAsset struct {
	mock.Mock
	address string
}

func (m *mockedAsset) Address() string {
	return m.address
}

func (m *mockedAsset) TransferFrom(
	ctx context.Context, owner, recipient string, amount uint64,
) error {
	args := m.Called(ctx, owner, recipient, amount)
	return args.Error(0)
}

func (m *mockedAsset) Transfer(ctx context.Context, recipient string, amount uint64) error {
	args := m.Called(ctx, recipient, amount)
	return args.Error(0)
}

func (m *mockedAsset) BalanceOf(ctx context.Context, owner string) (uint64, error) {
	args := m.Called(ctx, owner)

	var res uint64
	if a := args.Get(0); a != nil {
		res = a.(uint64)
	}
	return res, args.Error(1)
}

type mockedAssetProvider struct {
	assets map[string]ports.FungibleAsset
}

func (m *mockedAssetProvider) Asset(_ context.Context, token string) (ports.FungibleAsset, error) {
	asset, ok := m.assets[token]
	if !ok {
		return nil, fmt.Errorf("unknown asset %s", token)
	}
	return asset, nil
}

type mockedVault struct {
	mock.Mock
	tier domain.Tier
}

func (m *mockedVault) Tier() domain.Tier {
	return m.tier
}

func (m *mockedVault) TransferPrizeItem(ctx context.Context, recipient string) (string, error) {
	args := m.Called(ctx, recipient)
	return args.String(0), args.Error(1)
}

func (m *mockedVault) Remaining(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type mockedOracle struct {
	mock.Mock
	address string
}

func (m *mockedOracle) Address() string {
	return m.address
}

func (m *mockedOracle) Request(ctx context.Context, req ports.RandomnessRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockedOracle) Close() {}

type mockedVerifyingOracle struct {
	mockedOracle
}

func (m *mockedVerifyingOracle) Verify(f ports.Fulfillment) error {
	args := m.Called(f)
	return args.Error(0)
}

type mockedRepoManager struct {
	rounds *mockedRoundRepo
	tokens *mockedTokenRepo
	events *mockedEventRepo
}

func newMockedRepoManager() *mockedRepoManager {
	return &mockedRepoManager{
		rounds: &mockedRoundRepo{rounds: make(map[uint64]domain.Round)},
		tokens: &mockedTokenRepo{tokens: make(map[string]domain.AllowedToken)},
		events: &mockedEventRepo{},
	}
}

func (m *mockedRepoManager) Events() domain.EventRepository        { return m.events }
func (m *mockedRepoManager) Rounds() domain.RoundRepository        { return m.rounds }
func (m *mockedRepoManager) Tokens() domain.AllowedTokenRepository { return m.tokens }
func (m *mockedRepoManager) Close()                                {}

type mockedRoundRepo struct {
	lock    sync.Mutex
	rounds  map[uint64]domain.Round
	failErr error
}

func (m *mockedRoundRepo) AddOrUpdateRound(_ context.Context, round domain.Round) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.failErr != nil {
		return m.failErr
	}
	m.rounds[round.Id] = *round.Clone()
	return nil
}

func (m *mockedRoundRepo) GetRoundWithId(_ context.Context, id uint64) (*domain.Round, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	round, ok := m.rounds[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", domain.ErrRoundNotFound, id)
	}
	return round.Clone(), nil
}

func (m *mockedRoundRepo) GetRoundWithRequestId(
	_ context.Context, requestId string,
) (*domain.Round, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	for _, round := range m.rounds {
		if round.RequestId == requestId {
			return round.Clone(), nil
		}
	}
	return nil, fmt.Errorf("%w: request %s", domain.ErrRoundNotFound, requestId)
}

func (m *mockedRoundRepo) GetLatestRound(_ context.Context) (*domain.Round, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	var latest *domain.Round
	for id := range m.rounds {
		if latest == nil || id > latest.Id {
			round := m.rounds[id]
			latest = round.Clone()
		}
	}
	return latest, nil
}

func (m *mockedRoundRepo) GetRoundIds(_ context.Context) ([]uint64, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	ids := make([]uint64, 0, len(m.rounds))
	for id := range m.rounds {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *mockedRoundRepo) Close() {}

type mockedTokenRepo struct {
	lock   sync.Mutex
	tokens map[string]domain.AllowedToken
}

func (m *mockedTokenRepo) Upsert(_ context.Context, token domain.AllowedToken) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.tokens[token.Token] = token
	return nil
}

func (m *mockedTokenRepo) Get(_ context.Context, token string) (*domain.AllowedToken, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	t, ok := m.tokens[token]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (m *mockedTokenRepo) List(_ context.Context) ([]domain.AllowedToken, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	tokens := make([]domain.AllowedToken, 0, len(m.tokens))
	for _, t := range m.tokens {
		tokens = append(tokens, t)
	}
	return tokens, nil
}

func (m *mockedTokenRepo) Close() {}

type mockedEventRepo struct {
	lock   sync.Mutex
	events []domain.Event
}

func (m *mockedEventRepo) Save(_ context.Context, _, _ string, events []domain.Event) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.events = append(m.events, events...)
	return nil
}

func (m *mockedEventRepo) RegisterEventsHandler(string, func([]domain.Event)) {}
func (m *mockedEventRepo) ClearRegisteredHandlers(...string)                  {}
func (m *mockedEventRepo) Close()                                             {}

func (m *mockedEventRepo) types() []domain.EventType {
	m.lock.Lock()
	defer m.lock.Unlock()

	types := make([]domain.EventType, 0, len(m.events))
	for _, e := range m.events {
		types = append(types, e.GetType())
	}
	return types
}

type mockedLiveStore struct {
	current *mockedCurrentRoundStore
}

func newMockedLiveStore() *mockedLiveStore {
	return &mockedLiveStore{&mockedCurrentRoundStore{}}
}

func (m *mockedLiveStore) CurrentRound() ports.CurrentRoundStore { return m.current }

type mockedCurrentRoundStore struct {
	lock  sync.Mutex
	round *domain.Round
}

func (m *mockedCurrentRoundStore) Upsert(fn func(r *domain.Round) *domain.Round) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.round = fn(m.round)
	return nil
}

func (m *mockedCurrentRoundStore) Get() *domain.Round {
	m.lock.Lock()
	defer m.lock.Unlock()

	return m.round
}
