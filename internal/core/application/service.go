package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ark-network/giveaway/internal/core/domain"
	"github.com/ark-network/giveaway/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

type Option func(*service)

// WithClock replaces the wall clock used to evaluate deadlines.
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

type service struct {
	// services
	repoManager ports.RepoManager
	registry    *roundRegistry
	assets      ports.AssetProvider
	vaults      map[domain.Tier]ports.PrizeVault
	oracle      *oracleAdapter
	scheduler   ports.SchedulerService

	// config
	engineAddress string
	adminAddress  string
	feeAccount    string
	feeToken      string
	oracleFee     uint64
	autoDraw      bool

	guard operationGuard
	now   func() time.Time
}

func NewService(
	addresses Addresses, oracleFee uint64, feeToken string, autoDraw bool,
	repoManager ports.RepoManager, liveStore ports.LiveStore,
	assets ports.AssetProvider, vaults []ports.PrizeVault,
	oracle ports.RandomnessOracle, scheduler ports.SchedulerService,
	callbackURL string, opts ...Option,
) (Service, error) {
	engineAddress, err := domain.NormalizeAddress(addresses.Engine)
	if err != nil {
		return nil, fmt.Errorf("invalid engine address: %w", err)
	}
	adminAddress, err := domain.NormalizeAddress(addresses.Admin)
	if err != nil {
		return nil, fmt.Errorf("invalid admin address: %w", err)
	}
	feeAccount := engineAddress
	if len(addresses.FeeAccount) > 0 {
		if feeAccount, err = domain.NormalizeAddress(addresses.FeeAccount); err != nil {
			return nil, fmt.Errorf("invalid fee account: %w", err)
		}
	}
	if oracleFee > 0 {
		if feeToken, err = domain.NormalizeAddress(feeToken); err != nil {
			return nil, fmt.Errorf("invalid fee token: %w", err)
		}
	}
	if oracle == nil {
		return nil, fmt.Errorf("missing randomness oracle")
	}
	if autoDraw && scheduler == nil {
		return nil, fmt.Errorf("auto draw requires a scheduler")
	}

	vaultsByTier := make(map[domain.Tier]ports.PrizeVault)
	for _, vault := range vaults {
		if _, ok := vaultsByTier[vault.Tier()]; ok {
			return nil, fmt.Errorf("duplicated vault for tier %s", vault.Tier())
		}
		vaultsByTier[vault.Tier()] = vault
	}
	for _, tier := range domain.Tiers {
		if _, ok := vaultsByTier[tier]; !ok {
			return nil, fmt.Errorf("missing vault for tier %s", tier)
		}
	}

	svc := &service{
		repoManager:   repoManager,
		registry:      newRoundRegistry(repoManager, liveStore),
		assets:        assets,
		vaults:        vaultsByTier,
		scheduler:     scheduler,
		engineAddress: engineAddress,
		adminAddress:  adminAddress,
		feeAccount:    feeAccount,
		feeToken:      feeToken,
		oracleFee:     oracleFee,
		autoDraw:      autoDraw,
		now:           time.Now,
	}
	svc.oracle = newOracleAdapter(oracle, oracleFee, callbackURL, svc.onRandomnessFulfilled)
	for _, opt := range opts {
		opt(svc)
	}

	return svc, nil
}

func (s *service) Start() error {
	ctx := context.Background()
	if err := s.registry.restore(ctx); err != nil {
		return err
	}

	s.repoManager.Events().RegisterEventsHandler(domain.RoundTopic, s.onRoundEvents)
	s.repoManager.Events().RegisterEventsHandler(domain.TokenTopic, s.onTokenEvents)

	if s.scheduler != nil {
		log.Debug("starting scheduler service...")
		s.scheduler.Start()
	}

	if s.autoDraw {
		latest, err := s.registry.latest(ctx)
		if err != nil {
			return err
		}
		if latest != nil && !latest.IsSettled() && latest.Stage != domain.DrawingStage {
			s.scheduleDraw(latest.Id, latest.Deadline)
		}
	}

	log.Debug("started app service")
	return nil
}

func (s *service) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
		log.Debug("stopped scheduler service")
	}
	s.oracle.oracle.Close()
	log.Debug("closed connection to oracle")
	s.repoManager.Close()
	log.Debug("closed connection to db")
}

func (s *service) Participate(
	ctx context.Context, caller, token string, amount uint64,
) (*domain.Entry, error) {
	ctx, release, err := s.guard.enter(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	participant, err := domain.NormalizeAddress(caller)
	if err != nil {
		return nil, err
	}
	token, err = domain.NormalizeAddress(token)
	if err != nil {
		return nil, err
	}

	round, err := s.registry.latest(ctx)
	if err != nil {
		return nil, err
	}
	if round == nil {
		return nil, fmt.Errorf("%w: no round created yet", domain.ErrRoundNotActive)
	}
	now := s.now().Unix()
	if round.State(now) != domain.ActiveStage {
		return nil, domain.ErrRoundNotActive
	}

	allowed, err := s.isTokenAllowed(ctx, token)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, domain.ErrTokenNotAllowed
	}

	entry, err := round.Register(participant, token, amount, now)
	if err != nil {
		return nil, err
	}

	// entries with zero amount don't move any funds
	var asset ports.FungibleAsset
	if amount > 0 {
		asset, err = s.assets.Asset(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", domain.ErrTransferFailed, err)
		}
		if err := asset.TransferFrom(ctx, participant, s.engineAddress, amount); err != nil {
			return nil, fmt.Errorf("%w: %s", domain.ErrTransferFailed, err)
		}
	}

	if err := s.registry.save(ctx, round); err != nil {
		if asset != nil {
			if refundErr := asset.Transfer(ctx, participant, amount); refundErr != nil {
				log.WithError(refundErr).Warnf(
					"failed to refund %d of %s to %s", amount, token, participant,
				)
			}
		}
		return nil, err
	}

	log.Debugf(
		"registered entry %d for %s in round %d", entry.Index, participant, round.Id,
	)
	return entry, nil
}

func (s *service) CloseAndRequestDraw(
	ctx context.Context, caller string, roundId uint64,
) (string, error) {
	ctx, release, err := s.guard.enter(ctx)
	if err != nil {
		return "", err
	}
	defer release()

	round, err := s.registry.get(ctx, roundId)
	if err != nil {
		return "", err
	}
	now := s.now().Unix()
	if err := round.CanRequestDraw(now); err != nil {
		return "", err
	}

	feeAsset, err := s.reserveFee(ctx)
	if err != nil {
		return "", err
	}

	requestId, err := s.oracle.request(ctx, round)
	if err != nil {
		s.releaseFee(ctx, feeAsset)
		return "", err
	}

	if feeAsset != nil {
		if err := feeAsset.Transfer(ctx, s.oracle.address(), s.oracleFee); err != nil {
			s.releaseFee(ctx, feeAsset)
			log.Warnf("randomness request %s left without fee", requestId)
			return "", fmt.Errorf("%w: %s", domain.ErrInsufficientFee, err)
		}
	}

	if _, err := round.RequestDraw(requestId, s.oracleFee, now); err != nil {
		return "", err
	}
	if err := s.registry.save(ctx, round); err != nil {
		return "", err
	}

	log.Debugf(
		"randomness request %s issued for round %d by %s", requestId, round.Id, caller,
	)
	return requestId, nil
}

// reserveFee makes the oracle fee spendable by the engine before any request
// is issued. Funds from a dedicated fee account are pulled to the engine,
// otherwise the engine balance must cover the fee on top of the deposits it
// holds in escrow.
func (s *service) reserveFee(ctx context.Context) (ports.FungibleAsset, error) {
	if s.oracleFee == 0 {
		return nil, nil
	}

	feeAsset, err := s.assets.Asset(ctx, s.feeToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrInsufficientFee, err)
	}

	if s.feeAccount != s.engineAddress {
		if err := feeAsset.TransferFrom(
			ctx, s.feeAccount, s.engineAddress, s.oracleFee,
		); err != nil {
			return nil, fmt.Errorf("%w: %s", domain.ErrInsufficientFee, err)
		}
		return feeAsset, nil
	}

	balance, err := feeAsset.BalanceOf(ctx, s.engineAddress)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrInsufficientFee, err)
	}
	escrowed, err := s.escrowed(ctx, s.feeToken)
	if err != nil {
		return nil, err
	}
	if balance < escrowed || balance-escrowed < s.oracleFee {
		return nil, fmt.Errorf(
			"%w: got %d (%d in escrow), required %d",
			domain.ErrInsufficientFee, balance, escrowed, s.oracleFee,
		)
	}
	return feeAsset, nil
}

// releaseFee gives back a fee pulled from the dedicated fee account.
func (s *service) releaseFee(ctx context.Context, feeAsset ports.FungibleAsset) {
	if feeAsset == nil || s.feeAccount == s.engineAddress {
		return
	}
	if err := feeAsset.Transfer(ctx, s.feeAccount, s.oracleFee); err != nil {
		log.WithError(err).Warnf(
			"failed to return fee of %d to %s", s.oracleFee, s.feeAccount,
		)
	}
}

// escrowed returns the amount of token held by the engine on behalf of
// rounds whose treasury is not withdrawn yet.
func (s *service) escrowed(ctx context.Context, token string) (uint64, error) {
	rounds, err := s.registry.list(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get rounds: %w", err)
	}
	var total uint64
	for _, round := range rounds {
		total += round.PendingWithdrawals()[token]
	}
	return total, nil
}

func (s *service) FulfillRandomness(
	ctx context.Context, caller string, f ports.Fulfillment,
) error {
	return s.oracle.deliver(ctx, caller, f)
}

func (s *service) GetLatestRound(ctx context.Context) (*RoundInfo, error) {
	round, err := s.registry.latest(ctx)
	if err != nil {
		return nil, err
	}
	if round == nil {
		return nil, domain.ErrRoundNotFound
	}
	return newRoundInfo(round, s.now().Unix()), nil
}

func (s *service) GetRound(ctx context.Context, roundId uint64) (*RoundInfo, error) {
	round, err := s.registry.get(ctx, roundId)
	if err != nil {
		return nil, err
	}
	return newRoundInfo(round, s.now().Unix()), nil
}

func (s *service) IsTokenAllowed(ctx context.Context, token string) (bool, error) {
	token, err := domain.NormalizeAddress(token)
	if err != nil {
		return false, err
	}
	return s.isTokenAllowed(ctx, token)
}

func (s *service) GetInfo(ctx context.Context) (*ServiceInfo, error) {
	vaults := make([]VaultInfo, 0, len(domain.Tiers))
	for _, tier := range domain.Tiers {
		remaining, err := s.vaults[tier].Remaining(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get %s vault inventory: %w", tier, err)
		}
		vaults = append(vaults, VaultInfo{tier, remaining})
	}

	return &ServiceInfo{
		EngineAddress: s.engineAddress,
		AdminAddress:  s.adminAddress,
		OracleAddress: s.oracle.address(),
		OracleFee:     s.oracleFee,
		FeeToken:      s.feeToken,
		Vaults:        vaults,
	}, nil
}

// onRandomnessFulfilled is reachable only through the oracle adapter.
func (s *service) onRandomnessFulfilled(
	ctx context.Context, requestId string, randomValue []byte,
) error {
	ctx, release, err := s.guard.enter(ctx)
	if err != nil {
		return err
	}
	defer release()

	round, err := s.registry.getByRequest(ctx, requestId)
	if err != nil {
		return err
	}
	if round.Stage != domain.DrawingStage {
		return domain.ErrNotDrawing
	}

	event, err := round.Settle(randomValue, s.now().Unix())
	if err != nil {
		return err
	}
	// winners are stored before any prize leaves the vaults
	if err := s.registry.save(ctx, round); err != nil {
		return err
	}

	log.Debugf("round %d settled with %d winners", round.Id, len(event.Winners))

	s.deliverPrizes(ctx, round.Clone(), event.Winners)
	return nil
}

func (s *service) deliverPrizes(
	ctx context.Context, round *domain.Round, winners []domain.Winner,
) []DeliveryResult {
	results := make([]DeliveryResult, 0, len(winners))
	if len(winners) <= 0 {
		return results
	}

	for _, w := range winners {
		result := DeliveryResult{Tier: w.Tier, Recipient: w.Participant}

		itemId, err := s.vaults[w.Tier].TransferPrizeItem(ctx, w.Participant)
		if err != nil {
			log.WithError(err).Warnf(
				"failed to deliver %s prize of round %d to %s", w.Tier, round.Id, w.Participant,
			)
			result.Err = err.Error()
			if _, err := round.RecordDeliveryFailure(w.Tier, err); err != nil {
				log.WithError(err).Warn("failed to record prize delivery failure")
			}
		} else {
			result.ItemId = itemId
			if _, err := round.RecordDelivery(w.Tier, itemId); err != nil {
				log.WithError(err).Warn("failed to record prize delivery")
			}
		}

		results = append(results, result)
	}

	if err := s.registry.save(ctx, round); err != nil {
		log.WithError(err).Warnf("failed to store prize deliveries of round %d", round.Id)
	}
	return results
}

func (s *service) isTokenAllowed(ctx context.Context, token string) (bool, error) {
	allowedToken, err := s.repoManager.Tokens().Get(ctx, token)
	if err != nil {
		return false, err
	}
	return allowedToken != nil && allowedToken.Allowed, nil
}

func (s *service) onRoundEvents(events []domain.Event) {
	for _, event := range events {
		log.Debugf("round event: %s", event.GetType())

		created, ok := event.(domain.RoundCreated)
		if ok && s.autoDraw {
			s.scheduleDraw(created.Id, created.Deadline)
		}
	}
}

func (s *service) onTokenEvents(events []domain.Event) {
	for _, event := range events {
		if e, ok := event.(domain.TokenAllowanceChanged); ok {
			log.Infof("token %s allowed: %t", e.Token, e.Allowed)
		}
	}
}

func (s *service) scheduleDraw(roundId uint64, deadline int64) {
	task := func() { s.drawOnDeadline(roundId) }

	if !s.scheduler.AfterNow(deadline) {
		go task()
		return
	}
	if err := s.scheduler.ScheduleTaskOnce(deadline, task); err != nil {
		log.WithError(err).Warnf("failed to schedule draw of round %d", roundId)
		return
	}
	log.Debugf("draw of round %d scheduled at %d", roundId, deadline)
}

func (s *service) drawOnDeadline(roundId uint64) {
	ctx := context.Background()

	_, err := s.CloseAndRequestDraw(ctx, s.engineAddress, roundId)
	if errors.Is(err, domain.ErrNoParticipants) {
		err = s.closeEmptyRound(ctx, roundId)
	}
	if err != nil {
		log.WithError(err).Warnf("scheduled draw of round %d failed", roundId)
	}
}
