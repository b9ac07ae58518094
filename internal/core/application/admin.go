package application

import (
	"context"
	"fmt"

	"github.com/ark-network/giveaway/internal/core/domain"
	log "github.com/sirupsen/logrus"
)

type adminService struct {
	*service
}

// NewAdminService returns the privileged operations of the given round
// service. Both share the same serialization of state changes.
func NewAdminService(svc Service) (AdminService, error) {
	engine, ok := svc.(*service)
	if !ok {
		return nil, fmt.Errorf("unsupported round service implementation")
	}
	return &adminService{engine}, nil
}

func (a *adminService) CreateRound(
	ctx context.Context, caller string, deadline int64, description string,
) (uint64, error) {
	if err := a.checkAdmin(caller); err != nil {
		return 0, err
	}

	ctx, release, err := a.guard.enter(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	latest, err := a.registry.latest(ctx)
	if err != nil {
		return 0, err
	}
	id := uint64(1)
	if latest != nil {
		id = latest.Id + 1
	}

	round, err := domain.NewRound(id, deadline, description, a.now().Unix())
	if err != nil {
		return 0, err
	}
	if latest != nil && !latest.IsSettled() {
		return 0, fmt.Errorf("%w: round %d", domain.ErrRoundAlreadyActive, latest.Id)
	}

	if err := a.registry.save(ctx, round); err != nil {
		return 0, err
	}

	log.Infof("created round %d with deadline %d", round.Id, round.Deadline)
	return round.Id, nil
}

func (a *adminService) SetAllowedToken(
	ctx context.Context, caller, token string, allowed bool,
) error {
	if err := a.checkAdmin(caller); err != nil {
		return err
	}

	ctx, release, err := a.guard.enter(ctx)
	if err != nil {
		return err
	}
	defer release()

	allowedToken, err := domain.NewAllowedToken(token, allowed)
	if err != nil {
		return err
	}
	allowedToken.UpdatedAt = a.now().Unix()

	if err := a.repoManager.Tokens().Upsert(ctx, *allowedToken); err != nil {
		return fmt.Errorf("failed to store allowed token: %w", err)
	}

	if err := a.repoManager.Events().Save(
		ctx, domain.TokenTopic, allowedToken.Token,
		[]domain.Event{allowedToken.Event()},
	); err != nil {
		log.WithError(err).Warn("failed to publish token allowance event")
	}
	return nil
}

func (a *adminService) WithdrawTreasury(
	ctx context.Context, caller string, roundId uint64, to string,
) (map[string]uint64, error) {
	if err := a.checkAdmin(caller); err != nil {
		return nil, err
	}
	recipient, err := domain.NormalizeAddress(to)
	if err != nil {
		return nil, err
	}

	ctx, release, err := a.guard.enter(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	round, err := a.registry.get(ctx, roundId)
	if err != nil {
		return nil, err
	}
	if err := round.CanWithdraw(); err != nil {
		return nil, err
	}

	pending := round.PendingWithdrawals()
	sent := make(map[string]uint64)
	for _, token := range sortedTokens(pending) {
		amount := pending[token]

		err := func() error {
			asset, err := a.assets.Asset(ctx, token)
			if err != nil {
				return err
			}
			return asset.Transfer(ctx, recipient, amount)
		}()
		if err != nil {
			for t, amount := range sent {
				round.RecordPartialWithdrawal(t, amount)
			}
			if saveErr := a.registry.save(ctx, round); saveErr != nil {
				log.WithError(saveErr).Warnf(
					"failed to store partial withdrawal of round %d", round.Id,
				)
			}
			return nil, fmt.Errorf(
				"%w: failed to withdraw %d of %s: %s", domain.ErrTransferFailed, amount, token, err,
			)
		}
		sent[token] = amount
	}

	if _, err := round.Withdraw(recipient, sent, a.now().Unix()); err != nil {
		return nil, err
	}
	if err := a.registry.save(ctx, round); err != nil {
		return nil, err
	}

	log.Infof("treasury of round %d withdrawn to %s", round.Id, recipient)
	return sent, nil
}

func (a *adminService) CloseEmptyRound(
	ctx context.Context, caller string, roundId uint64,
) error {
	if err := a.checkAdmin(caller); err != nil {
		return err
	}
	return a.closeEmptyRound(ctx, roundId)
}

func (a *adminService) RetryPrizeDelivery(
	ctx context.Context, caller string, roundId uint64,
) ([]DeliveryResult, error) {
	if err := a.checkAdmin(caller); err != nil {
		return nil, err
	}

	ctx, release, err := a.guard.enter(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	round, err := a.registry.get(ctx, roundId)
	if err != nil {
		return nil, err
	}
	if !round.IsSettled() {
		return nil, domain.ErrRoundNotSettled
	}

	return a.deliverPrizes(ctx, round, round.PendingDeliveries()), nil
}

func (a *adminService) ListRounds(ctx context.Context, caller string) ([]RoundInfo, error) {
	if err := a.checkAdmin(caller); err != nil {
		return nil, err
	}

	rounds, err := a.registry.list(ctx)
	if err != nil {
		return nil, err
	}
	now := a.now().Unix()
	infos := make([]RoundInfo, 0, len(rounds))
	for _, round := range rounds {
		infos = append(infos, *newRoundInfo(round, now))
	}
	return infos, nil
}

func (a *adminService) ListAllowedTokens(
	ctx context.Context, caller string,
) ([]domain.AllowedToken, error) {
	if err := a.checkAdmin(caller); err != nil {
		return nil, err
	}
	return a.repoManager.Tokens().List(ctx)
}

func (s *service) checkAdmin(caller string) error {
	if !sameAddress(caller, s.adminAddress) {
		return domain.ErrUnauthorized
	}
	return nil
}

func (s *service) closeEmptyRound(ctx context.Context, roundId uint64) error {
	ctx, release, err := s.guard.enter(ctx)
	if err != nil {
		return err
	}
	defer release()

	round, err := s.registry.get(ctx, roundId)
	if err != nil {
		return err
	}
	if _, err := round.SettleEmpty(s.now().Unix()); err != nil {
		return err
	}
	if err := s.registry.save(ctx, round); err != nil {
		return err
	}

	log.Infof("round %d settled without entries", round.Id)
	return nil
}
