package application_test

import (
	"context"
	"crypto/sha256"
	"fmt"
	"testing"
	"time"

	"github.com/ark-network/giveaway/internal/core/application"
	"github.com/ark-network/giveaway/internal/core/domain"
	"github.com/ark-network/giveaway/internal/core/ports"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	ctx = context.Background()

	adminAddr  = "0xa000000000000000000000000000000000000001"
	engineAddr = "0xe000000000000000000000000000000000000001"
	oracleAddr = "0x0000000000000000000000000000000000000ac1"
	testToken  = "0x326c977e6efc84e512bb9c30f76e30c160ed06fb"
	feeToken   = "0xf000000000000000000000000000000000000001"
	alice      = "0x1111111111111111111111111111111111111111"
	bob        = "0x2222222222222222222222222222222222222222"
	carol      = "0x3333333333333333333333333333333333333333"

	startTime   = int64(1_700_000_000)
	randomValue = sha256.Sum256([]byte("random value"))
)

type testEnv struct {
	svc      application.Service
	admin    application.AdminService
	repo     *mockedRepoManager
	asset    *mockedAsset
	feeAsset *mockedAsset
	vaults   map[domain.Tier]*mockedVault
	oracle   *mockedOracle
	now      int64
}

func newTestEnv(t *testing.T, oracleFee uint64) *testEnv {
	return newTestEnvWithOracle(t, oracleFee, &mockedOracle{address: oracleAddr})
}

func newTestEnvWithOracle(
	t *testing.T, oracleFee uint64, oracle ports.RandomnessOracle,
) *testEnv {
	return newTestEnvWithFeeAccount(t, oracleFee, "", oracle)
}

func newTestEnvWithFeeAccount(
	t *testing.T, oracleFee uint64, feeAccount string, oracle ports.RandomnessOracle,
) *testEnv {
	env := &testEnv{
		repo:     newMockedRepoManager(),
		asset:    &mockedAsset{address: testToken},
		feeAsset: &mockedAsset{address: feeToken},
		vaults:   make(map[domain.Tier]*mockedVault),
		now:      startTime,
	}
	switch o := oracle.(type) {
	case *mockedOracle:
		env.oracle = o
	case *mockedVerifyingOracle:
		env.oracle = &o.mockedOracle
	}

	vaults := make([]ports.PrizeVault, 0, len(domain.Tiers))
	for _, tier := range domain.Tiers {
		vault := &mockedVault{tier: tier}
		env.vaults[tier] = vault
		vaults = append(vaults, vault)
	}
	assets := &mockedAssetProvider{
		assets: map[string]ports.FungibleAsset{
			testToken: env.asset,
			feeToken:  env.feeAsset,
		},
	}

	svc, err := application.NewService(
		application.Addresses{Engine: engineAddr, Admin: adminAddr, FeeAccount: feeAccount},
		oracleFee, feeToken, false,
		env.repo, newMockedLiveStore(), assets, vaults, oracle, nil, "",
		application.WithClock(func() time.Time { return time.Unix(env.now, 0) }),
	)
	require.NoError(t, err)
	require.NoError(t, svc.Start())

	admin, err := application.NewAdminService(svc)
	require.NoError(t, err)

	env.svc = svc
	env.admin = admin
	return env
}

func (e *testEnv) createRound(t *testing.T, deadline int64) uint64 {
	id, err := e.admin.CreateRound(ctx, adminAddr, deadline, "Giveaway #1!")
	require.NoError(t, err)
	return id
}

func (e *testEnv) allowToken(t *testing.T) {
	require.NoError(t, e.admin.SetAllowedToken(ctx, adminAddr, testToken, true))
}

func (e *testEnv) participate(t *testing.T, participants ...string) {
	for _, p := range participants {
		_, err := e.svc.Participate(ctx, p, testToken, 0)
		require.NoError(t, err)
	}
}

func (e *testEnv) requestDraw(t *testing.T, roundId uint64, requestId string) {
	e.oracle.On("Request", mock.Anything, mock.Anything).Return(requestId, nil).Once()
	id, err := e.svc.CloseAndRequestDraw(ctx, alice, roundId)
	require.NoError(t, err)
	require.Equal(t, requestId, id)
}

func TestParticipate(t *testing.T) {
	t.Run("counts_entries", func(t *testing.T) {
		env := newTestEnv(t, 0)
		env.createRound(t, env.now+1000)
		env.allowToken(t)

		round, err := env.svc.GetLatestRound(ctx)
		require.NoError(t, err)
		require.Zero(t, round.TreasurySize)

		for i := 1; i <= 2; i++ {
			entry, err := env.svc.Participate(ctx, alice, testToken, 0)
			require.NoError(t, err)
			require.Equal(t, uint64(i-1), entry.Index)

			round, err := env.svc.GetLatestRound(ctx)
			require.NoError(t, err)
			require.Equal(t, uint64(i), round.TreasurySize)
		}

		round, err = env.svc.GetLatestRound(ctx)
		require.NoError(t, err)
		require.Equal(t, "Giveaway #1!", round.Description)
		require.Equal(t, domain.ActiveStage, round.State)
		require.Len(t, round.Participants, 2)
		for _, p := range round.Participants {
			require.Equal(t, alice, p.Participant)
		}
		env.asset.AssertNotCalled(t, "TransferFrom", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("pulls_amount", func(t *testing.T) {
		env := newTestEnv(t, 0)
		env.createRound(t, env.now+1000)
		env.allowToken(t)

		env.asset.On("TransferFrom", mock.Anything, alice, engineAddr, uint64(50)).Return(nil)
		env.asset.On("TransferFrom", mock.Anything, bob, engineAddr, uint64(70)).Return(nil)

		_, err := env.svc.Participate(ctx, alice, testToken, 50)
		require.NoError(t, err)
		_, err = env.svc.Participate(ctx, bob, testToken, 70)
		require.NoError(t, err)

		round, err := env.svc.GetLatestRound(ctx)
		require.NoError(t, err)
		require.Equal(t, uint64(2), round.TreasurySize)
		require.Equal(t, uint64(120), round.Deposits[testToken])
		env.asset.AssertExpectations(t)
	})

	t.Run("deadline", func(t *testing.T) {
		env := newTestEnv(t, 0)
		env.createRound(t, env.now+1)
		env.allowToken(t)

		env.participate(t, alice)

		env.now++
		_, err := env.svc.Participate(ctx, alice, testToken, 0)
		require.ErrorIs(t, err, domain.ErrRoundNotActive)

		round, err := env.svc.GetLatestRound(ctx)
		require.NoError(t, err)
		require.Equal(t, uint64(1), round.TreasurySize)
		require.Equal(t, domain.ClosedStage, round.State)
	})

	t.Run("token_allowance", func(t *testing.T) {
		env := newTestEnv(t, 0)
		env.createRound(t, env.now+1000)

		_, err := env.svc.Participate(ctx, alice, testToken, 0)
		require.ErrorIs(t, err, domain.ErrTokenNotAllowed)

		allowed, err := env.svc.IsTokenAllowed(ctx, testToken)
		require.NoError(t, err)
		require.False(t, allowed)

		env.allowToken(t)
		allowed, err = env.svc.IsTokenAllowed(ctx, testToken)
		require.NoError(t, err)
		require.True(t, allowed)

		_, err = env.svc.Participate(ctx, alice, testToken, 0)
		require.NoError(t, err)

		require.NoError(t, env.admin.SetAllowedToken(ctx, adminAddr, testToken, false))
		_, err = env.svc.Participate(ctx, alice, testToken, 0)
		require.ErrorIs(t, err, domain.ErrTokenNotAllowed)
	})

	t.Run("invalid", func(t *testing.T) {
		env := newTestEnv(t, 0)

		_, err := env.svc.Participate(ctx, alice, testToken, 0)
		require.ErrorIs(t, err, domain.ErrRoundNotActive)

		env.createRound(t, env.now+1000)
		env.allowToken(t)

		fixtures := []struct {
			caller      string
			token       string
			amount      uint64
			expectedErr error
		}{
			{
				caller:      "alice",
				token:       testToken,
				expectedErr: domain.ErrInvalidAddress,
			},
			{
				caller:      alice,
				token:       "test-token",
				expectedErr: domain.ErrInvalidAddress,
			},
			{
				caller:      alice,
				token:       feeToken,
				expectedErr: domain.ErrTokenNotAllowed,
			},
			{
				caller:      alice,
				token:       testToken,
				amount:      1000,
				expectedErr: domain.ErrTransferFailed,
			},
		}

		env.asset.On("TransferFrom", mock.Anything, alice, engineAddr, uint64(1000)).
			Return(fmt.Errorf("insufficient allowance"))

		for _, f := range fixtures {
			entry, err := env.svc.Participate(ctx, f.caller, f.token, f.amount)
			require.ErrorIs(t, err, f.expectedErr)
			require.Nil(t, entry)
		}

		round, err := env.svc.GetLatestRound(ctx)
		require.NoError(t, err)
		require.Zero(t, round.TreasurySize)
		require.Empty(t, round.Participants)
	})

	t.Run("refund_on_store_failure", func(t *testing.T) {
		env := newTestEnv(t, 0)
		env.createRound(t, env.now+1000)
		env.allowToken(t)

		env.asset.On("TransferFrom", mock.Anything, alice, engineAddr, uint64(10)).Return(nil)
		env.asset.On("Transfer", mock.Anything, alice, uint64(10)).Return(nil)
		env.repo.rounds.failErr = fmt.Errorf("disk full")

		_, err := env.svc.Participate(ctx, alice, testToken, 10)
		require.Error(t, err)
		env.asset.AssertCalled(t, "Transfer", mock.Anything, alice, uint64(10))

		env.repo.rounds.failErr = nil
		round, err := env.svc.GetLatestRound(ctx)
		require.NoError(t, err)
		require.Zero(t, round.TreasurySize)
	})

	t.Run("reentrant_call", func(t *testing.T) {
		env := newTestEnv(t, 0)
		env.createRound(t, env.now+1000)
		env.allowToken(t)

		var reentrantErr error
		env.asset.On("TransferFrom", mock.Anything, alice, engineAddr, uint64(5)).
			Run(func(args mock.Arguments) {
				innerCtx := args.Get(0).(context.Context)
				_, reentrantErr = env.svc.Participate(innerCtx, alice, testToken, 5)
			}).
			Return(nil)

		_, err := env.svc.Participate(ctx, alice, testToken, 5)
		require.NoError(t, err)
		require.ErrorIs(t, reentrantErr, domain.ErrReentrantCall)

		round, err := env.svc.GetLatestRound(ctx)
		require.NoError(t, err)
		require.Equal(t, uint64(1), round.TreasurySize)
	})
}

func TestCloseAndRequestDraw(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		env := newTestEnv(t, 0)
		deadline := env.now + 100
		id := env.createRound(t, deadline)
		env.allowToken(t)
		env.participate(t, alice, bob)

		env.now = deadline
		env.requestDraw(t, id, "request-1")

		round, err := env.svc.GetRound(ctx, id)
		require.NoError(t, err)
		require.Equal(t, domain.DrawingStage, round.State)
		require.Equal(t, "request-1", round.RequestId)

		req := env.oracle.Calls[0].Arguments.Get(1).(ports.RandomnessRequest)
		require.Len(t, req.Seed, 32)
		require.NotNil(t, req.Callback)

		_, err = env.svc.CloseAndRequestDraw(ctx, bob, id)
		require.ErrorIs(t, err, domain.ErrAlreadyDrawing)

		require.Contains(t, env.repo.events.types(), domain.EventTypeRoundClosed)
		require.Contains(t, env.repo.events.types(), domain.EventTypeDrawRequested)
	})

	t.Run("invalid", func(t *testing.T) {
		env := newTestEnv(t, 0)
		deadline := env.now + 100
		id := env.createRound(t, deadline)
		env.allowToken(t)

		_, err := env.svc.CloseAndRequestDraw(ctx, alice, id)
		require.ErrorIs(t, err, domain.ErrStillActive)

		env.now = deadline
		_, err = env.svc.CloseAndRequestDraw(ctx, alice, id)
		require.ErrorIs(t, err, domain.ErrNoParticipants)
		env.oracle.AssertNotCalled(t, "Request", mock.Anything, mock.Anything)

		_, err = env.svc.CloseAndRequestDraw(ctx, alice, id+1)
		require.ErrorIs(t, err, domain.ErrRoundNotFound)
	})

	t.Run("oracle_failure", func(t *testing.T) {
		env := newTestEnv(t, 0)
		deadline := env.now + 100
		id := env.createRound(t, deadline)
		env.allowToken(t)
		env.participate(t, alice)

		env.now = deadline
		env.oracle.On("Request", mock.Anything, mock.Anything).
			Return("", fmt.Errorf("oracle unreachable")).Once()
		_, err := env.svc.CloseAndRequestDraw(ctx, alice, id)
		require.Error(t, err)

		round, err := env.svc.GetRound(ctx, id)
		require.NoError(t, err)
		require.Equal(t, domain.ClosedStage, round.State)
		require.Empty(t, round.RequestId)

		env.requestDraw(t, id, "request-2")
	})

	t.Run("fee", func(t *testing.T) {
		env := newTestEnv(t, 25)
		deadline := env.now + 100
		id := env.createRound(t, deadline)
		env.allowToken(t)
		env.participate(t, alice)
		env.now = deadline

		env.feeAsset.On("BalanceOf", mock.Anything, engineAddr).Return(uint64(10), nil).Once()
		_, err := env.svc.CloseAndRequestDraw(ctx, alice, id)
		require.ErrorIs(t, err, domain.ErrInsufficientFee)
		env.oracle.AssertNotCalled(t, "Request", mock.Anything, mock.Anything)

		env.feeAsset.On("BalanceOf", mock.Anything, engineAddr).Return(uint64(100), nil)
		env.feeAsset.On("Transfer", mock.Anything, oracleAddr, uint64(25)).Return(nil)
		env.requestDraw(t, id, "request-3")

		req := env.oracle.Calls[0].Arguments.Get(1).(ports.RandomnessRequest)
		require.Equal(t, uint64(25), req.Fee)
		env.feeAsset.AssertExpectations(t)
		env.feeAsset.AssertNotCalled(t, "TransferFrom", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("fee_account", func(t *testing.T) {
		env := newTestEnvWithFeeAccount(t, 25, carol, &mockedOracle{address: oracleAddr})
		deadline := env.now + 100
		id := env.createRound(t, deadline)
		env.allowToken(t)
		env.participate(t, alice)
		env.now = deadline

		env.feeAsset.On("TransferFrom", mock.Anything, carol, engineAddr, uint64(25)).
			Return(fmt.Errorf("insufficient allowance")).Once()
		_, err := env.svc.CloseAndRequestDraw(ctx, alice, id)
		require.ErrorIs(t, err, domain.ErrInsufficientFee)
		env.oracle.AssertNotCalled(t, "Request", mock.Anything, mock.Anything)

		// the pulled fee goes back to the fee account if the request fails
		env.feeAsset.On("TransferFrom", mock.Anything, carol, engineAddr, uint64(25)).
			Return(nil)
		env.feeAsset.On("Transfer", mock.Anything, carol, uint64(25)).Return(nil).Once()
		env.oracle.On("Request", mock.Anything, mock.Anything).
			Return("", fmt.Errorf("oracle unreachable")).Once()
		_, err = env.svc.CloseAndRequestDraw(ctx, alice, id)
		require.Error(t, err)
		env.feeAsset.AssertCalled(t, "Transfer", mock.Anything, carol, uint64(25))

		round, err := env.svc.GetRound(ctx, id)
		require.NoError(t, err)
		require.Equal(t, domain.ClosedStage, round.State)

		env.feeAsset.On("Transfer", mock.Anything, oracleAddr, uint64(25)).Return(nil).Once()
		env.requestDraw(t, id, "request-4")
		env.oracle.AssertNumberOfCalls(t, "Request", 2)
		env.feeAsset.AssertNotCalled(t, "BalanceOf", mock.Anything, mock.Anything)
	})
}

func TestFulfillRandomness(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		env := newTestEnv(t, 0)
		deadline := env.now + 100
		id := env.createRound(t, deadline)
		env.allowToken(t)
		env.participate(t, alice, bob, carol, alice)
		env.now = deadline
		env.requestDraw(t, id, "request-1")

		for tier, vault := range env.vaults {
			vault.On("TransferPrizeItem", mock.Anything, mock.Anything).
				Return(fmt.Sprintf("%s-1", tier), nil).Once()
		}

		err := env.svc.FulfillRandomness(ctx, oracleAddr, ports.Fulfillment{
			RequestId:   "request-1",
			RandomValue: randomValue[:],
		})
		require.NoError(t, err)

		round, err := env.svc.GetRound(ctx, id)
		require.NoError(t, err)
		require.Equal(t, domain.SettledStage, round.State)
		require.Len(t, round.Winners, 3)

		expected := domain.ResolveWinners(randomValue[:], round.Participants)
		winners := make(map[string]struct{})
		for i, w := range round.Winners {
			require.Equal(t, expected[i].Participant, w.Participant)
			require.True(t, w.Delivered)
			require.Equal(t, fmt.Sprintf("%s-1", w.Tier), w.ItemId)
			winners[w.Participant] = struct{}{}
			env.vaults[w.Tier].AssertCalled(t, "TransferPrizeItem", mock.Anything, w.Participant)
		}
		require.Len(t, winners, 3)

		err = env.svc.FulfillRandomness(ctx, oracleAddr, ports.Fulfillment{
			RequestId:   "request-1",
			RandomValue: randomValue[:],
		})
		require.ErrorIs(t, err, domain.ErrNotDrawing)

		require.Contains(t, env.repo.events.types(), domain.EventTypeRoundSettled)
		require.Contains(t, env.repo.events.types(), domain.EventTypePrizeDelivered)
	})

	t.Run("invalid", func(t *testing.T) {
		env := newTestEnv(t, 0)
		deadline := env.now + 100
		id := env.createRound(t, deadline)
		env.allowToken(t)
		env.participate(t, alice)

		err := env.svc.FulfillRandomness(ctx, oracleAddr, ports.Fulfillment{
			RequestId:   "request-1",
			RandomValue: randomValue[:],
		})
		require.ErrorIs(t, err, domain.ErrUnknownRequest)

		env.now = deadline
		env.requestDraw(t, id, "request-1")

		fixtures := []struct {
			caller      string
			requestId   string
			expectedErr error
		}{
			{
				caller:      alice,
				requestId:   "request-1",
				expectedErr: domain.ErrUnauthorized,
			},
			{
				caller:      oracleAddr,
				requestId:   "request-2",
				expectedErr: domain.ErrUnknownRequest,
			},
			{
				caller:      oracleAddr,
				requestId:   "",
				expectedErr: domain.ErrUnknownRequest,
			},
		}

		for _, f := range fixtures {
			err := env.svc.FulfillRandomness(ctx, f.caller, ports.Fulfillment{
				RequestId:   f.requestId,
				RandomValue: randomValue[:],
			})
			require.ErrorIs(t, err, f.expectedErr)
		}

		round, err := env.svc.GetRound(ctx, id)
		require.NoError(t, err)
		require.Equal(t, domain.DrawingStage, round.State)
	})

	t.Run("invalid_proof", func(t *testing.T) {
		oracle := &mockedVerifyingOracle{mockedOracle{address: oracleAddr}}
		env := newTestEnvWithOracle(t, 0, oracle)
		deadline := env.now + 100
		id := env.createRound(t, deadline)
		env.allowToken(t)
		env.participate(t, alice)
		env.now = deadline
		env.requestDraw(t, id, "request-1")

		f := ports.Fulfillment{RequestId: "request-1", RandomValue: randomValue[:]}
		oracle.On("Verify", f).Return(fmt.Errorf("bad signature"))

		err := env.svc.FulfillRandomness(ctx, oracleAddr, f)
		require.ErrorIs(t, err, domain.ErrInvalidProof)
	})

	t.Run("partial_delivery", func(t *testing.T) {
		env := newTestEnv(t, 0)
		deadline := env.now + 100
		id := env.createRound(t, deadline)
		env.allowToken(t)
		env.participate(t, alice, bob)
		env.now = deadline
		env.requestDraw(t, id, "request-1")

		env.vaults[domain.Gold].On("TransferPrizeItem", mock.Anything, mock.Anything).
			Return("gold-1", nil)
		env.vaults[domain.Silver].On("TransferPrizeItem", mock.Anything, mock.Anything).
			Return("", fmt.Errorf("vault is empty")).Once()

		err := env.svc.FulfillRandomness(ctx, oracleAddr, ports.Fulfillment{
			RequestId:   "request-1",
			RandomValue: randomValue[:],
		})
		require.NoError(t, err)

		round, err := env.svc.GetRound(ctx, id)
		require.NoError(t, err)
		require.Equal(t, domain.SettledStage, round.State)
		require.Len(t, round.Winners, 2)
		require.True(t, round.Winners[0].Delivered)
		require.False(t, round.Winners[1].Delivered)
		require.Equal(t, "vault is empty", round.Winners[1].DeliveryErr)
		env.vaults[domain.Bronze].AssertNotCalled(t, "TransferPrizeItem", mock.Anything, mock.Anything)

		_, err = env.admin.RetryPrizeDelivery(ctx, alice, id)
		require.ErrorIs(t, err, domain.ErrUnauthorized)

		env.vaults[domain.Silver].On("TransferPrizeItem", mock.Anything, mock.Anything).
			Return("silver-1", nil).Once()
		results, err := env.admin.RetryPrizeDelivery(ctx, adminAddr, id)
		require.NoError(t, err)
		require.Len(t, results, 1)
		require.Equal(t, domain.Silver, results[0].Tier)
		require.Equal(t, "silver-1", results[0].ItemId)
		require.Empty(t, results[0].Err)

		round, err = env.svc.GetRound(ctx, id)
		require.NoError(t, err)
		require.True(t, round.Winners[1].Delivered)
		require.Empty(t, round.Winners[1].DeliveryErr)
	})

	t.Run("reentrant_vault", func(t *testing.T) {
		env := newTestEnv(t, 0)
		deadline := env.now + 100
		id := env.createRound(t, deadline)
		env.allowToken(t)
		env.participate(t, alice)
		env.now = deadline
		env.requestDraw(t, id, "request-1")

		f := ports.Fulfillment{RequestId: "request-1", RandomValue: randomValue[:]}
		var reentrantErr error
		env.vaults[domain.Gold].On("TransferPrizeItem", mock.Anything, alice).
			Run(func(args mock.Arguments) {
				innerCtx := args.Get(0).(context.Context)
				reentrantErr = env.svc.FulfillRandomness(innerCtx, oracleAddr, f)
			}).
			Return("gold-1", nil)

		require.NoError(t, env.svc.FulfillRandomness(ctx, oracleAddr, f))
		require.ErrorIs(t, reentrantErr, domain.ErrReentrantCall)
		env.vaults[domain.Gold].AssertNumberOfCalls(t, "TransferPrizeItem", 1)
	})
}

func TestGetInfo(t *testing.T) {
	env := newTestEnv(t, 0)
	for _, vault := range env.vaults {
		vault.On("Remaining", mock.Anything).Return(3, nil)
	}

	info, err := env.svc.GetInfo(ctx)
	require.NoError(t, err)
	require.Equal(t, engineAddr, info.EngineAddress)
	require.Equal(t, adminAddr, info.AdminAddress)
	require.Equal(t, oracleAddr, info.OracleAddress)
	require.Len(t, info.Vaults, 3)
	for i, v := range info.Vaults {
		require.Equal(t, domain.Tiers[i], v.Tier)
		require.Equal(t, 3, v.Remaining)
	}

	_, err = env.svc.GetLatestRound(ctx)
	require.ErrorIs(t, err, domain.ErrRoundNotFound)
}
