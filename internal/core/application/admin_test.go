package application_test

import (
	"fmt"
	"testing"

	"github.com/ark-network/giveaway/internal/core/domain"
	"github.com/ark-network/giveaway/internal/core/ports"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCreateRound(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		env := newTestEnv(t, 0)

		id := env.createRound(t, env.now+1000)
		require.Equal(t, uint64(1), id)

		round, err := env.svc.GetRound(ctx, id)
		require.NoError(t, err)
		require.Equal(t, env.now+1000, round.Deadline)
		require.Equal(t, domain.ActiveStage, round.State)
		require.Contains(t, env.repo.events.types(), domain.EventTypeRoundCreated)
	})

	t.Run("invalid", func(t *testing.T) {
		env := newTestEnv(t, 0)

		fixtures := []struct {
			caller      string
			deadline    int64
			description string
			expectedErr error
		}{
			{
				caller:      alice,
				deadline:    env.now + 1000,
				description: "Giveaway",
				expectedErr: domain.ErrUnauthorized,
			},
			{
				caller:      adminAddr,
				deadline:    env.now,
				description: "Giveaway",
				expectedErr: domain.ErrInvalidDeadline,
			},
			{
				caller:      adminAddr,
				deadline:    env.now + 1000,
				description: "this description is way longer than allowed",
				expectedErr: domain.ErrInvalidDescription,
			},
		}

		for _, f := range fixtures {
			id, err := env.admin.CreateRound(ctx, f.caller, f.deadline, f.description)
			require.ErrorIs(t, err, f.expectedErr)
			require.Zero(t, id)
		}

		env.createRound(t, env.now+1000)
		_, err := env.admin.CreateRound(ctx, adminAddr, env.now+2000, "Giveaway #2")
		require.ErrorIs(t, err, domain.ErrRoundAlreadyActive)

		// expired but not drawn is still blocking
		env.now += 1000
		_, err = env.admin.CreateRound(ctx, adminAddr, env.now+1000, "Giveaway #2")
		require.ErrorIs(t, err, domain.ErrRoundAlreadyActive)
	})

	t.Run("after_settlement", func(t *testing.T) {
		env := newTestEnv(t, 0)
		deadline := env.now + 100
		id := env.createRound(t, deadline)
		env.allowToken(t)
		env.participate(t, alice)
		env.now = deadline
		env.requestDraw(t, id, "request-1")

		_, err := env.admin.CreateRound(ctx, adminAddr, env.now+1000, "Giveaway #2")
		require.ErrorIs(t, err, domain.ErrRoundAlreadyActive)

		env.vaults[domain.Gold].On("TransferPrizeItem", mock.Anything, alice).Return("gold-1", nil)
		require.NoError(t, env.svc.FulfillRandomness(ctx, oracleAddr, ports.Fulfillment{
			RequestId:   "request-1",
			RandomValue: randomValue[:],
		}))

		nextId, err := env.admin.CreateRound(ctx, adminAddr, env.now+1000, "Giveaway #2")
		require.NoError(t, err)
		require.Equal(t, id+1, nextId)

		latest, err := env.svc.GetLatestRound(ctx)
		require.NoError(t, err)
		require.Equal(t, nextId, latest.Id)
		require.Zero(t, latest.TreasurySize)

		rounds, err := env.admin.ListRounds(ctx, adminAddr)
		require.NoError(t, err)
		require.Len(t, rounds, 2)
		require.Equal(t, domain.SettledStage, rounds[0].State)
		require.Equal(t, domain.ActiveStage, rounds[1].State)

		_, err = env.admin.ListRounds(ctx, alice)
		require.ErrorIs(t, err, domain.ErrUnauthorized)
	})
}

func TestSetAllowedToken(t *testing.T) {
	env := newTestEnv(t, 0)

	err := env.admin.SetAllowedToken(ctx, alice, testToken, true)
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	err = env.admin.SetAllowedToken(ctx, adminAddr, "not-a-token", true)
	require.ErrorIs(t, err, domain.ErrInvalidAddress)

	upper := "0x326C977E6EFC84E512BB9C30F76E30C160ED06FB"
	require.NoError(t, env.admin.SetAllowedToken(ctx, adminAddr, upper, true))

	allowed, err := env.svc.IsTokenAllowed(ctx, testToken)
	require.NoError(t, err)
	require.True(t, allowed)

	tokens, err := env.admin.ListAllowedTokens(ctx, adminAddr)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	require.Equal(t, testToken, tokens[0].Token)
	require.True(t, tokens[0].Allowed)
	require.Equal(t, startTime, tokens[0].UpdatedAt)

	require.Contains(t, env.repo.events.types(), domain.EventTypeTokenAllowanceChanged)
}

func TestWithdrawTreasury(t *testing.T) {
	setup := func(t *testing.T) (*testEnv, uint64) {
		env := newTestEnv(t, 0)
		deadline := env.now + 100
		id := env.createRound(t, deadline)
		env.allowToken(t)

		env.asset.On("TransferFrom", mock.Anything, mock.Anything, engineAddr, mock.Anything).
			Return(nil)
		_, err := env.svc.Participate(ctx, alice, testToken, 40)
		require.NoError(t, err)
		_, err = env.svc.Participate(ctx, bob, testToken, 60)
		require.NoError(t, err)

		env.now = deadline
		env.requestDraw(t, id, "request-1")
		return env, id
	}

	settle := func(t *testing.T, env *testEnv) {
		for _, vault := range env.vaults {
			vault.On("TransferPrizeItem", mock.Anything, mock.Anything).Return("item", nil)
		}
		require.NoError(t, env.svc.FulfillRandomness(ctx, oracleAddr, ports.Fulfillment{
			RequestId:   "request-1",
			RandomValue: randomValue[:],
		}))
	}

	t.Run("valid", func(t *testing.T) {
		env, id := setup(t)
		settle(t, env)

		env.asset.On("Transfer", mock.Anything, carol, uint64(100)).Return(nil).Once()
		sent, err := env.admin.WithdrawTreasury(ctx, adminAddr, id, carol)
		require.NoError(t, err)
		require.Equal(t, map[string]uint64{testToken: 100}, sent)

		round, err := env.svc.GetRound(ctx, id)
		require.NoError(t, err)
		require.True(t, round.Withdrawn)

		_, err = env.admin.WithdrawTreasury(ctx, adminAddr, id, carol)
		require.ErrorIs(t, err, domain.ErrAlreadyWithdrawn)
		env.asset.AssertNumberOfCalls(t, "Transfer", 1)
		require.Contains(t, env.repo.events.types(), domain.EventTypeTreasuryWithdrawn)
	})

	t.Run("invalid", func(t *testing.T) {
		env, id := setup(t)

		fixtures := []struct {
			caller      string
			roundId     uint64
			to          string
			expectedErr error
		}{
			{
				caller:      alice,
				roundId:     id,
				to:          alice,
				expectedErr: domain.ErrUnauthorized,
			},
			{
				caller:      adminAddr,
				roundId:     id,
				to:          "carol",
				expectedErr: domain.ErrInvalidAddress,
			},
			{
				caller:      adminAddr,
				roundId:     id,
				to:          carol,
				expectedErr: domain.ErrRoundNotSettled,
			},
			{
				caller:      adminAddr,
				roundId:     id + 1,
				to:          carol,
				expectedErr: domain.ErrRoundNotFound,
			},
		}

		for _, f := range fixtures {
			sent, err := env.admin.WithdrawTreasury(ctx, f.caller, f.roundId, f.to)
			require.ErrorIs(t, err, f.expectedErr)
			require.Nil(t, sent)
		}
		env.asset.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("transfer_failure", func(t *testing.T) {
		env, id := setup(t)
		settle(t, env)

		env.asset.On("Transfer", mock.Anything, carol, uint64(100)).
			Return(fmt.Errorf("paused")).Once()
		_, err := env.admin.WithdrawTreasury(ctx, adminAddr, id, carol)
		require.ErrorIs(t, err, domain.ErrTransferFailed)

		round, err := env.svc.GetRound(ctx, id)
		require.NoError(t, err)
		require.False(t, round.Withdrawn)

		env.asset.On("Transfer", mock.Anything, carol, uint64(100)).Return(nil).Once()
		sent, err := env.admin.WithdrawTreasury(ctx, adminAddr, id, carol)
		require.NoError(t, err)
		require.Equal(t, uint64(100), sent[testToken])
	})
}

func TestCloseEmptyRound(t *testing.T) {
	env := newTestEnv(t, 0)
	deadline := env.now + 100
	id := env.createRound(t, deadline)

	err := env.admin.CloseEmptyRound(ctx, alice, id)
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	err = env.admin.CloseEmptyRound(ctx, adminAddr, id)
	require.ErrorIs(t, err, domain.ErrStillActive)

	env.now = deadline
	_, err = env.svc.CloseAndRequestDraw(ctx, alice, id)
	require.ErrorIs(t, err, domain.ErrNoParticipants)

	require.NoError(t, env.admin.CloseEmptyRound(ctx, adminAddr, id))

	round, err := env.svc.GetRound(ctx, id)
	require.NoError(t, err)
	require.Equal(t, domain.SettledStage, round.State)
	require.Empty(t, round.Winners)

	err = env.admin.CloseEmptyRound(ctx, adminAddr, id)
	require.ErrorIs(t, err, domain.ErrAlreadySettled)

	nextId := env.createRound(t, env.now+1000)
	require.Equal(t, id+1, nextId)
	env.oracle.AssertNotCalled(t, "Request", mock.Anything, mock.Anything)
}
