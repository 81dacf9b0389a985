package domain

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rafflelive/backend/internal/domain/fair"
	"github.com/rafflelive/backend/internal/entity"
	"github.com/rafflelive/backend/internal/model"
	"github.com/rafflelive/backend/internal/repository"
	"github.com/rafflelive/backend/pkg/testutil"
	"github.com/stretchr/testify/require"
)

func Test_raffleDomain_GetRaffle(t *testing.T) {
	ctx := testutil.MockContext()
	raffleDomain := NewRaffleDomain(
		repository.NewRaffleRepository(), repository.NewWinnerRepository(),
		&testutil.MockRedisClient{})

	raffle := testutil.SampleRaffle(ctx, &entity.Raffle{
		Prizes: []entity.Prize{
			{Position: 1, Description: "Gold"},
			{Position: 2, Description: "Silver"},
		},
	})

	resp, err := raffleDomain.GetRaffle(ctx, &model.GetRaffleRequest{RaffleID: raffle.ID})
	require.NoError(t, err)
	require.Equal(t, raffle.ID, resp.Raffle.ID)
	require.Len(t, resp.Raffle.Prizes, 2)
	require.True(t, resp.Raffle.IsActive)

	_, err = raffleDomain.GetRaffle(ctx, &model.GetRaffleRequest{RaffleID: "no-such-raffle"})
	require.Equal(t, "Not found raffle", err.Error())
}

func Test_raffleDomain_GetWinners(t *testing.T) {
	ctx := testutil.MockContext()
	winnerRepo := repository.NewWinnerRepository()
	raffleDomain := NewRaffleDomain(
		repository.NewRaffleRepository(), winnerRepo, &testutil.MockRedisClient{})

	raffle := testutil.SampleRaffle(ctx, nil)

	resp, err := raffleDomain.GetWinners(ctx, &model.GetWinnersRequest{RaffleID: raffle.ID})
	require.NoError(t, err)
	require.Empty(t, resp.Winners)

	user := testutil.SampleUser(ctx, nil)
	created, err := winnerRepo.TryAward(ctx, raffle.ID, 1, user.ID, "Gold")
	require.NoError(t, err)
	require.True(t, created)

	resp, err = raffleDomain.GetWinners(ctx, &model.GetWinnersRequest{RaffleID: raffle.ID})
	require.NoError(t, err)
	require.Len(t, resp.Winners, 1)
	require.Equal(t, 1, resp.Winners[0].Position)
	require.Equal(t, user.TelegramID, resp.Winners[0].User.ID)
	require.Equal(t, "Gold", resp.Winners[0].Prize)
}

func Test_raffleDomain_GetWinnersCachesCompletedRaffles(t *testing.T) {
	ctx := testutil.MockContext()
	raffleRepo := repository.NewRaffleRepository()
	winnerRepo := repository.NewWinnerRepository()

	cache := map[string][]byte{}
	redisClient := &testutil.MockRedisClient{
		SetObjFunc: func(_ context.Context, key string, obj any, _ time.Duration) error {
			b, err := json.Marshal(obj)
			require.NoError(t, err)
			cache[key] = b
			return nil
		},
		GetObjFunc: func(_ context.Context, key string, v any) error {
			b, ok := cache[key]
			if !ok {
				return errors.New("miss")
			}
			return json.Unmarshal(b, v)
		},
	}
	raffleDomain := NewRaffleDomain(raffleRepo, winnerRepo, redisClient)

	raffle := testutil.SampleRaffle(ctx, nil)
	user := testutil.SampleUser(ctx, nil)

	created, err := winnerRepo.TryAward(ctx, raffle.ID, 1, user.ID, "Gold")
	require.NoError(t, err)
	require.True(t, created)

	// An unfinished raffle is never cached; its winner list still grows.
	_, err = raffleDomain.GetWinners(ctx, &model.GetWinnersRequest{RaffleID: raffle.ID})
	require.NoError(t, err)
	require.Empty(t, cache)

	require.NoError(t, raffleRepo.SetCompleted(ctx, raffle.ID))

	resp, err := raffleDomain.GetWinners(ctx, &model.GetWinnersRequest{RaffleID: raffle.ID})
	require.NoError(t, err)
	require.Len(t, resp.Winners, 1)
	require.Len(t, cache, 1)

	// The cached copy answers the next read.
	resp, err = raffleDomain.GetWinners(ctx, &model.GetWinnersRequest{RaffleID: raffle.ID})
	require.NoError(t, err)
	require.Len(t, resp.Winners, 1)
	require.Equal(t, user.TelegramID, resp.Winners[0].User.ID)
}

func Test_raffleDomain_VerifyFairness(t *testing.T) {
	ctx := testutil.MockContext()
	raffleDomain := NewRaffleDomain(
		repository.NewRaffleRepository(), repository.NewWinnerRepository(),
		&testutil.MockRedisClient{})

	engine := fair.NewEngine()
	serverSeed, err := engine.GenerateServerSeed()
	require.NoError(t, err)

	commitment, err := engine.Commit("raffle-1", 1, serverSeed, 5)
	require.NoError(t, err)

	reveal, err := engine.Reveal("raffle-1", 1, "viewer-seed")
	require.NoError(t, err)

	resp, err := raffleDomain.VerifyFairness(ctx, &model.VerifyFairnessRequest{
		RaffleID:          "raffle-1",
		Position:          1,
		CommitHash:        commitment.CommitHash,
		ServerSeed:        reveal.ServerSeed,
		ClientSeed:        reveal.ClientSeed,
		ParticipantsCount: 5,
		WinnerIndex:       reveal.WinnerIndex,
	})
	require.NoError(t, err)
	require.True(t, resp.Valid)

	resp, err = raffleDomain.VerifyFairness(ctx, &model.VerifyFairnessRequest{
		RaffleID:          "raffle-1",
		Position:          1,
		CommitHash:        commitment.CommitHash,
		ServerSeed:        "forged",
		ClientSeed:        reveal.ClientSeed,
		ParticipantsCount: 5,
		WinnerIndex:       reveal.WinnerIndex,
	})
	require.NoError(t, err)
	require.False(t, resp.Valid)

	_, err = raffleDomain.VerifyFairness(ctx, &model.VerifyFairnessRequest{})
	require.Error(t, err)
}
