package cron

import (
	"testing"
	"time"

	"github.com/rafflelive/backend/internal/domain/draw"
	"github.com/rafflelive/backend/internal/domain/fair"
	"github.com/rafflelive/backend/internal/entity"
	"github.com/rafflelive/backend/internal/repository"
	"github.com/rafflelive/backend/pkg/lock"
	"github.com/rafflelive/backend/pkg/testutil"
	"github.com/stretchr/testify/require"
)

func newTestDrawManager() *draw.Manager {
	return draw.NewManager(
		repository.NewRaffleRepository(),
		repository.NewParticipantRepository(),
		repository.NewWinnerRepository(),
		fair.NewEngine(),
		draw.NewHub(),
		lock.NewInProcessLocker(),
		nil,
	)
}

func Test_DrawStartCronJob_StartsDueRaffle(t *testing.T) {
	ctx := testutil.MockContext()
	raffleRepo := repository.NewRaffleRepository()
	drawManager := newTestDrawManager()
	job := NewDrawStartCronJob(raffleRepo, drawManager)

	raffle := testutil.SampleRaffle(ctx, &entity.Raffle{
		EndTime: time.Now().Add(-time.Minute),
	})
	user := testutil.SampleUser(ctx, nil)
	testutil.JoinRaffle(ctx, raffle.ID, user.ID)

	job.Do(ctx)

	// The scan claims the raffle immediately, the session follows after
	// the raffle's announcement delay.
	got, err := raffleRepo.GetByID(ctx, raffle.ID)
	require.NoError(t, err)
	require.True(t, got.DrawStarted)

	require.Eventually(t, func() bool {
		got, err := raffleRepo.GetByID(ctx, raffle.ID)
		return err == nil && got.IsCompleted
	}, 5*time.Second, 5*time.Millisecond)

	winners, err := repository.NewWinnerRepository().GetByRaffleID(ctx, raffle.ID)
	require.NoError(t, err)
	require.Len(t, winners, 1)
	require.Equal(t, user.ID, winners[0].UserID)
}

func Test_DrawStartCronJob_ResumesInterruptedRaffle(t *testing.T) {
	ctx := testutil.MockContext()
	raffleRepo := repository.NewRaffleRepository()
	drawManager := newTestDrawManager()
	job := NewDrawStartCronJob(raffleRepo, drawManager)

	raffle := testutil.SampleRaffle(ctx, &entity.Raffle{
		EndTime:     time.Now().Add(-time.Hour),
		DrawStarted: true,
	})
	user := testutil.SampleUser(ctx, nil)
	testutil.JoinRaffle(ctx, raffle.ID, user.ID)

	job.Do(ctx)

	require.Eventually(t, func() bool {
		got, err := raffleRepo.GetByID(ctx, raffle.ID)
		return err == nil && got.IsCompleted
	}, 5*time.Second, 5*time.Millisecond)
}

func Test_DrawStartCronJob_IgnoresRafflesStillRunning(t *testing.T) {
	ctx := testutil.MockContext()
	raffleRepo := repository.NewRaffleRepository()
	drawManager := newTestDrawManager()
	job := NewDrawStartCronJob(raffleRepo, drawManager)

	// Not due yet: nothing is claimed.
	raffle := testutil.SampleRaffle(ctx, &entity.Raffle{
		EndTime: time.Now().Add(time.Hour),
	})

	job.Do(ctx)

	got, err := raffleRepo.GetByID(ctx, raffle.ID)
	require.NoError(t, err)
	require.False(t, got.DrawStarted)
	require.False(t, drawManager.IsRunning(raffle.ID))
}
