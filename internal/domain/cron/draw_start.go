package cron

import (
	"context"
	"errors"
	"time"

	"github.com/rafflelive/backend/internal/domain/draw"
	"github.com/rafflelive/backend/internal/repository"
	"github.com/rafflelive/backend/pkg/xcontext"
	"gorm.io/gorm"
)

// DrawStartCronJob scans for raffles whose end time has passed and starts
// their live draw after the raffle's own announcement delay. Claiming a
// raffle is a guarded flag flip, so two scheduler passes cannot both start
// the same draw.
type DrawStartCronJob struct {
	raffleRepo  repository.RaffleRepository
	drawManager *draw.Manager
}

func NewDrawStartCronJob(
	raffleRepo repository.RaffleRepository,
	drawManager *draw.Manager,
) *DrawStartCronJob {
	return &DrawStartCronJob{
		raffleRepo:  raffleRepo,
		drawManager: drawManager,
	}
}

func (job *DrawStartCronJob) Do(ctx context.Context) {
	raffles, err := job.raffleRepo.GetDue(ctx, time.Now())
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get due raffles: %v", err)
		return
	}

	for _, raffle := range raffles {
		if err := job.raffleRepo.MarkDrawStarted(ctx, raffle.ID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// Another pass claimed it first.
				continue
			}

			xcontext.Logger(ctx).Errorf("Cannot claim raffle %s: %v", raffle.ID, err)
			continue
		}

		raffleID := raffle.ID
		delay := raffle.DrawDelay
		time.AfterFunc(delay, func() {
			if err := job.drawManager.StartSession(ctx, raffleID); err != nil {
				xcontext.Logger(ctx).Errorf("Cannot start draw session for raffle %s: %v", raffleID, err)
			}
		})

		xcontext.Logger(ctx).Infof("Scheduled draw of raffle %s in %s", raffleID, delay)
	}

	job.resumeInterrupted(ctx)
}

// resumeInterrupted restarts sessions that died mid-draw. The remaining
// pool is rebuilt from the winner store, so already-awarded positions are
// not drawn again.
func (job *DrawStartCronJob) resumeInterrupted(ctx context.Context) {
	raffles, err := job.raffleRepo.GetInterrupted(ctx)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get interrupted raffles: %v", err)
		return
	}

	for _, raffle := range raffles {
		if job.drawManager.IsRunning(raffle.ID) {
			continue
		}

		// Still inside its scheduled announcement delay, not interrupted.
		if time.Since(raffle.EndTime) < raffle.DrawDelay {
			continue
		}

		xcontext.Logger(ctx).Infof("Resuming interrupted draw of raffle %s", raffle.ID)
		if err := job.drawManager.StartSession(ctx, raffle.ID); err != nil {
			xcontext.Logger(ctx).Errorf("Cannot resume draw of raffle %s: %v", raffle.ID, err)
		}
	}
}

func (job *DrawStartCronJob) RunNow() bool {
	return true
}

func (job *DrawStartCronJob) Next() time.Time {
	return time.Now().Add(time.Minute)
}
