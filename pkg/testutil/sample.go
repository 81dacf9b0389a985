package testutil

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rafflelive/backend/internal/entity"
	"github.com/rafflelive/backend/internal/repository"
)

// SampleUser creates a user with randomized fields, overwritten by the
// non-zero fields of init.
func SampleUser(ctx context.Context, init *entity.User) entity.User {
	userRepo := repository.NewUserRepository()

	sample := entity.User{
		Base:       entity.Base{ID: uuid.NewString()},
		TelegramID: time.Now().UnixNano(),
		Username:   uuid.NewString(),
		FirstName:  "Sample",
	}

	if init != nil {
		if init.ID != "" {
			sample.ID = init.ID
		}
		if init.TelegramID != 0 {
			sample.TelegramID = init.TelegramID
		}
		if init.Username != "" {
			sample.Username = init.Username
		}
	}

	if err := userRepo.Create(ctx, &sample); err != nil {
		panic(err)
	}

	return sample
}

func SampleRaffle(ctx context.Context, init *entity.Raffle) entity.Raffle {
	raffleRepo := repository.NewRaffleRepository()

	sample := entity.Raffle{
		Base:       entity.Base{ID: uuid.NewString()},
		Title:      uuid.NewString(),
		Prizes:     entity.Array[entity.Prize]{{Position: 1, Description: "Prize"}},
		StartTime:  time.Now().Add(-2 * time.Hour),
		EndTime:    time.Now().Add(-time.Hour),
		WheelSpeed: entity.WheelSpeedFast,
		IsActive:   true,
	}

	if init != nil {
		if init.ID != "" {
			sample.ID = init.ID
		}
		if init.Title != "" {
			sample.Title = init.Title
		}
		if len(init.Prizes) > 0 {
			sample.Prizes = init.Prizes
		}
		if init.WheelSpeed != "" {
			sample.WheelSpeed = init.WheelSpeed
		}
		if !init.EndTime.IsZero() {
			sample.EndTime = init.EndTime
		}
		sample.IsCompleted = init.IsCompleted
		sample.DrawStarted = init.DrawStarted
	}

	if err := raffleRepo.Create(ctx, &sample); err != nil {
		panic(err)
	}

	return sample
}

// JoinRaffle registers a user as a raffle participant.
func JoinRaffle(ctx context.Context, raffleID, userID string) {
	participantRepo := repository.NewParticipantRepository()

	err := participantRepo.Create(ctx, &entity.Participant{
		Base:     entity.Base{ID: uuid.NewString()},
		RaffleID: raffleID,
		UserID:   userID,
	})
	if err != nil {
		panic(err)
	}
}
