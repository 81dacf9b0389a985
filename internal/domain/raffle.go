package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rafflelive/backend/internal/domain/fair"
	"github.com/rafflelive/backend/internal/entity"
	"github.com/rafflelive/backend/internal/model"
	"github.com/rafflelive/backend/internal/repository"
	"github.com/rafflelive/backend/pkg/errorx"
	"github.com/rafflelive/backend/pkg/xcontext"
	"github.com/rafflelive/backend/pkg/xredis"
	"gorm.io/gorm"
)

// RaffleDomain is the read side viewers and the landing page use. Raffle
// creation and editing belong to the admin service, not here.
type RaffleDomain interface {
	GetRaffle(context.Context, *model.GetRaffleRequest) (*model.GetRaffleResponse, error)
	GetWinners(context.Context, *model.GetWinnersRequest) (*model.GetWinnersResponse, error)
	VerifyFairness(context.Context, *model.VerifyFairnessRequest) (*model.VerifyFairnessResponse, error)
}

type raffleDomain struct {
	raffleRepo  repository.RaffleRepository
	winnerRepo  repository.WinnerRepository
	redisClient xredis.Client
}

func NewRaffleDomain(
	raffleRepo repository.RaffleRepository,
	winnerRepo repository.WinnerRepository,
	redisClient xredis.Client,
) *raffleDomain {
	return &raffleDomain{
		raffleRepo:  raffleRepo,
		winnerRepo:  winnerRepo,
		redisClient: redisClient,
	}
}

func (d *raffleDomain) GetRaffle(
	ctx context.Context, req *model.GetRaffleRequest,
) (*model.GetRaffleResponse, error) {
	raffle, err := d.raffleRepo.GetByID(ctx, req.RaffleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found raffle")
		}

		xcontext.Logger(ctx).Errorf("Cannot get raffle: %v", err)
		return nil, errorx.Unknown
	}

	return &model.GetRaffleResponse{Raffle: convertRaffle(raffle)}, nil
}

// GetWinners reads from redis for completed raffles; a finished winner
// list never changes, so the cache needs no invalidation.
func (d *raffleDomain) GetWinners(
	ctx context.Context, req *model.GetWinnersRequest,
) (*model.GetWinnersResponse, error) {
	cacheKey := winnersCacheKey(req.RaffleID)

	var cached []model.SessionWinner
	if d.redisClient != nil {
		if err := d.redisClient.GetObj(ctx, cacheKey, &cached); err == nil {
			return &model.GetWinnersResponse{Winners: cached}, nil
		}
	}

	winners, err := d.winnerRepo.GetByRaffleID(ctx, req.RaffleID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get winners: %v", err)
		return nil, errorx.Unknown
	}

	resp := &model.GetWinnersResponse{Winners: []model.SessionWinner{}}
	for _, w := range winners {
		resp.Winners = append(resp.Winners, model.SessionWinner{
			Position: w.Position,
			User: model.DrawUser{
				ID:        w.User.TelegramID,
				Username:  w.User.Username,
				FirstName: w.User.FirstName,
				LastName:  w.User.LastName,
			},
			Prize: w.Prize,
		})
	}

	if d.redisClient != nil && len(resp.Winners) > 0 {
		raffle, err := d.raffleRepo.GetByID(ctx, req.RaffleID)
		if err == nil && raffle.IsCompleted {
			if err := d.redisClient.SetObj(ctx, cacheKey, resp.Winners, 24*time.Hour); err != nil {
				xcontext.Logger(ctx).Warnf("Cannot cache winners of raffle %s: %v", req.RaffleID, err)
			}
		}
	}

	return resp, nil
}

func winnersCacheKey(raffleID string) string {
	return fmt.Sprintf("raffle:winners:%s", raffleID)
}

// VerifyFairness recomputes a published round result from its disclosed
// proof. No state is read; anyone can run the same check offline.
func (d *raffleDomain) VerifyFairness(
	ctx context.Context, req *model.VerifyFairnessRequest,
) (*model.VerifyFairnessResponse, error) {
	if req.ParticipantsCount <= 0 {
		return nil, errorx.New(errorx.BadRequest, "Participants count must be a positive number")
	}

	valid := fair.VerifyFairness(
		req.RaffleID, req.Position,
		req.CommitHash, req.ServerSeed, req.ClientSeed,
		req.ParticipantsCount, req.WinnerIndex,
	)

	return &model.VerifyFairnessResponse{Valid: valid}, nil
}

func convertRaffle(raffle *entity.Raffle) model.Raffle {
	prizes := []model.Prize{}
	for _, p := range raffle.Prizes {
		prizes = append(prizes, model.Prize{Position: p.Position, Description: p.Description})
	}

	return model.Raffle{
		ID:          raffle.ID,
		Title:       raffle.Title,
		Description: raffle.Description,
		PhotoURL:    raffle.PhotoURL,
		Prizes:      prizes,
		WheelSpeed:  raffle.WheelSpeed,
		IsActive:    raffle.IsActive,
		IsCompleted: raffle.IsCompleted,
		DrawStarted: raffle.DrawStarted,
	}
}
