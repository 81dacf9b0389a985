package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rafflelive/backend/internal/entity"
	"github.com/rafflelive/backend/pkg/xcontext"
	"gorm.io/gorm/clause"
)

type WinnerRepository interface {
	// TryAward inserts the winner row for (raffleID, position) if none
	// exists. It reports created=false when the position was already
	// awarded; callers must treat that as "already awarded", not an error.
	TryAward(ctx context.Context, raffleID string, position int, userID, prize string) (bool, error)

	GetByRaffleID(ctx context.Context, raffleID string) ([]entity.Winner, error)
	GetPositionsByRaffleID(ctx context.Context, raffleID string) ([]int, error)
	CountByRaffleID(ctx context.Context, raffleID string) (int64, error)
}

type winnerRepository struct{}

func NewWinnerRepository() *winnerRepository {
	return &winnerRepository{}
}

func (r *winnerRepository) TryAward(
	ctx context.Context, raffleID string, position int, userID, prize string,
) (bool, error) {
	winner := &entity.Winner{
		Base:     entity.Base{ID: uuid.NewString()},
		RaffleID: raffleID,
		Position: position,
		UserID:   userID,
		Prize:    prize,
		WonAt:    time.Now(),
	}

	tx := xcontext.DB(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "raffle_id"}, {Name: "position"}},
			DoNothing: true,
		}).
		Create(winner)
	if tx.Error != nil {
		return false, tx.Error
	}

	return tx.RowsAffected == 1, nil
}

func (r *winnerRepository) GetByRaffleID(ctx context.Context, raffleID string) ([]entity.Winner, error) {
	var result []entity.Winner
	err := xcontext.DB(ctx).Preload("User").
		Where("raffle_id=?", raffleID).
		Order("position ASC").
		Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *winnerRepository) GetPositionsByRaffleID(ctx context.Context, raffleID string) ([]int, error) {
	var result []int
	err := xcontext.DB(ctx).Model(&entity.Winner{}).
		Where("raffle_id=?", raffleID).
		Order("position ASC").
		Pluck("position", &result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *winnerRepository) CountByRaffleID(ctx context.Context, raffleID string) (int64, error) {
	var count int64
	err := xcontext.DB(ctx).Model(&entity.Winner{}).
		Where("raffle_id=?", raffleID).Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}
