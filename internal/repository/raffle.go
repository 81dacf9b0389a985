package repository

import (
	"context"
	"time"

	"github.com/rafflelive/backend/internal/entity"
	"github.com/rafflelive/backend/pkg/xcontext"
	"gorm.io/gorm"
)

type RaffleRepository interface {
	Create(ctx context.Context, raffle *entity.Raffle) error
	GetByID(ctx context.Context, raffleID string) (*entity.Raffle, error)

	// GetDue returns active raffles whose end time has passed and whose
	// draw has not started yet.
	GetDue(ctx context.Context, now time.Time) ([]entity.Raffle, error)

	// GetInterrupted returns raffles whose draw started but never finished,
	// usually because the process died mid-session.
	GetInterrupted(ctx context.Context) ([]entity.Raffle, error)

	// MarkDrawStarted flips draw_started only if it was false, so two
	// scheduler passes cannot both claim the same raffle.
	MarkDrawStarted(ctx context.Context, raffleID string) error

	SetCompleted(ctx context.Context, raffleID string) error
	Deactivate(ctx context.Context, raffleID string) error
}

type raffleRepository struct{}

func NewRaffleRepository() *raffleRepository {
	return &raffleRepository{}
}

func (r *raffleRepository) Create(ctx context.Context, raffle *entity.Raffle) error {
	return xcontext.DB(ctx).Create(raffle).Error
}

func (r *raffleRepository) GetByID(ctx context.Context, raffleID string) (*entity.Raffle, error) {
	var result entity.Raffle
	if err := xcontext.DB(ctx).Take(&result, "id=?", raffleID).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *raffleRepository) GetDue(ctx context.Context, now time.Time) ([]entity.Raffle, error) {
	var result []entity.Raffle
	err := xcontext.DB(ctx).
		Find(&result, "is_active=? AND is_completed=? AND draw_started=? AND end_time<=?",
			true, false, false, now).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *raffleRepository) GetInterrupted(ctx context.Context) ([]entity.Raffle, error) {
	var result []entity.Raffle
	err := xcontext.DB(ctx).
		Find(&result, "is_active=? AND is_completed=? AND draw_started=?",
			true, false, true).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *raffleRepository) MarkDrawStarted(ctx context.Context, raffleID string) error {
	tx := xcontext.DB(ctx).Model(&entity.Raffle{}).
		Where("id=? AND draw_started=?", raffleID, false).
		Update("draw_started", true)
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *raffleRepository) SetCompleted(ctx context.Context, raffleID string) error {
	return xcontext.DB(ctx).Model(&entity.Raffle{}).
		Where("id=?", raffleID).
		Updates(map[string]any{"is_completed": true, "is_active": false}).Error
}

func (r *raffleRepository) Deactivate(ctx context.Context, raffleID string) error {
	return xcontext.DB(ctx).Model(&entity.Raffle{}).
		Where("id=?", raffleID).
		Update("is_active", false).Error
}
