package repository

import (
	"context"

	"github.com/rafflelive/backend/internal/entity"
	"github.com/rafflelive/backend/pkg/xcontext"
)

type ParticipantRepository interface {
	Create(ctx context.Context, participant *entity.Participant) error

	// GetOrderedUsersByRaffleID returns the raffle's participants ordered by
	// their stable telegram id. Every live viewer replays the same ordered
	// list, so the order must never depend on join time or query plan.
	GetOrderedUsersByRaffleID(ctx context.Context, raffleID string) ([]entity.User, error)

	CountByRaffleID(ctx context.Context, raffleID string) (int64, error)
}

type participantRepository struct{}

func NewParticipantRepository() *participantRepository {
	return &participantRepository{}
}

func (r *participantRepository) Create(ctx context.Context, participant *entity.Participant) error {
	return xcontext.DB(ctx).Create(participant).Error
}

func (r *participantRepository) GetOrderedUsersByRaffleID(
	ctx context.Context, raffleID string,
) ([]entity.User, error) {
	var result []entity.User
	err := xcontext.DB(ctx).Model(&entity.User{}).
		Joins("JOIN participants ON participants.user_id=users.id").
		Where("participants.raffle_id=?", raffleID).
		Order("users.telegram_id ASC").
		Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *participantRepository) CountByRaffleID(ctx context.Context, raffleID string) (int64, error) {
	var count int64
	err := xcontext.DB(ctx).Model(&entity.Participant{}).
		Where("raffle_id=?", raffleID).Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}
