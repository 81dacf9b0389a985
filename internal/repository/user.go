package repository

import (
	"context"

	"github.com/rafflelive/backend/internal/entity"
	"github.com/rafflelive/backend/pkg/xcontext"
)

// UserRepository covers the write side only; users are created when they
// register through the bot and reads happen through raffle joins.
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
}

type userRepository struct{}

func NewUserRepository() *userRepository {
	return &userRepository{}
}

func (r *userRepository) Create(ctx context.Context, user *entity.User) error {
	return xcontext.DB(ctx).Create(user).Error
}
