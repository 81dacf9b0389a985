package entity

import (
	"context"

	"github.com/rafflelive/backend/pkg/xcontext"
)

func MigrateTable(ctx context.Context) error {
	return xcontext.DB(ctx).AutoMigrate(
		&User{},
		&Raffle{},
		&Participant{},
		&Winner{},
	)
}
