package testutil

import (
	"context"
	"time"

	"github.com/rafflelive/backend/config"
	"github.com/rafflelive/backend/internal/entity"
	"github.com/rafflelive/backend/pkg/logger"
	"github.com/rafflelive/backend/pkg/xcontext"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// MockContext returns a context carrying everything a domain needs: an
// in-memory sqlite database with migrated tables, a quiet logger, and draw
// pacing shrunk so a full session runs in milliseconds.
func MockContext() context.Context {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		panic(err)
	}

	// Every pooled connection to :memory: opens its own empty database, so
	// concurrent tests must share one connection.
	sqlDB, err := db.DB()
	if err != nil {
		panic(err)
	}
	sqlDB.SetMaxOpenConns(1)

	cfg := config.Configs{
		Env: "test",
		Draw: config.DrawConfigs{
			AnnouncementDelay: time.Millisecond,
			CommitWindow:      time.Millisecond,
			SpeedFast:         time.Millisecond,
			SpeedMedium:       2 * time.Millisecond,
			SpeedSlow:         3 * time.Millisecond,
			InterRoundPause:   time.Millisecond,
			LockWait:          100 * time.Millisecond,
			LockTTL:           time.Second,
			ScanEvery:         time.Second,
		},
		Notification: config.NotificationConfigs{
			WinnersTopic: "raffle-winners",
		},
	}

	ctx := context.Background()
	ctx = xcontext.WithConfigs(ctx, cfg)
	ctx = xcontext.WithLogger(ctx, logger.NewLogger(logger.SILENCE))
	ctx = xcontext.WithDB(ctx, db)

	if err := entity.MigrateTable(ctx); err != nil {
		panic(err)
	}

	return ctx
}
