package main

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/rafflelive/backend/config"
	"github.com/rafflelive/backend/internal/domain"
	"github.com/rafflelive/backend/internal/domain/draw"
	"github.com/rafflelive/backend/internal/domain/fair"
	"github.com/rafflelive/backend/internal/entity"
	"github.com/rafflelive/backend/internal/repository"
	"github.com/rafflelive/backend/pkg/kafka"
	"github.com/rafflelive/backend/pkg/lock"
	"github.com/rafflelive/backend/pkg/logger"
	"github.com/rafflelive/backend/pkg/pubsub"
	"github.com/rafflelive/backend/pkg/xcontext"
	"github.com/rafflelive/backend/pkg/xredis"
	"github.com/urfave/cli/v2"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

type srv struct {
	app *cli.App
	ctx context.Context

	raffleRepo      repository.RaffleRepository
	participantRepo repository.ParticipantRepository
	winnerRepo      repository.WinnerRepository

	raffleDomain domain.RaffleDomain
	wsDomain     domain.WsDomain

	drawManager *draw.Manager

	redisClient xredis.Client
	publisher   pubsub.Publisher
}

func (s *srv) loadConfig() {
	configs := config.Configs{
		Env: getEnv("ENV", "local"),
		Database: config.DatabaseConfigs{
			Host:     getEnv("MYSQL_HOST", "localhost"),
			Port:     getEnv("MYSQL_PORT", "3306"),
			User:     getEnv("MYSQL_USER", "mysql"),
			Password: getEnv("MYSQL_PASSWORD", "mysql"),
			Database: getEnv("MYSQL_DATABASE", "rafflelive"),
		},
		ApiServer: config.ServerConfigs{
			Host: getEnv("API_HOST", "localhost"),
			Port: getEnv("API_PORT", "8080"),
			Cert: getEnv("API_SERVER_CERT", "cert"),
			Key:  getEnv("API_SERVER_KEY", "key"),
		},
		Redis: config.RedisConfigs{
			Addr: getEnv("REDIS_ADDRESS", "localhost:6379"),
		},
		Kafka: config.KafkaConfigs{
			Addr: getEnv("KAFKA_ADDRESS", "localhost:9092"),
		},
		Draw: config.DrawConfigs{
			AnnouncementDelay: getEnvAsDuration("DRAW_ANNOUNCEMENT_DELAY", 3*time.Second),
			CommitWindow:      getEnvAsDuration("DRAW_COMMIT_WINDOW", 2*time.Second),
			SpeedFast:         getEnvAsDuration("DRAW_SPEED_FAST", 5*time.Second),
			SpeedMedium:       getEnvAsDuration("DRAW_SPEED_MEDIUM", 7*time.Second),
			SpeedSlow:         getEnvAsDuration("DRAW_SPEED_SLOW", 10*time.Second),
			InterRoundPause:   getEnvAsDuration("DRAW_INTER_ROUND_PAUSE", 3*time.Second),
			LockWait:          getEnvAsDuration("DRAW_LOCK_WAIT", 2*time.Second),
			LockTTL:           getEnvAsDuration("DRAW_LOCK_TTL", 10*time.Second),
			ScanEvery:         getEnvAsDuration("DRAW_SCAN_EVERY", time.Minute),
		},
		Notification: config.NotificationConfigs{
			WinnersTopic: getEnv("KAFKA_WINNERS_TOPIC", "raffle-winners"),
		},
	}

	s.ctx = xcontext.WithConfigs(context.Background(), configs)
}

func (s *srv) loadLogger() {
	level := logger.INFO
	if xcontext.Configs(s.ctx).Env == "local" {
		level = logger.DEBUG
	}

	s.ctx = xcontext.WithLogger(s.ctx, logger.NewLogger(level))
}

func (s *srv) newDatabase() *gorm.DB {
	cfg := xcontext.Configs(s.ctx)
	db, err := gorm.Open(mysql.New(mysql.Config{
		DSN:                       cfg.Database.ConnectionString(),
		DefaultStringSize:         256,
		DisableDatetimePrecision:  true,
		DontSupportRenameIndex:    true,
		DontSupportRenameColumn:   true,
		SkipInitializeWithVersion: false,
	}), &gorm.Config{})
	if err != nil {
		panic(err)
	}

	return db
}

func (s *srv) migrateDB() {
	if err := entity.MigrateTable(s.ctx); err != nil {
		panic(err)
	}
}

func (s *srv) loadRedisClient() {
	var err error
	s.redisClient, err = xredis.NewClient(s.ctx)
	if err != nil {
		panic(err)
	}
}

func (s *srv) loadPublisher() {
	cfg := xcontext.Configs(s.ctx)

	var err error
	s.publisher, err = kafka.NewPublisher(cfg.Env, []string{cfg.Kafka.Addr})
	if err != nil {
		panic(err)
	}
}

func (s *srv) loadRepos() {
	s.raffleRepo = repository.NewRaffleRepository()
	s.participantRepo = repository.NewParticipantRepository()
	s.winnerRepo = repository.NewWinnerRepository()
}

func (s *srv) loadDomains() {
	s.drawManager = draw.NewManager(
		s.raffleRepo,
		s.participantRepo,
		s.winnerRepo,
		fair.NewEngine(),
		draw.NewHub(),
		lock.NewRedisLocker(s.redisClient),
		s.publisher,
	)

	s.raffleDomain = domain.NewRaffleDomain(s.raffleRepo, s.winnerRepo, s.redisClient)
	s.wsDomain = domain.NewWsDomain(s.raffleRepo, s.drawManager)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}

	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}

		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}

	return fallback
}
