package main

import (
	"fmt"
	"net/http"

	"github.com/rafflelive/backend/api"
	"github.com/rafflelive/backend/internal/domain/cron"
	"github.com/rafflelive/backend/internal/model"
	"github.com/rafflelive/backend/pkg/xcontext"
	"github.com/rs/cors"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

func (s *srv) startApi(*cli.Context) error {
	s.loadConfig()
	s.loadLogger()
	s.ctx = xcontext.WithDB(s.ctx, s.newDatabase())
	s.migrateDB()
	s.loadRedisClient()
	s.loadPublisher()
	s.loadRepos()
	s.loadDomains()

	cronJobManager := cron.NewCronJobManager()
	cronJobManager.Register(cron.NewDrawStartCronJob(s.raffleRepo, s.drawManager))

	mux := http.NewServeMux()
	s.registerEndpoints(mux)

	handler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(s.withBaseContext(mux))

	cfg := xcontext.Configs(s.ctx)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ApiServer.Port),
		Handler: handler,
	}

	group, groupCtx := errgroup.WithContext(s.ctx)
	group.Go(func() error {
		cronJobManager.Start(groupCtx)
		return nil
	})
	group.Go(func() error {
		xcontext.Logger(s.ctx).Infof("Server started on port %s", cfg.ApiServer.Port)
		return httpServer.ListenAndServe()
	})

	return group.Wait()
}

func (s *srv) registerEndpoints(mux *http.ServeMux) {
	mux.HandleFunc("/ws", s.wsDomain.ServeViewer)

	endpoints := []interface{ Register(*http.ServeMux) }{
		&api.Endpoint[model.GetRaffleRequest, model.GetRaffleResponse]{
			Method: http.MethodGet,
			Path:   "/getRaffle",
			Handle: s.raffleDomain.GetRaffle,
		},
		&api.Endpoint[model.GetWinnersRequest, model.GetWinnersResponse]{
			Method: http.MethodGet,
			Path:   "/getWinners",
			Handle: s.raffleDomain.GetWinners,
		},
		&api.Endpoint[model.VerifyFairnessRequest, model.VerifyFairnessResponse]{
			Method: http.MethodPost,
			Path:   "/verifyFairness",
			Handle: s.raffleDomain.VerifyFairness,
		},
	}

	for _, e := range endpoints {
		e.Register(mux)
	}
}

// withBaseContext grafts the server's loaded context onto every request so
// handlers reach the database, logger, and configs through xcontext.
func (s *srv) withBaseContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctx = xcontext.WithConfigs(ctx, xcontext.Configs(s.ctx))
		ctx = xcontext.WithLogger(ctx, xcontext.Logger(s.ctx))
		ctx = xcontext.WithDB(ctx, xcontext.DB(s.ctx))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
