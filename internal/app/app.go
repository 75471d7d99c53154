package app

import (
	"colorgame_backend/internal/config"
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	ServiceProvider *ServiceProvider
}

func NewApp() *App {
	return &App{}
}

func (s *App) initServiceProvider() {
	s.ServiceProvider = newServiceProvider()
}

// Run - HTTP сервер и цикл раундов до SIGINT/SIGTERM
func (s *App) Run() error {
	envErr := config.Load(".env")
	s.initServiceProvider()

	log := s.ServiceProvider.Logger()
	defer func() { _ = log.Sync() }()
	defer s.ServiceProvider.Close()

	if envErr != nil {
		log.Warn("error loading .env file", zap.Error(envErr))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              s.ServiceProvider.HTTPCfg().Address(),
		Handler:           s.ServiceProvider.Router(ctx),
		ReadHeaderTimeout: 5 * time.Second,
	}
	sched := s.ServiceProvider.RoundScheduler(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sched.Run(gctx)
	})
	g.Go(func() error {
		log.Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
