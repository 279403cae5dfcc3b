package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	router "github.com/dkeye/Pairline/internal/adapters/http"
	"github.com/dkeye/Pairline/internal/adapters/ledger"
	"github.com/dkeye/Pairline/internal/adapters/presence"
	"github.com/dkeye/Pairline/internal/adapters/rtc"
	wsignal "github.com/dkeye/Pairline/internal/adapters/signal"
	"github.com/dkeye/Pairline/internal/app"
	"github.com/dkeye/Pairline/internal/app/orch"
	"github.com/dkeye/Pairline/internal/config"
	"github.com/dkeye/Pairline/internal/core"
)

type presenceStore interface {
	core.PresenceStore
	Close() error
}

type callLedger interface {
	core.CallLedger
	Close() error
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogger(cfg)

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
	log.Info().Msg("Server exited gracefully")
}

func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Mode != "debug" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	pres, err := openPresence(ctx, cfg.Presence)
	if err != nil {
		return err
	}
	defer pres.Close()

	calls, err := openLedger(ctx, cfg.Ledger)
	if err != nil {
		return err
	}
	defer calls.Close()

	ice, err := rtc.ICEServers(cfg.ICEServers)
	if err != nil {
		return fmt.Errorf("ice servers: %w", err)
	}

	o := orch.New(pres, calls, app.SimplePolicy{}, orch.Config{
		MatchDelay:    cfg.Match.Delay,
		MatchInterval: cfg.Match.Interval,
		SweepInterval: cfg.Sweep.Interval,
		OrphanGrace:   cfg.Sweep.OrphanGrace,
		ICEServers:    ice,
	})
	ctrl := wsignal.NewSignalWSController(o, wsignal.Options{
		ReadLimit:    cfg.ReadLimit,
		PingPeriod:   cfg.PingPeriod,
		SendBuffer:   cfg.SendBuffer,
		NextLimit:    cfg.Next.Limit,
		NextInterval: cfg.Next.Interval,
	})

	g, gctx := errgroup.WithContext(ctx)
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router.SetupRouter(gctx, cfg, o, ctrl),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		return o.Run(gctx)
	})
	g.Go(func() error {
		log.Info().Str("addr", addr).Str("presence", cfg.Presence.Driver).Str("ledger", cfg.Ledger.Driver).Msg("Pairline server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
		}
		return nil
	})
	return g.Wait()
}

// openPresence fails fast when the configured store is unreachable.
func openPresence(ctx context.Context, cfg config.PresenceConfig) (presenceStore, error) {
	switch cfg.Driver {
	case config.DriverRedis:
		s, err := presence.NewRedisStore(ctx, cfg.RedisURL, cfg.KeyPrefix)
		if err != nil {
			return nil, fmt.Errorf("presence store: %w", err)
		}
		return s, nil
	default:
		log.Warn().Str("module", "main").Msg("in-memory presence store: single process only")
		return presence.NewMemoryStore(), nil
	}
}

func openLedger(ctx context.Context, cfg config.LedgerConfig) (callLedger, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		l, err := ledger.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("call ledger: %w", err)
		}
		if err := l.Ping(ctx); err != nil {
			_ = l.Close()
			return nil, fmt.Errorf("call ledger: %w", err)
		}
		return l, nil
	default:
		log.Warn().Str("module", "main").Msg("in-memory call ledger: single process only")
		return ledger.NewMemoryLedger(), nil
	}
}
