// Package main runs the drop-live HTTP and overlay server.
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

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"drop-live/internal/auth"
	"drop-live/internal/config"
	"drop-live/internal/gate"
	"drop-live/internal/httpapi"
	"drop-live/internal/hub"
	"drop-live/internal/launch"
	"drop-live/internal/launchpad"
	"drop-live/internal/ledger"
	"drop-live/internal/logger"
	"drop-live/internal/solana"
	"drop-live/internal/storage"
	"drop-live/internal/storage/memory"
	"drop-live/internal/storage/migrations"
	pgstore "drop-live/internal/storage/postgres"
)

const shutdownTimeout = 15 * time.Second

func main() {
	app := &cli.App{
		Name:  "drop-live",
		Usage: "Token drops with holder-gated live chat and polls",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "http-addr", Aliases: []string{"a"}, Usage: "HTTP listen address (overrides HTTP_ADDR)"},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"D"}, Usage: "Console logging at debug level"},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API and overlay websockets",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "Apply database migrations and exit",
				Action: migrate,
			},
		},
		Action: serve,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("drop-live exited")
	}
}

// loadConfig reads the environment and applies flag overrides.
func loadConfig(c *cli.Context) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("failed to load config: %w", err)
	}
	if c.IsSet("http-addr") {
		cfg.HTTPAddr = c.String("http-addr")
	}
	if c.IsSet("debug") {
		cfg.Debug = c.Bool("debug")
	}
	return cfg, logger.Init(cfg.AppName, cfg.Debug), nil
}

func migrate(c *cli.Context) error {
	cfg, lg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required to migrate")
	}

	pool, err := pgstore.NewPool(c.Context, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	applied, err := migrations.RunPostgresMigrations(c.Context, pool, lg)
	if err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	lg.Info().Int("applied", applied).Msg("migrations complete")
	return nil
}

// stores bundles the persistence layer chosen at startup.
type stores struct {
	users    storage.UserStore
	sessions storage.SessionStore
	drops    storage.DropStore
	polls    storage.PollStore
	actions  storage.ActionStore
	claims   storage.ClaimStore
	ping     func(ctx context.Context) error
	close    func()
}

func openStores(ctx context.Context, cfg *config.Config, lg zerolog.Logger) (*stores, error) {
	if cfg.DatabaseURL == "" {
		lg.Warn().Msg("DATABASE_URL not set, using in-memory stores")
		return &stores{
			users:    memory.NewUserStore(),
			sessions: memory.NewSessionStore(),
			drops:    memory.NewDropStore(),
			polls:    memory.NewPollStore(),
			actions:  memory.NewActionStore(),
			claims:   memory.NewClaimStore(),
			ping:     func(context.Context) error { return nil },
			close:    func() {},
		}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if _, err := migrations.RunPostgresMigrations(ctx, pool, lg); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return &stores{
		users:    pgstore.NewUserStore(pool),
		sessions: pgstore.NewSessionStore(pool),
		drops:    pgstore.NewDropStore(pool),
		polls:    pgstore.NewPollStore(pool),
		actions:  pgstore.NewActionStore(pool),
		claims:   pgstore.NewClaimStore(pool),
		ping:     pool.Ping,
		close:    pool.Close,
	}, nil
}

func openNonceStore(ctx context.Context, cfg *config.Config, lg zerolog.Logger) (auth.NonceStore, httpapi.ReadinessCheck, func(), error) {
	if cfg.RedisURL == "" {
		lg.Warn().Msg("REDIS_URL not set, challenges are kept in process memory")
		return auth.NewMemoryNonceStore(), nil, func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	store := auth.NewRedisNonceStore(client)
	if err := store.Ping(ctx); err != nil {
		client.Close()
		return nil, nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	return store, store.Ping, func() { client.Close() }, nil
}

func serve(c *cli.Context) error {
	cfg, lg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, lg)
	if err != nil {
		return err
	}
	defer st.close()

	nonces, redisCheck, closeRedis, err := openNonceStore(ctx, cfg, lg)
	if err != nil {
		return err
	}
	defer closeRedis()

	rpc := solana.NewHTTPClient(cfg.SolanaRPCURL)
	lp := launchpad.NewHTTPClient(cfg.LaunchpadBaseURL, cfg.LaunchpadAPIKey)

	h := hub.New(lg)
	g := gate.New(rpc,
		gate.WithTTL(cfg.Gate.CacheTTL),
		gate.WithQueryTimeout(cfg.Gate.QueryTimeout),
		gate.WithDecimals(cfg.Gate.TokenDecimals),
		gate.WithLogger(lg),
	)

	authenticator := auth.New(st.users, st.sessions, nonces, auth.Config{
		AppName:       cfg.AppName,
		NonceTTL:      cfg.Session.NonceTTL,
		SessionTTL:    cfg.Session.TTL,
		TouchInterval: cfg.Session.TouchInterval,
	}, auth.WithLogger(lg))

	launches := launch.NewService(st.drops, st.claims, lp, h,
		launch.WithUpstreamTimeout(cfg.UpstreamTimeout),
		launch.WithPrizePoolWallet(cfg.PrizePoolWallet),
		launch.WithLogger(lg),
	)

	actions := ledger.NewService(st.drops, st.polls, st.actions, g, h,
		ledger.WithSanitizer(ledger.NewSanitizer(cfg.MessageMaxLength, cfg.ProfanityWords)),
		ledger.WithLogger(lg),
	)

	opts := []httpapi.Option{
		httpapi.WithAmountFormatter(g.FormatUI),
		httpapi.WithReadinessCheck("store", st.ping),
		httpapi.WithReadinessCheck("rpc", func(ctx context.Context) error {
			_, err := rpc.GetSlot(ctx)
			return err
		}),
	}
	if redisCheck != nil {
		opts = append(opts, httpapi.WithReadinessCheck("redis", redisCheck))
	}
	api := httpapi.NewServer(authenticator, launches, actions, h, httpapi.Config{
		CORSOrigins:  cfg.CORSOrigins,
		CookieSecure: cfg.Session.CookieSecure,
		SessionTTL:   cfg.Session.TTL,
	}, lg, opts...)

	go authenticator.RunSweeper(ctx, cfg.Session.SweepInterval)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		lg.Info().Str("addr", cfg.HTTPAddr).Msg("starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		lg.Info().Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	lg.Info().Msg("shutdown complete")
	return nil
}
