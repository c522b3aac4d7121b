// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"telegram-contest-bot/internal/config"
	"telegram-contest-bot/internal/conversation"
	"telegram-contest-bot/internal/domain/ports/adapter"
	"telegram-contest-bot/internal/domain/ports/repository"
	mailer "telegram-contest-bot/internal/infra/adapters/mail"
	tele "telegram-contest-bot/internal/infra/adapters/telegram"
	pg "telegram-contest-bot/internal/infra/db/postgres"
	opshttp "telegram-contest-bot/internal/infra/http"
	"telegram-contest-bot/internal/infra/i18n"
	"telegram-contest-bot/internal/infra/logging"
	"telegram-contest-bot/internal/infra/metrics"
	red "telegram-contest-bot/internal/infra/redis"
	"telegram-contest-bot/internal/infra/sched"
	"telegram-contest-bot/internal/infra/worker"
	"telegram-contest-bot/internal/pager"
	"telegram-contest-bot/internal/usecase"
	"telegram-contest-bot/internal/verification"
)

var (
	version = "dev"
	commit  = "none"
)

// stores are the per-user state backends selected by state.backend.
type stores struct {
	sessions conversation.SessionStore
	tokens   verification.Registry
	cursors  pager.CursorStore
	sweepers []sched.Sweeper
}

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "developer mode: console logs, unredacted PII")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("bot stopped")
	}
}

func run(cfg *config.Config, logger *zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)
	logger.Info().Str("version", version).Bool("dev", cfg.Runtime.Dev).Msg("starting contest bot")

	// ---- Postgres ----
	pool, err := pg.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	go pg.ReportPoolStats(ctx, pool, 15*time.Second)

	// ---- Redis (optional) ----
	var redisClient *red.Client
	if cfg.Redis.Enabled() {
		redisClient, err = red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer redisClient.Close()
	}

	// ---- Repositories ----
	profiles := pg.NewProfileRepo(pool)
	teams := pg.NewTeamRepo(pool)
	var catalog repository.CatalogRepository = pg.NewCatalogRepo(pool)
	if redisClient != nil {
		catalog = pg.NewCatalogRepoCacheDecorator(catalog, redisClient, cfg.Redis.TTL, logger)
	}
	txManager := pg.NewTxManager(pool)

	st := newStores(cfg, redisClient)

	// ---- Collaborators ----
	tr, err := i18n.Default(cfg.Flow.Language)
	if err != nil {
		return fmt.Errorf("i18n: %w", err)
	}
	var mail adapter.Mailer
	if cfg.Mail.Disabled {
		mail = mailer.NewLogMailer(logger, cfg.Runtime.Dev)
	} else {
		mail, err = mailer.NewSMTPMailer(cfg.Mail, logger, cfg.Runtime.Dev)
		if err != nil {
			return fmt.Errorf("mailer: %w", err)
		}
	}

	// ---- Worker pool + Telegram ----
	workers := worker.NewPool(cfg.Bot.Workers, cfg.Bot.QueueSize, logger)
	workers.Start(ctx)
	defer workers.Stop()

	tg, err := tele.NewRealTelegramBotAdapter(&cfg.Bot, workers, logger)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	if redisClient != nil {
		tg.SetRateLimiter(red.NewRateLimiter(redisClient), tr.T("error.rate_limited"))
	}

	// ---- Conversation ----
	bot, err := usecase.NewBot(usecase.Deps{
		Profiles: profiles,
		Catalog:  catalog,
		Teams:    teams,
		Tx:       txManager,
		Tokens:   st.tokens,
		Mailer:   mail,
		Cursors:  st.cursors,
		T:        tr,
		Flow:     cfg.Flow,
		Subject:  cfg.Mail.Subject,
		Logger:   logger,
		Dev:      cfg.Runtime.Dev,
	})
	if err != nil {
		return fmt.Errorf("bot: %w", err)
	}
	engine, err := bot.NewEngine(st.sessions, tg, logger)
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	tg.SetDispatcher(engine)

	if err := tg.SetMyCommands(ctx, map[string]string{
		"start": tr.T("commands.start"),
		"menu":  tr.T("commands.menu"),
	}); err != nil {
		logger.Warn().Err(err).Msg("set bot commands")
	}

	var wg sync.WaitGroup

	// ---- Ops HTTP ----
	ops := opshttp.NewServer(cfg.Admin.Port, nil, logger)
	ops.AddCheck("postgres", pool.Ping)
	if redisClient != nil {
		ops.AddCheck("redis", redisClient.Ping)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := ops.Start(); err != nil {
			logger.Error().Err(err).Msg("ops server")
		}
	}()

	// ---- Sweep ----
	sweeper := sched.NewSweepWorker(cfg.Flow.SweepInterval, logger, st.sweepers...)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = sweeper.Run(ctx)
	}()

	// ---- Restart broadcast ----
	if cfg.Flow.BroadcastOnStart {
		bc := usecase.NewBroadcastUseCase(profiles, tg, workers, logger)
		n, err := bc.BroadcastMessage(ctx, tr.T("broadcast.restart"))
		if err != nil {
			logger.Error().Err(err).Msg("restart broadcast")
		} else {
			logger.Info().Int("recipients", n).Msg("restart broadcast queued")
		}
	}

	// ---- Polling (blocks until shutdown) ----
	if err := tg.StartPolling(ctx); err != nil {
		return fmt.Errorf("polling: %w", err)
	}

	logger.Info().Msg("shutdown requested")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := ops.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		logger.Warn().Err(err).Msg("ops server shutdown")
	}
	wg.Wait()
	return nil
}

func newStores(cfg *config.Config, redisClient *red.Client) stores {
	if cfg.State.Backend == "redis" && redisClient != nil {
		return stores{
			sessions: red.NewSessionStore(redisClient),
			tokens:   red.NewTokenRegistry(redisClient, cfg.Flow.TokenTTL),
			cursors:  red.NewCursorStore(redisClient, cfg.Flow.CursorTTL),
		}
	}
	tokens := verification.NewMemoryRegistry(cfg.Flow.TokenTTL)
	cursors := pager.NewMemoryCursorStore()
	cursorTTL := cfg.Flow.CursorTTL
	return stores{
		sessions: conversation.NewMemorySessionStore(),
		tokens:   tokens,
		cursors:  cursors,
		sweepers: []sched.Sweeper{
			{Store: "tokens", Sweep: func(ctx context.Context, _ time.Time) int { return tokens.Sweep(ctx) }},
			{Store: "cursors", Sweep: func(_ context.Context, now time.Time) int { return cursors.Sweep(now, cursorTTL) }},
		},
	}
}
