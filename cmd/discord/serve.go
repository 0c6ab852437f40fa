package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/keshon/accountability-bot/internal/ai"
	"github.com/keshon/accountability-bot/internal/channels"
	"github.com/keshon/accountability-bot/internal/command"
	"github.com/keshon/accountability-bot/internal/config"
	"github.com/keshon/accountability-bot/internal/discord"
	"github.com/keshon/accountability-bot/internal/engagement"
	"github.com/keshon/accountability-bot/internal/httpapi"
	"github.com/keshon/accountability-bot/internal/logging"
	"github.com/keshon/accountability-bot/internal/metrics"
	"github.com/keshon/accountability-bot/internal/persona"
	"github.com/keshon/accountability-bot/internal/ratelimit"
	"github.com/keshon/accountability-bot/internal/storage"
	v "github.com/keshon/accountability-bot/internal/version"
	"github.com/keshon/accountability-bot/pkg/cmd"
	"github.com/keshon/accountability-bot/pkg/jobmgr"
)

const (
	evictEvery   = 10 * time.Minute
	evictFactor  = 10
	redisTimeout = 5 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Connect to Discord and run the personas",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.RequireDiscord(); err != nil {
			return err
		}
		logger := logging.New(cfg.AppEnv, cfg.LogLevel)
		return serve(cmd.Context(), cfg, logger)
	},
}

func serve(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	logger.Info().Str("app", v.AppName).Str("version", v.Version).Msg("starting")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	personas, err := persona.LoadFile(cfg.PersonasPath)
	if err != nil {
		return fmt.Errorf("load personas: %w", err)
	}
	logger.Info().Int("personas", personas.Len()).Msg("personas loaded")

	store, err := storage.New(cfg.StoragePath, logger)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("close storage")
		}
	}()

	gen, err := ai.NewProvider(cfg)
	if err != nil {
		return err
	}

	limiter, evictor, closeLimiter, err := newLimiter(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeLimiter()

	ledger := engagement.NewLedger(nil)
	weights := engagement.DefaultWeights()
	commands := cmd.NewRegistry()

	bot, err := discord.New(cfg, store, commands, logger)
	if err != nil {
		return err
	}

	responder := channels.NewResponder(channels.ResponderConfig{
		Cooldown:         cfg.ReplyCooldown,
		HelpLength:       cfg.HelpLength,
		ReplyProbability: cfg.ReplyProbability,
		GenerateTimeout:  cfg.AITimeout,
		SendTimeout:      cfg.SendTimeout,
	}, personas, limiter, ledger, gen, bot, logger)
	bot.SetMessageHandler(responder)

	scheduler := channels.NewScheduler(channels.SchedulerConfig{
		Interval:    cfg.SweepInterval,
		SendDelay:   cfg.SendDelay,
		SendTimeout: cfg.SendTimeout,
		StaleAfter:  cfg.CheckStaleAfter,
		OwnerID:     cfg.OwnerUserID,
	}, personas, ledger, bot, logger)

	err = command.RegisterAll(command.Deps{
		Ledger:    ledger,
		Weights:   weights,
		Scheduler: scheduler,
		Registry:  commands,
	},
		command.WithGroupAccessCheck(),
		command.WithGuildOnly(),
		command.WithCommandLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("register commands: %w", err)
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics.MustRegister(promReg)

	api := httpapi.NewServer(httpapi.Deps{
		Ledger:    ledger,
		Weights:   weights,
		Scheduler: scheduler,
		Gatherer:  promReg,
		Store:     store,
	}, logger)

	// A failing job takes the whole process down.
	jm := jobmgr.NewManager(ctx, func(status string) {
		if strings.HasPrefix(status, "error:") {
			logger.Error().Str("job", status).Msg("job failed")
			cancel()
			return
		}
		logger.Info().Str("job", status).Msg("job status")
	})

	jobs := map[string]func(context.Context) error{
		"discord":   bot.Run,
		"scheduler": func(ctx context.Context) error {
			select {
			case <-bot.Ready():
			case <-ctx.Done():
				return nil
			}
			return scheduler.Run(ctx)
		},
	}
	if cfg.HTTPAddr != "" {
		jobs["http"] = func(ctx context.Context) error { return api.Run(ctx, cfg.HTTPAddr) }
	}
	if evictor != nil {
		jobs["ratelimit-evictor"] = evictor
	}
	for name, run := range jobs {
		if err := jm.StartAsync(name, run); err != nil {
			cancel()
			jm.StopAll()
			return err
		}
	}

	<-ctx.Done()
	logger.Info().Msg("shutting down")
	jm.StopAll()
	logger.Info().Msg("bot exited cleanly")
	return nil
}

// newLimiter picks the shared Redis limiter when REDIS_ADDR is set and the
// in-process one otherwise. The in-process limiter comes with an evictor job.
func newLimiter(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (ratelimit.Limiter, func(context.Context) error, func(), error) {
	if cfg.RedisAddr == "" {
		mem := ratelimit.NewMemory(nil)
		maxAge := evictFactor * cfg.ReplyCooldown
		evictor := func(ctx context.Context) error {
			return mem.RunEvictor(ctx, evictEvery, maxAge, logger)
		}
		return mem, evictor, func() {}, nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	pingCtx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, nil, fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
	}
	logger.Info().Str("addr", cfg.RedisAddr).Msg("using redis reply cooldown")
	closeFn := func() {
		if err := client.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
			logger.Warn().Err(err).Msg("close redis")
		}
	}
	return ratelimit.NewRedis(client, logger), nil, closeFn, nil
}
