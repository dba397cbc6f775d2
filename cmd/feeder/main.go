package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"golang.org/x/sync/errgroup"

	"github.com/Miquel-TA/cat-feeder/internal/actuator"
	"github.com/Miquel-TA/cat-feeder/internal/adapter/repo"
	"github.com/Miquel-TA/cat-feeder/internal/dispatch"
	"github.com/Miquel-TA/cat-feeder/internal/display"
	"github.com/Miquel-TA/cat-feeder/internal/http/handlers"
	"github.com/Miquel-TA/cat-feeder/internal/http/httpapi"
	"github.com/Miquel-TA/cat-feeder/internal/infra"
	"github.com/Miquel-TA/cat-feeder/internal/infra/geoip"
	"github.com/Miquel-TA/cat-feeder/internal/jobs"
	"github.com/Miquel-TA/cat-feeder/internal/processor"
	"github.com/Miquel-TA/cat-feeder/internal/sleepwindow"
	"github.com/Miquel-TA/cat-feeder/internal/sources"
)

func main() {
	cfg, err := infra.LoadConfig()
	if err != nil {
		bootLogger := infra.NewLogger("", "")
		bootLogger.Fatal().Err(err).Msg("invalid configuration")
	}
	logger := infra.NewLogger(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error().Err(err).Msg("feeder stopped with error")
		os.Exit(1)
	}
	logger.Info().Msg("feeder stopped")
}

func run(ctx context.Context, cfg *infra.Config, logger infra.Logger) error {
	queueSettings, err := cfg.DispatchSettings()
	if err != nil {
		return err
	}
	sleepSettings, err := cfg.SleepSettings()
	if err != nil {
		return err
	}
	tiers, err := cfg.DomainTiers()
	if err != nil {
		return err
	}

	store, closeStore, err := repo.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip database unavailable, locale falls back to headers")
	}
	defer resolver.Close()

	sleep, err := sleepwindow.NewScheduler(sleepSettings, logger)
	if err != nil {
		return err
	}

	donationHub := display.NewHub("donations", logger, display.WithOriginPatterns(cfg.AllowedOrigins))
	sleepHub := display.NewHub("sleep", logger,
		display.WithOriginPatterns(cfg.AllowedOrigins),
		display.SleepGreeting(sleep),
	)
	defer donationHub.Close()
	defer sleepHub.Close()

	var motor processor.Actuator
	var controller *actuator.Controller
	if cfg.Actuator.Port != "" {
		controller = actuator.NewController(cfg.ActuatorSettings(), logger)
		if err := controller.Start(ctx); err != nil {
			logger.Warn().Err(err).Msg("actuator not reachable yet, will retry on demand")
		}
		defer controller.Close()
		motor = controller
	} else {
		logger.Warn().Msg("no actuator port configured, alerts will not feed")
	}

	gate := processor.NewGate(sleep, logger)
	sleep.RegisterListener("gate", gate.OnSleepChange)
	sleep.RegisterListener("display", display.SleepListener(sleepHub, sleep))

	sink := processor.New(gate, motor, donationHub, store, logger)
	queue, err := dispatch.NewQueue(queueSettings, sink, logger)
	if err != nil {
		return err
	}

	emitter, err := sources.NewEmitter(tiers, store, queue, logger)
	if err != nil {
		return err
	}

	var ingest []sources.Source
	if cfg.Sources.AMQP.Enabled {
		src, err := sources.NewAMQPSource(cfg.AMQPSettings(), emitter.Emit, logger)
		if err != nil {
			return err
		}
		ingest = append(ingest, src)
	}

	cron := jobs.NewScheduler(sleepSettings.Location, logger)
	if cfg.Retention.Days > 0 {
		retention := jobs.NewRetention(store, cfg.Retention.Days, logger)
		if err := cron.Add("retention", cfg.Retention.Schedule, retention.Run); err != nil {
			return err
		}
	}
	if controller != nil && cfg.Actuator.PingSchedule != "" {
		if err := cron.Add("actuator-ping", cfg.Actuator.PingSchedule, jobs.PingJob(controller, logger)); err != nil {
			return err
		}
	}

	if cfg.OperatorJWTSecret == "" {
		logger.Warn().Msg("operator_jwt_secret is empty, operator endpoints are unauthenticated")
	}
	app := handlers.NewApp(sleep, store, emitter, queue, logger)
	router := httpapi.NewRouter(app, donationHub, sleepHub, httpapi.Options{
		AllowedOrigins:     cfg.AllowedOrigins,
		DefaultLocale:      cfg.DefaultLocale,
		CountryLookup:      resolver.Lookup(),
		OperatorSecret:     cfg.OperatorJWTSecret,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
	})
	server := infra.NewHTTPServer(cfg, router, logger)

	queue.Start(ctx)
	defer queue.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ignoreCanceled(sleep.Run(gctx)) })
	g.Go(func() error { return ignoreCanceled(cron.Run(gctx)) })
	for _, src := range ingest {
		src := src
		g.Go(func() error { return src.Run(gctx) })
	}
	g.Go(func() error {
		err := server.Run(gctx, nil)
		// Hijacked websocket connections outlive Shutdown.
		donationHub.Close()
		sleepHub.Close()
		return err
	})

	logger.Info().
		Str("addr", server.Addr()).
		Int("tiers", len(tiers)).
		Dur("minimum_gap", queueSettings.MinimumGap).
		Dur("maximum_delay", queueSettings.MaximumDelay).
		Bool("sleeping", sleep.Sleeping()).
		Time("next_transition", sleep.State().NextTransition).
		Msg("feeder started")

	return g.Wait()
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
