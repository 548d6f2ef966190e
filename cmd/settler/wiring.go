package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/turf-ledger/internal/config"
	"github.com/yourusername/turf-ledger/internal/course"
	"github.com/yourusername/turf-ledger/internal/database"
	"github.com/yourusername/turf-ledger/internal/events"
	"github.com/yourusername/turf-ledger/internal/matcher"
	"github.com/yourusername/turf-ledger/internal/metrics"
	"github.com/yourusername/turf-ledger/internal/notify"
	"github.com/yourusername/turf-ledger/internal/racingapi"
	"github.com/yourusername/turf-ledger/internal/repository"
	"github.com/yourusername/turf-ledger/internal/settlement"
)

type closablePublisher interface {
	settlement.EventPublisher
	Close() error
}

// app holds the wired settlement pipeline and the resources it owns
type app struct {
	db           *database.DB
	httpClient   *racingapi.RateLimitedHTTPClient
	publisher    closablePublisher
	orchestrator *settlement.Orchestrator
	log          *logrus.Logger
}

func newApp(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*app, error) {
	metrics.InitRegistry()

	db, err := database.Initialize(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	repos, err := repository.NewRepositories(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	httpClient := racingapi.NewRateLimitedHTTPClient(racingapi.HTTPClientConfig{
		Timeout:           cfg.RacingAPI.Timeout(),
		MaxRetries:        cfg.RacingAPI.MaxRetries,
		RetryWait:         cfg.RacingAPI.RetryWait(),
		RateLimit:         cfg.RacingAPI.RateLimit,
		CircuitBreakerMax: cfg.RacingAPI.CircuitBreakerMax,
	}, log)
	client := racingapi.NewClient(httpClient, racingapi.ClientConfig{
		BaseURL:   cfg.RacingAPI.BaseURL,
		Username:  cfg.RacingAPI.Username,
		Password:  cfg.RacingAPI.Password,
		PageSize:  cfg.RacingAPI.PageSize,
		MaxPages:  cfg.RacingAPI.MaxPages,
		PageDelay: cfg.RacingAPI.PageDelay(),
	}, log)
	log.WithFields(logrus.Fields{
		"source":    client.Name(),
		"base_url":  cfg.RacingAPI.BaseURL,
		"page_size": cfg.RacingAPI.PageSize,
	}).Info("Results client configured")

	var publisher closablePublisher = events.NoopPublisher{}
	if cfg.Events.Enabled {
		publisher = events.NewKafkaPublisher(events.NewWriter(cfg.Events.Brokers, cfg.Events.Topic), cfg.Events.Topic, log)
	}

	var notifier settlement.SummaryNotifier = notify.NoopNotifier{}
	if tg := cfg.Notifications.Telegram; tg.Enabled {
		n, err := notify.NewTelegramNotifier(tg.BotToken, tg.ChatID, log)
		if err != nil {
			log.WithError(err).Warn("Telegram notifier unavailable, pass summaries will only be logged")
		} else {
			notifier = n
		}
	}

	orch, err := settlement.NewOrchestrator(settlement.Dependencies{
		Store:      repos.Bets,
		Resolver:   newResolver(cfg, log),
		Fetcher:    client,
		Matcher:    matcher.New(matcher.Options{MinConfidence: cfg.Matching.MinConfidence}),
		Calculator: settlement.NewCalculator(settlement.RulesFromConfig(cfg.Settlement)),
		Publisher:  publisher,
		Notifier:   notifier,
	}, settlement.Options{
		GroupDelay:     cfg.Settlement.GroupDelay(),
		FailureBackoff: cfg.Settlement.FailureBackoff(),
	}, log)
	if err != nil {
		_ = publisher.Close()
		_ = httpClient.Close()
		db.Close()
		return nil, err
	}

	return &app{
		db:           db,
		httpClient:   httpClient,
		publisher:    publisher,
		orchestrator: orch,
		log:          log,
	}, nil
}

// newResolver builds the course resolver from the course file and configured aliases
func newResolver(cfg *config.Config, log *logrus.Logger) *course.Resolver {
	opts := course.DefaultOptions()
	opts.IgnoreAllWeather = cfg.Courses.IgnoreAllWeather
	if cfg.Courses.MinSimilarity > 0 {
		opts.MinSimilarity = cfg.Courses.MinSimilarity
	}
	if len(cfg.Courses.Aliases) > 0 {
		aliases := make(map[string]string, len(opts.Aliases)+len(cfg.Courses.Aliases))
		for k, v := range opts.Aliases {
			aliases[k] = v
		}
		for k, v := range cfg.Courses.Aliases {
			aliases[k] = v
		}
		opts.Aliases = aliases
	}
	return course.NewResolver(course.LoadTable(cfg.Courses.File, log), opts, log)
}

func (a *app) Close() {
	if err := a.publisher.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close event publisher")
	}
	if err := a.httpClient.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close results client")
	}
	a.db.Close()
}
