package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tupakrantina/backoffice/internal/aggregation"
	"github.com/tupakrantina/backoffice/internal/cartera"
	"github.com/tupakrantina/backoffice/internal/external/webhook"
	"github.com/tupakrantina/backoffice/internal/external/whatsapp"
	"github.com/tupakrantina/backoffice/internal/leads"
	"github.com/tupakrantina/backoffice/internal/notify"
	"github.com/tupakrantina/backoffice/internal/render"
	"github.com/tupakrantina/backoffice/internal/report"
	"github.com/tupakrantina/backoffice/internal/scoreconfig"
	"github.com/tupakrantina/backoffice/internal/scoring"
	"github.com/tupakrantina/backoffice/internal/storage"
	"github.com/tupakrantina/backoffice/pkg/config"
	"github.com/tupakrantina/backoffice/pkg/database"
	"github.com/tupakrantina/backoffice/pkg/httputil"
	"github.com/tupakrantina/backoffice/pkg/logger"
	"github.com/tupakrantina/backoffice/pkg/redis"
)

// app holds what every command needs: config, logger, report timezone
// and the (possibly disabled) Redis client
type app struct {
	cfg   *config.Config
	log   *logger.Logger
	loc   *time.Location
	redis *redis.Client
	db    *database.DB
}

// newApp loads config, applies the global flags and connects to Redis.
// A Redis outage downgrades to a disabled client.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadWithEnvFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if env != "" {
		cfg.Env = env
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	log := logger.New(cfg)

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	rc, err := redis.New(ctx, cfg)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, caching and rate limits disabled")
		rc = redis.Disabled()
	}

	return &app{cfg: cfg, log: log, loc: loc, redis: rc}, nil
}

// database connects lazily; commands that never touch Postgres never need it
func (a *app) database(ctx context.Context) (*database.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	db, err := database.New(ctx, a.cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	a.db = db
	return db, nil
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
	if err := a.redis.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close Redis")
	}
}

// repository returns the Postgres record source, or nil when
// DATABASE_URL is not set
func (a *app) repository(ctx context.Context) (*cartera.Repository, error) {
	db, err := a.database(ctx)
	if errors.Is(err, database.ErrNotConfigured) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return cartera.NewRepository(db.Pool, a.loc, a.log.Zerolog()), nil
}

// generatorOptions selects the optional collaborators of a Generator
type generatorOptions struct {
	delivery bool
	progress cartera.ProgressSink
}

// newGenerator wires the full report pipeline. Archive and e-mail
// delivery are attached only when configured.
func (a *app) newGenerator(ctx context.Context, opts generatorOptions) (*cartera.Generator, error) {
	zlog := a.log.Zerolog()

	logo, err := cartera.LoadLogo(ctx, httputil.New(a.log), a.cfg.Report.LogoURL)
	if err != nil {
		a.log.WithError(err).Warn("Logo unavailable, cover rendered without it")
	}

	raster, err := render.NewRasterizer(render.Options{
		Scale:       a.cfg.Report.RenderScale,
		OutputWidth: render.DefaultOptions().OutputWidth,
		Logo:        logo,
	})
	if err != nil {
		return nil, fmt.Errorf("init rasterizer: %w", err)
	}

	engine, err := a.scoringEngine()
	if err != nil {
		return nil, err
	}

	deps := cartera.Deps{
		Engine:     engine,
		Aggregator: aggregation.NewAggregator(zlog),
		Composer: report.NewComposer(report.Options{
			System:  a.cfg.Report.SystemName,
			LogoURL: a.cfg.Report.LogoURL,
			Now:     func() time.Time { return time.Now().In(a.loc) },
		}, zlog),
		Renderer: render.NewExporter(raster, render.ExporterConfig{
			Workers:     a.cfg.Report.RenderWorkers,
			PageTimeout: a.cfg.Report.PageTimeout,
		}, zlog),
		Redis: a.redis,
	}
	if opts.progress != nil {
		deps.Progress = opts.progress
	}

	if opts.delivery {
		if err := a.attachDelivery(ctx, &deps); err != nil {
			return nil, err
		}
	}

	return cartera.NewGenerator(deps, zlog), nil
}

// scoringEngine builds the engine from REPORT_SCORING_FILE, or the
// built-in profile when it is unset
func (a *app) scoringEngine() (*scoring.Engine, error) {
	profile, err := scoreconfig.LoadOrDefault(a.cfg.Report.ScoringFile)
	if err != nil {
		return nil, fmt.Errorf("scoring profile: %w", err)
	}

	hash, err := scoreconfig.Hash(profile)
	if err != nil {
		return nil, err
	}
	log := a.log.WithFields(map[string]interface{}{
		"profile_id": profile.Meta.ProfileID,
		"version":    profile.Meta.Version,
		"hash":       hash[:12],
	})
	for _, w := range scoreconfig.Warn(profile) {
		log.WithField("code", w.Code).Warn(w.Message)
	}
	log.Debug("Scoring profile loaded")

	return scoring.NewEngine(profile.Weights(), a.log, profile.EngineOptions()...), nil
}

func (a *app) attachDelivery(ctx context.Context, deps *cartera.Deps) error {
	zlog := a.log.Zerolog()

	archive, err := storage.New(a.cfg.Storage, zlog)
	switch {
	case errors.Is(err, storage.ErrDisabled):
		a.log.Debug("Report archive disabled")
	case err != nil:
		return fmt.Errorf("init archive: %w", err)
	default:
		if err := archive.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("init archive: %w", err)
		}
		deps.Archiver = archive
	}

	if a.cfg.MailEnabled() {
		mailer, err := notify.NewMailer(a.cfg.Mail, zlog)
		if err != nil {
			return fmt.Errorf("init mailer: %w", err)
		}
		deps.Mailer = mailer
	} else {
		a.log.Debug("Report e-mail disabled")
	}

	return nil
}

// newLeadService wires the lead capture flow. Submission needs
// LEAD_WEBHOOK_URL; verification works without it.
func (a *app) newLeadService() *leads.Service {
	cache := redis.NewCache(a.redis, "tupak")
	verifier := whatsapp.NewClient(a.cfg.WhatsApp, cache, a.log)

	var submitter leads.Submitter
	if hook, err := webhook.NewClient(a.cfg.Leads.WebhookURL, a.log); err != nil {
		a.log.WithError(err).Warn("Lead submission disabled")
		submitter = disabledSubmitter{err: err}
	} else {
		submitter = hook
	}

	return leads.NewService(verifier, submitter, redis.NewRateLimiter(a.redis, "tupak"), a.log.Zerolog())
}

type disabledSubmitter struct {
	err error
}

func (d disabledSubmitter) Submit(ctx context.Context, lead webhook.Lead) (string, error) {
	return "", d.err
}
