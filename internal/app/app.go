package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"trust-plane/internal/config"
	"trust-plane/internal/evidence"
	"trust-plane/internal/health"
	"trust-plane/internal/manifest"
	"trust-plane/internal/mirror"
	"trust-plane/internal/probe"
	"trust-plane/internal/protection"
	"trust-plane/internal/scheduler"
	"trust-plane/internal/service"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

// mirrors builds the optional secondary stores plus the fanout that feeds
// them. Both stores fail open to disabled when unreachable.
func (a *App) mirrors(ctx context.Context) (*mirror.Fanout, *mirror.ObjectStore, *mirror.DocStore, func()) {
	objects := mirror.NewObjectStore(ctx, mirror.ObjectStoreOptions{
		Enabled:   a.Config.ObjectStore.Enabled,
		Endpoint:  a.Config.ObjectStore.Endpoint,
		Bucket:    a.Config.ObjectStore.Bucket,
		AccessKey: a.Config.ObjectStore.AccessKey,
		SecretKey: a.Config.ObjectStore.SecretKey,
		UseSSL:    a.Config.ObjectStore.UseSSL,
	}, a.Logger)

	docs := mirror.NewDocStore(ctx, mirror.DocStoreOptions{
		Enabled: a.Config.DocDB.Enabled,
		DSN:     a.Config.DocDB.DSN,
	}, a.Logger)

	fanout := mirror.NewFanout(a.Config.Mirror.WriteTimeout, a.Logger)
	return fanout, objects, docs, docs.Close
}

func (a *App) healthStore(ctx context.Context) (*health.Store, func()) {
	fanout, objects, docs, closer := a.mirrors(ctx)
	return health.NewStore(a.Config.Storage.HealthDir, fanout, objects, docs, a.Logger), closer
}

func (a *App) manifestStore(ctx context.Context) (*manifest.Store, func()) {
	fanout, objects, docs, closer := a.mirrors(ctx)
	return manifest.NewStore(a.Config.Storage.ManifestDir, fanout, objects, docs, a.Logger), closer
}

func (a *App) evidenceStore(ctx context.Context) (*evidence.Store, func()) {
	fanout, objects, docs, closer := a.mirrors(ctx)
	return evidence.NewStore(a.Config.Storage.EvidenceDir, fanout, objects, docs, a.Logger), closer
}

func (a *App) protectionManager() (*protection.Manager, error) {
	store, err := protection.NewStore(a.Config.Storage.ProtectionFile)
	if err != nil {
		return nil, err
	}

	var upstream *protection.Client
	if a.Config.UpstreamProviderConfigured() {
		upstream = protection.NewClient(protection.ClientOptions{
			BaseURL: a.Config.Provider.BaseURL,
			Path:    a.Config.Provider.Path,
			Token:   a.Config.Provider.Token,
			Timeout: a.Config.Provider.Timeout,
		}, a.Logger)
	}

	opts := protection.ManagerOptions{
		UpstreamConfigured: upstream != nil,
		LocalMode:          a.Config.Provider.LocalMode,
	}
	if upstream == nil {
		return protection.NewManager(opts, nil, store, a.Logger), nil
	}
	return protection.NewManager(opts, upstream, store, a.Logger), nil
}

func (a *App) probeSources() []probe.Source {
	sources := make([]probe.Source, 0, len(a.Config.Probes.Sources))
	for _, src := range a.Config.Probes.Sources {
		sources = append(sources, probe.Source{Name: src.Name, URL: src.URL})
	}
	return sources
}

// Run executes the long-running health check service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeMirrors := a.healthStore(ctx)
	defer closeMirrors()

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Probes.Interval,
		AlignToStart: true,
	}, a.Logger)

	prober := probe.New(a.Config.Probes.RequestTimeout, a.Logger)
	svc := service.New(sched, prober, store, a.probeSources(), a.Config.Probes.RatePerSecond, a.Logger)

	a.Logger.Info().Int("sources", len(a.Config.Probes.Sources)).Msg("starting health check service")
	err := svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("health check service terminated with error")
		return err
	}

	a.Logger.Info().Msg("health check service stopped")
	return nil
}
