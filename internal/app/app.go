// Package app wires all YAP subsystems into a running HTTP server.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems from config, Run serves HTTP until the context is cancelled, and
// Shutdown tears everything down in order.
//
// For testing, inject mock implementations via functional options
// (WithProfileStore, WithLLMProvider, etc.). When an option is not provided,
// New creates real implementations from the config.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/yapvoice/yap/internal/config"
	"github.com/yapvoice/yap/internal/export"
	"github.com/yapvoice/yap/internal/export/profilestore"
	"github.com/yapvoice/yap/internal/health"
	"github.com/yapvoice/yap/internal/llmproxy"
	"github.com/yapvoice/yap/internal/metrics"
	"github.com/yapvoice/yap/internal/observe"
	"github.com/yapvoice/yap/internal/readalong"
	"github.com/yapvoice/yap/internal/settings"
	"github.com/yapvoice/yap/pkg/provider/llm"
	"github.com/yapvoice/yap/pkg/provider/llm/anyllm"
	"github.com/yapvoice/yap/pkg/provider/tts"
	"github.com/yapvoice/yap/pkg/provider/tts/coqui"
)

const (
	defaultListenAddr   = ":8090"
	defaultSettingsPath = "yap-settings.json"
	defaultMetricsPath  = "yap-metrics.db"
	shutdownGrace       = 10 * time.Second
)

// App owns all subsystem lifetimes and serves the YAP HTTP API.
type App struct {
	cfg     *config.Config
	version string

	settings   *settingsState
	profiles   profilestore.Store
	events     metrics.Store
	dispatcher export.Dispatcher
	orch       *export.Orchestrator
	llm        llm.Provider
	lister     llm.ModelLister
	tts        tts.Provider
	player     *readalong.Player
	obs        *observe.Metrics

	handler http.Handler

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithVersion sets the version reported by health checks and stamped into
// full-session payloads. Defaults to "dev".
func WithVersion(v string) Option {
	return func(a *App) { a.version = v }
}

// WithProfileStore injects a profile store instead of creating one from config.
func WithProfileStore(s profilestore.Store) Option {
	return func(a *App) { a.profiles = s }
}

// WithEventStore injects a usage event store instead of opening SQLite.
func WithEventStore(s metrics.Store) Option {
	return func(a *App) { a.events = s }
}

// WithLLMProvider injects a chat backend instead of creating one from config.
// If the provider also implements [llm.ModelLister], model listing is wired
// automatically.
func WithLLMProvider(p llm.Provider) Option {
	return func(a *App) { a.llm = p }
}

// WithTTSProvider injects a synthesis engine instead of creating one from
// config.
func WithTTSProvider(p tts.Provider) Option {
	return func(a *App) { a.tts = p }
}

// WithDispatcher injects an export dispatcher instead of the stock HTTP one.
func WithDispatcher(d export.Dispatcher) Option {
	return func(a *App) { a.dispatcher = d }
}

// WithObserveMetrics injects OTel instruments, e.g. ones backed by a test
// meter provider.
func WithObserveMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.obs = m }
}

// New creates an App by wiring all subsystems together. Use Option functions
// to inject test doubles for any subsystem.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{cfg: cfg, version: "dev"}
	for _, o := range opts {
		o(a)
	}

	if a.obs == nil {
		a.obs = observe.DefaultMetrics()
	}

	if err := a.initSettings(); err != nil {
		return nil, fmt.Errorf("app: init settings: %w", err)
	}
	if err := a.initEvents(); err != nil {
		return nil, fmt.Errorf("app: init metrics store: %w", err)
	}
	if err := a.initProfiles(ctx); err != nil {
		return nil, fmt.Errorf("app: init profile store: %w", err)
	}
	a.initExport()
	if err := a.initLLM(); err != nil {
		return nil, fmt.Errorf("app: init llm provider: %w", err)
	}
	if err := a.initTTS(); err != nil {
		return nil, fmt.Errorf("app: init tts provider: %w", err)
	}

	a.handler = a.buildHandler()
	return a, nil
}

// initSettings loads the persisted settings document and keeps it live.
func (a *App) initSettings() error {
	path := a.cfg.Settings.Path
	if path == "" {
		path = defaultSettingsPath
	}
	state, err := newSettingsState(settings.NewFileStore(path))
	if err != nil {
		return err
	}
	a.settings = state
	return nil
}

// initEvents opens the usage event store and keeps its retention limits in
// step with the live settings.
func (a *App) initEvents() error {
	if a.events != nil {
		return nil
	}

	path := a.cfg.Metrics.SQLitePath
	if path == "" {
		path = defaultMetricsPath
	}

	current := a.settings.Metrics()
	store, err := metrics.OpenSQLite(path, metrics.Limits{
		RetentionDays: current.RetentionDays,
		MaxEvents:     current.MaxEvents,
	})
	if err != nil {
		return err
	}
	a.events = store
	a.closers = append(a.closers, store.Close)

	a.settings.onChange = append(a.settings.onChange, func(s settings.Settings) {
		store.SetLimits(metrics.Limits{
			RetentionDays: s.Metrics.RetentionDays,
			MaxEvents:     s.Metrics.MaxEvents,
		})
	})
	return nil
}

// initProfiles connects the profile store: PostgreSQL when a DSN is
// configured, in-memory otherwise.
func (a *App) initProfiles(ctx context.Context) error {
	if a.profiles != nil {
		return nil
	}

	dsn := a.cfg.Profiles.PostgresDSN
	if dsn == "" {
		a.profiles = profilestore.NewMemStore()
		return nil
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	store := profilestore.NewPostgresStore(pool)
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		return err
	}
	a.profiles = store
	a.closers = append(a.closers, func() error {
		pool.Close()
		return nil
	})
	return nil
}

// initExport assembles the dispatcher, recorder and orchestrator.
func (a *App) initExport() {
	if a.dispatcher == nil {
		var opts []export.DispatcherOption
		if a.cfg.Export.TimeoutSeconds > 0 {
			opts = append(opts, export.WithAttemptTimeout(time.Duration(a.cfg.Export.TimeoutSeconds)*time.Second))
		}
		a.dispatcher = export.NewHTTPDispatcher(a.cfg.Export.RelayURL, opts...)
	}

	recorder := metrics.NewRecorder(a.events, a.obs, func() bool {
		return a.settings.Metrics().Enabled
	})
	a.orch = export.NewOrchestrator(a.dispatcher, export.HeuristicDetector{},
		export.WithRecorder(recorder),
		export.WithAppVersion(a.version),
	)
}

// initLLM builds the chat backend from config unless one was injected. An
// empty llm.model leaves the chat proxy unmounted.
func (a *App) initLLM() error {
	if a.llm != nil {
		if a.lister == nil {
			if l, ok := a.llm.(llm.ModelLister); ok {
				a.lister = l
			}
		}
		return nil
	}

	if a.cfg.LLM.Model == "" {
		return nil
	}

	name := a.cfg.LLM.Provider
	if name == "" || name == "ollama" {
		p, err := anyllm.NewOllama(a.cfg.LLM.Model, a.cfg.LLM.BaseURL)
		if err != nil {
			return err
		}
		a.llm = p
		a.lister = p
		return nil
	}

	var opts []anyllmlib.Option
	if a.cfg.LLM.APIKey != "" {
		opts = append(opts, anyllmlib.WithAPIKey(a.cfg.LLM.APIKey))
	}
	if a.cfg.LLM.BaseURL != "" {
		opts = append(opts, anyllmlib.WithBaseURL(a.cfg.LLM.BaseURL))
	}
	p, err := anyllm.New(name, a.cfg.LLM.Model, opts...)
	if err != nil {
		return err
	}
	a.llm = p
	return nil
}

// initTTS builds the synthesis engine and read-along player. An empty tts.url
// leaves read-along unmounted.
func (a *App) initTTS() error {
	if a.tts == nil {
		if a.cfg.TTS.URL == "" {
			return nil
		}
		var opts []coqui.Option
		if a.cfg.TTS.Language != "" {
			opts = append(opts, coqui.WithLanguage(a.cfg.TTS.Language))
		}
		p, err := coqui.New(a.cfg.TTS.URL, opts...)
		if err != nil {
			return err
		}
		a.tts = p
	}

	a.player = readalong.NewPlayer(a.tts, a.settings.TTS, readalong.WithPlayerMetrics(a.obs))
	return nil
}

// buildHandler assembles the route table and wraps it in the observability
// middleware.
func (a *App) buildHandler() http.Handler {
	mux := http.NewServeMux()

	checkers := []health.Checker{
		{Name: "profiles", Check: func(ctx context.Context) error {
			_, err := a.profiles.List(ctx, profilestore.ListOptions{})
			return err
		}},
	}
	if a.tts != nil {
		checkers = append(checkers, health.Checker{Name: "tts", Check: func(ctx context.Context) error {
			_, err := a.tts.ListVoices(ctx)
			return err
		}})
	}
	health.New(a.version, checkers...).Register(mux)

	mux.Handle("GET /metrics", promhttp.Handler())

	metrics.NewHandler(a.events, a.settings.Metrics).Register(mux)
	NewExportHandler(a.orch, a.profiles, a.obs).Register(mux)
	NewProfilesHandler(a.profiles).Register(mux)
	NewSettingsHandler(a.settings).Register(mux)

	if a.llm != nil {
		ollamaURL := a.cfg.LLM.BaseURL
		if ollamaURL == "" {
			ollamaURL = anyllm.DefaultOllamaURL
		}
		llmproxy.NewHandler(a.llm, a.lister, ollamaURL, a.cfg.LLM.Model,
			llmproxy.WithMetrics(a.obs),
		).Register(mux)
	} else {
		slog.Warn("llm.model not configured; chat proxy disabled")
	}

	if a.player != nil {
		readalong.NewHandler(a.player, a.tts).Register(mux)
	} else {
		slog.Warn("tts.url not configured; read-along disabled")
	}

	return observe.Middleware(a.obs)(mux)
}

// Handler returns the fully assembled HTTP handler. Useful for tests that
// serve the App through httptest.
func (a *App) Handler() http.Handler { return a.handler }

// Run serves the HTTP API and blocks until ctx is cancelled or the server
// fails. On cancellation the listener drains in-flight requests before Run
// returns.
func (a *App) Run(ctx context.Context) error {
	addr := a.cfg.Server.ListenAddr
	if addr == "" {
		addr = defaultListenAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("http server listening", "addr", addr, "tls", a.cfg.Server.TLS != nil)
		var err error
		if tlsCfg := a.cfg.Server.TLS; tlsCfg != nil {
			err = srv.ListenAndServeTLS(tlsCfg.CertFile, tlsCfg.KeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(drainCtx)
	})
	return g.Wait()
}

// Shutdown stops playback and tears down all subsystems in order. It respects
// the context deadline: if ctx expires before all closers finish, remaining
// closers are skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		if a.player != nil {
			a.player.Stop()
		}

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
