package carlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"carlog/internal/adapters/cache"
	"carlog/internal/adapters/obdlink"
	"carlog/internal/adapters/observability"
	"carlog/internal/adapters/sink"
	"carlog/internal/app/config"
	"carlog/internal/app/logger"
	"carlog/internal/app/poller"
	"carlog/internal/app/state"
	"carlog/internal/interfaces/httpapi"
	"carlog/internal/ports"
)

// SinkFactory builds a record sink for one logging session. destination is a
// trip file path for the csv driver and a table name for postgres.
type SinkFactory func(destination string) (ports.RecordSink, error)

// Option customizes the dependencies used by Engine.
type Option func(*overrides)

type overrides struct {
	transport     Transport
	sinkFactory   SinkFactory
	observability Observability
}

// WithTransport injects a custom transport (simulators, serial bridges, etc.).
func WithTransport(tr Transport) Option {
	return func(o *overrides) { o.transport = tr }
}

// WithSinkFactory overrides how per-session sinks are built.
func WithSinkFactory(f SinkFactory) Option {
	return func(o *overrides) { o.sinkFactory = f }
}

// WithObservability plugs in a custom observability backend.
func WithObservability(obs Observability) Option {
	return func(o *overrides) { o.observability = obs }
}

// Engine composes the transport, value cache, poller, trip logger, and
// shared state into a start/stop lifecycle. It is the external control
// surface: presentation layers call GetState at their own cadence and drive
// logging sessions through StartLogging/StopLogging.
type Engine struct {
	cfg         *config.Config
	obs         ports.Observability
	transport   ports.Transport
	cache       *cache.ValueCache
	logger      *logger.TripLogger
	shared      *state.SharedState
	sinkFactory SinkFactory
	db          *sql.DB

	mu         sync.Mutex
	started    bool
	cancel     context.CancelFunc
	pollerDone chan struct{}
	metricsSrv *http.Server
	apiSrv     *http.Server
}

// New bootstraps the default adapters (OBD TCP bridge transport, CSV sink,
// Prometheus observability). Options override any dependency.
func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var ov overrides
	for _, opt := range opts {
		if opt != nil {
			opt(&ov)
		}
	}

	obs := ov.observability
	if obs == nil {
		obs = observability.NewPromObs()
	}

	tr := ov.transport
	if tr == nil {
		conn, err := obdlink.New(cfg.Transport)
		if err != nil {
			return nil, err
		}
		tr = conn
	}

	params := cfg.DomainParameters()
	e := &Engine{
		cfg:       cfg,
		obs:       obs,
		transport: tr,
		cache:     cache.New(params),
		logger:    logger.New(obs, cfg.Policy),
		shared:    state.New(),
	}

	if ov.sinkFactory != nil {
		e.sinkFactory = ov.sinkFactory
	} else {
		switch cfg.Sink.Driver {
		case "postgres":
			db, err := sql.Open("postgres", cfg.Sink.ConnString)
			if err != nil {
				return nil, err
			}
			e.db = db
			e.sinkFactory = func(string) (ports.RecordSink, error) {
				return sink.NewPostgresSink(db, cfg.Sink.Table), nil
			}
		default:
			ids := paramIDs(params)
			e.sinkFactory = func(destination string) (ports.RecordSink, error) {
				return sink.NewCSVSink(destination, ids)
			}
		}
	}

	return e, nil
}

// Start launches the acquisition loop and the HTTP servers. Idempotent.
// A transport that cannot connect yet is not an error; the poller retries
// every tick until the adapter shows up.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.pollerDone = make(chan struct{})

	p := poller.New(e.transport, e.cache, e.logger, e.shared, e.obs, e.cfg.Policy, e.cfg.DomainParameters())
	go func() {
		p.Run(ctx)
		close(e.pollerDone)
	}()

	e.startServersLocked()
	e.started = true
	e.obs.LogInfo("engine_started")
	return nil
}

// StartLogging opens a logging session. Rejected with ErrInvalidState when
// the engine is stopped, the transport is down, or a session is active.
func (e *Engine) StartLogging(destination string) (logger.SessionStats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.started {
		return logger.SessionStats{}, fmt.Errorf("%w: engine not started", ports.ErrInvalidState)
	}
	if !e.transport.IsLive() {
		return logger.SessionStats{}, fmt.Errorf("%w: transport not connected", ports.ErrInvalidState)
	}
	if e.logger.Active() {
		return logger.SessionStats{}, fmt.Errorf("%w: logging session already open", ports.ErrInvalidState)
	}

	sessionID := uuid.NewString()[:8]
	dest, err := e.resolveDestination(destination, sessionID)
	if err != nil {
		return logger.SessionStats{}, err
	}

	s, err := e.sinkFactory(dest)
	if err != nil {
		return logger.SessionStats{}, fmt.Errorf("open sink: %w", err)
	}
	if err := e.logger.Open(s, sessionID, dest); err != nil {
		_ = s.Close()
		return logger.SessionStats{}, err
	}
	return e.logger.Stats(), nil
}

// StopLogging closes the session, guaranteeing the final flush completes
// before return. Idempotent: a second call returns the same record count.
func (e *Engine) StopLogging() (int, error) {
	return e.logger.Close()
}

// ClearData stops any active session, removes the trip file, and resets the
// session counters.
func (e *Engine) ClearData() error {
	if _, err := e.StopLogging(); err != nil {
		e.obs.LogError("stop_before_clear_failed", err)
	}

	dest := e.logger.Stats().Destination
	if err := e.logger.Reset(); err != nil {
		return err
	}
	if dest != "" && e.cfg.Sink.Driver == "csv" {
		if err := os.Remove(dest); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

// GetState returns the last published tick snapshot. Cheap and non-blocking,
// callable at any presentation cadence.
func (e *Engine) GetState() state.Snapshot {
	return e.shared.Read()
}

// LastDestination reports the current or most recent trip log destination.
func (e *Engine) LastDestination() string {
	return e.logger.Stats().Destination
}

// Run starts the engine and blocks until ctx is cancelled, then shuts down.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// Shutdown stops logging, joins the poller, and releases the transport and
// servers. Already-flushed data is preserved; buffered rows get a final
// best-effort flush via StopLogging. Idempotent.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		return nil
	}
	e.started = false

	var errs []error

	if _, err := e.logger.Close(); err != nil {
		errs = append(errs, err)
	}

	e.cancel()
	select {
	case <-e.pollerDone:
	case <-ctx.Done():
		errs = append(errs, fmt.Errorf("poller did not stop: %w", ctx.Err()))
	}

	for _, srv := range []*http.Server{e.metricsSrv, e.apiSrv} {
		if srv == nil {
			continue
		}
		if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
	}
	e.metricsSrv = nil
	e.apiSrv = nil

	if err := e.transport.Close(); err != nil {
		errs = append(errs, err)
	}
	if e.db != nil {
		if err := e.db.Close(); err != nil {
			errs = append(errs, err)
		}
		e.db = nil
	}

	e.obs.LogInfo("engine_stopped")
	return errors.Join(errs...)
}

func (e *Engine) startServersLocked() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	e.metricsSrv = &http.Server{Addr: e.cfg.Metrics.Addr, Handler: mux}
	go func(srv *http.Server) {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("metrics server exited: %v", err)
		}
	}(e.metricsSrv)

	if e.cfg.API.Addr == "" {
		return
	}
	e.apiSrv = &http.Server{Addr: e.cfg.API.Addr, Handler: httpapi.New(e).Routes()}
	go func(srv *http.Server) {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("api server exited: %v", err)
		}
	}(e.apiSrv)
}

// resolveDestination turns an empty or directory destination into a fresh
// trip file path under the configured log directory.
func (e *Engine) resolveDestination(destination, sessionID string) (string, error) {
	if e.cfg.Sink.Driver == "postgres" {
		if destination == "" {
			return e.cfg.Sink.Table, nil
		}
		return destination, nil
	}

	dir := e.cfg.Sink.Dir
	switch {
	case destination == "":
	case isDir(destination):
		dir = destination
	default:
		return destination, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create log directory: %w", err)
	}
	name := fmt.Sprintf("trip_%s_%s.csv", time.Now().UTC().Format("20060102_150405"), sessionID)
	return filepath.Join(dir, name), nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
