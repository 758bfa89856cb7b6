package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hpungsan/trawl/internal/adapter"
	"github.com/hpungsan/trawl/internal/config"
	"github.com/hpungsan/trawl/internal/dispatch"
	"github.com/hpungsan/trawl/internal/ops"
	"github.com/hpungsan/trawl/internal/scheduler"
	"github.com/hpungsan/trawl/internal/source"
)

// deps holds what every watched page shares: the store, the dispatcher,
// the adapter registry, and the metrics registry.
type deps struct {
	db         *sql.DB
	cfg        *config.Config
	logger     *zap.Logger
	adapters   *adapter.Registry
	dispatcher *dispatch.Dispatcher
	registry   *prometheus.Registry
	closeSink  func()
}

// newDeps connects the configured sink. Close releases it.
func newDeps(database *sql.DB, cfg *config.Config, logger *zap.Logger) (*deps, error) {
	sink, closeSink, err := newSink(database, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &deps{
		db:         database,
		cfg:        cfg,
		logger:     logger,
		adapters:   adapter.Default(),
		dispatcher: dispatch.New(sink, logger.Named("dispatch")),
		registry:   prometheus.NewRegistry(),
		closeSink:  closeSink,
	}, nil
}

func (dep *deps) Close() {
	if dep.closeSink != nil {
		dep.closeSink()
	}
}

// newSink returns the sink selected by cfg.Sink.
func newSink(database *sql.DB, cfg *config.Config, logger *zap.Logger) (dispatch.Sink, func(), error) {
	switch cfg.Sink {
	case "", config.SinkSQLite:
		return ops.NewSink(database), func() {}, nil
	case config.SinkNATS:
		nc, err := nats.Connect(cfg.NATSURL,
			nats.Name("trawl"),
			nats.MaxReconnects(-1),
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				if err != nil {
					logger.Warn("nats disconnected", zap.Error(err))
				}
			}),
			nats.ReconnectHandler(func(nc *nats.Conn) {
				logger.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
			}),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("connect nats: %w", err)
		}
		return dispatch.NewNATSSink(nc, cfg.NATSSubject), func() { _ = nc.Drain() }, nil
	default:
		return nil, nil, fmt.Errorf("invalid sink %q", cfg.Sink)
	}
}

// newScheduler builds the scheduler for one watched page. A watch with a
// file reads the HTML snapshot; otherwise the page is opened in Chrome.
func (dep *deps) newScheduler(ctx context.Context, w config.Watch, name string, d scheduler.Dispatcher) (*scheduler.Scheduler, error) {
	a, err := dep.adapters.Resolve(w.Source, w.URL)
	if err != nil {
		return nil, err
	}

	var src source.Source
	if w.File != "" {
		src = source.NewFile(w.File, w.URL)
	} else {
		src = source.NewBrowser(ctx, w.URL, source.BrowserOptions{
			RemoteURL: dep.cfg.ChromeURL,
			Headless:  dep.cfg.Headless,
		})
	}

	sc := dep.cfg.Source(a.Name())
	if name == "" {
		name = a.Name()
	}
	var flags scheduler.FlagStore
	if dep.db != nil {
		flags = ops.Flags{DB: dep.db}
	}
	return scheduler.New(ctx, a, src, d, scheduler.Options{
		Name: name,
		Settings: adapter.Settings{
			PollInterval:     time.Duration(sc.PollIntervalMs) * time.Millisecond,
			MinMessageLength: sc.MinMessageLength,
		},
		SettleDelay:          dep.cfg.SettleDelay(),
		NavigationSettle:     dep.cfg.NavigationSettle(),
		AdvanceHashOnFailure: dep.cfg.AdvanceHash(),
		Flags:                flags,
		Logger:               dep.logger.Named("scheduler"),
		Registerer:           dep.registry,
	})
}

// newGroup builds one session per configured watch. Watches whose source is
// disabled in config are skipped. Repeated sources get numbered session
// names: chatgpt, chatgpt-2, ...
func (dep *deps) newGroup(ctx context.Context, watches []config.Watch) (*scheduler.Group, error) {
	group, err := scheduler.NewGroup()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]int)
	for i, w := range watches {
		a, err := dep.adapters.Resolve(w.Source, w.URL)
		if err != nil {
			_ = group.Close()
			return nil, fmt.Errorf("watches[%d]: %w", i, err)
		}
		if dep.cfg.Source(a.Name()).Disabled {
			dep.logger.Info("source disabled, skipping watch", zap.String("source", a.Name()), zap.String("url", w.URL))
			continue
		}

		seen[a.Name()]++
		name := a.Name()
		if n := seen[a.Name()]; n > 1 {
			name += "-" + strconv.Itoa(n)
		}

		s, err := dep.newScheduler(ctx, w, name, dep.dispatcher)
		if err != nil {
			_ = group.Close()
			return nil, fmt.Errorf("watches[%d]: %w", i, err)
		}
		if err := group.Add(s); err != nil {
			_ = s.Close()
			_ = group.Close()
			return nil, err
		}
	}
	return group, nil
}

// serveMetrics exposes the session counters on addr until ctx is cancelled.
func (dep *deps) serveMetrics(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(dep.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	dep.logger.Info("metrics listening", zap.String("addr", addr))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
