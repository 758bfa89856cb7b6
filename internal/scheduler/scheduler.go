// Package scheduler runs the timer-driven capture loop for one page: wait for
// the page to settle, extract and normalize, skip when nothing changed, and
// hand new records to the dispatcher without waiting for the sink.
package scheduler

import (
	"context"
	stderrors "errors"
	"net/url"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/hpungsan/trawl/internal/adapter"
	"github.com/hpungsan/trawl/internal/capture"
	"github.com/hpungsan/trawl/internal/dispatch"
	"github.com/hpungsan/trawl/internal/errors"
	"github.com/hpungsan/trawl/internal/extract"
	"github.com/hpungsan/trawl/internal/source"
)

// Dispatcher stores records. *dispatch.Dispatcher implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, rec *capture.Record) dispatch.Result
}

// FlagStore persists the per-source enabled flag.
type FlagStore interface {
	GetEnabled(ctx context.Context, source string) (bool, error)
	SetEnabled(ctx context.Context, source string, enabled bool) error
}

// Options configures a Scheduler. Zero durations mean no delay.
type Options struct {
	// Name identifies the session in control requests, logs, and metrics.
	// Default: the adapter name.
	Name string

	// Settings override the adapter defaults; zero fields keep them.
	Settings adapter.Settings

	SettleDelay      time.Duration
	NavigationSettle time.Duration

	// AdvanceHashOnFailure leaves the content hash advanced when a dispatch
	// fails. When false the hash is rolled back so the next pass retries.
	AdvanceHashOnFailure bool

	Tagger     *capture.Tagger
	Flags      FlagStore // nil: enabled is not persisted
	Logger     *zap.Logger
	Registerer prometheus.Registerer
	Now        func() time.Time
}

var errDisabled = errors.NewInvalidRequest("capture is disabled for this session")

// Scheduler owns one CaptureSession. All session state is guarded by mu, and
// a capture pass holds mu from snapshot to record build, so passes never
// overlap. Dispatches run outside the lock.
type Scheduler struct {
	adapter    adapter.Adapter
	chain      *extract.Chain
	settings   adapter.Settings
	src        source.Source
	dispatcher Dispatcher
	opts       Options
	logger     *zap.Logger
	metrics    *Metrics

	mu   sync.Mutex
	sess CaptureSession
	next time.Duration

	wake     chan struct{}
	inflight sync.WaitGroup
}

// New creates a scheduler for one page. The enabled flag is loaded from
// opts.Flags when set.
func New(ctx context.Context, a adapter.Adapter, src source.Source, d Dispatcher, opts Options) (*Scheduler, error) {
	if opts.Name == "" {
		opts.Name = a.Name()
	}
	if opts.Tagger == nil {
		opts.Tagger = capture.NewTagger(nil)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	enabled := true
	if opts.Flags != nil {
		var err error
		if enabled, err = opts.Flags.GetEnabled(ctx, a.Name()); err != nil {
			return nil, err
		}
	}

	settings := opts.Settings.Merge(a.Defaults())
	s := &Scheduler{
		adapter:    a,
		chain:      adapter.NewChain(a, settings.MinMessageLength),
		settings:   settings,
		src:        src,
		dispatcher: d,
		opts:       opts,
		logger:     logger.With(zap.String("session", opts.Name), zap.String("source", a.Name())),
		metrics:    NewMetrics(opts.Registerer, opts.Name),
		sess: CaptureSession{
			Name:   opts.Name,
			Source: a.Name(),
			State:  CaptureState{Enabled: enabled},
			Phase:  Idle,
		},
		next: opts.SettleDelay,
		wake: make(chan struct{}, 1),
	}
	if nav, ok := src.(source.Navigator); ok {
		nav.OnNavigate(s.NotifyNavigation)
	}
	return s, nil
}

// Name returns the session name.
func (s *Scheduler) Name() string { return s.opts.Name }

// Settings returns the effective poll interval and minimum length.
func (s *Scheduler) Settings() adapter.Settings { return s.settings }

// Metrics returns the session counters.
func (s *Scheduler) Metrics() *Metrics { return s.metrics }

// Run drives Step from a timer until ctx is cancelled, then waits for
// in-flight dispatches.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	timer := time.NewTimer(s.next)
	s.mu.Unlock()
	defer timer.Stop()

	s.logger.Info("watch started", zap.Duration("poll_interval", s.settings.PollInterval))
	for {
		select {
		case <-ctx.Done():
			s.inflight.Wait()
			s.logger.Info("watch stopped")
			return nil
		case <-s.wake:
			s.mu.Lock()
			timer.Reset(s.next)
			s.mu.Unlock()
		case <-timer.C:
			timer.Reset(s.Step(ctx))
		}
	}
}

// Step performs one timer fire and returns the delay until the next one.
func (s *Scheduler) Step(ctx context.Context) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.src.Snapshot(ctx)
	if err != nil {
		s.logger.Warn("snapshot failed", zap.Error(err))
		s.sess.Phase = WaitingInterval
		s.next = s.settings.PollInterval
		return s.next
	}

	if s.isNavigation(snap.URL) {
		s.resetLocked(snap.URL)
		return s.next
	}
	s.sess.State.LastURL = snap.URL

	s.sess.Phase = Capturing
	rec, prev, err := s.passLocked(snap)
	s.sess.Phase = WaitingInterval
	s.next = s.settings.PollInterval

	if err != nil {
		s.logSkip(err)
		return s.next
	}

	s.inflight.Add(1)
	dctx := context.WithoutCancel(ctx)
	go func() {
		defer s.inflight.Done()
		s.finish(rec, prev, s.dispatcher.Dispatch(dctx, rec), false)
	}()
	return s.next
}

// NotifyNavigation resets the session when url differs from the last seen
// URL and reschedules the next pass after the navigation settle delay. An
// already-started dispatch is not cancelled.
func (s *Scheduler) NotifyNavigation(pageURL string) {
	s.mu.Lock()
	changed := s.isNavigation(pageURL)
	if changed {
		s.resetLocked(pageURL)
	} else {
		s.sess.State.LastURL = pageURL
	}
	s.mu.Unlock()

	if changed {
		select {
		case s.wake <- struct{}{}:
		default:
		}
	}
}

// Toggle sets the enabled flag. The timer keeps running while disabled.
func (s *Scheduler) Toggle(ctx context.Context, enabled bool) (ToggleResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.opts.Flags != nil {
		if err := s.opts.Flags.SetEnabled(ctx, s.sess.Source, enabled); err != nil {
			return ToggleResult{IsCapturing: s.sess.State.Enabled}, err
		}
	}
	s.sess.State.Enabled = enabled
	s.logger.Info("capture toggled", zap.Bool("enabled", enabled))
	return ToggleResult{Success: true, IsCapturing: enabled}, nil
}

// CaptureNow runs a pass that ignores the duplicate check once and waits
// for the dispatch result.
func (s *Scheduler) CaptureNow(ctx context.Context) CaptureNowResult {
	s.mu.Lock()
	if !s.sess.State.Enabled {
		s.mu.Unlock()
		return CaptureNowResult{Error: errDisabled.Message}
	}

	snap, err := s.src.Snapshot(ctx)
	if err != nil {
		s.mu.Unlock()
		return CaptureNowResult{Error: err.Error()}
	}
	if s.isNavigation(snap.URL) {
		s.resetLocked(snap.URL)
	}
	s.sess.State.LastURL = snap.URL
	s.sess.State.LastContentHash = ""

	rec, prev, err := s.passLocked(snap)
	s.mu.Unlock()
	if err != nil {
		s.logSkip(err)
		return CaptureNowResult{Error: err.Error()}
	}

	res := s.dispatcher.Dispatch(ctx, rec)
	s.finish(rec, prev, res, true)
	if !res.Success {
		return CaptureNowResult{Error: res.Err.Error()}
	}
	return CaptureNowResult{Success: true, ID: res.ID}
}

// Preview runs one pass against the current page and returns the record it
// would dispatch. The session is left untouched and the enabled flag and
// duplicate check do not apply.
func (s *Scheduler) Preview(ctx context.Context) (*capture.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.src.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	saved := s.sess
	defer func() { s.sess = saved }()
	s.sess.State.Enabled = true
	s.sess.State.LastContentHash = ""

	rec, _, err := s.passLocked(snap)
	return rec, err
}

// Status reports the session for the control surface.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		Session:        s.sess.Name,
		Source:         s.sess.Source,
		IsCapturing:    s.sess.State.Enabled,
		MessageCount:   s.sess.MessageCount,
		ConversationID: s.sess.State.ConversationID,
		URL:            s.sess.State.LastURL,
		Phase:          s.sess.Phase.String(),
	}
	if !s.sess.State.LastCaptureAt.IsZero() {
		at := s.sess.State.LastCaptureAt
		st.LastCaptureAt = &at
	}
	return st
}

// Session returns a copy of the current session.
func (s *Scheduler) Session() CaptureSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess
}

// Wait blocks until every in-flight dispatch has finished.
func (s *Scheduler) Wait() { s.inflight.Wait() }

// Close releases the page source.
func (s *Scheduler) Close() error {
	s.inflight.Wait()
	return s.src.Close()
}

// passLocked extracts, normalizes, and builds a record, advancing the hash
// optimistically. It returns the previous hash for rollback.
func (s *Scheduler) passLocked(snap *source.Snapshot) (*capture.Record, string, error) {
	s.metrics.Passes.Inc()
	if !s.sess.State.Enabled {
		return nil, "", errDisabled
	}

	pctx := extract.PageContext{URL: snap.URL, Title: snap.Title}
	res := s.chain.Extract(snap.Tree, pctx)
	if res.Empty() {
		if res.Discarded > 0 {
			return nil, "", errors.NewContentTooShort(s.settings.MinMessageLength)
		}
		return nil, "", errors.NewExtractionEmpty(s.adapter.Name())
	}

	msgs := capture.Normalize(res.Candidates, s.settings.MinMessageLength)
	if len(msgs) == 0 {
		return nil, "", errors.NewContentTooShort(s.settings.MinMessageLength)
	}

	hash := capture.ContentHash(msgs)
	if hash == s.sess.State.LastContentHash {
		return nil, "", errors.NewDuplicateContent(hash)
	}

	page := s.adapter.Describe(snap.Tree, pctx)
	now := s.opts.Now()
	rec, err := capture.Build(capture.BuildInput{
		Page:       page,
		Messages:   msgs,
		Strategy:   string(res.Strategy),
		CapturedAt: now,
		Tagger:     s.opts.Tagger,
	})
	if err != nil {
		return nil, "", err
	}

	prev := s.sess.State.LastContentHash
	s.sess.State.LastContentHash = hash
	s.sess.State.LastCaptureAt = now
	s.sess.State.ConversationID = page.ConversationID
	s.sess.MessageCount = len(msgs)
	return rec, prev, nil
}

func (s *Scheduler) finish(rec *capture.Record, prev string, res dispatch.Result, manual bool) {
	hash := rec.ContentHash()
	if res.Success {
		s.metrics.Dispatches.Inc()
		s.logger.Info("capture dispatched",
			zap.String("id", res.ID),
			zap.String("hash", shortHash(hash)),
			zap.Int("messages", len(rec.Messages)),
			zap.Bool("manual", manual))
		return
	}

	s.metrics.DispatchFailures.Inc()
	s.logger.Error("dispatch failed",
		zap.String("hash", shortHash(hash)),
		zap.Bool("manual", manual),
		zap.Error(res.Err))

	if s.opts.AdvanceHashOnFailure {
		return
	}
	s.mu.Lock()
	if s.sess.State.LastContentHash == hash {
		s.sess.State.LastContentHash = prev
	}
	s.mu.Unlock()
}

func (s *Scheduler) resetLocked(pageURL string) {
	s.logger.Info("navigation detected", zap.String("from", s.sess.State.LastURL), zap.String("to", pageURL))
	s.metrics.Navigations.Inc()
	s.sess.State.LastContentHash = ""
	s.sess.State.ConversationID = ""
	s.sess.State.LastURL = pageURL
	s.sess.MessageCount = 0
	s.sess.Phase = Idle
	s.next = s.opts.NavigationSettle
}

func (s *Scheduler) isNavigation(pageURL string) bool {
	return s.sess.State.LastURL != "" && !sameURL(pageURL, s.sess.State.LastURL)
}

func (s *Scheduler) logSkip(err error) {
	reason := "error"
	var cErr *errors.CaptureError
	switch {
	case err == errDisabled:
		reason = "disabled"
	case stderrors.As(err, &cErr):
		reason = string(cErr.Code)
	}
	s.metrics.Skips.WithLabelValues(reason).Inc()

	if reason == "error" || reason == string(errors.ErrRecordInvalid) {
		s.logger.Warn("capture pass failed", zap.Error(err))
		return
	}
	s.logger.Debug("capture skipped", zap.String("reason", reason))
}

// sameURL compares URLs ignoring the fragment.
func sameURL(a, b string) bool {
	return stripFragment(a) == stripFragment(b)
}

func stripFragment(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
