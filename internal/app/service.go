// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	eventqueue "github.com/okian/vibrapulse/internal/adapters/mq/queue"
	workerpool "github.com/okian/vibrapulse/internal/adapters/mq/worker"
	repository "github.com/okian/vibrapulse/internal/adapters/repository"
	"github.com/okian/vibrapulse/internal/domain/analysis"
	"github.com/okian/vibrapulse/internal/domain/dedupe"
	"github.com/okian/vibrapulse/internal/domain/failure"
	"github.com/okian/vibrapulse/internal/domain/inference"
	"github.com/okian/vibrapulse/internal/domain/model"
	"github.com/okian/vibrapulse/internal/domain/reading"
	"github.com/okian/vibrapulse/internal/domain/report"
	"github.com/okian/vibrapulse/pkg/logger"
	"github.com/okian/vibrapulse/pkg/metrics"
)

// ErrNotStarted is returned by Analyze before Start.
var ErrNotStarted = errors.New("service not started")

// Service implements the API dependencies for the risk dashboard.
type Service struct {
	mu sync.RWMutex

	// Core components
	predictor inference.Predictor
	classes   *failure.ClassSet
	store     repository.Store
	deduper   dedupe.Deduper
	queue     eventqueue.Queue
	pool      *workerpool.Pool
	sinks     []workerpool.Sink

	// Configuration
	workerCount     int
	queueSize       int
	dedupeSize      int
	deliveryTimeout time.Duration
	now             func() time.Time

	// State
	started bool

	// Counters
	analyzed   atomic.Int64
	rejected   atomic.Int64
	duplicates atomic.Int64
	dropped    atomic.Int64

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of notification workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the notification queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many upload digests are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithDeliveryTimeout bounds each sink delivery.
func WithDeliveryTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.deliveryTimeout = d
		}
	}
}

// WithStore sets the report store. The service closes it on Stop.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithSinks sets the notification sinks. Sinks implementing io.Closer are
// closed on Stop.
func WithSinks(sinks ...workerpool.Sink) Option {
	return func(s *Service) {
		s.sinks = append(s.sinks, sinks...)
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the report timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a Service around a loaded predictor. The predictor's class
// labels are compiled once here.
func New(p inference.Predictor, opts ...Option) (*Service, error) {
	if p == nil {
		return nil, errors.New("service: nil predictor")
	}
	classes, err := failure.Compile(p.Classes())
	if err != nil {
		return nil, fmt.Errorf("service: compile classes: %w", err)
	}

	s := &Service{
		predictor:       timedPredictor{Predictor: p},
		classes:         classes,
		workerCount:     2,
		queueSize:       1024,
		dedupeSize:      10000,
		deliveryTimeout: 10 * time.Second,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	if !s.classes.Has(failure.Normal) {
		s.logger.Warn(ctx, "model has no Normal class; every high-risk row will be treated as a failure",
			logger.Any("classes", s.classes.Labels()))
	}

	if s.store == nil {
		s.store = repository.NewMemoryStore(ctx)
		s.logger.Info(ctx, "using in-memory report store")
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.sinks,
		workerpool.WithDeliveryTimeout(s.deliveryTimeout),
	)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "risk service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("sinks", len(s.sinks)),
		logger.Int("classes", s.classes.Len()),
	)
	return nil
}

// Stop drains pending notifications until ctx is done, then closes sinks
// and the store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping risk service...")

	var errs []error
	if err := s.pool.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	for _, sink := range s.sinks {
		if c, ok := sink.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close sink %s: %w", sink.Name(), err))
			}
		}
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}

	s.started = false
	s.logger.Info(ctx, "risk service stopped")
	return errors.Join(errs...)
}

// Analyze parses an upload, scores every row, stores the report and hands
// a notification to the background sinks.
func (s *Service) Analyze(ctx context.Context, up report.Upload) (*report.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}

	start := time.Now()
	t, err := reading.Parse(bytes.NewReader(up.Data))
	if err != nil {
		s.reject(ctx, "invalid", up, err)
		return nil, err
	}

	res, err := analysis.Analyze(ctx, s.predictor, s.classes, t)
	if err != nil {
		s.reject(ctx, "model_error", up, err)
		return nil, err
	}

	digest := dedupe.Digest(up.Data)
	rep := report.New(report.Meta{
		ID:        uuid.NewString(),
		FileName:  up.FileName,
		Digest:    digest,
		CreatedAt: s.now(),
	}, t.Columns, res)

	if err := s.store.Save(ctx, rep); err != nil {
		s.reject(ctx, "store_error", up, err)
		return nil, fmt.Errorf("store report: %w", err)
	}

	s.analyzed.Add(1)
	metrics.RecordUpload("ok")
	metrics.RecordRowsScored(t.Len())
	metrics.RecordMaxRisk(rep.Alert.MaxRisk)
	metrics.RecordAlert(rep.Alert.Severity.String())
	metrics.RecordTrendOutcome(string(rep.Trend.Status))
	for _, r := range rep.Advice.Items {
		metrics.RecordRecommendation(failure.KindOf(r.Label).String())
	}
	metrics.RecordAnalysisLatency(float64(time.Since(start).Milliseconds()))

	s.logger.Info(ctx, "upload analyzed",
		logger.String("report_id", rep.ID),
		logger.String("file", rep.FileName),
		logger.Int("rows", len(rep.Rows)),
		logger.Float64("max_risk", rep.Alert.MaxRisk),
		logger.String("severity", rep.Alert.Severity.String()),
		logger.String("trend", string(rep.Trend.Status)),
	)

	s.notify(ctx, rep, up.Data)
	return rep, nil
}

func (s *Service) reject(ctx context.Context, outcome string, up report.Upload, err error) {
	s.rejected.Add(1)
	metrics.RecordUpload(outcome)
	s.logger.Warn(ctx, "upload rejected",
		logger.String("file", up.FileName),
		logger.String("outcome", outcome),
		logger.Error(err),
	)
}

// notify queues one notification per distinct upload content.
func (s *Service) notify(ctx context.Context, rep *report.Report, data []byte) {
	if s.deduper.SeenAndRecord(ctx, rep.Digest) {
		s.duplicates.Add(1)
		metrics.RecordDuplicateUpload()
		s.logger.Debug(ctx, "duplicate upload, notification skipped",
			logger.String("report_id", rep.ID),
			logger.String("digest", rep.Digest),
		)
		return
	}

	n := model.Notification{
		ReportID:  rep.ID,
		FileName:  rep.FileName,
		Digest:    rep.Digest,
		CreatedAt: rep.CreatedAt,
		Severity:  rep.Alert.Severity,
		MaxRisk:   rep.Alert.MaxRisk,
		Message:   rep.Alert.Message,
		Rows:      len(rep.Rows),
		Upload:    data,
	}
	if !s.queue.Enqueue(ctx, n) {
		s.deduper.Unrecord(ctx, rep.Digest)
		s.dropped.Add(1)
		s.logger.Warn(ctx, "notification queue full, notification dropped",
			logger.String("report_id", rep.ID),
		)
	}
}

// Report returns a stored report by id.
func (s *Service) Report(ctx context.Context, id string) (*report.Report, error) {
	return s.currentStore().Get(ctx, id)
}

// TopReports returns up to n stored report summaries, highest risk first.
func (s *Service) TopReports(ctx context.Context, n int) ([]report.Summary, error) {
	return s.currentStore().Top(ctx, n)
}

func (s *Service) currentStore() repository.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.store == nil {
		return emptyStore{}
	}
	return s.store
}

// Classes returns the compiled model classes in model order.
func (s *Service) Classes() []failure.Class { return s.classes.Classes() }

// Features returns the feature columns the model expects.
func (s *Service) Features() []string { return s.predictor.Features() }

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":      s.started,
		"workerCount":  s.workerCount,
		"queueSize":    s.queueSize,
		"dedupeSize":   s.dedupeSize,
		"sinks":        len(s.sinks),
		"classes":      s.classes.Labels(),
		"analyzed":     s.analyzed.Load(),
		"rejected":     s.rejected.Load(),
		"duplicates":   s.duplicates.Load(),
		"droppedNotes": s.dropped.Load(),
	}

	if s.started {
		queueLen := s.queue.Len()
		stored := s.store.Count(context.Background())

		stats["queueLength"] = queueLen
		stats["reportsStored"] = stored
		stats["digestsSeen"] = s.deduper.Size()

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateReportsStored(stored)
	}
	return stats
}

// timedPredictor records classifier latency.
type timedPredictor struct {
	inference.Predictor
}

func (p timedPredictor) PredictProba(ctx context.Context, rows [][]float64) ([][]float64, error) {
	start := time.Now()
	out, err := p.Predictor.PredictProba(ctx, rows)
	metrics.RecordInferenceLatency(float64(time.Since(start).Milliseconds()))
	return out, err
}

// emptyStore answers reads before Start.
type emptyStore struct{}

func (emptyStore) Save(context.Context, *report.Report) error { return ErrNotStarted }
func (emptyStore) Get(context.Context, string) (*report.Report, error) {
	return nil, repository.ErrNotFound
}
func (emptyStore) Top(context.Context, int) ([]report.Summary, error) { return nil, nil }
func (emptyStore) Count(context.Context) int                          { return 0 }
func (emptyStore) Close() error                                       { return nil }
