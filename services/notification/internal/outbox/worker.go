package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"taskflow/pkg/config"
	"taskflow/pkg/logger"
	"taskflow/pkg/mailer"
	"taskflow/services/notification/internal/entity"
	"taskflow/services/notification/internal/metrics"
	"taskflow/services/notification/internal/repo/persistent"
)

type Config struct {
	Interval       time.Duration
	BatchSize      int
	MaxRetries     int
	BaseRetryDelay time.Duration
	SendTimeout    time.Duration // per delivery attempt
}

func ConfigFrom(cfg *config.Config) Config {
	return Config{
		Interval:       cfg.OutboxInterval,
		BatchSize:      cfg.OutboxBatchSize,
		MaxRetries:     cfg.OutboxMaxRetries,
		BaseRetryDelay: cfg.OutboxBaseRetryDelay,
		SendTimeout:    cfg.OutboxSendTimeout,
	}
}

// Worker delivers queued reminder mail. A failed delivery is retried with
// exponential backoff until MaxRetries attempts have failed.
type Worker struct {
	repo   persistent.OutboxRepository
	sender mailer.Sender
	cfg    Config
	logger *logger.Logger
	now    func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewWorker(repo persistent.OutboxRepository, sender mailer.Sender, cfg Config, logger *logger.Logger) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.BaseRetryDelay <= 0 {
		cfg.BaseRetryDelay = 30 * time.Second
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 30 * time.Second
	}
	return &Worker{
		repo:   repo,
		sender: sender,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

func (w *Worker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		w.logger.Warn("[OUTBOX] Worker is already running")
		return
	}

	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.logger.Info("[OUTBOX] Starting worker, interval %s", w.cfg.Interval)
	go w.loop(w.stopCh, w.doneCh)
}

// Stop signals the loop and waits for the batch in flight, or for ctx.
func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	close(w.stopCh)
	done := w.doneCh
	w.mu.Unlock()

	select {
	case <-done:
		w.logger.Info("[OUTBOX] Worker stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("outbox stop: %w", ctx.Err())
	}
}

func (w *Worker) loop(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-stopCh
		cancel()
	}()

	for {
		select {
		case <-ticker.C:
			w.ProcessOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// ProcessOnce handles one batch of due events and returns how many were delivered.
func (w *Worker) ProcessOnce(ctx context.Context) int {
	events, err := w.repo.FetchDue(ctx, w.now(), w.cfg.BatchSize)
	if err != nil {
		w.logger.Error("[OUTBOX] Failed to fetch events: %v", err)
		return 0
	}

	delivered := 0
	for _, event := range events {
		if ctx.Err() != nil {
			break
		}
		if err := w.attempt(ctx, event); err != nil {
			w.markFailed(ctx, event, err)
			continue
		}
		if err := w.repo.MarkProcessed(ctx, event.ID, w.now()); err != nil {
			w.logger.Error("[OUTBOX] Failed to mark event %s processed: %v", event.ID, err)
			continue
		}
		metrics.OutboxDeliveries.WithLabelValues("delivered").Inc()
		delivered++
	}
	return delivered
}

func (w *Worker) attempt(ctx context.Context, event *entity.OutboxMessage) error {
	sendCtx, cancel := context.WithTimeout(ctx, w.cfg.SendTimeout)
	defer cancel()
	return w.handle(sendCtx, event)
}

func (w *Worker) handle(ctx context.Context, event *entity.OutboxMessage) error {
	switch event.EventType {
	case entity.EventOverdueReminder:
		var reminder mailer.Reminder
		if err := json.Unmarshal(event.Payload, &reminder); err != nil {
			return fmt.Errorf("failed to decode event %s: %w", event.ID, err)
		}
		return w.sender.SendReminder(ctx, reminder)
	default:
		return fmt.Errorf("unknown event type: %s", event.EventType)
	}
}

func (w *Worker) markFailed(ctx context.Context, event *entity.OutboxMessage, cause error) {
	retryCount := event.RetryCount + 1
	if retryCount >= w.cfg.MaxRetries {
		w.logger.Error("[OUTBOX] Event %s failed permanently after %d attempts: %v", event.ID, retryCount, cause)
		metrics.OutboxDeliveries.WithLabelValues("failed").Inc()
		if err := w.repo.MarkFailed(ctx, event.ID, retryCount, cause.Error()); err != nil {
			w.logger.Error("[OUTBOX] Failed to mark event %s failed: %v", event.ID, err)
		}
		return
	}

	next := w.now().Add(Backoff(w.cfg.BaseRetryDelay, retryCount))
	w.logger.Warn("[OUTBOX] Event %s attempt %d failed, retrying at %s: %v", event.ID, retryCount, next.Format(time.RFC3339), cause)
	metrics.OutboxDeliveries.WithLabelValues("retry").Inc()
	if err := w.repo.MarkRetry(ctx, event.ID, retryCount, cause.Error(), next); err != nil {
		w.logger.Error("[OUTBOX] Failed to schedule retry for event %s: %v", event.ID, err)
	}
}

// Backoff is base * 2^(retryCount-1).
func Backoff(base time.Duration, retryCount int) time.Duration {
	if retryCount < 1 {
		return 0
	}
	return base * time.Duration(1<<uint(retryCount-1))
}
