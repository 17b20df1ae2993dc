package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/ledger"
	"ledger/internal/log"
	"ledger/internal/services"
)

// ScheduleWorkerConfig holds configuration for the schedule worker
type ScheduleWorkerConfig struct {
	// RefreshInterval is how often the schedule is rewritten without a
	// ledger change (default: 15m). Month rollover is picked up this way.
	RefreshInterval time.Duration
}

func DefaultScheduleWorkerConfig() ScheduleWorkerConfig {
	return ScheduleWorkerConfig{RefreshInterval: 15 * time.Minute}
}

// ScheduleWorker keeps the exported payment schedule in step with the ledger.
type ScheduleWorker struct {
	svc    *services.LedgerService
	writer ledger.ScheduleWriter
	config ScheduleWorkerConfig
	logger *log.StructuredLogger
	now    func() time.Time

	// Serializes exports; the last fingerprint written is skipped on refresh.
	exportMu    sync.Mutex
	lastWritten string

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewScheduleWorker(svc *services.LedgerService, writer ledger.ScheduleWriter, config ScheduleWorkerConfig) *ScheduleWorker {
	if config.RefreshInterval <= 0 {
		config.RefreshInterval = DefaultScheduleWorkerConfig().RefreshInterval
	}
	logger := log.New(log.Config{Component: log.ComponentWorker, Handler: slog.Default().Handler()})
	return &ScheduleWorker{
		svc:    svc,
		writer: writer,
		config: config,
		logger: log.NewStructuredLogger(logger),
		now:    time.Now,
	}
}

// HandleLedgerChanged rewrites the schedule after a ledger change. Returning
// an error requeues the message.
func (w *ScheduleWorker) HandleLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
	slog.InfoContext(ctx, "Processing ledger changed message",
		"obligation_id", msg.ObligationID,
		"operation", msg.Operation,
		"entries", len(msg.EntryIDs))

	if err := w.export(ctx, true); err != nil {
		return fmt.Errorf("export schedule after %s on %s: %w", msg.Operation, msg.ObligationID, err)
	}
	return nil
}

// Refresh rewrites the schedule unless nothing changed since the last export
// in the same month.
func (w *ScheduleWorker) Refresh(ctx context.Context) error {
	return w.export(ctx, false)
}

func (w *ScheduleWorker) export(ctx context.Context, force bool) error {
	w.exportMu.Lock()
	defer w.exportMu.Unlock()

	now := w.now()
	fp, err := w.svc.Fingerprint(ctx)
	if err != nil {
		return err
	}
	key := core.PeriodOf(now).String() + ":" + fp
	if !force && key == w.lastWritten {
		slog.DebugContext(ctx, "Schedule unchanged, skipping export")
		return nil
	}

	sched, err := w.svc.Schedule(ctx, now, nil)
	if err != nil {
		return err
	}
	if err := w.writer.WriteSchedule(ctx, core.PeriodOf(now), sched); err != nil {
		return fmt.Errorf("write schedule: %w", err)
	}
	w.lastWritten = key

	w.logger.LogExport(ctx, core.PeriodOf(now).String(), len(sched.Months), sched.Incomplete, sched.Total().Units)
	return nil
}

// Start begins the refresh loop. Returns an error if already running.
func (w *ScheduleWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("schedule worker is already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	go w.runLoop(ctx)

	slog.InfoContext(ctx, "Schedule worker started", "refresh_interval", w.config.RefreshInterval)
	return nil
}

// Stop signals the loop and waits for it to finish.
func (w *ScheduleWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)

	select {
	case <-w.doneCh:
		slog.InfoContext(ctx, "Schedule worker stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Schedule worker stop timed out")
		return ctx.Err()
	}

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
	return nil
}

func (w *ScheduleWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *ScheduleWorker) runLoop(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.RefreshInterval)
	defer ticker.Stop()

	w.refresh(ctx)

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.refresh(ctx)
		}
	}
}

func (w *ScheduleWorker) refresh(ctx context.Context) {
	if err := w.Refresh(ctx); err != nil {
		w.logger.LogError(ctx, "Scheduled refresh failed", err, log.ComponentWorker, log.OpExport,
			log.NewFields().WithPeriod(core.PeriodOf(w.now()).String()))
	}
}
