package service

import (
	"context"
	"sync"
	"time"

	"teleindex-backend/internal/common/config"
	"teleindex-backend/internal/common/logger"
	"teleindex-backend/internal/features/admin/models"
)

// LinkCheckWorker периодически запускает проверку ссылок в фоне
type LinkCheckWorker struct {
	service   AdminService
	interval  time.Duration
	batchSize int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewLinkCheckWorker(service AdminService, cfg *config.Config) *LinkCheckWorker {
	ctx, cancel := context.WithCancel(context.Background())
	return &LinkCheckWorker{
		service:   service,
		interval:  cfg.LinkCheck.Interval,
		batchSize: cfg.LinkCheck.BatchSize,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Enabled сообщает, задан ли интервал проверки
func (w *LinkCheckWorker) Enabled() bool {
	return w.interval > 0
}

func (w *LinkCheckWorker) Start() {
	if !w.Enabled() {
		return
	}

	logger.Info().Dur("interval", w.interval).Int("batch_size", w.batchSize).Msg("Starting link check worker")
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				w.RunOnce(w.ctx)
			case <-w.ctx.Done():
				return
			}
		}
	}()
}

// RunOnce выполняет один проход проверки
func (w *LinkCheckWorker) RunOnce(ctx context.Context) {
	if _, err := w.service.CheckLinks(ctx, models.LinkCheckRequest{Limit: w.batchSize}); err != nil && ctx.Err() == nil {
		logger.Error().Err(err).Msg("Scheduled link check failed")
	}
}

func (w *LinkCheckWorker) Stop() {
	w.cancel()
	w.wg.Wait()
	logger.Info().Msg("Link check worker stopped")
}
