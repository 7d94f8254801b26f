package service

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/arturkryukov/fedarch/internal/config"
	"github.com/arturkryukov/fedarch/internal/domain/model"
	"github.com/arturkryukov/fedarch/internal/metrics"
)

// StatusIterator обходит страницы закладок инстанса.
// Конец обхода — (nil, nil).
type StatusIterator interface {
	Next(ctx context.Context) ([]model.Status, error)
}

// BookmarkSource — API одного инстанса с точки зрения прогона.
type BookmarkSource interface {
	Bookmarks() StatusIterator
	DeleteBookmark(ctx context.Context, statusID string) error
}

// SourceFactory строит клиент API для инстанса.
type SourceFactory func(inst *config.InstanceConfig) BookmarkSource

// StatusProcessor обрабатывает один статус закладки.
type StatusProcessor interface {
	ProcessStatus(ctx context.Context, inst *config.InstanceConfig, status *model.Status) (bool, error)
}

// Runner последовательно прогоняет все инстансы конфигурации.
type Runner struct {
	cfg       *config.Config
	proc      StatusProcessor
	newSource SourceFactory
	logger    *slog.Logger
}

// NewRunner создаёт Runner.
func NewRunner(cfg *config.Config, proc StatusProcessor, newSource SourceFactory, logger *slog.Logger) *Runner {
	return &Runner{
		cfg:       cfg,
		proc:      proc,
		newSource: newSource,
		logger:    logger.With(slog.String("component", "runner")),
	}
}

// RunAll обрабатывает инстансы по порядку конфигурации. Сбой одного
// инстанса не прерывает остальные; отмена контекста прерывает всё.
func (r *Runner) RunAll(ctx context.Context) error {
	for i := range r.cfg.Instances {
		inst := &r.cfg.Instances[i]
		if err := r.runInstance(ctx, inst); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.logger.Error("Прогон инстанса завершился ошибкой",
				slog.String("instance", inst.Name),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

// runInstance — последовательный цикл одного инстанса: статус за
// статусом, rate-пауза и снятие закладки только после фактического
// скачивания, остановка по лимиту.
func (r *Runner) runInstance(ctx context.Context, inst *config.InstanceConfig) error {
	log := r.logger.With(slog.String("instance", inst.Name))

	delay := r.cfg.RateDelay(inst)
	limiter := rate.NewLimiter(rate.Inf, 1)
	if delay > 0 {
		limiter = rate.NewLimiter(rate.Every(delay), 1)
		// Стартовый токен сжигается сразу: пауза положена уже после
		// первого скачивания, а не начиная со второго.
		limiter.Allow()
	}

	log.Info("Прогон инстанса начат",
		slog.String("base_url", inst.BaseURL),
		slog.Duration("rate_delay", delay),
		slog.Int("limit", r.cfg.Runtime.Limit),
		slog.Bool("dry_run", r.cfg.Runtime.DryRun),
	)

	source := r.newSource(inst)
	it := source.Bookmarks()
	processed := 0

	for {
		page, err := it.Next(ctx)
		if err != nil {
			return fmt.Errorf("не удалось получить страницу закладок: %w", err)
		}
		if page == nil {
			break
		}

		for s := range page {
			status := &page[s]
			log.Debug("Обработка статуса",
				slog.String("post_id", status.ID),
				slog.String("url", status.URL),
			)

			downloaded, err := r.proc.ProcessStatus(ctx, inst, status)
			if err != nil {
				return err
			}
			processed++

			if downloaded {
				// Пауза держит интервал между скачиваниями,
				// статусы без скачивания идут без задержки.
				if err := limiter.Wait(ctx); err != nil {
					return err
				}
				if r.cfg.UnbookmarkEnabled(inst) && !r.cfg.Runtime.DryRun {
					if err := source.DeleteBookmark(ctx, status.ID); err != nil {
						log.Error("Не удалось снять закладку",
							slog.String("post_id", status.ID),
							slog.String("error", err.Error()),
						)
					} else {
						metrics.UnbookmarksTotal.WithLabelValues(inst.Name).Inc()
					}
				}
			}

			if r.cfg.Runtime.Limit > 0 && processed >= r.cfg.Runtime.Limit {
				log.Info("Достигнут лимит статусов", slog.Int("processed", processed))
				return nil
			}
		}
	}

	log.Info("Прогон инстанса завершён", slog.Int("processed", processed))
	return nil
}
