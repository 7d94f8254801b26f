// Точка входа fedarch — архиватора медиафайлов из закладок
// fediverse-инстансов.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arturkryukov/fedarch/internal/classify"
	"github.com/arturkryukov/fedarch/internal/config"
	"github.com/arturkryukov/fedarch/internal/downloader"
	"github.com/arturkryukov/fedarch/internal/mastodon"
	"github.com/arturkryukov/fedarch/internal/server"
	"github.com/arturkryukov/fedarch/internal/service"
	"github.com/arturkryukov/fedarch/internal/storage/archive"
	"github.com/arturkryukov/fedarch/internal/storage/hashdb"
	"github.com/arturkryukov/fedarch/internal/suppress"
)

func main() {
	var (
		configPath    = flag.String("config", "fedarch.yaml", "путь к файлу конфигурации")
		limit         = flag.Int("limit", -1, "обработать не более N постов на инстанс (переопределение)")
		rateExpr      = flag.String("rate", "", "частота скачиваний, например \"2/minute\" (переопределение)")
		unbookmark    = flag.Bool("unbookmark", false, "снимать закладки после скачивания")
		noUnbookmark  = flag.Bool("no-unbookmark", false, "не снимать закладки после скачивания")
		dryRun        = flag.Bool("dry-run", false, "ничего не писать и не снимать закладки")
		dumpBookmarks = flag.Bool("dump-bookmarks", false, "печатать сырые ответы API закладок")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка конфигурации: %v\n", err)
		os.Exit(1)
	}

	ov := config.Overrides{
		DryRun:        *dryRun,
		DumpBookmarks: *dumpBookmarks,
	}
	if *limit >= 0 {
		ov.Limit = limit
	}
	if *rateExpr != "" {
		ov.Rate = rateExpr
	}
	if *unbookmark && *noUnbookmark {
		fmt.Fprintln(os.Stderr, "Флаги -unbookmark и -no-unbookmark взаимоисключающие")
		os.Exit(1)
	}
	if *unbookmark || *noUnbookmark {
		v := *unbookmark
		ov.Unbookmark = &v
	}
	if err := ov.Apply(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка конфигурации: %v\n", err)
		os.Exit(1)
	}

	logger := config.SetupLogger(cfg)
	logger.Info("fedarch запускается",
		slog.String("version", config.Version),
		slog.String("config", cfg.ConfigFile),
		slog.Int("instances", len(cfg.Instances)),
		slog.Bool("dry_run", cfg.Runtime.DryRun),
	)

	if err := config.EnsureDirs(cfg); err != nil {
		logger.Error("Ошибка создания директорий", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// --- Инициализация компонентов ---

	// 1. Контент-индекс поверх JSONL-журналов
	db, err := hashdb.Open(cfg.Paths.HashDBFile, cfg.Paths.RemovedLogFile, logger)
	if err != nil {
		logger.Error("Ошибка загрузки контент-индекса", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Окно подавления недавних media_not_found
	tracker := suppress.New(cfg.Paths.RemovedLogFile, cfg.Removed.SkipMediaNotFoundFor, logger)

	// 3. Классификатор хостов
	rules := make([]classify.Rule, 0, len(cfg.Classify.Rules))
	for _, r := range cfg.Classify.Rules {
		rules = append(rules, classify.Rule{Match: r.Match, Group: r.Group})
	}
	classifier := classify.New(rules)

	// 4. Скачиватель медиафайлов
	fetcher := downloader.New(nil, downloader.Options{
		TmpDir:      cfg.Paths.Tmp,
		UserAgent:   cfg.Download.UserAgent,
		MaxAttempts: cfg.Download.Retry.MaxAttempts,
		RetryDelay:  cfg.Download.Retry.Delay,
		RateControl: cfg.Download.Retry.RateControl,
		RateDelay:   cfg.Download.Rate.Delay,
		Progress:    cfg.Download.Progress,
	}, logger)

	// 5. Процессор статусов и прогон
	mover := archive.New(cfg.Paths.Download, cfg.Paths.Archive, cfg.Archive.Enabled, logger)
	proc := service.NewProcessor(cfg, db, mover, fetcher, tracker, classifier, logger)
	runner := service.NewRunner(cfg, proc, newSource(cfg, logger), logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 6. Служебный сервер наблюдаемости и мониторинг инстансов
	if cfg.Metrics.Enabled {
		srv := server.New(cfg.Metrics.Port, logger)
		srv.Start()
		defer func() {
			if err := srv.Shutdown(); err != nil {
				logger.Error("Ошибка остановки служебного сервера", slog.String("error", err.Error()))
			}
		}()

		dephealthSvc, dephealthErr := service.NewDephealthService(
			cfg.Metrics.DephealthGroup,
			cfg.Instances,
			cfg.Metrics.DephealthCheckInterval,
			logger,
		)
		if dephealthErr != nil {
			logger.Warn("topologymetrics недоступен, запуск без мониторинга инстансов",
				slog.String("error", dephealthErr.Error()),
			)
		} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics", slog.String("error", startErr.Error()))
		} else {
			defer dephealthSvc.Stop()
		}
	}

	// --- Прогон ---

	if err := runner.RunAll(ctx); err != nil {
		if ctx.Err() != nil {
			logger.Info("Прогон прерван сигналом")
		} else {
			logger.Error("Прогон завершился ошибкой", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	logger.Info("fedarch завершён")
}

// newSource строит фабрику API-клиентов для прогона.
func newSource(cfg *config.Config, logger *slog.Logger) service.SourceFactory {
	httpClient := &http.Client{Timeout: 60 * time.Second}
	return func(inst *config.InstanceConfig) service.BookmarkSource {
		client := mastodon.New(inst.BaseURL, inst.AccessToken, cfg.Download.UserAgent, httpClient, logger)
		if cfg.Runtime.DumpBookmarks {
			client.DumpWriter = os.Stdout
		}
		return sourceAdapter{client}
	}
}

// sourceAdapter приводит *mastodon.Client к контракту прогона.
type sourceAdapter struct {
	*mastodon.Client
}

func (a sourceAdapter) Bookmarks() service.StatusIterator {
	return a.Client.Bookmarks()
}
