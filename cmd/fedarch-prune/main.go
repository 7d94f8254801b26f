// Точка входа fedarch-prune — утилиты удаления файлов из дерева
// загрузок вместе с их записями контент-индекса.
//
// Аргументы — пути файлов, относительные к корню загрузок или
// абсолютные. Сам корень и пути вне корня отвергаются. Индекс
// компактируется одной перезаписью, файлы удаляются после него.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/arturkryukov/fedarch/internal/config"
	"github.com/arturkryukov/fedarch/internal/storage/hashdb"
)

func main() {
	var (
		configPath = flag.String("config", "fedarch.yaml", "путь к файлу конфигурации")
		dryRun     = flag.Bool("dry-run", false, "показать, что было бы удалено, ничего не меняя")
	)
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Использование: fedarch-prune [флаги] путь [путь ...]")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка конфигурации: %v\n", err)
		os.Exit(1)
	}
	logger := config.SetupLogger(cfg)

	paths, err := resolvePaths(cfg.Paths.Download, flag.Args())
	if err != nil {
		logger.Error("Недопустимый путь", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if *dryRun {
		for _, p := range paths {
			fmt.Println(p)
		}
		logger.Info("dry-run: ничего не удалено", slog.Int("paths", len(paths)))
		return
	}

	db, err := hashdb.Open(cfg.Paths.HashDBFile, cfg.Paths.RemovedLogFile, logger)
	if err != nil {
		logger.Error("Ошибка загрузки контент-индекса", slog.String("error", err.Error()))
		os.Exit(1)
	}

	removed, err := db.DeleteByPaths(paths)
	if err != nil {
		logger.Error("Ошибка удаления из контент-индекса", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var deleted, missing int
	for _, p := range paths {
		err := os.Remove(p)
		switch {
		case err == nil:
			deleted++
		case os.IsNotExist(err):
			missing++
		default:
			logger.Error("Не удалось удалить файл",
				slog.String("path", p),
				slog.String("error", err.Error()),
			)
		}
	}

	logger.Info("Удаление завершено",
		slog.Int("paths", len(paths)),
		slog.Int("index_records", len(removed)),
		slog.Int("files_deleted", deleted),
		slog.Int("files_missing", missing),
	)
}

// resolvePaths приводит аргументы к абсолютным путям под корнем
// загрузок с дедупликацией при сохранении порядка. Корень целиком
// и пути вне корня — ошибка.
func resolvePaths(downloadRoot string, args []string) ([]string, error) {
	root, err := filepath.Abs(downloadRoot)
	if err != nil {
		return nil, fmt.Errorf("не удалось определить корень загрузок: %w", err)
	}

	seen := make(map[string]bool, len(args))
	out := make([]string, 0, len(args))
	for _, arg := range args {
		p := arg
		if !filepath.IsAbs(p) {
			p = filepath.Join(root, p)
		}
		p = filepath.Clean(p)

		if p == root {
			return nil, fmt.Errorf("нельзя удалить корень загрузок целиком: %s", arg)
		}
		rel, err := filepath.Rel(root, p)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil, fmt.Errorf("путь вне корня загрузок: %s", arg)
		}

		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out, nil
}
