// Пакет archive — перемещение вытесненных файлов в архивное дерево.
//
// При замене записи старый файл либо уезжает в архив с сохранением
// относительного пути от корня загрузок, либо (при выключенном
// архиве) просто удаляется. Уже отсутствующий файл — не ошибка.
package archive

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Mover перемещает файлы из дерева загрузок в архив.
type Mover struct {
	downloadRoot string
	archiveRoot  string
	enabled      bool
	logger       *slog.Logger
}

// New создаёт Mover. При enabled=false Move удаляет файлы.
func New(downloadRoot, archiveRoot string, enabled bool, logger *slog.Logger) *Mover {
	return &Mover{
		downloadRoot: downloadRoot,
		archiveRoot:  archiveRoot,
		enabled:      enabled,
		logger:       logger.With(slog.String("component", "archive")),
	}
}

// Move убирает файл из дерева загрузок: в архив или насовсем.
// Отсутствующий файл — no-op.
func (m *Mover) Move(originalPath string) error {
	if _, err := os.Stat(originalPath); err != nil {
		if os.IsNotExist(err) {
			m.logger.Warn("Файл для архивации отсутствует", slog.String("path", originalPath))
			return nil
		}
		return fmt.Errorf("не удалось проверить файл %s: %w", originalPath, err)
	}

	if !m.enabled {
		if err := os.Remove(originalPath); err != nil {
			return fmt.Errorf("не удалось удалить вытесненный файл %s: %w", originalPath, err)
		}
		m.logger.Debug("Вытесненный файл удалён", slog.String("path", originalPath))
		return nil
	}

	dest := filepath.Join(m.archiveRoot, m.relPath(originalPath))
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return fmt.Errorf("не удалось создать директорию архива: %w", err)
	}
	if err := Rename(originalPath, dest); err != nil {
		return fmt.Errorf("не удалось переместить %s в архив: %w", originalPath, err)
	}

	m.logger.Debug("Файл перемещён в архив",
		slog.String("from", originalPath),
		slog.String("to", dest),
	)
	return nil
}

// relPath вычисляет путь файла относительно корня загрузок.
// Файл вне корня кладётся в архив по одному только имени.
func (m *Mover) relPath(p string) string {
	rel, err := filepath.Rel(m.downloadRoot, p)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.Base(p)
	}
	return rel
}

// Rename — os.Rename с запасным вариантом копирования для случая,
// когда источник и назначение лежат на разных файловых системах (EXDEV).
func Rename(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return err
	}
	return os.Remove(src)
}
