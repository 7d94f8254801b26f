// Пакет downloader — скачивание медиафайлов во временную область
// с потоковым вычислением SHA-256.
//
// Файл пишется под случайным именем в staging-директорию; хэш
// считается инкрементально через TeeReader, без второго прохода
// по содержимому. Решение о конечном пути принимает вызывающая
// сторона: либо rename в дерево загрузок, либо удаление.
package downloader

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// DownloadError — HTTP-ответ с неуспешным статусом.
type DownloadError struct {
	StatusCode int
	URL        string
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("скачивание %s: HTTP %d", e.URL, e.StatusCode)
}

// NotFound сообщает, что источник ответил 404.
func (e *DownloadError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// Result — успешно скачанный файл в staging-области.
type Result struct {
	// Path — staging-путь файла
	Path string
	// Hash — SHA-256 содержимого, hex
	Hash string
	// Size — размер файла в байтах
	Size int64
}

// Discard удаляет staging-файл. Отсутствие файла — не ошибка.
func (r *Result) Discard() error {
	err := os.Remove(r.Path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Options — параметры поведения Fetcher.
type Options struct {
	// TmpDir — staging-директория
	TmpDir string
	// UserAgent — заголовок User-Agent исходящих запросов
	UserAgent string
	// MaxAttempts — максимальное число попыток (включая первую)
	MaxAttempts int
	// RetryDelay — пауза между попытками
	RetryDelay time.Duration
	// RateControl — вместо RetryDelay спать общий rate-интервал
	RateControl bool
	// RateDelay — rate-интервал, используется при RateControl
	RateDelay time.Duration
	// Progress — режим прогресса: off, count, filesize
	Progress string
}

// Fetcher скачивает файлы по HTTP с ограниченным числом повторов.
type Fetcher struct {
	client   *http.Client
	opts     Options
	logger   *slog.Logger
	progress io.Writer
}

// New создаёт Fetcher. client может быть nil — тогда берётся
// клиент с таймаутом по умолчанию.
func New(client *http.Client, opts Options, logger *slog.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	return &Fetcher{
		client:   client,
		opts:     opts,
		logger:   logger.With(slog.String("component", "downloader")),
		progress: os.Stderr,
	}
}

// Fetch скачивает url в staging-файл за не более чем MaxAttempts
// попыток. Повторяются и транспортные ошибки, и неуспешные статусы;
// после исчерпания попыток возвращается последняя ошибка. Ошибку
// HTTP-статуса вызывающая сторона различает через *DownloadError.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Result, error) {
	var lastErr error
	for attempt := 1; attempt <= f.opts.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleepCtx(ctx, f.retrySleep()); err != nil {
				return nil, err
			}
		}

		res, err := f.fetchOnce(ctx, url)
		if err == nil {
			return res, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		f.logger.Warn("Попытка скачивания не удалась",
			slog.String("url", url),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", f.opts.MaxAttempts),
			slog.String("error", err.Error()),
		)
	}
	return nil, lastErr
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("не удалось построить запрос: %w", err)
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("транспортная ошибка: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &DownloadError{StatusCode: resp.StatusCode, URL: url}
	}

	if err := os.MkdirAll(f.opts.TmpDir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать staging-директорию: %w", err)
	}
	stagingPath := filepath.Join(f.opts.TmpDir, uuid.NewString())
	out, err := os.Create(stagingPath)
	if err != nil {
		return nil, fmt.Errorf("не удалось создать staging-файл: %w", err)
	}

	hasher := sha256.New()
	var src io.Reader = io.TeeReader(resp.Body, hasher)
	if f.opts.Progress != "off" && f.opts.Progress != "" {
		src = io.TeeReader(src, &progressWriter{mode: f.opts.Progress, out: f.progress})
	}

	size, err := io.Copy(out, src)
	if f.opts.Progress != "off" && f.opts.Progress != "" {
		fmt.Fprint(f.progress, "\n")
	}
	if err != nil {
		out.Close()
		os.Remove(stagingPath)
		return nil, fmt.Errorf("ошибка чтения тела ответа: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(stagingPath)
		return nil, fmt.Errorf("ошибка записи staging-файла: %w", err)
	}

	return &Result{
		Path: stagingPath,
		Hash: hex.EncodeToString(hasher.Sum(nil)),
		Size: size,
	}, nil
}

// retrySleep — пауза между попытками: собственная задержка повторов
// либо общий rate-интервал, если включён rate_control.
func (f *Fetcher) retrySleep() time.Duration {
	if f.opts.RateControl {
		return f.opts.RateDelay
	}
	return f.opts.RetryDelay
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// progressWriter печатает нарастающий объём, затирая строку через \r.
type progressWriter struct {
	mode  string
	out   io.Writer
	total int64
}

func (p *progressWriter) Write(b []byte) (int, error) {
	p.total += int64(len(b))
	switch p.mode {
	case "filesize":
		fmt.Fprintf(p.out, "\r%s", formatBytes(p.total))
	default:
		fmt.Fprintf(p.out, "\r%d", p.total)
	}
	return len(b), nil
}

// formatBytes — человекочитаемый объём с двоичными множителями.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
