// Пакет suppress — окно подавления повторных попыток скачивания
// по URL, недавно закончившимся media_not_found.
//
// При старте переигрывается журнал отбраковки: в множество попадают
// URL записей с причиной media_not_found, чьё время не старше окна.
// Множество фиксируется на момент старта и в течение прогона только
// пополняется — записи из него не выбывают, окно не переоценивается.
package suppress

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/arturkryukov/fedarch/internal/domain/model"
)

// Tracker хранит множество подавленных URL. Нулевое или отрицательное
// окно полностью отключает подавление.
type Tracker struct {
	enabled bool
	urls    map[string]bool
}

// New строит трекер из журнала отбраковки по пути path.
// Отсутствующий или нечитаемый журнал — пустое множество.
func New(path string, window time.Duration, logger *slog.Logger) *Tracker {
	t := &Tracker{
		enabled: window > 0,
		urls:    make(map[string]bool),
	}
	if !t.enabled {
		return t
	}

	log := logger.With(slog.String("component", "suppress"))
	cutoff := time.Now().Add(-window)

	f, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("Журнал отбраковки недоступен, подавление стартует пустым",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
		}
		return t
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec model.RemovalRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		if rec.Reason != model.ReasonMediaNotFound || rec.Time.Before(cutoff) {
			continue
		}
		for _, u := range rec.MediaURLs {
			if u != "" {
				t.urls[u] = true
			}
		}
	}

	log.Info("Окно подавления построено",
		slog.Int("urls", len(t.urls)),
		slog.Duration("window", window),
	)
	return t
}

// ShouldSkip сообщает, подавлен ли URL.
func (t *Tracker) ShouldSkip(url string) bool {
	return t.enabled && t.urls[url]
}

// Record добавляет URL в множество после свежего media_not_found,
// чтобы повтор того же URL в этом же прогоне не ходил в сеть.
func (t *Tracker) Record(url string) {
	if t.enabled && url != "" {
		t.urls[url] = true
	}
}
