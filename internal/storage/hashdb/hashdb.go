// Пакет hashdb — контент-индекс скачанных файлов поверх JSONL-журналов.
//
// Индекс хранится в памяти (хэш → запись) и строится при старте
// переигрыванием файла hashdb.jsonl. Обычные записи append-only;
// единственная переписывающая операция — компакция при удалении
// по путям (DeleteByPaths). Битые строки журнала пропускаются,
// отсутствующий файл трактуется как пустой индекс.
//
// Пакет также владеет журналом отбраковки removed.jsonl: обе
// JSONL-структуры вместе образуют durable-состояние приложения.
package hashdb

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/arturkryukov/fedarch/internal/domain/model"
)

// DB — контент-индекс с JSONL-персистентностью.
// Все мутации сериализуются мьютексом: пайплайн однопоточный,
// но инвариант индекса не должен зависеть от этого.
type DB struct {
	path        string
	removedPath string

	mu      sync.Mutex
	entries map[string]*model.ContentRecord
	logger  *slog.Logger
}

// Open создаёт индекс и переигрывает существующий журнал.
// Отсутствующий файл журнала — пустой индекс, не ошибка.
func Open(path, removedPath string, logger *slog.Logger) (*DB, error) {
	db := &DB{
		path:        path,
		removedPath: removedPath,
		entries:     make(map[string]*model.ContentRecord),
		logger:      logger.With(slog.String("component", "hashdb")),
	}

	if err := db.load(); err != nil {
		return nil, err
	}

	db.logger.Info("Контент-индекс загружен",
		slog.Int("entries", len(db.entries)),
		slog.String("path", path),
	)
	return db, nil
}

// load переигрывает журнал. Строка без валидного JSON или без хэша
// пропускается: повреждённая запись не должна ломать запуск.
func (db *DB) load() error {
	f, err := os.Open(db.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("не удалось открыть журнал индекса %s: %w", db.path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	skipped := 0
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec model.ContentRecord
		if err := json.Unmarshal(line, &rec); err != nil || rec.ContentHash == "" {
			skipped++
			continue
		}
		db.entries[rec.ContentHash] = &rec
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("ошибка чтения журнала индекса %s: %w", db.path, err)
	}

	if skipped > 0 {
		db.logger.Warn("Пропущены повреждённые строки журнала индекса",
			slog.Int("skipped", skipped),
		)
	}
	return nil
}

// Lookup возвращает копию записи для хэша или nil.
func (db *DB) Lookup(hash string) *model.ContentRecord {
	db.mu.Lock()
	defer db.mu.Unlock()

	rec, ok := db.entries[hash]
	if !ok {
		return nil
	}
	copied := *rec
	return &copied
}

// Count возвращает число записей индекса.
func (db *DB) Count() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.entries)
}

// Insert добавляет новую запись: сначала durable-запись строки журнала,
// затем обновление индекса. Существующий хэш — ошибка: молчаливое
// затенение живой записи запрещено, для замены есть Replace.
func (db *DB) Insert(rec *model.ContentRecord) error {
	if rec.ContentHash == "" {
		return fmt.Errorf("запись без contentHash")
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.entries[rec.ContentHash]; exists {
		return fmt.Errorf("хэш %s уже присутствует в индексе", rec.ContentHash)
	}

	if err := db.appendLine(db.path, rec); err != nil {
		return err
	}

	copied := *rec
	db.entries[rec.ContentHash] = &copied
	return nil
}

// Replace перезаписывает существующую запись: в журнал дописывается
// полный новый снимок (без правки старых строк), индекс обновляется.
func (db *DB) Replace(rec *model.ContentRecord) error {
	if rec.ContentHash == "" {
		return fmt.Errorf("запись без contentHash")
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.entries[rec.ContentHash]; !exists {
		return fmt.Errorf("хэш %s отсутствует в индексе", rec.ContentHash)
	}

	if err := db.appendLine(db.path, rec); err != nil {
		return err
	}

	copied := *rec
	db.entries[rec.ContentHash] = &copied
	return nil
}

// DeleteByPaths удаляет записи, чей filepath совпадает с одним из путей,
// и возвращает удалённые записи. Пути обеих сторон нормализуются
// в абсолютную каноническую форму, поэтому относительное и абсолютное
// написание одного файла совпадают. При любом удалении журнал
// переписывается целиком из оставшихся записей (компакция).
func (db *DB) DeleteByPaths(paths []string) ([]*model.ContentRecord, error) {
	targets := make(map[string]bool, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		targets[normalizePath(p)] = true
	}
	if len(targets) == 0 {
		return nil, nil
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	var removed []*model.ContentRecord
	for hash, rec := range db.entries {
		if rec.Filepath == "" {
			continue
		}
		if targets[normalizePath(rec.Filepath)] {
			removed = append(removed, rec)
			delete(db.entries, hash)
		}
	}

	if len(removed) == 0 {
		return nil, nil
	}

	if err := db.rewrite(); err != nil {
		return nil, err
	}

	db.logger.Info("Записи удалены из индекса, журнал компактирован",
		slog.Int("removed", len(removed)),
	)
	return removed, nil
}

// LogRemoved дописывает запись в журнал отбраковки (append-only).
func (db *DB) LogRemoved(rec *model.RemovalRecord) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.appendLine(db.removedPath, rec)
}

// appendLine сериализует запись и дописывает одну строку JSONL.
// Возврат из функции означает завершённую запись в файл.
func (db *DB) appendLine(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("не удалось создать директорию журнала: %w", err)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("не удалось сериализовать запись: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return fmt.Errorf("не удалось открыть журнал %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("не удалось дописать запись в %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("ошибка fsync журнала %s: %w", path, err)
	}
	return nil
}

// rewrite переписывает журнал индекса из текущих записей.
// Паттерн: temp файл → fsync → atomic rename.
func (db *DB) rewrite() error {
	tmpPath := db.path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("не удалось создать временный журнал: %w", err)
	}

	w := bufio.NewWriter(f)
	for _, rec := range db.entries {
		data, err := json.Marshal(rec)
		if err != nil {
			f.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("не удалось сериализовать запись %s: %w", rec.ContentHash, err)
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			f.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("ошибка записи временного журнала: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка записи временного журнала: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка fsync временного журнала: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка закрытия временного журнала: %w", err)
	}

	if err := os.Rename(tmpPath, db.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка атомарного переименования журнала: %w", err)
	}
	return nil
}

// normalizePath приводит путь к абсолютной канонической форме.
// Симлинки разрешаются по возможности; несуществующий путь
// нормализуется лексически.
func normalizePath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.Clean(p)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}
