// Пакет service — оркестрация пайплайна архивации: обработка статусов,
// обход инстансов и мониторинг их доступности.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/arturkryukov/fedarch/internal/classify"
	"github.com/arturkryukov/fedarch/internal/config"
	"github.com/arturkryukov/fedarch/internal/domain/model"
	"github.com/arturkryukov/fedarch/internal/downloader"
	"github.com/arturkryukov/fedarch/internal/filters"
	"github.com/arturkryukov/fedarch/internal/metrics"
	"github.com/arturkryukov/fedarch/internal/naming"
	"github.com/arturkryukov/fedarch/internal/storage/archive"
	"github.com/arturkryukov/fedarch/internal/storage/hashdb"
	"github.com/arturkryukov/fedarch/internal/suppress"
)

// MediaFetcher скачивает URL в staging-файл.
type MediaFetcher interface {
	Fetch(ctx context.Context, url string) (*downloader.Result, error)
}

// Processor обрабатывает один статус закладки: фильтры, скачивание,
// дедупликация, персистентность. Общий для всех инстансов.
type Processor struct {
	cfg        *config.Config
	db         *hashdb.DB
	mover      *archive.Mover
	fetcher    MediaFetcher
	suppress   *suppress.Tracker
	classifier *classify.Classifier
	logger     *slog.Logger
	now        func() time.Time
}

// NewProcessor собирает процессор из готовых зависимостей.
func NewProcessor(
	cfg *config.Config,
	db *hashdb.DB,
	mover *archive.Mover,
	fetcher MediaFetcher,
	tracker *suppress.Tracker,
	classifier *classify.Classifier,
	logger *slog.Logger,
) *Processor {
	return &Processor{
		cfg:        cfg,
		db:         db,
		mover:      mover,
		fetcher:    fetcher,
		suppress:   tracker,
		classifier: classifier,
		logger:     logger.With(slog.String("component", "processor")),
		now:        time.Now,
	}
}

// ProcessStatus обрабатывает один статус. Возвращает true, если хотя бы
// одно вложение фактически скачалось из сети — независимо от дальнейшей
// судьбы файла (сохранение, замена, отброс дубликата, dry-run): по этому
// признаку вызывающая сторона решает про rate-паузу и снятие закладки.
// Ошибка возвращается только при отмене контекста; все остальные сбои
// локальны для вложения и не прерывают прогон.
func (p *Processor) ProcessStatus(ctx context.Context, inst *config.InstanceConfig, status *model.Status) (bool, error) {
	metrics.StatusesTotal.WithLabelValues(inst.Name).Inc()

	if skip, reason := filters.ShouldSkip(status, inst, p.cfg.Download.Includes); skip {
		if reason == "" {
			reason = model.ReasonFiltered
		}
		p.logger.Debug("Статус отфильтрован",
			slog.String("post_id", status.ID),
			slog.String("reason", string(reason)),
		)
		metrics.RemovedTotal.WithLabelValues(inst.Name, string(reason)).Inc()
		if p.cfg.Logging.LogRemoved && !p.cfg.Runtime.DryRun {
			// Одна запись на статус, без классификации: скачивания не было.
			rec := &model.RemovalRecord{
				Time:          p.now().UTC(),
				PostID:        status.ID,
				PostURL:       status.URL,
				MediaURLs:     status.MediaURLs(),
				Reason:        reason,
				CreatedAt:     status.CreatedAt,
				InstanceLabel: inst.Name,
			}
			if err := p.db.LogRemoved(rec); err != nil {
				p.logger.Error("Не удалось записать отбраковку", slog.String("error", err.Error()))
			}
		}
		return false, nil
	}

	downloaded := false
	for i := range status.MediaAttachments {
		ok, err := p.processAttachment(ctx, inst, status, i)
		if err != nil {
			return downloaded, err
		}
		if ok {
			downloaded = true
		}
	}
	return downloaded, nil
}

// processAttachment обрабатывает одно вложение независимо от остальных.
func (p *Processor) processAttachment(ctx context.Context, inst *config.InstanceConfig, status *model.Status, index int) (bool, error) {
	media := status.MediaAttachments[index]
	url := media.SourceURL()
	if url == "" {
		return false, nil
	}

	if p.suppress.ShouldSkip(url) {
		p.logger.Debug("URL подавлен окном недавних media_not_found",
			slog.String("url", url),
		)
		metrics.SuppressHitsTotal.Inc()
		return false, nil
	}

	res, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		var dlErr *downloader.DownloadError
		if errors.As(err, &dlErr) && dlErr.NotFound() {
			p.handleNotFound(inst, status, url)
			return false, nil
		}
		// Прочие сбои бросают только это вложение, прогон продолжается.
		p.logger.Error("Скачивание не удалось",
			slog.String("url", url),
			slog.String("post_id", status.ID),
			slog.String("error", err.Error()),
		)
		metrics.DownloadErrorsTotal.WithLabelValues(inst.Name).Inc()
		return false, nil
	}

	cls := p.classifyStatus(status, url)

	existing := p.db.Lookup(res.Hash)
	if existing == nil {
		p.storeNew(inst, status, media, index, res, cls)
	} else {
		p.resolveDuplicate(inst, status, res, existing, cls)
	}
	// Сетевое скачивание состоялось: rate-пауза и снятие закладки
	// полагаются этому статусу независимо от судьбы файла.
	return true, nil
}

// classification — вычисленные группы источника и автора.
type classification struct {
	originHost   string
	originGroup  string
	accountHost  string
	accountGroup string
}

func (p *Processor) classifyStatus(status *model.Status, mediaURL string) classification {
	originHost := classify.OriginHost(mediaURL)
	accountHost := classify.AccountHost(status.URL)
	return classification{
		originHost:   originHost,
		originGroup:  p.classifier.GroupForHost(originHost),
		accountHost:  accountHost,
		accountGroup: p.classifier.GroupForHost(accountHost),
	}
}

// handleNotFound — источник ответил 404: запись в журнал отбраковки
// и пополнение окна подавления.
func (p *Processor) handleNotFound(inst *config.InstanceConfig, status *model.Status, url string) {
	p.logger.Warn("Медиафайл недоступен у источника",
		slog.String("url", url),
		slog.String("post_id", status.ID),
	)
	metrics.RemovedTotal.WithLabelValues(inst.Name, string(model.ReasonMediaNotFound)).Inc()
	p.suppress.Record(url)

	if !p.cfg.Logging.LogRemoved || p.cfg.Runtime.DryRun {
		return
	}
	// В журнал уходит полный список медиа-URL статуса; классификация
	// считается от недоступного URL — скачивание для неё не нужно.
	cls := p.classifyStatus(status, url)
	rec := &model.RemovalRecord{
		Time:          p.now().UTC(),
		PostID:        status.ID,
		PostURL:       status.URL,
		MediaURLs:     status.MediaURLs(),
		Reason:        model.ReasonMediaNotFound,
		CreatedAt:     status.CreatedAt,
		OriginHost:    cls.originHost,
		OriginGroup:   cls.originGroup,
		AccountHost:   cls.accountHost,
		AccountGroup:  cls.accountGroup,
		InstanceLabel: inst.Name,
	}
	if err := p.db.LogRemoved(rec); err != nil {
		p.logger.Error("Не удалось записать отбраковку", slog.String("error", err.Error()))
	}
}

// storeNew сохраняет файл с новым хэшем в дерево загрузок.
func (p *Processor) storeNew(inst *config.InstanceConfig, status *model.Status, media model.MediaAttachment, index int, res *downloader.Result, cls classification) {
	created, err := naming.ParseTime(status.CreatedAt)
	if err != nil {
		// Нечитаемая дата не блокирует сохранение, путь строится от текущего момента.
		p.logger.Warn("Нечитаемая дата создания поста",
			slog.String("post_id", status.ID),
			slog.String("created_at", status.CreatedAt),
		)
		created = p.now().UTC()
	}

	destPath := naming.BuildFilePath(p.cfg.Paths.Download, p.cfg.Download.FilenamePattern, naming.PathVars{
		Created:      created,
		ScreenName:   status.ScreenName(),
		Index:        index,
		Ext:          naming.GuessExtension(media),
		ContentHash:  res.Hash,
		OriginHost:   cls.originHost,
		OriginGroup:  cls.originGroup,
		AccountHost:  cls.accountHost,
		AccountGroup: cls.accountGroup,
	})

	if p.cfg.Runtime.DryRun {
		p.logger.Info("dry-run: файл был бы сохранён",
			slog.String("path", destPath),
			slog.String("hash", res.Hash),
			slog.Int64("size", res.Size),
		)
		res.Discard()
		return
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o750); err != nil {
		res.Discard()
		p.logger.Error("Не удалось создать директорию загрузки", slog.String("error", err.Error()))
		return
	}
	if err := archive.Rename(res.Path, destPath); err != nil {
		res.Discard()
		p.logger.Error("Не удалось переместить staging-файл", slog.String("error", err.Error()))
		return
	}

	rec := &model.ContentRecord{
		ContentHash:   res.Hash,
		PostID:        status.ID,
		PostURL:       status.URL,
		CreatedAt:     status.CreatedAt,
		Filepath:      destPath,
		Size:          res.Size,
		OriginHost:    cls.originHost,
		OriginGroup:   cls.originGroup,
		AccountHost:   cls.accountHost,
		AccountGroup:  cls.accountGroup,
		InstanceLabel: inst.Name,
	}
	if err := p.db.Insert(rec); err != nil {
		p.logger.Error("Не удалось записать в контент-индекс", slog.String("error", err.Error()))
		return
	}

	p.logDownload(rec, status)
	p.logger.Info("Файл сохранён",
		slog.String("path", destPath),
		slog.String("hash", res.Hash),
		slog.Int64("size", res.Size),
	)
	metrics.DownloadsTotal.WithLabelValues(inst.Name).Inc()
	metrics.DownloadBytesTotal.WithLabelValues(inst.Name).Add(float64(res.Size))
}

// resolveDuplicate применяет политику дубликатов к уже известному хэшу.
//
// Таблица решений:
//   - нечитаемая дата любой из сторон либо политика database — discard
//     с причиной duplicate_unknown;
//   - новый пост НЕ строго старше существующего — discard: причина
//     duplicate_younger при keep_old, duplicate_newer при latest
//     (ничья трактуется как discard);
//   - новый пост строго старше — замена записи на месте.
func (p *Processor) resolveDuplicate(inst *config.InstanceConfig, status *model.Status, res *downloader.Result, existing *model.ContentRecord, cls classification) {
	reason, replace := duplicateDecision(p.cfg.Archive.Policy, status.CreatedAt, existing.CreatedAt)
	if replace {
		p.replaceExisting(inst, status, res, existing, cls)
		return
	}

	p.logger.Debug("Дубликат отброшен",
		slog.String("hash", res.Hash),
		slog.String("post_id", status.ID),
		slog.String("existing_post_id", existing.PostID),
		slog.String("reason", string(reason)),
	)
	metrics.RemovedTotal.WithLabelValues(inst.Name, string(reason)).Inc()
	res.Discard()

	if p.cfg.Logging.LogDuplicate && !p.cfg.Runtime.DryRun {
		rec := &model.RemovalRecord{
			Time:          p.now().UTC(),
			ContentHash:   res.Hash,
			PostID:        status.ID,
			PostURL:       status.URL,
			MediaURLs:     status.MediaURLs(),
			Reason:        reason,
			CreatedAt:     status.CreatedAt,
			OriginHost:    cls.originHost,
			OriginGroup:   cls.originGroup,
			AccountHost:   cls.accountHost,
			AccountGroup:  cls.accountGroup,
			InstanceLabel: inst.Name,
		}
		if err := p.db.LogRemoved(rec); err != nil {
			p.logger.Error("Не удалось записать отбраковку", slog.String("error", err.Error()))
		}
	}
}

// duplicateDecision возвращает причину отбраковки и признак замены.
func duplicateDecision(policy, newCreatedAt, oldCreatedAt string) (model.Reason, bool) {
	newT, errNew := naming.ParseTime(newCreatedAt)
	oldT, errOld := naming.ParseTime(oldCreatedAt)
	if policy == "database" || errNew != nil || errOld != nil {
		return model.ReasonDuplicateUnknown, false
	}
	if !newT.Before(oldT) {
		if policy == "latest" {
			return model.ReasonDuplicateNewer, false
		}
		return model.ReasonDuplicateYounger, false
	}
	return "", true
}

// replaceExisting замещает запись более старым постом: прежний файл
// уходит в архив, staging-файл занимает освободившийся путь. В записи
// индекса меняются только дата создания и классификация; идентификаторы
// поста, путь и размер остаются от прежней записи.
func (p *Processor) replaceExisting(inst *config.InstanceConfig, status *model.Status, res *downloader.Result, existing *model.ContentRecord, cls classification) {
	if p.cfg.Runtime.DryRun {
		p.logger.Info("dry-run: запись была бы заменена",
			slog.String("hash", res.Hash),
			slog.String("path", existing.Filepath),
		)
		res.Discard()
		return
	}

	if err := p.mover.Move(existing.Filepath); err != nil {
		p.logger.Error("Не удалось архивировать вытесняемый файл", slog.String("error", err.Error()))
		res.Discard()
		return
	}
	// Директория могла уехать в архив вместе с файлом.
	if err := os.MkdirAll(filepath.Dir(existing.Filepath), 0o750); err != nil {
		p.logger.Error("Не удалось создать директорию загрузки", slog.String("error", err.Error()))
		res.Discard()
		return
	}
	if err := archive.Rename(res.Path, existing.Filepath); err != nil {
		p.logger.Error("Не удалось переместить staging-файл", slog.String("error", err.Error()))
		res.Discard()
		return
	}

	rec := *existing
	rec.CreatedAt = status.CreatedAt
	rec.OriginHost = cls.originHost
	rec.OriginGroup = cls.originGroup
	rec.AccountHost = cls.accountHost
	rec.AccountGroup = cls.accountGroup

	if err := p.db.Replace(&rec); err != nil {
		p.logger.Error("Не удалось обновить контент-индекс", slog.String("error", err.Error()))
		return
	}

	p.logDownload(&rec, status)
	p.logger.Info("Запись заменена более старым постом",
		slog.String("hash", rec.ContentHash),
		slog.String("path", rec.Filepath),
		slog.String("post_id", status.ID),
	)
	metrics.ReplacedTotal.WithLabelValues(inst.Name).Inc()
	metrics.DownloadsTotal.WithLabelValues(inst.Name).Inc()
	metrics.DownloadBytesTotal.WithLabelValues(inst.Name).Add(float64(res.Size))
}

// logDownload дописывает запись в журнал скачиваний текущего периода.
// Период берётся от момента скачивания, не от даты поста.
func (p *Processor) logDownload(rec *model.ContentRecord, status *model.Status) {
	now := p.now().UTC()
	logPath := naming.BuildLogPath(p.cfg.Paths.Logs, p.cfg.Logging.FilenamePattern, p.cfg.Logging.Frequency, naming.PathVars{
		Created:      now,
		ScreenName:   status.ScreenName(),
		OriginHost:   rec.OriginHost,
		OriginGroup:  rec.OriginGroup,
		AccountHost:  rec.AccountHost,
		AccountGroup: rec.AccountGroup,
	})

	entry := &model.DownloadLogRecord{
		Time:          now,
		Filepath:      rec.Filepath,
		ContentHash:   rec.ContentHash,
		Size:          rec.Size,
		MediaURLs:     status.MediaURLs(),
		PostID:        rec.PostID,
		PostURL:       rec.PostURL,
		CreatedAt:     rec.CreatedAt,
		OriginHost:    rec.OriginHost,
		OriginGroup:   rec.OriginGroup,
		AccountHost:   rec.AccountHost,
		AccountGroup:  rec.AccountGroup,
		InstanceLabel: rec.InstanceLabel,
	}
	if err := appendJSONL(logPath, entry); err != nil {
		p.logger.Error("Не удалось записать журнал скачиваний",
			slog.String("path", logPath),
			slog.String("error", err.Error()),
		)
	}
}

// appendJSONL дописывает одну JSONL-строку, создавая директории по пути.
func appendJSONL(path string, v any) error {
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
	return nil
}
