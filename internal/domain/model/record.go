// Пакет model — доменные модели fedarch.
// ContentRecord — единая структура записи контент-индекса, используется
// как in-memory представление и как формат строки hashdb.jsonl на диске.
package model

import (
	"time"
)

// Reason — код причины, по которой медиафайл не был сохранён
// (отфильтрован, дубликат, недоступен).
type Reason string

const (
	// ReasonSelfPost — пост принадлежит собственному аккаунту
	ReasonSelfPost Reason = "self_post"
	// ReasonNoMedia — пост не содержит вложений
	ReasonNoMedia Reason = "no_media"
	// ReasonGifvMedia — вложение типа gifv при выключенном include_gifv
	ReasonGifvMedia Reason = "gifv_media"
	// ReasonAudioMedia — аудио-вложение при выключенном include_audio
	ReasonAudioMedia Reason = "audio_media"
	// ReasonNonImageMedia — не-изображение при выключенном include_video
	ReasonNonImageMedia Reason = "non_image_media"
	// ReasonNoRemoteURL — у вложения нет remote_url (только превью)
	ReasonNoRemoteURL Reason = "no_remote_url"
	// ReasonNSFWFiltered — пост помечен sensitive при выключенном include_nsfw
	ReasonNSFWFiltered Reason = "nsfw_filtered"
	// ReasonMediaNotFound — сервер-источник вернул HTTP 404
	ReasonMediaNotFound Reason = "media_not_found"
	// ReasonDuplicateUnknown — дубликат, но сравнение дат невозможно
	// (дата не парсится) либо действует политика database
	ReasonDuplicateUnknown Reason = "duplicate_unknown"
	// ReasonDuplicateYounger — дубликат новее существующего (политика keep_old)
	ReasonDuplicateYounger Reason = "duplicate_younger"
	// ReasonDuplicateNewer — дубликат новее существующего (политика latest)
	ReasonDuplicateNewer Reason = "duplicate_newer"
	// ReasonFiltered — общий fallback, когда фильтр не сообщил причину
	ReasonFiltered Reason = "filtered"
)

// ContentRecord — запись контент-индекса. Одна запись на уникальный
// SHA-256 хэш содержимого. Соответствует строке hashdb.jsonl.
type ContentRecord struct {
	// ContentHash — SHA-256 хэш содержимого файла (hex, нижний регистр).
	// Первичный ключ индекса.
	ContentHash string `json:"contentHash"`

	// PostID — идентификатор поста-источника
	PostID string `json:"postId"`

	// PostURL — URL поста-источника
	PostURL string `json:"postUrl"`

	// CreatedAt — дата создания поста в исходном виде (ISO-8601).
	// Хранится строкой: непарсящееся значение не должно ломать индекс,
	// сравнение дат выполняется лениво при принятии dedup-решения.
	CreatedAt string `json:"createdAt"`

	// Filepath — абсолютный или относительный путь сохранённого файла
	Filepath string `json:"filepath"`

	// Size — размер файла в байтах
	Size int64 `json:"size"`

	// OriginHost — хост URL самого медиафайла
	OriginHost string `json:"originHost"`
	// OriginGroup — группа классификации хоста медиафайла
	OriginGroup string `json:"originGroup"`
	// AccountHost — хост профиля автора поста
	AccountHost string `json:"accountHost"`
	// AccountGroup — группа классификации хоста автора
	AccountGroup string `json:"accountGroup"`

	// InstanceLabel — имя инстанса из конфигурации
	InstanceLabel string `json:"instanceLabel"`
}

// RemovalRecord — запись журнала отбраковки (removed.jsonl).
// Append-only: записи никогда не изменяются и не удаляются.
// Используется как аудит и как источник восстановления
// suppress-кэша (reason == media_not_found).
type RemovalRecord struct {
	// Time — момент события (UTC)
	Time time.Time `json:"time"`

	// ContentHash — хэш содержимого; пустой, если отбраковка
	// произошла до скачивания (фильтр)
	ContentHash string `json:"contentHash,omitempty"`

	// PostID — идентификатор поста-источника
	PostID string `json:"postId"`
	// PostURL — URL поста-источника
	PostURL string `json:"postUrl"`

	// MediaURLs — URL всех вложений поста
	MediaURLs []string `json:"mediaUrls"`

	// Reason — код причины отбраковки
	Reason Reason `json:"reason"`

	// CreatedAt — дата создания поста в исходном виде
	CreatedAt string `json:"createdAt,omitempty"`

	// Классификация (пустая у записей фильтров: там нет медиа-URL для расчёта)
	OriginHost   string `json:"originHost,omitempty"`
	OriginGroup  string `json:"originGroup,omitempty"`
	AccountHost  string `json:"accountHost,omitempty"`
	AccountGroup string `json:"accountGroup,omitempty"`

	// InstanceLabel — имя инстанса из конфигурации
	InstanceLabel string `json:"instanceLabel"`
}

// DownloadLogRecord — запись журнала скачиваний. Одна запись на каждый
// успешно сохранённый или заменивший существующий файл.
type DownloadLogRecord struct {
	Time          time.Time `json:"time"`
	Filepath      string    `json:"filepath"`
	ContentHash   string    `json:"contentHash"`
	Size          int64     `json:"size"`
	MediaURLs     []string  `json:"mediaUrls"`
	PostID        string    `json:"postId"`
	PostURL       string    `json:"postUrl"`
	CreatedAt     string    `json:"createdAt"`
	OriginHost    string    `json:"originHost"`
	OriginGroup   string    `json:"originGroup"`
	AccountHost   string    `json:"accountHost"`
	AccountGroup  string    `json:"accountGroup"`
	InstanceLabel string    `json:"instanceLabel"`
}
