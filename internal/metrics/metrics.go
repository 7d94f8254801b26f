// Пакет metrics — прометеевские метрики пайплайна архивации.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StatusesTotal — обработанные статусы по инстансам.
	StatusesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fedarch_statuses_total",
		Help: "Число обработанных статусов закладок.",
	}, []string{"instance"})

	// DownloadsTotal — успешно сохранённые файлы.
	DownloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fedarch_downloads_total",
		Help: "Число сохранённых медиафайлов.",
	}, []string{"instance"})

	// DownloadBytesTotal — суммарный объём сохранённых файлов.
	DownloadBytesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fedarch_download_bytes_total",
		Help: "Суммарный объём сохранённых медиафайлов в байтах.",
	}, []string{"instance"})

	// RemovedTotal — отбракованные статусы и вложения по причинам.
	RemovedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fedarch_removed_total",
		Help: "Число отбраковок по причинам.",
	}, []string{"instance", "reason"})

	// ReplacedTotal — замены существующих записей более старыми постами.
	ReplacedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fedarch_replaced_total",
		Help: "Число замен записей контент-индекса.",
	}, []string{"instance"})

	// SuppressHitsTotal — скачивания, подавленные окном media_not_found.
	SuppressHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fedarch_suppress_hits_total",
		Help: "Число URL, подавленных окном недавних media_not_found.",
	})

	// DownloadErrorsTotal — неудачные скачивания после всех повторов.
	DownloadErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fedarch_download_errors_total",
		Help: "Число скачиваний, не удавшихся после всех повторов.",
	}, []string{"instance"})

	// UnbookmarksTotal — снятые закладки.
	UnbookmarksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fedarch_unbookmarks_total",
		Help: "Число снятых закладок.",
	}, []string{"instance"})
)
