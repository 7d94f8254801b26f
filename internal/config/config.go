// Пакет config — загрузка и валидация конфигурации fedarch
// из YAML-файла с наложением переопределений командной строки.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// DefaultUserAgent — User-Agent исходящих HTTP-запросов.
const DefaultUserAgent = "fedarch/1.0 (+https://github.com/arturkryukov/fedarch)"

// DefaultFilenamePattern — шаблон пути сохраняемого файла по умолчанию.
const DefaultFilenamePattern = "{origin_group}/{yearmonth}/{screenname}-{datetime}-{index}.{ext}"

// ratePattern — грамматика rate-выражений: "2/minute", "1.5 per hour".
var ratePattern = regexp.MustCompile(`(?i)^\s*([\d.]+)\s*(?:/|per\s+)(.+?)\s*$`)

// periodPattern — именованные периоды: "second", "5 minutes", "day".
var periodPattern = regexp.MustCompile(`(?i)^\s*([\d.]+)?\s*(second|minute|hour|day)s?\s*$`)

// Config содержит все параметры конфигурации fedarch.
type Config struct {
	Paths    PathsConfig
	Log      LogConfig
	Download DownloadConfig
	Archive  ArchiveConfig
	Logging  LoggingConfig
	Removed  RemovedConfig
	Classify ClassifyConfig
	Metrics  MetricsConfig
	Runtime  RuntimeConfig

	// Instances — инстансы, из которых забираются закладки
	Instances []InstanceConfig

	// ConfigFile — путь загруженного файла конфигурации
	ConfigFile string
}

// PathsConfig — файловые пути.
type PathsConfig struct {
	// Download — корень хранения скачанных файлов
	Download string
	// Logs — корень журналов скачиваний
	Logs string
	// Tmp — директория staging-файлов
	Tmp string
	// Archive — корень архива заменённых файлов
	Archive string
	// HashDBFile — путь контент-индекса (JSONL)
	HashDBFile string
	// RemovedLogFile — путь журнала отбраковки (JSONL)
	RemovedLogFile string
}

// LogConfig — настройки slog.
type LogConfig struct {
	// Level — уровень логирования (debug, info, warn, error)
	Level slog.Level
	// Format — формат логов (json, text)
	Format string
}

// RetryConfig — повторные попытки скачивания.
type RetryConfig struct {
	// MaxAttempts — максимальное число попыток (включая первую)
	MaxAttempts int
	// Delay — пауза между попытками
	Delay time.Duration
	// RateControl — вместо Delay использовать общий rate-интервал
	RateControl bool
}

// RateConfig — ограничение частоты скачиваний.
type RateConfig struct {
	// Delay — интервал между событиями (секунд на событие)
	Delay time.Duration
}

// IncludesConfig — какие типы медиа архивировать.
// Изображения архивируются всегда, остальное — по флагам.
type IncludesConfig struct {
	Gifv          bool
	Video         bool
	Audio         bool
	ThumbnailOnly bool
	Self          bool
	NSFW          bool
	TryUnknown    bool
}

// DownloadConfig — параметры скачивания.
type DownloadConfig struct {
	// FilenamePattern — шаблон пути сохраняемого файла
	FilenamePattern string
	// Progress — режим прогресса: off, count, filesize
	Progress string
	// UserAgent — User-Agent исходящих запросов
	UserAgent string

	Retry    RetryConfig
	Rate     RateConfig
	Includes IncludesConfig
}

// ArchiveConfig — судьба вытесненных файлов и политика дубликатов.
type ArchiveConfig struct {
	// Enabled — перемещать вытесненные файлы в архив вместо удаления
	Enabled bool
	// Policy — политика дубликатов: keep_old, latest, database
	Policy string
}

// LoggingConfig — журналы скачиваний (JSONL-файлы, не slog).
type LoggingConfig struct {
	// Frequency — период ротации: day, week, month, quarter, half, year
	Frequency string
	// FilenamePattern — шаблон пути журнала; пустой = по Frequency
	FilenamePattern string
	// LogRemoved — писать записи об отфильтрованных/недоступных медиа
	LogRemoved bool
	// LogDuplicate — писать записи о дубликатах
	LogDuplicate bool
}

// RemovedConfig — подавление повторных попыток для исчезнувших медиа.
type RemovedConfig struct {
	// SkipMediaNotFoundFor — окно подавления URL, недавно вернувших 404.
	// 0 — подавление выключено.
	SkipMediaNotFoundFor time.Duration
}

// ClassifyRule — правило классификации хоста: glob-шаблон → группа.
type ClassifyRule struct {
	Match string `yaml:"match"`
	Group string `yaml:"group"`
}

// ClassifyConfig — упорядоченный список правил классификации.
// Пустой список означает правила по умолчанию.
type ClassifyConfig struct {
	Rules []ClassifyRule
}

// MetricsConfig — встроенный observability-сервер.
type MetricsConfig struct {
	// Enabled — поднимать HTTP-сервер /metrics и /healthz
	Enabled bool
	// Port — порт сервера метрик
	Port int
	// DephealthCheckInterval — интервал проверки доступности инстансов
	DephealthCheckInterval time.Duration
	// DephealthGroup — имя группы в метриках topologymetrics
	DephealthGroup string
}

// RuntimeConfig — флаги выполнения.
type RuntimeConfig struct {
	// DryRun — не писать файлы, индексы и не снимать закладки
	DryRun bool
	// Limit — обработать не более N постов на инстанс (0 = без лимита)
	Limit int
	// Unbookmark — снимать закладку после успешного скачивания
	Unbookmark bool
	// DumpBookmarks — печатать сырые ответы API (отладка)
	DumpBookmarks bool
}

// InstanceConfig — один fediverse-инстанс.
type InstanceConfig struct {
	// Name — метка инстанса (instanceLabel в записях)
	Name string
	// BaseURL — базовый URL инстанса
	BaseURL string
	// AccessToken — bearer-токен API
	AccessToken string
	// AccountID — локальный id собственного аккаунта (фильтр self_post)
	AccountID string
	// AccountHandle — handle собственного аккаунта (фильтр self_post)
	AccountHandle string
	// Unbookmark — переопределение runtime.unbookmark; nil = не задано
	Unbookmark *bool
	// RatePerMinute — переопределение частоты, событий в минуту (0 = не задано)
	RatePerMinute float64
}

// RateDelay возвращает действующий интервал между событиями для инстанса:
// переопределение из конфигурации инстанса либо глобальный интервал.
func (c *Config) RateDelay(inst *InstanceConfig) time.Duration {
	if inst != nil && inst.RatePerMinute > 0 {
		return delayFromRate(inst.RatePerMinute)
	}
	return c.Download.Rate.Delay
}

// UnbookmarkEnabled возвращает действующее значение unbookmark для инстанса.
func (c *Config) UnbookmarkEnabled(inst *InstanceConfig) bool {
	if inst != nil && inst.Unbookmark != nil {
		return *inst.Unbookmark
	}
	return c.Runtime.Unbookmark
}

// --- Сырые YAML-структуры ---
// Значения задержек и частот читаются строками: грамматика допускает
// и "30s", и "2/minute", и голые числа.

type rawConfig struct {
	Paths struct {
		Download       string `yaml:"download"`
		Logs           string `yaml:"logs"`
		Tmp            string `yaml:"tmp"`
		Archive        string `yaml:"archive"`
		HashDBFile     string `yaml:"hashdb_file"`
		RemovedLogFile string `yaml:"removed_log_file"`
	} `yaml:"paths"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Download struct {
		FilenamePattern string `yaml:"filename_pattern"`
		Progress        string `yaml:"progress"`
		UserAgent       string `yaml:"useragent"`
		Retry           struct {
			MaxAttempts *int   `yaml:"max_attempts"`
			Delay       string `yaml:"delay"`
			RateControl *bool  `yaml:"rate_control"`
		} `yaml:"retry"`
		Rate struct {
			DefaultRate string `yaml:"default_rate"`
			Delay       string `yaml:"delay"`
		} `yaml:"rate"`
		Includes map[string]bool `yaml:"includes"`
	} `yaml:"download"`
	Archive struct {
		Enabled *bool  `yaml:"enabled"`
		Policy  string `yaml:"policy"`
	} `yaml:"archive"`
	Logging struct {
		Frequency       string `yaml:"frequency"`
		FilenamePattern string `yaml:"filename_pattern"`
		LogRemoved      *bool  `yaml:"log_removed"`
		LogDuplicate    *bool  `yaml:"log_duplicate"`
	} `yaml:"logging"`
	Removed struct {
		SkipMediaNotFound string `yaml:"skip_media_not_found"`
	} `yaml:"removed"`
	Classify struct {
		Rules []ClassifyRule `yaml:"rules"`
	} `yaml:"classify"`
	Metrics struct {
		Enabled                bool   `yaml:"enabled"`
		Port                   *int   `yaml:"port"`
		DephealthCheckInterval string `yaml:"dephealth_check_interval"`
		DephealthGroup         string `yaml:"dephealth_group"`
	} `yaml:"metrics"`
	Runtime struct {
		DryRun     bool  `yaml:"dry_run"`
		Limit      *int  `yaml:"limit"`
		Unbookmark *bool `yaml:"unbookmark"`
	} `yaml:"runtime"`
	Instances []struct {
		Name          string `yaml:"name"`
		BaseURL       string `yaml:"base_url"`
		AccessToken   string `yaml:"access_token"`
		AccountID     string `yaml:"account_id"`
		AccountHandle string `yaml:"account_handle"`
		Unbookmark    *bool  `yaml:"unbookmark"`
		Rate          string `yaml:"rate"`
	} `yaml:"instances"`
}

// Load читает YAML-файл конфигурации, накладывает значения по умолчанию,
// валидирует поля и возвращает Config или ошибку. Ошибки конфигурации
// фатальны: ни одной сетевой операции до успешной загрузки.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать файл конфигурации %s: %w", path, err)
	}

	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("некорректный YAML в %s: %w", path, err)
	}

	cfg := defaults()
	cfg.ConfigFile = path

	// --- paths ---
	applyIfSet(&cfg.Paths.Download, raw.Paths.Download)
	applyIfSet(&cfg.Paths.Logs, raw.Paths.Logs)
	applyIfSet(&cfg.Paths.Tmp, raw.Paths.Tmp)
	applyIfSet(&cfg.Paths.Archive, raw.Paths.Archive)
	applyIfSet(&cfg.Paths.HashDBFile, raw.Paths.HashDBFile)
	applyIfSet(&cfg.Paths.RemovedLogFile, raw.Paths.RemovedLogFile)

	// --- log ---
	if raw.Log.Level != "" {
		level, err := parseLogLevel(raw.Log.Level)
		if err != nil {
			return nil, fmt.Errorf("log.level: %w", err)
		}
		cfg.Log.Level = level
	}
	applyIfSet(&cfg.Log.Format, raw.Log.Format)
	if cfg.Log.Format != "json" && cfg.Log.Format != "text" {
		return nil, fmt.Errorf("log.format: недопустимое значение %q, допустимые: json, text", cfg.Log.Format)
	}

	// --- download ---
	applyIfSet(&cfg.Download.FilenamePattern, raw.Download.FilenamePattern)
	applyIfSet(&cfg.Download.Progress, raw.Download.Progress)
	applyIfSet(&cfg.Download.UserAgent, raw.Download.UserAgent)
	switch cfg.Download.Progress {
	case "off", "count", "filesize":
	default:
		return nil, fmt.Errorf("download.progress: недопустимое значение %q, допустимые: off, count, filesize", cfg.Download.Progress)
	}

	if raw.Download.Retry.MaxAttempts != nil {
		if *raw.Download.Retry.MaxAttempts < 1 {
			return nil, fmt.Errorf("download.retry.max_attempts: значение должно быть >= 1")
		}
		cfg.Download.Retry.MaxAttempts = *raw.Download.Retry.MaxAttempts
	}
	if raw.Download.Retry.Delay != "" {
		d, err := ParseDelay(raw.Download.Retry.Delay)
		if err != nil {
			return nil, fmt.Errorf("download.retry.delay: %w", err)
		}
		cfg.Download.Retry.Delay = d
	}
	if raw.Download.Retry.RateControl != nil {
		cfg.Download.Retry.RateControl = *raw.Download.Retry.RateControl
	}

	// rate.default_rate и rate.delay взаимоисключающие
	if raw.Download.Rate.DefaultRate != "" && raw.Download.Rate.Delay != "" {
		return nil, fmt.Errorf("download.rate: default_rate и delay взаимоисключающие")
	}
	if raw.Download.Rate.Delay != "" {
		d, err := ParseDelay(raw.Download.Rate.Delay)
		if err != nil {
			return nil, fmt.Errorf("download.rate.delay: %w", err)
		}
		cfg.Download.Rate.Delay = d
	} else if raw.Download.Rate.DefaultRate != "" {
		ppm, err := ParseRatePerMinute(raw.Download.Rate.DefaultRate)
		if err != nil {
			return nil, fmt.Errorf("download.rate.default_rate: %w", err)
		}
		cfg.Download.Rate.Delay = delayFromRate(ppm)
	}

	if err := applyIncludes(&cfg.Download.Includes, raw.Download.Includes); err != nil {
		return nil, err
	}

	// --- archive ---
	if raw.Archive.Enabled != nil {
		cfg.Archive.Enabled = *raw.Archive.Enabled
	}
	applyIfSet(&cfg.Archive.Policy, raw.Archive.Policy)
	switch cfg.Archive.Policy {
	case "keep_old", "latest", "database":
	default:
		return nil, fmt.Errorf("archive.policy: недопустимое значение %q, допустимые: keep_old, latest, database", cfg.Archive.Policy)
	}

	// --- logging ---
	applyIfSet(&cfg.Logging.Frequency, raw.Logging.Frequency)
	applyIfSet(&cfg.Logging.FilenamePattern, raw.Logging.FilenamePattern)
	if raw.Logging.LogRemoved != nil {
		cfg.Logging.LogRemoved = *raw.Logging.LogRemoved
	}
	if raw.Logging.LogDuplicate != nil {
		cfg.Logging.LogDuplicate = *raw.Logging.LogDuplicate
	}

	// --- removed ---
	if raw.Removed.SkipMediaNotFound != "" {
		d, err := ParseOptionalDelay(raw.Removed.SkipMediaNotFound)
		if err != nil {
			return nil, fmt.Errorf("removed.skip_media_not_found: %w", err)
		}
		cfg.Removed.SkipMediaNotFoundFor = d
	}

	// --- classify ---
	for i, rule := range raw.Classify.Rules {
		if rule.Match == "" || rule.Group == "" {
			return nil, fmt.Errorf("classify.rules[%d]: match и group обязательны", i)
		}
	}
	cfg.Classify.Rules = raw.Classify.Rules

	// --- metrics ---
	cfg.Metrics.Enabled = raw.Metrics.Enabled
	if raw.Metrics.Port != nil {
		if *raw.Metrics.Port < 1 || *raw.Metrics.Port > 65535 {
			return nil, fmt.Errorf("metrics.port: значение %d вне допустимого диапазона 1-65535", *raw.Metrics.Port)
		}
		cfg.Metrics.Port = *raw.Metrics.Port
	}
	if raw.Metrics.DephealthCheckInterval != "" {
		d, err := ParseDelay(raw.Metrics.DephealthCheckInterval)
		if err != nil {
			return nil, fmt.Errorf("metrics.dephealth_check_interval: %w", err)
		}
		cfg.Metrics.DephealthCheckInterval = d
	}
	applyIfSet(&cfg.Metrics.DephealthGroup, raw.Metrics.DephealthGroup)

	// --- runtime ---
	cfg.Runtime.DryRun = raw.Runtime.DryRun
	if raw.Runtime.Limit != nil {
		if *raw.Runtime.Limit < 0 {
			return nil, fmt.Errorf("runtime.limit: значение должно быть >= 0")
		}
		cfg.Runtime.Limit = *raw.Runtime.Limit
	}
	if raw.Runtime.Unbookmark != nil {
		cfg.Runtime.Unbookmark = *raw.Runtime.Unbookmark
	}

	// --- instances ---
	for i, entry := range raw.Instances {
		if entry.Name == "" {
			return nil, fmt.Errorf("instances[%d]: name обязателен", i)
		}
		if entry.BaseURL == "" {
			return nil, fmt.Errorf("instances[%d] (%s): base_url обязателен", i, entry.Name)
		}
		if entry.AccessToken == "" {
			return nil, fmt.Errorf("instances[%d] (%s): access_token обязателен", i, entry.Name)
		}

		inst := InstanceConfig{
			Name:          entry.Name,
			BaseURL:       strings.TrimRight(entry.BaseURL, "/"),
			AccessToken:   entry.AccessToken,
			AccountID:     entry.AccountID,
			AccountHandle: entry.AccountHandle,
			Unbookmark:    entry.Unbookmark,
		}
		if entry.Rate != "" {
			ppm, err := ParseRatePerMinute(entry.Rate)
			if err != nil {
				return nil, fmt.Errorf("instances[%d] (%s): rate: %w", i, entry.Name, err)
			}
			inst.RatePerMinute = ppm
		}
		cfg.Instances = append(cfg.Instances, inst)
	}

	return cfg, nil
}

// Overrides — переопределения из командной строки.
// nil-поле означает "не переопределять".
type Overrides struct {
	Limit         *int
	Rate          *string
	Unbookmark    *bool
	DryRun        bool
	DumpBookmarks bool
}

// Apply накладывает переопределения на загруженную конфигурацию.
// Чистая функция слияния: не обращается к глобальному состоянию.
func (o Overrides) Apply(cfg *Config) error {
	if o.Limit != nil {
		if *o.Limit < 0 {
			return fmt.Errorf("limit: значение должно быть >= 0")
		}
		cfg.Runtime.Limit = *o.Limit
	}
	if o.Rate != nil {
		ppm, err := ParseRatePerMinute(*o.Rate)
		if err != nil {
			return fmt.Errorf("rate: %w", err)
		}
		cfg.Download.Rate.Delay = delayFromRate(ppm)
	}
	if o.Unbookmark != nil {
		cfg.Runtime.Unbookmark = *o.Unbookmark
		// Переопределение CLI сильнее per-instance настроек
		for i := range cfg.Instances {
			cfg.Instances[i].Unbookmark = o.Unbookmark
		}
	}
	cfg.Runtime.DryRun = cfg.Runtime.DryRun || o.DryRun
	cfg.Runtime.DumpBookmarks = cfg.Runtime.DumpBookmarks || o.DumpBookmarks
	return nil
}

// SetupLogger настраивает slog по конфигурации и делает его логгером
// по умолчанию.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.Log.Level,
	}

	var handler slog.Handler
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// EnsureDirs создаёт рабочие директории. В dry-run ничего не делает.
func EnsureDirs(cfg *Config) error {
	if cfg.Runtime.DryRun {
		return nil
	}
	for _, dir := range []string{cfg.Paths.Download, cfg.Paths.Logs, cfg.Paths.Tmp, cfg.Paths.Archive} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("не удалось создать директорию %s: %w", dir, err)
		}
	}
	return nil
}

// --- Грамматика задержек и частот ---

// ParseDelay разбирает выражение задержки:
//   - голое число — секунды ("30", "2.5")
//   - Go-длительность ("30s", "2m")
//   - именованный период ("5 minutes", "hour")
//   - rate-выражение ("2/minute", "1.5 per hour") — период на событие
func ParseDelay(text string) (time.Duration, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, fmt.Errorf("пустое выражение задержки")
	}

	if m := ratePattern.FindStringSubmatch(text); m != nil {
		count, err := strconv.ParseFloat(m[1], 64)
		if err != nil || count <= 0 {
			return 0, fmt.Errorf("количество событий должно быть положительным числом: %q", m[1])
		}
		period, err := parsePeriod(m[2])
		if err != nil {
			return 0, err
		}
		return time.Duration(float64(period) / count), nil
	}

	return parsePeriod(text)
}

// ParseOptionalDelay — как ParseDelay, но допускает выключающие значения:
// "off", "0" и отрицательные числа дают нулевую задержку.
func ParseOptionalDelay(text string) (time.Duration, error) {
	trimmed := strings.TrimSpace(strings.ToLower(text))
	if trimmed == "" || trimmed == "off" {
		return 0, nil
	}
	if v, err := strconv.ParseFloat(trimmed, 64); err == nil && v <= 0 {
		return 0, nil
	}
	return ParseDelay(text)
}

// ParseRatePerMinute нормализует rate-выражение в события в минуту.
// Голое число интерпретируется как события в минуту.
func ParseRatePerMinute(text string) (float64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, fmt.Errorf("пустое rate-выражение")
	}

	if m := ratePattern.FindStringSubmatch(text); m != nil {
		count, err := strconv.ParseFloat(m[1], 64)
		if err != nil || count <= 0 {
			return 0, fmt.Errorf("количество событий должно быть положительным числом: %q", m[1])
		}
		period, err := parsePeriod(m[2])
		if err != nil {
			return 0, err
		}
		if period <= 0 {
			return 0, fmt.Errorf("период должен быть положительным")
		}
		perSecond := count / period.Seconds()
		return perSecond * 60.0, nil
	}

	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректное rate-выражение %q", text)
	}
	if v <= 0 {
		return 0, fmt.Errorf("rate должен быть положительным")
	}
	return v, nil
}

// parsePeriod разбирает период: голое число (секунды), именованный
// период ("5 minutes") или Go-длительность ("90s").
func parsePeriod(text string) (time.Duration, error) {
	text = strings.TrimSpace(text)

	if v, err := strconv.ParseFloat(text, 64); err == nil {
		if v <= 0 {
			return 0, fmt.Errorf("задержка должна быть положительной")
		}
		return time.Duration(v * float64(time.Second)), nil
	}

	if m := periodPattern.FindStringSubmatch(text); m != nil {
		count := 1.0
		if m[1] != "" {
			var err error
			count, err = strconv.ParseFloat(m[1], 64)
			if err != nil || count <= 0 {
				return 0, fmt.Errorf("некорректное количество в периоде %q", text)
			}
		}
		var unit time.Duration
		switch strings.ToLower(m[2]) {
		case "second":
			unit = time.Second
		case "minute":
			unit = time.Minute
		case "hour":
			unit = time.Hour
		case "day":
			unit = 24 * time.Hour
		}
		return time.Duration(count * float64(unit)), nil
	}

	d, err := time.ParseDuration(text)
	if err != nil {
		return 0, fmt.Errorf("некорректное выражение длительности %q", text)
	}
	if d <= 0 {
		return 0, fmt.Errorf("задержка должна быть положительной")
	}
	return d, nil
}

// delayFromRate переводит события-в-минуту в секунды-на-событие.
func delayFromRate(perMinute float64) time.Duration {
	if perMinute < 0.01 {
		perMinute = 0.01
	}
	return time.Duration(60.0 / perMinute * float64(time.Second))
}

// --- Вспомогательные функции ---

func defaults() *Config {
	return &Config{
		Paths: PathsConfig{
			Download:       "data",
			Logs:           "logs",
			Tmp:            "tmp",
			Archive:        "archive",
			HashDBFile:     "hashdb.jsonl",
			RemovedLogFile: "removed.jsonl",
		},
		Log: LogConfig{
			Level:  slog.LevelInfo,
			Format: "text",
		},
		Download: DownloadConfig{
			FilenamePattern: DefaultFilenamePattern,
			Progress:        "off",
			UserAgent:       DefaultUserAgent,
			Retry: RetryConfig{
				MaxAttempts: 3,
				Delay:       2 * time.Second,
				RateControl: true,
			},
			Rate: RateConfig{
				Delay: 30 * time.Second,
			},
		},
		Archive: ArchiveConfig{
			Enabled: true,
			Policy:  "keep_old",
		},
		Logging: LoggingConfig{
			Frequency:    "month",
			LogRemoved:   true,
			LogDuplicate: true,
		},
		Metrics: MetricsConfig{
			Port:                   9090,
			DephealthCheckInterval: 30 * time.Second,
			DephealthGroup:         "fedarch",
		},
		Runtime: RuntimeConfig{
			Unbookmark: true,
		},
	}
}

func applyIfSet(dst *string, val string) {
	if val != "" {
		*dst = val
	}
}

// applyIncludes накладывает YAML-секцию download.includes.
// Неизвестный ключ — ошибка конфигурации, а не молчаливый пропуск.
func applyIncludes(inc *IncludesConfig, raw map[string]bool) error {
	for key, val := range raw {
		switch key {
		case "gifv":
			inc.Gifv = val
		case "video":
			inc.Video = val
		case "audio":
			inc.Audio = val
		case "thumbnail_only":
			inc.ThumbnailOnly = val
		case "self":
			inc.Self = val
		case "nsfw":
			inc.NSFW = val
		case "try_unknown":
			inc.TryUnknown = val
		default:
			return fmt.Errorf("download.includes: неизвестный ключ %q", key)
		}
	}
	return nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", s)
	}
}
