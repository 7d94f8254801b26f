// Пакет naming — построение путей файлов и журналов по мини-шаблонам.
//
// Шаблон содержит плейсхолдеры {name}, подставляемые значениями,
// и {name:N} — первые N символов значения. Неизвестные плейсхолдеры
// остаются в строке как есть.
package naming

import (
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/arturkryukov/fedarch/internal/domain/model"
)

// DefaultExtension — расширение, когда его не удалось определить
// ни по URL, ни по типу вложения.
const DefaultExtension = "png"

// placeholderPattern — плейсхолдеры обоих видов: {key} и {key:N}.
var placeholderPattern = regexp.MustCompile(`\{([a-zA-Z_]+)(?::(\d+))?\}`)

// ParseTime разбирает ISO-8601 метку времени (включая суффикс "Z").
func ParseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("пустая метка времени")
	}
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("некорректная метка времени %q: %w", value, err)
	}
	return ts.UTC(), nil
}

// FormatTemplate подставляет значения vars в шаблон.
// {key:N} усекает значение до первых N символов.
// Плейсхолдеры без значения в vars остаются нетронутыми.
func FormatTemplate(template string, vars map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		groups := placeholderPattern.FindStringSubmatch(match)
		val, ok := vars[groups[1]]
		if !ok {
			return match
		}
		if groups[2] != "" {
			// Длина проверена регэкспом, ошибки быть не может
			n := 0
			fmt.Sscanf(groups[2], "%d", &n)
			if n < len(val) {
				return val[:n]
			}
		}
		return val
	})
}

// DateVars возвращает календарные переменные шаблонов для момента created.
func DateVars(created time.Time) map[string]string {
	_, week := created.ISOWeek()
	quarter := (int(created.Month())-1)/3 + 1
	half := 1
	if created.Month() > 6 {
		half = 2
	}
	return map[string]string{
		"year":        created.Format("2006"),
		"yearmonth":   created.Format("200601"),
		"date":        created.Format("2006-01-02"),
		"month":       created.Format("01"),
		"week":        fmt.Sprintf("%02d", week),
		"quarter":     fmt.Sprintf("%d", quarter),
		"half":        fmt.Sprintf("%d", half),
		"yearweek":    fmt.Sprintf("%sW%02d", created.Format("2006"), week),
		"yearquarter": fmt.Sprintf("%sQ%d", created.Format("2006"), quarter),
		"yearhalf":    fmt.Sprintf("%sH%d", created.Format("2006"), half),
		"datetime":    created.Format("20060102150405"),
	}
}

// PathVars — входные данные для построения путей.
type PathVars struct {
	// Created — дата создания поста
	Created time.Time
	// ScreenName — имя автора
	ScreenName string
	// Index — порядковый номер вложения в посте
	Index int
	// Ext — расширение файла без точки
	Ext string
	// ContentHash — SHA-256 hex содержимого
	ContentHash string

	OriginHost   string
	OriginGroup  string
	AccountHost  string
	AccountGroup string
}

// vars собирает полную карту переменных шаблона.
func (p PathVars) vars() map[string]string {
	vars := DateVars(p.Created)
	vars["origin_host"] = p.OriginHost
	vars["origin_group"] = p.OriginGroup
	vars["account_host"] = p.AccountHost
	vars["account_group"] = p.AccountGroup
	vars["sha256"] = p.ContentHash
	vars["screenname"] = p.ScreenName
	vars["index"] = fmt.Sprintf("%d", p.Index)
	vars["ext"] = p.Ext
	return vars
}

// BuildFilePath строит путь сохраняемого файла: downloadRoot + шаблон.
func BuildFilePath(downloadRoot, pattern string, p PathVars) string {
	rel := FormatTemplate(pattern, p.vars())
	return filepath.Join(downloadRoot, filepath.FromSlash(rel))
}

// DefaultLogPattern возвращает шаблон пути журнала скачиваний
// для заданной частоты ротации.
func DefaultLogPattern(frequency string) string {
	switch strings.ToLower(frequency) {
	case "day", "daily":
		return "{origin_group}/{yearmonth}/{date}.jsonl"
	case "week", "weekly":
		return "{origin_group}/{yearweek}.jsonl"
	case "quarter", "quarterly":
		return "{origin_group}/{yearquarter}.jsonl"
	case "half", "semester", "semiannual":
		return "{origin_group}/{yearhalf}.jsonl"
	case "year", "annual":
		return "{origin_group}/{year}.jsonl"
	default:
		return "{origin_group}/{yearmonth}.jsonl"
	}
}

// BuildLogPath строит путь журнала скачиваний. Пустой pattern означает
// шаблон по умолчанию для частоты frequency.
func BuildLogPath(logsRoot, pattern, frequency string, p PathVars) string {
	if pattern == "" {
		pattern = DefaultLogPattern(frequency)
	}
	rel := FormatTemplate(pattern, p.vars())
	return filepath.Join(logsRoot, filepath.FromSlash(rel))
}

// GuessExtension подбирает расширение для вложения: суффикс пути URL,
// затем подтип MIME-подобного типа, затем DefaultExtension.
// Каждая ступень деградирует к следующей без ошибок.
func GuessExtension(media model.MediaAttachment) string {
	if src := media.SourceURL(); src != "" {
		if u, err := url.Parse(src); err == nil {
			ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(u.Path), "."))
			if ext != "" {
				return ext
			}
		}
	}

	mtype := media.Type
	if idx := strings.LastIndex(mtype, "/"); idx >= 0 {
		return mtype[idx+1:]
	}
	if mtype != "" && mtype != model.MediaTypeImage {
		return mtype
	}
	return DefaultExtension
}
