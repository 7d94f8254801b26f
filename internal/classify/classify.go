// Пакет classify — классификация хостов по упорядоченным glob-правилам.
//
// Правила проверяются в порядке объявления, выигрывает первое совпадение.
// Список всегда неявно завершается catch-all правилом "*" → "other".
// Хост приводится к нижнему регистру перед сопоставлением.
// Результаты сопоставления мемоизируются в LRU-кэше: множество хостов
// за прогон невелико, а классификация вызывается на каждое вложение.
package classify

import (
	"net/url"
	"path"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// FallbackGroup — группа для хостов, не попавших ни под одно правило.
const FallbackGroup = "other"

// memoSize — ёмкость LRU-кэша хост → группа.
const memoSize = 1024

// Rule — одно правило классификации: glob-шаблон хоста → имя группы.
type Rule struct {
	// Match — glob-шаблон в синтаксисе path.Match ("*misskey*", "*.mstdn.jp")
	Match string
	// Group — метка группы
	Group string
}

// DefaultRules возвращает правила классификации по умолчанию.
func DefaultRules() []Rule {
	return []Rule{
		{Match: "*misskey*", Group: "misskey"},
		{Match: "*mastodon*", Group: "mastodon"},
		{Match: "*.mstdn.jp", Group: "mastodon"},
		{Match: "pawoo.net", Group: "pawoo"},
	}
}

// Classifier — классификатор хостов с мемоизацией.
type Classifier struct {
	rules []Rule
	memo  *lru.Cache[string, string]
}

// New создаёт классификатор. Пустой список правил означает правила
// по умолчанию. Шаблоны приводятся к нижнему регистру один раз здесь.
func New(rules []Rule) *Classifier {
	if len(rules) == 0 {
		rules = DefaultRules()
	}

	normalized := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if r.Match == "" || r.Group == "" {
			continue
		}
		normalized = append(normalized, Rule{
			Match: strings.ToLower(r.Match),
			Group: r.Group,
		})
	}

	// Ошибка возможна только при неположительной ёмкости
	memo, _ := lru.New[string, string](memoSize)

	return &Classifier{rules: normalized, memo: memo}
}

// GroupForHost возвращает группу для хоста: первое совпавшее правило
// либо FallbackGroup.
func (c *Classifier) GroupForHost(host string) string {
	if host == "" {
		return FallbackGroup
	}

	lower := strings.ToLower(host)
	if group, ok := c.memo.Get(lower); ok {
		return group
	}

	group := FallbackGroup
	for _, r := range c.rules {
		// Ошибка шаблона трактуется как несовпадение
		if ok, _ := path.Match(r.Match, lower); ok {
			group = r.Group
			break
		}
	}

	c.memo.Add(lower, group)
	return group
}

// OriginHost возвращает хост URL медиафайла (пустая строка при ошибке).
func OriginHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// AccountHost возвращает хост профиля автора по URL поста.
// "unknown", если URL отсутствует или не парсится.
func AccountHost(postURL string) string {
	if postURL == "" {
		return "unknown"
	}
	u, err := url.Parse(postURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return u.Hostname()
}
