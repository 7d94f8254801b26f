// status.go — модели постов fediverse-инстанса (Mastodon-совместимый API).
package model

// MediaTypeImage — тип вложения, который архивируется без дополнительных
// разрешений в конфигурации.
const MediaTypeImage = "image"

// Account — автор поста.
type Account struct {
	// ID — локальный идентификатор аккаунта на инстансе
	ID string `json:"id"`
	// Acct — полный handle (user или user@host для удалённых)
	Acct string `json:"acct"`
	// Username — локальное имя пользователя
	Username string `json:"username"`
}

// MediaAttachment — вложение поста.
type MediaAttachment struct {
	// Type — тип вложения: image, video, gifv, audio, unknown
	Type string `json:"type"`
	// URL — URL локальной копии на инстансе
	URL string `json:"url"`
	// RemoteURL — URL оригинала на инстансе-источнике.
	// Пустой, если инстанс хранит только превью.
	RemoteURL string `json:"remote_url"`
}

// SourceURL возвращает URL для скачивания: приоритет у remote_url,
// затем url. Пустая строка, если вложение недоступно.
func (m MediaAttachment) SourceURL() string {
	if m.RemoteURL != "" {
		return m.RemoteURL
	}
	return m.URL
}

// Status — пост из закладок.
type Status struct {
	// ID — идентификатор поста на инстансе
	ID string `json:"id"`
	// URL — постоянная ссылка на пост
	URL string `json:"url"`
	// CreatedAt — дата создания поста (ISO-8601, как прислал сервер)
	CreatedAt string `json:"created_at"`
	// Sensitive — пометка NSFW
	Sensitive bool `json:"sensitive"`
	// Account — автор поста
	Account Account `json:"account"`
	// MediaAttachments — вложения в порядке, заданном сервером
	MediaAttachments []MediaAttachment `json:"media_attachments"`
}

// MediaURLs возвращает URL всех вложений поста (для журналов).
func (s *Status) MediaURLs() []string {
	urls := make([]string, 0, len(s.MediaAttachments))
	for _, m := range s.MediaAttachments {
		urls = append(urls, m.SourceURL())
	}
	return urls
}

// ScreenName возвращает имя автора для шаблонов путей.
func (s *Status) ScreenName() string {
	if s.Account.Username != "" {
		return s.Account.Username
	}
	return s.Account.Acct
}
