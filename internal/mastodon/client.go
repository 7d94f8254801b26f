// Пакет mastodon — минимальный клиент Mastodon-совместимого REST API:
// постраничный обход закладок и снятие закладки.
//
// Пагинация ведётся по заголовку Link (rel="next" с параметром max_id),
// как это делает сам Mastodon; номер страницы нигде не фигурирует.
package mastodon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/arturkryukov/fedarch/internal/domain/model"
)

// pageLimit — размер страницы закладок за один запрос.
const pageLimit = 40

// APIError — неуспешный ответ API.
type APIError struct {
	StatusCode int
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("запрос %s: HTTP %d", e.URL, e.StatusCode)
}

// Client — авторизованный клиент одного инстанса.
type Client struct {
	baseURL   string
	token     string
	userAgent string
	http      *http.Client
	logger    *slog.Logger

	// DumpWriter — если не nil, сырые JSON-страницы закладок
	// пишутся сюда как есть (режим отладки dump_bookmarks)
	DumpWriter io.Writer
}

// New создаёт клиент. client может быть nil.
func New(baseURL, token, userAgent string, client *http.Client, logger *slog.Logger) *Client {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		token:     token,
		userAgent: userAgent,
		http:      client,
		logger:    logger.With(slog.String("component", "mastodon")),
	}
}

// Bookmarks возвращает итератор по страницам закладок,
// от самых свежих к самым старым.
func (c *Client) Bookmarks() *BookmarkIterator {
	return &BookmarkIterator{
		client:  c,
		nextURL: fmt.Sprintf("%s/api/v1/bookmarks?limit=%d", c.baseURL, pageLimit),
	}
}

// BookmarkIterator обходит страницы закладок. Не потокобезопасен.
type BookmarkIterator struct {
	client  *Client
	nextURL string
}

// Next возвращает очередную страницу. Конец пагинации — (nil, nil).
func (it *BookmarkIterator) Next(ctx context.Context) ([]model.Status, error) {
	if it.nextURL == "" {
		return nil, nil
	}

	body, linkHeader, err := it.client.get(ctx, it.nextURL)
	if err != nil {
		return nil, err
	}

	if it.client.DumpWriter != nil {
		it.client.DumpWriter.Write(append(bytes.TrimRight(body, "\n"), '\n'))
	}

	var page []model.Status
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("не удалось разобрать страницу закладок: %w", err)
	}

	it.nextURL = nextLink(linkHeader)
	if len(page) == 0 {
		// Пустая страница завершает обход независимо от Link.
		it.nextURL = ""
		return nil, nil
	}
	return page, nil
}

// DeleteBookmark снимает закладку со статуса.
func (c *Client) DeleteBookmark(ctx context.Context, statusID string) error {
	url := fmt.Sprintf("%s/api/v1/statuses/%s/unbookmark", c.baseURL, statusID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return fmt.Errorf("не удалось построить запрос: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ошибка запроса unbookmark: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, URL: url}
	}
	c.logger.Debug("Закладка снята", slog.String("status_id", statusID))
	return nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("не удалось построить запрос: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("ошибка запроса %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, "", &APIError{StatusCode: resp.StatusCode, URL: url}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("ошибка чтения ответа %s: %w", url, err)
	}
	return body, resp.Header.Get("Link"), nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
}

// nextLink извлекает URL с rel="next" из заголовка Link.
// Пустая строка — следующей страницы нет.
func nextLink(header string) string {
	for _, part := range strings.Split(header, ",") {
		segments := strings.Split(part, ";")
		if len(segments) < 2 {
			continue
		}
		url := strings.Trim(strings.TrimSpace(segments[0]), "<>")
		for _, param := range segments[1:] {
			if strings.EqualFold(strings.TrimSpace(param), `rel="next"`) {
				return url
			}
		}
	}
	return ""
}
