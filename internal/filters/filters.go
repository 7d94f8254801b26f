// Пакет filters — правила пропуска постов до скачивания.
//
// Порядок проверок фиксирован и значим: self-проверка раньше проверок
// типов медиа, поэтому свой пост с запрещённым типом вложения получает
// причину self_post, а не audio_media.
package filters

import (
	"net/url"
	"strings"

	"github.com/arturkryukov/fedarch/internal/config"
	"github.com/arturkryukov/fedarch/internal/domain/model"
)

// imageExtensions — суффиксы URL, по которым unknown-медиа
// эвристически считается изображением (try_unknown).
var imageExtensions = []string{
	".png", ".jpg", ".jpeg", ".gif", ".bmp", ".webp", ".heic", ".avif",
}

// ShouldSkip решает, пропускать ли пост целиком, и возвращает причину.
// Возвращает (false, "") для постов, подлежащих обработке.
func ShouldSkip(status *model.Status, inst *config.InstanceConfig, includes config.IncludesConfig) (bool, model.Reason) {
	if !includes.Self && isSelfPost(status, inst) {
		return true, model.ReasonSelfPost
	}

	media := status.MediaAttachments
	if len(media) == 0 {
		return true, model.ReasonNoMedia
	}

	types := make(map[string]bool, len(media))
	for _, m := range media {
		mtype := strings.ToLower(m.Type)
		if includes.TryUnknown && isUnknownType(mtype) && looksLikeImage(m) {
			mtype = model.MediaTypeImage
		}
		types[mtype] = true
	}

	if !includes.Gifv && types["gifv"] {
		return true, model.ReasonGifvMedia
	}

	// Пустой тип тоже не изображение; спасти такое вложение могла
	// только эвристика try_unknown при сборке types.
	nonImage := make(map[string]bool)
	for t := range types {
		if t != model.MediaTypeImage {
			nonImage[t] = true
		}
	}

	if nonImage["audio"] {
		if !includes.Audio {
			return true, model.ReasonAudioMedia
		}
		delete(nonImage, "audio")
	}

	if len(nonImage) > 0 && !includes.Video {
		return true, model.ReasonNonImageMedia
	}

	if !includes.ThumbnailOnly {
		for _, m := range media {
			if m.RemoteURL == "" {
				return true, model.ReasonNoRemoteURL
			}
		}
	}

	if !includes.NSFW && status.Sensitive {
		return true, model.ReasonNSFWFiltered
	}

	return false, ""
}

// isSelfPost сравнивает автора поста с собственным аккаунтом инстанса:
// сначала по account_id, затем по handle (acct или username).
func isSelfPost(status *model.Status, inst *config.InstanceConfig) bool {
	if inst == nil {
		return false
	}

	account := status.Account
	if inst.AccountID != "" && account.ID != "" && account.ID == inst.AccountID {
		return true
	}

	handle := strings.ToLower(strings.TrimPrefix(inst.AccountHandle, "@"))
	if handle == "" {
		return false
	}
	for _, candidate := range []string{account.Acct, account.Username} {
		if candidate == "" {
			continue
		}
		if strings.ToLower(strings.TrimPrefix(candidate, "@")) == handle {
			return true
		}
	}
	return false
}

func isUnknownType(mtype string) bool {
	switch mtype {
	case "", "unknown", "other":
		return true
	}
	return false
}

// looksLikeImage проверяет суффикс пути URL вложения.
func looksLikeImage(media model.MediaAttachment) bool {
	src := media.SourceURL()
	if src == "" {
		return false
	}
	u, err := url.Parse(src)
	if err != nil {
		return false
	}
	lower := strings.ToLower(u.Path)
	for _, ext := range imageExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
