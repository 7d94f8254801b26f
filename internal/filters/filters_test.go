package filters

import (
	"testing"

	"github.com/arturkryukov/fedarch/internal/config"
	"github.com/arturkryukov/fedarch/internal/domain/model"
)

func imageStatus() *model.Status {
	return &model.Status{
		ID:  "1",
		URL: "https://mastodon.example/@bob/1",
		Account: model.Account{
			ID:       "100",
			Acct:     "bob",
			Username: "bob",
		},
		MediaAttachments: []model.MediaAttachment{
			{Type: "image", RemoteURL: "https://files.example/1.png"},
		},
	}
}

func TestShouldSkip_AllowedImage(t *testing.T) {
	skip, reason := ShouldSkip(imageStatus(), &config.InstanceConfig{}, config.IncludesConfig{})
	if skip {
		t.Fatalf("обычный пост с изображением не должен пропускаться, причина %q", reason)
	}
}

func TestShouldSkip_SelfPrecedesMediaType(t *testing.T) {
	// Свой пост с audio-вложением: self-проверка раньше проверки типов,
	// ожидаем self_post, а не audio_media
	status := imageStatus()
	status.Account.ID = "42"
	status.MediaAttachments = []model.MediaAttachment{
		{Type: "audio", RemoteURL: "https://files.example/1.mp3"},
	}
	inst := &config.InstanceConfig{AccountID: "42"}

	skip, reason := ShouldSkip(status, inst, config.IncludesConfig{})
	if !skip || reason != model.ReasonSelfPost {
		t.Errorf("хотели self_post, получили (%v, %q)", skip, reason)
	}
}

func TestShouldSkip_SelfByHandle(t *testing.T) {
	status := imageStatus()
	status.Account.Acct = "Alice@Mastodon.Example"
	inst := &config.InstanceConfig{AccountHandle: "@alice@mastodon.example"}

	skip, reason := ShouldSkip(status, inst, config.IncludesConfig{})
	if !skip || reason != model.ReasonSelfPost {
		t.Errorf("хотели self_post по handle, получили (%v, %q)", skip, reason)
	}
}

func TestShouldSkip_IncludeSelf(t *testing.T) {
	status := imageStatus()
	status.Account.ID = "42"
	inst := &config.InstanceConfig{AccountID: "42"}

	skip, _ := ShouldSkip(status, inst, config.IncludesConfig{Self: true})
	if skip {
		t.Error("с include self свой пост не должен пропускаться")
	}
}

func TestShouldSkip_Reasons(t *testing.T) {
	cases := []struct {
		name     string
		mutate   func(*model.Status)
		includes config.IncludesConfig
		want     model.Reason
	}{
		{
			"без медиа",
			func(s *model.Status) { s.MediaAttachments = nil },
			config.IncludesConfig{},
			model.ReasonNoMedia,
		},
		{
			"gifv",
			func(s *model.Status) { s.MediaAttachments[0].Type = "gifv" },
			config.IncludesConfig{},
			model.ReasonGifvMedia,
		},
		{
			"audio",
			func(s *model.Status) { s.MediaAttachments[0].Type = "audio" },
			config.IncludesConfig{},
			model.ReasonAudioMedia,
		},
		{
			"video",
			func(s *model.Status) { s.MediaAttachments[0].Type = "video" },
			config.IncludesConfig{},
			model.ReasonNonImageMedia,
		},
		{
			"нет remote_url",
			func(s *model.Status) { s.MediaAttachments[0].RemoteURL = "" },
			config.IncludesConfig{},
			model.ReasonNoRemoteURL,
		},
		{
			"nsfw",
			func(s *model.Status) { s.Sensitive = true },
			config.IncludesConfig{},
			model.ReasonNSFWFiltered,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status := imageStatus()
			tc.mutate(status)
			skip, reason := ShouldSkip(status, &config.InstanceConfig{}, tc.includes)
			if !skip || reason != tc.want {
				t.Errorf("хотели (true, %q), получили (%v, %q)", tc.want, skip, reason)
			}
		})
	}
}

func TestShouldSkip_TryUnknownImageHeuristic(t *testing.T) {
	status := imageStatus()
	status.MediaAttachments[0].Type = "unknown"
	status.MediaAttachments[0].RemoteURL = "https://files.example/pic.webp"

	// Без try_unknown тип unknown считается не-изображением
	skip, reason := ShouldSkip(status, &config.InstanceConfig{}, config.IncludesConfig{})
	if !skip || reason != model.ReasonNonImageMedia {
		t.Errorf("без try_unknown хотели non_image_media, получили (%v, %q)", skip, reason)
	}

	// С try_unknown URL с суффиксом изображения проходит
	skip, reason = ShouldSkip(status, &config.InstanceConfig{}, config.IncludesConfig{TryUnknown: true})
	if skip {
		t.Errorf("с try_unknown пост должен обрабатываться, причина %q", reason)
	}
}

func TestShouldSkip_EmptyTypeIsNonImage(t *testing.T) {
	status := imageStatus()
	status.MediaAttachments[0].Type = ""
	status.MediaAttachments[0].RemoteURL = "https://files.example/blob"

	// Вложение без типа без try_unknown считается не-изображением
	skip, reason := ShouldSkip(status, &config.InstanceConfig{}, config.IncludesConfig{})
	if !skip || reason != model.ReasonNonImageMedia {
		t.Errorf("пустой тип: хотели non_image_media, получили (%v, %q)", skip, reason)
	}

	// С try_unknown и суффиксом изображения в URL проходит
	status.MediaAttachments[0].RemoteURL = "https://files.example/pic.jpeg"
	skip, reason = ShouldSkip(status, &config.InstanceConfig{}, config.IncludesConfig{TryUnknown: true})
	if skip {
		t.Errorf("пустой тип с try_unknown и image-URL должен обрабатываться, причина %q", reason)
	}
}

func TestShouldSkip_AudioAllowedVideoStillBlocked(t *testing.T) {
	status := imageStatus()
	status.MediaAttachments = []model.MediaAttachment{
		{Type: "audio", RemoteURL: "https://files.example/1.mp3"},
		{Type: "video", RemoteURL: "https://files.example/1.mp4"},
	}

	skip, reason := ShouldSkip(status, &config.InstanceConfig{}, config.IncludesConfig{Audio: true})
	if !skip || reason != model.ReasonNonImageMedia {
		t.Errorf("video без include video: хотели non_image_media, получили (%v, %q)", skip, reason)
	}
}
