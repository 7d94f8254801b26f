package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeConfig записывает YAML во временный файл и возвращает его путь.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o640); err != nil {
		t.Fatalf("Ошибка записи тестового конфига: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Paths.Download != "data" {
		t.Errorf("Paths.Download: хотели %q, получили %q", "data", cfg.Paths.Download)
	}
	if cfg.Download.FilenamePattern != DefaultFilenamePattern {
		t.Errorf("FilenamePattern: хотели шаблон по умолчанию, получили %q", cfg.Download.FilenamePattern)
	}
	if cfg.Download.Retry.MaxAttempts != 3 {
		t.Errorf("Retry.MaxAttempts: хотели 3, получили %d", cfg.Download.Retry.MaxAttempts)
	}
	if cfg.Download.Rate.Delay != 30*time.Second {
		t.Errorf("Rate.Delay: хотели 30s, получили %v", cfg.Download.Rate.Delay)
	}
	if !cfg.Archive.Enabled || cfg.Archive.Policy != "keep_old" {
		t.Errorf("Archive: хотели enabled/keep_old, получили %+v", cfg.Archive)
	}
	if !cfg.Runtime.Unbookmark {
		t.Error("Runtime.Unbookmark: по умолчанию должен быть включён")
	}
	if cfg.Removed.SkipMediaNotFoundFor != 0 {
		t.Errorf("SkipMediaNotFoundFor: хотели 0 (выключено), получили %v", cfg.Removed.SkipMediaNotFoundFor)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("ожидалась ошибка для отсутствующего файла")
	}
}

func TestLoad_RateConflict(t *testing.T) {
	// default_rate и delay одновременно — ошибка на этапе загрузки,
	// до любой сетевой активности
	_, err := Load(writeConfig(t, `
download:
  rate:
    default_rate: "2/minute"
    delay: "30s"
`))
	if err == nil {
		t.Fatal("ожидалась ошибка взаимоисключающих rate-параметров")
	}
	if !strings.Contains(err.Error(), "взаимоисключающие") {
		t.Errorf("неожиданный текст ошибки: %v", err)
	}
}

func TestLoad_RateFromDefaultRate(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
download:
  rate:
    default_rate: "2/minute"
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Download.Rate.Delay != 30*time.Second {
		t.Errorf("Rate.Delay: хотели 30s (2/minute), получили %v", cfg.Download.Rate.Delay)
	}
}

func TestLoad_Instances(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
instances:
  - name: main
    base_url: https://mastodon.example/
    access_token: secret
    account_id: "42"
    unbookmark: false
    rate: "1/minute"
  - name: alt
    base_url: https://misskey.example
    access_token: secret2
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Instances) != 2 {
		t.Fatalf("хотели 2 инстанса, получили %d", len(cfg.Instances))
	}

	main := cfg.Instances[0]
	if main.BaseURL != "https://mastodon.example" {
		t.Errorf("BaseURL должен быть без хвостового слэша, получили %q", main.BaseURL)
	}
	if main.Unbookmark == nil || *main.Unbookmark {
		t.Error("Unbookmark: хотели явное false")
	}
	if main.RatePerMinute != 1 {
		t.Errorf("RatePerMinute: хотели 1, получили %v", main.RatePerMinute)
	}
	if cfg.RateDelay(&main) != time.Minute {
		t.Errorf("RateDelay: хотели 1m, получили %v", cfg.RateDelay(&main))
	}

	alt := cfg.Instances[1]
	if alt.Unbookmark != nil {
		t.Error("Unbookmark: для alt переопределение не задано")
	}
	if cfg.RateDelay(&alt) != 30*time.Second {
		t.Errorf("RateDelay без переопределения: хотели 30s, получили %v", cfg.RateDelay(&alt))
	}
}

func TestLoad_InstanceValidation(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"без name", "instances:\n  - base_url: https://x\n    access_token: t\n"},
		{"без base_url", "instances:\n  - name: a\n    access_token: t\n"},
		{"без access_token", "instances:\n  - name: a\n    base_url: https://x\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.yaml)); err == nil {
				t.Error("ожидалась ошибка валидации инстанса")
			}
		})
	}
}

func TestLoad_InvalidPolicy(t *testing.T) {
	_, err := Load(writeConfig(t, "archive:\n  policy: newest\n"))
	if err == nil {
		t.Fatal("ожидалась ошибка недопустимой политики")
	}
}

func TestLoad_UnknownIncludeKey(t *testing.T) {
	_, err := Load(writeConfig(t, "download:\n  includes:\n    selfie: true\n"))
	if err == nil {
		t.Fatal("ожидалась ошибка неизвестного ключа includes")
	}
}

func TestParseDelay(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"30", 30 * time.Second},
		{"2.5", 2500 * time.Millisecond},
		{"45s", 45 * time.Second},
		{"2m", 2 * time.Minute},
		{"5 minutes", 5 * time.Minute},
		{"hour", time.Hour},
		{"2/minute", 30 * time.Second},
		{"1.5/hour", 40 * time.Minute},
		{"4 per hour", 15 * time.Minute},
	}
	for _, tc := range cases {
		got, err := ParseDelay(tc.in)
		if err != nil {
			t.Errorf("ParseDelay(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseDelay(%q): хотели %v, получили %v", tc.in, tc.want, got)
		}
	}
}

func TestParseDelay_Invalid(t *testing.T) {
	for _, in := range []string{"", "abc", "0", "-5", "0/minute"} {
		if _, err := ParseDelay(in); err == nil {
			t.Errorf("ParseDelay(%q): ожидалась ошибка", in)
		}
	}
}

func TestParseOptionalDelay(t *testing.T) {
	for _, in := range []string{"off", "OFF", "0", "-1", ""} {
		got, err := ParseOptionalDelay(in)
		if err != nil {
			t.Errorf("ParseOptionalDelay(%q): %v", in, err)
		}
		if got != 0 {
			t.Errorf("ParseOptionalDelay(%q): хотели 0, получили %v", in, got)
		}
	}

	got, err := ParseOptionalDelay("24 hours")
	if err != nil {
		t.Fatalf("ParseOptionalDelay: %v", err)
	}
	if got != 24*time.Hour {
		t.Errorf("хотели 24h, получили %v", got)
	}
}

func TestParseRatePerMinute(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"2/minute", 2},
		{"120/hour", 2},
		{"1 per second", 60},
		{"5", 5},
	}
	for _, tc := range cases {
		got, err := ParseRatePerMinute(tc.in)
		if err != nil {
			t.Errorf("ParseRatePerMinute(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseRatePerMinute(%q): хотели %v, получили %v", tc.in, tc.want, got)
		}
	}
}

func TestOverrides_Apply(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
instances:
  - name: main
    base_url: https://mastodon.example
    access_token: secret
    unbookmark: false
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	limit := 10
	rateStr := "1/minute"
	unbookmark := true
	ov := Overrides{
		Limit:      &limit,
		Rate:       &rateStr,
		Unbookmark: &unbookmark,
		DryRun:     true,
	}
	if err := ov.Apply(cfg); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if cfg.Runtime.Limit != 10 {
		t.Errorf("Limit: хотели 10, получили %d", cfg.Runtime.Limit)
	}
	if cfg.Download.Rate.Delay != time.Minute {
		t.Errorf("Rate.Delay: хотели 1m, получили %v", cfg.Download.Rate.Delay)
	}
	if !cfg.Runtime.DryRun {
		t.Error("DryRun: должен быть включён")
	}
	// CLI-переопределение перекрывает per-instance настройку
	if cfg.Instances[0].Unbookmark == nil || !*cfg.Instances[0].Unbookmark {
		t.Error("Unbookmark инстанса: CLI-переопределение должно перекрыть false")
	}
	if !cfg.UnbookmarkEnabled(&cfg.Instances[0]) {
		t.Error("UnbookmarkEnabled: хотели true после переопределения")
	}
}
