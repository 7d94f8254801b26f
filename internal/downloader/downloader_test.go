package downloader

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testOptions(t *testing.T) Options {
	t.Helper()
	return Options{
		TmpDir:      t.TempDir(),
		UserAgent:   "fedarch-test/1.0",
		MaxAttempts: 3,
		RetryDelay:  time.Millisecond,
	}
}

func TestFetch_HashAndSize(t *testing.T) {
	payload := "картинка не картинка, а байты честные"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != "fedarch-test/1.0" {
			t.Errorf("неожиданный User-Agent: %q", ua)
		}
		io.WriteString(w, payload)
	}))
	defer srv.Close()

	f := New(srv.Client(), testOptions(t), testLogger())
	res, err := f.Fetch(context.Background(), srv.URL+"/a.png")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	defer res.Discard()

	sum := sha256.Sum256([]byte(payload))
	if res.Hash != hex.EncodeToString(sum[:]) {
		t.Errorf("неверный хэш: %s", res.Hash)
	}
	if res.Size != int64(len(payload)) {
		t.Errorf("хотели размер %d, получили %d", len(payload), res.Size)
	}

	data, err := os.ReadFile(res.Path)
	if err != nil {
		t.Fatalf("staging-файл не читается: %v", err)
	}
	if string(data) != payload {
		t.Error("содержимое staging-файла искажено")
	}
}

func TestFetch_RetriesThenSucceeds(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		io.WriteString(w, "ok")
	}))
	defer srv.Close()

	f := New(srv.Client(), testOptions(t), testLogger())
	res, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("не ожидали ошибку после повторов: %v", err)
	}
	defer res.Discard()
	if calls != 3 {
		t.Errorf("хотели 3 попытки, получили %d", calls)
	}
}

func TestFetch_ExhaustsAttempts(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := New(srv.Client(), testOptions(t), testLogger())
	_, err := f.Fetch(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("хотели ошибку после исчерпания попыток")
	}
	if calls != 3 {
		t.Errorf("хотели 3 попытки, получили %d", calls)
	}
	var dlErr *DownloadError
	if !errors.As(err, &dlErr) || dlErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("хотели DownloadError с 500, получили %v", err)
	}
}

func TestFetch_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := New(srv.Client(), testOptions(t), testLogger())
	_, err := f.Fetch(context.Background(), srv.URL+"/gone.png")
	var dlErr *DownloadError
	if !errors.As(err, &dlErr) {
		t.Fatalf("хотели DownloadError, получили %v", err)
	}
	if !dlErr.NotFound() {
		t.Errorf("хотели NotFound, статус %d", dlErr.StatusCode)
	}
}

func TestFetch_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	opts := testOptions(t)
	opts.RetryDelay = time.Minute
	f := New(srv.Client(), opts, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := f.Fetch(ctx, srv.URL)
	if err == nil {
		t.Fatal("хотели ошибку отмены")
	}
	if time.Since(start) > 5*time.Second {
		t.Error("отмена контекста не прервала паузу между попытками")
	}
}

func TestProgressWriter(t *testing.T) {
	var buf strings.Builder
	p := &progressWriter{mode: "filesize", out: &buf}
	p.Write(make([]byte, 2048))
	if !strings.Contains(buf.String(), "2.0 KiB") {
		t.Errorf("хотели 2.0 KiB в выводе, получили %q", buf.String())
	}

	buf.Reset()
	p = &progressWriter{mode: "count", out: &buf}
	p.Write(make([]byte, 10))
	p.Write(make([]byte, 5))
	if !strings.Contains(buf.String(), "\r15") {
		t.Errorf("хотели нарастающий счётчик, получили %q", buf.String())
	}
}

func TestFormatBytes(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
	}
	for _, c := range cases {
		if got := formatBytes(c.in); got != c.want {
			t.Errorf("formatBytes(%d): хотели %q, получили %q", c.in, c.want, got)
		}
	}
}
