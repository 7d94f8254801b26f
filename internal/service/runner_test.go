package service

import (
	"context"
	"testing"
	"time"

	"github.com/arturkryukov/fedarch/internal/config"
	"github.com/arturkryukov/fedarch/internal/domain/model"
)

// fakeProcessor помечает заданные статусы как скачанные.
type fakeProcessor struct {
	downloadIDs map[string]bool
	processed   []string
}

func (f *fakeProcessor) ProcessStatus(ctx context.Context, inst *config.InstanceConfig, status *model.Status) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	f.processed = append(f.processed, status.ID)
	return f.downloadIDs[status.ID], nil
}

// fakeSource отдаёт страницы статусов и запоминает снятые закладки.
type fakeSource struct {
	pages        [][]model.Status
	unbookmarked []string
	failNext     error
}

func (f *fakeSource) Bookmarks() StatusIterator { return &fakeIterator{src: f} }

func (f *fakeSource) DeleteBookmark(ctx context.Context, statusID string) error {
	f.unbookmarked = append(f.unbookmarked, statusID)
	return nil
}

type fakeIterator struct {
	src  *fakeSource
	page int
}

func (it *fakeIterator) Next(ctx context.Context) ([]model.Status, error) {
	if it.src.failNext != nil {
		return nil, it.src.failNext
	}
	if it.page >= len(it.src.pages) {
		return nil, nil
	}
	p := it.src.pages[it.page]
	it.page++
	return p, nil
}

func statuses(ids ...string) []model.Status {
	out := make([]model.Status, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.Status{ID: id})
	}
	return out
}

func runnerConfig() *config.Config {
	return &config.Config{
		Runtime: config.RuntimeConfig{Unbookmark: true},
		Instances: []config.InstanceConfig{
			{Name: "main", BaseURL: "https://mastodon.example"},
		},
	}
}

func TestRunAll_UnbookmarkOnlyDownloaded(t *testing.T) {
	cfg := runnerConfig()
	proc := &fakeProcessor{downloadIDs: map[string]bool{"2": true}}
	src := &fakeSource{pages: [][]model.Status{statuses("1", "2"), statuses("3")}}

	r := NewRunner(cfg, proc, func(*config.InstanceConfig) BookmarkSource { return src }, testLogger())
	if err := r.RunAll(context.Background()); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}

	if len(proc.processed) != 3 {
		t.Errorf("хотели 3 обработанных статуса, получили %v", proc.processed)
	}
	if len(src.unbookmarked) != 1 || src.unbookmarked[0] != "2" {
		t.Errorf("закладка снимается только после скачивания: %v", src.unbookmarked)
	}
}

func TestRunAll_PauseAfterFirstDownload(t *testing.T) {
	cfg := runnerConfig()
	cfg.Download.Rate.Delay = 50 * time.Millisecond
	proc := &fakeProcessor{downloadIDs: map[string]bool{"1": true}}
	src := &fakeSource{pages: [][]model.Status{statuses("1")}}

	r := NewRunner(cfg, proc, func(*config.InstanceConfig) BookmarkSource { return src }, testLogger())
	start := time.Now()
	if err := r.RunAll(context.Background()); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("пауза положена уже после первого скачивания, прогон занял %v", elapsed)
	}
}

func TestRunAll_Limit(t *testing.T) {
	cfg := runnerConfig()
	cfg.Runtime.Limit = 2
	proc := &fakeProcessor{downloadIDs: map[string]bool{}}
	src := &fakeSource{pages: [][]model.Status{statuses("1", "2", "3"), statuses("4")}}

	r := NewRunner(cfg, proc, func(*config.InstanceConfig) BookmarkSource { return src }, testLogger())
	if err := r.RunAll(context.Background()); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(proc.processed) != 2 {
		t.Errorf("лимит не сработал: %v", proc.processed)
	}
}

func TestRunAll_DryRunSkipsUnbookmark(t *testing.T) {
	cfg := runnerConfig()
	cfg.Runtime.DryRun = true
	proc := &fakeProcessor{downloadIDs: map[string]bool{"1": true}}
	src := &fakeSource{pages: [][]model.Status{statuses("1")}}

	r := NewRunner(cfg, proc, func(*config.InstanceConfig) BookmarkSource { return src }, testLogger())
	if err := r.RunAll(context.Background()); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(src.unbookmarked) != 0 {
		t.Errorf("dry-run не снимает закладки: %v", src.unbookmarked)
	}
}

func TestRunAll_InstanceUnbookmarkOverride(t *testing.T) {
	cfg := runnerConfig()
	off := false
	cfg.Instances[0].Unbookmark = &off
	proc := &fakeProcessor{downloadIDs: map[string]bool{"1": true}}
	src := &fakeSource{pages: [][]model.Status{statuses("1")}}

	r := NewRunner(cfg, proc, func(*config.InstanceConfig) BookmarkSource { return src }, testLogger())
	if err := r.RunAll(context.Background()); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(src.unbookmarked) != 0 {
		t.Errorf("переопределение инстанса выключает unbookmark: %v", src.unbookmarked)
	}
}

func TestRunAll_InstanceFailureContinues(t *testing.T) {
	cfg := runnerConfig()
	cfg.Instances = append(cfg.Instances, config.InstanceConfig{Name: "second"})

	proc := &fakeProcessor{downloadIDs: map[string]bool{}}
	broken := &fakeSource{failNext: context.DeadlineExceeded}
	healthy := &fakeSource{pages: [][]model.Status{statuses("1")}}
	sources := map[string]BookmarkSource{"main": broken, "second": healthy}

	r := NewRunner(cfg, proc, func(inst *config.InstanceConfig) BookmarkSource {
		return sources[inst.Name]
	}, testLogger())
	if err := r.RunAll(context.Background()); err != nil {
		t.Fatalf("сбой инстанса не прерывает остальные: %v", err)
	}
	if len(proc.processed) != 1 {
		t.Errorf("второй инстанс должен обработаться: %v", proc.processed)
	}
}

func TestRunAll_ContextCancel(t *testing.T) {
	cfg := runnerConfig()
	proc := &fakeProcessor{downloadIDs: map[string]bool{}}
	src := &fakeSource{pages: [][]model.Status{statuses("1")}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRunner(cfg, proc, func(*config.InstanceConfig) BookmarkSource { return src }, testLogger())
	if err := r.RunAll(ctx); err == nil {
		t.Error("отменённый контекст должен вернуть ошибку")
	}
}
