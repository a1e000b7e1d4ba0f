package similarity

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/freadom/readrec/core"
)

// fakeBackend 是测试用后端：可注入加载结果与打分结果。
type fakeBackend struct {
	name       string
	loadCalls  atomic.Int64
	loadErr    error
	loadDelay  time.Duration
	scoreErr   error
	scoreStall bool // 阻塞到调用方 context 取消为止
	score      float64
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) Load(_ context.Context) error {
	if f.loadDelay > 0 {
		time.Sleep(f.loadDelay)
	}
	f.loadCalls.Add(1)
	if f.loadErr != nil {
		return f.loadErr
	}
	return nil
}

func (f *fakeBackend) Score(ctx context.Context, _ []string, items []*core.Content) ([]float64, error) {
	if f.scoreStall {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.scoreErr != nil {
		return nil, f.scoreErr
	}
	scores := make([]float64, len(items))
	for i := range scores {
		scores[i] = f.score
	}
	return scores, nil
}

func items(n int) []*core.Content {
	out := make([]*core.Content, n)
	for i := range out {
		out[i] = &core.Content{ID: int64(i + 1)}
	}
	return out
}

func TestRegistry_DefaultIsKeyword(t *testing.T) {
	r := NewRegistry()
	if got := r.BackendName(); got != BackendKeyword {
		t.Fatalf("BackendName() = %q, want %q", got, BackendKeyword)
	}
	if r.CurrentBackend() == nil {
		t.Fatal("CurrentBackend() must never be nil")
	}
	if r.Degraded() {
		t.Error("keyword backend must always be ready")
	}
}

func TestRegistry_SetBackendUnknownFallsBack(t *testing.T) {
	r := NewRegistry()
	loaded := r.SetBackend(context.Background(), "no-such-backend")
	if !loaded {
		t.Error("fallback to keyword should report loaded")
	}
	if got := r.BackendName(); got != DefaultBackend {
		t.Errorf("BackendName() = %q, want default %q", got, DefaultBackend)
	}
}

func TestRegistry_ScoreWithTiers(t *testing.T) {
	r := NewRegistry()
	result := r.Score(context.Background(),
		[]string{"magic"},
		[]*core.Content{{Title: "The Magic Tree", Topics: []string{"magic"}}})

	if result.Degraded {
		t.Error("keyword scoring must not degrade")
	}
	if result.Backend != BackendKeyword {
		t.Errorf("Backend = %q, want %q", result.Backend, BackendKeyword)
	}
	if len(result.Tiers) != 1 || result.Tiers[0] != "good" {
		t.Errorf("Tiers = %v, want [good]", result.Tiers)
	}
}

func TestRegistry_LazyLoadOnce(t *testing.T) {
	fake := &fakeBackend{name: "dense", score: 0.9, loadDelay: 10 * time.Millisecond}
	r := NewRegistry(WithBackends(func() (core.SimilarityBackend, error) {
		return fake, nil
	}))
	r.SetBackend(context.Background(), "dense")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result := r.Score(context.Background(), []string{"x"}, items(3))
			if result.Degraded {
				t.Error("load succeeded, scoring must not degrade")
			}
		}()
	}
	wg.Wait()

	if calls := fake.loadCalls.Load(); calls != 1 {
		t.Errorf("Load() called %d times, want exactly 1", calls)
	}
}

func TestRegistry_LoadFailureServesNeutralAndRetries(t *testing.T) {
	fake := &fakeBackend{name: "dense", score: 0.9, loadErr: errors.New("model download failed")}
	r := NewRegistry(WithBackends(func() (core.SimilarityBackend, error) {
		return fake, nil
	}))

	if loaded := r.SetBackend(context.Background(), "dense"); loaded {
		t.Error("SetBackend should report not loaded on failure")
	}
	if got := r.BackendName(); got != "dense" {
		t.Errorf("failed backend must stay selected, got %q", got)
	}

	result := r.Score(context.Background(), []string{"x"}, items(2))
	if !result.Degraded {
		t.Fatal("expected degraded result while backend is unavailable")
	}
	for i, s := range result.Scores {
		if s != core.NeutralScore {
			t.Errorf("score[%d] = %v, want neutral %v", i, s, core.NeutralScore)
		}
	}

	// 故障恢复后下一次访问重试加载
	fake.loadErr = nil
	result = r.Score(context.Background(), []string{"x"}, items(2))
	if result.Degraded {
		t.Error("expected recovery after load error cleared")
	}
	if result.Scores[0] != 0.9 {
		t.Errorf("score = %v, want 0.9 from recovered backend", result.Scores[0])
	}
	// SetBackend 失败一次，首次 Score 重试失败一次，恢复后成功一次
	if calls := fake.loadCalls.Load(); calls != 3 {
		t.Errorf("Load() called %d times, want 3", calls)
	}
}

func TestRegistry_ScoreTimeoutServesNeutral(t *testing.T) {
	fake := &fakeBackend{name: "dense", scoreStall: true}
	r := NewRegistry(
		WithScoreTimeout(50*time.Millisecond),
		WithBackends(func() (core.SimilarityBackend, error) {
			return fake, nil
		}),
	)
	r.SetBackend(context.Background(), "dense")

	start := time.Now()
	result := r.Score(context.Background(), []string{"x"}, items(3))
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("Score returned after %v, timeout not applied", elapsed)
	}
	if !result.Degraded {
		t.Fatal("expected degraded result on score timeout")
	}
	for i, s := range result.Scores {
		if s != core.NeutralScore {
			t.Errorf("score[%d] = %v, want neutral %v", i, s, core.NeutralScore)
		}
	}
}

func TestRegistry_ScoreErrorDegrades(t *testing.T) {
	fake := &fakeBackend{name: "dense", scoreErr: errors.New("encoder down")}
	r := NewRegistry(WithBackends(func() (core.SimilarityBackend, error) {
		return fake, nil
	}))
	r.SetBackend(context.Background(), "dense")

	result := r.Score(context.Background(), []string{"x"}, items(3))
	if !result.Degraded {
		t.Fatal("expected degraded result on scoring error")
	}
	if len(result.Scores) != 3 {
		t.Fatalf("len(Scores) = %d, want 3", len(result.Scores))
	}
	for _, s := range result.Scores {
		if s != core.NeutralScore {
			t.Errorf("score = %v, want neutral", s)
		}
	}
}

func TestRegistry_ConstructorFailureSkipped(t *testing.T) {
	r := NewRegistry(WithBackends(
		func() (core.SimilarityBackend, error) { return nil, errors.New("no encoder configured") },
		func() (core.SimilarityBackend, error) { return &fakeBackend{name: "dense", score: 0.7}, nil },
	))
	names := r.Names()
	want := map[string]bool{"dense": true, BackendKeyword: true}
	if len(names) != len(want) {
		t.Fatalf("Names() = %v, want dense and keyword only", names)
	}
	for _, n := range names {
		if !want[n] {
			t.Errorf("unexpected backend %q", n)
		}
	}
}

func TestRegistry_Preload(t *testing.T) {
	fake := &fakeBackend{name: "dense", score: 0.7}
	r := NewRegistry(WithBackends(func() (core.SimilarityBackend, error) {
		return fake, nil
	}))

	known, err := r.Preload(context.Background(), "dense")
	if !known || err != nil {
		t.Fatalf("Preload(dense) = (%v, %v), want (true, nil)", known, err)
	}
	if got := r.BackendName(); got != BackendKeyword {
		t.Errorf("Preload must not switch the current backend, got %q", got)
	}
	if known, _ := r.Preload(context.Background(), "missing"); known {
		t.Error("Preload(missing) should report unknown backend")
	}
}
