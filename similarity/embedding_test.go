package similarity

import (
	"context"
	"errors"
	"testing"

	"github.com/freadom/readrec/core"
)

// fakeEncoder 是测试用编码服务：按注册文本返回固定向量。
type fakeEncoder struct {
	vectors      map[string][]float64
	healthErr    error
	predictErr   error
	predictCalls int
}

func (f *fakeEncoder) Predict(_ context.Context, req *core.MLPredictRequest) (*core.MLPredictResponse, error) {
	f.predictCalls++
	if f.predictErr != nil {
		return nil, f.predictErr
	}
	embeddings := make([][]float64, 0, len(req.Texts))
	for _, text := range req.Texts {
		if vec, ok := f.vectors[text]; ok {
			embeddings = append(embeddings, vec)
			continue
		}
		embeddings = append(embeddings, []float64{0, 0})
	}
	return &core.MLPredictResponse{Embeddings: embeddings}, nil
}

func (f *fakeEncoder) Health(_ context.Context) error { return f.healthErr }

func (f *fakeEncoder) Close(_ context.Context) error { return nil }

func TestEmbeddingBackend_Score(t *testing.T) {
	itemA := &core.Content{ID: 1, Title: "Space Explorers", Topics: []string{"space", "science"}}
	itemB := &core.Content{ID: 2, Title: "My Pet Dog", Topics: []string{"animals", "pets"}}

	svc := &fakeEncoder{vectors: map[string][]float64{
		"space science":    {1, 0},
		itemA.Descriptor(): {1, 0},
		itemB.Descriptor(): {0, 1},
	}}
	backend := NewEmbeddingBackend(BackendSBERT, svc)

	scores, err := backend.Score(context.Background(), []string{"space", "science"}, []*core.Content{itemA, itemB})
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if !almostEqual(scores[0], 1.0) {
		t.Errorf("identical direction: score = %v, want 1.0", scores[0])
	}
	if !almostEqual(scores[1], 0.0) {
		t.Errorf("orthogonal direction: score = %v, want 0.0", scores[1])
	}
	if svc.predictCalls != 1 {
		t.Errorf("Predict called %d times, want 1 batched call", svc.predictCalls)
	}
}

func TestEmbeddingBackend_NegativeCosineClipped(t *testing.T) {
	item := &core.Content{ID: 1, Title: "Opposite", Topics: []string{"other"}}
	svc := &fakeEncoder{vectors: map[string][]float64{
		"space":           {1, 0},
		item.Descriptor(): {-1, 0},
	}}
	backend := NewEmbeddingBackend(BackendSBERT, svc)

	scores, err := backend.Score(context.Background(), []string{"space"}, []*core.Content{item})
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if scores[0] != 0 {
		t.Errorf("negative cosine must clip to 0, got %v", scores[0])
	}
}

func TestEmbeddingBackend_EmptyInterestsSkipsService(t *testing.T) {
	svc := &fakeEncoder{}
	backend := NewEmbeddingBackend(BackendQwen, svc)

	scores, err := backend.Score(context.Background(), nil, items(3))
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	for _, s := range scores {
		if s != core.NeutralScore {
			t.Errorf("score = %v, want neutral for empty interests", s)
		}
	}
	if svc.predictCalls != 0 {
		t.Errorf("Predict called %d times, want 0 for empty interests", svc.predictCalls)
	}
}

func TestEmbeddingBackend_ErrorsPropagate(t *testing.T) {
	svc := &fakeEncoder{predictErr: errors.New("encoder offline")}
	backend := NewEmbeddingBackend(BackendSBERT, svc)

	if _, err := backend.Score(context.Background(), []string{"space"}, items(1)); err == nil {
		t.Error("expected encode error to propagate to the registry")
	}
}

func TestEmbeddingBackend_Load(t *testing.T) {
	tests := []struct {
		name    string
		svc     core.MLService
		wantErr bool
	}{
		{name: "healthy service", svc: &fakeEncoder{vectors: map[string][]float64{}}, wantErr: false},
		{name: "health check fails", svc: &fakeEncoder{healthErr: errors.New("not ready")}, wantErr: true},
		{name: "warmup encode fails", svc: &fakeEncoder{predictErr: errors.New("boom")}, wantErr: true},
		{name: "no service configured", svc: nil, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := NewEmbeddingBackend(BackendSBERT, tt.svc)
			err := backend.Load(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
