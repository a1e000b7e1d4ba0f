package similarity

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/freadom/readrec/core"
)

// EmbeddingBackend 是稠密向量后端：用户兴趣拼成一段文本，每条内容取
// "{title}. {joined topics}" 描述，经外部编码服务得到向量后计算余弦相似度。
//
// 余弦值截断到 [0,1]：归一化句向量在本领域几乎不会出现负相关，
// 负值不携带可用语义，按 0 处理。
//
// 模型加载昂贵且可能失败（下载/依赖/硬件）。Load 只做健康检查与一次
// 预热编码；Score 的失败由 Registry 统一降级为中性分，这里只负责
// 把错误如实上抛。
type EmbeddingBackend struct {
	name string
	svc  core.MLService
	log  *zap.Logger
}

// EmbeddingOption 配置 EmbeddingBackend。
type EmbeddingOption func(*EmbeddingBackend)

// WithEmbeddingLogger 注入日志。
func WithEmbeddingLogger(log *zap.Logger) EmbeddingOption {
	return func(b *EmbeddingBackend) {
		if log != nil {
			b.log = log
		}
	}
}

// NewEmbeddingBackend 创建 embedding 后端。
// name 是注册名（sbert / qwen / ...），svc 是编码服务客户端。
func NewEmbeddingBackend(name string, svc core.MLService, opts ...EmbeddingOption) *EmbeddingBackend {
	b := &EmbeddingBackend{
		name: name,
		svc:  svc,
		log:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *EmbeddingBackend) Name() string { return b.name }

// Load 确认编码服务可用并做一次预热编码。
// Registry 通过 singleflight 保证同名后端至多一个加载在途。
func (b *EmbeddingBackend) Load(ctx context.Context) error {
	if b.svc == nil {
		return fmt.Errorf("embedding backend %s: no encoder service configured", b.name)
	}
	if err := b.svc.Health(ctx); err != nil {
		return fmt.Errorf("embedding backend %s: health check: %w", b.name, err)
	}
	// 预热：触发服务端模型加载，确认真正可编码
	if _, err := b.svc.Predict(ctx, &core.MLPredictRequest{Texts: []string{"warmup"}}); err != nil {
		return fmt.Errorf("embedding backend %s: warmup encode: %w", b.name, err)
	}
	return nil
}

// Score 实现 core.SimilarityBackend。
// 用户文本与全部候选描述合并成一次批量编码调用。
func (b *EmbeddingBackend) Score(ctx context.Context, interests []string, items []*core.Content) ([]float64, error) {
	if len(items) == 0 {
		return []float64{}, nil
	}

	normalized, _ := normalizeInterests(interests)
	if len(normalized) == 0 {
		// 无兴趣可编码：返回中性分，不触发服务调用
		scores := make([]float64, len(items))
		for i := range scores {
			scores[i] = core.NeutralScore
		}
		return scores, nil
	}

	texts := make([]string, 0, len(items)+1)
	texts = append(texts, strings.Join(normalized, " "))
	for _, item := range items {
		texts = append(texts, item.Descriptor())
	}

	resp, err := b.svc.Predict(ctx, &core.MLPredictRequest{Texts: texts, ModelName: b.name})
	if err != nil {
		return nil, fmt.Errorf("embedding backend %s: encode: %w", b.name, err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding backend %s: vector count mismatch: expected %d, got %d",
			b.name, len(texts), len(resp.Embeddings))
	}

	userVec := resp.Embeddings[0]
	scores := make([]float64, len(items))
	for i := range items {
		scores[i] = clamp01(cosineSimilarity(userVec, resp.Embeddings[i+1]))
	}
	return scores, nil
}

// cosineSimilarity 计算两个向量的余弦相似度，零向量返回 0。
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
