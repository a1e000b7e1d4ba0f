package similarity

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/freadom/readrec/core"
)

// 内置后端名称。
const (
	BackendKeyword = "keyword"
	BackendSBERT   = "sbert"
	BackendQwen    = "qwen"

	// DefaultBackend 是未知名称时回退到的默认后端。
	DefaultBackend = BackendKeyword
)

// TierReporter 是关键词后端的扩展接口：除分数外还报告每个候选命中的
// 档位，供引擎写入解释标签。
type TierReporter interface {
	ScoreWithTiers(ctx context.Context, interests []string, items []*core.Content) ([]float64, []string, error)
}

// KeywordBackend 是关键词分层匹配后端：无外部依赖，永远可用，
// 作为所有 embedding 后端的最终兜底。
//
// 打分流程（确定性，无任何随机源）：
//  1. interests 与 {topics ∪ title 分词} 统一小写
//  2. direct = 交集（按 interests 输入顺序，保证可复现）
//  3. ratio = |direct| / max(1, |interests|)
//  4. related = 内容关键词命中次级词表的数量
//  5. 按 Policy 规则表逐条求值，首个命中的档位给分
type KeywordBackend struct {
	policy *CompiledPolicy
	log    *zap.Logger
}

// KeywordOption 配置 KeywordBackend。
type KeywordOption func(*KeywordBackend)

// WithPolicy 替换策略表（默认为内置表）。
func WithPolicy(p *CompiledPolicy) KeywordOption {
	return func(b *KeywordBackend) {
		if p != nil {
			b.policy = p
		}
	}
}

// WithKeywordLogger 注入日志。
func WithKeywordLogger(log *zap.Logger) KeywordOption {
	return func(b *KeywordBackend) {
		if log != nil {
			b.log = log
		}
	}
}

// NewKeywordBackend 创建关键词后端。
func NewKeywordBackend(opts ...KeywordOption) *KeywordBackend {
	b := &KeywordBackend{
		policy: MustCompileDefault(),
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *KeywordBackend) Name() string { return BackendKeyword }

// Score 实现 core.SimilarityBackend。永不返回错误。
func (b *KeywordBackend) Score(ctx context.Context, interests []string, items []*core.Content) ([]float64, error) {
	scores, _, err := b.ScoreWithTiers(ctx, interests, items)
	return scores, err
}

// ScoreWithTiers 实现 TierReporter。
func (b *KeywordBackend) ScoreWithTiers(_ context.Context, interests []string, items []*core.Content) ([]float64, []string, error) {
	normalized, seen := normalizeInterests(interests)

	scores := make([]float64, len(items))
	tiers := make([]string, len(items))
	for i, item := range items {
		if item == nil {
			tiers[i] = "floor"
			scores[i] = 0.30
			continue
		}

		words := item.Keywords()

		// direct 按 interests 输入顺序构建，保证同输入同输出
		direct := make([]string, 0, len(normalized))
		for _, interest := range normalized {
			if words[interest] {
				direct = append(direct, interest)
			}
		}
		ratio := float64(len(direct)) / float64(max(1, len(seen)))

		related := 0
		if len(direct) == 0 {
			for w := range words {
				if b.policy.IsRelated(w) {
					related++
				}
			}
		}

		tier, score := b.policy.Evaluate(direct, ratio, related)
		tiers[i] = tier
		scores[i] = score
	}
	return scores, tiers, nil
}

// normalizeInterests 小写去重，保留首次出现顺序。
func normalizeInterests(interests []string) ([]string, map[string]bool) {
	out := make([]string, 0, len(interests))
	seen := make(map[string]bool, len(interests))
	for _, raw := range interests {
		w := strings.ToLower(strings.TrimSpace(raw))
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out, seen
}
