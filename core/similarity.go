package core

import "context"

// NeutralScore 是后端不可用时的安全中性分：既不偏向也不打压任何候选。
const NeutralScore = 0.5

// SimilarityBackend 是兴趣匹配打分的可插拔策略。
//
// 契约：
//   - 输入 interests（用户兴趣词）与 items（候选内容），输出与 items
//     等长、同序的分数列表，每个分数在 [0,1]
//   - 不修改任何输入
//   - 空 interests / 空 topics 不是错误：返回确定性的低相关分
//   - 整个候选集一次调用（允许后端批量编码），而不是逐条调用
//
// 实现：
//   - similarity.KeywordBackend：关键词分层匹配，无外部依赖，永远可用
//   - similarity.EmbeddingBackend：外部编码服务 + 余弦相似度，
//     模型加载昂贵且可能失败，由 Registry 负责降级
type SimilarityBackend interface {
	// Name 返回后端名称（用于选择/日志/解释）
	Name() string

	// Score 对候选集做兴趣匹配打分
	Score(ctx context.Context, interests []string, items []*Content) ([]float64, error)
}
