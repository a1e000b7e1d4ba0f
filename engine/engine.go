// Package engine 实现多因子加权推荐：兴趣匹配 + 难度适配 + 热度，
// 输出带分数分解的可解释排序结果。
package engine

import (
	"context"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/freadom/readrec/core"
	"github.com/freadom/readrec/filter"
	"github.com/freadom/readrec/pkg/utils"
	"github.com/freadom/readrec/similarity"
)

// 难度目标与量表常量。
const (
	// MaxReadingLevel 是难度量表上限。
	MaxReadingLevel = 5.0

	// growthFactor 把目标难度定在当前水平略上方，鼓励进阶但不脱节。
	growthFactor = 1.1
)

// Weights 是三个因子的组合权重。
type Weights struct {
	Interest   float64 `yaml:"interest" mapstructure:"interest"`
	Level      float64 `yaml:"level" mapstructure:"level"`
	Popularity float64 `yaml:"popularity" mapstructure:"popularity"`
}

// DefaultWeights 返回默认权重：60% 兴趣、30% 难度、10% 热度。
func DefaultWeights() Weights {
	return Weights{Interest: 0.6, Level: 0.3, Popularity: 0.1}
}

// Breakdown 是单个候选的因子贡献占比（四舍五入到整数百分比，
// 合计 100±1，舍入漂移可接受）。
type Breakdown struct {
	InterestPct   int `json:"interest_match"`
	LevelPct      int `json:"reading_level_match"`
	PopularityPct int `json:"popularity"`
}

// ScoredCandidate 是打分后的候选：内容引用 + 三个子分 + 组合分 +
// 贡献分解 + 解释标签。按请求创建，响应后即弃，不持久化。
//
// 子分与组合分在一条结构里一路携带到排序与解释，
// 不存在分数数组与重排表之间的位置重查。
type ScoredCandidate struct {
	Content *core.Content `json:"content"`

	InterestScore   float64 `json:"interest_score"`
	LevelScore      float64 `json:"level_score"`
	PopularityScore float64 `json:"popularity_score"`
	Combined        float64 `json:"recommendation_score"`

	Breakdown Breakdown              `json:"match_reason"`
	Labels    map[string]utils.Label `json:"labels,omitempty"`
}

// PutLabel 写入解释标签；同名 key 按默认 Merge 规则累积。
func (sc *ScoredCandidate) PutLabel(key string, lbl utils.Label) {
	if sc.Labels == nil {
		sc.Labels = make(map[string]utils.Label)
	}
	if old, ok := sc.Labels[key]; ok {
		sc.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	sc.Labels[key] = lbl
}

// RankedList 是一次推荐请求的结果。
// Degraded 表示兴趣分来自中性降级（模型未就绪），请求本身成功。
type RankedList struct {
	UserID      int64              `json:"user_id"`
	Backend     string             `json:"backend"`
	Degraded    bool               `json:"degraded,omitempty"`
	TargetLevel float64            `json:"target_level"`
	Items       []*ScoredCandidate `json:"items"`
}

// Engine 是打分/排序引擎。
// 每次调用在 user + 候选池的只读快照上独立计算，无共享可变状态；
// 唯一的共享资源（当前后端与模型句柄）封装在 Registry 内。
type Engine struct {
	users    core.UserStore
	contents core.ContentStore
	registry *similarity.Registry
	filters  []filter.Filter
	weights  Weights
	log      *zap.Logger
}

// EngineOption 配置 Engine。
type EngineOption func(*Engine)

// WithWeights 覆盖组合权重。
func WithWeights(w Weights) EngineOption {
	return func(e *Engine) {
		if w.Interest > 0 || w.Level > 0 || w.Popularity > 0 {
			e.weights = w
		}
	}
}

// WithFilters 覆盖候选过滤器链（默认只有已读过滤）。
func WithFilters(filters ...filter.Filter) EngineOption {
	return func(e *Engine) { e.filters = filters }
}

// WithEngineLogger 注入日志。
func WithEngineLogger(log *zap.Logger) EngineOption {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// New 创建引擎。
func New(users core.UserStore, contents core.ContentStore, registry *similarity.Registry, opts ...EngineOption) *Engine {
	e := &Engine{
		users:    users,
		contents: contents,
		registry: registry,
		filters:  []filter.Filter{&filter.HistoryFilter{}},
		weights:  DefaultWeights(),
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// TargetLevel 返回成长偏置后的目标难度：min(5.0, level*1.1)。
func TargetLevel(readingLevel float64) float64 {
	return math.Min(MaxReadingLevel, readingLevel*growthFactor)
}

// Recommend 为用户生成 topN 条推荐。
//
// 结果语义：
//   - 未知用户           -> core.ErrUserNotFound
//   - 过滤后无新内容     -> core.ErrNoCandidates（正常终态）
//   - topN <= 0          -> 空列表，非错误（负数按 0 截断）
//   - 后端故障           -> 正常返回，RankedList.Degraded = true
func (e *Engine) Recommend(ctx context.Context, userID int64, topN int) (*RankedList, error) {
	user, err := e.users.FetchUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	pool, err := e.contents.FetchAllContent(ctx)
	if err != nil {
		return nil, err
	}

	candidates := filter.Apply(ctx, e.filters, user, pool)
	if len(candidates) == 0 {
		return nil, core.ErrNoCandidates
	}

	targetLevel := TargetLevel(user.ReadingLevel)
	result := &RankedList{
		UserID:      userID,
		TargetLevel: targetLevel,
	}
	if topN <= 0 {
		result.Backend = e.registry.BackendName()
		result.Items = []*ScoredCandidate{}
		return result, nil
	}

	// 整个候选集一次后端调用，允许批量编码
	scoreResult := e.registry.Score(ctx, user.Interests, candidates)
	result.Backend = scoreResult.Backend
	result.Degraded = scoreResult.Degraded

	var maxPopularity int64
	for _, c := range candidates {
		if c.Popularity > maxPopularity {
			maxPopularity = c.Popularity
		}
	}

	// 单趟构建结构化打分记录：id 与三个子分从计算到排序始终同行
	scored := make([]*ScoredCandidate, 0, len(candidates))
	for i, c := range candidates {
		sc := &ScoredCandidate{
			Content:       c,
			InterestScore: scoreResult.Scores[i],
			LevelScore:    clamp01(1 - math.Abs(c.ReadingLevel-targetLevel)/MaxReadingLevel),
		}
		if maxPopularity > 0 {
			sc.PopularityScore = float64(c.Popularity) / float64(maxPopularity)
		}
		sc.Combined = e.weights.Interest*sc.InterestScore +
			e.weights.Level*sc.LevelScore +
			e.weights.Popularity*sc.PopularityScore

		sc.PutLabel("backend", utils.Label{Value: scoreResult.Backend, Source: "registry"})
		if scoreResult.Tiers != nil {
			sc.PutLabel("match_tier", utils.Label{Value: scoreResult.Tiers[i], Source: "backend"})
		}
		if scoreResult.Degraded {
			sc.PutLabel("degraded", utils.Label{Value: "neutral-interest", Source: "registry"})
		}
		scored = append(scored, sc)
	}

	// 组合分降序；同分按 content id 升序，保证输出可复现
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Combined != scored[j].Combined {
			return scored[i].Combined > scored[j].Combined
		}
		return scored[i].Content.ID < scored[j].Content.ID
	})

	if topN > len(scored) {
		topN = len(scored)
	}
	scored = scored[:topN]

	for _, sc := range scored {
		sc.Breakdown = e.breakdown(sc)
	}

	result.Items = scored
	return result, nil
}

// breakdown 计算因子贡献占比。
// 组合分为 0 的退化情况下回退到固定的权重占比，避免除零。
func (e *Engine) breakdown(sc *ScoredCandidate) Breakdown {
	if sc.Combined == 0 {
		return Breakdown{
			InterestPct:   int(math.Round(e.weights.Interest * 100)),
			LevelPct:      int(math.Round(e.weights.Level * 100)),
			PopularityPct: int(math.Round(e.weights.Popularity * 100)),
		}
	}
	return Breakdown{
		InterestPct:   pct(e.weights.Interest*sc.InterestScore, sc.Combined),
		LevelPct:      pct(e.weights.Level*sc.LevelScore, sc.Combined),
		PopularityPct: pct(e.weights.Popularity*sc.PopularityScore, sc.Combined),
	}
}

func pct(contribution, total float64) int {
	return int(math.Round(contribution / total * 100))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
