package engine

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/freadom/readrec/core"
)

// favoriteTopicLimit 是进度报告里喜好主题的最大条数。
const favoriteTopicLimit = 5

// HistoryEntry 是进度报告里的单条已读记录。
type HistoryEntry struct {
	ContentID    int64   `json:"content_id"`
	Title        string  `json:"title"`
	ReadingLevel float64 `json:"reading_level"`
}

// ProgressReport 是阅读进度分析结果。
//
// ProgressTrend = 用户当前水平 − 已读内容平均难度：
// 正值表示用户水平已超过其阅读材料的平均难度（进步语义），
// 负值表示材料整体高于当前水平。
type ProgressReport struct {
	UserID              int64          `json:"user_id"`
	ReadingLevel        float64        `json:"reading_level"`
	AverageContentLevel float64        `json:"average_content_level"`
	ProgressTrend       float64        `json:"progress_trend"`
	BooksRead           int            `json:"books_read"`
	FavoriteTopics      []string       `json:"favorite_topics"`
	History             []HistoryEntry `json:"history"`
}

// HistoryAnalyzer 基于用户已读历史与内容目录生成进度报告。
// 与打分引擎共享内容池，但是独立的只读旁路，不参与推荐热路径。
type HistoryAnalyzer struct {
	users    core.UserStore
	contents core.ContentStore
	log      *zap.Logger
}

// NewHistoryAnalyzer 创建分析器。
func NewHistoryAnalyzer(users core.UserStore, contents core.ContentStore, opts ...AnalyzerOption) *HistoryAnalyzer {
	a := &HistoryAnalyzer{
		users:    users,
		contents: contents,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AnalyzerOption 配置 HistoryAnalyzer。
type AnalyzerOption func(*HistoryAnalyzer)

// WithAnalyzerLogger 注入日志。
func WithAnalyzerLogger(log *zap.Logger) AnalyzerOption {
	return func(a *HistoryAnalyzer) {
		if log != nil {
			a.log = log
		}
	}
}

// Analyze 生成用户的阅读进度报告。
//
// 结果语义：
//   - 未知用户 -> core.ErrUserNotFound
//   - 空历史   -> core.ErrNoHistory（正常终态，非异常）
func (a *HistoryAnalyzer) Analyze(ctx context.Context, userID int64) (*ProgressReport, error) {
	user, err := a.users.FetchUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(user.History) == 0 {
		return nil, core.ErrNoHistory
	}

	read, err := a.contents.FetchContentByIDs(ctx, user.History)
	if err != nil {
		return nil, err
	}
	if len(read) == 0 {
		// 历史 id 全部悬空（目录被重建过），等同于无历史
		a.log.Warn("user history resolves to no catalog entries",
			zap.Int64("user_id", userID),
			zap.Int("history_len", len(user.History)))
		return nil, core.ErrNoHistory
	}

	var levelSum float64
	for _, c := range read {
		levelSum += c.ReadingLevel
	}
	avgLevel := levelSum / float64(len(read))

	entries := make([]HistoryEntry, 0, len(read))
	for _, c := range read {
		entries = append(entries, HistoryEntry{
			ContentID:    c.ID,
			Title:        c.Title,
			ReadingLevel: c.ReadingLevel,
		})
	}
	// 难度升序展示阅读轨迹；同难度按 id 保持确定性
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].ReadingLevel != entries[j].ReadingLevel {
			return entries[i].ReadingLevel < entries[j].ReadingLevel
		}
		return entries[i].ContentID < entries[j].ContentID
	})

	return &ProgressReport{
		UserID:              userID,
		ReadingLevel:        user.ReadingLevel,
		AverageContentLevel: avgLevel,
		ProgressTrend:       user.ReadingLevel - avgLevel,
		BooksRead:           len(read),
		FavoriteTopics:      favoriteTopics(read, favoriteTopicLimit),
		History:             entries,
	}, nil
}

// favoriteTopics 统计已读内容的主题频次，取前 limit 个。
// 同频按首次出现顺序（稳定排序），输出可复现。
func favoriteTopics(read []*core.Content, limit int) []string {
	counts := make(map[string]int)
	order := make([]string, 0)
	for _, c := range read {
		for _, topic := range c.Topics {
			if _, seen := counts[topic]; !seen {
				order = append(order, topic)
			}
			counts[topic]++
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if limit > len(order) {
		limit = len(order)
	}
	return order[:limit]
}
