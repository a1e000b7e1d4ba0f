package filter

import (
	"context"

	"github.com/freadom/readrec/core"
)

// HistoryFilter 剔除用户已读过的内容，保证推荐的都是新内容。
type HistoryFilter struct{}

func (f *HistoryFilter) Name() string {
	return "filter.history"
}

func (f *HistoryFilter) ShouldFilter(
	_ context.Context,
	user *core.User,
	content *core.Content,
) (bool, error) {
	if user == nil || content == nil {
		return false, nil
	}
	return user.HasRead(content.ID), nil
}
