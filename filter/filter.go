package filter

import (
	"context"

	"github.com/freadom/readrec/core"
)

// Filter 是候选过滤器的抽象接口，用于判断一条内容是否应从候选池剔除。
// 返回 true 表示应该过滤（移除），false 表示保留。
type Filter interface {
	// Name 返回过滤器名称
	Name() string

	// ShouldFilter 判断 content 是否应该被过滤
	ShouldFilter(ctx context.Context, user *core.User, content *core.Content) (bool, error)
}

// Apply 依次应用过滤器，返回保留的候选。
// 单个过滤器出错时放行该条（过滤失败不应使请求失败）。
func Apply(ctx context.Context, filters []Filter, user *core.User, pool []*core.Content) []*core.Content {
	out := make([]*core.Content, 0, len(pool))
	for _, c := range pool {
		if c == nil {
			continue
		}
		drop := false
		for _, f := range filters {
			filtered, err := f.ShouldFilter(ctx, user, c)
			if err != nil {
				continue
			}
			if filtered {
				drop = true
				break
			}
		}
		if !drop {
			out = append(out, c)
		}
	}
	return out
}
