package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/freadom/readrec/core"
)

// KV 键布局：用户行与内容行各占一个 Hash（field = 十进制 id，
// value = JSON 行），热度榜单独维护一个 SortedSet。
const (
	usersKey      = "users"
	contentKey    = "content"
	popularityKey = "content:by_popularity"
)

// Catalog 是建立在 KeyValueStore 之上的行存储目录，
// 同时实现 UserStore 与 ContentStore。
// 内存后端用于开发与测试，Redis 后端用于多实例部署。
type Catalog struct {
	kv core.KeyValueStore
}

// NewCatalog 创建目录。
func NewCatalog(kv core.KeyValueStore) *Catalog {
	return &Catalog{kv: kv}
}

func idField(id int64) string { return strconv.FormatInt(id, 10) }

// FetchUser 按 id 读取用户快照。
// 返回的是反序列化出的独立副本，调用方可安全持有。
func (c *Catalog) FetchUser(ctx context.Context, id int64) (*core.User, error) {
	raw, err := c.kv.HGet(ctx, usersKey, idField(id))
	if err != nil {
		if core.IsNotFound(err) {
			return nil, core.ErrUserNotFound
		}
		return nil, fmt.Errorf("catalog: fetch user %d: %w", id, err)
	}
	var u core.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("catalog: decode user %d: %w", id, err)
	}
	return &u, nil
}

// SaveUser 写入用户行。
func (c *Catalog) SaveUser(ctx context.Context, u *core.User) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("catalog: encode user %d: %w", u.ID, err)
	}
	return c.kv.HSet(ctx, usersKey, idField(u.ID), raw)
}

// AppendHistory 追加阅读记录。
// 内容必须存在于目录；重复追加同一 id 返回 (false, nil)。
func (c *Catalog) AppendHistory(ctx context.Context, userID, contentID int64) (bool, error) {
	if _, err := c.fetchContent(ctx, contentID); err != nil {
		return false, err
	}
	u, err := c.FetchUser(ctx, userID)
	if err != nil {
		return false, err
	}
	if !u.AppendHistory(contentID) {
		return false, nil
	}
	if err := c.SaveUser(ctx, u); err != nil {
		return false, err
	}
	return true, nil
}

// ListUsers 列出全部用户，按 id 升序。
func (c *Catalog) ListUsers(ctx context.Context) ([]*core.User, error) {
	rows, err := c.kv.HGetAll(ctx, usersKey)
	if err != nil {
		return nil, fmt.Errorf("catalog: list users: %w", err)
	}
	users := make([]*core.User, 0, len(rows))
	for field, raw := range rows {
		var u core.User
		if err := json.Unmarshal(raw, &u); err != nil {
			return nil, fmt.Errorf("catalog: decode user %s: %w", field, err)
		}
		users = append(users, &u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (c *Catalog) fetchContent(ctx context.Context, id int64) (*core.Content, error) {
	raw, err := c.kv.HGet(ctx, contentKey, idField(id))
	if err != nil {
		if core.IsNotFound(err) {
			return nil, core.ErrContentNotFound
		}
		return nil, fmt.Errorf("catalog: fetch content %d: %w", id, err)
	}
	var item core.Content
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, fmt.Errorf("catalog: decode content %d: %w", id, err)
	}
	return &item, nil
}

// FetchAllContent 读取全部候选池，按 id 升序。
func (c *Catalog) FetchAllContent(ctx context.Context) ([]*core.Content, error) {
	rows, err := c.kv.HGetAll(ctx, contentKey)
	if err != nil {
		return nil, fmt.Errorf("catalog: fetch content pool: %w", err)
	}
	pool := make([]*core.Content, 0, len(rows))
	for field, raw := range rows {
		var item core.Content
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, fmt.Errorf("catalog: decode content %s: %w", field, err)
		}
		pool = append(pool, &item)
	}
	sort.Slice(pool, func(i, j int) bool { return pool[i].ID < pool[j].ID })
	return pool, nil
}

// FetchContentByIDs 按 id 批量读取，保持入参顺序；缺失的 id 跳过。
func (c *Catalog) FetchContentByIDs(ctx context.Context, ids []int64) ([]*core.Content, error) {
	items := make([]*core.Content, 0, len(ids))
	for _, id := range ids {
		item, err := c.fetchContent(ctx, id)
		if err != nil {
			if core.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// SaveContent 写入内容行并同步热度榜。
func (c *Catalog) SaveContent(ctx context.Context, item *core.Content) error {
	raw, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("catalog: encode content %d: %w", item.ID, err)
	}
	if err := c.kv.HSet(ctx, contentKey, idField(item.ID), raw); err != nil {
		return err
	}
	return c.kv.ZAdd(ctx, popularityKey, float64(item.Popularity), idField(item.ID))
}

// FetchPopular 取热度榜前 n 条。
func (c *Catalog) FetchPopular(ctx context.Context, n int64) ([]*core.Content, error) {
	members, err := c.kv.ZTop(ctx, popularityKey, n)
	if err != nil {
		return nil, fmt.Errorf("catalog: fetch popularity ranking: %w", err)
	}
	ids := make([]int64, 0, len(members))
	for _, member := range members {
		id, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return c.FetchContentByIDs(ctx, ids)
}

var (
	_ core.UserStore    = (*Catalog)(nil)
	_ core.ContentStore = (*Catalog)(nil)
)
