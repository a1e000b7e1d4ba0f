package core

import "context"

// Store 是存储的领域接口。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（store）实现
//   - 遵循依赖倒置原则：领域层定义接口，基础设施层实现接口
//   - 避免循环依赖：领域层不依赖基础设施层
//
// 实现：
//   - store.MemoryStore（测试/开发/原型）
//   - store.RedisStore（生产）
type Store interface {
	// Name 返回存储后端名称（用于日志/监控）
	Name() string

	// Get 读取单个 key 的值
	Get(ctx context.Context, key string) ([]byte, error)

	// Set 写入单个 key-value
	Set(ctx context.Context, key string, value []byte, ttl ...int) error

	// Delete 删除单个 key
	Delete(ctx context.Context, key string) error

	// BatchGet 批量读取（减少网络往返）
	BatchGet(ctx context.Context, keys []string) (map[string][]byte, error)

	// Close 关闭连接/释放资源
	Close() error
}

// KeyValueStore 是 Store 的扩展接口。
//
// 扩展功能：
//   - 哈希表（Hash）：用户/内容行存储（field = id，value = JSON 行）
//   - 有序集合（SortedSet）：热度榜（score = popularity）
//
// 如果后端不支持某些操作，可返回 ErrStoreNotSupported。
type KeyValueStore interface {
	Store

	// HGet 读取 Hash 字段
	HGet(ctx context.Context, key, field string) ([]byte, error)

	// HSet 写入 Hash 字段
	HSet(ctx context.Context, key, field string, value []byte) error

	// HGetAll 读取整个 Hash
	HGetAll(ctx context.Context, key string) (map[string][]byte, error)

	// ZAdd 向有序集合添加成员
	ZAdd(ctx context.Context, key string, score float64, member string) error

	// ZTop 按分数降序取前 n 个成员（热度榜）
	ZTop(ctx context.Context, key string, n int64) ([]string, error)
}

// UserStore 是用户数据的领域接口（持久化协作方）。
//
// 实现：
//   - store.Catalog（KV 行存储）
//   - profile.FeastUserStore（Feast 在线特征，只读）
type UserStore interface {
	// FetchUser 按 id 读取用户快照；不存在返回 ErrUserNotFound
	FetchUser(ctx context.Context, id int64) (*User, error)

	// SaveUser 写入用户记录
	SaveUser(ctx context.Context, u *User) error

	// AppendHistory 追加阅读记录；重复 id 不再追加（返回 false）
	AppendHistory(ctx context.Context, userID, contentID int64) (bool, error)

	// ListUsers 列出全部用户（管理/演示接口）
	ListUsers(ctx context.Context) ([]*User, error)
}

// ContentStore 是内容数据的领域接口（持久化协作方）。
type ContentStore interface {
	// FetchAllContent 读取全部候选池
	FetchAllContent(ctx context.Context) ([]*Content, error)

	// FetchContentByIDs 按 id 批量读取；缺失的 id 跳过
	FetchContentByIDs(ctx context.Context, ids []int64) ([]*Content, error)

	// SaveContent 写入内容记录并维护热度榜
	SaveContent(ctx context.Context, c *Content) error

	// FetchPopular 按热度降序取前 n 条
	FetchPopular(ctx context.Context, n int64) ([]*Content, error)
}
