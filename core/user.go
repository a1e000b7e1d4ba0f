package core

// User 是读者画像。
//
// 核心字段：
//  字段          作用
//  ReadingLevel  难度适配（level score 的基准）
//  Interests     兴趣匹配（similarity backend 的输入）
//  History       候选过滤 + 阅读进度分析
//
// 不变式：History 有序、只追加、同一 content id 至多出现一次。
// 打分路径收到的 User 是一次调用内的只读快照。
type User struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name"`
	Age          int      `json:"age"`
	ReadingLevel float64  `json:"reading_level"` // 0-5 连续
	Interests    []string `json:"interests"`     // 自由文本，比较时不区分大小写
	History      []int64  `json:"history"`
}

// HasRead 检查用户是否已读过指定内容。
func (u *User) HasRead(contentID int64) bool {
	for _, id := range u.History {
		if id == contentID {
			return true
		}
	}
	return false
}

// AppendHistory 追加阅读记录，维持"至多出现一次"不变式。
// 已存在时不重复追加，返回 false。
func (u *User) AppendHistory(contentID int64) bool {
	if u.HasRead(contentID) {
		return false
	}
	u.History = append(u.History, contentID)
	return true
}
