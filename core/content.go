package core

import "strings"

// Content 是一条可推荐的内容记录（绘本/短文）。
// 在一次打分调用的生命周期内视为不可变快照。
type Content struct {
	ID           int64    `json:"id"`
	Title        string   `json:"title"`
	Text         string   `json:"text,omitempty"`
	Author       string   `json:"author"`
	Genre        string   `json:"genre"`
	Topics       []string `json:"topics"`
	ReadingLevel float64  `json:"reading_level"` // 0-5 连续难度，5 最难
	AgeRange     string   `json:"age_range"`
	Popularity   int64    `json:"popularity"` // 非负，无上界
}

// Descriptor 返回内容的文本描述："{title}. {topics 拼接}"。
// Embedding 后端以此作为编码输入。
func (c *Content) Descriptor() string {
	if len(c.Topics) == 0 {
		return c.Title
	}
	return c.Title + ". " + strings.Join(c.Topics, " ")
}

// Keywords 返回内容的关键词集合：topics ∪ title 分词，全部小写。
// 关键词后端以此做兴趣匹配。不修改原始字段。
func (c *Content) Keywords() map[string]bool {
	words := make(map[string]bool, len(c.Topics)+4)
	for _, t := range c.Topics {
		if t != "" {
			words[strings.ToLower(t)] = true
		}
	}
	for _, w := range strings.Fields(strings.ToLower(c.Title)) {
		words[w] = true
	}
	return words
}
