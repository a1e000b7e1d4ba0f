package core

// TextAnalysis 是文本复杂度分析结果。
type TextAnalysis struct {
	ReadingLevel       float64 `json:"reading_level"` // 1-5，5 最难
	FleschReadingEase  float64 `json:"flesch_reading_ease"`
	FleschKincaidGrade float64 `json:"flesch_kincaid_grade"`
	AvgWordLength      float64 `json:"avg_word_length"`
	AvgSentenceLength  float64 `json:"avg_sentence_length"`
	VocabularyRichness float64 `json:"vocabulary_richness"`
	WordCount          int     `json:"word_count"`
	SentenceCount      int     `json:"sentence_count"`
}

// TextAnalyzer 是文本复杂度分析器的领域接口。
// 核心把它当作 oracle 消费：只在内容入库（ingest）时调用，不在打分热路径上。
//
// 实现：analyzer.Simple（启发式，无外部依赖）。
type TextAnalyzer interface {
	// Complexity 计算阅读难度与可读性指标
	Complexity(text string) *TextAnalysis

	// ExtractTopics 按词频抽取前 n 个主题词
	ExtractTopics(text string, n int) []string
}
