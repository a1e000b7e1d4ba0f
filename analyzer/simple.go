// Package analyzer 提供启发式的英文文本复杂度分析：
// Flesch 可读性公式 + 音节估计 + 词频主题抽取。
// 只在内容入库时调用，不在打分热路径上。
package analyzer

import (
	"sort"
	"strings"
	"unicode"

	"github.com/freadom/readrec/core"
)

// Flesch 公式常量。
const (
	fleschBase         = 206.835
	fleschSentenceCoef = 1.015
	fleschSyllableCoef = 84.6

	fkSentenceCoef = 0.39
	fkSyllableCoef = 11.8
	fkBase         = 15.59
)

// stopWords 是英文高频虚词表（主题抽取时剔除，只收录长度 >3 的词，
// 短词在抽取阶段本来就会被长度阈值过滤）。
var stopWords = map[string]bool{
	"about": true, "above": true, "after": true, "again": true, "also": true,
	"because": true, "been": true, "before": true, "being": true, "below": true,
	"between": true, "both": true, "could": true, "does": true, "doing": true,
	"down": true, "during": true, "each": true, "every": true, "from": true,
	"further": true, "have": true, "having": true, "here": true, "hers": true,
	"herself": true, "himself": true, "into": true, "itself": true, "just": true,
	"more": true, "most": true, "myself": true, "once": true, "only": true,
	"other": true, "ours": true, "over": true, "same": true, "should": true,
	"some": true, "such": true, "than": true, "that": true, "their": true,
	"theirs": true, "them": true, "themselves": true, "then": true, "there": true,
	"these": true, "they": true, "this": true, "those": true, "through": true,
	"under": true, "until": true, "very": true, "were": true, "what": true,
	"when": true, "where": true, "which": true, "while": true, "will": true,
	"with": true, "would": true, "your": true, "yours": true, "yourself": true,
}

// Simple 是无外部服务依赖的启发式实现。
type Simple struct{}

// NewSimple 创建分析器。
func NewSimple() *Simple { return &Simple{} }

// Complexity 计算文本的可读性指标并映射到 1-5 难度量表。
// 空文本返回最低难度与满分易读度（与零除兜底一致）。
func (s *Simple) Complexity(text string) *core.TextAnalysis {
	words := tokenize(text)
	if len(words) == 0 {
		return &core.TextAnalysis{
			ReadingLevel:      1,
			FleschReadingEase: 100,
		}
	}

	sentenceCount := countSentences(text)
	if sentenceCount == 0 {
		sentenceCount = 1
	}

	var charTotal, syllableTotal int
	unique := make(map[string]bool, len(words))
	for _, w := range words {
		charTotal += len(w)
		syllableTotal += countSyllables(w)
		unique[w] = true
	}

	wordsPerSentence := float64(len(words)) / float64(sentenceCount)
	syllablesPerWord := float64(syllableTotal) / float64(len(words))

	ease := fleschBase - fleschSentenceCoef*wordsPerSentence - fleschSyllableCoef*syllablesPerWord
	grade := fkSentenceCoef*wordsPerSentence + fkSyllableCoef*syllablesPerWord - fkBase
	if grade < 0 {
		grade = 0
	}

	return &core.TextAnalysis{
		ReadingLevel:       gradeToLevel(grade),
		FleschReadingEase:  ease,
		FleschKincaidGrade: grade,
		AvgWordLength:      float64(charTotal) / float64(len(words)),
		AvgSentenceLength:  wordsPerSentence,
		VocabularyRichness: float64(len(unique)) / float64(len(words)),
		WordCount:          len(words),
		SentenceCount:      sentenceCount,
	}
}

// ExtractTopics 按词频抽取前 n 个主题词。
// 只统计长度 >3 的非虚词；同频按首次出现顺序，输出可复现。
func (s *Simple) ExtractTopics(text string, n int) []string {
	if n <= 0 {
		return nil
	}

	counts := make(map[string]int)
	order := make([]string, 0)
	for _, w := range tokenize(text) {
		if len(w) <= 3 || stopWords[w] {
			continue
		}
		if _, seen := counts[w]; !seen {
			order = append(order, w)
		}
		counts[w]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if n > len(order) {
		n = len(order)
	}
	return order[:n]
}

// AgeRecommendation 把难度量表映射为建议年龄段。
func AgeRecommendation(readingLevel float64) string {
	switch {
	case readingLevel <= 1:
		return "5-6"
	case readingLevel <= 2:
		return "6-8"
	case readingLevel <= 3:
		return "8-10"
	case readingLevel <= 4:
		return "10-12"
	default:
		return "12+"
	}
}

// gradeToLevel 把 Flesch-Kincaid 年级映射到 1-5 难度量表。
func gradeToLevel(grade float64) float64 {
	switch {
	case grade < 2:
		return 1
	case grade < 4:
		return 2
	case grade < 6:
		return 3
	case grade < 8:
		return 4
	default:
		return 5
	}
}

// tokenize 小写分词，只保留纯字母词。
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		w := strings.Trim(f, "'")
		if w == "" {
			continue
		}
		alpha := true
		for _, r := range w {
			if !unicode.IsLetter(r) {
				alpha = false
				break
			}
		}
		if alpha {
			words = append(words, w)
		}
	}
	return words
}

// countSentences 以 .!? 终止符估计句子数。
func countSentences(text string) int {
	count := 0
	inTerminator := false
	for _, r := range text {
		if r == '.' || r == '!' || r == '?' {
			if !inTerminator {
				count++
				inTerminator = true
			}
			continue
		}
		inTerminator = false
	}
	return count
}

// countSyllables 估计英文单词音节数：统计元音簇，
// 去掉不发音的词尾 e，至少 1 个音节。
func countSyllables(word string) int {
	const vowels = "aeiouy"
	count := 0
	prevVowel := false
	for _, r := range word {
		isVowel := strings.ContainsRune(vowels, r)
		if isVowel && !prevVowel {
			count++
		}
		prevVowel = isVowel
	}
	if strings.HasSuffix(word, "e") && !strings.HasSuffix(word, "le") && count > 1 {
		count--
	}
	if count < 1 {
		count = 1
	}
	return count
}

var _ core.TextAnalyzer = (*Simple)(nil)
