package analyzer

import (
	"math"
	"testing"
)

func TestSimple_Complexity(t *testing.T) {
	s := NewSimple()

	t.Run("empty text", func(t *testing.T) {
		got := s.Complexity("")
		if got.ReadingLevel != 1 {
			t.Errorf("ReadingLevel = %v, want 1", got.ReadingLevel)
		}
		if got.FleschReadingEase != 100 {
			t.Errorf("FleschReadingEase = %v, want 100", got.FleschReadingEase)
		}
		if got.WordCount != 0 {
			t.Errorf("WordCount = %d, want 0", got.WordCount)
		}
	})

	t.Run("simple sentences", func(t *testing.T) {
		// 6 个单音节词、2 句 → wps=3, spw=1
		got := s.Complexity("The cat sat. The dog ran.")
		if got.WordCount != 6 {
			t.Errorf("WordCount = %d, want 6", got.WordCount)
		}
		if got.SentenceCount != 2 {
			t.Errorf("SentenceCount = %d, want 2", got.SentenceCount)
		}
		if got.ReadingLevel != 1 {
			t.Errorf("ReadingLevel = %v, want 1 for trivial text", got.ReadingLevel)
		}
		// 年级分被截到 0
		if got.FleschKincaidGrade != 0 {
			t.Errorf("FleschKincaidGrade = %v, want 0", got.FleschKincaidGrade)
		}
		wantEase := 206.835 - 1.015*3 - 84.6*1
		if math.Abs(got.FleschReadingEase-wantEase) > 1e-9 {
			t.Errorf("FleschReadingEase = %v, want %v", got.FleschReadingEase, wantEase)
		}
	})

	t.Run("dense vocabulary maxes out the scale", func(t *testing.T) {
		got := s.Complexity("Extraordinary photosynthesis demonstrates remarkable biological complexity.")
		if got.ReadingLevel != 5 {
			t.Errorf("ReadingLevel = %v, want 5", got.ReadingLevel)
		}
	})

	t.Run("missing terminator counts one sentence", func(t *testing.T) {
		got := s.Complexity("no punctuation here at all")
		if got.SentenceCount != 1 {
			t.Errorf("SentenceCount = %d, want fallback 1", got.SentenceCount)
		}
	})

	t.Run("harder text scores higher", func(t *testing.T) {
		easy := s.Complexity("My dog Spot is my best friend. He likes to play ball in the yard.")
		hard := s.Complexity("Deep under the sea, scientists discovered a hidden world. Using their submarine, they explored coral reefs teeming with colorful fish.")
		if easy.ReadingLevel > hard.ReadingLevel {
			t.Errorf("easy level %v > hard level %v", easy.ReadingLevel, hard.ReadingLevel)
		}
		if easy.FleschReadingEase < hard.FleschReadingEase {
			t.Errorf("easy ease %v < hard ease %v", easy.FleschReadingEase, hard.FleschReadingEase)
		}
	})
}

func TestSimple_ExtractTopics(t *testing.T) {
	s := NewSimple()
	text := "The dragon flew over the castle. The dragon guarded the castle treasure. Gold treasure filled the castle."

	got := s.ExtractTopics(text, 3)
	want := []string{"castle", "dragon", "treasure"}
	if len(got) != len(want) {
		t.Fatalf("ExtractTopics() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("topics[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	t.Run("short and stop words excluded", func(t *testing.T) {
		for _, topic := range s.ExtractTopics(text, 10) {
			if len(topic) <= 3 {
				t.Errorf("topic %q too short", topic)
			}
			if stopWords[topic] {
				t.Errorf("stop word %q leaked into topics", topic)
			}
		}
	})

	t.Run("n larger than vocabulary clamps", func(t *testing.T) {
		got := s.ExtractTopics("wizard wizard quest", 10)
		if len(got) != 2 {
			t.Errorf("len = %d, want 2", len(got))
		}
	})

	t.Run("non-positive n", func(t *testing.T) {
		if got := s.ExtractTopics(text, 0); got != nil {
			t.Errorf("ExtractTopics(0) = %v, want nil", got)
		}
	})
}

func TestAgeRecommendation(t *testing.T) {
	tests := []struct {
		level float64
		want  string
	}{
		{level: 0.5, want: "5-6"},
		{level: 1, want: "5-6"},
		{level: 1.8, want: "6-8"},
		{level: 2.5, want: "8-10"},
		{level: 3.5, want: "10-12"},
		{level: 4.2, want: "12+"},
		{level: 5, want: "12+"},
	}
	for _, tt := range tests {
		if got := AgeRecommendation(tt.level); got != tt.want {
			t.Errorf("AgeRecommendation(%v) = %q, want %q", tt.level, got, tt.want)
		}
	}
}
