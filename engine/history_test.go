package engine

import (
	"context"
	"math"
	"testing"

	"github.com/freadom/readrec/core"
	"github.com/freadom/readrec/store"
)

func TestHistoryAnalyzer_Analyze(t *testing.T) {
	catalog := newCatalog(t)
	ha := NewHistoryAnalyzer(catalog, catalog)

	// 演示用户 1：level 2.3，已读 [1, 3]（难度 2.5 和 1.8）
	report, err := ha.Analyze(context.Background(), 1)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	wantAvg := (2.5 + 1.8) / 2
	if math.Abs(report.AverageContentLevel-wantAvg) > 1e-9 {
		t.Errorf("AverageContentLevel = %v, want %v", report.AverageContentLevel, wantAvg)
	}
	if math.Abs(report.ProgressTrend-(2.3-wantAvg)) > 1e-9 {
		t.Errorf("ProgressTrend = %v, want %v", report.ProgressTrend, 2.3-wantAvg)
	}
	if report.BooksRead != 2 {
		t.Errorf("BooksRead = %d, want 2", report.BooksRead)
	}

	// 历史明细按难度升序：1.8 (id 3) 在 2.5 (id 1) 前
	if len(report.History) != 2 {
		t.Fatalf("len(History) = %d, want 2", len(report.History))
	}
	if report.History[0].ContentID != 3 || report.History[1].ContentID != 1 {
		t.Errorf("History order = [%d %d], want [3 1]",
			report.History[0].ContentID, report.History[1].ContentID)
	}
}

func TestHistoryAnalyzer_SingleItem(t *testing.T) {
	kv := store.NewMemoryStore()
	t.Cleanup(func() { kv.Close() })
	catalog := store.NewCatalog(kv)
	ctx := context.Background()

	if err := catalog.SaveContent(ctx, &core.Content{ID: 1, Title: "Only", ReadingLevel: 3.1}); err != nil {
		t.Fatal(err)
	}
	if err := catalog.SaveUser(ctx, &core.User{ID: 1, ReadingLevel: 2.8, History: []int64{1}}); err != nil {
		t.Fatal(err)
	}

	report, err := NewHistoryAnalyzer(catalog, catalog).Analyze(ctx, 1)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if report.AverageContentLevel != 3.1 {
		t.Errorf("AverageContentLevel = %v, want exactly 3.1", report.AverageContentLevel)
	}
	if math.Abs(report.ProgressTrend-(2.8-3.1)) > 1e-9 {
		t.Errorf("ProgressTrend = %v, want %v", report.ProgressTrend, 2.8-3.1)
	}
}

func TestHistoryAnalyzer_FavoriteTopics(t *testing.T) {
	catalog := newCatalog(t)
	ctx := context.Background()

	// 构造已读集合让 adventure 频次领先：
	// 1 {magic nature adventure}, 2 {space science adventure}, 4 {dinosaurs family adventure}
	if err := catalog.SaveUser(ctx, &core.User{
		ID: 9, Name: "Test", ReadingLevel: 2.5, History: []int64{1, 2, 4},
	}); err != nil {
		t.Fatal(err)
	}

	report, err := NewHistoryAnalyzer(catalog, catalog).Analyze(ctx, 9)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(report.FavoriteTopics) != 5 {
		t.Fatalf("len(FavoriteTopics) = %d, want 5", len(report.FavoriteTopics))
	}
	if report.FavoriteTopics[0] != "adventure" {
		t.Errorf("top topic = %q, want adventure", report.FavoriteTopics[0])
	}
	// 同频主题按首次出现顺序排列
	want := []string{"adventure", "magic", "nature", "space", "science"}
	for i, topic := range want {
		if report.FavoriteTopics[i] != topic {
			t.Errorf("FavoriteTopics[%d] = %q, want %q", i, report.FavoriteTopics[i], topic)
		}
	}
}

func TestHistoryAnalyzer_Outcomes(t *testing.T) {
	catalog := newCatalog(t)
	ctx := context.Background()
	ha := NewHistoryAnalyzer(catalog, catalog)

	t.Run("unknown user", func(t *testing.T) {
		if _, err := ha.Analyze(ctx, 999); !core.IsNotFound(err) {
			t.Errorf("error = %v, want not-found", err)
		}
	})

	t.Run("empty history", func(t *testing.T) {
		if err := catalog.SaveUser(ctx, &core.User{ID: 10, ReadingLevel: 2}); err != nil {
			t.Fatal(err)
		}
		if _, err := ha.Analyze(ctx, 10); !core.IsEmptyResult(err) {
			t.Errorf("error = %v, want empty-result", err)
		}
	})

	t.Run("dangling history ids", func(t *testing.T) {
		if err := catalog.SaveUser(ctx, &core.User{ID: 11, ReadingLevel: 2, History: []int64{777}}); err != nil {
			t.Fatal(err)
		}
		if _, err := ha.Analyze(ctx, 11); !core.IsEmptyResult(err) {
			t.Errorf("error = %v, want empty-result for dangling ids", err)
		}
	})
}
