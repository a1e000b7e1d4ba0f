package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/freadom/readrec/engine"
	"github.com/freadom/readrec/ingest"
	"github.com/freadom/readrec/similarity"
	"github.com/freadom/readrec/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	kv := store.NewMemoryStore()
	t.Cleanup(func() { kv.Close() })
	catalog := store.NewCatalog(kv)
	if err := store.Seed(context.Background(), catalog); err != nil {
		t.Fatalf("seed catalog: %v", err)
	}

	registry := similarity.NewRegistry()
	return New(Deps{
		Engine:   engine.New(catalog, catalog, registry),
		History:  engine.NewHistoryAnalyzer(catalog, catalog),
		Registry: registry,
		Users:    catalog,
		Contents: catalog,
		Ingestor: ingest.New(catalog, nil),
	})
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func TestHandleRecommend(t *testing.T) {
	s := newTestServer(t)

	t.Run("ok", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/api/recommend/1?count=2", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
		}
		var result engine.RankedList
		if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if len(result.Items) != 2 {
			t.Errorf("len(Items) = %d, want 2", len(result.Items))
		}
		if result.Backend != similarity.BackendKeyword {
			t.Errorf("Backend = %q, want keyword", result.Backend)
		}
	})

	t.Run("default count", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/api/recommend/2", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		var result engine.RankedList
		if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
			t.Fatal(err)
		}
		if len(result.Items) != defaultRecommendCount {
			t.Errorf("len(Items) = %d, want default %d", len(result.Items), defaultRecommendCount)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/api/recommend/999", "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("malformed id", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/api/recommend/abc", "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestHandleListUsers(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/api/users", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var users []json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &users); err != nil {
		t.Fatal(err)
	}
	if len(users) != 5 {
		t.Errorf("len(users) = %d, want 5 demo users", len(users))
	}
}

func TestHandleProgress(t *testing.T) {
	s := newTestServer(t)

	t.Run("ok", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/api/user/1/progress", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
		}
		var report engine.ProgressReport
		if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
			t.Fatal(err)
		}
		if report.BooksRead != 2 {
			t.Errorf("BooksRead = %d, want 2", report.BooksRead)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/api/user/999/progress", "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}

func TestHandleMarkRead(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/user/1/read/5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	// 重复标记返回 200 但提示已在历史中
	rec = do(t, s, http.MethodPost, "/api/user/1/read/5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var msg messageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &msg); err != nil {
		t.Fatal(err)
	}
	if msg.Message != "already in history" {
		t.Errorf("Message = %q", msg.Message)
	}

	rec = do(t, s, http.MethodPost, "/api/user/1/read/404", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown content status = %d, want 404", rec.Code)
	}
}

func TestHandleAnalyze(t *testing.T) {
	s := newTestServer(t)

	t.Run("ok", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/api/analyze",
			`{"text":"The dragon flew over the castle. The dragon guarded the treasure."}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
		}
		var resp analyzeResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if resp.Analysis == nil || resp.Analysis.WordCount == 0 {
			t.Error("analysis missing word count")
		}
		if len(resp.Topics) == 0 {
			t.Error("topics missing")
		}
		if resp.AgeRange == "" {
			t.Error("age range missing")
		}
	})

	t.Run("missing text", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/api/analyze", `{}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestHandlePopular(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/api/content/popular?count=3", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var items []struct {
		ID         int64 `json:"id"`
		Popularity int64 `json:"popularity"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatal(err)
	}
	if len(items) != 3 {
		t.Fatalf("len(items) = %d, want 3", len(items))
	}
	// 演示目录中 3 号内容热度最高 (56)
	if items[0].ID != 3 {
		t.Errorf("top item id = %d, want 3", items[0].ID)
	}
	for i := 1; i < len(items); i++ {
		if items[i-1].Popularity < items[i].Popularity {
			t.Errorf("popularity not descending at %d", i)
		}
	}
}

func TestHandleIngest(t *testing.T) {
	s := newTestServer(t)

	t.Run("created", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/api/content",
			`{"drafts":[{"title":"New Story","text":"A brand new story about sailing ships and distant harbors."}]}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
		}
		var items []struct {
			ID int64 `json:"id"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
			t.Fatal(err)
		}
		if len(items) != 1 || items[0].ID != 11 {
			t.Errorf("items = %v, want one row with id 11", items)
		}
	})

	t.Run("empty batch rejected", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/api/content", `{"drafts":[]}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("invalid draft rejected", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/api/content", `{"drafts":[{"title":"No Text"}]}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestHandleBackendSettings(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/settings/backend", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp backendResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.CurrentBackend != similarity.BackendKeyword {
		t.Errorf("CurrentBackend = %q, want keyword", resp.CurrentBackend)
	}

	// 未知后端名回退到默认，不报错
	rec = do(t, s, http.MethodPost, "/api/settings/backend", `{"backend":"no-such"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.CurrentBackend != similarity.DefaultBackend {
		t.Errorf("CurrentBackend = %q, want default", resp.CurrentBackend)
	}
	if resp.Degraded {
		t.Error("fallback to keyword must not be degraded")
	}

	rec = do(t, s, http.MethodPost, "/api/settings/backend", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing backend status = %d, want 400", rec.Code)
	}
}

func TestHandleWarmModels(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/api/setup/models", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp warmModelsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Loaded) != 1 || resp.Loaded[0] != similarity.BackendKeyword {
		t.Errorf("Loaded = %v, want [keyword]", resp.Loaded)
	}
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var status map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatal(err)
	}
	if status["status"] != "ok" {
		t.Errorf("status = %q, want ok", status["status"])
	}
}
