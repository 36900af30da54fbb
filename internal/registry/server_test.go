package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/musicmesh/pkg/logging"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newTestServer はテスト用のレジストリサーバーを生成する。
func newTestServer(t *testing.T, store Store) *Server {
	t.Helper()
	return NewServer(Config{Port: "0"}, store, logging.Discard())
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// TestHandleRegister はサービス登録エンドポイントを検証する。
func TestHandleRegister(t *testing.T) {
	t.Parallel()

	t.Run("正常に登録できること", func(t *testing.T) {
		t.Parallel()

		store := NewMemoryStore()
		s := newTestServer(t, store)

		w := doJSON(t, s.Handler(), http.MethodPost, "/register", `{"name":"music_service","url":"http://music:5002"}`)
		if w.Code != http.StatusCreated {
			t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusCreated)
		}
		var body map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("レスポンスボディのパースに失敗: %v", err)
		}
		if want := "Service music_service registered successfully."; body["message"] != want {
			t.Errorf("message = %q, want %q", body["message"], want)
		}

		got, err := store.Lookup(context.Background(), "music_service")
		if err != nil || got != "http://music:5002" {
			t.Errorf("Lookup() = (%q, %v)", got, err)
		}
	})

	tests := []struct {
		name string
		body string
	}{
		{name: "nameが無い", body: `{"url":"http://music:5002"}`},
		{name: "urlが無い", body: `{"name":"music_service"}`},
		{name: "nameが空文字", body: `{"name":"","url":"http://music:5002"}`},
		{name: "JSONでない", body: `name=music_service`},
		{name: "型が違う", body: `{"name":1,"url":true}`},
	}
	for _, tt := range tests {
		t.Run(tt.name+"場合は400が返り何も登録されないこと", func(t *testing.T) {
			t.Parallel()

			store := NewMemoryStore()
			w := doJSON(t, newTestServer(t, store).Handler(), http.MethodPost, "/register", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusBadRequest)
			}
			var body map[string]string
			_ = json.Unmarshal(w.Body.Bytes(), &body)
			if body["error"] != "Invalid data." {
				t.Errorf("error = %q, want %q", body["error"], "Invalid data.")
			}
			records, _ := store.List(context.Background())
			if len(records) != 0 {
				t.Errorf("登録件数 = %d, want 0", len(records))
			}
		})
	}
}

// TestHandleLookup はサービス検索エンドポイントを検証する。
func TestHandleLookup(t *testing.T) {
	t.Parallel()

	t.Run("登録済みのサービスのURLが返ること", func(t *testing.T) {
		t.Parallel()

		store := NewMemoryStore()
		_ = store.Register(context.Background(), "auth", "http://auth:5004")

		w := doJSON(t, newTestServer(t, store).Handler(), http.MethodGet, "/services/auth", "")
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
		var body map[string]string
		_ = json.Unmarshal(w.Body.Bytes(), &body)
		if body["url"] != "http://auth:5004" {
			t.Errorf("url = %q, want %q", body["url"], "http://auth:5004")
		}
	})

	t.Run("未登録のサービスは404が返ること", func(t *testing.T) {
		t.Parallel()

		w := doJSON(t, newTestServer(t, NewMemoryStore()).Handler(), http.MethodGet, "/services/none", "")
		if w.Code != http.StatusNotFound {
			t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusNotFound)
		}
		var body map[string]string
		_ = json.Unmarshal(w.Body.Bytes(), &body)
		if body["error"] != "Service not found." {
			t.Errorf("error = %q, want %q", body["error"], "Service not found.")
		}
	})
}

// TestHandleList はサービス一覧エンドポイントを検証する。
func TestHandleList(t *testing.T) {
	t.Parallel()

	t.Run("登録が無い場合は空配列が返ること", func(t *testing.T) {
		t.Parallel()

		w := doJSON(t, newTestServer(t, NewMemoryStore()).Handler(), http.MethodGet, "/services", "")
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
		if got := w.Body.String(); got != "[]" {
			t.Errorf("body = %q, want %q", got, "[]")
		}
	})

	t.Run("登録済みのサービスが名前順で返ること", func(t *testing.T) {
		t.Parallel()

		store := NewMemoryStore()
		_ = store.Register(context.Background(), "music_service", "http://m")
		_ = store.Register(context.Background(), "auth", "http://a")

		w := doJSON(t, newTestServer(t, store).Handler(), http.MethodGet, "/services", "")
		var records []Record
		if err := json.Unmarshal(w.Body.Bytes(), &records); err != nil {
			t.Fatalf("レスポンスボディのパースに失敗: %v", err)
		}
		if len(records) != 2 || records[0].Name != "auth" || records[1].URL != "http://m" {
			t.Errorf("records = %+v", records)
		}
	})
}

// TestHandleHealth はヘルスチェックを検証する。
func TestHandleHealth(t *testing.T) {
	t.Parallel()

	w := doJSON(t, newTestServer(t, NewMemoryStore()).Handler(), http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
	}
}
