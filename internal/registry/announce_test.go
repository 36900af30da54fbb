package registry

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/musicmesh/pkg/logging"
)

// TestAnnounce は自己登録を検証する。
func TestAnnounce(t *testing.T) {
	t.Parallel()

	t.Run("設定が揃っている場合はレジストリに登録されること", func(t *testing.T) {
		t.Parallel()

		store := NewMemoryStore()
		ts := httptest.NewServer(newTestServer(t, store).Handler())
		defer ts.Close()

		var buf bytes.Buffer
		a := Announcement{RegistryURL: ts.URL, ServiceName: "music_service", PublicURL: "http://music:5002", Timeout: time.Second}
		Announce(context.Background(), a, logging.New(&buf, "test"))

		got, err := store.Lookup(context.Background(), "music_service")
		if err != nil {
			t.Fatalf("Lookup()でエラーが発生: %v", err)
		}
		if got != "http://music:5002" {
			t.Errorf("Lookup() = %q, want %q", got, "http://music:5002")
		}
		if !strings.Contains(buf.String(), "レジストリに登録しました") {
			t.Errorf("登録成功のログが出力されない: %s", buf.String())
		}
	})

	t.Run("設定が欠けている場合はレジストリに問い合わせないこと", func(t *testing.T) {
		t.Parallel()

		store := NewMemoryStore()
		ts := httptest.NewServer(newTestServer(t, store).Handler())
		defer ts.Close()

		for _, a := range []Announcement{
			{ServiceName: "music_service", PublicURL: "http://music:5002"},
			{RegistryURL: ts.URL, ServiceName: "music_service"},
			{RegistryURL: ts.URL, PublicURL: "http://music:5002"},
		} {
			if a.Enabled() {
				t.Errorf("Enabled() = true for %+v", a)
			}
			Announce(context.Background(), a, logging.Discard())
		}
		if _, err := store.Lookup(context.Background(), "music_service"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Lookup() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("キャンセルされた場合は再試行をやめて警告を記録すること", func(t *testing.T) {
		t.Parallel()

		ts := httptest.NewServer(nil)
		ts.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		var buf bytes.Buffer
		a := Announcement{RegistryURL: ts.URL, ServiceName: "music_service", PublicURL: "http://music:5002", Timeout: time.Second}
		start := time.Now()
		Announce(ctx, a, logging.New(&buf, "test"))

		if elapsed := time.Since(start); elapsed > announceInterval {
			t.Errorf("キャンセル後も再試行が続いた: %v", elapsed)
		}
		if !strings.Contains(buf.String(), "レジストリへの登録に失敗") {
			t.Errorf("失敗のログが出力されない: %s", buf.String())
		}
	})
}
