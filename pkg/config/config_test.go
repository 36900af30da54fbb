package config

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

// t.Setenv を使うため、このファイルのテストは並列実行しない。

func TestGetEnvOr(t *testing.T) {
	t.Run("設定済みの値を返すこと", func(t *testing.T) {
		t.Setenv("MUSICMESH_TEST_VALUE", "value")
		if got := GetEnvOr("MUSICMESH_TEST_VALUE", "default"); got != "value" {
			t.Errorf("GetEnvOr() = %q, want %q", got, "value")
		}
	})

	t.Run("空白のみの場合はデフォルト値を返すこと", func(t *testing.T) {
		t.Setenv("MUSICMESH_TEST_VALUE", "   ")
		if got := GetEnvOr("MUSICMESH_TEST_VALUE", "default"); got != "default" {
			t.Errorf("GetEnvOr() = %q, want %q", got, "default")
		}
	})
}

func TestDurationOr(t *testing.T) {
	t.Run("未設定の場合はデフォルト値を返すこと", func(t *testing.T) {
		t.Setenv("MUSICMESH_TEST_TIMEOUT", "")
		got, err := DurationOr("MUSICMESH_TEST_TIMEOUT", 3*time.Second)
		if err != nil {
			t.Fatalf("DurationOr()でエラーが発生: %v", err)
		}
		if got != 3*time.Second {
			t.Errorf("DurationOr() = %v, want %v", got, 3*time.Second)
		}
	})

	t.Run("設定値を解釈すること", func(t *testing.T) {
		t.Setenv("MUSICMESH_TEST_TIMEOUT", "250ms")
		got, err := DurationOr("MUSICMESH_TEST_TIMEOUT", time.Second)
		if err != nil {
			t.Fatalf("DurationOr()でエラーが発生: %v", err)
		}
		if got != 250*time.Millisecond {
			t.Errorf("DurationOr() = %v, want %v", got, 250*time.Millisecond)
		}
	})

	t.Run("不正な値と0以下の値はエラーになること", func(t *testing.T) {
		for _, v := range []string{"abc", "0s", "-1s"} {
			t.Setenv("MUSICMESH_TEST_TIMEOUT", v)
			if _, err := DurationOr("MUSICMESH_TEST_TIMEOUT", time.Second); err == nil {
				t.Errorf("DurationOr(%q) がエラーを返さなかった", v)
			}
		}
	})
}

func TestIntFloatBoolOr(t *testing.T) {
	t.Setenv("MUSICMESH_TEST_INT", "42")
	t.Setenv("MUSICMESH_TEST_FLOAT", "2.5")
	t.Setenv("MUSICMESH_TEST_BOOL", "true")

	if n, err := IntOr("MUSICMESH_TEST_INT", 1); err != nil || n != 42 {
		t.Errorf("IntOr() = (%d, %v), want (42, nil)", n, err)
	}
	if f, err := FloatOr("MUSICMESH_TEST_FLOAT", 1); err != nil || f != 2.5 {
		t.Errorf("FloatOr() = (%v, %v), want (2.5, nil)", f, err)
	}
	if b, err := BoolOr("MUSICMESH_TEST_BOOL", false); err != nil || !b {
		t.Errorf("BoolOr() = (%v, %v), want (true, nil)", b, err)
	}

	t.Setenv("MUSICMESH_TEST_INT", "x")
	if _, err := IntOr("MUSICMESH_TEST_INT", 1); err == nil {
		t.Error("IntOr() が不正な値でエラーを返さなかった")
	}
}

func TestListOr(t *testing.T) {
	t.Setenv("MUSICMESH_TEST_LIST", " a, ,b ,c")
	got := ListOr("MUSICMESH_TEST_LIST", nil)
	if want := []string{"a", "b", "c"}; !slices.Equal(got, want) {
		t.Errorf("ListOr() = %v, want %v", got, want)
	}
}

func TestLoad(t *testing.T) {
	t.Run("存在しないファイルはエラーにならないこと", func(t *testing.T) {
		if err := Load(filepath.Join(t.TempDir(), "missing.env")); err != nil {
			t.Errorf("Load()でエラーが発生: %v", err)
		}
	})

	t.Run("ファイルの値を環境変数に反映し既存の値は上書きしないこと", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		content := "MUSICMESH_TEST_FROM_FILE=loaded\nMUSICMESH_TEST_KEEP=file\n"
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf(".envファイルの作成に失敗: %v", err)
		}
		t.Setenv("MUSICMESH_TEST_KEEP", "env")
		t.Setenv("MUSICMESH_TEST_FROM_FILE", "")
		os.Unsetenv("MUSICMESH_TEST_FROM_FILE")

		if err := Load(path); err != nil {
			t.Fatalf("Load()でエラーが発生: %v", err)
		}
		if got := os.Getenv("MUSICMESH_TEST_FROM_FILE"); got != "loaded" {
			t.Errorf("MUSICMESH_TEST_FROM_FILE = %q, want %q", got, "loaded")
		}
		if got := os.Getenv("MUSICMESH_TEST_KEEP"); got != "env" {
			t.Errorf("MUSICMESH_TEST_KEEP = %q, want %q", got, "env")
		}
	})
}
