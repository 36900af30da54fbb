package token

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// testSecret はテスト用の署名シークレット。
const testSecret = "test-secret-key-for-unit-tests"

// fakeClock はテストで時刻を進めるための時計。
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestManager(t *testing.T, opts ...Option) (*Manager, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	m, err := NewManager(testSecret, append([]Option{WithClock(clock.Now)}, opts...)...)
	if err != nil {
		t.Fatalf("NewManager()でエラーが発生: %v", err)
	}
	return m, clock
}

// TestNewManager はNewManager関数を検証する。
func TestNewManager(t *testing.T) {
	t.Parallel()

	t.Run("シークレットが空の場合はエラーを返すこと", func(t *testing.T) {
		t.Parallel()

		if _, err := NewManager(""); err == nil {
			t.Fatal("空のシークレットでエラーが返されなかった")
		}
	})

	t.Run("デフォルトの有効期間が1時間であること", func(t *testing.T) {
		t.Parallel()

		m, err := NewManager(testSecret)
		if err != nil {
			t.Fatalf("NewManager()でエラーが発生: %v", err)
		}
		if m.TTL() != time.Hour {
			t.Errorf("TTL() = %v, want 1h", m.TTL())
		}
	})
}

// TestManagerIssue はトークン発行を検証する。
func TestManagerIssue(t *testing.T) {
	t.Parallel()

	t.Run("発行したトークンからユーザー情報を取り出せること", func(t *testing.T) {
		t.Parallel()

		m, clock := newTestManager(t)
		tokenStr, expiresAt, err := m.Issue("user-123", "alice")
		if err != nil {
			t.Fatalf("Issue()でエラーが発生: %v", err)
		}
		if want := clock.Now().Add(time.Hour); !expiresAt.Equal(want) {
			t.Errorf("expiresAt = %v, want %v", expiresAt, want)
		}

		claims, err := m.Parse(tokenStr)
		if err != nil {
			t.Fatalf("Parse()でエラーが発生: %v", err)
		}
		if claims.UserID != "user-123" {
			t.Errorf("UserID = %q, want %q", claims.UserID, "user-123")
		}
		if claims.Username != "alice" {
			t.Errorf("Username = %q, want %q", claims.Username, "alice")
		}
		if claims.Issuer != DefaultIssuer {
			t.Errorf("Issuer = %q, want %q", claims.Issuer, DefaultIssuer)
		}
	})
}

// TestManagerParse はトークン検証の分類を検証する。
func TestManagerParse(t *testing.T) {
	t.Parallel()

	t.Run("空文字列はErrMissingになること", func(t *testing.T) {
		t.Parallel()

		m, _ := newTestManager(t)
		if _, err := m.Parse("  "); !errors.Is(err, ErrMissing) {
			t.Errorf("Parse() error = %v, want ErrMissing", err)
		}
	})

	t.Run("有効期限の直前までは有効で、期限到達後はErrExpiredになること", func(t *testing.T) {
		t.Parallel()

		m, clock := newTestManager(t)
		tokenStr, _, err := m.Issue("user-1", "bob")
		if err != nil {
			t.Fatalf("Issue()でエラーが発生: %v", err)
		}

		clock.Advance(time.Hour - time.Second)
		if _, err := m.Parse(tokenStr); err != nil {
			t.Fatalf("期限前のトークンが拒否された: %v", err)
		}

		clock.Advance(time.Second)
		if _, err := m.Parse(tokenStr); !errors.Is(err, ErrExpired) {
			t.Errorf("期限到達時 error = %v, want ErrExpired", err)
		}

		clock.Advance(24 * time.Hour)
		if _, err := m.Parse(tokenStr); !errors.Is(err, ErrExpired) {
			t.Errorf("期限経過後 error = %v, want ErrExpired", err)
		}
	})

	t.Run("期限切れトークンは改ざんされていればErrInvalidになること", func(t *testing.T) {
		t.Parallel()

		m, clock := newTestManager(t)
		tokenStr, _, err := m.Issue("user-1", "bob")
		if err != nil {
			t.Fatalf("Issue()でエラーが発生: %v", err)
		}
		clock.Advance(2 * time.Hour)

		other, err := NewManager("another-secret", WithClock(clock.Now))
		if err != nil {
			t.Fatalf("NewManager()でエラーが発生: %v", err)
		}
		if _, err := other.Parse(tokenStr); !errors.Is(err, ErrInvalid) {
			t.Errorf("Parse() error = %v, want ErrInvalid", err)
		}
	})

	tests := []struct {
		name  string
		token func(t *testing.T, m *Manager) string
	}{
		{
			name: "形式不正なトークン",
			token: func(*testing.T, *Manager) string {
				return "not-a-jwt"
			},
		},
		{
			name: "署名が一致しないトークン",
			token: func(t *testing.T, m *Manager) string {
				other, err := NewManager("another-secret", WithClock(m.now))
				if err != nil {
					t.Fatalf("NewManager()でエラーが発生: %v", err)
				}
				s, _, err := other.Issue("user-1", "eve")
				if err != nil {
					t.Fatalf("Issue()でエラーが発生: %v", err)
				}
				return s
			},
		},
		{
			name: "発行者が異なるトークン",
			token: func(t *testing.T, m *Manager) string {
				other, err := NewManager(testSecret, WithClock(m.now), WithIssuer("someone-else"))
				if err != nil {
					t.Fatalf("NewManager()でエラーが発生: %v", err)
				}
				s, _, err := other.Issue("user-1", "eve")
				if err != nil {
					t.Fatalf("Issue()でエラーが発生: %v", err)
				}
				return s
			},
		},
		{
			name: "HS256以外のアルゴリズムで署名されたトークン",
			token: func(t *testing.T, m *Manager) string {
				claims := Claims{
					RegisteredClaims: jwt.RegisteredClaims{
						ExpiresAt: jwt.NewNumericDate(m.now().Add(time.Hour)),
						Issuer:    DefaultIssuer,
					},
					UserID: "user-1",
				}
				s, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
				if err != nil {
					t.Fatalf("署名に失敗: %v", err)
				}
				return s
			},
		},
		{
			name: "有効期限のないトークン",
			token: func(t *testing.T, m *Manager) string {
				claims := Claims{
					RegisteredClaims: jwt.RegisteredClaims{Issuer: DefaultIssuer},
					UserID:           "user-1",
				}
				s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
				if err != nil {
					t.Fatalf("署名に失敗: %v", err)
				}
				return s
			},
		},
		{
			name: "署名部分を改ざんしたトークン",
			token: func(t *testing.T, m *Manager) string {
				s, _, err := m.Issue("user-1", "eve")
				if err != nil {
					t.Fatalf("Issue()でエラーが発生: %v", err)
				}
				parts := strings.Split(s, ".")
				parts[2] = strings.Repeat("A", len(parts[2]))
				return strings.Join(parts, ".")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name+"はErrInvalidになること", func(t *testing.T) {
			t.Parallel()

			m, _ := newTestManager(t)
			_, err := m.Parse(tt.token(t, m))
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("Parse() error = %v, want ErrInvalid", err)
			}
			if errors.Is(err, ErrExpired) {
				t.Error("ErrExpiredとして扱われた")
			}
		})
	}
}
