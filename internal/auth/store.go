package auth

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrationsDir はmigrationsFS内のマイグレーションディレクトリ。
const migrationsDir = "migrations"

var (
	// ErrUserExists は同じユーザー名が既に登録されていることを表す。
	ErrUserExists = errors.New("ユーザー名は既に使われています")
	// ErrUserNotFound は指定されたユーザーが存在しないことを表す。
	ErrUserNotFound = errors.New("ユーザーが存在しません")
)

// User は登録済みのユーザー。
type User struct {
	// ID はユーザーの一意識別子（UUID）。
	ID string
	// Username はユーザー名。一意。
	Username string
	// PasswordHash はbcryptでハッシュ化したパスワード。
	PasswordHash string
	// CreatedAt は登録日時。
	CreatedAt time.Time
}

// UserStore はユーザーをSQLiteに保存する。
type UserStore struct {
	db *sql.DB
}

// NewUserStore は新しいUserStoreを生成する。
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

// Create はユーザーを登録する。ユーザー名が既に使われている場合は ErrUserExists を返す。
func (s *UserStore) Create(ctx context.Context, username, passwordHash string) (User, error) {
	u := User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users (id, username, password_hash, created_at) VALUES (?, ?, ?, ?)",
		u.ID, u.Username, u.PasswordHash, u.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrUserExists
		}
		return User{}, fmt.Errorf("ユーザーの登録に失敗: %w", err)
	}
	return u, nil
}

// GetByUsername はユーザー名でユーザーを取得する。
func (s *UserStore) GetByUsername(ctx context.Context, username string) (User, error) {
	return s.get(ctx, "SELECT id, username, password_hash, created_at FROM users WHERE username = ?", username)
}

// GetByID はIDでユーザーを取得する。
func (s *UserStore) GetByID(ctx context.Context, id string) (User, error) {
	return s.get(ctx, "SELECT id, username, password_hash, created_at FROM users WHERE id = ?", id)
}

func (s *UserStore) get(ctx context.Context, query string, arg any) (User, error) {
	var (
		u         User
		createdAt string
	)
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Username, &u.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("ユーザーの取得に失敗: %w", err)
	}
	if u.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return User{}, fmt.Errorf("登録日時の解析に失敗: %w", err)
	}
	return u, nil
}

// isUniqueViolation はエラーが一意制約違反かを判定する。
func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}
