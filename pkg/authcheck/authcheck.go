package authcheck

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nao1215/musicmesh/pkg/httpclient"
)

// DefaultTimeout は認証局への問い合わせのデフォルトタイムアウト。
const DefaultTimeout = 5 * time.Second

var (
	// ErrMissingHeader はAuthorizationヘッダーが存在しないことを表す。
	ErrMissingHeader = errors.New("Authorizationヘッダーがありません")
	// ErrMalformedHeader はAuthorizationヘッダーが "Bearer <token>" 形式でないことを表す。
	ErrMalformedHeader = errors.New("Authorizationヘッダーの形式が不正です")
	// ErrInvalidToken は認証局がトークンを拒否したことを表す。
	ErrInvalidToken = errors.New("認証局がトークンを拒否しました")
	// ErrUnavailable は認証局に到達できない、または応答を解釈できないことを表す。
	ErrUnavailable = errors.New("認証局に到達できません")
)

// Identity は認証局が確認したリクエスト元のユーザー。
// リクエスト単位で生成され、永続化されない。
type Identity struct {
	// UserID はユーザーの一意識別子。
	UserID string `json:"userId"`
	// Username はユーザー名。
	Username string `json:"username"`
}

// verifyRequest は認証局の /auth に送信するリクエストボディ。
type verifyRequest struct {
	Token string `json:"token"`
}

// Verifier は認証局への問い合わせでAuthorizationヘッダーを検証する。
type Verifier struct {
	client *httpclient.Client
}

// NewVerifier は新しいVerifierを生成する。
// authorityURLには認証局のベースURL（例: "http://auth:5004"）を指定する。
// timeoutが0以下の場合は DefaultTimeout を使用する。
func NewVerifier(authorityURL string, timeout time.Duration, opts ...httpclient.Option) *Verifier {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	opts = append([]httpclient.Option{httpclient.WithTimeout(timeout)}, opts...)
	return &Verifier{client: httpclient.New(authorityURL, opts...)}
}

// Verify はAuthorizationヘッダーの値を検証し、確認できたユーザーを返す。
func (v *Verifier) Verify(ctx context.Context, authorization string) (Identity, error) {
	tokenString, err := ExtractBearer(authorization)
	if err != nil {
		return Identity{}, err
	}

	var id Identity
	err = v.client.PostJSON(ctx, "/auth", verifyRequest{Token: tokenString}, &id)
	switch {
	case err == nil:
	case errors.Is(err, httpclient.ErrUnreachable), errors.Is(err, httpclient.ErrDecode):
		return Identity{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	default:
		var se *httpclient.StatusError
		if errors.As(err, &se) {
			return Identity{}, fmt.Errorf("%w: status=%d", ErrInvalidToken, se.StatusCode)
		}
		return Identity{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	if id.UserID == "" {
		return Identity{}, fmt.Errorf("%w: 認証局の応答にユーザーIDが含まれていません", ErrUnavailable)
	}
	return id, nil
}

// ExtractBearer はAuthorizationヘッダーの値からトークン部分を取り出す。
// "Bearer" の後に空白で区切られた空でないトークンが1つだけ続く形式のみ受け付ける。
func ExtractBearer(authorization string) (string, error) {
	authorization = strings.TrimSpace(authorization)
	if authorization == "" {
		return "", ErrMissingHeader
	}
	fields := strings.Fields(authorization)
	if len(fields) != 2 || !strings.EqualFold(fields[0], "Bearer") {
		return "", ErrMalformedHeader
	}
	return fields[1], nil
}
