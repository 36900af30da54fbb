package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/musicmesh/pkg/authcheck"
)

// IdentityVerifier はAuthorizationヘッダーを検証してユーザーを特定する。
// authcheck.Verifier が実装する。
type IdentityVerifier interface {
	Verify(ctx context.Context, authorization string) (authcheck.Identity, error)
}

// RemoteAuth は認証局への問い合わせでリクエストを認証するGinミドルウェアを返す。
// ヘッダー欠如、形式不正、トークン不正の場合は401、認証局に到達できない場合は503を返し、
// 後続のハンドラーは実行しない。
func RemoteAuth(verifier IdentityVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := verifier.Verify(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			status, message := remoteAuthError(err)
			c.AbortWithStatusJSON(status, gin.H{"error": message})
			return
		}

		setIdentity(c, id.UserID, id.Username)
		c.Next()
	}
}

// クライアントに返す認証エラーのメッセージ。
const (
	MsgAuthHeaderMissing   = "Authorization header missing"
	MsgAuthHeaderMalformed = "Malformed authorization header"
	MsgAuthUnavailable     = "Authentication service unavailable"
)

// remoteAuthError は認証エラーをステータスコードとクライアント向けメッセージに変換する。
func remoteAuthError(err error) (int, string) {
	switch {
	case errors.Is(err, authcheck.ErrMissingHeader):
		return http.StatusUnauthorized, MsgAuthHeaderMissing
	case errors.Is(err, authcheck.ErrMalformedHeader):
		return http.StatusUnauthorized, MsgAuthHeaderMalformed
	case errors.Is(err, authcheck.ErrInvalidToken):
		return http.StatusUnauthorized, MsgTokenInvalid
	default:
		return http.StatusServiceUnavailable, MsgAuthUnavailable
	}
}
