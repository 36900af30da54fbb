package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/musicmesh/pkg/authcheck"
	"github.com/nao1215/musicmesh/pkg/token"
)

// TokenAuth はセッショントークンを自サービスで検証するGinミドルウェアを返す。
// トークンはcookieNameのCookieから読み取り、無ければ "Bearer" 形式のAuthorizationヘッダーから読み取る。
// 未提示、期限切れ、不正の3種類を区別したメッセージで401を返す。
func TokenAuth(manager *token.Manager, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := manager.Parse(TokenFromRequest(c, cookieName))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": TokenErrorMessage(err),
			})
			return
		}

		setIdentity(c, claims.UserID, claims.Username)
		c.Next()
	}
}

// TokenFromRequest はリクエストからトークン文字列を取り出す。
// Cookieを優先し、無ければAuthorizationヘッダーを参照する。
// Authorizationヘッダーが "Bearer <token>" 形式でない場合はヘッダー値をそのまま返し、検証で不正扱いにする。
func TokenFromRequest(c *gin.Context, cookieName string) string {
	if cookieName != "" {
		if v, err := c.Cookie(cookieName); err == nil && v != "" {
			return v
		}
	}
	header := c.GetHeader("Authorization")
	if tokenString, err := authcheck.ExtractBearer(header); err == nil {
		return tokenString
	}
	return header
}

// クライアントに返すトークンエラーのメッセージ。
const (
	MsgTokenMissing = "Token missing"
	MsgTokenExpired = "Token expired"
	MsgTokenInvalid = "Invalid token"
)

// TokenErrorMessage はトークン検証エラーをクライアント向けのメッセージに変換する。
func TokenErrorMessage(err error) string {
	switch {
	case errors.Is(err, token.ErrMissing):
		return MsgTokenMissing
	case errors.Is(err, token.ErrExpired):
		return MsgTokenExpired
	default:
		return MsgTokenInvalid
	}
}
