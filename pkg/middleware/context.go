package middleware

import "github.com/gin-gonic/gin"

// Ginコンテキストに認証済みユーザーを格納するキー。
const (
	contextKeyUserID   = "user_id"
	contextKeyUsername = "username"
)

func setIdentity(c *gin.Context, userID, username string) {
	c.Set(contextKeyUserID, userID)
	c.Set(contextKeyUsername, username)
}

// GetUserID はGinコンテキストからユーザーIDを取得する。
// TokenAuth または RemoteAuth ミドルウェアが事前に適用されている必要がある。
func GetUserID(c *gin.Context) string {
	return c.GetString(contextKeyUserID)
}

// GetUsername はGinコンテキストからユーザー名を取得する。
func GetUsername(c *gin.Context) string {
	return c.GetString(contextKeyUsername)
}
