package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/nao1215/musicmesh/pkg/httpserver"
	"github.com/nao1215/musicmesh/pkg/middleware"
	"github.com/nao1215/musicmesh/pkg/migration"
	"github.com/nao1215/musicmesh/pkg/token"
)

// CookieName はセッショントークンを格納するCookie名。
const CookieName = "auth_token"

const (
	// maxUsernameLength はユーザー名の最大文字数。
	maxUsernameLength = 64
	// maxPasswordBytes はbcryptが扱えるパスワードの最大バイト数。
	maxPasswordBytes = 72
)

// Server は認証局のHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// users はユーザーの保存先。
	users *UserStore
	// tokens はトークンの発行と検証を行う。
	tokens *token.Manager
	// limiter は登録とログインのレート制限。
	limiter *middleware.RateLimiter
	// bcryptCost はパスワードハッシュのコスト。
	bcryptCost int
	// cookieSecure はCookieにSecure属性を付けるかどうか。
	cookieSecure bool
	// dummyHash はユーザーが存在しない場合の照合に使うハッシュ。
	dummyHash string
	// logger は構造化ロガー。
	logger *log.Logger
}

// credentialsRequest は登録とログインのリクエストボディ。
type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// verifyRequest はトークン検証リクエストのボディ。
type verifyRequest struct {
	Token string `json:"token"`
}

// NewServer は新しい認証局サーバーを生成する。
// dbにはマイグレーションを適用する。tokensがnilの場合はcfgから生成する。
func NewServer(ctx context.Context, cfg Config, db *sql.DB, tokens *token.Manager, logger *log.Logger) (*Server, error) {
	if err := migration.Run(ctx, db, migrationsFS, migrationsDir, logger); err != nil {
		return nil, fmt.Errorf("マイグレーションに失敗: %w", err)
	}

	if tokens == nil {
		var err error
		tokens, err = token.NewManager(cfg.JWTSecret, token.WithTTL(cfg.TokenTTL))
		if err != nil {
			return nil, err
		}
	}

	dummyHash, err := hashPassword("musicmesh-dummy-password", cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.CORS(cfg.AllowedOrigins))

	s := &Server{
		router:       router,
		port:         cfg.Port,
		users:        NewUserStore(db),
		tokens:       tokens,
		limiter:      middleware.NewRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst),
		bcryptCost:   cfg.BcryptCost,
		cookieSecure: cfg.CookieSecure,
		dummyHash:    dummyHash,
		logger:       logger,
	}
	s.setupRoutes()
	return s, nil
}

// Handler はHTTPハンドラーを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run はHTTPサーバーを起動し、ctxがキャンセルされるまで処理を続ける。
func (s *Server) Run(ctx context.Context) error {
	return httpserver.Serve(ctx, ":"+s.port, s.router, s.logger)
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "auth"})
	})

	// 登録とログインはクライアントIP単位でレート制限する
	limited := s.router.Group("/", s.limiter.Middleware())
	{
		limited.POST("/register", s.handleRegister())
		limited.POST("/login", s.handleLogin())
	}

	s.router.POST("/logout", s.handleLogout())
	s.router.POST("/auth", s.handleVerify())
	s.router.GET("/protected", middleware.TokenAuth(s.tokens, CookieName), s.handleProtected())
}

// handleRegister はユーザーを登録してトークンを発行する。
// POST /register {"username": "...", "password": "..."}
func (s *Server) handleRegister() gin.HandlerFunc {
	return func(c *gin.Context) {
		req, ok := bindCredentials(c)
		if !ok {
			return
		}

		hash, err := hashPassword(req.Password, s.bcryptCost)
		if err != nil {
			s.logger.Error("パスワードのハッシュ化に失敗", "err", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		user, err := s.users.Create(c.Request.Context(), req.Username, hash)
		if err != nil {
			if errors.Is(err, ErrUserExists) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "User already exists"})
				return
			}
			s.logger.Error("ユーザー登録に失敗", "username", req.Username, "err", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		s.logger.Info("ユーザーを登録しました", "user_id", user.ID, "username", user.Username)
		s.respondWithToken(c, http.StatusCreated, "User registered successfully", user)
	}
}

// handleLogin は認証情報を照合してトークンを発行する。
// POST /login {"username": "...", "password": "..."}
func (s *Server) handleLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		req, ok := bindCredentials(c)
		if !ok {
			return
		}

		user, err := s.users.GetByUsername(c.Request.Context(), req.Username)
		if err != nil && !errors.Is(err, ErrUserNotFound) {
			s.logger.Error("ユーザーの取得に失敗", "username", req.Username, "err", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		// ユーザーが存在しない場合も照合を行い、応答時間で存在を推測されないようにする
		hash := user.PasswordHash
		if err != nil {
			hash = s.dummyHash
		}
		if !checkPassword(hash, req.Password) || err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}

		s.respondWithToken(c, http.StatusOK, "Login successful", user)
	}
}

// handleLogout はトークンのCookieを削除する。
// POST /logout
func (s *Server) handleLogout() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.setTokenCookie(c, "", -1)
		c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
	}
}

// handleProtected はトークンを持つユーザーにのみ応答する。
// GET /protected
func (s *Server) handleProtected() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message":  fmt.Sprintf("Welcome, %s", middleware.GetUsername(c)),
			"userId":   middleware.GetUserID(c),
			"username": middleware.GetUsername(c),
		})
	}
}

// handleVerify は他のサービスから送られたトークンを検証してユーザーを返す。
// POST /auth {"token": "..."}
func (s *Server) handleVerify() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req verifyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": middleware.MsgTokenMissing})
			return
		}

		claims, err := s.tokens.Parse(req.Token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": middleware.TokenErrorMessage(err)})
			return
		}

		user, err := s.users.GetByID(c.Request.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, ErrUserNotFound) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": middleware.MsgTokenInvalid})
				return
			}
			s.logger.Error("ユーザーの取得に失敗", "user_id", claims.UserID, "err", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"userId": user.ID, "username": user.Username})
	}
}

// respondWithToken はトークンを発行し、Cookieとボディの両方で返す。
func (s *Server) respondWithToken(c *gin.Context, status int, message string, user User) {
	tokenString, expiresAt, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		s.logger.Error("トークンの発行に失敗", "user_id", user.ID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	s.setTokenCookie(c, tokenString, int(s.tokens.TTL()/time.Second))
	c.JSON(status, gin.H{
		"message":   message,
		"token":     tokenString,
		"userId":    user.ID,
		"username":  user.Username,
		"expiresAt": expiresAt.UTC().Format(time.RFC3339),
	})
}

// setTokenCookie はHttpOnlyかつSameSite=StrictのトークンCookieを設定する。
// maxAgeが負の場合はCookieを削除する。
func (s *Server) setTokenCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(CookieName, value, maxAge, "/", "", s.cookieSecure, true)
}

// bindCredentials はリクエストボディから認証情報を取り出して検証する。
// 不正な場合は400を返してfalseを返す。
func bindCredentials(c *gin.Context) (credentialsRequest, bool) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return credentialsRequest{}, false
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password are required"})
		return credentialsRequest{}, false
	}
	if len([]rune(req.Username)) > maxUsernameLength || len(req.Password) > maxPasswordBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username or password is too long"})
		return credentialsRequest{}, false
	}
	return req, true
}
