package registry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/nao1215/musicmesh/pkg/config"
	"github.com/nao1215/musicmesh/pkg/httpserver"
	"github.com/nao1215/musicmesh/pkg/middleware"
)

// Config はレジストリサービスの設定。
type Config struct {
	// Port はサーバーのリッスンポート。
	Port string
	// RedisURL はRedisの接続先。空の場合はメモリに保持する。
	RedisURL string
	// RedisPrefix はRedisのキープレフィックス。
	RedisPrefix string
}

// LoadConfig は環境変数からレジストリサービスの設定を読み込む。
func LoadConfig() Config {
	return Config{
		Port:        config.GetEnvOr("PORT", "5000"),
		RedisURL:    config.GetEnvOr("REGISTRY_REDIS_URL", ""),
		RedisPrefix: config.GetEnvOr("REGISTRY_REDIS_PREFIX", DefaultRedisPrefix),
	}
}

// OpenStore は設定に従って保存先を生成する。
// RedisURLが設定されている場合はRedisへの接続を確認してから返す。
func OpenStore(ctx context.Context, cfg Config) (Store, error) {
	if cfg.RedisURL == "" {
		return NewMemoryStore(), nil
	}
	client, err := NewRedisClient(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	store := NewRedisStore(client, cfg.RedisPrefix)
	if err := store.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return store, nil
}

// Server はサービスレジストリのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// store は登録の保存先。
	store Store
	// logger は構造化ロガー。
	logger *log.Logger
}

// registerRequest はサービス登録リクエストのボディ。
type registerRequest struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// NewServer は新しいレジストリサーバーを生成する。
func NewServer(cfg Config, store Store, logger *log.Logger) *Server {
	router := gin.New()
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.RequestLogger(logger))

	s := &Server{
		router: router,
		port:   cfg.Port,
		store:  store,
		logger: logger,
	}
	s.setupRoutes()
	return s
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
	s.router.GET("/health", s.handleHealth())
	s.router.POST("/register", s.handleRegister())
	s.router.GET("/services", s.handleList())
	s.router.GET("/services/:name", s.handleLookup())
}

// handleHealth はヘルスチェックエンドポイント。
func (s *Server) handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "registry"})
	}
}

// handleRegister はサービスを登録する。
// POST /register {"name": "...", "url": "..."}
func (s *Server) handleRegister() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req registerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid data."})
			return
		}

		if err := s.store.Register(c.Request.Context(), req.Name, req.URL); err != nil {
			if errors.Is(err, ErrInvalidInput) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid data."})
				return
			}
			s.logger.Error("サービス登録に失敗", "name", req.Name, "err", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Registry storage unavailable."})
			return
		}

		name := strings.TrimSpace(req.Name)
		s.logger.Info("サービスを登録しました", "name", name, "url", strings.TrimSpace(req.URL))
		c.JSON(http.StatusCreated, gin.H{
			"message": fmt.Sprintf("Service %s registered successfully.", name),
		})
	}
}

// handleLookup はサービス名からURLを返す。
// GET /services/:name
func (s *Server) handleLookup() gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")
		url, err := s.store.Lookup(c.Request.Context(), name)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Service not found."})
				return
			}
			s.logger.Error("サービス検索に失敗", "name", name, "err", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Registry storage unavailable."})
			return
		}
		c.JSON(http.StatusOK, gin.H{"url": url})
	}
}

// handleList は全ての登録を返す。
// GET /services
func (s *Server) handleList() gin.HandlerFunc {
	return func(c *gin.Context) {
		records, err := s.store.List(c.Request.Context())
		if err != nil {
			s.logger.Error("サービス一覧の取得に失敗", "err", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Registry storage unavailable."})
			return
		}
		c.JSON(http.StatusOK, records)
	}
}
