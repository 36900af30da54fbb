package music

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nao1215/musicmesh/pkg/authcheck"
	"github.com/nao1215/musicmesh/pkg/httpserver"
	"github.com/nao1215/musicmesh/pkg/middleware"
	"github.com/nao1215/musicmesh/pkg/migration"
)

const (
	// allowedExtension はアップロードを受け付ける拡張子。
	allowedExtension = ".mp3"
	// audioContentType は配信時のContent-Type。
	audioContentType = "audio/mpeg"
	// msgTrackNotFound は楽曲が無い場合と他人の楽曲の場合に共通で返すメッセージ。
	msgTrackNotFound = "Music not found"
	// multipartOverhead はマルチパートの境界やヘッダーに許容する余分なバイト数。
	multipartOverhead = 1 << 20
)

// Server は楽曲サービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// tracks は楽曲メタデータの保存先。
	tracks *TrackStore
	// storageDir は音声ファイルの保存先ディレクトリ。
	storageDir string
	// maxUploadSize はアップロード可能なファイルの最大サイズ。
	maxUploadSize int64
	// verifier は認証局への問い合わせでリクエストを認証する。
	verifier middleware.IdentityVerifier
	// logger は構造化ロガー。
	logger *log.Logger
}

// trackResponse は楽曲一覧の要素。
type trackResponse struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Artist   string `json:"artist"`
}

// NewServer は新しい楽曲サーバーを生成する。
// dbにマイグレーションを適用し、保存先ディレクトリを作成する。
// verifierがnilの場合はcfg.AuthURLの認証局に問い合わせる。
func NewServer(ctx context.Context, cfg Config, db *sql.DB, verifier middleware.IdentityVerifier, logger *log.Logger) (*Server, error) {
	if err := migration.Run(ctx, db, migrationsFS, migrationsDir, logger); err != nil {
		return nil, fmt.Errorf("マイグレーションに失敗: %w", err)
	}
	if err := os.MkdirAll(cfg.StorageDir, 0o755); err != nil {
		return nil, fmt.Errorf("楽曲保存ディレクトリの作成に失敗: %w", err)
	}
	if verifier == nil {
		verifier = authcheck.NewVerifier(cfg.AuthURL, cfg.AuthTimeout)
	}
	maxUploadSize := cfg.MaxUploadSize
	if maxUploadSize <= 0 {
		maxUploadSize = DefaultMaxUploadSize
	}

	router := gin.New()
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.RequestLogger(logger))

	s := &Server{
		router:        router,
		port:          cfg.Port,
		tracks:        NewTrackStore(db),
		storageDir:    cfg.StorageDir,
		maxUploadSize: maxUploadSize,
		verifier:      verifier,
		logger:        logger,
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
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "music"})
	})

	// 業務処理の前に必ず認証局でトークンを検証する
	protected := s.router.Group("/", middleware.RemoteAuth(s.verifier))
	{
		protected.POST("/upload", s.handleUpload())
		protected.GET("/stream/:id", s.handleStream())
		protected.GET("/list", s.handleList())
	}
}

// handleUpload はMP3ファイルを受け取り、呼び出し元の楽曲として保存する。
// POST /upload multipart: file, artist（任意）
func (s *Server) handleUpload() gin.HandlerFunc {
	return func(c *gin.Context) {
		owner := middleware.GetUserID(c)

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUploadSize+multipartOverhead)
		header, err := c.FormFile("file")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "File too large"})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
			return
		}
		if header.Size > s.maxUploadSize {
			c.JSON(http.StatusBadRequest, gin.H{"error": "File too large"})
			return
		}

		filename := filepath.Base(header.Filename)
		if !strings.EqualFold(filepath.Ext(filename), allowedExtension) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file type"})
			return
		}

		track := Track{
			ID:          uuid.New().String(),
			OwnerUserID: owner,
			Filename:    filename,
			Artist:      strings.TrimSpace(c.PostForm("artist")),
			Size:        header.Size,
			CreatedAt:   time.Now().UTC(),
		}
		track.Path = filepath.Join(s.storageDir, track.ID+allowedExtension)

		if err := c.SaveUploadedFile(header, track.Path); err != nil {
			s.logger.Error("楽曲ファイルの保存に失敗", "path", track.Path, "err", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store music"})
			return
		}
		if err := s.tracks.Create(c.Request.Context(), track); err != nil {
			s.logger.Error("楽曲メタデータの保存に失敗", "music_id", track.ID, "err", err)
			if removeErr := os.Remove(track.Path); removeErr != nil {
				s.logger.Warn("楽曲ファイルの削除に失敗", "path", track.Path, "err", removeErr)
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store music"})
			return
		}

		s.logger.Info("楽曲をアップロードしました", "music_id", track.ID, "user_id", owner, "size", track.Size)
		c.JSON(http.StatusCreated, gin.H{"message": "Music uploaded", "music_id": track.ID})
	}
}

// handleStream は呼び出し元が所有する楽曲を配信する。Rangeリクエストに対応する。
// GET /stream/:id
func (s *Server) handleStream() gin.HandlerFunc {
	return func(c *gin.Context) {
		track, err := s.tracks.GetOwned(c.Request.Context(), c.Param("id"), middleware.GetUserID(c))
		if err != nil {
			if errors.Is(err, ErrTrackNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": msgTrackNotFound})
				return
			}
			s.logger.Error("楽曲の取得に失敗", "music_id", c.Param("id"), "err", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		f, err := os.Open(track.Path)
		if err != nil {
			// メタデータはあるがファイルが無い場合も404とする
			s.logger.Warn("楽曲ファイルを開けません", "music_id", track.ID, "path", track.Path, "err", err)
			c.JSON(http.StatusNotFound, gin.H{"error": msgTrackNotFound})
			return
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			s.logger.Error("楽曲ファイルの情報取得に失敗", "path", track.Path, "err", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		c.Header("Content-Type", audioContentType)
		http.ServeContent(c.Writer, c.Request, track.Filename, info.ModTime(), f)
	}
}

// handleList は呼び出し元が所有する楽曲の一覧を返す。
// GET /list
func (s *Server) handleList() gin.HandlerFunc {
	return func(c *gin.Context) {
		tracks, err := s.tracks.ListByOwner(c.Request.Context(), middleware.GetUserID(c))
		if err != nil {
			s.logger.Error("楽曲一覧の取得に失敗", "err", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		resp := make([]trackResponse, 0, len(tracks))
		for _, t := range tracks {
			resp = append(resp, trackResponse{ID: t.ID, Filename: t.Filename, Artist: t.Artist})
		}
		c.JSON(http.StatusOK, resp)
	}
}
