package gateway

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/nao1215/musicmesh/internal/registry"
	"github.com/nao1215/musicmesh/pkg/httpclient"
	"github.com/nao1215/musicmesh/pkg/httpserver"
	"github.com/nao1215/musicmesh/pkg/metrics"
	"github.com/nao1215/musicmesh/pkg/middleware"
)

// hopByHopHeaders は転送時に取り除く接続単位のヘッダー。
var hopByHopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// クライアントに返すエラーメッセージ。
const (
	msgServiceNotFound     = "Service not found"
	msgRegistryUnavailable = "Service registry unavailable"
)

// unresolvedService は解決できなかったサービスのメトリクスラベル。
const unresolvedService = "unresolved"

// reservedPaths はゲートウェイ自身が処理するため転送しない先頭セグメント。
var reservedPaths = map[string]struct{}{
	"health":  {},
	"metrics": {},
}

// Server はゲートウェイのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// resolver はサービス名をインスタンスプールに解決する。
	resolver *Resolver
	// balancer はプールから転送先を選ぶ。
	balancer Balancer
	// client は上流サービスへの転送に使うHTTPクライアント。
	client *http.Client
	// pathMode は転送先パスの組み立て方。
	pathMode PathMode
	// upstreamTimeout は上流が応答ヘッダーを返すまでの制限時間。
	upstreamTimeout time.Duration
	// metrics はPrometheusメトリクス。
	metrics *metrics.Metrics
	// logger は構造化ロガー。
	logger *log.Logger
}

// Option はServerの依存を差し替える。
type Option func(*Server)

// WithBalancer は転送先の選択方法を差し替える。
func WithBalancer(b Balancer) Option {
	return func(s *Server) {
		if b != nil {
			s.balancer = b
		}
	}
}

// WithHTTPClient は上流への転送に使うHTTPクライアントを差し替える。
// リトライを行うTransportを差し込む場合などに使う。
func WithHTTPClient(c *http.Client) Option {
	return func(s *Server) {
		if c != nil {
			s.client = c
		}
	}
}

// WithMetrics はメトリクスの記録先を差し替える。
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		if m != nil {
			s.metrics = m
		}
	}
}

// NewServer は新しいゲートウェイサーバーを生成する。
// lookuperがnilの場合はcfg.Seedのみでサービスを解決する。
func NewServer(cfg Config, lookuper registry.Lookuper, logger *log.Logger, opts ...Option) *Server {
	if cfg.PathMode == "" {
		cfg.PathMode = PathModeServiceRoot
	}
	if cfg.UpstreamTimeout <= 0 {
		cfg.UpstreamTimeout = 10 * time.Second
	}

	s := &Server{
		port:            cfg.Port,
		resolver:        NewResolver(lookuper, cfg.Seed),
		balancer:        NewRandomBalancer(nil),
		client:          &http.Client{},
		pathMode:        cfg.PathMode,
		upstreamTimeout: cfg.UpstreamTimeout,
		metrics:         metrics.New("gateway"),
		logger:          logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	router := gin.New()
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.RequestLogger(logger))
	router.Use(s.metrics.Middleware())
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	s.router = router
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

// setupRoutes はルーティングを設定する。
// /health と /metrics 以外の全てのパスを転送対象とする。
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth())
	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	s.router.NoRoute(s.handleRoute())
}

// handleHealth はヘルスチェックエンドポイント。
func (s *Server) handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "gateway"})
	}
}

// handleRoute はパスの先頭セグメントをサービス名としてリクエストを転送する。
func (s *Server) handleRoute() gin.HandlerFunc {
	return func(c *gin.Context) {
		service, rest := splitServicePath(c.Request.URL.Path)
		_, reserved := reservedPaths[service]
		if !allowedMethod(c.Request.Method) || (reserved && rest == "") {
			c.Header("Allow", "GET, POST")
			c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
			return
		}
		if service == "" || reserved {
			c.JSON(http.StatusNotFound, gin.H{"error": msgServiceNotFound})
			return
		}

		pool, err := s.resolver.Resolve(c.Request.Context(), service)
		if err != nil {
			if errors.Is(err, ErrServiceNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": msgServiceNotFound})
				return
			}
			s.logger.Error("サービスの解決に失敗", "service", service, "err", err)
			// 未解決のサービス名はクライアントが自由に選べるためラベルに使わない
			s.metrics.UpstreamError(unresolvedService, "registry")
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": msgRegistryUnavailable})
			return
		}

		instance, err := s.balancer.Pick(pool)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": msgServiceNotFound})
			return
		}

		s.forward(c, service, s.targetURL(instance, service, rest, c.Request.URL.RawQuery))
	}
}

// targetURL は転送先のURLを組み立てる。
func (s *Server) targetURL(instance, service, rest, rawQuery string) string {
	base := strings.TrimRight(instance, "/")
	if s.pathMode != PathModePassthrough {
		return base + "/" + service
	}
	target := base + rest
	if rawQuery != "" {
		target += "?" + rawQuery
	}
	return target
}

// forward はリクエストを上流に転送し、応答をそのまま中継する。
// 上流が応答ヘッダーを返すまでをupstreamTimeoutで制限し、ボディの中継はクライアントの切断まで続ける。
func (s *Server) forward(c *gin.Context, service, target string) {
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	timer := time.AfterFunc(s.upstreamTimeout, cancel)

	req, err := http.NewRequestWithContext(ctx, c.Request.Method, target, c.Request.Body)
	if err != nil {
		timer.Stop()
		s.logger.Error("転送リクエストの作成に失敗", "service", service, "target", target, "err", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Upstream service unreachable"})
		return
	}
	req.ContentLength = c.Request.ContentLength
	copyHeaders(req.Header, c.Request.Header)
	appendForwardedFor(req.Header, c.Request.RemoteAddr)

	start := time.Now()
	resp, err := s.client.Do(req)
	timedOut := !timer.Stop()
	if err == nil && timedOut {
		resp.Body.Close()
		err = context.DeadlineExceeded
	}
	if err != nil {
		switch {
		case timedOut || httpclient.IsTimeout(err):
			s.logger.Warn("上流サービスがタイムアウトしました", "service", service, "target", target, "timeout", s.upstreamTimeout)
			s.metrics.UpstreamError(service, "timeout")
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Upstream service timed out"})
		case c.Request.Context().Err() != nil:
			s.logger.Info("クライアントが切断したため転送を中断しました", "service", service, "target", target)
			s.metrics.UpstreamError(service, "canceled")
			c.Abort()
		default:
			s.logger.Error("上流サービスに到達できません", "service", service, "target", target, "err", err)
			s.metrics.UpstreamError(service, "unreachable")
			c.JSON(http.StatusBadGateway, gin.H{"error": "Upstream service unreachable"})
		}
		return
	}
	defer resp.Body.Close()
	s.metrics.ObserveUpstream(service, resp.StatusCode, time.Since(start))

	relayResponseHeaders(c.Writer.Header(), resp.Header)
	c.Status(resp.StatusCode)
	c.Writer.WriteHeaderNow()
	if _, err := io.Copy(c.Writer, resp.Body); err != nil {
		s.logger.Warn("応答ボディの中継が途中で失敗しました", "service", service, "target", target, "err", err)
	}
}

// splitServicePath はパスを先頭セグメント（サービス名）と残りに分ける。
// "/music_service/stream/1" は ("music_service", "/stream/1") になる。
func splitServicePath(p string) (string, string) {
	p = strings.TrimPrefix(p, "/")
	service, rest, found := strings.Cut(p, "/")
	if found {
		rest = "/" + rest
	}
	return service, rest
}

func allowedMethod(method string) bool {
	return method == http.MethodGet || method == http.MethodPost
}

// copyHeaders はsrcのヘッダーから接続単位のものを除いてdstに追加する。
func copyHeaders(dst, src http.Header) {
	skip := make(map[string]struct{}, len(hopByHopHeaders))
	for _, h := range hopByHopHeaders {
		skip[h] = struct{}{}
	}
	for _, v := range src.Values("Connection") {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				skip[http.CanonicalHeaderKey(name)] = struct{}{}
			}
		}
	}

	for key, values := range src {
		if _, ok := skip[http.CanonicalHeaderKey(key)]; ok {
			continue
		}
		for _, v := range values {
			dst.Add(key, v)
		}
	}
}

// relayResponseHeaders は上流の応答ヘッダーをdstに中継する。
// CORSはゲートウェイが処理するため上流のAccess-Control-*は捨て、Varyは重複を除いて統合する。
func relayResponseHeaders(dst, src http.Header) {
	upstream := src.Clone()
	vary := upstream.Values("Vary")
	upstream.Del("Vary")
	for key := range upstream {
		if strings.HasPrefix(http.CanonicalHeaderKey(key), "Access-Control-") {
			upstream.Del(key)
		}
	}
	copyHeaders(dst, upstream)
	mergeVary(dst, vary)
}

// mergeVary はvaryのうちdstのVaryに未登録の値だけを追加する。大文字小文字は区別しない。
func mergeVary(dst http.Header, vary []string) {
	seen := make(map[string]struct{})
	for _, v := range dst.Values("Vary") {
		for _, name := range strings.Split(v, ",") {
			seen[strings.ToLower(strings.TrimSpace(name))] = struct{}{}
		}
	}
	for _, v := range vary {
		for _, name := range strings.Split(v, ",") {
			name = strings.TrimSpace(name)
			key := strings.ToLower(name)
			if _, ok := seen[key]; ok || name == "" {
				continue
			}
			seen[key] = struct{}{}
			dst.Add("Vary", name)
		}
	}
}

// appendForwardedFor はクライアントのIPアドレスをX-Forwarded-Forに追記する。
func appendForwardedFor(h http.Header, remoteAddr string) {
	ip, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		ip = remoteAddr
	}
	if ip == "" {
		return
	}
	if prior := h.Get("X-Forwarded-For"); prior != "" {
		ip = prior + ", " + ip
	}
	h.Set("X-Forwarded-For", ip)
}
