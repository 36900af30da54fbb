// Package httpserver はHTTPサーバーの起動と停止を共通化する。
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
)

const (
	// readHeaderTimeout はリクエストヘッダー読み込みの制限時間。
	readHeaderTimeout = 10 * time.Second
	// shutdownTimeout は停止時に処理中のリクエストを待つ最大時間。
	shutdownTimeout = 15 * time.Second
)

// Serve はaddrでhandlerを公開し、ctxがキャンセルされると処理中のリクエストを待って停止する。
func Serve(ctx context.Context, addr string, handler http.Handler, logger *log.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("%s のリッスンに失敗: %w", addr, err)
	}
	return ServeListener(ctx, ln, handler, logger)
}

// ServeListener は既存のリスナーでhandlerを公開する。
func ServeListener(ctx context.Context, ln net.Listener, handler http.Handler, logger *log.Logger) error {
	if logger == nil {
		logger = log.Default()
	}
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTPサーバーを起動します", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("HTTPサーバーを停止します")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTPサーバーの停止に失敗: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
