package registry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/nao1215/musicmesh/pkg/httpclient"
)

// DefaultClientTimeout はレジストリへの問い合わせのデフォルトタイムアウト。
const DefaultClientTimeout = 3 * time.Second

// Client はHTTP経由でリモートのレジストリを操作する。
// ゲートウェイの検索と、各サービスの自己登録に使用する。
type Client struct {
	http *httpclient.Client
}

// NewClient は新しいClientを生成する。timeoutが0以下の場合は DefaultClientTimeout を使う。
func NewClient(baseURL string, timeout time.Duration, opts ...httpclient.Option) *Client {
	if timeout <= 0 {
		timeout = DefaultClientTimeout
	}
	opts = append([]httpclient.Option{httpclient.WithTimeout(timeout)}, opts...)
	return &Client{http: httpclient.New(baseURL, opts...)}
}

// Register はサービス名とURLを登録する。
func (c *Client) Register(ctx context.Context, name, serviceURL string) error {
	if _, _, err := normalize(name, serviceURL); err != nil {
		return err
	}
	err := c.http.PostJSON(ctx, "/register", registerRequest{Name: name, URL: serviceURL}, nil)
	if err == nil {
		return nil
	}
	if code, ok := httpclient.StatusCode(err); ok && code == http.StatusBadRequest {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

// Lookup はサービス名に対応するURLを返す。
// 未登録の場合は ErrNotFound、レジストリに到達できない場合は ErrUnavailable を返す。
func (c *Client) Lookup(ctx context.Context, name string) (string, error) {
	var resp struct {
		URL string `json:"url"`
	}
	err := c.http.GetJSON(ctx, "/services/"+url.PathEscape(name), &resp)
	if err != nil {
		if code, ok := httpclient.StatusCode(err); ok && code == http.StatusNotFound {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if resp.URL == "" {
		return "", fmt.Errorf("%w: レジストリの応答にURLが含まれていません", ErrUnavailable)
	}
	return resp.URL, nil
}

// List は全ての登録を返す。
func (c *Client) List(ctx context.Context) ([]Record, error) {
	var records []Record
	if err := c.http.GetJSON(ctx, "/services", &records); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return records, nil
}

// RegisterWithRetry はレジストリが起動するまで一定間隔で登録を試みる。
// 入力値が不正な場合とctxがキャンセルされた場合は即座に終了する。
func (c *Client) RegisterWithRetry(ctx context.Context, name, serviceURL string, interval time.Duration, attempts int) error {
	var lastErr error
	for i := 0; i < attempts; i++ {
		lastErr = c.Register(ctx, name, serviceURL)
		if lastErr == nil || errors.Is(lastErr, ErrInvalidInput) {
			return lastErr
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
	return lastErr
}
