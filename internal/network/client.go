// Package network は、downfavのHTTP通信に関する機能を提供します。
// ホストごとのレートリミッターとリクエストタイムアウトをカプセル化した、
// より高レベルなHTTPクライアントを実装しています。
package network

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/jbiason/downfav/internal/config"

	"golang.org/x/time/rate"
)

// DefaultTimeout は、設定がない場合のリクエストタイムアウトです。
// 添付ファイルのダウンロードが長時間かかることを想定した値です。
const DefaultTimeout = 600 * time.Second

// HTTPError は、HTTPリクエストで発生したエラーとステータスコードを保持します。
type HTTPError struct {
	StatusCode int
	URL        string
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s (URL: %s)", e.StatusCode, e.Message, e.URL)
}

// IsRetryable は、このエラーがリトライ可能かどうかを判定します。
// 4xxエラー（クライアントエラー）はリトライ不可、5xxエラー（サーバーエラー）はリトライ可能とします。
func (e *HTTPError) IsRetryable() bool {
	if e.StatusCode >= 400 && e.StatusCode < 500 {
		return false
	}
	return true
}

// Client は、レートリミッターを内包するHTTPクライアントです。
// 全ストレージバックエンドと添付ファイルのダウンロードで共有されます。
type Client struct {
	httpClient        *http.Client
	userAgent         string
	rateLimiters      map[string]*rate.Limiter // ホスト名ごとのレートリミッター
	rateLimitersMutex sync.Mutex               // rateLimitersへのアクセスを保護するMutex
	perHostIntervals  map[string]int           // ホストごとの設定間隔(ミリ秒)
}

// NewClient は NetworkSettings に基づいて HTTP クライアントを初期化し、
// ホストごとのレートリミッターを設定します。
func NewClient(settings config.NetworkSettings) *Client {
	timeout := time.Duration(settings.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	rateLimiters := make(map[string]*rate.Limiter)
	for host, intervalMillis := range settings.PerHostIntervalMillis {
		if intervalMillis <= 0 {
			continue
		}
		// intervalMillis 毎に 1 リクエストを許可する limiter
		limiter := rate.NewLimiter(rate.Every(time.Duration(intervalMillis)*time.Millisecond), 1)
		rateLimiters[host] = limiter
	}

	return &Client{
		httpClient:       &http.Client{Timeout: timeout},
		userAgent:        settings.UserAgent,
		rateLimiters:     rateLimiters,
		perHostIntervals: settings.PerHostIntervalMillis,
	}
}

// Get は、指定されたURLにGETリクエストを送信し、レスポンスボディを返します。
func (c *Client) Get(ctx context.Context, reqURL string) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, reqURL, "", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("レスポンスボディの読み込みに失敗しました (url=%s): %w", reqURL, err)
	}
	return body, nil
}

// DownloadToFile は、指定されたURLの内容をファイルへストリーミング保存します。
// 書き込んだバイト数を返します。
func (c *Client) DownloadToFile(ctx context.Context, reqURL string, destPath string) (int64, error) {
	resp, err := c.do(ctx, http.MethodGet, reqURL, "", nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	out, err := os.Create(destPath)
	if err != nil {
		return 0, fmt.Errorf("保存先ファイルの作成に失敗しました (path=%s): %w", destPath, err)
	}
	defer out.Close()

	written, err := io.Copy(out, resp.Body)
	if err != nil {
		return written, fmt.Errorf("ファイルへの書き込みに失敗しました (path=%s, url=%s): %w", destPath, reqURL, err)
	}

	// 書き込みを確実に反映
	if err := out.Sync(); err != nil {
		return written, fmt.Errorf("ファイルの同期に失敗しました (path=%s): %w", destPath, err)
	}
	return written, nil
}

// GetJSON は、GETリクエストを送信し、レスポンスのJSONをoutにデコードします。
func (c *Client) GetJSON(ctx context.Context, reqURL string, out any) error {
	body, err := c.Get(ctx, reqURL)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("JSONレスポンスのデコードに失敗しました (url=%s, size=%d bytes): %w", reqURL, len(body), err)
	}
	return nil
}

// PostJSON は、payloadをJSONとしてPOSTし、レスポンスのJSONをoutにデコードします。
// outがnilの場合、レスポンスボディは破棄されます。
func (c *Client) PostJSON(ctx context.Context, reqURL string, payload any, out any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("リクエストボディのエンコードに失敗しました (url=%s): %w", reqURL, err)
	}

	resp, err := c.do(ctx, http.MethodPost, reqURL, "application/json", bytes.NewReader(encoded))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, err := io.Copy(io.Discard, resp.Body)
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("JSONレスポンスのデコードに失敗しました (url=%s): %w", reqURL, err)
	}
	return nil
}

// PostMultipart は、ファイルデータ(dataパート)とJSONメタデータ(propsパート)から成る
// multipartリクエストをPOSTし、レスポンスのJSONをoutにデコードします。
func (c *Client) PostMultipart(ctx context.Context, reqURL string, filename string, data []byte, props string, out any) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	filePart, err := writer.CreateFormFile("data", filename)
	if err != nil {
		return fmt.Errorf("multipartのdataパート作成に失敗しました (filename=%s): %w", filename, err)
	}
	if _, err := filePart.Write(data); err != nil {
		return fmt.Errorf("multipartのdataパート書き込みに失敗しました (filename=%s, size=%d bytes): %w", filename, len(data), err)
	}
	if err := writer.WriteField("props", props); err != nil {
		return fmt.Errorf("multipartのpropsパート書き込みに失敗しました: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("multipartの終端処理に失敗しました: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, reqURL, writer.FormDataContentType(), &buf)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, err := io.Copy(io.Discard, resp.Body)
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("JSONレスポンスのデコードに失敗しました (url=%s): %w", reqURL, err)
	}
	return nil
}

// do は、レート制限とUser-Agent設定を適用した上でリクエストを実行します。
// 2xx以外のステータスコードはHTTPErrorとして返します。
func (c *Client) do(ctx context.Context, method string, reqURL string, contentType string, body io.Reader) (*http.Response, error) {
	parsedURL, err := url.Parse(reqURL)
	if err != nil {
		return nil, fmt.Errorf("リクエストURLの解析に失敗しました (%s): %w", reqURL, err)
	}

	// ホストごとのレートリミッターを取得し、待機
	limiter := c.limiterForHost(parsedURL.Hostname())
	if err := limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("レートリミッター待機中にエラーが発生しました (url=%s): %w", reqURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("%sリクエストの作成に失敗しました (%s): %w", method, reqURL, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%sリクエストの送信に失敗しました (%s): %w", method, reqURL, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			URL:        reqURL,
			Message:    http.StatusText(resp.StatusCode),
		}
	}
	return resp, nil
}

// limiterForHost は、指定されたホスト名に対応するレートリミッターを返します。
// 存在しない場合は新しく生成します。
func (c *Client) limiterForHost(host string) *rate.Limiter {
	c.rateLimitersMutex.Lock()
	defer c.rateLimitersMutex.Unlock()

	if limiter, exists := c.rateLimiters[host]; exists {
		return limiter
	}

	// 設定された間隔があればそれを使い、なければ制限なしのリミッターを生成
	var limiter *rate.Limiter
	if intervalMillis, ok := c.perHostIntervals[host]; ok && intervalMillis > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Duration(intervalMillis)*time.Millisecond), 1)
	} else {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}

	c.rateLimiters[host] = limiter
	return limiter
}
