// Package client はタスク管理APIのRESTクライアントです。
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"task-manager/internal/models"
)

// APIError は2xx以外のレスポンスです。
type APIError struct {
	Status  int
	Message string
	Details string
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Message, e.Details)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

// IsNotFound は err が 404 の APIError かどうかを返します。
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// Client はAPIサーバーへの接続を保持します。並行して使用できます。
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

// WithHTTPClient は使用する http.Client を差し替えます。
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithToken は保存済みのJWTを設定します。
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New は baseURL (例: http://localhost:8080) に接続するクライアントを返します。
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Login は認証してトークンを保持します。
func (c *Client) Login(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	var res models.LoginResponse
	req := models.UserLoginRequest{Email: email, Password: password}
	if _, err := c.do(ctx, http.MethodPost, "/api/login", nil, req, &res); err != nil {
		return nil, err
	}
	c.SetToken(res.Token)
	return &res, nil
}

// Account はログイン中のユーザーを返します。
func (c *Client) Account(ctx context.Context) (*models.User, error) {
	var u models.User
	if _, err := c.do(ctx, http.MethodGet, "/api/account", nil, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Users は編集フォームで選べるユーザーの一覧を返します。
func (c *Client) Users(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if _, err := c.do(ctx, http.MethodGet, "/api/users", nil, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) Tasks() *TaskResource {
	return &TaskResource{resource: &resource[models.Task]{c: c, path: "/api/tasks", id: func(t *models.Task) int { return t.ID }}}
}

func (c *Client) Tags() *TagResource {
	return &TagResource{resource: &resource[models.Tag]{c: c, path: "/api/tags", id: func(g *models.Tag) int { return g.ID }}}
}

// do はリクエストを送り、out に JSON をデコードします。
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) (http.Header, error) {
	return c.doContent(ctx, method, path, query, "application/json", body, out)
}

func (c *Client) doContent(ctx context.Context, method, path string, query url.Values, contentType string, body, out any) (http.Header, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.Header, decodeError(resp)
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.Header, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.Header, nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	var body struct {
		Error   string `json:"error"`
		Details string `json:"details"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		apiErr.Message = body.Error
		apiErr.Details = body.Details
	}
	return apiErr
}

// pageQuery は Pageable をクエリパラメータにします。
func pageQuery(p models.Pageable) url.Values {
	q := url.Values{}
	q.Set("page", strconv.Itoa(p.Page))
	if p.Size > 0 {
		q.Set("size", strconv.Itoa(p.Size))
	}
	for _, s := range p.SortParams() {
		q.Add("sort", s)
	}
	return q
}

// totalCount は X-Total-Count を読み取ります。無い場合は fallback を返します。
func totalCount(h http.Header, fallback int) int64 {
	n, err := strconv.ParseInt(h.Get("X-Total-Count"), 10, 64)
	if err != nil {
		return int64(fallback)
	}
	return n
}
