package healthstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/awdoty/GlucoseUploader-sub002/internal/config"
)

// Client 健康数据存储客户端
// 封装健康数据存储的权限接口与记录写入接口
type Client struct {
	baseURL    string
	appID      string
	token      string
	httpClient *http.Client
}

// NewClient 创建健康数据存储客户端
func NewClient(cfg config.HealthStoreConfig) (*Client, error) {
	if cfg.APIURL == "" {
		return nil, fmt.Errorf("healthstore api_url is required")
	}
	u, err := url.Parse(cfg.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid healthstore api_url %q", cfg.APIURL)
	}

	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:    cfg.APIURL,
		appID:      cfg.AppID,
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// NewClientWithRetry 带重试的客户端创建
func NewClientWithRetry(cfg config.HealthStoreConfig, maxRetries int, retryInterval time.Duration) (*Client, error) {
	var c *Client
	var err error

	for i := 0; i < maxRetries; i++ {
		c, err = NewClient(cfg)
		if err == nil {
			// 测试连接
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			pingErr := c.Ping(ctx)
			cancel()
			if pingErr == nil {
				return c, nil
			}
			err = pingErr
		}

		// 如果不是最后一次重试，等待后重试
		if i < maxRetries-1 {
			time.Sleep(retryInterval)
			retryInterval *= 2 // 指数退避
		}
	}

	return nil, fmt.Errorf("failed to create healthstore client after %d retries: %w", maxRetries, err)
}

// GetGrantedPermissions 查询当前已授权的权限标识
// 每次调用都重新查询,授权可能在外部被用户随时变更
func (c *Client) GetGrantedPermissions(ctx context.Context) ([]string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/v1/permissions/granted", nil)
	if err != nil {
		return nil, err
	}

	var resp grantedPermissionsResponse
	if err := c.do(req, &resp); err != nil {
		return nil, fmt.Errorf("failed to get granted permissions: %w", err)
	}

	return resp.Permissions, nil
}

// RequestPermissions 申请一组权限
// 授权结果由存储端异步决定,调用方需要重新查询授权状态
func (c *Client) RequestPermissions(ctx context.Context, permissions []string) error {
	body := permissionRequest{
		AppID:       c.appID,
		Permissions: permissions,
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/v1/permissions/request", body)
	if err != nil {
		return err
	}

	if err := c.do(req, nil); err != nil {
		return fmt.Errorf("failed to request permissions: %w", err)
	}

	return nil
}

// RevokeAllPermissions 撤销本应用的全部权限
func (c *Client) RevokeAllPermissions(ctx context.Context) error {
	body := permissionRequest{AppID: c.appID}

	req, err := c.newRequest(ctx, http.MethodPost, "/v1/permissions/revoke", body)
	if err != nil {
		return err
	}

	if err := c.do(req, nil); err != nil {
		return fmt.Errorf("failed to revoke permissions: %w", err)
	}

	return nil
}

// WriteRecords 写入血糖记录,返回实际写入条数
func (c *Client) WriteRecords(ctx context.Context, records []GlucoseRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	body := writeRecordsRequest{
		AppID:   c.appID,
		Records: records,
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/v1/records/glucose", body)
	if err != nil {
		return 0, err
	}

	var resp writeRecordsResponse
	if err := c.do(req, &resp); err != nil {
		return 0, fmt.Errorf("failed to write records: %w", err)
	}

	return resp.Inserted, nil
}

// Ping 检查存储服务是否可达
func (c *Client) Ping(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/v1/ping", nil)
	if err != nil {
		return err
	}

	if err := c.do(req, nil); err != nil {
		return fmt.Errorf("healthstore ping failed: %w", err)
	}

	return nil
}

// CheckHealth 检查健康数据存储连接健康状态
func (c *Client) CheckHealth(ctx context.Context) bool {
	if c == nil || c.httpClient == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return c.Ping(ctx) == nil
}

// newRequest 构造带认证头的请求
func (c *Client) newRequest(ctx context.Context, method, path string, body interface{}) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	return req, nil
}

// do 执行请求并解码响应
func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("healthstore returned status %d: %s", resp.StatusCode, string(data))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
