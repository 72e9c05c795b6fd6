package cli

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
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fyerfyer/campusdoc-tutor/api/model"
)

// APIError 服务端返回的非2xx响应
type APIError struct {
	Status  int    // HTTP状态码
	Message string // 响应中的message字段
	TraceID string // 调用链追踪ID
}

func (e *APIError) Error() string {
	if e.TraceID != "" {
		return fmt.Sprintf("server returned %d: %s (trace_id=%s)", e.Status, e.Message, e.TraceID)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// envelope 服务端统一响应结构
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	TraceID string          `json:"trace_id"`
}

// Client CampusDoc Tutor HTTP API客户端
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient 创建API客户端
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// BaseURL 返回服务端地址
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Health 检查服务状态
func (c *Client) Health(ctx context.Context) (*model.HealthResponse, error) {
	var out model.HealthResponse
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ingest 上传本地PDF文件
func (c *Client) Ingest(ctx context.Context, path string) (*model.IngestResponse, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	var out model.IngestResponse
	if err := c.do(ctx, http.MethodPost, "/api/ingest", body, writer.FormDataContentType(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ask 提问
func (c *Client) Ask(ctx context.Context, question string) (*model.AskResponse, error) {
	payload, err := json.Marshal(model.AskRequest{Question: question})
	if err != nil {
		return nil, err
	}
	var out model.AskResponse
	if err := c.do(ctx, http.MethodPost, "/api/ask", bytes.NewReader(payload), "application/json", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Files 列出已上传的原始文件
func (c *Client) Files(ctx context.Context) (*model.FileListResponse, error) {
	var out model.FileListResponse
	if err := c.do(ctx, http.MethodGet, "/api/files", nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Records 分页查询入库记录，status为空表示不过滤
func (c *Client) Records(ctx context.Context, page, pageSize int, status string) (*model.RecordListResponse, error) {
	query := url.Values{}
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}
	if pageSize > 0 {
		query.Set("page_size", strconv.Itoa(pageSize))
	}
	if status != "" {
		query.Set("status", status)
	}
	path := "/api/records"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var out model.RecordListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Reset 清空索引、原始文件和入库记录
func (c *Client) Reset(ctx context.Context) (*model.ResetResponse, error) {
	var out model.ResetResponse
	if err := c.do(ctx, http.MethodDelete, "/api/reset", nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do 发送请求并把响应中的data解析到out
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(data))}
		}
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return &APIError{Status: resp.StatusCode, Message: env.Message, TraceID: env.TraceID}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	return nil
}
