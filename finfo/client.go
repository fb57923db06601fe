package finfo

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultBaseURL  = "https://finfo-api.vndirect.com.vn"
	DefaultTimeout  = 10 * time.Second
	DefaultPageSize = 1000
	DefaultMaxPages = 1000

	pricesPath = "/v4/stock_prices"
)

// Client 访问 finfo 行情接口, 自身不做重试
type Client struct {
	baseURL    string
	userAgent  string
	pageSize   int
	maxPages   int
	httpClient *http.Client
	logger     *zap.Logger
}

type ClientOption func(*Client)

func NewClient(baseURL string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		pageSize: DefaultPageSize,
		maxPages: DefaultMaxPages,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout 设置单次请求超时
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithPageSize 设置每页条数, 非正数时保持默认
func WithPageSize(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

func WithMaxPages(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxPages = n
		}
	}
}
