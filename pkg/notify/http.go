package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ondes-hq/radio-catalog/pkg/httpclient"
)

const TypeHTTP = "http"

// HTTPConfig configures a webhook sink.
type HTTPConfig struct {
	ID      string
	URL     string
	Headers map[string]string
	Timeout time.Duration
}

type httpPublisher struct {
	id      string
	url     string
	headers map[string]string
	client  *resty.Client
}

// NewHTTPPublisher builds a webhook publisher posting events as JSON.
func NewHTTPPublisher(cfg HTTPConfig) (Publisher, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("http publisher %q requires a url", cfg.ID)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.ID == "" {
		cfg.ID = "webhook"
	}
	return &httpPublisher{
		id:      cfg.ID,
		url:     cfg.URL,
		headers: cfg.Headers,
		client:  httpclient.NewRestyHTTPClient(cfg.Timeout),
	}, nil
}

func (h *httpPublisher) ID() string   { return h.id }
func (h *httpPublisher) Type() string { return TypeHTTP }

func (h *httpPublisher) Publish(ctx context.Context, evt Event) error {
	req := h.client.R().
		SetContext(ctx).
		SetBody(evt)

	if len(h.headers) > 0 {
		req.SetHeaders(h.headers)
	}
	req.SetHeader("Content-Type", "application/json")

	resp, err := req.Post(h.url)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("http response status %d: %s", resp.StatusCode(), bodySnippet(resp.Body()))
	}
	return nil
}

func bodySnippet(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if len(body) > 512 {
		body = body[:512]
	}
	return strings.TrimSpace(string(body))
}
