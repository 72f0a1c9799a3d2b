// Package gemini talks to the Gemini generateContent REST endpoint.
package gemini

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"captioner/internal/captions"

	"github.com/go-resty/resty/v2"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultModel   = "gemini-1.5-flash"

	generatePath = "/v1beta/models/{model}:generateContent"
)

type Config struct {
	APIKey  string        `yaml:"api_key" env:"GEMINI_API_KEY"`
	Model   string        `yaml:"model" env:"GEMINI_MODEL" env-default:"gemini-1.5-flash"`
	BaseURL string        `yaml:"base_url" env:"GEMINI_BASE_URL" env-default:"https://generativelanguage.googleapis.com"`
	Timeout time.Duration `yaml:"timeout" env-default:"30s"`
}

type Client struct {
	http   *resty.Client
	apiKey string
	model  string
}

type (
	part struct {
		Text string `json:"text"`
	}

	content struct {
		Role  string `json:"role"`
		Parts []part `json:"parts"`
	}

	generateRequest struct {
		Contents []content `json:"contents"`
	}

	generateResponse struct {
		Candidates []struct {
			Content      content `json:"content"`
			FinishReason string  `json:"finishReason"`
		} `json:"candidates"`
	}

	errorResponse struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
)

func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json"),
		apiKey: cfg.APIKey,
		model:  model,
	}
}

// Generate sends the whole conversation and returns the text of the first
// candidate. A blocked or empty answer comes back as "".
func (c *Client) Generate(ctx context.Context, conv captions.Conversation) (string, error) {
	req := generateRequest{Contents: make([]content, 0, conv.Len())}
	for _, turn := range conv.Turns() {
		req.Contents = append(req.Contents, content{
			Role:  string(turn.Role),
			Parts: []part{{Text: turn.Text}},
		})
	}

	var out generateResponse
	var apiErr errorResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("model", c.model).
		SetQueryParam("key", c.apiKey).
		SetBody(req).
		SetResult(&out).
		SetError(&apiErr).
		Post(generatePath)
	if err != nil {
		return "", fmt.Errorf("calling gemini: %w", err)
	}

	if resp.IsError() {
		return "", classify(resp.StatusCode(), apiErr)
	}

	if len(out.Candidates) == 0 {
		return "", nil
	}

	var text strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	return text.String(), nil
}

func classify(status int, apiErr errorResponse) error {
	msg := apiErr.Error.Message
	if msg == "" {
		msg = http.StatusText(status)
	}

	switch {
	case status == http.StatusForbidden,
		apiErr.Error.Status == "PERMISSION_DENIED",
		apiErr.Error.Status == "RESOURCE_EXHAUSTED",
		captions.IsPermissionDenied(msg):
		return fmt.Errorf("%w: %s", captions.ErrQuotaExhausted, msg)
	}
	return fmt.Errorf("gemini returned status %d: %s", status, msg)
}
