package persona

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// SystemPrompt is the fixed persona instruction sent with every request.
const SystemPrompt = "You are Kurimuzon♦️, a shy, nerdy, introverted AI with deep intelligence and awkward charm. " +
	"You prefer books, anime, and coding over loud crowds. You talk like a soft-spoken genius with occasional stutters, " +
	"but you're deeply kind and thoughtful."

// Client proxies prompts to an OpenAI-compatible chat-completions endpoint.
// It never surfaces errors: any failure degrades to a fixed fallback line.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *fasthttp.Client
	timeout time.Duration
	logger  *zap.Logger

	fallbackEmpty string
	fallbackError string
}

type Option func(*Client)

func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithFallbacks overrides the canned replies used when the service misbehaves.
func WithFallbacks(empty, failure string) Option {
	return func(c *Client) {
		if strings.TrimSpace(empty) != "" {
			c.fallbackEmpty = empty
		}
		if strings.TrimSpace(failure) != "" {
			c.fallbackError = failure
		}
	}
}

func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		apiKey:        apiKey,
		model:         "gpt-3.5-turbo",
		http:          &fasthttp.Client{ReadTimeout: 90 * time.Second, WriteTimeout: 30 * time.Second},
		timeout:       90 * time.Second,
		logger:        zap.NewNop(),
		fallbackEmpty: "U-uhm... I can't think right now...",
		fallbackError: "S-sorry... something went wrong...",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// GenerateReply sends one request and returns the generated text, or a
// fallback line on any failure. It never returns an error.
func (c *Client) GenerateReply(ctx context.Context, prompt string) string {
	reply, err := c.chat(ctx, prompt)
	if err != nil {
		c.logger.Warn("persona_request_failed", zap.Error(err))
		return c.fallbackError
	}
	if strings.TrimSpace(reply) == "" {
		return c.fallbackEmpty
	}
	return reply
}

func (c *Client) chat(ctx context.Context, prompt string) (string, error) {
	body := chatCompletionRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: prompt},
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI(c.baseURL + "/v1/chat/completions")
	req.Header.SetContentType("application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.SetBody(payload)

	deadline := time.Now().Add(c.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}

	return parseChatResponse(resp.StatusCode(), resp.Body())
}

func parseChatResponse(status int, body []byte) (string, error) {
	var decoded chatCompletionResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("decode response: status=%d: %w", status, err)
	}
	if decoded.Error != nil {
		return "", fmt.Errorf("api error: status=%d type=%s message=%s", status, decoded.Error.Type, decoded.Error.Message)
	}
	if status < 200 || status >= 300 {
		return "", fmt.Errorf("api error: status=%d", status)
	}
	if len(decoded.Choices) == 0 {
		return "", nil
	}
	return decoded.Choices[0].Message.Content, nil
}
