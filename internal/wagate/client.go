package wagate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

// HeaderProvider allows injecting per-request headers (gateway auth tokens).
type HeaderProvider func() map[string]string

// Client talks to the WhatsApp gateway's REST surface.
type Client struct {
	baseURL string
	http    *fasthttp.Client
	headers HeaderProvider

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) { c.http.MaxConnsPerHost = n }
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(c *Client) { c.headers = h }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 30 * time.Second, WriteTimeout: 30 * time.Second, MaxConnsPerHost: 64},
		defaultTimeout: 30 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) GetInfo(ctx context.Context) (*GatewayInfo, error) {
	var info GatewayInfo
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/config", nil, &info, false); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) SendText(ctx context.Context, chat, text string) error {
	req := sendTextRequest{Chat: chat, Text: text}
	return c.doJSON(ctx, fasthttp.MethodPost, "/send", req, nil, false)
}

func (c *Client) SendMedia(ctx context.Context, chat string, media Media, opts MediaOptions) error {
	req := sendMediaRequest{
		Chat:      chat,
		Data:      media.Data,
		Mimetype:  media.Mimetype,
		Caption:   opts.Caption,
		AsSticker: opts.AsSticker,
	}
	return c.doJSON(ctx, fasthttp.MethodPost, "/media", req, nil, false)
}

// SendMentions sends text addressed at the given users so the gateway renders
// real @-mentions instead of plain text.
func (c *Client) SendMentions(ctx context.Context, chat, text string, users []string) error {
	req := sendMentionsRequest{Chat: chat, Text: text, Users: users}
	return c.doJSON(ctx, fasthttp.MethodPost, "/send/mentions", req, nil, false)
}

// DownloadMedia fetches the attachment of the given message. The gateway
// responds with base64 payloads, which can be large; downloads are not retried.
func (c *Client) DownloadMedia(ctx context.Context, messageID string) (*Media, error) {
	req := messageRefRequest{Message: messageID}
	var media Media
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/download", req, &media, false); err != nil {
		return nil, err
	}
	if strings.TrimSpace(media.Data) == "" {
		return nil, errors.New("empty media payload")
	}
	return &media, nil
}

// QuotedMessage resolves the message a given message replies to.
func (c *Client) QuotedMessage(ctx context.Context, messageID string) (*Message, error) {
	req := messageRefRequest{Message: messageID}
	var msg Message
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/quoted", req, &msg, false); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Participants lists the group members with their current admin flags.
// Called freshly on every gated command; the result is never cached.
func (c *Client) Participants(ctx context.Context, chat string) ([]Participant, error) {
	var resp participantsResponse
	path := "/participants?chat=" + url.QueryEscape(chat)
	if err := c.doJSON(ctx, fasthttp.MethodGet, path, nil, &resp, true); err != nil {
		return nil, err
	}
	return resp.Participants, nil
}

func (c *Client) MuteChat(ctx context.Context, chat string) error {
	return c.doJSON(ctx, fasthttp.MethodPost, "/group/mute", groupActionRequest{Chat: chat}, nil, false)
}

func (c *Client) UnmuteChat(ctx context.Context, chat string) error {
	return c.doJSON(ctx, fasthttp.MethodPost, "/group/unmute", groupActionRequest{Chat: chat}, nil, false)
}

func (c *Client) RemoveParticipants(ctx context.Context, chat string, users []string) error {
	return c.doJSON(ctx, fasthttp.MethodPost, "/group/remove", groupActionRequest{Chat: chat, Users: users}, nil, false)
}

func (c *Client) PromoteParticipants(ctx context.Context, chat string, users []string) error {
	return c.doJSON(ctx, fasthttp.MethodPost, "/group/promote", groupActionRequest{Chat: chat, Users: users}, nil, false)
}

func (c *Client) DemoteParticipants(ctx context.Context, chat string, users []string) error {
	return c.doJSON(ctx, fasthttp.MethodPost, "/group/demote", groupActionRequest{Chat: chat, Users: users}, nil, false)
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any, retry bool) error {
	url := c.baseURL + path
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(url)
	req.Header.SetContentType("application/json")

	if c.headers != nil {
		for k, v := range c.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				req.Header.Set(k, v)
			}
		}
	}

	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		req.SetBody(payload)
	}

	attempts := 1
	if retry {
		attempts = c.retryMax
		if attempts <= 0 {
			attempts = 1
		}
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		deadline := c.computeDeadline(ctx)
		err := c.http.DoDeadline(req, resp, deadline)
		if err != nil {
			if attempt == attempts || !retry {
				return fmt.Errorf("request failed: %w", err)
			}
			lastErr = err
			if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		status := resp.StatusCode()
		if status < 200 || status >= 300 {
			body := string(resp.Body())
			err := fmt.Errorf("gateway error: status=%d body=%s", status, truncate(body, 512))
			if attempt == attempts || !retry || !shouldRetryStatus(status) {
				return err
			}
			lastErr = err
			if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		if out != nil {
			if err := json.Unmarshal(resp.Body(), out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}
		return nil
	}

	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return lastErr
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	if dl, ok := ctx.Deadline(); ok {
		clientDL := time.Now().Add(c.defaultTimeout)
		if dl.Before(clientDL) {
			return dl
		}
		return clientDL
	}
	return time.Now().Add(c.defaultTimeout)
}

func (c *Client) sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	base := 100 * time.Millisecond
	return time.Duration(1<<uint(attempt-1)) * base // 100ms, 200ms ...
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
