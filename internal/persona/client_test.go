package persona

import (
	"context"
	"testing"
)

func TestParseChatResponseContent(t *testing.T) {
	body := []byte(`{"choices":[{"message":{"content":"h-hello there"}}]}`)
	got, err := parseChatResponse(200, body)
	if err != nil {
		t.Fatalf("parseChatResponse: %v", err)
	}
	if got != "h-hello there" {
		t.Fatalf("unexpected content: %q", got)
	}
}

func TestParseChatResponseMissingChoices(t *testing.T) {
	got, err := parseChatResponse(200, []byte(`{"choices":[]}`))
	if err != nil {
		t.Fatalf("parseChatResponse: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty content, got %q", got)
	}
}

func TestParseChatResponseAPIError(t *testing.T) {
	body := []byte(`{"error":{"message":"quota","type":"insufficient_quota"}}`)
	if _, err := parseChatResponse(429, body); err == nil {
		t.Fatalf("expected error for API error payload")
	}
}

func TestParseChatResponseMalformed(t *testing.T) {
	if _, err := parseChatResponse(200, []byte("not json")); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestGenerateReplyFallsBackOnTransportError(t *testing.T) {
	// no server listens here
	c := NewClient("http://127.0.0.1:1", "test-key", WithFallbacks("empty...", "broken..."))
	got := c.GenerateReply(context.Background(), "hi")
	if got != "broken..." {
		t.Fatalf("expected error fallback, got %q", got)
	}
}
