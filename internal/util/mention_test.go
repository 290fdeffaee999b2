package util

import "testing"

func TestMentionTag(t *testing.T) {
	if got := MentionTag("4915112345678@c.us"); got != "@4915112345678" {
		t.Fatalf("unexpected tag: %q", got)
	}
	if got := MentionTag("bare"); got != "@bare" {
		t.Fatalf("unexpected tag for bare handle: %q", got)
	}
}

func TestMentionLine(t *testing.T) {
	got := MentionLine([]string{"a@c.us", "", "b@c.us"})
	if got != "@a @b" {
		t.Fatalf("unexpected line: %q", got)
	}
}

func TestStripCommandToken(t *testing.T) {
	if got := StripCommandToken(".crimson  tell me a story ", ".crimson"); got != "tell me a story" {
		t.Fatalf("unexpected remainder: %q", got)
	}
	if got := StripCommandToken("no prefix here", ".crimson"); got != "no prefix here" {
		t.Fatalf("body without token should pass through, got %q", got)
	}
}
