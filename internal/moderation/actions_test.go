package moderation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kapu/crimson-wa-bot/internal/wagate"
)

type fakeGate struct {
	participants []wagate.Participant
	failFor      map[string]bool // target JID → fail
	removed      []string
	promoted     []string
	demoted      []string
	mentionsText string
	mentionsTo   []string
	muted        bool
	unmuted      bool
}

func (f *fakeGate) Participants(ctx context.Context, chat string) ([]wagate.Participant, error) {
	return f.participants, nil
}

func (f *fakeGate) SendMentions(ctx context.Context, chat, text string, users []string) error {
	f.mentionsText = text
	f.mentionsTo = users
	return nil
}

func (f *fakeGate) MuteChat(ctx context.Context, chat string) error {
	f.muted = true
	return nil
}

func (f *fakeGate) UnmuteChat(ctx context.Context, chat string) error {
	f.unmuted = true
	return nil
}

func (f *fakeGate) op(users []string, sink *[]string) error {
	for _, u := range users {
		if f.failFor[u] {
			return errors.New("rejected by gateway")
		}
		*sink = append(*sink, u)
	}
	return nil
}

func (f *fakeGate) RemoveParticipants(ctx context.Context, chat string, users []string) error {
	return f.op(users, &f.removed)
}

func (f *fakeGate) PromoteParticipants(ctx context.Context, chat string, users []string) error {
	return f.op(users, &f.promoted)
}

func (f *fakeGate) DemoteParticipants(ctx context.Context, chat string, users []string) error {
	return f.op(users, &f.demoted)
}

func TestKickPartialFailureContinues(t *testing.T) {
	gate := &fakeGate{failFor: map[string]bool{"b@c.us": true}}
	a := New(gate, nil, nil)

	res := a.Kick(context.Background(), "g1", "admin@c.us", []string{"a@c.us", "b@c.us", "c@c.us"})
	if res.Total != 3 || res.Failed != 1 {
		t.Fatalf("unexpected batch result: %+v", res)
	}
	if len(gate.removed) != 2 {
		t.Fatalf("expected 2 removals despite failure, got %v", gate.removed)
	}
}

func TestTagAllMentionsEveryParticipant(t *testing.T) {
	gate := &fakeGate{participants: []wagate.Participant{
		{ID: "a@c.us"}, {ID: "b@c.us"}, {ID: "admin@c.us", IsAdmin: true},
	}}
	a := New(gate, nil, nil)

	if err := a.TagAll(context.Background(), "g1", "admin@c.us", "hey"); err != nil {
		t.Fatalf("TagAll: %v", err)
	}
	if len(gate.mentionsTo) != 3 {
		t.Fatalf("expected 3 mention targets, got %v", gate.mentionsTo)
	}
	for _, tag := range []string{"@a", "@b", "@admin"} {
		if !strings.Contains(gate.mentionsText, tag) {
			t.Fatalf("mention text missing %s: %q", tag, gate.mentionsText)
		}
	}
}

func TestMuteUnmute(t *testing.T) {
	gate := &fakeGate{}
	a := New(gate, nil, nil)
	if err := a.Mute(context.Background(), "g1", "admin@c.us"); err != nil || !gate.muted {
		t.Fatalf("Mute: err=%v muted=%v", err, gate.muted)
	}
	if err := a.Unmute(context.Background(), "g1", "admin@c.us"); err != nil || !gate.unmuted {
		t.Fatalf("Unmute: err=%v unmuted=%v", err, gate.unmuted)
	}
}
