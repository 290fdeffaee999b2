package moderation

import (
	"context"
	"fmt"

	"github.com/kapu/crimson-wa-bot/internal/audit"
	"github.com/kapu/crimson-wa-bot/internal/util"
	"github.com/kapu/crimson-wa-bot/internal/wagate"
	"go.uber.org/zap"
)

// Transport is the slice of the gateway the moderation actions need.
type Transport interface {
	Participants(ctx context.Context, chat string) ([]wagate.Participant, error)
	SendMentions(ctx context.Context, chat, text string, users []string) error
	MuteChat(ctx context.Context, chat string) error
	UnmuteChat(ctx context.Context, chat string) error
	RemoveParticipants(ctx context.Context, chat string, users []string) error
	PromoteParticipants(ctx context.Context, chat string, users []string) error
	DemoteParticipants(ctx context.Context, chat string, users []string) error
}

// BatchResult summarizes a per-target action batch.
type BatchResult struct {
	Total  int
	Failed int
}

// Actions forwards admin intents to the gateway. Every call is wrapped
// locally: a failed transport call is logged and reported, never allowed to
// take down the dispatch loop.
type Actions struct {
	gate     Transport
	logger   *zap.Logger
	recorder audit.Recorder // optional
}

func New(gate Transport, logger *zap.Logger, recorder audit.Recorder) *Actions {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Actions{gate: gate, logger: logger, recorder: recorder}
}

func (a *Actions) Mute(ctx context.Context, chat, actor string) error {
	err := a.gate.MuteChat(ctx, chat)
	a.finish(ctx, "mute", chat, actor, "", err)
	return err
}

func (a *Actions) Unmute(ctx context.Context, chat, actor string) error {
	err := a.gate.UnmuteChat(ctx, chat)
	a.finish(ctx, "unmute", chat, actor, "", err)
	return err
}

// TagAll broadcasts a message mentioning every participant of the group.
func (a *Actions) TagAll(ctx context.Context, chat, actor, header string) error {
	parts, err := a.gate.Participants(ctx, chat)
	if err != nil {
		a.finish(ctx, "tagall", chat, actor, "", err)
		return fmt.Errorf("list participants: %w", err)
	}
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		ids = append(ids, p.ID)
	}
	text := header + "\n" + util.MentionLine(ids)
	err = a.gate.SendMentions(ctx, chat, text, ids)
	a.finish(ctx, "tagall", chat, actor, "", err)
	if err != nil {
		return fmt.Errorf("send tagall: %w", err)
	}
	return nil
}

// Kick removes each mentioned target independently; one refusal does not
// abort the rest.
func (a *Actions) Kick(ctx context.Context, chat, actor string, targets []string) BatchResult {
	return a.forEachTarget(ctx, "kick", chat, actor, targets, a.gate.RemoveParticipants)
}

func (a *Actions) Promote(ctx context.Context, chat, actor string, targets []string) BatchResult {
	return a.forEachTarget(ctx, "promote", chat, actor, targets, a.gate.PromoteParticipants)
}

func (a *Actions) Demote(ctx context.Context, chat, actor string, targets []string) BatchResult {
	return a.forEachTarget(ctx, "demote", chat, actor, targets, a.gate.DemoteParticipants)
}

func (a *Actions) forEachTarget(ctx context.Context, action, chat, actor string, targets []string, call func(context.Context, string, []string) error) BatchResult {
	res := BatchResult{Total: len(targets)}
	for _, target := range targets {
		err := call(ctx, chat, []string{target})
		a.finish(ctx, action, chat, actor, target, err)
		if err != nil {
			res.Failed++
		}
	}
	return res
}

func (a *Actions) finish(ctx context.Context, action, chat, actor, target string, err error) {
	if err != nil {
		a.logger.Warn("moderation_action_failed",
			zap.String("action", action),
			zap.String("chat", chat),
			zap.String("actor", actor),
			zap.String("target", target),
			zap.Error(err))
	}
	if a.recorder == nil {
		return
	}
	entry := audit.Entry{Kind: action, Chat: chat, Actor: actor, Target: target, OK: err == nil}
	if err != nil {
		entry.Detail = err.Error()
	}
	if rerr := a.recorder.Record(ctx, entry); rerr != nil {
		a.logger.Warn("audit_record_failed", zap.String("action", action), zap.Error(rerr))
	}
}
