package dispatch

import (
	"context"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/kapu/crimson-wa-bot/internal/audit"
	"github.com/kapu/crimson-wa-bot/internal/moderation"
	"github.com/kapu/crimson-wa-bot/internal/msgcat"
	"github.com/kapu/crimson-wa-bot/internal/progress"
	"github.com/kapu/crimson-wa-bot/internal/rankcard"
	"github.com/kapu/crimson-wa-bot/internal/util"
	"github.com/kapu/crimson-wa-bot/internal/wagate"
	"go.uber.org/zap"
)

// XP awarded for any plain (non-command) message.
const chatterReward = 5

// Transport is the slice of the gateway the dispatcher needs directly.
type Transport interface {
	SendText(ctx context.Context, chat, text string) error
	SendMedia(ctx context.Context, chat string, media wagate.Media, opts wagate.MediaOptions) error
	DownloadMedia(ctx context.Context, messageID string) (*wagate.Media, error)
	QuotedMessage(ctx context.Context, messageID string) (*wagate.Message, error)
	Participants(ctx context.Context, chat string) ([]wagate.Participant, error)
}

// ReplyGenerator produces a persona reply; it never fails, only degrades.
type ReplyGenerator interface {
	GenerateReply(ctx context.Context, prompt string) string
}

// Moderator forwards permission-gated group actions.
type Moderator interface {
	Mute(ctx context.Context, chat, actor string) error
	Unmute(ctx context.Context, chat, actor string) error
	TagAll(ctx context.Context, chat, actor, header string) error
	Kick(ctx context.Context, chat, actor string, targets []string) moderation.BatchResult
	Promote(ctx context.Context, chat, actor string, targets []string) moderation.BatchResult
	Demote(ctx context.Context, chat, actor string, targets []string) moderation.BatchResult
}

// CardRenderer draws the profile rank card.
type CardRenderer interface {
	RenderPNG(ctx context.Context, card rankcard.Card) ([]byte, error)
}

// Dependencies wires the dispatcher's collaborators.
type Dependencies struct {
	Transport  Transport
	Store      *progress.Store
	Persona    ReplyGenerator
	Moderation Moderator
	Cards      CardRenderer   // optional
	Audit      audit.Recorder // optional
	Catalog    *msgcat.Catalog
	Logger     *zap.Logger

	BotName string // textual mention trigger, matched case-insensitively
	Prefix  string // command prefix
	SelfID  string // bot's own JID, matched against mention lists
}

// inbound is one message plus its precomputed views.
type inbound struct {
	msg   *wagate.Message
	body  string
	lower string
}

// rule is one predicate/handler pair. Rules run top-to-bottom; a matching
// terminal rule ends the pass, non-terminal rules let later rules fire too.
type rule struct {
	name     string
	terminal bool
	match    func(in *inbound) bool
	handle   func(ctx context.Context, log *zap.Logger, in *inbound)
}

type Dispatcher struct {
	deps  Dependencies
	rules []rule
}

func New(deps Dependencies) *Dispatcher {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Prefix == "" {
		deps.Prefix = "."
	}
	d := &Dispatcher{deps: deps}
	d.rules = d.buildRules()
	return d
}

// HandleEvent routes one gateway event.
func (d *Dispatcher) HandleEvent(ctx context.Context, ev *wagate.Event) {
	if ev == nil {
		return
	}
	switch ev.Type {
	case wagate.EventMessage:
		d.HandleMessage(ctx, ev.Message)
	case wagate.EventGroupJoin:
		d.greet(ctx, ev, "group.welcome")
	case wagate.EventGroupLeave:
		d.greet(ctx, ev, "group.farewell")
	}
}

// HandleMessage runs the rule table over one inbound message.
func (d *Dispatcher) HandleMessage(ctx context.Context, m *wagate.Message) {
	if m == nil {
		return
	}
	in := &inbound{
		msg:   m,
		body:  strings.TrimSpace(m.Body),
		lower: strings.ToLower(strings.TrimSpace(m.Body)),
	}
	log := d.deps.Logger.With(
		zap.String("trace", uuid.NewString()[:8]),
		zap.String("chat", m.Chat),
		zap.String("sender", m.Sender),
	)
	for _, r := range d.rules {
		if !r.match(in) {
			continue
		}
		log.Debug("rule_matched", zap.String("rule", r.name))
		r.handle(ctx, log, in)
		if r.terminal {
			return
		}
	}
}

func (d *Dispatcher) buildRules() []rule {
	p := d.deps.Prefix
	return []rule{
		{
			name: "award_xp",
			match: func(in *inbound) bool {
				return !strings.HasPrefix(in.body, p)
			},
			handle: d.awardChatterXP,
		},
		{
			name:     "mention_reply",
			terminal: true,
			match: func(in *inbound) bool {
				return d.isMentioned(in) && !strings.HasPrefix(in.body, p)
			},
			handle: d.mentionReply,
		},
		{
			name:     "viewonce_reveal",
			terminal: true,
			match: func(in *inbound) bool {
				return in.msg.HasMedia && in.msg.IsViewOnce
			},
			handle: d.revealViewOnce,
		},
		{
			name:     "sticker",
			terminal: true,
			match: func(in *inbound) bool {
				return in.msg.HasMedia && in.body == p+"sticker"
			},
			handle: d.makeSticker,
		},
		{
			name:     "toimage",
			terminal: true,
			match: func(in *inbound) bool {
				return in.body == p+"toimage" && in.msg.QuotedID != ""
			},
			handle: d.stickerToImage,
		},
		{
			name:     "profile",
			terminal: true,
			match: func(in *inbound) bool {
				return in.body == p+"profile"
			},
			handle: d.sendProfile,
		},
		{
			name:     "crimson",
			terminal: true,
			match: func(in *inbound) bool {
				return strings.HasPrefix(in.body, p+"crimson")
			},
			handle: d.crimsonChat,
		},
		{
			name:     "game",
			terminal: true,
			match: func(in *inbound) bool {
				return in.body == p+"game"
			},
			handle: d.startGame,
		},
		{
			name:     "guess",
			terminal: true,
			match: func(in *inbound) bool {
				return strings.HasPrefix(in.body, p+"guess")
			},
			handle: d.resolveGuess,
		},
		{
			name:     "tagall",
			terminal: true,
			match: func(in *inbound) bool {
				return in.body == p+"tagall"
			},
			handle: d.adminGated("tagall", func(ctx context.Context, log *zap.Logger, in *inbound) {
				header := d.text(log, "group.tagall_header", nil)
				if err := d.deps.Moderation.TagAll(ctx, in.msg.Chat, in.msg.Sender, header); err != nil {
					d.send(ctx, log, in.msg.Chat, d.text(log, "group.action_failed", map[string]any{"Action": "tagall"}))
				}
			}),
		},
		{
			name:     "mute",
			terminal: true,
			match: func(in *inbound) bool {
				return in.body == p+"mute"
			},
			handle: d.adminGated("mute", func(ctx context.Context, log *zap.Logger, in *inbound) {
				if err := d.deps.Moderation.Mute(ctx, in.msg.Chat, in.msg.Sender); err != nil {
					d.send(ctx, log, in.msg.Chat, d.text(log, "group.action_failed", map[string]any{"Action": "mute"}))
					return
				}
				d.send(ctx, log, in.msg.Chat, d.text(log, "group.muted", nil))
			}),
		},
		{
			name:     "unmute",
			terminal: true,
			match: func(in *inbound) bool {
				return in.body == p+"unmute"
			},
			handle: d.adminGated("unmute", func(ctx context.Context, log *zap.Logger, in *inbound) {
				if err := d.deps.Moderation.Unmute(ctx, in.msg.Chat, in.msg.Sender); err != nil {
					d.send(ctx, log, in.msg.Chat, d.text(log, "group.action_failed", map[string]any{"Action": "unmute"}))
					return
				}
				d.send(ctx, log, in.msg.Chat, d.text(log, "group.unmuted", nil))
			}),
		},
		{
			name:     "kick",
			terminal: true,
			match: func(in *inbound) bool {
				return strings.HasPrefix(in.body, p+"kick")
			},
			handle: d.adminGated("kick", d.targetBatch(func(ctx context.Context, in *inbound) moderation.BatchResult {
				return d.deps.Moderation.Kick(ctx, in.msg.Chat, in.msg.Sender, in.msg.Mentions)
			})),
		},
		{
			name:     "promote",
			terminal: true,
			match: func(in *inbound) bool {
				return strings.HasPrefix(in.body, p+"promote")
			},
			handle: d.adminGated("promote", d.targetBatch(func(ctx context.Context, in *inbound) moderation.BatchResult {
				return d.deps.Moderation.Promote(ctx, in.msg.Chat, in.msg.Sender, in.msg.Mentions)
			})),
		},
		{
			name:     "demote",
			terminal: true,
			match: func(in *inbound) bool {
				return strings.HasPrefix(in.body, p+"demote")
			},
			handle: d.adminGated("demote", d.targetBatch(func(ctx context.Context, in *inbound) moderation.BatchResult {
				return d.deps.Moderation.Demote(ctx, in.msg.Chat, in.msg.Sender, in.msg.Mentions)
			})),
		},
	}
}

func (d *Dispatcher) isMentioned(in *inbound) bool {
	if d.deps.SelfID != "" {
		for _, id := range in.msg.Mentions {
			if id == d.deps.SelfID {
				return true
			}
		}
	}
	name := strings.ToLower(strings.TrimSpace(d.deps.BotName))
	return name != "" && strings.Contains(in.lower, name)
}

func (d *Dispatcher) awardChatterXP(ctx context.Context, log *zap.Logger, in *inbound) {
	res, err := d.deps.Store.AddExperience(ctx, in.msg.Sender, chatterReward)
	if err != nil {
		log.Warn("xp_award_failed", zap.Error(err))
	}
	if res.LeveledUp {
		d.announceLevelUp(ctx, log, in.msg.Chat, in.msg.Sender, res.Level)
	}
}

func (d *Dispatcher) announceLevelUp(ctx context.Context, log *zap.Logger, chat, user string, level int) {
	d.send(ctx, log, chat, d.text(log, "progress.levelup", map[string]any{"Level": level}))
	if d.deps.Audit != nil {
		e := audit.Entry{Kind: "levelup", Chat: chat, Actor: user, Detail: strconv.Itoa(level), OK: true}
		if err := d.deps.Audit.Record(ctx, e); err != nil {
			log.Warn("audit_record_failed", zap.Error(err))
		}
	}
}

func (d *Dispatcher) mentionReply(ctx context.Context, log *zap.Logger, in *inbound) {
	reply := d.deps.Persona.GenerateReply(ctx, in.body)
	d.send(ctx, log, in.msg.Chat, d.text(log, "persona.reply", map[string]any{"Reply": reply}))
}

func (d *Dispatcher) revealViewOnce(ctx context.Context, log *zap.Logger, in *inbound) {
	media, err := d.deps.Transport.DownloadMedia(ctx, in.msg.ID)
	if err != nil {
		// failed download short-circuits the reveal; nothing is sent
		log.Warn("viewonce_download_failed", zap.Error(err))
		return
	}
	opts := wagate.MediaOptions{Caption: d.text(log, "media.viewonce_caption", nil)}
	if err := d.deps.Transport.SendMedia(ctx, in.msg.Chat, *media, opts); err != nil {
		log.Warn("viewonce_send_failed", zap.Error(err))
	}
}

func (d *Dispatcher) makeSticker(ctx context.Context, log *zap.Logger, in *inbound) {
	media, err := d.deps.Transport.DownloadMedia(ctx, in.msg.ID)
	if err != nil {
		log.Warn("sticker_download_failed", zap.Error(err))
		return
	}
	if err := d.deps.Transport.SendMedia(ctx, in.msg.Chat, *media, wagate.MediaOptions{AsSticker: true}); err != nil {
		log.Warn("sticker_send_failed", zap.Error(err))
	}
}

func (d *Dispatcher) stickerToImage(ctx context.Context, log *zap.Logger, in *inbound) {
	quoted, err := d.deps.Transport.QuotedMessage(ctx, in.msg.ID)
	if err != nil {
		log.Warn("quoted_fetch_failed", zap.Error(err))
		return
	}
	if quoted == nil || quoted.MediaType != "sticker" {
		return
	}
	media, err := d.deps.Transport.DownloadMedia(ctx, quoted.ID)
	if err != nil {
		log.Warn("toimage_download_failed", zap.Error(err))
		return
	}
	opts := wagate.MediaOptions{Caption: d.text(log, "media.toimage_caption", nil)}
	if err := d.deps.Transport.SendMedia(ctx, in.msg.Chat, *media, opts); err != nil {
		log.Warn("toimage_send_failed", zap.Error(err))
	}
}

func (d *Dispatcher) sendProfile(ctx context.Context, log *zap.Logger, in *inbound) {
	snap := d.deps.Store.Profile(ctx, in.msg.Sender)
	caption := d.text(log, "progress.profile", map[string]any{"Level": snap.Level, "Experience": snap.Experience})

	if d.deps.Cards != nil {
		name := in.msg.SenderName
		if strings.TrimSpace(name) == "" {
			name = util.Handle(in.msg.Sender)
		}
		card := rankcard.Card{Name: name, Level: snap.Level, Experience: snap.Experience}
		if data, err := d.deps.Cards.RenderPNG(ctx, card); err == nil {
			media := wagate.Media{Data: base64.StdEncoding.EncodeToString(data), Mimetype: "image/png"}
			if err := d.deps.Transport.SendMedia(ctx, in.msg.Chat, media, wagate.MediaOptions{Caption: caption}); err == nil {
				return
			}
			log.Warn("profile_card_send_failed")
		} else {
			log.Warn("profile_card_render_failed", zap.Error(err))
		}
	}
	d.send(ctx, log, in.msg.Chat, caption)
}

func (d *Dispatcher) crimsonChat(ctx context.Context, log *zap.Logger, in *inbound) {
	prompt := util.StripCommandToken(in.body, d.deps.Prefix+"crimson")
	reply := d.deps.Persona.GenerateReply(ctx, prompt)
	d.send(ctx, log, in.msg.Chat, d.text(log, "persona.reply", map[string]any{"Reply": reply}))
}

func (d *Dispatcher) startGame(ctx context.Context, log *zap.Logger, in *inbound) {
	if err := d.deps.Store.StartGame(ctx, in.msg.Sender); err != nil {
		log.Warn("game_start_failed", zap.Error(err))
	}
	d.send(ctx, log, in.msg.Chat, d.text(log, "game.prompt", map[string]any{"Prefix": d.deps.Prefix}))
}

func (d *Dispatcher) resolveGuess(ctx context.Context, log *zap.Logger, in *inbound) {
	parts := strings.Fields(in.body)
	if len(parts) < 2 {
		d.send(ctx, log, in.msg.Chat, d.text(log, "game.guess_usage", map[string]any{"Prefix": d.deps.Prefix}))
		return
	}
	guess, err := strconv.Atoi(parts[1])
	if err != nil {
		d.send(ctx, log, in.msg.Chat, d.text(log, "game.guess_usage", map[string]any{"Prefix": d.deps.Prefix}))
		return
	}

	res, err := d.deps.Store.ResolveGuess(ctx, in.msg.Sender, guess)
	if errors.Is(err, progress.ErrNoActiveGame) {
		d.send(ctx, log, in.msg.Chat, d.text(log, "game.no_active", map[string]any{"Prefix": d.deps.Prefix}))
		return
	}
	if err != nil {
		log.Warn("guess_resolve_failed", zap.Error(err))
	}
	if res.Correct {
		d.send(ctx, log, in.msg.Chat, d.text(log, "game.guess_correct", nil))
		if res.Grant.LeveledUp {
			d.announceLevelUp(ctx, log, in.msg.Chat, in.msg.Sender, res.Grant.Level)
		}
		return
	}
	d.send(ctx, log, in.msg.Chat, d.text(log, "game.guess_wrong", map[string]any{"Number": res.Number}))
}

// adminGated wraps a handler with the per-message admin freshness check:
// group chat only, sender must currently be admin. A failed gate performs no
// action and sends no reply.
func (d *Dispatcher) adminGated(name string, h func(ctx context.Context, log *zap.Logger, in *inbound)) func(ctx context.Context, log *zap.Logger, in *inbound) {
	return func(ctx context.Context, log *zap.Logger, in *inbound) {
		if !in.msg.IsGroup {
			return
		}
		parts, err := d.deps.Transport.Participants(ctx, in.msg.Chat)
		if err != nil {
			log.Warn("admin_gate_lookup_failed", zap.String("command", name), zap.Error(err))
			return
		}
		for _, p := range parts {
			if p.ID == in.msg.Sender {
				if p.IsAdmin {
					h(ctx, log, in)
				}
				return
			}
		}
	}
}

func (d *Dispatcher) targetBatch(run func(ctx context.Context, in *inbound) moderation.BatchResult) func(ctx context.Context, log *zap.Logger, in *inbound) {
	return func(ctx context.Context, log *zap.Logger, in *inbound) {
		if len(in.msg.Mentions) == 0 {
			return
		}
		res := run(ctx, in)
		if res.Failed > 0 {
			d.send(ctx, log, in.msg.Chat, d.text(log, "group.action_partial", map[string]any{"Failed": res.Failed, "Total": res.Total}))
		}
	}
}

func (d *Dispatcher) greet(ctx context.Context, ev *wagate.Event, key string) {
	name := strings.TrimSpace(ev.UserName)
	if name == "" {
		name = util.Handle(ev.User)
	}
	log := d.deps.Logger.With(zap.String("chat", ev.Chat))
	d.send(ctx, log, ev.Chat, d.text(log, key, map[string]any{"Name": name}))
}

func (d *Dispatcher) text(log *zap.Logger, key string, data any) string {
	s, err := d.deps.Catalog.Render(key, data)
	if err != nil {
		log.Warn("msgcat_render_failed", zap.String("key", key), zap.Error(err))
		return ""
	}
	return s
}

func (d *Dispatcher) send(ctx context.Context, log *zap.Logger, chat, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	if err := d.deps.Transport.SendText(ctx, chat, text); err != nil {
		log.Warn("send_failed", zap.Error(err))
	}
}
