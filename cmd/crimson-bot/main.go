package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kapu/crimson-wa-bot/internal/audit"
	appcfg "github.com/kapu/crimson-wa-bot/internal/config"
	"github.com/kapu/crimson-wa-bot/internal/dispatch"
	"github.com/kapu/crimson-wa-bot/internal/moderation"
	"github.com/kapu/crimson-wa-bot/internal/msgcat"
	"github.com/kapu/crimson-wa-bot/internal/obslog"
	"github.com/kapu/crimson-wa-bot/internal/persona"
	"github.com/kapu/crimson-wa-bot/internal/progress"
	"github.com/kapu/crimson-wa-bot/internal/rankcard"
	"github.com/kapu/crimson-wa-bot/internal/wagate"
	"go.uber.org/zap"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	headers := func() map[string]string {
		h := map[string]string{}
		if cfg.GateToken != "" {
			h["Authorization"] = "Bearer " + cfg.GateToken
		}
		return h
	}

	client := wagate.NewClient(cfg.GateBaseURL, wagate.WithHeaderProvider(headers))

	ws := wagate.NewWebSocket(cfg.GateWSURL, 5, time.Second)
	ws.SetHeaderProvider(headers)
	ws.OnStateChange(func(state wagate.WebSocketState) {
		logger.Info("ws_state", zap.String("state", string(state)))
	})

	catalog, err := msgcat.New(os.Getenv("MESSAGE_OVERRIDE_DIR"))
	if err != nil {
		logger.Fatal("message catalog init error", zap.Error(err))
	}

	var repo progress.Repository
	var redisRepo *progress.RedisRepository
	if cfg.RedisURL != "" {
		redisRepo, err = progress.NewRedisRepository(cfg.RedisURL)
		if err != nil {
			logger.Fatal("redis repository init error", zap.Error(err))
		}
		repo = redisRepo
	} else {
		repo = progress.NewFileRepository(cfg.XPStorePath)
	}
	store := progress.NewStore(repo, progress.WithLogger(logger))
	if err := store.Load(context.Background()); err != nil {
		logger.Fatal("progress load error", zap.Error(err))
	}

	var recorder audit.Recorder
	var auditRepo *audit.Repository
	if cfg.DatabaseURL != "" {
		auditRepo, err = audit.NewRepository(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("audit repository init error", zap.Error(err))
		}
		recorder = auditRepo
	}

	fallbackEmpty, _ := catalog.Render("persona.fallback_empty", nil)
	fallbackError, _ := catalog.Render("persona.fallback_error", nil)
	ai := persona.NewClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey,
		persona.WithModel(cfg.OpenAIModel),
		persona.WithLogger(logger),
		persona.WithFallbacks(fallbackEmpty, fallbackError),
	)

	mod := moderation.New(client, logger, recorder)

	var cards dispatch.CardRenderer
	if cfg.RankCardEnabled {
		cards = rankcard.NewRenderer()
	}

	selfID := ""
	if info, err := client.GetInfo(context.Background()); err != nil {
		logger.Warn("gateway info unavailable", zap.Error(err))
	} else {
		selfID = info.SelfID
	}

	egress := wagate.NewEgress(cfg.EgressMode, false, client, ws, logger)

	dispatcher := dispatch.New(dispatch.Dependencies{
		Transport:  &gatewayTransport{Client: client, egress: egress},
		Store:      store,
		Persona:    ai,
		Moderation: mod,
		Cards:      cards,
		Audit:      recorder,
		Catalog:    catalog,
		Logger:     logger,
		BotName:    cfg.BotName,
		Prefix:     cfg.BotPrefix,
		SelfID:     selfID,
	})

	ws.OnEvent(func(ev *wagate.Event) {
		if ev == nil {
			return
		}
		if ev.Type == wagate.EventMessage {
			if ev.Message == nil {
				return
			}
			if len(cfg.AllowedChats) > 0 && !chatAllowed(cfg.AllowedChats, ev.Message.Chat) {
				logger.Debug("ignore message", zap.String("chat", ev.Message.Chat))
				return
			}
		}
		// Avoid blocking the WS read loop
		go dispatcher.HandleEvent(context.Background(), ev)
	})

	cctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ws.Connect(cctx); err != nil {
		cancel()
		logger.Fatal("ws connect error", zap.Error(err))
	}
	cancel()
	logger.Info("crimson bot is quietly running", zap.String("prefix", cfg.BotPrefix))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	_ = ws.Close(context.Background())
	if redisRepo != nil {
		_ = redisRepo.Close()
	}
	if auditRepo != nil {
		_ = auditRepo.Close()
	}
}

// gatewayTransport routes outbound sends through the configured egress while
// fetch operations stay on the HTTP client.
type gatewayTransport struct {
	*wagate.Client
	egress wagate.Egress
}

func (t *gatewayTransport) SendText(ctx context.Context, chat, text string) error {
	return t.egress.SendText(ctx, chat, text)
}

func (t *gatewayTransport) SendMedia(ctx context.Context, chat string, media wagate.Media, opts wagate.MediaOptions) error {
	return t.egress.SendMedia(ctx, chat, media, opts)
}

func chatAllowed(allowed []string, chat string) bool {
	for _, c := range allowed {
		if c == chat {
			return true
		}
	}
	return false
}
