package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
)

type AppConfig struct {
	GateBaseURL string
	GateWSURL   string
	GateToken   string

	BotPrefix string
	BotName   string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	XPStorePath string
	RedisURL    string
	DatabaseURL string

	EgressMode   string
	AllowedChats []string

	RankCardEnabled bool
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		BotPrefix:       ".",
		BotName:         "kurimuzon",
		OpenAIBaseURL:   "https://api.openai.com",
		OpenAIModel:     "gpt-3.5-turbo",
		XPStorePath:     "xp.json",
		EgressMode:      "http",
		RankCardEnabled: true,
	}

	cfg.GateBaseURL = strings.TrimSpace(os.Getenv("WA_GATE_BASE_URL"))
	cfg.GateWSURL = strings.TrimSpace(os.Getenv("WA_GATE_WS_URL"))
	cfg.GateToken = strings.TrimSpace(os.Getenv("WA_GATE_TOKEN"))

	if v := strings.TrimSpace(os.Getenv("BOT_PREFIX")); v != "" {
		cfg.BotPrefix = v
	}
	if v := strings.TrimSpace(os.Getenv("BOT_NAME")); v != "" {
		cfg.BotName = v
	}

	cfg.OpenAIAPIKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if v := strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")); v != "" {
		cfg.OpenAIBaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("OPENAI_MODEL")); v != "" {
		cfg.OpenAIModel = v
	}

	if v := strings.TrimSpace(os.Getenv("XP_STORE_PATH")); v != "" {
		cfg.XPStorePath = v
	}
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))

	if v := strings.ToLower(strings.TrimSpace(os.Getenv("EGRESS_MODE"))); v != "" {
		switch v {
		case "http", "ws", "auto":
			cfg.EgressMode = v
		}
	}

	if v := strings.TrimSpace(os.Getenv("ALLOWED_CHATS")); v != "" {
		parts := strings.Split(v, ",")
		for _, p := range parts {
			s := strings.TrimSpace(p)
			if s != "" {
				cfg.AllowedChats = append(cfg.AllowedChats, s)
			}
		}
	}

	if v := strings.TrimSpace(os.Getenv("RANK_CARD")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.RankCardEnabled = b
		}
	}

	if cfg.GateBaseURL == "" {
		return nil, errors.New("WA_GATE_BASE_URL is required")
	}
	if cfg.GateWSURL == "" {
		return nil, errors.New("WA_GATE_WS_URL is required")
	}
	if cfg.OpenAIAPIKey == "" {
		return nil, errors.New("OPENAI_API_KEY is required")
	}

	return cfg, nil
}
