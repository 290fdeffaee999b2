package wagate

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket/wsjson"
)

// Egress abstracts outbound text/media over HTTP or WebSocket.
type Egress interface {
	SendText(ctx context.Context, chat, text string) error
	SendMedia(ctx context.Context, chat string, media Media, opts MediaOptions) error
}

type transportMode string

const (
	transportHTTP transportMode = "http"
	transportWS   transportMode = "ws"
	transportAuto transportMode = "auto"
)

// NewEgress creates an Egress based on mode. When mode is auto, WS is preferred
// while connected; on WS failure, it falls back to HTTP once.
func NewEgress(mode string, dryrun bool, c *Client, ws *WebSocket, logger *zap.Logger) Egress {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := transportMode(mode)
	switch m {
	case transportWS:
		return &wsEgress{ws: ws, dryrun: dryrun, logger: logger}
	case transportAuto:
		return &autoEgress{ws: &wsEgress{ws: ws, dryrun: dryrun, logger: logger}, http: &httpEgress{c: c}, logger: logger}
	default:
		return &httpEgress{c: c}
	}
}

type httpEgress struct{ c *Client }

func (h *httpEgress) SendText(ctx context.Context, chat, text string) error {
	if h == nil || h.c == nil {
		return errors.New("http egress not available")
	}
	return h.c.SendText(ctx, chat, text)
}

func (h *httpEgress) SendMedia(ctx context.Context, chat string, media Media, opts MediaOptions) error {
	if h == nil || h.c == nil {
		return errors.New("http egress not available")
	}
	return h.c.SendMedia(ctx, chat, media, opts)
}

// wsEgress writes outbound frames over the event WebSocket.
type wsEgress struct {
	ws     *WebSocket
	dryrun bool
	logger *zap.Logger
}

type wsSendFrame struct {
	Type      string `json:"type"`
	Chat      string `json:"chat"`
	Text      string `json:"text,omitempty"`
	Data      string `json:"data,omitempty"`
	Mimetype  string `json:"mimetype,omitempty"`
	Caption   string `json:"caption,omitempty"`
	AsSticker bool   `json:"asSticker,omitempty"`
}

func (w *wsEgress) SendText(ctx context.Context, chat, text string) error {
	if w == nil || w.ws == nil {
		return errors.New("ws egress not available")
	}
	if w.dryrun {
		w.logger.Info("ws_egress_dryrun", zap.String("type", "text"), zap.String("chat", chat))
		return nil
	}
	return w.writeJSON(ctx, &wsSendFrame{Type: "text", Chat: chat, Text: text})
}

func (w *wsEgress) SendMedia(ctx context.Context, chat string, media Media, opts MediaOptions) error {
	if w == nil || w.ws == nil {
		return errors.New("ws egress not available")
	}
	if w.dryrun {
		w.logger.Info("ws_egress_dryrun", zap.String("type", "media"), zap.String("chat", chat))
		return nil
	}
	frame := &wsSendFrame{Type: "media", Chat: chat, Data: media.Data, Mimetype: media.Mimetype, Caption: opts.Caption, AsSticker: opts.AsSticker}
	return w.writeJSON(ctx, frame)
}

func (w *wsEgress) writeJSON(ctx context.Context, v any) error {
	if w.ws.conn == nil || w.ws.state != WSStateConnected {
		return errors.New("ws not connected")
	}
	dctx := ctx
	if _, ok := ctx.Deadline(); !ok {
		// bounded deadline to prevent indefinite blocking
		var cancel context.CancelFunc
		dctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}
	// wsjson.Write is not concurrency-safe; call sites are sequential per message.
	return wsjson.Write(dctx, w.ws.conn, v)
}

// autoEgress prefers WS if available, with single fallback to HTTP.
type autoEgress struct {
	ws     *wsEgress
	http   *httpEgress
	logger *zap.Logger
}

func (a *autoEgress) SendText(ctx context.Context, chat, text string) error {
	if a.ws != nil && a.ws.ws != nil && a.ws.ws.conn != nil && a.ws.ws.state == WSStateConnected {
		if err := a.ws.SendText(ctx, chat, text); err == nil {
			return nil
		}
		a.logger.Warn("egress_fallback", zap.String("type", "text"), zap.String("chat", chat))
	}
	return a.http.SendText(ctx, chat, text)
}

func (a *autoEgress) SendMedia(ctx context.Context, chat string, media Media, opts MediaOptions) error {
	if a.ws != nil && a.ws.ws != nil && a.ws.ws.conn != nil && a.ws.ws.state == WSStateConnected {
		if err := a.ws.SendMedia(ctx, chat, media, opts); err == nil {
			return nil
		}
		a.logger.Warn("egress_fallback", zap.String("type", "media"), zap.String("chat", chat))
	}
	return a.http.SendMedia(ctx, chat, media, opts)
}
