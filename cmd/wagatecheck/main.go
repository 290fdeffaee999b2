package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/kapu/crimson-wa-bot/internal/wagate"
)

func main() {
	baseURL := os.Getenv("WA_GATE_BASE_URL")
	wsURL := os.Getenv("WA_GATE_WS_URL")
	token := os.Getenv("WA_GATE_TOKEN")

	if baseURL == "" {
		log.Fatal("WA_GATE_BASE_URL is required")
	}

	headers := func() map[string]string {
		m := map[string]string{}
		if token != "" {
			m["Authorization"] = "Bearer " + token
		}
		return m
	}

	client := wagate.NewClient(baseURL,
		wagate.WithHeaderProvider(headers),
		wagate.WithTimeout(8*time.Second),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	info, err := client.GetInfo(ctx)
	if err != nil {
		log.Printf("/config error: %v", err)
	} else {
		log.Printf("/config ok: self=%s name=%q version=%s ready=%v", info.SelfID, info.SelfName, info.Version, info.Ready)
	}

	if wsURL == "" {
		log.Println("WA_GATE_WS_URL not set; skipping WS check")
		return
	}

	ws := wagate.NewWebSocket(wsURL, 5, time.Second)
	ws.SetHeaderProvider(headers)
	ws.OnStateChange(func(state wagate.WebSocketState) {
		log.Printf("WS state: %s", state)
	})
	ws.OnEvent(func(ev *wagate.Event) {
		if ev.Type == wagate.EventMessage && ev.Message != nil {
			fmt.Printf("WS msg chat=%s from=%s text=%q\n", ev.Message.Chat, ev.Message.Sender, ev.Message.Body)
			return
		}
		fmt.Printf("WS event type=%s chat=%s user=%s\n", ev.Type, ev.Chat, ev.User)
	})

	cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer ccancel()
	if err := ws.Connect(cctx); err != nil {
		log.Printf("WS connect error: %v", err)
		return
	}

	// Observe for a short window
	t := time.NewTimer(10 * time.Second)
	<-t.C

	_ = ws.Close(context.Background())
}
