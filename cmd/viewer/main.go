package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/codingconcepts/env"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/sansad-av/talktime/internal/broadcast"
	"github.com/sansad-av/talktime/internal/display"
	"github.com/sansad-av/talktime/internal/local"
	"github.com/sansad-av/talktime/internal/timecodec"
	"github.com/sansad-av/talktime/internal/viewer"
)

type Config struct {
	FeedURL        string `env:"FEED_URL" default:"http://localhost:5000/api/broadcast-feed"`
	ServerURL      string `env:"SERVER_URL" default:"http://localhost:5000"`
	PollIntervalMs int    `env:"POLL_INTERVAL_MS" default:"1000"`
	TickIntervalMs int    `env:"TICK_INTERVAL_MS" default:"300"`
}

const heartbeatInterval = time.Second

func main() {
	windowID := flag.String("window", "", "follow a display window opened by the server, over its websocket")
	flag.Parse()

	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		log.Fatalf("error loading .env file: %v", err)
	}
	config := Config{}
	if err := env.Set(&config); err != nil {
		log.Fatalf("error loading config: %v", err)
	}

	ctx, close := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill, syscall.SIGTERM)
	defer close()

	clock := timecodec.RealClock{}
	tickInterval := time.Duration(config.TickIntervalMs) * time.Millisecond
	if *windowID != "" {
		if err := runLocal(ctx, clock, config.ServerURL, *windowID, tickInterval); err != nil {
			log.Fatalf("error following display window: %v", err)
		}
		return
	}

	client := viewer.NewClient(config.FeedURL, &http.Client{}, clock)
	poller := viewer.NewPoller(client, clock)
	poller.PollInterval = time.Duration(config.PollIntervalMs) * time.Millisecond
	poller.TickInterval = tickInterval
	poller.OnTick = func(state broadcast.State) {
		draw(os.Stdout, display.Render(state, clock.Now()))
	}
	fmt.Printf("POLL | Following %s\n", config.FeedURL)
	poller.Start(ctx)
	<-ctx.Done()
	poller.Stop()
}

// runLocal attaches to a display window's socket and renders whatever the server
// pushes to it, the way the projector page would
func runLocal(ctx context.Context, clock timecodec.Clock, serverURL, windowID string, tickInterval time.Duration) error {
	wsURL := strings.TrimSuffix(serverURL, "/") + "/display/" + windowID + "/ws"
	wsURL = "ws" + strings.TrimPrefix(wsURL, "http")
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return err
	}
	defer ws.Close()
	fmt.Printf("LOCAL | Connected to display window %s\n", windowID)

	d := display.New(clock)
	outbound := make(chan broadcast.MessageType, 4)
	outbound <- broadcast.MessageTypeReady

	var wg errgroup.Group
	wg.Go(func() error {
		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			var msg broadcast.Message
			if err := json.Unmarshal(data, &msg); err != nil {
				fmt.Printf("LOCAL | Ignoring malformed message: %v\n", err)
				continue
			}
			d.Receive(msg)
		}
	})
	wg.Go(func() error {
		heartbeat := time.NewTicker(heartbeatInterval)
		defer heartbeat.Stop()
		tick := time.NewTicker(tickInterval)
		defer tick.Stop()
		for {
			select {
			case <-ctx.Done():
				ws.WriteJSON(map[string]broadcast.MessageType{"type": local.MessageTypeClosing})
				return ws.Close()
			case t := <-outbound:
				if err := ws.WriteJSON(map[string]broadcast.MessageType{"type": t}); err != nil {
					return err
				}
			case <-heartbeat.C:
				if err := ws.WriteJSON(map[string]broadcast.MessageType{"type": local.MessageTypeHeartbeat}); err != nil {
					return err
				}
			case <-tick.C:
				draw(os.Stdout, display.Render(d.Current(), clock.Now()))
			}
		}
	})
	return wg.Wait()
}
