/*
Package main
File: main.go
Description: Server entry point. Loads the level catalog, starts the real-time
WebSocket hub, and runs the frame loop that keeps the metro moving.
*/

package main

import (
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/everforgeworks/metro-lines/internal/api"
	"github.com/everforgeworks/metro-lines/internal/game"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the server config")
	flag.Parse()

	// 1. Load tuning and level content
	cfg, err := LoadAppConfig(*configPath)
	if err != nil {
		log.Fatalf("Config Fail: %v", err)
	}
	catalog, err := game.LoadLevels(cfg.LevelsPath)
	if err != nil {
		log.Fatalf("Levels Fail: %v", err)
	}
	log.Printf("Loaded %d levels from %s", len(catalog.Levels), cfg.LevelsPath)

	// 2. Initialize and start the Real-Time WebSocket Hub
	hub := api.NewHub()
	go hub.Run()

	// 3. The session. Notices go straight to connected clients.
	g := game.NewGame(catalog, cfg.Settings(), func(n game.Notice) {
		log.Printf("Notice [%s]: %s", n.Kind, n.Text)
		hub.Publish(api.MessageNotice, n)
	})

	// 4. THE FRAME LOOP
	// Feeds wall-clock time into the fixed-step simulation.
	go func() {
		ticker := time.NewTicker(time.Duration(float64(time.Second) / cfg.Simulation.TickRate))
		defer ticker.Stop()
		last := time.Now()
		for now := range ticker.C {
			delta := now.Sub(last).Seconds()
			last = now
			if err := g.Frame(delta); err != nil {
				if errors.Is(err, game.ErrInconsistentWorld) {
					log.Fatalf("Simulation halted: %v", err)
				}
				log.Printf("Frame error: %v", err)
			}
		}
	}()

	// 5. Snapshot broadcast for renderers
	go func() {
		ticker := time.NewTicker(time.Duration(float64(time.Second) / cfg.Simulation.BroadcastRate))
		defer ticker.Stop()
		for range ticker.C {
			hub.Publish(api.MessageSnapshot, g.Snapshot())
		}
	}()

	// 6. Hot-reload logic: Listen for SIGHUP to refresh the level catalog without restart
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGHUP)
		for range sigChan {
			log.Println("SIGNAL: Reloading levels...")
			reloaded, err := game.LoadLevels(cfg.LevelsPath)
			if err != nil {
				log.Printf("Reload failed, keeping current levels: %v", err)
				continue
			}
			g.ReplaceCatalog(reloaded)
		}
	}()

	// 7. Start the Server
	log.Printf("METRO LINES Server live on %s", cfg.Addr())
	log.Printf("Real-time Hub: Online")

	if err := http.ListenAndServe(cfg.Addr(), api.NewRouter(g, hub)); err != nil {
		log.Fatal(err)
	}
}
