// Package main is the production entry point for the Canto music library.
//
// Canto indexes locally stored audio albums into an embedded document
// database and drives playback with queueing, search and playlists. The
// UI process talks to it through the typed message bus; this binary
// hosts the backend and runs until interrupted.
//
// Build:
//
//	go build -o build/canto ./cmd
//
// Run:
//
//	./build/canto -config ~/.config/canto/config.toml
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ruckert/canto/internal/app"
	"github.com/ruckert/canto/internal/config"
)

func main() {
	var (
		configPath = flag.String("config", defaultConfigPath(), "path to the TOML configuration file")
		version    = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *version {
		fmt.Println(app.GetVersionInfo().FullString())
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	application, err := app.NewApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	// Ensure a graceful shutdown
	defer func() {
		fmt.Println("\nShutting down...")
		application.Shutdown()
		fmt.Println("Shutdown complete")
	}()

	// Run until interrupted
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

// defaultConfigPath places the config file next to the data dir.
func defaultConfigPath() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(base, "canto", "config.toml")
}
