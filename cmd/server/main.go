package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v11"

	"github.com/crystal-mush/gomud/pkg/server"
)

// envConfig holds the environment overrides. Flags default to these values,
// so an explicit flag wins over the environment, which wins over the file.
type envConfig struct {
	Conf        string `env:"MUD_CONF"`
	Port        int    `env:"MUD_PORT"`
	TextDir     string `env:"MUD_TEXTDIR"`
	MetricsPort int    `env:"MUD_METRICS_PORT"`
	WSPort      int    `env:"MUD_WS_PORT"`
	Debug       bool   `env:"MUD_DEBUG"`
}

func main() {
	var ec envConfig
	if err := env.Parse(&ec); err != nil {
		log.Fatalf("parse env: %v", err)
	}

	flag.StringVar(&ec.Conf, "conf", ec.Conf, "Path to game config file (env: MUD_CONF)")
	flag.IntVar(&ec.Port, "port", ec.Port, "TCP port to listen on, overrides config (env: MUD_PORT)")
	flag.StringVar(&ec.TextDir, "textdir", ec.TextDir, "Path to text files directory (env: MUD_TEXTDIR)")
	flag.IntVar(&ec.MetricsPort, "metrics-port", ec.MetricsPort, "Prometheus metrics port, 0 disables (env: MUD_METRICS_PORT)")
	flag.IntVar(&ec.WSPort, "ws-port", ec.WSPort, "WebSocket port, 0 disables (env: MUD_WS_PORT)")
	flag.BoolVar(&ec.Debug, "debug", ec.Debug, "Log every input line (env: MUD_DEBUG)")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: gomud [-conf <config>] [-port 4000] [-textdir <dir>]")
		fmt.Fprintln(os.Stderr, "")
		flag.PrintDefaults()
	}
	flag.Parse()

	log.Printf("Welcome to %s", server.VersionString())

	// Load game config if specified, otherwise use defaults
	var gc *server.GameConf
	if ec.Conf != "" {
		var err error
		gc, err = server.LoadGameConf(ec.Conf)
		if err != nil {
			log.Fatalf("Error loading game config: %v", err)
		}
		log.Printf("Loaded game config from %s", ec.Conf)
	} else {
		gc = server.DefaultGameConf()
	}

	if ec.Port != 0 {
		gc.Port = ec.Port
	}
	if ec.TextDir != "" {
		gc.TextDir = ec.TextDir
	}
	if ec.MetricsPort != 0 {
		gc.MetricsPort = ec.MetricsPort
	}
	if ec.WSPort != 0 {
		gc.WebSocketPort = ec.WSPort
	}
	if ec.Debug {
		gc.Debug = true
	}

	srv, err := server.NewServer(gc)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGUSR1, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
