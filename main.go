package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kvasudev/tcpsock/internal/config"
	"github.com/kvasudev/tcpsock/internal/console"
	"github.com/kvasudev/tcpsock/internal/logger"
	"github.com/kvasudev/tcpsock/internal/mcp"
	"github.com/kvasudev/tcpsock/internal/registry"
)

func main() {
	debug := flag.Bool("debug", false, "Enable debug logging")
	interactive := flag.Bool("i", false, "Run the interactive console instead of the MCP server")
	flag.Parse()

	cfg, err := config.GetConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v\n", err)
	}

	err = logger.Init(*debug || cfg.Debug, cfg.LogPath)
	if err != nil {
		log.Fatalf("Error initializing logging: %v\n", err)
	}
	defer logger.Close()

	reg := registry.New(cfg.DialTimeout, cfg.ReadChunkSize)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		cancel()
	}()

	if *interactive {
		err = console.Run(ctx, reg, cfg)
	} else {
		err = mcp.NewServer(ctx, os.Stdin, os.Stdout, reg, cfg.SendWait).Run()
	}
	if err != nil {
		logger.Errorf("server error: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := reg.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("error during shutdown: %v", err)
	}
	logger.Infof("shutdown complete")
}
