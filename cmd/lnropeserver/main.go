// Command lnropeserver runs the WebSocket collaborative editing server.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreseekdev/lnrope/pkg/session"
	"github.com/coreseekdev/lnrope/pkg/transport"
)

func main() {
	configPath := "lnropeserver.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("no config file at %s, using defaults", configPath)
		} else {
			log.Fatalf("loading config: %v", err)
		}
	}

	auth := session.NewTokenAuthenticator()
	content := session.NewMemoryContentStorage()

	protocolHandler := transport.NewProtocolHandler(content, auth)

	mux := http.NewServeMux()

	wsServer := transport.NewWebSocketServer("")
	wsServer.SetAllowedOrigins(cfg.AllowedOrigins)
	protocolHandler.SetServer(wsServer)
	wsServer.RegisterHandler(mux)

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: mux,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(ctx)
		wsServer.Close()
		os.Exit(0)
	}()

	log.Printf("lnropeserver listening on %s (ws endpoint: /ws)", cfg.ListenAddr)
	log.Printf("rope config: chunk_size=%d balance_ratio=%d", cfg.Rope.ChunkSize, cfg.Rope.BalanceRatio)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}
