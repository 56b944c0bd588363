package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"postboard/internal/auth"
	"postboard/internal/config"
	httpapp "postboard/internal/http"
	"postboard/internal/rate"
	"postboard/internal/store/sqlite"
)

func main() {
	cfg := config.Load()

	st, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	defer st.Close()

	tokens, err := auth.NewTokens(cfg.SecretKey, cfg.Algorithm, cfg.TokenTTL)
	if err != nil {
		log.Fatalf("failed to initialize token service: %v", err)
	}
	limiter := rate.NewMemory()
	server := httpapp.NewServer(st, tokens, limiter, cfg)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("postboard listening on %s (%s environment)", cfg.Addr, cfg.Environment)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctx)
}
