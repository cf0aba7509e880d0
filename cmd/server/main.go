package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignite/mailmap-inbound/internal/api"
	"github.com/ignite/mailmap-inbound/internal/config"
	"github.com/ignite/mailmap-inbound/internal/geo"
	"github.com/ignite/mailmap-inbound/internal/ingest"
	"github.com/ignite/mailmap-inbound/internal/notify"
	"github.com/ignite/mailmap-inbound/internal/store"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Inbound.URLToken == "" {
		log.Println("WARNING: no inbound URL token configured, all webhook requests will be rejected")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var docs store.DocumentStore
	var objects store.ObjectStore
	switch cfg.Storage.Type {
	case "aws":
		dynamo, s3Store, err := store.NewAWS(ctx, cfg.Storage)
		if err != nil {
			log.Fatalf("Failed to initialize AWS storage: %v", err)
		}
		docs = dynamo
		objects = s3Store
		log.Printf("Using DynamoDB table %s and S3 bucket %s", cfg.Storage.DynamoDBTable, cfg.Storage.S3Bucket)
	case "memory":
		docs = store.NewMemoryStore()
		objects = store.NewMemoryObjects()
		log.Println("Using in-memory storage (data is not persisted)")
	default:
		log.Fatalf("Unknown storage type: %s", cfg.Storage.Type)
	}

	var notifier ingest.Notifier
	if cfg.Notify.Enabled {
		sender, err := notify.NewSESSender(ctx, cfg.Notify)
		if err != nil {
			log.Printf("WARNING: failed to initialize SES sender, notifications disabled: %v", err)
		} else {
			notifier = notify.NewService(docs, sender, cfg.Notify)
			log.Printf("Notifications enabled from %s", cfg.Notify.SenderEmail)
		}
	}

	filter := ingest.NewFilter(cfg.Inbound.AllowedImageExtensions, cfg.Inbound.MaxImageSizeBytes)
	extractor := geo.NewExtractor()
	pipeline := ingest.NewPipeline(docs, objects, filter, extractor, notifier, cfg.Inbound.PhotoUploadLimit)

	webhook := api.NewWebhookHandler(api.NewTokenAuthenticator(cfg.Inbound.URLToken), pipeline)
	server := api.NewServer(cfg.Server, webhook)

	// Setup graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.GetHost(), cfg.Server.Port)
		log.Printf("Starting server on %s", addr)
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	log.Println("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}
