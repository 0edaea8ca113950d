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

	"windryft.app/pocket-windryft/internal/api"
	"windryft.app/pocket-windryft/internal/auth"
	"windryft.app/pocket-windryft/internal/config"
	"windryft.app/pocket-windryft/internal/filestore"
	"windryft.app/pocket-windryft/internal/llm"
	"windryft.app/pocket-windryft/internal/store"
)

const demoPassword = "password"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	seedFlag := flag.Bool("seed", false, "Insert the demo user and sample data, then exit")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.LogLevel == "DEBUG" {
		log.Println("Service starting in DEBUG mode")
	}

	ctx := context.Background()

	dbStore, err := store.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer dbStore.Close()

	if err := dbStore.SeedTemplates(ctx); err != nil {
		log.Fatalf("Failed to seed project templates: %v", err)
	}

	if *seedFlag {
		hash, err := auth.HashPassword(demoPassword)
		if err != nil {
			log.Fatalf("Failed to hash demo password: %v", err)
		}
		user, err := dbStore.SeedDemoData(ctx, hash, time.Now().UTC())
		if err != nil {
			log.Fatalf("Demo data seeding failed: %v", err)
		}
		log.Printf("Demo data ready. Log in as %q with password %q (user id %d).", user.Username, demoPassword, user.ID)
		return
	}

	gateway, err := llm.NewFromConfig(ctx, cfg.AI)
	if err != nil {
		log.Fatalf("Failed to initialize AI gateway: %v", err)
	}
	defer gateway.Close()

	files, err := filestore.New(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize file storage: %v", err)
	}

	apiHandler := api.NewAPIHandler(api.Deps{
		Store:          dbStore,
		Gateway:        gateway,
		Files:          files,
		Tokens:         auth.NewTokenIssuer(cfg.JWTSecret, 24*time.Hour),
		MaxUploadBytes: cfg.MaxUploadBytes,
	})
	router := api.NewRouter(apiHandler, cfg.AllowedOrigins)

	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // AI calls can take time
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on %s. Press Ctrl+C to quit.", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", serverAddr, err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exiting")
}
