package main

import (
	"context"
	"insightai/internal/app"
	"insightai/internal/config"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
)

// @title InsightAI Gateway API
// @version 1.0
// @description Respondent chat sessions and researcher views over the survey backend
// @BasePath /v1
func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}
	cfg := config.Load()

	log.Printf("Chat config:")
	log.Printf("  Pacing:      chat %s, whatsapp %s", cfg.Chat.Pacing.Chat, cfg.Chat.Pacing.WhatsApp)
	log.Printf("  Session TTL: %s", cfg.Chat.SessionTTL)
	log.Printf("  Backend:     %s (timeout %s)", cfg.APIBaseURL, cfg.APITimeout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer a.Close(context.Background())

	// evict abandoned conversations from memory
	go a.Session.Run(ctx, time.Minute)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s", cfg.HTTPPort)
		log.Printf("Researcher auth: username=%s", cfg.ResearcherUsername)
		log.Println("Endpoints:")
		log.Println("  POST /v1/auth/login")
		log.Println("  POST /v1/surveys/{surveyId}/sessions")
		log.Println("  GET  /v1/sessions/{sessionId}")
		log.Println("  POST /v1/sessions/{sessionId}/messages")
		log.Println("  GET  /v1/dashboard")
		log.Println("  GET/POST /v1/surveys/{surveyId}/insights[/generate]")
		log.Println("  WS   /v1/ws/sessions/{sessionId}")
		log.Printf("  Pages: %s/survey/{surveyId}/take, %s/survey/{surveyId}/whatsapp", cfg.PublicURL, cfg.PublicURL)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("ListenAndServe:", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		os.Exit(1)
	}

	log.Println("Server exited")
}
