package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voicemind/pkg/config"
	"voicemind/pkg/db"
	"voicemind/pkg/embed"
	"voicemind/pkg/memos"
	"voicemind/pkg/notify"
	"voicemind/pkg/objectstore"
	"voicemind/pkg/pipeline"
	"voicemind/pkg/repo"
	"voicemind/pkg/server"
	"voicemind/pkg/summarize"
	"voicemind/pkg/transcribe"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	ctx := context.Background()

	dbClient := db.NewSupabaseClient(db.SupabaseConfig{
		SupabaseURL:      cfg.SupabaseURL,
		SupabaseKey:      cfg.SupabaseKey,
		ConnectionString: cfg.DatabaseURL,
	})
	if err := dbClient.Connect(ctx); err != nil {
		log.Fatalf("Failed to connect to Supabase: %v", err)
	}
	defer dbClient.Close()

	repository := repo.New(dbClient)
	if dbClient.HasDirectDB() {
		if err := repository.EnsureSchema(ctx); err != nil {
			log.Fatalf("Failed to ensure schema: %v", err)
		}
	}

	store := objectstore.NewSupabase(dbClient.Storage(), cfg.StorageBucket)
	embedder := embed.NewOpenAI(cfg.OpenAIKey)

	processor, err := pipeline.New(pipeline.Config{
		Repo:        repository,
		Store:       store,
		Transcriber: transcribe.NewWhisper(cfg.OpenAIKey),
		Summarizer:  summarize.NewOpenAI(cfg.OpenAIKey),
		Embedder:    embedder,
		Notifier:    notify.NewExpo(),
	})
	if err != nil {
		log.Fatalf("Failed to build pipeline: %v", err)
	}

	library := memos.New(repository, store, embedder, processor)
	srv := server.New(repository, processor, library)

	go func() {
		log.Printf("Listening on %s", cfg.ListenAddr)
		if err := srv.Start(cfg.ListenAddr); err != nil {
			log.Printf("Server stopped: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Printf("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown: %v", err)
	}

	// Let in-flight pipeline runs finish their status write-backs.
	processor.Wait()
}
