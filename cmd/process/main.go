// Command process runs the pipeline for recordings from the command line:
// either specific IDs, or a sweep over failed and stuck recordings. This is
// the manual retry path.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"voicemind/pkg/config"
	"voicemind/pkg/db"
	"voicemind/pkg/embed"
	"voicemind/pkg/notify"
	"voicemind/pkg/objectstore"
	"voicemind/pkg/pipeline"
	"voicemind/pkg/repo"
	"voicemind/pkg/summarize"
	"voicemind/pkg/transcribe"
	"voicemind/pkg/worker"
)

func main() {
	sweep := flag.Bool("sweep", false, "process all failed and stuck recordings instead of explicit IDs")
	stuckAfter := flag.Duration("stuck-after", worker.DefaultStuckAfter, "age at which a processing recording counts as stuck")
	limit := flag.Int("limit", 100, "maximum recordings per sweep")
	noPush := flag.Bool("no-push", false, "suppress push notifications for these runs")
	flag.Parse()

	if !*sweep && flag.NArg() == 0 {
		log.Fatal("Usage: process [-sweep] [recording-id ...]")
	}

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
	store := objectstore.NewSupabase(dbClient.Storage(), cfg.StorageBucket)

	var notifier notify.Notifier = notify.NewExpo()
	if *noPush {
		notifier = notify.Noop{}
	}

	processor, err := pipeline.New(pipeline.Config{
		Repo:        repository,
		Store:       store,
		Transcriber: transcribe.NewWhisper(cfg.OpenAIKey),
		Summarizer:  summarize.NewOpenAI(cfg.OpenAIKey),
		Embedder:    embed.NewOpenAI(cfg.OpenAIKey),
		Notifier:    notifier,
	})
	if err != nil {
		log.Fatalf("Failed to build pipeline: %v", err)
	}

	manager := worker.NewManager(cfg.WorkerCount, processor)

	start := time.Now()
	if *sweep {
		n, err := manager.Sweep(ctx, repository, *stuckAfter, *limit)
		if err != nil {
			log.Fatalf("Sweep failed: %v", err)
		}
		log.Printf("Sweep finished: %d recordings in %s", n, time.Since(start).Round(time.Millisecond))
		return
	}

	if err := manager.ProcessRecordings(ctx, flag.Args()); err != nil {
		log.Fatalf("Processing failed: %v", err)
	}
	log.Printf("Processed %d recordings in %s", flag.NArg(), time.Since(start).Round(time.Millisecond))
}
