package main

import (
	"context"
	"flag"
	"log"
	"time"

	"ai-storefront-be/internal/bootstrap"
	"ai-storefront-be/internal/config"
	"ai-storefront-be/pkg/database"
)

// Seeds the vector corpus: publishes every catalog product (and optionally
// a supporting-document corpus file) onto the indexing topic and waits for
// the consumer to embed and persist them.
func main() {
	corpusFile := flag.String("corpus", "", "optional JSON file with reviews/tickets/descriptions")
	reset := flag.Bool("reset", false, "delete all indexed documents first")
	timeout := flag.Duration("timeout", 10*time.Minute, "how long to wait for indexing to finish")
	flag.Parse()

	cfg := config.Load()

	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	container := bootstrap.NewContainer(gormDB, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if *reset {
		log.Println("Deleting existing corpus documents...")
		if err := container.DocumentRepository.DeleteAll(ctx); err != nil {
			log.Fatalf("Error: failed to reset corpus: %v", err)
		}
	}

	before, err := container.DocumentRepository.Count(ctx)
	if err != nil {
		log.Fatalf("Error: failed to count corpus: %v", err)
	}

	if err := container.ConsumerService.Consume(ctx); err != nil {
		log.Fatalf("Error: failed to start consumer: %v", err)
	}

	published, err := container.IngestService.IngestProducts(ctx, container.CatalogStore.All())
	if err != nil {
		log.Fatalf("Error: product ingestion failed: %v", err)
	}

	if *corpusFile != "" {
		n, err := container.IngestService.IngestCorpusFile(ctx, *corpusFile)
		if err != nil {
			log.Fatalf("Error: corpus ingestion failed: %v", err)
		}
		published += n
	}

	log.Printf("Published %d documents, waiting for indexing...", published)

	// Upserts make the final count a lower bound, not an exact target.
	deadline := time.NewTicker(2 * time.Second)
	defer deadline.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Fatalf("Error: timed out waiting for indexing: %v", ctx.Err())
		case <-deadline.C:
			count, err := container.DocumentRepository.Count(ctx)
			if err != nil {
				log.Printf("Warn: count failed: %v", err)
				continue
			}
			log.Printf("Indexed %d documents (started at %d)", count, before)
			if count >= int64(published) {
				log.Println("✅ Success: corpus ingestion completed.")
				return
			}
		}
	}
}
