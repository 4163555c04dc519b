package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"policyassist-backend/config"
	"policyassist-backend/ingest"
	"policyassist-backend/logger"
	"policyassist-backend/repository"
	"policyassist-backend/service"
	"policyassist-backend/storage"
)

var (
	force     bool
	watch     bool
	batchSize int
	pause     time.Duration
	debounce  time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "build-embeddings",
	Short: "Split, embed and index policy documents",
	Long: `Reads every .txt, .md and .csv document from the configured storage,
tags it with department and country (filename tokens, metadata.csv overrides),
splits it into overlapping chunks and replaces its rows in policy_chunks.`,
	RunE: runBuild,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the latest ingest run",
	RunE:  runStatus,
}

var removeCmd = &cobra.Command{
	Use:   "remove <document>",
	Short: "Remove a document's chunks from the index",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemove,
}

func init() {
	rootCmd.Flags().BoolVar(&force, "force", false, "re-ingest documents whose content is unchanged")
	rootCmd.Flags().BoolVar(&watch, "watch", false, "keep running and re-ingest local documents as they change")
	rootCmd.Flags().IntVar(&batchSize, "batch-size", 100, "chunks per embedding request")
	rootCmd.Flags().DurationVar(&pause, "pause", 0, "wait between documents (provider rate limits)")
	rootCmd.Flags().DurationVar(&debounce, "debounce", 2*time.Second, "quiet period before a changed file is re-ingested")
	rootCmd.AddCommand(statusCmd, removeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

type env struct {
	cfg   config.Config
	pool  *pgxpool.Pool
	store storage.Storage
}

func setup(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logger.Setup(cfg)

	pool, err := repository.Connect(ctx, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	var exists bool
	err = pool.QueryRow(ctx, "SELECT EXISTS (SELECT FROM information_schema.tables WHERE table_name = 'policy_chunks')").Scan(&exists)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("check schema: %w", err)
	}
	if !exists {
		pool.Close()
		return nil, errors.New("policy_chunks table does not exist, run: go run ./cmd/create-schema")
	}

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("initialize storage: %w", err)
	}
	return &env{cfg: cfg, pool: pool, store: store}, nil
}

func runBuild(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := setup(ctx)
	if err != nil {
		return err
	}
	defer e.pool.Close()

	model, closeModel, err := service.NewModelClient(ctx, e.cfg.LLM)
	if err != nil {
		return err
	}
	defer closeModel()

	pipeline := ingest.NewPipeline(e.store, model, repository.NewPolicyChunkRepository(e.pool),
		ingest.WithDocumentTracker(repository.NewPolicyDocumentRepository(e.pool)),
		ingest.WithRunTracker(repository.NewIngestRunRepository(e.pool)),
		ingest.WithForce(force),
		ingest.WithBatchSize(batchSize),
		ingest.WithPause(pause),
	)

	trigger := "manual"
	if watch {
		trigger = "watch"
	}
	run, err := pipeline.Run(ctx, trigger)
	if err != nil {
		return err
	}
	ingested, skipped, failed := run.Counts()
	fmt.Printf("✅ Embedding build complete: %d ingested, %d unchanged, %d failed\n", ingested, skipped, failed)

	if !watch {
		if failed > 0 {
			return fmt.Errorf("%d document(s) failed", failed)
		}
		return nil
	}

	local, ok := e.store.(*storage.LocalStorage)
	if !ok {
		return errors.New("--watch requires STORAGE_TYPE=local")
	}
	return ingest.NewWatcher(local.Dir(), pipeline, debounce).Run(ctx)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	e, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer e.pool.Close()

	run, err := repository.NewIngestRunRepository(e.pool).Latest(cmd.Context())
	if errors.Is(err, repository.ErrNotFound) {
		fmt.Println("No ingest runs yet")
		return nil
	}
	if err != nil {
		return err
	}

	chunks, err := repository.NewPolicyChunkRepository(e.pool).Count(cmd.Context())
	if err != nil {
		return err
	}

	out := json.NewEncoder(os.Stdout)
	out.SetIndent("", "  ")
	return out.Encode(map[string]any{
		"run":            run,
		"indexed_chunks": chunks,
	})
}

func runRemove(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer e.pool.Close()

	// Removing needs no model client
	pipeline := ingest.NewPipeline(e.store, nil, repository.NewPolicyChunkRepository(e.pool),
		ingest.WithDocumentTracker(repository.NewPolicyDocumentRepository(e.pool)),
	)
	if err := pipeline.Remove(cmd.Context(), args[0]); err != nil {
		return err
	}
	log.Printf("Removed %s from the index", args[0])
	return nil
}
