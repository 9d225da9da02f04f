package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"

	"pdfchat/internal/models"
	"pdfchat/internal/types"
	"pdfchat/pkg/chunker"
	"pdfchat/pkg/config"
	"pdfchat/pkg/embedder"
	"pdfchat/pkg/llm"
	"pdfchat/pkg/search"
	"pdfchat/pkg/session"
	"pdfchat/pkg/store"
	"pdfchat/server"
)

type flags struct {
	configPath string
	port       string
	dbURL      string
	ingestPath string
}

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	if err := run(parseFlags(), logger); err != nil {
		logger.Fatal().Err(err).Msg("exiting")
	}
}

func parseFlags() flags {
	var f flags
	flag.StringVar(&f.configPath, "config", "", "Path to config file")
	flag.StringVar(&f.port, "port", "", "HTTP listen port")
	flag.StringVar(&f.dbURL, "db-url", "", "PostgreSQL connection string")
	flag.StringVar(&f.ingestPath, "ingest", "", "Ingest a text file into a fresh session and exit")
	flag.Parse()
	return f
}

func run(f flags, logger zerolog.Logger) error {
	cfg, err := config.LoadConfig(f.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if f.port != "" {
		cfg.Server.Port = f.port
	}
	if f.dbURL != "" {
		cfg.Database.URL = f.dbURL
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			logger.Error().Str("field", e.Field).Msg(e.Message)
		}
		return fmt.Errorf("invalid configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var vectorStore types.Store
	if cfg.Database.URL != "" {
		vectorStore, err = store.NewPgVector(ctx, store.PgVectorConfig{
			ConnString: cfg.Database.URL,
			TableName:  cfg.Database.TableName,
			VectorDim:  cfg.Database.VectorDim,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize vector store: %w", err)
		}
	} else {
		logger.Warn().Msg("no database configured, documents will not survive a restart")
		vectorStore = store.NewMemory(cfg.Database.VectorDim)
	}
	defer vectorStore.Close()

	provider, err := embedder.NewOpenAI(embedder.ProviderConfig{
		Model:   cfg.Embedding.Model,
		Token:   cfg.Embedding.Token,
		BaseURL: cfg.Embedding.BaseURL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize embedding provider: %w", err)
	}

	sessions := session.NewWithConfig(vectorStore, session.Config{
		Retention:     time.Duration(cfg.Session.RetentionHours) * time.Hour,
		SweepInterval: time.Duration(cfg.Session.SweepIntervalMinutes) * time.Minute,
	}, logger)

	if f.ingestPath != "" {
		return ingest(ctx, f.ingestPath, cfg, provider, vectorStore, sessions)
	}

	var chatEngine *llm.ChatEngine
	if cfg.LLM.Token != "" {
		chatEngine, err = llm.NewWithConfig(llm.ChatConfig{
			Model:       cfg.LLM.Model,
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
			Token:       cfg.LLM.Token,
			BaseURL:     cfg.LLM.BaseURL,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize chat engine: %w", err)
		}
	} else {
		logger.Warn().Msg("no LLM token configured, /search will return matches without an answer")
	}

	// retention backstop for sessions abandoned without a clean teardown
	go sessions.Run(ctx)

	srv := server.New(server.Config{
		Port:            cfg.Server.Port,
		SearchThreshold: cfg.Search.Threshold,
		SearchTopK:      cfg.Search.TopK,
	},
		chunker.NewWithConfig(chunker.Config{
			MaxChunkSize: cfg.Chunker.MaxChunkSize,
			OverlapSize:  cfg.Chunker.OverlapSize,
			Separators:   cfg.Chunker.Separators,
		}),
		embedder.NewWithConfig(provider, embedder.Config{
			BatchSize:        cfg.Embedding.BatchSize,
			MinDelay:         time.Duration(cfg.Embedding.MinDelayMS) * time.Millisecond,
			MaxChunksPerCall: cfg.Embedding.MaxChunksPerCall,
		}),
		provider,
		vectorStore,
		search.New(vectorStore, logger),
		sessions,
		chatEngine,
		logger,
	)

	return srv.ListenAndServe()
}

// ingest runs the upload pipeline against a local text file: clean,
// chunk, batch-embed, store, then print the session id for querying.
func ingest(ctx context.Context, path string, cfg *config.Config,
	provider types.Provider, vectorStore types.Store, sessions *session.Manager) error {

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	ckr := chunker.NewWithConfig(chunker.Config{
		MaxChunkSize: cfg.Chunker.MaxChunkSize,
		OverlapSize:  cfg.Chunker.OverlapSize,
		Separators:   cfg.Chunker.Separators,
	})
	chunks := ckr.Chunk(chunker.Clean(string(data)))
	if len(chunks) == 0 {
		return fmt.Errorf("no text to ingest in %s", path)
	}
	color.Green("✓ Split %s into %d chunks\n", path, len(chunks))

	sessionID, err := sessions.NewSession()
	if err != nil {
		return err
	}

	bar := progressbar.NewOptions(len(chunks),
		progressbar.OptionSetDescription(color.BlueString("Embedding chunks...")),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
	)

	batcher := embedder.NewWithConfig(provider, embedder.Config{
		BatchSize:        cfg.Embedding.BatchSize,
		MinDelay:         time.Duration(cfg.Embedding.MinDelayMS) * time.Millisecond,
		MaxChunksPerCall: cfg.Embedding.MaxChunksPerCall,
		OnBatch: func(processed, total int) {
			bar.Set(processed)
		},
	})

	result, err := batcher.Embed(ctx, chunks)
	bar.Finish()
	if err != nil {
		return fmt.Errorf("embedding failed: %w", err)
	}

	docs := make([]models.StoredDocument, result.Processed)
	for i := 0; i < result.Processed; i++ {
		docs[i] = models.StoredDocument{
			Chunk: models.Chunk{
				SessionID: sessionID,
				Ordinal:   i,
				Content:   chunks[i],
			},
			Embedding:   result.Vectors[i],
			Filename:    path,
			TotalChunks: result.Total,
		}
	}
	if err := vectorStore.Insert(ctx, sessionID, docs); err != nil {
		return fmt.Errorf("failed to store embeddings: %w", err)
	}

	if result.Partial {
		color.Yellow("⚠ Embedding provider capacity exhausted: stored %d of %d chunks\n",
			result.Processed, result.Total)
		color.Yellow("  Clear the session and resubmit later to embed the full document\n")
	} else {
		color.Green("✓ Stored %d chunks\n", result.Processed)
	}
	fmt.Printf("Session: %s\n", sessionID)

	return nil
}
