package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/cwillems/vantage/internal/agent"
	"github.com/cwillems/vantage/internal/config"
	"github.com/cwillems/vantage/internal/embedding"
	"github.com/cwillems/vantage/internal/knowledge"
	"github.com/cwillems/vantage/internal/ledger"
	"github.com/cwillems/vantage/internal/provider"
	"github.com/cwillems/vantage/internal/tools"
)

func main() {
	engagementFlag := flag.String("engagement", "default", "Engagement name to record this command under")
	ingestFlag := flag.String("ingest", "", "Glob of files to ingest into the knowledge base (supports **)")
	modelsFlag := flag.Bool("models", false, "List models available on the configured backend")
	flag.Usage = showHelp
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fatal("config: %v", err)
	}

	log := newLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	prov := provider.WithRetry(
		provider.NewOpenAI("openai", cfg.Model.BaseURL, cfg.Model.APIKey, cfg.Model.Model, cfg.RequestTimeout),
		cfg.MaxRetries,
	)

	if *modelsFlag {
		models, err := prov.Models(ctx)
		if err != nil {
			fatal("listing models: %v", err)
		}
		for _, m := range models {
			fmt.Println(m)
		}
		return
	}

	store := openKnowledge(cfg, log)
	led := openLedger(cfg, log)

	if *ingestFlag != "" {
		if store == nil {
			fatal("ingest requires an embedding backend and knowledge_db in the config")
		}
		if err := ingest(ctx, store, *ingestFlag, log); err != nil {
			fatal("ingest: %v", err)
		}
		return
	}

	command := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if command == "" {
		showHelp()
		os.Exit(2)
	}

	registry := tools.NewRegistry()
	if err := tools.RegisterBuiltins(registry, store, led); err != nil {
		fatal("registering tools: %v", err)
	}

	orch, err := agent.New(agent.Options{
		Provider:  prov,
		Knowledge: store,
		Ledger:    led,
		Registry:  registry,
		MaxRounds: cfg.MaxRounds,
		TopK:      cfg.TopK,
		Logger:    log,
	})
	if err != nil {
		fatal("%v", err)
	}

	result := orch.Handle(ctx, command, *engagementFlag)
	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))
	if !result.Success {
		os.Exit(1)
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl).With().Timestamp().Logger()
}

func openKnowledge(cfg *config.Config, log zerolog.Logger) knowledge.Store {
	if cfg.Embedding.BaseURL == "" || cfg.KnowledgeDB == "" {
		log.Warn().Msg("no embedding backend configured; knowledge grounding disabled")
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.KnowledgeDB), 0o755); err != nil {
		log.Warn().Err(err).Msg("knowledge store unavailable")
		return nil
	}
	emb := embedding.NewOpenAI(cfg.Embedding.BaseURL, cfg.Embedding.APIKey, cfg.Embedding.Model, cfg.Embedding.Dimensions, cfg.RequestTimeout)
	store, err := knowledge.NewSQLiteStore(cfg.KnowledgeDB, emb, log)
	if err != nil {
		log.Warn().Err(err).Msg("knowledge store unavailable")
		return nil
	}
	return store
}

func openLedger(cfg *config.Config, log zerolog.Logger) ledger.Ledger {
	if cfg.LedgerDB == "" {
		log.Warn().Msg("no ledger configured; interactions will not be recorded")
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.LedgerDB), 0o755); err != nil {
		log.Warn().Err(err).Msg("ledger unavailable")
		return nil
	}
	led, err := ledger.NewSQLiteLedger(cfg.LedgerDB, log)
	if err != nil {
		log.Warn().Err(err).Msg("ledger unavailable")
		return nil
	}
	return led
}

// corpusFile is the YAML shape for bulk knowledge ingestion.
type corpusFile struct {
	Documents []struct {
		Text     string            `yaml:"text"`
		Metadata map[string]string `yaml:"metadata"`
	} `yaml:"documents"`
}

func ingest(ctx context.Context, store knowledge.Store, pattern string, log zerolog.Logger) error {
	paths, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return fmt.Errorf("bad glob %q: %w", pattern, err)
	}
	if len(paths) == 0 {
		return fmt.Errorf("no files match %q", pattern)
	}

	var docs []string
	var metas []map[string]string
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			var corpus corpusFile
			if err := yaml.Unmarshal(data, &corpus); err != nil {
				return fmt.Errorf("parse %s: %w", path, err)
			}
			for _, d := range corpus.Documents {
				meta := d.Metadata
				if meta == nil {
					meta = map[string]string{}
				}
				meta["source"] = path
				docs = append(docs, d.Text)
				metas = append(metas, meta)
			}
		default:
			docs = append(docs, string(data))
			metas = append(metas, map[string]string{"source": path})
		}
	}

	if err := store.Ingest(ctx, docs, metas); err != nil {
		return err
	}
	log.Info().Int("documents", len(docs)).Int("files", len(paths)).Msg("knowledge ingested")
	return nil
}

func showHelp() {
	fmt.Fprintf(os.Stderr, `vantage: a grounded pentest command copilot

Usage:
  vantage [flags] <command text>      process a command against an engagement
  vantage -ingest 'docs/**/*.md'      ingest files into the knowledge base
  vantage -models                     list models on the configured backend

Flags:
`)
	flag.PrintDefaults()
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "vantage: "+format+"\n", args...)
	os.Exit(1)
}
