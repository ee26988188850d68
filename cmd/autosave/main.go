package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/tailored-agentic-units/autosave/directory"
	"github.com/tailored-agentic-units/autosave/observability"
	"github.com/tailored-agentic-units/autosave/remote"
	"github.com/tailored-agentic-units/autosave/store"
)

func main() {
	var (
		configFile = flag.String("config", "", "Path to autosave config JSON file")
		storePath  = flag.String("store", "", "Directory for the file store (overrides config)")
		storeURL   = flag.String("url", "", "Base URL of a remote store service (overrides config)")
		key        = flag.String("key", "", "Document key to open")
		contents   = flag.String("set", "", "Replace the document contents and flush on exit")
		list       = flag.Bool("list", false, "List document keys")
		serve      = flag.String("serve", "", "Serve the configured store over Connect on this address")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging to stderr")
	)
	flag.Parse()

	if *key == "" && !*list && *serve == "" {
		fmt.Fprintln(os.Stderr, "Usage: autosave [-config <file>] (-list | -key <name> [-set <text>] | -serve <addr>)")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg := directory.DefaultConfig()
	if *configFile != "" {
		loaded, err := directory.LoadConfig(*configFile)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = *loaded
	}

	if *storePath != "" {
		cfg.Store.Backend = store.BackendFile
		cfg.Store.Path = *storePath
	}
	if *storeURL != "" {
		cfg.Store.Backend = store.BackendRemote
		cfg.Store.URL = *storeURL
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	observability.RegisterObserver("slog", observability.NewSlogObserver(logger))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *serve != "" {
		if err := serveStore(ctx, &cfg, *serve, logger); err != nil {
			log.Fatalf("Store service failed: %v", err)
		}
		return
	}

	dir, err := directory.New(&cfg)
	if err != nil {
		log.Fatalf("Failed to create directory: %v", err)
	}

	if *list {
		keys, err := dir.Keys(ctx)
		if err != nil {
			log.Fatalf("Failed to list keys: %v", err)
		}
		for _, k := range keys {
			fmt.Println(k)
		}
	}

	if *key != "" {
		if err := edit(ctx, dir, *key, contents); err != nil {
			log.Printf("Edit failed: %v", err)
		}
	}

	if err := dir.Close(context.Background()); err != nil {
		log.Fatalf("Unsaved changes: %v", err)
	}
}

func edit(ctx context.Context, dir *directory.Directory, key string, contents *string) error {
	b, err := dir.Select(ctx, key)
	if err != nil {
		return err
	}
	if err := b.Wait(ctx); err != nil {
		return err
	}

	current, err := b.Contents()
	if err != nil {
		return err
	}
	if b.Created() {
		fmt.Printf("%s (new document)\n", key)
	} else {
		fmt.Printf("%s:\n%s\n", key, current)
	}

	if !isFlagSet("set") {
		return nil
	}
	if err := b.SetContents(*contents); err != nil {
		return err
	}
	return dir.Deselect(ctx)
}

func serveStore(ctx context.Context, cfg *directory.Config, addr string, logger *slog.Logger) error {
	s, err := store.NewStore(&cfg.Store)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle(remote.NewHandler(s))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serving store", slog.String("addr", addr), slog.String("backend", cfg.Store.Backend))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func isFlagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
