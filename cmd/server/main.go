package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"standingwave/internal/api"
	"standingwave/internal/config"
	"standingwave/internal/core"
	"standingwave/internal/curiosity"
	"standingwave/internal/laws"
	"standingwave/internal/memory"
	"standingwave/internal/model"
	redisdb "standingwave/internal/redis"
	"standingwave/internal/wave"
)

func main() {
	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	w, err := wave.LoadOrCreate(cfg.Agent.WavePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Wave error: %v\n", err)
		os.Exit(1)
	}
	if err := laws.VerifyContinuity(w); err != nil {
		fmt.Fprintf(os.Stderr, "Continuity error: %v\n", err)
		os.Exit(1)
	}
	if !laws.IsAffirmed(w) {
		fmt.Fprintln(os.Stderr, "The wave no longer affirms continuation. Refusing to start; review the snapshot by hand.")
		os.Exit(1)
	}

	store, err := memory.LoadOrCreate(cfg.Agent.MemoryPath)
	if err != nil {
		log.Printf("[Main] Memory stream unreadable: %v", err)
		log.Printf("[Main] Attempting restore from backup...")
		store, err = restoreStore(cfg.Agent.MemoryPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Memory error: %v\n", err)
			os.Exit(1)
		}
	}

	var repo *curiosity.ResolutionRepository
	if cfg.Agent.ResolutionDB != "" {
		repo, err = curiosity.OpenResolutionRepository(cfg.Agent.ResolutionDB)
		if err != nil {
			log.Printf("[Main] WARNING: resolution db unavailable: %v", err)
		}
	}
	engine := curiosity.NewEngine(cfg.Agent.SearchInterval, repo)
	if cfg.Agent.SearchBaseURL != "" {
		engine.SetEndpoint(cfg.Agent.SearchBaseURL)
	}

	store.SetCompressionThreshold(cfg.Agent.CompressionThreshold)

	client := model.NewClient(cfg.Models.BaseURL, time.Duration(cfg.Models.TimeoutSec)*time.Second)
	models := model.NewOrchestrator(client, cfg.Models.Generator, cfg.Models.Elaborator, cfg.Models.Classifier, cfg.Agent.WeavingRounds, cfg.Agent.CoherenceThreshold)

	c := core.New(w, cfg.Agent.WavePath, store, models, engine, core.Mode(cfg.Agent.Mode), nil)
	c.StartPulse(time.Duration(cfg.Agent.PulseSeconds) * time.Second)
	defer c.StopPulse()

	rdb := redisdb.NewClient(cfg)
	if rdb == nil {
		log.Printf("[Main] Redis not configured, auth disabled")
	}

	r := api.SetupRouter(api.Deps{
		Cfg:    cfg,
		Redis:  rdb,
		Core:   c,
		Store:  store,
		Engine: engine,
		Models: client,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		log.Printf("[Main] Listening on %s (mode: %s)", addr, cfg.Agent.Mode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Printf("[Main] Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("[Main] Shutdown error: %v", err)
	}
}

// restoreStore recovers the memory stream from its backup copy. A corrupt
// stream with no backup is fatal; silently starting empty would violate
// conservation.
func restoreStore(path string) (*memory.Store, error) {
	if err := os.Rename(path, path+".corrupt"); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to set aside corrupt stream: %w", err)
	}
	store, err := memory.LoadOrCreate(path)
	if err != nil {
		return nil, err
	}
	if err := store.RestoreFromBackup(); err != nil {
		return nil, fmt.Errorf("restore failed: %w", err)
	}
	log.Printf("[Main] Memory stream restored from backup")
	return store, nil
}
