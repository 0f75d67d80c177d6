package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"ReplayDesk/internal/config"
	"ReplayDesk/internal/recorder"
	"ReplayDesk/internal/series"
	"ReplayDesk/internal/server"
	"ReplayDesk/internal/session"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] ReplayDesk starting...")

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}
	log.Printf("[INFO] data directory: %s", cfg.DataDir)

	// Init loader
	loader := series.NewLoader(cfg.DataDir)

	// Init trade journal
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	// Init session
	sess, err := session.New(cfg, loader, rec)
	if err != nil {
		log.Fatalf("[FATAL] init session: %v", err)
	}
	log.Printf("[INFO] session ready: %s %s, %d bars",
		cfg.Session.Symbol, cfg.Session.Timeframe, sess.Snapshot().MaxIndex+1)

	// Start server
	srv := server.New(cfg.Server.Addr, sess)
	go func() {
		if err := srv.Start(); err != nil {
			log.Fatalf("[FATAL] server: %v", err)
		}
	}()

	log.Println("[INFO] ReplayDesk is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	sess.Pause()
	log.Println("[INFO] ReplayDesk stopped")
}
