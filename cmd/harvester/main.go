package main

import (
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/robfig/cron/v3"

	"ReplayDesk/internal/config"
	"ReplayDesk/internal/harvest"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] harvester starting...")

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

	if cfg.Harvest.Cron == "" {
		runHarvest(cfg)
		return
	}

	// Resident mode: re-harvest on the configured schedule.
	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(cfg.Harvest.Cron, func() { runHarvest(cfg) }); err != nil {
		log.Fatalf("[FATAL] register harvest schedule: %v", err)
	}
	c.Start()
	defer c.Stop()
	log.Printf("[INFO] harvest scheduled: %s", cfg.Harvest.Cron)

	if os.Getenv("RUN_ON_START") == "true" {
		log.Println("[INFO] RUN_ON_START enabled, harvesting now")
		go runHarvest(cfg)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Println("[INFO] harvester stopped")
}

// runHarvest walks every configured pair and year, downloading and merging
// archives that are not already covered. Failures are logged and counted;
// the run continues to the next unit of work.
func runHarvest(cfg *config.Config) {
	client := harvest.NewClient(cfg.Proxy)

	var succeeded, failed, skipped int
	for _, pair := range cfg.Harvest.Pairs {
		log.Printf("[INFO] target: %s", strings.ToUpper(pair))
		dest := filepath.Join(cfg.DataDir, strings.ToUpper(pair)+"_1M.csv")

		for year := cfg.Harvest.YearFrom; year <= cfg.Harvest.YearTo; year++ {
			if harvest.HasYear(dest, year) {
				log.Printf("[INFO] [%s %d] already harvested, skipping", pair, year)
				skipped++
				continue
			}

			zipPath, err := client.DownloadYear(cfg.Harvest.RawDir, pair, year)
			if err != nil {
				log.Printf("[ERROR] [%s %d] download: %v", pair, year, err)
				failed++
				client.HumanDelay(5, 10)
				continue
			}

			bars, err := harvest.ParseArchive(zipPath)
			if err != nil {
				log.Printf("[ERROR] [%s %d] parse: %v", pair, year, err)
				failed++
				client.HumanDelay(5, 10)
				continue
			}
			if err := harvest.MergeCSV(dest, bars); err != nil {
				log.Printf("[ERROR] [%s %d] merge: %v", pair, year, err)
				failed++
				continue
			}
			os.Remove(zipPath)
			log.Printf("[INFO] [%s %d] merged %d bars into %s", pair, year, len(bars), filepath.Base(dest))
			succeeded++

			client.HumanDelay(5, 10)
		}

		log.Printf("[INFO] completed %s, cooling down", strings.ToUpper(pair))
		client.HumanDelay(30, 60)
	}

	log.Printf("[INFO] harvest finished: %d succeeded, %d failed, %d skipped", succeeded, failed, skipped)
}
