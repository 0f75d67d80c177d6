package main

import (
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"ReplayDesk/internal/config"
	"ReplayDesk/internal/harvest"
)

// The refinery normalizes a pre-existing local tree of raw archive ZIPs
// (as left behind by an rsync of the download site's ASCII tree) into the
// canonical per-symbol 1-minute CSV files.
func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}

	log.Printf("[INFO] refinery: hunting for ZIPs in %s", cfg.Harvest.SourceRoot)

	var zips []string
	err = filepath.WalkDir(cfg.Harvest.SourceRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(strings.ToLower(d.Name()), ".zip") {
			zips = append(zips, path)
		}
		return nil
	})
	if err != nil {
		log.Fatalf("[FATAL] walk source tree: %v", err)
	}
	if len(zips) == 0 {
		log.Fatal("[FATAL] no ZIP files found, check the source tree")
	}
	log.Printf("[INFO] found %d raw archives", len(zips))

	var processed, failed int
	for _, zipPath := range zips {
		symbol, err := harvest.SymbolFromArchiveName(filepath.Base(zipPath))
		if err != nil {
			log.Printf("[WARN] skip %s: %v", filepath.Base(zipPath), err)
			continue
		}
		bars, err := harvest.ParseArchive(zipPath)
		if err != nil {
			log.Printf("[ERROR] %s: %v", filepath.Base(zipPath), err)
			failed++
			continue
		}
		dest := filepath.Join(cfg.DataDir, symbol+"_1M.csv")
		if err := harvest.MergeCSV(dest, bars); err != nil {
			log.Printf("[ERROR] %s: merge: %v", filepath.Base(zipPath), err)
			failed++
			continue
		}
		log.Printf("[INFO] %s: merged %d bars into %s", symbol, len(bars), filepath.Base(dest))
		processed++
	}

	log.Printf("[INFO] refinery finished: %d processed, %d failed", processed, failed)
}
