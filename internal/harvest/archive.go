package harvest

import (
	"archive/zip"
	"bufio"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"ReplayDesk/internal/model"
)

// archiveTimeLayout is the record timestamp format inside the site's archives.
const archiveTimeLayout = "20060102 150405"

// ParseArchive extracts the bar rows from a downloaded ZIP. Records are
// semicolon-delimited "YYYYMMDD HHMMSS;Open;High;Low;Close;Volume" lines in
// a single .csv or .txt entry. Malformed lines are skipped and counted.
func ParseArchive(zipPath string) ([]model.Bar, error) {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer zr.Close()

	var entry *zip.File
	for _, f := range zr.File {
		name := strings.ToLower(f.Name)
		if strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".txt") {
			entry = f
			break
		}
	}
	if entry == nil {
		return nil, fmt.Errorf("no data file inside %s", zipPath)
	}

	rc, err := entry.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", entry.Name, err)
	}
	defer rc.Close()

	var bars []model.Bar
	var malformed int
	scanner := bufio.NewScanner(rc)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		bar, err := parseRecord(line)
		if err != nil {
			malformed++
			continue
		}
		bars = append(bars, bar)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", entry.Name, err)
	}
	if malformed > 0 {
		log.Printf("[WARN] %s: skipped %d malformed rows", zipPath, malformed)
	}
	return bars, nil
}

func parseRecord(line string) (model.Bar, error) {
	fields := strings.Split(line, ";")
	if len(fields) < 6 {
		return model.Bar{}, fmt.Errorf("want 6 fields, got %d", len(fields))
	}
	t, err := time.Parse(archiveTimeLayout, fields[0])
	if err != nil {
		return model.Bar{}, err
	}
	var vals [5]float64
	for i := 0; i < 5; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(fields[i+1]), 64)
		if err != nil {
			return model.Bar{}, err
		}
		vals[i] = v
	}
	return model.Bar{
		Time: t, Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3], Volume: vals[4],
	}, nil
}

// SymbolFromArchiveName extracts the pair from the site's stock file naming,
// e.g. HISTDATA_COM_ASCII_EURUSD_M12010.zip yields EURUSD.
func SymbolFromArchiveName(name string) (string, error) {
	parts := strings.Split(name, "_")
	if len(parts) < 4 || parts[0] != "HISTDATA" {
		return "", fmt.Errorf("unrecognized archive name %q", name)
	}
	return parts[3], nil
}
