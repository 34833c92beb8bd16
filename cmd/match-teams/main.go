// Command match-teams builds or imports per-source team mappings outside
// the live pipeline, for the manual review workflow: run it to produce a
// CSV of proposed matches, review/correct the rows (confidence 100 marks
// a validated row), then import the reviewed file.
package main

import (
	"bufio"
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/harbibet/harbi/internal/pkg/config"
	"github.com/harbibet/harbi/internal/pkg/logging"
	"github.com/harbibet/harbi/internal/pkg/matcher"
	"github.com/harbibet/harbi/internal/pkg/models"
	"github.com/harbibet/harbi/internal/pkg/registry"
	"github.com/harbibet/harbi/internal/pkg/storage"
)

func main() {
	var (
		configPath    string
		authNamesPath string
		sourceName    string
		namesPath     string
		csvPath       string
		importMode    bool
		minConfidence int
	)

	flag.StringVar(&configPath, "config", os.Getenv("CONFIG_PATH"), "Path to config file (optional, needed for -import with postgres)")
	flag.StringVar(&authNamesPath, "authoritative-names", "", "Text file with the authoritative source's team names, one per line")
	flag.StringVar(&sourceName, "source", "", "Source id the raw names belong to")
	flag.StringVar(&namesPath, "names", "", "Text file with the source's raw team names, one per line")
	flag.StringVar(&csvPath, "csv", "", "Mapping CSV to write (build mode) or read (-import)")
	flag.BoolVar(&importMode, "import", false, "Import a reviewed CSV as manual-reviewed rows instead of building one")
	flag.IntVar(&minConfidence, "min-confidence", matcher.DefaultMinConfidence, "Minimum similarity to accept an automatic match")
	flag.Parse()

	if _, err := logging.SetupLogger(&config.LoggingConfig{Level: "info"}, "match-teams"); err != nil {
		log.Fatalf("Failed to setup logging: %v", err)
	}
	if authNamesPath == "" || sourceName == "" || csvPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	authNames, err := readLines(authNamesPath)
	if err != nil {
		log.Fatalf("Failed to read authoritative names: %v", err)
	}

	reg := registry.New()
	reg.Seed(authNames)
	fmt.Printf("Seeded %d canonical identities from %s\n", reg.IdentityCount(), authNamesPath)

	if importMode {
		runImport(reg, configPath, sourceName, csvPath)
		return
	}

	if namesPath == "" {
		flag.Usage()
		os.Exit(2)
	}
	rawNames, err := readLines(namesPath)
	if err != nil {
		log.Fatalf("Failed to read source names: %v", err)
	}

	// Reviewed rows from a previous CSV are re-imported first so the
	// matcher can never downgrade them.
	if rows, err := readMappingCSV(reg, sourceName, csvPath, true); err == nil {
		applied := reg.ImportManual(rows)
		fmt.Printf("Preserved %d reviewed rows from %s\n", applied, csvPath)
	}

	res := matcher.MatchAll(reg, models.SourceID(sourceName), rawNames, minConfidence)
	fmt.Printf("Matched %d of %d names (unresolved %d, ambiguous %d, ties %d)\n",
		len(res.Matches), len(rawNames), len(res.Unresolved), len(res.Ambiguous), len(res.TieBreaks))

	if err := writeMappingCSV(reg, csvPath); err != nil {
		log.Fatalf("Failed to write %s: %v", csvPath, err)
	}
	fmt.Printf("Wrote %s\n", csvPath)
}

// runImport loads a reviewed CSV as manual rows and, when postgres is
// configured, persists them.
func runImport(reg *registry.Registry, configPath, sourceName, csvPath string) {
	rows, err := readMappingCSV(reg, sourceName, csvPath, false)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", csvPath, err)
	}
	applied := reg.ImportManual(rows)
	fmt.Printf("Imported %d manual rows from %s\n", applied, csvPath)

	if configPath == "" {
		return
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Postgres.DSN == "" {
		fmt.Println("No postgres DSN configured; rows were not persisted")
		return
	}
	store, err := storage.NewPostgresMatchStore(&cfg.Postgres)
	if err != nil {
		log.Fatalf("Failed to init postgres match store: %v", err)
	}
	defer store.Close()
	if err := store.UpsertMatches(context.Background(), reg.Matches()); err != nil {
		log.Fatalf("Failed to persist matches: %v", err)
	}
	fmt.Println("Persisted to postgres")
}

// readMappingCSV reads "raw_name,canonical_name,confidence" rows. With
// reviewedOnly, rows below confidence 100 are skipped.
func readMappingCSV(reg *registry.Registry, sourceName, path string, reviewedOnly bool) ([]models.TeamMatch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // reviewed files may or may not carry the origin column
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	// Index canonical display names for resolution.
	byDisplay := make(map[string]string)
	for _, ident := range reg.Identities() {
		byDisplay[ident.DisplayName] = ident.ID
	}

	var rows []models.TeamMatch
	for i, rec := range records {
		if i == 0 && len(rec) >= 3 && rec[2] == "confidence" {
			continue // header
		}
		if len(rec) < 3 || rec[0] == "" || rec[1] == "" || rec[2] == "" {
			continue
		}
		conf, err := strconv.Atoi(rec[2])
		if err != nil {
			continue
		}
		if reviewedOnly && conf < 100 {
			continue
		}
		id, ok := byDisplay[rec[1]]
		if !ok {
			fmt.Printf("  skipping %q: canonical name %q not in registry\n", rec[0], rec[1])
			continue
		}
		rows = append(rows, models.TeamMatch{
			Source:     models.SourceID(sourceName),
			RawName:    rec[0],
			IdentityID: id,
			Confidence: conf,
			Origin:     models.OriginManual,
		})
	}
	return rows, nil
}

// writeMappingCSV dumps the registry's rows as
// "raw_name,canonical_name,confidence,origin" for review.
func writeMappingCSV(reg *registry.Registry, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()
	if err := w.Write([]string{"raw_name", "canonical_name", "confidence", "origin"}); err != nil {
		return err
	}
	for _, m := range reg.Matches() {
		ident, ok := reg.Identity(m.IdentityID)
		if !ok {
			continue
		}
		rec := []string{m.RawName, ident.DisplayName, strconv.Itoa(m.Confidence), string(m.Origin)}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	return w.Error()
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, sc.Err()
}
