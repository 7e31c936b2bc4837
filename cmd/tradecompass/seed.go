package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"tradecompass/internal/model"
)

// seedBatchSize bounds one insert transaction during seeding.
const seedBatchSize = 500

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load catalog, rate, and reference data",
	}

	cmd.AddCommand(seedCatalogCmd())
	cmd.AddCommand(seedRatesCmd())
	cmd.AddCommand(seedReferenceCmd())

	return cmd
}

func seedCatalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog [file.csv]",
		Short: "Load catalog entries from CSV (code,description,chapter,country,standard%,preferential%)",
		Long: `Load catalog entries from a CSV file. Rate columns are percentages as
published (2.6 means 2.6%); they are stored as decimal fractions.`,
		Args: cobra.ExactArgs(1),
		RunE: runSeedCatalog,
	}
}

func runSeedCatalog(cmd *cobra.Command, args []string) error {
	store, err := initStorage(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	defer func() { _ = f.Close() }()

	bar := progressbar.Default(-1, "seeding catalog")
	reader := csv.NewReader(f)

	var (
		batch []model.CatalogEntry
		total int
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := store.SaveCatalogEntries(cmd.Context(), batch); err != nil {
			return err
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}

	for line := 1; ; line++ {
		record, readErr := reader.Read()
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return fmt.Errorf("line %d: %w", line, readErr)
		}
		if line == 1 && strings.EqualFold(record[0], "code") {
			continue // header row
		}
		if len(record) < 6 {
			return fmt.Errorf("line %d: want 6 columns, got %d", line, len(record))
		}

		standard, parseErr := parsePercent(record[4])
		if parseErr != nil {
			return fmt.Errorf("line %d: standard rate: %w", line, parseErr)
		}
		preferential, parseErr := parsePercent(record[5])
		if parseErr != nil {
			return fmt.Errorf("line %d: preferential rate: %w", line, parseErr)
		}

		batch = append(batch, model.CatalogEntry{
			Code:             strings.TrimSpace(record[0]),
			Description:      strings.TrimSpace(record[1]),
			Chapter:          strings.TrimSpace(record[2]),
			CountrySource:    strings.TrimSpace(record[3]),
			StandardRate:     standard,
			PreferentialRate: preferential,
		})
		_ = bar.Add(1)

		if len(batch) >= seedBatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	fmt.Printf("\nSeeded %d catalog entries.\n", total)
	return nil
}

func seedRatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rates [file.csv]",
		Short: "Load duty rates from CSV (code,destination,standard%,preferential%)",
		Args:  cobra.ExactArgs(1),
		RunE:  runSeedRates,
	}
}

func runSeedRates(cmd *cobra.Command, args []string) error {
	store, err := initStorage(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	defer func() { _ = f.Close() }()

	bar := progressbar.Default(-1, "seeding rates")
	reader := csv.NewReader(f)

	var (
		batch []model.RateRecord
		total int
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := store.SaveRates(cmd.Context(), batch); err != nil {
			return err
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}

	for line := 1; ; line++ {
		record, readErr := reader.Read()
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return fmt.Errorf("line %d: %w", line, readErr)
		}
		if line == 1 && strings.EqualFold(record[0], "code") {
			continue
		}
		if len(record) < 4 {
			return fmt.Errorf("line %d: want 4 columns, got %d", line, len(record))
		}

		standard, parseErr := parsePercent(record[2])
		if parseErr != nil {
			return fmt.Errorf("line %d: standard rate: %w", line, parseErr)
		}
		preferential, parseErr := parsePercent(record[3])
		if parseErr != nil {
			return fmt.Errorf("line %d: preferential rate: %w", line, parseErr)
		}

		batch = append(batch, model.RateRecord{
			Code:               strings.TrimSpace(record[0]),
			DestinationCountry: strings.TrimSpace(record[1]),
			StandardRate:       standard,
			PreferentialRate:   preferential,
		})
		_ = bar.Add(1)

		if len(batch) >= seedBatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	fmt.Printf("\nSeeded %d duty rates.\n", total)
	return nil
}

func seedReferenceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reference",
		Short: "Load the built-in member countries and trade-volume mappings",
		RunE:  runSeedReference,
	}
}

func runSeedReference(cmd *cobra.Command, _ []string) error {
	store, err := initStorage(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()
	countries := []struct {
		code   string
		name   string
		member bool
	}{
		{"US", "United States", true},
		{"CA", "Canada", true},
		{"MX", "Mexico", true},
		{"CN", "China", false},
		{"DE", "Germany", false},
		{"JP", "Japan", false},
		{"VN", "Vietnam", false},
	}
	for _, c := range countries {
		if err := store.SaveCountry(ctx, c.code, c.name, c.member); err != nil {
			return err
		}
	}

	volumes := map[string]float64{
		"Under $1M":    500000,
		"$1M - $5M":    3000000,
		"$5M - $25M":   15000000,
		"$25M - $100M": 62500000,
		"Over $100M":   100000000,
	}
	for label, value := range volumes {
		if err := store.SaveVolumeMapping(ctx, label, value); err != nil {
			return err
		}
	}

	fmt.Printf("Seeded %d countries and %d volume mappings.\n", len(countries), len(volumes))
	return nil
}

// parsePercent reads a published percentage ("2.6" meaning 2.6%) and returns
// the decimal fraction stored by the engine.
func parsePercent(s string) (float64, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if v < 0 || v > 100 {
		return 0, fmt.Errorf("percentage out of range: %v", v)
	}
	return v / 100, nil
}
