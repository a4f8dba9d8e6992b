package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/joelkehle/housing-analyst/internal/listing"
	"github.com/joelkehle/housing-analyst/internal/mortgage"
)

var importCmd = &cobra.Command{
	Use:   "import <listings.json>",
	Short: "Load listings from a JSON array into the database",
	Long: `Read a JSON array of listings, fill in missing monthly cost fields from the
configured mortgage assumptions, and insert them. Use "-" to read stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	props, err := readListings(args[0], cmd.InOrStdin())
	if err != nil {
		return err
	}

	store, err := listing.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	imported := 0
	for i := range props {
		p := props[i]
		mortgage.Fill(&p, cfg.Mortgage)
		id, err := store.Insert(cmd.Context(), p)
		if err != nil {
			logger.Warn("skipping listing", zap.Int("index", i), zap.String("address", p.Address), zap.Error(err))
			continue
		}
		logger.Debug("listing imported", zap.Int64("id", id), zap.String("address", p.Address))
		imported++
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d of %d listings into %s\n", imported, len(props), cfg.Database.Path)
	return nil
}

func readListings(path string, stdin io.Reader) ([]listing.Property, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	var props []listing.Property
	if err := json.NewDecoder(r).Decode(&props); err != nil {
		return nil, fmt.Errorf("decode listings: %w", err)
	}
	return props, nil
}
