package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/TobiSchelling/ClicheCounter/internal/collect"
	"github.com/TobiSchelling/ClicheCounter/internal/fetch"
	"github.com/TobiSchelling/ClicheCounter/internal/pipeline"
	"github.com/TobiSchelling/ClicheCounter/internal/tenure"
)

// --- import command ---

var importOpts collect.FileOptions

var importCmd = &cobra.Command{
	Use:   "import <csv|file|dir>",
	Short: "Import transcripts from a CSV export, a .txt/.pdf file or a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		path := args[0]
		var result *collect.Result
		if info, statErr := os.Stat(path); statErr == nil && !info.IsDir() && strings.EqualFold(filepath.Ext(path), ".csv") {
			result, err = collect.ImportCSVFile(db, path)
		} else {
			result, err = collect.ImportPath(db, path, importOpts)
		}
		if err != nil {
			return err
		}

		fmt.Println("\nImport complete:")
		fmt.Printf("  Total found: %d\n", result.TotalFound)
		fmt.Printf("  New transcripts: %d\n", result.NewTranscripts)
		fmt.Printf("  Duplicates skipped: %d\n", result.Duplicates)
		printCounts("Transcripts by organization", result.Organizations)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importOpts.Organization, "organization", "", "Organization of imported files")
	importCmd.Flags().StringVar(&importOpts.Speaker, "speaker", "", "Speaker of imported files (tenures decide when empty)")
	importCmd.Flags().StringVar(&importOpts.Label, "label", "", "Label of imported files")
	importCmd.Flags().StringVar(&importOpts.PublishedDate, "date", "", "Publication date of imported files (YYYY-MM-DD)")
}

// --- collect command ---

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect transcript stubs from configured playlist feeds",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx, cancel := signalContext()
		defer cancel()

		fmt.Println("Collecting transcripts from playlists...")
		result := collect.NewCollector(cfg, db).Collect(ctx)

		fmt.Println("\nCollection complete:")
		fmt.Printf("  Total found: %d\n", result.TotalFound)
		fmt.Printf("  New transcripts: %d\n", result.NewTranscripts)
		fmt.Printf("  Duplicates skipped: %d\n", result.Duplicates)
		printCounts("Transcripts by organization", result.Organizations)
		return nil
	},
}

// --- fetch command ---

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch text for transcript stubs",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx, cancel := signalContext()
		defer cancel()

		result := fetch.NewTranscriptFetcher(db, 15*time.Second).FetchMissingText(ctx)
		fmt.Printf("\nFetched %d transcripts, %d failed\n", result.Fetched, result.Failed)
		return nil
	},
}

// --- tenures command ---

var tenuresCmd = &cobra.Command{
	Use:   "tenures",
	Short: "Manage speaker tenures",
}

var tenuresImportCmd = &cobra.Command{
	Use:   "import <csv>",
	Short: "Replace stored tenures with the rows of a CSV file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		tenures, err := tenure.ReadCSV(f)
		if err != nil {
			return fmt.Errorf("reading tenures: %w", err)
		}
		if err := db.ReplaceTenures(tenures); err != nil {
			return fmt.Errorf("storing tenures: %w", err)
		}

		kept := tenure.Normalize(tenures, pipeline.TenureOptions(cfg))
		fmt.Printf("Imported %d tenures (%d used after blacklist and minimum length)\n", len(tenures), len(kept))
		return nil
	},
}

var tenuresListCmd = &cobra.Command{
	Use:   "list [organization]",
	Short: "List effective tenures",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stored, err := db.GetTenures()
		if err != nil {
			return err
		}
		tenures := tenure.Normalize(stored, pipeline.TenureOptions(cfg))
		if len(tenures) == 0 {
			fmt.Println("No tenures stored. Import some with: clichecounter tenures import <csv>")
			return nil
		}

		org := ""
		for _, tn := range tenures {
			if len(args) == 1 && tn.Organization != args[0] {
				continue
			}
			if tn.Organization != org {
				org = tn.Organization
				fmt.Printf("\n%s:\n", org)
			}
			end := "present"
			if tn.End != nil {
				end = tn.End.Format("2006-01-02")
			}
			fmt.Printf("  %s  %s to %s\n", tn.Speaker, tn.Start.Format("2006-01-02"), end)
		}
		return nil
	},
}

func init() {
	tenuresCmd.AddCommand(tenuresImportCmd)
	tenuresCmd.AddCommand(tenuresListCmd)
}
