package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/TobiSchelling/ClicheCounter/internal/aggregate"
	"github.com/TobiSchelling/ClicheCounter/internal/database"
	"github.com/TobiSchelling/ClicheCounter/internal/pipeline"
	"github.com/TobiSchelling/ClicheCounter/internal/report"
)

// --- detect command ---

var (
	detectAll   bool
	metricsFile string
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Detect phrases in transcripts with text",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		provider, shutdown := initMetrics()
		defer shutdown()

		ctx, cancel := signalContext()
		defer cancel()

		res, err := pipeline.New(cfg, db, providerMetrics(provider)).Detect(ctx, detectAll)
		if err != nil {
			return err
		}

		fmt.Println("\nDetection complete:")
		fmt.Printf("  Transcripts: %d\n", res.Documents)
		fmt.Printf("  Occurrences: %d\n", res.Occurrences)
		if res.SemanticUnavailable > 0 {
			fmt.Printf("  Semantic unavailable: %d\n", res.SemanticUnavailable)
		}
		if len(res.Failures) > 0 {
			fmt.Printf("  Failed: %d\n", len(res.Failures))
			for _, f := range res.Failures {
				fmt.Printf("    %v\n", f)
			}
		}
		return reportMetrics(provider, metricsFile)
	},
}

func init() {
	detectCmd.Flags().BoolVar(&detectAll, "all", false, "Re-run detection on transcripts that already have results")
	detectCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Write detection metrics to this file in the Prometheus text format")
}

// --- run command ---

var dryRun bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: collect -> fetch -> detect -> aggregate -> report",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		provider, shutdown := initMetrics()
		defer shutdown()

		ctx, cancel := signalContext()
		defer cancel()

		pipe := pipeline.New(cfg, db, providerMetrics(provider))

		var result *pipeline.Result
		if dryRun {
			result = pipe.DryRun()
		} else {
			result = pipe.Run(ctx)
		}

		for i, step := range result.Steps {
			fmt.Printf("\nStep %d/5: %s\n", i+1, step.Name)
			if step.Err != nil {
				fmt.Printf("  Error: %v\n", step.Err)
			} else {
				fmt.Printf("  %s\n", step.Summary)
			}
		}

		if dryRun {
			return nil
		}
		if err := reportMetrics(provider, metricsFile); err != nil {
			return err
		}
		if result.Failed() {
			return fmt.Errorf("run %s failed", result.RunID)
		}
		fmt.Println("\nPipeline complete! Run 'clichecounter serve' to view the report.")
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be done without executing")
	runCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Write detection metrics to this file in the Prometheus text format")
}

// --- report command ---

var (
	reportBy  string
	reportCSV string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the current report, a grouped summary, or export CSV files",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		composer, err := pipeline.NewComposer(cfg, db)
		if err != nil {
			return err
		}
		data, err := composer.Load()
		if err != nil {
			return err
		}

		if reportCSV != "" {
			paths, err := report.WriteCSV(reportCSV, data)
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Println("Wrote", p)
			}
			return nil
		}

		if reportBy == "" {
			r, err := report.Compose(fmt.Sprintf("Cliché report %s", database.GetToday()), data.Rows, data.Vocab, data.Options)
			if err != nil {
				return err
			}
			fmt.Print(r.Markdown)
			return nil
		}
		return printSummary(data, reportBy)
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportBy, "by", "", "Group by organization, speaker, week or month")
	reportCmd.Flags().StringVar(&reportCSV, "csv", "", "Write CSV exports to this directory")
}

func printSummary(data *report.Data, by string) error {
	opts := data.Options
	k := opts.Normalization

	var key aggregate.KeyFunc
	ranked := true
	switch by {
	case "organization":
		key = aggregate.ByOrganization
	case "speaker":
		key = aggregate.BySpeaker
	case "week", "month":
		b, err := aggregate.ParseBucket(by)
		if err != nil {
			return err
		}
		key = aggregate.ByBucket(b)
		ranked = false
	default:
		return fmt.Errorf("unknown grouping %q (organization, speaker, week or month)", by)
	}

	acc := aggregate.NewAccumulator(data.Vocab.Len(), key)
	for _, row := range data.Rows {
		if err := acc.Add(row); err != nil {
			return err
		}
	}
	sums := acc.Summaries()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "#\tGROUP\tTRANSCRIPTS\tWORDS\tCLICHES\tPER %d\tFAVOURITE\n", int(k))
	line := func(pos int, s aggregate.Summary, rate float64) {
		fav := "-"
		if pc, ok := aggregate.MostUsed(s, data.Vocab); ok {
			fav = fmt.Sprintf("%s (%d)", pc.Phrase, pc.Count)
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%d\t%.2f\t%s\n", pos, s.Key, s.Documents, s.Tokens, s.Total, rate, fav)
	}
	if ranked {
		for _, r := range aggregate.Rank(sums, k, opts.Rank) {
			line(r.Position, r.Summary, r.Rate)
		}
	} else {
		for i, s := range sums {
			line(i+1, s, s.Rate(k))
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if n := acc.Skipped(); n > 0 {
		fmt.Printf("\n%d transcripts without a publication date were left out\n", n)
	}
	return nil
}
