package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/TobiSchelling/ClicheCounter/internal/config"
	"github.com/TobiSchelling/ClicheCounter/internal/database"
	"github.com/TobiSchelling/ClicheCounter/internal/observe"
	"github.com/TobiSchelling/ClicheCounter/internal/server"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "clichecounter",
	Short:   "Count stock phrases in press conference transcripts",
	Long:    "ClicheCounter collects transcripts, detects clichés with exact, fuzzy and semantic matching, and reports usage rates per organization, speaker and week.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(tenuresCmd)
	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("clichecounter", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/clichecounter/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure the phrase vocabulary, playlists and embedding provider.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("Today: %s\n\n", database.GetToday())
		fmt.Println("Transcripts:")
		fmt.Printf("  Total collected: %d\n", stats.Transcripts)
		fmt.Printf("  With text: %d\n", stats.WithText)
		fmt.Printf("  Analysed: %d\n", stats.Detected)
		fmt.Printf("  Organizations: %d\n", stats.Organizations)
		fmt.Println("\nTenures:")
		fmt.Printf("  Stored: %d\n", stats.Tenures)
		fmt.Println("\nOutput:")
		fmt.Printf("  Runs: %d\n", stats.Runs)
		fmt.Printf("  Reports: %d\n", stats.Reports)
		fmt.Println("\nDetection:")
		fmt.Printf("  Strategies: %v\n", cfg.Detection.Strategies)
		fmt.Printf("  Embeddings: %s\n", cfg.Embeddings.Provider)
		return nil
	},
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}
		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(db, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to run server on")
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "clichecounter.db")
	return database.Open(dbPath)
}

// initMetrics installs the OpenTelemetry provider. Metrics are optional:
// on failure a nil provider is returned, which records nothing.
func initMetrics() (*observe.Provider, func()) {
	p, err := observe.InitProvider()
	if err != nil {
		log.Printf("Metrics disabled: %v", err)
		return nil, func() {}
	}
	return p, func() {
		if err := p.Shutdown(context.Background()); err != nil {
			log.Printf("Shutting down metrics: %v", err)
		}
	}
}

func providerMetrics(p *observe.Provider) *observe.Metrics {
	if p == nil {
		return nil
	}
	return p.Metrics
}

// reportMetrics prints the detection metrics of this process and, when
// textfile is set, writes them in the Prometheus text format.
func reportMetrics(p *observe.Provider, textfile string) error {
	if p == nil {
		return nil
	}
	snap, err := p.Snapshot(context.Background())
	if err != nil {
		return err
	}
	if lines := snap.Lines(); len(lines) > 0 {
		fmt.Println("\nMetrics:")
		for _, l := range lines {
			fmt.Printf("  %s\n", l)
		}
	}
	if textfile == "" {
		return nil
	}
	if err := p.WriteTextfile(textfile); err != nil {
		return err
	}
	fmt.Printf("  Written to %s\n", textfile)
	return nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func printCounts(title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	fmt.Printf("\n%s:\n", title)
	type kv struct {
		key string
		val int
	}
	var sorted []kv
	for k, v := range counts {
		sorted = append(sorted, kv{k, v})
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].val != sorted[j].val {
			return sorted[i].val > sorted[j].val
		}
		return sorted[i].key < sorted[j].key
	})
	for _, s := range sorted {
		fmt.Printf("  %s: %d\n", s.key, s.val)
	}
}
