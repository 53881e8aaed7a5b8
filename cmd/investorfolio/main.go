// investorfolio shows the newly disclosed holdings of a shareholder for a
// quarter and highlights the companies that appeared in earlier filings.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/seenimoa/investorfolio/api"
	"github.com/seenimoa/investorfolio/internal/config"
	"github.com/seenimoa/investorfolio/internal/export"
	"github.com/seenimoa/investorfolio/internal/logging"
	"github.com/seenimoa/investorfolio/internal/reconcile"
	"github.com/seenimoa/investorfolio/internal/render"
	"github.com/seenimoa/investorfolio/internal/rowsource"
	"github.com/seenimoa/investorfolio/pkg/models"
	"github.com/seenimoa/investorfolio/pkg/utils"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config and logger, set up before every command.
var (
	cfg *config.Config
	log *logrus.Logger
)

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "investorfolio",
	Short: "Quarterly shareholder portfolio viewer",
	Long: `investorfolio fetches scraped shareholding rows for a quarter, keeps the
new filings once per company and marks companies the investor already held.
It serves the result as a web page, a JSON API and an Excel download.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		level := cfg.Logging.Level
		if override, _ := cmd.Flags().GetString("log-level"); override != "" {
			level = override
		}
		log = logging.New(level, cfg.Logging.Format, os.Stderr)
		if cfg.File != "" {
			log.WithField("file", cfg.File).Debug("loaded config")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("as-of", "", "reference date YYYY-MM-DD in IST (default: today)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(quartersCmd)
	rootCmd.AddCommand(tableCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(rawCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
}

// referenceTime returns the --as-of date, or the current IST time.
func referenceTime(cmd *cobra.Command) (time.Time, error) {
	asOf, _ := cmd.Flags().GetString("as-of")
	if asOf == "" {
		return utils.NowIST(), nil
	}
	t, err := utils.ParseDateIST(asOf)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --as-of %q: %w", asOf, err)
	}
	return t, nil
}

// selectedQuarter resolves --quarter against the financial year of ref.
func selectedQuarter(cmd *cobra.Command, ref time.Time) (models.Quarter, error) {
	current := utils.CurrentQuarter(ref)
	raw, _ := cmd.Flags().GetString("quarter")
	if raw == "" {
		return current, nil
	}
	label, err := models.ParseQuarterLabel(raw)
	if err != nil {
		return models.Quarter{}, err
	}
	return models.Quarter{Quarter: label, FinancialYear: current.FinancialYear}, nil
}

func newSource() (*rowsource.Client, error) {
	return rowsource.New(cfg.Source.BaseURL, rowsource.Options{
		Timeout:        cfg.Source.Timeout(),
		RequestsPerSec: cfg.Source.RequestsPerSec,
		Logger:         log,
	})
}

// loadQuarter fetches and reconciles the rows for q. A failed fetch yields
// an empty result, matching what the web page shows.
func loadQuarter(ctx context.Context, q models.Quarter) ([]models.PortfolioRow, reconcile.Result, error) {
	src, err := newSource()
	if err != nil {
		return nil, reconcile.Result{}, err
	}
	rows := rowsource.FetchOrEmpty(ctx, src, &q, log)
	return rows, reconcile.Reconcile(rows), nil
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("investorfolio %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Quarters Command ---

var quartersCmd = &cobra.Command{
	Use:   "quarters",
	Short: "Print the current quarter and the quarters before it",
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := referenceTime(cmd)
		if err != nil {
			return err
		}
		n, _ := cmd.Flags().GetInt("count")
		previous, err := utils.PrecedingQuarters(ref, n)
		if err != nil {
			return fmt.Errorf("invalid --count: %w", err)
		}

		fmt.Printf("Current:  %s\n", utils.CurrentQuarter(ref))
		for i, q := range previous {
			fmt.Printf("  -%d:     %s\n", i+1, q)
		}
		return nil
	},
}

func init() {
	quartersCmd.Flags().Int("count", utils.DefaultHistoryQuarters, "number of preceding quarters to list")
}

// --- Table Command ---

var tableCmd = &cobra.Command{
	Use:   "table",
	Short: "Print the reconciled rows for a quarter as a text table",
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := referenceTime(cmd)
		if err != nil {
			return err
		}
		q, err := selectedQuarter(cmd, ref)
		if err != nil {
			return err
		}

		headers, err := render.Headers(ref, cfg.View.HistoryQuarters)
		if err != nil {
			return err
		}
		rows, res, err := loadQuarter(cmd.Context(), q)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			fmt.Println("No data found.")
			return nil
		}

		fmt.Printf("Investor Portfolio (%s)\n\n", q)
		if err := render.Table(os.Stdout, headers, res.DisplayRows()); err != nil {
			return err
		}

		s := reconcile.Summarize(len(rows), res)
		fmt.Println()
		fmt.Printf("Rows fetched:    %d\n", s.TotalRows)
		fmt.Printf("New filings:     %d (%d repeat holders, marked *)\n", s.NewFilings, s.RepeatHolders)
		fmt.Printf("Shares held:     %s\n", utils.FormatIndianDecimal(s.SharesHeld))
		if s.UnparsedShares > 0 {
			fmt.Printf("Unparsed shares: %d\n", s.UnparsedShares)
		}
		return nil
	},
}

func init() {
	tableCmd.Flags().String("quarter", "", "quarter label Q1-Q4 (default: current quarter)")
}

// --- Export Command ---

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the reconciled rows for a quarter to an Excel workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := referenceTime(cmd)
		if err != nil {
			return err
		}
		q, err := selectedQuarter(cmd, ref)
		if err != nil {
			return err
		}
		dir, _ := cmd.Flags().GetString("out")
		if dir == "" {
			dir = cfg.Export.Dir
		}

		headers, err := render.Headers(ref, cfg.View.HistoryQuarters)
		if err != nil {
			return err
		}
		_, res, err := loadQuarter(cmd.Context(), q)
		if err != nil {
			return err
		}
		path, err := export.WriteFile(dir, q, headers, res)
		if err != nil {
			return err
		}

		log.WithFields(logrus.Fields{"path": path, "rows": len(res.Rows)}).Info("workbook written")
		fmt.Println(path)
		return nil
	},
}

func init() {
	exportCmd.Flags().String("quarter", "", "quarter label Q1-Q4 (default: current quarter)")
	exportCmd.Flags().String("out", "", "output directory (default: export.dir from config)")
}

// --- Raw Command ---

var rawCmd = &cobra.Command{
	Use:   "raw",
	Short: "Print every row the row server returns, unfiltered",
	Long: `Fetch {base_url}/portfolio without a quarter and print each row with its
cells joined by " | ". Rows are neither filtered nor de-duplicated.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := newSource()
		if err != nil {
			return err
		}
		rows, err := src.Fetch(cmd.Context(), nil)
		if err != nil {
			return fmt.Errorf("fetch rows: %w", err)
		}
		log.WithField("rows", len(rows)).Debug("fetched raw rows")
		return render.Raw(cmd.OutOrStdout(), rows)
	},
}

// --- Serve Command (HTTP Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := newSource()
		if err != nil {
			return err
		}
		srv := api.NewServer(cfg, src, log, nil)
		return srv.ListenAndServe(cmd.Context(), cfg.API.Addr())
	},
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and the current quarter",
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := referenceTime(cmd)
		if err != nil {
			return err
		}
		line := strings.Repeat("═", 39)

		fmt.Println(line)
		fmt.Println("  investorfolio status")
		fmt.Println(line)
		fmt.Printf("  Version:         %s (%s)\n", version, commit)
		fmt.Printf("  As of:           %s\n", utils.FormatDateIST(ref))
		fmt.Printf("  Time (IST):      %s\n", utils.FormatDateTimeIST(ref))
		fmt.Printf("  Current quarter: %s\n", utils.CurrentQuarter(ref))
		fmt.Println()

		configFile := cfg.File
		if configFile == "" {
			configFile = "(defaults)"
		}
		fmt.Println("  Configuration:")
		fmt.Printf("    Config file:   %s\n", configFile)
		fmt.Printf("    Row source:    %s (timeout %s)\n", cfg.Source.BaseURL, cfg.Source.Timeout())
		fmt.Printf("    History:       %d quarters\n", cfg.View.HistoryQuarters)
		fmt.Printf("    Export dir:    %s\n", cfg.Export.Dir)
		fmt.Printf("    HTTP server:   %s\n", cfg.API.Addr())
		fmt.Printf("    Logging:       %s/%s\n", cfg.Logging.Level, cfg.Logging.Format)
		fmt.Println(line)
		return nil
	},
}
