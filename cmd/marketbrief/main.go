// Command marketbrief generates an AI-written stock market report for a
// date range and saves it as Markdown.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/marketbrief/marketbrief/internal/config"
	"github.com/marketbrief/marketbrief/internal/datasource"
	"github.com/marketbrief/marketbrief/internal/llm"
	"github.com/marketbrief/marketbrief/internal/report"
)

// Build-time variables, set via ldflags.
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

const dateLayout = "2006-01-02"

func main() {
	// Missing .env is fine; explicit environment still applies.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		agentName string
		startStr  string
		endStr    string
		output    string
		verbose   bool
	)

	root := &cobra.Command{
		Use:   "marketbrief",
		Short: "AI-powered stock market report generator",
		Long: `marketbrief aggregates market indices, sector performance, economic
indicators, and financial news for a date range, then uses an AI agent
(OpenAI, Claude, or Gemini) to write a comprehensive Markdown report.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(verbose)
			if err != nil {
				return err
			}
			defer logger.Sync()

			start, end, err := resolveDates(startStr, endStr, logger)
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			manager, err := llm.NewManager(cfg, logger, agentName)
			if err != nil {
				return err
			}
			if agentName != "" && manager.Current() != agentName {
				return fmt.Errorf("agent %q is not available (configured: %v)", agentName, manager.Available())
			}

			agg := datasource.NewAggregator(cfg, logger)
			defer agg.Close()
			gen := report.NewGenerator(agg, manager, logger)

			logger.Info("generating report",
				zap.String("agent", manager.Current()),
				zap.String("start", start.Format(dateLayout)),
				zap.String("end", end.Format(dateLayout)))

			text := gen.Generate(context.Background(), start, end)
			if diags := agg.Diagnostics(); len(diags) > 0 {
				logger.Warn("some data could not be fetched", zap.Int("failures", len(diags)))
			}

			if output == "" {
				output = cfg.Report.OutputDir
			}
			path, err := report.Save(text, output)
			if err != nil {
				return err
			}
			fmt.Println("Report saved to", path)
			return nil
		},
	}

	root.Flags().StringVarP(&agentName, "agent", "a", "", "AI agent to use (openai, claude, gemini)")
	root.Flags().StringVar(&startStr, "start", "", "report period start date (YYYY-MM-DD, default 7 days ago)")
	root.Flags().StringVar(&endStr, "end", "", "report period end date (YYYY-MM-DD, default today)")
	root.Flags().StringVarP(&output, "output", "o", "", "output file or directory (default timestamped file)")
	root.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newKeysCmd(), newVersionCmd())
	return root
}

// resolveDates parses the period flags, defaulting to the trailing week.
func resolveDates(startStr, endStr string, logger *zap.Logger) (time.Time, time.Time, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -7)

	var err error
	if endStr != "" {
		end, err = time.Parse(dateLayout, endStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --end date %q: %w", endStr, err)
		}
		start = end.AddDate(0, 0, -7)
	}
	if startStr != "" {
		start, err = time.Parse(dateLayout, startStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --start date %q: %w", startStr, err)
		}
	}

	if !start.Before(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("start date %s must be before end date %s",
			start.Format(dateLayout), end.Format(dateLayout))
	}
	if end.Sub(start) > 365*24*time.Hour {
		logger.Warn("report period exceeds one year; data quality may suffer",
			zap.String("start", start.Format(dateLayout)),
			zap.String("end", end.Format(dateLayout)))
	}
	return start, end, nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	return cfg.Build()
}

func newKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "Show configured API keys (masked) and agent priority",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			fmt.Println("API Key Status:")
			for _, status := range config.CheckAPIKeys(cfg) {
				if status.IsSet {
					fmt.Printf("  %-24s %s (from %s)\n", status.Name+":", status.Masked, status.Source)
				} else {
					fmt.Printf("  %-24s not set\n", status.Name+":")
				}
			}
			fmt.Println("\nAgent priority:", llm.Priority)
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("marketbrief %s (commit %s, built %s)\n", version, commit, buildDate)
		},
	}
}
