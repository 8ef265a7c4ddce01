package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"team-metrics/config"
	"team-metrics/jira"
	"team-metrics/jobs"
	"team-metrics/logger"
	"team-metrics/metrics"
	"team-metrics/report"
	"team-metrics/web"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	configFile  string
	inputFile   string
	outputFile  string
	format      string
	skipInvalid bool
	port        string
	refreshNow  bool
)

var rootCmd = &cobra.Command{
	Use:           "team-metrics",
	Short:         "Jira board inventory and issue flow reports",
	Long:          `Counts the open sprint and backlog into board columns and turns issue changelogs into flow timelines.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var columnsCmd = &cobra.Command{
	Use:   "columns",
	Short: "Print the board column inventory as CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		client := jira.NewClient(cfg, log)
		ctx := cmd.Context()

		sprint, err := client.Search(ctx, cfg.SprintJQL(), "")
		if err != nil {
			return err
		}
		backlog, err := client.Search(ctx, cfg.BacklogJQL(), "")
		if err != nil {
			return err
		}
		inv, err := metrics.CalculateInventory(sprint, backlog)
		if err != nil {
			return err
		}
		return report.WriteInventoryCSV(cmd.OutOrStdout(), inv)
	},
}

var issuesCmd = &cobra.Command{
	Use:   "issues",
	Short: "Build issue timelines and report flow metrics",
	Long:  `Fetches the issues created in the analysis window with their changelogs, or reads a previous JSON export with --input.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}

		issues, err := loadIssues(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		log.Info().Int("issues", len(issues)).Msg("issue timelines built")

		if outputFile == "" {
			return writeIssues(cmd.OutOrStdout(), format, issues)
		}
		return writeIssuesFile(outputFile, format, issues)
	},
}

func writeIssues(w io.Writer, format string, issues []jira.Issue) error {
	switch format {
	case "json":
		return report.WriteIssuesJSON(w, issues)
	case "csv":
		return report.WriteIssuesCSV(w, issues)
	case "summary":
		report.PrintFlowSummary(w, metrics.CalculateFlowMetrics(issues, time.Now()))
		return nil
	default:
		return fmt.Errorf("unknown format %q (want json, csv or summary)", format)
	}
}

// writeIssuesFile returns the Close error as well as any write error.
func writeIssuesFile(filename, format string, issues []jira.Issue) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := writeIssues(f, format, issues); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the scheduled column refresh",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		if port != "" {
			cfg.Port = port
		}

		client := jira.NewClient(cfg, log)
		client.SkipInvalid = skipInvalid
		server := web.NewServer(cfg, client, log)

		cr, err := jobs.NewCron(cfg.ReportCron, log, server)
		if err != nil {
			return err
		}
		cr.Start()
		defer cr.Stop()

		ctx := cmd.Context()
		if refreshNow {
			if err := server.Refresh(ctx); err != nil {
				log.Error().Err(err).Msg("initial column refresh failed")
			}
		}
		return server.Start(ctx, cfg.Port)
	},
}

var sampleConfigCmd = &cobra.Command{
	Use:   "sample-config",
	Short: "Write config.sample.json",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.CreateSampleConfig("config.sample.json"); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Created config.sample.json - edit it and save as config.json")
		return nil
	},
}

func setup() (config.Config, zerolog.Logger, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return config.Config{}, zerolog.Nop(), err
	}
	log := logger.New(cfg)
	if inputFile != "" {
		// Offline runs only read the export; Jira settings are not needed.
		return cfg, log, nil
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, log, err
	}
	return cfg, log, nil
}

func loadIssues(ctx context.Context, cfg config.Config, log zerolog.Logger) ([]jira.Issue, error) {
	if inputFile != "" {
		f, err := os.Open(inputFile)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return report.ReadIssuesJSON(f)
	}
	client := jira.NewClient(cfg, log)
	client.SkipInvalid = skipInvalid
	return client.Report(ctx, cfg.ReportJQL(time.Now()))
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "config.json", "Path to JSON config (falls back to environment)")
	rootCmd.PersistentFlags().BoolVar(&skipInvalid, "skip-invalid", false, "Log and skip issues with malformed data instead of failing")

	issuesCmd.Flags().StringVar(&inputFile, "input", "", "Read issues from a JSON export instead of Jira")
	issuesCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write to file instead of stdout")
	issuesCmd.Flags().StringVarP(&format, "format", "f", "summary", "Output format: json, csv or summary")

	serveCmd.Flags().StringVar(&port, "port", "", "Port to run the server on (overrides config)")
	serveCmd.Flags().BoolVar(&refreshNow, "refresh", true, "Refresh the column snapshot at startup")

	rootCmd.AddCommand(columnsCmd, issuesCmd, serveCmd, sampleConfigCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
