package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomyedwab/toolprobe/archive"
	"github.com/tomyedwab/toolprobe/config"
	"github.com/tomyedwab/toolprobe/errors"
	"github.com/tomyedwab/toolprobe/history"
	"github.com/tomyedwab/toolprobe/report"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "examine",
	Short: "Summarize captured schema files",
	Long: `examine reads every <tool>_schema.json file written by toolprobe and prints
the fields of each captured message that matter for schema work: message types,
tools, model, content previews and result flags.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	Args:          cobra.NoArgs,
	RunE:          runExamine,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", config.DefaultFileName, "config file")
	rootCmd.PersistentFlags().String("schemas-dir", "", "directory holding schema files")

	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", errors.UserFriendlyMessage(err))

		if suggestion := errors.Suggestion(err); suggestion != "" {
			fmt.Fprintf(os.Stderr, "Suggestion: %s\n", suggestion)
		}

		os.Exit(errors.ExitCode(err))
	}
}

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show [tool-key]",
	Short: "Summarize one schema file",
	Long: `Summarize the schema file of one tool, e.g. 'examine show edit_tool'.

With --transcript the captured messages are rendered as a readable transcript
instead of the field summary.`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent scenario outcomes",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	showCmd.Flags().Bool("transcript", false, "render the messages as a transcript")

	historyCmd.Flags().Int("limit", 20, "maximum number of entries to show (0 for all)")
	historyCmd.Flags().String("scenario", "", "only show entries for this scenario")
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("schemas-dir") {
		cfg.SchemasDir, _ = cmd.Flags().GetString("schemas-dir")
	}
	return cfg, nil
}

// runExamine is the handler for the root command
func runExamine(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	failed, err := report.SummarizeAll(cmd.OutOrStdout(), cfg.SchemasDir)
	if err != nil {
		return err
	}
	if failed > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "\n%d schema file(s) could not be read\n", failed)
	}
	return nil
}

// runShow is the handler for the show command
func runShow(cmd *cobra.Command, args []string) error {
	toolKey := strings.TrimSuffix(args[0], archive.FileSuffix)
	transcript, _ := cmd.Flags().GetBool("transcript")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	store, err := archive.OpenStore(cfg.SchemasDir)
	if err != nil {
		return err
	}

	record, err := store.Load(toolKey)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if transcript {
		fmt.Fprint(out, report.FormatTranscript(record))
		return nil
	}
	report.Summarize(out, toolKey+archive.FileSuffix, record)
	return nil
}

// runHistory is the handler for the history command
func runHistory(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	scenario, _ := cmd.Flags().GetString("scenario")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if !cfg.HistoryEnabled() {
		return errors.NewInvalidInputError("run history is disabled (history_db is empty)")
	}
	if _, err := os.Stat(cfg.HistoryDB); os.IsNotExist(err) {
		return errors.NewNotFoundError("history database", cfg.HistoryDB)
	}

	db, err := history.Open(cfg.HistoryDB)
	if err != nil {
		return err
	}
	defer db.Close()

	var entries []history.Entry
	if scenario != "" {
		entries, err = db.ForScenario(scenario, limit)
	} else {
		entries, err = db.Recent(limit)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tRUN\tSCENARIO\tRESULT\tEXIT\tMESSAGES\tIGNORED\tTOKENS\tCOST\tDURATION\tERROR")
	for _, e := range entries {
		result := "PASSED"
		if !e.Success {
			result = "FAILED"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t$%.4f\t%v\t%s\n",
			e.StartedAt.Local().Format("2006-01-02 15:04:05"),
			e.RunID,
			e.Scenario,
			result,
			e.ExitCode,
			e.MessageCount,
			e.IgnoredLines,
			e.TokenUsage.TotalTokens,
			e.TokenUsage.CostUSD,
			time.Duration(e.DurationMS)*time.Millisecond,
			e.Error,
		)
	}
	return w.Flush()
}
