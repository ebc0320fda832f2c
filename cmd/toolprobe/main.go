package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tomyedwab/toolprobe/archive"
	"github.com/tomyedwab/toolprobe/capture"
	"github.com/tomyedwab/toolprobe/config"
	"github.com/tomyedwab/toolprobe/errors"
	"github.com/tomyedwab/toolprobe/history"
	"github.com/tomyedwab/toolprobe/logging"
	"github.com/tomyedwab/toolprobe/scenarios"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "toolprobe",
	Short: "Capture the stream-json output of agent CLI tool calls",
	Long: `toolprobe runs the agent CLI against a fixed set of tool scenarios (Edit,
Write, MultiEdit, NotebookEdit), captures the line-delimited JSON it prints,
and saves each capture to <schemas-dir>/<tool>_schema.json.

Use 'examine' to summarize the captured files.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	Args:          cobra.NoArgs,
	RunE:          runProbe,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", config.DefaultFileName, "config file")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable verbose output")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-error output")

	addProbeFlags(rootCmd)

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(initConfigCmd)
}

// addProbeFlags registers the flags that override config values for a run
func addProbeFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("only", nil, "run only these scenarios (comma separated)")
	cmd.Flags().String("schemas-dir", "", "directory to write schema files to")
	cmd.Flags().String("test-files-dir", "", "directory to create scenario fixtures in")
	cmd.Flags().String("program", "", "agent CLI executable")
	cmd.Flags().StringArray("extra-arg", nil, "extra argument passed to the agent CLI (repeatable)")
	cmd.Flags().Bool("no-history", false, "do not record outcomes in the history database")
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

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the available scenarios",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		for _, s := range scenarios.Default() {
			fmt.Fprintf(out, "%-14s %-13s %s -> %s%s\n", s.Key, s.ToolName, s.Description, s.StorageKey, archive.FileSuffix)
		}
		return nil
	},
}

// initConfigCmd represents the init-config command
var initConfigCmd = &cobra.Command{
	Use:   "init-config",
	Short: "Write a default configuration file",
	Long: `Write the default configuration to the path given by --config
(toolprobe.yml by default). An existing file is left untouched unless --force is set.`,
	Args: cobra.NoArgs,
	RunE: runInitConfig,
}

func init() {
	initConfigCmd.Flags().Bool("force", false, "overwrite an existing configuration file")
}

func runInitConfig(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("config")
	force, _ := cmd.Flags().GetBool("force")

	if _, err := os.Stat(path); err == nil && !force {
		return errors.NewInvalidInputError(fmt.Sprintf("%s already exists (use --force to overwrite)", path))
	}

	if err := config.Default().Save(path); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", path)
	return nil
}

// loadConfig reads the config file and applies command-line overrides
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("schemas-dir") {
		cfg.SchemasDir, _ = flags.GetString("schemas-dir")
	}
	if flags.Changed("test-files-dir") {
		cfg.TestFilesDir, _ = flags.GetString("test-files-dir")
	}
	if flags.Changed("program") {
		cfg.Program, _ = flags.GetString("program")
	}
	if flags.Changed("extra-arg") {
		extra, _ := flags.GetStringArray("extra-arg")
		cfg.ExtraArgs = append(cfg.ExtraArgs, extra...)
	}
	if flags.Changed("only") {
		cfg.Scenarios, _ = flags.GetStringSlice("only")
	}
	if noHistory, _ := flags.GetBool("no-history"); noHistory {
		cfg.HistoryDB = ""
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogger(cmd *cobra.Command, cfg *config.Config) *logging.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")
	quiet, _ := cmd.Flags().GetBool("quiet")

	level := logging.INFO
	if verbose {
		level = logging.DEBUG
	} else if quiet {
		level = logging.WARN
	}

	logger := logging.NewLogger(level, cfg.LogFile)
	logging.SetGlobalLogger(logger)
	return logger
}

// runProbe is the handler for the root command
func runProbe(cmd *cobra.Command, args []string) error {
	// Variables from .env reach the agent CLI through the inherited environment
	_ = godotenv.Load()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	selected, err := scenarios.Select(scenarios.Default(), cfg.Scenarios)
	if err != nil {
		return err
	}

	logger := setupLogger(cmd, cfg)
	runLog := logging.NewRunLogger(logger, logging.GenerateRunID())

	store, err := archive.NewStore(cfg.SchemasDir)
	if err != nil {
		return err
	}

	var historyDB *history.DB
	if cfg.HistoryEnabled() {
		historyDB, err = history.Open(cfg.HistoryDB)
		if err != nil {
			runLog.LogWarning("history", "Run history disabled", map[string]interface{}{
				"error": err.Error(),
			})
			historyDB = nil
		} else {
			defer historyDB.Close()
		}
	}

	runner := capture.NewRunner(cfg.Program, logger)
	runner.WorkDir = cfg.WorkDir

	// Prompts name fixture paths relative to our cwd, not the agent's
	testFilesDir := cfg.TestFilesDir
	if cfg.WorkDir != "" {
		if abs, err := filepath.Abs(testFilesDir); err == nil {
			testFilesDir = abs
		}
	}

	out := cmd.OutOrStdout()
	wd, _ := os.Getwd()
	absSchemas, _ := filepath.Abs(store.Dir())
	fmt.Fprintln(out, "Starting agent CLI tool testing...")
	fmt.Fprintf(out, "Working directory: %s\n", wd)
	fmt.Fprintf(out, "Schemas will be saved to: %s\n", absSchemas)

	driver := &scenarios.Driver{
		Runner:       runner,
		Store:        store,
		TestFilesDir: testFilesDir,
		ExtraArgs:    cfg.ExtraArgs,
		History:      historyDB,
		Log:          runLog,
	}

	outcomes, err := driver.Run(selected)
	if err != nil {
		return err
	}

	scenarios.WriteSummary(out, outcomes, absSchemas)

	if failed := scenarios.FailedKeys(outcomes); len(failed) > 0 {
		return errors.NewScenarioFailedError(failed).
			WithContext("scenarios", strings.Join(failed, ","))
	}
	return nil
}
