package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fenilsonani/orgest/internal/config"
	"github.com/fenilsonani/orgest/internal/deps"
	"github.com/fenilsonani/orgest/internal/logging"
	"github.com/fenilsonani/orgest/internal/platform"
	"github.com/fenilsonani/orgest/internal/reporter"
	"github.com/fenilsonani/orgest/internal/stage"
	"github.com/fenilsonani/orgest/pkg/utils"
)

var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

var (
	configPath string
	verbose    bool
	logLevel   string
	logFormat  string
	pause      bool
	assumeYes  bool
	outputFmt  string
	outputFile string
	initConfig bool
	install    bool
	pruneDays  int
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "orgest",
	Short: "Organize a folder of photos and videos",
	Long: `orgest tidies a folder of media files: it removes duplicate content, sorts
images and videos into folders, converts webp and ts files, flattens nested
folders, and normalizes images, keeping originals until you confirm cleanup.

Run without arguments for the interactive menu.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := setup(cmd)
		if err != nil {
			return err
		}
		return rt.app(true).Run(cmd.Context())
	},
}

var autoCmd = &cobra.Command{
	Use:   "auto <folder>",
	Short: "Run every step over a folder",
	Long: `Runs duplicate removal, sorting, conversion, flattening, a final duplicate
check, image preprocessing and cleanup in sequence without per-step
confirmations. Cleanup still asks before deleting each working folder
unless --yes is given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := setup(cmd)
		if err != nil {
			return err
		}
		root, release, err := rt.openRoot(args[0])
		if err != nil {
			return err
		}
		defer release()

		if !cmd.Flags().Changed("pause") {
			pause = rt.cfg.Display.PauseBetweenSteps
		}
		ledger := rt.app(false).RunAutomatic(cmd.Context(), root, pause)
		if ledger.Interrupted {
			return context.Canceled
		}
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:       "run <step> <folder>",
	Short:     "Run a single step over a folder",
	Long:      "Runs one step with its confirmations. Steps: " + strings.Join(stage.Names, ", ") + ".",
	Args:      cobra.ExactArgs(2),
	ValidArgs: stage.Names,
	RunE: func(cmd *cobra.Command, args []string) error {
		step := strings.ToLower(args[0])
		if !slices.Contains(stage.Names, step) {
			return fmt.Errorf("unknown step %q (choose one of %s)", args[0], strings.Join(stage.Names, ", "))
		}

		rt, err := setup(cmd)
		if err != nil {
			return err
		}
		root, release, err := rt.openRoot(args[1])
		if err != nil {
			return err
		}
		defer release()

		_, err = rt.app(false).RunSteps(cmd.Context(), root, step)
		return err
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan <folder>",
	Short: "Report duplicate files without changing anything",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := reporter.ParseFormat(outputFmt)
		if err != nil {
			return err
		}
		rt, err := setup(cmd)
		if err != nil {
			return err
		}
		root, err := rt.validator.ValidateRoot(args[0])
		if err != nil {
			return err
		}

		result, err := rt.scan(cmd.Context(), root)
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}

		if outputFile != "" {
			if err := reporter.SaveToFile(outputFile, format, func(r *reporter.Reporter) error {
				return r.Scan(result)
			}); err != nil {
				return fmt.Errorf("failed to save report: %w", err)
			}
			fmt.Printf("Report saved to: %s\n", outputFile)
			return nil
		}

		return reporter.New(os.Stdout, format).Scan(result)
	},
}

var depsCmd = &cobra.Command{
	Use:   "deps",
	Short: "Check the external tools orgest uses",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := setup(cmd)
		if err != nil {
			return err
		}

		requirements := []deps.Requirement{deps.TranscoderRequirement(rt.cfg.Transcoder)}
		info, err := platform.GetInfo()
		if err != nil {
			rt.logger.Warn("platform details unavailable", logging.Error(err))
		} else {
			fmt.Printf("Platform: %s (user %s)\n\n", info.OS, info.Username)
			requirements = append(requirements, deps.InstallerRequirements(info.Installers)...)
		}

		if install {
			provisioner := deps.NewProvisioner(rt.cfg.Transcoder, rt.logger)
			if status := provisioner.Status(); !status.Available {
				fmt.Printf("Installing %s...\n", status.Command)
				if _, err := provisioner.Ensure(cmd.Context()); err != nil {
					rt.logger.Warn("install failed", logging.Error(err))
				}
			}
		}

		statuses := deps.CheckBinaries(requirements)
		if err := reporter.New(os.Stdout, reporter.FormatTable).Deps(statuses); err != nil {
			return err
		}
		if transcoder := statuses[0]; !transcoder.Available {
			return fmt.Errorf("%s is not available: conversions will be skipped", transcoder.Command)
		}
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Display the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if initConfig {
			path, err := config.EnsureConfigExists()
			if err != nil {
				return err
			}
			fmt.Printf("Config file: %s\n", path)
			return nil
		}

		cfgPath := configPath
		if cfgPath == "" {
			var err error
			if cfgPath, err = config.GetConfigPath(); err != nil {
				return err
			}
		}
		fmt.Printf("Config file: %s\n", cfgPath)
		if _, err := os.Stat(cfgPath); errors.Is(err, os.ErrNotExist) {
			fmt.Println("Config file does not exist. Using default configuration.")
			fmt.Println("Run `orgest config --init` to create it.")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		fmt.Println()
		encoder := yaml.NewEncoder(os.Stdout)
		defer encoder.Close()
		return encoder.Encode(cfg)
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List previous runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := reporter.ParseFormat(outputFmt)
		if err != nil {
			return err
		}
		store, err := config.NewHistoryStore()
		if err != nil {
			return err
		}

		if pruneDays > 0 {
			removed, err := store.Prune(pruneDays)
			if err != nil {
				return err
			}
			fmt.Printf("Removed %s older than %d days\n", utils.Plural(removed, "run"), pruneDays)
		}

		records, err := store.List()
		if err != nil {
			return err
		}
		return reporter.New(os.Stdout, format).History(records)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "log every file operation")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (console, json)")

	// Auto command flags
	autoCmd.Flags().BoolVar(&pause, "pause", false, "wait for Enter between steps")
	autoCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "answer yes to every confirmation, including deletions")

	// Run command flags
	runCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "answer yes to every confirmation, including deletions")

	// Scan command flags
	scanCmd.Flags().StringVar(&outputFmt, "output", "summary", "output format (summary, table, json, yaml)")
	scanCmd.Flags().StringVar(&outputFile, "file", "", "save report to file")

	// Deps command flags
	depsCmd.Flags().BoolVar(&install, "install", false, "try to install missing tools")

	// Config command flags
	configCmd.Flags().BoolVar(&initConfig, "init", false, "write the default config file if missing")

	// History command flags
	historyCmd.Flags().StringVar(&outputFmt, "output", "table", "output format (summary, table, json, yaml)")
	historyCmd.Flags().IntVar(&pruneDays, "prune", 0, "delete runs older than this many days")

	// Add commands
	rootCmd.AddCommand(autoCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(depsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(historyCmd)
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}

	cfgPath, err := config.GetConfigPath()
	if err != nil {
		return nil, err
	}

	return config.Load(cfgPath)
}
