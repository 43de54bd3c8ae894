package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/segnala/segnala/internal/output"
	"github.com/segnala/segnala/internal/store"
	"github.com/segnala/segnala/internal/textgen"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui        *output.UI
	dataStore store.Store

	verbose bool

	buildVersion = "dev"
	buildCommit  = "none"
	buildDate    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "segnala",
	Short: "Segnala - citizen issue reporting with automated solution workflows",
	Long: `segnala collects municipal issue reports from citizens, tracks each
report through its lifecycle, and runs a deferred workflow that confirms
the report, marks it in progress, and attaches an auto-generated solution
description from a text-generation service.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("segnala %s (commit %s, built %s)\n", buildVersion, buildCommit, buildDate)
	},
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/segnala/config.yaml)")

	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	// If --config is explicitly set, use that file
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}

		configDir := filepath.Join(home, ".config", "segnala")
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("SEGNALA")
	viper.AutomaticEnv()

	// Defaults via viper.SetDefault()
	home, _ := os.UserHomeDir()
	defaultConfigDir := filepath.Join(home, ".config", "segnala")

	viper.SetDefault("state_dir", defaultConfigDir)
	viper.SetDefault("db_path", filepath.Join(defaultConfigDir, "segnala.db"))
	viper.SetDefault("port", 8080)
	viper.SetDefault("workflow.step_delay", 30*time.Second)
	viper.SetDefault("textgen.provider", "completion")
	viper.SetDefault("textgen.endpoint", "http://localhost:8081/completion")
	viper.SetDefault("textgen.timeout", 30*time.Second)
	viper.SetDefault("textgen.max_tokens", 512)
	viper.SetDefault("textgen.temperature", 0.2)
	viper.SetDefault("textgen.stop", []string{"</s>"})
	viper.SetDefault("anthropic.api_key", "")
	viper.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose

	// The store is initialized lazily, only when commands actually need it.
	// This allows config/version commands to run without a db.
}

// getStore returns the shared store, initializing it on first call.
func getStore() (store.Store, error) {
	if dataStore != nil {
		return dataStore, nil
	}

	dbPath := viper.GetString("db_path")
	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := s.Migrate(rootCmd.Context()); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	dataStore = s
	return dataStore, nil
}

// newGenerator builds the configured text generator: a self-hosted completion
// endpoint by default, or the Anthropic API when textgen.provider=anthropic.
func newGenerator() (textgen.Generator, error) {
	switch provider := viper.GetString("textgen.provider"); provider {
	case "completion", "":
		return textgen.NewCompletionClient(textgen.CompletionConfig{
			Endpoint:    viper.GetString("textgen.endpoint"),
			Timeout:     viper.GetDuration("textgen.timeout"),
			MaxTokens:   viper.GetInt("textgen.max_tokens"),
			Temperature: viper.GetFloat64("textgen.temperature"),
			Stop:        viper.GetStringSlice("textgen.stop"),
		}), nil
	case "anthropic":
		apiKey := viper.GetString("anthropic.api_key")
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		return textgen.NewAnthropicClient(apiKey, viper.GetString("anthropic.model"),
			viper.GetInt("textgen.max_tokens")), nil
	default:
		return nil, fmt.Errorf("unknown textgen provider: %s", provider)
	}
}
