// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the fact-engine CLI. It wires the
// research pipeline (discover, fetch, extract, claims, resolve, graph,
// report) behind subcommands and resolves configuration from flags, the
// config file, the environment, and .secrets/.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/fact-engine/internal/logging"
	"github.com/pdiddy/fact-engine/internal/secrets"
	"github.com/pdiddy/fact-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds the key store read from .secrets/ at startup.
var loadedSecrets *secrets.Store

// resolveSecrets fills API keys the config file left empty from the
// environment and .secrets/.
func resolveSecrets(cfg *types.Config) {
	cfg.Discover.BraveAPIKey = loadedSecrets.Resolve(secrets.BraveKey, cfg.Discover.BraveAPIKey)
	cfg.Discover.SerpAPIKey = loadedSecrets.Resolve(secrets.SerpKey, cfg.Discover.SerpAPIKey)
	cfg.Claims.APIKey = loadedSecrets.Resolve(secrets.OpenAIKey, cfg.Claims.APIKey)
}

// rootCmd is the base command for the fact-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "fact-engine",
	Short: "Evidence-first company research",
	Long: `fact-engine researches a company across the public web and produces a
fact graph where every claim carries verbatim source evidence. A run walks
a fixed stage sequence (discover, fetch, extract, claims, resolve, graph,
report); each stage's output is cached so halted runs resume where they
stopped and finished runs replay without network traffic.

Start a run with "fact-engine run", inspect it with "status" and "graph",
and rebuild its report with "report".`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		jsonLogs, _ := cmd.Flags().GetBool("json-logs")
		verbose, _ := cmd.Flags().GetBool("verbose")
		if err := logging.Initialize(jsonLogs, verbose); err != nil {
			return err
		}

		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if names := s.Names(); len(names) > 0 {
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", names)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./fact-engine.yaml or ~/.config/fact-engine/config.yaml)")
	rootCmd.PersistentFlags().String("workdir", "", "work directory for the fact database and run artifacts (default: research)")
	rootCmd.PersistentFlags().Bool("json-logs", false, "emit logs as JSON")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("fact-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "fact-engine"))
		}
	}

	viper.SetEnvPrefix("FACT_ENGINE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig resolves the effective configuration: defaults, then the config
// file viper located, then environment and flag overrides. The file decodes
// through yaml so the inline HTTP and AI sections land in the right fields.
func loadConfig() (types.Config, error) {
	cfg := types.DefaultConfig()

	if path := viper.ConfigFileUsed(); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if v := viper.GetString("work_dir"); v != "" {
		cfg.WorkDir = v
	}
	if workDir, _ := rootCmd.PersistentFlags().GetString("workdir"); workDir != "" {
		cfg.WorkDir = workDir
	}

	return cfg, nil
}

func main() {
	err := rootCmd.Execute()
	logging.Sync()
	if err != nil {
		os.Exit(1)
	}
}
