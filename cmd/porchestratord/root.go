package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pushchain/chain-orchestrator/orchestrator/config"
	"github.com/pushchain/chain-orchestrator/orchestrator/core"
	"github.com/pushchain/chain-orchestrator/orchestrator/logger"
)

const homeFlag = "home"

func defaultNodeHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".porchestrator"
	}
	return filepath.Join(home, ".porchestrator")
}

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "porchestratord",
		Short:         "Multi-chain transaction orchestrator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String(homeFlag, defaultNodeHome(), "node home directory")

	InitRootCmd(rootCmd)
	return rootCmd
}

func InitRootCmd(rootCmd *cobra.Command) {
	rootCmd.AddCommand(startCmd())
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(walletCmd())
	rootCmd.AddCommand(txCmd())
	rootCmd.AddCommand(addressCmd())
	rootCmd.AddCommand(abiCmd())
	rootCmd.AddCommand(keyCmd())
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	home, err := cmd.Flags().GetString(homeFlag)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(home)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	return logger.New(cfg.LogLevel, cfg.LogFormat, cfg.LogSampler)
}

// openOrchestrator assembles the orchestrator without starting workers.
// The caller must Stop it.
func openOrchestrator(cmd *cobra.Command) (*core.Orchestrator, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return core.New(commandContext(cmd), cfg, newLogger(cfg))
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
