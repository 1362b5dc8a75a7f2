package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pushchain/chain-orchestrator/orchestrator/config"
	"github.com/pushchain/chain-orchestrator/orchestrator/core"
)

// Version is set at build time with -ldflags.
var Version = "dev"

func startCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Run the lifecycle workers and the query server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			log := newLogger(cfg)

			ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			o, err := core.New(ctx, cfg, log)
			if err != nil {
				return err
			}
			return o.Run(ctx)
		},
	}
}

func initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration to the home directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			home, err := cmd.Flags().GetString(homeFlag)
			if err != nil {
				return err
			}
			path := filepath.Join(home, "config", "orchestrator_config.json")
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
			}

			cfg, err := config.LoadDefaultConfig()
			if err != nil {
				return err
			}
			cfg.NodeHome = home
			if err := config.Save(cfg, home); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}
			if err := os.MkdirAll(cfg.DatabaseDir(), 0o750); err != nil {
				return fmt.Errorf("failed to create data directory: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Config written to %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print porchestratord version info",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "Version:    %s\n", Version)
			if info, ok := debug.ReadBuildInfo(); ok {
				fmt.Fprintf(cmd.OutOrStdout(), "Go:         %s\n", info.GoVersion)
			}
		},
	}
}
