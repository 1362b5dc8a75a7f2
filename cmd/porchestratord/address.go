package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pushchain/chain-orchestrator/orchestrator/chains"
	"github.com/pushchain/chain-orchestrator/orchestrator/chains/common"
	"github.com/pushchain/chain-orchestrator/orchestrator/codec"
	"github.com/pushchain/chain-orchestrator/orchestrator/keys"
	"github.com/pushchain/chain-orchestrator/orchestrator/store"
)

func addressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "address",
		Short: "Validate and format addresses offline",
	}
	cmd.AddCommand(addressValidateCmd())
	cmd.AddCommand(addressChecksumCmd())
	return cmd
}

// offlineRouter builds adapters that only need configuration, for commands
// that never touch storage or the network.
func offlineRouter(cmd *cobra.Command) (*chains.Router, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	engine, err := keys.NewEngine(cfg.GetProtocolConfig(store.ProtocolBitcoin.String()).Network)
	if err != nil {
		return nil, err
	}
	return chains.NewRouter(common.Deps{Keys: engine, Config: cfg, Logger: newLogger(cfg)}), nil
}

func addressValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <protocol> <address>",
		Short: "Check an address and print its canonical storage form",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := store.ParseProtocol(args[0])
			if err != nil {
				return err
			}
			router, err := offlineRouter(cmd)
			if err != nil {
				return err
			}
			adapter, err := router.Adapter(p)
			if err != nil {
				return err
			}
			normalized, err := adapter.NormalizeAddress(args[1])
			if err != nil {
				return fmt.Errorf("invalid %s address: %w", p, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), normalized)
			return nil
		},
	}
}

func addressChecksumCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checksum <evm-address>",
		Short: "Print the EIP-55 checksum form of an EVM address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sum, err := codec.ToChecksumAddress(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sum)
			return nil
		},
	}
}
