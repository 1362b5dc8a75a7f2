package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pushchain/chain-orchestrator/orchestrator/chains/common"
	"github.com/pushchain/chain-orchestrator/orchestrator/keys"
	"github.com/pushchain/chain-orchestrator/orchestrator/store"
)

func walletCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Create and inspect wallets",
	}
	cmd.AddCommand(walletCreateCmd())
	cmd.AddCommand(walletShowCmd())
	cmd.AddCommand(walletBalanceCmd())
	return cmd
}

func walletCreateCmd() *cobra.Command {
	var (
		walletType string
		scheme     string
		address    string
		owner      uint
		chainID    uint
	)
	cmd := &cobra.Command{
		Use:   "create <protocol>",
		Short: "Generate a custodial wallet or register an external address",
		Long: `
Create a wallet for a protocol. Custodial and shared wallets get a freshly
generated key, encrypted with the master key passphrase. External wallets
only record --address.

Examples:
  porchestratord wallet create evm --owner 7
  porchestratord wallet create solana
  porchestratord wallet create bitcoin --type external --address tb1q...
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := store.ParseProtocol(args[0])
			if err != nil {
				return err
			}
			wt, err := store.ParseWalletType(walletType)
			if err != nil {
				return err
			}

			o, err := openOrchestrator(cmd)
			if err != nil {
				return err
			}
			defer o.Stop()

			ctx := commandContext(cmd)
			adapter, err := o.Router.Adapter(p)
			if err != nil {
				return err
			}

			var chain *store.Blockchain
			if chainID != 0 {
				if chain, err = o.Repo.GetBlockchain(ctx, chainID); err != nil {
					return err
				}
			}
			var ownerID *uint
			if owner != 0 {
				ownerID = &owner
			}

			wallet, err := adapter.CreateWallet(ctx, common.WalletAttrs{
				WalletType: wt,
				KeyScheme:  keys.Scheme(scheme),
				Address:    address,
			}, ownerID, chain)
			if err != nil {
				return err
			}
			return printJSON(cmd, wallet)
		},
	}
	cmd.Flags().StringVar(&walletType, "type", string(store.WalletCustodial), "wallet type: custodial, shared or external")
	cmd.Flags().StringVar(&scheme, "scheme", "", "key scheme (defaults to the protocol's native scheme)")
	cmd.Flags().StringVar(&address, "address", "", "address of an external wallet")
	cmd.Flags().UintVar(&owner, "owner", 0, "owning user id")
	cmd.Flags().UintVar(&chainID, "blockchain", 0, "blockchain id the wallet belongs to")
	return cmd
}

func walletShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <wallet-id>",
		Short: "Print a wallet (never its key)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			o, err := openOrchestrator(cmd)
			if err != nil {
				return err
			}
			defer o.Stop()

			wallet, err := o.Repo.GetWallet(commandContext(cmd), id)
			if err != nil {
				return err
			}
			return printJSON(cmd, wallet)
		},
	}
}

func walletBalanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance <wallet-id>",
		Short: "Fetch the native balance and record a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			o, err := openOrchestrator(cmd)
			if err != nil {
				return err
			}
			defer o.Stop()

			ctx := commandContext(cmd)
			wallet, err := o.Repo.GetWallet(ctx, id)
			if err != nil {
				return err
			}
			change, err := o.Balances.RefreshNative(ctx, wallet)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), change.New)
			return nil
		},
	}
}

func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return uint(id), nil
}
