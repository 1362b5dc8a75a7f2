package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pushchain/chain-orchestrator/orchestrator/store"
)

func txCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tx",
		Short: "Submit and track transactions",
	}
	cmd.AddCommand(txSendCmd())
	cmd.AddCommand(txStatusCmd())
	return cmd
}

func txSendCmd() *cobra.Command {
	var (
		walletID uint
		chainID  uint
		to       string
		value    string
		data     string
		gasLimit string
		is1559   bool
		async    bool
	)
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Create a transaction and drive it through prepare and submit",
		Long: `
Create a transaction from a stored wallet. By default the transaction is
prepared and submitted immediately and the hash is printed; confirmation is
tracked by a running "porchestratord start". With --async the transaction is
only queued.

Examples:
  porchestratord tx send --wallet 1 --to 0x000000000000000000000000000000000000dEaD --value 1000
  porchestratord tx send --wallet 2 --to <address> --value 5000 --async
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if walletID == 0 || to == "" {
				return fmt.Errorf("--wallet and --to are required")
			}
			o, err := openOrchestrator(cmd)
			if err != nil {
				return err
			}
			defer o.Stop()

			ctx := commandContext(cmd)
			wallet, err := o.Repo.GetWallet(ctx, walletID)
			if err != nil {
				return err
			}
			tx := &store.Transaction{
				WalletID: wallet.ID,
				From:     wallet.Address,
				To:       to,
				Value:    value,
				Data:     data,
				Is1559:   is1559,
			}
			if chainID != 0 {
				tx.BlockchainID = &chainID
			}
			if gasLimit != "" {
				tx.GasLimit = &gasLimit
			}

			if async {
				if err := o.Lifecycle.Create(ctx, tx); err != nil {
					return err
				}
				return printJSON(cmd, tx)
			}
			hash, err := o.Lifecycle.RunNow(ctx, tx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
	cmd.Flags().UintVar(&walletID, "wallet", 0, "sending wallet id")
	cmd.Flags().UintVar(&chainID, "blockchain", 0, "blockchain id (defaults to the protocol default)")
	cmd.Flags().StringVar(&to, "to", "", "recipient address")
	cmd.Flags().StringVar(&value, "value", "0", "amount in base units, decimal or 0x-hex")
	cmd.Flags().StringVar(&data, "data", "", "0x-hex calldata or protocol payload")
	cmd.Flags().StringVar(&gasLimit, "gas-limit", "", "gas limit override")
	cmd.Flags().BoolVar(&is1559, "eip1559", false, "use dynamic fee pricing on EVM")
	cmd.Flags().BoolVar(&async, "async", false, "queue the transaction instead of running it now")
	return cmd
}

func txStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <tx-id>",
		Short: "Print a stored transaction",
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

			tx, err := o.Repo.GetTransaction(commandContext(cmd), id)
			if err != nil {
				return err
			}
			return printJSON(cmd, tx)
		},
	}
}
