package main

import (
	"github.com/spf13/cobra"

	"github.com/pushchain/chain-orchestrator/orchestrator/keyrelease"
)

func keyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Custodial key operations",
	}
	cmd.AddCommand(keyReleaseCmd())
	return cmd
}

func keyReleaseCmd() *cobra.Command {
	var (
		userID uint
		reason string
	)
	cmd := &cobra.Command{
		Use:   "release <wallet-id>",
		Short: "Disclose a wallet's private key to its owner",
		Long: `
Release the private key of a custodial or shared wallet to its owner. Each
release is audited and rate limited; a custodial wallet becomes shared once
its key has left custody.
`,
		Args: cobra.ExactArgs(1),
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

			res, err := o.KeyRelease.Release(commandContext(cmd), keyrelease.Request{
				WalletID:        id,
				UserID:          userID,
				UserAgent:       "porchestratord",
				SecurityContext: reason,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}
	cmd.Flags().UintVar(&userID, "user", 0, "requesting user id")
	cmd.Flags().StringVar(&reason, "reason", "cli", "security context recorded in the audit trail")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
