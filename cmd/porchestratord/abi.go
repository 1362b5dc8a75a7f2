package main

import (
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pushchain/chain-orchestrator/orchestrator/abi"
)

func abiCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "abi",
		Short: "Encode EVM calldata",
	}
	cmd.AddCommand(abiEncodeCmd())
	return cmd
}

func abiEncodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "encode <signature> [args...]",
		Short: "Encode a function call",
		Long: `
Encode calldata for a function signature. Integers may be decimal or 0x-hex;
bytes are 0x-hex; bools are true or false.

Examples:
  porchestratord abi encode "transfer(address,uint256)" 0x000000000000000000000000000000000000dEaD 1000
  porchestratord abi encode "setFlag(bool)" true
`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, types, err := abi.ParseSignature(args[0])
			if err != nil {
				return err
			}
			if len(types) != len(args)-1 {
				return fmt.Errorf("signature takes %d arguments, got %d", len(types), len(args)-1)
			}
			values := make([]any, len(types))
			for i, t := range types {
				values[i] = args[i+1]
				if t.Kind == abi.BoolKind {
					b, err := strconv.ParseBool(args[i+1])
					if err != nil {
						return fmt.Errorf("argument %d: %w", i, err)
					}
					values[i] = b
				}
			}
			data, err := abi.EncodeCall(args[0], values...)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "0x"+hex.EncodeToString(data))
			return nil
		},
	}
}
