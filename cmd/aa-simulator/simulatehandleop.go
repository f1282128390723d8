package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/opsec-labs/aa-validation-simulator/pkg/simulation"
)

func newSimulateHandleOpCmd() *cobra.Command {
	var opFile, entryPointFlag, beneficiaryFlag string

	cmd := &cobra.Command{
		Use:   "simulate-handle-op",
		Short: "Run a handleOps gas simulation for a single UserOperation",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(opFile)
			if err != nil {
				return err
			}

			var parsed any
			if err := json.Unmarshal(raw, &parsed); err != nil {
				return fmt.Errorf("parse user operation JSON: %w", err)
			}
			if err := validateUserOpWire(parsed); err != nil {
				return err
			}

			var wire userOpWire
			if err := json.Unmarshal(raw, &wire); err != nil {
				return fmt.Errorf("decode user operation JSON: %w", err)
			}
			op, err := toUserOperation(wire)
			if err != nil {
				return err
			}

			deps, err := buildDependencies()
			if err != nil {
				return err
			}

			success, gasErr := simulation.SimulateHandleOp(context.Background(), deps, simulation.HandleOpRequest{
				EntryPoint:  common.HexToAddress(entryPointFlag),
				Op:          op,
				Beneficiary: common.HexToAddress(beneficiaryFlag),
			})
			if gasErr != nil {
				if gasErr.Other != nil {
					return gasErr.Other
				}
				if err := printJSON(map[string]string{"error": gasErr.Error()}); err != nil {
					return err
				}
				os.Exit(1)
			}
			return printJSON(struct {
				CallGas         uint64 `json:"callGas"`
				VerificationGas uint64 `json:"verificationGas"`
			}{success.CallGas, success.VerificationGas})
		},
	}
	cmd.Flags().StringVar(&opFile, "op", "-", "path to a JSON UserOperation, or - for stdin")
	cmd.Flags().StringVar(&entryPointFlag, "entry-point", "", "EntryPoint contract address")
	cmd.Flags().StringVar(&beneficiaryFlag, "beneficiary", "", "address to receive the handleOps gas refund")
	_ = cmd.MarkFlagRequired("entry-point")
	_ = cmd.MarkFlagRequired("beneficiary")
	return cmd
}
