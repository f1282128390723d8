package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/opsec-labs/aa-validation-simulator/pkg/simulation"
)

func newValidateCmd() *cobra.Command {
	var opFile, entryPointFlag string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Run simulateValidation against a UserOperation and report rule-engine violations",
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

			success, simErr := simulation.SimulateValidation(context.Background(), deps, simulation.ValidateRequest{
				EntryPoint: common.HexToAddress(entryPointFlag),
				Op:         op,
			})
			if simErr != nil {
				return printSimulationError(simErr)
			}
			return printJSON(simulationSuccessWire(success))
		},
	}
	cmd.Flags().StringVar(&opFile, "op", "-", "path to a JSON UserOperation, or - for stdin")
	cmd.Flags().StringVar(&entryPointFlag, "entry-point", "", "EntryPoint contract address")
	_ = cmd.MarkFlagRequired("entry-point")
	return cmd
}

func readInput(path string) ([]byte, error) {
	if path == "-" || path == "" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printSimulationError(simErr *simulation.SimulationError) error {
	if simErr.Other != nil {
		return simErr.Other
	}
	type violationWire struct {
		Kind    string `json:"kind"`
		Entity  string `json:"entity,omitempty"`
		Address string `json:"address,omitempty"`
		Message string `json:"message"`
	}
	out := struct {
		Summary    string          `json:"summary"`
		Violations []violationWire `json:"violations"`
	}{Summary: simErr.Summary()}
	for _, v := range simErr.Violations {
		out.Violations = append(out.Violations, violationWire{
			Entity:  v.Entity.String(),
			Address: v.Address.Hex(),
			Message: v.Error(),
		})
	}
	if err := printJSON(out); err != nil {
		return err
	}
	os.Exit(1)
	return nil
}

func simulationSuccessWire(s *simulation.SimulationSuccess) any {
	return struct {
		BlockHash           string   `json:"blockHash"`
		PreOpGas            string   `json:"preOpGas"`
		ValidAfter           string  `json:"validAfter"`
		ValidUntil           string  `json:"validUntil"`
		SignatureFailed     bool     `json:"signatureFailed"`
		CodeHash            string   `json:"codeHash"`
		EntitiesNeedingStake []string `json:"entitiesNeedingStake"`
		SenderIsStaked      bool     `json:"senderIsStaked"`
	}{
		BlockHash:       s.BlockHash.Hex(),
		PreOpGas:        s.PreOpGas.String(),
		ValidAfter:      s.ValidAfter.String(),
		ValidUntil:      s.ValidUntil.String(),
		SignatureFailed: s.SignatureFailed,
		CodeHash:        s.CodeHash.Hex(),
		EntitiesNeedingStake: func() []string {
			out := make([]string, len(s.EntitiesNeedingStake))
			for i, e := range s.EntitiesNeedingStake {
				out[i] = e.String()
			}
			return out
		}(),
		SenderIsStaked: s.SenderIsStaked,
	}
}
