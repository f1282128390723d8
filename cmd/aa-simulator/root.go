// Command aa-simulator runs an ERC-4337 simulateValidation/handleOps
// trace against a node and reports the rule-engine's verdict, either as a
// one-shot CLI call or as a small JSON HTTP server.
package main

import (
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/spf13/cobra"

	"github.com/opsec-labs/aa-validation-simulator/internal/logger"
	"github.com/opsec-labs/aa-validation-simulator/pkg/codehash"
	"github.com/opsec-labs/aa-validation-simulator/pkg/simulation"
	"github.com/opsec-labs/aa-validation-simulator/pkg/tracer"
)

var (
	rpcURL          string
	minUnstakeDelay uint32
	minStakeValue   string
	collectorTracer string
)

func main() {
	root := &cobra.Command{
		Use:   "aa-simulator",
		Short: "Simulate ERC-4337 UserOperation validation and execution",
	}
	root.PersistentFlags().StringVar(&rpcURL, "rpc-url", "", "JSON-RPC URL of the node to simulate against")
	root.PersistentFlags().Uint32Var(&minUnstakeDelay, "min-unstake-delay", 84_600, "minimum unstake delay (seconds) for an entity to be considered staked")
	root.PersistentFlags().StringVar(&minStakeValue, "min-stake-value", "1000000000000000000", "minimum stake (wei) for an entity to be considered staked")
	root.PersistentFlags().StringVar(&collectorTracer, "collector-tracer", tracer.DefaultCollectorTracer, "name of the debug_traceCall tracer registered on the node")
	_ = root.MarkPersistentFlagRequired("rpc-url")

	root.AddCommand(newValidateCmd(), newSimulateHandleOpCmd(), newServeCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildDependencies dials the configured RPC URL and assembles the shared
// Dependencies struct every subcommand runs its simulation through.
func buildDependencies() (simulation.Dependencies, error) {
	client, err := rpc.Dial(rpcURL)
	if err != nil {
		return simulation.Dependencies{}, fmt.Errorf("dial %s: %w", rpcURL, err)
	}
	settings, err := parseSettings()
	if err != nil {
		return simulation.Dependencies{}, err
	}
	return simulation.Dependencies{
		Tracer:      &tracer.JSONRPCTracer{RPC: client, CollectorName: collectorTracer},
		CodeFetcher: &codehash.RPCCodeFetcher{RPC: client},
		RPC:         client,
		Settings:    settings,
	}, nil
}

func parseSettings() (simulation.Settings, error) {
	n, ok := new(big.Int).SetString(minStakeValue, 10)
	if !ok {
		return simulation.Settings{}, fmt.Errorf("invalid --min-stake-value: %q", minStakeValue)
	}
	return simulation.Settings{MinUnstakeDelay: minUnstakeDelay, MinStakeValue: n}, nil
}

var log = logger.NewZeroLogr().WithName("aa-simulator")
