package simulation

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/opsec-labs/aa-validation-simulator/pkg/aggregator"
	"github.com/opsec-labs/aa-validation-simulator/pkg/codehash"
	"github.com/opsec-labs/aa-validation-simulator/pkg/userop"
)

type postValidationInput struct {
	Op             *userop.UserOperation
	EntryPoint     common.Address
	BlockHash      common.Hash
	AccessedAddrs  []common.Address
	ExpectedHash   *common.Hash
	AggregatorAddr common.Address
}

type postValidationOutput struct {
	codeHash            common.Hash
	aggregatorSignature []byte
	violations          []Violation
}

// runPostValidation runs the code-hash fingerprint and the aggregator
// signature check concurrently, per the concurrency model: the two I/O-bound
// sub-tasks are joined, and a non-violation failure in either cancels the
// other immediately via the shared context.
func runPostValidation(ctx context.Context, deps Dependencies, in postValidationInput) (postValidationOutput, *SimulationError) {
	group, gctx := errgroup.WithContext(ctx)

	var codeHash common.Hash
	group.Go(func() error {
		h, err := codehashCompute(gctx, deps.CodeFetcher, in.AccessedAddrs, in.BlockHash)
		if err != nil {
			return err
		}
		codeHash = h
		return nil
	})

	var aggOutcome aggregator.Outcome
	var aggSig []byte
	group.Go(func() error {
		outcome, sig, err := aggregator.Validate(gctx, deps.RPC, in.AggregatorAddr, in.Op, in.BlockHash)
		if err != nil {
			return err
		}
		aggOutcome, aggSig = outcome, sig
		return nil
	})

	if err := group.Wait(); err != nil {
		return postValidationOutput{}, otherError(err)
	}

	var violations []Violation
	if in.ExpectedHash != nil && *in.ExpectedHash != codeHash {
		violations = append(violations, Violation{Kind: KindCodeHashChanged})
	}
	var signature []byte
	switch aggOutcome {
	case aggregator.Success:
		signature = aggSig
	case aggregator.ValidationFailed:
		violations = append(violations, Violation{Kind: KindAggregatorValidationFailed})
	}

	return postValidationOutput{
		codeHash:            codeHash,
		aggregatorSignature: signature,
		violations:          violations,
	}, nil
}

func codehashCompute(ctx context.Context, fetcher codehash.CodeFetcher, addrs []common.Address, blockHash common.Hash) (common.Hash, error) {
	return codehash.Compute(ctx, fetcher, addrs, blockHash)
}
