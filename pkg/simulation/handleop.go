package simulation

import (
	"context"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/opsec-labs/aa-validation-simulator/pkg/entrypoint"
	"github.com/opsec-labs/aa-validation-simulator/pkg/tracer"
)

// SimulateHandleOp traces a handleOps([op], beneficiary) call and extracts
// the call-gas and verification-gas numbers the entry point's
// ExecutionResult revert reports, per pkg 4.6.
func SimulateHandleOp(ctx context.Context, deps Dependencies, req HandleOpRequest) (*GasSimulationSuccess, *GasSimulationError) {
	blockHash, err := deps.PinBlockHash(ctx, req.BlockID)
	if err != nil {
		return nil, &GasSimulationError{Kind: GasErrOther, Other: err}
	}

	out, err := deps.Tracer.TraceHandleOp(ctx, tracer.HandleOpInput{
		EntryPoint:  req.EntryPoint,
		Op:          req.Op,
		Beneficiary: req.Beneficiary,
		BlockHash:   blockHash,
	})
	if err != nil {
		return nil, &GasSimulationError{Kind: GasErrOther, Other: err}
	}

	if out.RevertData == nil {
		return nil, &GasSimulationError{Kind: GasErrDidNotRevert}
	}

	execResult, kind, err := decodeEntryPointError(out.RevertData)
	if err != nil {
		return nil, &GasSimulationError{Kind: GasErrOther, Other: err}
	}
	if execResult == nil {
		return nil, &GasSimulationError{Kind: GasErrDidNotRevertWithExecutionResult, EntryPointErrorKind: kind}
	}
	_ = execResult // pre_op_gas is deliberately ignored; see below.

	if len(out.Phases) != 3 {
		return nil, &GasSimulationError{Kind: GasErrIncorrectPhaseCount, NumPhases: len(out.Phases)}
	}

	accountPhase := out.Phases[1]
	if accountPhase.AccountRevertData != nil {
		reason, reasonErr := decodeAccountRevertReason(accountPhase.AccountRevertData)
		if reasonErr != nil {
			return nil, &GasSimulationError{Kind: GasErrOther, Other: reasonErr}
		}
		return nil, &GasSimulationError{Kind: GasErrAccountExecutionReverted, Reason: reason}
	}

	// pre_op_gas from the ExecutionResult payload is deliberately ignored:
	// it double-counts the user-supplied preVerificationGas. verification
	// and call gas come straight from the tracer's per-phase gas_used.
	return &GasSimulationSuccess{
		CallGas:         accountPhase.GasUsed,
		VerificationGas: out.Phases[0].GasUsed,
	}, nil
}

// decodeEntryPointError tries ExecutionResult first (the only accepted
// success shape), then the other entry-point error variants purely to name
// what was returned instead, for a precise DidNotRevertWithExecutionResult
// diagnostic.
func decodeEntryPointError(data []byte) (*entrypoint.ExecutionResult, string, error) {
	if result, ok, err := entrypoint.DecodeExecutionResult(data); err != nil {
		return nil, "", err
	} else if ok {
		return result, "ExecutionResult", nil
	}
	if _, ok, err := entrypoint.DecodeFailedOp(data); err != nil {
		return nil, "", err
	} else if ok {
		return nil, "FailedOp", nil
	}
	if _, ok, err := entrypoint.DecodeValidationOutput(data); err != nil {
		return nil, "", err
	} else if ok {
		return nil, "ValidationResult", nil
	}
	return nil, "unknown", nil
}

// decodeAccountRevertReason decodes a solidity Error(string) revert,
// falling back to the raw hex when the payload doesn't match that shape.
func decodeAccountRevertReason(data []byte) (string, error) {
	reason, ok, err := entrypoint.DecodeContractRevertError(data)
	if err != nil {
		return "", err
	}
	if ok {
		return reason, nil
	}
	return hexutil.Encode(data), nil
}
