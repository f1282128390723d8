package simulation

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/opsec-labs/aa-validation-simulator/pkg/entrypoint"
	"github.com/opsec-labs/aa-validation-simulator/pkg/tracer"
	"github.com/opsec-labs/aa-validation-simulator/pkg/userop"
)

// ValidationContext is the output of the context builder: a decoded,
// phase-count-checked trace ready for the rule engine.
type ValidationContext struct {
	Op          *userop.UserOperation
	BlockHash   common.Hash
	EntryPoint  common.Address
	TracerOut   *tracer.TracerOutput
	Output      *entrypoint.ValidationOutput
	EntityInfos EntityInfos
}

// buildContext performs the traced simulateValidation call, enforces the
// phase-count and revert-decoding invariants in the exact order the
// reference bundler does (too-many-phases, then revert-absent, then
// FailedOp decode, then ValidationOutput decode, then too-few-phases), and
// assembles a ValidationContext. Tracer and decoding failures are returned
// as Other; a wrong phase count, a missing revert, a FailedOp revert and an
// undecodable revert are returned as a single-entry Violations list.
func buildContext(ctx context.Context, tr tracer.Tracer, entryPoint common.Address, op *userop.UserOperation, blockHash common.Hash, settings Settings) (*ValidationContext, *SimulationError) {
	out, err := tr.TraceValidation(ctx, tracer.ValidationInput{
		EntryPoint: entryPoint,
		Op:         op,
		BlockHash:  blockHash,
	})
	if err != nil {
		return nil, otherError(fmt.Errorf("trace simulateValidation: %w", err))
	}

	numPhases := len(out.Phases)
	if numPhases > 3 {
		return nil, violationsError([]Violation{{Kind: KindWrongNumberOfPhases, NumPhases: numPhases}})
	}
	if out.RevertData == nil {
		return nil, violationsError([]Violation{{Kind: KindDidNotRevert}})
	}

	lastEntity, _ := userop.FromValidationPhase(numPhases - 1)
	lastEntityAddr := entityAddress(lastEntity, op)

	if failedOp, ok, err := entrypoint.DecodeFailedOp(out.RevertData); err != nil {
		return nil, otherError(fmt.Errorf("decode FailedOp: %w", err))
	} else if ok {
		return nil, violationsError([]Violation{{
			Kind:    KindUnintendedRevertWithMessage,
			Entity:  lastEntity,
			Address: lastEntityAddr,
			Reason:  failedOp.Reason,
		}})
	}

	validationOutput, ok, err := entrypoint.DecodeValidationOutput(out.RevertData)
	if err != nil {
		return nil, otherError(fmt.Errorf("decode ValidationOutput: %w", err))
	}
	if !ok {
		return nil, violationsError([]Violation{{Kind: KindUnintendedRevert, Entity: lastEntity, Address: lastEntityAddr}})
	}

	if numPhases < 3 {
		return nil, violationsError([]Violation{{Kind: KindWrongNumberOfPhases, NumPhases: numPhases}})
	}

	return &ValidationContext{
		Op:          op,
		BlockHash:   blockHash,
		EntryPoint:  entryPoint,
		TracerOut:   out,
		Output:      validationOutput,
		EntityInfos: BuildEntityInfos(op, validationOutput, settings),
	}, nil
}

func entityAddress(entity userop.Entity, op *userop.UserOperation) common.Address {
	switch entity {
	case userop.EntityFactory:
		addr, _ := op.Factory()
		return addr
	case userop.EntityAccount:
		return op.Sender
	case userop.EntityPaymaster:
		addr, _ := op.Paymaster()
		return addr
	default:
		return common.Address{}
	}
}
