package simulation

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/opsec-labs/aa-validation-simulator/pkg/userop"
)

var summaryPrinter = message.NewPrinter(language.English)

// ViolationKind tags a Violation's variant. Declaration order is the
// severity ranking tests pin: lower index is more severe.
type ViolationKind int

const (
	KindUnintendedRevertWithMessage ViolationKind = iota
	KindUsedForbiddenOpcode
	KindInvalidGasOpcode
	KindFactoryCalledCreate2Twice
	KindInvalidStorageAccess
	KindNotStaked
	KindUnintendedRevert
	KindDidNotRevert
	KindWrongNumberOfPhases
	KindCallHadValue
	KindOutOfGas
	KindAccessedUndeployedContract
	KindCalledHandleOps
	KindCodeHashChanged
	KindAggregatorValidationFailed
)

// Violation is one rule-engine finding, tagged with enough context to
// render independently of the rest of the report.
type Violation struct {
	Kind ViolationKind

	Entity  userop.Entity
	Address common.Address
	Opcode  string
	Reason  string
	NumPhases int

	MinStakeValue   *big.Int
	MinUnstakeDelay uint32

	// phase and seq are not part of the rendered message; they exist
	// purely to total-order violations discovered within the same Kind
	// (phase index ascending, then insertion order within the phase).
	phase int
	seq   int
}

func (v Violation) Error() string {
	switch v.Kind {
	case KindUnintendedRevertWithMessage:
		return fmt.Sprintf("%s (%s) reverted with message %q during simulation", v.Entity, v.Address, v.Reason)
	case KindUsedForbiddenOpcode:
		return fmt.Sprintf("%s used forbidden opcode %s", v.Entity, v.Opcode)
	case KindInvalidGasOpcode:
		return fmt.Sprintf("%s used an invalid gas opcode", v.Entity)
	case KindFactoryCalledCreate2Twice:
		return "factory called CREATE2 more than once"
	case KindInvalidStorageAccess:
		return fmt.Sprintf("%s accessed disallowed storage at %s", v.Entity, v.Address)
	case KindNotStaked:
		return fmt.Sprintf("%s (%s) is not staked (requires stake >= %s and unstake delay >= %d)", v.Entity, v.Address, v.MinStakeValue, v.MinUnstakeDelay)
	case KindUnintendedRevert:
		return fmt.Sprintf("%s reverted unexpectedly during simulation", v.Entity)
	case KindDidNotRevert:
		return "simulateValidation did not revert"
	case KindWrongNumberOfPhases:
		return fmt.Sprintf("simulation produced an unexpected number of phases: %d", v.NumPhases)
	case KindCallHadValue:
		return fmt.Sprintf("%s was called with value", v.Entity)
	case KindOutOfGas:
		return fmt.Sprintf("%s ran out of gas during simulation", v.Entity)
	case KindAccessedUndeployedContract:
		return fmt.Sprintf("%s accessed undeployed contract %s", v.Entity, v.Address)
	case KindCalledHandleOps:
		return fmt.Sprintf("%s called handleOps", v.Entity)
	case KindCodeHashChanged:
		return "code hash of accessed contracts changed since it was last checked"
	case KindAggregatorValidationFailed:
		return "aggregator signature validation failed"
	default:
		return "unknown violation"
	}
}

// ViolationsByRank sorts violations by (Kind declaration order, phase
// index, insertion order within the phase) — the ordering the testable
// properties pin as part of the contract, not an implementation accident.
type ViolationsByRank []Violation

func (v ViolationsByRank) Len() int      { return len(v) }
func (v ViolationsByRank) Swap(i, j int) { v[i], v[j] = v[j], v[i] }
func (v ViolationsByRank) Less(i, j int) bool {
	if v[i].Kind != v[j].Kind {
		return v[i].Kind < v[j].Kind
	}
	if v[i].phase != v[j].phase {
		return v[i].phase < v[j].phase
	}
	return v[i].seq < v[j].seq
}

// SimulationError is the top-level error type for simulate_validation: either
// a non-empty, ordered Violations list (protocol-rule faults, expected to be
// rendered by the caller) or an Other infrastructure fault (RPC transport,
// unexpected-payload decoding, aggregator transport errors) that operators
// should alarm on.
type SimulationError struct {
	Violations []Violation
	Other      error
}

func (e *SimulationError) Error() string {
	if e.Other != nil {
		return e.Other.Error()
	}
	if len(e.Violations) == 0 {
		return "simulation error with no violations recorded"
	}
	return e.Violations[0].Error()
}

func (e *SimulationError) Unwrap() error { return e.Other }

// Summary renders a one-line, human-facing count of the violations found,
// the way an operator-facing log line or CLI error summary would.
func (e *SimulationError) Summary() string {
	if e.Other != nil {
		return e.Other.Error()
	}
	if len(e.Violations) == 0 {
		return e.Error()
	}
	return summaryPrinter.Sprintf("%d violation(s), most severe: %s", len(e.Violations), e.Violations[0].Error())
}

func violationsError(vs []Violation) *SimulationError {
	return &SimulationError{Violations: vs}
}

func otherError(err error) *SimulationError {
	return &SimulationError{Other: err}
}

// GasSimulationErrorKind tags a GasSimulationError's variant.
type GasSimulationErrorKind int

const (
	GasErrDidNotRevert GasSimulationErrorKind = iota
	GasErrDidNotRevertWithExecutionResult
	GasErrAccountExecutionReverted
	GasErrIncorrectPhaseCount
	GasErrOther
)

// GasSimulationError is the error type for simulate_handle_op. It never
// carries a violation list.
type GasSimulationError struct {
	Kind        GasSimulationErrorKind
	EntryPointErrorKind string
	Reason      string
	NumPhases   int
	Other       error
}

func (e *GasSimulationError) Error() string {
	switch e.Kind {
	case GasErrDidNotRevert:
		return "handleOps simulation did not revert"
	case GasErrDidNotRevertWithExecutionResult:
		return fmt.Sprintf("handleOps simulation reverted with %s instead of ExecutionResult", e.EntryPointErrorKind)
	case GasErrAccountExecutionReverted:
		return fmt.Sprintf("account execution reverted: %s", e.Reason)
	case GasErrIncorrectPhaseCount:
		return fmt.Sprintf("handleOps simulation produced an incorrect phase count: %d", e.NumPhases)
	case GasErrOther:
		return e.Other.Error()
	default:
		return "unknown gas simulation error"
	}
}

func (e *GasSimulationError) Unwrap() error { return e.Other }
