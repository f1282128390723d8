// Package tracer defines the output contract of the external validation
// tracer (a custom debug_traceCall JavaScript tracer) and the associated-slot
// relation it precomputes. The tracer script itself is an external
// collaborator; this package defines the shape the rest of the simulator
// consumes, a Tracer interface callers invoke through, and (in jsonrpc.go) a
// debug_traceCall-based Tracer that decodes the collector's JSON output into
// TracerOutput.
package tracer

import (
	"context"
	"math/big"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/opsec-labs/aa-validation-simulator/pkg/userop"
)

// StorageAccess records every slot of one address touched during a phase.
type StorageAccess struct {
	Address common.Address
	Slots   []*big.Int
}

// Phase is one contiguous segment of the trace attributed to one actor.
type Phase struct {
	ForbiddenOpcodesUsed        []string
	UsedInvalidGasOpcode        bool
	StorageAccesses             []StorageAccess
	CalledWithValue             bool
	RanOutOfGas                 bool
	UndeployedContractAccesses  []common.Address
	CalledHandleOps             bool

	// handleOps-only fields.
	GasUsed           uint64
	AccountRevertData []byte
}

// ExpectedStorageSlot is one (address, slot, value) triple the tracer
// observed and that simulate_validation surfaces to the caller as a
// sender-signed invariant the mempool should re-check before inclusion.
type ExpectedStorageSlot struct {
	Address common.Address
	Slot     *big.Int
	Value    *big.Int
}

// AssociatedSlotsByAddress is the read-only relation mapping an address to
// the storage slots the tracer determined are "associated" with it: slot
// equal to keccak256(address || key) for some key, or within the 128-slot
// range starting there (mirroring Solidity mapping layout). An exact match
// on a base slot is a set lookup; any other slot is checked by scanning the
// address's base slots, so that check is linear in their number.
type AssociatedSlotsByAddress struct {
	slots map[common.Address]mapset.Set[string]
}

// NewAssociatedSlotsByAddress builds the relation from a raw address->slots
// map as reported by the tracer.
func NewAssociatedSlotsByAddress(raw map[common.Address][]*big.Int) *AssociatedSlotsByAddress {
	a := &AssociatedSlotsByAddress{slots: make(map[common.Address]mapset.Set[string])}
	for addr, slots := range raw {
		set := mapset.NewThreadUnsafeSet[string]()
		for _, s := range slots {
			set.Add(s.String())
		}
		a.slots[addr] = set
	}
	return a
}

// associatedSlotRange is the number of contiguous slots past the base
// associated slot that still count as associated with the same address,
// mirroring a packed-array-of-structs mapping layout.
var associatedSlotRange = big.NewInt(128)

// IsAssociatedSlot reports whether slot is associated with addr: either it
// is one of the precomputed base slots for addr, or it lies in
// [base, base+128) for one of them.
func (a *AssociatedSlotsByAddress) IsAssociatedSlot(addr common.Address, slot *big.Int) bool {
	set, ok := a.slots[addr]
	if !ok {
		return false
	}
	if set.Contains(slot.String()) {
		return true
	}
	for _, base := range set.ToSlice() {
		baseN, ok := new(big.Int).SetString(base, 10)
		if !ok {
			continue
		}
		upper := new(big.Int).Add(baseN, associatedSlotRange)
		if slot.Cmp(baseN) >= 0 && slot.Cmp(upper) < 0 {
			return true
		}
	}
	return false
}

// TracerOutput is the decoded per-phase trace record the external tracer
// produces for one traced call.
type TracerOutput struct {
	Phases                      []Phase
	RevertData                  []byte
	AccessedContractAddresses   []common.Address
	AssociatedSlotsByAddress    *AssociatedSlotsByAddress
	ExpectedStorage             []ExpectedStorageSlot
	FactoryCalledCreate2Twice   bool
}

// ValidationInput carries the parameters a traced simulateValidation call
// needs beyond the user operation itself.
type ValidationInput struct {
	EntryPoint common.Address
	Op         *userop.UserOperation
	BlockHash  common.Hash
}

// HandleOpInput carries the parameters a traced handleOps call needs.
type HandleOpInput struct {
	EntryPoint  common.Address
	Op          *userop.UserOperation
	Beneficiary common.Address
	BlockHash   common.Hash
}

// Tracer performs one traced EVM call and returns its TracerOutput. The
// context builder (pkg/simulation) depends only on this interface; the
// low-level JSON-RPC transport and the tracer script itself are external
// collaborators (see jsonrpc.go for the debug_traceCall-based adapter).
type Tracer interface {
	TraceValidation(ctx context.Context, in ValidationInput) (*TracerOutput, error)
	TraceHandleOp(ctx context.Context, in HandleOpInput) (*TracerOutput, error)
}
