package simulation

import (
	"context"
	"math/big"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/opsec-labs/aa-validation-simulator/pkg/codehash"
	"github.com/opsec-labs/aa-validation-simulator/pkg/tracer"
	"github.com/opsec-labs/aa-validation-simulator/pkg/userop"
)

// BlockID pins the block a call should be evaluated against. The zero value
// means "latest"; once resolved, every on-chain read within the same
// simulation call reuses the resolved hash.
type BlockID struct {
	Hash   *common.Hash
	Number *big.Int
}

// ValidateRequest is the input to SimulateValidation.
type ValidateRequest struct {
	EntryPoint       common.Address
	Op               *userop.UserOperation
	BlockID          BlockID
	ExpectedCodeHash *common.Hash
}

// HandleOpRequest is the input to SimulateHandleOp.
type HandleOpRequest struct {
	EntryPoint  common.Address
	Op          *userop.UserOperation
	Beneficiary common.Address
	BlockID     BlockID
}

// SimulationSuccess is the result of a clean simulate_validation call.
type SimulationSuccess struct {
	BlockHash            common.Hash
	PreOpGas             *big.Int
	SignatureFailed      bool
	ValidAfter           *big.Int
	ValidUntil           *big.Int
	AggregatorAddress    common.Address
	AggregatorSignature  []byte
	CodeHash             common.Hash
	EntitiesNeedingStake []userop.Entity
	SenderIsStaked       bool
	AccessedAddresses    mapset.Set[common.Address]
	ExpectedStorageSlots []tracer.ExpectedStorageSlot
}

// GasSimulationSuccess is the result of a clean simulate_handle_op call.
type GasSimulationSuccess struct {
	CallGas         uint64
	VerificationGas uint64
}

// Dependencies bundles everything SimulateValidation/SimulateHandleOp need
// beyond their request: the tracer, a bytecode fetcher for the code-hash
// fingerprint, the RPC client used for block-hash pinning and aggregator
// calls, and the configured stake thresholds. All fields are safe for
// concurrent use and are shared by reference across calls, same as the
// underlying JSON-RPC provider.
type Dependencies struct {
	Tracer      tracer.Tracer
	CodeFetcher codehash.CodeFetcher
	RPC         *rpc.Client
	Settings    Settings
}

// PinBlockHash resolves a BlockID to a concrete block hash. A BlockID with
// neither Hash nor Number set resolves to the chain head at call time; once
// resolved, the caller threads the returned hash through every subsequent
// read in the same simulation so all reads see one consistent view.
func (d Dependencies) PinBlockHash(ctx context.Context, id BlockID) (common.Hash, error) {
	if id.Hash != nil {
		return *id.Hash, nil
	}
	blockArg := "latest"
	if id.Number != nil {
		blockArg = "0x" + id.Number.Text(16)
	}
	var header struct {
		Hash common.Hash `json:"hash"`
	}
	if err := d.RPC.CallContext(ctx, &header, "eth_getBlockByNumber", blockArg, false); err != nil {
		return common.Hash{}, err
	}
	return header.Hash, nil
}
