package tracer

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/opsec-labs/aa-validation-simulator/pkg/entrypoint"
	"github.com/opsec-labs/aa-validation-simulator/pkg/userop"
)

// DefaultCollectorTracer is the name of the bundler's native/JS trace
// collector registered with the node, analogous to the teacher's
// tracer.Loaded.BundlerCollectorTracer.
const DefaultCollectorTracer = "bundlerCollectorTracer"

// rawTraceCallReq mirrors the debug_traceCall request body the teacher
// builds in pkg/aimiddleware/utils.TraceCallReq.
type rawTraceCallReq struct {
	From common.Address `json:"from"`
	To   common.Address `json:"to"`
	Data hexutil.Bytes  `json:"data"`
}

type rawTraceCallOpts struct {
	Tracer string `json:"tracer"`
}

// rawCollectorOutput is the shape returned by the collector tracer. Decoding
// of the tracer's raw per-opcode JS output into this shape is an external
// collaborator's concern (not reproduced here); this struct is the boundary
// TracerOutput is built from.
type rawCollectorOutput struct {
	RevertData                hexutil.Bytes                `json:"revertData"`
	AccessedContractAddresses []common.Address              `json:"accessedContractAddresses"`
	AssociatedSlots           map[common.Address][]*big.Int `json:"associatedSlotsByAddress"`
	ExpectedStorage           []ExpectedStorageSlot         `json:"expectedStorage"`
	FactoryCalledCreate2Twice bool                          `json:"factoryCalledCreate2Twice"`
	Phases                    []rawPhase                    `json:"phases"`
}

type rawPhase struct {
	ForbiddenOpcodesUsed       []string         `json:"forbiddenOpcodesUsed"`
	UsedInvalidGasOpcode       bool             `json:"usedInvalidGasOpcode"`
	StorageAccesses            []StorageAccess  `json:"storageAccesses"`
	CalledWithValue            bool             `json:"calledWithValue"`
	RanOutOfGas                bool             `json:"ranOutOfGas"`
	UndeployedContractAccesses []common.Address `json:"undeployedContractAccesses"`
	CalledHandleOps            bool             `json:"calledHandleOps"`
	GasUsed                    uint64           `json:"gasUsed"`
	AccountRevertData          hexutil.Bytes    `json:"accountRevertData"`
}

func (r rawCollectorOutput) toTracerOutput() *TracerOutput {
	phases := make([]Phase, len(r.Phases))
	for i, p := range r.Phases {
		phases[i] = Phase{
			ForbiddenOpcodesUsed:       p.ForbiddenOpcodesUsed,
			UsedInvalidGasOpcode:       p.UsedInvalidGasOpcode,
			StorageAccesses:            p.StorageAccesses,
			CalledWithValue:            p.CalledWithValue,
			RanOutOfGas:                p.RanOutOfGas,
			UndeployedContractAccesses: p.UndeployedContractAccesses,
			CalledHandleOps:            p.CalledHandleOps,
			GasUsed:                    p.GasUsed,
			AccountRevertData:          p.AccountRevertData,
		}
	}
	var revertData []byte
	if len(r.RevertData) > 0 {
		revertData = r.RevertData
	}
	return &TracerOutput{
		Phases:                    phases,
		RevertData:                revertData,
		AccessedContractAddresses: r.AccessedContractAddresses,
		AssociatedSlotsByAddress:  NewAssociatedSlotsByAddress(r.AssociatedSlots),
		ExpectedStorage:           r.ExpectedStorage,
		FactoryCalledCreate2Twice: r.FactoryCalledCreate2Twice,
	}
}

// JSONRPCTracer invokes debug_traceCall against a go-ethereum-compatible
// node to collect a TracerOutput, grounded on
// pkg/aimiddleware/simulation/tracevalidation.go's TraceSimulateValidation.
type JSONRPCTracer struct {
	RPC           *rpc.Client
	CollectorName string
}

// NewJSONRPCTracer returns a JSONRPCTracer using DefaultCollectorTracer.
func NewJSONRPCTracer(client *rpc.Client) *JSONRPCTracer {
	return &JSONRPCTracer{RPC: client, CollectorName: DefaultCollectorTracer}
}

func (t *JSONRPCTracer) traceCall(ctx context.Context, to common.Address, data []byte, blockHash common.Hash) (*TracerOutput, error) {
	var res rawCollectorOutput
	req := rawTraceCallReq{To: to, Data: data}
	opts := rawTraceCallOpts{Tracer: t.CollectorName}
	if err := t.RPC.CallContext(ctx, &res, "debug_traceCall", &req, blockHash, &opts); err != nil {
		return nil, err
	}
	return res.toTracerOutput(), nil
}

// TraceValidation packs simulateValidation(op) and traces it.
func (t *JSONRPCTracer) TraceValidation(ctx context.Context, in ValidationInput) (*TracerOutput, error) {
	data, err := entrypoint.PackSimulateValidation(in.Op)
	if err != nil {
		return nil, err
	}
	return t.traceCall(ctx, in.EntryPoint, data, in.BlockHash)
}

// TraceHandleOp packs handleOps([op], beneficiary) and traces it.
func (t *JSONRPCTracer) TraceHandleOp(ctx context.Context, in HandleOpInput) (*TracerOutput, error) {
	data, err := entrypoint.PackHandleOps([]*userop.UserOperation{in.Op}, in.Beneficiary)
	if err != nil {
		return nil, err
	}
	return t.traceCall(ctx, in.EntryPoint, data, in.BlockHash)
}
