package simulation

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/opsec-labs/aa-validation-simulator/internal/testutils"
	"github.com/opsec-labs/aa-validation-simulator/pkg/entrypoint"
	"github.com/opsec-labs/aa-validation-simulator/pkg/tracer"
	"github.com/opsec-labs/aa-validation-simulator/pkg/userop"
)

var (
	entryPointAddr = common.HexToAddress("0xe9")
	senderAddr     = common.HexToAddress("0x5")
	paymasterAddr  = common.HexToAddress("0xfa")
)

// fakeTracer returns a fixed TracerOutput for TraceValidation/TraceHandleOp
// regardless of input, and counts invocations so tests can assert the
// short-circuit property.
type fakeTracer struct {
	validationOut   *tracer.TracerOutput
	handleOpOut     *tracer.TracerOutput
	validationCalls int
	handleOpCalls   int
}

func (f *fakeTracer) TraceValidation(ctx context.Context, in tracer.ValidationInput) (*tracer.TracerOutput, error) {
	f.validationCalls++
	return f.validationOut, nil
}

func (f *fakeTracer) TraceHandleOp(ctx context.Context, in tracer.HandleOpInput) (*tracer.TracerOutput, error) {
	f.handleOpCalls++
	return f.handleOpOut, nil
}

// fakeCodeFetcher counts how many times CodeAt is invoked, so tests can
// assert the short-circuit property (no code-hash work on a dirty pass).
type fakeCodeFetcher struct {
	calls int
	code  map[common.Address][]byte
}

func (f *fakeCodeFetcher) CodeAt(ctx context.Context, addr common.Address, blockHash common.Hash) ([]byte, error) {
	f.calls++
	return f.code[addr], nil
}

func op(sender common.Address) *userop.UserOperation {
	return &userop.UserOperation{
		Sender:               sender,
		Nonce:                big.NewInt(0),
		CallGasLimit:         big.NewInt(0),
		VerificationGasLimit: big.NewInt(0),
		PreVerificationGas:   big.NewInt(0),
		MaxFeePerGas:         big.NewInt(0),
		MaxPriorityFeePerGas: big.NewInt(0),
	}
}

func stakeBelowThreshold() entrypoint.StakeInfo {
	return entrypoint.StakeInfo{Stake: big.NewInt(1), UnstakeDelaySec: big.NewInt(1)}
}

func cleanStake() entrypoint.StakeInfo {
	return entrypoint.StakeInfo{Stake: big.NewInt(0), UnstakeDelaySec: big.NewInt(0)}
}

func blockHashMock(t *testing.T, hash common.Hash) *rpc.Client {
	t.Helper()
	srv := testutils.RPCMock(testutils.MethodMocks{
		"eth_getBlockByNumber": map[string]any{"hash": hash.Hex()},
	})
	t.Cleanup(srv.Close)
	client, err := rpc.Dial(srv.URL)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return client
}

// cleanValidationRevert builds a ValidationResult revert with no paymaster
// context and all stake info below threshold, reusable across scenarios
// that don't care about the decoded values themselves.
func cleanValidationRevert(t *testing.T) []byte {
	t.Helper()
	return validationRevertWithPaymasterContext(t, nil)
}

func validationRevertWithPaymasterContext(t *testing.T, paymasterContext []byte) []byte {
	t.Helper()
	data, err := entrypoint.EncodeValidationResult(
		entrypoint.ReturnInfo{
			PreOpGas:         big.NewInt(21000),
			Prefund:          big.NewInt(0),
			SigFailed:        false,
			ValidAfter:       big.NewInt(0),
			ValidUntil:       big.NewInt(1893456000),
			PaymasterContext: paymasterContext,
		},
		cleanStake(), cleanStake(), cleanStake(),
	)
	if err != nil {
		t.Fatalf("encode ValidationResult: %v", err)
	}
	return data
}

func TestSimulateValidationCleanThreePhasesNoPaymaster(t *testing.T) {
	tr := &fakeTracer{validationOut: &tracer.TracerOutput{
		Phases: []tracer.Phase{
			{StorageAccesses: []tracer.StorageAccess{{Address: senderAddr, Slots: []*big.Int{big.NewInt(1)}}}},
			{StorageAccesses: []tracer.StorageAccess{{Address: senderAddr, Slots: []*big.Int{big.NewInt(1)}}}},
			{},
		},
		RevertData:               cleanValidationRevert(t),
		AssociatedSlotsByAddress: tracer.NewAssociatedSlotsByAddress(nil),
	}}
	deps := Dependencies{
		Tracer:      tr,
		CodeFetcher: &fakeCodeFetcher{},
		RPC:         blockHashMock(t, common.HexToHash("0xblock")),
		Settings:    DefaultSettings(),
	}

	success, simErr := SimulateValidation(context.Background(), deps, ValidateRequest{
		EntryPoint: entryPointAddr,
		Op:         op(senderAddr),
	})
	if simErr != nil {
		t.Fatalf("got err %v, want nil", simErr)
	}
	if len(success.EntitiesNeedingStake) != 0 {
		t.Fatalf("got EntitiesNeedingStake %v, want empty", success.EntitiesNeedingStake)
	}
}

func TestSimulateValidationForbiddenOpcodeInFactory(t *testing.T) {
	tr := &fakeTracer{validationOut: &tracer.TracerOutput{
		Phases: []tracer.Phase{
			{ForbiddenOpcodesUsed: []string{"SELFBALANCE"}},
			{},
			{},
		},
		RevertData:               cleanValidationRevert(t),
		AssociatedSlotsByAddress: tracer.NewAssociatedSlotsByAddress(nil),
	}}
	deps := Dependencies{
		Tracer:      tr,
		CodeFetcher: &fakeCodeFetcher{},
		RPC:         blockHashMock(t, common.HexToHash("0xblock")),
		Settings:    DefaultSettings(),
	}
	badOp := op(senderAddr)
	badOp.InitCode = append(common.HexToAddress("0xfac7").Bytes(), 0x01)

	_, simErr := SimulateValidation(context.Background(), deps, ValidateRequest{EntryPoint: entryPointAddr, Op: badOp})
	if simErr == nil {
		t.Fatalf("got nil error, want forbidden-opcode violation")
	}
	if len(simErr.Violations) != 1 || simErr.Violations[0].Kind != KindUsedForbiddenOpcode {
		t.Fatalf("got %+v, want single UsedForbiddenOpcode violation", simErr.Violations)
	}
	if simErr.Violations[0].Entity != userop.EntityFactory || simErr.Violations[0].Opcode != "SELFBALANCE" {
		t.Fatalf("got %+v, want Entity=Factory Opcode=SELFBALANCE", simErr.Violations[0])
	}
}

func TestSimulateValidationBannedStorageRead(t *testing.T) {
	banned := common.HexToAddress("0xbad")
	tr := &fakeTracer{validationOut: &tracer.TracerOutput{
		Phases: []tracer.Phase{
			{},
			{},
			{StorageAccesses: []tracer.StorageAccess{{Address: banned, Slots: []*big.Int{big.NewInt(1)}}}},
		},
		RevertData:               cleanValidationRevert(t),
		AssociatedSlotsByAddress: tracer.NewAssociatedSlotsByAddress(nil),
	}}
	deps := Dependencies{
		Tracer:      tr,
		CodeFetcher: &fakeCodeFetcher{},
		RPC:         blockHashMock(t, common.HexToHash("0xblock")),
		Settings:    DefaultSettings(),
	}
	request := op(senderAddr)
	request.PaymasterAndData = append(paymasterAddr.Bytes(), 0x00)

	_, simErr := SimulateValidation(context.Background(), deps, ValidateRequest{EntryPoint: entryPointAddr, Op: request})
	if simErr == nil {
		t.Fatalf("got nil error, want InvalidStorageAccess violation")
	}
	found := false
	for _, v := range simErr.Violations {
		if v.Kind == KindInvalidStorageAccess && v.Entity == userop.EntityPaymaster && v.Address == banned {
			found = true
		}
	}
	if !found {
		t.Fatalf("got %+v, want InvalidStorageAccess(Paymaster, %s)", simErr.Violations, banned)
	}
}

func TestSimulateValidationPaymasterRequiresStakeNotStaked(t *testing.T) {
	revert, err := entrypoint.EncodeValidationResult(
		entrypoint.ReturnInfo{
			PreOpGas: big.NewInt(1), Prefund: big.NewInt(0), SigFailed: false,
			ValidAfter: big.NewInt(0), ValidUntil: big.NewInt(0),
			PaymasterContext: []byte{0x01},
		},
		cleanStake(), cleanStake(), stakeBelowThreshold(),
	)
	if err != nil {
		t.Fatalf("encode ValidationResult: %v", err)
	}

	tr := &fakeTracer{validationOut: &tracer.TracerOutput{
		Phases:                   []tracer.Phase{{}, {}, {}},
		RevertData:               revert,
		AssociatedSlotsByAddress: tracer.NewAssociatedSlotsByAddress(nil),
	}}
	deps := Dependencies{
		Tracer:      tr,
		CodeFetcher: &fakeCodeFetcher{},
		RPC:         blockHashMock(t, common.HexToHash("0xblock")),
		Settings:    DefaultSettings(),
	}
	request := op(senderAddr)
	request.PaymasterAndData = append(paymasterAddr.Bytes(), 0x00)

	_, simErr := SimulateValidation(context.Background(), deps, ValidateRequest{EntryPoint: entryPointAddr, Op: request})
	if simErr == nil {
		t.Fatalf("got nil error, want NotStaked violation")
	}
	found := false
	for _, v := range simErr.Violations {
		if v.Kind == KindNotStaked && v.Entity == userop.EntityPaymaster {
			found = true
		}
	}
	if !found {
		t.Fatalf("got %+v, want NotStaked(Paymaster, ...)", simErr.Violations)
	}
}

func TestSimulateValidationCodeHashMismatch(t *testing.T) {
	tr := &fakeTracer{validationOut: &tracer.TracerOutput{
		Phases: []tracer.Phase{
			{StorageAccesses: []tracer.StorageAccess{{Address: senderAddr, Slots: []*big.Int{big.NewInt(1)}}}},
			{}, {},
		},
		RevertData:                cleanValidationRevert(t),
		AccessedContractAddresses: []common.Address{senderAddr},
		AssociatedSlotsByAddress:  tracer.NewAssociatedSlotsByAddress(nil),
	}}
	deps := Dependencies{
		Tracer:      tr,
		CodeFetcher: &fakeCodeFetcher{code: map[common.Address][]byte{senderAddr: {0x60, 0x00}}},
		RPC:         blockHashMock(t, common.HexToHash("0xblock")),
		Settings:    DefaultSettings(),
	}
	mismatch := common.HexToHash("0xdeadbeef")

	_, simErr := SimulateValidation(context.Background(), deps, ValidateRequest{
		EntryPoint:       entryPointAddr,
		Op:               op(senderAddr),
		ExpectedCodeHash: &mismatch,
	})
	if simErr == nil {
		t.Fatalf("got nil error, want CodeHashChanged violation")
	}
	if len(simErr.Violations) != 1 || simErr.Violations[0].Kind != KindCodeHashChanged {
		t.Fatalf("got %+v, want single CodeHashChanged violation", simErr.Violations)
	}
}

func TestSimulateValidationShortCircuitsCodeHashOnViolation(t *testing.T) {
	tr := &fakeTracer{validationOut: &tracer.TracerOutput{
		Phases: []tracer.Phase{
			{ForbiddenOpcodesUsed: []string{"SELFBALANCE"}},
			{}, {},
		},
		RevertData:               cleanValidationRevert(t),
		AssociatedSlotsByAddress: tracer.NewAssociatedSlotsByAddress(nil),
	}}
	fetcher := &fakeCodeFetcher{}
	deps := Dependencies{
		Tracer:      tr,
		CodeFetcher: fetcher,
		RPC:         blockHashMock(t, common.HexToHash("0xblock")),
		Settings:    DefaultSettings(),
	}
	badOp := op(senderAddr)
	badOp.InitCode = append(common.HexToAddress("0xf").Bytes(), 0x01)

	_, simErr := SimulateValidation(context.Background(), deps, ValidateRequest{EntryPoint: entryPointAddr, Op: badOp})
	if simErr == nil {
		t.Fatalf("got nil error, want violation")
	}
	if fetcher.calls != 0 {
		t.Fatalf("got %d CodeAt calls on a dirty pass, want 0 (short-circuit)", fetcher.calls)
	}
}

func TestSimulateHandleOpHappyPath(t *testing.T) {
	revert, err := entrypoint.EncodeExecutionResult(entrypoint.ExecutionResult{
		PreOpGas: big.NewInt(1), Paid: big.NewInt(0),
		ValidAfter: big.NewInt(0), ValidUntil: big.NewInt(0),
		TargetSuccess: true, TargetResult: []byte{},
	})
	if err != nil {
		t.Fatalf("encode ExecutionResult: %v", err)
	}

	tr := &fakeTracer{handleOpOut: &tracer.TracerOutput{
		Phases: []tracer.Phase{
			{GasUsed: 40000},
			{GasUsed: 21000},
			{GasUsed: 5000},
		},
		RevertData: revert,
	}}
	deps := Dependencies{Tracer: tr, RPC: blockHashMock(t, common.HexToHash("0xblock"))}

	success, gasErr := SimulateHandleOp(context.Background(), deps, HandleOpRequest{
		EntryPoint: entryPointAddr,
		Op:         op(senderAddr),
	})
	if gasErr != nil {
		t.Fatalf("got err %v, want nil", gasErr)
	}
	if success.VerificationGas != 40000 || success.CallGas != 21000 {
		t.Fatalf("got %+v, want VerificationGas=40000 CallGas=21000", success)
	}
}
