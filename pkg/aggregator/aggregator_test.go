package aggregator

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/opsec-labs/aa-validation-simulator/internal/testutils"
	"github.com/opsec-labs/aa-validation-simulator/pkg/entrypoint"
	"github.com/opsec-labs/aa-validation-simulator/pkg/userop"
)

func testOp() *userop.UserOperation {
	return &userop.UserOperation{
		Sender:               common.HexToAddress("0x1"),
		Nonce:                big.NewInt(0),
		CallGasLimit:         big.NewInt(0),
		VerificationGasLimit: big.NewInt(0),
		PreVerificationGas:   big.NewInt(0),
		MaxFeePerGas:         big.NewInt(0),
		MaxPriorityFeePerGas: big.NewInt(0),
	}
}

func TestValidateNotNeeded(t *testing.T) {
	outcome, sig, err := Validate(context.Background(), nil, common.Address{}, testOp(), common.Hash{})
	if err != nil {
		t.Fatalf("got err %v, want nil", err)
	}
	if outcome != NotNeeded || sig != nil {
		t.Fatalf("got (%v, %v), want (NotNeeded, nil)", outcome, sig)
	}
}

func TestValidateSuccess(t *testing.T) {
	packed, err := entrypoint.ValidateUserOpSignatureMethod.Outputs.Pack([]byte{0xaa, 0xbb})
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	srv := testutils.RPCMock(testutils.MethodMocks{
		"eth_call": "0x" + common.Bytes2Hex(packed),
	})
	defer srv.Close()
	client, err := rpc.Dial(srv.URL)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	outcome, sig, err := Validate(context.Background(), client, common.HexToAddress("0xagg"), testOp(), common.Hash{})
	if err != nil {
		t.Fatalf("got err %v, want nil", err)
	}
	if outcome != Success {
		t.Fatalf("got outcome %v, want Success", outcome)
	}
	if len(sig) != 2 || sig[0] != 0xaa || sig[1] != 0xbb {
		t.Fatalf("got sig %x, want aabb", sig)
	}
}

func TestValidateRevertIsValidationFailure(t *testing.T) {
	srv := testutils.RevertMock("0x")
	defer srv.Close()
	client, err := rpc.Dial(srv.URL)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	outcome, sig, err := Validate(context.Background(), client, common.HexToAddress("0xagg"), testOp(), common.Hash{})
	if err != nil {
		t.Fatalf("got err %v, want nil (JSON-RPC client error maps to ValidationFailed, not an error)", err)
	}
	if outcome != ValidationFailed || sig != nil {
		t.Fatalf("got (%v, %v), want (ValidationFailed, nil)", outcome, sig)
	}
}
