package entrypoint

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/opsec-labs/aa-validation-simulator/pkg/userop"
)

func testUserOp() *userop.UserOperation {
	return &userop.UserOperation{
		Sender:               common.HexToAddress("0x1"),
		Nonce:                big.NewInt(1),
		InitCode:             []byte{},
		CallData:             []byte{0xaa},
		CallGasLimit:         big.NewInt(100000),
		VerificationGasLimit: big.NewInt(100000),
		PreVerificationGas:   big.NewInt(50000),
		MaxFeePerGas:         big.NewInt(1),
		MaxPriorityFeePerGas: big.NewInt(1),
		PaymasterAndData:     []byte{},
		Signature:            []byte{0xbb},
	}
}

func TestPackSimulateValidationHasSelector(t *testing.T) {
	data, err := PackSimulateValidation(testUserOp())
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	if !bytes.Equal(data[:4], SimulateValidationMethod.ID) {
		t.Fatalf("got selector %x, want %x", data[:4], SimulateValidationMethod.ID)
	}
}

func TestPackHandleOpsHasSelectorAndBeneficiary(t *testing.T) {
	beneficiary := common.HexToAddress("0xbeef")
	data, err := PackHandleOps([]*userop.UserOperation{testUserOp()}, beneficiary)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	if !bytes.Equal(data[:4], HandleOpsMethod.ID) {
		t.Fatalf("got selector %x, want %x", data[:4], HandleOpsMethod.ID)
	}

	args, err := HandleOpsMethod.Inputs.Unpack(data[4:])
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if got := args[1].(common.Address); got != beneficiary {
		t.Fatalf("got beneficiary %s, want %s", got, beneficiary)
	}
}

func TestPackValidateUserOpSignatureHasSelector(t *testing.T) {
	data, err := PackValidateUserOpSignature(testUserOp())
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	if !bytes.Equal(data[:4], ValidateUserOpSignatureMethod.ID) {
		t.Fatalf("got selector %x, want %x", data[:4], ValidateUserOpSignatureMethod.ID)
	}
}
