package entrypoint

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/opsec-labs/aa-validation-simulator/pkg/userop"
)

// userOpArg is the Go-side shape abi.Arguments.Pack expects for the
// UserOperation tuple: field names must match userOpType's components
// capitalized, in declaration order.
type userOpArg struct {
	Sender               common.Address
	Nonce                *big.Int
	InitCode             []byte
	CallData             []byte
	CallGasLimit         *big.Int
	VerificationGasLimit *big.Int
	PreVerificationGas   *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
	PaymasterAndData     []byte
	Signature            []byte
}

func toUserOpArg(op *userop.UserOperation) userOpArg {
	return userOpArg{
		Sender:               op.Sender,
		Nonce:                op.Nonce,
		InitCode:             op.InitCode,
		CallData:             op.CallData,
		CallGasLimit:         op.CallGasLimit,
		VerificationGasLimit: op.VerificationGasLimit,
		PreVerificationGas:   op.PreVerificationGas,
		MaxFeePerGas:         op.MaxFeePerGas,
		MaxPriorityFeePerGas: op.MaxPriorityFeePerGas,
		PaymasterAndData:     op.PaymasterAndData,
		Signature:            op.Signature,
	}
}

// PackSimulateValidation ABI-encodes a simulateValidation(UserOperation)
// call, selector included.
func PackSimulateValidation(op *userop.UserOperation) ([]byte, error) {
	args, err := SimulateValidationMethod.Inputs.Pack(toUserOpArg(op))
	if err != nil {
		return nil, err
	}
	return append(append([]byte{}, SimulateValidationMethod.ID...), args...), nil
}

// PackValidateUserOpSignature ABI-encodes a
// validateUserOpSignature(UserOperation) call, selector included.
func PackValidateUserOpSignature(op *userop.UserOperation) ([]byte, error) {
	args, err := ValidateUserOpSignatureMethod.Inputs.Pack(toUserOpArg(op))
	if err != nil {
		return nil, err
	}
	return append(append([]byte{}, ValidateUserOpSignatureMethod.ID...), args...), nil
}

// PackHandleOps ABI-encodes a handleOps(UserOperation[], address) call,
// selector included.
func PackHandleOps(ops []*userop.UserOperation, beneficiary common.Address) ([]byte, error) {
	argv := make([]userOpArg, len(ops))
	for i, op := range ops {
		argv[i] = toUserOpArg(op)
	}
	args, err := HandleOpsMethod.Inputs.Pack(argv, beneficiary)
	if err != nil {
		return nil, err
	}
	return append(append([]byte{}, HandleOpsMethod.ID...), args...), nil
}
