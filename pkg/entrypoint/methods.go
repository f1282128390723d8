// Package entrypoint defines the ABI surface of the EIP-4337 EntryPoint
// contract that the validation simulator depends on: method selectors for
// the calls it traces, and decoding of the custom-error revert payloads
// those calls produce.
package entrypoint

import (
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var (
	addressType, _    = abi.NewType("address", "", nil)
	uint256Type, _    = abi.NewType("uint256", "", nil)
	uint48Type, _     = abi.NewType("uint48", "", nil)
	boolType, _       = abi.NewType("bool", "", nil)
	bytesType, _      = abi.NewType("bytes", "", nil)
	stringType, _     = abi.NewType("string", "", nil)
	userOpType, _     = abi.NewType("tuple", "", []abi.ArgumentMarshaling{
		{Name: "sender", Type: "address"},
		{Name: "nonce", Type: "uint256"},
		{Name: "initCode", Type: "bytes"},
		{Name: "callData", Type: "bytes"},
		{Name: "callGasLimit", Type: "uint256"},
		{Name: "verificationGasLimit", Type: "uint256"},
		{Name: "preVerificationGas", Type: "uint256"},
		{Name: "maxFeePerGas", Type: "uint256"},
		{Name: "maxPriorityFeePerGas", Type: "uint256"},
		{Name: "paymasterAndData", Type: "bytes"},
		{Name: "signature", Type: "bytes"},
	})
	userOpArrType, _ = abi.NewType("tuple[]", "", []abi.ArgumentMarshaling{
		{Name: "sender", Type: "address"},
		{Name: "nonce", Type: "uint256"},
		{Name: "initCode", Type: "bytes"},
		{Name: "callData", Type: "bytes"},
		{Name: "callGasLimit", Type: "uint256"},
		{Name: "verificationGasLimit", Type: "uint256"},
		{Name: "preVerificationGas", Type: "uint256"},
		{Name: "maxFeePerGas", Type: "uint256"},
		{Name: "maxPriorityFeePerGas", Type: "uint256"},
		{Name: "paymasterAndData", Type: "bytes"},
		{Name: "signature", Type: "bytes"},
	})

	// SimulateValidationMethod is EntryPoint.simulateValidation(UserOperation).
	SimulateValidationMethod = abi.NewMethod(
		"simulateValidation",
		"simulateValidation",
		abi.Function,
		"",
		false,
		false,
		abi.Arguments{{Name: "userOp", Type: userOpType}},
		nil,
	)
	SimulateValidationSelector = hexutil.Encode(SimulateValidationMethod.ID)

	// HandleOpsMethod is EntryPoint.handleOps(UserOperation[], address).
	HandleOpsMethod = abi.NewMethod(
		"handleOps",
		"handleOps",
		abi.Function,
		"",
		false,
		false,
		abi.Arguments{
			{Name: "ops", Type: userOpArrType},
			{Name: "beneficiary", Type: addressType},
		},
		nil,
	)
	HandleOpsSelector = hexutil.Encode(HandleOpsMethod.ID)

	// ValidateUserOpSignatureMethod is IAggregator.validateUserOpSignature(UserOperation).
	ValidateUserOpSignatureMethod = abi.NewMethod(
		"validateUserOpSignature",
		"validateUserOpSignature",
		abi.Function,
		"",
		false,
		false,
		abi.Arguments{{Name: "userOp", Type: userOpType}},
		abi.Arguments{{Name: "sigForUserOp", Type: bytesType}},
	)
	ValidateUserOpSignatureSelector = hexutil.Encode(ValidateUserOpSignatureMethod.ID)
)
