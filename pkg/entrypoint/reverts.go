package entrypoint

import (
	"bytes"
	"fmt"
	"math/big"
	"reflect"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// StakeInfo is the on-chain stake record the entry point reports for an
// entity during simulateValidation.
type StakeInfo struct {
	Stake           *big.Int
	UnstakeDelaySec *big.Int
}

// ReturnInfo is the common "how did validation go" payload shared by both
// ValidationResult and ValidationResultWithAggregation.
type ReturnInfo struct {
	PreOpGas          *big.Int
	Prefund           *big.Int
	SigFailed         bool
	ValidAfter        *big.Int
	ValidUntil        *big.Int
	PaymasterContext  []byte
}

// AggregatorInfo is the optional aggregator stake record present only when
// the sender's account declares a signature aggregator.
type AggregatorInfo struct {
	Address   common.Address
	StakeInfo StakeInfo
}

// ValidationOutput is the decoded ValidationResult/ValidationResultWithAggregation
// revert payload of simulateValidation.
type ValidationOutput struct {
	ReturnInfo     ReturnInfo
	SenderInfo     StakeInfo
	FactoryInfo    StakeInfo
	PaymasterInfo  StakeInfo
	AggregatorInfo *AggregatorInfo
}

// FailedOp is the decoded FailedOp(uint256,string) revert payload: the
// entry point's synchronous rejection of a UserOperation (not a bug in the
// entry point, just an invalid op).
type FailedOp struct {
	OpIndex *big.Int
	Reason  string
}

// ExecutionResult is the decoded ExecutionResult revert payload of a
// (simulated) handleOps call, carrying the actual gas used.
type ExecutionResult struct {
	PreOpGas      *big.Int
	Paid          *big.Int
	ValidAfter    *big.Int
	ValidUntil    *big.Int
	TargetSuccess bool
	TargetResult  []byte
}

var (
	stakeInfoComponents = []abi.ArgumentMarshaling{
		{Name: "stake", Type: "uint256"},
		{Name: "unstakeDelaySec", Type: "uint256"},
	}
	returnInfoComponents = []abi.ArgumentMarshaling{
		{Name: "preOpGas", Type: "uint256"},
		{Name: "prefund", Type: "uint256"},
		{Name: "sigFailed", Type: "bool"},
		{Name: "validAfter", Type: "uint48"},
		{Name: "validUntil", Type: "uint48"},
		{Name: "paymasterContext", Type: "bytes"},
	}

	returnInfoType, _    = abi.NewType("tuple", "", returnInfoComponents)
	stakeInfoType, _     = abi.NewType("tuple", "", stakeInfoComponents)
	aggregatorInfoType, _ = abi.NewType("tuple", "", []abi.ArgumentMarshaling{
		{Name: "aggregator", Type: "address"},
		{Name: "stakeInfo", Type: "tuple", Components: stakeInfoComponents},
	})

	failedOpArgs = abi.Arguments{
		{Name: "opIndex", Type: uint256Type},
		{Name: "reason", Type: stringType},
	}
	validationResultArgs = abi.Arguments{
		{Name: "returnInfo", Type: returnInfoType},
		{Name: "senderInfo", Type: stakeInfoType},
		{Name: "factoryInfo", Type: stakeInfoType},
		{Name: "paymasterInfo", Type: stakeInfoType},
	}
	validationResultWithAggregationArgs = abi.Arguments{
		{Name: "returnInfo", Type: returnInfoType},
		{Name: "senderInfo", Type: stakeInfoType},
		{Name: "factoryInfo", Type: stakeInfoType},
		{Name: "paymasterInfo", Type: stakeInfoType},
		{Name: "aggregatorInfo", Type: aggregatorInfoType},
	}
	executionResultArgs = abi.Arguments{
		{Name: "preOpGas", Type: uint256Type},
		{Name: "paid", Type: uint256Type},
		{Name: "validAfter", Type: uint48Type},
		{Name: "validUntil", Type: uint48Type},
		{Name: "targetSuccess", Type: boolType},
		{Name: "targetResult", Type: bytesType},
	}
	contractRevertArgs = abi.Arguments{
		{Name: "reason", Type: stringType},
	}

	failedOpSelector                       = selectorOf("FailedOp(uint256,string)")
	validationResultSelector               = selectorOf("ValidationResult((uint256,uint256,bool,uint48,uint48,bytes),(uint256,uint256),(uint256,uint256),(uint256,uint256))")
	validationResultWithAggregationSelector = selectorOf("ValidationResultWithAggregation((uint256,uint256,bool,uint48,uint48,bytes),(uint256,uint256),(uint256,uint256),(uint256,uint256),(address,(uint256,uint256)))")
	executionResultSelector                = selectorOf("ExecutionResult(uint256,uint256,uint48,uint48,bool,bytes)")
	contractErrorSelector                  = selectorOf("Error(string)")
)

func selectorOf(sig string) []byte {
	return crypto.Keccak256([]byte(sig))[:4]
}

func hasSelector(data, selector []byte) bool {
	return len(data) >= 4 && bytes.Equal(data[:4], selector)
}

// DecodeFailedOp decodes revert data as FailedOp(uint256,string). It returns
// ok=false (no error) if the selector doesn't match, so callers can try the
// next shape without treating a selector mismatch as an infrastructure fault.
func DecodeFailedOp(data []byte) (*FailedOp, bool, error) {
	if !hasSelector(data, failedOpSelector) {
		return nil, false, nil
	}
	vals, err := failedOpArgs.Unpack(data[4:])
	if err != nil {
		return nil, true, fmt.Errorf("decode FailedOp: %w", err)
	}
	return &FailedOp{
		OpIndex: vals[0].(*big.Int),
		Reason:  vals[1].(string),
	}, true, nil
}

// DecodeValidationOutput decodes revert data as either ValidationResult or
// ValidationResultWithAggregation.
func DecodeValidationOutput(data []byte) (*ValidationOutput, bool, error) {
	switch {
	case hasSelector(data, validationResultSelector):
		vals, err := validationResultArgs.Unpack(data[4:])
		if err != nil {
			return nil, true, fmt.Errorf("decode ValidationResult: %w", err)
		}
		return &ValidationOutput{
			ReturnInfo:    decodeReturnInfo(vals[0]),
			SenderInfo:    decodeStakeInfo(vals[1]),
			FactoryInfo:   decodeStakeInfo(vals[2]),
			PaymasterInfo: decodeStakeInfo(vals[3]),
		}, true, nil
	case hasSelector(data, validationResultWithAggregationSelector):
		vals, err := validationResultWithAggregationArgs.Unpack(data[4:])
		if err != nil {
			return nil, true, fmt.Errorf("decode ValidationResultWithAggregation: %w", err)
		}
		aggRV := reflect.ValueOf(vals[4])
		return &ValidationOutput{
			ReturnInfo:    decodeReturnInfo(vals[0]),
			SenderInfo:    decodeStakeInfo(vals[1]),
			FactoryInfo:   decodeStakeInfo(vals[2]),
			PaymasterInfo: decodeStakeInfo(vals[3]),
			AggregatorInfo: &AggregatorInfo{
				Address:   aggRV.FieldByName("Aggregator").Interface().(common.Address),
				StakeInfo: decodeStakeInfo(aggRV.FieldByName("StakeInfo").Interface()),
			},
		}, true, nil
	default:
		return nil, false, nil
	}
}

// DecodeExecutionResult decodes revert data as ExecutionResult(...), the
// only entry-point error variant simulate_handle_op accepts as success.
func DecodeExecutionResult(data []byte) (*ExecutionResult, bool, error) {
	if !hasSelector(data, executionResultSelector) {
		return nil, false, nil
	}
	vals, err := executionResultArgs.Unpack(data[4:])
	if err != nil {
		return nil, true, fmt.Errorf("decode ExecutionResult: %w", err)
	}
	return &ExecutionResult{
		PreOpGas:      vals[0].(*big.Int),
		Paid:          vals[1].(*big.Int),
		ValidAfter:    vals[2].(*big.Int),
		ValidUntil:    vals[3].(*big.Int),
		TargetSuccess: vals[4].(bool),
		TargetResult:  vals[5].([]byte),
	}, true, nil
}

// DecodeContractRevertError decodes the plain Solidity revert("reason")
// shape, Error(string), used for account-execution revert decoding in
// simulate_handle_op.
func DecodeContractRevertError(data []byte) (string, bool, error) {
	if !hasSelector(data, contractErrorSelector) {
		return "", false, nil
	}
	vals, err := contractRevertArgs.Unpack(data[4:])
	if err != nil {
		return "", true, fmt.Errorf("decode Error(string): %w", err)
	}
	return vals[0].(string), true, nil
}

// decodeStakeInfo and decodeReturnInfo pull fields out of the anonymous
// struct types abi.Arguments.Unpack generates for a tuple by name rather
// than by asserting an exact (and fragile) struct literal type: go-ethereum
// builds those types via reflect.StructOf with fields named by
// capitalizing each ABI component's name.
func decodeStakeInfo(v any) StakeInfo {
	rv := reflect.ValueOf(v)
	return StakeInfo{
		Stake:           rv.FieldByName("Stake").Interface().(*big.Int),
		UnstakeDelaySec: rv.FieldByName("UnstakeDelaySec").Interface().(*big.Int),
	}
}

func decodeReturnInfo(v any) ReturnInfo {
	rv := reflect.ValueOf(v)
	return ReturnInfo{
		PreOpGas:         rv.FieldByName("PreOpGas").Interface().(*big.Int),
		Prefund:          rv.FieldByName("Prefund").Interface().(*big.Int),
		SigFailed:        rv.FieldByName("SigFailed").Interface().(bool),
		ValidAfter:       rv.FieldByName("ValidAfter").Interface().(*big.Int),
		ValidUntil:       rv.FieldByName("ValidUntil").Interface().(*big.Int),
		PaymasterContext: rv.FieldByName("PaymasterContext").Interface().([]byte),
	}
}
