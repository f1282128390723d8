// Package aggregator wraps the validateUserOpSignature call made against a
// signature aggregator contract during post-validation, classifying its
// outcome the way the rule engine needs: success, protocol-level signature
// failure, or an infrastructure fault.
package aggregator

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/opsec-labs/aa-validation-simulator/pkg/entrypoint"
	"github.com/opsec-labs/aa-validation-simulator/pkg/userop"
)

// rpcError is the interface go-ethereum's rpc package attaches to JSON-RPC
// error responses (eth_call-level reverts included). A transport failure
// (connection reset, timeout, malformed response) does not implement it.
type rpcError interface {
	Error() string
	ErrorCode() int
}

// Outcome is the result of validating an aggregator's signature.
type Outcome int

const (
	// NotNeeded means the operation declared no aggregator.
	NotNeeded Outcome = iota
	// Success means the aggregator accepted the signature.
	Success
	// ValidationFailed means the call reverted, i.e. the aggregator
	// rejected the signature as presented.
	ValidationFailed
)

// Validate calls validateUserOpSignature(op) on aggregatorAddr via eth_call
// pinned at blockHash. When aggregatorAddr is the zero address it reports
// NotNeeded without making a call.
func Validate(ctx context.Context, client *rpc.Client, aggregatorAddr common.Address, op *userop.UserOperation, blockHash common.Hash) (Outcome, []byte, error) {
	if aggregatorAddr == (common.Address{}) {
		return NotNeeded, nil, nil
	}
	data, err := entrypoint.PackValidateUserOpSignature(op)
	if err != nil {
		return 0, nil, err
	}
	callArgs := map[string]any{
		"to":   aggregatorAddr,
		"data": hexutil.Bytes(data),
	}
	var result hexutil.Bytes
	err = client.CallContext(ctx, &result, "eth_call", callArgs, blockHash)
	if err != nil {
		if _, ok := err.(rpcError); ok {
			return ValidationFailed, nil, nil
		}
		return 0, nil, err
	}
	sig, ok, err := decodeSignature(result)
	if err != nil {
		return 0, nil, err
	}
	if !ok {
		return ValidationFailed, nil, nil
	}
	return Success, sig, nil
}

func decodeSignature(data []byte) ([]byte, bool, error) {
	vals, err := entrypoint.ValidateUserOpSignatureMethod.Outputs.Unpack(data)
	if err != nil {
		return nil, false, err
	}
	sig, ok := vals[0].([]byte)
	if !ok {
		return nil, false, nil
	}
	return sig, true, nil
}
