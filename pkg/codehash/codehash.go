// Package codehash computes the deterministic bytecode fingerprint of the
// set of addresses touched during a traced simulateValidation call.
package codehash

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
)

// CodeFetcher fetches deployed bytecode at a pinned block, the one
// JSON-RPC transport dependency of this package (eth_getCode). Kept as an
// interface so Compute can be exercised without a live node.
type CodeFetcher interface {
	CodeAt(ctx context.Context, addr common.Address, blockHash common.Hash) ([]byte, error)
}

// RPCCodeFetcher implements CodeFetcher over a go-ethereum-compatible
// eth_getCode call.
type RPCCodeFetcher struct {
	RPC *rpc.Client
}

// CodeAt calls eth_getCode for addr pinned at blockHash.
func (f *RPCCodeFetcher) CodeAt(ctx context.Context, addr common.Address, blockHash common.Hash) ([]byte, error) {
	var result hexutil.Bytes
	if err := f.RPC.CallContext(ctx, &result, "eth_getCode", addr, blockHash); err != nil {
		return nil, err
	}
	return result, nil
}

// Compute fetches the deployed bytecode of each address in order, at
// blockHash, concatenates it, and returns the keccak-256 hash. An empty
// address list hashes to keccak256("").
func Compute(ctx context.Context, fetcher CodeFetcher, addrs []common.Address, blockHash common.Hash) (common.Hash, error) {
	var concatenated []byte
	for _, addr := range addrs {
		code, err := fetcher.CodeAt(ctx, addr, blockHash)
		if err != nil {
			return common.Hash{}, err
		}
		concatenated = append(concatenated, code...)
	}
	return crypto.Keccak256Hash(concatenated), nil
}
