// Package userop defines the ERC-4337 UserOperation envelope and the
// Entity roles the validation simulator attributes trace phases to.
package userop

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// UserOperation is the account-abstraction transaction-like envelope
// submitted to the EntryPoint's handleOps/simulateValidation.
type UserOperation struct {
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

// Factory returns the factory address derived from the first 20 bytes of
// InitCode, and false if InitCode is shorter than an address (including
// when it is empty, i.e. this is not a wallet-creation operation).
func (op *UserOperation) Factory() (common.Address, bool) {
	if len(op.InitCode) < common.AddressLength {
		return common.Address{}, false
	}
	return common.BytesToAddress(op.InitCode[:common.AddressLength]), true
}

// Paymaster returns the paymaster address derived from the first 20 bytes of
// PaymasterAndData, and false if PaymasterAndData is shorter than an address.
func (op *UserOperation) Paymaster() (common.Address, bool) {
	if len(op.PaymasterAndData) < common.AddressLength {
		return common.Address{}, false
	}
	return common.BytesToAddress(op.PaymasterAndData[:common.AddressLength]), true
}

// IsWalletCreation reports whether this operation deploys its sender, i.e.
// InitCode is non-empty.
func (op *UserOperation) IsWalletCreation() bool {
	return len(op.InitCode) > 0
}

// abi types used to pack a UserOperation as the entry point expects it.
var (
	addressType, _ = abi.NewType("address", "", nil)
	uint256Type, _ = abi.NewType("uint256", "", nil)
	bytesType, _   = abi.NewType("bytes", "", nil)

	packArgs = abi.Arguments{
		{Name: "sender", Type: addressType},
		{Name: "nonce", Type: uint256Type},
		{Name: "initCode", Type: bytesType},
		{Name: "callData", Type: bytesType},
		{Name: "callGasLimit", Type: uint256Type},
		{Name: "verificationGasLimit", Type: uint256Type},
		{Name: "preVerificationGas", Type: uint256Type},
		{Name: "maxFeePerGas", Type: uint256Type},
		{Name: "maxPriorityFeePerGas", Type: uint256Type},
		{Name: "paymasterAndData", Type: bytesType},
		{Name: "signature", Type: bytesType},
	}
)

// Pack ABI-encodes the operation exactly as the entry point would receive
// it in a handleOps call, for gas/calldata-size accounting.
func (op *UserOperation) Pack() []byte {
	b, err := packArgs.Pack(
		op.Sender,
		op.Nonce,
		op.InitCode,
		op.CallData,
		op.CallGasLimit,
		op.VerificationGasLimit,
		op.PreVerificationGas,
		op.MaxFeePerGas,
		op.MaxPriorityFeePerGas,
		op.PaymasterAndData,
		op.Signature,
	)
	if err != nil {
		// Only reachable if a field is nil where a *big.Int is required;
		// callers are expected to fully populate the operation.
		panic(err)
	}
	return b
}

// Entity is a tagged validation-phase role. Phase index 0/1/2 map to
// Factory/Account/Paymaster; Aggregator is attributed outside any phase.
type Entity int

const (
	EntityFactory Entity = iota
	EntityAccount
	EntityPaymaster
	EntityAggregator
)

func (e Entity) String() string {
	switch e {
	case EntityFactory:
		return "factory"
	case EntityAccount:
		return "account"
	case EntityPaymaster:
		return "paymaster"
	case EntityAggregator:
		return "aggregator"
	default:
		return "unknown"
	}
}

// FromValidationPhase maps a validation trace phase index to its entity.
// Only phases 0, 1, 2 correspond to an entity.
func FromValidationPhase(i int) (Entity, bool) {
	switch i {
	case 0:
		return EntityFactory, true
	case 1:
		return EntityAccount, true
	case 2:
		return EntityPaymaster, true
	default:
		return 0, false
	}
}
