package simulation

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/opsec-labs/aa-validation-simulator/pkg/tracer"
)

// StorageRestriction is the verdict get_storage_restriction assigns to one
// (accessing entity, accessed address, slot) triple.
type StorageRestriction int

const (
	// Allowed means no stake is required and the access is not banned.
	Allowed StorageRestriction = iota
	// NeedsStake means the access is tolerated only if the owning entity
	// is staked.
	NeedsStake
	// Banned means the access is never tolerated, staked or not.
	Banned
)

// getStorageRestriction is the storage-access classifier: a pure function
// over (associated-slot relation, wallet-creation flag, entry-point
// address, entity address, sender address, accessed address, slot). Rules
// are evaluated top-down; the first match wins.
//
// Rule 2's wallet-creation exception is a deliberate deviation from the
// literal ERC-4337 text: it lets an unstaked sender, while being deployed,
// read/write its own associated slots on the entry point so it can fund its
// own gas via depositTo. Accesses to the entry point's own storage keyed on
// the sender are excluded from the exception (the accessedAddress !=
// entryPoint guard), because that path routes through rule 3 instead.
func getStorageRestriction(
	slots *tracer.AssociatedSlotsByAddress,
	isWalletCreation bool,
	entryPoint, entityAddress, senderAddress, accessedAddress common.Address,
	slot *big.Int,
) StorageRestriction {
	if accessedAddress == senderAddress {
		return Allowed
	}
	if slots.IsAssociatedSlot(senderAddress, slot) {
		if isWalletCreation && accessedAddress != entryPoint {
			return NeedsStake
		}
		return Allowed
	}
	if accessedAddress == entityAddress || slots.IsAssociatedSlot(entityAddress, slot) {
		return NeedsStake
	}
	return Banned
}
