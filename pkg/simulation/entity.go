package simulation

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/opsec-labs/aa-validation-simulator/pkg/entrypoint"
	"github.com/opsec-labs/aa-validation-simulator/pkg/userop"
)

// EntityInfo is the per-role record the rule engine consumes: an address
// and whether it clears the configured stake thresholds.
type EntityInfo struct {
	Address  common.Address
	IsStaked bool
}

// EntityInfos is the table of per-phase identities built from the
// operation's declared factory/sender/paymaster and the entry point's
// decoded stake records. Sender is always present; factory and paymaster
// are present only when the operation declares them.
type EntityInfos struct {
	Sender    EntityInfo
	Factory   *EntityInfo
	Paymaster *EntityInfo

	// Aggregator is attributed outside any validation phase; it is
	// populated only when the entry point reports aggregatorInfo.
	Aggregator *EntityInfo
}

// BuildEntityInfos assembles the table from the operation and the decoded
// ValidationOutput, per settings' stake thresholds.
func BuildEntityInfos(op *userop.UserOperation, out *entrypoint.ValidationOutput, settings Settings) EntityInfos {
	infos := EntityInfos{
		Sender: EntityInfo{Address: op.Sender, IsStaked: settings.IsStaked(out.SenderInfo)},
	}
	if factory, ok := op.Factory(); ok {
		infos.Factory = &EntityInfo{Address: factory, IsStaked: settings.IsStaked(out.FactoryInfo)}
	}
	if paymaster, ok := op.Paymaster(); ok {
		infos.Paymaster = &EntityInfo{Address: paymaster, IsStaked: settings.IsStaked(out.PaymasterInfo)}
	}
	if out.AggregatorInfo != nil {
		infos.Aggregator = &EntityInfo{
			Address:  out.AggregatorInfo.Address,
			IsStaked: settings.IsStaked(out.AggregatorInfo.StakeInfo),
		}
	}
	return infos
}

// byEntity returns the EntityInfo for e, if the table carries one.
func (e EntityInfos) byEntity(entity userop.Entity) (EntityInfo, bool) {
	switch entity {
	case userop.EntityFactory:
		if e.Factory != nil {
			return *e.Factory, true
		}
	case userop.EntityAccount:
		return e.Sender, true
	case userop.EntityPaymaster:
		if e.Paymaster != nil {
			return *e.Paymaster, true
		}
	case userop.EntityAggregator:
		if e.Aggregator != nil {
			return *e.Aggregator, true
		}
	}
	return EntityInfo{}, false
}
