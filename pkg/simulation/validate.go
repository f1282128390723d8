package simulation

import (
	"context"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/wangjia184/sortedset"

	"github.com/opsec-labs/aa-validation-simulator/pkg/tracer"
	"github.com/opsec-labs/aa-validation-simulator/pkg/userop"
)

// evaluatePhases runs the rule engine over phases 0..2, returning the
// ordered violation list, the set of addresses accessed during validation,
// and the entities that were found to need stake (in the order they were
// first required). Phases whose entity has no EntityInfo are skipped
// entirely, per the dependency-order design: entity attribution is a
// partial function and absence is not itself a fault.
func evaluatePhases(phases []tracer.Phase, entityInfos EntityInfos, entryPoint common.Address, isWalletCreation bool, paymasterContextNonEmpty bool, slots *tracer.AssociatedSlotsByAddress, settings Settings) ([]Violation, mapset.Set[common.Address], []userop.Entity) {
	var violations []Violation
	accessed := mapset.NewThreadUnsafeSet[common.Address]()
	var needingStake []userop.Entity
	seq := 0
	next := func() int { seq++; return seq }

	for phaseIdx, phase := range phases {
		if phaseIdx > 2 {
			break
		}
		entity, ok := userop.FromValidationPhase(phaseIdx)
		if !ok {
			continue
		}
		info, ok := entityInfos.byEntity(entity)
		if !ok {
			continue
		}

		for _, opcode := range phase.ForbiddenOpcodesUsed {
			violations = append(violations, Violation{Kind: KindUsedForbiddenOpcode, Entity: entity, Opcode: opcode, phase: phaseIdx, seq: next()})
		}
		if phase.UsedInvalidGasOpcode {
			violations = append(violations, Violation{Kind: KindInvalidGasOpcode, Entity: entity, phase: phaseIdx, seq: next()})
		}

		needsStake := entity == userop.EntityPaymaster && paymasterContextNonEmpty

		bannedSet := sortedset.New()
		bannedOrder := 0
		for _, access := range phase.StorageAccesses {
			accessed.Add(access.Address)
			for _, slot := range access.Slots {
				switch getStorageRestriction(slots, isWalletCreation, entryPoint, info.Address, entityInfos.Sender.Address, access.Address, slot) {
				case Allowed:
				case NeedsStake:
					needsStake = true
				case Banned:
					key := access.Address.Hex()
					if bannedSet.GetByKey(key) == nil {
						bannedOrder++
						bannedSet.AddOrUpdate(key, sortedset.SCORE(bannedOrder), access.Address)
					}
				}
			}
		}

		if needsStake {
			needingStake = append(needingStake, entity)
			if !info.IsStaked {
				violations = append(violations, Violation{
					Kind: KindNotStaked, Entity: entity, Address: info.Address,
					MinStakeValue: settings.MinStakeValue, MinUnstakeDelay: settings.MinUnstakeDelay,
					phase: phaseIdx, seq: next(),
				})
			}
		}
		if bannedOrder > 0 {
			for _, node := range bannedSet.GetByRankRange(1, bannedOrder, false) {
				violations = append(violations, Violation{Kind: KindInvalidStorageAccess, Entity: entity, Address: node.Value.(common.Address), phase: phaseIdx, seq: next()})
			}
		}

		if phase.CalledWithValue {
			violations = append(violations, Violation{Kind: KindCallHadValue, Entity: entity, phase: phaseIdx, seq: next()})
		}
		if phase.RanOutOfGas {
			violations = append(violations, Violation{Kind: KindOutOfGas, Entity: entity, phase: phaseIdx, seq: next()})
		}
		for _, addr := range phase.UndeployedContractAccesses {
			violations = append(violations, Violation{Kind: KindAccessedUndeployedContract, Entity: entity, Address: addr, phase: phaseIdx, seq: next()})
		}
		if phase.CalledHandleOps {
			violations = append(violations, Violation{Kind: KindCalledHandleOps, Entity: entity, phase: phaseIdx, seq: next()})
		}
	}

	return violations, accessed, needingStake
}

// SimulateValidation traces, validates and (on success) assembles a
// SimulationSuccess for one user operation, per the algorithm described in
// pkg 4.3-4.5 of the reference bundler's aimiddleware/simulation package.
func SimulateValidation(ctx context.Context, deps Dependencies, req ValidateRequest) (*SimulationSuccess, *SimulationError) {
	blockHash, err := deps.PinBlockHash(ctx, req.BlockID)
	if err != nil {
		return nil, otherError(err)
	}

	vctx, simErr := buildContext(ctx, deps.Tracer, req.EntryPoint, req.Op, blockHash, deps.Settings)
	if simErr != nil {
		return nil, simErr
	}

	isWalletCreation := req.Op.IsWalletCreation()
	paymasterContextNonEmpty := len(vctx.Output.ReturnInfo.PaymasterContext) > 0
	violations, accessed, needingStake := evaluatePhases(
		vctx.TracerOut.Phases, vctx.EntityInfos, req.EntryPoint, isWalletCreation,
		paymasterContextNonEmpty, vctx.TracerOut.AssociatedSlotsByAddress, deps.Settings,
	)

	var aggregatorAddr common.Address
	if vctx.EntityInfos.Aggregator != nil {
		needingStake = append(needingStake, userop.EntityAggregator)
		if !vctx.EntityInfos.Aggregator.IsStaked {
			violations = append(violations, Violation{
				Kind: KindNotStaked, Entity: userop.EntityAggregator, Address: vctx.EntityInfos.Aggregator.Address,
				MinStakeValue: deps.Settings.MinStakeValue, MinUnstakeDelay: deps.Settings.MinUnstakeDelay,
				phase: 3,
			})
		}
		aggregatorAddr = vctx.EntityInfos.Aggregator.Address
	}
	if vctx.TracerOut.FactoryCalledCreate2Twice {
		violations = append(violations, Violation{Kind: KindFactoryCalledCreate2Twice, phase: 3})
	}

	sortViolations(violations)
	if len(violations) > 0 {
		return nil, violationsError(violations)
	}

	// Short-circuit above means code-hash and aggregator work only ever
	// runs on an otherwise-clean pass, sparing the node unnecessary load.
	pvResult, pvErr := runPostValidation(ctx, deps, postValidationInput{
		Op:             req.Op,
		EntryPoint:     req.EntryPoint,
		BlockHash:      blockHash,
		AccessedAddrs:  vctx.TracerOut.AccessedContractAddresses,
		ExpectedHash:   req.ExpectedCodeHash,
		AggregatorAddr: aggregatorAddr,
	})
	if pvErr != nil {
		return nil, pvErr
	}
	sortViolations(pvResult.violations)
	if len(pvResult.violations) > 0 {
		return nil, violationsError(pvResult.violations)
	}

	return &SimulationSuccess{
		BlockHash:            blockHash,
		PreOpGas:             vctx.Output.ReturnInfo.PreOpGas,
		SignatureFailed:      vctx.Output.ReturnInfo.SigFailed,
		ValidAfter:           vctx.Output.ReturnInfo.ValidAfter,
		ValidUntil:           vctx.Output.ReturnInfo.ValidUntil,
		AggregatorAddress:    aggregatorAddr,
		AggregatorSignature:  pvResult.aggregatorSignature,
		CodeHash:             pvResult.codeHash,
		EntitiesNeedingStake: needingStake,
		SenderIsStaked:       vctx.EntityInfos.Sender.IsStaked,
		AccessedAddresses:    accessed,
		ExpectedStorageSlots: vctx.TracerOut.ExpectedStorage,
	}, nil
}

func sortViolations(vs []Violation) {
	sort.Stable(ViolationsByRank(vs))
}
