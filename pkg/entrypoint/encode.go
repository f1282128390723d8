package entrypoint

// Encode* builds a revert payload of the given shape, selector included.
// These are the inverse of the Decode* functions, used wherever the
// simulator's own test harnesses or a mock node need to hand back a
// synthetic EntryPoint revert.

func stakeInfoArg(s StakeInfo) any {
	return struct {
		Stake           any
		UnstakeDelaySec any
	}{s.Stake, s.UnstakeDelaySec}
}

func returnInfoArg(r ReturnInfo) any {
	return struct {
		PreOpGas         any
		Prefund          any
		SigFailed        bool
		ValidAfter       any
		ValidUntil       any
		PaymasterContext []byte
	}{r.PreOpGas, r.Prefund, r.SigFailed, r.ValidAfter, r.ValidUntil, r.PaymasterContext}
}

// EncodeFailedOp builds a FailedOp(uint256,string) revert payload.
func EncodeFailedOp(f FailedOp) ([]byte, error) {
	packed, err := failedOpArgs.Pack(f.OpIndex, f.Reason)
	if err != nil {
		return nil, err
	}
	return append(append([]byte{}, failedOpSelector...), packed...), nil
}

// EncodeValidationResult builds a ValidationResult(...) revert payload
// (no aggregator).
func EncodeValidationResult(returnInfo ReturnInfo, senderInfo, factoryInfo, paymasterInfo StakeInfo) ([]byte, error) {
	packed, err := validationResultArgs.Pack(
		returnInfoArg(returnInfo),
		stakeInfoArg(senderInfo),
		stakeInfoArg(factoryInfo),
		stakeInfoArg(paymasterInfo),
	)
	if err != nil {
		return nil, err
	}
	return append(append([]byte{}, validationResultSelector...), packed...), nil
}

// EncodeValidationResultWithAggregation builds a
// ValidationResultWithAggregation(...) revert payload.
func EncodeValidationResultWithAggregation(returnInfo ReturnInfo, senderInfo, factoryInfo, paymasterInfo StakeInfo, aggregator AggregatorInfo) ([]byte, error) {
	aggArg := struct {
		Aggregator any
		StakeInfo  any
	}{aggregator.Address, stakeInfoArg(aggregator.StakeInfo)}
	packed, err := validationResultWithAggregationArgs.Pack(
		returnInfoArg(returnInfo),
		stakeInfoArg(senderInfo),
		stakeInfoArg(factoryInfo),
		stakeInfoArg(paymasterInfo),
		aggArg,
	)
	if err != nil {
		return nil, err
	}
	return append(append([]byte{}, validationResultWithAggregationSelector...), packed...), nil
}

// EncodeExecutionResult builds an ExecutionResult(...) revert payload.
func EncodeExecutionResult(r ExecutionResult) ([]byte, error) {
	packed, err := executionResultArgs.Pack(r.PreOpGas, r.Paid, r.ValidAfter, r.ValidUntil, r.TargetSuccess, r.TargetResult)
	if err != nil {
		return nil, err
	}
	return append(append([]byte{}, executionResultSelector...), packed...), nil
}

// EncodeContractRevertError builds a plain Solidity Error(string) revert.
func EncodeContractRevertError(reason string) ([]byte, error) {
	packed, err := contractRevertArgs.Pack(reason)
	if err != nil {
		return nil, err
	}
	return append(append([]byte{}, contractErrorSelector...), packed...), nil
}
