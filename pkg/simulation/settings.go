package simulation

import (
	"math/big"

	"github.com/opsec-labs/aa-validation-simulator/pkg/entrypoint"
)

// Settings is the simulator's entire configuration surface: the two stake
// thresholds an entity must clear to be considered staked.
type Settings struct {
	MinUnstakeDelay uint32
	MinStakeValue   *big.Int
}

// DefaultSettings returns the thresholds the reference bundler uses:
// 1 ETH minimum stake, 84600 seconds (~23.5h) minimum unstake delay.
func DefaultSettings() Settings {
	return Settings{
		MinUnstakeDelay: 84_600,
		MinStakeValue:   new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil),
	}
}

// IsStaked reports whether info clears both thresholds in s. Increasing
// either field of info can never turn a true result false.
func (s Settings) IsStaked(info entrypoint.StakeInfo) bool {
	return info.Stake.Cmp(s.MinStakeValue) >= 0 &&
		info.UnstakeDelaySec.Cmp(big.NewInt(int64(s.MinUnstakeDelay))) >= 0
}
