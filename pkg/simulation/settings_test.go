package simulation

import (
	"math/big"
	"testing"

	"github.com/opsec-labs/aa-validation-simulator/pkg/entrypoint"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	if s.MinUnstakeDelay != 84_600 {
		t.Fatalf("got MinUnstakeDelay %d, want 84600", s.MinUnstakeDelay)
	}
	want := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	if s.MinStakeValue.Cmp(want) != 0 {
		t.Fatalf("got MinStakeValue %s, want %s", s.MinStakeValue, want)
	}
}

func TestIsStakedBelowThreshold(t *testing.T) {
	s := DefaultSettings()
	info := entrypoint.StakeInfo{Stake: big.NewInt(1), UnstakeDelaySec: big.NewInt(1)}
	if s.IsStaked(info) {
		t.Fatalf("got IsStaked=true for stake below threshold, want false")
	}
}

func TestIsStakedMonotonic(t *testing.T) {
	s := DefaultSettings()
	info := entrypoint.StakeInfo{Stake: new(big.Int).Set(s.MinStakeValue), UnstakeDelaySec: big.NewInt(int64(s.MinUnstakeDelay))}
	if !s.IsStaked(info) {
		t.Fatalf("got IsStaked=false at exact threshold, want true")
	}
	info.Stake.Add(info.Stake, big.NewInt(1))
	if !s.IsStaked(info) {
		t.Fatalf("increasing stake turned IsStaked false")
	}
	info.UnstakeDelaySec.Add(info.UnstakeDelaySec, big.NewInt(1))
	if !s.IsStaked(info) {
		t.Fatalf("increasing unstake delay turned IsStaked false")
	}
}
