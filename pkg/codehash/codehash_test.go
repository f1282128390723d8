package codehash

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

type fakeFetcher struct {
	byAddr map[common.Address][]byte
}

func (f *fakeFetcher) CodeAt(_ context.Context, addr common.Address, _ common.Hash) ([]byte, error) {
	return f.byAddr[addr], nil
}

func TestComputeEmptyList(t *testing.T) {
	got, err := Compute(context.Background(), &fakeFetcher{}, nil, common.Hash{})
	if err != nil {
		t.Fatalf("got err %v, want nil", err)
	}
	want := crypto.Keccak256Hash(nil)
	if got != want {
		t.Fatalf("got %v, want keccak256(\"\") = %v", got, want)
	}
}

func TestComputeConcatenatesInOrder(t *testing.T) {
	a := common.HexToAddress("0x1")
	b := common.HexToAddress("0x2")
	fetcher := &fakeFetcher{byAddr: map[common.Address][]byte{
		a: {0x01, 0x02},
		b: {0x03, 0x04},
	}}
	got, err := Compute(context.Background(), fetcher, []common.Address{a, b}, common.Hash{})
	if err != nil {
		t.Fatalf("got err %v, want nil", err)
	}
	want := crypto.Keccak256Hash([]byte{0x01, 0x02, 0x03, 0x04})
	if got != want {
		t.Fatalf("got %v, want %v", got, want)
	}

	gotReversed, err := Compute(context.Background(), fetcher, []common.Address{b, a}, common.Hash{})
	if err != nil {
		t.Fatalf("got err %v, want nil", err)
	}
	if gotReversed == got {
		t.Fatalf("hash did not change when address order was reversed")
	}
}
