package entrypoint

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/puzpuzpuz/xsync/v3"
)

// Binding is a thin facade over one EntryPoint address on one shared
// *rpc.Client. It carries no state of its own beyond the address/client
// pair, so it is safe to share across concurrently-running simulations.
type Binding struct {
	Address common.Address
	RPC     *rpc.Client
}

// Bindings is a concurrent-safe cache of Binding facades keyed by entry
// point address, shared by reference across simulation calls the same way
// the underlying JSON-RPC provider is (spec: "the entry-point binding is a
// thin facade over that provider and is likewise shared").
type Bindings struct {
	byAddress *xsync.MapOf[common.Address, *Binding]
	rpc       *rpc.Client
}

// NewBindings returns a Bindings cache backed by the given RPC client.
func NewBindings(client *rpc.Client) *Bindings {
	return &Bindings{
		byAddress: xsync.NewMapOf[common.Address, *Binding](),
		rpc:       client,
	}
}

// Get returns the cached Binding for addr, creating one on first access.
func (b *Bindings) Get(addr common.Address) *Binding {
	binding, _ := b.byAddress.LoadOrCompute(addr, func() *Binding {
		return &Binding{Address: addr, RPC: b.rpc}
	})
	return binding
}
