package hub

import (
	"fmt"
	"strings"

	"github.com/robotalks/homeauto.go/pkg/ha"
)

// Inventory maps node names and addresses.
type Inventory struct {
	names map[ha.Address]string
	addrs map[string]ha.Address
}

// NewInventory builds an Inventory from node configs.
func NewInventory(nodes []NodeConfig) (*Inventory, error) {
	inv := &Inventory{
		names: make(map[ha.Address]string),
		addrs: make(map[string]ha.Address),
	}
	for _, n := range nodes {
		typ, err := ha.ParseDeviceType(n.Type)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", n.Name, err)
		}
		addr, err := ha.LocalAddress(typ, n.ID)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", n.Name, err)
		}
		if n.Name == "" || strings.ContainsAny(n.Name, "/+#") {
			return nil, fmt.Errorf("node %s: invalid name %q", addr, n.Name)
		}
		if name, exists := inv.names[addr]; exists {
			return nil, fmt.Errorf("node %q: address %s already used by %q", n.Name, addr, name)
		}
		if _, exists := inv.addrs[n.Name]; exists {
			return nil, fmt.Errorf("node %q: duplicated name", n.Name)
		}
		inv.names[addr], inv.addrs[n.Name] = n.Name, addr
	}
	return inv, nil
}

// Name returns the configured name of addr. Unknown nodes are named
// TYPE-ID.
func (inv *Inventory) Name(addr ha.Address) string {
	if name, ok := inv.names[addr]; ok {
		return name
	}
	return fmt.Sprintf("%s-%d", addr.Type(), addr.ID())
}

// Lookup finds the address by name, TYPE-ID, TYPE/ID or a number.
func (inv *Inventory) Lookup(name string) (ha.Address, error) {
	if addr, ok := inv.addrs[name]; ok {
		return addr, nil
	}
	if pos := strings.LastIndex(name, "-"); pos > 0 {
		if addr, err := ha.ParseAddress(name[:pos] + "/" + name[pos+1:]); err == nil {
			return addr, nil
		}
	}
	addr, err := ha.ParseAddress(name)
	if err != nil {
		return 0, fmt.Errorf("unknown node %q", name)
	}
	return addr, nil
}

// Len returns the number of configured nodes.
func (inv *Inventory) Len() int {
	return len(inv.names)
}

// Each calls fn with configured nodes.
func (inv *Inventory) Each(fn func(name string, addr ha.Address)) {
	for name, addr := range inv.addrs {
		fn(name, addr)
	}
}
