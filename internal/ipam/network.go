package ipam

import (
	"fmt"
	"math/big"
	"net/netip"
	"sort"
	"strconv"
	"strings"

	"github.com/martinsuchenak/netcanvas/internal/errs"
)

var one = big.NewInt(1)

// Network is a CIDR block with a "next free" cursor and the set of
// addresses in use. The network address and the last address of the
// block are never handed out.
//
// Network is not safe for concurrent use; the topology store serialises
// access to it.
type Network struct {
	address Address
	prefix  int

	network    *big.Int
	lastUsable *big.Int
	next       *big.Int
	inUse      map[string]Address
}

// NewNetwork validates address and prefix and returns an empty network.
// The address must be the first address of the block.
func NewNetwork(address string, prefix int) (*Network, error) {
	addr, err := ParseAddress(address)
	if err != nil {
		return nil, err
	}
	bits := addr.Version().Bits()
	if prefix < 0 || prefix > bits {
		return nil, errs.Invalidf("prefix length %d for IPv%d", prefix, int(addr.Version()))
	}
	pfx := netip.PrefixFrom(addr.addr, prefix)
	if pfx.Masked().Addr() != addr.addr {
		return nil, errs.Invalidf("network address %s/%d has host bits set", address, prefix)
	}

	base := addr.Int()
	n := &Network{
		address: addr,
		prefix:  prefix,
		network: base,
		inUse:   make(map[string]Address),
	}
	n.lastUsable = new(big.Int).Add(base, usableHosts(bits, prefix))
	n.next = new(big.Int).Add(base, one)
	return n, nil
}

// ParseCIDR accepts "a.b.c.d/n" or "x::/n".
func ParseCIDR(cidr string) (*Network, error) {
	addr, bits, ok := strings.Cut(strings.TrimSpace(cidr), "/")
	if !ok {
		return nil, errs.Invalidf("network %q", cidr)
	}
	prefix, err := strconv.Atoi(bits)
	if err != nil {
		return nil, errs.Invalidf("network %q", cidr)
	}
	return NewNetwork(addr, prefix)
}

// usableHosts is 2^(bits-prefix) minus the network and last addresses.
func usableHosts(bits, prefix int) *big.Int {
	size := new(big.Int).Lsh(one, uint(bits-prefix))
	size.Sub(size, big.NewInt(2))
	if size.Sign() < 0 {
		size.SetInt64(0)
	}
	return size
}

// Address returns the network address.
func (n *Network) Address() Address { return n.address }

// Prefix returns the prefix length.
func (n *Network) Prefix() int { return n.prefix }

// Version returns the protocol version of the block.
func (n *Network) Version() Version { return n.address.Version() }

func (n *Network) String() string {
	return fmt.Sprintf("%s/%d", n.address, n.prefix)
}

// Size returns the number of allocatable addresses.
func (n *Network) Size() *big.Int {
	return new(big.Int).Sub(n.lastUsable, n.network)
}

// LastUsable returns the highest allocatable address, or false if the
// block has no allocatable addresses.
func (n *Network) LastUsable() (Address, bool) {
	if n.lastUsable.Cmp(n.network) <= 0 {
		return Address{}, false
	}
	a, err := AddressFromInt(n.lastUsable, n.Version())
	return a, err == nil
}

// Contains reports whether a is in (network, lastUsable].
func (n *Network) Contains(a Address) bool {
	if a.Version() != n.Version() {
		return false
	}
	v := a.Int()
	return v.Cmp(n.network) > 0 && v.Cmp(n.lastUsable) <= 0
}

// Allocate validates text and marks it in use.
func (n *Network) Allocate(text string) (Address, error) {
	a, err := ParseAddress(text)
	if err != nil {
		return Address{}, err
	}
	if a.Version() != n.Version() {
		return Address{}, errs.Invalidf("IPv%d address %s for %s", int(a.Version()), a, n)
	}
	if !n.Contains(a) {
		return Address{}, errs.Invariantf("address %s not in range of %s", a, n)
	}
	key := a.String()
	if _, ok := n.inUse[key]; ok {
		return Address{}, errs.Invariantf("address %s already in use in %s", a, n)
	}
	n.inUse[key] = a
	return a, nil
}

// Release un-marks a. If a sits below the free cursor the cursor is
// rewound so released low addresses are handed out first.
func (n *Network) Release(a Address) error {
	key := a.String()
	if _, ok := n.inUse[key]; !ok {
		return errs.NotFoundf("address %s in %s", a, n)
	}
	delete(n.inUse, key)
	if v := a.Int(); v.Cmp(n.next) < 0 {
		n.next = v
	}
	return nil
}

// InUse reports whether a is allocated.
func (n *Network) InUse(a Address) bool {
	_, ok := n.inUse[a.String()]
	return ok
}

// Allocated returns the in-use addresses in ascending order.
func (n *Network) Allocated() []Address {
	out := make([]Address, 0, len(n.inUse))
	for _, a := range n.inUse {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Compare(out[j]) < 0 })
	return out
}

// NextFree returns the lowest unused address at or after the cursor and
// advances the cursor past it. It does not mark the address in use. The
// second result is false when the block is exhausted.
func (n *Network) NextFree() (Address, bool) {
	for {
		if n.next.Cmp(n.lastUsable) > 0 {
			return Address{}, false
		}
		candidate := new(big.Int).Set(n.next)
		advanced := n.advance()
		a, err := AddressFromInt(candidate, n.Version())
		if err != nil {
			return Address{}, false
		}
		if !n.InUse(a) {
			return a, true
		}
		if !advanced {
			return Address{}, false
		}
	}
}

// PeekFree returns the address NextFree would return, without moving the
// cursor.
func (n *Network) PeekFree() (Address, bool) {
	for cur := new(big.Int).Set(n.next); cur.Cmp(n.lastUsable) <= 0; cur.Add(cur, one) {
		a, err := AddressFromInt(cur, n.Version())
		if err != nil {
			return Address{}, false
		}
		if !n.InUse(a) {
			return a, true
		}
	}
	return Address{}, false
}

// advance moves the cursor by one unless that would pass lastUsable.
func (n *Network) advance() bool {
	following := new(big.Int).Add(n.next, one)
	if following.Cmp(n.lastUsable) > 0 {
		return false
	}
	n.next = following
	return true
}
