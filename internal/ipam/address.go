// Package ipam validates IP addresses and allocates them from CIDR
// blocks registered in the topology.
package ipam

import (
	"math/big"
	"net/netip"
	"strings"

	"github.com/martinsuchenak/netcanvas/internal/errs"
)

// Version is the IP protocol version of an address or network.
type Version int

const (
	V4 Version = 4
	V6 Version = 6
)

// Bits returns the address width.
func (v Version) Bits() int {
	if v == V6 {
		return 128
	}
	return 32
}

// Address is a validated IP address.
type Address struct {
	addr netip.Addr
}

// ParseAddress validates text as an IPv4 or IPv6 address. Zones and
// IPv4-mapped IPv6 forms are rejected.
func ParseAddress(text string) (Address, error) {
	text = strings.TrimSpace(text)
	addr, err := netip.ParseAddr(text)
	if err != nil {
		return Address{}, errs.Invalidf("address %q", text)
	}
	if addr.Zone() != "" || addr.Is4In6() {
		return Address{}, errs.Invalidf("address %q", text)
	}
	return Address{addr: addr}, nil
}

// AddressFromInt converts a bit mask back into an address of version v.
func AddressFromInt(v *big.Int, version Version) (Address, error) {
	if v.Sign() < 0 || v.BitLen() > version.Bits() {
		return Address{}, errs.Invalidf("value %s for IPv%d", v.String(), int(version))
	}
	buf := make([]byte, version.Bits()/8)
	v.FillBytes(buf)
	addr, ok := netip.AddrFromSlice(buf)
	if !ok {
		return Address{}, errs.Invalidf("value %s for IPv%d", v.String(), int(version))
	}
	return Address{addr: addr}, nil
}

// IsValid reports whether a is a parsed address rather than the zero value.
func (a Address) IsValid() bool {
	return a.addr.IsValid()
}

func (a Address) String() string {
	if !a.addr.IsValid() {
		return ""
	}
	return a.addr.String()
}

// Version returns the protocol version.
func (a Address) Version() Version {
	if a.addr.Is6() {
		return V6
	}
	return V4
}

// IsLinkLocal reports 169.254.0.0/16 and fe80::/10 addresses.
func (a Address) IsLinkLocal() bool {
	return a.addr.IsLinkLocalUnicast()
}

// Int returns the address as an unsigned bit mask.
func (a Address) Int() *big.Int {
	return new(big.Int).SetBytes(a.addr.AsSlice())
}

// Compare orders addresses numerically; IPv4 sorts before IPv6.
func (a Address) Compare(b Address) int {
	return a.addr.Compare(b.addr)
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(b []byte) error {
	v, err := ParseAddress(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}
