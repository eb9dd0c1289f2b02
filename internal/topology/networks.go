package topology

import (
	"slices"

	"github.com/EvilSuperstars/go-cidrman"

	"github.com/martinsuchenak/netcanvas/internal/errs"
	"github.com/martinsuchenak/netcanvas/internal/ipam"
	"github.com/martinsuchenak/netcanvas/internal/model"
)

func networkInfo(n *ipam.Network) model.Network {
	info := model.Network{
		CIDR:    n.String(),
		Address: n.Address().String(),
		Prefix:  n.Prefix(),
		Version: int(n.Version()),
		Size:    n.Size().String(),
	}
	for _, a := range n.Allocated() {
		info.Allocated = append(info.Allocated, a.String())
	}
	return info
}

// RegisterNetwork returns the network for cidr, creating it if needed.
// A second registration with the same network address but a different
// prefix is rejected.
func (s *Store) RegisterNetwork(cidr string) (model.Network, error) {
	var out model.Network
	err := s.update(func() error {
		n, err := ipam.ParseCIDR(cidr)
		if err != nil {
			return err
		}
		for _, existing := range s.networks {
			if existing.Address() != n.Address() {
				continue
			}
			if existing.Prefix() != n.Prefix() {
				return errs.Invariantf("network %s already registered as %s", cidr, existing)
			}
			out = networkInfo(existing)
			return nil
		}
		s.networks[n.String()] = n
		s.created(EntityNetwork, n.String())
		out = networkInfo(n)
		return nil
	})
	return out, err
}

func (s *Store) network(cidr string) (*ipam.Network, error) {
	n, err := ipam.ParseCIDR(cidr)
	if err != nil {
		return nil, err
	}
	found, ok := s.networks[n.String()]
	if !ok {
		return nil, errs.NotFoundf("network %s", cidr)
	}
	return found, nil
}

// GetNetwork returns the registered network for cidr.
func (s *Store) GetNetwork(cidr string) (model.Network, error) {
	var (
		out model.Network
		err error
	)
	s.view(func() {
		var n *ipam.Network
		if n, err = s.network(cidr); err == nil {
			out = networkInfo(n)
		}
	})
	return out, err
}

// ListNetworks returns every network ordered by CIDR text.
func (s *Store) ListNetworks() []model.Network {
	var out []model.Network
	s.view(func() {
		for _, k := range sortedKeys(s.networks) {
			out = append(out, networkInfo(s.networks[k]))
		}
	})
	return out
}

// RemoveNetwork deletes a network with no allocated addresses.
func (s *Store) RemoveNetwork(cidr string) error {
	return s.update(func() error {
		n, err := s.network(cidr)
		if err != nil {
			return err
		}
		if used := n.Allocated(); len(used) > 0 {
			return errs.Invariantf("network %s still has %d addresses in use", n, len(used))
		}
		delete(s.networks, n.String())
		s.removed(EntityNetwork, n.String())
		return nil
	})
}

// NextFreeAddress returns the address the next allocation from the
// network would hand out. Nothing is reserved and the cursor stays put.
func (s *Store) NextFreeAddress(cidr string) (string, error) {
	var (
		out string
		err error
	)
	s.view(func() {
		var n *ipam.Network
		if n, err = s.network(cidr); err != nil {
			return
		}
		a, ok := n.PeekFree()
		if !ok {
			err = errs.Exhaustedf("network %s", n)
			return
		}
		out = a.String()
	})
	return out, err
}

// AssignAddress gives iface the address text from the network cidr.
func (s *Store) AssignAddress(iface, address, cidr string) (model.IPConfig, error) {
	var out model.IPConfig
	err := s.update(func() error {
		i, ok := s.interfaces[iface]
		if !ok {
			return errs.NotFoundf("interface %q", iface)
		}
		n, err := s.network(cidr)
		if err != nil {
			return err
		}
		out, err = s.assign(i, n, address)
		return err
	})
	return out, err
}

// AllocateAddress gives iface the next free address of the network cidr.
func (s *Store) AllocateAddress(iface, cidr string) (model.IPConfig, error) {
	var out model.IPConfig
	err := s.update(func() error {
		i, ok := s.interfaces[iface]
		if !ok {
			return errs.NotFoundf("interface %q", iface)
		}
		n, err := s.network(cidr)
		if err != nil {
			return err
		}
		a, ok := n.NextFree()
		if !ok {
			return errs.Exhaustedf("network %s", n)
		}
		out, err = s.assign(i, n, a.String())
		return err
	})
	return out, err
}

func (s *Store) assign(i *model.Interface, n *ipam.Network, address string) (model.IPConfig, error) {
	a, err := n.Allocate(address)
	if err != nil {
		return model.IPConfig{}, err
	}
	cfg := model.IPConfig{Address: a.String(), Network: n.String()}
	i.Addresses = append(i.Addresses, cfg)
	s.changed(EntityInterface, i.Name, AttrAddresses)
	s.changed(EntityNetwork, n.String(), AttrAddresses)
	return cfg, nil
}

// ReleaseAddress removes address from iface and frees it in its network.
func (s *Store) ReleaseAddress(iface, address string) error {
	return s.update(func() error {
		i, ok := s.interfaces[iface]
		if !ok {
			return errs.NotFoundf("interface %q", iface)
		}
		a, err := ipam.ParseAddress(address)
		if err != nil {
			return err
		}
		idx := slices.IndexFunc(i.Addresses, func(c model.IPConfig) bool { return c.Address == a.String() })
		if idx < 0 {
			return errs.NotFoundf("address %s on %s", a, iface)
		}
		cfg := i.Addresses[idx]
		i.Addresses = slices.Delete(i.Addresses, idx, idx+1)
		s.releaseConfig(cfg)
		s.changed(EntityInterface, iface, AttrAddresses)
		return nil
	})
}

// NetworkSummary merges every registered network into the fewest
// covering prefixes.
func (s *Store) NetworkSummary() ([]string, error) {
	var cidrs []string
	s.view(func() {
		cidrs = sortedKeys(s.networks)
	})
	return summarize(cidrs)
}

func summarize(cidrs []string) ([]string, error) {
	if len(cidrs) == 0 {
		return nil, nil
	}
	merged, err := cidrman.MergeCIDRs(cidrs)
	if err != nil {
		return nil, errs.Invalidf("merging networks: %v", err)
	}
	return merged, nil
}
