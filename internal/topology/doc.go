// Package topology is the authoritative in-memory model of a network
// design: components and their interfaces, cables, groups, the boundary
// objects that project switches into groups, VLANs and IP networks.
//
// A Store is the only way to create, query or mutate entities. Every
// exported method is one critical section on the store lock; values are
// returned as copies from package model. Changes are reported to an
// optional Mirror after the lock has been released, in mutation order.
//
// Identity follows a few fixed patterns:
//
//	component          <kind>_<n>          host_1, switch_2, vm_3
//	interface          <component>_if<n>   switch_2_if0
//	cable              ncable_<n>
//	group              cgroup<n>
//	vlan               vlan_<id>
//	virtual interface  vif<n>
//	group interface    gif<n>
//	group switch       gswitch<n>
//
// All of them share one name registry, so no two live entities ever have
// the same local name. Rebuilding from a mirror supplies the names
// instead of generating them.
package topology
