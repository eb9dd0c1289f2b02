// Package model defines the values the topology store hands out.
//
// Every value returned by the store is a copy; mutating it has no effect
// on the store. Entities refer to each other by local name or, for
// groups and boundary objects, by identifier.
package model
