// Package state provides Host, a reactive view-state container that bindings
// write into.
//
// A Host owns named fields. Bindings mutate it through the Ops returned by
// Host.Ops, which lock the host and notify watchers of the field whose value
// changed, including when the change happens inside a bound *rtbind.Array.
//
// Data flow:
//
//	memdb.Ref -> rtbind.BindAsArray(..., Ops: host.Ops()) -> Host field -> Watch callbacks
//
// Decode and DecodeAll hydrate bound records into typed Go values.
package state
