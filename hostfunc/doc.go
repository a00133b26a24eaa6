// Package hostfunc provides the host functions exposed to server-side
// scripts, and the ordered table that binds them into every compiled program.
//
// # Table
//
// The [Table] is built once during process initialization, sealed, and then
// bound entry by entry into each program before execution. Binding order is
// registration order and is deterministic across requests.
//
//	table := hostfunc.NewTable()
//	table.Register("server_time", hostfunc.ServerTime)
//	table.Register("kv_get", kv.Get)
//	table.Seal()
//
// # Built-in capabilities
//
// Key-value store: bounded in-memory settings storage via [KVStore].
//
// HTTP: outbound requests restricted to an explicit host allowlist via
// [HTTP] and [HTTPConfig]. Scripts with no allowlist configured cannot make
// network requests at all.
//
// Host facts: [ServerTime] and [NewServerEnv] expose the wall clock and a
// fixed set of process facts.
//
// All capabilities carry size limits so a misbehaving script cannot exhaust
// host resources through the function table.
package hostfunc
