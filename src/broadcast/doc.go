// Package broadcast implements the best-effort broadcast service.
//
// A node accepts integers through broadcast messages, stores them, and
// forwards each newly accepted value once to each of its neighbours in the
// topology last set by a topology message. read returns every stored value
// in the order it was accepted.
//
// Values are kept by a Store. InmemStore holds them in memory; BadgerStore
// additionally writes them to a badger database so that a node started with
// bootstrap can reload the values of a previous run. Neither store syncs
// writes to disk.
//
// With deduplication enabled (the default) a value is accepted at most once,
// which stops forwarding loops on cyclic topologies. Without it every
// delivery is stored and forwarded.
package broadcast
