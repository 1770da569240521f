// Package net runs several relay nodes in one process.
//
// An InmemNetwork connects the standard input and output of each node to an
// in-memory router. Each node reads from a pipe fed by an unbounded mailbox,
// so routing a message never blocks on the receiving node and cyclic
// topologies cannot deadlock. Every line a node writes is routed by its dest
// field to the mailbox of another node or of a Client. Messages for unknown
// destinations are logged and dropped.
//
// Clients play the part of the external test harness: they send requests to
// nodes and wait for the correlated replies.
package net
