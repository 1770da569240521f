// Package node implements the runtime shared by every relay service.
//
// A relay node is a single process that reads newline-delimited JSON
// messages from an input stream and writes its replies to an output stream.
// The runtime owns that loop. Services plug into it with a HandlerFactory
// and receive one decoded message at a time.
//
// Handshake
//
// The first line must be an init message. Its node_id becomes the identity
// of the node for the rest of the run. The runtime builds the service's
// Handler from the factory and answers with init_ok, using the reserved
// message id 0. Anything else on the first line is a fatal startup error and
// Run returns ErrBadInit before the loop starts.
//
// Dispatch
//
// After the handshake Run decodes each line with the service's Protocol and
// passes the resulting Envelope to the Handler. Lines that do not decode and
// handlers that fail are logged and counted; neither stops the loop. Run
// returns when the input is exhausted.
//
// Message ids
//
// Every message the node originates, replies and fire-and-forget sends
// alike, consumes one value of a counter starting at 1. Ids are never
// reused. Fire-and-forget sends do not carry their id on the wire.
//
// Processing is single-threaded: a message is fully handled, including every
// write it causes, before the next line is read. Writes to the output are
// line-atomic.
package node
