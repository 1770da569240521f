// Package message defines the wire format spoken by relay nodes.
//
// Every message is a single JSON object on its own line:
//
//	{"src":"c1","dest":"n1","body":{"type":"broadcast","msg_id":3,"message":42}}
//
// The Envelope carries the source and destination node ids and a Body. The
// Body holds the two correlation fields, msg_id and in_reply_to, and a
// Payload. The Payload is flattened into the body object and recovered from
// its "type" discriminator.
//
// Protocols
//
// A Protocol is a closed set of payload variants, registered by type name
// together with the fields each variant requires. Decoding a line against a
// Protocol fails explicitly when the discriminator is missing or unknown, or
// when a required field is absent or null. The package ships the protocols
// used by the relay services: InitProtocol for the handshake,
// BroadcastProtocol, EchoProtocol and UniqueIDProtocol.
//
// Encoding
//
// Envelopes are encoded with the ugorji JSON codec. Correlation fields are
// written only when they are set, so a fire-and-forget message carries
// neither msg_id nor in_reply_to.
package message
