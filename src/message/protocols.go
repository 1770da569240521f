package message

var (
	// InitProtocol is the handshake every node speaks before its service
	// protocol.
	InitProtocol = newInitProtocol()

	// BroadcastProtocol replicates integers across a topology.
	BroadcastProtocol = newBroadcastProtocol()

	// EchoProtocol answers each echo with the same string.
	EchoProtocol = newEchoProtocol()

	// UniqueIDProtocol hands out cluster-wide unique ids.
	UniqueIDProtocol = newUniqueIDProtocol()
)

func newInitProtocol() *Protocol {
	p := NewProtocol("init")
	Register[Init](p, "node_id", "node_ids")
	Register[InitOk](p)
	return p
}

func newBroadcastProtocol() *Protocol {
	p := NewProtocol("broadcast")
	Register[Broadcast](p, "message")
	Register[BroadcastOk](p)
	Register[Read](p)
	Register[ReadOk](p, "messages")
	Register[Topology](p, "topology")
	Register[TopologyOk](p)
	return p
}

func newEchoProtocol() *Protocol {
	p := NewProtocol("echo")
	Register[Echo](p, "echo")
	Register[EchoOk](p, "echo")
	return p
}

func newUniqueIDProtocol() *Protocol {
	p := NewProtocol("unique-id")
	Register[Generate](p)
	Register[GenerateOk](p, "id")
	return p
}
