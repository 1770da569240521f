package message

// Init is the first message a node receives. It assigns the node its id and
// lists every node in the cluster.
type Init struct {
	NodeID  string   `codec:"node_id"`
	NodeIDs []string `codec:"node_ids"`
}

// Type implements Payload.
func (Init) Type() string { return "init" }

// InitOk acknowledges Init.
type InitOk struct{}

// Type implements Payload.
func (InitOk) Type() string { return "init_ok" }

// Broadcast asks a node to store Message and relay it to its neighbours.
type Broadcast struct {
	Message int `codec:"message"`
}

// Type implements Payload.
func (Broadcast) Type() string { return "broadcast" }

// BroadcastOk acknowledges Broadcast.
type BroadcastOk struct{}

// Type implements Payload.
func (BroadcastOk) Type() string { return "broadcast_ok" }

// Read asks a node for every value it has accepted.
type Read struct{}

// Type implements Payload.
func (Read) Type() string { return "read" }

// ReadOk answers Read with the node's values.
type ReadOk struct {
	Messages []int `codec:"messages"`
}

// Type implements Payload.
func (ReadOk) Type() string { return "read_ok" }

// wire makes sure an empty value list is written as [] rather than null.
func (r ReadOk) wire() Payload {
	if r.Messages == nil {
		r.Messages = []int{}
	}
	return r
}

// Topology replaces the neighbour map of the receiving node.
type Topology struct {
	Topology map[string][]string `codec:"topology"`
}

// Type implements Payload.
func (Topology) Type() string { return "topology" }

// wire makes sure an empty map is written as {} rather than null.
func (t Topology) wire() Payload {
	if t.Topology == nil {
		t.Topology = map[string][]string{}
	}
	return t
}

// TopologyOk acknowledges Topology.
type TopologyOk struct{}

// Type implements Payload.
func (TopologyOk) Type() string { return "topology_ok" }

// Echo asks a node to send Echo back.
type Echo struct {
	Echo string `codec:"echo"`
}

// Type implements Payload.
func (Echo) Type() string { return "echo" }

// EchoOk carries the echoed string.
type EchoOk struct {
	Echo string `codec:"echo"`
}

// Type implements Payload.
func (EchoOk) Type() string { return "echo_ok" }

// Generate asks a node for a cluster-wide unique id.
type Generate struct{}

// Type implements Payload.
func (Generate) Type() string { return "generate" }

// GenerateOk carries a generated id.
type GenerateOk struct {
	ID string `codec:"id"`
}

// Type implements Payload.
func (GenerateOk) Type() string { return "generate_ok" }

// wirer is implemented by payloads that need adjusting before encoding.
type wirer interface {
	wire() Payload
}
