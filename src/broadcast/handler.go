package broadcast

import (
	"errors"
	"strconv"
	"sync/atomic"

	"github.com/mosaicnetworks/relay/src/message"
	"github.com/mosaicnetworks/relay/src/node"
	"github.com/mosaicnetworks/relay/src/telemetry"
	"github.com/sirupsen/logrus"
)

// Handler is the state machine of a broadcast node. It is driven by the
// node's dispatch loop and is not safe for concurrent use, except for
// GetStats.
type Handler struct {
	node  *node.Node
	store Store

	// topology is replaced wholesale by each topology message and used
	// verbatim.
	topology map[string][]string

	// neighbours mirrors len(topology[node.ID()]) for GetStats.
	neighbours int64

	logger *logrus.Entry
}

// NewHandler returns a Handler for n storing values in store.
func NewHandler(n *node.Node, store Store) *Handler {
	return &Handler{
		node:     n,
		store:    store,
		topology: make(map[string][]string),
		logger:   n.Logger().WithField("component", "broadcast"),
	}
}

// NewHandlerFactory returns a node.HandlerFactory building a Handler over
// store.
func NewHandlerFactory(store Store) node.HandlerFactory {
	return func(n *node.Node) (node.Handler, error) {
		return NewHandler(n, store), nil
	}
}

// Handle implements node.Handler.
func (h *Handler) Handle(msg *message.Envelope) error {
	switch p := msg.Body.Payload.(type) {
	case message.Broadcast:
		return h.broadcast(msg, p)
	case message.Read:
		return h.read(msg)
	case message.Topology:
		return h.setTopology(msg, p)
	case message.BroadcastOk, message.ReadOk, message.TopologyOk:
		return h.node.Unsolicited(msg)
	default:
		return errors.New("broadcast: unexpected " + msg.Type())
	}
}

func (h *Handler) broadcast(msg *message.Envelope, p message.Broadcast) error {
	accepted, err := h.store.Add(p.Message)
	if err != nil {
		return err
	}

	var errs []error

	if accepted {
		telemetry.Values.Set(float64(h.store.Len()))

		neighbours, ok := h.topology[h.node.ID()]
		if !ok {
			h.logger.WithField("message", p.Message).Debug("No topology entry, not forwarding")
		}
		for _, dest := range neighbours {
			if err := h.node.Send(dest, message.Broadcast{Message: p.Message}); err != nil {
				errs = append(errs, err)
			}
		}
	} else {
		h.logger.WithField("message", p.Message).Debug("Duplicate value")
	}

	if err := h.node.Reply(msg, message.BroadcastOk{}); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func (h *Handler) read(msg *message.Envelope) error {
	values, err := h.store.Values()
	if err != nil {
		return err
	}
	return h.node.Reply(msg, message.ReadOk{Messages: values})
}

func (h *Handler) setTopology(msg *message.Envelope, p message.Topology) error {
	topology := p.Topology
	if topology == nil {
		topology = make(map[string][]string)
	}
	h.topology = topology

	neighbours := h.topology[h.node.ID()]
	atomic.StoreInt64(&h.neighbours, int64(len(neighbours)))

	h.logger.WithField("neighbours", neighbours).Debug("Topology updated")

	return h.node.Reply(msg, message.TopologyOk{})
}

// Neighbours returns the neighbours of this node in the current topology.
func (h *Handler) Neighbours() []string {
	res := make([]string, len(h.topology[h.node.ID()]))
	copy(res, h.topology[h.node.ID()])
	return res
}

// GetStats returns the node's counters along with the number of stored
// values and neighbours. It is safe to call from any goroutine.
func (h *Handler) GetStats() map[string]string {
	stats := h.node.GetStats()
	stats["values"] = strconv.Itoa(h.store.Len())
	stats["neighbours"] = strconv.FormatInt(atomic.LoadInt64(&h.neighbours), 10)
	stats["dedup"] = strconv.FormatBool(h.store.Dedup())
	return stats
}
