// Package uniqueid implements a service handing out ids that are unique
// across the cluster without coordination. An id joins the node id with the
// message id of the reply carrying it; node ids are distinct and a node
// never reuses a message id.
package uniqueid

import (
	"errors"
	"fmt"

	"github.com/mosaicnetworks/relay/src/message"
	"github.com/mosaicnetworks/relay/src/node"
)

// Handler answers generate requests.
type Handler struct {
	node *node.Node
}

// NewHandler ...
func NewHandler(n *node.Node) *Handler {
	return &Handler{node: n}
}

// Factory is a node.HandlerFactory for the unique-id service.
func Factory(n *node.Node) (node.Handler, error) {
	return NewHandler(n), nil
}

// Handle implements node.Handler.
func (h *Handler) Handle(msg *message.Envelope) error {
	switch msg.Body.Payload.(type) {
	case message.Generate:
		return h.node.ReplyFunc(msg, func(msgID uint64) message.Payload {
			return message.GenerateOk{ID: FormatID(h.node.ID(), msgID)}
		})
	case message.GenerateOk:
		return h.node.Unsolicited(msg)
	default:
		return errors.New("unique-id: unexpected " + msg.Type())
	}
}

// GetStats ...
func (h *Handler) GetStats() map[string]string {
	return h.node.GetStats()
}

// FormatID returns the id handed out by nodeID in the reply numbered msgID.
func FormatID(nodeID string, msgID uint64) string {
	return fmt.Sprintf("%s-%d", nodeID, msgID)
}
