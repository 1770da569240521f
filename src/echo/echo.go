// Package echo implements a service answering each echo message with the
// same text.
package echo

import (
	"errors"

	"github.com/mosaicnetworks/relay/src/message"
	"github.com/mosaicnetworks/relay/src/node"
)

// Handler answers echo requests.
type Handler struct {
	node *node.Node
}

// NewHandler ...
func NewHandler(n *node.Node) *Handler {
	return &Handler{node: n}
}

// Factory is a node.HandlerFactory for the echo service.
func Factory(n *node.Node) (node.Handler, error) {
	return NewHandler(n), nil
}

// Handle implements node.Handler.
func (h *Handler) Handle(msg *message.Envelope) error {
	switch p := msg.Body.Payload.(type) {
	case message.Echo:
		return h.node.Reply(msg, message.EchoOk{Echo: p.Echo})
	case message.EchoOk:
		return h.node.Unsolicited(msg)
	default:
		return errors.New("echo: unexpected " + msg.Type())
	}
}

// GetStats ...
func (h *Handler) GetStats() map[string]string {
	return h.node.GetStats()
}
