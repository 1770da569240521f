package node

import (
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/mosaicnetworks/relay/src/message"
	"github.com/mosaicnetworks/relay/src/telemetry"
	"github.com/sirupsen/logrus"
)

type counters struct {
	received      uint64
	handled       uint64
	decodeErrors  uint64
	handlerErrors uint64
	sent          uint64
}

// Node is the identity and outbound side of a running relay node. Handlers
// use it to reply to requests and to send messages to other nodes.
type Node struct {
	state

	id      string
	nodeIDs []string

	// nextMsgID is the id the next originated message will use. It only
	// grows.
	nextMsgID uint64

	out    *lineWriter
	logger *logrus.Entry

	stats counters
}

func newNode(id string, nodeIDs []string, out *lineWriter, logger *logrus.Entry) *Node {
	ids := make([]string, len(nodeIDs))
	copy(ids, nodeIDs)

	return &Node{
		id:        id,
		nodeIDs:   ids,
		nextMsgID: 1,
		out:       out,
		logger:    logger.WithField("node", id),
	}
}

// ID returns the id assigned to this node by init.
func (n *Node) ID() string {
	return n.id
}

// NodeIDs returns every node id listed in init, this node included.
func (n *Node) NodeIDs() []string {
	ids := make([]string, len(n.nodeIDs))
	copy(ids, n.nodeIDs)
	return ids
}

// Logger returns the node's logger, tagged with its id.
func (n *Node) Logger() *logrus.Entry {
	return n.logger
}

// State returns the lifecycle state of the node.
func (n *Node) State() State {
	return n.getState()
}

// LastMsgID returns the last message id this node handed out, or 0 if it has
// not originated any message yet.
func (n *Node) LastMsgID() uint64 {
	return atomic.LoadUint64(&n.nextMsgID) - 1
}

func (n *Node) consumeMsgID() uint64 {
	return atomic.AddUint64(&n.nextMsgID, 1) - 1
}

// Reply answers req with p. The reply carries a fresh msg_id and
// in_reply_to set to req's msg_id. A request without msg_id expects no
// answer: nothing is written and no id is consumed.
func (n *Node) Reply(req *message.Envelope, p message.Payload) error {
	return n.ReplyFunc(req, func(uint64) message.Payload {
		return p
	})
}

// ReplyFunc is like Reply but builds the payload from the msg_id the reply
// is about to carry.
func (n *Node) ReplyFunc(req *message.Envelope, build func(msgID uint64) message.Payload) error {
	if _, ok := req.MsgID(); !ok {
		n.logger.WithFields(logrus.Fields{
			"type": req.Type(),
			"src":  req.Src,
		}).Debug("Request has no msg_id, not replying")
		return nil
	}

	id := n.consumeMsgID()
	return n.write(req.Reply(id, build(id)))
}

// Send writes p to dest as a fire-and-forget message: it consumes one
// message id but carries neither msg_id nor in_reply_to.
func (n *Node) Send(dest string, p message.Payload) error {
	n.consumeMsgID()
	return n.write(message.NewEnvelope(n.id, dest, message.Body{Payload: p}))
}

// Unsolicited accounts for a reply variant that arrived as a request. It
// consumes one message id and returns an error wrapping
// ErrUnsolicitedReply.
func (n *Node) Unsolicited(msg *message.Envelope) error {
	n.consumeMsgID()
	return fmt.Errorf("%w: %s from %s", ErrUnsolicitedReply, msg.Type(), msg.Src)
}

func (n *Node) write(env *message.Envelope) error {
	line, err := message.Encode(env)
	if err != nil {
		return err
	}

	if err := n.out.WriteLine(line); err != nil {
		return fmt.Errorf("writing %s to %s: %w", env.Type(), env.Dest, err)
	}

	atomic.AddUint64(&n.stats.sent, 1)
	telemetry.OutboundTotal.WithLabelValues(env.Type()).Inc()

	return nil
}

// GetStats returns counters describing the node. It is safe to call from any
// goroutine.
func (n *Node) GetStats() map[string]string {
	return map[string]string{
		"node_id":        n.id,
		"cluster_size":   strconv.Itoa(len(n.nodeIDs)),
		"state":          n.getState().String(),
		"last_msg_id":    strconv.FormatUint(n.LastMsgID(), 10),
		"received":       strconv.FormatUint(atomic.LoadUint64(&n.stats.received), 10),
		"handled":        strconv.FormatUint(atomic.LoadUint64(&n.stats.handled), 10),
		"decode_errors":  strconv.FormatUint(atomic.LoadUint64(&n.stats.decodeErrors), 10),
		"handler_errors": strconv.FormatUint(atomic.LoadUint64(&n.stats.handlerErrors), 10),
		"sent":           strconv.FormatUint(atomic.LoadUint64(&n.stats.sent), 10),
	}
}
