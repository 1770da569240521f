package net

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mosaicnetworks/relay/src/message"
	"github.com/sirupsen/logrus"
)

// ErrTimeout is returned by RPC when no reply arrives in time.
var ErrTimeout = errors.New("rpc timed out")

// Client sends messages into an InmemNetwork and collects what nodes send
// back to it.
type Client struct {
	id       string
	net      *InmemNetwork
	protocol *message.Protocol
	mailbox  *mailbox
	logger   *logrus.Entry

	lastMsgID uint64

	mu      sync.Mutex
	pending map[uint64]chan *message.Envelope
	inbox   []*message.Envelope
}

func newClient(id string, net *InmemNetwork, protocol *message.Protocol) *Client {
	return &Client{
		id:       id,
		net:      net,
		protocol: protocol,
		mailbox:  newMailbox(),
		logger:   net.logger.WithField("client", id),
		pending:  make(map[uint64]chan *message.Envelope),
	}
}

// ID returns the address of the client.
func (c *Client) ID() string {
	return c.id
}

// Send writes p to dest without a msg_id. No reply is expected.
func (c *Client) Send(dest string, p message.Payload) error {
	return c.net.route(message.NewEnvelope(c.id, dest, message.Body{Payload: p}))
}

// RPC sends p to dest with a fresh msg_id and waits up to timeout for the
// message answering it.
func (c *Client) RPC(dest string, p message.Payload, timeout time.Duration) (*message.Envelope, error) {
	id := atomic.AddUint64(&c.lastMsgID, 1)
	respCh := make(chan *message.Envelope, 1)

	c.mu.Lock()
	c.pending[id] = respCh
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	env := message.NewEnvelope(c.id, dest, message.Body{
		MsgID:   message.ID(id),
		Payload: p,
	})
	if err := c.net.route(env); err != nil {
		return nil, err
	}

	select {
	case reply := <-respCh:
		return reply, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("%w: %s to %s", ErrTimeout, p.Type(), dest)
	}
}

// Inbox returns the messages received by the client that did not answer a
// pending RPC.
func (c *Client) Inbox() []*message.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()

	res := make([]*message.Envelope, len(c.inbox))
	copy(res, c.inbox)
	return res
}

func (c *Client) listen() {
	for {
		line, ok := c.mailbox.get()
		if !ok {
			return
		}

		env, err := c.protocol.Decode(line)
		if err != nil {
			c.logger.WithError(err).WithField("line", string(line)).Error("Failed to decode message")
			continue
		}

		c.receive(env)
	}
}

func (c *Client) receive(env *message.Envelope) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if irt, ok := env.InReplyTo(); ok {
		if respCh, ok := c.pending[irt]; ok {
			select {
			case respCh <- env:
			default:
				c.logger.WithField("in_reply_to", irt).Warn("Duplicate reply")
			}
			return
		}
	}

	c.inbox = append(c.inbox, env)
}
