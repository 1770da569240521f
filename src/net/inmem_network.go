package net

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/mosaicnetworks/relay/src/message"
	"github.com/mosaicnetworks/relay/src/node"
	"github.com/sirupsen/logrus"
)

const (
	// ControlID is the address the network uses to initialise nodes.
	ControlID = "c0"

	// DefaultInitTimeout bounds the init handshake of a spawned node.
	DefaultInitTimeout = 5 * time.Second
)

// ErrClosed is returned when using a closed network.
var ErrClosed = errors.New("network closed")

// InmemNetwork connects nodes and clients running in the same process.
type InmemNetwork struct {
	sync.RWMutex

	conf    *node.Config
	logger  *logrus.Entry
	control *Client

	mailboxes map[string]*mailbox
	nodes     []string
	closed    bool

	wg sync.WaitGroup

	errLock sync.Mutex
	errs    []error

	// InitTimeout bounds the wait for init_ok in Spawn.
	InitTimeout time.Duration
}

// NewInmemNetwork returns an empty network. Nodes spawned in it use conf.
func NewInmemNetwork(conf *node.Config) *InmemNetwork {
	n := &InmemNetwork{
		conf:        conf,
		logger:      conf.Logger.WithField("component", "inmem-network"),
		mailboxes:   make(map[string]*mailbox),
		InitTimeout: DefaultInitTimeout,
	}

	// the control client only ever receives init_ok
	control, err := n.Client(ControlID, message.InitProtocol)
	if err != nil {
		panic(err)
	}
	n.control = control

	return n
}

func (n *InmemNetwork) register(id string, mb *mailbox) error {
	n.Lock()
	defer n.Unlock()

	if n.closed {
		return ErrClosed
	}
	if _, ok := n.mailboxes[id]; ok {
		return fmt.Errorf("address %s already in use", id)
	}
	n.mailboxes[id] = mb
	return nil
}

// Client registers a client at address id. Messages it receives are decoded
// with protocol.
func (n *InmemNetwork) Client(id string, protocol *message.Protocol) (*Client, error) {
	c := newClient(id, n, protocol)
	if err := n.register(id, c.mailbox); err != nil {
		return nil, err
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		c.listen()
	}()

	return c, nil
}

// Spawn starts a node at address id and initialises it with nodeIDs. It
// returns once the node has answered init.
func (n *InmemNetwork) Spawn(id string, nodeIDs []string, protocol *message.Protocol, factory node.HandlerFactory) error {
	mb := newMailbox()
	if err := n.register(id, mb); err != nil {
		return err
	}

	n.Lock()
	n.nodes = append(n.nodes, id)
	n.Unlock()

	pr, pw := io.Pipe()

	n.wg.Add(2)
	go func() {
		defer n.wg.Done()
		mb.pump(pw)
	}()
	go func() {
		defer n.wg.Done()
		err := node.Run(n.conf, protocol, factory, pr, &router{net: n, from: id})
		pr.Close()
		if err != nil {
			n.logger.WithError(err).WithField("node", id).Error("Node stopped")
			n.errLock.Lock()
			n.errs = append(n.errs, fmt.Errorf("node %s: %w", id, err))
			n.errLock.Unlock()
		}
	}()

	reply, err := n.control.RPC(id, message.Init{NodeID: id, NodeIDs: nodeIDs}, n.InitTimeout)
	if err != nil {
		return fmt.Errorf("init %s: %w", id, err)
	}
	if _, ok := reply.Body.Payload.(message.InitOk); !ok {
		return fmt.Errorf("init %s: unexpected %s", id, reply.Type())
	}

	n.logger.WithField("node", id).Debug("Node spawned")

	return nil
}

// Nodes returns the addresses of the spawned nodes, sorted.
func (n *InmemNetwork) Nodes() []string {
	n.RLock()
	defer n.RUnlock()

	res := make([]string, len(n.nodes))
	copy(res, n.nodes)
	sort.Strings(res)
	return res
}

func (n *InmemNetwork) route(env *message.Envelope) error {
	line, err := message.Encode(env)
	if err != nil {
		return err
	}
	n.deliver(env.Src, line)
	return nil
}

func (n *InmemNetwork) deliver(from string, line []byte) {
	_, dest, err := message.Route(line)
	if err != nil {
		n.logger.WithError(err).WithField("from", from).Error("Unroutable message")
		return
	}

	n.RLock()
	mb, ok := n.mailboxes[dest]
	n.RUnlock()

	if !ok {
		n.logger.WithFields(logrus.Fields{
			"from": from,
			"dest": dest,
		}).Warn("Unknown destination, dropping message")
		return
	}

	if !mb.put(line) {
		n.logger.WithFields(logrus.Fields{
			"from": from,
			"dest": dest,
		}).Debug("Destination closed, dropping message")
	}
}

// Close stops every node and client. Each node sees the end of its input,
// so Close returns once every node loop has returned. The result joins the
// errors the nodes stopped with.
func (n *InmemNetwork) Close() error {
	n.Lock()
	if n.closed {
		n.Unlock()
		return nil
	}
	n.closed = true
	for _, mb := range n.mailboxes {
		mb.close()
	}
	n.Unlock()

	n.wg.Wait()

	n.errLock.Lock()
	defer n.errLock.Unlock()
	return errors.Join(n.errs...)
}
