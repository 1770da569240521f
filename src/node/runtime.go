package node

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"sync/atomic"
	"time"

	"github.com/mosaicnetworks/relay/src/message"
	"github.com/mosaicnetworks/relay/src/telemetry"
	"github.com/sirupsen/logrus"
)

const (
	// initial size of the input buffer; longer lines are still read whole
	bufSize = math.MaxUint16
)

var (
	// ErrBadInit is returned by Run when the node cannot complete the init
	// handshake.
	ErrBadInit = errors.New("bad init message")

	// ErrUnsolicitedReply is returned by handlers that receive a reply
	// variant (broadcast_ok, read_ok, ...) as a request.
	ErrUnsolicitedReply = errors.New("unsolicited reply")
)

// Handler processes the messages of one service protocol. Handle is called
// once per decoded message, never concurrently.
type Handler interface {
	Handle(msg *message.Envelope) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(msg *message.Envelope) error

// Handle implements Handler.
func (f HandlerFunc) Handle(msg *message.Envelope) error {
	return f(msg)
}

// HandlerFactory builds the service state once the node knows its identity.
type HandlerFactory func(n *Node) (Handler, error)

// Run performs the init handshake on in, then feeds every following line,
// decoded with protocol, to the Handler built by factory. Replies are written
// to out. Run returns nil when in is exhausted, an error wrapping ErrBadInit
// when the handshake fails, or the read error that stopped the loop.
func Run(conf *Config, protocol *message.Protocol, factory HandlerFactory, in io.Reader, out io.Writer) error {
	r := bufio.NewReaderSize(in, bufSize)
	w := newLineWriter(out)

	n, req, err := handshake(conf, r, w)
	if err != nil {
		return err
	}
	defer n.setState(Stopped)

	handler, err := factory(n)
	if err != nil {
		return fmt.Errorf("%w: building %s handler: %v", ErrBadInit, protocol.Name(), err)
	}

	initOk := message.NewEnvelope(n.id, req.Src, message.Body{
		MsgID:     message.ID(0),
		InReplyTo: req.Body.MsgID,
		Payload:   message.InitOk{},
	})
	if err := n.write(initOk); err != nil {
		return fmt.Errorf("%w: %v", ErrBadInit, err)
	}

	n.setState(Running)
	n.logger.WithFields(logrus.Fields{
		"protocol": protocol.Name(),
		"nodes":    len(n.nodeIDs),
	}).Info("Node initialised")

	return n.serve(r, protocol, handler)
}

// handshake reads the first message, which must be init, and builds the
// node from it.
func handshake(conf *Config, r *bufio.Reader, w *lineWriter) (*Node, *message.Envelope, error) {
	line, err := readLine(r)
	if err != nil {
		if err == io.EOF {
			return nil, nil, fmt.Errorf("%w: input closed before init", ErrBadInit)
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrBadInit, err)
	}

	env, err := message.InitProtocol.Decode(line)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrBadInit, err)
	}

	payload, ok := env.Body.Payload.(message.Init)
	if !ok {
		return nil, nil, fmt.Errorf("%w: first message is %s", ErrBadInit, env.Type())
	}
	if _, ok := env.MsgID(); !ok {
		return nil, nil, fmt.Errorf("%w: init has no msg_id", ErrBadInit)
	}
	if payload.NodeID == "" {
		return nil, nil, fmt.Errorf("%w: empty node_id", ErrBadInit)
	}

	return newNode(payload.NodeID, payload.NodeIDs, w, conf.Logger), env, nil
}

func (n *Node) serve(r *bufio.Reader, protocol *message.Protocol, handler Handler) error {
	for {
		line, err := readLine(r)
		if err == io.EOF {
			n.logger.Debug("Input closed")
			return nil
		}
		if err != nil {
			n.logger.WithError(err).Error("Reading input")
			return err
		}

		n.process(protocol, handler, line)
	}
}

// process decodes and handles one line. Failures are logged and counted,
// never returned.
func (n *Node) process(protocol *message.Protocol, handler Handler, line []byte) {
	atomic.AddUint64(&n.stats.received, 1)

	env, err := protocol.Decode(line)
	if err != nil {
		atomic.AddUint64(&n.stats.decodeErrors, 1)
		telemetry.MessagesTotal.WithLabelValues(telemetry.InvalidType, telemetry.OutcomeDecodeError).Inc()
		n.logger.WithError(err).WithField("line", string(line)).Error("Failed to decode message")
		return
	}

	typ := env.Type()
	logger := n.logger.WithFields(logrus.Fields{
		"type": typ,
		"src":  env.Src,
	})
	if id, ok := env.MsgID(); ok {
		logger = logger.WithField("msg_id", id)
	}

	start := time.Now()
	err = n.handle(handler, env)
	telemetry.HandleDuration.WithLabelValues(typ).Observe(time.Since(start).Seconds())

	if err != nil {
		atomic.AddUint64(&n.stats.handlerErrors, 1)
		telemetry.MessagesTotal.WithLabelValues(typ, telemetry.OutcomeHandlerError).Inc()
		if errors.Is(err, ErrUnsolicitedReply) {
			logger.WithError(err).Warn("Protocol violation")
		} else {
			logger.WithError(err).Error("Failed to handle message")
		}
		return
	}

	atomic.AddUint64(&n.stats.handled, 1)
	telemetry.MessagesTotal.WithLabelValues(typ, telemetry.OutcomeHandled).Inc()
	logger.Debug("Handled message")
}

func (n *Node) handle(handler Handler, env *message.Envelope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler.Handle(env)
}

// readLine returns the next non-blank line without its line terminator. A
// final line without a newline is returned before io.EOF.
func readLine(r *bufio.Reader) ([]byte, error) {
	for {
		line, err := r.ReadBytes('\n')
		line = bytes.TrimSpace(line)
		if len(line) > 0 {
			return line, nil
		}
		if err != nil {
			return nil, err
		}
	}
}
