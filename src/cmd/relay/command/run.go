package command

import (
	"io"
	"os"

	"github.com/mosaicnetworks/relay/src/message"
	"github.com/mosaicnetworks/relay/src/node"
	"github.com/mosaicnetworks/relay/src/service"
)

// The protocol streams. Tests replace them.
var (
	stdin  io.Reader = os.Stdin
	stdout io.Writer = os.Stdout
)

// runNode serves protocol on stdin and stdout. When a service
// address is configured, the HTTP service starts as soon as the handler
// exists.
func runNode(protocol *message.Protocol, factory node.HandlerFactory) error {
	logger := _config.Logger()

	withService := func(n *node.Node) (node.Handler, error) {
		handler, err := factory(n)
		if err != nil {
			return nil, err
		}

		if _config.ServiceAddr != "" {
			if provider, ok := handler.(service.StatsProvider); ok {
				go service.NewService(_config.ServiceAddr, provider, n.Logger()).Serve()
			}
		}

		return handler, nil
	}

	return node.Run(node.NewConfig(logger), protocol, withService, stdin, stdout)
}
