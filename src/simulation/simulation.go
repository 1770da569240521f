// Package simulation runs a broadcast cluster in memory and measures how long
// it takes for every node to hold every value.
package simulation

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/mosaicnetworks/relay/src/broadcast"
	"github.com/mosaicnetworks/relay/src/message"
	"github.com/mosaicnetworks/relay/src/net"
	"github.com/mosaicnetworks/relay/src/node"
	"github.com/sirupsen/logrus"
)

const clientID = "c1"

// Config describes a simulated cluster.
type Config struct {
	Nodes    int
	Topology broadcast.TopologyKind
	Values   int
	Dedup    bool

	// Timeout bounds both each request and the wait for convergence.
	Timeout      time.Duration
	PollInterval time.Duration

	Logger *logrus.Entry
}

// Report is the outcome of a simulation.
type Report struct {
	Nodes     []string            `json:"nodes"`
	Topology  map[string][]string `json:"topology"`
	Values    int                 `json:"values"`
	Converged bool                `json:"converged"`
	Elapsed   time.Duration       `json:"elapsed"`
	// Reads holds the last read_ok of each node.
	Reads map[string][]int `json:"reads"`
}

// Missing returns, per node, the broadcast values absent from its last read.
func (r *Report) Missing() map[string][]int {
	res := make(map[string][]int)
	for _, id := range r.Nodes {
		have := make(map[int]bool)
		for _, v := range r.Reads[id] {
			have[v] = true
		}
		for v := 0; v < r.Values; v++ {
			if !have[v] {
				res[id] = append(res[id], v)
			}
		}
	}
	return res
}

// NodeIDs returns n1..nN.
func NodeIDs(count int) []string {
	ids := make([]string, count)
	for i := range ids {
		ids[i] = fmt.Sprintf("n%d", i+1)
	}
	return ids
}

// Run spawns conf.Nodes broadcast nodes, configures the topology, broadcasts
// the values 0..conf.Values-1 round-robin across the nodes, then polls every
// node with read until all of them hold every value or the timeout expires.
func Run(conf Config) (report *Report, err error) {
	if conf.Nodes < 1 {
		return nil, errors.New("simulation needs at least one node")
	}
	if conf.PollInterval <= 0 {
		conf.PollInterval = 10 * time.Millisecond
	}

	network := net.NewInmemNetwork(node.NewConfig(conf.Logger))
	network.InitTimeout = conf.Timeout
	defer func() {
		if cerr := network.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	ids := NodeIDs(conf.Nodes)
	for _, id := range ids {
		factory := broadcast.NewHandlerFactory(broadcast.NewInmemStore(conf.Dedup))
		if err := network.Spawn(id, ids, message.BroadcastProtocol, factory); err != nil {
			return nil, err
		}
	}

	client, err := network.Client(clientID, message.BroadcastProtocol)
	if err != nil {
		return nil, err
	}

	report = &Report{
		Nodes:    ids,
		Topology: conf.Topology.Build(ids),
		Values:   conf.Values,
		Reads:    make(map[string][]int),
	}

	for _, id := range ids {
		if _, err := client.RPC(id, message.Topology{Topology: report.Topology}, conf.Timeout); err != nil {
			return nil, err
		}
	}

	start := time.Now()

	for v := 0; v < conf.Values; v++ {
		if _, err := client.RPC(ids[v%len(ids)], message.Broadcast{Message: v}, conf.Timeout); err != nil {
			return nil, err
		}
	}

	deadline := start.Add(conf.Timeout)
	for {
		converged, err := poll(client, report, conf.Timeout)
		if err != nil {
			return nil, err
		}
		report.Elapsed = time.Since(start)

		if converged {
			report.Converged = true
			break
		}
		if time.Now().After(deadline) {
			break
		}
		time.Sleep(conf.PollInterval)
	}

	conf.Logger.WithFields(logrus.Fields{
		"nodes":     conf.Nodes,
		"topology":  conf.Topology.String(),
		"values":    conf.Values,
		"converged": report.Converged,
		"elapsed":   report.Elapsed,
	}).Info("Simulation done")

	return report, nil
}

// poll reads every node and reports whether all of them hold every value.
func poll(client *net.Client, report *Report, timeout time.Duration) (bool, error) {
	converged := true

	for _, id := range report.Nodes {
		reply, err := client.RPC(id, message.Read{}, timeout)
		if err != nil {
			return false, err
		}
		readOk, ok := reply.Body.Payload.(message.ReadOk)
		if !ok {
			return false, fmt.Errorf("%s answered read with %s", id, reply.Type())
		}

		values := append([]int{}, readOk.Messages...)
		sort.Ints(values)
		report.Reads[id] = values

		if !holdsAll(values, report.Values) {
			converged = false
		}
	}

	return converged, nil
}

// holdsAll reports whether sorted contains every value in 0..count-1.
func holdsAll(sorted []int, count int) bool {
	next := 0
	for _, v := range sorted {
		if v == next {
			next++
		}
	}
	return next >= count
}
