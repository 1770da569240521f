package broadcast

import (
	"fmt"
	"strings"
)

// TopologyKind names a shape of neighbour graph used to configure a
// simulated cluster.
type TopologyKind int

const (
	// Line links each node to the previous and next ones.
	Line TopologyKind = iota
	// Ring is a Line whose ends are linked.
	Ring
	// Star links the first node to every other one.
	Star
	// Full links every node to every other one.
	Full
	// Tree arranges the nodes in a binary tree, linking parents and
	// children.
	Tree
)

var topologyNames = map[TopologyKind]string{
	Line: "line",
	Ring: "ring",
	Star: "star",
	Full: "full",
	Tree: "tree",
}

// String ...
func (k TopologyKind) String() string {
	if s, ok := topologyNames[k]; ok {
		return s
	}
	return "unknown"
}

// ParseTopologyKind returns the TopologyKind named s.
func ParseTopologyKind(s string) (TopologyKind, error) {
	for k, name := range topologyNames {
		if strings.EqualFold(s, name) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown topology %q", s)
}

// Build returns the neighbour map of the given shape over ids. Every id has
// an entry, possibly empty. Links are symmetric.
func (k TopologyKind) Build(ids []string) map[string][]string {
	topo := make(map[string][]string, len(ids))
	for _, id := range ids {
		topo[id] = []string{}
	}

	link := func(i, j int) {
		topo[ids[i]] = append(topo[ids[i]], ids[j])
		topo[ids[j]] = append(topo[ids[j]], ids[i])
	}

	n := len(ids)
	switch k {
	case Line, Ring:
		for i := 0; i+1 < n; i++ {
			link(i, i+1)
		}
		if k == Ring && n > 2 {
			link(n-1, 0)
		}
	case Star:
		for i := 1; i < n; i++ {
			link(0, i)
		}
	case Full:
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				link(i, j)
			}
		}
	case Tree:
		for i := 1; i < n; i++ {
			link((i-1)/2, i)
		}
	}

	return topo
}
