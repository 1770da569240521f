package command

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mosaicnetworks/relay/src/simulation"
	"github.com/spf13/cobra"
)

// NewSimulateCmd returns the command that runs a broadcast cluster in memory
func NewSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a broadcast cluster in memory and report convergence",
		RunE:  runSimulate,
	}
	AddSimulateFlags(cmd)
	return cmd
}

// AddSimulateFlags adds flags to the simulate command
func AddSimulateFlags(cmd *cobra.Command) {
	cmd.Flags().Int("nodes", _config.Nodes, "Number of nodes")
	cmd.Flags().String("topology", _config.Topology, "line, ring, star, full or tree")
	cmd.Flags().Int("values", _config.Values, "Number of values to broadcast")
	cmd.Flags().DurationP("timeout", "t", _config.Timeout, "Time allowed to converge")
	cmd.Flags().Bool("dedup", _config.Dedup, "Accept each value once")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	kind, err := _config.TopologyKind()
	if err != nil {
		return err
	}

	report, err := simulation.Run(simulation.Config{
		Nodes:    _config.Nodes,
		Topology: kind,
		Values:   _config.Values,
		Dedup:    _config.Dedup,
		Timeout:  _config.Timeout,
		Logger:   _config.Logger(),
	})
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))

	return convergenceError(report, _config.Timeout)
}

// convergenceError names the values each node still lacked when the
// simulation gave up, or returns nil if the cluster converged.
func convergenceError(report *simulation.Report, timeout time.Duration) error {
	if report.Converged {
		return nil
	}

	missing := report.Missing()
	ids := make([]string, 0, len(missing))
	for id := range missing {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	lacks := make([]string, len(ids))
	for i, id := range ids {
		lacks[i] = fmt.Sprintf("%s lacks %v", id, missing[id])
	}
	return fmt.Errorf("cluster did not converge within %s: %s", timeout, strings.Join(lacks, "; "))
}
