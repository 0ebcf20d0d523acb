package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/graphkv/graphd/internal/xmetrics"
)

func initRunGraph(rootCommand *cobra.Command) {
	var configFile, addr, id string

	runGraphCommand := &cobra.Command{
		Use:   "run-graph",
		Short: "Start a graph-tier host serving the shared config/logging/metrics surface",
		Long:  "run-graph loads the configuration, installs the configured logger, and serves /metrics on --addr. It does not run a planner or executor and exposes no query-ingestion RPC — the AST parser that would drive one is out of scope (spec §1); planning and execution against the storage tier are done by an embedder using planner.Builder, planner/exec.Executor and graphsvc.RoutedClient as a library.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(configFile, addr, id)
		},
	}
	runGraphCommand.Flags().StringVarP(&configFile, "config-file", "c", "", "path to the configuration file")
	runGraphCommand.Flags().StringVar(&addr, "addr", ":9778", "listen address for the /metrics admin surface")
	runGraphCommand.Flags().StringVar(&id, "id", "", "process id recorded in configuration labels")
	rootCommand.AddCommand(runGraphCommand)
}

func runGraph(configFile, addr, id string) error {
	c, err := loadConfig(configFile, id)
	if err != nil {
		return err
	}
	logger, err := buildLogger(c)
	if err != nil {
		return err
	}

	metrics := xmetrics.NewRegistry()

	// A graph host has no RPC handlers of its own to register (see
	// graphsvc's package doc): an embedder constructs its own
	// meta/catalog.Catalog, wraps it in a graphsvc.RoutedClient per
	// space, and drives planner.Builder/planner/exec.Executor directly.
	// This process's own job is just to stand up the shared ambient
	// surface (config, logging, metrics) every graphd binary carries,
	// per §5's process model.
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	logger.WithField("addr", addr).Info("cmd: run-graph listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		return fmt.Errorf("cmd: run-graph: %w", err)
	}
	return nil
}
