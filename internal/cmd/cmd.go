// Package cmd implements graphd's cobra subcommands, mirroring the
// teacher's cmd/commands.go: one init* function per subcommand, all
// hung off a shared root command.
package cmd

import (
	"github.com/spf13/cobra"
)

// Command builds the graphd root command and attaches every
// subcommand. rootCommand may be nil, in which case a default "graphd"
// root is created.
func Command(rootCommand *cobra.Command) *cobra.Command {
	if rootCommand == nil {
		rootCommand = &cobra.Command{
			Use:   "graphd",
			Short: "graphd: a partitioned graph database core",
			Long:  "graphd runs the meta, graph, and storage tiers of a partitioned property-graph store.",
		}
	}

	initRunMeta(rootCommand)
	initRunGraph(rootCommand)
	initRunStorage(rootCommand)
	initVersion(rootCommand)
	return rootCommand
}
