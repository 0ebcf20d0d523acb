package cmd

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

// Version is stamped at build time via -ldflags; it defaults to "dev"
// for local builds, the same fallback the teacher's version.Version
// uses when no build-time value was injected.
var Version = "dev"

func initVersion(rootCommand *cobra.Command) {
	versionCommand := &cobra.Command{
		Use:   "version",
		Short: "Print the version of graphd",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(os.Stdout, "Version: "+Version)
			fmt.Fprintln(os.Stdout, "Go Version: "+runtime.Version())
			fmt.Fprintln(os.Stdout, "Platform: "+runtime.GOOS+"/"+runtime.GOARCH)
		},
	}
	rootCommand.AddCommand(versionCommand)
}
