package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/golang/glog"
	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "rtbind",
		Short: "Replay realtime tree writes through rtbind bindings",
		Long: `rtbind drives object and array bindings against an in-memory
realtime tree.

A replay script seeds the tree, applies a sequence of writes and prints
the bound host field after every step, which makes the ordered child
event stream easy to inspect.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// glog registers its flags (-v, -logtostderr, ...) on the standard set
	rootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)

	rootCmd.AddCommand(
		replayCmd(),
		versionCmd(),
	)

	err := rootCmd.Execute()
	glog.Flush()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
