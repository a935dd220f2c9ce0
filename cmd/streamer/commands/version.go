package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Version подставляется при сборке через -ldflags
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print streamer version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("streamer %s (%s %s/%s)\n", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
