// Package cli implements the relayd command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Build-time variables injected via ldflags.
var (
	// Version is the release version.
	Version = "dev"
	// Commit is the git commit hash.
	Commit = "none"
	// BuildDate is the build timestamp.
	BuildDate = "unknown"
)

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "relayd",
	Short: "relayd is a real-time SSE and WebSocket fan-out server",
	Long: `relayd delivers server-to-client events over Server-Sent Events and
bidirectional messages over WebSocket, with per-user admission quotas,
channel-based fan-out, and periodic keep-alive heartbeats.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the command tree. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
