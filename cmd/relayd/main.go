// Command relayd runs the support relay: the HTTP API, the websocket chat
// gateway and the in-memory ticket store behind them.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "relayd",
	Short: "Support relay between users and admin tiers",
	Long: `relayd relays support requests from users to a primary admin tier,
which delegates each request to a secondary admin who then chats with the
requester through the relay.

Running relayd without a subcommand is the same as 'relayd serve'.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(hashSecretCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
