// Spybot - game log monitor and craft automation server
//
// Watches the game client log, mirrors keyword hits to webhooks, fires
// the combat auto-trigger, and runs verified crafting sessions.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	serverURL string
)

var rootCmd = &cobra.Command{
	Use:   "spybot",
	Short: "Spybot - game log monitor and craft automation",
	Long: `Spybot watches the game client log, mirrors keyword hits to webhooks,
fires the combat auto-trigger, and runs verified crafting sessions.

  spybot serve                              Start the server
  spybot status                             Show monitor and craft status
  spybot watch                              Stream live monitor events
  spybot craft start --item "Antidote" -n 5 Craft items with log verification
  spybot craft runs                         List craft runs
  spybot preset save 1 --seq 151 -n 10      Save a craft preset
  spybot preset apply 1                     Craft from a saved preset`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("SPYBOT_SERVER", "http://localhost:7080"), "Spybot server URL")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
