package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

// NewRootCommand builds the adapter-probe command tree.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "adapter-probe",
		Short: "Send requests through the cached HTTP client adapter",
		Long: `adapter-probe sends HTTP requests through the connection caching adapter.

It is useful for checking timeouts, TLS client certificates and proxies against a real
endpoint, and for seeing when a request reuses a cached client.

Get started:
  adapter-probe probe https://example.com
  adapter-probe probe https://example.com --timeout 5s --repeat 3`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(newProbeCommand())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// SetVersion sets the version info
func SetVersion(v string) {
	version = v
}
