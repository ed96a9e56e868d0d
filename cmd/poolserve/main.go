// Command poolserve serves static files over a minimal HTTP/1.1 GET server
// backed by a fixed worker pool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/poolserve/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.Fprint(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "poolserve",
		Short: "A small static file server with a fixed worker pool",
		Long: `poolserve answers HTTP/1.1 GET requests for files under a content
directory (or an S3 prefix). Every connection carries exactly one request and
is served by one of a fixed number of worker goroutines.

  • 200 with the file body, 404 for missing files, 500 for anything else
  • Prometheus metrics and a status stream on an optional admin listener
  • A built-in load generator`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		benchCmd(),
		versionCmd(),
	)

	return rootCmd
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}
