// Command radiolink connects to a WildcastRadio server, follows broadcast
// topics and runs confirmed DJ handovers.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "radiolink",
		Short:         "WildcastRadio real-time client",
		Long:          "radiolink keeps a STOMP session to a WildcastRadio server, follows broadcast topics and runs confirmed DJ handovers.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to config file (defaults apply when empty)")
	flags.StringVar(&opts.baseURL, "base-url", "", "server root URL, overrides api.base_url")
	flags.StringVar(&opts.token, "token", "", "bearer token, overrides auth.token")
	flags.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error")
	flags.StringVar(&opts.logFormat, "log-format", "", "text or json")

	root.AddCommand(
		newListenCommand(opts),
		newPublishCommand(opts),
		newHandoverCommand(opts),
		newVersionCommand(),
	)
	return root
}
