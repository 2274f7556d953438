// Command aio-state reads and writes an Adobe I/O State container from the
// command line.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

var app = &cli.App{
	Name:  "aio-state",
	Usage: "inspect and edit an Adobe I/O State container",
	Flags: []cli.Flag{
		configFlag,
		namespaceFlag,
		apiKeyFlag,
		regionFlag,
		envFlag,
		endpointFlag,
		logLevelFlag,
		jsonFlag,
	},
	Commands: []*cli.Command{
		commandGet,
		commandPut,
		commandDelete,
		commandDeleteAll,
		commandAny,
		commandStats,
		commandList,
	},
}

// Global flags. Unset flags fall back to the config file and AIO_STATE_*
// environment variables.
var (
	configFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "yaml config file",
	}
	namespaceFlag = &cli.StringFlag{
		Name:  "namespace",
		Usage: "container namespace (defaults to __OW_NAMESPACE)",
	}
	apiKeyFlag = &cli.StringFlag{
		Name:  "apikey",
		Usage: "api key (defaults to __OW_API_KEY)",
	}
	regionFlag = &cli.StringFlag{
		Name:  "region",
		Usage: "one of amer, apac, emea, aus",
	}
	envFlag = &cli.StringFlag{
		Name:  "env",
		Usage: "prod or stage",
	}
	endpointFlag = &cli.StringFlag{
		Name:  "endpoint",
		Usage: "service base URL, bypasses env and region",
	}
	logLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Usage: "debug, info, warn or error",
	}
	jsonFlag = &cli.BoolFlag{
		Name:  "json",
		Usage: "output JSON instead of human-readable format",
	}
)

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
