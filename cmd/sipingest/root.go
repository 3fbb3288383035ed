package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "sipingest",
		Short: "SIP message ingestion",
		Long: `sipingest frames SIP messages from TCP byte streams, parses them and
delivers messages of each call in order.

Configuration is read from the YAML file given with --config, SIPINGEST_* environment
variables, inline YAML overrides given with --set and command flags.`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configFile, "config", "c", "", "config file path")
	pf.StringArrayVar(&a.overrides, "set", nil, "inline YAML config override, e.g. 'ingest: {max_message_size: 4096}'")
	pf.String("log-format", "", "log format: console, dev, json or none")
	pf.String("log-level", "", "log level: debug, info, warn or error")

	root.AddCommand(newServeCmd(a), newParseCmd(a), newConfigCmd(a))
	return root
}
