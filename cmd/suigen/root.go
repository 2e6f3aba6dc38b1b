package main

import (
	"github.com/spf13/cobra"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	ConfigFile string
	EnvFile    string
	Verbose    bool
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "suigen",
		Short: "Generate event types and a database schema for a Sui Move package",
		Long: `suigen reads the on-chain modules of a Sui Move package, finds every
struct passed to event::emit and resolves the full closure of types those
events reference, following imports into other packages.

It writes Go declarations, an event registry, an events.yaml manifest and
a PostgreSQL schema, and can apply the schema to a database.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flags.ConfigFile, "config", "", "YAML config file")
	root.PersistentFlags().StringVar(&flags.EnvFile, "env-file", ".env", "dotenv file read before the environment")
	root.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newGenerateCmd(flags))

	return root
}
