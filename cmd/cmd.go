// Package cmd implements Configuration & CLI: a small spf13/cobra command
// tree exposing a generate subcommand that wires together a deterministic
// fake engine, a scheduler, and a session driver for local
// experimentation. Grounded on the teacher's cmd/cmd.go root-command shape
// (NewCLI building a cobra.Command with SilenceUsage/SilenceErrors and an
// appended environment-variable usage block) and cmd/cmd_generate.go's
// generate subcommand, narrowed from a client/server HTTP CLI to a single
// in-process driver.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvidia/batchdecode/config"
)

// appendEnvDocs appends an "Environment Variables" usage block listing
// every recognised INFER_* key, the same convention the teacher's
// appendEnvDocs follows for its own envconfig.EnvVar list.
func appendEnvDocs(c *cobra.Command) {
	envs := config.AsMap()
	if len(envs) == 0 {
		return
	}

	usage := "\nEnvironment Variables:\n"
	for _, e := range envs {
		usage += fmt.Sprintf("      %-24s   %s\n", e.Name, e.Description)
	}

	c.SetUsageTemplate(c.UsageTemplate() + usage)
}

// NewCLI builds the root command and attaches every subcommand.
func NewCLI() *cobra.Command {
	cobra.EnableCommandSorting = false

	root := &cobra.Command{
		Use:           "batchdecode",
		Short:         "Batch decoding scheduler for a compiled inference engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newGenerateCmd())
	root.AddCommand(newConfigCmd())

	appendEnvDocs(root)
	return root
}

// Execute builds the CLI and runs it against args (typically os.Args[1:]),
// returning the first error any command or flag parse produces.
func Execute(args []string) error {
	root := NewCLI()
	root.SetArgs(args)
	return root.Execute()
}
