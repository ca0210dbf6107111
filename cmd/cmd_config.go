package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/nvidia/batchdecode/config"
)

// newConfigCmd prints every recognised INFER_* environment variable and its
// currently resolved value, the diagnostic counterpart of appendEnvDocs'
// static usage text.
func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the resolved scheduler configuration",
		RunE: func(c *cobra.Command, args []string) error {
			values := config.Values()

			keys := make([]string, 0, len(values))
			for k := range values {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			for _, k := range keys {
				fmt.Fprintf(c.OutOrStdout(), "%-28s %s\n", k, values[k])
			}
			return nil
		},
	}
}
