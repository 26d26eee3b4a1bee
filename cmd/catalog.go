package cmd

import (
	"fmt"
	"log"

	"github.com/micrictor/flowbase/internal/catalog"
	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Base rule catalog tools",
}

var catalogValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a base rule catalog and summarize it",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		log.SetPrefix("[flowbase] ")

		rules, err := catalog.LoadFile(args[0])
		if err != nil {
			log.Fatal(err)
		}
		out := cmd.OutOrStdout()
		for _, r := range rules.Rules {
			fmt.Fprintf(out, "%-32s inbound=%d outbound=%d\n", r.Name, len(r.Inbound), len(r.Outbound))
		}
		inbound, outbound := rules.Count()
		fmt.Fprintf(out, "%d rules, %d inbound and %d outbound elements\n", len(rules.Rules), inbound, outbound)
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogValidateCmd)
}
