package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/sw33tLie/baseline-lite/pkg/baseline"
	"github.com/sw33tLie/baseline-lite/pkg/report"
	"github.com/sw33tLie/baseline-lite/pkg/scanner"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <token>",
	Short: "Show the Baseline status of a CSS or HTML token, or a script member path",
	Example: `  baseline-lite lookup gap
  baseline-lite lookup balance --line "h1 { text-wrap: balance; }"
  baseline-lite lookup --script navigator.clipboard.readText`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		line, _ := cmd.Flags().GetString("line")
		script, _ := cmd.Flags().GetBool("script")
		asJSON, _ := cmd.Flags().GetBool("json")

		idx, err := buildIndex()
		if err != nil {
			return err
		}

		var (
			e   *baseline.Entry
			key string
			ok  bool
		)
		if script {
			e, key, ok = scanner.ResolveScript(idx, args[0])
		} else {
			e, key, ok = scanner.Resolve(idx, args[0], line)
		}
		if !ok {
			return fmt.Errorf("no Baseline data for %q", args[0])
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]interface{}{"key": key, "entry": e})
		}
		fmt.Printf("%s\n\n%s", key, report.Hover(e, args[0]))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lookupCmd)
	lookupCmd.Flags().String("line", "", "Line the token appears on, used to resolve property values")
	lookupCmd.Flags().Bool("script", false, "Look the token up as a script member path")
	lookupCmd.Flags().Bool("json", false, "Print the index entry as JSON")
}
