package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/sw33tLie/baseline-lite/pkg/baseline"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Inspect the compiled feature index",
}

var indexStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print index build statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		idx, err := buildIndex()
		if err != nil {
			return err
		}
		st := idx.Stats()

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)
		fmt.Fprintf(w, "Features\t%d\t\n", st.Features)
		fmt.Fprintf(w, "Skipped records\t%d\t\n", st.Skipped)
		fmt.Fprintf(w, "Markup keys\t%d\t\n", st.MarkupKeys)
		fmt.Fprintf(w, "Script keys\t%d\t\n", st.ScriptKeys)
		fmt.Fprintf(w, "Core overrides\t%d\t\n", st.Overrides)
		return w.Flush()
	},
}

var indexDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print every key with its status and feature",
	RunE: func(cmd *cobra.Command, _ []string) error {
		namespace, _ := cmd.Flags().GetString("namespace")
		status, _ := cmd.Flags().GetString("status")

		var want baseline.Status
		if status != "" {
			st, err := baseline.ParseStatus(status)
			if err != nil {
				return err
			}
			want = st
		}

		idx, err := buildIndex()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		dump := func(ns string, keys []string, get func(string) (*baseline.Entry, bool)) {
			for _, k := range keys {
				e, _ := get(k)
				if want != 0 && e.Status != want {
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", ns, k, e.Status, e.FeatureID)
			}
		}
		switch namespace {
		case "markup":
			dump("markup", idx.MarkupKeys(), idx.Markup)
		case "script":
			dump("script", idx.ScriptKeys(), idx.Script)
		case "", "all":
			dump("markup", idx.MarkupKeys(), idx.Markup)
			dump("script", idx.ScriptKeys(), idx.Script)
		default:
			return fmt.Errorf("unknown namespace %q (want markup or script)", namespace)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.AddCommand(indexStatsCmd)
	indexCmd.AddCommand(indexDumpCmd)
	indexDumpCmd.Flags().String("namespace", "", "Only dump one namespace: markup, script")
	indexDumpCmd.Flags().String("status", "", "Only dump keys with this status: limited, newly, widely")
}
