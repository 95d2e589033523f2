package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/sw33tLie/baseline-lite/internal/utils"
	"github.com/sw33tLie/baseline-lite/pkg/whttp"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the web-features and browser-compat-data datasets",
	RunE: func(cmd *cobra.Command, _ []string) error {
		proxy, _ := rootCmd.PersistentFlags().GetString("proxy")
		retries, _ := cmd.Flags().GetInt("retries")
		skipCompat, _ := cmd.Flags().GetBool("skip-compat")

		client, err := whttp.NewClient(proxy, retries)
		if err != nil {
			return err
		}

		paths := datasetPaths()
		downloads := []struct{ name, url, dest string }{
			{"features", viper.GetString("dataset.featuresUrl"), paths.Features},
		}
		if !skipCompat {
			downloads = append(downloads, struct{ name, url, dest string }{"compat", viper.GetString("dataset.compatUrl"), paths.Compat})
		}

		for _, d := range downloads {
			utils.Log.Infof("Downloading %s dataset from %s", d.name, d.url)
			n, err := whttp.Download(context.Background(), client, d.url, d.dest)
			if err != nil {
				return fmt.Errorf("%s dataset: %w", d.name, err)
			}
			utils.Log.Infof("Wrote %s (%d bytes)", d.dest, n)
		}

		idx, err := buildIndex()
		if err != nil {
			return fmt.Errorf("downloaded dataset does not load: %w", err)
		}
		st := idx.Stats()
		utils.Log.Infof("Dataset ready: %d features, %d markup keys, %d script keys", st.Features, st.MarkupKeys, st.ScriptKeys)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().Int("retries", 3, "Retries per download")
	fetchCmd.Flags().Bool("skip-compat", false, "Only download the feature dataset (MDN links fall back to search URLs)")
}
