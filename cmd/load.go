package cmd

import (
	"fmt"

	"github.com/spf13/viper"
	"github.com/sw33tLie/baseline-lite/internal/utils"
	"github.com/sw33tLie/baseline-lite/pkg/dataset"
	"github.com/sw33tLie/baseline-lite/pkg/index"
	"github.com/sw33tLie/baseline-lite/pkg/report"
)

func datasetPaths() dataset.Paths {
	return dataset.Paths{
		Features: utils.ExpandPath(viper.GetString("dataset.features")),
		Compat:   utils.ExpandPath(viper.GetString("dataset.compat")),
	}
}

// buildIndex loads the dataset files and compiles a fresh index with the
// configured core properties.
func buildIndex() (*index.Index, error) {
	records, ds, err := dataset.Load(datasetPaths())
	if err != nil {
		return nil, err
	}
	if ds.Malformed > 0 {
		utils.Log.Debugf("Skipped %d malformed feature records", ds.Malformed)
	}

	idx := index.Build(records, viper.GetStringSlice("coreProperties"))
	st := idx.Stats()
	utils.Log.Debugf("Index built: %d features, %d markup keys, %d script keys, %d overrides",
		st.Features, st.MarkupKeys, st.ScriptKeys, st.Overrides)
	return idx, nil
}

func reportPolicy() (report.Policy, error) {
	sev, err := report.ParseSeverity(viper.GetString("severityForLimited"))
	if err != nil {
		return report.Policy{}, fmt.Errorf("severityForLimited: %w", err)
	}
	return report.Policy{Limited: sev}, nil
}
