package dataset

import (
	"errors"
	"fmt"
	"os"

	"github.com/sw33tLie/baseline-lite/pkg/baseline"
)

// ErrNoDataset is returned when the feature file is missing.
var ErrNoDataset = errors.New("feature dataset not found, run `baseline-lite fetch` first")

// Paths locates the two dataset files on disk.
type Paths struct {
	Features string
	Compat   string
}

// Load reads and parses the dataset files. A missing compat file only
// disables explicit MDN URLs; a missing feature file is an error.
func Load(p Paths) ([]baseline.FeatureRecord, Stats, error) {
	features, err := os.ReadFile(p.Features)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, Stats{}, fmt.Errorf("%w: %s", ErrNoDataset, p.Features)
		}
		return nil, Stats{}, fmt.Errorf("reading feature dataset: %w", err)
	}

	var compat []byte
	if p.Compat != "" {
		compat, err = os.ReadFile(p.Compat)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, Stats{}, fmt.Errorf("reading compat dataset: %w", err)
		}
	}

	return Parse(features, compat)
}
