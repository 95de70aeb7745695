// Package dataset loads concept datasets from disk and reloads them when
// the file changes.
package dataset

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/felixgeelhaar/concept-analytics/domain/concept"
	"github.com/felixgeelhaar/concept-analytics/infrastructure/logging"
)

// LoadFile reads and parses a YAML or JSON dataset file.
func LoadFile(path string) (concept.Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return concept.Dataset{}, fmt.Errorf("read dataset: %w", err)
	}
	return concept.ParseDataset(data)
}

// Seed applies the dataset at path to store, or the bundled sample dataset
// when path is empty.
func Seed(ctx context.Context, store concept.Store, path string, now time.Time) error {
	ds := concept.SampleDataset()
	source := "sample"
	if path != "" {
		var err error
		if ds, err = LoadFile(path); err != nil {
			return err
		}
		source = path
	}
	if err := ds.Apply(ctx, store, now); err != nil {
		return fmt.Errorf("seed %s: %w", source, err)
	}

	logging.Info().
		Add(logging.Component("dataset")).
		Add(logging.Path(source)).
		Add(logging.Count("concepts", len(ds.Concepts))).
		Add(logging.Count("relationships", len(ds.Relationships))).
		Msg("dataset loaded")
	return nil
}
