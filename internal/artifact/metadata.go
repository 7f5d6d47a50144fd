// Package artifact loads the trained model bundle the serving engine consumes:
// a metadata file fixing the feature order, class list, ensemble weight and
// confidence thresholds, plus two opaque probability scorers.
package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Standard file names inside a model directory.
const (
	MetadataFile  = "metadata.json"
	PrimaryFile   = "model_a.json"
	SecondaryFile = "model_b.json"
)

// Metadata is the typed model contract. Every field is required; loading
// fails fast rather than limping along with a partial configuration.
type Metadata struct {
	Features             []string           `json:"features"`
	Classes              []string           `json:"classes"`
	EnsembleWeight       float64            `json:"ensemble_weight"`
	ConfidenceThresholds map[string]float64 `json:"confidence_thresholds"`
}

// Validate checks the metadata for completeness and internal consistency.
func (m *Metadata) Validate() error {
	if len(m.Features) == 0 {
		return fmt.Errorf("metadata: features list is empty")
	}
	if len(m.Classes) == 0 {
		return fmt.Errorf("metadata: classes list is empty")
	}
	if m.EnsembleWeight < 0 || m.EnsembleWeight > 1 {
		return fmt.Errorf("metadata: ensemble_weight %v outside [0,1]", m.EnsembleWeight)
	}
	for _, class := range m.Classes {
		if _, ok := m.ConfidenceThresholds[class]; !ok {
			return fmt.Errorf("metadata: no confidence threshold for class %q", class)
		}
	}
	return nil
}

// LoadMetadata reads and validates a metadata file.
func LoadMetadata(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading metadata: %w", err)
	}

	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing metadata: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// Bundle is the full set of loaded model state. It is constructed once at
// process start and passed by reference into every request handler; it is
// read-only after load and safe for concurrent use.
type Bundle struct {
	Metadata  *Metadata
	Primary   Scorer
	Secondary Scorer
}

// LoadBundle loads metadata and both scorers from a model directory.
func LoadBundle(dir string) (*Bundle, error) {
	meta, err := LoadMetadata(filepath.Join(dir, MetadataFile))
	if err != nil {
		return nil, err
	}

	primary, err := LoadScorer(filepath.Join(dir, PrimaryFile), len(meta.Features), len(meta.Classes))
	if err != nil {
		return nil, fmt.Errorf("loading primary model: %w", err)
	}

	secondary, err := LoadScorer(filepath.Join(dir, SecondaryFile), len(meta.Features), len(meta.Classes))
	if err != nil {
		return nil, fmt.Errorf("loading secondary model: %w", err)
	}

	return &Bundle{Metadata: meta, Primary: primary, Secondary: secondary}, nil
}
