package model

import (
	"encoding/json"
	"os"
	"time"

	"github.com/YuminosukeSato/churnlab/pkg/errors"
)

// Snapshot is the human-readable record written next to a persisted model:
// which family was trained, with which parameters, on which features, and how
// it scored on the held-out split.
type Snapshot struct {
	ModelType string                 `json:"model_type"`
	RunID     string                 `json:"run_id,omitempty"`
	TrainedAt time.Time              `json:"trained_at"`
	Params    map[string]interface{} `json:"params"`
	Features  []string               `json:"features"`
	Metrics   map[string]float64     `json:"metrics,omitempty"`
}

// Validate checks the fields every snapshot must carry.
func (s *Snapshot) Validate() error {
	if s.ModelType == "" {
		return errors.NewValidationError("model_type", "is required", s.ModelType)
	}
	if len(s.Features) == 0 {
		return errors.NewValidationError("features", "must not be empty", len(s.Features))
	}
	return nil
}

// ToJSON serializes the snapshot with indentation.
func (s *Snapshot) ToJSON() ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return json.MarshalIndent(s, "", "  ")
}

// FromJSON parses a snapshot.
func (s *Snapshot) FromJSON(data []byte) error {
	if err := json.Unmarshal(data, s); err != nil {
		return errors.Wrap(err, "decode snapshot")
	}
	return s.Validate()
}

// WriteFile writes the snapshot as JSON.
func (s *Snapshot) WriteFile(path string) error {
	data, err := s.ToJSON()
	if err != nil {
		return err
	}
	return errors.Wrapf(os.WriteFile(path, data, 0o644), "write %s", path)
}
