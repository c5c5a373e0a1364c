package model

import (
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/churnlab/pkg/errors"
)

// StateManager tracks whether a model is fitted and the shape it was fitted on.
// Models embed it by pointer; its exported fields survive gob encoding.
type StateManager struct {
	Fitted    bool
	NFeatures int
	NSamples  int

	mu sync.RWMutex
}

// NewStateManager creates an unfitted state.
func NewStateManager() *StateManager {
	return &StateManager{}
}

// IsFitted returns whether the model has been fitted.
func (s *StateManager) IsFitted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Fitted
}

// SetFitted marks the model as fitted on nSamples × nFeatures data.
func (s *StateManager) SetFitted(nSamples, nFeatures int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fitted = true
	s.NSamples = nSamples
	s.NFeatures = nFeatures
}

// Reset clears the fitted state before a refit.
func (s *StateManager) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fitted = false
	s.NFeatures = 0
	s.NSamples = 0
}

// GetDimensions returns the feature and sample counts seen during fitting.
func (s *StateManager) GetDimensions() (nFeatures, nSamples int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.NFeatures, s.NSamples
}

// RequireFitted returns a NotFittedError naming model and method when unfitted.
func (s *StateManager) RequireFitted(modelName, method string) error {
	if !s.IsFitted() {
		return errors.NewNotFittedError(modelName, method)
	}
	return nil
}

// CheckInput verifies that X is fitted-compatible: non-empty and with the
// feature count seen in Fit.
func (s *StateManager) CheckInput(modelName, method string, X mat.Matrix) error {
	if err := s.RequireFitted(modelName, method); err != nil {
		return err
	}
	rows, cols := X.Dims()
	if rows == 0 {
		return errors.Wrapf(errors.ErrEmptyData, "%s.%s", modelName, method)
	}
	nFeatures, _ := s.GetDimensions()
	if cols != nFeatures {
		return errors.NewDimensionError(modelName+"."+method, nFeatures, cols, 1)
	}
	return nil
}
