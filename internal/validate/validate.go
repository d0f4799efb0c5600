// Package validate checks and normalizes a freshly built import tree before
// anything is sent to the remote service.
package validate

import (
	"log/slog"

	"github.com/me/odmimport/internal/tree"
)

// Options controls the optional normalization passes.
type Options struct {
	// Study is the --study value, a link or an accession.
	Study string

	// LinkAll copies every signal onto every sample or library/preparation
	// before the remaining passes run.
	LinkAll bool
}

// Normalizer runs the fixed pass pipeline over a tree.
type Normalizer struct {
	logger *slog.Logger
}

// NewNormalizer creates a Normalizer with the given logger.
func NewNormalizer(logger *slog.Logger) *Normalizer {
	return &Normalizer{logger: logger.With("component", "normalizer")}
}

// Normalize validates t and returns the normalized tree. Passes run in
// order and the first failure is returned as a *model.ValidationError.
func (v *Normalizer) Normalize(t tree.Tree, opts Options) (tree.Tree, error) {
	v.logger.Debug("pass", "name", "duplicates")
	if err := checkDuplicates(t); err != nil {
		return nil, err
	}

	if opts.LinkAll {
		v.logger.Debug("pass", "name", "broadcast")
		var err error
		if t, err = broadcast(t); err != nil {
			return nil, err
		}
	}

	v.logger.Debug("pass", "name", "mapping-files")
	if err := mergeMappingFiles(t); err != nil {
		return nil, err
	}

	v.logger.Debug("pass", "name", "data-model")
	if err := checkDataModel(t); err != nil {
		return nil, err
	}

	v.logger.Debug("pass", "name", "versions")
	if err := checkVersions(t, opts.Study); err != nil {
		return nil, err
	}
	return t, nil
}
