package tree

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// document is the structured-text form of a run.
type document struct {
	Study   string `yaml:"study"`
	Samples Tree   `yaml:"samples"`
}

// Dump writes the study and tree as YAML.
func Dump(w io.Writer, study string, t Tree) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(document{Study: study, Samples: t}); err != nil {
		return fmt.Errorf("encode tree: %w", err)
	}
	return enc.Close()
}

// Load reads a tree previously written by Dump.
func Load(r io.Reader) (study string, t Tree, err error) {
	var doc document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return "", nil, fmt.Errorf("decode tree: %w", err)
	}
	return doc.Study, doc.Samples, nil
}
