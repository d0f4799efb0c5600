package validate

import (
	"fmt"

	"github.com/me/odmimport/internal/tree"
	"github.com/me/odmimport/pkg/model"
)

// checkVersions validates signal links carrying a "[ACC]" previous-version
// marker. Copies of the same link made by broadcast count as one use.
func checkVersions(t tree.Tree, study string) error {
	used := make(map[string]string)

	return t.Walk(func(n, parent *tree.Node) error {
		if !n.Tag.IsSignal() {
			return nil
		}
		_, prev := tree.SplitVersion(n.Value)
		if prev == "" {
			return nil
		}
		fail := func(format string, args ...any) error {
			return &model.ValidationError{
				Pass:    "versions",
				Tag:     string(n.Tag),
				Value:   n.Value,
				Message: fmt.Sprintf(format, args...),
			}
		}

		if !tree.IsAccession(study) {
			return fail("a new version of %s can only be added to a study given as an accession", prev)
		}
		if parent == nil || !parent.IsAccession() {
			return fail("a new version of %s can only be linked to %s given as an accession", prev, parentNoun(parent))
		}
		if other, ok := used[prev]; ok && other != n.Value {
			return fail("previous version %s is already replaced by %s", prev, other)
		}
		used[prev] = n.Value
		return nil
	})
}

func parentNoun(parent *tree.Node) string {
	if parent == nil {
		return "a parent"
	}
	return parent.Tag.Noun()
}
