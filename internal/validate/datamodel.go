package validate

import (
	"github.com/me/odmimport/internal/tree"
	"github.com/me/odmimport/pkg/model"
)

// checkDataModel requires that samples carry either only
// libraries/preparations or none at all, and that libraries/preparations
// are combined with expression data only.
func checkDataModel(t tree.Tree) error {
	var withGroups, withoutGroups *tree.Node

	for _, root := range t {
		groups, others := 0, 0
		for _, c := range root.Children {
			if c.Tag.IsGroup() {
				groups++
			} else {
				others++
			}
		}
		switch {
		case groups > 0 && others > 0:
			return &model.ValidationError{
				Pass:    "data-model",
				Tag:     string(root.Tag),
				Value:   root.Value,
				Message: "samples cannot be linked to both libraries/preparations and signal data directly",
			}
		case groups > 0:
			withGroups = root
		case others > 0:
			withoutGroups = root
		}
	}

	if withGroups != nil && withoutGroups != nil {
		return &model.ValidationError{
			Pass:    "data-model",
			Tag:     string(withoutGroups.Tag),
			Value:   withoutGroups.Value,
			Message: "signal data is linked directly to these samples while other samples use libraries/preparations",
		}
	}

	if withGroups == nil {
		return nil
	}
	for _, n := range t.Find(func(n *tree.Node) bool {
		return n.Tag == tree.TagVariant || n.Tag == tree.TagFlowCytometry
	}) {
		return &model.ValidationError{
			Pass:    "data-model",
			Tag:     string(n.Tag),
			Value:   n.Value,
			Message: "only expression data can be linked through libraries/preparations",
		}
	}
	return nil
}
