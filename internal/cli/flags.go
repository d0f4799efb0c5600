package cli

import (
	"strings"

	"github.com/spf13/pflag"

	"github.com/me/odmimport/internal/tree"
	"github.com/me/odmimport/pkg/model"
)

// shortAliases maps the single-dash multi-letter aliases to long flags.
// pflag only knows one-letter shorthands, so aliases are rewritten before
// parsing.
var shortAliases = map[string]string{
	"-sa":   "--samples",
	"-lb":   "--libraries",
	"-pr":   "--preparations",
	"-e":    "--expression",
	"-v":    "--variant",
	"-fc":   "--flow-cytometry",
	"-em":   "--expression-metadata",
	"-vm":   "--variant-metadata",
	"-fcm":  "--flow-cytometry-metadata",
	"-mpf":  "--mapping-file",
	"-mpfa": "--mapping-file-accession",
	"-mpfm": "--mapping-file-metadata",
	"-nfa":  "--number-of-feature-attributes",
	"-dc":   "--data-class",
	"-ms":   "--measurement-separator",
	"-st":   "--study",
}

// ExpandAliases rewrites short aliases such as "-sa" or "-sa=x" into their
// long form. Arguments after "--" are left alone.
func ExpandAliases(args []string) []string {
	out := make([]string, 0, len(args))
	for i, arg := range args {
		if arg == "--" {
			return append(out, args[i:]...)
		}
		name, value, hasValue := strings.Cut(arg, "=")
		if long, ok := shortAliases[name]; ok {
			if hasValue {
				arg = long + "=" + value
			} else {
				arg = long
			}
		}
		out = append(out, arg)
	}
	return out
}

// isFlag reports whether s names a flag of fs or a short alias. pflag takes
// the next argument as the value of a flag given none, so "-sa -e" would
// otherwise record "--expression" as a samples link.
func isFlag(fs *pflag.FlagSet, s string) bool {
	if _, ok := shortAliases[s]; ok {
		return true
	}
	name, ok := strings.CutPrefix(s, "--")
	if !ok {
		return false
	}
	name, _, _ = strings.Cut(name, "=")
	if _, ok := tree.ParseTag(name); ok {
		return true
	}
	return fs != nil && fs.Lookup(name) != nil
}

// tokenValue is a pflag.Value that appends every occurrence of its flag to
// a shared token list. pflag calls Set in command-line order, so the list
// keeps the interleaving of different flags.
type tokenValue struct {
	tag    tree.Tag
	tokens *[]tree.Token
	fs     *pflag.FlagSet
	last   string
}

var _ pflag.Value = (*tokenValue)(nil)

func (v *tokenValue) String() string { return v.last }

func (v *tokenValue) Set(s string) error {
	if isFlag(v.fs, s) {
		return model.NewUsageError(string(v.tag), "", "a value is required, got flag %s", s)
	}
	v.last = s
	*v.tokens = append(*v.tokens, tree.Token{Tag: v.tag, Value: s})
	return nil
}

func (v *tokenValue) Type() string {
	switch v.tag {
	case tree.TagNumberOfFeatureAttributes:
		return "int"
	case tree.TagDataClass, tree.TagMeasurementSeparator:
		return "string"
	case tree.TagMappingFileAccession:
		return "accession"
	}
	return "link"
}

var tagUsage = map[tree.Tag]string{
	tree.TagSamples:                   "samples file link or sample group accession",
	tree.TagLibraries:                 "libraries file link or library group accession",
	tree.TagPreparations:              "preparations file link or preparation group accession",
	tree.TagExpression:                "expression data link, optionally suffixed with [ACC] of the previous version",
	tree.TagVariant:                   "variant data link, optionally suffixed with [ACC] of the previous version",
	tree.TagFlowCytometry:             "flow cytometry data link, optionally suffixed with [ACC] of the previous version",
	tree.TagExpressionMetadata:        "metadata link for the nearest preceding expression",
	tree.TagVariantMetadata:           "metadata link for the nearest preceding variant",
	tree.TagFlowCytometryMetadata:     "metadata link for the nearest preceding flow cytometry",
	tree.TagMappingFile:               "gene-transcript mapping file link",
	tree.TagMappingFileAccession:      "existing mapping file accession",
	tree.TagMappingFileMetadata:       "metadata link for the mapping file",
	tree.TagNumberOfFeatureAttributes: "number of feature attribute columns of the nearest preceding signal",
	tree.TagDataClass:                 "data class of the nearest preceding signal",
	tree.TagMeasurementSeparator:      "measurement separator of the nearest preceding signal",
}

// registerTokenFlags adds one repeatable flag per tag, all recording into
// tokens.
func registerTokenFlags(fs *pflag.FlagSet, tokens *[]tree.Token) {
	for _, tag := range tree.AllTags {
		fs.Var(&tokenValue{tag: tag, tokens: tokens, fs: fs}, tag.String(), tagUsage[tag])
	}
}
