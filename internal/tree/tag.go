package tree

// Tag is the role of a command-line token and of the node it produces.
type Tag string

const (
	TagSamples      Tag = "samples"
	TagLibraries    Tag = "libraries"
	TagPreparations Tag = "preparations"

	TagExpression    Tag = "expression"
	TagVariant       Tag = "variant"
	TagFlowCytometry Tag = "flow-cytometry"

	TagExpressionMetadata    Tag = "expression-metadata"
	TagVariantMetadata       Tag = "variant-metadata"
	TagFlowCytometryMetadata Tag = "flow-cytometry-metadata"

	TagMappingFile          Tag = "mapping-file"
	TagMappingFileAccession Tag = "mapping-file-accession"
	TagMappingFileMetadata  Tag = "mapping-file-metadata"

	TagNumberOfFeatureAttributes Tag = "number-of-feature-attributes"
	TagDataClass                 Tag = "data-class"
	TagMeasurementSeparator      Tag = "measurement-separator"
)

// AllTags lists every tag accepted on the command line, in help order.
var AllTags = []Tag{
	TagSamples,
	TagLibraries,
	TagPreparations,
	TagExpression,
	TagVariant,
	TagFlowCytometry,
	TagExpressionMetadata,
	TagVariantMetadata,
	TagFlowCytometryMetadata,
	TagMappingFile,
	TagMappingFileAccession,
	TagMappingFileMetadata,
	TagNumberOfFeatureAttributes,
	TagDataClass,
	TagMeasurementSeparator,
}

// String returns the tag name.
func (t Tag) String() string {
	return string(t)
}

// IsGroup reports whether t is an intermediate library/preparation tag.
func (t Tag) IsGroup() bool {
	return t == TagLibraries || t == TagPreparations
}

// IsSignal reports whether t carries measurement data.
func (t Tag) IsSignal() bool {
	switch t {
	case TagExpression, TagVariant, TagFlowCytometry:
		return true
	}
	return false
}

// IsMappingFamily reports whether t is one of the mapping-file forms that
// normalization merges into a single node.
func (t Tag) IsMappingFamily() bool {
	switch t {
	case TagMappingFile, TagMappingFileAccession, TagMappingFileMetadata:
		return true
	}
	return false
}

// IsScalar reports whether t is a scalar attribute of a signal node.
func (t Tag) IsScalar() bool {
	switch t {
	case TagNumberOfFeatureAttributes, TagDataClass, TagMeasurementSeparator:
		return true
	}
	return false
}

// MetadataBase returns the signal tag a *-metadata tag attaches to.
func (t Tag) MetadataBase() (Tag, bool) {
	switch t {
	case TagExpressionMetadata:
		return TagExpression, true
	case TagVariantMetadata:
		return TagVariant, true
	case TagFlowCytometryMetadata:
		return TagFlowCytometry, true
	}
	return "", false
}

// Noun is the plural, human-readable name used in operator messages.
func (t Tag) Noun() string {
	switch t {
	case TagFlowCytometry:
		return "flow cytometry"
	case TagMappingFile, TagMappingFileAccession:
		return "mapping file"
	}
	return string(t)
}

// Singular is the name used in "<singular> group accession is ..." messages.
func (t Tag) Singular() string {
	switch t {
	case TagSamples:
		return "sample"
	case TagLibraries:
		return "library"
	case TagPreparations:
		return "preparation"
	case TagFlowCytometry:
		return "flow cytometry"
	case TagMappingFile, TagMappingFileAccession:
		return "mapping file"
	}
	return string(t)
}

// ParseTag converts a flag name to a Tag.
func ParseTag(s string) (Tag, bool) {
	for _, t := range AllTags {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}
