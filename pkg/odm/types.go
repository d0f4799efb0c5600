package odm

import (
	"encoding/json"

	"github.com/me/odmimport/pkg/model"
)

// ImportKind selects the import job endpoint.
type ImportKind string

const (
	KindStudy         ImportKind = "study"
	KindSamples       ImportKind = "samples"
	KindLibraries     ImportKind = "libraries"
	KindPreparations  ImportKind = "preparations"
	KindExpression    ImportKind = "expression"
	KindVariant       ImportKind = "variant"
	KindFlowCytometry ImportKind = "flow-cytometry"
)

// ImportRequest is the payload of an import job submission.
type ImportRequest struct {
	DataLink                  string `json:"dataLink,omitempty"`
	MetadataLink              string `json:"metadataLink,omitempty"`
	TemplateID                string `json:"templateId,omitempty"`
	Source                    Source `json:"source,omitempty"`
	PreviousVersion           string `json:"previousVersion,omitempty"`
	NumberOfFeatureAttributes *int   `json:"numberOfFeatureAttributes,omitempty"`
	DataClass                 string `json:"dataClass,omitempty"`
	MeasurementSeparator      string `json:"measurementSeparator,omitempty"`
}

// Submission is the outcome of submitting an import job.
type Submission struct {
	JobID int64

	// Existing is true when the service reported an identical job for the
	// same link and JobID identifies that earlier job.
	Existing bool
}

// JobResult is the result payload of a completed job.
type JobResult struct {
	Accession      string `json:"accession,omitempty"`
	GroupAccession string `json:"groupAccession,omitempty"`
}

// JobOutput is the body of the job output endpoint.
type JobOutput struct {
	Status model.JobStatus `json:"status"`
	Result *JobResult      `json:"result,omitempty"`

	// Raw is the undecoded response body, kept as the diagnostic for
	// failed jobs.
	Raw json.RawMessage `json:"-"`
}

// Template is one entry of the template list.
type Template struct {
	Accession string `json:"accession"`
	Name      string `json:"name,omitempty"`
	Default   bool   `json:"default"`
}

// MappingFileRequest is the payload of a synchronous mapping file upload.
type MappingFileRequest struct {
	DataLink     string `json:"dataLink"`
	MetadataLink string `json:"metadataLink,omitempty"`
	Source       Source `json:"source,omitempty"`
}

// Link returns the data link, or the metadata link for metadata-only
// imports such as samples.
func (r ImportRequest) Link() string {
	if r.DataLink != "" {
		return r.DataLink
	}
	return r.MetadataLink
}
