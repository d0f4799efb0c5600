package odm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/me/odmimport/pkg/model"
)

// SubmitImport starts an import job of the given kind. A 409 response that
// names an existing job is reported as a Submission with Existing set.
func (c *Client) SubmitImport(ctx context.Context, kind ImportKind, req ImportRequest) (Submission, error) {
	var resp struct {
		JobExecID int64 `json:"jobExecId"`
	}
	err := c.post(ctx, "/api/v1/jobs/import/"+url.PathEscape(string(kind)), req, &resp)
	if err != nil {
		if id, ok := ExistingJobID(err); ok {
			c.logger.Info("import job already exists", "kind", kind, "job_id", id)
			return Submission{JobID: id, Existing: true}, nil
		}
		return Submission{}, err
	}
	if resp.JobExecID == 0 {
		return Submission{}, fmt.Errorf("submit %s import: response has no jobExecId", kind)
	}
	c.logger.Debug("import job submitted", "kind", kind, "job_id", resp.JobExecID)
	return Submission{JobID: resp.JobExecID}, nil
}

// JobStatus returns the current status of a job.
func (c *Client) JobStatus(ctx context.Context, id int64) (model.JobStatus, error) {
	var resp struct {
		Status model.JobStatus `json:"status"`
	}
	if err := c.get(ctx, jobPath(id, "info"), &resp); err != nil {
		return "", err
	}
	if resp.Status == "" {
		return "", fmt.Errorf("job %d: info has no status", id)
	}
	return resp.Status, nil
}

// JobOutput fetches the output of a finished job. The undecoded body is
// kept in Raw.
func (c *Client) JobOutput(ctx context.Context, id int64) (*JobOutput, error) {
	var raw json.RawMessage
	if err := c.get(ctx, jobPath(id, "output"), &raw); err != nil {
		return nil, err
	}
	var out JobOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("job %d: parse output: %w", id, err)
	}
	out.Raw = raw
	return &out, nil
}

func jobPath(id int64, op string) string {
	return "/api/v1/jobs/" + strconv.FormatInt(id, 10) + "/" + op
}

// Link relates two existing entities through the named relation.
func (c *Client) Link(ctx context.Context, relation, sourceID, targetID string) error {
	path := fmt.Sprintf("/api/v1/links/%s/%s/to/%s",
		url.PathEscape(relation), url.PathEscape(sourceID), url.PathEscape(targetID))
	return c.do(ctx, http.MethodPost, path, nil, nil)
}
