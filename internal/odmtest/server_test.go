package odmtest

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/me/odmimport/pkg/model"
	"github.com/me/odmimport/pkg/odm"
)

func newClient(t *testing.T, opts Options) (*Server, *odm.Client) {
	t.Helper()
	s, ts := Start(t, opts)
	return s, odm.NewClient(odm.DefaultConfig().WithBaseURL(ts.URL).WithToken(opts.Token), nil)
}

func TestImportJobLifecycle(t *testing.T) {
	_, c := newClient(t, Options{PollsBeforeDone: 2})
	ctx := context.Background()

	sub, err := c.SubmitImport(ctx, odm.KindStudy, odm.ImportRequest{DataLink: "s3://b/study.tsv", TemplateID: "TPL1"})
	if err != nil {
		t.Fatalf("SubmitImport: %v", err)
	}

	var statuses []model.JobStatus
	for range 3 {
		st, err := c.JobStatus(ctx, sub.JobID)
		if err != nil {
			t.Fatalf("JobStatus: %v", err)
		}
		statuses = append(statuses, st)
	}
	want := []model.JobStatus{model.JobStatusRunning, model.JobStatusRunning, model.JobStatusCompleted}
	for i := range want {
		if statuses[i] != want[i] {
			t.Fatalf("statuses = %v, want %v", statuses, want)
		}
	}

	out, err := c.JobOutput(ctx, sub.JobID)
	if err != nil {
		t.Fatalf("JobOutput: %v", err)
	}
	if out.Result == nil || out.Result.Accession != "STUDY1" {
		t.Errorf("unexpected output %s", out.Raw)
	}
	if err := c.Study(ctx, "STUDY1"); err != nil {
		t.Errorf("Study: %v", err)
	}
}

func TestSubmitTwiceReportsExistingJob(t *testing.T) {
	_, c := newClient(t, Options{})
	ctx := context.Background()
	req := odm.ImportRequest{DataLink: "s3://b/samples.tsv"}

	first, err := c.SubmitImport(ctx, odm.KindSamples, req)
	if err != nil {
		t.Fatalf("SubmitImport: %v", err)
	}
	second, err := c.SubmitImport(ctx, odm.KindSamples, req)
	if err != nil {
		t.Fatalf("SubmitImport again: %v", err)
	}
	if !second.Existing || second.JobID != first.JobID {
		t.Errorf("second submission = %+v, want existing job %d", second, first.JobID)
	}
}

func TestFailedImport(t *testing.T) {
	_, c := newClient(t, Options{FailImports: map[string]string{"s3://b/bad.tsv": "missing column"}})
	ctx := context.Background()

	sub, err := c.SubmitImport(ctx, odm.KindSamples, odm.ImportRequest{DataLink: "s3://b/bad.tsv"})
	if err != nil {
		t.Fatalf("SubmitImport: %v", err)
	}
	out, err := c.JobOutput(ctx, sub.JobID)
	if err != nil {
		t.Fatalf("JobOutput: %v", err)
	}
	if out.Status != model.JobStatusFailed {
		t.Errorf("status = %s, want FAILED", out.Status)
	}
}

func TestLinksAndStudyGroups(t *testing.T) {
	s, c := newClient(t, Options{Unregistered: map[string]bool{"LIB2": true}})
	ctx := context.Background()

	for _, e := range []struct{ kind, acc string }{
		{"study", "STUDY1"}, {"samples", "SAMP1"}, {"libraries", "LIB1"}, {"libraries", "LIB2"},
	} {
		if err := s.AddEntity(e.kind, e.acc); err != nil {
			t.Fatalf("AddEntity: %v", err)
		}
	}

	for _, l := range []Link{
		{"samples_to_study", "SAMP1", "STUDY1"},
		{"libraries_to_samples", "LIB1", "SAMP1"},
		{"libraries_to_samples", "LIB2", "SAMP1"},
		{"libraries_to_samples", "LIB1", "SAMP1"},
	} {
		if err := c.Link(ctx, l.Relation, l.Source, l.Target); err != nil {
			t.Fatalf("Link %+v: %v", l, err)
		}
	}

	links, err := s.Links()
	if err != nil {
		t.Fatalf("Links: %v", err)
	}
	if len(links) != 3 {
		t.Errorf("got %d links, want 3 (repeated link is a no-op)", len(links))
	}

	groups, err := c.StudyGroups(ctx, "STUDY1", odm.KindLibraries)
	if err != nil {
		t.Fatalf("StudyGroups: %v", err)
	}
	if len(groups) != 1 || groups[0] != "LIB1" {
		t.Errorf("groups = %v, want [LIB1]", groups)
	}

	err = c.Link(ctx, "samples_to_study", "SAMP9", "STUDY1")
	if !odm.IsNotFound(err) {
		t.Errorf("expected not found for unknown source, got %v", err)
	}
}

func TestFailRelations(t *testing.T) {
	_, c := newClient(t, Options{FailRelations: map[string]string{"samples_to_study": "connection reset by peer"}})

	err := c.Link(context.Background(), "samples_to_study", "SAMP1", "STUDY1")
	var httpErr *odm.HTTPError
	if err == nil {
		t.Fatal("expected error")
	}
	if got := odm.Diagnostic(err); got != "connection reset by peer" {
		t.Errorf("Diagnostic = %q", got)
	}
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected 500, got %v", err)
	}
}

func TestTokenRequired(t *testing.T) {
	_, ts := Start(t, Options{Token: "secret"})
	c := odm.NewClient(odm.DefaultConfig().WithBaseURL(ts.URL), nil)

	_, err := c.Templates(context.Background())
	var httpErr *odm.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestMappingFileUpload(t *testing.T) {
	_, c := newClient(t, Options{})
	ctx := context.Background()

	req := odm.MappingFileRequest{DataLink: "s3://b/map.gtf"}
	first, err := c.UploadMappingFile(ctx, req)
	if err != nil {
		t.Fatalf("UploadMappingFile: %v", err)
	}
	second, err := c.UploadMappingFile(ctx, req)
	if err != nil {
		t.Fatalf("UploadMappingFile again: %v", err)
	}
	if first != "MAP1" || second != first {
		t.Errorf("accessions = %q, %q, want MAP1 twice", first, second)
	}

	tpl, err := c.DefaultTemplate(ctx)
	if err != nil || tpl != "TPL1" {
		t.Errorf("DefaultTemplate = %q, %v", tpl, err)
	}
}
