// Package job runs one asynchronous import job on the remote service:
// submit, poll until a terminal status, then fetch the output.
package job

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/me/odmimport/pkg/model"
	"github.com/me/odmimport/pkg/odm"
)

// Defaults for the poll loop.
const (
	DefaultPollInterval  = 5 * time.Second
	DefaultTimeout       = 30 * time.Minute
	DefaultProgressAfter = 2 * time.Minute
	DefaultProgressEvery = time.Minute
)

// API is the subset of the ODM client the runner needs.
type API interface {
	SubmitImport(ctx context.Context, kind odm.ImportKind, req odm.ImportRequest) (odm.Submission, error)
	JobStatus(ctx context.Context, id int64) (model.JobStatus, error)
	JobOutput(ctx context.Context, id int64) (*odm.JobOutput, error)
}

// ProgressFunc is called while a job is still running after ProgressAfter.
type ProgressFunc func(kind odm.ImportKind, jobID int64, elapsed time.Duration)

// Result is the outcome of a completed job.
type Result struct {
	JobID int64

	// Existing is true when the service already had a job for the same
	// link and the result belongs to that earlier job.
	Existing bool

	Accession      string
	GroupAccession string
}

// ID returns the accession that identifies the imported entity: the study
// accession for study jobs, the group accession otherwise.
func (r *Result) ID(kind odm.ImportKind) string {
	if kind == odm.KindStudy {
		return r.Accession
	}
	return r.GroupAccession
}

// Runner submits import jobs and waits for them.
type Runner struct {
	api API

	PollInterval  time.Duration
	Timeout       time.Duration
	ProgressAfter time.Duration
	ProgressEvery time.Duration
	Progress      ProgressFunc

	logger *slog.Logger
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewRunner creates a Runner with default timings.
func NewRunner(api API, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{
		api:           api,
		PollInterval:  DefaultPollInterval,
		Timeout:       DefaultTimeout,
		ProgressAfter: DefaultProgressAfter,
		ProgressEvery: DefaultProgressEvery,
		logger:        logger.With("component", "job-runner"),
		now:           time.Now,
		sleep:         sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Run submits an import job and blocks until it reaches a terminal status
// or the timeout elapses. Only COMPLETED yields a Result.
func (r *Runner) Run(ctx context.Context, kind odm.ImportKind, req odm.ImportRequest) (*Result, error) {
	op := fmt.Sprintf("import of %s %s", kind, req.Link())

	sub, err := r.api.SubmitImport(ctx, kind, req)
	if err != nil {
		return nil, &model.RemoteError{Op: op, Diagnostic: odm.Diagnostic(err), Err: err}
	}
	op = fmt.Sprintf("%s (job %d)", op, sub.JobID)

	r.logger.Debug("waiting for job", "kind", kind, "job_id", sub.JobID, "existing", sub.Existing)

	status, err := r.wait(ctx, kind, sub.JobID)
	if err != nil {
		return nil, &model.RemoteError{Op: op, Err: err}
	}

	out, err := r.api.JobOutput(ctx, sub.JobID)
	if err != nil {
		return nil, &model.RemoteError{Op: op, Diagnostic: odm.Diagnostic(err), Err: err}
	}
	if out.Status != "" {
		status = out.Status
	}
	if !status.IsSuccess() {
		return nil, &model.RemoteError{
			Op:         op,
			Diagnostic: string(out.Raw),
			Err:        fmt.Errorf("job finished with status %s", status),
		}
	}

	res := &Result{JobID: sub.JobID, Existing: sub.Existing}
	if out.Result != nil {
		res.Accession = out.Result.Accession
		res.GroupAccession = out.Result.GroupAccession
	}
	if res.ID(kind) == "" {
		return nil, &model.RemoteError{
			Op:         op,
			Diagnostic: string(out.Raw),
			Err:        fmt.Errorf("job output has no accession"),
		}
	}

	r.logger.Info("job completed", "kind", kind, "job_id", sub.JobID, "accession", res.ID(kind))
	return res, nil
}

// wait polls the job status at a fixed interval until it is terminal.
func (r *Runner) wait(ctx context.Context, kind odm.ImportKind, id int64) (model.JobStatus, error) {
	start := r.now()
	deadline := start.Add(r.Timeout)
	nextProgress := start.Add(r.ProgressAfter)

	for {
		status, err := r.api.JobStatus(ctx, id)
		if err != nil {
			return "", fmt.Errorf("poll job status: %w", err)
		}
		if status.IsTerminal() {
			return status, nil
		}

		now := r.now()
		if now.After(deadline) {
			return "", fmt.Errorf("job ran %d seconds with no result", int(r.Timeout.Seconds()))
		}
		if r.Progress != nil && !now.Before(nextProgress) {
			r.Progress(kind, id, now.Sub(start))
			nextProgress = nextProgress.Add(r.ProgressEvery)
		}

		if err := r.sleep(ctx, r.PollInterval); err != nil {
			return "", err
		}
	}
}
