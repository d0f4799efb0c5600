package model

// JobStatus is the status string reported by the remote job service.
type JobStatus string

const (
	JobStatusStarting  JobStatus = "STARTING"
	JobStatusStarted   JobStatus = "STARTED"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusCompleted JobStatus = "COMPLETED"
	JobStatusFailed    JobStatus = "FAILED"
	JobStatusStopped   JobStatus = "STOPPED"
	JobStatusAbandoned JobStatus = "ABANDONED"
)

// String returns the string representation of the job status.
func (s JobStatus) String() string {
	return string(s)
}

// IsTerminal returns true unless the job is still starting or running.
// Any status the service reports outside that set is final.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusStarting, JobStatusStarted, JobStatusRunning:
		return false
	}
	return true
}

// IsSuccess returns true for COMPLETED.
func (s JobStatus) IsSuccess() bool {
	return s == JobStatusCompleted
}
