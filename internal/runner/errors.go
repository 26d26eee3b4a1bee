package runner

import "fmt"

// SubmissionError is a rejected or failed update call. Submissions are never
// retried.
type SubmissionError struct {
	Policy string
	UUID   string
	Err    error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("policy %s (%s): submit update: %v", e.Policy, e.UUID, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// TaskFailedError is an update task that finished in a state other than
// SUCCEEDED.
type TaskFailedError struct {
	Policy string
	Task   string
	State  string
	Detail string
}

func (e *TaskFailedError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("policy %s: task %s finished %s", e.Policy, e.Task, e.State)
	}
	return fmt.Sprintf("policy %s: task %s finished %s: %s", e.Policy, e.Task, e.State, e.Detail)
}
