package prism

import (
	"errors"
	"fmt"

	"github.com/micrictor/flowbase/internal/policy"
)

const (
	KIND_SECURITY_RULE = "network_security_rule"
	KIND_SERVICE_GROUP = "service_group"
	KIND_ADDRESS_GROUP = "address_group"
)

const (
	TaskQueued    = "QUEUED"
	TaskRunning   = "RUNNING"
	TaskSucceeded = "SUCCEEDED"
	TaskFailed    = "FAILED"
	TaskAborted   = "ABORTED"
)

// ErrTaskTimeout is returned by AwaitTask when the task is still running
// after the last poll.
var ErrTaskTimeout = errors.New("task did not reach a terminal state")

// Page is one response of a v3 list call.
type Page struct {
	Entities     []policy.Record
	TotalMatches int
}

type TaskStatus struct {
	State   string
	Percent int
	Detail  string
}

// Terminal reports whether Prism will not change the task state again.
func (s TaskStatus) Terminal() bool {
	switch s.State {
	case TaskSucceeded, TaskFailed, TaskAborted:
		return true
	}
	return false
}

// StatusError is a non-2xx response. Body is kept verbatim since Prism puts
// the useful part of the failure in message_list.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status code %d, response: %s", e.Method, e.Path, e.Code, e.Body)
}

// Unauthorized reports a credential failure, which retrying cannot fix.
func (e *StatusError) Unauthorized() bool {
	return e.Code == 401 || e.Code == 403
}
