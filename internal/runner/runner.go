// Package runner drives the merge engine over every security policy on a
// Prism Central, one policy at a time.
package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/micrictor/flowbase/internal/policy"
	"github.com/micrictor/flowbase/internal/prism"
	"github.com/micrictor/flowbase/internal/reconcile"
	"go.uber.org/multierr"
)

type Updater interface {
	Update(ctx context.Context, kind, uuid string, payload policy.Record) (string, error)
}

type TaskWaiter interface {
	AwaitTask(ctx context.Context, taskUUID string) (prism.TaskStatus, error)
}

type Deps struct {
	Lister Lister
	Update Updater
	Tasks  TaskWaiter
	Engine *reconcile.Engine
	Log    reconcile.Logger
}

type Options struct {
	PageSize int
	// DryRun logs each payload instead of submitting it.
	DryRun bool
}

// Summary counts what happened to each policy. Err holds every per-policy
// failure.
type Summary struct {
	Processed int
	Updated   int
	Planned   int
	Unchanged int
	Skipped   int
	Failed    int
	Err       error
}

type Runner struct {
	deps Deps
	opts Options
}

func New(deps Deps, opts Options) *Runner {
	return &Runner{deps: deps, opts: opts}
}

// Run reconciles every policy. Per-policy failures are logged and collected
// in Summary.Err; the returned error is only set when listing fails or ctx is
// done.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	var s Summary
	err := Paginate(ctx, r.deps.Lister, prism.KIND_SECURITY_RULE, r.opts.PageSize, func(rec policy.Record) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.Processed++
		if err := r.process(ctx, rec, &s); err != nil {
			s.Failed++
			s.Err = multierr.Append(s.Err, err)
		}
		return nil
	})
	if err != nil {
		return s, err
	}

	r.deps.Log.Infof("Processed %d policies: %d updated, %d planned, %d unchanged, %d skipped, %d failed.",
		s.Processed, s.Updated, s.Planned, s.Unchanged, s.Skipped, s.Failed)
	return s, nil
}

func (r *Runner) process(ctx context.Context, rec policy.Record, s *Summary) error {
	res, err := r.deps.Engine.Reconcile(rec)
	if err != nil {
		r.logFailure(err, res.Payload)
		return err
	}
	if res.Skipped {
		s.Skipped++
		return nil
	}
	if !res.Changed {
		r.deps.Log.Infof("Policy %s already carries every base rule.", res.Name)
		s.Unchanged++
		return nil
	}
	r.deps.Log.Infof("Policy %s: adding %d inbound and %d outbound rules.", res.Name, res.Inbound, res.Outbound)

	if r.opts.DryRun {
		r.deps.Log.Infof("Dry run, not submitting. Payload:\n%s", indent(res.Payload))
		s.Planned++
		return nil
	}

	task, err := r.deps.Update.Update(ctx, prism.KIND_SECURITY_RULE, res.UUID, res.Payload)
	if err != nil {
		subErr := &SubmissionError{Policy: res.Name, UUID: res.UUID, Err: err}
		r.logFailure(subErr, res.Payload)
		return subErr
	}

	st, err := r.deps.Tasks.AwaitTask(ctx, task)
	if err != nil {
		err = fmt.Errorf("policy %s: %w", res.Name, err)
		r.logFailure(err, res.Payload)
		return err
	}
	if st.State != prism.TaskSucceeded {
		taskErr := &TaskFailedError{Policy: res.Name, Task: task, State: st.State, Detail: st.Detail}
		r.logFailure(taskErr, res.Payload)
		return taskErr
	}

	r.deps.Log.Infof("Policy %s updated, task %s %s.", res.Name, task, st.State)
	s.Updated++
	return nil
}

func (r *Runner) logFailure(err error, payload policy.Record) {
	var shapeErr *policy.UnsupportedFilterShapeError
	if errors.As(err, &shapeErr) {
		r.deps.Log.Errorf("%v; multi-key category filters are not supported, update the policy by hand", err)
	} else {
		r.deps.Log.Errorf("%v", err)
	}
	if payload != nil {
		r.deps.Log.Errorf("Payload:\n%s", indent(payload))
	}
}

func indent(payload policy.Record) string {
	b, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Sprintf("<unprintable payload: %v>", err)
	}
	return string(b)
}
