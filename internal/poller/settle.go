package poller

import (
	"context"
	"errors"
	"fmt"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
)

// Task is one sub-request of a poll cycle.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Fetch builds a task that stores fn's result in dst only when fn succeeds,
// leaving dst at its default otherwise.
func Fetch[V any](name string, dst *V, fn func(ctx context.Context) (V, error)) Task {
	return Task{
		Name: name,
		Run: func(ctx context.Context) error {
			v, err := fn(ctx)
			if err != nil {
				return err
			}
			*dst = v
			return nil
		},
	}
}

// TaskError records a failed sub-request.
type TaskError struct {
	Task string
	Err  error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("%s: %v", e.Task, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// Failures lists the sub-requests that failed in one Settle call.
type Failures []*TaskError

// Err joins the failures, or returns nil when there are none.
func (f Failures) Err() error {
	if len(f) == 0 {
		return nil
	}
	errs := make([]error, len(f))
	for i, e := range f {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// Names returns the names of the failed tasks.
func (f Failures) Names() []string {
	names := make([]string, len(f))
	for i, e := range f {
		names[i] = e.Task
	}
	return names
}

// Settle runs all tasks concurrently and waits for every one of them. A
// failing or panicking task never affects the others; its error is
// returned in Failures in task order.
func Settle(ctx context.Context, tasks ...Task) Failures {
	// Each goroutine writes only its own slot.
	results := make([]*TaskError, len(tasks))

	var wg conc.WaitGroup
	for i, t := range tasks {
		i, t := i, t
		wg.Go(func() {
			if err := runTask(ctx, t); err != nil {
				results[i] = &TaskError{Task: t.Name, Err: err}
			}
		})
	}
	wg.Wait()

	var failures Failures
	for _, r := range results {
		if r != nil {
			failures = append(failures, r)
		}
	}
	return failures
}

// runTask runs t, turning a panic into an error.
func runTask(ctx context.Context, t Task) error {
	if t.Run == nil {
		return nil
	}
	var (
		err error
		pc  panics.Catcher
	)
	pc.Try(func() { err = t.Run(ctx) })
	if r := pc.Recovered(); r != nil {
		return fmt.Errorf("panic: %v", r.Value)
	}
	return err
}
