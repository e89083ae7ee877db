// Package background runs long computations off the caller's path and
// reports their outcome through a callback.
package background

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"oncosim/internal/log"
)

// Outcome is delivered once per task. OK is false when the task failed,
// panicked or was cancelled; Value is then the zero value.
type Outcome[T any] struct {
	ID    string
	Name  string
	Value T
	OK    bool
	Err   error
}

// Runner tracks submitted tasks so they can be cancelled and awaited together.
type Runner struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRunner creates a runner whose tasks inherit parent's cancellation.
func NewRunner(parent context.Context) *Runner {
	ctx, cancel := context.WithCancel(parent)
	return &Runner{ctx: ctx, cancel: cancel}
}

// Wait blocks until every submitted task has delivered its outcome.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Shutdown cancels outstanding tasks and waits for them.
func (r *Runner) Shutdown() {
	r.cancel()
	r.wg.Wait()
}

// Submit starts fn on its own goroutine and returns the task ID. done is
// called exactly once from that goroutine. A panic inside fn is recovered
// and reported as a failed outcome.
func Submit[T any](r *Runner, name string, fn func(context.Context) (T, error), done func(Outcome[T])) string {
	id := uuid.New().String()
	r.wg.Add(1)

	go func() {
		defer r.wg.Done()
		out := Outcome[T]{ID: id, Name: name}

		func() {
			defer func() {
				if p := recover(); p != nil {
					out.Err = fmt.Errorf("task %s panicked: %v", name, p)
				}
			}()
			if err := r.ctx.Err(); err != nil {
				out.Err = err
				return
			}
			out.Value, out.Err = fn(r.ctx)
		}()

		if out.Err != nil {
			var zero T
			out.Value = zero
			log.Warn("background task failed", "task", name, "id", id, "error", out.Err)
		} else {
			out.OK = true
			log.Debug("background task finished", "task", name, "id", id)
		}
		if done != nil {
			done(out)
		}
	}()
	return id
}
