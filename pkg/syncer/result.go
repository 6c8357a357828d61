package syncer

import (
	"errors"
	"sync"
	"time"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/giantswarm/chronosphere-sync/pkg/domain/asset"
)

// Action is what a sync did with one asset.
type Action string

const (
	ActionCreated   Action = "created"
	ActionUpdated   Action = "updated"
	ActionUnchanged Action = "unchanged"
	ActionSkipped   Action = "skipped"
	ActionFailed    Action = "failed"
)

// Reasons of skipped outcomes.
const (
	ReasonDryRun           = "dry run"
	ReasonNotSelected      = "not selected"
	ReasonDependencyFailed = "dependency failed"
	ReasonCancelled        = "cancelled"
	ReasonNotValidated     = "not validated"
)

// Outcome is the result of syncing one asset.
type Outcome struct {
	Key    asset.Key
	Action Action
	// Reason explains a skipped outcome.
	Reason string
	// Err is set for failed outcomes and for assets skipped because a dependency failed.
	Err error
}

// Result holds the outcome of every asset of a run in sync order.
type Result struct {
	Outcomes   []Outcome
	DryRun     bool
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration is the wall time of the run.
func (r *Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Count returns how many assets of a kind ended with the given action.
func (r *Result) Count(kind asset.Kind, action Action) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Key.Kind == kind && o.Action == action {
			n++
		}
	}
	return n
}

// Outcome returns the outcome of an asset.
func (r *Result) Outcome(key asset.Key) (Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.Key == key {
			return o, true
		}
	}
	return Outcome{}, false
}

// Failed returns the failed outcomes, including assets skipped because a dependency failed.
func (r *Result) Failed() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			failed = append(failed, o)
		}
	}
	return failed
}

// ErrCancelled is part of Result.Err when the run was cancelled before every asset was synced.
var ErrCancelled = errors.New("sync cancelled before every asset was synced")

// Err aggregates the errors of failed assets.
func (r *Result) Err() error {
	var errs []error
	cancelled := false
	for _, o := range r.Outcomes {
		switch {
		case o.Action == ActionFailed:
			errs = append(errs, o.Err)
		case o.Reason == ReasonCancelled:
			cancelled = true
		}
	}
	if cancelled {
		errs = append(errs, ErrCancelled)
	}
	return utilerrors.NewAggregate(errs)
}

// outcomes is the concurrent outcome store of a run.
type outcomes struct {
	mu   sync.Mutex
	byID map[asset.Key]Outcome
}

func newOutcomes() *outcomes {
	return &outcomes{byID: make(map[asset.Key]Outcome)}
}

func (o *outcomes) set(outcome Outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.byID[outcome.Key] = outcome
}

func (o *outcomes) get(key asset.Key) (Outcome, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	outcome, ok := o.byID[key]
	return outcome, ok
}
