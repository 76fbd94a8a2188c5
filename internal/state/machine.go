package state

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/looplab/fsm"

	"github.com/langchou/fieldops/internal/models"
)

// Policy stage transition rule set
type Policy string

const (
	// PolicyPermissive any unfinished operation may move to any stage.
	PolicyPermissive Policy = "permissive"
	// PolicySequential stages advance one step at a time.
	PolicySequential Policy = "sequential"
)

// ParsePolicy parses a STAGE_POLICY value. Empty means permissive.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "", PolicyPermissive:
		return PolicyPermissive, nil
	case PolicySequential:
		return PolicySequential, nil
	default:
		return "", fmt.Errorf("unknown stage policy %q", s)
	}
}

var (
	// ErrTerminal is returned for any transition out of FINALIZADA.
	ErrTerminal = errors.New("operation already finished")
	// ErrForbidden is returned when the policy does not allow the transition.
	ErrForbidden = errors.New("stage transition not allowed")
)

// Machine evaluates stage transitions under a policy.
// It holds no per-operation state: the current stage always comes from the caller.
type Machine struct {
	policy Policy
	events fsm.Events
}

// NewMachine builds the transition table for policy.
func NewMachine(policy Policy) *Machine {
	if policy == "" {
		policy = PolicyPermissive
	}
	return &Machine{
		policy: policy,
		events: buildEvents(policy),
	}
}

// Policy returns the active policy.
func (m *Machine) Policy() Policy {
	return m.policy
}

// buildEvents names each event after its destination stage.
func buildEvents(policy Policy) fsm.Events {
	open := make([]string, 0, len(models.Stages))
	for _, s := range models.Stages {
		if s != models.StageFinished {
			open = append(open, string(s))
		}
	}

	events := make(fsm.Events, 0, len(models.Stages))
	for i, dst := range models.Stages {
		var src []string
		switch {
		case policy == PolicyPermissive:
			src = open
		case dst == models.StageFinished:
			src = []string{string(models.Stages[i-1])}
		case i == 0:
			src = []string{string(dst)}
		default:
			// re-setting the current stage is allowed as a no-op
			src = []string{string(models.Stages[i-1]), string(dst)}
		}
		events = append(events, fsm.EventDesc{Name: string(dst), Src: src, Dst: string(dst)})
	}
	return events
}

// Transition checks whether an operation in stage from may move to stage to.
// Setting the current stage again is not an error.
func (m *Machine) Transition(ctx context.Context, from, to models.Stage) error {
	if !to.Valid() {
		return fmt.Errorf("unknown stage %q", to)
	}
	if from == models.StageFinished {
		return ErrTerminal
	}

	machine := fsm.NewFSM(string(from), m.events, fsm.Callbacks{})

	err := machine.Event(ctx, string(to))
	var noTransition fsm.NoTransitionError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &noTransition) && noTransition.Err == nil:
		return nil
	case errors.As(err, new(fsm.InvalidEventError)):
		return fmt.Errorf("%w: %s -> %s", ErrForbidden, from, to)
	default:
		return fmt.Errorf("transition %s -> %s: %w", from, to, err)
	}
}
