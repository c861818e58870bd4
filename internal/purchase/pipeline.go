package purchase

import (
	"context"
	"sync"

	"spacepurchase/internal/types"
)

// ButtonKind is what the receipt's primary button does.
type ButtonKind string

const (
	ButtonNone             ButtonKind = "none"
	ButtonRetry            ButtonKind = "retry"
	ButtonGoToSpace        ButtonKind = "go_to_space"
	ButtonGoToOrganization ButtonKind = "go_to_organization"
)

// ButtonAction is the receipt's primary button.
type ButtonAction struct {
	Kind ButtonKind `json:"kind"`
	URL  string     `json:"url,omitempty"`
}

// StatusError describes one failed pipeline step.
type StatusError struct {
	Kind    types.ErrorCode `json:"kind"`
	Step    string          `json:"step"`
	Message string          `json:"message"`
}

// Status is the observable state of a receipt pipeline.
type Status struct {
	Pending      bool          `json:"pending"`
	Done         bool          `json:"done"`
	Error        *StatusError  `json:"error,omitempty"`
	Warnings     []StatusError `json:"warnings"`
	ButtonAction ButtonAction  `json:"buttonAction"`
}

// PipelineStep is one fallible side effect of a receipt. A non-blocking
// failure is kept as a warning and the pipeline moves on.
type PipelineStep struct {
	Name     string
	Kind     types.ErrorCode
	Blocking bool
	Run      func(ctx context.Context) error
}

// Pipeline runs its steps in order, one at a time. A run resumes at the first
// step that has not succeeded, so a retry never repeats a finished step.
type Pipeline struct {
	steps []PipelineStep

	// onFailure is called for every failed step, outside the lock.
	onFailure func(ctx context.Context, step PipelineStep, err *StepError)
	// onSuccess is called once, after the last step succeeds.
	onSuccess func(ctx context.Context)
	// successAction is the button shown once everything succeeded.
	successAction func() ButtonAction

	mu       sync.Mutex
	next     int
	running  bool
	err      *StatusError
	warnings []StatusError
}

// NewPipeline creates a Pipeline of steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

func errInProgress() error {
	return types.NewAppError(types.ErrCodeConflictReceiptInProgress, "the purchase is already being processed", nil)
}

// Run executes the remaining steps. It returns an error only when another run
// is in progress or ctx was cancelled; step failures are reported through
// Status. A cancelled run leaves no error behind and can be resumed.
func (p *Pipeline) Run(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return errInProgress()
	}
	if p.next >= len(p.steps) {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.err = nil
	start := p.next
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()

	for i := start; i < len(p.steps); i++ {
		step := p.steps[i]

		err := step.Run(ctx)
		if err != nil && isCancellation(ctx, err) {
			return err
		}
		if err != nil {
			stepErr := &StepError{Kind: step.Kind, Err: err}
			if p.onFailure != nil {
				p.onFailure(ctx, step, stepErr)
			}

			se := StatusError{Kind: step.Kind, Step: step.Name, Message: stepErr.AppError().Message}
			p.mu.Lock()
			if step.Blocking {
				p.err = &se
				p.mu.Unlock()
				return nil
			}
			p.warnings = append(p.warnings, se)
			p.mu.Unlock()
		}

		p.mu.Lock()
		p.next = i + 1
		p.mu.Unlock()
	}

	if p.onSuccess != nil {
		p.onSuccess(ctx)
	}
	return nil
}

// Status reports progress, the first blocking error and any warnings.
func (p *Pipeline) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	st := Status{
		Warnings:     append([]StatusError{}, p.warnings...),
		ButtonAction: ButtonAction{Kind: ButtonNone},
	}
	switch {
	case p.running:
		st.Pending = true
	case p.err != nil:
		e := *p.err
		st.Error = &e
		st.ButtonAction = ButtonAction{Kind: ButtonRetry}
	case p.next >= len(p.steps):
		st.Done = true
		if p.successAction != nil {
			st.ButtonAction = p.successAction()
		}
	}
	return st
}
