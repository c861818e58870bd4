package purchase

import (
	"context"
	"crypto/subtle"
	"strings"
	"sync"

	"spacepurchase/internal/billing"
	"spacepurchase/internal/types"
)

// Session is the handle on one wizard traversal. All methods are safe for
// concurrent use; mutations are serialized by the session's mutex.
type Session struct {
	mu          sync.Mutex
	id          string
	owner       string
	state       State
	step        Step
	initialized bool
	receipt     *Pipeline
	deps        *Deps

	// payMu serializes payment captures. savedBilling is guarded by payMu
	// and holds the billing details last stored upstream.
	payMu        sync.Mutex
	savedBilling *types.BillingDetails
}

// View is the client-facing picture of a session.
type View struct {
	State   State   `json:"state"`
	Step    Step    `json:"step"`
	Receipt *Status `json:"receipt,omitempty"`
}

func newSession(id string, deps *Deps) *Session {
	return &Session{
		id:    id,
		state: State{SessionID: id},
		deps:  deps,
	}
}

// ID returns the session's correlation id.
func (s *Session) ID() string { return s.id }

// OrganizationID returns the organization the session purchases for.
func (s *Session) OrganizationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Organization.ID()
}

// Step returns the current step.
func (s *Session) Step() Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// State returns a copy of the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// View returns the state, step and receipt status together.
func (s *Session) View() View {
	s.mu.Lock()
	v := View{State: s.state, Step: s.step}
	p := s.receipt
	s.mu.Unlock()

	if p != nil {
		st := p.Status()
		v.Receipt = &st
	}
	return v
}

// Authorize checks that ctx carries the token the session was created with.
// A mismatch looks like a missing session.
func (s *Session) Authorize(ctx context.Context) error {
	token, _ := types.GetAuthToken(ctx)
	if subtle.ConstantTimeCompare([]byte(token.Fingerprint()), []byte(s.owner)) != 1 {
		return types.NewAppError(types.ErrCodeNotFoundSession, "purchase session not found", nil)
	}
	return nil
}

// Dispatch applies a to the session state. Once initialized, the path of the
// session is fixed: the initial state, the current space and the purchasing
// apps flag can no longer change. A session on a receipt step is read-only.
func (s *Session) Dispatch(a Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dispatchLocked(a)
}

func (s *Session) dispatchLocked(a Action) error {
	if s.initialized {
		switch a.(type) {
		case SetInitialState, SetCurrentSpace, SetPurchasingApps:
			return types.NewAppError(types.ErrCodeConflictSessionPathFixed, "the purchase path is fixed once the session is loaded", nil)
		}
	}
	if s.step.Terminal() {
		return types.NewAppErrorWithDetails(types.ErrCodeConflictWrongStep, "the purchase is already confirmed", nil, map[string]any{"step": string(s.step)})
	}
	s.state = Reduce(s.state, a)
	return nil
}

// initialize loads the combined initial fetch and places the session on its
// first step.
func (s *Session) initialize(data InitialData, purchasingApps bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.dispatchLocked(SetInitialState{Data: data}); err != nil {
		return err
	}
	if err := s.dispatchLocked(SetPurchasingApps{Value: purchasingApps}); err != nil {
		return err
	}
	s.step = InitialStep(purchasingApps)
	s.initialized = true
	return nil
}

func (s *Session) requireStep(allowed ...Step) error {
	for _, st := range allowed {
		if s.step == st {
			return nil
		}
	}
	return types.NewAppErrorWithDetails(types.ErrCodeConflictWrongStep, "action does not apply to the current step", nil, map[string]any{"step": string(s.step)})
}

func invalidAction(msg string, details map[string]any) error {
	return types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidAction, msg, nil, details)
}

// SelectPlatform records the chosen platform and clears the chosen plan.
func (s *Session) SelectPlatform(p types.Platform) error {
	if p != types.PlatformSpaceOnly && p != types.PlatformComposeLaunch {
		return invalidAction("unknown platform", map[string]any{"platform": string(p)})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireStep(StepPlatformSelection); err != nil {
		return err
	}
	return s.dispatchLocked(SetSelectedPlatform{Platform: p})
}

// SelectPlan records the chosen space plan. The NoSpacePlanID sentinel is
// only accepted alongside Compose+Launch.
func (s *Session) SelectPlan(planID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireStep(StepPlatformSelection, StepSpacePlanSelection); err != nil {
		return err
	}

	if planID == types.NoSpacePlanID {
		if !s.state.SelectedPlatform.IncludesComposeLaunch() {
			return invalidAction("a space plan is required without Compose+Launch", map[string]any{"plan_id": planID})
		}
		plan := NoSpacePlan
		return s.dispatchLocked(SetSelectedPlan{Plan: &plan})
	}

	plan, ok := s.state.FindSpaceRatePlan(planID)
	if !ok {
		return invalidAction("unknown space plan", map[string]any{"plan_id": planID})
	}
	if plan.Disabled {
		return invalidAction("space plan is unavailable", map[string]any{"plan_id": planID})
	}
	return s.dispatchLocked(SetSelectedPlan{Plan: &plan})
}

// SetSpaceName records the name of the space to create.
func (s *Session) SetSpaceName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return types.NewAppErrorWithDetails(types.ErrCodeValidationMissingField, "space name is required", nil, map[string]any{"field": "spaceName"})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireStep(StepSpaceDetails); err != nil {
		return err
	}
	return s.dispatchLocked(SetSpaceName{Name: name})
}

// SelectTemplate records the template to apply to the new space. An empty id
// clears the selection.
func (s *Session) SelectTemplate(templateID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireStep(StepSpaceDetails); err != nil {
		return err
	}

	if templateID == "" {
		return s.dispatchLocked(SetSelectedTemplate{Template: nil})
	}
	tmpl, ok := s.state.FindTemplate(templateID)
	if !ok {
		return invalidAction("unknown template", map[string]any{"template_id": templateID})
	}
	return s.dispatchLocked(SetSelectedTemplate{Template: &tmpl})
}

// SubmitBillingDetails validates the form and records the details. Nothing
// is sent upstream until the payment succeeds.
func (s *Session) SubmitBillingDetails(form billing.Form) error {
	if errs := billing.ValidateBillingForm(form); errs != nil {
		return errs.AppError()
	}
	payload, err := billing.NewBillingDetailsRequest(form)
	if err != nil {
		return err
	}
	details := billing.TransformBillingDetails(payload)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireStep(StepBillingDetails); err != nil {
		return err
	}
	return s.dispatchLocked(SetBillingDetails{Details: &details})
}

// Continue moves to the next step.
func (s *Session) Continue(ctx context.Context) (Step, error) {
	return s.fire(ctx, EventContinue)
}

// Back moves to the previous shown step.
func (s *Session) Back(ctx context.Context) (Step, error) {
	return s.fire(ctx, EventBack)
}

func (s *Session) fire(ctx context.Context, event Event) (Step, error) {
	s.mu.Lock()
	from := s.step
	to, err := s.transitionLocked(event)
	orgID := s.state.Organization.ID()
	s.mu.Unlock()
	if err != nil {
		return from, err
	}

	s.publishNavigation(ctx, orgID, from, to)
	return to, nil
}

func (s *Session) transitionLocked(event Event) (Step, error) {
	next, err := Transition(s.step, event, s.state.Snapshot())
	if err != nil {
		return s.step, err
	}
	s.step = next
	return next, nil
}

// publish sends msg detached from ctx cancellation and only logs failures.
func (s *Session) publish(ctx context.Context, msg types.AnalyticsMessage) {
	msg.SessionID = s.id
	if err := s.deps.Publisher.Publish(context.WithoutCancel(ctx), msg); err != nil {
		s.deps.Logger.WarnContext(ctx, "failed to publish analytics event",
			"session_id", s.id,
			"event_type", string(msg.EventType),
			"error", err,
		)
	}
}

func (s *Session) publishNavigation(ctx context.Context, orgID string, from, to Step) {
	s.deps.Logger.InfoContext(ctx, "purchase step changed", "session_id", s.id, "from", string(from), "to", string(to))
	s.publish(ctx, types.AnalyticsMessage{
		EventType:      types.AnalyticsNavigate,
		OrganizationID: orgID,
		FromStep:       string(from),
		ToStep:         string(to),
	})
}
