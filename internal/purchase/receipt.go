package purchase

import (
	"context"
	"net/url"
	"strings"

	"spacepurchase/internal/types"
)

// Pipeline step names.
const (
	StepNameCreateSpace     = "create_space"
	StepNameApplyTemplate   = "apply_template"
	StepNameChangeSpacePlan = "change_space_plan"
	StepNamePurchaseAddOn   = "purchase_add_on"
)

// receiptBuilder assembles the pipeline of one receipt variant from a frozen
// copy of the session state.
type receiptBuilder struct {
	sessionID string
	variant   Step
	state     State
	deps      *Deps
}

func (s *Session) newReceipt() *Pipeline {
	b := receiptBuilder{sessionID: s.id, variant: s.step, state: s.state, deps: s.deps}
	return b.build()
}

func (b receiptBuilder) build() *Pipeline {
	var p *Pipeline
	switch b.variant {
	case StepReceipt:
		p = b.createSpacePipeline()
	case StepUpgradeReceipt:
		p = b.upgradePipeline()
	default:
		p = NewPipeline(b.addOnStep())
		p.successAction = b.organizationButton
	}
	p.onFailure = b.reportFailure
	p.onSuccess = b.reportSuccess
	return p
}

// createSpacePipeline creates the space, then applies the template and buys
// the add-on. Nothing after creation starts before the space exists.
func (b receiptBuilder) createSpacePipeline() *Pipeline {
	var created types.Space

	steps := []PipelineStep{{
		Name:     StepNameCreateSpace,
		Kind:     types.ErrCodePurchaseSpaceCreation,
		Blocking: true,
		Run: func(ctx context.Context) error {
			space, err := b.deps.Spaces.CreateSpace(ctx, b.state.Organization.ID(), b.state.SpaceName, b.state.SelectedPlan.ID())
			if err != nil {
				return err
			}
			created = space
			b.refreshToken(ctx)
			return nil
		},
	}}

	if tmpl := b.state.SelectedTemplate; tmpl != nil {
		steps = append(steps, PipelineStep{
			Name:     StepNameApplyTemplate,
			Kind:     types.ErrCodePurchaseTemplateCreation,
			Blocking: false,
			Run: func(ctx context.Context) error {
				return b.deps.Spaces.ApplyTemplate(ctx, created.ID(), tmpl.ID)
			},
		})
	}
	if b.state.SelectedPlatform.IncludesComposeLaunch() {
		steps = append(steps, b.addOnStep())
	}

	p := NewPipeline(steps...)
	p.successAction = func() ButtonAction { return b.spaceButton(created.ID()) }
	return p
}

// upgradePipeline changes the plan of the current space, then buys the
// add-on. With the NoSpacePlan sentinel only the add-on is bought.
func (b receiptBuilder) upgradePipeline() *Pipeline {
	space := b.state.CurrentSpace
	var steps []PipelineStep

	if !IsNoSpacePlan(b.state.SelectedPlan) {
		planID := b.state.SelectedPlan.ID()
		steps = append(steps, PipelineStep{
			Name:     StepNameChangeSpacePlan,
			Kind:     types.ErrCodePurchaseSpaceChange,
			Blocking: true,
			Run: func(ctx context.Context) error {
				if err := b.deps.Plans.ChangeSpacePlan(ctx, space.ID(), planID); err != nil {
					return err
				}
				b.refreshToken(ctx)
				return nil
			},
		})
	}
	if b.state.SelectedPlatform.IncludesComposeLaunch() {
		steps = append(steps, b.addOnStep())
	}

	p := NewPipeline(steps...)
	p.successAction = func() ButtonAction { return b.spaceButton(space.ID()) }
	return p
}

func (b receiptBuilder) addOnStep() PipelineStep {
	orgID := b.state.Organization.ID()
	return PipelineStep{
		Name:     StepNamePurchaseAddOn,
		Kind:     types.ErrCodePurchaseAddOn,
		Blocking: true,
		Run: func(ctx context.Context) error {
			if b.state.AddOnRatePlan == nil {
				return types.NewAppError(types.ErrCodeNotFoundResource, "no Compose+Launch rate plan is offered to the organization", nil)
			}
			if err := b.deps.Plans.PurchaseAddOn(ctx, orgID, b.state.AddOnRatePlan.ID()); err != nil {
				return err
			}
			if b.deps.Catalog != nil {
				b.deps.Catalog.Invalidate(orgID, types.FeatureComposeLaunch)
			}
			b.refreshToken(ctx)
			return nil
		},
	}
}

func (b receiptBuilder) refreshToken(ctx context.Context) {
	if _, err := b.deps.Spaces.RefreshToken(ctx); err != nil {
		b.deps.Logger.WarnContext(ctx, "failed to refresh token after purchase", "session_id", b.sessionID, "error", err)
	}
}

func (b receiptBuilder) link(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, seg := range segments {
		escaped[i] = url.PathEscape(seg)
	}
	return strings.TrimRight(b.deps.AppBaseURL, "/") + "/" + strings.Join(escaped, "/")
}

func (b receiptBuilder) spaceButton(spaceID string) ButtonAction {
	return ButtonAction{Kind: ButtonGoToSpace, URL: b.link("spaces", spaceID)}
}

func (b receiptBuilder) organizationButton() ButtonAction {
	return ButtonAction{Kind: ButtonGoToOrganization, URL: b.link("account", "organizations", b.state.Organization.ID(), "subscription")}
}

func (b receiptBuilder) reportFailure(ctx context.Context, step PipelineStep, err *StepError) {
	b.deps.Reporter.Report(ctx, err.Kind, string(b.variant), err.Err,
		"session_id", b.sessionID,
		"org_id", b.state.Organization.ID(),
		"step", step.Name,
	)
	b.publish(ctx, types.AnalyticsMessage{
		EventType: types.AnalyticsError,
		ErrorKind: string(err.Kind),
		Message:   err.Error(),
	})
}

func (b receiptBuilder) reportSuccess(ctx context.Context) {
	b.deps.Logger.InfoContext(ctx, "purchase completed", "session_id", b.sessionID, "org_id", b.state.Organization.ID(), "variant", string(b.variant))
	b.publish(ctx, types.AnalyticsMessage{EventType: types.AnalyticsCompleted})
}

func (b receiptBuilder) publish(ctx context.Context, msg types.AnalyticsMessage) {
	msg.SessionID = b.sessionID
	msg.OrganizationID = b.state.Organization.ID()
	msg.Variant = string(b.variant)
	if err := b.deps.Publisher.Publish(context.WithoutCancel(ctx), msg); err != nil {
		b.deps.Logger.WarnContext(ctx, "failed to publish analytics event", "session_id", b.sessionID, "event_type", string(msg.EventType), "error", err)
	}
}

// StartReceipt runs the receipt pipeline of the current terminal step,
// creating it on first use, and returns its status afterwards.
func (s *Session) StartReceipt(ctx context.Context) (Status, error) {
	s.mu.Lock()
	if !s.step.Terminal() {
		err := s.requireStep(StepReceipt, StepUpgradeReceipt, StepComposeReceipt)
		s.mu.Unlock()
		return Status{}, err
	}
	if s.receipt == nil {
		s.receipt = s.newReceipt()
	}
	p := s.receipt
	s.mu.Unlock()

	err := p.Run(ctx)
	return p.Status(), err
}

// ReceiptStatus returns the status of the receipt pipeline without running
// it.
func (s *Session) ReceiptStatus() (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.step.Terminal() {
		return Status{}, s.requireStep(StepReceipt, StepUpgradeReceipt, StepComposeReceipt)
	}
	if s.receipt == nil {
		return Status{Warnings: []StatusError{}, ButtonAction: ButtonAction{Kind: ButtonNone}}, nil
	}
	return s.receipt.Status(), nil
}
