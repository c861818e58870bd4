package purchase

import "spacepurchase/internal/types"

// Action is one state change. The set is closed: only this package
// implements it.
type Action interface {
	action()
}

// InitialData is the combined result of the initial fetch.
type InitialData struct {
	Organization         types.Organization
	CurrentSpace         *types.Space
	CurrentSpaceRatePlan *types.SpaceProductRatePlan
	SpaceRatePlans       []types.SpaceProductRatePlan
	AddOnRatePlan        *types.ProductRatePlan
	Templates            []types.Template
	FAQs                 []types.FAQ
	ComposeLaunchApps    []types.AppDefinition
	ComposeLaunchEnabled bool
	BillingDetails       *types.BillingDetails
	PaymentDetails       *types.PaymentDetails
}

type (
	SetInitialState         struct{ Data InitialData }
	SetPurchasingApps       struct{ Value bool }
	SetCurrentSpace         struct{ Space *types.Space }
	SetCurrentSpaceRatePlan struct{ Plan *types.SpaceProductRatePlan }
	SetSelectedPlatform     struct{ Platform types.Platform }
	SetSelectedPlan         struct{ Plan *types.SpaceProductRatePlan }
	SetBillingDetails       struct{ Details *types.BillingDetails }
	SetPaymentDetails       struct{ Details *types.PaymentDetails }
	SetSpaceName            struct{ Name string }
	SetSelectedTemplate     struct{ Template *types.Template }
)

func (SetInitialState) action()         {}
func (SetPurchasingApps) action()       {}
func (SetCurrentSpace) action()         {}
func (SetCurrentSpaceRatePlan) action() {}
func (SetSelectedPlatform) action()     {}
func (SetSelectedPlan) action()         {}
func (SetBillingDetails) action()       {}
func (SetPaymentDetails) action()       {}
func (SetSpaceName) action()            {}
func (SetSelectedTemplate) action()     {}

// Reduce returns the state after applying a. It never mutates state.
func Reduce(state State, a Action) State {
	switch a := a.(type) {
	case SetInitialState:
		d := a.Data
		state.Organization = d.Organization
		state.CurrentSpace = d.CurrentSpace
		state.CurrentSpaceRatePlan = d.CurrentSpaceRatePlan
		state.SpaceRatePlans = d.SpaceRatePlans
		state.AddOnRatePlan = d.AddOnRatePlan
		state.Templates = d.Templates
		state.FAQs = d.FAQs
		state.ComposeLaunchApps = d.ComposeLaunchApps
		state.ComposeLaunchEnabled = d.ComposeLaunchEnabled
		state.BillingDetails = d.BillingDetails
		state.PaymentDetails = d.PaymentDetails
	case SetPurchasingApps:
		v := a.Value
		state.PurchasingApps = &v
	case SetCurrentSpace:
		state.CurrentSpace = a.Space
	case SetCurrentSpaceRatePlan:
		state.CurrentSpaceRatePlan = a.Plan
	case SetSelectedPlatform:
		// A plan chosen for another platform no longer applies.
		state.SelectedPlatform = a.Platform
		state.SelectedPlan = nil
	case SetSelectedPlan:
		state.SelectedPlan = a.Plan
	case SetBillingDetails:
		state.BillingDetails = a.Details
	case SetPaymentDetails:
		state.PaymentDetails = a.Details
	case SetSpaceName:
		state.SpaceName = a.Name
	case SetSelectedTemplate:
		state.SelectedTemplate = a.Template
	}
	return state
}
