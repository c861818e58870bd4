// Package purchase runs the space purchase wizard: session state and its
// reducer, the step state machine, the initial fetch and the receipt
// pipelines.
package purchase

import (
	"spacepurchase/internal/types"
)

// State is everything one wizard traversal knows.
type State struct {
	SessionID    string             `json:"sessionId"`
	Organization types.Organization `json:"organization"`

	// CurrentSpace is set only when upgrading an existing space.
	CurrentSpace         *types.Space                `json:"currentSpace,omitempty"`
	CurrentSpaceRatePlan *types.SpaceProductRatePlan `json:"currentSpaceRatePlan,omitempty"`

	SpaceRatePlans       []types.SpaceProductRatePlan `json:"spaceRatePlans"`
	AddOnRatePlan        *types.ProductRatePlan       `json:"addOnRatePlan,omitempty"`
	Templates            []types.Template             `json:"templates"`
	FAQs                 []types.FAQ                  `json:"faqs"`
	ComposeLaunchApps    []types.AppDefinition        `json:"composeLaunchApps,omitempty"`
	ComposeLaunchEnabled bool                         `json:"composeLaunchEnabled"`

	SelectedPlatform types.Platform              `json:"selectedPlatform,omitempty"`
	SelectedPlan     *types.SpaceProductRatePlan `json:"selectedPlan,omitempty"`
	BillingDetails   *types.BillingDetails       `json:"billingDetails,omitempty"`
	PaymentDetails   *types.PaymentDetails       `json:"paymentDetails,omitempty"`
	SpaceName        string                      `json:"spaceName,omitempty"`
	SelectedTemplate *types.Template             `json:"selectedTemplate,omitempty"`

	// PurchasingApps is nil until the initial fetch has decided it.
	PurchasingApps *bool `json:"purchasingApps"`
}

// NoSpacePlan is the sentinel plan selected when only the add-on is bought.
var NoSpacePlan = types.SpaceProductRatePlan{
	ProductRatePlan: types.ProductRatePlan{
		Sys:  types.Sys{ID: types.NoSpacePlanID},
		Name: "No space",
	},
}

// IsNoSpacePlan reports whether plan is the NoSpacePlan sentinel.
func IsNoSpacePlan(plan *types.SpaceProductRatePlan) bool {
	return plan != nil && plan.ID() == types.NoSpacePlanID
}

// Upgrading reports whether the session upgrades an existing space.
func (s State) Upgrading() bool {
	return s.CurrentSpace != nil
}

// Snapshot extracts what the state machine routes on.
func (s State) Snapshot() Snapshot {
	snap := Snapshot{
		PurchasingApps:    s.PurchasingApps != nil && *s.PurchasingApps,
		Upgrading:         s.Upgrading(),
		OrgBillable:       s.Organization.IsBillable,
		Platform:          s.SelectedPlatform,
		PlanSelected:      s.SelectedPlan != nil,
		NoSpacePlan:       IsNoSpacePlan(s.SelectedPlan),
		HasSpaceName:      s.SpaceName != "",
		HasBillingDetails: s.BillingDetails != nil,
		HasPaymentDetails: s.PaymentDetails != nil,
	}
	if s.SelectedPlan != nil {
		snap.PlanIsFree = s.SelectedPlan.IsFree
	}
	return snap
}

// FindSpaceRatePlan looks a plan up by id among the offered plans.
func (s State) FindSpaceRatePlan(id string) (types.SpaceProductRatePlan, bool) {
	for _, p := range s.SpaceRatePlans {
		if p.ID() == id {
			return p, true
		}
	}
	return types.SpaceProductRatePlan{}, false
}

// FindTemplate looks a template up by id.
func (s State) FindTemplate(id string) (types.Template, bool) {
	for _, t := range s.Templates {
		if t.ID == id {
			return t, true
		}
	}
	return types.Template{}, false
}
