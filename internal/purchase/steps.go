package purchase

import (
	"slices"

	"spacepurchase/internal/types"
)

// Step is a named stage of the purchase wizard.
type Step string

const (
	StepPlatformSelection  Step = "PLATFORM_SELECTION"
	StepSpacePlanSelection Step = "SPACE_PLAN_SELECTION"
	StepSpaceDetails       Step = "SPACE_DETAILS"
	StepBillingDetails     Step = "BILLING_DETAILS"
	StepCreditCardDetails  Step = "CREDIT_CARD_DETAILS"
	StepConfirmation       Step = "CONFIRMATION"
	StepReceipt            Step = "RECEIPT"
	StepUpgradeReceipt     Step = "UPGRADE_RECEIPT"
	StepComposeReceipt     Step = "COMPOSE_RECEIPT"
)

// Terminal reports whether s is one of the receipt steps.
func (s Step) Terminal() bool {
	return s == StepReceipt || s == StepUpgradeReceipt || s == StepComposeReceipt
}

// validTransitions lists every step reachable from a step in one move,
// forward or back.
var validTransitions = map[Step][]Step{
	StepPlatformSelection:  {StepSpaceDetails, StepBillingDetails, StepConfirmation},
	StepSpacePlanSelection: {StepSpaceDetails, StepBillingDetails, StepConfirmation, StepPlatformSelection},
	StepSpaceDetails:       {StepReceipt, StepBillingDetails, StepConfirmation, StepPlatformSelection, StepSpacePlanSelection},
	StepBillingDetails:     {StepCreditCardDetails, StepSpaceDetails, StepPlatformSelection, StepSpacePlanSelection},
	StepCreditCardDetails:  {StepConfirmation, StepBillingDetails},
	StepConfirmation:       {StepReceipt, StepUpgradeReceipt, StepComposeReceipt, StepCreditCardDetails, StepSpaceDetails, StepPlatformSelection, StepSpacePlanSelection},
	StepReceipt:            {},
	StepUpgradeReceipt:     {},
	StepComposeReceipt:     {},
}

// CanTransitionTo checks if a step transition is valid.
func (s Step) CanTransitionTo(target Step) bool {
	allowed, exists := validTransitions[s]
	return exists && slices.Contains(allowed, target)
}

// Event drives the state machine.
type Event string

const (
	EventContinue         Event = "continue"
	EventBack             Event = "back"
	EventPaymentSucceeded Event = "payment_succeeded"
)

// Snapshot is the part of the session that routing depends on.
type Snapshot struct {
	PurchasingApps    bool
	Upgrading         bool
	OrgBillable       bool
	Platform          types.Platform
	PlanSelected      bool
	NoSpacePlan       bool
	PlanIsFree        bool
	HasSpaceName      bool
	HasBillingDetails bool
	HasPaymentDetails bool
}

// InitialStep is the first step a session shows.
func InitialStep(purchasingApps bool) Step {
	if purchasingApps {
		return StepPlatformSelection
	}
	return StepSpacePlanSelection
}

// skipsSpaceDetails reports whether no space needs naming: the space already
// exists, or only the add-on is bought.
func (s Snapshot) skipsSpaceDetails() bool {
	return s.Upgrading || (s.Platform.IncludesComposeLaunch() && s.NoSpacePlan)
}

func (s Snapshot) selectionStep() Step {
	return InitialStep(s.PurchasingApps)
}

// paymentOrConfirmation routes an organization with billing details on file
// past the payment steps.
func (s Snapshot) paymentOrConfirmation() Step {
	if s.OrgBillable {
		return StepConfirmation
	}
	return StepBillingDetails
}

func stepIncomplete(step Step, missing string) error {
	return types.NewAppErrorWithDetails(
		types.ErrCodeValidationStepIncomplete,
		"step is incomplete: "+missing,
		nil,
		map[string]any{"step": string(step), "missing": missing},
	)
}

func wrongStep(step Step, event Event) error {
	return types.NewAppErrorWithDetails(
		types.ErrCodeConflictWrongStep,
		"event does not apply to the current step",
		nil,
		map[string]any{"step": string(step), "event": string(event)},
	)
}

// Transition computes the step following step on event. It has no side
// effects.
func Transition(step Step, event Event, snap Snapshot) (Step, error) {
	var next Step
	var err error

	switch event {
	case EventContinue:
		next, err = forward(step, snap)
	case EventBack:
		next, err = back(step, snap)
	case EventPaymentSucceeded:
		if step != StepCreditCardDetails {
			return step, wrongStep(step, event)
		}
		if !snap.HasPaymentDetails {
			return step, stepIncomplete(step, "paymentDetails")
		}
		next = StepConfirmation
	default:
		return step, types.NewAppError(types.ErrCodeValidationInvalidAction, "unknown event "+string(event), nil)
	}
	if err != nil {
		return step, err
	}

	if !step.CanTransitionTo(next) {
		return step, types.NewAppErrorWithDetails(
			types.ErrCodeInternalUnexpected,
			"computed transition is not allowed",
			nil,
			map[string]any{"from": string(step), "to": string(next)},
		)
	}
	return next, nil
}

func forward(step Step, snap Snapshot) (Step, error) {
	switch step {
	case StepPlatformSelection, StepSpacePlanSelection:
		if step == StepPlatformSelection && snap.Platform == "" {
			return step, stepIncomplete(step, "selectedPlatform")
		}
		if !snap.PlanSelected {
			return step, stepIncomplete(step, "selectedPlan")
		}
		if snap.NoSpacePlan && !snap.Platform.IncludesComposeLaunch() {
			return step, stepIncomplete(step, "selectedPlan")
		}
		if snap.skipsSpaceDetails() {
			return snap.paymentOrConfirmation(), nil
		}
		return StepSpaceDetails, nil

	case StepSpaceDetails:
		if !snap.HasSpaceName {
			return step, stepIncomplete(step, "spaceName")
		}
		// The add-on is paid even on a free space plan.
		if snap.PlanIsFree && !snap.Platform.IncludesComposeLaunch() {
			return StepReceipt, nil
		}
		return snap.paymentOrConfirmation(), nil

	case StepBillingDetails:
		if !snap.HasBillingDetails {
			return step, stepIncomplete(step, "billingDetails")
		}
		return StepCreditCardDetails, nil

	case StepCreditCardDetails:
		// Only the payment callback leaves this step.
		return step, stepIncomplete(step, "payment")

	case StepConfirmation:
		switch {
		case snap.Upgrading:
			return StepUpgradeReceipt, nil
		case snap.NoSpacePlan:
			return StepComposeReceipt, nil
		default:
			return StepReceipt, nil
		}
	}
	return step, wrongStep(step, EventContinue)
}

func back(step Step, snap Snapshot) (Step, error) {
	switch step {
	case StepSpacePlanSelection:
		if snap.PurchasingApps {
			return StepPlatformSelection, nil
		}
	case StepSpaceDetails:
		return snap.selectionStep(), nil
	case StepBillingDetails:
		if !snap.skipsSpaceDetails() {
			return StepSpaceDetails, nil
		}
		return snap.selectionStep(), nil
	case StepCreditCardDetails:
		return StepBillingDetails, nil
	case StepConfirmation:
		switch {
		case !snap.OrgBillable:
			return StepCreditCardDetails, nil
		case !snap.skipsSpaceDetails():
			return StepSpaceDetails, nil
		default:
			return snap.selectionStep(), nil
		}
	}
	return step, types.NewAppErrorWithDetails(
		types.ErrCodeConflictNoPreviousStep,
		"there is no previous step",
		nil,
		map[string]any{"step": string(step)},
	)
}
