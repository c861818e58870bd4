package purchase

import (
	"context"

	"spacepurchase/internal/billing"
	"spacepurchase/internal/types"
)

// CompletePayment handles the hosted payment iframe's success callback. The
// billing details collected earlier are stored, the captured card becomes the
// default payment method, and the session moves to confirmation.
//
// Upstream calls run without the session lock held. Captures of one session
// are serialized, and the step is checked again before the result is applied.
func (s *Session) CompletePayment(ctx context.Context, cb billing.PaymentCallback) (Step, error) {
	if !cb.Success {
		return s.Step(), types.NewAppError(types.ErrCodePaymentDeclined, "the payment provider did not accept the card", nil)
	}
	if cb.RefID == "" {
		return s.Step(), types.NewAppErrorWithDetails(types.ErrCodeValidationMissingField, "payment reference is required", nil, map[string]any{"field": "refId"})
	}

	s.payMu.Lock()
	defer s.payMu.Unlock()

	s.mu.Lock()
	from := s.step
	if err := s.requireStep(StepCreditCardDetails); err != nil {
		s.mu.Unlock()
		return from, err
	}
	if s.state.BillingDetails == nil {
		s.mu.Unlock()
		return from, stepIncomplete(from, "billingDetails")
	}
	orgID := s.state.Organization.ID()
	details := *s.state.BillingDetails
	s.mu.Unlock()

	payment, err := s.capturePayment(ctx, orgID, details, cb.RefID)
	if err != nil {
		return from, err
	}

	s.mu.Lock()
	to, err := s.applyPaymentLocked(payment)
	s.mu.Unlock()
	if err != nil {
		return to, err
	}

	s.deps.Logger.InfoContext(ctx, "payment method captured", "session_id", s.id, "org_id", orgID)
	s.publishNavigation(ctx, orgID, from, to)
	return to, nil
}

func (s *Session) capturePayment(ctx context.Context, orgID string, details types.BillingDetails, refID string) (types.PaymentDetails, error) {
	if err := s.storeBillingDetails(ctx, orgID, details); err != nil {
		return types.PaymentDetails{}, err
	}
	if err := s.deps.Payments.SetDefaultPaymentMethod(ctx, orgID, refID); err != nil {
		return types.PaymentDetails{}, err
	}
	return s.deps.Payments.GetDefaultPaymentMethod(ctx, orgID)
}

// storeBillingDetails creates the organization's billing details on the first
// capture and replaces them only when the form changed since. Must be called
// with payMu held.
func (s *Session) storeBillingDetails(ctx context.Context, orgID string, details types.BillingDetails) error {
	payload := billing.PayloadFromDetails(details)

	var err error
	switch {
	case s.savedBilling == nil:
		err = s.deps.Payments.CreateBillingDetails(ctx, orgID, payload)
	case *s.savedBilling == details:
		return nil
	default:
		err = s.deps.Payments.UpdateBillingDetails(ctx, orgID, payload)
	}
	if err != nil {
		return err
	}
	s.savedBilling = &details
	return nil
}

func (s *Session) applyPaymentLocked(payment types.PaymentDetails) (Step, error) {
	if err := s.requireStep(StepCreditCardDetails); err != nil {
		return s.step, err
	}
	if err := s.dispatchLocked(SetPaymentDetails{Details: &payment}); err != nil {
		return s.step, err
	}
	return s.transitionLocked(EventPaymentSucceeded)
}
