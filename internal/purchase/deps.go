package purchase

import (
	"context"
	"log/slog"

	"spacepurchase/internal/spaces"
	"spacepurchase/internal/types"
)

// Publisher sends analytics events. Failures are logged by the caller and
// never affect the flow.
type Publisher interface {
	Publish(ctx context.Context, msg types.AnalyticsMessage) error
}

// Reporter is the error-monitoring sink for receipt failures.
type Reporter interface {
	Report(ctx context.Context, kind types.ErrorCode, variant string, err error, attrs ...any)
}

// PaymentAPI is what completing the credit card step needs from billing.
type PaymentAPI interface {
	CreateBillingDetails(ctx context.Context, orgID string, payload types.BillingDetailsPayload) error
	UpdateBillingDetails(ctx context.Context, orgID string, payload types.BillingDetailsPayload) error
	SetDefaultPaymentMethod(ctx context.Context, orgID, paymentMethodRefID string) error
	GetDefaultPaymentMethod(ctx context.Context, orgID string) (types.PaymentDetails, error)
}

// SpaceAPI creates spaces and refreshes the caller's token.
type SpaceAPI interface {
	CreateSpace(ctx context.Context, orgID, name, productRatePlanID string) (types.Space, error)
	ApplyTemplate(ctx context.Context, spaceID, templateID string) error
	RefreshToken(ctx context.Context) (spaces.Token, error)
}

// PlanAPI buys add-ons and changes space plans.
type PlanAPI interface {
	PurchaseAddOn(ctx context.Context, orgID, productRatePlanID string) error
	ChangeSpacePlan(ctx context.Context, spaceID, productRatePlanID string) error
}

// CatalogInvalidator drops a cached entitlement flag.
type CatalogInvalidator interface {
	Invalidate(orgID, featureID string)
}

// Deps are the collaborators shared by every session.
type Deps struct {
	Payments  PaymentAPI
	Spaces    SpaceAPI
	Plans     PlanAPI
	Catalog   CatalogInvalidator
	Publisher Publisher
	Reporter  Reporter

	// AppBaseURL prefixes the links of receipt buttons.
	AppBaseURL string
	Logger     *slog.Logger
}

type discardPublisher struct{}

func (discardPublisher) Publish(context.Context, types.AnalyticsMessage) error { return nil }

type logReporter struct{ logger *slog.Logger }

func (r logReporter) Report(ctx context.Context, kind types.ErrorCode, variant string, err error, attrs ...any) {
	r.logger.ErrorContext(ctx, "purchase step failed", append([]any{"kind", string(kind), "variant", variant, "error", err}, attrs...)...)
}

func (d Deps) withDefaults() *Deps {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Publisher == nil {
		d.Publisher = discardPublisher{}
	}
	if d.Reporter == nil {
		d.Reporter = logReporter{logger: d.Logger}
	}
	return &d
}
